package src

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

// Fixed namespace keys for the local snapshot, one bucket per store. Plan
// and applied-files state is deliberately absent: it lives only in memory
// for the session.
const (
	fileBucket = "file-storage"
	chatBucket = "chat-storage"

	keyPayload  = "payload"
	keyChecksum = "checksum"
)

// SnapshotStore persists the restart-surviving part of a session (uploaded
// files, pending overlay, chat transcript) to a local bbolt file. It is an
// explicit serialize/deserialize boundary, not ambient storage: callers
// decide when to Save and Load.
type SnapshotStore struct {
	db *bolt.DB
}

func OpenSnapshotStore(path string) (*SnapshotStore, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open snapshot store: %w", err)
	}
	return &SnapshotStore{db: db}, nil
}

func (s *SnapshotStore) Close() error {
	return s.db.Close()
}

type fileSnapshot struct {
	Files    []UploadedFile    `json:"files"`
	Overlay  map[string]string `json:"overlay"`
	Selected string            `json:"selected"`
}

func hashBytes(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// Save snapshots the session's corpus and chat under their fixed keys.
func (s *SnapshotStore) Save(sess *Session) error {
	files, err := json.Marshal(fileSnapshot{
		Files:    sess.Corpus.Snapshot(),
		Overlay:  sess.Corpus.overlaySnapshot(),
		Selected: sess.Corpus.Selected(),
	})
	if err != nil {
		return err
	}
	chat, err := json.Marshal(sess.Chat.Messages())
	if err != nil {
		return err
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		if err := putBucket(tx, fileBucket, files); err != nil {
			return err
		}
		return putBucket(tx, chatBucket, chat)
	})
}

// Load rehydrates a session from the snapshot. Missing or corrupted buckets
// are skipped: a fresh session with nothing persisted is not an error.
func (s *SnapshotStore) Load(sess *Session) error {
	return s.db.View(func(tx *bolt.Tx) error {
		if data, ok := getBucket(tx, fileBucket); ok {
			var snap fileSnapshot
			if err := json.Unmarshal(data, &snap); err == nil {
				sess.Corpus.restore(snap.Files, snap.Overlay, snap.Selected)
			}
		}
		if data, ok := getBucket(tx, chatBucket); ok {
			var msgs []Message
			if err := json.Unmarshal(data, &msgs); err == nil {
				sess.Chat.replace(msgs)
			}
		}
		return nil
	})
}

func putBucket(tx *bolt.Tx, name string, payload []byte) error {
	b, err := tx.CreateBucketIfNotExists([]byte(name))
	if err != nil {
		return err
	}
	if err := b.Put([]byte(keyPayload), payload); err != nil {
		return err
	}
	return b.Put([]byte(keyChecksum), []byte(hashBytes(payload)))
}

// getBucket returns the payload when present and its checksum matches.
func getBucket(tx *bolt.Tx, name string) ([]byte, bool) {
	b := tx.Bucket([]byte(name))
	if b == nil {
		return nil, false
	}
	payload := b.Get([]byte(keyPayload))
	if payload == nil {
		return nil, false
	}
	if sum := b.Get([]byte(keyChecksum)); sum != nil && string(sum) != hashBytes(payload) {
		return nil, false
	}
	out := make([]byte, len(payload))
	copy(out, payload)
	return out, true
}
