package src

import (
	"archive/zip"
	"fmt"
	"io"
	"sort"
)

// BuildArchive writes a zip deliverable for the session: every applied
// change at its path with the applied content, plus every base file the plan
// never touched. Plan files that are not yet applied are excluded, as are
// the base files they would have replaced.
func BuildArchive(w io.Writer, sess *Session) error {
	zw := zip.NewWriter(w)

	planned := make(map[string]bool)
	if plan := sess.Plan(); plan != nil {
		for _, ch := range plan.ProposedChanges {
			planned[ch.FilePath] = true
		}
	}

	applied := sess.AppliedFiles()
	sort.Strings(applied)
	written := make(map[string]bool)

	for _, path := range applied {
		if err := writeEntry(zw, path, sess.Corpus.EffectiveContent(path)); err != nil {
			return err
		}
		written[path] = true
	}

	for _, f := range sess.Corpus.Snapshot() {
		if written[f.Path] || planned[f.Path] {
			continue
		}
		if err := writeEntry(zw, f.Path, f.Content); err != nil {
			return err
		}
	}

	return zw.Close()
}

func writeEntry(zw *zip.Writer, path, content string) error {
	f, err := zw.Create(path)
	if err != nil {
		return fmt.Errorf("archive entry %s: %w", path, err)
	}
	if _, err := f.Write([]byte(content)); err != nil {
		return fmt.Errorf("archive entry %s: %w", path, err)
	}
	return nil
}
