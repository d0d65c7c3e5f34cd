package src

import (
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// UploadedFile is one file the user brought into the working session.
type UploadedFile struct {
	Path     string `json:"path"`
	Content  string `json:"content"`
	Language string `json:"language"`
	Size     int    `json:"size"`
}

// FileCorpus holds the uploaded file set plus an overlay of pending edits.
// The overlay shadows base content until an edit is committed; callers must
// read through EffectiveContent, never the overlay directly.
type FileCorpus struct {
	mu       sync.RWMutex
	base     map[string]UploadedFile
	overlay  map[string]string
	selected string
}

func NewFileCorpus() *FileCorpus {
	return &FileCorpus{
		base:    make(map[string]UploadedFile),
		overlay: make(map[string]string),
	}
}

// Upload replaces the entire corpus with the given set. Previously uploaded
// files and any pending overlay for them are discarded.
func (c *FileCorpus) Upload(files []UploadedFile) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.base = make(map[string]UploadedFile, len(files))
	c.overlay = make(map[string]string)
	c.selected = ""
	for _, f := range files {
		if f.Language == "" {
			f.Language = DetectLanguage(f.Path)
		}
		if f.Size == 0 {
			f.Size = len(f.Content)
		}
		c.base[f.Path] = f
	}
}

// EffectiveContent resolves a path through the overlay: pending edit if one
// exists, else the stored content, else empty. Unknown paths are treated as
// new files and never error.
func (c *FileCorpus) EffectiveContent(path string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if pending, ok := c.overlay[path]; ok {
		return pending
	}
	if f, ok := c.base[path]; ok {
		return f.Content
	}
	return ""
}

// OriginalContent returns the base content, ignoring any pending edit.
func (c *FileCorpus) OriginalContent(path string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.base[path].Content
}

// StageEdit records a pending content for a path. The path does not need to
// exist in the base set.
func (c *FileCorpus) StageEdit(path, content string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.overlay[path] = content
}

// CommitEdit folds a pending edit into the base entry and clears the overlay
// slot. For a path with no base entry (a file the plan created) the base set
// is left untouched: such files live in the overlay and plan bookkeeping
// until export.
func (c *FileCorpus) CommitEdit(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	pending, ok := c.overlay[path]
	if !ok {
		return
	}
	if f, exists := c.base[path]; exists {
		f.Content = pending
		f.Size = len(pending)
		c.base[path] = f
		delete(c.overlay, path)
	}
}

// Select marks a path as the one the user is looking at.
func (c *FileCorpus) Select(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selected = path
}

func (c *FileCorpus) Selected() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.selected
}

// Clear empties the base set, the overlay, and the selection.
func (c *FileCorpus) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.base = make(map[string]UploadedFile)
	c.overlay = make(map[string]string)
	c.selected = ""
}

func (c *FileCorpus) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.base)
}

func (c *FileCorpus) Has(path string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.base[path]
	return ok
}

// Snapshot returns the base files in stable path order, for prompt building
// and export. Overlay content is not applied; callers that want pending
// content go through EffectiveContent.
func (c *FileCorpus) Snapshot() []UploadedFile {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]UploadedFile, 0, len(c.base))
	for _, f := range c.base {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// overlaySnapshot copies the overlay map for persistence.
func (c *FileCorpus) overlaySnapshot() map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]string, len(c.overlay))
	for p, v := range c.overlay {
		out[p] = v
	}
	return out
}

// restore rehydrates the corpus from a persisted snapshot.
func (c *FileCorpus) restore(files []UploadedFile, overlay map[string]string, selected string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.base = make(map[string]UploadedFile, len(files))
	for _, f := range files {
		c.base[f.Path] = f
	}
	c.overlay = make(map[string]string, len(overlay))
	for p, v := range overlay {
		c.overlay[p] = v
	}
	c.selected = selected
}

// pendingPaths lists overlay entries in stable order.
func (c *FileCorpus) pendingPaths() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.overlay))
	for p := range c.overlay {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// DetectLanguage maps a file extension to the language label stored on an
// UploadedFile.
func DetectLanguage(path string) string {
	switch strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".") {
	case "go":
		return "go"
	case "py":
		return "python"
	case "js", "mjs", "cjs":
		return "javascript"
	case "ts", "tsx":
		return "typescript"
	case "jsx":
		return "jsx"
	case "rs":
		return "rust"
	case "rb":
		return "ruby"
	case "java":
		return "java"
	case "c", "h":
		return "c"
	case "cpp", "hpp", "cc", "cxx":
		return "cpp"
	case "json":
		return "json"
	case "yaml", "yml":
		return "yaml"
	case "md":
		return "markdown"
	case "sh":
		return "bash"
	case "html":
		return "html"
	case "css":
		return "css"
	case "sql":
		return "sql"
	default:
		return "plaintext"
	}
}
