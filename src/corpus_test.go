package src

import (
	"reflect"
	"testing"
)

func TestCorpusUploadReplaces(t *testing.T) {
	c := NewFileCorpus()
	c.Upload([]UploadedFile{{Path: "old.ts", Content: "old"}})
	c.StageEdit("old.ts", "pending")
	c.Select("old.ts")

	c.Upload([]UploadedFile{{Path: "new.go", Content: "package main"}})

	if c.Has("old.ts") {
		t.Fatalf("previous upload survived a replacing upload")
	}
	if got := c.EffectiveContent("old.ts"); got != "" {
		t.Fatalf("stale overlay survived upload: %q", got)
	}
	if c.Selected() != "" {
		t.Fatalf("selection survived upload: %q", c.Selected())
	}

	files := c.Snapshot()
	if len(files) != 1 || files[0].Language != "go" || files[0].Size != len("package main") {
		t.Fatalf("language/size not derived: %#v", files)
	}
}

func TestEffectiveContentResolution(t *testing.T) {
	c := NewFileCorpus()
	c.Upload([]UploadedFile{{Path: "a.ts", Content: "base"}})

	if got := c.EffectiveContent("a.ts"); got != "base" {
		t.Fatalf("expected base content, got %q", got)
	}
	c.StageEdit("a.ts", "edited")
	if got := c.EffectiveContent("a.ts"); got != "edited" {
		t.Fatalf("expected overlay content, got %q", got)
	}
	if got := c.OriginalContent("a.ts"); got != "base" {
		t.Fatalf("original content must ignore overlay, got %q", got)
	}
	if got := c.EffectiveContent("never/uploaded.ts"); got != "" {
		t.Fatalf("unknown path should read empty, got %q", got)
	}
}

func TestCommitEditFoldsBaseEntry(t *testing.T) {
	c := NewFileCorpus()
	c.Upload([]UploadedFile{{Path: "a.ts", Content: "base"}})
	c.StageEdit("a.ts", "committed")
	c.CommitEdit("a.ts")

	if got := c.OriginalContent("a.ts"); got != "committed" {
		t.Fatalf("commit did not fold into base: %q", got)
	}
	if got := c.pendingPaths(); len(got) != 0 {
		t.Fatalf("overlay slot not cleared: %v", got)
	}
	files := c.Snapshot()
	if files[0].Size != len("committed") {
		t.Fatalf("size not refreshed on commit: %d", files[0].Size)
	}
}

func TestCommitEditPlanCreatedFileStaysInOverlay(t *testing.T) {
	c := NewFileCorpus()
	c.StageEdit("brand/new.ts", "created content")
	c.CommitEdit("brand/new.ts")

	if c.Has("brand/new.ts") {
		t.Fatalf("plan-created file must not enter the base set on commit")
	}
	if got := c.EffectiveContent("brand/new.ts"); got != "created content" {
		t.Fatalf("created file lost its content: %q", got)
	}
	if got := c.pendingPaths(); !reflect.DeepEqual(got, []string{"brand/new.ts"}) {
		t.Fatalf("expected overlay to keep the created file, got %v", got)
	}
}

func TestCorpusRestoreRoundtrip(t *testing.T) {
	c := NewFileCorpus()
	c.Upload([]UploadedFile{
		{Path: "b.ts", Content: "bee"},
		{Path: "a.ts", Content: "aye"},
	})
	c.StageEdit("a.ts", "pending")
	c.Select("b.ts")

	files, overlay, selected := c.Snapshot(), c.overlaySnapshot(), c.Selected()

	fresh := NewFileCorpus()
	fresh.restore(files, overlay, selected)

	if !reflect.DeepEqual(fresh.Snapshot(), files) {
		t.Fatalf("restored files differ")
	}
	if fresh.EffectiveContent("a.ts") != "pending" {
		t.Fatalf("restored overlay lost the pending edit")
	}
	if fresh.Selected() != "b.ts" {
		t.Fatalf("restored selection %q", fresh.Selected())
	}
}

func TestDetectLanguage(t *testing.T) {
	cases := []struct {
		path string
		want string
	}{
		{"main.go", "go"},
		{"app/page.tsx", "typescript"},
		{"script.PY", "python"},
		{"notes.md", "markdown"},
		{"Makefile", "plaintext"},
	}
	for _, tc := range cases {
		if got := DetectLanguage(tc.path); got != tc.want {
			t.Errorf("DetectLanguage(%q) = %q, want %q", tc.path, got, tc.want)
		}
	}
}
