package src

import (
	"reflect"
	"testing"
	"time"
)

func TestNormalizePlanDefaults(t *testing.T) {
	now := time.UnixMilli(1700000000000)
	raw := rawPlan{
		ProposedChanges: []rawChange{
			{FilePath: "src/app.ts", ProposedContent: "new"},
			{Action: "create", ProposedContent: "orphan"}, // no filePath, dropped
			{FilePath: "src/util.ts", Action: "delete"},
		},
	}

	plan := normalizePlan(raw, now)

	if plan.ID != "plan-1700000000000" {
		t.Fatalf("unexpected plan id %q", plan.ID)
	}
	if plan.Title != "Code Modifications" {
		t.Fatalf("expected default title, got %q", plan.Title)
	}
	if !plan.CreatedAt.Equal(now) {
		t.Fatalf("unexpected createdAt %v", plan.CreatedAt)
	}
	if len(plan.ProposedChanges) != 2 {
		t.Fatalf("expected 2 changes after dropping, got %d", len(plan.ProposedChanges))
	}

	first := plan.ProposedChanges[0]
	if first.Action != ActionModify {
		t.Fatalf("expected default action modify, got %q", first.Action)
	}
	if first.Changes == nil || len(first.Changes) != 0 {
		t.Fatalf("expected empty non-nil changes, got %#v", first.Changes)
	}
	if first.Key == "" || first.Key == plan.ProposedChanges[1].Key {
		t.Fatalf("expected distinct non-empty change keys")
	}
	if plan.ProposedChanges[1].Action != ActionDelete {
		t.Fatalf("explicit action lost: %q", plan.ProposedChanges[1].Action)
	}
}

func TestNormalizePlanEmpty(t *testing.T) {
	plan := normalizePlan(rawPlan{Title: "Nothing"}, time.UnixMilli(1))
	if plan.Title != "Nothing" {
		t.Fatalf("title overridden: %q", plan.Title)
	}
	if len(plan.ProposedChanges) != 0 {
		t.Fatalf("expected no changes, got %d", len(plan.ProposedChanges))
	}
}

func TestChangeByPathLastWins(t *testing.T) {
	plan := ModificationPlan{ProposedChanges: []ProposedChange{
		{Key: "k1", FilePath: "dup.ts", ProposedContent: "first"},
		{Key: "k2", FilePath: "dup.ts", ProposedContent: "second"},
	}}

	ch, ok := plan.ChangeByPath("dup.ts")
	if !ok || ch.Key != "k2" {
		t.Fatalf("expected last duplicate to win, got %#v ok=%v", ch, ok)
	}
	if _, ok := plan.ChangeByPath("missing.ts"); ok {
		t.Fatalf("unexpected hit for missing path")
	}
	if ch, ok := plan.ChangeByKey("k1"); !ok || ch.ProposedContent != "first" {
		t.Fatalf("key lookup broken: %#v ok=%v", ch, ok)
	}
}

func TestNormalizeSuggestions(t *testing.T) {
	in := []Suggestion{
		{Title: "Add tests"},
		{ID: "keep-me", Title: "Cache results", Priority: "high"},
		{Title: "Rename", Priority: "urgent"},
	}
	got := normalizeSuggestions(in)
	want := []Suggestion{
		{ID: "suggestion-1", Title: "Add tests", Priority: "medium"},
		{ID: "keep-me", Title: "Cache results", Priority: "high"},
		{ID: "suggestion-3", Title: "Rename", Priority: "medium"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %#v want %#v", got, want)
	}
}
