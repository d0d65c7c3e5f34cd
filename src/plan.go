package src

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// FileAction is what a proposed change does to its file.
type FileAction string

const (
	ActionModify FileAction = "modify"
	ActionCreate FileAction = "create"
	ActionDelete FileAction = "delete"
)

// LineChange is one line-level annotation inside a proposed change.
type LineChange struct {
	LineNumber  int    `json:"lineNumber,omitempty"`
	Type        string `json:"type"`
	Description string `json:"description"`
}

// ProposedChange is one file's proposed modification. It is immutable once
// the plan is normalized; user edits live in the session keyed by Key, not
// here. Key is assigned at normalize time so that per-change state survives
// duplicate file paths within a plan.
type ProposedChange struct {
	Key             string       `json:"key"`
	FilePath        string       `json:"filePath"`
	Action          FileAction   `json:"action"`
	Description     string       `json:"description"`
	Reasoning       string       `json:"reasoning"`
	OriginalContent string       `json:"originalContent"`
	ProposedContent string       `json:"proposedContent"`
	Changes         []LineChange `json:"changes"`
}

// ModificationPlan is the structured output of one planning call.
type ModificationPlan struct {
	ID              string           `json:"id"`
	Title           string           `json:"title"`
	Description     string           `json:"description"`
	CreatedAt       time.Time        `json:"createdAt"`
	ProposedChanges []ProposedChange `json:"proposedChanges"`
}

// ChangeByKey returns the change with the given identity key.
func (p *ModificationPlan) ChangeByKey(key string) (ProposedChange, bool) {
	for _, ch := range p.ProposedChanges {
		if ch.Key == key {
			return ch, true
		}
	}
	return ProposedChange{}, false
}

// ChangeByPath returns the change for a file path. With duplicate paths in a
// plan the last one wins, matching map-style lookups elsewhere.
func (p *ModificationPlan) ChangeByPath(path string) (ProposedChange, bool) {
	var found ProposedChange
	ok := false
	for _, ch := range p.ProposedChanges {
		if ch.FilePath == path {
			found, ok = ch, true
		}
	}
	return found, ok
}

// Suggestion is one descriptive improvement from the lighter-weight
// suggestions path. No code is attached at this stage.
type Suggestion struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Impact      string `json:"impact"`
	Priority    string `json:"priority"`
}

// ReviewResult is the advisory judgement returned for one applied change.
type ReviewResult struct {
	Score           float64  `json:"score"`
	Feedback        []string `json:"feedback"`
	ReadyToDownload bool     `json:"readyToDownload"`
}

// rawPlan mirrors whatever the planner sent back. Every field is optional;
// normalizePlan turns it into the strict ModificationPlan.
type rawPlan struct {
	Title           string      `json:"title"`
	Description     string      `json:"description"`
	ProposedChanges []rawChange `json:"proposedChanges"`
}

type rawChange struct {
	FilePath        string       `json:"filePath"`
	Action          string       `json:"action"`
	Description     string       `json:"description"`
	Reasoning       string       `json:"reasoning"`
	OriginalContent string       `json:"originalContent"`
	ProposedContent string       `json:"proposedContent"`
	Changes         []LineChange `json:"changes"`
}

// normalizePlan produces the strict plan from a parsed raw one. Missing
// optional fields are defaulted; entries without a filePath are dropped so
// one hallucinated element never sinks the plan.
func normalizePlan(raw rawPlan, now time.Time) ModificationPlan {
	plan := ModificationPlan{
		ID:          fmt.Sprintf("plan-%d", now.UnixMilli()),
		Title:       raw.Title,
		Description: raw.Description,
		CreatedAt:   now,
	}
	if plan.Title == "" {
		plan.Title = "Code Modifications"
	}
	for _, rc := range raw.ProposedChanges {
		if rc.FilePath == "" {
			continue
		}
		ch := ProposedChange{
			Key:             uuid.NewString(),
			FilePath:        rc.FilePath,
			Action:          FileAction(rc.Action),
			Description:     rc.Description,
			Reasoning:       rc.Reasoning,
			OriginalContent: rc.OriginalContent,
			ProposedContent: rc.ProposedContent,
			Changes:         rc.Changes,
		}
		if ch.Action == "" {
			ch.Action = ActionModify
		}
		if ch.Changes == nil {
			ch.Changes = []LineChange{}
		}
		plan.ProposedChanges = append(plan.ProposedChanges, ch)
	}
	return plan
}

// normalizeSuggestions defaults ids and priorities on a parsed suggestion
// list.
func normalizeSuggestions(raw []Suggestion) []Suggestion {
	out := make([]Suggestion, 0, len(raw))
	for i, s := range raw {
		if s.ID == "" {
			s.ID = fmt.Sprintf("suggestion-%d", i+1)
		}
		switch s.Priority {
		case "high", "medium", "low":
		default:
			s.Priority = "medium"
		}
		out = append(out, s)
	}
	return out
}
