package src

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/vibestudio/vibe-studio/src/gateway"
)

// PlanErrorKind discriminates why plan generation failed.
type PlanErrorKind int

const (
	// PlanGenerationFailed covers gateway errors, including timeouts.
	PlanGenerationFailed PlanErrorKind = iota
	// PlanNoStructure means the response carried no JSON at all.
	PlanNoStructure
	// PlanMalformed means JSON was located but did not parse.
	PlanMalformed
)

// PlanError is the single discriminated failure surfaced by the plan engine.
// No partial plan is ever exposed alongside one.
type PlanError struct {
	Kind PlanErrorKind
	Err  error
}

func (e *PlanError) Error() string {
	switch e.Kind {
	case PlanNoStructure:
		return fmt.Sprintf("no valid JSON found in AI response: %v", e.Err)
	case PlanMalformed:
		return fmt.Sprintf("AI response contained malformed JSON: %v", e.Err)
	default:
		return fmt.Sprintf("generation failed: %v", e.Err)
	}
}

func (e *PlanError) Unwrap() error { return e.Err }

func planErrFromParse(err error) *PlanError {
	var pe *ParseError
	if errors.As(err, &pe) && pe.Kind == ParseMalformed {
		return &PlanError{Kind: PlanMalformed, Err: err}
	}
	return &PlanError{Kind: PlanNoStructure, Err: err}
}

// PlanEngine drives the planning and suggestion calls and normalizes their
// output. It is stateless: every call is purely a function of its inputs
// plus one outbound generation.
type PlanEngine struct {
	gen gateway.Generator
	now func() time.Time
}

func NewPlanEngine(gen gateway.Generator) *PlanEngine {
	return &PlanEngine{gen: gen, now: time.Now}
}

// GeneratePlan runs one planning call over the task and corpus snapshot and
// returns the normalized plan, or a PlanError. Atomic: replace-or-fail.
func (e *PlanEngine) GeneratePlan(ctx context.Context, task string, files []UploadedFile) (ModificationPlan, error) {
	user := fmt.Sprintf("Task: %s%s\n\nAnalyze the codebase and propose modifications to accomplish this task.",
		strings.TrimSpace(task), buildFilesContext(files))

	raw, err := e.gen.Generate(ctx, gateway.RolePlanning, PlanSystemPrompt, user)
	if err != nil {
		return ModificationPlan{}, &PlanError{Kind: PlanGenerationFailed, Err: err}
	}

	var parsed rawPlan
	if err := UnmarshalShaped(raw, ShapeObject, &parsed); err != nil {
		return ModificationPlan{}, planErrFromParse(err)
	}

	return normalizePlan(parsed, e.now()), nil
}

// SuggestImprovements is the sibling operation: same parsing discipline,
// array shape, descriptive suggestions only.
func (e *PlanEngine) SuggestImprovements(ctx context.Context, task string, files []UploadedFile) ([]Suggestion, error) {
	user := fmt.Sprintf("Task: %s%s\n\nAnalyze the codebase and suggest specific improvements to accomplish this task. Return suggestions only, no code implementation.",
		strings.TrimSpace(task), buildFilesContext(files))

	raw, err := e.gen.Generate(ctx, gateway.RolePlanning, SuggestionsSystemPrompt, user)
	if err != nil {
		return nil, &PlanError{Kind: PlanGenerationFailed, Err: err}
	}

	var parsed []Suggestion
	if err := UnmarshalShaped(raw, ShapeArray, &parsed); err != nil {
		return nil, planErrFromParse(err)
	}

	return normalizeSuggestions(parsed), nil
}

var fenceRe = regexp.MustCompile("(?s)```[a-zA-Z0-9_+\\.-]*\\s*\\n(.*?)\\n```")

// GenerateCode implements one suggestion through the code role and returns
// the bare code, unwrapped from any markdown fence.
func (e *PlanEngine) GenerateCode(ctx context.Context, suggestion Suggestion, task string, files []UploadedFile) (string, error) {
	raw, err := e.gen.Generate(ctx, gateway.RoleCode, "", buildCodePrompt(suggestion, task, files))
	if err != nil {
		return "", &PlanError{Kind: PlanGenerationFailed, Err: err}
	}
	return stripCodeFence(raw), nil
}

// stripCodeFence returns the first fenced block's body, or the trimmed text
// when no fence is present.
func stripCodeFence(s string) string {
	if m := fenceRe.FindStringSubmatch(s); len(m) > 1 {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(s)
}
