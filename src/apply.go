package src

import (
	"context"

	"github.com/vibestudio/vibe-studio/src/gateway"
)

// Orchestrator runs the apply/review flow for single proposed changes.
// Review is advisory: its outcome is surfaced to the user but never blocks
// the commit. The only true failure is the gateway call itself.
type Orchestrator struct {
	gen gateway.Generator
}

func NewOrchestrator(gen gateway.Generator) *Orchestrator {
	return &Orchestrator{gen: gen}
}

// Apply reviews and commits one change identified by its key. If edited is
// non-nil it overrides the proposed content (and any previously staged user
// edit). Concurrent applies to different changes proceed independently; a
// second apply on the same change is rejected while the first is in flight.
func (o *Orchestrator) Apply(ctx context.Context, sess *Session, key string, edited *string) (ReviewResult, error) {
	ch, content, epoch, err := sess.beginApply(key, edited)
	if err != nil {
		return ReviewResult{}, err
	}

	prompt := buildReviewPrompt(
		[]string{content},
		map[string]string{ch.FilePath: ch.OriginalContent},
	)

	raw, err := o.gen.Generate(ctx, gateway.RoleReview, "", prompt)
	if err != nil {
		sess.failApply(key, epoch)
		return ReviewResult{}, err
	}

	review := parseReview(raw)

	if err := sess.commitApply(key, ch.FilePath, epoch, review); err != nil {
		// Orphaned apply: the plan was replaced while the review ran.
		return ReviewResult{}, err
	}
	sess.Corpus.StageEdit(ch.FilePath, content)
	sess.Corpus.CommitEdit(ch.FilePath)
	return review, nil
}

// parseReview extracts the structured judgement, falling back to a neutral
// default that carries the raw text as feedback. Reviews never fail an
// apply.
func parseReview(raw string) ReviewResult {
	var review ReviewResult
	if err := UnmarshalShaped(raw, ShapeObject, &review); err != nil {
		return ReviewResult{Score: 7, Feedback: []string{raw}, ReadyToDownload: true}
	}
	if review.Feedback == nil {
		review.Feedback = []string{}
	}
	return review
}
