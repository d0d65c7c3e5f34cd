package src

import (
	"errors"
	"sync"

	"github.com/google/uuid"
)

// ChangeState is the lifecycle of one proposed change within the current
// plan. There is no transition out of StateApplied.
type ChangeState int

const (
	StatePending ChangeState = iota
	StateReviewing
	StateApplied
)

func (s ChangeState) String() string {
	switch s {
	case StateReviewing:
		return "reviewing"
	case StateApplied:
		return "applied"
	default:
		return "pending"
	}
}

var (
	ErrNoPlan         = errors.New("no current plan")
	ErrUnknownChange  = errors.New("change not found in current plan")
	ErrAlreadyApplied = errors.New("change already applied")
	ErrReviewInFlight = errors.New("change is already being reviewed")
	ErrPlanReplaced   = errors.New("plan was replaced while the apply was in flight")
)

// Session owns all per-user working state: the corpus, the transcript, the
// current plan, and per-change bookkeeping. One logical session, one active
// plan at a time. Plan state is intentionally not persisted; only corpus and
// chat survive a restart.
type Session struct {
	ID     string
	Corpus *FileCorpus
	Chat   *ChatLog

	mu      sync.Mutex
	plan    *ModificationPlan
	epoch   uint64
	applied map[string]bool        // by file path
	states  map[string]ChangeState // by change key
	reviews map[string]ReviewResult
	edited  map[string]string // user-edited proposed content, by change key
}

func NewSession() *Session {
	s := &Session{
		ID:     uuid.NewString(),
		Corpus: NewFileCorpus(),
		Chat:   NewChatLog(),
	}
	s.resetPlanState()
	return s
}

func (s *Session) resetPlanState() {
	s.applied = make(map[string]bool)
	s.states = make(map[string]ChangeState)
	s.reviews = make(map[string]ReviewResult)
	s.edited = make(map[string]string)
}

// SetPlan installs a freshly generated plan. All changes start pending;
// applied state, reviews, and user edits of the prior plan are discarded and
// in-flight applies against it become orphans.
func (s *Session) SetPlan(plan ModificationPlan) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.plan = &plan
	s.epoch++
	s.resetPlanState()
	for _, ch := range plan.ProposedChanges {
		s.states[ch.Key] = StatePending
	}
}

// ClearPlan drops the current plan and all its bookkeeping.
func (s *Session) ClearPlan() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.plan = nil
	s.epoch++
	s.resetPlanState()
}

// ClearFiles empties the corpus. The plan operated on those files, so it is
// discarded too.
func (s *Session) ClearFiles() {
	s.Corpus.Clear()
	s.ClearPlan()
}

// Plan returns the current plan, or nil.
func (s *Session) Plan() *ModificationPlan {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.plan == nil {
		return nil
	}
	p := *s.plan
	return &p
}

// AppliedFiles returns the applied file paths in no particular order.
func (s *Session) AppliedFiles() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.applied))
	for p := range s.applied {
		out = append(out, p)
	}
	return out
}

func (s *Session) IsFileApplied(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.applied[path]
}

// ChangeState reports the lifecycle state for a change key.
func (s *Session) ChangeState(key string) ChangeState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.states[key]
}

// Review returns the stored review for a change key, if one exists.
func (s *Session) Review(key string) (ReviewResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reviews[key]
	return r, ok
}

// StageUserEdit records user-edited proposed content for a change. The plan
// itself stays immutable; the edit is resolved at apply time.
func (s *Session) StageUserEdit(key, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.plan == nil {
		return ErrNoPlan
	}
	if _, ok := s.plan.ChangeByKey(key); !ok {
		return ErrUnknownChange
	}
	s.edited[key] = content
	return nil
}

// beginApply validates the change, resolves the content to apply, and flips
// the change into the reviewing state, acting as the per-change exclusion
// latch. It returns the epoch the apply belongs to so a completion after
// plan replacement can be discarded.
func (s *Session) beginApply(key string, edited *string) (ProposedChange, string, uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.plan == nil {
		return ProposedChange{}, "", 0, ErrNoPlan
	}
	ch, ok := s.plan.ChangeByKey(key)
	if !ok {
		return ProposedChange{}, "", 0, ErrUnknownChange
	}
	switch s.states[key] {
	case StateApplied:
		return ProposedChange{}, "", 0, ErrAlreadyApplied
	case StateReviewing:
		return ProposedChange{}, "", 0, ErrReviewInFlight
	}

	content := ch.ProposedContent
	if edited != nil {
		content = *edited
	} else if e, ok := s.edited[key]; ok {
		content = e
	}

	s.states[key] = StateReviewing
	return ch, content, s.epoch, nil
}

// failApply returns a reviewing change to pending. A stale epoch means the
// plan was replaced mid-flight; there is nothing left to reset.
func (s *Session) failApply(key string, epoch uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if epoch != s.epoch {
		return
	}
	if s.states[key] == StateReviewing {
		s.states[key] = StatePending
	}
}

// commitApply marks the change applied and stores its review. Returns
// ErrPlanReplaced when the plan changed underneath the apply; the caller
// must then discard the result and leave the corpus untouched.
func (s *Session) commitApply(key, path string, epoch uint64, review ReviewResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if epoch != s.epoch {
		return ErrPlanReplaced
	}
	s.states[key] = StateApplied
	s.applied[path] = true
	s.reviews[key] = review
	return nil
}
