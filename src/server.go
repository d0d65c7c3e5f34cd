package src

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/vibestudio/vibe-studio/src/gateway"
)

// Server exposes the plan engine over the HTTP surface the studio's client
// talks to. It owns one session; all state a handler touches hangs off it,
// no process-wide singletons.
type Server struct {
	engine *PlanEngine
	orch   *Orchestrator
	gen    gateway.Generator
	sess   *Session
	store  *SnapshotStore // may be nil
	log    *slog.Logger
}

func NewServer(gen gateway.Generator, sess *Session, store *SnapshotStore, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		engine: NewPlanEngine(gen),
		orch:   NewOrchestrator(gen),
		gen:    gen,
		sess:   sess,
		store:  store,
		log:    logger,
	}
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/upload", s.handleUpload)
	mux.HandleFunc("GET /api/files", s.handleFiles)
	mux.HandleFunc("POST /api/select", s.handleSelect)
	mux.HandleFunc("POST /api/clear", s.handleClear)
	mux.HandleFunc("POST /api/plan", s.handlePlan)
	mux.HandleFunc("GET /api/plan", s.handleGetPlan)
	mux.HandleFunc("POST /api/suggestions", s.handleSuggestions)
	mux.HandleFunc("POST /api/apply", s.handleApply)
	mux.HandleFunc("POST /api/review", s.handleReview)
	mux.HandleFunc("POST /api/review-code", s.handleReviewCode)
	mux.HandleFunc("POST /api/generate", s.handleGenerate)
	mux.HandleFunc("POST /api/generate-code", s.handleGenerateCode)
	mux.HandleFunc("GET /api/export", s.handleExport)
	mux.HandleFunc("GET /api/chat", s.handleChat)
	return s.logged(mux)
}

func (s *Server) logged(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Info("request", "method", r.Method, "path", r.URL.Path, "elapsed", time.Since(start))
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string, err error) {
	details := ""
	if err != nil {
		details = err.Error()
	}
	writeJSON(w, status, map[string]string{"error": msg, "details": details})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return false
	}
	return true
}

// snapshot persists corpus+chat after a mutating handler. Failures are
// logged, not surfaced: persistence is a convenience, not a guarantee.
func (s *Server) snapshot() {
	if s.store == nil {
		return
	}
	if err := s.store.Save(s.sess); err != nil {
		s.log.Warn("snapshot save failed", "err", err)
	}
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Files []UploadedFile `json:"files"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	s.sess.Corpus.Upload(body.Files)
	// A fresh corpus invalidates whatever plan was built on the old one.
	s.sess.ClearPlan()
	s.snapshot()
	writeJSON(w, http.StatusOK, map[string]int{"count": s.sess.Corpus.Len()})
}

type fileView struct {
	UploadedFile
	Pending bool `json:"pending"`
	Applied bool `json:"applied"`
}

func (s *Server) handleFiles(w http.ResponseWriter, r *http.Request) {
	pending := make(map[string]bool)
	for _, p := range s.sess.Corpus.pendingPaths() {
		pending[p] = true
	}
	files := []fileView{}
	for _, f := range s.sess.Corpus.Snapshot() {
		files = append(files, fileView{
			UploadedFile: f,
			Pending:      pending[f.Path],
			Applied:      s.sess.IsFileApplied(f.Path),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"files":    files,
		"selected": s.sess.Corpus.Selected(),
	})
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Path string `json:"path"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	s.sess.Corpus.Select(body.Path)
	writeJSON(w, http.StatusOK, map[string]string{"selected": body.Path})
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	s.sess.ClearFiles()
	s.snapshot()
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Prompt string         `json:"prompt"`
		Files  []UploadedFile `json:"files"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if len(body.Files) > 0 {
		s.sess.Corpus.Upload(body.Files)
	}

	s.sess.Chat.Append("user", body.Prompt, "text")

	plan, err := s.engine.GeneratePlan(r.Context(), body.Prompt, s.sess.Corpus.Snapshot())
	if err != nil {
		// The previous plan, if any, stays in place.
		s.sess.Chat.Append("ai", "Failed to generate modifications. Please try again.", "error")
		s.snapshot()
		writeError(w, http.StatusInternalServerError, "Failed to generate plan", err)
		return
	}

	s.sess.SetPlan(plan)
	s.sess.Chat.Append("ai",
		fmt.Sprintf("%s: %d file(s) to change", plan.Title, len(plan.ProposedChanges)),
		"plan")
	s.snapshot()
	writeJSON(w, http.StatusOK, map[string]any{"plan": plan})
}

type changeView struct {
	ProposedChange
	State string `json:"state"`
	Diff  string `json:"diff,omitempty"`
}

func (s *Server) handleGetPlan(w http.ResponseWriter, r *http.Request) {
	plan := s.sess.Plan()
	if plan == nil {
		writeError(w, http.StatusNotFound, "no current plan", nil)
		return
	}
	changes := make([]changeView, 0, len(plan.ProposedChanges))
	for _, ch := range plan.ProposedChanges {
		changes = append(changes, changeView{
			ProposedChange: ch,
			State:          s.sess.ChangeState(ch.Key).String(),
			Diff:           UnifiedDiff(ch.FilePath, ch.OriginalContent, ch.ProposedContent),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"plan":         plan,
		"changes":      changes,
		"appliedFiles": s.sess.AppliedFiles(),
	})
}

func (s *Server) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Prompt string         `json:"prompt"`
		Files  []UploadedFile `json:"files"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if len(body.Files) > 0 {
		s.sess.Corpus.Upload(body.Files)
	}
	suggestions, err := s.engine.SuggestImprovements(r.Context(), body.Prompt, s.sess.Corpus.Snapshot())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to generate suggestions", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"suggestions": suggestions})
}

func (s *Server) handleApply(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Key     string  `json:"key"`
		Content *string `json:"content"`
	}
	if !decodeBody(w, r, &body) {
		return
	}

	review, err := s.orch.Apply(r.Context(), s.sess, body.Key, body.Content)
	switch {
	case errors.Is(err, ErrNoPlan), errors.Is(err, ErrUnknownChange):
		writeError(w, http.StatusNotFound, "change not found", err)
		return
	case errors.Is(err, ErrAlreadyApplied), errors.Is(err, ErrReviewInFlight), errors.Is(err, ErrPlanReplaced):
		writeError(w, http.StatusConflict, "apply rejected", err)
		return
	case err != nil:
		s.sess.Chat.Append("ai", "Failed to analyze code. Please try again.", "error")
		writeError(w, http.StatusInternalServerError, "Failed to apply change", err)
		return
	}

	s.snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"review":       review,
		"state":        StateApplied.String(),
		"appliedFiles": s.sess.AppliedFiles(),
	})
}

// handleReview is the lightweight sibling of review-code: free-form feedback
// on a snippet, no structured judgement.
func (s *Server) handleReview(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Code string `json:"code"`
	}
	if !decodeBody(w, r, &body) {
		return
	}

	prompt := "Review the following TypeScript code and suggest improvements:\n\n" + body.Code
	feedback, err := s.gen.Generate(r.Context(), gateway.RoleReview, "", prompt)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to review code", err)
		return
	}
	if feedback == "" {
		feedback = "No feedback returned."
	}
	writeJSON(w, http.StatusOK, map[string]string{"feedback": feedback})
}

func (s *Server) handleReviewCode(w http.ResponseWriter, r *http.Request) {
	var body struct {
		AppliedCode   []string `json:"appliedCode"`
		OriginalFiles map[string]struct {
			Content string `json:"content"`
		} `json:"originalFiles"`
	}
	if !decodeBody(w, r, &body) {
		return
	}

	originals := make(map[string]string, len(body.OriginalFiles))
	for p, f := range body.OriginalFiles {
		originals[p] = f.Content
	}

	raw, err := s.gen.Generate(r.Context(), gateway.RoleReview, "", buildReviewPrompt(body.AppliedCode, originals))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to review code", err)
		return
	}

	review := parseReview(raw)
	writeJSON(w, http.StatusOK, map[string]any{
		"status":          "approved",
		"score":           review.Score,
		"feedback":        review.Feedback,
		"readyToDownload": review.ReadyToDownload,
	})
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		UserID   string `json:"userId"`
		Filename string `json:"filename"`
		Prompt   string `json:"prompt"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if body.Filename == "" {
		writeError(w, http.StatusBadRequest, "filename is required", nil)
		return
	}

	user := fmt.Sprintf("Task: %s\n\nTarget file: %s\nCurrent content:\n%s\n\nReturn ONLY the complete updated file, inside a single markdown code block.",
		body.Prompt, body.Filename, s.sess.Corpus.EffectiveContent(body.Filename))

	raw, err := s.gen.Generate(r.Context(), gateway.RoleCode, "", user)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to generate code", err)
		return
	}
	code := stripCodeFence(raw)

	// Document persistence is an external collaborator; the generated
	// content is staged as a pending edit only.
	s.sess.Corpus.StageEdit(body.Filename, code)
	s.snapshot()
	writeJSON(w, http.StatusOK, map[string]string{"code": code})
}

func (s *Server) handleGenerateCode(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Suggestion Suggestion     `json:"suggestion"`
		Prompt     string         `json:"prompt"`
		Files      []UploadedFile `json:"files"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if len(body.Files) > 0 {
		s.sess.Corpus.Upload(body.Files)
	}
	code, err := s.engine.GenerateCode(r.Context(), body.Suggestion, body.Prompt, s.sess.Corpus.Snapshot())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to generate code", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"code": code})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="modified-project.zip"`)
	if err := BuildArchive(w, s.sess); err != nil {
		s.log.Error("export failed", "err", err)
	}
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"messages": s.sess.Chat.Messages()})
}
