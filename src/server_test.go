package src

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/vibestudio/vibe-studio/src/gateway"
)

func newTestServer(t *testing.T, gen gateway.Generator) (*Server, *httptest.Server) {
	t.Helper()
	srv := NewServer(gen, NewSession(), nil, nil)
	ts := httptest.NewServer(srv.Routes())
	t.Cleanup(ts.Close)
	return srv, ts
}

func postJSON(t *testing.T, url string, body any) (*http.Response, map[string]any) {
	t.Helper()
	b, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(b))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	defer resp.Body.Close()
	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp, out
}

func getJSON(t *testing.T, url string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp, out
}

func TestServerPlanFlow(t *testing.T) {
	gen := &scriptedGen{responses: map[gateway.Role]string{
		gateway.RolePlanning: planResponse,
		gateway.RoleReview:   `{"score": 9, "feedback": ["clean"], "readyToDownload": true}`,
	}}
	srv, ts := newTestServer(t, gen)

	resp, out := postJSON(t, ts.URL+"/api/plan", map[string]any{
		"prompt": "add validation",
		"files":  []UploadedFile{{Path: "src/app.ts", Content: "old code"}},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("plan status %d: %v", resp.StatusCode, out)
	}
	plan, ok := out["plan"].(map[string]any)
	if !ok {
		t.Fatalf("missing plan in response: %v", out)
	}
	if plan["title"] != "Add validation" {
		t.Fatalf("plan title %v", plan["title"])
	}

	resp, out = getJSON(t, ts.URL+"/api/plan")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get plan status %d", resp.StatusCode)
	}
	changes := out["changes"].([]any)
	if len(changes) != 1 {
		t.Fatalf("expected 1 change view, got %d", len(changes))
	}
	cv := changes[0].(map[string]any)
	if cv["state"] != "pending" {
		t.Fatalf("fresh change state %v", cv["state"])
	}
	if diff, _ := cv["diff"].(string); !strings.Contains(diff, "+new code") {
		t.Fatalf("diff not rendered: %q", diff)
	}

	key := cv["key"].(string)
	resp, out = postJSON(t, ts.URL+"/api/apply", map[string]any{"key": key})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("apply status %d: %v", resp.StatusCode, out)
	}
	review := out["review"].(map[string]any)
	if review["score"].(float64) != 9 {
		t.Fatalf("review %v", review)
	}
	applied := out["appliedFiles"].([]any)
	if len(applied) != 1 || applied[0] != "src/app.ts" {
		t.Fatalf("appliedFiles %v", applied)
	}
	if got := srv.sess.Corpus.EffectiveContent("src/app.ts"); got != "new code" {
		t.Fatalf("corpus not updated: %q", got)
	}

	msgs := srv.sess.Chat.Messages()
	planMsg := msgs[len(msgs)-1]
	if planMsg.Type != "plan" || planMsg.Content != "Add validation: 1 file(s) to change" {
		t.Fatalf("plan chat notice %#v", planMsg)
	}

	// Second apply on the same change is a conflict.
	resp, _ = postJSON(t, ts.URL+"/api/apply", map[string]any{"key": key})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("double apply status %d", resp.StatusCode)
	}
}

func TestServerPlanFailureKeepsPreviousPlan(t *testing.T) {
	gen := &scriptedGen{responses: map[gateway.Role]string{gateway.RolePlanning: planResponse}}
	srv, ts := newTestServer(t, gen)

	if resp, _ := postJSON(t, ts.URL+"/api/plan", map[string]any{
		"prompt": "first",
		"files":  []UploadedFile{{Path: "src/app.ts", Content: "old code"}},
	}); resp.StatusCode != http.StatusOK {
		t.Fatalf("seed plan failed: %d", resp.StatusCode)
	}
	firstID := srv.sess.Plan().ID

	gen.mu.Lock()
	gen.err = errors.New("provider down")
	gen.mu.Unlock()

	resp, out := postJSON(t, ts.URL+"/api/plan", map[string]any{"prompt": "second"})
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.StatusCode)
	}
	if out["error"] != "Failed to generate plan" {
		t.Fatalf("error body %v", out)
	}
	if srv.sess.Plan() == nil || srv.sess.Plan().ID != firstID {
		t.Fatalf("previous plan lost on failure")
	}

	msgs := srv.sess.Chat.Messages()
	last := msgs[len(msgs)-1]
	if last.Type != "error" {
		t.Fatalf("expected error chat message, got %#v", last)
	}
}

func TestServerApplyUnknownChange(t *testing.T) {
	_, ts := newTestServer(t, &scriptedGen{})
	resp, _ := postJSON(t, ts.URL+"/api/apply", map[string]any{"key": "missing"})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status %d", resp.StatusCode)
	}
}

func TestServerReviewFreeform(t *testing.T) {
	gen := &scriptedGen{responses: map[gateway.Role]string{
		gateway.RoleReview: "Consider extracting the loop body.",
	}}
	_, ts := newTestServer(t, gen)

	resp, out := postJSON(t, ts.URL+"/api/review", map[string]any{
		"code": "for (;;) { work() }",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d: %v", resp.StatusCode, out)
	}
	if out["feedback"] != "Consider extracting the loop body." {
		t.Fatalf("feedback %v", out["feedback"])
	}
}

func TestServerReviewEmptyFeedback(t *testing.T) {
	gen := &scriptedGen{responses: map[gateway.Role]string{gateway.RoleReview: ""}}
	_, ts := newTestServer(t, gen)

	resp, out := postJSON(t, ts.URL+"/api/review", map[string]any{"code": "x"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d: %v", resp.StatusCode, out)
	}
	if out["feedback"] != "No feedback returned." {
		t.Fatalf("feedback %v", out["feedback"])
	}
}

func TestServerReviewCodeFallback(t *testing.T) {
	gen := &scriptedGen{responses: map[gateway.Role]string{
		gateway.RoleReview: "Prose only, no JSON here.",
	}}
	_, ts := newTestServer(t, gen)

	resp, out := postJSON(t, ts.URL+"/api/review-code", map[string]any{
		"appliedCode":   []string{"new code"},
		"originalFiles": map[string]any{"a.ts": map[string]string{"content": "old"}},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d: %v", resp.StatusCode, out)
	}
	if out["status"] != "approved" || out["score"].(float64) != 7 {
		t.Fatalf("fallback review %v", out)
	}
	fb := out["feedback"].([]any)
	if len(fb) != 1 || fb[0] != "Prose only, no JSON here." {
		t.Fatalf("feedback %v", fb)
	}
}

func TestServerUploadInvalidatesPlan(t *testing.T) {
	gen := &scriptedGen{responses: map[gateway.Role]string{gateway.RolePlanning: planResponse}}
	srv, ts := newTestServer(t, gen)

	postJSON(t, ts.URL+"/api/plan", map[string]any{
		"prompt": "task",
		"files":  []UploadedFile{{Path: "src/app.ts", Content: "old code"}},
	})
	if srv.sess.Plan() == nil {
		t.Fatalf("plan not installed")
	}

	postJSON(t, ts.URL+"/api/upload", map[string]any{
		"files": []UploadedFile{{Path: "other.go", Content: "package other"}},
	})
	if srv.sess.Plan() != nil {
		t.Fatalf("plan survived a corpus replacement")
	}

	resp, _ := getJSON(t, ts.URL+"/api/plan")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 after upload, got %d", resp.StatusCode)
	}
}

func TestServerExport(t *testing.T) {
	gen := &scriptedGen{responses: map[gateway.Role]string{
		gateway.RolePlanning: planResponse,
		gateway.RoleReview:   `{"score": 8}`,
	}}
	srv, ts := newTestServer(t, gen)

	postJSON(t, ts.URL+"/api/plan", map[string]any{
		"prompt": "task",
		"files": []UploadedFile{
			{Path: "src/app.ts", Content: "old code"},
			{Path: "README.md", Content: "docs"},
		},
	})
	key := srv.sess.Plan().ProposedChanges[0].Key
	postJSON(t, ts.URL+"/api/apply", map[string]any{"key": key})

	resp, err := http.Get(ts.URL + "/api/export")
	if err != nil {
		t.Fatalf("GET export: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "application/zip" {
		t.Fatalf("content type %q", ct)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}

	entries := readArchive(t, data)
	if entries["src/app.ts"] != "new code" || entries["README.md"] != "docs" {
		t.Fatalf("archive entries %v", entries)
	}
}

func TestServerSuggestions(t *testing.T) {
	gen := &scriptedGen{responses: map[gateway.Role]string{
		gateway.RolePlanning: `[{"title":"Split the handler","impact":"readability","priority":"low"}]`,
	}}
	_, ts := newTestServer(t, gen)

	resp, out := postJSON(t, ts.URL+"/api/suggestions", map[string]any{"prompt": "clean up"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d: %v", resp.StatusCode, out)
	}
	sugs := out["suggestions"].([]any)
	if len(sugs) != 1 {
		t.Fatalf("suggestions %v", sugs)
	}
	first := sugs[0].(map[string]any)
	if first["id"] != "suggestion-1" || first["priority"] != "low" {
		t.Fatalf("suggestion %v", first)
	}
}
