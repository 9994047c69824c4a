package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"fasoagent.bf/assistant/internal/core"
	"fasoagent.bf/assistant/internal/store"
)

// newTestServer wires the real components with no API key: the Gemini
// adapter then answers every path with its degraded-mode responses, which is
// exactly what we want for handler tests.
func newTestServer(t *testing.T) http.Handler {
	t.Helper()

	kv, err := store.NewSQLiteKV(":memory:")
	if err != nil {
		t.Fatalf("failed to open in-memory database: %v", err)
	}
	t.Cleanup(func() { kv.Close() })

	logger := zap.NewNop()
	st := store.NewConversationStore(kv, logger)
	ai := core.NewGeminiClient("", logger)
	orch := core.NewOrchestrator(ai, st, logger)

	return NewRouter(NewAPIHandler(orch, ai, st, logger))
}

func doJSON(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	rec := doJSON(t, newTestServer(t), http.MethodGet, "/api/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestSendMessageRunsDegradedTurn(t *testing.T) {
	h := newTestServer(t)

	rec := doJSON(t, h, http.MethodPost, "/api/messages", `{"text":"Bonjour le Faso"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var snapshot core.Snapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &snapshot); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if len(snapshot.Messages) != 2 {
		t.Fatalf("expected user+model messages, got %d", len(snapshot.Messages))
	}
	model := snapshot.Messages[1]
	if model.Role != store.RoleModel || model.IsError {
		t.Errorf("degraded mode must answer with a normal model message: %+v", model)
	}
	if !strings.Contains(model.Text, "Mode Local") {
		t.Errorf("expected the canned degraded reply, got %q", model.Text)
	}

	// The turn is persisted and listed.
	rec = doJSON(t, h, http.MethodGet, "/api/conversations", "")
	var summaries []ConversationSummary
	if err := json.Unmarshal(rec.Body.Bytes(), &summaries); err != nil {
		t.Fatalf("bad list body: %v", err)
	}
	if len(summaries) != 1 || summaries[0].MessageCount != 2 {
		t.Errorf("unexpected summaries: %+v", summaries)
	}
	if summaries[0].Title != "Bonjour le Faso" {
		t.Errorf("title = %q", summaries[0].Title)
	}
}

func TestSendMessageValidation(t *testing.T) {
	h := newTestServer(t)

	if rec := doJSON(t, h, http.MethodPost, "/api/messages", `{"text":"   "}`); rec.Code != http.StatusBadRequest {
		t.Errorf("blank text: status = %d", rec.Code)
	}
	if rec := doJSON(t, h, http.MethodPost, "/api/messages", `{broken`); rec.Code != http.StatusBadRequest {
		t.Errorf("malformed body: status = %d", rec.Code)
	}
}

func TestConversationLifecycleOverHTTP(t *testing.T) {
	h := newTestServer(t)

	rec := doJSON(t, h, http.MethodPost, "/api/messages", `{"text":"Histoire du FESPACO"}`)
	var snapshot core.Snapshot
	json.Unmarshal(rec.Body.Bytes(), &snapshot)
	if snapshot.ConversationID == "" {
		t.Fatal("no conversation id in snapshot")
	}

	rec = doJSON(t, h, http.MethodGet, "/api/conversations/"+snapshot.ConversationID, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get conversation: status = %d", rec.Code)
	}

	rec = doJSON(t, h, http.MethodDelete, "/api/conversations/"+snapshot.ConversationID, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("delete: status = %d", rec.Code)
	}

	rec = doJSON(t, h, http.MethodGet, "/api/conversations/"+snapshot.ConversationID, "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("deleted conversation still served: status = %d", rec.Code)
	}

	// Deleting the active conversation resets to a fresh session.
	rec = doJSON(t, h, http.MethodGet, "/api/state", "")
	json.Unmarshal(rec.Body.Bytes(), &snapshot)
	if snapshot.ConversationID != "" || len(snapshot.Messages) != 1 {
		t.Errorf("state not reset after delete: %+v", snapshot)
	}
}

func TestClearRequiresConfirmFlag(t *testing.T) {
	h := newTestServer(t)
	doJSON(t, h, http.MethodPost, "/api/messages", `{"text":"à effacer"}`)

	if rec := doJSON(t, h, http.MethodDelete, "/api/conversations", `{"confirm":false}`); rec.Code != http.StatusBadRequest {
		t.Errorf("unconfirmed clear: status = %d", rec.Code)
	}

	rec := doJSON(t, h, http.MethodDelete, "/api/conversations", `{"confirm":true}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("confirmed clear: status = %d", rec.Code)
	}

	rec = doJSON(t, h, http.MethodGet, "/api/conversations", "")
	var summaries []ConversationSummary
	json.Unmarshal(rec.Body.Bytes(), &summaries)
	if len(summaries) != 0 {
		t.Errorf("history not cleared: %+v", summaries)
	}
}

func TestHeadlinesFallBackWithoutBackend(t *testing.T) {
	h := newTestServer(t)

	rec := doJSON(t, h, http.MethodGet, "/api/headlines", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var body map[string][]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("bad body: %v", err)
	}
	if len(body["headlines"]) == 0 {
		t.Error("ticker must never be empty once a load has been attempted")
	}
}

func TestBestScoreRoundTrip(t *testing.T) {
	h := newTestServer(t)

	rec := doJSON(t, h, http.MethodPut, "/api/quiz/best-score", `{"score":12}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("put score: status = %d", rec.Code)
	}

	// A lower score is acknowledged but not recorded.
	doJSON(t, h, http.MethodPut, "/api/quiz/best-score", `{"score":5}`)

	rec = doJSON(t, h, http.MethodGet, "/api/quiz/best-score", "")
	var body map[string]int
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("bad body: %v", err)
	}
	if body["bestScore"] != 12 {
		t.Errorf("bestScore = %d, want 12", body["bestScore"])
	}
}
