package handler

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	apperrors "concierge/internal/errors"
	"concierge/internal/logger"
	"concierge/internal/model"
	"concierge/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeChat struct {
	resp     *model.ChatResponse
	err      error
	events   []string
	requests []*model.ChatRequest
}

func (f *fakeChat) Chat(_ context.Context, req *model.ChatRequest) (*model.ChatResponse, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

func (f *fakeChat) ChatStream(_ context.Context, req *model.ChatRequest, callback service.ChatEventCallback) (*model.ChatResponse, error) {
	f.requests = append(f.requests, req)
	for _, e := range f.events {
		var data any = map[string]string{"event": e}
		if e == service.EventAnswer {
			data = f.resp
		}
		if err := callback(e, data); err != nil {
			return nil, err
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

type fakeIndexer struct {
	reindex      *model.ReindexReport
	reindexErr   error
	provision    *model.ProvisionReport
	provisionErr error
}

func (f *fakeIndexer) Reindex(context.Context) (*model.ReindexReport, error) {
	return f.reindex, f.reindexErr
}

func (f *fakeIndexer) ProvisionIndex(context.Context) (*model.ProvisionReport, error) {
	return f.provision, f.provisionErr
}

type fakeSearcher struct {
	resp *model.SemanticSearchResponse
	err  error
	got  *model.SemanticSearchRequest
}

func (f *fakeSearcher) SemanticSearch(_ context.Context, req *model.SemanticSearchRequest) (*model.SemanticSearchResponse, error) {
	f.got = req
	return f.resp, f.err
}

func newRouter(t *testing.T) *gin.Engine {
	log := logger.NewTestLogger(t)
	r := gin.New()
	r.Use(RequestID(), Recovery(log))
	return r
}

func do(r http.Handler, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func chatRouter(t *testing.T, chat ChatResponder) *gin.Engine {
	r := newRouter(t)
	h := NewChatHandler(chat, 20, logger.NewTestLogger(t))
	r.POST("/chat", h.Chat)
	r.POST("/chat/stream", h.ChatStream)
	return r
}

func TestChat_OK(t *testing.T) {
	chat := &fakeChat{resp: &model.ChatResponse{Message: "hi there", Model: "gpt-4o-mini", Timestamp: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}}
	r := chatRouter(t, chat)

	w := do(r, http.MethodPost, "/chat", `{"message":"  hello  ","conversationHistory":[{"role":"user","content":"a"},{"role":"assistant","content":"b"}]}`,
		RequestIDHeader, "req-123")
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	assert.Equal(t, "hi there", body["message"])
	assert.Equal(t, "gpt-4o-mini", body["model"])
	assert.Equal(t, "2026-01-02T03:04:05Z", body["timestamp"])
	assert.Equal(t, "req-123", body["requestId"])
	assert.NotContains(t, body, "note")
	assert.Equal(t, "req-123", w.Header().Get(RequestIDHeader))

	require.Len(t, chat.requests, 1)
	assert.Equal(t, "hello", chat.requests[0].Message)
	assert.Len(t, chat.requests[0].History, 2)
}

func TestChat_FallbackIsOK(t *testing.T) {
	chat := &fakeChat{resp: &model.ChatResponse{Message: "Here are some projects", Model: model.FallbackModel, Note: "offline"}}
	w := do(chatRouter(t, chat), http.MethodPost, "/chat", `{"message":"marina"}`)

	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "fallback", body["model"])
	assert.Equal(t, "offline", body["note"])
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
}

func TestChat_Validation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"message":`},
		{"missing message", `{}`},
		{"whitespace message", `{"message":"   "}`},
		{"too long", `{"message":"` + strings.Repeat("x", 21) + `"}`},
		{"bad history role", `{"message":"hi","conversationHistory":[{"role":"system","content":"x"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chat := &fakeChat{}
			w := do(chatRouter(t, chat), http.MethodPost, "/chat", tt.body)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			body := decode(t, w)
			assert.Equal(t, "validation_error", body["error"])
			assert.NotEmpty(t, body["message"])
			assert.Empty(t, chat.requests)
		})
	}
}

func TestChat_InternalError(t *testing.T) {
	chat := &fakeChat{err: apperrors.Internal(errors.New("pq: relation does not exist"))}
	w := do(chatRouter(t, chat), http.MethodPost, "/chat", `{"message":"marina"}`)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	body := decode(t, w)
	assert.Equal(t, "internal_error", body["error"])
	assert.Equal(t, true, body["fallback"])
	assert.NotContains(t, w.Body.String(), "pq:")
}

func TestRecovery(t *testing.T) {
	r := newRouter(t)
	r.GET("/panic", func(*gin.Context) { panic("nil map") })

	w := do(r, http.MethodGet, "/panic", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	body := decode(t, w)
	assert.Equal(t, "internal_error", body["error"])
	assert.Equal(t, true, body["fallback"])
	assert.NotContains(t, w.Body.String(), "nil map")
}

type sseEvent struct {
	name string
	data string
}

func readSSE(t *testing.T, body string) []sseEvent {
	t.Helper()
	var events []sseEvent
	var cur sseEvent
	sc := bufio.NewScanner(strings.NewReader(body))
	for sc.Scan() {
		line := sc.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			cur.name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			cur.data = strings.TrimPrefix(line, "data: ")
		case line == "":
			if cur.name != "" {
				events = append(events, cur)
			}
			cur = sseEvent{}
		}
	}
	return events
}

func TestChatStream(t *testing.T) {
	chat := &fakeChat{
		events: []string{service.EventIntent, service.EventCandidates, service.EventAnswer},
		resp:   &model.ChatResponse{Message: "answer", Model: "m"},
	}
	w := do(chatRouter(t, chat), http.MethodPost, "/chat/stream", `{"message":"marina"}`, RequestIDHeader, "abc")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream; charset=utf-8", w.Header().Get("Content-Type"))

	events := readSSE(t, w.Body.String())
	var names []string
	for _, e := range events {
		names = append(names, e.name)
	}
	assert.Equal(t, []string{"start", "intent", "candidates", "answer", "done"}, names)
	assert.JSONEq(t, `{"requestId":"abc"}`, events[0].data)
	assert.Contains(t, events[3].data, `"requestId":"abc"`)
}

func TestChatStream_Error(t *testing.T) {
	chat := &fakeChat{events: []string{service.EventIntent}, err: apperrors.Internal(errors.New("boom"))}
	w := do(chatRouter(t, chat), http.MethodPost, "/chat/stream", `{"message":"marina"}`)

	events := readSSE(t, w.Body.String())
	require.Len(t, events, 3)
	assert.Equal(t, "error", events[2].name)
	assert.Contains(t, events[2].data, "internal_error")
	assert.NotContains(t, events[2].data, "boom")
}

func adminRouter(t *testing.T, idx CatalogIndexer, token string) *gin.Engine {
	r := newRouter(t)
	h := NewAdminHandler(idx, logger.NewTestLogger(t))
	admin := r.Group("/admin", RequireAdminToken(token))
	admin.POST("/reindex", h.Reindex)
	admin.POST("/vector-index", h.ProvisionIndex)
	return r
}

func TestAdmin_Reindex(t *testing.T) {
	idx := &fakeIndexer{reindex: &model.ReindexReport{
		Projects: model.BatchResult{Succeeded: []string{"1", "2"}, Failed: []model.FailedItem{{ID: "3", Reason: "timeout"}}},
		Areas:    model.BatchResult{Succeeded: []string{"a"}},
		Steps:    []string{"Found 3 projects without embeddings"},
	}}
	w := do(adminRouter(t, idx, ""), http.MethodPost, "/admin/reindex", "")

	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, float64(2), body["embedded"])
	assert.Equal(t, float64(1), body["areasEmbedded"])
	assert.Equal(t, []any{"Found 3 projects without embeddings"}, body["steps"])
	assert.Len(t, body["failed"], 1)
	assert.Equal(t, []any{}, body["areasFailed"])
}

func TestAdmin_ReindexErrors(t *testing.T) {
	conflict := do(adminRouter(t, &fakeIndexer{reindexErr: apperrors.Conflict("reindex already running")}, ""), http.MethodPost, "/admin/reindex", "")
	assert.Equal(t, http.StatusConflict, conflict.Code)
	assert.Equal(t, map[string]any{"success": false, "error": "reindex already running"}, decode(t, conflict))

	failed := do(adminRouter(t, &fakeIndexer{reindexErr: apperrors.Retrieval(errors.New("dial tcp"))}, ""), http.MethodPost, "/admin/reindex", "")
	assert.Equal(t, http.StatusServiceUnavailable, failed.Code)
	assert.Equal(t, false, decode(t, failed)["success"])
}

func TestAdmin_Token(t *testing.T) {
	idx := &fakeIndexer{reindex: &model.ReindexReport{}}
	r := adminRouter(t, idx, "s3cret")

	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodPost, "/admin/reindex", "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodPost, "/admin/reindex", "", AdminTokenHeader, "wrong").Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodPost, "/admin/reindex", "", AdminTokenHeader, "s3cret").Code)
}

func TestAdmin_ProvisionIndex(t *testing.T) {
	idx := &fakeIndexer{provision: &model.ProvisionReport{
		Steps:        []string{"CREATE EXTENSION IF NOT EXISTS vector", "verification complete"},
		Verification: model.IndexVerification{Extension: true, ProjectsColumn: true, AreasColumn: false},
	}}
	w := do(adminRouter(t, idx, ""), http.MethodPost, "/admin/vector-index", "")

	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, map[string]any{"extension": true, "projectsColumn": true, "areasColumn": false}, body["verification"])
	assert.Len(t, body["steps"], 2)
}

func TestSemanticSearch(t *testing.T) {
	sim := 0.91
	searcher := &fakeSearcher{resp: &model.SemanticSearchResponse{
		Results: []model.RankedListing{{Project: model.Project{ID: "1", Name: "Sea View"}, Similarity: &sim}},
		Total:   1,
	}}
	r := newRouter(t)
	r.POST("/search/semantic", NewSearchHandler(searcher, 50, logger.NewTestLogger(t)).SemanticSearch)

	w := do(r, http.MethodPost, "/search/semantic", `{"query":"sea view","limit":500,"bedrooms":"2"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 50, searcher.got.Limit)
	assert.Equal(t, "2", searcher.got.Bedrooms)

	body := decode(t, w)
	assert.Equal(t, float64(1), body["total"])
	results := body["results"].([]any)
	require.Len(t, results, 1)
	assert.Equal(t, 0.91, results[0].(map[string]any)["similarity"])

	bad := do(r, http.MethodPost, "/search/semantic", `{"limit":3}`)
	assert.Equal(t, http.StatusBadRequest, bad.Code)

	searcher.err = apperrors.New(apperrors.CodeRetrieval, "semantic search is not enabled")
	off := do(r, http.MethodPost, "/search/semantic", `{"query":"x"}`)
	assert.Equal(t, http.StatusServiceUnavailable, off.Code)
	assert.Equal(t, "retrieval_error", decode(t, off)["error"])
}
