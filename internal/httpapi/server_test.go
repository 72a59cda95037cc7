package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mukhil0212/Sentinel-RAG/internal/planner"
	"github.com/mukhil0212/Sentinel-RAG/internal/sandbox"
	"github.com/mukhil0212/Sentinel-RAG/internal/scan"
	"github.com/mukhil0212/Sentinel-RAG/internal/session"
	"github.com/mukhil0212/Sentinel-RAG/internal/store"
	"github.com/mukhil0212/Sentinel-RAG/internal/stream"
)

// quietScanner reports nothing; HTTP tests exercise transport, not scanning.
type quietScanner struct{}

func (quietScanner) Name() string { return "quiet" }

func (quietScanner) Scan(context.Context, scan.Request) scan.Outcome { return scan.Outcome{} }

func newTestServer(t *testing.T, pl planner.Planner) *Server {
	t.Helper()

	mgr, err := sandbox.NewManager(t.TempDir(), nil)
	require.NoError(t, err)

	pipeline, err := scan.NewPipeline([]scan.Scanner{quietScanner{}}, nil)
	require.NoError(t, err)

	if pl == nil {
		pl = planner.NewScripted()
	}
	svc, err := session.NewService(mgr, pipeline, pl, store.Noop{}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { svc.Close() })

	srv, err := NewServer(svc, nil, nil)
	require.NoError(t, err)
	return srv
}

func do(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd *strings.Reader
	if body == "" {
		rd = strings.NewReader("")
	} else {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func createSession(t *testing.T, srv *Server) SessionResponse {
	t.Helper()
	rec := do(t, srv, http.MethodPost, "/api/v1/sessions", "")
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp SessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.SessionID)
	return resp
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, nil)
	rec := do(t, srv, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ok"`)
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t, nil)
	rec := do(t, srv, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestSessionLifecycle(t *testing.T) {
	srv := newTestServer(t, nil)
	sess := createSession(t, srv)
	assert.Equal(t, "idle", sess.State)

	rec := do(t, srv, http.MethodDelete, "/api/v1/sessions/"+sess.SessionID, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, srv, http.MethodDelete, "/api/v1/sessions/"+sess.SessionID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFileCRUD(t *testing.T) {
	srv := newTestServer(t, nil)
	sess := createSession(t, srv)
	base := "/api/v1/sessions/" + sess.SessionID + "/files"

	rec := do(t, srv, http.MethodPut, base, `{"path":"modules/net/vpc.tf","content":"resource {}\n"}`)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, srv, http.MethodGet, base+"?path=modules/net/vpc.tf", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "resource {}\n", rec.Body.String())

	rec = do(t, srv, http.MethodGet, base+"/list?path=&max_depth=5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "vpc.tf")

	rec = do(t, srv, http.MethodDelete, base+"?path=modules/net/vpc.tf", "")
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, srv, http.MethodGet, base+"?path=modules/net/vpc.tf", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFileContainmentRejected(t *testing.T) {
	srv := newTestServer(t, nil)
	sess := createSession(t, srv)
	base := "/api/v1/sessions/" + sess.SessionID + "/files"

	rec := do(t, srv, http.MethodPut, base, `{"path":"../escape.txt","content":"x"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, srv, http.MethodGet, base+"?path=/etc/passwd", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, srv, http.MethodDelete, base+"?path=../../x", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestApprovalWithoutProposal(t *testing.T) {
	srv := newTestServer(t, nil)
	sess := createSession(t, srv)

	rec := do(t, srv, http.MethodPost, "/api/v1/sessions/"+sess.SessionID+"/approval", `{"approved":true}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestUnknownSessionIs404(t *testing.T) {
	srv := newTestServer(t, nil)

	for _, probe := range []struct{ method, path, body string }{
		{http.MethodDelete, "/api/v1/sessions/nope", ""},
		{http.MethodPost, "/api/v1/sessions/nope/messages", `{"message":"hi"}`},
		{http.MethodPost, "/api/v1/sessions/nope/approval", `{"approved":true}`},
		{http.MethodGet, "/api/v1/sessions/nope/files?path=a", ""},
	} {
		rec := do(t, srv, probe.method, probe.path, probe.body)
		assert.Equal(t, http.StatusNotFound, rec.Code, "%s %s", probe.method, probe.path)
	}
}

func TestSendMessageStreamsSSE(t *testing.T) {
	pl := planner.NewScripted(func(ctx context.Context, req *planner.TurnRequest) (*planner.TurnResult, error) {
		planner.EmitEvent(req, stream.TextDelta("Looking at your files."))
		planner.EmitEvent(req, stream.ToolCalled("scan_tool", "{}"))
		return &planner.TurnResult{
			FinalText:         "Here is the fix:\n```diff\n--- a/main.tf\n+++ b/main.tf\n@@ -1,1 +1,1 @@\n-a\n+b\n```\n",
			ContinuationToken: "tok-1",
		}, nil
	})

	srv := newTestServer(t, pl)
	sess := createSession(t, srv)

	rec := do(t, srv, http.MethodPost, "/api/v1/sessions/"+sess.SessionID+"/messages", `{"message":"fix it"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/event-stream")

	body := rec.Body.String()
	assert.Contains(t, body, "data: Looking at your files.")
	assert.Contains(t, body, "event: tool_called")
	assert.Contains(t, body, "event: done")

	// The done payload carries the extracted diff and new token.
	idx := strings.Index(body, "event: done\ndata: ")
	require.GreaterOrEqual(t, idx, 0)
	payload := body[idx+len("event: done\ndata: "):]
	payload = payload[:strings.Index(payload, "\n")]

	var done DonePayload
	require.NoError(t, json.Unmarshal([]byte(payload), &done))
	assert.Equal(t, "tok-1", done.ContinuationToken)
	assert.Contains(t, done.Diff, "+++ b/main.tf")
	assert.Contains(t, done.FinalOutput, "Here is the fix")
}

func TestSendMessageValidation(t *testing.T) {
	srv := newTestServer(t, nil)
	sess := createSession(t, srv)

	rec := do(t, srv, http.MethodPost, "/api/v1/sessions/"+sess.SessionID+"/messages", `{"message":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
