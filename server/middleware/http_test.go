package middleware_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hyodoblog/mojiokoshi-line-bot/logger"
	"github.com/hyodoblog/mojiokoshi-line-bot/server/middleware"
)

func capture(level string) (*logger.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return logger.NewWithWriter(&logger.Config{Level: level, Format: logger.FormatJSON}, "test", &buf), &buf
}

func serve(h http.Handler, method, path string, body io.Reader) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(method, path, body))
	return rr
}

func answer(status int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(status) })
}

func errorCode(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("body %q: %v", rr.Body.String(), err)
	}
	return body.Error.Code
}

func TestChain(t *testing.T) {
	var seen []string
	mark := func(name string) middleware.Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = append(seen, name)
				next.ServeHTTP(w, r)
			})
		}
	}
	h := middleware.Chain(mark("recovery"), nil, mark("request-id"), mark("access"))(answer(http.StatusOK))
	serve(h, http.MethodPost, "/webhook", http.NoBody)
	if got := strings.Join(seen, ">"); got != "recovery>request-id>access" {
		t.Errorf("order = %s", got)
	}
}

func TestRecovery(t *testing.T) {
	log, buf := capture("error")
	h := middleware.Recovery(log)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("nil reply token")
	}))
	rr := serve(h, http.MethodPost, "/webhook", http.NoBody)
	if rr.Code != http.StatusInternalServerError || errorCode(t, rr) != "INTERNAL_ERROR" {
		t.Errorf("got %d %s", rr.Code, rr.Body.String())
	}
	if strings.Contains(rr.Body.String(), "nil reply token") {
		t.Error("panic value leaked to the client")
	}
	if !strings.Contains(buf.String(), "nil reply token") || !strings.Contains(buf.String(), `"stack"`) {
		t.Errorf("panic not logged: %s", buf.String())
	}

	rr = serve(middleware.Recovery(log)(answer(http.StatusNoContent)), http.MethodGet, "/", http.NoBody)
	if rr.Code != http.StatusNoContent {
		t.Errorf("untouched request got %d", rr.Code)
	}
}

func TestRequestID(t *testing.T) {
	log, buf := capture("info")
	h := middleware.RequestID()(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		log.WithContext(r.Context()).Info("delivery")
	}))

	rr := serve(h, http.MethodPost, "/webhook", http.NoBody)
	if id := rr.Header().Get(middleware.HeaderRequestID); len(id) != 36 {
		t.Errorf("minted id %q", id)
	}

	req := httptest.NewRequest(http.MethodPost, "/webhook", http.NoBody)
	req.Header.Set(middleware.HeaderRequestID, "delivery-7")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Header().Get(middleware.HeaderRequestID) != "delivery-7" {
		t.Errorf("incoming id not echoed: %q", rr.Header().Get(middleware.HeaderRequestID))
	}
	if !strings.Contains(buf.String(), `"request_id":"delivery-7"`) {
		t.Errorf("id missing from log: %s", buf.String())
	}
}

func TestBodySizeLimit(t *testing.T) {
	readAll := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := io.ReadAll(r.Body); err != nil {
			w.WriteHeader(http.StatusRequestEntityTooLarge)
		}
	})
	h := middleware.BodySizeLimit("1KB")(readAll)

	if rr := serve(h, http.MethodPost, "/webhook", strings.NewReader(`{"events":[]}`)); rr.Code != http.StatusOK {
		t.Errorf("small body got %d", rr.Code)
	}
	rr := serve(h, http.MethodPost, "/webhook", strings.NewReader(strings.Repeat("x", 2048)))
	if rr.Code != http.StatusRequestEntityTooLarge || errorCode(t, rr) != "PAYLOAD_TOO_LARGE" {
		t.Errorf("declared oversize got %d %s", rr.Code, rr.Body.String())
	}

	streamed := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(strings.Repeat("x", 2048)))
	streamed.ContentLength = -1
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, streamed)
	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("streamed oversize got %d", rr.Code)
	}
}

func TestAccessLog(t *testing.T) {
	tests := []struct {
		path   string
		status int
		level  string
	}{
		{"/webhook", http.StatusOK, "info"},
		{"/webhook", http.StatusUnauthorized, "warn"},
		{"/webhook", http.StatusBadGateway, "error"},
		{"/health", http.StatusOK, ""},
		{"/ready", http.StatusServiceUnavailable, ""},
	}
	for _, tt := range tests {
		log, buf := capture("debug")
		serve(middleware.AccessLog(log)(answer(tt.status)), http.MethodPost, tt.path, http.NoBody)
		if tt.level == "" {
			if buf.Len() != 0 {
				t.Errorf("%s should not be logged: %s", tt.path, buf.String())
			}
			continue
		}
		var entry map[string]any
		if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
			t.Fatalf("log line %q: %v", buf.String(), err)
		}
		if entry["level"] != tt.level || entry["path"] != tt.path || entry[logger.FieldStatus] != float64(tt.status) {
			t.Errorf("%d: entry = %v", tt.status, entry)
		}
	}
}

func TestAccessLogDefaultsTo200(t *testing.T) {
	log, buf := capture("info")
	h := middleware.AccessLog(log)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("OK"))
	}))
	serve(h, http.MethodPost, "/webhook", http.NoBody)
	if !strings.Contains(buf.String(), `"status":200`) {
		t.Errorf("log = %s", buf.String())
	}
}

func TestTracingKeepsStatus(t *testing.T) {
	for _, path := range []string{"/webhook", "/health"} {
		if rr := serve(middleware.Tracing()(answer(http.StatusAccepted)), http.MethodPost, path, http.NoBody); rr.Code != http.StatusAccepted {
			t.Errorf("%s: got %d", path, rr.Code)
		}
	}
}
