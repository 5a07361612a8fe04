package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/gaspardpetit/mcpwrap/internal/logx"
)

func wrap(h http.Handler) http.Handler {
	chain := MiddlewareChain(func(r *http.Request) string { return "test" })
	for i := len(chain) - 1; i >= 0; i-- {
		h = chain[i](h)
	}
	return h
}

func TestRequestIDMiddleware(t *testing.T) {
	var captured string
	h := wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = chiMiddleware.GetReqID(r.Context())
	}))
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	h.ServeHTTP(rr, req)
	if captured == "" {
		t.Fatalf("missing request id")
	}
}

func TestObserveLogsStatus(t *testing.T) {
	var buf bytes.Buffer
	logx.ConfigureWriter("debug", &buf)
	defer logx.Configure("info")

	h := wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/nowhere", nil))

	var ev map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &ev); err != nil {
		t.Fatalf("decode log event %q: %v", buf.String(), err)
	}
	if ev["status"] != float64(http.StatusNotFound) || ev["route"] != "test" || ev["method"] != http.MethodPost {
		t.Fatalf("unexpected log event: %v", ev)
	}
	if ev["request_id"] == "" {
		t.Fatalf("missing request id in %v", ev)
	}
}

func TestObserveDefaultsToOK(t *testing.T) {
	var buf bytes.Buffer
	logx.ConfigureWriter("debug", &buf)
	defer logx.Configure("info")

	h := wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodOptions, "/", nil))

	var ev map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &ev); err != nil {
		t.Fatalf("decode log event %q: %v", buf.String(), err)
	}
	if ev["status"] != float64(http.StatusOK) {
		t.Fatalf("expected implicit 200, got %v", ev["status"])
	}
}

func TestRecovererAnswers500(t *testing.T) {
	logx.ConfigureWriter("none", &bytes.Buffer{})
	defer logx.Configure("info")

	h := wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
}
