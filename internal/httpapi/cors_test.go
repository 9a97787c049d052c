package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCORSDisabledByDefault(t *testing.T) {
	SetCORSOptions(false, nil, nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "http://example.org")
	w := httptest.NewRecorder()
	NewMux(&mockService{}).ServeHTTP(w, req)
	if v := w.Header().Get("Access-Control-Allow-Origin"); v != "" {
		t.Fatalf("unexpected CORS header %q", v)
	}
}

func TestCORSEnabled(t *testing.T) {
	SetCORSOptions(true, []string{"http://example.org"}, nil, nil)
	defer SetCORSOptions(false, nil, nil, nil)
	h := NewMux(&mockService{})

	req := httptest.NewRequest(http.MethodOptions, "/sessions", nil)
	req.Header.Set("Origin", "http://example.org")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if v := w.Header().Get("Access-Control-Allow-Origin"); v != "http://example.org" {
		t.Fatalf("allow-origin=%q status=%d", v, w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "http://evil.test")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if v := w.Header().Get("Access-Control-Allow-Origin"); v != "" {
		t.Fatalf("origin not in allow list got %q", v)
	}
}
