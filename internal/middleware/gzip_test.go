package middleware

import (
	"bytes"
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func echoBody(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	w.Header().Set("X-Seen-Encoding", r.Header.Get("Content-Encoding"))
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

func TestGzipReader(t *testing.T) {
	gzipHandler := GzipReader(http.HandlerFunc(echoBody))

	payload := `{"url":"https://example.com","code":"abc1"}`
	var buf bytes.Buffer
	gzWriter := gzip.NewWriter(&buf)
	if _, err := gzWriter.Write([]byte(payload)); err != nil {
		t.Fatalf("Failed to write to gzip writer: %v", err)
	}
	gzWriter.Close()

	req := httptest.NewRequest(http.MethodPost, "/shorten", &buf)
	req.Header.Set("Content-Encoding", "gzip")

	rec := httptest.NewRecorder()
	gzipHandler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("Expected status code %d, got %d", http.StatusOK, rec.Code)
	}

	if got := strings.TrimSpace(rec.Body.String()); got != payload {
		t.Errorf("Expected response body to be %s, got %s", payload, got)
	}

	if enc := rec.Header().Get("X-Seen-Encoding"); enc != "" {
		t.Errorf("Expected Content-Encoding to be stripped, got %q", enc)
	}
}

func TestGzipReader_NoGzip(t *testing.T) {
	gzipHandler := GzipReader(http.HandlerFunc(echoBody))

	payload := `{"url":"https://example.com"}`
	req := httptest.NewRequest(http.MethodPost, "/shorten", bytes.NewBufferString(payload))

	rec := httptest.NewRecorder()
	gzipHandler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("Expected status code %d, got %d", http.StatusOK, rec.Code)
	}

	if got := strings.TrimSpace(rec.Body.String()); got != payload {
		t.Errorf("Expected response body to be %s, got %s", payload, got)
	}
}

func TestGzipReader_InvalidStream(t *testing.T) {
	called := false
	gzipHandler := GzipReader(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	req := httptest.NewRequest(http.MethodPost, "/shorten", bytes.NewBufferString("not gzip at all"))
	req.Header.Set("Content-Encoding", "gzip")

	rec := httptest.NewRecorder()
	gzipHandler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status code %d, got %d", http.StatusBadRequest, rec.Code)
	}
	if called {
		t.Error("Expected next handler not to be called")
	}
}
