package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRequestLoggerRecordsStatusAndBytes(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	handler := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("nope"))
	}))

	req := httptest.NewRequest("GET", "/missing", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	line := buf.String()
	if !strings.Contains(line, "level=WARN") {
		t.Errorf("4xx should log at warn: %q", line)
	}
	if !strings.Contains(line, "status=404") || !strings.Contains(line, "bytes=4") {
		t.Errorf("log line missing status/bytes: %q", line)
	}
	if !strings.Contains(line, "path=/missing") {
		t.Errorf("log line missing path: %q", line)
	}
}

func TestRequestLoggerDefaultsToOK(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	handler := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("hi"))
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))

	line := buf.String()
	if !strings.Contains(line, "level=INFO") || !strings.Contains(line, "status=200") {
		t.Errorf("implicit 200 should log at info: %q", line)
	}
}
