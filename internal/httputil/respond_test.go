package httputil

import (
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestDecodeJSONRejectsUnknownFields(t *testing.T) {
	var dst struct {
		Nom string `json:"nom"`
	}
	body := io.NopCloser(strings.NewReader(`{"nom":"CAF","extra":1}`))
	if err := DecodeJSON(body, &dst); err == nil {
		t.Fatal("expected error on unknown field")
	}
}

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, 409, errors.New("subvention has budget lines"))

	if rec.Code != 409 {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("content type = %q", ct)
	}
	var payload map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if payload["error"] != "subvention has budget lines" {
		t.Fatalf("error = %q", payload["error"])
	}
}

func TestClientIPStripsPort(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "10.1.2.3:54321"
	if ip := ClientIP(req); ip != "10.1.2.3" {
		t.Fatalf("ip = %q, want 10.1.2.3", ip)
	}
	req.RemoteAddr = "10.1.2.3"
	if ip := ClientIP(req); ip != "10.1.2.3" {
		t.Fatalf("ip = %q, want raw fallback", ip)
	}
}
