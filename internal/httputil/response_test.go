package httputil

import (
	"encoding/json"
	"net/http/httptest"
	"testing"
)

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteJSON(rec, 201, map[string]int{"count": 3})

	if rec.Code != 201 {
		t.Errorf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type = %q", ct)
	}
	var body map[string]int
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON body: %v", err)
	}
	if body["count"] != 3 {
		t.Errorf("body = %v", body)
	}
}

func TestErrorHelpers(t *testing.T) {
	tests := []struct {
		name    string
		write   func(w *httptest.ResponseRecorder)
		status  int
		message string
	}{
		{"error", func(w *httptest.ResponseRecorder) { WriteJSONError(w, 418, "teapot") }, 418, "teapot"},
		{"method not allowed", func(w *httptest.ResponseRecorder) { MethodNotAllowed(w) }, 405, "Method not allowed"},
		{"bad request", func(w *httptest.ResponseRecorder) { BadRequest(w, "nope") }, 400, "nope"},
		{"not found", func(w *httptest.ResponseRecorder) { NotFound(w, "gone") }, 404, "gone"},
		{"internal", func(w *httptest.ResponseRecorder) { InternalServerError(w, "broken") }, 500, "broken"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tc.write(rec)
			if rec.Code != tc.status {
				t.Errorf("status = %d, want %d", rec.Code, tc.status)
			}
			var body map[string]string
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("invalid JSON body: %v", err)
			}
			if body["error"] != tc.message {
				t.Errorf("error = %q, want %q", body["error"], tc.message)
			}
		})
	}
}
