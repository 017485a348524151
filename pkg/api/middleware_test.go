package api

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestAPIKeyMiddleware(t *testing.T) {
	tests := []struct {
		name           string
		requestHeader  string
		expectedStatus int
		expectedError  string
	}{
		{"valid API key", "test-key", http.StatusOK, ""},
		{"missing API key header", "", http.StatusUnauthorized, "Missing X-API-Key header"},
		{"invalid API key", "wrong-key", http.StatusUnauthorized, "Invalid API key"},
		{"key prefix", "test-key-2", http.StatusUnauthorized, "Invalid API key"},
	}

	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := apiKeyMiddleware("test-key")(ok)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/api/v1/datasets", nil)
			if tt.requestHeader != "" {
				req.Header.Set("X-API-Key", tt.requestHeader)
			}
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, w.Code)
			}
			if tt.expectedError == "" {
				return
			}

			var response APIResponse
			if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
				t.Fatalf("Failed to decode response: %v", err)
			}
			if response.Success || response.Error != tt.expectedError {
				t.Errorf("Unexpected response %+v", response)
			}
		})
	}
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	handler := requestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/api/v1/health", nil))

	line := buf.String()
	for _, want := range []string{"method=GET", "path=/api/v1/health", "status=418", "bytes=15"} {
		if !strings.Contains(line, want) {
			t.Errorf("Expected log line to contain %q, got %s", want, line)
		}
	}
}

func TestSendSuccess(t *testing.T) {
	w := httptest.NewRecorder()

	sendSuccess(w, DatasetInfo{Name: "train", NumSamples: 3})

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	if contentType := w.Header().Get("Content-Type"); contentType != "application/json" {
		t.Errorf("Expected Content-Type application/json, got %s", contentType)
	}

	var response struct {
		Success bool        `json:"success"`
		Data    DatasetInfo `json:"data"`
	}
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if !response.Success || response.Data.Name != "train" || response.Data.NumSamples != 3 {
		t.Errorf("Unexpected response %+v", response)
	}
}

func TestSendError(t *testing.T) {
	for _, code := range []int{http.StatusBadRequest, http.StatusNotFound, http.StatusInternalServerError} {
		w := httptest.NewRecorder()

		sendError(w, "something went wrong", code)

		if w.Code != code {
			t.Errorf("Expected status %d, got %d", code, w.Code)
		}

		var response APIResponse
		if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}
		if response.Success || response.Error != "something went wrong" || response.Data != nil {
			t.Errorf("Unexpected response %+v", response)
		}
	}
}
