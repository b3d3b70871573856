package handlers_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/JaimeStill/specimen/pkg/handlers"
)

func TestRespondJSON(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		data       any
		wantStatus int
	}{
		{
			name:       "200 with map",
			status:     http.StatusOK,
			data:       map[string]string{"key": "value"},
			wantStatus: http.StatusOK,
		},
		{
			name:       "201 with struct",
			status:     http.StatusCreated,
			data:       struct{ Name string }{Name: "granite"},
			wantStatus: http.StatusCreated,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handlers.RespondJSON(rec, tt.status, tt.data)

			res := rec.Result()
			defer res.Body.Close()

			if res.StatusCode != tt.wantStatus {
				t.Errorf("status: got %d, want %d", res.StatusCode, tt.wantStatus)
			}
			if ct := res.Header.Get("Content-Type"); ct != "application/json" {
				t.Errorf("content-type: got %s", ct)
			}

			body, _ := io.ReadAll(res.Body)
			var parsed map[string]any
			if err := json.Unmarshal(body, &parsed); err != nil {
				t.Fatalf("unmarshal failed: %v", err)
			}
		})
	}
}

func TestRespondError(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	for _, status := range []int{http.StatusBadRequest, http.StatusServiceUnavailable} {
		rec := httptest.NewRecorder()
		handlers.RespondError(rec, logger, status, errors.New("model not ready"))

		res := rec.Result()
		if res.StatusCode != status {
			t.Errorf("status: got %d, want %d", res.StatusCode, status)
		}

		body, _ := io.ReadAll(res.Body)
		res.Body.Close()

		var parsed map[string]string
		if err := json.Unmarshal(body, &parsed); err != nil {
			t.Fatalf("unmarshal failed: %v", err)
		}
		if parsed["error"] != "model not ready" {
			t.Errorf("error: got %s, want model not ready", parsed["error"])
		}
	}
}

func TestBodyStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	body := http.MaxBytesReader(rec, io.NopCloser(strings.NewReader(`{"a":"0123456789"}`)), 4)
	var v map[string]string
	tooLarge := json.NewDecoder(body).Decode(&v)

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"max bytes", tooLarge, http.StatusRequestEntityTooLarge},
		{"wrapped max bytes", fmt.Errorf("decode: %w", tooLarge), http.StatusRequestEntityTooLarge},
		{"syntax", errors.New("invalid character"), http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := handlers.BodyStatus(tt.err); got != tt.want {
				t.Errorf("BodyStatus() = %d, want %d", got, tt.want)
			}
		})
	}
}
