package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

// TestCoordinatorMiddleware_InjectsID はヘッダーのコーディネーターIDが
// コンテキストに注入されることを検証する。
func TestCoordinatorMiddleware_InjectsID(t *testing.T) {
	var gotID string
	handler := NewCoordinatorMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := CoordinatorIDFromContext(r.Context())
		if err != nil {
			t.Fatalf("CoordinatorIDFromContext returned error: %v", err)
		}
		gotID = id
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/elections", nil)
	req.Header.Set("X-Coordinator-ID", "coord-1")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if gotID != "coord-1" {
		t.Errorf("coordinator ID = %s, want coord-1", gotID)
	}
}

// TestCoordinatorMiddleware_MissingHeader はヘッダーなしのリクエストが
// 401で拒否されることを検証する。
func TestCoordinatorMiddleware_MissingHeader(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{"ヘッダーなし", ""},
		{"空白のみ", "   "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			handler := NewCoordinatorMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
			}))

			req := httptest.NewRequest(http.MethodPost, "/api/elections", nil)
			if tt.header != "" {
				req.Header.Set("X-Coordinator-ID", tt.header)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", rec.Code)
			}
			if called {
				t.Error("next handler must not be called without a coordinator ID")
			}
		})
	}
}

func TestCoordinatorIDFromContext_NotSet(t *testing.T) {
	_, err := CoordinatorIDFromContext(context.Background())
	if err == nil {
		t.Error("expected error for a context without coordinator ID")
	}
}

func TestContextWithCoordinatorID(t *testing.T) {
	ctx := ContextWithCoordinatorID(context.Background(), "coord-9")

	got, err := CoordinatorIDFromContext(ctx)
	if err != nil {
		t.Fatalf("CoordinatorIDFromContext returned error: %v", err)
	}
	if got != "coord-9" {
		t.Errorf("coordinator ID = %s, want coord-9", got)
	}
}
