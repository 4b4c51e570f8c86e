// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

const coordinatorIDHeader = "X-Coordinator-ID"

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// coordinatorIDContextKey はリクエストコンテキストにコーディネーターIDを格納するためのキー。
var coordinatorIDContextKey = contextKey("coordinator_id")

// NewCoordinatorMiddleware はX-Coordinator-IDヘッダーからコーディネーター識別子を
// 読み取り、リクエストコンテキストに注入するミドルウェアを返す。
// コーディネーターの同一性の検証は外部のIDプロバイダの責務であり、
// ここではリクエストスコープの識別子として扱うのみ。
// ヘッダーのないリクエストには401 Unauthorizedを返す。
func NewCoordinatorMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			coordinatorID := strings.TrimSpace(r.Header.Get(coordinatorIDHeader))
			if coordinatorID == "" {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), coordinatorIDContextKey, coordinatorID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// CoordinatorIDFromContext はリクエストコンテキストからコーディネーターIDを取得する。
// コーディネーターミドルウェアを通過したリクエストでのみ有効。
func CoordinatorIDFromContext(ctx context.Context) (string, error) {
	coordinatorID, ok := ctx.Value(coordinatorIDContextKey).(string)
	if !ok || coordinatorID == "" {
		return "", fmt.Errorf("coordinator ID not found in context")
	}
	return coordinatorID, nil
}

// ContextWithCoordinatorID はコンテキストにコーディネーターIDを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithCoordinatorID(ctx context.Context, coordinatorID string) context.Context {
	return context.WithValue(ctx, coordinatorIDContextKey, coordinatorID)
}
