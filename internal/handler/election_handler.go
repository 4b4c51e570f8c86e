package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/ballotbox/internal/election"
	"github.com/hitoshi/ballotbox/internal/middleware"
	"github.com/hitoshi/ballotbox/internal/model"
)

// ElectionServiceInterface は選挙ハンドラーが必要とするサービスインターフェース。
type ElectionServiceInterface interface {
	// Create は選挙と候補者を作成する。
	Create(ctx context.Context, input election.CreateInput) (*model.Election, error)
	// Delete は選挙と全依存エンティティを削除する。
	Delete(ctx context.Context, electionID, coordinatorID string) error
	// Results は開票結果レポートを返す。
	Results(ctx context.Context, electionID string) (*election.ResultsReport, error)
	// ListByCoordinator はコーディネーターの選挙一覧を返す。
	ListByCoordinator(ctx context.Context, coordinatorID string) ([]*model.Election, error)
}

// ElectionHandler は選挙管理のHTTPハンドラー。
type ElectionHandler struct {
	service ElectionServiceInterface
}

// NewElectionHandler はElectionHandlerを生成する。
func NewElectionHandler(service ElectionServiceInterface) *ElectionHandler {
	return &ElectionHandler{service: service}
}

// candidateRequest は選挙作成リクエストの候補者1件分。
type candidateRequest struct {
	Name     string `json:"name"`
	Position string `json:"position"`
	Bio      string `json:"bio"`
}

// createElectionRequest は選挙作成リクエストのボディ。
type createElectionRequest struct {
	Title       string             `json:"title"`
	Description string             `json:"description"`
	StartTime   time.Time          `json:"start_time"`
	EndTime     time.Time          `json:"end_time"`
	Passcode    string             `json:"passcode"`
	Candidates  []candidateRequest `json:"candidates"`
}

// electionResponse は選挙情報のAPIレスポンス。
// パスコードは作成レスポンスにのみ含める（コーディネーターが招待に使うため）。
type electionResponse struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	Passcode    string    `json:"passcode,omitempty"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}

// CreateElection は選挙作成を処理する。
// POST /api/elections
func (h *ElectionHandler) CreateElection(w http.ResponseWriter, r *http.Request) {
	coordinatorID, err := middleware.CoordinatorIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, unauthorizedError())
		return
	}

	var req createElectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, invalidBodyError())
		return
	}

	input := election.CreateInput{
		Title:         req.Title,
		Description:   req.Description,
		StartTime:     req.StartTime,
		EndTime:       req.EndTime,
		Passcode:      req.Passcode,
		CoordinatorID: coordinatorID,
		Candidates:    make([]election.CandidateInput, len(req.Candidates)),
	}
	for i, c := range req.Candidates {
		input.Candidates[i] = election.CandidateInput{
			Name:     c.Name,
			Position: c.Position,
			Bio:      c.Bio,
		}
	}

	created, err := h.service.Create(r.Context(), input)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toElectionResponse(created, true))
}

// ListElections はコーディネーターの選挙一覧を返す。
// GET /api/elections
func (h *ElectionHandler) ListElections(w http.ResponseWriter, r *http.Request) {
	coordinatorID, err := middleware.CoordinatorIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, unauthorizedError())
		return
	}

	elections, err := h.service.ListByCoordinator(r.Context(), coordinatorID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	responses := make([]electionResponse, len(elections))
	for i, e := range elections {
		responses[i] = toElectionResponse(e, false)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(responses)
}

// GetResults は開票結果レポートを返す。
// GET /api/elections/:id/results
func (h *ElectionHandler) GetResults(w http.ResponseWriter, r *http.Request) {
	electionID := chi.URLParam(r, "id")

	report, err := h.service.Results(r.Context(), electionID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(report)
}

// DeleteElection は選挙の削除を処理する。
// DELETE /api/elections/:id
func (h *ElectionHandler) DeleteElection(w http.ResponseWriter, r *http.Request) {
	coordinatorID, err := middleware.CoordinatorIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, unauthorizedError())
		return
	}

	electionID := chi.URLParam(r, "id")

	if err := h.service.Delete(r.Context(), electionID, coordinatorID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func toElectionResponse(e *model.Election, includePasscode bool) electionResponse {
	resp := electionResponse{
		ID:          e.ID,
		Title:       e.Title,
		Description: e.Description,
		StartTime:   e.StartTime,
		EndTime:     e.EndTime,
		IsActive:    e.IsActive,
		CreatedAt:   e.CreatedAt,
	}
	if includePasscode {
		resp.Passcode = e.Passcode
	}
	return resp
}

func unauthorizedError() *model.APIError {
	return &model.APIError{
		Code:     "UNAUTHORIZED",
		Message:  "コーディネーターの識別情報が必要です。",
		Category: "election",
		Action:   "X-Coordinator-IDヘッダーを設定してください。",
	}
}
