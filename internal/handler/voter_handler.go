package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/ballotbox/internal/middleware"
	"github.com/hitoshi/ballotbox/internal/model"
	"github.com/hitoshi/ballotbox/internal/voter"
)

// VoterServiceInterface は投票者ハンドラーが必要とするサービスインターフェース。
type VoterServiceInterface interface {
	// RegisterBatch は複数の投票者を登録し、受信者ごとの結果を返す。
	RegisterBatch(ctx context.Context, electionID string, entries []voter.RegistrationEntry) []voter.RegistrationOutcome
	// ListByElection は選挙の登録投票者一覧を返す。
	ListByElection(ctx context.Context, electionID string) ([]*model.Voter, error)
}

// VoterHandler は投票者登録のHTTPハンドラー。
type VoterHandler struct {
	service VoterServiceInterface
}

// NewVoterHandler はVoterHandlerを生成する。
func NewVoterHandler(service VoterServiceInterface) *VoterHandler {
	return &VoterHandler{service: service}
}

// voterEntryRequest は登録リクエストの投票者1件分。
type voterEntryRequest struct {
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// registerVotersRequest は投票者登録リクエストのボディ。
type registerVotersRequest struct {
	Voters []voterEntryRequest `json:"voters"`
}

// registrationOutcomeResponse は受信者ごとの登録結果のレスポンス。
// 登録の成否とメール送信の成否は独立して報告される。
type registrationOutcomeResponse struct {
	Email      string            `json:"email"`
	Registered bool              `json:"registered"`
	VoterID    string            `json:"voter_id,omitempty"`
	EmailSent  bool              `json:"email_sent"`
	Error      *apiErrorResponse `json:"error,omitempty"`
}

// voterResponse は投票者情報のAPIレスポンス。
type voterResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

// RegisterVoters は投票者の一括登録を処理する。
// 1件の失敗で全体を失敗にはせず、受信者ごとの結果を返す。
// POST /api/elections/:id/voters
func (h *VoterHandler) RegisterVoters(w http.ResponseWriter, r *http.Request) {
	if _, err := middleware.CoordinatorIDFromContext(r.Context()); err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, unauthorizedError())
		return
	}

	electionID := chi.URLParam(r, "id")

	var req registerVotersRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, invalidBodyError())
		return
	}

	if len(req.Voters) == 0 {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("投票者を1名以上指定してください"))
		return
	}

	entries := make([]voter.RegistrationEntry, len(req.Voters))
	for i, v := range req.Voters {
		entries[i] = voter.RegistrationEntry{Email: v.Email, Phone: v.Phone}
	}

	outcomes := h.service.RegisterBatch(r.Context(), electionID, entries)

	responses := make([]registrationOutcomeResponse, len(outcomes))
	for i, outcome := range outcomes {
		responses[i] = toOutcomeResponse(outcome)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusMultiStatus)
	json.NewEncoder(w).Encode(map[string]any{
		"outcomes": responses,
	})
}

// ListVoters は選挙の登録投票者一覧を返す。
// GET /api/elections/:id/voters
func (h *VoterHandler) ListVoters(w http.ResponseWriter, r *http.Request) {
	if _, err := middleware.CoordinatorIDFromContext(r.Context()); err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, unauthorizedError())
		return
	}

	electionID := chi.URLParam(r, "id")

	voters, err := h.service.ListByElection(r.Context(), electionID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	responses := make([]voterResponse, len(voters))
	for i, v := range voters {
		responses[i] = voterResponse{
			ID:    v.ID,
			Email: v.Email,
			Phone: v.Phone,
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"voters": responses,
	})
}

func toOutcomeResponse(outcome voter.RegistrationOutcome) registrationOutcomeResponse {
	resp := registrationOutcomeResponse{
		Email:     outcome.Email,
		EmailSent: outcome.EmailSent,
	}
	if outcome.Err != nil {
		var apiErr *model.APIError
		if errors.As(outcome.Err, &apiErr) {
			resp.Error = &apiErrorResponse{
				Code:     apiErr.Code,
				Message:  apiErr.Message,
				Category: apiErr.Category,
				Action:   apiErr.Action,
			}
		} else {
			resp.Error = &apiErrorResponse{
				Code:     "INTERNAL_ERROR",
				Message:  "内部エラーが発生しました。",
				Category: "system",
				Action:   "しばらく待ってから再度お試しください。",
			}
		}
		return resp
	}

	resp.Registered = true
	if outcome.Voter != nil {
		resp.VoterID = outcome.Voter.ID
	}
	return resp
}
