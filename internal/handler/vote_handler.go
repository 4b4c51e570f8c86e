package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/ballotbox/internal/model"
	"github.com/hitoshi/ballotbox/internal/voting"
)

// VotingServiceInterface は投票ハンドラーが必要とするサービスインターフェース。
type VotingServiceInterface interface {
	// SubmitVote は1票の投票を受け付ける。
	SubmitVote(ctx context.Context, tokenValue, email, passcode, candidateID string) (*model.VoteReceipt, error)
	// LookupBallot はトークン値から投票画面用の選挙情報を取得する。
	LookupBallot(ctx context.Context, tokenValue string) (*voting.BallotInfo, error)
}

// VoteHandler は投票受付のHTTPハンドラー。
type VoteHandler struct {
	service VotingServiceInterface
}

// NewVoteHandler はVoteHandlerを生成する。
func NewVoteHandler(service VotingServiceInterface) *VoteHandler {
	return &VoteHandler{service: service}
}

// submitVoteRequest は投票リクエストのボディ。
type submitVoteRequest struct {
	Token       string `json:"token"`
	Email       string `json:"email"`
	Passcode    string `json:"passcode"`
	CandidateID string `json:"candidate_id"`
}

// voteReceiptResponse は投票成功のレスポンス。
// 投票内容は含まない。
type voteReceiptResponse struct {
	ReceiptID string    `json:"receipt_id"`
	VotedAt   time.Time `json:"voted_at"`
}

// ballotCandidateResponse は投票画面の候補者1件分。
type ballotCandidateResponse struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Position string `json:"position"`
	Bio      string `json:"bio,omitempty"`
}

// ballotResponse は投票画面用の選挙情報レスポンス。
// パスコードは含まない（招待メールで別送されるため）。
type ballotResponse struct {
	ElectionID  string                    `json:"election_id"`
	Title       string                    `json:"title"`
	Description string                    `json:"description"`
	StartTime   time.Time                 `json:"start_time"`
	EndTime     time.Time                 `json:"end_time"`
	Candidates  []ballotCandidateResponse `json:"candidates"`
}

// SubmitVote は投票の送信を処理する。
// POST /api/vote
func (h *VoteHandler) SubmitVote(w http.ResponseWriter, r *http.Request) {
	var req submitVoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, invalidBodyError())
		return
	}

	if req.Token == "" || req.Email == "" || req.Passcode == "" || req.CandidateID == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest,
			model.NewInvalidRequestError("token, email, passcode, candidate_idはすべて必須です"))
		return
	}

	receipt, err := h.service.SubmitVote(r.Context(), req.Token, req.Email, req.Passcode, req.CandidateID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(voteReceiptResponse{
		ReceiptID: receipt.ReceiptID,
		VotedAt:   receipt.VotedAt,
	})
}

// GetBallot は投票リンクから投票画面用の選挙情報を返す。
// GET /api/vote/:token
func (h *VoteHandler) GetBallot(w http.ResponseWriter, r *http.Request) {
	tokenValue := chi.URLParam(r, "token")

	info, err := h.service.LookupBallot(r.Context(), tokenValue)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	candidates := make([]ballotCandidateResponse, len(info.Candidates))
	for i, c := range info.Candidates {
		candidates[i] = ballotCandidateResponse{
			ID:       c.ID,
			Name:     c.Name,
			Position: c.Position,
			Bio:      c.Bio,
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(ballotResponse{
		ElectionID:  info.ElectionID,
		Title:       info.Title,
		Description: info.Description,
		StartTime:   info.StartTime,
		EndTime:     info.EndTime,
		Candidates:  candidates,
	})
}
