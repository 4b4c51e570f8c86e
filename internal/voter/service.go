// Package voter は投票者登録のドメインロジックを提供する。
package voter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/ballotbox/internal/mail"
	"github.com/hitoshi/ballotbox/internal/model"
	"github.com/hitoshi/ballotbox/internal/repository"
	"github.com/hitoshi/ballotbox/internal/token"
)

// Recorder は登録処理のメトリクスを記録するインターフェース。
// nilの場合は何も記録しない。
type Recorder interface {
	// InviteSent は招待メールの送信成功を記録する。
	InviteSent()
	// InviteFailed は招待メールの送信失敗を記録する。
	InviteFailed()
	// TokenConflict はトークン値衝突による再試行を記録する。
	TokenConflict()
}

// RegistrationEntry は一括登録の1件分の入力。
type RegistrationEntry struct {
	Email string
	Phone string
}

// RegistrationOutcome は受信者ごとの登録結果。
// 永続化の成否とメール送信の成否は独立に報告される。
type RegistrationOutcome struct {
	Email     string
	Voter     *model.Voter
	EmailSent bool
	Err       error
}

// Service は投票者登録のサービス層。
// 投票者とトークンの原子的な作成と招待メールの送信を提供する。
type Service struct {
	voters    repository.VoterRepository
	elections repository.ElectionRepository
	issuer    *token.Issuer
	sender    mail.InviteSender
	baseURL   string
	recorder  Recorder
}

// NewService はServiceの新しいインスタンスを生成する。
// recorderはnilでもよい。
func NewService(
	voters repository.VoterRepository,
	elections repository.ElectionRepository,
	issuer *token.Issuer,
	sender mail.InviteSender,
	baseURL string,
	recorder Recorder,
) *Service {
	return &Service{
		voters:    voters,
		elections: elections,
		issuer:    issuer,
		sender:    sender,
		baseURL:   strings.TrimRight(baseURL, "/"),
		recorder:  recorder,
	}
}

// Register は投票者を1名登録し、投票トークンを発行して招待メールを送信する。
//
// 投票者とトークンは単一トランザクションで作成される。メール送信の失敗は
// 永続化をロールバックさせず、戻り値のemailSentフラグで呼び出し側に伝える。
// emailは小文字化してから永続化する。
func (s *Service) Register(ctx context.Context, electionID, email, phone string) (*model.Voter, *model.Token, bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, nil, false, model.NewInvalidRequestError("メールアドレスは必須です")
	}

	election, err := s.elections.FindByID(ctx, electionID)
	if err != nil {
		return nil, nil, false, fmt.Errorf("選挙の取得に失敗しました: %w", err)
	}
	if election == nil {
		return nil, nil, false, model.NewElectionNotFoundError(electionID)
	}

	voter := &model.Voter{
		ID:         uuid.New().String(),
		ElectionID: electionID,
		Email:      email,
		Phone:      strings.TrimSpace(phone),
		CreatedAt:  time.Now(),
	}

	tok, err := s.createWithFreshToken(ctx, voter)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateVoter) {
			return nil, nil, false, model.NewVoterAlreadyRegisteredError(email)
		}
		return nil, nil, false, err
	}

	emailSent := s.sendInvite(ctx, election, voter, tok)
	return voter, tok, emailSent, nil
}

// RegisterBatch は複数の投票者を登録し、受信者ごとの結果を返す。
// 1件の失敗が他の登録を妨げることはない。
func (s *Service) RegisterBatch(ctx context.Context, electionID string, entries []RegistrationEntry) []RegistrationOutcome {
	outcomes := make([]RegistrationOutcome, len(entries))
	for i, entry := range entries {
		voter, _, emailSent, err := s.Register(ctx, electionID, entry.Email, entry.Phone)
		outcomes[i] = RegistrationOutcome{
			Email:     strings.ToLower(strings.TrimSpace(entry.Email)),
			Voter:     voter,
			EmailSent: emailSent,
			Err:       err,
		}
	}
	return outcomes
}

// createWithFreshToken は新しいトークン値で投票者とトークンを作成する。
// トークン値の衝突時は新しい値を生成して再試行する。
// 128bit乱数の衝突は実質発生しないが、契約上の再試行経路を持つ。
func (s *Service) createWithFreshToken(ctx context.Context, voter *model.Voter) (*model.Token, error) {
	for attempt := 0; attempt < token.MaxIssueAttempts; attempt++ {
		tok, err := s.issuer.Mint(voter.ID, voter.ElectionID)
		if err != nil {
			return nil, fmt.Errorf("トークンの生成に失敗しました: %w", err)
		}

		err = s.voters.CreateWithToken(ctx, voter, tok)
		if err == nil {
			return tok, nil
		}
		if errors.Is(err, repository.ErrDuplicateTokenValue) {
			s.recordTokenConflict()
			slog.Warn("token value collision, retrying with a fresh value",
				slog.String("voter_id", voter.ID),
				slog.Int("attempt", attempt+1),
			)
			continue
		}
		if errors.Is(err, repository.ErrDuplicateVoter) {
			return nil, err
		}
		return nil, fmt.Errorf("投票者の作成に失敗しました: %w", err)
	}
	return nil, model.NewTokenConflictError()
}

// sendInvite は招待メールを送信し、成否を返す。
// 失敗してもエラーは返さず、警告ログとメトリクスに記録するのみ。
func (s *Service) sendInvite(ctx context.Context, election *model.Election, voter *model.Voter, tok *model.Token) bool {
	link := s.VotingLink(tok.Value)
	err := s.sender.SendVotingInvite(ctx, voter.Email, link, election.Title, election.Passcode, election.StartTime, election.EndTime)
	if err != nil {
		s.recordInviteFailed()
		slog.Warn("invite email delivery failed",
			slog.String("voter_id", voter.ID),
			slog.String("election_id", election.ID),
			slog.String("error", err.Error()),
		)
		return false
	}

	s.recordInviteSent()
	slog.Info("invite email sent",
		slog.String("voter_id", voter.ID),
		slog.String("election_id", election.ID),
	)
	return true
}

// VotingLink はトークン値から公開投票リンクを組み立てる。
func (s *Service) VotingLink(tokenValue string) string {
	return fmt.Sprintf("%s/vote/%s", s.baseURL, tokenValue)
}

// ListByElection は選挙の登録投票者一覧を返す。
func (s *Service) ListByElection(ctx context.Context, electionID string) ([]*model.Voter, error) {
	voters, err := s.voters.ListByElection(ctx, electionID)
	if err != nil {
		return nil, fmt.Errorf("投票者一覧の取得に失敗しました: %w", err)
	}
	return voters, nil
}

func (s *Service) recordInviteSent() {
	if s.recorder != nil {
		s.recorder.InviteSent()
	}
}

func (s *Service) recordInviteFailed() {
	if s.recorder != nil {
		s.recorder.InviteFailed()
	}
}

func (s *Service) recordTokenConflict() {
	if s.recorder != nil {
		s.recorder.TokenConflict()
	}
}
