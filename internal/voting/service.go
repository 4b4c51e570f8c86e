// Package voting は投票プロトコルのドメインロジックを提供する。
package voting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/ballotbox/internal/model"
	"github.com/hitoshi/ballotbox/internal/repository"
	"github.com/hitoshi/ballotbox/internal/token"
)

// Recorder は投票処理のメトリクスを記録するインターフェース。
// nilの場合は何も記録しない。
type Recorder interface {
	// VoteAccepted は投票成功を記録する。
	VoteAccepted()
	// VoteRejected は投票拒否を理由コード付きで記録する。
	VoteRejected(reason string)
	// IntegrityFault は整合性違反の検出を記録する。
	IntegrityFault()
	// ObserveSubmitLatency は投票処理のレイテンシを記録する。
	ObserveSubmitLatency(seconds float64)
}

// Service は投票受付のサービス層。
// トークン検証からVote記録までの一連のチェックを規定の順序で実行する。
type Service struct {
	issuer     *token.Issuer
	tokens     repository.TokenRepository
	elections  repository.ElectionRepository
	voters     repository.VoterRepository
	candidates repository.CandidateRepository
	votes      repository.VoteRepository
	recorder   Recorder
}

// NewService はServiceの新しいインスタンスを生成する。
// アクティブトークンの検索はissuer経由、is_usedフラグの再読込はtokens経由で行う。
// recorderはnilでもよい。
func NewService(
	issuer *token.Issuer,
	tokens repository.TokenRepository,
	elections repository.ElectionRepository,
	voters repository.VoterRepository,
	candidates repository.CandidateRepository,
	votes repository.VoteRepository,
	recorder Recorder,
) *Service {
	return &Service{
		issuer:     issuer,
		tokens:     tokens,
		elections:  elections,
		voters:     voters,
		candidates: candidates,
		votes:      votes,
		recorder:   recorder,
	}
}

// SubmitVote は1票の投票を受け付ける。
//
// チェックは以下の順序で実行する。パスコード検証を投票者検索より先に行うことで、
// パスコードを知らない攻撃者が登録済みメールアドレスを列挙できないようにする。
//
//  1. トークン値でアクティブなトークンを検索（未知と使用済みは区別しない）
//  2. トークンが属する選挙を取得
//  3. パスコードの完全一致検証
//  4. (email, election)で投票者を検索
//  5. is_usedフラグの防御的再読込
//  6. 既存投票の有無チェック
//  7. 候補者が同一選挙に属するかの検証
//  8. Vote挿入とトークン消費を単一トランザクションで実行
//
// 手順1〜7は楽観的な事前チェックであり、重複投票に対する最終的な安全装置は
// 手順8の(voter_id, election_id)ユニーク制約である。
func (s *Service) SubmitVote(ctx context.Context, tokenValue, email, passcode, candidateID string) (*model.VoteReceipt, error) {
	start := time.Now()
	receipt, err := s.submitVote(ctx, tokenValue, email, passcode, candidateID)
	s.observeLatency(time.Since(start).Seconds())

	if err != nil {
		var apiErr *model.APIError
		if errors.As(err, &apiErr) {
			s.recordRejected(apiErr.Code)
		}
		return nil, err
	}

	s.recordAccepted()
	return receipt, nil
}

func (s *Service) submitVote(ctx context.Context, tokenValue, email, passcode, candidateID string) (*model.VoteReceipt, error) {
	// 1. アクティブなトークンの検索
	token, err := s.issuer.FindActive(ctx, tokenValue)
	if err != nil {
		return nil, err
	}
	if token == nil {
		return nil, model.NewInvalidTokenError()
	}

	// 2. トークンが属する選挙の取得。
	// Tokenは常に存在するElectionを参照する不変条件があるため、
	// ここで見つからないのは異常だが防御的に扱う。
	election, err := s.elections.FindByID(ctx, token.ElectionID)
	if err != nil {
		return nil, fmt.Errorf("選挙の取得に失敗しました: %w", err)
	}
	if election == nil {
		return nil, model.NewElectionNotFoundError(token.ElectionID)
	}

	// 3. パスコード検証。失敗してもトークンは消費しない。
	if passcode != election.Passcode {
		return nil, model.NewWrongPasscodeError()
	}

	// 4. 投票者の検索。emailは書き込み時と同じく小文字で比較する。
	voter, err := s.voters.FindByEmail(ctx, election.ID, strings.ToLower(email))
	if err != nil {
		return nil, fmt.Errorf("投票者の検索に失敗しました: %w", err)
	}
	if voter == nil {
		return nil, model.NewUnregisteredVoterError()
	}

	// 5. is_usedフラグの防御的再読込。
	// 手順1以降に別リクエストがトークンを消費したレースを拾う。
	current, err := s.tokens.FindByID(ctx, token.ID)
	if err != nil {
		return nil, fmt.Errorf("トークンの再読込に失敗しました: %w", err)
	}
	if current == nil || current.IsUsed {
		return nil, model.NewTokenAlreadyUsedError()
	}

	// 6. 既存投票のチェック。
	// トークンが未使用のままVoteが存在するのは、is_usedフラグとVoteレコードの
	// 書き込みの原子性が過去に破られたことを意味する。自己修復はせず、
	// 整合性違反として明確に記録して調査対象とする。
	existing, err := s.votes.FindByVoterAndElection(ctx, voter.ID, election.ID)
	if err != nil {
		return nil, fmt.Errorf("既存投票の検索に失敗しました: %w", err)
	}
	if existing != nil {
		slog.Error("integrity fault: vote exists but token is unused",
			slog.String("token_id", token.ID),
			slog.String("voter_id", voter.ID),
			slog.String("election_id", election.ID),
			slog.String("vote_id", existing.ID),
		)
		s.recordIntegrityFault()
		return nil, model.NewAlreadyVotedError()
	}

	// 7. 候補者が同一選挙に属するかの検証
	candidate, err := s.candidates.FindByID(ctx, candidateID)
	if err != nil {
		return nil, fmt.Errorf("候補者の検索に失敗しました: %w", err)
	}
	if candidate == nil || candidate.ElectionID != election.ID {
		return nil, model.NewInvalidCandidateError(candidateID)
	}

	// 8. Vote挿入とトークン消費を単一トランザクションで実行。
	// ユニーク制約違反時はトークンのフラグも含めてロールバックされる。
	vote := &model.Vote{
		ID:          uuid.New().String(),
		CandidateID: candidate.ID,
		ElectionID:  election.ID,
		VoterID:     voter.ID,
		CreatedAt:   time.Now(),
	}
	if err := s.votes.CreateAndConsumeToken(ctx, vote, token.ID); err != nil {
		switch {
		case errors.Is(err, repository.ErrTokenAlreadyConsumed):
			// 同一トークンの同時送信でレースに敗けた側
			return nil, model.NewTokenAlreadyUsedError()
		case errors.Is(err, repository.ErrDuplicateVote):
			// (voter_id, election_id)制約違反。安全装置の本体。
			return nil, model.NewAlreadyVotedError()
		default:
			return nil, fmt.Errorf("投票の記録に失敗しました: %w", err)
		}
	}

	slog.Info("vote accepted",
		slog.String("election_id", election.ID),
		slog.String("voter_id", voter.ID),
		slog.String("candidate_id", candidate.ID),
	)

	return &model.VoteReceipt{
		ReceiptID: vote.ID,
		VotedAt:   vote.CreatedAt,
	}, nil
}

// BallotInfo は投票画面の表示に必要な選挙情報。
// トークン値の検証結果として返され、投票内容の入力前に提示される。
type BallotInfo struct {
	ElectionID  string
	Title       string
	Description string
	StartTime   time.Time
	EndTime     time.Time
	Candidates  []*model.Candidate
}

// LookupBallot はトークン値から投票画面用の選挙情報を取得する。
// トークンが無効（未知または使用済み）の場合はInvalidTokenを返す。
// パスコードや投票者の検証は行わない。それらは投票送信時に検証される。
func (s *Service) LookupBallot(ctx context.Context, tokenValue string) (*BallotInfo, error) {
	token, err := s.issuer.FindActive(ctx, tokenValue)
	if err != nil {
		return nil, err
	}
	if token == nil {
		return nil, model.NewInvalidTokenError()
	}

	election, err := s.elections.FindByID(ctx, token.ElectionID)
	if err != nil {
		return nil, fmt.Errorf("選挙の取得に失敗しました: %w", err)
	}
	if election == nil {
		return nil, model.NewElectionNotFoundError(token.ElectionID)
	}

	candidates, err := s.candidates.ListByElection(ctx, election.ID)
	if err != nil {
		return nil, fmt.Errorf("候補者一覧の取得に失敗しました: %w", err)
	}

	return &BallotInfo{
		ElectionID:  election.ID,
		Title:       election.Title,
		Description: election.Description,
		StartTime:   election.StartTime,
		EndTime:     election.EndTime,
		Candidates:  candidates,
	}, nil
}

func (s *Service) recordAccepted() {
	if s.recorder != nil {
		s.recorder.VoteAccepted()
	}
}

func (s *Service) recordRejected(reason string) {
	if s.recorder != nil {
		s.recorder.VoteRejected(reason)
	}
}

func (s *Service) recordIntegrityFault() {
	if s.recorder != nil {
		s.recorder.IntegrityFault()
	}
}

func (s *Service) observeLatency(seconds float64) {
	if s.recorder != nil {
		s.recorder.ObserveSubmitLatency(seconds)
	}
}
