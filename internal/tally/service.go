// Package tally は開票集計のドメインロジックを提供する。
package tally

import (
	"context"
	"fmt"

	"github.com/hitoshi/ballotbox/internal/repository"
)

// Service は開票集計のサービス層。
// コミット済みのVoteのみを読む純粋な参照系で、トークンの状態には依存しない。
type Service struct {
	votes  repository.VoteRepository
	voters repository.VoterRepository
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(votes repository.VoteRepository, voters repository.VoterRepository) *Service {
	return &Service{
		votes:  votes,
		voters: voters,
	}
}

// Tally は選挙の候補者別得票数を返す。
// 得票ゼロの候補者も0票の行として含まれる。
func (s *Service) Tally(ctx context.Context, electionID string) ([]repository.CandidateVoteCount, error) {
	counts, err := s.votes.CountByCandidate(ctx, electionID)
	if err != nil {
		return nil, fmt.Errorf("得票数の集計に失敗しました: %w", err)
	}
	return counts, nil
}

// Turnout は投票率（投票数 / 登録投票者数 * 100）を返す。
// 登録投票者が0人の場合は0を返す。
func (s *Service) Turnout(ctx context.Context, electionID string) (float64, error) {
	registered, err := s.voters.CountByElection(ctx, electionID)
	if err != nil {
		return 0, fmt.Errorf("登録投票者数の取得に失敗しました: %w", err)
	}
	if registered == 0 {
		return 0, nil
	}

	voted, err := s.votes.CountByElection(ctx, electionID)
	if err != nil {
		return 0, fmt.Errorf("投票数の取得に失敗しました: %w", err)
	}

	return float64(voted) / float64(registered) * 100, nil
}
