// Package election は選挙管理のドメインロジックを提供する。
package election

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/ballotbox/internal/model"
	"github.com/hitoshi/ballotbox/internal/repository"
	"github.com/hitoshi/ballotbox/internal/tally"
)

// CandidateInput は選挙作成時の候補者入力。
type CandidateInput struct {
	Name     string
	Position string
	Bio      string
}

// CreateInput は選挙作成の入力。
type CreateInput struct {
	Title         string
	Description   string
	StartTime     time.Time
	EndTime       time.Time
	Passcode      string
	CoordinatorID string
	Candidates    []CandidateInput
}

// CandidateResult は開票結果の候補者1行。
type CandidateResult struct {
	CandidateID string  `json:"candidate_id"`
	Name        string  `json:"name"`
	Position    string  `json:"position"`
	Votes       int     `json:"votes"`
	Percentage  float64 `json:"percentage"`
}

// ResultsReport は開票結果レポート。
type ResultsReport struct {
	ElectionID        string            `json:"election_id"`
	Title             string            `json:"title"`
	Candidates        []CandidateResult `json:"candidates"`
	TotalVotes        int               `json:"total_votes"`
	TotalVoters       int               `json:"total_voters"`
	TurnoutPercentage float64           `json:"turnout_percentage"`
}

// Service は選挙管理のサービス層。
// 選挙の作成、削除、開票結果の取得を提供する。
type Service struct {
	elections repository.ElectionRepository
	voters    repository.VoterRepository
	tally     *tally.Service
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	elections repository.ElectionRepository,
	voters repository.VoterRepository,
	tallySvc *tally.Service,
) *Service {
	return &Service{
		elections: elections,
		voters:    voters,
		tally:     tallySvc,
	}
}

// Create は選挙と候補者を同一トランザクションで作成する。
// タイトルとパスコードは必須、候補者は名前付きで1名以上、
// 終了日時は開始日時より前であってはならない。
func (s *Service) Create(ctx context.Context, input CreateInput) (*model.Election, error) {
	if strings.TrimSpace(input.Title) == "" {
		return nil, model.NewInvalidRequestError("タイトルは必須です")
	}
	if strings.TrimSpace(input.Passcode) == "" {
		return nil, model.NewInvalidRequestError("パスコードは必須です")
	}
	if strings.TrimSpace(input.CoordinatorID) == "" {
		return nil, model.NewInvalidRequestError("コーディネーターIDは必須です")
	}
	if input.EndTime.Before(input.StartTime) {
		return nil, model.NewInvalidScheduleError()
	}

	named := make([]CandidateInput, 0, len(input.Candidates))
	for _, c := range input.Candidates {
		if strings.TrimSpace(c.Name) != "" {
			named = append(named, c)
		}
	}
	if len(named) == 0 {
		return nil, model.NewCandidateRequiredError()
	}

	election := &model.Election{
		ID:            uuid.New().String(),
		Title:         strings.TrimSpace(input.Title),
		Description:   input.Description,
		StartTime:     input.StartTime,
		EndTime:       input.EndTime,
		Passcode:      input.Passcode,
		IsActive:      true,
		CoordinatorID: input.CoordinatorID,
		CreatedAt:     time.Now(),
	}
	candidates := make([]*model.Candidate, len(named))
	for i, c := range named {
		candidates[i] = &model.Candidate{
			ID:         uuid.New().String(),
			ElectionID: election.ID,
			Name:       strings.TrimSpace(c.Name),
			Position:   strings.TrimSpace(c.Position),
			Bio:        c.Bio,
		}
	}

	if err := s.elections.CreateWithCandidates(ctx, election, candidates); err != nil {
		return nil, fmt.Errorf("選挙の作成に失敗しました: %w", err)
	}

	slog.Info("election created",
		slog.String("election_id", election.ID),
		slog.String("coordinator_id", election.CoordinatorID),
		slog.Int("candidate_count", len(candidates)),
	)

	return election, nil
}

// Delete は選挙と全依存エンティティを削除する。
// 作成したコーディネーター本人のみが削除できる。
func (s *Service) Delete(ctx context.Context, electionID, coordinatorID string) error {
	election, err := s.elections.FindByID(ctx, electionID)
	if err != nil {
		return fmt.Errorf("選挙の取得に失敗しました: %w", err)
	}
	if election == nil {
		return model.NewElectionNotFoundError(electionID)
	}
	if election.CoordinatorID != coordinatorID {
		return model.NewUnauthorizedCoordinatorError()
	}

	if err := s.elections.DeleteCascade(ctx, electionID); err != nil {
		return fmt.Errorf("選挙の削除に失敗しました: %w", err)
	}

	slog.Info("election deleted",
		slog.String("election_id", electionID),
		slog.String("coordinator_id", coordinatorID),
	)

	return nil
}

// Get は選挙を取得する。見つからない場合はElectionNotFoundを返す。
func (s *Service) Get(ctx context.Context, electionID string) (*model.Election, error) {
	election, err := s.elections.FindByID(ctx, electionID)
	if err != nil {
		return nil, fmt.Errorf("選挙の取得に失敗しました: %w", err)
	}
	if election == nil {
		return nil, model.NewElectionNotFoundError(electionID)
	}
	return election, nil
}

// ListByCoordinator はコーディネーターが作成した選挙の一覧を返す。
func (s *Service) ListByCoordinator(ctx context.Context, coordinatorID string) ([]*model.Election, error) {
	elections, err := s.elections.ListByCoordinator(ctx, coordinatorID)
	if err != nil {
		return nil, fmt.Errorf("選挙一覧の取得に失敗しました: %w", err)
	}
	return elections, nil
}

// Results は開票結果レポートを返す。
// 得票ゼロの候補者も結果に含まれる。
func (s *Service) Results(ctx context.Context, electionID string) (*ResultsReport, error) {
	election, err := s.elections.FindByID(ctx, electionID)
	if err != nil {
		return nil, fmt.Errorf("選挙の取得に失敗しました: %w", err)
	}
	if election == nil {
		return nil, model.NewElectionNotFoundError(electionID)
	}

	counts, err := s.tally.Tally(ctx, electionID)
	if err != nil {
		return nil, err
	}

	totalVoters, err := s.voters.CountByElection(ctx, electionID)
	if err != nil {
		return nil, fmt.Errorf("登録投票者数の取得に失敗しました: %w", err)
	}

	turnout, err := s.tally.Turnout(ctx, electionID)
	if err != nil {
		return nil, err
	}

	totalVotes := 0
	for _, c := range counts {
		totalVotes += c.Votes
	}

	candidates := make([]CandidateResult, len(counts))
	for i, c := range counts {
		result := CandidateResult{
			CandidateID: c.CandidateID,
			Name:        c.Name,
			Position:    c.Position,
			Votes:       c.Votes,
		}
		if totalVotes > 0 {
			result.Percentage = float64(c.Votes) / float64(totalVotes) * 100
		}
		candidates[i] = result
	}

	return &ResultsReport{
		ElectionID:        election.ID,
		Title:             election.Title,
		Candidates:        candidates,
		TotalVotes:        totalVotes,
		TotalVoters:       totalVoters,
		TurnoutPercentage: turnout,
	}, nil
}
