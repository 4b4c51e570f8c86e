package election

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hitoshi/ballotbox/internal/model"
	"github.com/hitoshi/ballotbox/internal/repository"
	"github.com/hitoshi/ballotbox/internal/tally"
)

// --- モック ---

type mockElectionRepo struct {
	findByIDFn             func(ctx context.Context, id string) (*model.Election, error)
	createWithCandidatesFn func(ctx context.Context, election *model.Election, candidates []*model.Candidate) error
	deleteCascadeFn        func(ctx context.Context, electionID string) error
}

func (m *mockElectionRepo) FindByID(ctx context.Context, id string) (*model.Election, error) {
	return m.findByIDFn(ctx, id)
}
func (m *mockElectionRepo) CreateWithCandidates(ctx context.Context, election *model.Election, candidates []*model.Candidate) error {
	return m.createWithCandidatesFn(ctx, election, candidates)
}
func (m *mockElectionRepo) DeleteCascade(ctx context.Context, electionID string) error {
	return m.deleteCascadeFn(ctx, electionID)
}
func (m *mockElectionRepo) ListByCoordinator(ctx context.Context, coordinatorID string) ([]*model.Election, error) {
	return nil, nil
}

type mockVoterRepo struct {
	countByElectionFn func(ctx context.Context, electionID string) (int, error)
}

func (m *mockVoterRepo) FindByEmail(ctx context.Context, electionID, email string) (*model.Voter, error) {
	return nil, nil
}
func (m *mockVoterRepo) CreateWithToken(ctx context.Context, voter *model.Voter, token *model.Token) error {
	return nil
}
func (m *mockVoterRepo) CountByElection(ctx context.Context, electionID string) (int, error) {
	if m.countByElectionFn != nil {
		return m.countByElectionFn(ctx, electionID)
	}
	return 0, nil
}
func (m *mockVoterRepo) ListByElection(ctx context.Context, electionID string) ([]*model.Voter, error) {
	return nil, nil
}

type mockVoteRepo struct {
	countByElectionFn  func(ctx context.Context, electionID string) (int, error)
	countByCandidateFn func(ctx context.Context, electionID string) ([]repository.CandidateVoteCount, error)
}

func (m *mockVoteRepo) FindByVoterAndElection(ctx context.Context, voterID, electionID string) (*model.Vote, error) {
	return nil, nil
}
func (m *mockVoteRepo) CreateAndConsumeToken(ctx context.Context, vote *model.Vote, tokenID string) error {
	return nil
}
func (m *mockVoteRepo) CountByElection(ctx context.Context, electionID string) (int, error) {
	if m.countByElectionFn != nil {
		return m.countByElectionFn(ctx, electionID)
	}
	return 0, nil
}
func (m *mockVoteRepo) CountByCandidate(ctx context.Context, electionID string) ([]repository.CandidateVoteCount, error) {
	if m.countByCandidateFn != nil {
		return m.countByCandidateFn(ctx, electionID)
	}
	return nil, nil
}

func assertAPIErrorCode(t *testing.T, err error, wantCode string) {
	t.Helper()
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != wantCode {
		t.Fatalf("error code = %s, want %s", apiErr.Code, wantCode)
	}
}

func validInput() CreateInput {
	return CreateInput{
		Title:         "生徒会長選挙",
		Description:   "2026年度",
		StartTime:     time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC),
		EndTime:       time.Date(2026, 9, 1, 17, 0, 0, 0, time.UTC),
		Passcode:      "ABC123",
		CoordinatorID: "coord-1",
		Candidates: []CandidateInput{
			{Name: "Alice", Position: "President"},
			{Name: "Carol", Position: "President"},
		},
	}
}

// --- テスト ---

func TestCreate_Success(t *testing.T) {
	var gotElection *model.Election
	var gotCandidates []*model.Candidate
	elections := &mockElectionRepo{
		createWithCandidatesFn: func(ctx context.Context, election *model.Election, candidates []*model.Candidate) error {
			gotElection = election
			gotCandidates = candidates
			return nil
		},
	}
	svc := NewService(elections, &mockVoterRepo{}, nil)

	created, err := svc.Create(context.Background(), validInput())
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	if created.ID == "" {
		t.Error("expected non-empty election ID")
	}
	if !created.IsActive {
		t.Error("expected new election to be active")
	}
	if gotElection != created {
		t.Error("expected the created election to be persisted")
	}
	if len(gotCandidates) != 2 {
		t.Fatalf("candidate count = %d, want 2", len(gotCandidates))
	}
	for _, c := range gotCandidates {
		if c.ElectionID != created.ID {
			t.Errorf("candidate election ID = %s, want %s", c.ElectionID, created.ID)
		}
		if c.ID == "" {
			t.Error("expected non-empty candidate ID")
		}
	}
}

func TestCreate_Validation(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*CreateInput)
		wantCode string
	}{
		{
			name:     "タイトル必須",
			mutate:   func(in *CreateInput) { in.Title = "  " },
			wantCode: model.ErrCodeInvalidRequest,
		},
		{
			name:     "パスコード必須",
			mutate:   func(in *CreateInput) { in.Passcode = "" },
			wantCode: model.ErrCodeInvalidRequest,
		},
		{
			name:     "コーディネーターID必須",
			mutate:   func(in *CreateInput) { in.CoordinatorID = "" },
			wantCode: model.ErrCodeInvalidRequest,
		},
		{
			name: "終了が開始より前",
			mutate: func(in *CreateInput) {
				in.EndTime = in.StartTime.Add(-time.Hour)
			},
			wantCode: model.ErrCodeInvalidSchedule,
		},
		{
			name:     "候補者なし",
			mutate:   func(in *CreateInput) { in.Candidates = nil },
			wantCode: model.ErrCodeCandidateRequired,
		},
		{
			name: "名前のない候補者のみ",
			mutate: func(in *CreateInput) {
				in.Candidates = []CandidateInput{{Name: "  ", Position: "President"}}
			},
			wantCode: model.ErrCodeCandidateRequired,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			elections := &mockElectionRepo{
				createWithCandidatesFn: func(ctx context.Context, election *model.Election, candidates []*model.Candidate) error {
					t.Fatal("CreateWithCandidates must not be called on validation failure")
					return nil
				},
			}
			svc := NewService(elections, &mockVoterRepo{}, nil)

			input := validInput()
			tt.mutate(&input)
			_, err := svc.Create(context.Background(), input)
			assertAPIErrorCode(t, err, tt.wantCode)
		})
	}
}

// TestCreate_SkipsUnnamedCandidates は名前が空の候補者入力が
// 無視されることを検証する。
func TestCreate_SkipsUnnamedCandidates(t *testing.T) {
	var gotCandidates []*model.Candidate
	elections := &mockElectionRepo{
		createWithCandidatesFn: func(ctx context.Context, election *model.Election, candidates []*model.Candidate) error {
			gotCandidates = candidates
			return nil
		},
	}
	svc := NewService(elections, &mockVoterRepo{}, nil)

	input := validInput()
	input.Candidates = []CandidateInput{
		{Name: "Alice", Position: "President"},
		{Name: "", Position: "Treasurer"},
	}
	if _, err := svc.Create(context.Background(), input); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if len(gotCandidates) != 1 {
		t.Fatalf("candidate count = %d, want 1", len(gotCandidates))
	}
	if gotCandidates[0].Name != "Alice" {
		t.Errorf("candidate name = %s, want Alice", gotCandidates[0].Name)
	}
}

func TestDelete_Success(t *testing.T) {
	deleted := false
	elections := &mockElectionRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Election, error) {
			return &model.Election{ID: id, CoordinatorID: "coord-1"}, nil
		},
		deleteCascadeFn: func(ctx context.Context, electionID string) error {
			deleted = true
			return nil
		},
	}
	svc := NewService(elections, &mockVoterRepo{}, nil)

	if err := svc.Delete(context.Background(), "election-1", "coord-1"); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if !deleted {
		t.Error("expected DeleteCascade to be called")
	}
}

func TestDelete_NotFound(t *testing.T) {
	elections := &mockElectionRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Election, error) {
			return nil, nil
		},
	}
	svc := NewService(elections, &mockVoterRepo{}, nil)

	err := svc.Delete(context.Background(), "no-such-election", "coord-1")
	assertAPIErrorCode(t, err, model.ErrCodeElectionNotFound)
}

// TestDelete_UnauthorizedCoordinator は作成者以外のコーディネーターによる
// 削除が拒否されることを検証する。
func TestDelete_UnauthorizedCoordinator(t *testing.T) {
	elections := &mockElectionRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Election, error) {
			return &model.Election{ID: id, CoordinatorID: "coord-1"}, nil
		},
		deleteCascadeFn: func(ctx context.Context, electionID string) error {
			t.Fatal("DeleteCascade must not be called for a non-owner")
			return nil
		},
	}
	svc := NewService(elections, &mockVoterRepo{}, nil)

	err := svc.Delete(context.Background(), "election-1", "coord-2")
	assertAPIErrorCode(t, err, model.ErrCodeUnauthorizedCoordinator)
}

func TestResults_Report(t *testing.T) {
	elections := &mockElectionRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Election, error) {
			return &model.Election{ID: id, Title: "生徒会長選挙", CoordinatorID: "coord-1"}, nil
		},
	}
	votes := &mockVoteRepo{
		countByElectionFn: func(ctx context.Context, electionID string) (int, error) {
			return 3, nil
		},
		countByCandidateFn: func(ctx context.Context, electionID string) ([]repository.CandidateVoteCount, error) {
			return []repository.CandidateVoteCount{
				{CandidateID: "cand-1", Name: "Alice", Position: "President", Votes: 3},
				{CandidateID: "cand-2", Name: "Carol", Position: "President", Votes: 0},
			}, nil
		},
	}
	voters := &mockVoterRepo{
		countByElectionFn: func(ctx context.Context, electionID string) (int, error) {
			return 4, nil
		},
	}
	svc := NewService(elections, voters, tally.NewService(votes, voters))

	report, err := svc.Results(context.Background(), "election-1")
	if err != nil {
		t.Fatalf("Results returned error: %v", err)
	}

	if report.TotalVotes != 3 {
		t.Errorf("TotalVotes = %d, want 3", report.TotalVotes)
	}
	if report.TotalVoters != 4 {
		t.Errorf("TotalVoters = %d, want 4", report.TotalVoters)
	}
	if report.TurnoutPercentage != 75 {
		t.Errorf("TurnoutPercentage = %v, want 75", report.TurnoutPercentage)
	}
	if len(report.Candidates) != 2 {
		t.Fatalf("candidate count = %d, want 2", len(report.Candidates))
	}
	if report.Candidates[0].Percentage != 100 {
		t.Errorf("Alice percentage = %v, want 100", report.Candidates[0].Percentage)
	}
	if report.Candidates[1].Votes != 0 {
		t.Errorf("zero-vote candidate must appear with 0 votes, got %d", report.Candidates[1].Votes)
	}
}

func TestResults_ElectionNotFound(t *testing.T) {
	elections := &mockElectionRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Election, error) {
			return nil, nil
		},
	}
	svc := NewService(elections, &mockVoterRepo{}, nil)

	_, err := svc.Results(context.Background(), "no-such-election")
	assertAPIErrorCode(t, err, model.ErrCodeElectionNotFound)
}
