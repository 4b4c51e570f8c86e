package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/ballotbox/internal/model"
)

// PostgresCandidateRepo はPostgreSQLを使用した候補者リポジトリ。
type PostgresCandidateRepo struct {
	db *sql.DB
}

// NewPostgresCandidateRepo はPostgresCandidateRepoを生成する。
func NewPostgresCandidateRepo(db *sql.DB) *PostgresCandidateRepo {
	return &PostgresCandidateRepo{db: db}
}

// FindByID は指定IDの候補者を取得する。見つからない場合はnilを返す。
func (r *PostgresCandidateRepo) FindByID(ctx context.Context, id string) (*model.Candidate, error) {
	candidate := &model.Candidate{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, election_id, name, position, bio FROM candidates WHERE id = $1`,
		id,
	).Scan(&candidate.ID, &candidate.ElectionID, &candidate.Name, &candidate.Position, &candidate.Bio)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find candidate by ID: %w", err)
	}

	return candidate, nil
}

// ListByElection は選挙の候補者一覧を返す。
func (r *PostgresCandidateRepo) ListByElection(ctx context.Context, electionID string) ([]*model.Candidate, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, election_id, name, position, bio FROM candidates WHERE election_id = $1 ORDER BY name`,
		electionID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list candidates: %w", err)
	}
	defer rows.Close()

	var candidates []*model.Candidate
	for rows.Next() {
		c := &model.Candidate{}
		if err := rows.Scan(&c.ID, &c.ElectionID, &c.Name, &c.Position, &c.Bio); err != nil {
			return nil, fmt.Errorf("failed to scan candidate: %w", err)
		}
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate candidates: %w", err)
	}

	return candidates, nil
}

// compile-time interface check
var _ CandidateRepository = (*PostgresCandidateRepo)(nil)
