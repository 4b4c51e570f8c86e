package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/ballotbox/internal/model"
)

// PostgresElectionRepo はPostgreSQLを使用した選挙リポジトリ。
type PostgresElectionRepo struct {
	db *sql.DB
}

// NewPostgresElectionRepo はPostgresElectionRepoを生成する。
func NewPostgresElectionRepo(db *sql.DB) *PostgresElectionRepo {
	return &PostgresElectionRepo{db: db}
}

// FindByID は指定IDの選挙を取得する。見つからない場合はnilを返す。
func (r *PostgresElectionRepo) FindByID(ctx context.Context, id string) (*model.Election, error) {
	election := &model.Election{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, title, description, start_time, end_time, passcode, is_active, coordinator_id, created_at
		 FROM elections WHERE id = $1`,
		id,
	).Scan(
		&election.ID, &election.Title, &election.Description,
		&election.StartTime, &election.EndTime, &election.Passcode,
		&election.IsActive, &election.CoordinatorID, &election.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find election by ID: %w", err)
	}

	return election, nil
}

// CreateWithCandidates は選挙と候補者を同一トランザクションで作成する。
func (r *PostgresElectionRepo) CreateWithCandidates(ctx context.Context, election *model.Election, candidates []*model.Candidate) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// 選挙を作成
	_, err = tx.ExecContext(ctx,
		`INSERT INTO elections (id, title, description, start_time, end_time, passcode, is_active, coordinator_id, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		election.ID, election.Title, election.Description,
		election.StartTime, election.EndTime, election.Passcode,
		election.IsActive, election.CoordinatorID, election.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert election: %w", err)
	}

	// 候補者を作成
	for _, c := range candidates {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO candidates (id, election_id, name, position, bio)
			 VALUES ($1, $2, $3, $4, $5)`,
			c.ID, c.ElectionID, c.Name, c.Position, c.Bio,
		)
		if err != nil {
			return fmt.Errorf("failed to insert candidate: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// DeleteCascade は選挙と全依存エンティティを単一トランザクションで削除する。
// 外部キー制約を満たす順序（votes → tokens → voters → candidates → elections）で
// 明示的に削除し、孤児レコードを残さない。
func (r *PostgresElectionRepo) DeleteCascade(ctx context.Context, electionID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	deletes := []string{
		`DELETE FROM votes WHERE election_id = $1`,
		`DELETE FROM tokens WHERE election_id = $1`,
		`DELETE FROM voters WHERE election_id = $1`,
		`DELETE FROM candidates WHERE election_id = $1`,
	}
	for _, q := range deletes {
		if _, err := tx.ExecContext(ctx, q, electionID); err != nil {
			return fmt.Errorf("failed to delete election dependents: %w", err)
		}
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM elections WHERE id = $1`, electionID)
	if err != nil {
		return fmt.Errorf("failed to delete election: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("election not found: %s", electionID)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// ListByCoordinator はコーディネーターが作成した選挙の一覧を返す。
func (r *PostgresElectionRepo) ListByCoordinator(ctx context.Context, coordinatorID string) ([]*model.Election, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, title, description, start_time, end_time, passcode, is_active, coordinator_id, created_at
		 FROM elections WHERE coordinator_id = $1 ORDER BY created_at DESC`,
		coordinatorID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list elections: %w", err)
	}
	defer rows.Close()

	var elections []*model.Election
	for rows.Next() {
		e := &model.Election{}
		if err := rows.Scan(
			&e.ID, &e.Title, &e.Description,
			&e.StartTime, &e.EndTime, &e.Passcode,
			&e.IsActive, &e.CoordinatorID, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan election: %w", err)
		}
		elections = append(elections, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate elections: %w", err)
	}

	return elections, nil
}

// compile-time interface check
var _ ElectionRepository = (*PostgresElectionRepo)(nil)
