package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/ballotbox/internal/model"
)

// PostgresVoterRepo はPostgreSQLを使用した投票者リポジトリ。
type PostgresVoterRepo struct {
	db *sql.DB
}

// NewPostgresVoterRepo はPostgresVoterRepoを生成する。
func NewPostgresVoterRepo(db *sql.DB) *PostgresVoterRepo {
	return &PostgresVoterRepo{db: db}
}

// FindByEmail は(email, election_id)で投票者を検索する。見つからない場合はnilを返す。
func (r *PostgresVoterRepo) FindByEmail(ctx context.Context, electionID, email string) (*model.Voter, error) {
	voter := &model.Voter{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, election_id, email, phone, created_at
		 FROM voters WHERE election_id = $1 AND email = $2`,
		electionID, email,
	).Scan(&voter.ID, &voter.ElectionID, &voter.Email, &voter.Phone, &voter.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find voter by email: %w", err)
	}

	return voter, nil
}

// CreateWithToken は投票者とトークンを同一トランザクションで作成する。
// コミットが分かれていると、クラッシュ時にトークンを持たない投票者が残るため。
func (r *PostgresVoterRepo) CreateWithToken(ctx context.Context, voter *model.Voter, token *model.Token) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// 投票者を作成
	_, err = tx.ExecContext(ctx,
		`INSERT INTO voters (id, election_id, email, phone, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		voter.ID, voter.ElectionID, voter.Email, voter.Phone, voter.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, constraintVoterElectionEmail) {
			return ErrDuplicateVoter
		}
		return fmt.Errorf("failed to insert voter: %w", err)
	}

	// トークンを作成
	_, err = tx.ExecContext(ctx,
		`INSERT INTO tokens (id, value, election_id, voter_id, is_used, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		token.ID, token.Value, token.ElectionID, token.VoterID, token.IsUsed, token.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, constraintTokenValue) {
			return ErrDuplicateTokenValue
		}
		return fmt.Errorf("failed to insert token: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// CountByElection は選挙の登録投票者数を返す。
func (r *PostgresVoterRepo) CountByElection(ctx context.Context, electionID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM voters WHERE election_id = $1`,
		electionID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count voters: %w", err)
	}
	return count, nil
}

// ListByElection は選挙の投票者一覧を返す。
func (r *PostgresVoterRepo) ListByElection(ctx context.Context, electionID string) ([]*model.Voter, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, election_id, email, phone, created_at
		 FROM voters WHERE election_id = $1 ORDER BY created_at`,
		electionID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list voters: %w", err)
	}
	defer rows.Close()

	var voters []*model.Voter
	for rows.Next() {
		v := &model.Voter{}
		if err := rows.Scan(&v.ID, &v.ElectionID, &v.Email, &v.Phone, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan voter: %w", err)
		}
		voters = append(voters, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate voters: %w", err)
	}

	return voters, nil
}

// compile-time interface check
var _ VoterRepository = (*PostgresVoterRepo)(nil)
