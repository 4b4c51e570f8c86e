package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/ballotbox/internal/model"
)

// PostgresVoteRepo はPostgreSQLを使用した投票リポジトリ。
type PostgresVoteRepo struct {
	db *sql.DB
}

// NewPostgresVoteRepo はPostgresVoteRepoを生成する。
func NewPostgresVoteRepo(db *sql.DB) *PostgresVoteRepo {
	return &PostgresVoteRepo{db: db}
}

// FindByVoterAndElection は(voter_id, election_id)で投票を検索する。
// 見つからない場合はnilを返す。
func (r *PostgresVoteRepo) FindByVoterAndElection(ctx context.Context, voterID, electionID string) (*model.Vote, error) {
	vote := &model.Vote{}
	var dbVoterID sql.NullString
	err := r.db.QueryRowContext(ctx,
		`SELECT id, candidate_id, election_id, voter_id, created_at
		 FROM votes WHERE voter_id = $1 AND election_id = $2`,
		voterID, electionID,
	).Scan(&vote.ID, &vote.CandidateID, &vote.ElectionID, &dbVoterID, &vote.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find vote: %w", err)
	}

	vote.VoterID = dbVoterID.String
	return vote, nil
}

// CreateAndConsumeToken は投票の記録とトークンの消費を単一トランザクションで行う。
//
// トークンの消費を条件付きUPDATE（is_used = FALSEの行のみ）で先に行うことで、
// 同一トークンの同時送信をトークン行のロックで直列化する。
// 投票のINSERTが(voter_id, election_id)制約に違反した場合は
// トランザクション全体をロールバックし、is_usedフラグも元に戻る。
// 「消費されたのに投票が記録されていない」状態は到達不能。
func (r *PostgresVoteRepo) CreateAndConsumeToken(ctx context.Context, vote *model.Vote, tokenID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// トークンを消費。is_used = FALSE条件で、使用済みなら0行更新となる。
	result, err := tx.ExecContext(ctx,
		`UPDATE tokens SET is_used = TRUE WHERE id = $1 AND is_used = FALSE`,
		tokenID,
	)
	if err != nil {
		return fmt.Errorf("failed to consume token: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrTokenAlreadyConsumed
	}

	// 投票を記録
	var voterID interface{}
	if vote.VoterID != "" {
		voterID = vote.VoterID
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO votes (id, candidate_id, election_id, voter_id, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		vote.ID, vote.CandidateID, vote.ElectionID, voterID, vote.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, constraintVoteVoterElection) {
			return ErrDuplicateVote
		}
		return fmt.Errorf("failed to insert vote: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// CountByElection は選挙の総投票数を返す。
func (r *PostgresVoteRepo) CountByElection(ctx context.Context, electionID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM votes WHERE election_id = $1`,
		electionID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count votes: %w", err)
	}
	return count, nil
}

// CountByCandidate は選挙の候補者別得票数を返す。
// LEFT JOINにより得票ゼロの候補者も0票の行として含まれる。
func (r *PostgresVoteRepo) CountByCandidate(ctx context.Context, electionID string) ([]CandidateVoteCount, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT c.id, c.name, c.position, COUNT(v.id)
		 FROM candidates c
		 LEFT JOIN votes v ON v.candidate_id = c.id
		 WHERE c.election_id = $1
		 GROUP BY c.id, c.name, c.position
		 ORDER BY c.name`,
		electionID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to count votes by candidate: %w", err)
	}
	defer rows.Close()

	var counts []CandidateVoteCount
	for rows.Next() {
		var c CandidateVoteCount
		if err := rows.Scan(&c.CandidateID, &c.Name, &c.Position, &c.Votes); err != nil {
			return nil, fmt.Errorf("failed to scan vote count: %w", err)
		}
		counts = append(counts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate vote counts: %w", err)
	}

	return counts, nil
}

// compile-time interface check
var _ VoteRepository = (*PostgresVoteRepo)(nil)
