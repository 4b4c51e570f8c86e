package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/ballotbox/internal/model"
)

// PostgresTokenRepo はPostgreSQLを使用したトークンリポジトリ。
type PostgresTokenRepo struct {
	db *sql.DB
}

// NewPostgresTokenRepo はPostgresTokenRepoを生成する。
func NewPostgresTokenRepo(db *sql.DB) *PostgresTokenRepo {
	return &PostgresTokenRepo{db: db}
}

// FindActiveByValue はis_used = falseのトークンをトークン値で検索する。
// 使用済みと存在しない値はどちらもnilを返す。
func (r *PostgresTokenRepo) FindActiveByValue(ctx context.Context, value string) (*model.Token, error) {
	token := &model.Token{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, value, election_id, voter_id, is_used, created_at
		 FROM tokens WHERE value = $1 AND is_used = FALSE`,
		value,
	).Scan(&token.ID, &token.Value, &token.ElectionID, &token.VoterID, &token.IsUsed, &token.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find active token: %w", err)
	}

	return token, nil
}

// FindByID は指定IDのトークンを使用済みか否かに関わらず取得する。
// 見つからない場合はnilを返す。
func (r *PostgresTokenRepo) FindByID(ctx context.Context, id string) (*model.Token, error) {
	token := &model.Token{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, value, election_id, voter_id, is_used, created_at
		 FROM tokens WHERE id = $1`,
		id,
	).Scan(&token.ID, &token.Value, &token.ElectionID, &token.VoterID, &token.IsUsed, &token.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find token by ID: %w", err)
	}

	return token, nil
}

// compile-time interface check
var _ TokenRepository = (*PostgresTokenRepo)(nil)
