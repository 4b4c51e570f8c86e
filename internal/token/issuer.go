// Package token はワンタイム投票トークンの発行と検索を提供する。
package token

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/ballotbox/internal/model"
	"github.com/hitoshi/ballotbox/internal/repository"
)

// MaxIssueAttempts はトークン値衝突時の再試行上限。
// 128bit乱数の衝突確率は想定トークン数では無視できるため、
// 上限到達は実質的に発生しない（契約上は起こり得るものとして扱う）。
const MaxIssueAttempts = 3

// Issuer はワンタイム投票トークンの発行器。
// トークンは(voter, election)ペアに紐づき、発行後はIsUsedフラグ以外イミュータブル。
type Issuer struct {
	tokens repository.TokenRepository
}

// NewIssuer はIssuerを生成する。
func NewIssuer(tokens repository.TokenRepository) *Issuer {
	return &Issuer{tokens: tokens}
}

// Mint は投票者と選挙に紐づく未永続のトークンを生成する。
// 値は128bitの暗号論的乱数を16進エンコードしたもの（32文字）。
// 永続化は投票者作成と同一トランザクションで行うため、呼び出し側
// （登録フロー）がVoterRepository.CreateWithTokenに渡す。
func (i *Issuer) Mint(voterID, electionID string) (*model.Token, error) {
	value, err := generateTokenValue()
	if err != nil {
		return nil, fmt.Errorf("failed to generate token value: %w", err)
	}

	return &model.Token{
		ID:         uuid.New().String(),
		Value:      value,
		ElectionID: electionID,
		VoterID:    voterID,
		IsUsed:     false,
		CreatedAt:  time.Now(),
	}, nil
}

// FindActive はis_used = falseのトークンをトークン値で検索する。
// 使用済みと存在しない値はどちらもnilを返し、呼び出し側からは区別できない。
func (i *Issuer) FindActive(ctx context.Context, value string) (*model.Token, error) {
	t, err := i.tokens.FindActiveByValue(ctx, value)
	if err != nil {
		return nil, fmt.Errorf("トークンの検索に失敗しました: %w", err)
	}
	return t, nil
}

// generateTokenValue は暗号的に安全なトークン値を生成する。
func generateTokenValue() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
