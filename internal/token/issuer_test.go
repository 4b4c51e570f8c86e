package token

import (
	"context"
	"errors"
	"testing"

	"github.com/hitoshi/ballotbox/internal/model"
)

// --- モック ---

type mockTokenRepo struct {
	findActiveByValueFn func(ctx context.Context, value string) (*model.Token, error)
}

func (m *mockTokenRepo) FindActiveByValue(ctx context.Context, value string) (*model.Token, error) {
	if m.findActiveByValueFn != nil {
		return m.findActiveByValueFn(ctx, value)
	}
	return nil, nil
}
func (m *mockTokenRepo) FindByID(ctx context.Context, id string) (*model.Token, error) {
	return nil, nil
}

// --- テスト ---

// TestIssuer_Mint_GeneratesUniqueValues はMintが呼び出しごとに
// 異なる32文字の16進値を生成することを検証する。
func TestIssuer_Mint_GeneratesUniqueValues(t *testing.T) {
	issuer := NewIssuer(&mockTokenRepo{})

	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		tok, err := issuer.Mint("voter-1", "election-1")
		if err != nil {
			t.Fatalf("Mint returned error: %v", err)
		}
		if len(tok.Value) != 32 {
			t.Fatalf("token value length = %d, want 32", len(tok.Value))
		}
		if seen[tok.Value] {
			t.Fatalf("duplicate token value generated: %s", tok.Value)
		}
		seen[tok.Value] = true
	}
}

// TestIssuer_Mint_BindsVoterAndElection はトークンが(voter, election)ペアに
// 正しく紐づき、未使用状態で生成されることを検証する。
func TestIssuer_Mint_BindsVoterAndElection(t *testing.T) {
	issuer := NewIssuer(&mockTokenRepo{})

	tok, err := issuer.Mint("voter-42", "election-7")
	if err != nil {
		t.Fatalf("Mint returned error: %v", err)
	}

	if tok.VoterID != "voter-42" {
		t.Errorf("VoterID = %q, want %q", tok.VoterID, "voter-42")
	}
	if tok.ElectionID != "election-7" {
		t.Errorf("ElectionID = %q, want %q", tok.ElectionID, "election-7")
	}
	if tok.IsUsed {
		t.Error("expected newly minted token to be unused")
	}
	if tok.ID == "" {
		t.Error("expected non-empty token ID")
	}
	if tok.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be set")
	}
}

// TestIssuer_FindActive_ReturnsActiveToken はアクティブなトークンが返ることを検証する。
func TestIssuer_FindActive_ReturnsActiveToken(t *testing.T) {
	want := &model.Token{ID: "token-1", Value: "abc", IsUsed: false}
	repo := &mockTokenRepo{
		findActiveByValueFn: func(ctx context.Context, value string) (*model.Token, error) {
			if value == "abc" {
				return want, nil
			}
			return nil, nil
		},
	}
	issuer := NewIssuer(repo)

	got, err := issuer.FindActive(context.Background(), "abc")
	if err != nil {
		t.Fatalf("FindActive returned error: %v", err)
	}
	if got != want {
		t.Errorf("FindActive returned %+v, want %+v", got, want)
	}
}

// TestIssuer_FindActive_UnknownValueReturnsNil は未知の値でnilが返ることを検証する。
// 使用済みトークンも同じ経路でnilになるため、呼び出し側は両者を区別できない。
func TestIssuer_FindActive_UnknownValueReturnsNil(t *testing.T) {
	issuer := NewIssuer(&mockTokenRepo{})

	got, err := issuer.FindActive(context.Background(), "no-such-token")
	if err != nil {
		t.Fatalf("FindActive returned error: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for unknown token value, got %+v", got)
	}
}

// TestIssuer_FindActive_WrapsRepositoryError はリポジトリのエラーが
// ラップされて伝播することを検証する。
func TestIssuer_FindActive_WrapsRepositoryError(t *testing.T) {
	repoErr := errors.New("connection refused")
	repo := &mockTokenRepo{
		findActiveByValueFn: func(ctx context.Context, value string) (*model.Token, error) {
			return nil, repoErr
		},
	}
	issuer := NewIssuer(repo)

	_, err := issuer.FindActive(context.Background(), "abc")
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !errors.Is(err, repoErr) {
		t.Errorf("expected wrapped repository error, got %v", err)
	}
}
