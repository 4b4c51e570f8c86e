package repository

import (
	"testing"
)

// 各PostgresリポジトリがリポジトリインターフェースをDB接続なしで満たすことを検証

func TestPostgresElectionRepo_ImplementsInterface(t *testing.T) {
	var _ ElectionRepository = (*PostgresElectionRepo)(nil)
}

func TestPostgresCandidateRepo_ImplementsInterface(t *testing.T) {
	var _ CandidateRepository = (*PostgresCandidateRepo)(nil)
}

func TestPostgresVoterRepo_ImplementsInterface(t *testing.T) {
	var _ VoterRepository = (*PostgresVoterRepo)(nil)
}

func TestPostgresTokenRepo_ImplementsInterface(t *testing.T) {
	var _ TokenRepository = (*PostgresTokenRepo)(nil)
}

func TestPostgresVoteRepo_ImplementsInterface(t *testing.T) {
	var _ VoteRepository = (*PostgresVoteRepo)(nil)
}

// 各コンストラクタが正しく初期化されることを検証

func TestNewPostgresElectionRepo_Initializes(t *testing.T) {
	if NewPostgresElectionRepo(nil) == nil {
		t.Fatal("expected non-nil repo")
	}
}

func TestNewPostgresCandidateRepo_Initializes(t *testing.T) {
	if NewPostgresCandidateRepo(nil) == nil {
		t.Fatal("expected non-nil repo")
	}
}

func TestNewPostgresVoterRepo_Initializes(t *testing.T) {
	if NewPostgresVoterRepo(nil) == nil {
		t.Fatal("expected non-nil repo")
	}
}

func TestNewPostgresTokenRepo_Initializes(t *testing.T) {
	if NewPostgresTokenRepo(nil) == nil {
		t.Fatal("expected non-nil repo")
	}
}

func TestNewPostgresVoteRepo_Initializes(t *testing.T) {
	if NewPostgresVoteRepo(nil) == nil {
		t.Fatal("expected non-nil repo")
	}
}
