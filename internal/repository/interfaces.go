// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/hitoshi/ballotbox/internal/model"
)

// ユニーク制約違反をサービス層へ伝えるためのセンチネルエラー。
// どの制約に違反したかで区別する。
var (
	// ErrDuplicateVote は(voter_id, election_id)制約違反を表す。
	// 同時送信レースの敗者が受け取る、重複投票に対する最終的な安全装置。
	ErrDuplicateVote = errors.New("duplicate vote for voter and election")

	// ErrDuplicateTokenValue はトークン値のグローバルユニーク制約違反を表す。
	// 呼び出し側は新しい値で再試行する。
	ErrDuplicateTokenValue = errors.New("duplicate token value")

	// ErrDuplicateVoter は(election_id, email)制約違反を表す。
	ErrDuplicateVoter = errors.New("voter already registered for election")

	// ErrTokenAlreadyConsumed は消費トランザクション内の再チェックで
	// トークンがすでに使用済みだったことを表す。
	ErrTokenAlreadyConsumed = errors.New("token already consumed")
)

// ElectionRepository は選挙データの永続化インターフェース。
type ElectionRepository interface {
	// FindByID は指定IDの選挙を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Election, error)

	// CreateWithCandidates は選挙と候補者を同一トランザクションで作成する。
	CreateWithCandidates(ctx context.Context, election *model.Election, candidates []*model.Candidate) error

	// DeleteCascade は選挙と全依存エンティティを単一トランザクションで削除する。
	// 削除順序: votes → tokens → voters → candidates → elections。
	// 孤児レコードを残さない。
	DeleteCascade(ctx context.Context, electionID string) error

	// ListByCoordinator はコーディネーターが作成した選挙の一覧を返す。
	ListByCoordinator(ctx context.Context, coordinatorID string) ([]*model.Election, error)
}

// CandidateRepository は候補者データの永続化インターフェース。
type CandidateRepository interface {
	// FindByID は指定IDの候補者を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Candidate, error)

	// ListByElection は選挙の候補者一覧を返す。
	ListByElection(ctx context.Context, electionID string) ([]*model.Candidate, error)
}

// VoterRepository は投票者データの永続化インターフェース。
type VoterRepository interface {
	// FindByEmail は(email, election_id)で投票者を検索する。見つからない場合はnilを返す。
	// emailは小文字化済みであることを前提とする。
	FindByEmail(ctx context.Context, electionID, email string) (*model.Voter, error)

	// CreateWithToken は投票者とトークンを同一トランザクションで作成する。
	// コミット単位を分けると、クラッシュ時にトークンを持たない投票者が残るため。
	// (election_id, email)重複時はErrDuplicateVoter、
	// トークン値衝突時はErrDuplicateTokenValueを返す。
	CreateWithToken(ctx context.Context, voter *model.Voter, token *model.Token) error

	// CountByElection は選挙の登録投票者数を返す。
	CountByElection(ctx context.Context, electionID string) (int, error)

	// ListByElection は選挙の投票者一覧を返す。
	ListByElection(ctx context.Context, electionID string) ([]*model.Voter, error)
}

// TokenRepository はワンタイムトークンの永続化インターフェース。
type TokenRepository interface {
	// FindActiveByValue はis_used = falseのトークンをトークン値で検索する。
	// 使用済みと存在しない値はどちらもnilを返し、呼び出し側からは区別できない
	// （どのリンクが有効だったかを漏らさないため）。
	FindActiveByValue(ctx context.Context, value string) (*model.Token, error)

	// FindByID は指定IDのトークンを使用済みか否かに関わらず取得する。
	// 見つからない場合はnilを返す。防御的再読込に使用する。
	FindByID(ctx context.Context, id string) (*model.Token, error)
}

// CandidateVoteCount は候補者と得票数の集計行。
// 得票ゼロの候補者も行として現れる（LEFT JOIN集計）。
type CandidateVoteCount struct {
	CandidateID string
	Name        string
	Position    string
	Votes       int
}

// VoteRepository は投票記録の永続化インターフェース。
type VoteRepository interface {
	// FindByVoterAndElection は(voter_id, election_id)で投票を検索する。
	// 見つからない場合はnilを返す。
	FindByVoterAndElection(ctx context.Context, voterID, electionID string) (*model.Vote, error)

	// CreateAndConsumeToken は投票の記録とトークンの消費を単一トランザクションで行う。
	// 両方コミットされるか、どちらも永続化されないかのいずれか。
	// トークンがすでに使用済みの場合はErrTokenAlreadyConsumed、
	// (voter_id, election_id)制約違反の場合はErrDuplicateVoteを返し、
	// どちらの場合もトークンのis_usedフラグは変更されない（ロールバック）。
	CreateAndConsumeToken(ctx context.Context, vote *model.Vote, tokenID string) error

	// CountByElection は選挙の総投票数を返す。
	CountByElection(ctx context.Context, electionID string) (int, error)

	// CountByCandidate は選挙の候補者別得票数を返す。
	// 得票ゼロの候補者も0票として含まれる。
	CountByCandidate(ctx context.Context, electionID string) ([]CandidateVoteCount, error)
}

// TxBeginner はトランザクション開始用のインターフェース。
type TxBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}
