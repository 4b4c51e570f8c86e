// Package model はドメインモデルを定義する。
package model

import "time"

// Election は1回の選挙を表す。
// コーディネーターが作成し、削除時は依存エンティティ
// （Candidate, Voter, Token, Vote）を道連れに削除する。
type Election struct {
	ID            string
	Title         string
	Description   string
	StartTime     time.Time
	EndTime       time.Time
	Passcode      string // 選挙単位の共有シークレット
	IsActive      bool
	CoordinatorID string
	CreatedAt     time.Time
}

// Candidate は選挙の立候補者を表す。
// ちょうど1つのElectionに属する。
type Candidate struct {
	ID         string
	ElectionID string
	Name       string
	Position   string
	Bio        string
}
