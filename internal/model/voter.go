// Package model はドメインモデルを定義する。
package model

import "time"

// Voter は選挙に登録された投票者を表す。
// emailは選挙内でユニーク（グローバルではない）。
// Tokenとは1:1で、登録時に同一トランザクションで作成される。
type Voter struct {
	ID         string
	ElectionID string
	Email      string
	Phone      string
	CreatedAt  time.Time
}

// Token は1回限りの投票トークンを表す。
// Valueは全選挙を通じてグローバルにユニークで、公開投票リンクの唯一のキーとなる。
// IsUsedは投票成功時に false → true へちょうど1回だけ遷移し、二度と戻らない。
type Token struct {
	ID         string
	Value      string
	ElectionID string
	VoterID    string
	IsUsed     bool
	CreatedAt  time.Time
}
