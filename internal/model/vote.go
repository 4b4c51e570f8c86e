// Package model はドメインモデルを定義する。
package model

import "time"

// Vote は記録済みの1票を表す。
// (voter_id, election_id) のユニーク制約により、同一投票者の重複投票を
// データベースレベルで防ぐ。作成後は変更・削除されない（選挙削除時を除く）。
type Vote struct {
	ID          string
	CandidateID string
	ElectionID  string
	VoterID     string // 任意参照。空の場合は匿名票として扱う
	CreatedAt   time.Time
}

// VoteReceipt は投票成功の不透明なマーカー。
// 投票内容は含めない（UIが選択を表示する必要をなくすため）。
type VoteReceipt struct {
	ReceiptID string
	VotedAt   time.Time
}
