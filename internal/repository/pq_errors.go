package repository

import (
	"errors"

	"github.com/lib/pq"
)

// PostgreSQLのユニーク制約違反エラーコード。
const uniqueViolationCode = "23505"

// 制約名。マイグレーションSQLの定義と一致させること。
const (
	constraintVoterElectionEmail = "voters_election_email_key"
	constraintTokenValue         = "tokens_value_key"
	constraintVoteVoterElection  = "votes_voter_election_key"
)

// isUniqueViolation はerrが指定制約のユニーク制約違反かどうかを判定する。
// 制約名で区別することで、同一トランザクション内の複数の制約を
// 異なるセンチネルエラーにマッピングできる。
func isUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return pqErr.Code == uniqueViolationCode && pqErr.Constraint == constraint
}
