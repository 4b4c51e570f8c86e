// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: vote, election, validation, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeInvalidToken            = "INVALID_TOKEN"
	ErrCodeWrongPasscode           = "WRONG_PASSCODE"
	ErrCodeUnregisteredVoter       = "UNREGISTERED_VOTER"
	ErrCodeTokenAlreadyUsed        = "TOKEN_ALREADY_USED"
	ErrCodeAlreadyVoted            = "ALREADY_VOTED"
	ErrCodeInvalidCandidate        = "INVALID_CANDIDATE"
	ErrCodeTokenConflict           = "TOKEN_CONFLICT"
	ErrCodeElectionNotFound        = "ELECTION_NOT_FOUND"
	ErrCodeUnauthorizedCoordinator = "UNAUTHORIZED_COORDINATOR"
	ErrCodeVoterAlreadyRegistered  = "VOTER_ALREADY_REGISTERED"
	ErrCodeCandidateRequired       = "CANDIDATE_REQUIRED"
	ErrCodeInvalidSchedule         = "INVALID_SCHEDULE"
	ErrCodeInvalidRequest          = "INVALID_REQUEST"
)

// NewInvalidTokenError は無効な投票リンクエラーを生成する。
// 存在しないトークンと使用済みトークンは意図的に区別しない
// （どのリンクが有効だったかを漏らさないため）。
func NewInvalidTokenError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidToken,
		Message:  "無効または期限切れの投票リンクです。",
		Category: "vote",
		Action:   "招待メールに記載されたリンクを確認してください。",
	}
}

// NewWrongPasscodeError はパスコード不一致エラーを生成する。
func NewWrongPasscodeError() *APIError {
	return &APIError{
		Code:     ErrCodeWrongPasscode,
		Message:  "選挙パスコードが正しくありません。",
		Category: "vote",
		Action:   "招待メールに記載されたパスコードを入力してください。",
	}
}

// NewUnregisteredVoterError は未登録メールアドレスエラーを生成する。
func NewUnregisteredVoterError() *APIError {
	return &APIError{
		Code:     ErrCodeUnregisteredVoter,
		Message:  "このメールアドレスはこの選挙に登録されていません。",
		Category: "vote",
		Action:   "招待を受け取ったメールアドレスを入力してください。",
	}
}

// NewTokenAlreadyUsedError は使用済みトークンエラーを生成する。
func NewTokenAlreadyUsedError() *APIError {
	return &APIError{
		Code:     ErrCodeTokenAlreadyUsed,
		Message:  "この投票リンクはすでに使用されています。",
		Category: "vote",
		Action:   "投票は1人1回までです。",
	}
}

// NewAlreadyVotedError は重複投票エラーを生成する。
func NewAlreadyVotedError() *APIError {
	return &APIError{
		Code:     ErrCodeAlreadyVoted,
		Message:  "この選挙にはすでに投票済みです。",
		Category: "vote",
		Action:   "投票は1人1回までです。",
	}
}

// NewInvalidCandidateError は候補者不正エラーを生成する。
func NewInvalidCandidateError(candidateID string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCandidate,
		Message:  fmt.Sprintf("指定された候補者はこの選挙に属していません: %s", candidateID),
		Category: "validation",
		Action:   "候補者一覧から選択し直してください。",
	}
}

// NewTokenConflictError はトークン値衝突エラーを生成する。
// 128bit乱数の衝突は実質発生しないが、契約上は起こり得るものとして扱う。
func NewTokenConflictError() *APIError {
	return &APIError{
		Code:     ErrCodeTokenConflict,
		Message:  "投票トークンの発行に失敗しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewElectionNotFoundError は選挙未検出エラーを生成する。
func NewElectionNotFoundError(electionID string) *APIError {
	return &APIError{
		Code:     ErrCodeElectionNotFound,
		Message:  fmt.Sprintf("指定された選挙が見つかりません: %s", electionID),
		Category: "election",
		Action:   "選挙IDを確認してください。",
	}
}

// NewUnauthorizedCoordinatorError は権限なしエラーを生成する。
func NewUnauthorizedCoordinatorError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorizedCoordinator,
		Message:  "この選挙を操作する権限がありません。",
		Category: "election",
		Action:   "選挙を作成したコーディネーターのみが操作できます。",
	}
}

// NewVoterAlreadyRegisteredError は投票者重複登録エラーを生成する。
func NewVoterAlreadyRegisteredError(email string) *APIError {
	return &APIError{
		Code:     ErrCodeVoterAlreadyRegistered,
		Message:  fmt.Sprintf("このメールアドレスはすでに登録されています: %s", email),
		Category: "validation",
		Action:   "登録済みの投票者一覧を確認してください。",
	}
}

// NewCandidateRequiredError は候補者未指定エラーを生成する。
func NewCandidateRequiredError() *APIError {
	return &APIError{
		Code:     ErrCodeCandidateRequired,
		Message:  "少なくとも1名の候補者を指定してください。",
		Category: "validation",
		Action:   "候補者の名前と役職を入力してください。",
	}
}

// NewInvalidScheduleError は日程不正エラーを生成する。
func NewInvalidScheduleError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidSchedule,
		Message:  "投票終了日時は開始日時より後である必要があります。",
		Category: "validation",
		Action:   "開始日時と終了日時を確認してください。",
	}
}

// NewInvalidRequestError はリクエスト不正エラーを生成する。
func NewInvalidRequestError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  fmt.Sprintf("リクエストが不正です: %s", reason),
		Category: "validation",
		Action:   "入力内容を確認してください。",
	}
}
