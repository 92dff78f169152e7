package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, todo, profile, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeUnauthorized             = "UNAUTHORIZED"
	ErrCodeInvalidRequest           = "INVALID_REQUEST"
	ErrCodeEmptyTodo                = "EMPTY_TODO"
	ErrCodeBatchTooLarge            = "BATCH_TOO_LARGE"
	ErrCodeInvalidDate              = "INVALID_DATE"
	ErrCodeInvalidMonth             = "INVALID_MONTH"
	ErrCodeInvalidColor             = "INVALID_COLOR"
	ErrCodeTodoNotFound             = "TODO_NOT_FOUND"
	ErrCodeArchivedTodoNotFound     = "ARCHIVED_TODO_NOT_FOUND"
	ErrCodeUserNotFound             = "USER_NOT_FOUND"
	ErrCodeProfileReadOnly          = "PROFILE_READ_ONLY"
	ErrCodeInvalidName              = "INVALID_NAME"
	ErrCodeProfileSessionSyncFailed = "PROFILE_SESSION_SYNC_FAILED"
	ErrCodeEmailTaken               = "EMAIL_TAKEN"
	ErrCodeInvalidEmail             = "INVALID_EMAIL"
	ErrCodeWeakPassword             = "WEAK_PASSWORD"
	ErrCodeInvalidCredentials       = "INVALID_CREDENTIALS"
)

// NewUnauthorizedError は未認証エラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインしてください。",
	}
}

// NewInvalidRequestError はリクエストボディの解析失敗エラーを生成する。
func NewInvalidRequestError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  "リクエストボディの解析に失敗しました。",
		Category: "validation",
		Action:   "正しいJSON形式でリクエストしてください。",
	}
}

// NewEmptyTodoError は入力がすべて空だった場合のエラーを生成する。
func NewEmptyTodoError() *APIError {
	return &APIError{
		Code:     ErrCodeEmptyTodo,
		Message:  "やることが入力されていません。",
		Category: "validation",
		Action:   "1件以上のやることを入力してください。",
	}
}

// NewBatchTooLargeError は一括登録の件数超過エラーを生成する。
func NewBatchTooLargeError(limit int) *APIError {
	return &APIError{
		Code:     ErrCodeBatchTooLarge,
		Message:  fmt.Sprintf("一度に登録できるやることは%d件までです。", limit),
		Category: "validation",
		Action:   "件数を減らして再度登録してください。",
	}
}

// NewInvalidDateError は日付形式エラーを生成する。
func NewInvalidDateError(value string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidDate,
		Message:  fmt.Sprintf("無効な日付です: %s", value),
		Category: "validation",
		Action:   "日付はYYYY-MM-DD形式で指定してください。",
	}
}

// NewInvalidMonthError は月指定の形式エラーを生成する。
func NewInvalidMonthError(value string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidMonth,
		Message:  fmt.Sprintf("無効な月です: %s", value),
		Category: "validation",
		Action:   "月はYYYY-MM形式で指定してください。",
	}
}

// NewInvalidColorError は表示色の形式エラーを生成する。
func NewInvalidColorError(value string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidColor,
		Message:  fmt.Sprintf("無効な色です: %s", value),
		Category: "validation",
		Action:   "色は#RRGGBB形式で指定してください。",
	}
}

// NewTodoNotFoundError はTodo未検出エラーを生成する。
func NewTodoNotFoundError(todoID string) *APIError {
	return &APIError{
		Code:     ErrCodeTodoNotFound,
		Message:  fmt.Sprintf("指定されたやることが見つかりません: %s", todoID),
		Category: "todo",
		Action:   "一覧を更新してから再度お試しください。",
	}
}

// NewArchivedTodoNotFoundError はアーカイブ済みTodo未検出エラーを生成する。
func NewArchivedTodoNotFoundError(archiveID string) *APIError {
	return &APIError{
		Code:     ErrCodeArchivedTodoNotFound,
		Message:  fmt.Sprintf("指定されたアーカイブが見つかりません: %s", archiveID),
		Category: "todo",
		Action:   "アーカイブ一覧を更新してから再度お試しください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewProfileReadOnlyError はソーシャルログインのプロフィール変更エラーを生成する。
func NewProfileReadOnlyError(provider string) *APIError {
	return &APIError{
		Code:     ErrCodeProfileReadOnly,
		Message:  fmt.Sprintf("%sでログインしたプロフィールは変更できません。", provider),
		Category: "profile",
		Action:   "ログインに使用したサービス側でプロフィールを変更してください。",
	}
}

// NewInvalidNameError は表示名のバリデーションエラーを生成する。
func NewInvalidNameError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidName,
		Message:  "名前が空、または長すぎます。",
		Category: "validation",
		Action:   "1文字以上100文字以内の名前を入力してください。",
	}
}

// NewProfileSessionSyncFailedError はプロフィール保存後のセッション同期失敗エラーを生成する。
// プロフィール自体は更新済みである。
func NewProfileSessionSyncFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeProfileSessionSyncFailed,
		Message:  "プロフィールは更新されましたが、ログイン情報への反映に失敗しました。",
		Category: "profile",
		Action:   "ログインし直すと表示名が反映されます。",
	}
}

// NewEmailTakenError はメールアドレス重複エラーを生成する。
func NewEmailTakenError() *APIError {
	return &APIError{
		Code:     ErrCodeEmailTaken,
		Message:  "このメールアドレスは既に登録されています。",
		Category: "auth",
		Action:   "ログインするか、別のメールアドレスを使用してください。",
	}
}

// NewInvalidEmailError はメールアドレス形式エラーを生成する。
func NewInvalidEmailError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidEmail,
		Message:  "メールアドレスの形式が正しくありません。",
		Category: "validation",
		Action:   "正しいメールアドレスを入力してください。",
	}
}

// NewWeakPasswordError はパスワード強度不足エラーを生成する。
func NewWeakPasswordError(minLength int) *APIError {
	return &APIError{
		Code:     ErrCodeWeakPassword,
		Message:  fmt.Sprintf("パスワードは%d文字以上必要です。", minLength),
		Category: "validation",
		Action:   "より長いパスワードを設定してください。",
	}
}

// NewInvalidCredentialsError は認証情報不一致エラーを生成する。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "メールアドレスまたはパスワードが正しくありません。",
		Category: "auth",
		Action:   "入力内容を確認して再度ログインしてください。",
	}
}
