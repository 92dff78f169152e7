// Package model はドメインモデルを定義する。
package model

import "time"

// 認証プロバイダー
const (
	ProviderEmail  = "email"
	ProviderGoogle = "google"
)

// Profile はusersテーブルに保存されるユーザープロフィールを表す。
// セッションのID・メールアドレスを写したもので、初回ログイン時に遅延作成される。
type Profile struct {
	ID        string    `db:"id"`
	Email     string    `db:"email"`
	Name      string    `db:"name"`
	AvatarURL string    `db:"avatar_url"`
	Provider  string    `db:"provider"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// IsEditable はプロフィール名を変更可能かを返す。
// ソーシャルログインのプロフィールは読み取り専用とする。
func (p *Profile) IsEditable() bool {
	return p.Provider == ProviderEmail
}

// Account は認証用のアカウントを表す。
// メール認証の場合のみPasswordHashを持つ。
type Account struct {
	ID           string    `db:"id"`
	Email        string    `db:"email"`
	PasswordHash *string   `db:"password_hash"`
	Provider     string    `db:"provider"`
	CreatedAt    time.Time `db:"created_at"`
}

// Identity は外部IdPとの紐付け情報を表す。
type Identity struct {
	ID             string    `db:"id"`
	AccountID      string    `db:"account_id"`
	Provider       string    `db:"provider"`
	ProviderUserID string    `db:"provider_user_id"`
	CreatedAt      time.Time `db:"created_at"`
}

// Session はユーザーのログインセッションを表す。
// Metadataはセッション側が保持するユーザーメタデータのコピー。
type Session struct {
	ID        string
	UserID    string
	Email     string
	Metadata  SessionMetadata
	ExpiresAt time.Time
	CreatedAt time.Time
}
