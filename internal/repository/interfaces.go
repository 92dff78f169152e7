// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"time"

	"github.com/hitoshi/ddaytodo/internal/calendar"
	"github.com/hitoshi/ddaytodo/internal/model"
)

// TodoRepository はTodoの永続化インターフェース。
// すべての操作はユーザーIDでスコープされる。
type TodoRepository interface {
	// ListByDate は指定日のTodoをoriginal_order順で返す。
	ListByDate(ctx context.Context, userID string, day calendar.Day) ([]model.Todo, error)

	// CountByUser はユーザーの全Todo件数を返す。
	CountByUser(ctx context.Context, userID string) (int, error)

	// InsertBatch は複数のTodoを1文で挿入する。
	InsertBatch(ctx context.Context, todos []model.Todo) error

	// FindByID は指定IDのTodoを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, userID, id string) (*model.Todo, error)

	SetComplete(ctx context.Context, userID, id string, value bool) error
	SetPriority(ctx context.Context, userID, id string, value bool) error

	// SetColor は色を更新する。nilの場合は色をクリアする。
	SetColor(ctx context.Context, userID, id string, color *string) error

	// SetDate はTodoを別の日付へ移動する。
	SetDate(ctx context.Context, userID, id string, day calendar.Day) error

	// SetDday はdday_date・dateを指定日にしてis_ddayを立て、更新後の行を返す。
	SetDday(ctx context.Context, userID, id string, day calendar.Day) (*model.Todo, error)

	// ClearDday はis_ddayを落としdday_dateをNULLにする。
	ClearDday(ctx context.Context, userID, id string) error

	Delete(ctx context.Context, userID, id string) error

	// ListIncomplete はユーザーの未完了Todoを全日付から返す。
	ListIncomplete(ctx context.Context, userID string) ([]model.Todo, error)

	// ListDdays はD-Day設定済みのTodoをdday_date順で返す。
	ListDdays(ctx context.Context, userID string) ([]model.Todo, error)

	// MonthSummary は[first, last]の日別件数と完了件数を返す。
	MonthSummary(ctx context.Context, userID string, first, last calendar.Day) ([]model.DaySummary, error)
}

// ArchiveRepository はアーカイブ済みTodoの永続化インターフェース。
type ArchiveRepository interface {
	// ArchiveTodos は指定IDの未完了Todoをarchived_todosへ移す。
	// 削除と複製は同一トランザクションで行い、完了済みのTodoは対象外とする。
	ArchiveTodos(ctx context.Context, userID string, ids []string, archivedAt time.Time) ([]model.ArchivedTodo, error)

	// ListArchived はアーカイブをarchived_at降順で返す。
	ListArchived(ctx context.Context, userID string) ([]model.ArchivedTodo, error)

	// DeleteArchived はアーカイブを完全に削除する。
	DeleteArchived(ctx context.Context, userID, archiveID string) error
}

// ProfileRepository はusersテーブル（プロフィール）の永続化インターフェース。
type ProfileRepository interface {
	// FindByID は指定IDのプロフィールを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Profile, error)

	// Upsert はプロフィールを作成する。既に存在する場合は何もしない。
	Upsert(ctx context.Context, profile *model.Profile) error

	// UpdateName は表示名を更新する。
	UpdateName(ctx context.Context, id, name string, updatedAt time.Time) error
}

// AccountRepository は認証用アカウントの永続化インターフェース。
type AccountRepository interface {
	// FindByID は指定IDのアカウントを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Account, error)

	// FindByEmail はメールアドレスでアカウントを検索する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.Account, error)

	// Create はアカウントを作成する。メールアドレスが重複する場合はErrDuplicateを返す。
	Create(ctx context.Context, account *model.Account) error

	// CreateWithIdentity はアカウントとidentityを同一トランザクションで作成する。
	CreateWithIdentity(ctx context.Context, account *model.Account, identity *model.Identity) error
}

// IdentityRepository は外部IdP紐付け情報の永続化インターフェース。
type IdentityRepository interface {
	// FindByProviderAndProviderUserID はproviderとprovider_user_idでidentityを検索する。
	// 見つからない場合はnilを返す。
	FindByProviderAndProviderUserID(ctx context.Context, provider, providerUserID string) (*model.Identity, error)
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。Metadataはsessions.dataに保存される。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// ExtendExpiry はセッションの有効期限を更新する。
	ExtendExpiry(ctx context.Context, id string, expiresAt time.Time) error
	// UpdateFullName はユーザーの全セッションのfull_nameを書き換え、更新件数を返す。
	UpdateFullName(ctx context.Context, userID, fullName string) (int64, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteByUserID は指定ユーザーの全セッションを削除する。
	DeleteByUserID(ctx context.Context, userID string) error
	// DeleteExpired は期限切れセッションを削除し、削除件数を返す。
	DeleteExpired(ctx context.Context) (int64, error)
}
