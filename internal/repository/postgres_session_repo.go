package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/hitoshi/ddaytodo/internal/model"
)

// PostgresSessionRepo はPostgreSQLを使用したセッションリポジトリ。
type PostgresSessionRepo struct {
	db *sqlx.DB
}

// NewPostgresSessionRepo はPostgresSessionRepoを生成する。
func NewPostgresSessionRepo(db *sqlx.DB) *PostgresSessionRepo {
	return &PostgresSessionRepo{db: db}
}

// sessionRow はsessionsとaccountsを結合した行。
type sessionRow struct {
	ID        string    `db:"id"`
	UserID    string    `db:"user_id"`
	Email     string    `db:"email"`
	Data      []byte    `db:"data"`
	ExpiresAt time.Time `db:"expires_at"`
	CreatedAt time.Time `db:"created_at"`
}

// Create はセッションを作成する。Metadataはsessions.dataに保存される。
func (r *PostgresSessionRepo) Create(ctx context.Context, session *model.Session) error {
	data, err := model.MarshalSessionMetadata(session.Metadata)
	if err != nil {
		return err
	}

	query, args, err := psql.Insert("sessions").
		Columns("id", "user_id", "data", "expires_at", "created_at").
		Values(session.ID, session.UserID, data, session.ExpiresAt, session.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
func (r *PostgresSessionRepo) FindByID(ctx context.Context, id string) (*model.Session, error) {
	query, args, err := psql.Select("s.id", "s.user_id", "a.email", "s.data", "s.expires_at", "s.created_at").
		From("sessions s").
		Join("accounts a ON a.id = s.user_id").
		Where(sq.Eq{"s.id": id}).
		Where("s.expires_at > now()").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	var row sessionRow
	err = r.db.GetContext(ctx, &row, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}

	md, err := model.ParseSessionMetadata(row.Data)
	if err != nil {
		return nil, err
	}

	return &model.Session{
		ID:        row.ID,
		UserID:    row.UserID,
		Email:     row.Email,
		Metadata:  md,
		ExpiresAt: row.ExpiresAt,
		CreatedAt: row.CreatedAt,
	}, nil
}

// ExtendExpiry はセッションの有効期限を更新する。
func (r *PostgresSessionRepo) ExtendExpiry(ctx context.Context, id string, expiresAt time.Time) error {
	b := psql.Update("sessions").
		Set("expires_at", expiresAt).
		Where(sq.Eq{"id": id})
	if err := execAffected(ctx, r.db, b); err != nil {
		return fmt.Errorf("failed to extend session: %w", err)
	}
	return nil
}

// UpdateFullName はユーザーの全セッションのfull_nameを書き換え、更新件数を返す。
// data内の他のキーは保持する。
func (r *PostgresSessionRepo) UpdateFullName(ctx context.Context, userID, fullName string) (int64, error) {
	query, args, err := psql.Update("sessions").
		Set("data", sq.Expr("jsonb_set(data, '{full_name}', to_jsonb(?::text))", fullName)).
		Where(sq.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build query: %w", err)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to update session metadata: %w", err)
	}
	return result.RowsAffected()
}

// DeleteByID は指定IDのセッションを削除する。
func (r *PostgresSessionRepo) DeleteByID(ctx context.Context, id string) error {
	return r.delete(ctx, sq.Eq{"id": id})
}

// DeleteByUserID は指定ユーザーの全セッションを削除する。
func (r *PostgresSessionRepo) DeleteByUserID(ctx context.Context, userID string) error {
	return r.delete(ctx, sq.Eq{"user_id": userID})
}

func (r *PostgresSessionRepo) delete(ctx context.Context, where sq.Sqlizer) error {
	query, args, err := psql.Delete("sessions").Where(where).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteExpired は期限切れセッションを削除し、削除件数を返す。
func (r *PostgresSessionRepo) DeleteExpired(ctx context.Context) (int64, error) {
	query, args, err := psql.Delete("sessions").Where("expires_at <= now()").ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build query: %w", err)
	}
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	return result.RowsAffected()
}

// compile-time interface check
var _ SessionRepository = (*PostgresSessionRepo)(nil)
