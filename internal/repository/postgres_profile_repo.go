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

var profileColumns = []string{"id", "email", "name", "avatar_url", "provider", "created_at", "updated_at"}

// PostgresProfileRepo はPostgreSQLを使用したプロフィールリポジトリ。
type PostgresProfileRepo struct {
	db *sqlx.DB
}

// NewPostgresProfileRepo はPostgresProfileRepoを生成する。
func NewPostgresProfileRepo(db *sqlx.DB) *PostgresProfileRepo {
	return &PostgresProfileRepo{db: db}
}

// FindByID は指定IDのプロフィールを取得する。見つからない場合はnilを返す。
func (r *PostgresProfileRepo) FindByID(ctx context.Context, id string) (*model.Profile, error) {
	query, args, err := psql.Select(profileColumns...).
		From("users").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	var profile model.Profile
	err = r.db.GetContext(ctx, &profile, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find profile by ID: %w", err)
	}
	return &profile, nil
}

// Upsert はプロフィールを作成する。既に存在する場合は何もしない。
func (r *PostgresProfileRepo) Upsert(ctx context.Context, profile *model.Profile) error {
	query, args, err := psql.Insert("users").
		Columns(profileColumns...).
		Values(profile.ID, profile.Email, profile.Name, profile.AvatarURL, profile.Provider,
			profile.CreatedAt, profile.UpdatedAt).
		Suffix("ON CONFLICT (id) DO NOTHING").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to upsert profile: %w", err)
	}
	return nil
}

// UpdateName は表示名を更新する。
func (r *PostgresProfileRepo) UpdateName(ctx context.Context, id, name string, updatedAt time.Time) error {
	b := psql.Update("users").
		Set("name", name).
		Set("updated_at", updatedAt).
		Where(sq.Eq{"id": id})
	if err := execAffected(ctx, r.db, b); err != nil {
		return fmt.Errorf("failed to update profile name: %w", err)
	}
	return nil
}

// compile-time interface check
var _ ProfileRepository = (*PostgresProfileRepo)(nil)
