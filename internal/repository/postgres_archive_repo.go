package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/hitoshi/ddaytodo/internal/model"
)

// archivedColumns はarchived_todosのカラム（archive_id + todoColumns + archived_at）。
var archivedColumns = func() []string {
	cols := []string{"archive_id"}
	cols = append(cols, todoColumns...)
	return append(cols, "archived_at")
}()

// PostgresArchiveRepo はPostgreSQLを使用したアーカイブリポジトリ。
type PostgresArchiveRepo struct {
	db *sqlx.DB
}

// NewPostgresArchiveRepo はPostgresArchiveRepoを生成する。
func NewPostgresArchiveRepo(db *sqlx.DB) *PostgresArchiveRepo {
	return &PostgresArchiveRepo{db: db}
}

// ArchiveTodos は指定IDの未完了Todoをarchived_todosへ移す。
// todosからの削除（RETURNINGで移動対象を確定）とarchived_todosへの挿入を同一トランザクションで行う。
// is_complete = false の条件により、完了済みのTodoは移動されない。
func (r *PostgresArchiveRepo) ArchiveTodos(ctx context.Context, userID string, ids []string, archivedAt time.Time) ([]model.ArchivedTodo, error) {
	if len(ids) == 0 {
		return []model.ArchivedTodo{}, nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query, args, err := psql.Delete("todos").
		Where(sq.Eq{"user_id": userID, "is_complete": false}).
		Where("id = ANY(?)", pq.Array(ids)).
		Suffix("RETURNING " + strings.Join(todoColumns, ", ")).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	moved := []model.Todo{}
	if err := tx.SelectContext(ctx, &moved, query, args...); err != nil {
		return nil, fmt.Errorf("failed to delete archived todos: %w", err)
	}
	if len(moved) == 0 {
		return []model.ArchivedTodo{}, nil
	}

	archived := make([]model.ArchivedTodo, 0, len(moved))
	insert := psql.Insert("archived_todos").Columns(archivedColumns...)
	for _, t := range moved {
		a := model.ArchivedTodo{Todo: t, ArchiveID: uuid.NewString(), ArchivedAt: archivedAt}
		archived = append(archived, a)
		insert = insert.Values(a.ArchiveID, t.ID, t.UserID, t.Content, t.IsComplete, t.IsPriority, t.CreatedAt,
			t.OriginalOrder, t.Date, t.IsDday, t.DdayDate, t.Color, a.ArchivedAt)
	}

	query, args, err = insert.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("failed to insert archived todos: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return archived, nil
}

// ListArchived はアーカイブをarchived_at降順で返す。
func (r *PostgresArchiveRepo) ListArchived(ctx context.Context, userID string) ([]model.ArchivedTodo, error) {
	query, args, err := psql.Select(archivedColumns...).
		From("archived_todos").
		Where(sq.Eq{"user_id": userID}).
		OrderBy("archived_at DESC", "original_order ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	archived := []model.ArchivedTodo{}
	if err := r.db.SelectContext(ctx, &archived, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list archived todos: %w", err)
	}
	return archived, nil
}

// DeleteArchived はアーカイブを完全に削除する。
func (r *PostgresArchiveRepo) DeleteArchived(ctx context.Context, userID, archiveID string) error {
	b := psql.Delete("archived_todos").Where(sq.Eq{"archive_id": archiveID, "user_id": userID})
	if err := execAffected(ctx, r.db, b); err != nil {
		return fmt.Errorf("failed to delete archived todo: %w", err)
	}
	return nil
}

// compile-time interface check
var _ ArchiveRepository = (*PostgresArchiveRepo)(nil)
