package media

import (
	"context"
	"database/sql"
	"time"
)

// Repository persists catalog entries.
type Repository interface {
	SaveItem(ctx context.Context, item *Item) error
	DeleteItem(ctx context.Context, id string) error
	ListItems(ctx context.Context) ([]*Item, error)
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) SaveItem(ctx context.Context, it *Item) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO media (id, name, url, kind, status, duration, width, height, aspect_ratio, local, probed, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			url = excluded.url,
			status = excluded.status,
			duration = excluded.duration,
			width = excluded.width,
			height = excluded.height,
			aspect_ratio = excluded.aspect_ratio,
			probed = excluded.probed,
			error = excluded.error
	`, it.ID, it.Name, it.URL, string(it.Kind), string(it.Status), it.Duration, it.Width, it.Height,
		string(it.AspectRatio), boolToInt(it.Local), boolToInt(it.Probed), nullString(it.Error),
		it.CreatedAt.UTC().Format(time.RFC3339Nano))
	return err
}

func (r *SQLiteRepository) DeleteItem(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM media WHERE id = ?", id)
	return err
}

func (r *SQLiteRepository) ListItems(ctx context.Context) ([]*Item, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, url, kind, status, duration, width, height, aspect_ratio, local, probed, error, created_at
		FROM media ORDER BY created_at ASC, id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Item
	for rows.Next() {
		var it Item
		var kind, status, aspect, createdAt string
		var local, probed int
		var errMsg sql.NullString

		if err := rows.Scan(&it.ID, &it.Name, &it.URL, &kind, &status, &it.Duration, &it.Width, &it.Height,
			&aspect, &local, &probed, &errMsg, &createdAt); err != nil {
			return nil, err
		}
		it.Kind = Kind(kind)
		it.Status = Status(status)
		it.AspectRatio = AspectRatio(aspect)
		it.Local = local == 1
		it.Probed = probed == 1
		it.Error = errMsg.String
		it.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		items = append(items, &it)
	}
	return items, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
