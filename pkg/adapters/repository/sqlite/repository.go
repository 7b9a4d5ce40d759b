package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/tursodatabase/libsql-client-go/libsql" // Turso driver
	"github.com/wadjakorntonsri/shortlink-engine/pkg/core/domain"
	"github.com/wadjakorntonsri/shortlink-engine/pkg/ports"
	msqlite "modernc.org/sqlite" // Local SQLite driver
	sqlite3 "modernc.org/sqlite/lib"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbURL string) (*SQLiteRepository, error) {
	driverName := "sqlite"
	if strings.Contains(dbURL, "libsql://") || strings.Contains(dbURL, "wss://") {
		driverName = "libsql"
	}

	db, err := sql.Open(driverName, dbURL)
	if err != nil {
		return nil, err
	}

	if driverName == "sqlite" {
		// One writer at a time; concurrent click writes otherwise trip SQLITE_BUSY.
		db.SetMaxOpenConns(1)
		_, _ = db.Exec("PRAGMA busy_timeout = 5000;")
		_, _ = db.Exec("PRAGMA journal_mode = WAL;")
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}

	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func migrate(db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS short_links (
		id TEXT PRIMARY KEY,
		short_code TEXT NOT NULL UNIQUE,
		original_url TEXT NOT NULL,
		title TEXT,
		owner_id TEXT,
		clicks INTEGER NOT NULL DEFAULT 0,
		expires_at DATETIME,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_short_links_owner ON short_links(owner_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_short_links_expires_at ON short_links(expires_at);
	`
	_, err := db.Exec(query)
	return err
}

func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Create inserts link. A taken short code is reported as domain.ErrConflict.
func (r *SQLiteRepository) Create(ctx context.Context, link *domain.ShortLink) error {
	query := `INSERT INTO short_links (id, short_code, original_url, title, owner_id, clicks, expires_at, created_at, updated_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	var expiresAt interface{}
	if link.ExpiresAt != nil {
		expiresAt = link.ExpiresAt.UTC()
	}

	_, err := r.db.ExecContext(ctx, query,
		link.ID, link.Code, link.TargetURL, nullString(link.Title), link.OwnerID,
		link.ClickCount, expiresAt, link.CreatedAt.UTC(), link.UpdatedAt.UTC(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.NewError(domain.KindConflict, fmt.Sprintf("short code %q already exists", link.Code))
		}
		return fmt.Errorf("insert link: %w", err)
	}
	return nil
}

const selectColumns = `SELECT id, short_code, original_url, title, owner_id, clicks, expires_at, created_at, updated_at FROM short_links`

func (r *SQLiteRepository) GetByCode(ctx context.Context, code string) (*domain.ShortLink, error) {
	return r.getOne(ctx, selectColumns+` WHERE short_code = ?`, code)
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*domain.ShortLink, error) {
	return r.getOne(ctx, selectColumns+` WHERE id = ?`, id)
}

func (r *SQLiteRepository) getOne(ctx context.Context, query string, arg string) (*domain.ShortLink, error) {
	link, err := scanLink(r.db.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return link, nil
}

func (r *SQLiteRepository) ExistsByCode(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM short_links WHERE short_code = ?)`, code).Scan(&exists)
	return exists, err
}

// IncrementClicks adds one click and touches updated_at in a single
// statement. An unknown code is domain.ErrNotFound.
func (r *SQLiteRepository) IncrementClicks(ctx context.Context, code string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `UPDATE short_links SET clicks = clicks + 1, updated_at = ? WHERE short_code = ?`, at.UTC(), code)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM short_links WHERE id = ?`, id)
	return err
}

func (r *SQLiteRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM short_links WHERE expires_at IS NOT NULL AND expires_at < ?`, before.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *SQLiteRepository) ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]domain.ShortLink, error) {
	query := selectColumns + ` WHERE owner_id = ? ORDER BY created_at DESC LIMIT ? OFFSET ?`
	return r.list(ctx, query, ownerID, limit, offset)
}

func (r *SQLiteRepository) CountByOwner(ctx context.Context, ownerID string) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM short_links WHERE owner_id = ?`, ownerID).Scan(&count)
	return count, err
}

func (r *SQLiteRepository) Stats(ctx context.Context) (*domain.LinkStats, error) {
	var st domain.LinkStats
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*), COALESCE(SUM(clicks), 0) FROM short_links`).Scan(&st.TotalLinks, &st.TotalClicks)
	if err != nil {
		return nil, err
	}
	if st.TotalLinks > 0 {
		st.AvgClicks = float64(st.TotalClicks) / float64(st.TotalLinks)
	}
	return &st, nil
}

// Dump returns every stored link, expired ones included.
func (r *SQLiteRepository) Dump(ctx context.Context) ([]domain.ShortLink, error) {
	return r.list(ctx, selectColumns+` ORDER BY created_at ASC`)
}

func (r *SQLiteRepository) list(ctx context.Context, query string, args ...interface{}) ([]domain.ShortLink, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var links []domain.ShortLink
	for rows.Next() {
		l, err := scanLink(rows)
		if err != nil {
			return nil, err
		}
		links = append(links, *l)
	}
	return links, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanLink(s scanner) (*domain.ShortLink, error) {
	var link domain.ShortLink
	var title, ownerID sql.NullString
	var expiresAt sql.NullTime

	err := s.Scan(
		&link.ID, &link.Code, &link.TargetURL, &title, &ownerID, &link.ClickCount,
		&expiresAt, &link.CreatedAt, &link.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	link.Title = title.String
	if ownerID.Valid {
		owner := ownerID.String
		link.OwnerID = &owner
	}
	if expiresAt.Valid {
		t := expiresAt.Time.UTC()
		link.ExpiresAt = &t
	}
	link.CreatedAt = link.CreatedAt.UTC()
	link.UpdatedAt = link.UpdatedAt.UTC()
	return &link, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func isUniqueViolation(err error) bool {
	var se *msqlite.Error
	if errors.As(err, &se) {
		return se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE || se.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	// libsql reports constraint failures as plain text.
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

var _ ports.LinkRepository = (*SQLiteRepository)(nil)
