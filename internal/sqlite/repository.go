package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/blackmichael/collabboard/internal/domain"
	"github.com/blackmichael/collabboard/internal/search"
	_ "modernc.org/sqlite"
)

const schema = `
	CREATE TABLE IF NOT EXISTS activists (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		interest TEXT NOT NULL,
		location TEXT NOT NULL,
		signal_username TEXT NOT NULL,
		alias TEXT,
		password_hash TEXT,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS activists_created_at ON activists (created_at);
	CREATE TABLE IF NOT EXISTS admin_credentials (
		name TEXT PRIMARY KEY,
		password_hash TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	);`

// adminName keys the single admin credential record.
const adminName = "admin"

// Repository implements domain.PostRepository and domain.AdminRepository
// using an embedded SQLite database. Timestamps are stored as unix
// milliseconds.
type Repository struct {
	db  *sql.DB
	now func() time.Time
}

// NewRepository opens (or creates) the SQLite database at path, applies the
// schema and returns a new Repository. The caller should call Close when the
// repository is no longer needed.
func NewRepository(path string) (*Repository, error) {
	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// SQLite serializes writers anyway; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Repository{db: db, now: time.Now}, nil
}

// Close closes the underlying database connection.
func (r *Repository) Close() error {
	return r.db.Close()
}

// CreatePost inserts a new post and fills in its ID and CreatedAt.
func (r *Repository) CreatePost(ctx context.Context, post *domain.Post) error {
	createdAt := r.now().UTC().Truncate(time.Millisecond)

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO activists (interest, location, signal_username, alias, password_hash, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		post.Interest,
		post.Location,
		post.SignalUsername,
		nullable(post.Alias),
		nullable(post.PasswordHash),
		createdAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("insert post: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("read post id: %w", err)
	}

	post.ID = id
	post.CreatedAt = createdAt
	return nil
}

// GetPost retrieves a post by id.
func (r *Repository) GetPost(ctx context.Context, id int64) (*domain.Post, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, interest, location, signal_username, COALESCE(alias, ''), COALESCE(password_hash, ''), created_at
		FROM activists
		WHERE id = ?`, id)

	post, err := scanPost(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return post, nil
}

// UpdatePost replaces the editable fields of a post.
func (r *Repository) UpdatePost(ctx context.Context, id int64, fields domain.PostFields) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE activists
		SET interest = ?, location = ?, signal_username = ?, alias = ?
		WHERE id = ?`,
		fields.Interest,
		fields.Location,
		fields.SignalUsername,
		nullable(fields.Alias),
		id,
	)
	if err != nil {
		return fmt.Errorf("update post: %w", err)
	}
	return requireRow(res)
}

// DeletePost removes a post by id.
func (r *Repository) DeletePost(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM activists WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	return requireRow(res)
}

// SearchPosts lists posts matching filter, newest first.
func (r *Repository) SearchPosts(ctx context.Context, filter domain.SearchFilter) ([]domain.Post, error) {
	var (
		where []string
		args  []any
	)

	if !filter.Since.IsZero() {
		args = append(args, filter.Since.UnixMilli())
		where = append(where, "created_at >= ?")
	}

	if q := search.Parse(filter.Keyword); q != nil {
		var clause string
		clause, args = q.SQL("interest", "LIKE", args, search.QuestionMark)
		where = append(where, clause)
	}

	if filter.Location != "" {
		args = append(args, search.ContainsPattern(filter.Location))
		where = append(where, `location LIKE ? ESCAPE '\'`)
	}

	query := `
		SELECT id, interest, location, signal_username, COALESCE(alias, ''), COALESCE(password_hash, ''), created_at
		FROM activists`
	if len(where) > 0 {
		query += "\n\t\tWHERE " + strings.Join(where, " AND ")
	}
	query += "\n\t\tORDER BY created_at DESC, id DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query posts: %w", err)
	}
	defer rows.Close()

	var posts []domain.Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, *p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate posts: %w", err)
	}

	return posts, nil
}

// GetAdminHash returns the stored admin password hash.
func (r *Repository) GetAdminHash(ctx context.Context) (string, error) {
	var hash string
	err := r.db.QueryRowContext(ctx,
		`SELECT password_hash FROM admin_credentials WHERE name = ?`, adminName,
	).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", domain.ErrAdminNotConfigured
	}
	if err != nil {
		return "", fmt.Errorf("query admin credential: %w", err)
	}
	return hash, nil
}

// InitAdminHash creates the admin record unless one already exists.
func (r *Repository) InitAdminHash(ctx context.Context, hash string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO admin_credentials (name, password_hash, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (name) DO NOTHING`,
		adminName, hash, r.now().UTC().UnixMilli(),
	)
	if err != nil {
		return false, fmt.Errorf("insert admin credential: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n == 1, nil
}

// SwapAdminHash replaces the admin hash only if it still equals oldHash.
func (r *Repository) SwapAdminHash(ctx context.Context, oldHash, newHash string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE admin_credentials
		SET password_hash = ?, updated_at = ?
		WHERE name = ? AND password_hash = ?`,
		newHash, r.now().UTC().UnixMilli(), adminName, oldHash,
	)
	if err != nil {
		return fmt.Errorf("update admin credential: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return domain.ErrConflict
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPost(s scanner) (*domain.Post, error) {
	var (
		p         domain.Post
		createdAt int64
	)
	err := s.Scan(
		&p.ID,
		&p.Interest,
		&p.Location,
		&p.SignalUsername,
		&p.Alias,
		&p.PasswordHash,
		&createdAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scan post: %w", err)
	}
	p.CreatedAt = time.UnixMilli(createdAt).UTC()
	return &p, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
