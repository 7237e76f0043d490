package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/blackmichael/collabboard/internal/domain"
	"github.com/blackmichael/collabboard/internal/search"
	_ "github.com/lib/pq"
)

const schema = `
	CREATE TABLE IF NOT EXISTS activists (
		id BIGSERIAL PRIMARY KEY,
		interest TEXT NOT NULL,
		location TEXT NOT NULL,
		signal_username TEXT NOT NULL,
		alias TEXT,
		password_hash TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	CREATE INDEX IF NOT EXISTS activists_created_at ON activists (created_at DESC);
	CREATE TABLE IF NOT EXISTS admin_credentials (
		name TEXT PRIMARY KEY,
		password_hash TEXT NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	);`

const adminName = "admin"

// Repository implements domain.PostRepository and domain.AdminRepository
// using PostgreSQL.
type Repository struct {
	db *sql.DB
}

// NewRepository connects to PostgreSQL at the given URL, verifies the
// connection, applies the schema and returns a new Repository. The caller
// should call Close when the repository is no longer needed.
func NewRepository(databaseURL string) (*Repository, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Repository{db: db}, nil
}

// Close closes the underlying database connection.
func (r *Repository) Close() error {
	return r.db.Close()
}

// CreatePost inserts a new post and fills in its ID and CreatedAt.
func (r *Repository) CreatePost(ctx context.Context, post *domain.Post) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO activists (interest, location, signal_username, alias, password_hash)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`,
		post.Interest,
		post.Location,
		post.SignalUsername,
		nullable(post.Alias),
		nullable(post.PasswordHash),
	).Scan(&post.ID, &post.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert post: %w", err)
	}
	post.CreatedAt = post.CreatedAt.UTC()
	return nil
}

// GetPost retrieves a post by id.
func (r *Repository) GetPost(ctx context.Context, id int64) (*domain.Post, error) {
	var p domain.Post
	err := r.db.QueryRowContext(ctx, `
		SELECT id, interest, location, signal_username, COALESCE(alias, ''), COALESCE(password_hash, ''), created_at
		FROM activists
		WHERE id = $1`, id,
	).Scan(
		&p.ID,
		&p.Interest,
		&p.Location,
		&p.SignalUsername,
		&p.Alias,
		&p.PasswordHash,
		&p.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query post %d: %w", id, err)
	}
	p.CreatedAt = p.CreatedAt.UTC()
	return &p, nil
}

// UpdatePost replaces the editable fields of a post.
func (r *Repository) UpdatePost(ctx context.Context, id int64, fields domain.PostFields) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE activists
		SET interest = $1, location = $2, signal_username = $3, alias = $4
		WHERE id = $5`,
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
	res, err := r.db.ExecContext(ctx, `DELETE FROM activists WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	return requireRow(res)
}

// SearchPosts lists posts matching filter, newest first. Keyword and
// location matches use ILIKE so they ignore case like SQLite's LIKE does.
func (r *Repository) SearchPosts(ctx context.Context, filter domain.SearchFilter) ([]domain.Post, error) {
	var (
		where []string
		args  []any
	)

	if !filter.Since.IsZero() {
		args = append(args, filter.Since.UTC())
		where = append(where, fmt.Sprintf("created_at >= $%d", len(args)))
	}

	if q := search.Parse(filter.Keyword); q != nil {
		var clause string
		clause, args = q.SQL("interest", "ILIKE", args, search.Dollar)
		where = append(where, clause)
	}

	if filter.Location != "" {
		args = append(args, search.ContainsPattern(filter.Location))
		where = append(where, fmt.Sprintf(`location ILIKE $%d ESCAPE '\'`, len(args)))
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
		return nil, fmt.Errorf("query posts (%d args): %w", len(args), err)
	}
	defer rows.Close()

	var posts []domain.Post
	for rows.Next() {
		var p domain.Post
		err := rows.Scan(
			&p.ID,
			&p.Interest,
			&p.Location,
			&p.SignalUsername,
			&p.Alias,
			&p.PasswordHash,
			&p.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		p.CreatedAt = p.CreatedAt.UTC()
		posts = append(posts, p)
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
		`SELECT password_hash FROM admin_credentials WHERE name = $1`, adminName,
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
		VALUES ($1, $2, $3)
		ON CONFLICT (name) DO NOTHING`,
		adminName, hash, time.Now().UTC(),
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
		SET password_hash = $1, updated_at = $2
		WHERE name = $3 AND password_hash = $4`,
		newHash, time.Now().UTC(), adminName, oldHash,
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
