package domain

import (
	"context"
)

// PostRepository defines persistence operations for board posts.
type PostRepository interface {
	// CreatePost inserts post and sets its ID and CreatedAt.
	CreatePost(ctx context.Context, post *Post) error

	// GetPost returns the post with the given id, including its password
	// hash. Returns ErrNotFound when no row matches.
	GetPost(ctx context.Context, id int64) (*Post, error)

	// UpdatePost replaces the editable fields of a post. The password hash
	// and creation time are left alone. Returns ErrNotFound when no row
	// matches.
	UpdatePost(ctx context.Context, id int64, fields PostFields) error

	// DeletePost removes a post. Returns ErrNotFound when no row matches.
	DeletePost(ctx context.Context, id int64) error

	// SearchPosts returns posts matching filter, newest first.
	SearchPosts(ctx context.Context, filter SearchFilter) ([]Post, error)
}

// AdminRepository persists the single admin credential record.
type AdminRepository interface {
	// GetAdminHash returns the current admin password hash. Returns
	// ErrAdminNotConfigured when the record does not exist.
	GetAdminHash(ctx context.Context) (string, error)

	// InitAdminHash stores hash only if no admin record exists yet. It
	// reports whether the record was created.
	InitAdminHash(ctx context.Context, hash string) (bool, error)

	// SwapAdminHash replaces oldHash with newHash. Returns ErrConflict when
	// the stored hash is no longer oldHash.
	SwapAdminHash(ctx context.Context, oldHash, newHash string) error
}

// PasswordHasher hashes secrets and compares them against stored hashes.
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Compare(hash, plain string) bool
}

// FailureLimiter bounds failed password checks per key.
type FailureLimiter interface {
	// Reserve claims a password check for key. ok is false when the key has
	// used up its failures, counting checks still in flight. Otherwise
	// release must be called once the comparison is done, with failed set
	// when it did not match.
	Reserve(key int64) (release func(failed bool), ok bool)
}

// noopLimiter admits every check.
type noopLimiter struct{}

func (noopLimiter) Reserve(int64) (func(bool), bool) { return func(bool) {}, true }

// EventPublisher receives board changes as they happen.
type EventPublisher interface {
	Publish(event Event)
}
