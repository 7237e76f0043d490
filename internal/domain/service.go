package domain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// DefaultMaxPostAge is how far back listings reach, roughly two months.
const DefaultMaxPostAge = 60 * 24 * time.Hour

// adminLimiterKey is the single key admin checks are counted under.
const adminLimiterKey int64 = 0

// Option configures a BoardService.
type Option func(*BoardService)

// WithMaxPostAge limits listings to posts created within d. Zero disables
// the recency filter.
func WithMaxPostAge(d time.Duration) Option {
	return func(s *BoardService) { s.maxAge = d }
}

// WithEvents sends every change on the board to p.
func WithEvents(p EventPublisher) Option {
	return func(s *BoardService) {
		if p != nil {
			s.events = p
		}
	}
}

// WithAdminLimiter bounds failed admin password checks with l. Without it
// admin checks are not limited.
func WithAdminLimiter(l FailureLimiter) Option {
	return func(s *BoardService) {
		if l != nil {
			s.adminLimiter = l
		}
	}
}

// WithClock replaces time.Now for the recency filter.
func WithClock(now func() time.Time) Option {
	return func(s *BoardService) {
		if now != nil {
			s.now = now
		}
	}
}

// BoardService is the core domain service. It owns post validation, the
// password gate in front of edits and deletions, and the admin credential.
//
// A post is either unprotected (no hash stored) or protected. Requests to
// verify, edit or delete an unprotected post fail with ErrForbidden without
// touching the limiter. For a protected post a check is reserved with the
// limiter before the secret is compared, and every mismatch is recorded
// against the post. Admin checks go through their own limiter under a single
// key.
type BoardService struct {
	posts        PostRepository
	admin        AdminRepository
	hasher       PasswordHasher
	limiter      FailureLimiter
	adminLimiter FailureLimiter
	events       EventPublisher
	logger       *slog.Logger

	maxAge time.Duration
	now    func() time.Time
}

// NewBoardService creates a BoardService.
func NewBoardService(posts PostRepository, admin AdminRepository, hasher PasswordHasher, limiter FailureLimiter, logger *slog.Logger, opts ...Option) *BoardService {
	s := &BoardService{
		posts:        posts,
		admin:        admin,
		hasher:       hasher,
		limiter:      limiter,
		adminLimiter: noopLimiter{},
		events:       noopPublisher{},
		logger:       logger,
		maxAge:       DefaultMaxPostAge,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreatePost validates and stores a new post. A non-blank password is hashed
// and makes the post protected.
func (s *BoardService) CreatePost(ctx context.Context, in NewPost) (*Post, error) {
	fields := in.PostFields.normalize()
	if err := fields.validate(); err != nil {
		return nil, err
	}

	post := &Post{PostFields: fields}
	if strings.TrimSpace(in.Password) != "" {
		hash, err := s.hashSecret(in.Password)
		if err != nil {
			return nil, err
		}
		post.PasswordHash = hash
	}

	if err := s.posts.CreatePost(ctx, post); err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}

	s.logger.Info("post created", "post_id", post.ID, "protected", post.Protected())
	s.events.Publish(Event{Type: EventCreated, Post: *post.Public()})
	return post.Public(), nil
}

// Listing is a post as shown to anyone browsing the board.
type Listing struct {
	Post

	// HasPassword reports whether the author can edit or delete the post.
	HasPassword bool
}

// SearchPosts lists recent posts matching the keyword and location filters,
// newest first. Password hashes are never included.
func (s *BoardService) SearchPosts(ctx context.Context, keyword, location string) ([]Listing, error) {
	filter := SearchFilter{
		Keyword:  keyword,
		Location: strings.TrimSpace(location),
	}
	if s.maxAge > 0 {
		filter.Since = s.now().UTC().Add(-s.maxAge)
	}

	posts, err := s.posts.SearchPosts(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("search posts: %w", err)
	}

	listings := make([]Listing, len(posts))
	for i := range posts {
		listings[i] = Listing{
			Post:        *posts[i].Public(),
			HasPassword: posts[i].Protected(),
		}
	}
	return listings, nil
}

// VerifyPost checks password against the post and returns the post without
// its hash.
func (s *BoardService) VerifyPost(ctx context.Context, id int64, password string) (*Post, error) {
	post, err := s.authorize(ctx, id, password, "verify")
	if err != nil {
		return nil, err
	}
	return post.Public(), nil
}

// UpdatePost replaces the editable fields of a protected post once password
// checks out. The password itself cannot be changed this way.
func (s *BoardService) UpdatePost(ctx context.Context, id int64, fields PostFields, password string) (*Post, error) {
	fields = fields.normalize()
	if err := fields.validate(); err != nil {
		return nil, err
	}

	post, err := s.authorize(ctx, id, password, "update")
	if err != nil {
		return nil, err
	}

	if err := s.posts.UpdatePost(ctx, id, fields); err != nil {
		return nil, fmt.Errorf("update post %d: %w", id, err)
	}

	post.PostFields = fields
	s.logger.Info("post updated", "post_id", id)
	s.events.Publish(Event{Type: EventUpdated, Post: *post.Public()})
	return post.Public(), nil
}

// DeletePost removes a protected post once password checks out.
func (s *BoardService) DeletePost(ctx context.Context, id int64, password string) error {
	if _, err := s.authorize(ctx, id, password, "delete"); err != nil {
		return err
	}

	if err := s.posts.DeletePost(ctx, id); err != nil {
		return fmt.Errorf("delete post %d: %w", id, err)
	}

	s.logger.Info("post deleted", "post_id", id)
	s.events.Publish(Event{Type: EventDeleted, Post: Post{ID: id}})
	return nil
}

// authorize runs the password gate for a single post. Lookup failures take
// precedence over the limiter so an unprotected post is never counted.
func (s *BoardService) authorize(ctx context.Context, id int64, password, action string) (*Post, error) {
	if id <= 0 || password == "" {
		return nil, errMissingField
	}

	post, err := s.posts.GetPost(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get post %d: %w", id, err)
	}

	if !post.Protected() {
		return nil, ErrForbidden
	}

	release, ok := s.limiter.Reserve(id)
	if !ok {
		s.logger.Warn("password check rate limited", "post_id", id, "action", action)
		return nil, ErrRateLimited
	}

	matched := s.hasher.Compare(post.PasswordHash, password)
	release(!matched)
	if !matched {
		s.logger.Warn("password check failed", "post_id", id, "action", action)
		return nil, ErrUnauthorized
	}

	return post, nil
}

// EnsureAdmin creates the admin credential from initialPassword when none
// exists. An existing credential is left untouched.
func (s *BoardService) EnsureAdmin(ctx context.Context, initialPassword string) error {
	_, err := s.admin.GetAdminHash(ctx)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrAdminNotConfigured) {
		return fmt.Errorf("get admin credential: %w", err)
	}

	if initialPassword == "" {
		return fmt.Errorf("%w: no initial admin password", ErrAdminNotConfigured)
	}
	hash, err := s.hashSecret(initialPassword)
	if err != nil {
		return err
	}

	created, err := s.admin.InitAdminHash(ctx, hash)
	if err != nil {
		return fmt.Errorf("init admin credential: %w", err)
	}
	if created {
		s.logger.Warn("admin credential created from initial password, change it")
	}
	return nil
}

// AdminLogin checks password against the admin credential.
func (s *BoardService) AdminLogin(ctx context.Context, password string) error {
	_, err := s.checkAdmin(ctx, password)
	return err
}

// ChangeAdminPassword replaces the admin credential. The swap only succeeds
// if the credential did not change since current was checked.
func (s *BoardService) ChangeAdminPassword(ctx context.Context, current, next string) error {
	if current == "" || next == "" {
		return errMissingField
	}

	oldHash, err := s.checkAdmin(ctx, current)
	if err != nil {
		return err
	}

	newHash, err := s.hashSecret(next)
	if err != nil {
		return err
	}

	if err := s.admin.SwapAdminHash(ctx, oldHash, newHash); err != nil {
		return fmt.Errorf("swap admin credential: %w", err)
	}

	s.logger.Info("admin password changed")
	return nil
}

// AdminDeletePost removes any post, protected or not, once the admin
// password checks out.
func (s *BoardService) AdminDeletePost(ctx context.Context, id int64, adminPassword string) error {
	if id <= 0 {
		return errMissingField
	}
	if _, err := s.checkAdmin(ctx, adminPassword); err != nil {
		return err
	}

	if err := s.posts.DeletePost(ctx, id); err != nil {
		return fmt.Errorf("admin delete post %d: %w", id, err)
	}

	s.logger.Info("post deleted by admin", "post_id", id)
	s.events.Publish(Event{Type: EventDeleted, Post: Post{ID: id}})
	return nil
}

func (s *BoardService) checkAdmin(ctx context.Context, password string) (string, error) {
	if password == "" {
		return "", errMissingField
	}

	hash, err := s.admin.GetAdminHash(ctx)
	if err != nil {
		return "", fmt.Errorf("get admin credential: %w", err)
	}

	release, ok := s.adminLimiter.Reserve(adminLimiterKey)
	if !ok {
		s.logger.Warn("admin password check rate limited")
		return "", ErrRateLimited
	}

	matched := s.hasher.Compare(hash, password)
	release(!matched)
	if !matched {
		s.logger.Warn("admin password check failed")
		return "", ErrUnauthorized
	}
	return hash, nil
}

func (s *BoardService) hashSecret(plain string) (string, error) {
	if len(plain) > maxPasswordBytes {
		return "", errFieldTooLong
	}
	hash, err := s.hasher.Hash(plain)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return hash, nil
}
