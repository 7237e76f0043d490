package domain

import (
	"strings"
	"time"
	"unicode/utf8"
)

// Field limits, counted in characters.
const (
	MaxInterestLength = 600
	MaxLocationLength = 100
	MaxHandleLength   = 15
	MaxAliasLength    = 15

	// maxPasswordBytes is the longest secret bcrypt will hash.
	maxPasswordBytes = 72

	// DefaultLocation is stored when a post leaves its location blank.
	DefaultLocation = "Online"
)

// Post is a collaboration idea stored on the board.
type Post struct {
	// ID is assigned by the store on creation.
	ID int64

	PostFields

	// PasswordHash is the bcrypt hash of the secret protecting the post, or
	// empty when the post is unprotected. It is never returned to clients.
	PasswordHash string

	// CreatedAt is set on creation and never changes.
	CreatedAt time.Time
}

// Protected reports whether the post can be edited or deleted by its author.
func (p *Post) Protected() bool {
	return p.PasswordHash != ""
}

// Public returns a copy of the post without its password hash.
func (p *Post) Public() *Post {
	out := *p
	out.PasswordHash = ""
	return &out
}

// PostFields are the parts of a post an author can edit.
type PostFields struct {
	Interest       string
	Location       string
	SignalUsername string
	Alias          string
}

// normalize trims every field and fills in the default location.
func (f PostFields) normalize() PostFields {
	f.Interest = strings.TrimSpace(f.Interest)
	f.Location = strings.TrimSpace(f.Location)
	f.SignalUsername = strings.TrimSpace(f.SignalUsername)
	f.Alias = strings.TrimSpace(f.Alias)
	if f.Location == "" {
		f.Location = DefaultLocation
	}
	return f
}

func (f PostFields) validate() error {
	if f.Interest == "" || f.SignalUsername == "" {
		return errMissingField
	}
	if utf8.RuneCountInString(f.Interest) > MaxInterestLength ||
		utf8.RuneCountInString(f.Location) > MaxLocationLength ||
		utf8.RuneCountInString(f.SignalUsername) > MaxHandleLength ||
		utf8.RuneCountInString(f.Alias) > MaxAliasLength {
		return errFieldTooLong
	}
	return nil
}

// NewPost is the input for creating a post. A blank Password leaves the post
// unprotected.
type NewPost struct {
	PostFields
	Password string
}

// SearchFilter narrows a listing of posts.
type SearchFilter struct {
	// Keyword is the raw keyword text; empty means no keyword restriction.
	Keyword string

	// Location is matched as a case-insensitive substring when non-empty.
	Location string

	// Since excludes posts created before it when non-zero.
	Since time.Time
}
