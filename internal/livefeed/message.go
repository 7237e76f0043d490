package livefeed

import (
	"time"

	"github.com/blackmichael/collabboard/internal/domain"
)

// message is the JSON frame sent to subscribers.
type message struct {
	Type string      `json:"type"`
	Post postPayload `json:"post"`
}

// postPayload mirrors the listing shape. Deletions only carry the id.
type postPayload struct {
	ID             int64      `json:"id"`
	Interest       string     `json:"interest,omitempty"`
	Location       string     `json:"location,omitempty"`
	SignalUsername string     `json:"signal_username,omitempty"`
	Alias          string     `json:"alias,omitempty"`
	CreatedAt      *time.Time `json:"created_at,omitempty"`
}

func newMessage(event domain.Event) message {
	msg := message{
		Type: string(event.Type),
		Post: postPayload{ID: event.Post.ID},
	}
	if event.Type == domain.EventDeleted {
		return msg
	}

	p := event.Post
	msg.Post.Interest = p.Interest
	msg.Post.Location = p.Location
	msg.Post.SignalUsername = p.SignalUsername
	msg.Post.Alias = p.Alias
	if !p.CreatedAt.IsZero() {
		createdAt := p.CreatedAt
		msg.Post.CreatedAt = &createdAt
	}
	return msg
}
