package domain

// EventType names a change to the board.
type EventType string

const (
	EventCreated EventType = "created"
	EventUpdated EventType = "updated"
	EventDeleted EventType = "deleted"
)

// Event describes one change to the board. Post never carries a password
// hash; for deletions only its ID is set.
type Event struct {
	Type EventType
	Post Post
}

// noopPublisher drops every event so the service never checks for nil.
type noopPublisher struct{}

func (noopPublisher) Publish(Event) {}
