package model

type EventType string

const (
	EventTypeCardCreated    EventType = "card.created"
	EventTypeCardUpdated    EventType = "card.updated"
	EventTypeCardDeleted    EventType = "card.deleted"
	EventTypeCommentCreated EventType = "comment.created"
	EventTypeCommentUpdated EventType = "comment.updated"
	EventTypeCommentDeleted EventType = "comment.deleted"
)

var websocketEventTypes = []EventType{
	EventTypeCardCreated,
	EventTypeCardUpdated,
	EventTypeCardDeleted,
	EventTypeCommentCreated,
	EventTypeCommentUpdated,
	EventTypeCommentDeleted,
}

func WebSocketEventTypes() []EventType {
	out := make([]EventType, len(websocketEventTypes))
	copy(out, websocketEventTypes)
	return out
}
