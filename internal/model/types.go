package model

import "time"

const (
	StatusToDo     = "To Do"
	StatusOngoing  = "Ongoing"
	StatusDone     = "Done"
	StatusTesting  = "Testing"
	StatusDeployed = "Deployed"
)

// StatusValues and PriorityValues keep the order used in error messages.
var (
	StatusValues   = []string{StatusToDo, StatusOngoing, StatusDone, StatusTesting, StatusDeployed}
	PriorityValues = []string{"Low", "Medium", "High", "Urgent"}
)

var AllowedStatus = toSet(StatusValues)

var AllowedPriority = toSet(PriorityValues)

func toSet(values []string) map[string]struct{} {
	out := make(map[string]struct{}, len(values))
	for _, v := range values {
		out[v] = struct{}{}
	}
	return out
}

// DateLayout is the wire and storage format of card and comment dates.
const DateLayout = "2006-01-02"

// Identity is the authenticated user id taken from a bearer token.
type Identity int64

type User struct {
	ID      int64
	Name    string
	Email   string
	IsAdmin bool
}

type Card struct {
	ID          int64
	Title       string
	Description *string
	Date        time.Time
	Status      *string
	Priority    *string
	UserID      int64
	Owner       User
	Comments    []Comment
}

func (c Card) OwnedBy(identity Identity) bool {
	return c.UserID == int64(identity)
}

func (c Card) HasStatus(status string) bool {
	return c.Status != nil && *c.Status == status
}

type Comment struct {
	ID      int64
	Message string
	Date    time.Time
	CardID  int64
	UserID  int64
}

type UserSummary struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type CommentView struct {
	ID      int64  `json:"id"`
	Message string `json:"message"`
	Date    string `json:"date"`
	UserID  int64  `json:"user_id"`
}

type CardView struct {
	ID          int64         `json:"id"`
	Title       string        `json:"title"`
	Description *string       `json:"description"`
	Date        string        `json:"date"`
	Status      *string       `json:"status"`
	Priority    *string       `json:"priority"`
	User        UserSummary   `json:"user"`
	Comments    []CommentView `json:"comments"`
}

type Message struct {
	Message string `json:"message"`
}

type Event struct {
	Type      EventType `json:"type"`
	CardID    int64     `json:"card_id"`
	CommentID int64     `json:"comment_id,omitempty"`
	UserID    int64     `json:"user_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
