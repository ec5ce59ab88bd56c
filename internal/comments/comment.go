// Package comments implements per-classification comment threads: the
// comment store, owner/admin permissions, snapshot attachments and the live
// change stream.
package comments

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// MaxLength bounds the comment text in runes.
const MaxLength = 1000

// Comment is a user remark attached to a classification label.
type Comment struct {
	ID               uuid.UUID `json:"id"`
	ClassificationID string    `json:"classification_id"`
	UserID           string    `json:"user_id"`
	Username         string    `json:"username"`
	Text             string    `json:"comment"`
	Timestamp        time.Time `json:"timestamp"`
	UpdatedAt        time.Time `json:"updated_at"`
	HasSnapshot      bool      `json:"has_snapshot"`

	snapshotKey string
}

// Actor is the caller a comment operation is evaluated against.
type Actor struct {
	UserID   string
	Username string
	Admin    bool
}

// Permissions are the affordances an actor has on a comment.
type Permissions struct {
	CanEdit   bool `json:"can_edit"`
	CanDelete bool `json:"can_delete"`
}

// PermissionsFor applies the ownership rules: only the author edits, the
// author or an admin deletes.
func PermissionsFor(c Comment, a Actor) Permissions {
	owner := a.UserID != "" && c.UserID == a.UserID
	return Permissions{
		CanEdit:   owner,
		CanDelete: owner || a.Admin,
	}
}

// View is a comment annotated with the caller's permissions.
type View struct {
	Comment
	Permissions
}

// ViewFor annotates c for a.
func ViewFor(c Comment, a Actor) View {
	return View{Comment: c, Permissions: PermissionsFor(c, a)}
}

// CreateCommand adds a comment to a classification thread.
type CreateCommand struct {
	ClassificationID string `json:"classification_id"`
	Text             string `json:"comment"`
}

// UpdateCommand replaces a comment's text.
type UpdateCommand struct {
	Text string `json:"comment"`
}

// EventType names a change published on a thread stream.
type EventType string

const (
	EventCreated EventType = "created"
	EventUpdated EventType = "updated"
	EventDeleted EventType = "deleted"
)

// Event is a single thread change.
type Event struct {
	Type    EventType `json:"type"`
	Comment Comment   `json:"comment"`
}

func normalizeText(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" || utf8.RuneCountInString(s) > MaxLength {
		return "", ErrInvalidComment
	}
	return s, nil
}

func normalizeClassification(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", ErrInvalidClassification
	}
	return s, nil
}
