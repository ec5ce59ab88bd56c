// Package thread keeps the device-side copy of one classification's comment
// thread in step with the server. Operations never return errors: a failed
// remote call is logged and the local list is left as it was.
package thread

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/JaimeStill/glimpse/internal/comments"
	"github.com/JaimeStill/glimpse/pkg/pagination"
)

// DefaultPageSize is the number of comments fetched by Load.
const DefaultPageSize = 50

// Remote is the comment store the thread mirrors.
type Remote interface {
	Comments(ctx context.Context, classificationID string, page, pageSize int) (*pagination.PageResult[comments.View], error)
	AddComment(ctx context.Context, classificationID, text string) (*comments.View, error)
	UpdateComment(ctx context.Context, id uuid.UUID, text string) (*comments.View, error)
	DeleteComment(ctx context.Context, id uuid.UUID) error
}

// Thread is the cached comment list for one classification, newest first.
type Thread struct {
	remote           Remote
	classificationID string
	actor            comments.Actor
	pageSize         int
	onChange         func([]comments.View)
	logger           *slog.Logger

	mu    sync.Mutex
	items []comments.Comment
}

// New creates an empty thread for classificationID as seen by actor.
// onChange receives the full list after every successful change; it may be nil.
func New(remote Remote, classificationID string, actor comments.Actor, onChange func([]comments.View), logger *slog.Logger) *Thread {
	if onChange == nil {
		onChange = func([]comments.View) {}
	}
	return &Thread{
		remote:           remote,
		classificationID: classificationID,
		actor:            actor,
		pageSize:         DefaultPageSize,
		onChange:         onChange,
		logger:           logger.With("system", "thread", "classification_id", classificationID),
	}
}

// ClassificationID returns the label this thread belongs to.
func (t *Thread) ClassificationID() string {
	return t.classificationID
}

// Items returns the cached comments with the actor's permissions.
func (t *Thread) Items() []comments.View {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.views()
}

// Find returns the cached comment with id.
func (t *Thread) Find(id uuid.UUID) (comments.View, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	i := t.index(id)
	if i < 0 {
		return comments.View{}, false
	}
	return comments.ViewFor(t.items[i], t.actor), true
}

// Load replaces the cache with the newest page from the server.
func (t *Thread) Load(ctx context.Context) bool {
	page, err := t.remote.Comments(ctx, t.classificationID, 1, t.pageSize)
	if err != nil {
		t.logger.Error("load comments failed", "error", err)
		return false
	}

	items := make([]comments.Comment, len(page.Data))
	for i, v := range page.Data {
		items[i] = v.Comment
	}

	t.mu.Lock()
	t.items = items
	views := t.views()
	t.mu.Unlock()

	t.logger.Debug("comments loaded", "count", len(items), "total", page.Total)
	t.onChange(views)
	return true
}

// Add posts text and prepends the created comment.
func (t *Thread) Add(ctx context.Context, text string) (comments.View, bool) {
	v, err := t.remote.AddComment(ctx, t.classificationID, text)
	if err != nil {
		t.logger.Error("add comment failed", "error", err)
		return comments.View{}, false
	}

	t.mu.Lock()
	if t.index(v.ID) < 0 {
		t.items = slices.Insert(t.items, 0, v.Comment)
	}
	views := t.views()
	t.mu.Unlock()

	t.onChange(views)
	return comments.ViewFor(v.Comment, t.actor), true
}

// Update replaces the text of a comment the actor owns.
func (t *Thread) Update(ctx context.Context, id uuid.UUID, text string) bool {
	if !t.permitted(id, func(p comments.Permissions) bool { return p.CanEdit }) {
		t.logger.Warn("edit not permitted", "id", id)
		return false
	}

	v, err := t.remote.UpdateComment(ctx, id, text)
	if err != nil {
		t.logger.Error("update comment failed", "id", id, "error", err)
		return false
	}

	t.mu.Lock()
	if i := t.index(id); i >= 0 {
		t.items[i] = v.Comment
	}
	views := t.views()
	t.mu.Unlock()

	t.onChange(views)
	return true
}

// Delete removes a comment the actor owns, or any comment for admins.
func (t *Thread) Delete(ctx context.Context, id uuid.UUID) bool {
	if !t.permitted(id, func(p comments.Permissions) bool { return p.CanDelete }) {
		t.logger.Warn("delete not permitted", "id", id)
		return false
	}

	if err := t.remote.DeleteComment(ctx, id); err != nil {
		t.logger.Error("delete comment failed", "id", id, "error", err)
		return false
	}

	t.mu.Lock()
	t.remove(id)
	views := t.views()
	t.mu.Unlock()

	t.onChange(views)
	return true
}

// Apply merges a change pushed by the server stream. Events for other
// threads and changes already reflected locally are ignored.
func (t *Thread) Apply(e comments.StreamEvent) {
	c := e.Comment.Comment
	if c.ClassificationID != t.classificationID {
		return
	}

	t.mu.Lock()
	changed := false
	switch e.Type {
	case comments.EventCreated:
		if t.index(c.ID) < 0 {
			t.items = slices.Insert(t.items, 0, c)
			changed = true
		}
	case comments.EventUpdated:
		if i := t.index(c.ID); i >= 0 && t.items[i] != c {
			t.items[i] = c
			changed = true
		}
	case comments.EventDeleted:
		changed = t.remove(c.ID)
	}
	views := t.views()
	t.mu.Unlock()

	if changed {
		t.onChange(views)
	}
}

func (t *Thread) permitted(id uuid.UUID, check func(comments.Permissions) bool) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	i := t.index(id)
	return i >= 0 && check(comments.PermissionsFor(t.items[i], t.actor))
}

// index, remove and views must be called with t.mu held.
func (t *Thread) index(id uuid.UUID) int {
	return slices.IndexFunc(t.items, func(c comments.Comment) bool { return c.ID == id })
}

func (t *Thread) remove(id uuid.UUID) bool {
	i := t.index(id)
	if i < 0 {
		return false
	}
	t.items = slices.Delete(t.items, i, i+1)
	return true
}

func (t *Thread) views() []comments.View {
	out := make([]comments.View, len(t.items))
	for i, c := range t.items {
		out[i] = comments.ViewFor(c, t.actor)
	}
	return out
}
