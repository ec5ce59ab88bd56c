package comments

import (
	"context"
	"io"

	"github.com/google/uuid"

	"github.com/JaimeStill/glimpse/pkg/pagination"
)

// RoleLookup resolves whether a user holds the admin role.
type RoleLookup interface {
	IsAdmin(ctx context.Context, userID string) bool
}

// System defines the public contract for comment operations.
type System interface {
	Handler(maxSnapshotSize int64) *Handler

	// List returns a page of the thread for classificationID, newest first.
	List(ctx context.Context, classificationID string, page pagination.PageRequest) (*pagination.PageResult[Comment], error)
	Find(ctx context.Context, id uuid.UUID) (*Comment, error)
	Create(ctx context.Context, actor Actor, cmd CreateCommand) (*Comment, error)
	// Update replaces the text of a comment owned by actor.
	Update(ctx context.Context, actor Actor, id uuid.UUID, cmd UpdateCommand) (*Comment, error)
	// Delete removes a comment owned by actor, or any comment when actor is
	// an admin, along with its snapshot.
	Delete(ctx context.Context, actor Actor, id uuid.UUID) error
	// AttachSnapshot stores a JPEG on a comment owned by actor, replacing any previous one.
	AttachSnapshot(ctx context.Context, actor Actor, id uuid.UUID, data []byte) (*Comment, error)
	// Snapshot streams the JPEG attached to a comment. The caller must close it.
	Snapshot(ctx context.Context, id uuid.UUID) (io.ReadCloser, error)

	// Subscribe streams changes to the thread for classificationID.
	Subscribe(classificationID string) *Subscription
}
