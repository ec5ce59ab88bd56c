package comments

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"

	"github.com/JaimeStill/glimpse/pkg/pagination"
	"github.com/JaimeStill/glimpse/pkg/query"
	"github.com/JaimeStill/glimpse/pkg/repository"
	"github.com/JaimeStill/glimpse/pkg/storage"
)

const snapshotContentType = "image/jpeg"

type repo struct {
	db         *sql.DB
	storage    storage.System
	roles      RoleLookup
	hub        *Hub
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates a comment repository implementing the System interface.
func New(
	db *sql.DB,
	store storage.System,
	roles RoleLookup,
	hub *Hub,
	logger *slog.Logger,
	pagination pagination.Config,
) System {
	return &repo{
		db:         db,
		storage:    store,
		roles:      roles,
		hub:        hub,
		logger:     logger.With("system", "comments"),
		pagination: pagination,
	}
}

func (r *repo) Handler(maxSnapshotSize int64) *Handler {
	return NewHandler(r, r.roles, r.logger, r.pagination, maxSnapshotSize)
}

func (r *repo) Subscribe(classificationID string) *Subscription {
	return r.hub.Subscribe(classificationID)
}

func (r *repo) List(
	ctx context.Context,
	classificationID string,
	page pagination.PageRequest,
) (*pagination.PageResult[Comment], error) {
	classificationID, err := normalizeClassification(classificationID)
	if err != nil {
		return nil, err
	}

	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(projection, defaultSort).
		WhereEquals("ClassificationID", classificationID).
		WhereSearch(page.Search, "Text", "Username")

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count comments: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	items, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanComment)
	if err != nil {
		return nil, fmt.Errorf("query comments: %w", err)
	}

	result := pagination.NewPageResult(items, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Comment, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	c, err := repository.QueryOne(ctx, r.db, q, args, scanComment)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &c, nil
}

func (r *repo) Create(ctx context.Context, actor Actor, cmd CreateCommand) (*Comment, error) {
	if actor.UserID == "" {
		return nil, ErrForbidden
	}

	classificationID, err := normalizeClassification(cmd.ClassificationID)
	if err != nil {
		return nil, err
	}
	text, err := normalizeText(cmd.Text)
	if err != nil {
		return nil, err
	}

	q := fmt.Sprintf(`
		INSERT INTO comments(id, classification_id, user_id, username, comment)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING %s`, projection.Returning())

	args := []any{uuid.New(), classificationID, actor.UserID, actor.Username, text}

	c, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Comment, error) {
		return repository.QueryOne(ctx, tx, q, args, scanComment)
	})
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("comment created", "id", c.ID, "classification_id", c.ClassificationID, "user_id", c.UserID)
	r.hub.Publish(Event{Type: EventCreated, Comment: c})
	return &c, nil
}

func (r *repo) Update(ctx context.Context, actor Actor, id uuid.UUID, cmd UpdateCommand) (*Comment, error) {
	text, err := normalizeText(cmd.Text)
	if err != nil {
		return nil, err
	}

	existing, err := r.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !PermissionsFor(*existing, actor).CanEdit {
		return nil, ErrForbidden
	}

	q := fmt.Sprintf(`
		UPDATE comments
		SET comment = $1, updated_at = NOW()
		WHERE id = $2 AND user_id = $3
		RETURNING %s`, projection.Returning())

	c, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Comment, error) {
		return repository.QueryOne(ctx, tx, q, []any{text, id, actor.UserID}, scanComment)
	})
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("comment updated", "id", c.ID)
	r.hub.Publish(Event{Type: EventUpdated, Comment: c})
	return &c, nil
}

func (r *repo) Delete(ctx context.Context, actor Actor, id uuid.UUID) error {
	existing, err := r.Find(ctx, id)
	if err != nil {
		return err
	}
	if !PermissionsFor(*existing, actor).CanDelete {
		return ErrForbidden
	}

	_, err = repository.WithTx(ctx, r.db, func(tx *sql.Tx) (struct{}, error) {
		return struct{}{}, repository.ExecExpectOne(
			ctx, tx,
			"DELETE FROM comments WHERE id = $1",
			id,
		)
	})
	if err != nil {
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	if existing.snapshotKey != "" {
		if delErr := r.storage.Delete(ctx, existing.snapshotKey); delErr != nil && !errors.Is(delErr, storage.ErrNotFound) {
			r.logger.Warn(
				"snapshot delete failed after comment delete",
				"key", existing.snapshotKey,
				"error", delErr,
			)
		}
	}

	r.logger.Info("comment deleted", "id", id, "by", actor.UserID, "admin", actor.Admin && existing.UserID != actor.UserID)
	r.hub.Publish(Event{Type: EventDeleted, Comment: *existing})
	return nil
}

func (r *repo) AttachSnapshot(ctx context.Context, actor Actor, id uuid.UUID, data []byte) (*Comment, error) {
	if !isJPEG(data) {
		return nil, ErrInvalidSnapshot
	}

	existing, err := r.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !PermissionsFor(*existing, actor).CanEdit {
		return nil, ErrForbidden
	}

	key := storage.SnapshotKey(id.String())
	if err := r.storage.Upload(ctx, key, bytes.NewReader(data), snapshotContentType); err != nil {
		return nil, fmt.Errorf("upload snapshot blob: %w", err)
	}

	q := fmt.Sprintf(`
		UPDATE comments
		SET snapshot_key = $1, updated_at = NOW()
		WHERE id = $2
		RETURNING %s`, projection.Returning())

	c, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Comment, error) {
		return repository.QueryOne(ctx, tx, q, []any{key, id}, scanComment)
	})
	if err != nil {
		// A replaced snapshot shares the key, so only a first attachment is rolled back.
		if existing.snapshotKey == "" {
			if delErr := r.storage.Delete(ctx, key); delErr != nil {
				r.logger.Warn("compensating blob delete failed", "key", key, "error", delErr)
			}
		}
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("snapshot attached", "id", c.ID, "size", len(data))
	r.hub.Publish(Event{Type: EventUpdated, Comment: c})
	return &c, nil
}

func (r *repo) Snapshot(ctx context.Context, id uuid.UUID) (io.ReadCloser, error) {
	c, err := r.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.snapshotKey == "" {
		return nil, ErrNoSnapshot
	}

	rc, err := r.storage.Download(ctx, c.snapshotKey)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNoSnapshot
		}
		return nil, err
	}
	return rc, nil
}

func isJPEG(data []byte) bool {
	return len(data) > 3 && data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF
}
