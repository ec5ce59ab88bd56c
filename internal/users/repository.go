package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/JaimeStill/glimpse/pkg/query"
	"github.com/JaimeStill/glimpse/pkg/repository"
)

type repo struct {
	db     *sql.DB
	logger *slog.Logger
}

// New creates a user repository implementing the System interface.
func New(db *sql.DB, logger *slog.Logger) System {
	return &repo{
		db:     db,
		logger: logger.With("system", "users"),
	}
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger)
}

func (r *repo) Find(ctx context.Context, userID string) (*User, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", userID)

	u, err := repository.QueryOne(ctx, r.db, q, args, scanUser)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &u, nil
}

func (r *repo) Ensure(ctx context.Context, cmd EnsureCommand) (*User, error) {
	insertQ := `
		INSERT INTO users(user_id, display_name, email)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO NOTHING`

	selectQ, selectArgs := query.NewBuilder(projection).BuildSingle("ID", cmd.UserID)

	var created bool
	u, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (User, error) {
		res, err := tx.ExecContext(ctx, insertQ, cmd.UserID, cmd.DisplayName, cmd.Email)
		if err != nil {
			return User{}, fmt.Errorf("insert user: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil && n > 0 {
			created = true
		}
		return repository.QueryOne(ctx, tx, selectQ, selectArgs, scanUser)
	})
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	if created {
		r.logger.Info("user created", "user_id", u.ID)
	}
	return &u, nil
}

func (r *repo) IsAdmin(ctx context.Context, userID string) bool {
	u, err := r.Find(ctx, userID)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			r.logger.Warn("role lookup failed", "user_id", userID, "error", err)
		}
		return false
	}
	return u.IsAdmin()
}

func (r *repo) SetRole(ctx context.Context, userID string, cmd SetRoleCommand) (*User, error) {
	if !cmd.Role.Valid() {
		return nil, ErrInvalidRole
	}

	q := fmt.Sprintf(`
		UPDATE users
		SET role = $1, updated_at = NOW()
		WHERE user_id = $2
		RETURNING %s`, projection.Returning())

	u, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (User, error) {
		return repository.QueryOne(ctx, tx, q, []any{cmd.Role, userID}, scanUser)
	})
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("user role changed", "user_id", u.ID, "role", u.Role)
	return &u, nil
}
