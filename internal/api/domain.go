package api

import (
	"github.com/JaimeStill/glimpse/internal/comments"
	"github.com/JaimeStill/glimpse/internal/identity"
	"github.com/JaimeStill/glimpse/internal/users"
)

// streamBuffer is the per-subscriber event backlog before events are dropped.
const streamBuffer = 16

// Domain holds all domain systems that comprise the API.
type Domain struct {
	Users    users.System
	Identity identity.System
	Comments comments.System
}

// NewDomain creates all domain systems from the API runtime.
func NewDomain(runtime *Runtime) *Domain {
	usersSystem := users.New(
		runtime.Database.Connection(),
		runtime.Logger,
	)

	identitySystem := identity.New(
		runtime.Verifier,
		runtime.Tokens,
		usersSystem,
		runtime.Logger,
	)

	hub := comments.NewHub(streamBuffer, runtime.Logger)
	// Streams close while the database is still open.
	runtime.Lifecycle.OnDrain(hub.Close)

	commentsSystem := comments.New(
		runtime.Database.Connection(),
		runtime.Storage,
		usersSystem,
		hub,
		runtime.Logger,
		runtime.Pagination,
	)

	return &Domain{
		Users:    usersSystem,
		Identity: identitySystem,
		Comments: commentsSystem,
	}
}
