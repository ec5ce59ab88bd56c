package navigation

import (
	"log/slog"
	"sync"

	"github.com/JaimeStill/glimpse/internal/classifications"
)

// AuthSource delivers authentication callbacks. AddListener may invoke fn
// synchronously when a user is already signed in. The returned func
// unregisters fn.
type AuthSource interface {
	AddListener(fn func(Session)) (remove func())
}

// Controller owns the current screen. All methods are safe for concurrent use;
// observers and the auth source are always called without the lock held.
type Controller struct {
	mu         sync.Mutex
	current    Screen
	session    *Session
	auth       AuthSource
	removeAuth func()
	epoch      uint64
	observers  map[uint64]func(Transition)
	nextID     uint64
	logger     *slog.Logger
}

// New creates a Controller on the SignIn screen listening to auth.
func New(auth AuthSource, logger *slog.Logger) *Controller {
	c := &Controller{
		current:   Screen{Kind: SignIn},
		auth:      auth,
		observers: make(map[uint64]func(Transition)),
		logger:    logger.With("system", "navigation"),
	}
	c.mu.Lock()
	c.epoch++
	epoch := c.epoch
	c.mu.Unlock()
	c.listen(epoch)
	return c
}

// Current returns the active screen.
func (c *Controller) Current() Screen {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Session returns the signed-in user, if any.
func (c *Controller) Session() (Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return Session{}, false
	}
	return *c.session, true
}

// Observe registers fn for every transition and returns a func removing it.
func (c *Controller) Observe(fn func(Transition)) (remove func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextID++
	id := c.nextID
	c.observers[id] = fn

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.observers, id)
	}
}

// Authenticated is the authentication callback. It moves SignIn to
// CameraView with s, whose Admin flag must already be resolved. Ignored on
// any other screen.
func (c *Controller) Authenticated(s Session) {
	c.mu.Lock()
	if c.current.Kind != SignIn {
		c.mu.Unlock()
		return
	}
	c.session = &s
	remove := c.removeAuth
	c.removeAuth = nil
	t, obs := c.move(Screen{Kind: CameraView})
	c.mu.Unlock()

	if remove != nil {
		remove()
	}
	c.logger.Info("signed in", "user_id", s.UserID, "admin", s.Admin)
	notify(obs, t)
}

// Comment opens the thread for the top classification in results. It
// reports false when not on CameraView or results is empty.
func (c *Controller) Comment(results []classifications.Classification) bool {
	top, ok := classifications.Top(results)
	if !ok {
		return false
	}

	c.mu.Lock()
	if c.current.Kind != CameraView {
		c.mu.Unlock()
		return false
	}
	t, obs := c.move(Screen{Kind: AddComment, ClassificationID: top.Name})
	c.mu.Unlock()

	notify(obs, t)
	return true
}

// Back returns from AddComment to CameraView.
func (c *Controller) Back() bool {
	c.mu.Lock()
	if c.current.Kind != AddComment {
		c.mu.Unlock()
		return false
	}
	t, obs := c.move(Screen{Kind: CameraView})
	c.mu.Unlock()

	notify(obs, t)
	return true
}

// SignOut drops the session and returns to SignIn.
func (c *Controller) SignOut() {
	c.mu.Lock()
	if c.current.Kind == SignIn {
		c.mu.Unlock()
		return
	}
	c.session = nil
	c.epoch++
	epoch := c.epoch
	t, obs := c.move(Screen{Kind: SignIn})
	c.mu.Unlock()

	c.logger.Info("signed out")
	notify(obs, t)
	c.listen(epoch)
}

// listen registers the auth listener for the SignIn visit identified by
// epoch. A registration that completes after that visit ended is undone.
func (c *Controller) listen(epoch uint64) {
	remove := c.auth.AddListener(c.Authenticated)

	c.mu.Lock()
	if c.current.Kind == SignIn && c.epoch == epoch && c.removeAuth == nil {
		c.removeAuth = remove
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()
	remove()
}

// move must be called with c.mu held.
func (c *Controller) move(to Screen) (Transition, []func(Transition)) {
	t := Transition{From: c.current, To: to}
	c.current = to

	obs := make([]func(Transition), 0, len(c.observers))
	for _, fn := range c.observers {
		obs = append(obs, fn)
	}

	c.logger.Debug("navigate", "from", t.From.String(), "to", t.To.String())
	return t, obs
}

func notify(obs []func(Transition), t Transition) {
	for _, fn := range obs {
		fn(t)
	}
}
