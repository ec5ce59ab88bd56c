// Package app is the glimpse device app: it feeds camera frames through the
// analyzer, shows the ranked labels, and drives the sign-in and comment
// screens from text commands.
package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/JaimeStill/glimpse/internal/analyzer"
	"github.com/JaimeStill/glimpse/internal/capture"
	"github.com/JaimeStill/glimpse/internal/classifications"
	"github.com/JaimeStill/glimpse/internal/comments"
	"github.com/JaimeStill/glimpse/internal/config"
	"github.com/JaimeStill/glimpse/internal/navigation"
	"github.com/JaimeStill/glimpse/internal/thread"
)

// API is the server surface the app uses. *client.Client satisfies it.
type API interface {
	SignInAPI
	thread.Remote
	Health(ctx context.Context) error
	Watch(ctx context.Context, classificationID string, fn func(comments.StreamEvent)) error
	UploadSnapshot(ctx context.Context, id uuid.UUID, jpeg []byte) (*comments.View, error)
}

// Source produces camera frames. *capture.Source satisfies it.
type Source interface {
	Start(ctx context.Context) error
	Frames() <-chan *capture.Frame
	Err() error
}

// App wires capture, analysis, navigation and the comment thread together.
type App struct {
	cfg       *config.AppConfig
	api       API
	source    Source
	publisher Publisher
	auth      *AuthState
	nav       *navigation.Controller
	analyzer  *analyzer.Analyzer
	snaps     *snapshotter
	logger    *slog.Logger
	now       func() time.Time

	outMu sync.Mutex
	out   io.Writer

	wg sync.WaitGroup

	mu            sync.Mutex
	root          context.Context
	results       []classifications.Classification
	session       context.Context
	cancelSession context.CancelFunc
	thread        *thread.Thread
	cancelWatch   context.CancelFunc
}

// New creates an App. source and publisher may be nil.
func New(
	cfg *config.AppConfig,
	api API,
	classifier analyzer.Classifier,
	source Source,
	publisher Publisher,
	out io.Writer,
	logger *slog.Logger,
) *App {
	a := &App{
		cfg:       cfg,
		api:       api,
		source:    source,
		publisher: publisher,
		out:       out,
		logger:    logger.With("system", "app"),
		now:       time.Now,
		root:      context.Background(),
	}

	a.snaps = newSnapshotter(classifier, cfg.Classifier.Quality)
	a.analyzer = analyzer.New(&cfg.Analyzer, a.snaps, a.onResults, logger)
	a.auth = NewAuthState(api, logger)
	a.nav = navigation.New(a.auth, logger)
	a.nav.Observe(a.onTransition)

	return a
}

// Screen returns the active screen.
func (a *App) Screen() navigation.Screen {
	return a.nav.Current()
}

// Session returns the signed-in user as seen by the navigation controller.
func (a *App) Session() (navigation.Session, bool) {
	return a.nav.Session()
}

// Results returns the latest ranked classifications.
func (a *App) Results() []classifications.Classification {
	a.mu.Lock()
	defer a.mu.Unlock()
	return slices.Clone(a.results)
}

// Thread returns the open comment thread, or nil outside AddComment.
func (a *App) Thread() *thread.Thread {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.thread
}

// Stats returns the analyzer counters.
func (a *App) Stats() analyzer.Stats {
	return a.analyzer.Stats()
}

// Run performs the preflight checks, then processes frames and commands
// from in until quit, end of input, or ctx cancellation.
func (a *App) Run(ctx context.Context, in io.Reader) error {
	a.mu.Lock()
	a.root = ctx
	a.mu.Unlock()

	a.Preflight(ctx)
	a.render(a.nav.Current())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.runCapture(gctx)
		return nil
	})
	g.Go(func() error {
		return a.runCommands(gctx, in)
	})

	err := g.Wait()
	a.endSession()
	a.wg.Wait()

	st := a.analyzer.Stats()
	a.logger.Info("app stopped",
		"frames_seen", st.Seen,
		"frames_processed", st.Processed,
		"frames_failed", st.Failed,
	)

	if errors.Is(err, ErrQuit) {
		return nil
	}
	return err
}

// Preflight checks the camera source and server reachability once and
// reports each problem as a notice. Nothing is re-validated later.
func (a *App) Preflight(ctx context.Context) []string {
	var notices []string

	if err := capture.Preflight(&a.cfg.Capture); err != nil {
		notices = append(notices, "camera unavailable: "+err.Error())
	}

	hctx, cancel := context.WithTimeout(ctx, a.cfg.RequestTimeoutDuration())
	defer cancel()
	if err := a.api.Health(hctx); err != nil {
		notices = append(notices, "server unreachable: "+err.Error())
	}

	for _, n := range notices {
		a.logger.Warn("preflight", "notice", n)
		a.printf("! %s\n", n)
	}
	return notices
}

// HandleFrame passes one captured frame to the analyzer, which closes it.
func (a *App) HandleFrame(ctx context.Context, f analyzer.Frame) {
	a.analyzer.Analyze(ctx, f)
}

// Exec runs one command. Remote failures are logged and leave state
// unchanged; the only error is ErrQuit.
func (a *App) Exec(ctx context.Context, cmd Command) error {
	screen := a.nav.Current()

	switch cmd.Name {
	case CmdHelp:
		a.printf("%s\n", Help)

	case CmdQuit:
		return ErrQuit

	case CmdSignIn:
		if screen.Kind != navigation.SignIn {
			a.printf("already signed in\n")
			return nil
		}
		a.auth.SignIn(ctx, cmd.Target)

	case CmdSignOut:
		if screen.Kind == navigation.SignIn {
			return nil
		}
		a.auth.SignOut()
		a.nav.SignOut()

	case CmdComment:
		if screen.Kind != navigation.CameraView {
			a.printf("comment is available on the camera screen\n")
			return nil
		}
		if !a.nav.Comment(a.Results()) {
			a.printf("nothing classified yet\n")
		}

	case CmdBack:
		if !a.nav.Back() {
			a.printf("nothing to go back to\n")
		}

	case CmdAdd, CmdEdit, CmdDelete, CmdSnapshot, CmdRefresh:
		a.execThread(cmd)

	default:
		a.printf("unknown command %q\n", cmd.Name)
	}

	return nil
}

func (a *App) execThread(cmd Command) {
	th := a.Thread()
	if th == nil {
		a.printf("open a thread with comment first\n")
		return
	}
	ctx := a.sessionContext()

	if cmd.Name == CmdAdd {
		th.Add(ctx, cmd.Text)
		return
	}
	if cmd.Name == CmdRefresh {
		th.Load(ctx)
		return
	}

	id, ok := resolveID(th, cmd.Target)
	if !ok {
		a.printf("no single comment matches %q\n", cmd.Target)
		return
	}

	switch cmd.Name {
	case CmdEdit:
		th.Update(ctx, id, cmd.Text)
	case CmdDelete:
		th.Delete(ctx, id)
	case CmdSnapshot:
		a.attachSnapshot(ctx, th, id)
	}
}

func (a *App) attachSnapshot(ctx context.Context, th *thread.Thread, id uuid.UUID) {
	v, ok := th.Find(id)
	if !ok || !v.CanEdit {
		a.printf("snapshots can only be attached to your own comments\n")
		return
	}

	data := a.snaps.Latest()
	if data == nil {
		a.printf("no analyzed frame yet\n")
		return
	}

	updated, err := a.api.UploadSnapshot(ctx, id, data)
	if err != nil {
		a.logger.Error("upload snapshot failed", "id", id, "error", err)
		return
	}
	th.Apply(comments.StreamEvent{Type: comments.EventUpdated, Comment: *updated})
}

func (a *App) onResults(results []classifications.Classification) {
	ranked := classifications.Rank(results)

	a.mu.Lock()
	a.results = ranked
	a.mu.Unlock()

	if a.nav.Current().Kind == navigation.CameraView {
		a.write(func(w io.Writer) { RenderResults(w, ranked) })
	}
	a.publish(ranked)
}

func (a *App) onTransition(t navigation.Transition) {
	switch t.To.Kind {
	case navigation.SignIn:
		a.endSession()
	case navigation.CameraView:
		if t.From.Kind == navigation.SignIn {
			a.beginSession()
		}
		a.closeThread()
	}

	a.render(t.To)

	if t.To.Kind == navigation.AddComment {
		a.openThread(t.To.ClassificationID)
	}
}

func (a *App) beginSession() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cancelSession != nil {
		a.cancelSession()
	}
	a.session, a.cancelSession = context.WithCancel(a.root)
}

// endSession cancels in-flight remote work and the thread stream.
func (a *App) endSession() {
	a.closeThread()

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cancelSession != nil {
		a.cancelSession()
		a.cancelSession = nil
	}
	a.session = nil
}

func (a *App) sessionContext() context.Context {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.session == nil {
		ctx, cancel := context.WithCancel(a.root)
		cancel()
		return ctx
	}
	return a.session
}

func (a *App) openThread(classificationID string) {
	session, _ := a.nav.Session()
	actor := comments.Actor{
		UserID:   session.UserID,
		Username: session.DisplayName,
		Admin:    session.Admin,
	}

	var th *thread.Thread
	th = thread.New(a.api, classificationID, actor, func(items []comments.View) {
		a.write(func(w io.Writer) {
			// A stream event can land after the thread was closed.
			if a.Thread() != th {
				return
			}
			RenderThread(w, classificationID, items)
		})
	}, a.logger)

	ctx := a.sessionContext()
	watchCtx, cancel := context.WithCancel(ctx)

	a.mu.Lock()
	a.thread = th
	a.cancelWatch = cancel
	a.mu.Unlock()

	th.Load(ctx)

	a.wg.Go(func() {
		if err := a.api.Watch(watchCtx, classificationID, th.Apply); err != nil {
			a.logger.Warn("comment stream ended", "classification_id", classificationID, "error", err)
		}
	})
}

func (a *App) closeThread() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cancelWatch != nil {
		a.cancelWatch()
		a.cancelWatch = nil
	}
	a.thread = nil
}

func (a *App) runCapture(ctx context.Context) {
	if a.source == nil {
		return
	}

	if err := a.source.Start(ctx); err != nil {
		a.logger.Error("camera unavailable", "error", err)
		a.printf("! camera unavailable\n")
		return
	}

	for f := range a.source.Frames() {
		a.HandleFrame(ctx, f)
	}

	if err := a.source.Err(); err != nil {
		a.logger.Error("capture ended", "error", err)
	}
}

func (a *App) runCommands(ctx context.Context, in io.Reader) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return ErrQuit
			}
			if strings.TrimSpace(line) == "" {
				continue
			}
			cmd, err := ParseCommand(line)
			if err != nil {
				a.printf("%v\n", err)
				continue
			}
			if err := a.Exec(ctx, cmd); err != nil {
				return err
			}
		}
	}
}

func (a *App) render(screen navigation.Screen) {
	session, _ := a.nav.Session()
	a.write(func(w io.Writer) {
		RenderScreen(w, screen, session)
		if screen.Kind == navigation.CameraView {
			RenderResults(w, a.Results())
		}
	})
}

func (a *App) printf(format string, args ...any) {
	a.write(func(w io.Writer) { fmt.Fprintf(w, format, args...) })
}

func (a *App) write(fn func(io.Writer)) {
	a.outMu.Lock()
	defer a.outMu.Unlock()
	fn(a.out)
}

// resolveID accepts a full comment id or a unique prefix of one in th.
func resolveID(th *thread.Thread, target string) (uuid.UUID, bool) {
	if id, err := uuid.Parse(target); err == nil {
		return id, true
	}

	target = strings.ToLower(target)
	var match uuid.UUID
	n := 0
	for _, v := range th.Items() {
		if strings.HasPrefix(v.ID.String(), target) {
			match = v.ID
			n++
		}
	}
	return match, n == 1
}
