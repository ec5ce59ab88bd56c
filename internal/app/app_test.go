package app_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/glimpse/internal/analyzer"
	"github.com/JaimeStill/glimpse/internal/app"
	"github.com/JaimeStill/glimpse/internal/classifications"
	"github.com/JaimeStill/glimpse/internal/classifier"
	"github.com/JaimeStill/glimpse/internal/comments"
	"github.com/JaimeStill/glimpse/internal/config"
	"github.com/JaimeStill/glimpse/internal/identity"
	"github.com/JaimeStill/glimpse/internal/navigation"
	"github.com/JaimeStill/glimpse/internal/users"
	"github.com/JaimeStill/glimpse/pkg/pagination"
)

var errOffline = errors.New("server offline")

// fakeAPI is an in-memory server. Tokens "alice" and "admin" sign in;
// anything else is rejected.
type fakeAPI struct {
	mu        sync.Mutex
	token     string
	items     []comments.Comment
	uploads   map[uuid.UUID][]byte
	healthErr error
	failAdd   bool

	watching chan string
	watchEnd chan string
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		uploads:  make(map[uuid.UUID][]byte),
		watching: make(chan string, 4),
		watchEnd: make(chan string, 4),
	}
}

func (f *fakeAPI) SignIn(_ context.Context, idToken string) (*identity.SignInResult, error) {
	role := users.RoleUser
	switch idToken {
	case "alice":
	case "admin":
		role = users.RoleAdmin
	default:
		return nil, errors.New("invalid credential")
	}
	f.SetToken("session-" + idToken)
	return &identity.SignInResult{
		Token: "session-" + idToken,
		User:  &users.User{ID: idToken, DisplayName: strings.ToUpper(idToken[:1]) + idToken[1:], Role: role},
	}, nil
}

func (f *fakeAPI) SetToken(token string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.token = token
}

func (f *fakeAPI) Token() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.token
}

func (f *fakeAPI) Health(context.Context) error {
	return f.healthErr
}

func (f *fakeAPI) actor() comments.Actor {
	id := strings.TrimPrefix(f.token, "session-")
	return comments.Actor{UserID: id, Username: id, Admin: id == "admin"}
}

func (f *fakeAPI) Comments(_ context.Context, classificationID string, page, pageSize int) (*pagination.PageResult[comments.View], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var views []comments.View
	for _, c := range f.items {
		if c.ClassificationID == classificationID {
			views = append(views, comments.ViewFor(c, f.actor()))
		}
	}
	result := pagination.NewPageResult(views, len(views), page, pageSize)
	return &result, nil
}

func (f *fakeAPI) AddComment(_ context.Context, classificationID, text string) (*comments.View, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAdd {
		return nil, errOffline
	}
	a := f.actor()
	c := comments.Comment{
		ID:               uuid.New(),
		ClassificationID: classificationID,
		UserID:           a.UserID,
		Username:         a.Username,
		Text:             text,
		Timestamp:        time.Now(),
	}
	f.items = append([]comments.Comment{c}, f.items...)
	v := comments.ViewFor(c, a)
	return &v, nil
}

func (f *fakeAPI) UpdateComment(_ context.Context, id uuid.UUID, text string) (*comments.View, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, c := range f.items {
		if c.ID == id {
			f.items[i].Text = text
			v := comments.ViewFor(f.items[i], f.actor())
			return &v, nil
		}
	}
	return nil, errors.New("not found")
}

func (f *fakeAPI) DeleteComment(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, c := range f.items {
		if c.ID == id {
			f.items = append(f.items[:i], f.items[i+1:]...)
			return nil
		}
	}
	return errors.New("not found")
}

func (f *fakeAPI) UploadSnapshot(_ context.Context, id uuid.UUID, jpeg []byte) (*comments.View, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, c := range f.items {
		if c.ID == id {
			f.uploads[id] = jpeg
			f.items[i].HasSnapshot = true
			v := comments.ViewFor(f.items[i], f.actor())
			return &v, nil
		}
	}
	return nil, errors.New("not found")
}

func (f *fakeAPI) Watch(ctx context.Context, classificationID string, _ func(comments.StreamEvent)) error {
	f.watching <- classificationID
	<-ctx.Done()
	f.watchEnd <- classificationID
	return nil
}

func (f *fakeAPI) seed(classificationID, userID, text string) comments.Comment {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := comments.Comment{
		ID:               uuid.New(),
		ClassificationID: classificationID,
		UserID:           userID,
		Username:         userID,
		Text:             text,
		Timestamp:        time.Now().Add(-time.Hour),
	}
	f.items = append(f.items, c)
	return c
}

type fakeClassifier struct {
	results []classifications.Classification
}

func (f *fakeClassifier) Classify(context.Context, image.Image, int) ([]classifications.Classification, error) {
	return f.results, nil
}

type fakeFrame struct {
	closed bool
}

func (f *fakeFrame) Decode() (image.Image, error) { return image.NewRGBA(image.Rect(0, 0, 400, 300)), nil }
func (f *fakeFrame) Rotation() int                { return 0 }
func (f *fakeFrame) Close() error                 { f.closed = true; return nil }

type fakePublisher struct {
	mu       sync.Mutex
	messages []app.ResultMessage
	topics   []string
}

func (p *fakePublisher) Publish(subtopic string, payload []byte) error {
	var msg app.ResultMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, subtopic)
	p.messages = append(p.messages, msg)
	return nil
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func testConfig() *config.AppConfig {
	return &config.AppConfig{
		ServerURL:       "http://localhost:8080",
		DeviceID:        "kitchen-cam",
		RequestTimeout:  "1s",
		ShutdownTimeout: "1s",
		Analyzer: analyzer.Config{
			Interval:   60,
			CropWidth:  analyzer.DefaultCropWidth,
			CropHeight: analyzer.DefaultCropHeight,
		},
		Classifier: classifier.Config{Quality: 80},
	}
}

var sampleResults = []classifications.Classification{
	{Name: "dog", Score: 0.1},
	{Name: "cat", Score: 0.9},
	{Name: "bird", Score: 0.5},
	{Name: "fish", Score: 0.3},
}

type harness struct {
	app *app.App
	api *fakeAPI
	pub  *fakePublisher
	out  *syncBuffer
	logs *syncBuffer
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		api:  newFakeAPI(),
		pub:  &fakePublisher{},
		out:  &syncBuffer{},
		logs: &syncBuffer{},
	}
	logger := slog.New(slog.NewTextHandler(h.logs, nil))
	h.app = app.New(testConfig(), h.api, &fakeClassifier{results: sampleResults}, nil, h.pub, h.out, logger)
	t.Cleanup(func() {
		h.app.Exec(context.Background(), app.Command{Name: app.CmdSignOut})
	})
	return h
}

func (h *harness) exec(t *testing.T, line string) {
	t.Helper()
	cmd, err := app.ParseCommand(line)
	if err != nil {
		t.Fatalf("parse %q: %v", line, err)
	}
	if err := h.app.Exec(context.Background(), cmd); err != nil {
		t.Fatalf("exec %q: %v", line, err)
	}
}

func (h *harness) frame(t *testing.T) {
	t.Helper()
	f := &fakeFrame{}
	h.app.HandleFrame(context.Background(), f)
	if !f.closed {
		t.Fatal("frame not released")
	}
}

func waitFor(t *testing.T, ch <-chan string, want string) {
	t.Helper()
	select {
	case got := <-ch:
		if got != want {
			t.Errorf("got %q, want %q", got, want)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %q", want)
	}
}

func TestStartsOnSignIn(t *testing.T) {
	h := newHarness(t)

	if got := h.app.Screen().Kind; got != navigation.SignIn {
		t.Errorf("Screen = %s, want signIn", got)
	}
}

func TestSignInFailureStaysOnSignIn(t *testing.T) {
	h := newHarness(t)

	h.exec(t, "signin mallory")

	if got := h.app.Screen().Kind; got != navigation.SignIn {
		t.Errorf("Screen = %s, want signIn", got)
	}
	if !strings.Contains(h.logs.String(), "sign in failed") {
		t.Errorf("failure not logged:\n%s", h.logs.String())
	}
	if strings.Contains(h.out.String(), "failed") {
		t.Errorf("failure surfaced to the user:\n%s", h.out.String())
	}
}

func TestSignInResolvesAdmin(t *testing.T) {
	tests := []struct {
		token string
		admin bool
	}{
		{"alice", false},
		{"admin", true},
	}

	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			h := newHarness(t)
			h.exec(t, "signin "+tt.token)

			if got := h.app.Screen().Kind; got != navigation.CameraView {
				t.Fatalf("Screen = %s, want cameraView", got)
			}
			s, ok := h.app.Session()
			if !ok {
				t.Fatal("expected session")
			}
			if s.Admin != tt.admin {
				t.Errorf("Admin = %v, want %v", s.Admin, tt.admin)
			}
		})
	}
}

func TestFramesRankAndPublish(t *testing.T) {
	h := newHarness(t)
	h.exec(t, "signin alice")

	for range 61 {
		h.frame(t)
	}

	st := h.app.Stats()
	if st.Seen != 61 || st.Processed != 2 || st.Skipped != 59 {
		t.Errorf("Stats = %+v", st)
	}

	results := h.app.Results()
	want := []string{"cat", "bird", "fish"}
	if len(results) != len(want) {
		t.Fatalf("got %d results, want %d", len(results), len(want))
	}
	for i, name := range want {
		if results[i].Name != name {
			t.Errorf("results[%d] = %s, want %s", i, results[i].Name, name)
		}
	}

	if !strings.Contains(h.out.String(), "cat - Score: 0.9") {
		t.Errorf("output missing top result:\n%s", h.out.String())
	}

	h.pub.mu.Lock()
	defer h.pub.mu.Unlock()
	if len(h.pub.messages) != 2 {
		t.Fatalf("published %d messages, want 2", len(h.pub.messages))
	}
	msg := h.pub.messages[0]
	if msg.DeviceID != "kitchen-cam" || h.pub.topics[0] != "kitchen-cam" {
		t.Errorf("device = %q topic = %q", msg.DeviceID, h.pub.topics[0])
	}
	if len(msg.Classifications) != 3 || msg.Classifications[0].Name != "cat" {
		t.Errorf("Classifications = %+v", msg.Classifications)
	}
}

func TestCommentWithoutResults(t *testing.T) {
	h := newHarness(t)
	h.exec(t, "signin alice")

	h.exec(t, "comment")

	if got := h.app.Screen().Kind; got != navigation.CameraView {
		t.Errorf("Screen = %s, want cameraView", got)
	}
}

func TestClosedThreadDoesNotRender(t *testing.T) {
	h := newHarness(t)
	h.exec(t, "signin alice")
	h.frame(t)
	h.exec(t, "comment")
	waitFor(t, h.api.watching, "cat")

	th := h.app.Thread()
	h.exec(t, "back")
	waitFor(t, h.api.watchEnd, "cat")
	before := len(h.out.String())

	th.Apply(comments.StreamEvent{
		Type: comments.EventCreated,
		Comment: comments.View{Comment: comments.Comment{
			ID:               uuid.New(),
			ClassificationID: "cat",
			UserID:           "bob",
			Username:         "bob",
			Text:             "late",
			Timestamp:        time.Now(),
		}},
	})

	if late := h.out.String()[before:]; strings.Contains(late, "comments on") {
		t.Errorf("closed thread rendered after back:\n%s", late)
	}
	if got := h.app.Screen().Kind; got != navigation.CameraView {
		t.Errorf("Screen = %s, want cameraView", got)
	}
}

func TestCommentThreadFlow(t *testing.T) {
	h := newHarness(t)
	existing := h.api.seed("cat", "bob", "seen this one")
	h.api.seed("dog", "bob", "other thread")

	h.exec(t, "signin alice")
	h.frame(t)
	h.exec(t, "comment")

	screen := h.app.Screen()
	if screen.Kind != navigation.AddComment || screen.ClassificationID != "cat" {
		t.Fatalf("Screen = %s, want addComment/cat", screen)
	}
	waitFor(t, h.api.watching, "cat")

	th := h.app.Thread()
	if th == nil {
		t.Fatal("expected open thread")
	}
	if got := len(th.Items()); got != 1 {
		t.Fatalf("loaded %d items, want 1", got)
	}

	h.exec(t, "add first!")
	items := th.Items()
	if len(items) != 2 || items[0].Text != "first!" {
		t.Fatalf("items = %+v", items)
	}
	mine := items[0]
	if !mine.CanEdit || !mine.CanDelete {
		t.Errorf("own comment permissions = %+v", mine.Permissions)
	}

	h.exec(t, "edit "+mine.ID.String()[:8]+" second thoughts")
	if v, _ := th.Find(mine.ID); v.Text != "second thoughts" {
		t.Errorf("Text = %q after edit", v.Text)
	}

	h.exec(t, "delete "+existing.ID.String())
	if _, ok := th.Find(existing.ID); !ok {
		t.Error("foreign comment removed without permission")
	}

	h.exec(t, "delete "+mine.ID.String())
	if _, ok := th.Find(mine.ID); ok {
		t.Error("own comment not removed")
	}

	h.exec(t, "back")
	if got := h.app.Screen().Kind; got != navigation.CameraView {
		t.Errorf("Screen = %s, want cameraView", got)
	}
	waitFor(t, h.api.watchEnd, "cat")
	if h.app.Thread() != nil {
		t.Error("thread still open after back")
	}
}

func TestAdminDeletesForeignComment(t *testing.T) {
	h := newHarness(t)
	existing := h.api.seed("cat", "bob", "spam")

	h.exec(t, "signin admin")
	h.frame(t)
	h.exec(t, "comment")
	waitFor(t, h.api.watching, "cat")

	th := h.app.Thread()
	v, ok := th.Find(existing.ID)
	if !ok {
		t.Fatal("seeded comment not loaded")
	}
	if v.CanEdit || !v.CanDelete {
		t.Errorf("admin permissions on foreign comment = %+v", v.Permissions)
	}

	h.exec(t, "delete "+existing.ID.String()[:8])
	if _, ok := th.Find(existing.ID); ok {
		t.Error("admin delete did not remove comment")
	}
}

func TestAddFailureLeavesThread(t *testing.T) {
	h := newHarness(t)
	h.api.seed("cat", "bob", "hello")

	h.exec(t, "signin alice")
	h.frame(t)
	h.exec(t, "comment")
	waitFor(t, h.api.watching, "cat")

	h.api.mu.Lock()
	h.api.failAdd = true
	h.api.mu.Unlock()

	h.exec(t, "add lost")

	if got := len(h.app.Thread().Items()); got != 1 {
		t.Errorf("items = %d, want 1", got)
	}
	if !strings.Contains(h.logs.String(), "add comment failed") {
		t.Errorf("failure not logged:\n%s", h.logs.String())
	}
}

func TestSnapshotUpload(t *testing.T) {
	h := newHarness(t)

	h.exec(t, "signin alice")
	h.frame(t)
	h.exec(t, "comment")
	waitFor(t, h.api.watching, "cat")
	h.exec(t, "add with picture")

	mine := h.app.Thread().Items()[0]
	h.exec(t, "snap "+mine.ID.String()[:8])

	h.api.mu.Lock()
	data := h.api.uploads[mine.ID]
	h.api.mu.Unlock()
	if len(data) < 2 || data[0] != 0xFF || data[1] != 0xD8 {
		t.Fatalf("uploaded %d bytes, want a JPEG", len(data))
	}
	if v, _ := h.app.Thread().Find(mine.ID); !v.HasSnapshot {
		t.Error("thread not updated with snapshot flag")
	}
}

func TestSignOutReturnsToSignIn(t *testing.T) {
	h := newHarness(t)

	h.exec(t, "signin alice")
	h.frame(t)
	h.exec(t, "comment")
	waitFor(t, h.api.watching, "cat")

	h.exec(t, "signout")

	if got := h.app.Screen().Kind; got != navigation.SignIn {
		t.Errorf("Screen = %s, want signIn", got)
	}
	if h.api.Token() != "" {
		t.Errorf("token = %q after sign out", h.api.Token())
	}
	waitFor(t, h.api.watchEnd, "cat")

	h.exec(t, "signin admin")
	if s, _ := h.app.Session(); !s.Admin || h.app.Screen().Kind != navigation.CameraView {
		t.Errorf("second sign in: screen = %s session = %+v", h.app.Screen(), s)
	}
}

func TestThreadCommandsOutsideThread(t *testing.T) {
	h := newHarness(t)
	h.exec(t, "signin alice")

	h.exec(t, "add nowhere")

	if !strings.Contains(h.out.String(), "open a thread") {
		t.Errorf("output missing notice:\n%s", h.out.String())
	}
}

func TestExecQuit(t *testing.T) {
	h := newHarness(t)

	err := h.app.Exec(context.Background(), app.Command{Name: app.CmdQuit})
	if !errors.Is(err, app.ErrQuit) {
		t.Errorf("err = %v, want ErrQuit", err)
	}
}

func TestPreflightReportsProblems(t *testing.T) {
	h := newHarness(t)
	h.api.healthErr = errOffline

	notices := h.app.Preflight(context.Background())

	if len(notices) != 2 {
		t.Fatalf("got %d notices, want 2: %v", len(notices), notices)
	}
	if !strings.HasPrefix(notices[0], "camera unavailable") {
		t.Errorf("notices[0] = %q", notices[0])
	}
	if !strings.HasPrefix(notices[1], "server unreachable") {
		t.Errorf("notices[1] = %q", notices[1])
	}
}

func TestRunProcessesInput(t *testing.T) {
	h := newHarness(t)
	in := strings.NewReader("signin alice\nbogus\nhelp\nquit\nsignout\n")

	done := make(chan error, 1)
	go func() { done <- h.app.Run(context.Background(), in) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return")
	}

	if got := h.app.Screen().Kind; got != navigation.CameraView {
		t.Errorf("Screen = %s, want cameraView", got)
	}
	out := h.out.String()
	for _, want := range []string{"== sign in ==", "== camera ==", "unknown command", "commands:"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	h := newHarness(t)
	r, w := io.Pipe()
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.app.Run(ctx, r) }()

	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
