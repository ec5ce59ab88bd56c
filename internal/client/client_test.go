package client_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/JaimeStill/glimpse/internal/client"
	"github.com/JaimeStill/glimpse/internal/comments"
	"github.com/JaimeStill/glimpse/internal/identity"
	"github.com/JaimeStill/glimpse/internal/users"
	"github.com/JaimeStill/glimpse/pkg/handlers"
	"github.com/JaimeStill/glimpse/pkg/pagination"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newClient(t *testing.T, h http.Handler) *client.Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := client.New(srv.URL, "/api", 2*time.Second, discard())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func requireBearer(t *testing.T, r *http.Request, want string) {
	t.Helper()
	if got := r.Header.Get("Authorization"); got != "Bearer "+want {
		t.Errorf("Authorization = %q, want Bearer %s", got, want)
	}
}

func TestNewRejectsScheme(t *testing.T) {
	if _, err := client.New("ftp://example.com", "/api", time.Second, discard()); err == nil {
		t.Error("expected error for ftp scheme")
	}
}

func TestSignInStoresToken(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/session", func(w http.ResponseWriter, r *http.Request) {
		cmd, _ := handlers.Decode[identity.SignInCommand](r)
		if cmd.IDToken != "google-token" {
			handlers.RespondError(w, discard(), http.StatusUnauthorized, identity.ErrInvalidCredential)
			return
		}
		handlers.RespondJSON(w, http.StatusOK, identity.SignInResult{
			Token: "session-token",
			User:  &users.User{ID: "u1", Role: users.RoleAdmin},
		})
	})
	mux.HandleFunc("GET /api/users/me", func(w http.ResponseWriter, r *http.Request) {
		requireBearer(t, r, "session-token")
		handlers.RespondJSON(w, http.StatusOK, users.User{ID: "u1", Role: users.RoleAdmin})
	})

	c := newClient(t, mux)
	ctx := context.Background()

	if _, err := c.Me(ctx); !errors.Is(err, client.ErrNotSignedIn) {
		t.Fatalf("Me before sign-in: err = %v, want ErrNotSignedIn", err)
	}

	_, err := c.SignIn(ctx, "forged")
	if !client.IsStatus(err, http.StatusUnauthorized) {
		t.Fatalf("SignIn(forged): err = %v, want 401", err)
	}

	result, err := c.SignIn(ctx, "google-token")
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	if result.Token != "session-token" {
		t.Errorf("token = %q", result.Token)
	}

	u, err := c.Me(ctx)
	if err != nil {
		t.Fatalf("Me: %v", err)
	}
	if !u.IsAdmin() {
		t.Errorf("user = %+v, want admin", u)
	}
}

func TestCommentCalls(t *testing.T) {
	id := uuid.New()
	var deleted, updatedText string

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/comments", func(w http.ResponseWriter, r *http.Request) {
		requireBearer(t, r, "tok")
		if got := r.URL.Query().Get("classification_id"); got != "cat" {
			t.Errorf("classification_id = %q", got)
		}
		views := []comments.View{{Comment: comments.Comment{ID: id, ClassificationID: "cat", Text: "hi"}}}
		handlers.RespondJSON(w, http.StatusOK, pagination.NewPageResult(views, 1, 1, 20))
	})
	mux.HandleFunc("POST /api/comments", func(w http.ResponseWriter, r *http.Request) {
		var cmd comments.CreateCommand
		json.NewDecoder(r.Body).Decode(&cmd)
		handlers.RespondJSON(w, http.StatusCreated, comments.View{
			Comment:     comments.Comment{ID: id, ClassificationID: cmd.ClassificationID, Text: cmd.Text},
			Permissions: comments.Permissions{CanEdit: true, CanDelete: true},
		})
	})
	mux.HandleFunc("PUT /api/comments/{id}", func(w http.ResponseWriter, r *http.Request) {
		var cmd comments.UpdateCommand
		json.NewDecoder(r.Body).Decode(&cmd)
		updatedText = cmd.Text
		handlers.RespondJSON(w, http.StatusOK, comments.View{Comment: comments.Comment{ID: id, Text: cmd.Text}})
	})
	mux.HandleFunc("DELETE /api/comments/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != id.String() {
			handlers.RespondError(w, discard(), http.StatusForbidden, comments.ErrForbidden)
			return
		}
		deleted = r.PathValue("id")
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("PUT /api/comments/{id}/snapshot", func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "image/jpeg" {
			t.Errorf("content type = %q", ct)
		}
		handlers.RespondJSON(w, http.StatusOK, comments.View{Comment: comments.Comment{ID: id, HasSnapshot: true}})
	})

	c := newClient(t, mux)
	c.SetToken("tok")
	ctx := context.Background()

	page, err := c.Comments(ctx, "cat", 0, 0)
	if err != nil {
		t.Fatalf("Comments: %v", err)
	}
	if len(page.Data) != 1 || page.Data[0].Text != "hi" {
		t.Errorf("page = %+v", page)
	}

	v, err := c.AddComment(ctx, "cat", "meow")
	if err != nil {
		t.Fatalf("AddComment: %v", err)
	}
	if v.Text != "meow" || !v.CanEdit {
		t.Errorf("created = %+v", v)
	}

	if _, err := c.UpdateComment(ctx, id, "purr"); err != nil {
		t.Fatalf("UpdateComment: %v", err)
	}
	if updatedText != "purr" {
		t.Errorf("server saw %q", updatedText)
	}

	if v, err := c.UploadSnapshot(ctx, id, []byte{0xFF, 0xD8, 0xFF}); err != nil || !v.HasSnapshot {
		t.Fatalf("UploadSnapshot: %v, %+v", err, v)
	}

	if err := c.DeleteComment(ctx, id); err != nil {
		t.Fatalf("DeleteComment: %v", err)
	}
	if deleted != id.String() {
		t.Errorf("deleted = %q", deleted)
	}

	err = c.DeleteComment(ctx, uuid.New())
	var apiErr *client.APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusForbidden || apiErr.Message != comments.ErrForbidden.Error() {
		t.Errorf("err = %v, want 403 with server message", err)
	}
}

func TestHealth(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	c := newClient(t, mux)

	if err := c.Health(context.Background()); err != nil {
		t.Errorf("Health: %v", err)
	}

	down, _ := client.New("http://127.0.0.1:1", "/api", 200*time.Millisecond, discard())
	if err := down.Health(context.Background()); err == nil {
		t.Error("Health against closed port succeeded")
	}
}

func TestWatch(t *testing.T) {
	upgrader := websocket.Upgrader{}
	release := make(chan struct{})

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/comments/stream", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Has("access_token") {
			t.Error("session token sent in the stream URL")
		}
		if r.Header.Get("Authorization") != "Bearer tok" {
			handlers.RespondError(w, discard(), http.StatusUnauthorized, errors.New("no token"))
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		conn.WriteJSON(comments.StreamEvent{
			Type:    comments.EventCreated,
			Comment: comments.View{Comment: comments.Comment{ClassificationID: r.URL.Query().Get("classification_id"), Text: "new"}},
		})
		<-release
	})

	c := newClient(t, mux)
	defer close(release)

	if err := c.Watch(context.Background(), "cat", func(comments.StreamEvent) {}); !errors.Is(err, client.ErrNotSignedIn) {
		t.Fatalf("Watch without token: err = %v", err)
	}

	c.SetToken("tok")
	ctx, cancel := context.WithCancel(context.Background())
	got := make(chan comments.StreamEvent, 1)
	done := make(chan error, 1)

	go func() {
		done <- c.Watch(ctx, "cat", func(e comments.StreamEvent) { got <- e })
	}()

	select {
	case e := <-got:
		if e.Type != comments.EventCreated || e.Comment.ClassificationID != "cat" {
			t.Errorf("event = %+v", e)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no event received")
	}

	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Watch after cancel = %v, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}
