package app_test

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/glimpse/internal/app"
	"github.com/JaimeStill/glimpse/internal/classifications"
	"github.com/JaimeStill/glimpse/internal/comments"
	"github.com/JaimeStill/glimpse/internal/navigation"
)

func TestResultLine(t *testing.T) {
	tests := []struct {
		c    classifications.Classification
		want string
	}{
		{classifications.Classification{Name: "cat", Score: 0.9}, "cat - Score: 0.9"},
		{classifications.Classification{Name: "dog", Score: 1}, "dog - Score: 1"},
		{classifications.Classification{Name: "bird", Score: 0.125}, "bird - Score: 0.125"},
	}

	for _, tt := range tests {
		if got := app.ResultLine(tt.c); got != tt.want {
			t.Errorf("ResultLine(%+v) = %q, want %q", tt.c, got, tt.want)
		}
	}
}

func TestRenderResultsEmpty(t *testing.T) {
	var buf bytes.Buffer
	app.RenderResults(&buf, nil)

	if !strings.Contains(buf.String(), "no classifications") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestCommentLine(t *testing.T) {
	id := uuid.MustParse("1a2b3c4d-0000-4000-8000-000000000000")
	v := comments.View{
		Comment: comments.Comment{
			ID:          id,
			Username:    "alice",
			Text:        "nice",
			Timestamp:   time.Date(2026, 3, 1, 12, 0, 0, 0, time.Local),
			HasSnapshot: true,
		},
		Permissions: comments.Permissions{CanEdit: true, CanDelete: true},
	}

	got := app.CommentLine(v)
	want := "[1a2b3c4d] alice (2026-03-01 12:00): nice +snapshot [edit] [delete]"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}

	v.Permissions = comments.Permissions{}
	v.HasSnapshot = false
	if got := app.CommentLine(v); strings.Contains(got, "[edit]") || strings.Contains(got, "[delete]") || strings.Contains(got, "+snapshot") {
		t.Errorf("unexpected affordances: %q", got)
	}
}

func TestRenderScreen(t *testing.T) {
	tests := []struct {
		screen  navigation.Screen
		session navigation.Session
		want    string
	}{
		{navigation.Screen{Kind: navigation.SignIn}, navigation.Session{}, "== sign in =="},
		{navigation.Screen{Kind: navigation.CameraView}, navigation.Session{DisplayName: "Alice"}, "signed in as Alice\n"},
		{navigation.Screen{Kind: navigation.CameraView}, navigation.Session{DisplayName: "Root", Admin: true}, "signed in as Root (admin)"},
		{navigation.Screen{Kind: navigation.AddComment, ClassificationID: "cat"}, navigation.Session{}, "== addComment/cat =="},
	}

	for _, tt := range tests {
		t.Run(tt.screen.String(), func(t *testing.T) {
			var buf bytes.Buffer
			app.RenderScreen(&buf, tt.screen, tt.session)
			if !strings.Contains(buf.String(), tt.want) {
				t.Errorf("output %q missing %q", buf.String(), tt.want)
			}
		})
	}
}
