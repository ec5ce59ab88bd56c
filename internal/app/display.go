package app

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/JaimeStill/glimpse/internal/classifications"
	"github.com/JaimeStill/glimpse/internal/comments"
	"github.com/JaimeStill/glimpse/internal/navigation"
)

const (
	shortIDLen = 8
	timeLayout = "2006-01-02 15:04"
)

// ResultLine formats a classification the way the camera screen shows it.
func ResultLine(c classifications.Classification) string {
	return c.Name + " - Score: " + strconv.FormatFloat(c.Score, 'f', -1, 64)
}

// RenderResults writes the ranked classifications, or a waiting notice.
func RenderResults(w io.Writer, results []classifications.Classification) {
	if len(results) == 0 {
		fmt.Fprintln(w, "  (no classifications yet)")
		return
	}
	for _, c := range results {
		fmt.Fprintln(w, "  "+ResultLine(c))
	}
}

// RenderThread writes a comment thread newest first with the affordances
// each comment offers the viewer.
func RenderThread(w io.Writer, classificationID string, items []comments.View) {
	fmt.Fprintf(w, "comments on %q (%d)\n", classificationID, len(items))
	if len(items) == 0 {
		fmt.Fprintln(w, "  (no comments yet)")
		return
	}
	for _, v := range items {
		fmt.Fprintln(w, "  "+CommentLine(v))
	}
}

// CommentLine formats one comment with its edit/delete affordances.
func CommentLine(v comments.View) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s (%s): %s",
		v.ID.String()[:shortIDLen],
		v.Username,
		v.Timestamp.Local().Format(timeLayout),
		v.Text,
	)
	if v.HasSnapshot {
		b.WriteString(" +snapshot")
	}
	if v.CanEdit {
		b.WriteString(" [edit]")
	}
	if v.CanDelete {
		b.WriteString(" [delete]")
	}
	return b.String()
}

// RenderScreen writes the header shown on entering a screen.
func RenderScreen(w io.Writer, screen navigation.Screen, session navigation.Session) {
	switch screen.Kind {
	case navigation.SignIn:
		fmt.Fprintln(w, "== sign in ==")
		fmt.Fprintln(w, "  signin <id-token> to continue")
	case navigation.CameraView:
		role := ""
		if session.Admin {
			role = " (admin)"
		}
		fmt.Fprintf(w, "== camera == signed in as %s%s\n", session.DisplayName, role)
		fmt.Fprintln(w, "  comment | signout | quit")
	case navigation.AddComment:
		fmt.Fprintf(w, "== %s ==\n", screen)
		fmt.Fprintln(w, "  add <text> | edit <id> <text> | delete <id> | snap <id> | back")
	}
}
