// Package navigation routes the app between its screens. The controller is a
// small state machine driven by authentication callbacks and user actions.
package navigation

// Kind identifies a screen.
type Kind int

const (
	SignIn Kind = iota
	CameraView
	AddComment
)

func (k Kind) String() string {
	switch k {
	case SignIn:
		return "signIn"
	case CameraView:
		return "cameraView"
	case AddComment:
		return "addComment"
	}
	return "unknown"
}

// Screen is a destination. ClassificationID is set only for AddComment.
type Screen struct {
	Kind             Kind
	ClassificationID string
}

// String renders the route, e.g. "addComment/cat".
func (s Screen) String() string {
	if s.Kind == AddComment {
		return s.Kind.String() + "/" + s.ClassificationID
	}
	return s.Kind.String()
}

// Session is the signed-in user as seen by the screens.
type Session struct {
	UserID      string
	DisplayName string
	Admin       bool
}

// Transition is delivered to observers after every screen change.
type Transition struct {
	From Screen
	To   Screen
}
