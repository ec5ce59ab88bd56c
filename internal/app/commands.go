package app

import (
	"errors"
	"fmt"
	"strings"
)

// Command names accepted on the app's input.
const (
	CmdHelp     = "help"
	CmdSignIn   = "signin"
	CmdComment  = "comment"
	CmdAdd      = "add"
	CmdEdit     = "edit"
	CmdDelete   = "delete"
	CmdSnapshot = "snap"
	CmdRefresh  = "refresh"
	CmdBack     = "back"
	CmdSignOut  = "signout"
	CmdQuit     = "quit"
)

// ErrQuit is returned by Exec for the quit command.
var ErrQuit = errors.New("quit requested")

// ErrUsage reports a malformed command line.
var ErrUsage = errors.New("usage")

// Command is one parsed input line.
type Command struct {
	Name string
	// Target is the token, comment id or prefix the command acts on.
	Target string
	// Text is the free text following the target.
	Text string
}

var usage = map[string]string{
	CmdSignIn:   "signin <id-token>",
	CmdAdd:      "add <text>",
	CmdEdit:     "edit <comment-id> <text>",
	CmdDelete:   "delete <comment-id>",
	CmdSnapshot: "snap <comment-id>",
}

// Help lists the accepted commands.
const Help = `commands:
  signin <id-token>         exchange an identity token and open the camera
  comment                   open the thread for the top classification
  add <text>                post a comment
  edit <comment-id> <text>  change your comment
  delete <comment-id>       delete a comment
  snap <comment-id>         attach the latest analyzed frame to your comment
  refresh                   reload the thread
  back                      return to the camera
  signout                   sign out
  quit                      exit`

// ParseCommand splits line into a Command. Comment ids may be given as any
// unique prefix.
func ParseCommand(line string) (Command, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return Command{}, fmt.Errorf("%w: empty command", ErrUsage)
	}

	name, rest, _ := strings.Cut(line, " ")
	name = strings.ToLower(name)
	rest = strings.TrimSpace(rest)

	cmd := Command{Name: name}

	switch name {
	case CmdSignIn, CmdDelete, CmdSnapshot:
		cmd.Target = rest
		if cmd.Target == "" || strings.ContainsAny(cmd.Target, " \t") {
			return Command{}, fmt.Errorf("%w: %s", ErrUsage, usage[name])
		}
	case CmdAdd:
		cmd.Text = rest
		if cmd.Text == "" {
			return Command{}, fmt.Errorf("%w: %s", ErrUsage, usage[name])
		}
	case CmdEdit:
		target, text, _ := strings.Cut(rest, " ")
		cmd.Target, cmd.Text = target, strings.TrimSpace(text)
		if cmd.Target == "" || cmd.Text == "" {
			return Command{}, fmt.Errorf("%w: %s", ErrUsage, usage[name])
		}
	case CmdHelp, CmdComment, CmdRefresh, CmdBack, CmdSignOut, CmdQuit:
		if rest != "" {
			return Command{}, fmt.Errorf("%w: %s takes no arguments", ErrUsage, name)
		}
	default:
		return Command{}, fmt.Errorf("%w: unknown command %q", ErrUsage, name)
	}

	return cmd, nil
}
