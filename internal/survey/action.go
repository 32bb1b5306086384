// Package survey turns symbolic survey actions into supervised tool
// invocations and correlated bus commands.
package survey

import (
	"fmt"
	"strings"
)

// Kind enumerates the survey action variants.
type Kind int

const (
	KindDock Kind = iota
	KindUndock
	KindMove
	KindPanorama
	KindStereo
)

func (k Kind) String() string {
	switch k {
	case KindDock:
		return "dock"
	case KindUndock:
		return "undock"
	case KindMove:
		return "move"
	case KindPanorama:
		return "panorama"
	case KindStereo:
		return "stereo"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Action is one parsed survey step. Only the fields relevant to its Kind
// are populated.
type Action struct {
	Kind  Kind
	Robot string

	Berth    string // dock: symbolic berth name
	From, To string // move: symbolic bay names
	Location string // panorama: symbolic location name
	Plan     string // stereo: plan file stem, may contain a subdirectory
}

func (a Action) String() string {
	switch a.Kind {
	case KindDock:
		return fmt.Sprintf("dock %s %s", a.Robot, a.Berth)
	case KindUndock:
		return fmt.Sprintf("undock %s", a.Robot)
	case KindMove:
		return fmt.Sprintf("move %s %s %s", a.Robot, a.From, a.To)
	case KindPanorama:
		return fmt.Sprintf("panorama %s %s", a.Robot, a.Location)
	case KindStereo:
		return fmt.Sprintf("stereo %s %s", a.Robot, a.Plan)
	default:
		return a.Kind.String()
	}
}

// Parse reads one action from CLI tokens:
//
//	dock <robot> <berth>
//	undock <robot>
//	move <robot> <from> <to>
//	panorama <robot> <location>
//	stereo <robot> <plan>
func Parse(tokens []string) (Action, error) {
	if len(tokens) == 0 {
		return Action{}, fmt.Errorf("no action given")
	}

	verb := strings.ToLower(tokens[0])
	rest := tokens[1:]

	need := func(n int) error {
		if len(rest) != n {
			return fmt.Errorf("%s takes %d arguments, got %d", verb, n, len(rest))
		}
		return nil
	}

	switch verb {
	case "dock":
		if err := need(2); err != nil {
			return Action{}, err
		}
		return Action{Kind: KindDock, Robot: rest[0], Berth: rest[1]}, nil
	case "undock":
		if err := need(1); err != nil {
			return Action{}, err
		}
		return Action{Kind: KindUndock, Robot: rest[0]}, nil
	case "move":
		if err := need(3); err != nil {
			return Action{}, err
		}
		return Action{Kind: KindMove, Robot: rest[0], From: rest[1], To: rest[2]}, nil
	case "panorama":
		if err := need(2); err != nil {
			return Action{}, err
		}
		return Action{Kind: KindPanorama, Robot: rest[0], Location: rest[1]}, nil
	case "stereo":
		if err := need(2); err != nil {
			return Action{}, err
		}
		return Action{Kind: KindStereo, Robot: rest[0], Plan: rest[1]}, nil
	default:
		return Action{}, fmt.Errorf("unknown action %q (want dock, undock, move, panorama, or stereo)", verb)
	}
}
