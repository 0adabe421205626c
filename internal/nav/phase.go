package nav

import "fmt"

// Phase is one discrete stage of the guided approach. Phases are totally
// ordered by flight progress; PhaseTakeoff is initial and PhaseLanding is
// terminal.
type Phase int

const (
	// PhaseTakeoff gates flight start on reaching a stable altitude band
	// before any visual alignment is attempted.
	PhaseTakeoff Phase = iota

	// PhaseAligning squares the vehicle to the target marker using only
	// rotational correction. Translating while misaligned tends to push
	// the marker out of frame.
	PhaseAligning

	// PhaseApproaching closes the remaining distance to the target marker
	// using lateral and longitudinal correction.
	PhaseApproaching

	// PhaseLanding is entered when the reserved landing marker is reached.
	// No transitions leave this phase.
	PhaseLanding
)

func (p Phase) String() string {
	switch p {
	case PhaseTakeoff:
		return "takeoff"
	case PhaseAligning:
		return "aligning"
	case PhaseApproaching:
		return "approaching"
	case PhaseLanding:
		return "landing"
	default:
		return "unknown"
	}
}

// ParsePhase converts a phase name produced by Phase.String back into a
// Phase value.
func ParsePhase(s string) (Phase, error) {
	switch s {
	case "takeoff":
		return PhaseTakeoff, nil
	case "aligning":
		return PhaseAligning, nil
	case "approaching":
		return PhaseApproaching, nil
	case "landing":
		return PhaseLanding, nil
	default:
		return 0, fmt.Errorf("unknown phase %q", s)
	}
}
