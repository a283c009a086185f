package location

import (
	"fmt"

	"github.com/dmitrijs2005/polaris/internal/common"
)

type State int

const (
	StateIdle State = iota
	StateAwaitingPermission
	StateTrackingForeground
	StateTrackingBackground
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingPermission:
		return "awaiting_permission"
	case StateTrackingForeground:
		return "tracking_foreground"
	case StateTrackingBackground:
		return "tracking_background"
	case StateStopped:
		return "stopped"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Tracking reports whether fixes are being received.
func (s State) Tracking() bool {
	return s == StateTrackingForeground || s == StateTrackingBackground
}

type Mode int

const (
	ModeForeground Mode = iota
	ModeBackground
)

func (m Mode) String() string {
	if m == ModeBackground {
		return "background"
	}
	return "foreground"
}

func (m Mode) trackingState() State {
	if m == ModeBackground {
		return StateTrackingBackground
	}
	return StateTrackingForeground
}

type EventKind int

const (
	EventStart EventKind = iota
	EventPermissionGranted
	EventPermissionDenied
	EventSubscribeFailed
	EventStop
)

// Event drives Next. Mode is read by EventStart and EventPermissionGranted;
// Err by EventPermissionDenied and EventSubscribeFailed.
type Event struct {
	Kind EventKind
	Mode Mode
	Err  error
}

type EffectKind int

const (
	EffectRequestPermission EffectKind = iota
	EffectSubscribe
	EffectUnsubscribe
	EffectRecordError
)

type Effect struct {
	Kind EffectKind
	Mode Mode
	Err  error
}

// Next is the tracker's transition function. Events that make no sense in
// the current state leave it unchanged and produce no effects.
func Next(s State, e Event) (State, []Effect) {
	switch e.Kind {
	case EventStart:
		effects := []Effect{{Kind: EffectRequestPermission, Mode: e.Mode}}
		if s.Tracking() {
			effects = append([]Effect{{Kind: EffectUnsubscribe}}, effects...)
		}
		return StateAwaitingPermission, effects

	case EventPermissionGranted:
		if s != StateAwaitingPermission {
			return s, nil
		}
		return e.Mode.trackingState(), []Effect{{Kind: EffectSubscribe, Mode: e.Mode}}

	case EventPermissionDenied:
		if s != StateAwaitingPermission {
			return s, nil
		}
		return StateStopped, []Effect{{Kind: EffectRecordError, Err: startFailure(e.Err, common.ErrPermissionDenied)}}

	case EventSubscribeFailed:
		if !s.Tracking() {
			return s, nil
		}
		return StateStopped, []Effect{{Kind: EffectRecordError, Err: startFailure(e.Err, nil)}}

	case EventStop:
		switch {
		case s.Tracking():
			return StateStopped, []Effect{{Kind: EffectUnsubscribe}}
		case s == StateAwaitingPermission:
			return StateStopped, nil
		}
		return s, nil
	}
	return s, nil
}

// startFailure wraps whichever of fallback and cause are set in
// ErrTrackingStartFailure.
func startFailure(cause, fallback error) error {
	switch {
	case cause == nil && fallback == nil:
		return common.ErrTrackingStartFailure
	case cause == nil:
		return fmt.Errorf("%w: %w", common.ErrTrackingStartFailure, fallback)
	case fallback == nil:
		return fmt.Errorf("%w: %w", common.ErrTrackingStartFailure, cause)
	}
	return fmt.Errorf("%w: %w: %w", common.ErrTrackingStartFailure, fallback, cause)
}
