package status

import (
	"errors"
	"fmt"

	"mesa/pkg/models"
)

var (
	ErrUnknownStatus = errors.New("unknown kitchen status")
	ErrNotForward    = errors.New("kitchen status may only advance forward")
	ErrTerminal      = errors.New("kitchen order is already served")
)

// rank orders the lifecycle pending -> preparing -> ready -> served.
var rank = map[string]int{
	models.KitchenStatusPending:   0,
	models.KitchenStatusPreparing: 1,
	models.KitchenStatusReady:     2,
	models.KitchenStatusServed:    3,
}

// Validate checks that a transition moves strictly forward along the
// lifecycle. The source system left this unguarded; here a regressing or
// repeated transition is rejected.
func Validate(from, to string) error {
	fromRank, ok := rank[from]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownStatus, from)
	}
	toRank, ok := rank[to]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownStatus, to)
	}

	if from == models.KitchenStatusServed {
		return ErrTerminal
	}
	if toRank <= fromRank {
		return fmt.Errorf("%w: %s -> %s", ErrNotForward, from, to)
	}
	return nil
}

// Terminal reports whether the status excludes the order from active
// kitchen views.
func Terminal(s string) bool {
	return s == models.KitchenStatusServed
}
