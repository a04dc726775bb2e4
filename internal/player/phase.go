/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package player

// Phase is the controller's playback phase. Exactly one phase holds at
// any instant; transitions are validated against the map below.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseStarting   Phase = "starting"
	PhasePlaying    Phase = "playing"
	PhasePaused     Phase = "paused"
	PhaseRecovering Phase = "recovering"
	PhaseSwitching  Phase = "switching"
	PhaseStopped    Phase = "stopped"
)

// isValidTransition reports whether the phase machine allows from -> to.
func isValidTransition(from, to Phase) bool {
	validTransitions := map[Phase][]Phase{
		PhaseIdle: {
			PhaseStarting,
			PhaseSwitching,
			PhaseStopped,
		},
		PhaseStarting: {
			PhasePlaying,
			PhaseRecovering,
			PhaseSwitching,
			PhaseStarting,
			PhaseStopped,
		},
		PhasePlaying: {
			PhasePaused,
			PhaseRecovering,
			PhaseSwitching,
			PhaseStarting,
			PhaseStopped,
		},
		PhasePaused: {
			PhasePlaying,
			PhaseSwitching,
			PhaseStarting,
			PhaseStopped,
		},
		PhaseRecovering: {
			PhaseStarting,
			PhaseSwitching,
			PhaseStopped,
		},
		PhaseSwitching: {
			PhaseStarting,
			PhaseStopped,
		},
		// PhaseStopped is terminal.
	}

	allowed, ok := validTransitions[from]
	if !ok {
		return false
	}
	for _, candidate := range allowed {
		if candidate == to {
			return true
		}
	}
	return false
}
