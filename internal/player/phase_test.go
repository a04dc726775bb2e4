package player

import "testing"

func TestIsValidTransition(t *testing.T) {
	tests := []struct {
		name  string
		from  Phase
		to    Phase
		valid bool
	}{
		// From Idle
		{"idle to starting", PhaseIdle, PhaseStarting, true},
		{"idle to stopped", PhaseIdle, PhaseStopped, true},
		{"idle to playing invalid", PhaseIdle, PhasePlaying, false},
		{"idle to paused invalid", PhaseIdle, PhasePaused, false},

		// From Starting
		{"starting to playing", PhaseStarting, PhasePlaying, true},
		{"starting to recovering", PhaseStarting, PhaseRecovering, true},
		{"starting to switching", PhaseStarting, PhaseSwitching, true},
		{"starting to paused invalid", PhaseStarting, PhasePaused, false},

		// From Playing
		{"playing to paused", PhasePlaying, PhasePaused, true},
		{"playing to recovering", PhasePlaying, PhaseRecovering, true},
		{"playing to switching", PhasePlaying, PhaseSwitching, true},
		{"playing to starting", PhasePlaying, PhaseStarting, true},
		{"playing to idle invalid", PhasePlaying, PhaseIdle, false},

		// From Paused
		{"paused to playing", PhasePaused, PhasePlaying, true},
		{"paused to switching", PhasePaused, PhaseSwitching, true},
		{"paused to recovering invalid", PhasePaused, PhaseRecovering, false},

		// From Recovering
		{"recovering to starting", PhaseRecovering, PhaseStarting, true},
		{"recovering to switching", PhaseRecovering, PhaseSwitching, true},
		{"recovering to paused invalid", PhaseRecovering, PhasePaused, false},
		{"recovering to playing invalid", PhaseRecovering, PhasePlaying, false},

		// From Switching
		{"switching to starting", PhaseSwitching, PhaseStarting, true},
		{"switching to playing invalid", PhaseSwitching, PhasePlaying, false},

		// Stopped is terminal
		{"stopped to starting invalid", PhaseStopped, PhaseStarting, false},
		{"stopped to idle invalid", PhaseStopped, PhaseIdle, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := isValidTransition(tt.from, tt.to)
			if result != tt.valid {
				t.Errorf("isValidTransition(%s, %s) = %v, want %v", tt.from, tt.to, result, tt.valid)
			}
		})
	}
}

func TestEveryPhaseReachesStopped(t *testing.T) {
	phases := []Phase{PhaseIdle, PhaseStarting, PhasePlaying, PhasePaused, PhaseRecovering, PhaseSwitching}
	for _, from := range phases {
		if !isValidTransition(from, PhaseStopped) {
			t.Errorf("shutdown must be reachable from %s", from)
		}
	}
}
