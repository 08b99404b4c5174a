// Package arbiter decides whether a match's active deadline has expired
// and what penalty follows. Decisions are pure functions of the loaded
// state and the clock, so the interactive handler and the periodic sweep
// can both run them against the same session: if both observe the same
// pre-timeout state before either writes, the stale overwrite applies
// the identical decision. That makes the duplicate window a benign
// best-effort gap, not a correctness hole — the store offers no
// transactional read-modify-write, so this convergence is all we claim.
package arbiter

import (
	"time"

	"github.com/golan-guy/hangman/match"
)

// Kind says which deadline, if any, expired.
type Kind int

const (
	KindNone Kind = iota
	KindTurnExpired
	KindSolveExpired
)

// Budgets carries the tunable limits a decision depends on.
type Budgets struct {
	TurnBudget        time.Duration
	SolveBudget       time.Duration
	EjectionThreshold int
}

// Outcome is the full result of one arbitration: the state to persist
// and what happened to whom. When MatchOver is set the roster emptied
// and the match must be deleted instead of saved.
type Outcome struct {
	Kind           Kind
	Next           match.Match
	TimedOutPlayer string
	Ejected        bool
	MatchOver      bool
}

// Decide checks the active deadline of m against now and, when expired,
// computes the follow-up transition. The solve deadline is checked first
// because an in-flight attempt suspends the turn clock entirely.
func Decide(m match.Match, now time.Time, b Budgets) Outcome {
	if m.Status != match.StatusPlaying {
		return Outcome{Kind: KindNone, Next: m}
	}

	if a := m.SolveAttempt; a != nil {
		if now.Sub(a.DeadlineAt) <= b.SolveBudget {
			return Outcome{Kind: KindNone, Next: m}
		}
		// The solver is the current-turn player by construction; an
		// attempt can only be opened by whoever holds the turn.
		return penalize(m.ResetTurnClock(now), a.SolverID, now, b, KindSolveExpired)
	}

	if m.TurnDeadlineAt == nil || now.Sub(*m.TurnDeadlineAt) <= b.TurnBudget {
		return Outcome{Kind: KindNone, Next: m}
	}
	return penalize(m, m.CurrentPlayer(), now, b, KindTurnExpired)
}

// penalize applies the shared timeout consequence: bump the player's
// counter and, as one atomic decision, either eject them at the
// threshold or pass the turn. The caller persists the result exactly
// once; increment and removal are never separate writes.
func penalize(m match.Match, playerID string, now time.Time, b Budgets, kind Kind) Outcome {
	m = m.IncrementTimeout(playerID)

	if m.Players[playerID].TimeoutCount >= b.EjectionThreshold {
		m = m.RemovePlayer(playerID)
		if len(m.PlayerOrder) == 0 {
			return Outcome{Kind: kind, TimedOutPlayer: playerID, Ejected: true, MatchOver: true}
		}
		// Removal already moved the turn to the next player.
		return Outcome{
			Kind:           kind,
			Next:           m.ResetTurnClock(now),
			TimedOutPlayer: playerID,
			Ejected:        true,
		}
	}

	return Outcome{
		Kind:           kind,
		Next:           m.AdvanceTurn().ResetTurnClock(now),
		TimedOutPlayer: playerID,
	}
}
