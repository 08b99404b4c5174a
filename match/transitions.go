package match

import (
	"time"

	"github.com/golan-guy/hangman/hebrew"
)

// AddPlayer appends a player to the roster, seeding score and timeout
// count at zero. Adding a player who is already present is a no-op.
func (m Match) AddPlayer(id, name string) Match {
	if m.HasPlayer(id) {
		return m
	}
	c := m.clone()
	c.PlayerOrder = append(c.PlayerOrder, id)
	c.Players[id] = PlayerInfo{DisplayName: name}
	return c
}

// RemovePlayer deletes a player from the roster and re-derives the turn
// index: removals before the current turn shift it down by one, removing
// the current player wraps it modulo the new roster length. Removing an
// absent player is a no-op.
func (m Match) RemovePlayer(id string) Match {
	if !m.HasPlayer(id) {
		return m
	}
	c := m.clone()
	removed := -1
	for i, p := range c.PlayerOrder {
		if p == id {
			removed = i
			break
		}
	}
	c.PlayerOrder = append(c.PlayerOrder[:removed], c.PlayerOrder[removed+1:]...)
	delete(c.Players, id)

	switch {
	case len(c.PlayerOrder) == 0:
		c.TurnIndex = 0
	case removed < c.TurnIndex:
		c.TurnIndex--
	case removed == c.TurnIndex:
		c.TurnIndex = c.TurnIndex % len(c.PlayerOrder)
	}
	return c
}

// RevealLetter discloses a letter, folded to its regular form.
// Revealing the same letter twice yields the same set as revealing it
// once.
func (m Match) RevealLetter(letter rune) Match {
	if m.LetterRevealed(letter) {
		return m
	}
	c := m.clone()
	c.RevealedLetters = append(c.RevealedLetters, string(hebrew.Normalize(letter)))
	return c
}

// AddPoints adds delta to a player's score.
func (m Match) AddPoints(id string, delta int) Match {
	if !m.HasPlayer(id) {
		return m
	}
	c := m.clone()
	info := c.Players[id]
	info.Score += delta
	c.Players[id] = info
	return c
}

// IncrementTimeout bumps a player's timeout counter by one.
func (m Match) IncrementTimeout(id string) Match {
	if !m.HasPlayer(id) {
		return m
	}
	c := m.clone()
	info := c.Players[id]
	info.TimeoutCount++
	c.Players[id] = info
	return c
}

// AdvanceTurn moves the turn to the next player in roster order.
func (m Match) AdvanceTurn() Match {
	if len(m.PlayerOrder) == 0 {
		return m
	}
	c := m.clone()
	c.TurnIndex = (c.TurnIndex + 1) % len(c.PlayerOrder)
	return c
}

// StartNewRound swaps in a fresh word and category, clearing the
// revealed letters and any in-flight solve attempt. Scores and turn
// position carry over.
func (m Match) StartNewRound(word, category string) Match {
	c := m.clone()
	c.Word = word
	c.Category = category
	c.RevealedLetters = nil
	c.SolveAttempt = nil
	return c
}

// Begin moves a joining match into play and starts the first turn clock.
func (m Match) Begin(now time.Time) Match {
	c := m.clone()
	c.Status = StatusPlaying
	c.SolveAttempt = nil
	c.TurnDeadlineAt = &now
	return c
}

// ResetTurnClock restarts the turn deadline from now and clears any
// solve attempt, restoring the "awaiting turn action" sub-state.
func (m Match) ResetTurnClock(now time.Time) Match {
	c := m.clone()
	c.SolveAttempt = nil
	c.TurnDeadlineAt = &now
	return c
}

// OpenSolveAttempt switches the match into the "awaiting solve reply"
// sub-state for the given player. The turn deadline is suspended for as
// long as the attempt is in flight.
func (m Match) OpenSolveAttempt(solverID, promptRef string, now time.Time) Match {
	c := m.clone()
	c.TurnDeadlineAt = nil
	c.SolveAttempt = &SolveAttempt{
		SolverID:         solverID,
		PromptMessageRef: promptRef,
		DeadlineAt:       now,
	}
	return c
}
