// Package match holds the persisted state of one match and the pure
// transitions that move it forward. Every transition returns a new value
// and never mutates its input, so concurrent readers can never observe a
// partial update.
package match

import (
	"fmt"
	"time"
	"unicode"

	"github.com/golan-guy/hangman/hebrew"
)

// Status is the lifecycle phase of a match. Terminal states are modeled
// by the match being deleted from the store, not by a third value.
type Status string

const (
	StatusJoining Status = "joining"
	StatusPlaying Status = "playing"
)

// PlayerInfo is the per-player record kept alongside the roster.
type PlayerInfo struct {
	DisplayName  string `json:"displayName"`
	Score        int    `json:"score"`
	TimeoutCount int    `json:"timeoutCount"`
}

// SolveAttempt is present only while a full-word solve is in flight. The
// solve deadline supersedes the turn deadline for as long as it exists.
type SolveAttempt struct {
	SolverID         string    `json:"solverId"`
	PromptMessageRef string    `json:"promptMessageRef,omitempty"`
	DeadlineAt       time.Time `json:"deadlineAt"`
}

// Match is the full persisted state of one match, one per conversation.
//
// TurnDeadlineAt and SolveAttempt.DeadlineAt hold the moment the
// respective clock was last reset; a deadline has expired once a full
// time budget has elapsed since that moment.
type Match struct {
	Word            string                `json:"word"`
	Category        string                `json:"category"`
	RevealedLetters []string              `json:"revealedLetters"`
	PlayerOrder     []string              `json:"playerOrder"`
	Players         map[string]PlayerInfo `json:"playersData"`
	TurnIndex       int                   `json:"turnIndex"`
	WinLimit        int                   `json:"winLimit"`
	Status          Status                `json:"status"`
	StartedBy       string                `json:"startedBy"`
	BoardMessageRef string                `json:"boardMessageRef,omitempty"`
	TurnDeadlineAt  *time.Time            `json:"turnDeadlineAt,omitempty"`
	SolveAttempt    *SolveAttempt         `json:"solveAttempt,omitempty"`
}

// New creates a match in the joining phase with an empty roster.
func New(word, category, starter string, winLimit int) Match {
	return Match{
		Word:      word,
		Category:  category,
		WinLimit:  winLimit,
		Status:    StatusJoining,
		StartedBy: starter,
		Players:   map[string]PlayerInfo{},
	}
}

// Phase is the sub-state within Playing: a match either waits for the
// current player's turn action or for their free-text solve reply,
// never both. Validate enforces the exactly-one-deadline invariant, so
// this derivation is the single place the optional fields are read as
// a state tag.
type Phase string

const (
	PhaseAwaitingTurn  Phase = "awaiting_turn"
	PhaseAwaitingSolve Phase = "awaiting_solve"
)

// Phase reports which deadline currently governs the match.
func (m Match) Phase() Phase {
	if m.SolveAttempt != nil {
		return PhaseAwaitingSolve
	}
	return PhaseAwaitingTurn
}

// CurrentPlayer returns the id of the player whose turn it is, or ""
// when the roster is empty.
func (m Match) CurrentPlayer() string {
	if len(m.PlayerOrder) == 0 {
		return ""
	}
	return m.PlayerOrder[m.TurnIndex]
}

// HasPlayer reports roster membership.
func (m Match) HasPlayer(id string) bool {
	_, ok := m.Players[id]
	return ok
}

// LetterRevealed reports whether the given letter, folded to its regular
// form, has already been disclosed.
func (m Match) LetterRevealed(letter rune) bool {
	n := string(hebrew.Normalize(letter))
	for _, l := range m.RevealedLetters {
		if l == n {
			return true
		}
	}
	return false
}

// WordContains reports whether either glyph form of the given letter
// occurs literally in the stored word.
func (m Match) WordContains(letter rune) bool {
	for _, form := range hebrew.BothForms(letter) {
		for _, r := range m.Word {
			if r == form {
				return true
			}
		}
	}
	return false
}

// FullyRevealed reports whether every letter-bearing character of the
// word, folded to its regular form, has been disclosed.
func (m Match) FullyRevealed() bool {
	for _, r := range m.Word {
		if !unicode.IsLetter(r) {
			continue
		}
		if !m.LetterRevealed(r) {
			return false
		}
	}
	return true
}

// Winner returns the first player by roster order whose score reached
// the win limit, or "" when there is none.
func (m Match) Winner() string {
	for _, id := range m.PlayerOrder {
		if m.Players[id].Score >= m.WinLimit {
			return id
		}
	}
	return ""
}

// Validate checks the structural invariants of a loaded match. A failure
// means the persisted record is corrupt and must not be acted on.
func (m Match) Validate() error {
	if m.Status != StatusJoining && m.Status != StatusPlaying {
		return fmt.Errorf("unknown status %q", m.Status)
	}
	if len(m.PlayerOrder) > 0 && (m.TurnIndex < 0 || m.TurnIndex >= len(m.PlayerOrder)) {
		return fmt.Errorf("turn index %d out of range for %d players", m.TurnIndex, len(m.PlayerOrder))
	}
	if len(m.PlayerOrder) != len(m.Players) {
		return fmt.Errorf("roster has %d entries but player data has %d", len(m.PlayerOrder), len(m.Players))
	}
	seen := map[string]bool{}
	for _, id := range m.PlayerOrder {
		if seen[id] {
			return fmt.Errorf("duplicate player %s in roster", id)
		}
		seen[id] = true
		if _, ok := m.Players[id]; !ok {
			return fmt.Errorf("player %s in roster but has no data", id)
		}
	}
	if m.SolveAttempt != nil && m.Status != StatusPlaying {
		return fmt.Errorf("solve attempt present while %s", m.Status)
	}
	if m.Status == StatusPlaying {
		// Exactly one clock runs at a time: the solve deadline
		// supersedes the turn deadline while an attempt is in flight.
		if (m.TurnDeadlineAt == nil) == (m.SolveAttempt == nil) {
			return fmt.Errorf("expected exactly one active deadline, turn=%v solve=%v",
				m.TurnDeadlineAt != nil, m.SolveAttempt != nil)
		}
	}
	if m.WinLimit <= 0 {
		return fmt.Errorf("win limit %d is not positive", m.WinLimit)
	}
	return nil
}

// clone returns a deep copy so transitions can edit freely.
func (m Match) clone() Match {
	c := m
	c.RevealedLetters = append([]string(nil), m.RevealedLetters...)
	c.PlayerOrder = append([]string(nil), m.PlayerOrder...)
	c.Players = make(map[string]PlayerInfo, len(m.Players))
	for id, info := range m.Players {
		c.Players[id] = info
	}
	if m.TurnDeadlineAt != nil {
		t := *m.TurnDeadlineAt
		c.TurnDeadlineAt = &t
	}
	if m.SolveAttempt != nil {
		a := *m.SolveAttempt
		c.SolveAttempt = &a
	}
	return c
}
