// Package orchestrator answers one inbound player intent or one sweep
// tick per call. Every entry point runs the same sequence: load a fresh
// copy of the match, arbitrate deadlines, apply the transition, persist
// (or delete) and notify the transport. There is no in-process lock
// across the two call paths; see the arbiter package for why the race
// is benign.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golan-guy/hangman/arbiter"
	"github.com/golan-guy/hangman/hebrew"
	"github.com/golan-guy/hangman/logger"
	"github.com/golan-guy/hangman/match"
	"github.com/golan-guy/hangman/services"
	"github.com/golan-guy/hangman/store"
	"github.com/golan-guy/hangman/transport"
	"github.com/golan-guy/hangman/wordbank"
)

// Recorder receives game events for metrics. A nil recorder is valid.
type Recorder interface {
	IntentHandled(intent, result string)
	TurnTimedOut()
	SolveTimedOut()
	PlayerEjected()
}

// Options are the gameplay tunables.
type Options struct {
	Budgets         arbiter.Budgets
	LetterReward    int
	SolveReward     int
	DefaultWinLimit int
}

type Orchestrator struct {
	matches  *services.MatchService
	words    wordbank.Supplier
	chat     transport.Transport
	opts     Options
	recorder Recorder
	now      func() time.Time
}

func New(matches *services.MatchService, words wordbank.Supplier, chat transport.Transport, opts Options, recorder Recorder) *Orchestrator {
	return &Orchestrator{
		matches:  matches,
		words:    words,
		chat:     chat,
		opts:     opts,
		recorder: recorder,
		now:      time.Now,
	}
}

// SetClock swaps the time source, letting tests control deadlines.
func (o *Orchestrator) SetClock(now func() time.Time) {
	o.now = now
}

// --- intents ---

// NewMatch creates a match in the joining phase with the starter as its
// first player.
func (o *Orchestrator) NewMatch(ctx context.Context, sessionID, starterID, starterName string, winLimit int) error {
	return o.record("new", func() error {
		_, err := o.load(ctx, sessionID)
		switch {
		case err == nil:
			return validationf("יש כבר משחק פעיל בשיחה הזאת")
		case !errors.Is(err, ErrNoActiveMatch):
			return err
		}

		word, err := o.words.Next()
		if err != nil {
			return fmt.Errorf("draw word: %w", err)
		}
		if winLimit <= 0 {
			winLimit = o.opts.DefaultWinLimit
		}
		m := match.New(word.Text, word.Category, starterID, winLimit)
		m = m.AddPlayer(starterID, starterName)
		return o.persistAndRender(ctx, sessionID, m, false)
	})
}

// Join adds a player while the match is still forming.
func (o *Orchestrator) Join(ctx context.Context, sessionID, playerID, name string) error {
	return o.record("join", func() error {
		m, err := o.load(ctx, sessionID)
		if err != nil {
			return err
		}
		if m.Status != match.StatusJoining {
			return validationf("המשחק כבר התחיל, אי אפשר להצטרף")
		}
		m = m.AddPlayer(playerID, name)
		return o.persistAndRender(ctx, sessionID, m, false)
	})
}

// Start moves a forming match into play. Only an admin or the starter
// may start, and it takes at least two players.
func (o *Orchestrator) Start(ctx context.Context, sessionID, playerID string) error {
	return o.record("start", func() error {
		m, err := o.load(ctx, sessionID)
		if err != nil {
			return err
		}
		if m.Status != match.StatusJoining {
			return validationf("המשחק כבר התחיל")
		}
		if err := o.requireModerator(ctx, sessionID, playerID, m); err != nil {
			return err
		}
		if len(m.PlayerOrder) < 2 {
			return validationf("צריך לפחות שני שחקנים כדי להתחיל")
		}
		m = m.Begin(o.now())
		return o.persistAndRender(ctx, sessionID, m, true)
	})
}

// GuessLetter handles one letter pick by the current player. A correct
// guess scores and keeps the turn; a wrong one passes it. Penalties
// never come from here, only from deadline arbitration.
func (o *Orchestrator) GuessLetter(ctx context.Context, sessionID, playerID string, letter rune) error {
	return o.record("guess", func() error {
		m, err := o.loadArbitrated(ctx, sessionID)
		if err != nil {
			return err
		}
		if err := o.requireTurn(m, playerID); err != nil {
			return err
		}
		if !hebrew.IsHebrewLetter(letter) {
			return validationf("זו לא אות עברית")
		}
		if m.LetterRevealed(letter) {
			return validationf("האות הזאת כבר נחשפה")
		}
		now := o.now()

		if !m.WordContains(letter) {
			m = m.AdvanceTurn().ResetTurnClock(now)
			return o.persistAndRender(ctx, sessionID, m, true)
		}

		m = m.RevealLetter(letter)
		m = m.AddPoints(playerID, o.opts.LetterReward)
		if winner := m.Winner(); winner != "" {
			return o.finishWithWinner(ctx, sessionID, m, winner)
		}
		if m.FullyRevealed() {
			var err error
			if m, err = o.rotateRound(m); err != nil {
				return err
			}
		}
		m = m.ResetTurnClock(now)
		return o.persistAndRender(ctx, sessionID, m, false)
	})
}

// RequestSolve opens the free-text solve window for the current player.
func (o *Orchestrator) RequestSolve(ctx context.Context, sessionID, playerID string) error {
	return o.record("solve_request", func() error {
		m, err := o.loadArbitrated(ctx, sessionID)
		if err != nil {
			return err
		}
		if err := o.requireTurn(m, playerID); err != nil {
			return err
		}

		prompt := fmt.Sprintf("%s, כתבו את הפתרון המלא בהודעה הבאה", m.Players[playerID].DisplayName)
		promptRef, err := o.chat.SendPrompt(ctx, sessionID, prompt)
		if err != nil {
			return fmt.Errorf("send solve prompt: %w", err)
		}
		m = m.OpenSolveAttempt(playerID, promptRef, o.now())
		if err := o.matches.Save(ctx, sessionID, m); err != nil {
			return fmt.Errorf("persist match for session %s: %w", sessionID, err)
		}
		return nil
	})
}

// SubmitSolve judges a free-text reply against the word. Only the
// player who opened the window is judged; a wrong solve passes the turn
// with no penalty beyond that.
func (o *Orchestrator) SubmitSolve(ctx context.Context, sessionID, playerID, text string) error {
	return o.record("solve", func() error {
		m, err := o.loadArbitrated(ctx, sessionID)
		if err != nil {
			return err
		}
		if m.Phase() != match.PhaseAwaitingSolve {
			return validationf("אין ניסיון פתרון פתוח")
		}
		if m.SolveAttempt.SolverID != playerID {
			return validationf("ניסיון הפתרון שייך לשחקן אחר")
		}
		now := o.now()

		if !hebrew.EqualsIgnoringFormAndSpaces(text, m.Word) {
			m = m.ResetTurnClock(now).AdvanceTurn()
			return o.persistAndRender(ctx, sessionID, m, true)
		}

		m = m.AddPoints(playerID, o.opts.SolveReward)
		if winner := m.Winner(); winner != "" {
			return o.finishWithWinner(ctx, sessionID, m, winner)
		}
		if m, err = o.rotateRound(m); err != nil {
			return err
		}
		m = m.ResetTurnClock(now)
		return o.persistAndRender(ctx, sessionID, m, false)
	})
}

// Leave removes the acting player from the match.
func (o *Orchestrator) Leave(ctx context.Context, sessionID, playerID string) error {
	return o.record("leave", func() error {
		m, err := o.load(ctx, sessionID)
		if err != nil {
			return err
		}
		if !m.HasPlayer(playerID) {
			return validationf("אתם לא משתתפים במשחק הזה")
		}
		return o.removeFromMatch(ctx, sessionID, m, playerID)
	})
}

// Kick removes another player; admins only.
func (o *Orchestrator) Kick(ctx context.Context, sessionID, actorID, targetID string) error {
	return o.record("kick", func() error {
		m, err := o.load(ctx, sessionID)
		if err != nil {
			return err
		}
		isAdmin, err := o.chat.IsAdmin(ctx, sessionID, actorID)
		if err != nil {
			return fmt.Errorf("admin lookup: %w", err)
		}
		if !isAdmin {
			return validationf("רק מנהלים יכולים להסיר שחקנים")
		}
		if !m.HasPlayer(targetID) {
			return validationf("השחקן לא משתתף במשחק")
		}
		return o.removeFromMatch(ctx, sessionID, m, targetID)
	})
}

// EndMatch ends the match outright. The starter holds this privilege
// regardless of admin role.
func (o *Orchestrator) EndMatch(ctx context.Context, sessionID, actorID string) error {
	return o.record("end", func() error {
		m, err := o.load(ctx, sessionID)
		if err != nil {
			return err
		}
		if err := o.requireModerator(ctx, sessionID, actorID, m); err != nil {
			return err
		}
		if err := o.matches.Delete(ctx, sessionID); err != nil {
			return fmt.Errorf("delete match for session %s: %w", sessionID, err)
		}
		return o.chat.SendStatus(ctx, sessionID, fmt.Sprintf("המשחק הסתיים. המילה הייתה: %s", m.Word))
	})
}

// SweepSession is the periodic path: arbitrate one session's deadlines.
// A session with nothing expired is left untouched.
func (o *Orchestrator) SweepSession(ctx context.Context, sessionID string) error {
	m, err := o.load(ctx, sessionID)
	if errors.Is(err, ErrNoActiveMatch) {
		// Raced with a terminal outcome on the interactive path.
		return nil
	}
	if err != nil {
		return err
	}
	_, err = o.arbitrate(ctx, sessionID, m)
	return err
}

// --- shared flow ---

// load fetches and checks a fresh copy of the session's match.
func (o *Orchestrator) load(ctx context.Context, sessionID string) (match.Match, error) {
	m, err := o.matches.Load(ctx, sessionID)
	if errors.Is(err, store.ErrKeyNotFound) {
		return match.Match{}, ErrNoActiveMatch
	}
	if err != nil {
		return match.Match{}, fmt.Errorf("load match for session %s: %w", sessionID, err)
	}
	if err := m.Validate(); err != nil {
		return match.Match{}, &InvariantViolationError{SessionID: sessionID, Err: err}
	}
	return m, nil
}

// loadArbitrated is the interactive variant of load for turn-sensitive
// intents: expired deadlines are settled before the intent is validated,
// exactly as the sweep would settle them.
func (o *Orchestrator) loadArbitrated(ctx context.Context, sessionID string) (match.Match, error) {
	m, err := o.load(ctx, sessionID)
	if err != nil {
		return match.Match{}, err
	}
	m, alive, err := o.applyArbitration(ctx, sessionID, m)
	if err != nil {
		return match.Match{}, err
	}
	if !alive {
		return match.Match{}, ErrNoActiveMatch
	}
	return m, nil
}

func (o *Orchestrator) arbitrate(ctx context.Context, sessionID string, m match.Match) (match.Match, error) {
	m, _, err := o.applyArbitration(ctx, sessionID, m)
	return m, err
}

// applyArbitration runs the deadline decision and, when something
// expired, persists and announces the outcome. The returned flag is
// false once the match is gone.
func (o *Orchestrator) applyArbitration(ctx context.Context, sessionID string, m match.Match) (match.Match, bool, error) {
	out := arbiter.Decide(m, o.now(), o.opts.Budgets)
	if out.Kind == arbiter.KindNone {
		return m, true, nil
	}

	switch out.Kind {
	case arbiter.KindTurnExpired:
		if o.recorder != nil {
			o.recorder.TurnTimedOut()
		}
	case arbiter.KindSolveExpired:
		if o.recorder != nil {
			o.recorder.SolveTimedOut()
		}
	}
	if out.Ejected && o.recorder != nil {
		o.recorder.PlayerEjected()
	}

	name := m.Players[out.TimedOutPlayer].DisplayName
	if out.MatchOver {
		if err := o.matches.Delete(ctx, sessionID); err != nil {
			return match.Match{}, false, fmt.Errorf("delete match for session %s: %w", sessionID, err)
		}
		logger.Log.Infow("match ended, last player timed out",
			"session", sessionID, "player", out.TimedOutPlayer)
		err := o.chat.SendStatus(ctx, sessionID,
			fmt.Sprintf("%s הוסר/ה אחרי יותר מדי פסקי זמן. המשחק הסתיים.", name))
		return match.Match{}, false, err
	}

	if out.Ejected {
		if err := o.chat.SendStatus(ctx, sessionID,
			fmt.Sprintf("%s הוסר/ה מהמשחק אחרי יותר מדי פסקי זמן", name)); err != nil {
			logger.Log.Warnw("status message failed", "session", sessionID, "error", err)
		}
	} else {
		if err := o.chat.SendStatus(ctx, sessionID,
			fmt.Sprintf("הזמן של %s נגמר, התור עובר", name)); err != nil {
			logger.Log.Warnw("status message failed", "session", sessionID, "error", err)
		}
	}

	if err := o.persistAndRender(ctx, sessionID, out.Next, true); err != nil {
		return match.Match{}, false, err
	}
	return out.Next, true, nil
}

// removeFromMatch handles leave and kick: roster removal plus the
// cleanup of whatever clock the removed player held.
func (o *Orchestrator) removeFromMatch(ctx context.Context, sessionID string, m match.Match, playerID string) error {
	wasCurrent := m.CurrentPlayer() == playerID
	heldSolve := m.SolveAttempt != nil && m.SolveAttempt.SolverID == playerID

	m = m.RemovePlayer(playerID)
	if len(m.PlayerOrder) == 0 {
		if err := o.matches.Delete(ctx, sessionID); err != nil {
			return fmt.Errorf("delete match for session %s: %w", sessionID, err)
		}
		return o.chat.SendStatus(ctx, sessionID, "לא נשארו שחקנים, המשחק הסתיים")
	}

	turnChanged := false
	if m.Status == match.StatusPlaying && (wasCurrent || heldSolve) {
		m = m.ResetTurnClock(o.now())
		turnChanged = true
	}
	return o.persistAndRender(ctx, sessionID, m, turnChanged)
}

// rotateRound draws the next word, keeping scores and turn position.
func (o *Orchestrator) rotateRound(m match.Match) (match.Match, error) {
	word, err := o.words.Next()
	if err != nil {
		return match.Match{}, fmt.Errorf("draw word: %w", err)
	}
	return m.StartNewRound(word.Text, word.Category), nil
}

// finishWithWinner is every victory path: the match record is deleted
// and the result announced.
func (o *Orchestrator) finishWithWinner(ctx context.Context, sessionID string, m match.Match, winner string) error {
	if err := o.matches.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("delete match for session %s: %w", sessionID, err)
	}
	logger.Log.Infow("match won", "session", sessionID, "winner", winner)
	return o.chat.SendStatus(ctx, sessionID,
		fmt.Sprintf("%s מנצח/ת עם %d נקודות! המילה האחרונה: %s",
			m.Players[winner].DisplayName, m.Players[winner].Score, m.Word))
}

// persistAndRender saves the state and then notifies the transport. The
// fresh message ref from the render is recorded with a follow-up save;
// that write is display-only bookkeeping, so its failure is logged and
// swallowed rather than failing the intent.
func (o *Orchestrator) persistAndRender(ctx context.Context, sessionID string, m match.Match, turnChanged bool) error {
	if err := o.matches.Save(ctx, sessionID, m); err != nil {
		return fmt.Errorf("persist match for session %s: %w", sessionID, err)
	}

	req := transport.RenderRequest{
		SessionID:      sessionID,
		TurnChanged:    turnChanged,
		PrevMessageRef: m.BoardMessageRef,
	}
	if m.Status == match.StatusJoining {
		req.BoardText = lobbyText(m)
		req.Keyboard = lobbyKeyboard()
	} else {
		req.BoardText = boardText(m)
		req.Keyboard = boardKeyboard(m)
	}

	ref, err := o.chat.Render(ctx, req)
	if err != nil {
		return fmt.Errorf("render board for session %s: %w", sessionID, err)
	}
	if ref != "" && ref != m.BoardMessageRef {
		m.BoardMessageRef = ref
		if err := o.matches.Save(ctx, sessionID, m); err != nil {
			logger.Log.Warnw("board ref save failed", "session", sessionID, "error", err)
		}
	}
	return nil
}

// requireTurn gates the turn-sensitive intents.
func (o *Orchestrator) requireTurn(m match.Match, playerID string) error {
	if m.Status != match.StatusPlaying {
		return validationf("המשחק עוד לא התחיל")
	}
	if m.Phase() == match.PhaseAwaitingSolve {
		return validationf("מחכים לפתרון, אי אפשר לנחש עכשיו")
	}
	if !m.HasPlayer(playerID) {
		return validationf("אתם לא משתתפים במשחק הזה")
	}
	if m.CurrentPlayer() != playerID {
		return validationf("זה לא התור שלכם")
	}
	return nil
}

// requireModerator passes for conversation admins and for the player
// who created the match.
func (o *Orchestrator) requireModerator(ctx context.Context, sessionID, playerID string, m match.Match) error {
	if m.StartedBy == playerID {
		return nil
	}
	isAdmin, err := o.chat.IsAdmin(ctx, sessionID, playerID)
	if err != nil {
		return fmt.Errorf("admin lookup: %w", err)
	}
	if !isAdmin {
		return validationf("רק מנהלים או מי שפתח את המשחק יכולים לעשות זאת")
	}
	return nil
}

// record wraps an intent with metric bookkeeping.
func (o *Orchestrator) record(intent string, fn func() error) error {
	err := fn()
	if o.recorder != nil {
		switch {
		case err == nil:
			o.recorder.IntentHandled(intent, "ok")
		case IsValidation(err) || errors.Is(err, ErrNoActiveMatch):
			o.recorder.IntentHandled(intent, "rejected")
		default:
			o.recorder.IntentHandled(intent, "error")
		}
	}
	return err
}
