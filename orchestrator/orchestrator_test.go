package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/golan-guy/hangman/arbiter"
	"github.com/golan-guy/hangman/match"
	"github.com/golan-guy/hangman/services"
	"github.com/golan-guy/hangman/store"
	"github.com/golan-guy/hangman/transport"
	"github.com/golan-guy/hangman/wordbank"
)

// fakeChat is a test double for the transport collaborator.
type fakeChat struct {
	renders  []transport.RenderRequest
	statuses []string
	prompts  []string
	admins   map[string]bool
	nextRef  int
}

func (c *fakeChat) Render(ctx context.Context, req transport.RenderRequest) (string, error) {
	c.renders = append(c.renders, req)
	c.nextRef++
	return fmt.Sprintf("msg-%d", c.nextRef), nil
}

func (c *fakeChat) SendPrompt(ctx context.Context, sessionID, text string) (string, error) {
	c.prompts = append(c.prompts, text)
	c.nextRef++
	return fmt.Sprintf("msg-%d", c.nextRef), nil
}

func (c *fakeChat) SendStatus(ctx context.Context, sessionID, text string) error {
	c.statuses = append(c.statuses, text)
	return nil
}

func (c *fakeChat) IsAdmin(ctx context.Context, sessionID, playerID string) (bool, error) {
	return c.admins[playerID], nil
}

func (c *fakeChat) lastRender(t *testing.T) transport.RenderRequest {
	t.Helper()
	if len(c.renders) == 0 {
		t.Fatal("no board was rendered")
	}
	return c.renders[len(c.renders)-1]
}

// queueSupplier hands out words in a fixed order.
type queueSupplier struct {
	words []wordbank.Word
	i     int
}

func (q *queueSupplier) Next() (wordbank.Word, error) {
	w := q.words[q.i%len(q.words)]
	q.i++
	return w, nil
}

type fixture struct {
	o     *Orchestrator
	svc   *services.MatchService
	chat  *fakeChat
	now   time.Time
	clock *time.Time
}

func newFixture(t *testing.T, words ...string) *fixture {
	t.Helper()
	if len(words) == 0 {
		words = []string{"שלום"}
	}
	var bank []wordbank.Word
	for _, w := range words {
		bank = append(bank, wordbank.Word{Text: w, Category: "בדיקה"})
	}

	svc := services.NewMatchService(store.NewMemory(), time.Hour)
	chat := &fakeChat{admins: map[string]bool{"admin": true}}
	opts := Options{
		Budgets: arbiter.Budgets{
			TurnBudget:        90 * time.Second,
			SolveBudget:       60 * time.Second,
			EjectionThreshold: 3,
		},
		LetterReward:    1,
		SolveReward:     3,
		DefaultWinLimit: 10,
	}

	f := &fixture{
		o:    New(svc, &queueSupplier{words: bank}, chat, opts, nil),
		svc:  svc,
		chat: chat,
		now:  time.Now(),
	}
	f.clock = &f.now
	f.o.SetClock(func() time.Time { return *f.clock })
	return f
}

func (f *fixture) advance(d time.Duration) {
	*f.clock = f.clock.Add(d)
}

func (f *fixture) mustState(t *testing.T, sessionID string) match.Match {
	t.Helper()
	m, err := f.svc.Load(context.Background(), sessionID)
	if err != nil {
		t.Fatalf("load state: %v", err)
	}
	return m
}

// startedMatch brings a session into play with the given players, the
// first of whom created the match.
func (f *fixture) startedMatch(t *testing.T, sessionID string, winLimit int, players ...string) {
	t.Helper()
	ctx := context.Background()
	if err := f.o.NewMatch(ctx, sessionID, players[0], "Player "+players[0], winLimit); err != nil {
		t.Fatalf("new match: %v", err)
	}
	for _, p := range players[1:] {
		if err := f.o.Join(ctx, sessionID, p, "Player "+p); err != nil {
			t.Fatalf("join %s: %v", p, err)
		}
	}
	if err := f.o.Start(ctx, sessionID, players[0]); err != nil {
		t.Fatalf("start: %v", err)
	}
}

func TestJoinStartScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if err := f.o.NewMatch(ctx, "chat", "p1", "Player p1", 10); err != nil {
		t.Fatalf("new match: %v", err)
	}
	if err := f.o.Join(ctx, "chat", "p2", "Player p2"); err != nil {
		t.Fatalf("join: %v", err)
	}

	// A second match in the same conversation is rejected.
	if err := f.o.NewMatch(ctx, "chat", "p2", "Player p2", 10); !IsValidation(err) {
		t.Errorf("expected validation error for duplicate match, got %v", err)
	}

	// Start by a player who is neither admin nor starter is rejected.
	if err := f.o.Start(ctx, "chat", "p2"); !IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if f.mustState(t, "chat").Status != match.StatusJoining {
		t.Fatal("rejected start must not change the state")
	}

	// Start by an admin works even though they did not create the match.
	f.o.Join(ctx, "chat", "admin", "Admin")
	if err := f.o.Start(ctx, "chat", "admin"); err != nil {
		t.Fatalf("admin start failed: %v", err)
	}

	m := f.mustState(t, "chat")
	if m.Status != match.StatusPlaying {
		t.Errorf("status = %s, want playing", m.Status)
	}
	if m.TurnIndex != 0 {
		t.Errorf("turn index = %d, want 0", m.TurnIndex)
	}
	if m.TurnDeadlineAt == nil || !m.TurnDeadlineAt.Equal(f.now) {
		t.Error("starting must arm the turn clock")
	}
	if !f.chat.lastRender(t).TurnChanged {
		t.Error("the first turn is a turn change")
	}
}

func TestStart_RequiresTwoPlayers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.o.NewMatch(ctx, "chat", "p1", "Player p1", 10)
	if err := f.o.Start(ctx, "chat", "p1"); !IsValidation(err) {
		t.Errorf("expected validation error for a lone player, got %v", err)
	}
}

func TestGuess_CorrectKeepsTurn(t *testing.T) {
	f := newFixture(t, "שלום")
	ctx := context.Background()
	f.startedMatch(t, "chat", 10, "p1", "p2")

	f.advance(10 * time.Second)
	if err := f.o.GuessLetter(ctx, "chat", "p1", 'ל'); err != nil {
		t.Fatalf("guess failed: %v", err)
	}

	m := f.mustState(t, "chat")
	if m.Players["p1"].Score != 1 {
		t.Errorf("score = %d, want 1", m.Players["p1"].Score)
	}
	if m.CurrentPlayer() != "p1" {
		t.Errorf("turn moved to %s, a correct guess keeps it", m.CurrentPlayer())
	}
	if !m.TurnDeadlineAt.Equal(f.now) {
		t.Error("turn clock must reset on a correct guess")
	}
	if f.chat.lastRender(t).TurnChanged {
		t.Error("same player continues, render should allow an in-place edit")
	}
}

func TestGuess_WrongPassesTurn(t *testing.T) {
	f := newFixture(t, "שלום")
	ctx := context.Background()
	f.startedMatch(t, "chat", 10, "p1", "p2")

	f.advance(10 * time.Second)
	if err := f.o.GuessLetter(ctx, "chat", "p1", 'ב'); err != nil {
		t.Fatalf("guess failed: %v", err)
	}

	m := f.mustState(t, "chat")
	if m.Players["p1"].Score != 0 {
		t.Errorf("score = %d, want 0", m.Players["p1"].Score)
	}
	if m.CurrentPlayer() != "p2" {
		t.Errorf("turn should pass to p2, got %s", m.CurrentPlayer())
	}
	if !m.TurnDeadlineAt.Equal(f.now) {
		t.Error("turn clock must reset on a wrong guess")
	}
	if !f.chat.lastRender(t).TurnChanged {
		t.Error("turn owner changed, render must say so")
	}
}

func TestGuess_OutOfTurnRejected(t *testing.T) {
	f := newFixture(t, "שלום")
	ctx := context.Background()
	f.startedMatch(t, "chat", 10, "p1", "p2")

	err := f.o.GuessLetter(ctx, "chat", "p2", 'ל')
	if !IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	m := f.mustState(t, "chat")
	if len(m.RevealedLetters) != 0 || m.Players["p2"].Score != 0 {
		t.Error("a rejected intent must leave the state untouched")
	}
}

func TestGuess_RepeatedLetterRejected(t *testing.T) {
	f := newFixture(t, "שלום")
	ctx := context.Background()
	f.startedMatch(t, "chat", 10, "p1", "p2")

	f.o.GuessLetter(ctx, "chat", "p1", 'ל')
	if err := f.o.GuessLetter(ctx, "chat", "p1", 'ל'); !IsValidation(err) {
		t.Errorf("expected validation error on a repeated letter, got %v", err)
	}
}

func TestGuess_InteractivePathAppliesExpiredTurn(t *testing.T) {
	f := newFixture(t, "שלום")
	ctx := context.Background()
	f.startedMatch(t, "chat", 10, "p1", "p2")

	// p1's clock runs out; p1's late button press must first settle the
	// timeout, after which the turn belongs to p2.
	f.advance(2 * time.Minute)
	err := f.o.GuessLetter(ctx, "chat", "p1", 'ל')
	if !IsValidation(err) {
		t.Fatalf("expected the late press rejected, got %v", err)
	}

	m := f.mustState(t, "chat")
	if m.Players["p1"].TimeoutCount != 1 {
		t.Errorf("timeout count = %d, want 1", m.Players["p1"].TimeoutCount)
	}
	if m.CurrentPlayer() != "p2" {
		t.Errorf("turn should have passed to p2, got %s", m.CurrentPlayer())
	}
}

func TestRoundRotation_WordFullyRevealedByLetters(t *testing.T) {
	f := newFixture(t, "גן", "שלום")
	ctx := context.Background()
	f.startedMatch(t, "chat", 10, "p1", "p2")

	if err := f.o.GuessLetter(ctx, "chat", "p1", 'ג'); err != nil {
		t.Fatalf("guess failed: %v", err)
	}
	if err := f.o.GuessLetter(ctx, "chat", "p1", 'נ'); err != nil {
		t.Fatalf("guess failed: %v", err)
	}

	m := f.mustState(t, "chat")
	if m.Word != "שלום" {
		t.Errorf("expected a fresh word after full reveal, got %q", m.Word)
	}
	if len(m.RevealedLetters) != 0 {
		t.Errorf("revealed letters should reset with the round, got %v", m.RevealedLetters)
	}
	if m.Players["p1"].Score != 2 {
		t.Errorf("score should carry over, got %d", m.Players["p1"].Score)
	}
	if m.CurrentPlayer() != "p1" {
		t.Error("round rotation keeps the turn position")
	}
}

func TestSolve_CorrectScoresAndRotates(t *testing.T) {
	f := newFixture(t, "שלום", "ברזל")
	ctx := context.Background()
	f.startedMatch(t, "chat", 10, "p1", "p2")

	if err := f.o.RequestSolve(ctx, "chat", "p1"); err != nil {
		t.Fatalf("request solve failed: %v", err)
	}
	if len(f.chat.prompts) != 1 {
		t.Fatal("a solve prompt should have been sent")
	}
	m := f.mustState(t, "chat")
	if m.SolveAttempt == nil || m.SolveAttempt.SolverID != "p1" {
		t.Fatalf("attempt not recorded: %+v", m.SolveAttempt)
	}
	if m.TurnDeadlineAt != nil {
		t.Error("the solve deadline supersedes the turn deadline")
	}

	// Guessing is blocked while the window is open.
	if err := f.o.GuessLetter(ctx, "chat", "p1", 'ל'); !IsValidation(err) {
		t.Errorf("expected guess rejected during a solve window, got %v", err)
	}

	// Inter-word spacing does not matter.
	if err := f.o.SubmitSolve(ctx, "chat", "p1", "של ום"); err != nil {
		t.Fatalf("submit solve failed: %v", err)
	}

	m = f.mustState(t, "chat")
	if m.Players["p1"].Score != 3 {
		t.Errorf("score = %d, want the solve reward", m.Players["p1"].Score)
	}
	if m.Word != "ברזל" {
		t.Errorf("expected round rotation, word is %q", m.Word)
	}
	if m.SolveAttempt != nil {
		t.Error("attempt must be cleared")
	}
	if m.CurrentPlayer() != "p1" {
		t.Error("a correct solve keeps the solver's turn")
	}
}

func TestSolve_WrongPassesTurnWithoutPenalty(t *testing.T) {
	f := newFixture(t, "שלום")
	ctx := context.Background()
	f.startedMatch(t, "chat", 10, "p1", "p2")

	f.o.RequestSolve(ctx, "chat", "p1")
	if err := f.o.SubmitSolve(ctx, "chat", "p1", "שלומ"); err != nil {
		t.Fatalf("submit solve failed: %v", err)
	}

	m := f.mustState(t, "chat")
	if m.CurrentPlayer() != "p2" {
		t.Errorf("turn should pass to p2, got %s", m.CurrentPlayer())
	}
	if m.Players["p1"].Score != 0 || m.Players["p1"].TimeoutCount != 0 {
		t.Error("a wrong solve costs nothing beyond the turn")
	}
	if m.SolveAttempt != nil {
		t.Error("attempt must be cleared")
	}
}

func TestSolve_OnlySolverIsJudged(t *testing.T) {
	f := newFixture(t, "שלום")
	ctx := context.Background()
	f.startedMatch(t, "chat", 10, "p1", "p2")

	f.o.RequestSolve(ctx, "chat", "p1")
	if err := f.o.SubmitSolve(ctx, "chat", "p2", "שלום"); !IsValidation(err) {
		t.Fatalf("expected validation error for a bystander, got %v", err)
	}
	m := f.mustState(t, "chat")
	if m.SolveAttempt == nil {
		t.Error("the open attempt must survive a bystander's message")
	}
}

func TestWinner_DeletesMatchAndAnnounces(t *testing.T) {
	f := newFixture(t, "שלום")
	ctx := context.Background()
	f.startedMatch(t, "chat", 1, "p1", "p2")

	if err := f.o.GuessLetter(ctx, "chat", "p1", 'ל'); err != nil {
		t.Fatalf("guess failed: %v", err)
	}

	if _, err := f.svc.Load(ctx, "chat"); !errors.Is(err, store.ErrKeyNotFound) {
		t.Errorf("a won match must be deleted, got %v", err)
	}
	if len(f.chat.statuses) == 0 {
		t.Error("the win must be announced")
	}
}

func TestSweep_TimeoutEjectionAndTermination(t *testing.T) {
	f := newFixture(t, "שלום")
	ctx := context.Background()
	f.startedMatch(t, "chat", 10, "p1", "p2")

	// Let p1 time out three times in a row: two passes, then ejection.
	for i := 0; i < 2; i++ {
		f.advance(2 * time.Minute)
		if err := f.o.SweepSession(ctx, "chat"); err != nil {
			t.Fatalf("sweep %d failed: %v", i, err)
		}
		f.advance(2 * time.Minute)
		if err := f.o.SweepSession(ctx, "chat"); err != nil {
			t.Fatalf("sweep %d failed: %v", i, err)
		}
	}
	f.advance(2 * time.Minute)
	if err := f.o.SweepSession(ctx, "chat"); err != nil {
		t.Fatalf("final sweep failed: %v", err)
	}

	m := f.mustState(t, "chat")
	if m.HasPlayer("p1") {
		t.Fatalf("p1 should be ejected at the threshold: %+v", m.Players["p1"])
	}
	if m.CurrentPlayer() != "p2" {
		t.Errorf("p2 should hold the turn, got %s", m.CurrentPlayer())
	}

	// Now p2 is alone; three more expiries end the match entirely.
	for i := 0; i < 3; i++ {
		f.advance(2 * time.Minute)
		if err := f.o.SweepSession(ctx, "chat"); err != nil {
			t.Fatalf("sweep of lone player failed: %v", err)
		}
	}
	if _, err := f.svc.Load(ctx, "chat"); !errors.Is(err, store.ErrKeyNotFound) {
		t.Errorf("the match should be deleted once the roster empties, got %v", err)
	}
}

func TestSweep_FreshMatchUntouched(t *testing.T) {
	f := newFixture(t, "שלום")
	ctx := context.Background()
	f.startedMatch(t, "chat", 10, "p1", "p2")

	renders := len(f.chat.renders)
	if err := f.o.SweepSession(ctx, "chat"); err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if len(f.chat.renders) != renders {
		t.Error("a sweep with nothing expired must not notify")
	}
	if err := f.o.SweepSession(ctx, "missing"); err != nil {
		t.Errorf("sweeping a vanished session must be quiet, got %v", err)
	}
}

func TestSolveDeadline_ExpiredWindowPenalizesSolver(t *testing.T) {
	f := newFixture(t, "שלום")
	ctx := context.Background()
	f.startedMatch(t, "chat", 10, "p1", "p2")

	f.o.RequestSolve(ctx, "chat", "p1")
	f.advance(2 * time.Minute)

	// The late reply first settles the expiry, then finds no open window.
	if err := f.o.SubmitSolve(ctx, "chat", "p1", "שלום"); !IsValidation(err) {
		t.Fatalf("expected the late reply rejected, got %v", err)
	}

	m := f.mustState(t, "chat")
	if m.Players["p1"].TimeoutCount != 1 {
		t.Errorf("timeout count = %d, want 1", m.Players["p1"].TimeoutCount)
	}
	if m.CurrentPlayer() != "p2" {
		t.Errorf("turn should pass to p2, got %s", m.CurrentPlayer())
	}
	if m.SolveAttempt != nil {
		t.Error("the expired attempt must be gone")
	}
}

func TestLeave_CurrentPlayerHandsTurnOver(t *testing.T) {
	f := newFixture(t, "שלום")
	ctx := context.Background()
	f.startedMatch(t, "chat", 10, "p1", "p2", "p3")

	if err := f.o.Leave(ctx, "chat", "p1"); err != nil {
		t.Fatalf("leave failed: %v", err)
	}

	m := f.mustState(t, "chat")
	if m.HasPlayer("p1") {
		t.Fatal("p1 should be out")
	}
	if m.CurrentPlayer() != "p2" {
		t.Errorf("turn should land on p2, got %s", m.CurrentPlayer())
	}
	if !f.chat.lastRender(t).TurnChanged {
		t.Error("the turn owner changed")
	}

	f.o.Leave(ctx, "chat", "p2")
	if err := f.o.Leave(ctx, "chat", "p3"); err != nil {
		t.Fatalf("last leave failed: %v", err)
	}
	if _, err := f.svc.Load(ctx, "chat"); !errors.Is(err, store.ErrKeyNotFound) {
		t.Errorf("an emptied match must be deleted, got %v", err)
	}
}

func TestKick_AdminOnly(t *testing.T) {
	f := newFixture(t, "שלום")
	ctx := context.Background()
	f.startedMatch(t, "chat", 10, "p1", "p2")

	if err := f.o.Kick(ctx, "chat", "p1", "p2"); !IsValidation(err) {
		t.Fatalf("non-admin kick should be rejected, got %v", err)
	}
	if err := f.o.Kick(ctx, "chat", "admin", "p2"); err != nil {
		t.Fatalf("admin kick failed: %v", err)
	}
	if f.mustState(t, "chat").HasPlayer("p2") {
		t.Error("p2 should be gone")
	}
}

func TestEndMatch_StarterPrivilege(t *testing.T) {
	f := newFixture(t, "שלום")
	ctx := context.Background()
	f.startedMatch(t, "chat", 10, "p1", "p2")

	if err := f.o.EndMatch(ctx, "chat", "p2"); !IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if err := f.o.EndMatch(ctx, "chat", "p1"); err != nil {
		t.Fatalf("starter end failed: %v", err)
	}
	if _, err := f.svc.Load(ctx, "chat"); !errors.Is(err, store.ErrKeyNotFound) {
		t.Errorf("an ended match must be deleted, got %v", err)
	}
}

func TestLoad_CorruptStateSurfacesInvariantViolation(t *testing.T) {
	f := newFixture(t, "שלום")
	ctx := context.Background()
	f.startedMatch(t, "chat", 10, "p1", "p2")

	m := f.mustState(t, "chat")
	m.TurnIndex = 7
	if err := f.svc.Save(ctx, "chat", m); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	err := f.o.GuessLetter(ctx, "chat", "p1", 'ל')
	var iv *InvariantViolationError
	if !errors.As(err, &iv) {
		t.Fatalf("expected an invariant violation, got %v", err)
	}

	// No repair: the stored record is exactly as corrupt as before.
	raw := f.mustState(t, "chat")
	if raw.TurnIndex != 7 {
		t.Error("the corrupt record must not be rewritten")
	}
}
