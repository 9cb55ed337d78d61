package app

import (
	"sort"
	"sync"
	"testing"
	"time"

	"live-trivia-service/internal/domain"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

func testQuiz() domain.Quiz {
	return domain.Quiz{
		ID:    "quiz-test",
		Title: "Test",
		Questions: []domain.Question{
			{Text: "Q1", Choices: []string{"A", "B", "C", "D"}, CorrectIndex: 2, TimeLimitSec: 10},
			{Text: "Q2", Choices: []string{"yes", "no"}, CorrectIndex: 0, TimeLimitSec: 10},
		},
	}
}

func newTestRoom(t *testing.T) (*Room, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	room := NewRoomWithClock("TESTAB", "host-1", testQuiz(), DefaultSettings(), clock.Now)
	return room, clock
}

// openClock moves the clock the given duration past the answer-window open.
func openClock(room *Room, clock *fakeClock, past time.Duration) {
	room.mu.Lock()
	openedAt := room.openedAt
	room.mu.Unlock()
	clock.set(openedAt.Add(past))
}

func drainEvents(ch <-chan domain.Event) []domain.Event {
	var events []domain.Event
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return events
			}
			events = append(events, ev)
		default:
			return events
		}
	}
}

func countEvents(events []domain.Event, eventType string) int {
	n := 0
	for _, ev := range events {
		if ev.Type == eventType {
			n++
		}
	}
	return n
}

func TestStartOnlyFromLobby(t *testing.T) {
	room, _ := newTestRoom(t)
	if err := room.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := room.Start(); err != domain.ErrAlreadyStarted {
		t.Fatalf("expected ErrAlreadyStarted, got %v", err)
	}
}

func TestStartShufflesQuestionOrder(t *testing.T) {
	room, _ := newTestRoom(t)
	if err := room.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}

	room.mu.Lock()
	order := append([]int(nil), room.order...)
	room.mu.Unlock()

	if len(order) != 2 {
		t.Fatalf("order length %d, want 2", len(order))
	}
	sorted := append([]int(nil), order...)
	sort.Ints(sorted)
	for i, v := range sorted {
		if v != i {
			t.Fatalf("order %v is not a permutation of [0,2)", order)
		}
	}
}

func TestQuestionStartPayload(t *testing.T) {
	room, _ := newTestRoom(t)
	events, cancel := room.Subscribe()
	defer cancel()

	if err := room.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}

	var payload domain.QuestionPayload
	found := false
	for _, ev := range drainEvents(events) {
		if ev.Type == domain.EventQuestionStart {
			payload = ev.Payload.(domain.QuestionPayload)
			found = true
		}
	}
	if !found {
		t.Fatalf("no question:start event emitted")
	}
	if payload.Total != 2 || payload.Position != 0 {
		t.Fatalf("unexpected payload %+v", payload)
	}
	if payload.StartedAtMs-payload.ServerNowMs != payload.PreDelayMs {
		t.Fatalf("open instant should be serverNow + preDelay: %+v", payload)
	}

	// Choices must be a permutation of the canonical set.
	sorted := append([]string(nil), payload.Choices...)
	sort.Strings(sorted)
	room.mu.Lock()
	canonical := append([]string(nil), room.currentQuestionLocked().Choices...)
	room.mu.Unlock()
	sort.Strings(canonical)
	for i := range canonical {
		if sorted[i] != canonical[i] {
			t.Fatalf("shuffled choices %v are not a permutation of %v", payload.Choices, canonical)
		}
	}
}

func TestChoiceShuffleCachedPerPosition(t *testing.T) {
	room, _ := newTestRoom(t)
	if err := room.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	room.mu.Lock()
	first := room.ensureShuffleLocked()
	second := room.ensureShuffleLocked()
	room.mu.Unlock()
	if first != second {
		t.Fatalf("shuffle recomputed for the same position")
	}
}

func TestSubmitAnswerScoring(t *testing.T) {
	room, clock := newTestRoom(t)
	if _, err := room.Join("p1", "Alice"); err != nil {
		t.Fatalf("join: %v", err)
	}
	if _, err := room.Join("p2", "Bob"); err != nil {
		t.Fatalf("join: %v", err)
	}
	if err := room.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}

	room.mu.Lock()
	correct := room.shuffles[0].correctIndex
	room.mu.Unlock()
	wrong := (correct + 1) % 4

	openClock(room, clock, 2000*time.Millisecond)
	total, rank, err := room.SubmitAnswer("p1", correct)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if total != 800 {
		t.Fatalf("expected 800 points at 2000ms of 10s, got %d", total)
	}
	if rank != 1 {
		t.Fatalf("expected rank 1, got %d", rank)
	}

	openClock(room, clock, 1000*time.Millisecond)
	total, rank, err = room.SubmitAnswer("p2", wrong)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if total != 0 {
		t.Fatalf("incorrect answer should score 0, got %d", total)
	}
	if rank != 2 {
		t.Fatalf("expected rank 2, got %d", rank)
	}
}

func TestSubmitAnswerGuards(t *testing.T) {
	room, clock := newTestRoom(t)

	if _, _, err := room.SubmitAnswer("p1", 0); err != domain.ErrNotStarted {
		t.Fatalf("expected ErrNotStarted, got %v", err)
	}

	if _, err := room.Join("p1", "Alice"); err != nil {
		t.Fatalf("join: %v", err)
	}
	if err := room.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}

	// Clock is still inside the pre-roll delay.
	if _, _, err := room.SubmitAnswer("p1", 0); err != domain.ErrNotOpenYet {
		t.Fatalf("expected ErrNotOpenYet, got %v", err)
	}

	openClock(room, clock, time.Second)
	if _, _, err := room.SubmitAnswer("ghost", 0); err != domain.ErrNotJoined {
		t.Fatalf("expected ErrNotJoined, got %v", err)
	}

	if _, _, err := room.SubmitAnswer("p1", 0); err != nil {
		t.Fatalf("submit: %v", err)
	}
	total := roomScore(room, "p1")
	if _, _, err := room.SubmitAnswer("p1", 1); err != domain.ErrAlreadyAnswered {
		t.Fatalf("expected ErrAlreadyAnswered, got %v", err)
	}
	if roomScore(room, "p1") != total {
		t.Fatalf("second submission must not change the score")
	}
	if tallySum(room, 0) != 1 {
		t.Fatalf("second submission must not change the tally")
	}
}

func TestSubmitAnswerRejectedAfterClose(t *testing.T) {
	room, clock := newTestRoom(t)
	if _, err := room.Join("p1", "Alice"); err != nil {
		t.Fatalf("join: %v", err)
	}
	if err := room.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	openClock(room, clock, time.Second)

	if err := room.CloseQuestion(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, _, err := room.SubmitAnswer("p1", 0); err != domain.ErrQuestionClosed {
		t.Fatalf("expected ErrQuestionClosed, got %v", err)
	}
	if tallySum(room, 0) != 0 {
		t.Fatalf("post-close submission must not touch the tally")
	}
}

func TestCloseQuestionIdempotent(t *testing.T) {
	room, _ := newTestRoom(t)
	events, cancel := room.Subscribe()
	defer cancel()

	if err := room.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	// Host close and timer close racing for the same position.
	if err := room.CloseQuestion(); err != nil {
		t.Fatalf("close: %v", err)
	}
	room.autoClose(0)
	if err := room.CloseQuestion(); err != nil {
		t.Fatalf("close again: %v", err)
	}

	if n := countEvents(drainEvents(events), domain.EventQuestionEnd); n != 1 {
		t.Fatalf("expected exactly one question:end broadcast, got %d", n)
	}
}

func TestStaleTimerDoesNotCloseNextQuestion(t *testing.T) {
	room, _ := newTestRoom(t)
	if err := room.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := room.Next(); err != nil {
		t.Fatalf("next: %v", err)
	}

	events, cancel := room.Subscribe()
	defer cancel()

	// A timer armed for position 0 firing after the room advanced.
	room.autoClose(0)

	if n := countEvents(drainEvents(events), domain.EventQuestionEnd); n != 0 {
		t.Fatalf("stale timer closed the wrong question")
	}
	room.mu.Lock()
	closed := room.closedFor
	room.mu.Unlock()
	if closed != noPosition {
		t.Fatalf("closedFor = %d, want unset", closed)
	}
}

func TestRevealRequiresCloseAndIsOnce(t *testing.T) {
	room, _ := newTestRoom(t)
	events, cancel := room.Subscribe()
	defer cancel()

	if err := room.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := room.RevealAnswer(); err != domain.ErrNotClosed {
		t.Fatalf("expected ErrNotClosed, got %v", err)
	}
	if err := room.ShowTop5(); err != domain.ErrNotClosed {
		t.Fatalf("expected ErrNotClosed, got %v", err)
	}

	if err := room.CloseQuestion(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := room.ShowTop5(); err != domain.ErrNotRevealed {
		t.Fatalf("expected ErrNotRevealed, got %v", err)
	}
	if err := room.RevealAnswer(); err != nil {
		t.Fatalf("reveal: %v", err)
	}
	if err := room.RevealAnswer(); err != nil {
		t.Fatalf("second reveal should be a no-op, got %v", err)
	}
	if err := room.ShowTop5(); err != nil {
		t.Fatalf("show top5: %v", err)
	}

	all := drainEvents(events)
	if n := countEvents(all, domain.EventAnswerReveal); n != 1 {
		t.Fatalf("expected one answer:reveal, got %d", n)
	}
	if n := countEvents(all, domain.EventTop5Show); n != 1 {
		t.Fatalf("expected one top5:show, got %d", n)
	}
}

func TestNextAdvancesThenEndsGame(t *testing.T) {
	room, _ := newTestRoom(t)
	events, cancel := room.Subscribe()
	defer cancel()

	if err := room.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	ended, err := room.Next()
	if err != nil || ended {
		t.Fatalf("next: ended=%v err=%v", ended, err)
	}
	ended, err = room.Next()
	if err != nil || !ended {
		t.Fatalf("final next: ended=%v err=%v", ended, err)
	}

	all := drainEvents(events)
	if n := countEvents(all, domain.EventGameEnd); n != 1 {
		t.Fatalf("expected one game:end, got %d", n)
	}
	if !room.State().Ended {
		t.Fatalf("room should be ended")
	}

	if _, _, err := room.SubmitAnswer("p1", 0); err != domain.ErrGameEnded {
		t.Fatalf("expected ErrGameEnded, got %v", err)
	}
	if _, err := room.Next(); err != domain.ErrGameEnded {
		t.Fatalf("expected ErrGameEnded on next, got %v", err)
	}
}

func TestJoinValidation(t *testing.T) {
	room, _ := newTestRoom(t)
	if _, err := room.Join("p1", "   "); err != domain.ErrNameRequired {
		t.Fatalf("expected ErrNameRequired, got %v", err)
	}
	if _, err := room.Join("p1", "  Alice  "); err != nil {
		t.Fatalf("join: %v", err)
	}
	room.mu.Lock()
	name := room.players["p1"].name
	room.mu.Unlock()
	if name != "Alice" {
		t.Fatalf("name not trimmed: %q", name)
	}

	long := "abcdefghijklmnopqrstuvwxyz"
	if _, err := room.Join("p2", long); err != nil {
		t.Fatalf("join: %v", err)
	}
	room.mu.Lock()
	name = room.players["p2"].name
	room.mu.Unlock()
	if len([]rune(name)) != 24 {
		t.Fatalf("name not capped at 24 runes: %q", name)
	}
}

func TestLateJoinerCatchesUp(t *testing.T) {
	room, _ := newTestRoom(t)
	catchup, err := room.Join("p1", "Alice")
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if catchup != nil {
		t.Fatalf("no catch-up payload expected in lobby")
	}

	if err := room.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	catchup, err = room.Join("p2", "Bob")
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if catchup == nil || catchup.Position != 0 {
		t.Fatalf("late joiner should get the running question, got %+v", catchup)
	}

	room.EndGame()
	if _, err := room.Join("p3", "Carol"); err != domain.ErrGameEnded {
		t.Fatalf("expected ErrGameEnded, got %v", err)
	}
}

func TestConcurrentSubmissions(t *testing.T) {
	settings := DefaultSettings()
	settings.PreRollDelay = 0
	room := NewRoom("TESTAB", "host-1", testQuiz(), settings)

	const playerCount = 10
	ids := make([]string, playerCount)
	for i := range ids {
		ids[i] = string(rune('a' + i))
		if _, err := room.Join(ids[i], "Player"+ids[i]); err != nil {
			t.Fatalf("join: %v", err)
		}
	}
	if err := room.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}

	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(1)
		go func(id string, choice int) {
			defer wg.Done()
			if _, _, err := room.SubmitAnswer(id, choice); err != nil {
				t.Errorf("submit %s: %v", id, err)
			}
		}(id, i%4)
	}
	wg.Wait()

	if got := tallySum(room, 0); got != playerCount {
		t.Fatalf("tally sums to %d, want %d", got, playerCount)
	}
	room.mu.Lock()
	entries := totalLeaderboard(room.players)
	room.mu.Unlock()
	if len(entries) != playerCount {
		t.Fatalf("leaderboard has %d entries, want %d", len(entries), playerCount)
	}
}

func roomScore(room *Room, playerID string) int {
	room.mu.Lock()
	defer room.mu.Unlock()
	return room.players[playerID].score
}

func tallySum(room *Room, position int) int {
	room.mu.Lock()
	defer room.mu.Unlock()
	cs, ok := room.shuffles[position]
	if !ok {
		return 0
	}
	return cs.answeredCount()
}
