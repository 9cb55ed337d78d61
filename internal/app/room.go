package app

import (
	"math/rand"
	"strings"
	"sync"
	"time"

	"live-trivia-service/internal/domain"
)

// noPosition marks the closed/revealed guards as unset.
const noPosition = -1

type playerState struct {
	name  string
	score int
	last  *domain.Answer
}

// Room owns one running quiz session. Every mutation goes through its
// methods under a single mutex, so operations on the same room execute
// one at a time; different rooms are fully independent. Events are emitted
// to subscribers in the order the corresponding transition happened.
type Room struct {
	code     string
	hostID   string
	quiz     domain.Quiz
	settings Settings

	mu          sync.Mutex
	now         func() time.Time
	rng         *rand.Rand
	started     bool
	ended       bool
	order       []int
	position    int
	openedAt    time.Time
	closedFor   int
	revealedFor int
	shuffles    map[int]*choiceShuffle
	players     map[string]*playerState
	subscribers map[chan domain.Event]struct{}
	timer       *time.Timer
}

// NewRoom builds a lobby-state room for the given quiz.
func NewRoom(code, hostID string, quiz domain.Quiz, settings Settings) *Room {
	return NewRoomWithClock(code, hostID, quiz, settings, time.Now)
}

// NewRoomWithClock is test-only for deterministic timestamps.
func NewRoomWithClock(code, hostID string, quiz domain.Quiz, settings Settings, now func() time.Time) *Room {
	return &Room{
		code:        code,
		hostID:      hostID,
		quiz:        quiz,
		settings:    settings,
		now:         now,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
		closedFor:   noPosition,
		revealedFor: noPosition,
		shuffles:    make(map[int]*choiceShuffle),
		players:     make(map[string]*playerState),
		subscribers: make(map[chan domain.Event]struct{}),
	}
}

func (r *Room) Code() string { return r.code }

func (r *Room) HostID() string { return r.hostID }

// State returns the broadcast-friendly room summary.
func (r *Room) State() domain.RoomState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stateLocked()
}

// Subscribe registers an event channel for this room. The first event is a
// room state snapshot. The caller must invoke the cancel function to avoid
// leaks; subscribers too slow to keep up are dropped and their channel closed.
func (r *Room) Subscribe() (<-chan domain.Event, func()) {
	ch := make(chan domain.Event, 32)

	r.mu.Lock()
	r.subscribers[ch] = struct{}{}
	ch <- domain.Event{Type: domain.EventRoomState, Payload: r.stateLocked()}
	r.mu.Unlock()

	cancel := func() {
		r.mu.Lock()
		if _, ok := r.subscribers[ch]; ok {
			delete(r.subscribers, ch)
			close(ch)
		}
		r.mu.Unlock()
	}
	return ch, cancel
}

// Start leaves the lobby: shuffles the question order, resets every player,
// clears cached choice shuffles, and opens the first question.
func (r *Room) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started {
		return domain.ErrAlreadyStarted
	}
	r.started = true
	r.ended = false
	r.order = r.rng.Perm(len(r.quiz.Questions))
	r.shuffles = make(map[int]*choiceShuffle)
	r.position = 0
	for _, p := range r.players {
		p.score = 0
		p.last = nil
	}
	r.openQuestionLocked()
	return nil
}

// CloseQuestion ends the current answer window. It is idempotent: a second
// close for the same position, whether from the host or the auto-close
// timer, is a no-op and produces no duplicate broadcast.
func (r *Room) CloseQuestion() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.started {
		return domain.ErrNotStarted
	}
	r.closeQuestionLocked()
	return nil
}

// RevealAnswer publishes the correct shuffled index. Valid only after the
// current question closed; repeating it is a harmless no-op.
func (r *Room) RevealAnswer() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closedFor != r.position {
		return domain.ErrNotClosed
	}
	if r.revealedFor == r.position {
		return nil
	}
	cs := r.ensureShuffleLocked()
	r.revealedFor = r.position
	r.emitLocked(domain.EventAnswerReveal, domain.AnswerReveal{
		Position:     r.position,
		CorrectIndex: cs.correctIndex,
	})
	return nil
}

// ShowTop5 publishes the fastest-correct ranking for the current question.
// Valid only after the answer reveal. Display-only; scoring is untouched.
func (r *Room) ShowTop5() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closedFor != r.position {
		return domain.ErrNotClosed
	}
	if r.revealedFor != r.position {
		return domain.ErrNotRevealed
	}
	r.emitLocked(domain.EventTop5Show, domain.Top5Show{
		Position:    r.position,
		FastTop5:    fastestCorrectTop5(r.players, r.position),
		PopupShowMs: r.settings.Top5Popup.Milliseconds(),
	})
	return nil
}

// Next closes the current question if still open and advances. Returns true
// when the game just ended because the last question was used up.
func (r *Room) Next() (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.started {
		return false, domain.ErrNotStarted
	}
	if r.ended {
		return false, domain.ErrGameEnded
	}
	r.closeQuestionLocked()
	r.position++
	if r.position >= len(r.order) {
		r.endGameLocked()
		return true, nil
	}
	r.openQuestionLocked()
	return false, nil
}

// EndGame freezes the room and publishes the final standings. Idempotent.
func (r *Room) EndGame() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ended {
		return
	}
	r.endGameLocked()
}

// Join adds (or replaces) the player record for a connection. When a
// question is already running, the current question payload is returned so
// the late joiner catches up instead of waiting for the next one.
func (r *Room) Join(playerID, name string) (*domain.QuestionPayload, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.ended {
		return nil, domain.ErrGameEnded
	}
	clean := cleanName(name)
	if clean == "" {
		return nil, domain.ErrNameRequired
	}
	r.players[playerID] = &playerState{name: clean}

	r.emitLocked(domain.EventPlayerCount, domain.PlayerCount{Count: len(r.players)})
	r.emitLocked(domain.EventRoomState, r.stateLocked())

	if r.started {
		payload := r.questionPayloadLocked()
		return &payload, nil
	}
	return nil, nil
}

// RemovePlayer drops a player's record and reports whether one existed.
func (r *Room) RemovePlayer(playerID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.players[playerID]; !ok {
		return false
	}
	delete(r.players, playerID)
	r.emitLocked(domain.EventPlayerCount, domain.PlayerCount{Count: len(r.players)})
	r.emitLocked(domain.EventRoomState, r.stateLocked())
	return true
}

// SubmitAnswer records a player's single answer for the open question and
// returns the new total score and 1-based rank. Correctness and awarded
// points are not returned; they only surface to everyone at once during the
// answer reveal. Answers arriving after the window closed are rejected.
func (r *Room) SubmitAnswer(playerID string, choiceIndex int) (int, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.started {
		return 0, 0, domain.ErrNotStarted
	}
	if r.ended {
		return 0, 0, domain.ErrGameEnded
	}
	p, ok := r.players[playerID]
	if !ok {
		return 0, 0, domain.ErrNotJoined
	}
	now := r.now()
	if now.Before(r.openedAt) {
		return 0, 0, domain.ErrNotOpenYet
	}
	if r.closedFor == r.position {
		return 0, 0, domain.ErrQuestionClosed
	}
	if p.last != nil && p.last.Position == r.position {
		return 0, 0, domain.ErrAlreadyAnswered
	}

	q := r.currentQuestionLocked()
	cs := r.ensureShuffleLocked()
	elapsed := now.Sub(r.openedAt).Milliseconds()
	cs.tally(choiceIndex)

	correct := choiceIndex == cs.correctIndex
	pts := Points(correct, elapsed, q.TimeLimitSec, r.settings.MaxPoints)
	p.score += pts
	p.last = &domain.Answer{
		Position:    r.position,
		ChoiceIndex: choiceIndex,
		ElapsedMs:   elapsed,
		Correct:     correct,
		Points:      pts,
	}

	rank := 0
	for i, entry := range totalLeaderboard(r.players) {
		if entry.PlayerID == playerID {
			rank = i + 1
			break
		}
	}

	answered := 0
	for _, pl := range r.players {
		if pl.last != nil && pl.last.Position == r.position {
			answered++
		}
	}
	r.emitLocked(domain.EventProgress, domain.AnswerProgress{
		Answered:     answered,
		TotalPlayers: len(r.players),
	})
	return p.score, rank, nil
}

// openQuestionLocked starts the answer window for the current position after
// the pre-roll delay and arms the auto-close timer.
func (r *Room) openQuestionLocked() {
	r.stopTimerLocked()
	r.closedFor = noPosition
	r.revealedFor = noPosition

	now := r.now()
	r.openedAt = now.Add(r.settings.PreRollDelay)
	for _, p := range r.players {
		p.last = nil
	}
	r.ensureShuffleLocked()

	r.emitLocked(domain.EventQuestionStart, r.questionPayloadLocked())

	q := r.currentQuestionLocked()
	position := r.position
	r.timer = time.AfterFunc(r.settings.PreRollDelay+time.Duration(q.TimeLimitSec)*time.Second, func() {
		r.autoClose(position)
	})

	r.emitLocked(domain.EventRoomState, r.stateLocked())
}

// autoClose is the timer callback. The position check makes a stale timer
// firing after the room moved on a no-op.
func (r *Room) autoClose(position int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.started || r.ended || r.position != position {
		return
	}
	r.closeQuestionLocked()
}

func (r *Room) closeQuestionLocked() {
	if r.ended || r.closedFor == r.position {
		return
	}
	r.closedFor = r.position
	r.stopTimerLocked()

	q := r.currentQuestionLocked()
	cs := r.ensureShuffleLocked()
	counts := append([]int(nil), cs.counts...)

	r.emitLocked(domain.EventQuestionEnd, domain.QuestionClosed{
		Position:      r.position,
		Choices:       cs.apply(q.Choices),
		Counts:        counts,
		AnsweredCount: cs.answeredCount(),
		TotalPlayers:  len(r.players),
		TotalTop15:    truncateTop15(totalLeaderboard(r.players)),
	})
	r.emitLocked(domain.EventRoomState, r.stateLocked())
}

func (r *Room) endGameLocked() {
	r.ended = true
	r.stopTimerLocked()

	total := totalLeaderboard(r.players)
	r.emitLocked(domain.EventGameEnd, domain.GameEnd{
		TotalTop15:   truncateTop15(total),
		TotalPlayers: len(total),
	})
	r.emitLocked(domain.EventRoomState, r.stateLocked())
}

// ensureShuffleLocked returns the cached choice shuffle for the current
// position, creating it on first access. Never recomputed afterwards.
func (r *Room) ensureShuffleLocked() *choiceShuffle {
	if cs, ok := r.shuffles[r.position]; ok {
		return cs
	}
	q := r.currentQuestionLocked()
	cs := newChoiceShuffle(r.rng, len(q.Choices), q.CorrectIndex)
	r.shuffles[r.position] = cs
	return cs
}

func (r *Room) currentQuestionLocked() domain.Question {
	idx := r.position
	if r.order != nil {
		idx = r.order[r.position]
	}
	return r.quiz.Questions[idx]
}

func (r *Room) questionPayloadLocked() domain.QuestionPayload {
	q := r.currentQuestionLocked()
	cs := r.ensureShuffleLocked()
	return domain.QuestionPayload{
		Position:     r.position,
		Total:        len(r.quiz.Questions),
		Text:         q.Text,
		Choices:      cs.apply(q.Choices),
		TimeLimitSec: q.TimeLimitSec,
		StartedAtMs:  r.openedAt.UnixMilli(),
		ServerNowMs:  r.now().UnixMilli(),
		PreDelayMs:   r.settings.PreRollDelay.Milliseconds(),
	}
}

func (r *Room) stateLocked() domain.RoomState {
	return domain.RoomState{
		Code:     r.code,
		Started:  r.started,
		Ended:    r.ended,
		Position: r.position,
		Total:    len(r.quiz.Questions),
	}
}

func (r *Room) stopTimerLocked() {
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
}

// emitLocked fans an event out to every subscriber in transition order.
// A subscriber whose buffer is full is dropped rather than allowed to stall
// the room.
func (r *Room) emitLocked(eventType string, payload any) {
	ev := domain.Event{Type: eventType, Payload: payload}
	for ch := range r.subscribers {
		select {
		case ch <- ev:
		default:
			delete(r.subscribers, ch)
			close(ch)
		}
	}
}

func cleanName(name string) string {
	clean := []rune(strings.TrimSpace(name))
	if len(clean) > 24 {
		clean = clean[:24]
	}
	return string(clean)
}
