package domain

// Question models one MCQ question shown during a game. CorrectIndex points
// into Choices in their canonical (unshuffled) order.
type Question struct {
	Text         string   `json:"text" yaml:"text"`
	Choices      []string `json:"choices" yaml:"choices"`
	CorrectIndex int      `json:"correctIndex" yaml:"correctIndex"`
	TimeLimitSec int      `json:"timeLimitSec" yaml:"timeLimitSec"`
}

// Quiz is an ordered set of questions. It is immutable once a room captures it.
type Quiz struct {
	ID        string     `json:"id" yaml:"id"`
	Title     string     `json:"title" yaml:"title"`
	Questions []Question `json:"questions" yaml:"questions"`
}

// Validate rejects quiz content the game loop cannot run.
func (q Quiz) Validate() error {
	if len(q.Questions) == 0 {
		return ErrQuizEmpty
	}
	for _, question := range q.Questions {
		if len(question.Choices) < 2 {
			return ErrQuizInvalid
		}
		if question.CorrectIndex < 0 || question.CorrectIndex >= len(question.Choices) {
			return ErrQuizInvalid
		}
		if question.TimeLimitSec <= 0 {
			return ErrQuizInvalid
		}
	}
	return nil
}

// Answer is a player's single recorded answer for one question position.
type Answer struct {
	Position    int   `json:"qIndex"`
	ChoiceIndex int   `json:"choiceIndex"`
	ElapsedMs   int64 `json:"elapsedMs"`
	Correct     bool  `json:"correct"`
	Points      int   `json:"points"`
}

// LeaderboardEntry is one row of the cumulative-score ranking.
type LeaderboardEntry struct {
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
	Score    int    `json:"score"`
}

// FastAnswer is one row of the fastest-correct ranking for a question.
type FastAnswer struct {
	Name      string `json:"name"`
	ElapsedMs int64  `json:"elapsedMs"`
	Points    int    `json:"points"`
}

// Event is a named payload pushed to every member of a room.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Event type names as they appear on the wire.
const (
	EventRoomState     = "room:state"
	EventQuestionStart = "question:start"
	EventProgress      = "question:progress"
	EventQuestionEnd   = "question:end"
	EventAnswerReveal  = "answer:reveal"
	EventTop5Show      = "top5:show"
	EventGameEnd       = "game:end"
	EventPlayerCount   = "players:count"
)

// RoomState is the lightweight room summary broadcast after every transition.
type RoomState struct {
	Code     string `json:"code"`
	Started  bool   `json:"started"`
	Ended    bool   `json:"ended"`
	Position int    `json:"qIndex"`
	Total    int    `json:"total"`
}

// QuestionPayload carries everything a client needs to render an open
// question. Choices arrive pre-shuffled; the correct index is never included.
// StartedAtMs and ServerNowMs let receivers derive their clock offset and
// render the countdown from server time rather than trusting their own clock.
type QuestionPayload struct {
	Position     int      `json:"qIndex"`
	Total        int      `json:"total"`
	Text         string   `json:"text"`
	Choices      []string `json:"choices"`
	TimeLimitSec int      `json:"timeLimitSec"`
	StartedAtMs  int64    `json:"startedAtMs"`
	ServerNowMs  int64    `json:"serverNowMs"`
	PreDelayMs   int64    `json:"preDelayMs"`
}

// AnswerProgress reports how many players have answered the open question.
type AnswerProgress struct {
	Answered     int `json:"answered"`
	TotalPlayers int `json:"totalPlayers"`
}

// QuestionClosed summarizes a finished answer window. The correct index is
// deliberately withheld until the separate reveal step.
type QuestionClosed struct {
	Position      int                `json:"qIndex"`
	Choices       []string           `json:"choices"`
	Counts        []int              `json:"counts"`
	AnsweredCount int                `json:"answeredCount"`
	TotalPlayers  int                `json:"totalPlayers"`
	TotalTop15    []LeaderboardEntry `json:"totalTop15"`
}

// AnswerReveal publishes the correct choice in shuffled coordinates.
type AnswerReveal struct {
	Position     int `json:"qIndex"`
	CorrectIndex int `json:"correctIndex"`
}

// Top5Show carries the fastest-correct ranking for the current question.
type Top5Show struct {
	Position    int          `json:"qIndex"`
	FastTop5    []FastAnswer `json:"fastTop5"`
	PopupShowMs int64        `json:"popupShowMs"`
}

// GameEnd carries the final standings.
type GameEnd struct {
	TotalTop15   []LeaderboardEntry `json:"totalTop15"`
	TotalPlayers int                `json:"totalPlayers"`
}

// PlayerCount reports the room's current player headcount.
type PlayerCount struct {
	Count int `json:"count"`
}
