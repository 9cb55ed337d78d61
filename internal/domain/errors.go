package domain

import "errors"

var (
	// ErrRoomNotFound is returned for an unknown room code.
	ErrRoomNotFound = errors.New("room not found")
	// ErrNotHost is returned when a host command comes from a connection that does not own the room.
	ErrNotHost = errors.New("caller is not the room host")
	// ErrAlreadyStarted is returned when starting a room that left the lobby.
	ErrAlreadyStarted = errors.New("room already started")
	// ErrNotStarted is returned for question operations before the game starts.
	ErrNotStarted = errors.New("game has not started")
	// ErrGameEnded is returned for any operation on a finished room.
	ErrGameEnded = errors.New("game has ended")
	// ErrNameRequired is returned when a player joins with an empty name.
	ErrNameRequired = errors.New("player name required")
	// ErrNotJoined is returned when a player acts before joining the room.
	ErrNotJoined = errors.New("player has not joined the room")
	// ErrNotOpenYet is returned for answers arriving during the pre-roll delay.
	ErrNotOpenYet = errors.New("answer window not open yet")
	// ErrQuestionClosed is returned for answers arriving after the window closed.
	ErrQuestionClosed = errors.New("question already closed")
	// ErrAlreadyAnswered is returned for a second answer to the same question.
	ErrAlreadyAnswered = errors.New("already answered this question")
	// ErrNotClosed is returned when revealing before the question has closed.
	ErrNotClosed = errors.New("question has not been closed")
	// ErrNotRevealed is returned when showing top 5 before the answer reveal.
	ErrNotRevealed = errors.New("answer has not been revealed")
	// ErrCodeSpaceExhausted is returned when room code generation keeps colliding.
	ErrCodeSpaceExhausted = errors.New("could not allocate a unique room code")
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrQuizEmpty indicates a quiz with no questions.
	ErrQuizEmpty = errors.New("quiz has no questions")
	// ErrQuizInvalid indicates malformed question content.
	ErrQuizInvalid = errors.New("quiz content is invalid")
)
