package app

import (
	"context"

	"live-trivia-service/internal/domain"
)

// RoomRepository abstracts how live rooms are tracked (in-memory, Redis, etc).
// Reserve must be atomic: it reports false when the code is already taken.
type RoomRepository interface {
	Reserve(code string, room *Room) bool
	Get(code string) (*Room, bool)
	Delete(code string)
	All() []*Room
}

// QuizRepository loads quiz content (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// codeAttempts bounds room code generation retries; with a 32-character
// alphabet and 6-character codes, collisions are practically impossible.
const codeAttempts = 10

// RoomService contains the live-game use cases. Host identity checks
// compare connection IDs; the host-capability check itself happens at the
// transport boundary before these methods are reached.
type RoomService struct {
	rooms    RoomRepository
	quizzes  QuizRepository
	quizID   string
	settings Settings
}

func NewRoomService(rooms RoomRepository, quizzes QuizRepository, quizID string, settings Settings) *RoomService {
	return &RoomService{rooms: rooms, quizzes: quizzes, quizID: quizID, settings: settings}
}

// CreateRoom allocates a fresh room with a unique code, owned by hostID.
func (s *RoomService) CreateRoom(ctx context.Context, hostID string) (*Room, error) {
	quiz, err := s.quizzes.GetQuiz(ctx, s.quizID)
	if err != nil {
		return nil, err
	}
	if err := quiz.Validate(); err != nil {
		return nil, err
	}

	for i := 0; i < codeAttempts; i++ {
		code := newRoomCode()
		room := NewRoom(code, hostID, quiz, s.settings)
		if s.rooms.Reserve(code, room) {
			return room, nil
		}
	}
	return nil, domain.ErrCodeSpaceExhausted
}

// Room looks up a live room by code.
func (s *RoomService) Room(code string) (*Room, error) {
	room, ok := s.rooms.Get(code)
	if !ok {
		return nil, domain.ErrRoomNotFound
	}
	return room, nil
}

// hostRoom looks up a room and verifies the caller owns it.
func (s *RoomService) hostRoom(code, hostID string) (*Room, error) {
	room, err := s.Room(code)
	if err != nil {
		return nil, err
	}
	if room.HostID() != hostID {
		return nil, domain.ErrNotHost
	}
	return room, nil
}

// Start begins the game in the given room.
func (s *RoomService) Start(code, hostID string) error {
	room, err := s.hostRoom(code, hostID)
	if err != nil {
		return err
	}
	return room.Start()
}

// CloseQuestion ends the current answer window early.
func (s *RoomService) CloseQuestion(code, hostID string) error {
	room, err := s.hostRoom(code, hostID)
	if err != nil {
		return err
	}
	return room.CloseQuestion()
}

// RevealAnswer publishes the correct choice for the closed question.
func (s *RoomService) RevealAnswer(code, hostID string) error {
	room, err := s.hostRoom(code, hostID)
	if err != nil {
		return err
	}
	return room.RevealAnswer()
}

// ShowTop5 publishes the fastest-correct ranking for the revealed question.
func (s *RoomService) ShowTop5(code, hostID string) error {
	room, err := s.hostRoom(code, hostID)
	if err != nil {
		return err
	}
	return room.ShowTop5()
}

// Next advances to the next question, or ends the game after the last one.
func (s *RoomService) Next(code, hostID string) (bool, error) {
	room, err := s.hostRoom(code, hostID)
	if err != nil {
		return false, err
	}
	return room.Next()
}

// Join registers a player in a room. The returned payload is non-nil when a
// question is already running and the joiner should catch up immediately.
func (s *RoomService) Join(code, playerID, name string) (*domain.QuestionPayload, error) {
	room, err := s.Room(code)
	if err != nil {
		return nil, err
	}
	return room.Join(playerID, name)
}

// SubmitAnswer records a player's answer and returns total score and rank.
func (s *RoomService) SubmitAnswer(code, playerID string, choiceIndex int) (int, int, error) {
	room, err := s.Room(code)
	if err != nil {
		return 0, 0, err
	}
	return room.SubmitAnswer(playerID, choiceIndex)
}

// Subscribe returns a channel of room events plus a cancel function.
func (s *RoomService) Subscribe(code string) (<-chan domain.Event, func(), error) {
	room, err := s.Room(code)
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := room.Subscribe()
	return ch, cancel, nil
}

// Disconnect handles a dropped connection: a host departure ends and removes
// their room; a player departure just removes the player record.
func (s *RoomService) Disconnect(connID string) {
	for _, room := range s.rooms.All() {
		if room.HostID() == connID {
			room.EndGame()
			s.rooms.Delete(room.Code())
			continue
		}
		room.RemovePlayer(connID)
	}
}
