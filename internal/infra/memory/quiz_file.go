package memory

import (
	"context"
	"fmt"
	"os"

	"live-trivia-service/internal/domain"
	"gopkg.in/yaml.v3"
)

// FileQuizLoader reads a quiz definition from a YAML file. The requested
// quiz ID must match the file's ID (or the file may leave it empty, in which
// case the requested ID is filled in).
type FileQuizLoader struct {
	path string
}

func NewFileQuizLoader(path string) *FileQuizLoader {
	return &FileQuizLoader{path: path}
}

func (l *FileQuizLoader) LoadQuiz(_ context.Context, quizID string) (domain.Quiz, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("read quiz file: %w", err)
	}
	var quiz domain.Quiz
	if err := yaml.Unmarshal(data, &quiz); err != nil {
		return domain.Quiz{}, fmt.Errorf("parse quiz file: %w", err)
	}
	if quiz.ID == "" {
		quiz.ID = quizID
	}
	if quiz.ID != quizID {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if err := quiz.Validate(); err != nil {
		return domain.Quiz{}, err
	}
	return quiz, nil
}
