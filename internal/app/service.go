// Package app is the application layer. It owns use-case orchestration and
// is the only component that touches multiple domain components at once.
package app

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/askbird/askbird/internal/domain"
	"github.com/askbird/askbird/internal/errors"
)

const (
	maxUsernameLength = 40
	maxTitleLength    = 200
	maxBodyLength     = 20000
)

// Service orchestrates forum use cases over the store and the event sink.
type Service struct {
	store         domain.Store
	sink          domain.EventSink
	questionGroup singleflight.Group
}

func NewService(store domain.Store, sink domain.EventSink) *Service {
	return &Service{store: store, sink: sink}
}

// CreateUser registers a user with a unique username.
func (s *Service) CreateUser(ctx context.Context, username string, admin bool) (*domain.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || len(username) > maxUsernameLength {
		return nil, errors.ValidationError("username must be between 1 and 40 characters")
	}
	return s.store.CreateUser(ctx, username, admin)
}

// GetUser retrieves a user by ID.
func (s *Service) GetUser(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	return s.store.GetUser(ctx, userID)
}

// UserBadges lists the badges a user holds.
func (s *Service) UserBadges(ctx context.Context, userID uuid.UUID) ([]string, error) {
	return s.store.UserBadges(ctx, userID)
}

// CreateTopic creates a topic.
func (s *Service) CreateTopic(ctx context.Context, name string) (*domain.Topic, error) {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > maxTitleLength {
		return nil, errors.ValidationError("topic name must be between 1 and 200 characters")
	}
	return s.store.CreateTopic(ctx, name)
}

// GetTopic retrieves a topic by ID.
func (s *Service) GetTopic(ctx context.Context, topicID uuid.UUID) (*domain.Topic, error) {
	return s.store.GetTopic(ctx, topicID)
}

// CreateQuestion posts a question under a topic.
func (s *Service) CreateQuestion(ctx context.Context, topicID, authorID uuid.UUID, title, body string) (*domain.Question, error) {
	title = strings.TrimSpace(title)
	if title == "" || len(title) > maxTitleLength {
		return nil, errors.ValidationError("title must be between 1 and 200 characters")
	}
	if len(body) > maxBodyLength {
		return nil, errors.ValidationError("body exceeds maximum length")
	}
	return s.store.CreateQuestion(ctx, topicID, authorID, title, body)
}

// GetQuestion retrieves a question by ID.
func (s *Service) GetQuestion(ctx context.Context, questionID uuid.UUID) (*domain.Question, error) {
	return s.store.GetQuestion(ctx, questionID)
}

// EnsureQuestion verifies the question exists. Concurrent lookups for the
// same question collapse into one store read; room joins hit this on every
// connection.
func (s *Service) EnsureQuestion(ctx context.Context, questionID uuid.UUID) error {
	_, err, _ := s.questionGroup.Do(questionID.String(), func() (any, error) {
		return s.store.GetQuestion(ctx, questionID)
	})
	return err
}

// DeleteQuestion removes a question with its answers and votes. Only the
// question's author or an admin may delete it.
func (s *Service) DeleteQuestion(ctx context.Context, questionID, actorID uuid.UUID) error {
	question, err := s.store.GetQuestion(ctx, questionID)
	if err != nil {
		return err
	}

	if question.AuthorID != actorID {
		actor, err := s.store.GetUser(ctx, actorID)
		if err != nil {
			return err
		}
		if !actor.IsAdmin {
			return domain.ErrNotQuestionAuthor
		}
	}

	if err := s.store.DeleteQuestion(ctx, questionID); err != nil {
		return err
	}

	slog.Info("question deleted", "question_id", questionID, "actor_id", actorID)
	return nil
}

// CreateAnswer posts an answer and announces it to the question's room.
// originConn names the WebSocket connection the answer arrived on; that
// connection is skipped during fan-out (uuid.Nil for answers posted over
// HTTP).
func (s *Service) CreateAnswer(ctx context.Context, questionID, authorID uuid.UUID, body string, originConn uuid.UUID) (*domain.Answer, error) {
	body = strings.TrimSpace(body)
	if body == "" || len(body) > maxBodyLength {
		return nil, errors.ValidationError("answer body must be between 1 and 20000 characters")
	}

	answer, err := s.store.CreateAnswer(ctx, questionID, authorID, body)
	if err != nil {
		return nil, err
	}

	s.sink.Publish(questionID, domain.AnswerAdded{Answer: *answer}, originConn)
	return answer, nil
}

// GetAnswer retrieves an answer by ID.
func (s *Service) GetAnswer(ctx context.Context, answerID uuid.UUID) (*domain.Answer, error) {
	return s.store.GetAnswer(ctx, answerID)
}

// ListAnswers lists a question's answers, oldest first.
func (s *Service) ListAnswers(ctx context.Context, questionID uuid.UUID) ([]domain.Answer, error) {
	if _, err := s.store.GetQuestion(ctx, questionID); err != nil {
		return nil, err
	}
	return s.store.AnswersByQuestion(ctx, questionID)
}
