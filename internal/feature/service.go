// Package feature implements the featured-answer transition: at most one
// featured answer per question, with the author credit and badge applied
// atomically alongside the promotion.
package feature

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/askbird/askbird/internal/domain"
	"github.com/askbird/askbird/internal/metrics"
)

// Service authorizes and executes feature transitions. Only the question's
// author or an admin may pick the featured answer; the store runs the
// transition itself as one unit.
type Service struct {
	questions domain.QuestionRepository
	users     domain.UserRepository
	store     domain.FeatureStore
	sink      domain.EventSink
}

func NewService(questions domain.QuestionRepository, users domain.UserRepository, store domain.FeatureStore, sink domain.EventSink) *Service {
	return &Service{questions: questions, users: users, store: store, sink: sink}
}

// Feature promotes the answer to the question's featured answer on behalf of
// actorID. A previously featured answer is demoted in the same step; its
// author keeps the credit already earned.
func (s *Service) Feature(ctx context.Context, questionID, answerID, actorID uuid.UUID) (*domain.FeatureOutcome, error) {
	question, err := s.questions.GetQuestion(ctx, questionID)
	if err != nil {
		metrics.FeaturedAnswersTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	if question.AuthorID != actorID {
		actor, err := s.users.GetUser(ctx, actorID)
		if err != nil {
			metrics.FeaturedAnswersTotal.WithLabelValues("error").Inc()
			return nil, err
		}
		if !actor.IsAdmin {
			metrics.FeaturedAnswersTotal.WithLabelValues("denied").Inc()
			return nil, domain.ErrNotQuestionAuthor
		}
	}

	outcome, err := s.store.Feature(ctx, questionID, answerID)
	if err != nil {
		metrics.FeaturedAnswersTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	metrics.FeaturedAnswersTotal.WithLabelValues("applied").Inc()
	slog.Info("answer featured",
		"question_id", questionID,
		"answer_id", answerID,
		"actor_id", actorID,
		"author_id", outcome.AnswerAuthorID)

	s.sink.Publish(questionID, domain.AnswerFeatured{AnswerID: answerID}, uuid.Nil)
	return outcome, nil
}
