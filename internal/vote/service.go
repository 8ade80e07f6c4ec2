// Package vote implements vote casting, switching, and removal with the
// reputation consequences applied in the same unit of work as the vote itself.
package vote

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/askbird/askbird/internal/domain"
	"github.com/askbird/askbird/internal/metrics"
)

// Service coordinates vote mutations and fans the resulting events out to the
// question's room. The store performs the actual atomic transition; the
// service never observes a half-applied vote.
type Service struct {
	store domain.VoteStore
	sink  domain.EventSink
}

func NewService(store domain.VoteStore, sink domain.EventSink) *Service {
	return &Service{store: store, sink: sink}
}

// Cast applies a vote in the given direction. A voter holding the opposite
// direction is switched in one step; re-casting the held direction fails with
// domain.ErrAlreadyVoted.
func (s *Service) Cast(ctx context.Context, ref domain.VotableRef, userID uuid.UUID, dir domain.Direction) (*domain.VoteOutcome, error) {
	outcome, err := s.store.ApplyVote(ctx, ref, userID, dir)
	if err != nil {
		metrics.VotesTotal.WithLabelValues(string(ref.Kind), "error").Inc()
		return nil, err
	}

	metrics.VotesTotal.WithLabelValues(string(ref.Kind), "applied").Inc()
	slog.Debug("vote applied",
		"kind", ref.Kind,
		"entity_id", ref.ID,
		"user_id", userID,
		"direction", dir,
		"delta", outcome.Delta)

	s.publish(outcome)
	return outcome, nil
}

// Remove withdraws the voter's current vote, reversing exactly the
// reputation delta the cast applied.
func (s *Service) Remove(ctx context.Context, ref domain.VotableRef, userID uuid.UUID) (*domain.VoteOutcome, error) {
	outcome, err := s.store.RemoveVote(ctx, ref, userID)
	if err != nil {
		metrics.VotesTotal.WithLabelValues(string(ref.Kind), "error").Inc()
		return nil, err
	}

	metrics.VotesTotal.WithLabelValues(string(ref.Kind), "removed").Inc()
	slog.Debug("vote removed",
		"kind", ref.Kind,
		"entity_id", ref.ID,
		"user_id", userID,
		"delta", outcome.Delta)

	s.publish(outcome)
	return outcome, nil
}

// Voters lists the up and down vote sets of an entity.
func (s *Service) Voters(ctx context.Context, ref domain.VotableRef) (up, down []uuid.UUID, err error) {
	return s.store.Voters(ctx, ref)
}

func (s *Service) publish(outcome *domain.VoteOutcome) {
	eventType := outcome.Direction.EventType()

	var event domain.Event
	switch outcome.Ref.Kind {
	case domain.KindAnswer:
		event = domain.AnswerVoteChanged{AnswerID: outcome.Ref.ID, Type: eventType}
	default:
		event = domain.QuestionVoteChanged{QuestionID: outcome.Ref.ID, Type: eventType}
	}

	s.sink.Publish(outcome.QuestionID, event, uuid.Nil)
}
