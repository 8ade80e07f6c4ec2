// Package follow implements the user and topic follow graphs.
package follow

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/askbird/askbird/internal/domain"
	"github.com/askbird/askbird/internal/metrics"
)

// Service guards follow graph mutations. The store keeps each relation as a
// single record, so both parties' views stay symmetric without coordination
// here.
type Service struct {
	store domain.FollowStore
}

func NewService(store domain.FollowStore) *Service {
	return &Service{store: store}
}

// Follow adds a relation from subject to target. Following oneself is
// rejected before the store is touched.
func (s *Service) Follow(ctx context.Context, kind domain.FollowKind, subjectID, targetID uuid.UUID) error {
	if kind == domain.FollowUser && subjectID == targetID {
		metrics.FollowsTotal.WithLabelValues(string(kind), "follow", "error").Inc()
		return domain.ErrSelfFollow
	}

	if err := s.store.Follow(ctx, kind, subjectID, targetID); err != nil {
		metrics.FollowsTotal.WithLabelValues(string(kind), "follow", "error").Inc()
		return err
	}

	metrics.FollowsTotal.WithLabelValues(string(kind), "follow", "applied").Inc()
	slog.Debug("follow added", "kind", kind, "subject_id", subjectID, "target_id", targetID)
	return nil
}

// Unfollow removes the relation.
func (s *Service) Unfollow(ctx context.Context, kind domain.FollowKind, subjectID, targetID uuid.UUID) error {
	if err := s.store.Unfollow(ctx, kind, subjectID, targetID); err != nil {
		metrics.FollowsTotal.WithLabelValues(string(kind), "unfollow", "error").Inc()
		return err
	}

	metrics.FollowsTotal.WithLabelValues(string(kind), "unfollow", "applied").Inc()
	slog.Debug("follow removed", "kind", kind, "subject_id", subjectID, "target_id", targetID)
	return nil
}

// FollowingUsers lists the users the given user follows.
func (s *Service) FollowingUsers(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	return s.store.FollowingUsers(ctx, userID)
}

// UserFollowers lists the users following the given user.
func (s *Service) UserFollowers(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	return s.store.UserFollowers(ctx, userID)
}

// FollowingTopics lists the topics the given user follows.
func (s *Service) FollowingTopics(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	return s.store.FollowingTopics(ctx, userID)
}

// TopicFollowers lists the users following the given topic.
func (s *Service) TopicFollowers(ctx context.Context, topicID uuid.UUID) ([]uuid.UUID, error) {
	return s.store.TopicFollowers(ctx, topicID)
}
