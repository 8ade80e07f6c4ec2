package domain

import (
	"context"

	"github.com/google/uuid"
)

// FollowKind selects which bipartite relation a follow operation targets.
type FollowKind string

const (
	FollowUser  FollowKind = "user"
	FollowTopic FollowKind = "topic"
)

// FollowStore owns the follow adjacency relations. A relation is stored as a
// single record, so the mirrored following/followers sets of the two parties
// are projections of the same row and cannot diverge. Implementations must
// serialize concurrent follow/unfollow on the same (subject, target) pair.
type FollowStore interface {
	// Follow inserts the relation. An existing relation fails with
	// ErrAlreadyFollowing; a missing subject or target with the matching
	// not-found error.
	Follow(ctx context.Context, kind FollowKind, subjectID, targetID uuid.UUID) error
	// Unfollow removes the relation, failing with ErrNotFollowing if absent.
	Unfollow(ctx context.Context, kind FollowKind, subjectID, targetID uuid.UUID) error

	FollowingUsers(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
	UserFollowers(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
	FollowingTopics(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
	TopicFollowers(ctx context.Context, topicID uuid.UUID) ([]uuid.UUID, error)
}

// FeaturedAnswerCredit is the reputation granted to an answer's author when
// the answer becomes the question's featured answer.
const FeaturedAnswerCredit int64 = 50

// FeatureOutcome reports a committed feature transition.
type FeatureOutcome struct {
	QuestionID       uuid.UUID
	AnswerID         uuid.UUID
	AnswerAuthorID   uuid.UUID
	PreviousFeatured *uuid.UUID // answer demoted by this transition, if any
}

// FeatureStore owns the atomic unit of a feature transition: demote the
// previously featured answer, promote the target, update the question's
// featured pointer and answered flag, credit the answer's author and grant
// the badge. Authorization is checked by the caller before invoking Feature.
type FeatureStore interface {
	Feature(ctx context.Context, questionID, answerID uuid.UUID) (*FeatureOutcome, error)
}
