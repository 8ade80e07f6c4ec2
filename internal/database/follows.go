package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/askbird/askbird/internal/domain"
)

// A follow relation is one row, so the "mirrored sets" of both parties are
// projections of the same record: inserting or deleting it updates both sides
// atomically, and concurrent duplicate inserts collapse on the primary key.

func (s *Store) Follow(ctx context.Context, kind domain.FollowKind, subjectID, targetID uuid.UUID) error {
	var tag pgconn.CommandTag
	var err error

	switch kind {
	case domain.FollowUser:
		tag, err = s.pool.Exec(ctx, `
			INSERT INTO user_follows (follower_id, followee_id)
			VALUES ($1, $2)
			ON CONFLICT (follower_id, followee_id) DO NOTHING`, subjectID, targetID)
	case domain.FollowTopic:
		tag, err = s.pool.Exec(ctx, `
			INSERT INTO topic_follows (user_id, topic_id)
			VALUES ($1, $2)
			ON CONFLICT (user_id, topic_id) DO NOTHING`, subjectID, targetID)
	default:
		return fmt.Errorf("unknown follow kind %q", kind)
	}

	if pgErrCode(err) == pgForeignKeyViolation {
		return followRefError(err, kind)
	}
	if err != nil {
		return fmt.Errorf("failed to insert follow relation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAlreadyFollowing
	}
	return nil
}

func (s *Store) Unfollow(ctx context.Context, kind domain.FollowKind, subjectID, targetID uuid.UUID) error {
	var tag pgconn.CommandTag
	var err error

	switch kind {
	case domain.FollowUser:
		tag, err = s.pool.Exec(ctx, `
			DELETE FROM user_follows
			WHERE follower_id = $1 AND followee_id = $2`, subjectID, targetID)
	case domain.FollowTopic:
		tag, err = s.pool.Exec(ctx, `
			DELETE FROM topic_follows
			WHERE user_id = $1 AND topic_id = $2`, subjectID, targetID)
	default:
		return fmt.Errorf("unknown follow kind %q", kind)
	}

	if err != nil {
		return fmt.Errorf("failed to delete follow relation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFollowing
	}
	return nil
}

// followRefError maps a foreign key violation to the missing party.
func followRefError(err error, kind domain.FollowKind) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && kind == domain.FollowTopic && pgErr.ConstraintName == "topic_follows_topic_id_fkey" {
		return domain.ErrTopicNotFound
	}
	return domain.ErrUserNotFound
}

func (s *Store) FollowingUsers(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	return s.collectIDs(ctx, `
		SELECT followee_id FROM user_follows WHERE follower_id = $1`, userID)
}

func (s *Store) UserFollowers(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	return s.collectIDs(ctx, `
		SELECT follower_id FROM user_follows WHERE followee_id = $1`, userID)
}

func (s *Store) FollowingTopics(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	return s.collectIDs(ctx, `
		SELECT topic_id FROM topic_follows WHERE user_id = $1`, userID)
}

func (s *Store) TopicFollowers(ctx context.Context, topicID uuid.UUID) ([]uuid.UUID, error) {
	return s.collectIDs(ctx, `
		SELECT user_id FROM topic_follows WHERE topic_id = $1`, topicID)
}

func (s *Store) collectIDs(ctx context.Context, query string, arg any) ([]uuid.UUID, error) {
	rows, err := s.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to query follow relation: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
	if err != nil {
		return nil, fmt.Errorf("failed to scan follow relation: %w", err)
	}
	return ids, nil
}
