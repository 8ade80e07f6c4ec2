package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/askbird/askbird/internal/domain"
)

func directionToInt(d domain.Direction) int16 {
	if d == domain.DirectionUp {
		return 1
	}
	return -1
}

func directionFromInt(n int16) domain.Direction {
	if n == 1 {
		return domain.DirectionUp
	}
	return domain.DirectionDown
}

// lockVotable locks the votable's row FOR UPDATE and resolves its author and
// owning question. The row lock is what serializes concurrent vote mutations
// against the same entity; every membership check below happens under it.
func lockVotable(ctx context.Context, tx pgx.Tx, ref domain.VotableRef) (authorID, questionID uuid.UUID, err error) {
	switch ref.Kind {
	case domain.KindQuestion:
		err = tx.QueryRow(ctx, `
			SELECT author_id, id FROM questions WHERE id = $1 FOR UPDATE`, ref.ID).
			Scan(&authorID, &questionID)
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, uuid.Nil, domain.ErrQuestionNotFound
		}
	case domain.KindAnswer:
		err = tx.QueryRow(ctx, `
			SELECT author_id, question_id FROM answers WHERE id = $1 FOR UPDATE`, ref.ID).
			Scan(&authorID, &questionID)
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, uuid.Nil, domain.ErrAnswerNotFound
		}
	default:
		return uuid.Nil, uuid.Nil, domain.ErrQuestionNotFound
	}
	if err != nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("failed to lock votable: %w", err)
	}
	return authorID, questionID, nil
}

func (s *Store) ApplyVote(ctx context.Context, ref domain.VotableRef, userID uuid.UUID, dir domain.Direction) (*domain.VoteOutcome, error) {
	if dir != domain.DirectionUp && dir != domain.DirectionDown {
		return nil, domain.ErrInvalidDirection
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	authorID, questionID, err := lockVotable(ctx, tx, ref)
	if err != nil {
		return nil, err
	}

	prev := domain.DirectionNone
	var stored int16
	err = tx.QueryRow(ctx, `
		SELECT direction FROM votes
		WHERE entity_kind = $1 AND entity_id = $2 AND user_id = $3`,
		ref.Kind, ref.ID, userID).Scan(&stored)
	switch {
	case err == nil:
		prev = directionFromInt(stored)
	case errors.Is(err, pgx.ErrNoRows):
		// first vote by this user
	default:
		return nil, fmt.Errorf("failed to read vote membership: %w", err)
	}

	if prev == dir {
		return nil, domain.ErrAlreadyVoted
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO votes (entity_kind, entity_id, user_id, direction)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (entity_kind, entity_id, user_id)
		DO UPDATE SET direction = EXCLUDED.direction`,
		ref.Kind, ref.ID, userID, directionToInt(dir))
	if pgErrCode(err) == pgForeignKeyViolation {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to write vote: %w", err)
	}

	delta := domain.DeltaFor(ref.Kind, prev, dir)
	if err := applyDeltaTx(ctx, tx, authorID, delta); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return &domain.VoteOutcome{
		Ref:        ref,
		QuestionID: questionID,
		AuthorID:   authorID,
		UserID:     userID,
		Previous:   prev,
		Direction:  dir,
		Delta:      delta,
	}, nil
}

func (s *Store) RemoveVote(ctx context.Context, ref domain.VotableRef, userID uuid.UUID) (*domain.VoteOutcome, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	authorID, questionID, err := lockVotable(ctx, tx, ref)
	if err != nil {
		return nil, err
	}

	var stored int16
	err = tx.QueryRow(ctx, `
		DELETE FROM votes
		WHERE entity_kind = $1 AND entity_id = $2 AND user_id = $3
		RETURNING direction`,
		ref.Kind, ref.ID, userID).Scan(&stored)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotVoted
	}
	if err != nil {
		return nil, fmt.Errorf("failed to remove vote: %w", err)
	}

	prev := directionFromInt(stored)
	delta := domain.DeltaFor(ref.Kind, prev, domain.DirectionNone)
	if err := applyDeltaTx(ctx, tx, authorID, delta); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return &domain.VoteOutcome{
		Ref:        ref,
		QuestionID: questionID,
		AuthorID:   authorID,
		UserID:     userID,
		Previous:   prev,
		Direction:  domain.DirectionNone,
		Delta:      delta,
	}, nil
}

func (s *Store) Voters(ctx context.Context, ref domain.VotableRef) (up, down []uuid.UUID, err error) {
	rows, err := s.pool.Query(ctx, `
		SELECT user_id, direction FROM votes
		WHERE entity_kind = $1 AND entity_id = $2`, ref.Kind, ref.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list voters: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var userID uuid.UUID
		var stored int16
		if err := rows.Scan(&userID, &stored); err != nil {
			return nil, nil, fmt.Errorf("failed to scan voter: %w", err)
		}
		if stored == 1 {
			up = append(up, userID)
		} else {
			down = append(down, userID)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("failed to iterate voters: %w", err)
	}
	return up, down, nil
}
