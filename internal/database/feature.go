package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/askbird/askbird/internal/domain"
)

// Feature runs the whole transition in one transaction: the question row lock
// serializes concurrent feature attempts, and no reader can observe a state
// with two featured answers or a credit without its promotion.
func (s *Store) Feature(ctx context.Context, questionID, answerID uuid.UUID) (*domain.FeatureOutcome, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var previous *uuid.UUID
	err = tx.QueryRow(ctx, `
		SELECT featured_answer_id FROM questions WHERE id = $1 FOR UPDATE`, questionID).
		Scan(&previous)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrQuestionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock question: %w", err)
	}

	var authorID uuid.UUID
	var ownerID uuid.UUID
	err = tx.QueryRow(ctx, `
		SELECT author_id, question_id FROM answers WHERE id = $1 FOR UPDATE`, answerID).
		Scan(&authorID, &ownerID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrAnswerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock answer: %w", err)
	}
	if ownerID != questionID {
		return nil, domain.ErrAnswerWrongQuestion
	}
	if previous != nil && *previous == answerID {
		return nil, domain.ErrAlreadyFeatured
	}

	if previous != nil {
		if _, err := tx.Exec(ctx, `
			UPDATE answers SET is_featured = FALSE WHERE id = $1`, *previous); err != nil {
			return nil, fmt.Errorf("failed to demote featured answer: %w", err)
		}
	}
	if _, err := tx.Exec(ctx, `
		UPDATE answers SET is_featured = TRUE WHERE id = $1`, answerID); err != nil {
		return nil, fmt.Errorf("failed to promote answer: %w", err)
	}
	if _, err := tx.Exec(ctx, `
		UPDATE questions SET featured_answer_id = $2, is_answered = TRUE WHERE id = $1`,
		questionID, answerID); err != nil {
		return nil, fmt.Errorf("failed to update question: %w", err)
	}

	if err := applyDeltaTx(ctx, tx, authorID, domain.FeaturedAnswerCredit); err != nil {
		return nil, err
	}
	if err := grantBadgeTx(ctx, tx, authorID, domain.BadgeFeaturedAnswer); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return &domain.FeatureOutcome{
		QuestionID:       questionID,
		AnswerID:         answerID,
		AnswerAuthorID:   authorID,
		PreviousFeatured: previous,
	}, nil
}
