package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/askbird/askbird/internal/domain"
)

// applyDeltaTx adds a signed amount to a user's reputation inside an open
// transaction. No floor, no ceiling, no deduplication.
func applyDeltaTx(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount int64) error {
	tag, err := tx.Exec(ctx, `
		UPDATE users SET reputation = reputation + $2, updated_at = now()
		WHERE id = $1`, userID, amount)
	if err != nil {
		return fmt.Errorf("failed to apply reputation delta: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// grantBadgeTx grants a badge inside an open transaction. Granting a badge
// already held is a no-op.
func grantBadgeTx(ctx context.Context, tx pgx.Tx, userID uuid.UUID, badge string) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO user_badges (user_id, badge)
		VALUES ($1, $2)
		ON CONFLICT (user_id, badge) DO NOTHING`, userID, badge)
	if pgErrCode(err) == pgForeignKeyViolation {
		return domain.ErrUserNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to grant badge: %w", err)
	}
	return nil
}

func (s *Store) ApplyDelta(ctx context.Context, userID uuid.UUID, amount int64) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE users SET reputation = reputation + $2, updated_at = now()
		WHERE id = $1`, userID, amount)
	if err != nil {
		return fmt.Errorf("failed to apply reputation delta: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (s *Store) GrantBadge(ctx context.Context, userID uuid.UUID, badge string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO user_badges (user_id, badge)
		VALUES ($1, $2)
		ON CONFLICT (user_id, badge) DO NOTHING`, userID, badge)
	if pgErrCode(err) == pgForeignKeyViolation {
		return domain.ErrUserNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to grant badge: %w", err)
	}
	return nil
}
