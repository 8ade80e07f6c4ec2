package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/askbird/askbird/internal/domain"
)

// Store implements domain.Store backed by PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

var _ domain.Store = (*Store)(nil)

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const (
	pgForeignKeyViolation = "23503"
	pgUniqueViolation     = "23505"
)

func pgErrCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

const userColumns = `id, username, reputation, is_admin, created_at, updated_at`

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.Username, &u.Reputation, &u.IsAdmin, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// --- Users ---

func (s *Store) CreateUser(ctx context.Context, username string, admin bool) (*domain.User, error) {
	user, err := scanUser(s.pool.QueryRow(ctx, `
		INSERT INTO users (username, is_admin)
		VALUES ($1, $2)
		RETURNING `+userColumns, username, admin))
	if pgErrCode(err) == pgUniqueViolation {
		return nil, domain.ErrUsernameTaken
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

func (s *Store) GetUser(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	user, err := scanUser(s.pool.QueryRow(ctx, `
		SELECT `+userColumns+` FROM users WHERE id = $1`, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

func (s *Store) UserBadges(ctx context.Context, userID uuid.UUID) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT badge FROM user_badges WHERE user_id = $1 ORDER BY badge`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list badges: %w", err)
	}
	badges, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to scan badges: %w", err)
	}
	return badges, nil
}

// --- Topics ---

func (s *Store) CreateTopic(ctx context.Context, name string) (*domain.Topic, error) {
	var t domain.Topic
	err := s.pool.QueryRow(ctx, `
		INSERT INTO topics (name)
		VALUES ($1)
		RETURNING id, name, questions_count`, name).
		Scan(&t.ID, &t.Name, &t.QuestionsCount)
	if pgErrCode(err) == pgUniqueViolation {
		return nil, domain.ErrTopicNameTaken
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create topic: %w", err)
	}
	return &t, nil
}

func (s *Store) GetTopic(ctx context.Context, topicID uuid.UUID) (*domain.Topic, error) {
	var t domain.Topic
	err := s.pool.QueryRow(ctx, `
		SELECT id, name, questions_count FROM topics WHERE id = $1`, topicID).
		Scan(&t.ID, &t.Name, &t.QuestionsCount)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrTopicNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get topic: %w", err)
	}
	return &t, nil
}

// --- Questions ---

const questionColumns = `id, topic_id, author_id, title, body, featured_answer_id, is_answered, created_at`

func scanQuestion(row pgx.Row) (*domain.Question, error) {
	var q domain.Question
	err := row.Scan(&q.ID, &q.TopicID, &q.AuthorID, &q.Title, &q.Body,
		&q.FeaturedAnswerID, &q.IsAnswered, &q.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &q, nil
}

// CreateQuestion inserts the question and bumps the topic's denormalized
// question count in one transaction.
func (s *Store) CreateQuestion(ctx context.Context, topicID, authorID uuid.UUID, title, body string) (*domain.Question, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	question, err := scanQuestion(tx.QueryRow(ctx, `
		INSERT INTO questions (topic_id, author_id, title, body)
		VALUES ($1, $2, $3, $4)
		RETURNING `+questionColumns, topicID, authorID, title, body))
	if pgErrCode(err) == pgForeignKeyViolation {
		return nil, s.questionRefError(err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create question: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		UPDATE topics SET questions_count = questions_count + 1 WHERE id = $1`, topicID); err != nil {
		return nil, fmt.Errorf("failed to bump topic question count: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return question, nil
}

func (s *Store) questionRefError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.ConstraintName == "questions_topic_id_fkey" {
		return domain.ErrTopicNotFound
	}
	return domain.ErrUserNotFound
}

func (s *Store) GetQuestion(ctx context.Context, questionID uuid.UUID) (*domain.Question, error) {
	question, err := scanQuestion(s.pool.QueryRow(ctx, `
		SELECT `+questionColumns+` FROM questions WHERE id = $1`, questionID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrQuestionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get question: %w", err)
	}
	return question, nil
}

// DeleteQuestion removes the question, its answers (FK cascade) and every
// vote cast on the question or its answers, and decrements the topic count.
// Vote rows are not FK-bound to votables, so they are cleared explicitly.
func (s *Store) DeleteQuestion(ctx context.Context, questionID uuid.UUID) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var topicID uuid.UUID
	err = tx.QueryRow(ctx, `
		SELECT topic_id FROM questions WHERE id = $1 FOR UPDATE`, questionID).Scan(&topicID)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrQuestionNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to lock question: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		DELETE FROM votes
		WHERE (entity_kind = 'question' AND entity_id = $1)
		   OR (entity_kind = 'answer' AND entity_id IN (
		       SELECT id FROM answers WHERE question_id = $1))`, questionID); err != nil {
		return fmt.Errorf("failed to clear votes: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM questions WHERE id = $1`, questionID); err != nil {
		return fmt.Errorf("failed to delete question: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		UPDATE topics SET questions_count = questions_count - 1 WHERE id = $1`, topicID); err != nil {
		return fmt.Errorf("failed to drop topic question count: %w", err)
	}

	return tx.Commit(ctx)
}

// --- Answers ---

const answerColumns = `id, question_id, author_id, body, is_featured, created_at`

func scanAnswer(row pgx.Row) (*domain.Answer, error) {
	var a domain.Answer
	err := row.Scan(&a.ID, &a.QuestionID, &a.AuthorID, &a.Body, &a.IsFeatured, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *Store) CreateAnswer(ctx context.Context, questionID, authorID uuid.UUID, body string) (*domain.Answer, error) {
	answer, err := scanAnswer(s.pool.QueryRow(ctx, `
		INSERT INTO answers (question_id, author_id, body)
		VALUES ($1, $2, $3)
		RETURNING `+answerColumns, questionID, authorID, body))
	if pgErrCode(err) == pgForeignKeyViolation {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.ConstraintName == "answers_question_id_fkey" {
			return nil, domain.ErrQuestionNotFound
		}
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create answer: %w", err)
	}
	return answer, nil
}

func (s *Store) GetAnswer(ctx context.Context, answerID uuid.UUID) (*domain.Answer, error) {
	answer, err := scanAnswer(s.pool.QueryRow(ctx, `
		SELECT `+answerColumns+` FROM answers WHERE id = $1`, answerID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrAnswerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get answer: %w", err)
	}
	return answer, nil
}

func (s *Store) AnswersByQuestion(ctx context.Context, questionID uuid.UUID) ([]domain.Answer, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+answerColumns+` FROM answers
		WHERE question_id = $1
		ORDER BY created_at`, questionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list answers: %w", err)
	}
	answers, err := pgx.CollectRows(rows, pgx.RowToStructByPos[domain.Answer])
	if err != nil {
		return nil, fmt.Errorf("failed to scan answers: %w", err)
	}
	return answers, nil
}
