package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// BadgeFeaturedAnswer is granted the first time one of a user's answers is featured.
const BadgeFeaturedAnswer = "featured-answer"

// --- Model types ---

type User struct {
	ID         uuid.UUID `json:"id" db:"id"`
	Username   string    `json:"username" db:"username"`
	Reputation int64     `json:"reputation" db:"reputation"`
	IsAdmin    bool      `json:"isAdmin" db:"is_admin"`
	CreatedAt  time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt  time.Time `json:"updatedAt" db:"updated_at"`
}

type Topic struct {
	ID             uuid.UUID `json:"id" db:"id"`
	Name           string    `json:"name" db:"name"`
	QuestionsCount int       `json:"questionsCount" db:"questions_count"`
}

type Question struct {
	ID               uuid.UUID  `json:"id" db:"id"`
	TopicID          uuid.UUID  `json:"topicId" db:"topic_id"`
	AuthorID         uuid.UUID  `json:"authorId" db:"author_id"`
	Title            string     `json:"title" db:"title"`
	Body             string     `json:"body" db:"body"`
	FeaturedAnswerID *uuid.UUID `json:"featuredAnswerId,omitempty" db:"featured_answer_id"`
	IsAnswered       bool       `json:"isAnswered" db:"is_answered"`
	CreatedAt        time.Time  `json:"createdAt" db:"created_at"`
}

type Answer struct {
	ID         uuid.UUID `json:"id" db:"id"`
	QuestionID uuid.UUID `json:"questionId" db:"question_id"`
	AuthorID   uuid.UUID `json:"authorId" db:"author_id"`
	Body       string    `json:"body" db:"body"`
	IsFeatured bool      `json:"isFeatured" db:"is_featured"`
	CreatedAt  time.Time `json:"createdAt" db:"created_at"`
}

// --- Repository interfaces ---

// UserRepository abstracts user persistence.
type UserRepository interface {
	CreateUser(ctx context.Context, username string, admin bool) (*User, error)
	GetUser(ctx context.Context, userID uuid.UUID) (*User, error)
	UserBadges(ctx context.Context, userID uuid.UUID) ([]string, error)
}

// TopicRepository abstracts topic persistence.
type TopicRepository interface {
	CreateTopic(ctx context.Context, name string) (*Topic, error)
	GetTopic(ctx context.Context, topicID uuid.UUID) (*Topic, error)
}

// QuestionRepository abstracts question persistence. CreateQuestion increments
// the topic's denormalized question count in the same transaction;
// DeleteQuestion removes the question's answers and every vote cast on the
// question or any of its answers.
type QuestionRepository interface {
	CreateQuestion(ctx context.Context, topicID, authorID uuid.UUID, title, body string) (*Question, error)
	GetQuestion(ctx context.Context, questionID uuid.UUID) (*Question, error)
	DeleteQuestion(ctx context.Context, questionID uuid.UUID) error
}

// AnswerRepository abstracts answer persistence.
type AnswerRepository interface {
	CreateAnswer(ctx context.Context, questionID, authorID uuid.UUID, body string) (*Answer, error)
	GetAnswer(ctx context.Context, answerID uuid.UUID) (*Answer, error)
	AnswersByQuestion(ctx context.Context, questionID uuid.UUID) ([]Answer, error)
}

// ReputationLedger applies signed point deltas to a user's score. The ledger
// performs no deduplication; idempotency is the caller's responsibility.
type ReputationLedger interface {
	ApplyDelta(ctx context.Context, userID uuid.UUID, amount int64) error
	GrantBadge(ctx context.Context, userID uuid.UUID, badge string) error
}

// Store aggregates every persistence contract the application layer needs.
// Implemented by the Postgres stores and by memstore for tests.
type Store interface {
	UserRepository
	TopicRepository
	QuestionRepository
	AnswerRepository
	ReputationLedger
	VoteStore
	FollowStore
	FeatureStore
}
