package domain

import "github.com/google/uuid"

// Event is a state-change notification fanned out to a question's room.
// The name is the wire-level event discriminator; payload shapes are stable.
type Event interface {
	EventName() string
}

// AnswerAdded announces a new answer. The only event with exclude-self
// semantics: the originating connection does not receive it.
type AnswerAdded struct {
	Answer Answer `json:"answer"`
}

func (AnswerAdded) EventName() string { return "answerAdded" }

// AnswerVoteChanged announces a vote change on an answer.
type AnswerVoteChanged struct {
	AnswerID uuid.UUID `json:"answerId"`
	Type     string    `json:"type"` // "upvote" | "downvote" | "unvote"
}

func (AnswerVoteChanged) EventName() string { return "answerUpdated" }

// QuestionVoteChanged announces a vote change on the question itself.
type QuestionVoteChanged struct {
	QuestionID uuid.UUID `json:"questionId"`
	Type       string    `json:"type"`
}

func (QuestionVoteChanged) EventName() string { return "questionUpdated" }

// AnswerFeatured announces the question's new featured answer.
type AnswerFeatured struct {
	AnswerID uuid.UUID `json:"answerId"`
}

func (AnswerFeatured) EventName() string { return "answerFeatured" }

// EventSink fans an event out to every connection subscribed to a question's
// room, best effort. exclude names a connection to skip (uuid.Nil for none).
// Delivery failures are dropped at the sink, never surfaced to the caller.
type EventSink interface {
	Publish(questionID uuid.UUID, event Event, exclude uuid.UUID)
}
