package vote

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askbird/askbird/internal/domain"
	"github.com/askbird/askbird/internal/memstore"
)

type publishedEvent struct {
	questionID uuid.UUID
	event      domain.Event
	exclude    uuid.UUID
}

// recordingSink captures published events for assertions.
type recordingSink struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (r *recordingSink) Publish(questionID uuid.UUID, event domain.Event, exclude uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, publishedEvent{questionID: questionID, event: event, exclude: exclude})
}

func (r *recordingSink) all() []publishedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]publishedEvent(nil), r.events...)
}

type fixture struct {
	store    *memstore.Store
	sink     *recordingSink
	service  *Service
	author   *domain.User
	voter    *domain.User
	question *domain.Question
	answer   *domain.Answer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := memstore.New()

	author, err := store.CreateUser(ctx, "author", false)
	require.NoError(t, err)
	voter, err := store.CreateUser(ctx, "voter", false)
	require.NoError(t, err)
	topic, err := store.CreateTopic(ctx, "go")
	require.NoError(t, err)
	question, err := store.CreateQuestion(ctx, topic.ID, author.ID, "title", "body")
	require.NoError(t, err)
	answer, err := store.CreateAnswer(ctx, question.ID, author.ID, "answer body")
	require.NoError(t, err)

	sink := &recordingSink{}
	return &fixture{
		store:    store,
		sink:     sink,
		service:  NewService(store, sink),
		author:   author,
		voter:    voter,
		question: question,
		answer:   answer,
	}
}

func TestCast_QuestionUpvote(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	outcome, err := f.service.Cast(ctx, domain.QuestionRef(f.question.ID), f.voter.ID, domain.DirectionUp)
	require.NoError(t, err)
	assert.Equal(t, int64(10), outcome.Delta)

	author, err := f.store.GetUser(ctx, f.author.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(10), author.Reputation)

	events := f.sink.all()
	require.Len(t, events, 1)
	assert.Equal(t, f.question.ID, events[0].questionID)
	assert.Equal(t, uuid.Nil, events[0].exclude)

	event, ok := events[0].event.(domain.QuestionVoteChanged)
	require.True(t, ok)
	assert.Equal(t, f.question.ID, event.QuestionID)
	assert.Equal(t, "upvote", event.Type)
}

func TestCast_AnswerEventsTargetOwningQuestionRoom(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.Cast(ctx, domain.AnswerRef(f.answer.ID), f.voter.ID, domain.DirectionDown)
	require.NoError(t, err)

	events := f.sink.all()
	require.Len(t, events, 1)
	assert.Equal(t, f.question.ID, events[0].questionID)

	event, ok := events[0].event.(domain.AnswerVoteChanged)
	require.True(t, ok)
	assert.Equal(t, f.answer.ID, event.AnswerID)
	assert.Equal(t, "downvote", event.Type)
}

func TestCast_SwitchEmitsSingleEvent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.Cast(ctx, domain.AnswerRef(f.answer.ID), f.voter.ID, domain.DirectionDown)
	require.NoError(t, err)

	outcome, err := f.service.Cast(ctx, domain.AnswerRef(f.answer.ID), f.voter.ID, domain.DirectionUp)
	require.NoError(t, err)
	assert.Equal(t, int64(20), outcome.Delta)
	assert.Equal(t, domain.DirectionDown, outcome.Previous)

	events := f.sink.all()
	require.Len(t, events, 2)
	event, ok := events[1].event.(domain.AnswerVoteChanged)
	require.True(t, ok)
	assert.Equal(t, "upvote", event.Type)
}

func TestCast_InvalidDirection(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.Cast(context.Background(), domain.QuestionRef(f.question.ID), f.voter.ID, domain.DirectionNone)
	assert.ErrorIs(t, err, domain.ErrInvalidDirection)
	assert.Empty(t, f.sink.all())
}

func TestCast_AlreadyVotedPublishesNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.Cast(ctx, domain.QuestionRef(f.question.ID), f.voter.ID, domain.DirectionUp)
	require.NoError(t, err)

	_, err = f.service.Cast(ctx, domain.QuestionRef(f.question.ID), f.voter.ID, domain.DirectionUp)
	assert.ErrorIs(t, err, domain.ErrAlreadyVoted)
	assert.Len(t, f.sink.all(), 1)
}

func TestRemove_EmitsUnvote(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.Cast(ctx, domain.AnswerRef(f.answer.ID), f.voter.ID, domain.DirectionUp)
	require.NoError(t, err)

	outcome, err := f.service.Remove(ctx, domain.AnswerRef(f.answer.ID), f.voter.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(-15), outcome.Delta)

	author, err := f.store.GetUser(ctx, f.author.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), author.Reputation)

	events := f.sink.all()
	require.Len(t, events, 2)
	event, ok := events[1].event.(domain.AnswerVoteChanged)
	require.True(t, ok)
	assert.Equal(t, "unvote", event.Type)
}

func TestRemove_NotVoted(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.Remove(context.Background(), domain.QuestionRef(f.question.ID), f.voter.ID)
	assert.ErrorIs(t, err, domain.ErrNotVoted)
	assert.Empty(t, f.sink.all())
}

func TestVoters_SplitsByDirection(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	second, err := f.store.CreateUser(ctx, "second", false)
	require.NoError(t, err)

	_, err = f.service.Cast(ctx, domain.QuestionRef(f.question.ID), f.voter.ID, domain.DirectionUp)
	require.NoError(t, err)
	_, err = f.service.Cast(ctx, domain.QuestionRef(f.question.ID), second.ID, domain.DirectionDown)
	require.NoError(t, err)

	up, down, err := f.service.Voters(ctx, domain.QuestionRef(f.question.ID))
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{f.voter.ID}, up)
	assert.Equal(t, []uuid.UUID{second.ID}, down)
}
