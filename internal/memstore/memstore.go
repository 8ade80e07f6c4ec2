// Package memstore provides an in-memory implementation of the domain store
// contracts. It backs unit tests and local development without PostgreSQL.
// A single mutex guards all state, which trivially gives the per-entity
// linearizability the contracts demand.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/askbird/askbird/internal/domain"
)

type voteKey struct {
	kind domain.VotableKind
	id   uuid.UUID
	user uuid.UUID
}

type followKey struct {
	subject uuid.UUID
	target  uuid.UUID
}

// Store implements domain.Store in memory.
type Store struct {
	mu sync.Mutex

	users     map[uuid.UUID]*domain.User
	badges    map[uuid.UUID]map[string]struct{}
	topics    map[uuid.UUID]*domain.Topic
	questions map[uuid.UUID]*domain.Question
	answers   map[uuid.UUID]*domain.Answer

	votes        map[voteKey]domain.Direction
	userFollows  map[followKey]struct{}
	topicFollows map[followKey]struct{}
}

var _ domain.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		users:        make(map[uuid.UUID]*domain.User),
		badges:       make(map[uuid.UUID]map[string]struct{}),
		topics:       make(map[uuid.UUID]*domain.Topic),
		questions:    make(map[uuid.UUID]*domain.Question),
		answers:      make(map[uuid.UUID]*domain.Answer),
		votes:        make(map[voteKey]domain.Direction),
		userFollows:  make(map[followKey]struct{}),
		topicFollows: make(map[followKey]struct{}),
	}
}

// --- Users ---

func (s *Store) CreateUser(_ context.Context, username string, admin bool) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if existing.Username == username {
			return nil, domain.ErrUsernameTaken
		}
	}

	now := time.Now()
	u := &domain.User{
		ID:        uuid.New(),
		Username:  username,
		IsAdmin:   admin,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.users[u.ID] = u
	cp := *u
	return &cp, nil
}

func (s *Store) GetUser(_ context.Context, userID uuid.UUID) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *Store) UserBadges(_ context.Context, userID uuid.UUID) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[userID]; !ok {
		return nil, domain.ErrUserNotFound
	}
	var out []string
	for b := range s.badges[userID] {
		out = append(out, b)
	}
	sort.Strings(out)
	return out, nil
}

// --- Topics ---

func (s *Store) CreateTopic(_ context.Context, name string) (*domain.Topic, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.topics {
		if existing.Name == name {
			return nil, domain.ErrTopicNameTaken
		}
	}

	t := &domain.Topic{ID: uuid.New(), Name: name}
	s.topics[t.ID] = t
	cp := *t
	return &cp, nil
}

func (s *Store) GetTopic(_ context.Context, topicID uuid.UUID) (*domain.Topic, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.topics[topicID]
	if !ok {
		return nil, domain.ErrTopicNotFound
	}
	cp := *t
	return &cp, nil
}

// --- Questions ---

func (s *Store) CreateQuestion(_ context.Context, topicID, authorID uuid.UUID, title, body string) (*domain.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	topic, ok := s.topics[topicID]
	if !ok {
		return nil, domain.ErrTopicNotFound
	}
	if _, ok := s.users[authorID]; !ok {
		return nil, domain.ErrUserNotFound
	}

	q := &domain.Question{
		ID:        uuid.New(),
		TopicID:   topicID,
		AuthorID:  authorID,
		Title:     title,
		Body:      body,
		CreatedAt: time.Now(),
	}
	s.questions[q.ID] = q
	topic.QuestionsCount++
	cp := *q
	return &cp, nil
}

func (s *Store) GetQuestion(_ context.Context, questionID uuid.UUID) (*domain.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q, ok := s.questions[questionID]
	if !ok {
		return nil, domain.ErrQuestionNotFound
	}
	cp := *q
	return &cp, nil
}

func (s *Store) DeleteQuestion(_ context.Context, questionID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	q, ok := s.questions[questionID]
	if !ok {
		return domain.ErrQuestionNotFound
	}

	for id, a := range s.answers {
		if a.QuestionID != questionID {
			continue
		}
		delete(s.answers, id)
		s.dropVotes(domain.KindAnswer, id)
	}
	s.dropVotes(domain.KindQuestion, questionID)

	if topic, ok := s.topics[q.TopicID]; ok {
		topic.QuestionsCount--
	}
	delete(s.questions, questionID)
	return nil
}

// dropVotes discards all vote memberships for an entity. Callers hold s.mu.
func (s *Store) dropVotes(kind domain.VotableKind, id uuid.UUID) {
	for k := range s.votes {
		if k.kind == kind && k.id == id {
			delete(s.votes, k)
		}
	}
}

// --- Answers ---

func (s *Store) CreateAnswer(_ context.Context, questionID, authorID uuid.UUID, body string) (*domain.Answer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.questions[questionID]; !ok {
		return nil, domain.ErrQuestionNotFound
	}
	if _, ok := s.users[authorID]; !ok {
		return nil, domain.ErrUserNotFound
	}

	a := &domain.Answer{
		ID:         uuid.New(),
		QuestionID: questionID,
		AuthorID:   authorID,
		Body:       body,
		CreatedAt:  time.Now(),
	}
	s.answers[a.ID] = a
	cp := *a
	return &cp, nil
}

func (s *Store) GetAnswer(_ context.Context, answerID uuid.UUID) (*domain.Answer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.answers[answerID]
	if !ok {
		return nil, domain.ErrAnswerNotFound
	}
	cp := *a
	return &cp, nil
}

func (s *Store) AnswersByQuestion(_ context.Context, questionID uuid.UUID) ([]domain.Answer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.Answer
	for _, a := range s.answers {
		if a.QuestionID == questionID {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// --- Reputation ledger ---

func (s *Store) ApplyDelta(_ context.Context, userID uuid.UUID, amount int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.applyDeltaLocked(userID, amount)
}

func (s *Store) applyDeltaLocked(userID uuid.UUID, amount int64) error {
	u, ok := s.users[userID]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.Reputation += amount
	u.UpdatedAt = time.Now()
	return nil
}

func (s *Store) GrantBadge(_ context.Context, userID uuid.UUID, badge string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.grantBadgeLocked(userID, badge)
}

func (s *Store) grantBadgeLocked(userID uuid.UUID, badge string) error {
	if _, ok := s.users[userID]; !ok {
		return domain.ErrUserNotFound
	}
	if s.badges[userID] == nil {
		s.badges[userID] = make(map[string]struct{})
	}
	s.badges[userID][badge] = struct{}{}
	return nil
}

// --- Vote store ---

func (s *Store) ApplyVote(_ context.Context, ref domain.VotableRef, userID uuid.UUID, dir domain.Direction) (*domain.VoteOutcome, error) {
	if dir != domain.DirectionUp && dir != domain.DirectionDown {
		return nil, domain.ErrInvalidDirection
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	authorID, questionID, err := s.votableLocked(ref)
	if err != nil {
		return nil, err
	}
	if _, ok := s.users[userID]; !ok {
		return nil, domain.ErrUserNotFound
	}

	key := voteKey{kind: ref.Kind, id: ref.ID, user: userID}
	prev := s.votes[key]
	if prev == dir {
		return nil, domain.ErrAlreadyVoted
	}

	delta := domain.DeltaFor(ref.Kind, prev, dir)
	s.votes[key] = dir
	if err := s.applyDeltaLocked(authorID, delta); err != nil {
		return nil, err
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

func (s *Store) RemoveVote(_ context.Context, ref domain.VotableRef, userID uuid.UUID) (*domain.VoteOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	authorID, questionID, err := s.votableLocked(ref)
	if err != nil {
		return nil, err
	}

	key := voteKey{kind: ref.Kind, id: ref.ID, user: userID}
	prev, ok := s.votes[key]
	if !ok {
		return nil, domain.ErrNotVoted
	}

	delta := domain.DeltaFor(ref.Kind, prev, domain.DirectionNone)
	delete(s.votes, key)
	if err := s.applyDeltaLocked(authorID, delta); err != nil {
		return nil, err
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

func (s *Store) Voters(_ context.Context, ref domain.VotableRef) (up, down []uuid.UUID, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, _, err := s.votableLocked(ref); err != nil {
		return nil, nil, err
	}

	for k, dir := range s.votes {
		if k.kind != ref.Kind || k.id != ref.ID {
			continue
		}
		if dir == domain.DirectionUp {
			up = append(up, k.user)
		} else {
			down = append(down, k.user)
		}
	}
	return up, down, nil
}

// votableLocked resolves a ref to its author and owning question.
func (s *Store) votableLocked(ref domain.VotableRef) (authorID, questionID uuid.UUID, err error) {
	switch ref.Kind {
	case domain.KindQuestion:
		q, ok := s.questions[ref.ID]
		if !ok {
			return uuid.Nil, uuid.Nil, domain.ErrQuestionNotFound
		}
		return q.AuthorID, q.ID, nil
	case domain.KindAnswer:
		a, ok := s.answers[ref.ID]
		if !ok {
			return uuid.Nil, uuid.Nil, domain.ErrAnswerNotFound
		}
		return a.AuthorID, a.QuestionID, nil
	default:
		return uuid.Nil, uuid.Nil, domain.ErrQuestionNotFound
	}
}

// --- Follow store ---

func (s *Store) Follow(_ context.Context, kind domain.FollowKind, subjectID, targetID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rel, err := s.followRelationLocked(kind, subjectID, targetID)
	if err != nil {
		return err
	}

	key := followKey{subject: subjectID, target: targetID}
	if _, exists := rel[key]; exists {
		return domain.ErrAlreadyFollowing
	}
	rel[key] = struct{}{}
	return nil
}

func (s *Store) Unfollow(_ context.Context, kind domain.FollowKind, subjectID, targetID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rel, err := s.followRelationLocked(kind, subjectID, targetID)
	if err != nil {
		return err
	}

	key := followKey{subject: subjectID, target: targetID}
	if _, exists := rel[key]; !exists {
		return domain.ErrNotFollowing
	}
	delete(rel, key)
	return nil
}

func (s *Store) followRelationLocked(kind domain.FollowKind, subjectID, targetID uuid.UUID) (map[followKey]struct{}, error) {
	if _, ok := s.users[subjectID]; !ok {
		return nil, domain.ErrUserNotFound
	}
	switch kind {
	case domain.FollowUser:
		if _, ok := s.users[targetID]; !ok {
			return nil, domain.ErrUserNotFound
		}
		return s.userFollows, nil
	case domain.FollowTopic:
		if _, ok := s.topics[targetID]; !ok {
			return nil, domain.ErrTopicNotFound
		}
		return s.topicFollows, nil
	default:
		return nil, domain.ErrUserNotFound
	}
}

func (s *Store) FollowingUsers(_ context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []uuid.UUID
	for k := range s.userFollows {
		if k.subject == userID {
			out = append(out, k.target)
		}
	}
	return out, nil
}

func (s *Store) UserFollowers(_ context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []uuid.UUID
	for k := range s.userFollows {
		if k.target == userID {
			out = append(out, k.subject)
		}
	}
	return out, nil
}

func (s *Store) FollowingTopics(_ context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []uuid.UUID
	for k := range s.topicFollows {
		if k.subject == userID {
			out = append(out, k.target)
		}
	}
	return out, nil
}

func (s *Store) TopicFollowers(_ context.Context, topicID uuid.UUID) ([]uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []uuid.UUID
	for k := range s.topicFollows {
		if k.target == topicID {
			out = append(out, k.subject)
		}
	}
	return out, nil
}

// --- Feature store ---

func (s *Store) Feature(_ context.Context, questionID, answerID uuid.UUID) (*domain.FeatureOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q, ok := s.questions[questionID]
	if !ok {
		return nil, domain.ErrQuestionNotFound
	}
	a, ok := s.answers[answerID]
	if !ok {
		return nil, domain.ErrAnswerNotFound
	}
	if a.QuestionID != questionID {
		return nil, domain.ErrAnswerWrongQuestion
	}
	if a.IsFeatured {
		return nil, domain.ErrAlreadyFeatured
	}

	var previous *uuid.UUID
	for _, other := range s.answers {
		if other.QuestionID == questionID && other.IsFeatured {
			other.IsFeatured = false
			id := other.ID
			previous = &id
		}
	}

	a.IsFeatured = true
	featured := a.ID
	q.FeaturedAnswerID = &featured
	q.IsAnswered = true

	if err := s.applyDeltaLocked(a.AuthorID, domain.FeaturedAnswerCredit); err != nil {
		return nil, err
	}
	if err := s.grantBadgeLocked(a.AuthorID, domain.BadgeFeaturedAnswer); err != nil {
		return nil, err
	}

	return &domain.FeatureOutcome{
		QuestionID:       questionID,
		AnswerID:         answerID,
		AnswerAuthorID:   a.AuthorID,
		PreviousFeatured: previous,
	}, nil
}
