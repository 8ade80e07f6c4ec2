package follow

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askbird/askbird/internal/domain"
	"github.com/askbird/askbird/internal/memstore"
)

func seedUsers(t *testing.T, store *memstore.Store) (alice, bob uuid.UUID) {
	t.Helper()
	ctx := context.Background()
	a, err := store.CreateUser(ctx, "alice", false)
	require.NoError(t, err)
	b, err := store.CreateUser(ctx, "bob", false)
	require.NoError(t, err)
	return a.ID, b.ID
}

func TestFollow_User(t *testing.T) {
	store := memstore.New()
	service := NewService(store)
	ctx := context.Background()
	alice, bob := seedUsers(t, store)

	require.NoError(t, service.Follow(ctx, domain.FollowUser, alice, bob))

	following, err := service.FollowingUsers(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{bob}, following)

	followers, err := service.UserFollowers(ctx, bob)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{alice}, followers)

	// The reverse direction is untouched.
	reverse, err := service.FollowingUsers(ctx, bob)
	require.NoError(t, err)
	assert.Empty(t, reverse)
}

func TestFollow_Self(t *testing.T) {
	store := memstore.New()
	service := NewService(store)
	alice, _ := seedUsers(t, store)

	err := service.Follow(context.Background(), domain.FollowUser, alice, alice)
	assert.ErrorIs(t, err, domain.ErrSelfFollow)
}

func TestFollow_Duplicate(t *testing.T) {
	store := memstore.New()
	service := NewService(store)
	ctx := context.Background()
	alice, bob := seedUsers(t, store)

	require.NoError(t, service.Follow(ctx, domain.FollowUser, alice, bob))
	err := service.Follow(ctx, domain.FollowUser, alice, bob)
	assert.ErrorIs(t, err, domain.ErrAlreadyFollowing)
}

func TestUnfollow_RemovesBothProjections(t *testing.T) {
	store := memstore.New()
	service := NewService(store)
	ctx := context.Background()
	alice, bob := seedUsers(t, store)

	require.NoError(t, service.Follow(ctx, domain.FollowUser, alice, bob))
	require.NoError(t, service.Unfollow(ctx, domain.FollowUser, alice, bob))

	following, err := service.FollowingUsers(ctx, alice)
	require.NoError(t, err)
	assert.Empty(t, following)

	followers, err := service.UserFollowers(ctx, bob)
	require.NoError(t, err)
	assert.Empty(t, followers)
}

func TestUnfollow_Absent(t *testing.T) {
	store := memstore.New()
	service := NewService(store)
	alice, bob := seedUsers(t, store)

	err := service.Unfollow(context.Background(), domain.FollowUser, alice, bob)
	assert.ErrorIs(t, err, domain.ErrNotFollowing)
}

func TestFollow_Topic(t *testing.T) {
	store := memstore.New()
	service := NewService(store)
	ctx := context.Background()
	alice, _ := seedUsers(t, store)

	topic, err := store.CreateTopic(ctx, "databases")
	require.NoError(t, err)

	require.NoError(t, service.Follow(ctx, domain.FollowTopic, alice, topic.ID))

	topics, err := service.FollowingTopics(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{topic.ID}, topics)

	followers, err := service.TopicFollowers(ctx, topic.ID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{alice}, followers)

	// Self-follow guard applies to users only.
	require.NoError(t, service.Unfollow(ctx, domain.FollowTopic, alice, topic.ID))
}

func TestFollow_MissingTarget(t *testing.T) {
	store := memstore.New()
	service := NewService(store)
	alice, _ := seedUsers(t, store)

	err := service.Follow(context.Background(), domain.FollowUser, alice, uuid.New())
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	err = service.Follow(context.Background(), domain.FollowTopic, alice, uuid.New())
	assert.ErrorIs(t, err, domain.ErrTopicNotFound)
}
