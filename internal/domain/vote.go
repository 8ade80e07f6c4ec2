package domain

import (
	"context"

	"github.com/google/uuid"
)

// VotableKind discriminates the two entity kinds that carry vote sets.
type VotableKind string

const (
	KindQuestion VotableKind = "question"
	KindAnswer   VotableKind = "answer"
)

// Direction is a vote direction. DirectionNone marks the absence of a vote
// and is never a valid input to VoteStore.ApplyVote.
type Direction string

const (
	DirectionNone Direction = ""
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

// EventType renders the direction the way the real-time channel spells it.
func (d Direction) EventType() string {
	switch d {
	case DirectionUp:
		return "upvote"
	case DirectionDown:
		return "downvote"
	default:
		return "unvote"
	}
}

// VotableRef identifies a question or answer carrying vote sets.
type VotableRef struct {
	Kind VotableKind
	ID   uuid.UUID
}

func QuestionRef(id uuid.UUID) VotableRef { return VotableRef{Kind: KindQuestion, ID: id} }
func AnswerRef(id uuid.UUID) VotableRef   { return VotableRef{Kind: KindAnswer, ID: id} }

// voteDeltas holds the reputation points applied to a votable's author for
// each membership transition. Reversal values are the flat combined amounts,
// applied once - not two independent deltas.
type voteDeltas struct {
	up, down    int64
	reverseUp   int64 // down -> up
	reverseDown int64 // up -> down
}

var deltasByKind = map[VotableKind]voteDeltas{
	KindQuestion: {up: 10, down: -2, reverseUp: 12, reverseDown: -12},
	KindAnswer:   {up: 15, down: -5, reverseUp: 20, reverseDown: -20},
}

// DeltaFor returns the reputation delta applied to the entity's author when a
// voter moves from prev to next on an entity of the given kind. Removing a
// vote (next == DirectionNone) reverses exactly the delta that cast it.
func DeltaFor(kind VotableKind, prev, next Direction) int64 {
	d := deltasByKind[kind]
	switch {
	case prev == DirectionNone && next == DirectionUp:
		return d.up
	case prev == DirectionNone && next == DirectionDown:
		return d.down
	case prev == DirectionDown && next == DirectionUp:
		return d.reverseUp
	case prev == DirectionUp && next == DirectionDown:
		return d.reverseDown
	case prev == DirectionUp && next == DirectionNone:
		return -d.up
	case prev == DirectionDown && next == DirectionNone:
		return -d.down
	default:
		return 0
	}
}

// VoteOutcome reports a committed vote mutation.
type VoteOutcome struct {
	Ref        VotableRef
	QuestionID uuid.UUID // the room the change belongs to; equals Ref.ID for questions
	AuthorID   uuid.UUID
	UserID     uuid.UUID
	Previous   Direction
	Direction  Direction // DirectionNone after a removal
	Delta      int64
}

// VoteStore owns the atomic unit of (vote-set mutation, author reputation
// delta). Implementations must serialize concurrent calls against the same
// votable so the membership check and the mutation never interleave.
type VoteStore interface {
	// ApplyVote casts or switches a vote. Re-requesting the held direction
	// fails with ErrAlreadyVoted and changes nothing.
	ApplyVote(ctx context.Context, ref VotableRef, userID uuid.UUID, dir Direction) (*VoteOutcome, error)
	// RemoveVote withdraws an existing vote, reversing its delta. Absent
	// membership fails with ErrNotVoted.
	RemoveVote(ctx context.Context, ref VotableRef, userID uuid.UUID) (*VoteOutcome, error)
	// Voters returns the current upvoter and downvoter sets.
	Voters(ctx context.Context, ref VotableRef) (up, down []uuid.UUID, err error)
}
