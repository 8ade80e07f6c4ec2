package domain

import "errors"

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrTopicNotFound    = errors.New("topic not found")
	ErrQuestionNotFound = errors.New("question not found")
	ErrAnswerNotFound   = errors.New("answer not found")

	ErrAlreadyVoted     = errors.New("already voted this direction")
	ErrNotVoted         = errors.New("no vote to remove")
	ErrInvalidDirection = errors.New("invalid vote direction")

	ErrUsernameTaken  = errors.New("username already taken")
	ErrTopicNameTaken = errors.New("topic name already taken")

	ErrAlreadyFollowing = errors.New("already following")
	ErrNotFollowing     = errors.New("not following")
	ErrSelfFollow       = errors.New("cannot follow yourself")

	ErrAlreadyFeatured     = errors.New("answer is already featured")
	ErrNotQuestionAuthor   = errors.New("only the question author may feature an answer")
	ErrAnswerWrongQuestion = errors.New("answer does not belong to question")
)
