package server

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/askbird/askbird/internal/domain"
	appErrors "github.com/askbird/askbird/internal/errors"
)

const userIDHeader = "X-User-ID"

// actorID extracts the acting user from the X-User-ID header. Identity is
// asserted, not authenticated; upstream infrastructure is expected to set
// the header.
func actorID(c echo.Context) (uuid.UUID, error) {
	raw := c.Request().Header.Get(userIDHeader)
	if raw == "" {
		return uuid.Nil, appErrors.UnauthorizedError("missing X-User-ID header")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, appErrors.ValidationError("invalid X-User-ID header")
	}
	return id, nil
}

func pathUUID(c echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, appErrors.ValidationError("invalid " + name)
	}
	return id, nil
}

// mapDomainError translates domain sentinels into structured errors carrying
// the right HTTP status. Anything unrecognized stays as-is and surfaces as an
// internal error.
func mapDomainError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, domain.ErrTopicNotFound),
		errors.Is(err, domain.ErrQuestionNotFound),
		errors.Is(err, domain.ErrAnswerNotFound):
		return appErrors.NotFoundError(err.Error())
	case errors.Is(err, domain.ErrAlreadyVoted),
		errors.Is(err, domain.ErrNotVoted),
		errors.Is(err, domain.ErrUsernameTaken),
		errors.Is(err, domain.ErrTopicNameTaken),
		errors.Is(err, domain.ErrAlreadyFollowing),
		errors.Is(err, domain.ErrNotFollowing),
		errors.Is(err, domain.ErrAlreadyFeatured):
		return appErrors.ConflictError(err.Error())
	case errors.Is(err, domain.ErrInvalidDirection),
		errors.Is(err, domain.ErrSelfFollow),
		errors.Is(err, domain.ErrAnswerWrongQuestion):
		return appErrors.ValidationError(err.Error())
	case errors.Is(err, domain.ErrNotQuestionAuthor):
		return appErrors.UnauthorizedError(err.Error())
	default:
		return err
	}
}

// --- Users ---

type createUserRequest struct {
	Username string `json:"username"`
	IsAdmin  bool   `json:"isAdmin"`
}

func (s *Server) handleCreateUser(c echo.Context) error {
	var req createUserRequest
	if err := c.Bind(&req); err != nil {
		return appErrors.ValidationError("invalid request body")
	}

	user, err := s.app.CreateUser(c.Request().Context(), req.Username, req.IsAdmin)
	if err != nil {
		return mapDomainError(err)
	}
	return c.JSON(http.StatusCreated, user)
}

func (s *Server) handleGetUser(c echo.Context) error {
	userID, err := pathUUID(c, "id")
	if err != nil {
		return err
	}

	user, err := s.app.GetUser(c.Request().Context(), userID)
	if err != nil {
		return mapDomainError(err)
	}
	return c.JSON(http.StatusOK, user)
}

func (s *Server) handleUserBadges(c echo.Context) error {
	userID, err := pathUUID(c, "id")
	if err != nil {
		return err
	}

	badges, err := s.app.UserBadges(c.Request().Context(), userID)
	if err != nil {
		return mapDomainError(err)
	}
	return c.JSON(http.StatusOK, map[string][]string{"badges": badges})
}

// --- Topics ---

type createTopicRequest struct {
	Name string `json:"name"`
}

func (s *Server) handleCreateTopic(c echo.Context) error {
	var req createTopicRequest
	if err := c.Bind(&req); err != nil {
		return appErrors.ValidationError("invalid request body")
	}

	topic, err := s.app.CreateTopic(c.Request().Context(), req.Name)
	if err != nil {
		return mapDomainError(err)
	}
	return c.JSON(http.StatusCreated, topic)
}

func (s *Server) handleGetTopic(c echo.Context) error {
	topicID, err := pathUUID(c, "id")
	if err != nil {
		return err
	}

	topic, err := s.app.GetTopic(c.Request().Context(), topicID)
	if err != nil {
		return mapDomainError(err)
	}
	return c.JSON(http.StatusOK, topic)
}

// --- Questions ---

type createQuestionRequest struct {
	TopicID uuid.UUID `json:"topicId"`
	Title   string    `json:"title"`
	Body    string    `json:"body"`
}

func (s *Server) handleCreateQuestion(c echo.Context) error {
	actor, err := actorID(c)
	if err != nil {
		return err
	}

	var req createQuestionRequest
	if err := c.Bind(&req); err != nil {
		return appErrors.ValidationError("invalid request body")
	}

	question, err := s.app.CreateQuestion(c.Request().Context(), req.TopicID, actor, req.Title, req.Body)
	if err != nil {
		return mapDomainError(err)
	}
	return c.JSON(http.StatusCreated, question)
}

func (s *Server) handleGetQuestion(c echo.Context) error {
	questionID, err := pathUUID(c, "id")
	if err != nil {
		return err
	}

	question, err := s.app.GetQuestion(c.Request().Context(), questionID)
	if err != nil {
		return mapDomainError(err)
	}
	return c.JSON(http.StatusOK, question)
}

func (s *Server) handleDeleteQuestion(c echo.Context) error {
	actor, err := actorID(c)
	if err != nil {
		return err
	}
	questionID, err := pathUUID(c, "id")
	if err != nil {
		return err
	}

	if err := s.app.DeleteQuestion(c.Request().Context(), questionID, actor); err != nil {
		return mapDomainError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// --- Answers ---

type createAnswerRequest struct {
	Body string `json:"body"`
}

func (s *Server) handleCreateAnswer(c echo.Context) error {
	actor, err := actorID(c)
	if err != nil {
		return err
	}
	questionID, err := pathUUID(c, "id")
	if err != nil {
		return err
	}

	var req createAnswerRequest
	if err := c.Bind(&req); err != nil {
		return appErrors.ValidationError("invalid request body")
	}

	answer, err := s.app.CreateAnswer(c.Request().Context(), questionID, actor, req.Body, uuid.Nil)
	if err != nil {
		return mapDomainError(err)
	}
	return c.JSON(http.StatusCreated, answer)
}

func (s *Server) handleListAnswers(c echo.Context) error {
	questionID, err := pathUUID(c, "id")
	if err != nil {
		return err
	}

	answers, err := s.app.ListAnswers(c.Request().Context(), questionID)
	if err != nil {
		return mapDomainError(err)
	}
	return c.JSON(http.StatusOK, map[string][]domain.Answer{"answers": answers})
}

func (s *Server) handleGetAnswer(c echo.Context) error {
	answerID, err := pathUUID(c, "id")
	if err != nil {
		return err
	}

	answer, err := s.app.GetAnswer(c.Request().Context(), answerID)
	if err != nil {
		return mapDomainError(err)
	}
	return c.JSON(http.StatusOK, answer)
}

// --- Votes ---

type castVoteRequest struct {
	Direction string `json:"direction"`
}

type voteResponse struct {
	Direction string `json:"direction"`
	Delta     int64  `json:"delta"`
}

type votersResponse struct {
	Up   []uuid.UUID `json:"up"`
	Down []uuid.UUID `json:"down"`
}

func votableRef(c echo.Context, kind domain.VotableKind) (domain.VotableRef, error) {
	id, err := pathUUID(c, "id")
	if err != nil {
		return domain.VotableRef{}, err
	}
	return domain.VotableRef{Kind: kind, ID: id}, nil
}

func (s *Server) handleCastVote(kind domain.VotableKind) echo.HandlerFunc {
	return func(c echo.Context) error {
		actor, err := actorID(c)
		if err != nil {
			return err
		}
		ref, err := votableRef(c, kind)
		if err != nil {
			return err
		}

		var req castVoteRequest
		if err := c.Bind(&req); err != nil {
			return appErrors.ValidationError("invalid request body")
		}

		outcome, err := s.votes.Cast(c.Request().Context(), ref, actor, domain.Direction(req.Direction))
		if err != nil {
			return mapDomainError(err)
		}
		return c.JSON(http.StatusOK, voteResponse{Direction: string(outcome.Direction), Delta: outcome.Delta})
	}
}

func (s *Server) handleRemoveVote(kind domain.VotableKind) echo.HandlerFunc {
	return func(c echo.Context) error {
		actor, err := actorID(c)
		if err != nil {
			return err
		}
		ref, err := votableRef(c, kind)
		if err != nil {
			return err
		}

		outcome, err := s.votes.Remove(c.Request().Context(), ref, actor)
		if err != nil {
			return mapDomainError(err)
		}
		return c.JSON(http.StatusOK, voteResponse{Direction: string(outcome.Direction), Delta: outcome.Delta})
	}
}

func (s *Server) handleListVoters(kind domain.VotableKind) echo.HandlerFunc {
	return func(c echo.Context) error {
		ref, err := votableRef(c, kind)
		if err != nil {
			return err
		}

		up, down, err := s.votes.Voters(c.Request().Context(), ref)
		if err != nil {
			return mapDomainError(err)
		}
		if up == nil {
			up = []uuid.UUID{}
		}
		if down == nil {
			down = []uuid.UUID{}
		}
		return c.JSON(http.StatusOK, votersResponse{Up: up, Down: down})
	}
}

// --- Feature ---

type featureRequest struct {
	AnswerID uuid.UUID `json:"answerId"`
}

func (s *Server) handleFeatureAnswer(c echo.Context) error {
	actor, err := actorID(c)
	if err != nil {
		return err
	}
	questionID, err := pathUUID(c, "id")
	if err != nil {
		return err
	}

	var req featureRequest
	if err := c.Bind(&req); err != nil {
		return appErrors.ValidationError("invalid request body")
	}

	outcome, err := s.features.Feature(c.Request().Context(), questionID, req.AnswerID, actor)
	if err != nil {
		return mapDomainError(err)
	}
	return c.JSON(http.StatusOK, outcome)
}

// --- Follows ---

func (s *Server) handleFollow(kind domain.FollowKind) echo.HandlerFunc {
	return func(c echo.Context) error {
		actor, err := actorID(c)
		if err != nil {
			return err
		}
		targetID, err := pathUUID(c, "id")
		if err != nil {
			return err
		}

		if err := s.follows.Follow(c.Request().Context(), kind, actor, targetID); err != nil {
			return mapDomainError(err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}

func (s *Server) handleUnfollow(kind domain.FollowKind) echo.HandlerFunc {
	return func(c echo.Context) error {
		actor, err := actorID(c)
		if err != nil {
			return err
		}
		targetID, err := pathUUID(c, "id")
		if err != nil {
			return err
		}

		if err := s.follows.Unfollow(c.Request().Context(), kind, actor, targetID); err != nil {
			return mapDomainError(err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}

func idListResponse(c echo.Context, key string, ids []uuid.UUID, err error) error {
	if err != nil {
		return mapDomainError(err)
	}
	if ids == nil {
		ids = []uuid.UUID{}
	}
	return c.JSON(http.StatusOK, map[string][]uuid.UUID{key: ids})
}

func (s *Server) handleFollowingUsers(c echo.Context) error {
	userID, err := pathUUID(c, "id")
	if err != nil {
		return err
	}
	ids, err := s.follows.FollowingUsers(c.Request().Context(), userID)
	return idListResponse(c, "following", ids, err)
}

func (s *Server) handleUserFollowers(c echo.Context) error {
	userID, err := pathUUID(c, "id")
	if err != nil {
		return err
	}
	ids, err := s.follows.UserFollowers(c.Request().Context(), userID)
	return idListResponse(c, "followers", ids, err)
}

func (s *Server) handleFollowingTopics(c echo.Context) error {
	userID, err := pathUUID(c, "id")
	if err != nil {
		return err
	}
	ids, err := s.follows.FollowingTopics(c.Request().Context(), userID)
	return idListResponse(c, "topics", ids, err)
}

func (s *Server) handleTopicFollowers(c echo.Context) error {
	topicID, err := pathUUID(c, "id")
	if err != nil {
		return err
	}
	ids, err := s.follows.TopicFollowers(c.Request().Context(), topicID)
	return idListResponse(c, "followers", ids, err)
}
