package server

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/askbird/askbird/internal/domain"
)

func (s *Server) registerRoutes() {
	// Observability endpoints
	s.echo.GET("/health/live", s.handleLiveness)
	s.echo.GET("/health/ready", s.handleReadiness)
	s.echo.GET("/version", s.handleVersion)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := s.echo.Group("/api")

	// Users
	api.POST("/users", s.handleCreateUser)
	api.GET("/users/:id", s.handleGetUser)
	api.GET("/users/:id/badges", s.handleUserBadges)
	api.POST("/users/:id/follow", s.handleFollow(domain.FollowUser))
	api.DELETE("/users/:id/follow", s.handleUnfollow(domain.FollowUser))
	api.GET("/users/:id/following", s.handleFollowingUsers)
	api.GET("/users/:id/followers", s.handleUserFollowers)
	api.GET("/users/:id/topics", s.handleFollowingTopics)

	// Topics
	api.POST("/topics", s.handleCreateTopic)
	api.GET("/topics/:id", s.handleGetTopic)
	api.POST("/topics/:id/follow", s.handleFollow(domain.FollowTopic))
	api.DELETE("/topics/:id/follow", s.handleUnfollow(domain.FollowTopic))
	api.GET("/topics/:id/followers", s.handleTopicFollowers)

	// Questions
	api.POST("/questions", s.handleCreateQuestion)
	api.GET("/questions/:id", s.handleGetQuestion)
	api.DELETE("/questions/:id", s.handleDeleteQuestion)
	api.POST("/questions/:id/answers", s.handleCreateAnswer)
	api.GET("/questions/:id/answers", s.handleListAnswers)
	api.PUT("/questions/:id/vote", s.handleCastVote(domain.KindQuestion), s.rateLimitVotes)
	api.DELETE("/questions/:id/vote", s.handleRemoveVote(domain.KindQuestion), s.rateLimitVotes)
	api.GET("/questions/:id/votes", s.handleListVoters(domain.KindQuestion))
	api.POST("/questions/:id/feature", s.handleFeatureAnswer)

	// Answers
	api.GET("/answers/:id", s.handleGetAnswer)
	api.PUT("/answers/:id/vote", s.handleCastVote(domain.KindAnswer), s.rateLimitVotes)
	api.DELETE("/answers/:id/vote", s.handleRemoveVote(domain.KindAnswer), s.rateLimitVotes)
	api.GET("/answers/:id/votes", s.handleListVoters(domain.KindAnswer))

	// Real-time notification channel
	s.echo.GET("/ws", s.handleWebSocket)
}
