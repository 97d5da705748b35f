package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cnotv/recipes/internal/model"
	"github.com/cnotv/recipes/internal/service"
	"github.com/cnotv/recipes/pkg/response"
)

type SessionHandler struct {
	sessions service.SessionService
	logger   *zap.Logger
}

func NewSessionHandler(sessions service.SessionService, logger *zap.Logger) *SessionHandler {
	return &SessionHandler{sessions: sessions, logger: logger}
}

type CreateSessionRequest struct {
	Name    string         `json:"name" binding:"required"`
	Recipes []model.Recipe `json:"recipes" binding:"required"`
	UserID  string         `json:"userId" binding:"required"`
}

type JoinSessionRequest struct {
	Code   string `json:"code" binding:"required"`
	UserID string `json:"userId" binding:"required"`
}

type CastVoteRequest struct {
	SessionCode string `json:"sessionCode" binding:"required"`
	RecipeURL   string `json:"recipeUrl" binding:"required"`
	UserID      string `json:"userId" binding:"required"`
}

// CreateSession handles POST /api/create-session.
func (h *SessionHandler) CreateSession(c *gin.Context) {
	var req CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid session data")
		return
	}

	session, err := h.sessions.CreateSession(c.Request.Context(), req.Name, req.Recipes, req.UserID)
	if err != nil {
		if errors.Is(err, service.ErrInvalidInput) {
			response.BadRequest(c, "Invalid session data")
			return
		}
		h.logger.Error("create session failed", zap.Error(err))
		response.InternalError(c, "Internal server error")
		return
	}

	response.OK(c, gin.H{"session": session})
}

// JoinSession handles POST /api/join-session.
func (h *SessionHandler) JoinSession(c *gin.Context) {
	var req JoinSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Session code and user ID required")
		return
	}

	session, err := h.sessions.JoinSession(c.Request.Context(), req.Code, req.UserID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidInput):
			response.BadRequest(c, "Session code and user ID required")
		case errors.Is(err, service.ErrSessionNotFound):
			response.NotFound(c, "Session not found or expired")
		default:
			h.logger.Error("join session failed",
				zap.String("code", req.Code), zap.Error(err))
			response.InternalError(c, "Internal server error")
		}
		return
	}

	response.OK(c, gin.H{"session": session})
}

// CastVote handles POST /api/vote.
func (h *SessionHandler) CastVote(c *gin.Context) {
	var req CastVoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Session code, recipe URL, and user ID required")
		return
	}

	session, userVote, err := h.sessions.CastVote(c.Request.Context(), req.SessionCode, req.RecipeURL, req.UserID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidInput):
			response.BadRequest(c, "Session code, recipe URL, and user ID required")
		case errors.Is(err, service.ErrSessionNotFound):
			response.NotFound(c, "Session not found or expired")
		case errors.Is(err, service.ErrRecipeNotFound):
			response.NotFound(c, "Recipe not found in session")
		case errors.Is(err, service.ErrNotParticipant):
			response.Forbidden(c, "User not in session")
		default:
			h.logger.Error("cast vote failed",
				zap.String("code", req.SessionCode), zap.Error(err))
			response.InternalError(c, "Internal server error")
		}
		return
	}

	response.OK(c, gin.H{"session": session, "userVote": userVote})
}

// GetSession handles GET /api/session/:code, used by clients to refresh
// after a vote hint.
func (h *SessionHandler) GetSession(c *gin.Context) {
	session, err := h.sessions.GetSession(c.Request.Context(), c.Param("code"))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidInput):
			response.BadRequest(c, "Session code required")
		case errors.Is(err, service.ErrSessionNotFound):
			response.NotFound(c, "Session not found or expired")
		default:
			h.logger.Error("get session failed",
				zap.String("code", c.Param("code")), zap.Error(err))
			response.InternalError(c, "Internal server error")
		}
		return
	}

	response.OK(c, gin.H{"session": session, "users": session.Users})
}
