// Package server exposes the board engine over HTTP: object CRUD, the
// live change stream, presence, and the batch action endpoint. Every
// route requires a bearer token from the identity provider.
package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/inkwelllabs/corkboard/internal/actions"
	"github.com/inkwelllabs/corkboard/internal/auth"
	"github.com/inkwelllabs/corkboard/internal/board"
	"github.com/inkwelllabs/corkboard/internal/presence"
	"github.com/inkwelllabs/corkboard/internal/store"
)

const identityContextKey = "corkboard_identity"

var (
	errMissingStore     = errors.New("store client dependency required")
	errMissingPresence  = errors.New("presence store dependency required")
	errMissingExecutor  = errors.New("action executor dependency required")
	errMissingValidator = errors.New("token validator dependency required")
)

// TokenValidator authenticates incoming requests.
type TokenValidator interface {
	ValidateRequest(r *http.Request) (auth.Identity, error)
}

type Dependencies struct {
	Store     *store.Client
	Presence  presence.Store
	Executor  *actions.Executor
	Validator TokenValidator
	Logger    *zap.Logger
}

func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.Store == nil {
		return nil, errMissingStore
	}
	if deps.Presence == nil {
		return nil, errMissingPresence
	}
	if deps.Executor == nil {
		return nil, errMissingExecutor
	}
	if deps.Validator == nil {
		return nil, errMissingValidator
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodPut, http.MethodOptions},
		AllowHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))

	handler := &httpHandler{
		store:     deps.Store,
		presence:  deps.Presence,
		executor:  deps.Executor,
		validator: deps.Validator,
		logger:    logger,
	}

	boards := router.Group("/api/boards/:boardId")
	boards.Use(handler.authorizeRequest)
	boards.GET("/objects", handler.handleListObjects)
	boards.POST("/objects", handler.handleCreateObjects)
	boards.PATCH("/objects/:objectId", handler.handleUpdateObject)
	boards.DELETE("/objects/:objectId", handler.handleDeleteObject)
	boards.GET("/stream", handler.handleObjectStream)
	boards.POST("/actions", handler.handleActions)
	boards.PUT("/presence", handler.handlePresenceJoin)
	boards.POST("/presence/cursor", handler.handlePresenceCursor)
	boards.POST("/presence/heartbeat", handler.handlePresenceHeartbeat)
	boards.DELETE("/presence", handler.handlePresenceLeave)
	boards.GET("/presence", handler.handlePresenceList)

	return router, nil
}

type httpHandler struct {
	store     *store.Client
	presence  presence.Store
	executor  *actions.Executor
	validator TokenValidator
	logger    *zap.Logger
}

func (h *httpHandler) authorizeRequest(c *gin.Context) {
	identity, err := h.validator.ValidateRequest(c.Request)
	if err != nil {
		// Expired tokens are routine churn, not an attack signal.
		if errors.Is(err, auth.ErrExpiredToken) {
			h.logger.Info("token validation failed", zap.Error(err))
		} else {
			h.logger.Warn("token validation failed", zap.Error(err))
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	c.Set(identityContextKey, identity)
	c.Next()
}

func requestIdentity(c *gin.Context) (auth.Identity, bool) {
	value, ok := c.Get(identityContextKey)
	if !ok {
		return auth.Identity{}, false
	}
	identity, ok := value.(auth.Identity)
	return identity, ok
}

func (h *httpHandler) handleListObjects(c *gin.Context) {
	boardID := c.Param("boardId")
	objects, err := h.store.List(c.Request.Context(), boardID)
	if err != nil {
		h.logger.Error("object list failed", zap.String("board_id", boardID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list_failed"})
		return
	}
	payloads := make([]objectPayload, 0, len(objects))
	for _, obj := range objects {
		payloads = append(payloads, payloadFromObject(obj))
	}
	c.JSON(http.StatusOK, gin.H{"objects": payloads})
}

type createObjectsRequest struct {
	Objects []objectPayload `json:"objects"`
}

func (h *httpHandler) handleCreateObjects(c *gin.Context) {
	identity, ok := requestIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	boardID := c.Param("boardId")

	var request createObjectsRequest
	if err := c.ShouldBindJSON(&request); err != nil || len(request.Objects) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	objects := make([]board.Object, 0, len(request.Objects))
	for _, payload := range request.Objects {
		if payload.Type == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing_type"})
			return
		}
		objects = append(objects, payload.toObject())
	}

	ids, err := h.store.CreateMany(c.Request.Context(), boardID, objects, identity.UserID)
	if err != nil {
		h.logger.Error("object create failed", zap.String("board_id", boardID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create_failed"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ids": ids})
}

func (h *httpHandler) handleUpdateObject(c *gin.Context) {
	identity, ok := requestIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	boardID := c.Param("boardId")
	objectID := c.Param("objectId")

	var fields map[string]any
	if err := c.ShouldBindJSON(&fields); err != nil || len(fields) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	err := h.store.Update(c.Request.Context(), boardID, objectID, fields, identity.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "object_not_found"})
			return
		}
		h.logger.Error("object update failed", zap.String("board_id", boardID), zap.String("object_id", objectID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update_failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": objectID})
}

func (h *httpHandler) handleDeleteObject(c *gin.Context) {
	boardID := c.Param("boardId")
	objectID := c.Param("objectId")

	if err := h.store.Delete(c.Request.Context(), boardID, objectID); err != nil {
		h.logger.Error("object delete failed", zap.String("board_id", boardID), zap.String("object_id", objectID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete_failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": objectID})
}

type actionsRequest struct {
	Actions []actions.Action `json:"actions"`
	Message string           `json:"message"`
}

func (h *httpHandler) handleActions(c *gin.Context) {
	identity, ok := requestIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	boardID := c.Param("boardId")

	var request actionsRequest
	if err := c.ShouldBindJSON(&request); err != nil || len(request.Actions) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	result := h.executor.Execute(c.Request.Context(), boardID, request.Actions, identity.UserID)
	c.JSON(http.StatusOK, gin.H{
		"message":      request.Message,
		"actionCount":  len(request.Actions),
		"successCount": result.SuccessCount,
		"errorCount":   result.ErrorCount,
		"createdIds":   result.CreatedIDs,
	})
}
