package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/jaennil/guide_helper/backend/globe/internal/quadtree"
	"github.com/jaennil/guide_helper/backend/globe/internal/usecase"
	"github.com/jaennil/guide_helper/backend/globe/pkg/logger"
)

const (
	internalServerErrorText = "the server encountered an error and could not process your request"
)

type response struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// Globe is the frame loop as seen by HTTP handlers.
type Globe interface {
	Frame() usecase.Snapshot
	Stats() quadtree.Stats
	Layers() []usecase.LayerView
	SetCamera(ctx context.Context, view usecase.CameraView) error
	UpdateLayer(ctx context.Context, id uuid.UUID, u usecase.LayerUpdate) (usecase.LayerView, error)
	Subscribe() (<-chan usecase.Snapshot, func())
}

// Tiles serves raw upstream tiles of registered sources.
type Tiles interface {
	FetchTile(ctx context.Context, source string, z, x, y int) ([]byte, string, error)
	Sources() []string
}

type Handler struct {
	validate *validator.Validate
	globe    Globe
	tiles    Tiles
}

func NewHandler(v *validator.Validate, globe Globe, tiles Tiles) *Handler {
	return &Handler{
		validate: v,
		globe:    globe,
		tiles:    tiles,
	}
}

func (h *Handler) RespondWithInternalServerError(c *gin.Context) {
	h.RespondWithJSON(c, http.StatusInternalServerError, internalServerErrorText, nil)
}

func (h *Handler) RespondWithJSON(c *gin.Context, code int, message string, data any) {
	success := code < 400

	r := response{
		Success: success,
		Message: message,
		Data:    data,
	}

	c.JSON(code, r)
}

func requestLogger(c *gin.Context) logger.Logger {
	if v, ok := c.Get("logger"); ok {
		if l, ok := v.(logger.Logger); ok {
			return l
		}
	}
	return logger.FromContext(c.Request.Context())
}
