package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jaennil/guide_helper/backend/globe/internal/imagery"
	"github.com/jaennil/guide_helper/backend/globe/internal/infrastructure/http/v1/dto"
	"github.com/jaennil/guide_helper/backend/globe/internal/usecase"
)

func (h *Handler) Stats(c *gin.Context) {
	h.RespondWithJSON(c, http.StatusOK, "frame statistics", h.globe.Stats())
}

func (h *Handler) Frame(c *gin.Context) {
	h.RespondWithJSON(c, http.StatusOK, "last frame", h.globe.Frame())
}

func (h *Handler) Camera(c *gin.Context) {
	h.RespondWithJSON(c, http.StatusOK, "camera", h.globe.Frame().Camera)
}

func (h *Handler) SetCamera(c *gin.Context) {
	var req dto.CameraRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.RespondWithJSON(c, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.RespondWithJSON(c, http.StatusUnprocessableEntity, err.Error(), nil)
		return
	}

	view := usecase.CameraView{
		Longitude: *req.Longitude,
		Latitude:  *req.Latitude,
		Height:    *req.Height,
		Heading:   req.Heading,
		Pitch:     req.Pitch,
	}
	if err := h.globe.SetCamera(c.Request.Context(), view); err != nil {
		requestLogger(c).Error("failed to set camera", "error", err)
		h.RespondWithJSON(c, http.StatusServiceUnavailable, "frame loop is not accepting commands", nil)
		return
	}
	h.RespondWithJSON(c, http.StatusOK, "camera updated", view)
}

func (h *Handler) Layers(c *gin.Context) {
	h.RespondWithJSON(c, http.StatusOK, "imagery layers", dto.LayersResponse{Layers: h.globe.Layers()})
}

func (h *Handler) PatchLayer(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.RespondWithJSON(c, http.StatusBadRequest, "id should be a uuid", nil)
		return
	}

	var req dto.LayerPatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.RespondWithJSON(c, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.RespondWithJSON(c, http.StatusUnprocessableEntity, err.Error(), nil)
		return
	}

	view, err := h.globe.UpdateLayer(c.Request.Context(), id, usecase.LayerUpdate{Show: req.Show, Alpha: req.Alpha})
	switch {
	case errors.Is(err, imagery.ErrLayerNotFound):
		h.RespondWithJSON(c, http.StatusNotFound, "layer not found", nil)
		return
	case errors.Is(err, usecase.ErrLoopStopped):
		h.RespondWithJSON(c, http.StatusServiceUnavailable, "frame loop is not accepting commands", nil)
		return
	case err != nil:
		requestLogger(c).Error("failed to update layer", "layer", id, "error", err)
		h.RespondWithInternalServerError(c)
		return
	}
	h.RespondWithJSON(c, http.StatusOK, "layer updated", view)
}
