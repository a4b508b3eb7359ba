package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jaennil/guide_helper/backend/globe/internal/tiling"
	"github.com/jaennil/guide_helper/backend/globe/internal/usecase"
)

// Tile proxies one raw tile of a registered source through the tile cache.
func (h *Handler) Tile(c *gin.Context) {
	l := requestLogger(c)
	source := c.Param("source")

	coords := make([]int, 0, 3)
	for _, name := range []string{"z", "x", "y"} {
		v, err := strconv.Atoi(c.Param(name))
		if err != nil || v < 0 {
			h.RespondWithJSON(c, http.StatusBadRequest, name+" should be a non-negative integer", nil)
			return
		}
		coords = append(coords, v)
	}
	z, x, y := coords[0], coords[1], coords[2]
	if z > 30 || x >= 1<<z || y >= 1<<z {
		h.RespondWithJSON(c, http.StatusBadRequest, "tile coordinates out of range", nil)
		return
	}

	data, contentType, err := h.tiles.FetchTile(c.Request.Context(), source, z, x, y)
	switch {
	case errors.Is(err, usecase.ErrUnknownSource):
		h.RespondWithJSON(c, http.StatusNotFound, "unknown tile source", gin.H{"sources": h.tiles.Sources()})
		return
	case errors.Is(err, tiling.ErrTileUnavailable):
		h.RespondWithJSON(c, http.StatusNotFound, "tile unavailable", nil)
		return
	case err != nil:
		l.Error("failed to fetch tile", "source", source, "level", z, "x", x, "y", y, "error", err)
		h.RespondWithJSON(c, http.StatusBadGateway, "failed to fetch tile from upstream", nil)
		return
	}

	c.Header("Cache-Control", "public, max-age=86400")
	c.Data(http.StatusOK, contentType, data)
}
