package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/routinekit/routinekit/internal/palette"
)

// PaletteHandler serves UI color palettes.
type PaletteHandler struct{}

// NewPaletteHandler creates a new PaletteHandler instance.
func NewPaletteHandler() *PaletteHandler {
	return &PaletteHandler{}
}

// List returns the palette names, or a palette generated from ?base=#rrggbb.
// GET /api/palettes
func (h *PaletteHandler) List(c *gin.Context) {
	if base := c.Query("base"); base != "" {
		p, err := palette.Generate(base)
		if err != nil {
			respondError(c, http.StatusBadRequest, err.Error())
			return
		}
		respondOK(c, http.StatusOK, p)
		return
	}

	respondOK(c, http.StatusOK, gin.H{"names": palette.Names()})
}

// Get returns a named palette.
// GET /api/palettes/:name
func (h *PaletteHandler) Get(c *gin.Context) {
	p, err := palette.Named(c.Param("name"))
	if errors.Is(err, palette.ErrUnknownPalette) {
		respondError(c, http.StatusNotFound, "palette not found")
		return
	}
	if err != nil {
		internalError(c, "failed to generate palette", err)
		return
	}
	respondOK(c, http.StatusOK, p)
}
