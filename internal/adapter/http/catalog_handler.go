package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

type CatalogHandler struct {
	sessions Sessions
	catalog  Catalog
}

func NewCatalogHandler(sessions Sessions, catalog Catalog) *CatalogHandler {
	return &CatalogHandler{sessions: sessions, catalog: catalog}
}

func (h *CatalogHandler) Canteens(c *gin.Context) {
	ctx := c.Request.Context()
	sc, err := h.sessions.Current(ctx)
	if err != nil {
		writeError(c, err)
		return
	}
	list, err := h.catalog.Canteens(ctx, sc)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"canteens": list})
}

func (h *CatalogHandler) Categories(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	sc, err := h.sessions.Current(ctx)
	if err != nil {
		writeError(c, err)
		return
	}
	list, err := h.catalog.Categories(ctx, sc, id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": list})
}

func (h *CatalogHandler) Foods(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	sc, err := h.sessions.Current(ctx)
	if err != nil {
		writeError(c, err)
		return
	}
	list, err := h.catalog.Foods(ctx, sc, id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"foods": list})
}

func (h *CatalogHandler) Featured(c *gin.Context) {
	ctx := c.Request.Context()
	sc, err := h.sessions.Current(ctx)
	if err != nil {
		writeError(c, err)
		return
	}
	list, err := h.catalog.FeaturedFoods(ctx, sc)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"foods": list})
}

// pathID parses :id and answers 400 itself when it is not a positive integer.
func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}
