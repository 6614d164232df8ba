package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *handlers) eventPhotos(c *gin.Context) {
	previews, err := h.deps.Gallery.Previews(c.Request.Context(), c.Param("eventId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"photos": previews})
}

func (h *handlers) downloads(c *gin.Context) {
	bundle, err := h.deps.Downloads.Links(c.Request.Context(), c.Param("purchaseId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, bundle)
}
