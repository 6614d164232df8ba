package httpserver

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"playa-storefront/internal/domain"
	"playa-storefront/internal/service/gallery"
)

const uploadField = "photo"

func (h *handlers) agencyStats(c *gin.Context) {
	stats, err := h.deps.Agencies.Stats(c.Request.Context(), agencyFrom(c).ID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *handlers) listEvents(c *gin.Context) {
	events, err := h.deps.Gallery.ListEvents(c.Request.Context(), agencyFrom(c).ID)
	if err != nil {
		writeError(c, err)
		return
	}
	if events == nil {
		events = []domain.Event{}
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}

func (h *handlers) createEvent(c *gin.Context) {
	var req gallery.NewEvent
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid event payload")
		return
	}
	ev, err := h.deps.Gallery.CreateEvent(c.Request.Context(), agencyFrom(c).ID, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, ev)
}

func (h *handlers) uploadPhoto(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.deps.MaxUploadSize)
	fh, err := c.FormFile(uploadField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "upload too large"})
			return
		}
		badRequest(c, "missing "+uploadField+" file")
		return
	}
	f, err := fh.Open()
	if err != nil {
		writeError(c, err)
		return
	}
	defer f.Close()

	p, err := h.deps.Gallery.UploadPhoto(c.Request.Context(), agencyFrom(c).ID, c.Param("eventId"), gallery.Upload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Body:        f,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

type usageRequest struct {
	Count int64 `json:"count"`
}

// consumeUsage meters AI generations. An empty body counts one.
func (h *handlers) consumeUsage(c *gin.Context) {
	req := usageRequest{Count: 1}
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid usage payload")
			return
		}
	}
	if req.Count <= 0 {
		badRequest(c, "count must be positive")
		return
	}
	a, err := h.deps.Agencies.ConsumeUsage(c.Request.Context(), agencyFrom(c).ID, req.Count)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"usageCount": a.UsageCount, "usageLimit": a.UsageLimit})
}

func (h *handlers) runSweep(c *gin.Context) {
	report, err := h.deps.Sweeper.RunOnce(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}
