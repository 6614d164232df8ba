package httpserver

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"playa-storefront/internal/domain"
	"playa-storefront/internal/metrics"
	agencysvc "playa-storefront/internal/service/agency"
)

const (
	sessionHeader   = "X-Cart-Session"
	agencyIDHeader  = "X-Agency-ID"
	agencyKeyHeader = "X-Agency-Key"
)

type ctxKey string

const (
	sessionCtxKey ctxKey = "cartSession"
	agencyCtxKey  ctxKey = "agency"
)

func requestLogger(logger zerolog.Logger) gin.HandlerFunc {
	log := logger.With().Str("component", "http").Logger()
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		elapsed := time.Since(start)
		metrics.RecordAPIRequest(c.Request.Method, route, strconv.Itoa(status), elapsed)

		ev := log.Info()
		switch {
		case status >= 500:
			ev = log.Error()
		case status >= 400:
			ev = log.Warn()
		}
		if len(c.Errors) > 0 {
			ev = ev.Str("errors", c.Errors.String())
		}
		ev.Str("method", c.Request.Method).
			Str("route", route).
			Int("status", status).
			Dur("elapsed", elapsed).
			Msg("request")
	}
}

func recoverer(logger zerolog.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logger.Error().Interface("panic", recovered).Str("path", c.Request.URL.Path).Msg("handler panicked")
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	})
}

// sessionMiddleware requires a well-formed cart session id.
func sessionMiddleware(sessions SessionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(sessionHeader)
		if id == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "missing " + sessionHeader + " header"})
			return
		}
		if err := sessions.Validate(id); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		ctx := context.WithValue(c.Request.Context(), sessionCtxKey, id)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// agencyMiddleware authenticates operator requests by agency id and API key.
func agencyMiddleware(agencies AgencyService) gin.HandlerFunc {
	return func(c *gin.Context) {
		a, err := agencies.Authenticate(c.Request.Context(), c.GetHeader(agencyIDHeader), c.GetHeader(agencyKeyHeader))
		if err != nil {
			if errors.Is(err, agencysvc.ErrInvalidCredentials) || errors.Is(err, domain.ErrNotFound) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid agency credentials"})
				return
			}
			_ = c.Error(err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "authentication failed"})
			return
		}
		ctx := context.WithValue(c.Request.Context(), agencyCtxKey, a)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func sessionFrom(c *gin.Context) string {
	id, _ := c.Request.Context().Value(sessionCtxKey).(string)
	return id
}

func agencyFrom(c *gin.Context) *domain.Agency {
	a, _ := c.Request.Context().Value(agencyCtxKey).(*domain.Agency)
	return a
}
