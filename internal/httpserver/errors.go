package httpserver

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	cartstore "playa-storefront/internal/cart"
	"playa-storefront/internal/domain"
	"playa-storefront/internal/payment"
	cartsvc "playa-storefront/internal/service/cart"
	"playa-storefront/internal/service/checkout"
	"playa-storefront/internal/service/download"
	"playa-storefront/internal/service/gallery"
)

type errorMapping struct {
	target error
	status int
}

var errorStatuses = []errorMapping{
	{domain.ErrNotFound, http.StatusNotFound},
	{domain.ErrAlreadyExists, http.StatusConflict},
	{domain.ErrUsageLimitReached, http.StatusTooManyRequests},
	{download.ErrExpired, http.StatusGone},
	{checkout.ErrUnauthenticated, http.StatusUnauthorized},
	{gallery.ErrForbidden, http.StatusForbidden},
	{checkout.ErrEmptyCart, http.StatusBadRequest},
	{checkout.ErrInvalidInput, http.StatusBadRequest},
	{gallery.ErrInvalidInput, http.StatusBadRequest},
	{cartstore.ErrInvalidItem, http.StatusBadRequest},
	{cartsvc.ErrUnknownPhoto, http.StatusBadRequest},
	{payment.ErrInvalidSignature, http.StatusBadRequest},
	{payment.ErrMalformedEvent, http.StatusBadRequest},
}

// writeError maps service errors onto status codes. Unknown errors become a 500
// whose detail is logged rather than returned.
func writeError(c *gin.Context, err error) {
	if errors.Is(err, checkout.ErrCheckoutUnavailable) {
		_ = c.Error(err)
		c.JSON(http.StatusBadGateway, gin.H{"error": checkout.ErrCheckoutUnavailable.Error(), "retry": true})
		return
	}
	for _, m := range errorStatuses {
		if errors.Is(err, m.target) {
			c.JSON(m.status, gin.H{"error": err.Error()})
			return
		}
	}
	_ = c.Error(err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}
