package httpserver

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"playa-storefront/internal/auth"
	"playa-storefront/internal/payment"
	"playa-storefront/internal/service/checkout"
)

const (
	signatureHeader = "Stripe-Signature"
	maxWebhookBody  = 64 << 10
)

type checkoutRequest struct {
	AgencyID  string `json:"agencyId"`
	EventID   string `json:"eventId"`
	ReturnURL string `json:"returnUrl"`
}

func (h *handlers) checkout(c *gin.Context) {
	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid checkout payload")
		return
	}

	in := checkout.Input{
		AgencyID:  req.AgencyID,
		EventID:   req.EventID,
		ReturnURL: req.ReturnURL,
	}
	if header := c.GetHeader("Authorization"); strings.TrimSpace(header) != "" && h.deps.Tokens != nil {
		claims, err := h.deps.Tokens.FromHeader(header)
		if err != nil {
			if errors.Is(err, auth.ErrMissingToken) || errors.Is(err, auth.ErrInvalidToken) {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
				return
			}
			writeError(c, err)
			return
		}
		in.Email = claims.Email
		in.CustomerName = claims.Name
	}

	store := h.deps.Carts.Get(c.Request.Context(), sessionFrom(c))
	in.Items = store.Items()

	sess, err := h.deps.Checkout.Start(c.Request.Context(), in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": sess.URL, "sessionId": sess.ID})
}

// paymentWebhook verifies and records a payment platform event. Any non-2xx
// response makes the platform redeliver, so only unrecorded purchases fail.
func (h *handlers) paymentWebhook(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody))
	if err != nil {
		badRequest(c, "unreadable payload")
		return
	}

	ev, err := h.deps.Payments.ParseEvent(body, c.GetHeader(signatureHeader))
	if err != nil {
		if errors.Is(err, payment.ErrInvalidSignature) {
			h.logger.Warn().Err(err).Msg("rejected payment webhook")
		}
		writeError(c, err)
		return
	}

	if _, err := h.deps.Fulfillment.Handle(c.Request.Context(), ev); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}
