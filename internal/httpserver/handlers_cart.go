package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	cartstore "playa-storefront/internal/cart"
)

type handlers struct {
	deps   Deps
	logger zerolog.Logger
}

func (h *handlers) createSession(c *gin.Context) {
	id, err := h.deps.Sessions.Issue()
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"sessionId": id})
}

func (h *handlers) getCart(c *gin.Context) {
	store := h.deps.Carts.Get(c.Request.Context(), sessionFrom(c))
	c.JSON(http.StatusOK, store.Snapshot())
}

func (h *handlers) addCartItem(c *gin.Context) {
	var req cartstore.NewItem
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid cart item payload")
		return
	}
	session := sessionFrom(c)
	if _, err := h.deps.Carts.AddItem(c.Request.Context(), session, req); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, h.deps.Carts.Get(c.Request.Context(), session).Snapshot())
}

func (h *handlers) removeCartItem(c *gin.Context) {
	store := h.deps.Carts.Get(c.Request.Context(), sessionFrom(c))
	store.Remove(c.Request.Context(), c.Param("itemId"))
	c.JSON(http.StatusOK, store.Snapshot())
}

func (h *handlers) clearCart(c *gin.Context) {
	store := h.deps.Carts.Get(c.Request.Context(), sessionFrom(c))
	store.Clear(c.Request.Context())
	c.JSON(http.StatusOK, store.Snapshot())
}

func (h *handlers) toggleCart(c *gin.Context) {
	store := h.deps.Carts.Get(c.Request.Context(), sessionFrom(c))
	store.Toggle()
	c.JSON(http.StatusOK, store.Snapshot())
}
