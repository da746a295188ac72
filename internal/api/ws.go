package api

import (
	"net/http"

	"coffeehouse-service/internal/identity"
	"coffeehouse-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// watchCart upgrades to a WebSocket and pushes the user's cart on every
// change, starting with its current contents. The connection mirrors the
// document store's live subscription: no backpressure, latest snapshot
// wins, teardown on disconnect.
func (h *Handler) watchCart(c *gin.Context) {
	userID, _ := identity.CurrentUserID(c)
	logger := util.GetLogger()

	snapshots, cancel, err := h.cart.Watch(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to watch cart"})
		return
	}
	defer cancel()

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	// the read pump only exists to notice the peer going away
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		case items, ok := <-snapshots:
			if !ok {
				return
			}
			payload := gin.H{
				"items": items,
				"total": h.cart.ComputeTotal(items),
			}
			if err := conn.WriteJSON(payload); err != nil {
				logger.Debug("Cart watch write failed, closing",
					zap.String("user_id", userID),
					zap.Error(err))
				return
			}
		}
	}
}
