package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"coffeehouse-service/internal/catalog"
	"coffeehouse-service/internal/docstore"
	"coffeehouse-service/internal/identity"
	"coffeehouse-service/internal/models"
	"coffeehouse-service/internal/service"
	"coffeehouse-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler contains HTTP handlers
type Handler struct {
	catalog        *catalog.Provider
	cart           *service.CartService
	checkout       *service.CheckoutService
	paymentMethods *service.PaymentMethodService
	favorites      *service.FavoritesService
	journal        *service.JournalService
	notifications  *service.NotificationService
	jwtSecret      string
}

// NewHandler creates a new HTTP handler
func NewHandler(
	catalogProvider *catalog.Provider,
	cart *service.CartService,
	checkout *service.CheckoutService,
	paymentMethods *service.PaymentMethodService,
	favorites *service.FavoritesService,
	journal *service.JournalService,
	notifications *service.NotificationService,
	jwtSecret string,
) *Handler {
	return &Handler{
		catalog:        catalogProvider,
		cart:           cart,
		checkout:       checkout,
		paymentMethods: paymentMethods,
		favorites:      favorites,
		journal:        journal,
		notifications:  notifications,
		jwtSecret:      jwtSecret,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	v1.GET("/catalog", h.listCatalog)
	v1.GET("/catalog/:id", h.getCatalogItem)

	auth := v1.Group("", identity.Middleware(h.jwtSecret))
	{
		auth.GET("/cart", h.listCart)
		auth.POST("/cart", h.addToCart)
		auth.POST("/cart/:id/increase", h.increaseQuantity)
		auth.POST("/cart/:id/decrease", h.decreaseQuantity)
		auth.GET("/cart/watch", h.watchCart)

		auth.POST("/checkout", h.confirmPayment)
		auth.GET("/orders", h.listOrders)
		auth.GET("/orders/:id", h.getOrder)

		auth.GET("/payment-methods", h.listPaymentMethods)
		auth.POST("/payment-methods", h.savePaymentMethod)
		auth.DELETE("/payment-methods/:id", h.deletePaymentMethod)

		auth.GET("/favorites", h.listFavorites)
		auth.POST("/favorites/:coffeeId/toggle", h.toggleFavorite)

		auth.GET("/journal", h.listJournal)
		auth.POST("/journal", h.addJournalEntry)
		auth.DELETE("/journal/:id", h.deleteJournalEntry)
		auth.GET("/journal/:id/photo", h.journalPhoto)

		auth.GET("/notifications", h.listNotifications)
	}
}

func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

func (h *Handler) listCatalog(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"items": h.catalog.Items()})
}

func (h *Handler) getCatalogItem(c *gin.Context) {
	item, err := h.catalog.Item(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Catalog item not found"})
		return
	}
	c.JSON(http.StatusOK, item)
}

func (h *Handler) listCart(c *gin.Context) {
	userID, _ := identity.CurrentUserID(c)

	items, err := h.cart.Items(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load cart"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"items": items,
		"total": h.cart.ComputeTotal(items),
	})
}

type addToCartRequest struct {
	CoffeeID string `json:"coffee_id" binding:"required"`
	Size     string `json:"size" binding:"required"`
	Quantity int    `json:"quantity"`
}

func (h *Handler) addToCart(c *gin.Context) {
	userID, _ := identity.CurrentUserID(c)

	var req addToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	item, err := h.catalog.Item(req.CoffeeID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Catalog item not found"})
		return
	}

	if err := h.cart.AddToCart(c.Request.Context(), userID, item, req.Size, req.Quantity); err != nil {
		if errors.Is(err, service.ErrSizeUnavailable) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "This size is not available"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to add to cart"})
		return
	}

	c.Status(http.StatusAccepted)
}

func (h *Handler) increaseQuantity(c *gin.Context) {
	h.changeQuantity(c, h.cart.IncreaseQuantity)
}

func (h *Handler) decreaseQuantity(c *gin.Context) {
	h.changeQuantity(c, h.cart.DecreaseQuantity)
}

func (h *Handler) changeQuantity(c *gin.Context, op func(ctx context.Context, id string) error) {
	err := op(c.Request.Context(), c.Param("id"))
	if errors.Is(err, docstore.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Cart line item not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update cart"})
		return
	}
	c.Status(http.StatusNoContent)
}

type confirmPaymentRequest struct {
	PaymentMethodID string `json:"payment_method_id"`
}

func (h *Handler) confirmPayment(c *gin.Context) {
	userID, _ := identity.CurrentUserID(c)

	var req confirmPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	var method *models.PaymentMethod
	if req.PaymentMethodID != "" {
		m, err := h.paymentMethods.Get(c.Request.Context(), userID, req.PaymentMethodID)
		if errors.Is(err, docstore.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Payment method not found"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load payment method"})
			return
		}
		method = m
	}

	order, err := h.checkout.ConfirmPayment(c.Request.Context(), userID, method, c.GetHeader("Idempotency-Key"))
	switch {
	case errors.Is(err, service.ErrNoPaymentMethod):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Please select a payment method"})
	case errors.Is(err, service.ErrEmptyCart):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Your cart is empty"})
	case errors.Is(err, service.ErrCheckoutInProgress):
		c.JSON(http.StatusConflict, gin.H{"error": "A checkout is already in progress"})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Payment failed. Please try again."})
	default:
		c.JSON(http.StatusCreated, order)
	}
}

func (h *Handler) listOrders(c *gin.Context) {
	userID, _ := identity.CurrentUserID(c)

	orders, err := h.checkout.Orders(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load orders"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

func (h *Handler) getOrder(c *gin.Context) {
	userID, _ := identity.CurrentUserID(c)

	order, err := h.checkout.Order(c.Request.Context(), userID, c.Param("id"))
	if errors.Is(err, docstore.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load order"})
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *Handler) listPaymentMethods(c *gin.Context) {
	userID, _ := identity.CurrentUserID(c)

	methods, err := h.paymentMethods.List(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load payment methods"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"payment_methods": methods})
}

func (h *Handler) savePaymentMethod(c *gin.Context) {
	userID, _ := identity.CurrentUserID(c)

	var input models.CardInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	method, validationErrs, err := h.paymentMethods.Save(c.Request.Context(), userID, input)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to add card"})
		return
	}
	if len(validationErrs) > 0 {
		// clients show the first message, the full list travels anyway
		c.JSON(http.StatusBadRequest, gin.H{"error": validationErrs[0], "details": validationErrs})
		return
	}

	c.JSON(http.StatusCreated, method)
}

func (h *Handler) deletePaymentMethod(c *gin.Context) {
	userID, _ := identity.CurrentUserID(c)

	err := h.paymentMethods.Delete(c.Request.Context(), userID, c.Param("id"))
	if errors.Is(err, docstore.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Payment method not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete card"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) listFavorites(c *gin.Context) {
	userID, _ := identity.CurrentUserID(c)

	favorites, err := h.favorites.List(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load favorites"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"favorites": favorites})
}

func (h *Handler) toggleFavorite(c *gin.Context) {
	userID, _ := identity.CurrentUserID(c)

	item, err := h.catalog.Item(c.Param("coffeeId"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Catalog item not found"})
		return
	}

	favorite, err := h.favorites.Toggle(c.Request.Context(), userID, item)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update favorite"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"favorite": favorite})
}

func (h *Handler) listJournal(c *gin.Context) {
	userID, _ := identity.CurrentUserID(c)

	entries, err := h.journal.List(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load journal"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

func (h *Handler) addJournalEntry(c *gin.Context) {
	userID, _ := identity.CurrentUserID(c)

	title := c.PostForm("title")
	content := c.PostForm("content")

	file, header, err := c.Request.FormFile("photo")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Please fill in all fields to submit your journal entry."})
		return
	}
	defer file.Close()

	entry, err := h.journal.Add(c.Request.Context(), userID, title, content, header.Filename, file)
	if errors.Is(err, service.ErrMissingJournalFields) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Please fill in all fields to submit your journal entry."})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to submit journal entry. Please try again."})
		return
	}

	c.JSON(http.StatusCreated, entry)
}

func (h *Handler) deleteJournalEntry(c *gin.Context) {
	userID, _ := identity.CurrentUserID(c)

	err := h.journal.Delete(c.Request.Context(), userID, c.Param("id"))
	if errors.Is(err, docstore.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Journal entry not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete journal entry"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) journalPhoto(c *gin.Context) {
	userID, _ := identity.CurrentUserID(c)

	// content type is sniffed from the first chunk of the photo, so
	// error responses below still go out as JSON
	err := h.journal.Photo(c.Request.Context(), userID, c.Param("id"), c.Writer)
	if errors.Is(err, docstore.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Journal entry not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load photo"})
		return
	}
}

func (h *Handler) listNotifications(c *gin.Context) {
	userID, _ := identity.CurrentUserID(c)

	notifications, err := h.notifications.List(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load notifications"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": notifications})
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
