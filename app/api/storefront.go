package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"CamuPos/app/database"
	"CamuPos/app/models"
	"CamuPos/app/services"
)

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// HandleLogin exchanges credentials for a token
func (s *Server) HandleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "username and password are required")
		return
	}
	token, user, err := s.deps.Auth.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
}

// HandleMenu returns the live catalog
func (s *Server) HandleMenu(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"products":    s.deps.Dispatcher.State().Products,
		"qrisEnabled": s.deps.Payment != nil && s.deps.Payment.Enabled(),
	})
}

// HandlePlaceOnlineOrder is the storefront checkout. Prices come from the
// catalog, never from the request.
func (s *Server) HandlePlaceOnlineOrder(c *gin.Context) {
	var req services.OnlineOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid order")
		return
	}
	if strings.TrimSpace(req.CustomerName) == "" {
		badRequest(c, "customerName is required")
		return
	}
	switch req.PaymentMethod {
	case "", models.PaymentCash, models.PaymentQRIS:
	default:
		badRequest(c, "paymentMethod must be cash or qris")
		return
	}

	order, notification, err := s.deps.Orders.PlaceOnlineOrder(c.Request.Context(), req, wantsWait(c))
	body := gin.H{"order": order}
	if notification != nil {
		body["notification"] = notification
	}
	respondApplied(c, http.StatusCreated, body, err)
}

// HandleTrackOnlineOrder returns the status of a storefront order, without
// customer details
func (s *Server) HandleTrackOnlineOrder(c *gin.Context) {
	order, ok := s.onlineOrder(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":            order.ID,
		"status":        order.Status.Normalize(),
		"total":         order.Total,
		"paymentMethod": order.PaymentMethod,
		"createdAt":     order.CreatedAt,
	})
}

// HandleOnlineOrderQRIS renders the dynamic QRIS for a storefront order
func (s *Server) HandleOnlineOrderQRIS(c *gin.Context) {
	order, ok := s.onlineOrder(c)
	if !ok {
		return
	}
	s.writeQRIS(c, order)
}

func (s *Server) onlineOrder(c *gin.Context) (models.Order, bool) {
	order, ok := s.deps.Dispatcher.State().Order(c.Param("id"))
	if !ok || !order.IsOnline() {
		respondError(c, database.ErrNotFound)
		return models.Order{}, false
	}
	return order, true
}

func (s *Server) writeQRIS(c *gin.Context, order models.Order) {
	if s.deps.Payment == nil {
		respondError(c, services.ErrQRISNotConfigured)
		return
	}
	png, err := s.deps.Payment.QRISPNG(order, queryInt(c, "size", services.DefaultQRSize))
	if err != nil {
		respondError(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

type chatRequest struct {
	Message  string `json:"message"`
	OptionID string `json:"optionId"`
}

// HandleChat answers the storefront assistant. An empty body returns the
// greeting.
func (s *Server) HandleChat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid message")
		return
	}
	switch {
	case req.OptionID != "":
		c.JSON(http.StatusOK, services.OptionReply(req.OptionID))
	case strings.TrimSpace(req.Message) == "":
		c.JSON(http.StatusOK, services.ChatReply{
			Text: services.Greeting,
			Options: []services.ChatOption{
				{ID: "how_to_order", Text: "Cara pesen"},
				{ID: "rekomendasi", Text: "Menu rekomen"},
				{ID: "payment_info", Text: "Info pembayaran"},
			},
			Source: "keywords",
		})
	default:
		c.JSON(http.StatusOK, s.deps.Chat.Reply(c.Request.Context(), req.Message))
	}
}
