package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"CamuPos/app/database"
	"CamuPos/app/models"
	"CamuPos/app/store"
)

// HandleGetState returns the full POS snapshot
func (s *Server) HandleGetState(c *gin.Context) {
	c.JSON(http.StatusOK, s.deps.Dispatcher.State())
}

type addToCartRequest struct {
	ProductID models.FlexID `json:"productId" binding:"required"`
	VariantID string        `json:"variantId"`
}

// HandleAddToCart adds one unit of a catalog product
func (s *Server) HandleAddToCart(c *gin.Context) {
	var req addToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "productId is required")
		return
	}
	product, ok := s.deps.Dispatcher.State().Product(req.ProductID)
	if !ok {
		respondError(c, database.ErrNotFound)
		return
	}
	next, _ := s.deps.Dispatcher.Dispatch(store.AddToCart{Product: product, VariantID: req.VariantID})
	c.JSON(http.StatusOK, gin.H{"cart": next.Cart, "total": next.CartTotal()})
}

type qtyRequest struct {
	Qty int `json:"qty"`
}

// HandleUpdateQty sets a line quantity; zero or less removes the line
func (s *Server) HandleUpdateQty(c *gin.Context) {
	var req qtyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "qty is required")
		return
	}
	next, _ := s.deps.Dispatcher.Dispatch(store.UpdateQty{Key: models.ParseLineKey(c.Param("key")), Qty: req.Qty})
	c.JSON(http.StatusOK, gin.H{"cart": next.Cart, "total": next.CartTotal()})
}

// HandleRemoveFromCart drops a cart line
func (s *Server) HandleRemoveFromCart(c *gin.Context) {
	next, _ := s.deps.Dispatcher.Dispatch(store.RemoveFromCart{Key: models.ParseLineKey(c.Param("key"))})
	c.JSON(http.StatusOK, gin.H{"cart": next.Cart, "total": next.CartTotal()})
}

// HandleClearCart empties the cart
func (s *Server) HandleClearCart(c *gin.Context) {
	next, _ := s.deps.Dispatcher.Dispatch(store.ClearCart{})
	c.JSON(http.StatusOK, gin.H{"cart": next.Cart, "total": next.CartTotal()})
}

// HandleCancelEdit leaves edit mode and empties the cart
func (s *Server) HandleCancelEdit(c *gin.Context) {
	s.deps.Dispatcher.Dispatch(store.SetEditOrder{})
	next, _ := s.deps.Dispatcher.Dispatch(store.ClearCart{})
	c.JSON(http.StatusOK, gin.H{"cart": next.Cart, "editingOrder": next.EditingOrder})
}

// HandleCheckout records the cart as a counter sale
func (s *Server) HandleCheckout(c *gin.Context) {
	var meta models.Checkout
	if err := c.ShouldBindJSON(&meta); err != nil {
		badRequest(c, "invalid checkout")
		return
	}
	if meta.CashierName == "" {
		meta.CashierName = c.GetString(ctxUsername)
	}
	order, err := s.deps.Orders.Checkout(c.Request.Context(), meta, wantsWait(c))
	respondApplied(c, http.StatusCreated, gin.H{"order": order}, err)
}

// HandleUpdateOrder replaces an order after an edit
func (s *Server) HandleUpdateOrder(c *gin.Context) {
	var order models.Order
	if err := c.ShouldBindJSON(&order); err != nil {
		badRequest(c, "invalid order")
		return
	}
	order.ID = c.Param("id")
	updated, err := s.deps.Orders.Update(c.Request.Context(), order, wantsWait(c))
	respondApplied(c, http.StatusOK, gin.H{"order": updated}, err)
}

type statusRequest struct {
	Status models.OrderStatus `json:"status" binding:"required"`
}

// HandleSetStatus moves an order to the next stage
func (s *Server) HandleSetStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil || !req.Status.Valid() {
		badRequest(c, "status must be new, ready or done")
		return
	}
	order, err := s.deps.Orders.SetStatus(c.Request.Context(), c.Param("id"), req.Status, wantsWait(c))
	respondApplied(c, http.StatusOK, gin.H{"order": order}, err)
}

// HandleDeleteOrder removes an order and restores its stock
func (s *Server) HandleDeleteOrder(c *gin.Context) {
	err := s.deps.Orders.Delete(c.Request.Context(), c.Param("id"), wantsWait(c))
	respondApplied(c, http.StatusOK, gin.H{"deleted": c.Param("id")}, err)
}

// HandleBeginEdit loads an order into the cart
func (s *Server) HandleBeginEdit(c *gin.Context) {
	next, err := s.deps.Orders.BeginEdit(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cart": next.Cart, "editingOrder": next.EditingOrder})
}

type notifyRequest struct {
	Kind string `json:"kind" binding:"required"` // new | ready | unpaid | receipt
}

// HandleNotify sends (or prepares) a customer message for an order
func (s *Server) HandleNotify(c *gin.Context) {
	var req notifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "kind is required")
		return
	}
	switch req.Kind {
	case "new", "ready", "unpaid", "receipt":
	default:
		badRequest(c, "kind must be new, ready, unpaid or receipt")
		return
	}
	result, err := s.deps.Orders.Notify(c.Request.Context(), c.Param("id"), req.Kind)
	if err != nil && result.Message == "" {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// HandleOrderQRIS renders the dynamic QRIS for any order
func (s *Server) HandleOrderQRIS(c *gin.Context) {
	order, ok := s.deps.Dispatcher.State().Order(c.Param("id"))
	if !ok {
		respondError(c, database.ErrNotFound)
		return
	}
	s.writeQRIS(c, order)
}
