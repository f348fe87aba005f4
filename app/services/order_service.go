package services

import (
	"context"
	"errors"
	"fmt"

	"CamuPos/app/database"
	"CamuPos/app/models"
	"CamuPos/app/store"
)

var (
	// ErrInvalidTransition is returned when an order status would move backwards
	ErrInvalidTransition = errors.New("invalid order status transition")
	// ErrEmptyCart is returned when checking out with nothing in the cart
	ErrEmptyCart = errors.New("cart is empty")
	// ErrUnknownProduct is returned for an order line naming no catalog product
	ErrUnknownProduct = errors.New("unknown product")
	// ErrInvalidQuantity is returned for a line with qty < 1
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
)

// OnlineItem is one storefront order line as submitted by the customer
type OnlineItem struct {
	ProductID models.FlexID `json:"productId"`
	VariantID string        `json:"variantId,omitempty"`
	Qty       int           `json:"qty"`
}

// OnlineOrderRequest is a storefront checkout
type OnlineOrderRequest struct {
	CustomerName  string               `json:"customerName"`
	CustomerPhone string               `json:"customerPhone"`
	Notes         string               `json:"notes,omitempty"`
	PaymentMethod models.PaymentMethod `json:"paymentMethod"`
	Items         []OnlineItem         `json:"items"`
}

// OrderService runs the order flows on top of the dispatcher and sends the
// customer messages that go with them
type OrderService struct {
	dispatcher *Dispatcher
	notifier   *NotifierService
	logger     *LoggerService
}

// NewOrderService creates an order service. notifier may be nil.
func NewOrderService(dispatcher *Dispatcher, notifier *NotifierService, logger *LoggerService) *OrderService {
	if logger == nil {
		logger = NewDiscardLogger()
	}
	return &OrderService{dispatcher: dispatcher, notifier: notifier, logger: logger}
}

// Checkout commits the cart as a counter sale. The order is read from this
// dispatch's own intents, since the cart may change between requests.
func (s *OrderService) Checkout(ctx context.Context, meta models.Checkout, wait bool) (models.Order, error) {
	if len(s.dispatcher.State().Cart) == 0 {
		return models.Order{}, ErrEmptyCart
	}
	_, intents, err := s.dispatcher.Commit(ctx, store.AddOrder{Checkout: meta}, wait)
	order, ok := recordedOrder(intents)
	if !ok {
		return models.Order{}, ErrEmptyCart
	}
	s.logger.LogInfo("Order recorded", "id="+order.ID, fmt.Sprintf("total=%d", order.Total))
	return order, err
}

// recordedOrder finds the order row written by a dispatch
func recordedOrder(intents []store.Intent) (models.Order, bool) {
	for _, in := range intents {
		if up, ok := in.(store.UpsertTransactionIntent); ok {
			return up.Order, true
		}
	}
	return models.Order{}, false
}

// BuildLines prices storefront lines from the catalog
func BuildLines(products []models.Product, items []OnlineItem) (models.Items, error) {
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}
	lines := make(models.Items, 0, len(items))
	for _, item := range items {
		if item.Qty < 1 {
			return nil, ErrInvalidQuantity
		}
		var product *models.Product
		for i := range products {
			if products[i].ID == item.ProductID {
				product = &products[i]
				break
			}
		}
		if product == nil {
			return nil, fmt.Errorf("%w: %s", ErrUnknownProduct, item.ProductID)
		}
		var variant *models.Variant
		if v, ok := product.Variant(item.VariantID); ok {
			variant = &v
		}
		line := models.NewCartLine(*product, variant)
		line.Qty = item.Qty
		lines = append(lines, line)
	}
	return lines, nil
}

// PlaceOnlineOrder records a storefront order and messages the customer and
// the owner. Messaging failures never fail the order.
func (s *OrderService) PlaceOnlineOrder(ctx context.Context, req OnlineOrderRequest, wait bool) (models.Order, *SendResult, error) {
	lines, err := BuildLines(s.dispatcher.State().Products, req.Items)
	if err != nil {
		return models.Order{}, nil, err
	}
	checkout := models.OnlineCheckout{
		Checkout: models.Checkout{
			CustomerName:  req.CustomerName,
			CustomerPhone: req.CustomerPhone,
			Notes:         req.Notes,
			PaymentMethod: req.PaymentMethod,
			Type:          models.OrderTypeOnline,
		},
		Items: lines,
	}
	_, intents, syncErr := s.dispatcher.Commit(ctx, store.AddOnlineOrder{Checkout: checkout}, wait)
	order, ok := recordedOrder(intents)
	if !ok {
		return models.Order{}, nil, ErrEmptyCart
	}
	s.logger.LogInfo("Online order received", "id="+order.ID, "customer="+order.CustomerName)

	if s.notifier == nil {
		return order, nil, syncErr
	}
	result, err := s.notifier.NotifyNewOrder(ctx, order)
	if err != nil && !errors.Is(err, ErrNoRecipient) {
		s.logger.LogWarning("Order confirmation not sent", "id="+order.ID, err.Error())
	}
	return order, &result, syncErr
}

// SetStatus moves an order forward through new, ready and done. Reaching
// ready sends the pickup message.
func (s *OrderService) SetStatus(ctx context.Context, id string, status models.OrderStatus, wait bool) (models.Order, error) {
	current, ok := s.dispatcher.State().Order(id)
	if !ok {
		return models.Order{}, database.ErrNotFound
	}
	if !current.Status.CanTransition(status) {
		return current, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, current.Status.Normalize(), status)
	}
	next, syncErr := s.dispatcher.Apply(ctx, store.UpdateOrderStatus{ID: id, Status: status}, wait)
	order, _ := next.Order(id)

	if status == models.OrderStatusReady && s.notifier != nil && order.PhoneDigits() != "" {
		if _, err := s.notifier.NotifyReady(ctx, order); err != nil {
			s.logger.LogWarning("Pickup message not sent", "id="+id, err.Error())
		}
	}
	return order, syncErr
}

// Update replaces an order after an edit
func (s *OrderService) Update(ctx context.Context, order models.Order, wait bool) (models.Order, error) {
	if _, ok := s.dispatcher.State().Order(order.ID); !ok {
		return models.Order{}, database.ErrNotFound
	}
	for _, line := range order.Items {
		if line.Qty < 1 {
			return models.Order{}, fmt.Errorf("%w: %s", ErrInvalidQuantity, line.Key)
		}
	}
	next, syncErr := s.dispatcher.Apply(ctx, store.UpdateOrder{Order: order}, wait)
	updated, _ := next.Order(order.ID)
	return updated, syncErr
}

// Delete removes an order and returns its stock
func (s *OrderService) Delete(ctx context.Context, id string, wait bool) error {
	_, err := s.dispatcher.Apply(ctx, store.DeleteOrder{ID: id}, wait)
	return err
}

// BeginEdit loads an order into the cart and marks it as being edited
func (s *OrderService) BeginEdit(id string) (store.State, error) {
	order, ok := s.dispatcher.State().Order(id)
	if !ok {
		return store.State{}, database.ErrNotFound
	}
	s.dispatcher.Dispatch(store.SetCart{Lines: order.Items.Clone()})
	next, _ := s.dispatcher.Dispatch(store.SetEditOrder{Order: &order})
	return next, nil
}

// NotifyResult is the outcome of an admin notify request
type NotifyResult struct {
	Sent    bool   `json:"sent"`
	Reason  string `json:"reason,omitempty"`
	Message string `json:"message"`
	WaLink  string `json:"waLink"`
}

// Notify sends one of the customer messages for an order. Without a gateway
// the message and its wa.me link are returned for a manual send.
func (s *OrderService) Notify(ctx context.Context, id, kind string) (NotifyResult, error) {
	order, ok := s.dispatcher.State().Order(id)
	if !ok {
		return NotifyResult{}, database.ErrNotFound
	}
	if s.notifier == nil {
		s.notifier = NewNotifierService(nil, nil, s.logger)
	}
	message, link, err := s.notifier.Message(kind, order)
	if err != nil {
		return NotifyResult{}, err
	}
	out := NotifyResult{Message: message, WaLink: link}
	if !s.notifier.WhatsAppEnabled() {
		out.Reason = "manual"
		return out, nil
	}

	result, err := s.notifier.sendCustomer(ctx, order, message)
	out.Sent, out.Reason = result.Status, result.Reason
	return out, err
}
