package services

import (
	"context"
	"fmt"
	"log"

	"jengamart/internal/models"
	"jengamart/internal/policy"
	"jengamart/internal/repositories"

	"github.com/shopspring/decimal"
)

// TaxPolicy computes the tax due on an order subtotal.
type TaxPolicy interface {
	Tax(subtotal decimal.Decimal) decimal.Decimal
}

// ZeroTax charges no tax.
type ZeroTax struct{}

// Tax implements TaxPolicy.
func (ZeroTax) Tax(decimal.Decimal) decimal.Decimal { return decimal.Zero }

// CreateOrderInput is the buyer-supplied part of a new order.
type CreateOrderInput struct {
	SellerID        string
	DeliveryMethod  string
	DeliveryAddress models.DeliveryAddress
}

// fulfilment transitions a seller may apply.
var orderTransitions = map[models.OrderStatus][]models.OrderStatus{
	models.OrderPending:    {models.OrderCancelled},
	models.OrderConfirmed:  {models.OrderDispatched, models.OrderCancelled},
	models.OrderDispatched: {models.OrderDelivered},
}

// OrderService handles business logic related to orders.
type OrderService struct {
	tx        repositories.TxManager
	orders    repositories.OrderRepository
	products  repositories.ProductRepository
	sellers   repositories.SellerRepository
	tax       TaxPolicy
	publisher EventPublisher
}

// NewOrderService creates a new OrderService. A nil tax policy means ZeroTax and a nil
// publisher disables events.
func NewOrderService(tx repositories.TxManager, orders repositories.OrderRepository, products repositories.ProductRepository, sellers repositories.SellerRepository, tax TaxPolicy, publisher EventPublisher) *OrderService {
	if tax == nil {
		tax = ZeroTax{}
	}
	return &OrderService{
		tx:        tx,
		orders:    orders,
		products:  products,
		sellers:   sellers,
		tax:       tax,
		publisher: publisher,
	}
}

// Create opens an empty pending order from the caller to a seller. Totals stay null until
// the first item is added.
func (s *OrderService) Create(ctx context.Context, caller Caller, in CreateOrderInput) (*models.Order, error) {
	if !policy.CanPlaceOrder(caller.Role) {
		return nil, fmt.Errorf("only buyers can place orders: %w", ErrPermissionDenied)
	}
	if in.SellerID == "" {
		return nil, fmt.Errorf("seller is required: %w", ErrValidation)
	}
	if _, err := s.sellers.GetByID(ctx, in.SellerID); err != nil {
		return nil, fromRepo(err, "seller %s", in.SellerID)
	}

	order := &models.Order{
		BuyerID:         caller.UserID,
		SellerID:        in.SellerID,
		Status:          models.OrderPending,
		DeliveryMethod:  in.DeliveryMethod,
		DeliveryAddress: in.DeliveryAddress,
	}
	if err := s.orders.Create(ctx, order); err != nil {
		return nil, fromRepo(err, "failed to create order")
	}
	order.Items = []models.OrderItem{}

	publish(s.publisher, EventOrderCreated, map[string]interface{}{
		"order_id":  order.ID,
		"buyer_id":  order.BuyerID,
		"seller_id": order.SellerID,
	})
	return order, nil
}

// List returns the orders the caller placed plus those of the sellers they belong to.
func (s *OrderService) List(ctx context.Context, caller Caller) ([]models.Order, error) {
	scope, err := s.scope(ctx, caller)
	if err != nil {
		return nil, err
	}
	return s.orders.List(ctx, scope)
}

// Get returns an order visible to the caller. Orders out of scope are reported as missing.
func (s *OrderService) Get(ctx context.Context, caller Caller, id string) (*models.Order, error) {
	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, fromRepo(err, "order %s", id)
	}
	ok, err := s.canSee(ctx, caller, order)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("order %s: %w", id, ErrNotFound)
	}
	return order, nil
}

// AddItem appends a line to a pending order and recomputes its totals. The order row is
// locked for the whole operation so concurrent additions apply one after another, and the
// item and the new totals are committed together or not at all.
func (s *OrderService) AddItem(ctx context.Context, caller Caller, orderID, productID string, quantity int) (*models.Order, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("quantity must be greater than zero: %w", ErrValidation)
	}

	var item *models.OrderItem
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		order, err := s.orders.GetForUpdate(ctx, orderID)
		if err != nil {
			return fromRepo(err, "order %s", orderID)
		}
		if order.BuyerID != caller.UserID && caller.Role != models.RoleOpsAdmin {
			return fmt.Errorf("order %s: %w", orderID, ErrNotFound)
		}
		if order.Status != models.OrderPending {
			return fmt.Errorf("order %s is %s: %w", orderID, order.Status, ErrInvalidState)
		}

		product, err := s.products.GetByID(ctx, productID)
		if err != nil {
			return fromRepo(err, "product %s", productID)
		}
		if product.SellerID != order.SellerID {
			return fmt.Errorf("product %s is not sold by the order's seller: %w", productID, ErrValidation)
		}

		items, err := s.orders.ListItems(ctx, orderID)
		if err != nil {
			return err
		}
		requested := quantity
		for _, it := range items {
			if it.ProductID != nil && *it.ProductID == productID {
				requested += it.Quantity
			}
		}
		if requested > product.Stock {
			return fmt.Errorf("insufficient stock for %s (requested: %d, available: %d): %w", product.Name, requested, product.Stock, ErrValidation)
		}

		qty := decimal.NewFromInt(int64(quantity))
		item = &models.OrderItem{
			OrderID:   orderID,
			ProductID: &product.ID,
			Quantity:  quantity,
			UnitPrice: product.Price,
			LineTotal: qty.Mul(product.Price),
		}
		if err := s.orders.AddItem(ctx, item); err != nil {
			return fromRepo(err, "failed to add item to order %s", orderID)
		}

		s.applyTotals(order, append(items, *item))
		return s.orders.SaveTotals(ctx, order)
	})
	if err != nil {
		return nil, err
	}

	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, fromRepo(err, "order %s", orderID)
	}
	log.Printf("Added %d x %s to order %s, total now %s", quantity, productID, orderID, order.Total.Decimal.String())
	publish(s.publisher, EventOrderItemAdded, map[string]interface{}{
		"order_id":   orderID,
		"item_id":    item.ID,
		"product_id": productID,
		"quantity":   quantity,
		"total":      order.Total.Decimal.String(),
	})
	return order, nil
}

// applyTotals derives subtotal, tax and total from the persisted items.
func (s *OrderService) applyTotals(order *models.Order, items []models.OrderItem) {
	subtotal := decimal.Zero
	for _, it := range items {
		subtotal = subtotal.Add(it.LineTotal)
	}
	shipping := decimal.Zero
	if order.ShippingFee.Valid {
		shipping = order.ShippingFee.Decimal
	}
	tax := s.tax.Tax(subtotal)

	order.Subtotal = decimal.NewNullDecimal(subtotal)
	order.Tax = decimal.NewNullDecimal(tax)
	order.ShippingFee = decimal.NewNullDecimal(shipping)
	order.Total = decimal.NewNullDecimal(subtotal.Add(tax).Add(shipping))
}

// UpdateStatus moves an order through fulfilment. Seller members and operations staff may
// dispatch, deliver or cancel; the buyer may only cancel a pending order.
func (s *OrderService) UpdateStatus(ctx context.Context, caller Caller, id string, status models.OrderStatus) (*models.Order, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("invalid order status %q: %w", status, ErrValidation)
	}

	var from models.OrderStatus
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		order, err := s.orders.GetForUpdate(ctx, id)
		if err != nil {
			return fromRepo(err, "order %s", id)
		}
		from = order.Status

		membership, err := membershipOf(ctx, s.sellers, order.SellerID, caller.UserID)
		if err != nil {
			return err
		}
		isBuyer := order.BuyerID == caller.UserID
		canFulfil := policy.CanFulfilOrders(caller.Role, membership)
		switch {
		case canFulfil:
		case isBuyer:
			if status != models.OrderCancelled || order.Status != models.OrderPending {
				return fmt.Errorf("buyers may only cancel pending orders: %w", ErrPermissionDenied)
			}
		default:
			return fmt.Errorf("order %s: %w", id, ErrNotFound)
		}

		if !transitionAllowed(order.Status, status) {
			return fmt.Errorf("cannot move order from %s to %s: %w", order.Status, status, ErrInvalidState)
		}
		changed, err := s.orders.UpdateStatus(ctx, id, []models.OrderStatus{order.Status}, status)
		if err != nil {
			return err
		}
		if !changed {
			return fmt.Errorf("order %s changed concurrently: %w", id, ErrInvalidState)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	publish(s.publisher, EventOrderStatusChanged, map[string]interface{}{
		"order_id": id,
		"from":     from,
		"to":       status,
	})
	return s.orders.GetByID(ctx, id)
}

func transitionAllowed(from, to models.OrderStatus) bool {
	for _, next := range orderTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func (s *OrderService) scope(ctx context.Context, caller Caller) (repositories.Scope, error) {
	if caller.Role == models.RoleOpsAdmin {
		return repositories.Scope{All: true}, nil
	}
	ids, err := memberSellerIDs(ctx, s.sellers, caller.UserID)
	if err != nil {
		return repositories.Scope{}, err
	}
	return repositories.Scope{UserID: caller.UserID, SellerIDs: ids}, nil
}

func (s *OrderService) canSee(ctx context.Context, caller Caller, order *models.Order) (bool, error) {
	if caller.Role == models.RoleOpsAdmin || order.BuyerID == caller.UserID {
		return true, nil
	}
	membership, err := membershipOf(ctx, s.sellers, order.SellerID, caller.UserID)
	if err != nil {
		return false, err
	}
	return membership != nil, nil
}
