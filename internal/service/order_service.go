package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/vps-service/internal/domain"
	"github.com/spec-kit/vps-service/internal/store"
	"github.com/spec-kit/vps-service/pkg/util"
)

// OrderService runs the payment-gated provisioning workflow:
// pending -> submitted -> approved or rejected. Approval consumes the order
// into a new instance; both terminal states remove the order record.
type OrderService struct {
	store     *store.FileStore
	lifecycle *LifecycleService
	logger    *zap.Logger
}

// OrderDependencies bundles collaborators for the order service.
type OrderDependencies struct {
	Store     *store.FileStore
	Lifecycle *LifecycleService
	Logger    *zap.Logger
}

// NewOrderService constructs the service.
func NewOrderService(deps OrderDependencies) *OrderService {
	return &OrderService{store: deps.Store, lifecycle: deps.Lifecycle, logger: deps.Logger}
}

// CreateOrder opens a pending order for the buyer's selected plan.
func (s *OrderService) CreateOrder(ctx context.Context, buyer, planKey string) (*domain.Order, error) {
	if _, ok := domain.PlanByKey(planKey); !ok {
		return nil, util.NewValidationError("invalid plan", map[string]any{"plan_key": planKey})
	}

	order := &domain.Order{
		ID:        generateOrderID(),
		Buyer:     buyer,
		PlanKey:   planKey,
		Status:    domain.OrderStatusPending,
		CreatedAt: time.Now(),
	}
	err := s.store.MutateOrders(func(orders map[string]*domain.Order) error {
		orders[order.ID] = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("order created",
		zap.String("order", order.ID),
		zap.String("buyer", buyer),
		zap.String("plan", planKey),
	)
	return order, nil
}

// AttachProof records the buyer's payment evidence and moves the order to
// submitted. Re-submitting replaces the previous reference.
func (s *OrderService) AttachProof(ctx context.Context, buyer, orderID, proofRef string) (*domain.Order, error) {
	if strings.TrimSpace(proofRef) == "" {
		return nil, util.NewValidationError("proof reference required", nil)
	}

	var updated *domain.Order
	err := s.store.MutateOrders(func(orders map[string]*domain.Order) error {
		order, ok := orders[orderID]
		if !ok || order.Buyer != buyer {
			return util.NewNotFound("order", map[string]any{"id": orderID})
		}
		order.ProofRef = proofRef
		order.Status = domain.OrderStatusSubmitted
		updated = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Approve provisions the plan for the buyer and removes the order. Only
// submitted orders can be approved; without payment evidence the order is
// still pending and approval is a CONFLICT. When provisioning fails the
// order stays submitted so approval can be retried.
func (s *OrderService) Approve(ctx context.Context, actor Actor, orderID string) (*domain.VPS, error) {
	if !actor.Admin {
		return nil, util.NewForbidden("admin access required")
	}
	order, ok := s.store.GetOrder(orderID)
	if !ok {
		return nil, util.NewNotFound("order", map[string]any{"id": orderID})
	}
	if order.Status != domain.OrderStatusSubmitted {
		return nil, util.NewConflict("order has no payment evidence attached", map[string]any{"status": order.Status})
	}
	plan, ok := domain.PlanByKey(order.PlanKey)
	if !ok {
		return nil, util.NewValidationError("order references unknown plan", map[string]any{"plan_key": order.PlanKey})
	}

	record, err := s.lifecycle.Create(ctx, actor, CreateInput{
		Owner: order.Buyer,
		Spec:  plan.Spec(),
		OSKey: domain.DefaultOSKey,
		Plan:  plan.Name,
	})
	if err != nil {
		s.logger.Error("order provisioning failed; order kept for retry",
			zap.String("order", orderID),
			zap.Error(err),
		)
		return nil, err
	}

	err = s.store.MutateOrders(func(orders map[string]*domain.Order) error {
		delete(orders, orderID)
		return nil
	})
	if err != nil {
		return record, err
	}

	s.logger.Info("order approved",
		zap.String("order", orderID),
		zap.String("buyer", order.Buyer),
		zap.String("container", record.ContainerName),
	)
	return record, nil
}

// Reject removes the order with no side effects on any instance.
func (s *OrderService) Reject(ctx context.Context, actor Actor, orderID string) error {
	if !actor.Admin {
		return util.NewForbidden("admin access required")
	}
	return s.store.MutateOrders(func(orders map[string]*domain.Order) error {
		if _, ok := orders[orderID]; !ok {
			return util.NewNotFound("order", map[string]any{"id": orderID})
		}
		delete(orders, orderID)
		return nil
	})
}

// GetForBuyer returns the buyer's order.
func (s *OrderService) GetForBuyer(buyer, orderID string) (*domain.Order, error) {
	order, ok := s.store.GetOrder(orderID)
	if !ok || order.Buyer != buyer {
		return nil, util.NewNotFound("order", map[string]any{"id": orderID})
	}
	return order, nil
}

// ListAll returns every open order, keyed by id.
func (s *OrderService) ListAll() map[string]*domain.Order {
	return s.store.ListOrders()
}

func generateOrderID() string {
	return "ORD-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:10])
}
