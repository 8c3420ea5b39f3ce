package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/set-night/boostly/internal/domain"
	"github.com/set-night/boostly/internal/pricing"
	"github.com/shopspring/decimal"
)

const maxTicketDetailsLen = 2000

// Catalog is the read-only service lookup used when spawning tasks.
type Catalog interface {
	Lookup(platform domain.Platform, serviceID string) (domain.ServiceDefinition, error)
}

type OrderService struct {
	store    Store
	pricing  *pricing.Engine
	catalog  Catalog
	ledger   *LedgerService
	notifier Notifier
	now      func() time.Time
}

func NewOrderService(store Store, engine *pricing.Engine, catalog Catalog, ledger *LedgerService, notifier Notifier) *OrderService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &OrderService{
		store:    store,
		pricing:  engine,
		catalog:  catalog,
		ledger:   ledger,
		notifier: notifier,
		now:      time.Now,
	}
}

// LineGroup is the set of lines that becomes one order.
type LineGroup struct {
	Platform domain.Platform
	Lines    []domain.LineRequest
}

type SubmitRequest struct {
	OwnerID       string
	Platform      domain.Platform
	Lines         []domain.LineRequest
	SpeedTier     domain.SpeedTier
	PaymentMethod domain.PaymentMethod
}

type BulkRequest struct {
	OwnerID       string
	Groups        []LineGroup
	SpeedTier     domain.SpeedTier
	PaymentMethod domain.PaymentMethod
}

// SetClock replaces the time source of the service and its ledger.
func (s *OrderService) SetClock(now func() time.Time) {
	s.now = now
	s.ledger.SetClock(now)
}

// Quote prices lines without touching any state.
func (s *OrderService) Quote(platform domain.Platform, lines []domain.LineRequest, tier domain.SpeedTier) (*pricing.Quote, error) {
	tier, err := domain.ParseSpeedTier(string(tier))
	if err != nil {
		return nil, err
	}
	return s.pricing.PriceOrder(platform, lines, tier)
}

// Submit creates one order. With balance payment the amount is reserved
// immediately and the order either ends up processing with its tasks
// spawned, or failed with nothing spawned. External payment methods leave
// the order pending until HandlePaymentOutcome.
//
// On a failed reservation the failed order is returned together with the
// error.
func (s *OrderService) Submit(ctx context.Context, req SubmitRequest) (*domain.Order, error) {
	orders, err := s.submit(ctx, req.OwnerID, []LineGroup{{Platform: req.Platform, Lines: req.Lines}}, req.SpeedTier, req.PaymentMethod, nil)
	if len(orders) == 0 {
		return nil, err
	}
	return orders[0], err
}

// SubmitBulk creates one order per group. All orders share one payment:
// either every order proceeds or every order fails.
func (s *OrderService) SubmitBulk(ctx context.Context, req BulkRequest) ([]*domain.Order, error) {
	return s.submit(ctx, req.OwnerID, req.Groups, req.SpeedTier, req.PaymentMethod, nil)
}

// Repeat submits a new order with the lines, platform, speed tier and
// payment method of an earlier one, priced against the current catalog.
func (s *OrderService) Repeat(ctx context.Context, ownerID string, orderID uuid.UUID) (*domain.Order, error) {
	src, err := s.ownedOrder(ctx, ownerID, orderID)
	if err != nil {
		return nil, err
	}

	group := LineGroup{Platform: src.Platform, Lines: src.LineRequests()}
	orders, err := s.submit(ctx, ownerID, []LineGroup{group}, src.SpeedTier, src.PaymentMethod, &src.ID)
	if len(orders) == 0 {
		return nil, err
	}
	return orders[0], err
}

// Get returns an order visible to ownerID. Admins see every order.
func (s *OrderService) Get(ctx context.Context, ownerID string, orderID uuid.UUID, admin bool) (*domain.Order, error) {
	if admin {
		return s.store.GetOrder(ctx, orderID)
	}
	return s.ownedOrder(ctx, ownerID, orderID)
}

// ReportIssue files a ticket against an order. The order status is left
// untouched.
func (s *OrderService) ReportIssue(ctx context.Context, ownerID string, orderID uuid.UUID, details string) (*domain.Ticket, error) {
	details = strings.TrimSpace(details)
	if details == "" || len([]rune(details)) > maxTicketDetailsLen {
		return nil, fmt.Errorf("%w: details must be 1-%d characters", domain.ErrInvalidTicket, maxTicketDetailsLen)
	}

	o, err := s.ownedOrder(ctx, ownerID, orderID)
	if err != nil {
		return nil, err
	}

	ticket := &domain.Ticket{
		ID:        uuid.New(),
		OrderID:   o.ID,
		OwnerID:   ownerID,
		Details:   details,
		CreatedAt: s.now(),
	}
	if err := s.store.CreateTicket(ctx, ticket); err != nil {
		return nil, fmt.Errorf("create ticket: %w", err)
	}

	slog.Info("issue reported", "order_id", o.ID, "ticket_id", ticket.ID, "owner_id", ownerID)
	s.notifier.IssueReported(o, ticket)
	return ticket, nil
}

// Cancel fails every still pending order of the order's batch. Orders that
// are already processing cannot be cancelled.
func (s *OrderService) Cancel(ctx context.Context, ownerID string, orderID uuid.UUID) (*domain.Order, error) {
	o, err := s.ownedOrder(ctx, ownerID, orderID)
	if err != nil {
		return nil, err
	}

	switch o.Status {
	case domain.OrderStatusProcessing:
		return nil, domain.ErrCancelNotSupported
	case domain.OrderStatusCompleted, domain.OrderStatusFailed:
		return nil, fmt.Errorf("%w: order is %s", domain.ErrInvalidTransition, o.Status)
	}

	batch, err := s.store.ListBatchOrders(ctx, o.BatchID)
	if err != nil {
		return nil, fmt.Errorf("list batch: %w", err)
	}

	now := s.now()
	err = s.store.WithinTx(ctx, func(r Repository) error {
		for _, b := range batch {
			if b.Status != domain.OrderStatusPending {
				continue
			}
			if err := r.TransitionOrder(ctx, b.ID, domain.OrderStatusPending, domain.OrderStatusFailed, domain.ReasonCancelled, now); err != nil {
				return err
			}
		}
		return nil
	})
	if errors.Is(err, domain.ErrConcurrencyConflict) {
		// A payment callback won the race.
		return nil, domain.ErrCancelNotSupported
	}
	if err != nil {
		return nil, fmt.Errorf("cancel order: %w", err)
	}

	slog.Info("order cancelled", "order_id", o.ID, "batch_id", o.BatchID, "owner_id", ownerID)
	return s.store.GetOrder(ctx, o.ID)
}

// MarkDelivered completes a processing order on an external signal and
// retires its open tasks. Tasks are archived before the order row is
// touched, matching the lock order of task execution.
func (s *OrderService) MarkDelivered(ctx context.Context, orderID uuid.UUID) (*domain.Order, error) {
	now := s.now()
	err := s.store.WithinTx(ctx, func(r Repository) error {
		if err := r.ArchiveOrderTasks(ctx, orderID, now); err != nil {
			return err
		}
		return r.TransitionOrder(ctx, orderID, domain.OrderStatusProcessing, domain.OrderStatusCompleted, "", now)
	})
	if errors.Is(err, domain.ErrConcurrencyConflict) {
		o, getErr := s.store.GetOrder(ctx, orderID)
		if getErr != nil {
			return nil, getErr
		}
		return nil, fmt.Errorf("%w: order is %s", domain.ErrInvalidTransition, o.Status)
	}
	if err != nil {
		return nil, fmt.Errorf("mark delivered: %w", err)
	}
	return s.store.GetOrder(ctx, orderID)
}

// HandlePaymentOutcome applies an external provider's verdict to every
// pending order of the paid batch. Orders that already left pending are
// left alone, so replayed callbacks are harmless.
func (s *OrderService) HandlePaymentOutcome(ctx context.Context, outcome domain.PaymentOutcome) ([]*domain.Order, error) {
	o, err := s.store.GetOrder(ctx, outcome.OrderID)
	if err != nil {
		return nil, err
	}
	if !o.PaymentMethod.External() {
		return nil, fmt.Errorf("%w: order %s is paid from balance", domain.ErrInvalidPaymentMethod, o.ID)
	}

	batch, err := s.store.ListBatchOrders(ctx, o.BatchID)
	if err != nil {
		return nil, fmt.Errorf("list batch: %w", err)
	}
	pending := make([]*domain.Order, 0, len(batch))
	for _, b := range batch {
		if b.Status == domain.OrderStatusPending {
			pending = append(pending, b)
		}
	}
	if len(pending) == 0 {
		return batch, nil
	}

	switch outcome.Outcome {
	case domain.PaymentSucceeded:
		if err := s.activate(ctx, pending, nil); err != nil {
			s.notifier.Error(err, fmt.Sprintf("activate paid batch %s", o.BatchID))
			return nil, fmt.Errorf("activate orders: %w", err)
		}
		slog.Info("external payment confirmed", "batch_id", o.BatchID, "orders", len(pending))
	case domain.PaymentFailed:
		reason := domain.ReasonPaymentFailed
		if outcome.Reason != "" {
			reason += ": " + outcome.Reason
		}
		s.fail(ctx, pending, reason)
		s.notifier.PaymentFailed(outcome)
	default:
		return nil, fmt.Errorf("unknown payment outcome %q", outcome.Outcome)
	}

	return s.store.ListBatchOrders(ctx, o.BatchID)
}

func (s *OrderService) submit(ctx context.Context, ownerID string, groups []LineGroup, tier domain.SpeedTier, method domain.PaymentMethod, repeatOf *uuid.UUID) ([]*domain.Order, error) {
	if ownerID == "" {
		return nil, domain.ErrForbidden
	}
	if len(groups) == 0 {
		return nil, domain.ErrEmptyOrder
	}
	if _, err := domain.ParsePaymentMethod(string(method)); err != nil {
		return nil, err
	}
	tier, err := domain.ParseSpeedTier(string(tier))
	if err != nil {
		return nil, err
	}

	// Price everything before any state is touched.
	now := s.now()
	batchID := uuid.New()
	orders := make([]*domain.Order, 0, len(groups))
	for i, g := range groups {
		q, err := s.pricing.PriceOrder(g.Platform, g.Lines, tier)
		if err != nil {
			if len(groups) > 1 {
				return nil, fmt.Errorf("group %d: %w", i, err)
			}
			return nil, err
		}
		id := uuid.New()
		if len(groups) == 1 {
			batchID = id
		}
		orders = append(orders, &domain.Order{
			ID:            id,
			BatchID:       batchID,
			OwnerID:       ownerID,
			Platform:      g.Platform,
			Lines:         q.Lines,
			SpeedTier:     tier,
			PaymentMethod: method,
			Status:        domain.OrderStatusPending,
			Amount:        q.Amount,
			RepeatOf:      repeatOf,
			CreatedAt:     now,
			UpdatedAt:     now,
		})
	}

	if err := s.store.WithinTx(ctx, func(r Repository) error {
		for _, o := range orders {
			if err := r.CreateOrder(ctx, o); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return nil, fmt.Errorf("create orders: %w", err)
	}

	slog.Info("orders submitted",
		"batch_id", batchID,
		"owner_id", ownerID,
		"orders", len(orders),
		"payment_method", method,
	)

	if method.External() {
		return orders, nil
	}

	total := decimal.Zero
	for _, o := range orders {
		total = total.Add(o.SettledAmount())
	}
	ref := domain.LedgerRef{Description: fmt.Sprintf("Order batch %s", batchID), OrderID: &orders[0].ID}

	// The reservation commits together with the tasks, so a failed
	// activation never leaves a debit behind.
	reserved := false
	err = s.activate(ctx, orders, func(r Repository) error {
		if _, err := s.ledger.reserveWith(ctx, r, ownerID, total, ref); err != nil {
			return err
		}
		reserved = true
		return nil
	})
	if err != nil && !reserved {
		reason := domain.ReasonInsufficientBalance
		if !errors.Is(err, domain.ErrInsufficientBalance) {
			reason = domain.ReasonReservationError
			slog.Error("reserve balance", "batch_id", batchID, "error", err)
		}
		s.fail(ctx, orders, reason)
		return orders, fmt.Errorf("reserve %s: %w", total.StringFixed(2), err)
	}
	if err != nil {
		slog.Error("spawn tasks failed", "batch_id", batchID, "error", err)
		s.fail(ctx, orders, domain.ReasonTaskSpawnFailed)
		return orders, fmt.Errorf("spawn tasks: %w", err)
	}

	return orders, nil
}

// activate spawns one task per line and moves the orders to processing in
// one transaction. An order is never processing without its tasks. charge,
// when set, runs first in the same transaction.
func (s *OrderService) activate(ctx context.Context, orders []*domain.Order, charge func(Repository) error) error {
	now := s.now()
	err := s.store.WithinTx(ctx, func(r Repository) error {
		if charge != nil {
			if err := charge(r); err != nil {
				return err
			}
		}
		for _, o := range orders {
			if err := s.spawnTasks(ctx, r, o, now); err != nil {
				return fmt.Errorf("order %s: %w", o.ID, err)
			}
			if err := r.TransitionOrder(ctx, o.ID, domain.OrderStatusPending, domain.OrderStatusProcessing, "", now); err != nil {
				return fmt.Errorf("order %s: %w", o.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, o := range orders {
		o.Status = domain.OrderStatusProcessing
		o.UpdatedAt = now
	}
	return nil
}

func (s *OrderService) spawnTasks(ctx context.Context, r Repository, o *domain.Order, now time.Time) error {
	if len(o.Lines) == 0 {
		return domain.ErrEmptyOrder
	}
	for i, line := range o.Lines {
		def, err := s.catalog.Lookup(o.Platform, line.ServiceID)
		if err != nil {
			return err
		}
		if err := r.CreateTask(ctx, &domain.Task{
			ID:                uuid.New(),
			SourceOrderID:     o.ID,
			LineIndex:         i,
			OwnerID:           o.OwnerID,
			Platform:          o.Platform,
			Type:              def.TaskType,
			ServiceID:         line.ServiceID,
			TargetURL:         line.TargetURL,
			Quantity:          line.Quantity,
			RemainingQuantity: line.Quantity,
			Status:            domain.TaskStatusAvailable,
			Rate:              def.Rate,
			CreatedAt:         now,
		}); err != nil {
			return fmt.Errorf("create task for line %d: %w", i, err)
		}
	}
	return nil
}

// fail marks pending orders failed. Orders that moved on concurrently are
// skipped.
func (s *OrderService) fail(ctx context.Context, orders []*domain.Order, reason string) {
	now := s.now()
	for _, o := range orders {
		err := s.store.TransitionOrder(ctx, o.ID, domain.OrderStatusPending, domain.OrderStatusFailed, reason, now)
		if err != nil {
			slog.Error("mark order failed", "order_id", o.ID, "reason", reason, "error", err)
			continue
		}
		o.Status = domain.OrderStatusFailed
		o.FailureReason = reason
		o.UpdatedAt = now
		s.notifier.OrderFailed(o)
	}
}

func (s *OrderService) ownedOrder(ctx context.Context, ownerID string, orderID uuid.UUID) (*domain.Order, error) {
	o, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.OwnerID != ownerID {
		return nil, domain.ErrOrderNotFound
	}
	return o, nil
}
