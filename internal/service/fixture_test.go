package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/set-night/boostly/internal/catalog"
	"github.com/set-night/boostly/internal/domain"
	"github.com/set-night/boostly/internal/pricing"
	"github.com/set-night/boostly/internal/repository/memory"
	"github.com/set-night/boostly/internal/service"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const testCatalog = `
taskTypes:
  - type: like
    cooldown: 1h
  - type: view
    cooldown: 0s
services:
  - {platform: instagram, serviceId: likes, taskType: like, basePrice: "0.50", rate: "0.30", minQuantity: 1, maxQuantity: 100000}
  - {platform: instagram, serviceId: views, taskType: view, basePrice: "0.10", rate: "0.05", minQuantity: 1, maxQuantity: 1000000}
  - {platform: instagram, serviceId: followers, taskType: follow, basePrice: "1.20", rate: "0.70", minQuantity: 1, maxQuantity: 50000}
  - {platform: youtube, serviceId: subscribers, taskType: subscribe, basePrice: "1.50", rate: "0.90", minQuantity: 1, maxQuantity: 50000}
`

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type recordingNotifier struct {
	mu     sync.Mutex
	failed []string
	issues int
	pays   int
}

func (n *recordingNotifier) OrderFailed(o *domain.Order) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failed = append(n.failed, o.FailureReason)
}

func (n *recordingNotifier) IssueReported(*domain.Order, *domain.Ticket) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.issues++
}

func (n *recordingNotifier) PaymentFailed(domain.PaymentOutcome) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.pays++
}

func (n *recordingNotifier) Error(error, string) {}

type fixture struct {
	mem      *memory.Store
	catalog  *catalog.Catalog
	ledger   *service.LedgerService
	orders   *service.OrderService
	tasks    *service.TaskService
	clock    *clock
	notifier *recordingNotifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mem := memory.New()
	return newFixtureWithStore(t, mem, mem)
}

func newFixtureWithStore(t *testing.T, mem *memory.Store, store service.Store) *fixture {
	t.Helper()
	cat, err := catalog.Load([]byte(testCatalog), time.Hour)
	require.NoError(t, err)

	clk := &clock{now: t0}
	notifier := &recordingNotifier{}
	ledger := service.NewLedgerService(store)
	orders := service.NewOrderService(store, pricing.NewEngine(cat), cat, ledger, notifier)
	orders.SetClock(clk.Now)
	tasks := service.NewTaskService(store, cat, ledger)
	tasks.SetClock(clk.Now)

	return &fixture{
		mem:      mem,
		catalog:  cat,
		ledger:   ledger,
		orders:   orders,
		tasks:    tasks,
		clock:    clk,
		notifier: notifier,
	}
}

func (f *fixture) fund(t *testing.T, ownerID, amount string) {
	t.Helper()
	_, err := f.ledger.Credit(context.Background(), ownerID, decimal.RequireFromString(amount), domain.LedgerRef{Description: "top up"})
	require.NoError(t, err)
}

func (f *fixture) balance(t *testing.T, ownerID string) string {
	t.Helper()
	acc, err := f.ledger.Balance(context.Background(), ownerID)
	require.NoError(t, err)
	return acc.Available.StringFixed(2)
}

// placeOrder submits a balance paid single line order for ownerID.
func (f *fixture) placeOrder(t *testing.T, ownerID string, platform domain.Platform, serviceID string, quantity int) *domain.Order {
	t.Helper()
	o, err := f.orders.Submit(context.Background(), service.SubmitRequest{
		OwnerID:       ownerID,
		Platform:      platform,
		Lines:         []domain.LineRequest{{ServiceID: serviceID, TargetURL: "https://example.com/p/1", Quantity: quantity}},
		SpeedTier:     domain.SpeedNormal,
		PaymentMethod: domain.PaymentBalance,
	})
	require.NoError(t, err)
	require.Equal(t, domain.OrderStatusProcessing, o.Status)
	return o
}
