package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/set-night/boostly/internal/domain"
	"github.com/set-night/boostly/internal/eligibility"
	"github.com/set-night/boostly/internal/repository/memory"
	"github.com/set-night/boostly/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecute_CreditsActorAndStartsCooldown(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fund(t, "alice", "10")
	o := f.placeOrder(t, "alice", domain.PlatformInstagram, "likes", 10)
	task := f.mem.Tasks(o.ID)[0]

	res, err := f.tasks.Execute(ctx, task.ID, "bob")
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.Equal(t, "0.30", res.CreditedAmount.StringFixed(2))
	assert.False(t, res.OrderCompleted)
	assert.Equal(t, 9, res.Task.RemainingQuantity)
	assert.Equal(t, domain.TaskStatusCooldown, res.Task.Status)
	require.NotNil(t, res.Task.CooldownEndsAt)
	assert.Equal(t, t0.Add(time.Hour), *res.Task.CooldownEndsAt)
	assert.Equal(t, "0.30", f.balance(t, "bob"))

	txs := f.mem.Transactions("bob")
	require.Len(t, txs, 1)
	assert.Equal(t, domain.TxTypeCredit, txs[0].TxType)
	assert.Equal(t, task.ID, *txs[0].TaskID)
}

func TestExecute_OwnerIsNeverEligible(t *testing.T) {
	f := newFixture(t)
	f.fund(t, "alice", "10")
	o := f.placeOrder(t, "alice", domain.PlatformInstagram, "likes", 10)

	_, err := f.tasks.Execute(context.Background(), f.mem.Tasks(o.ID)[0].ID, "alice")

	require.ErrorIs(t, err, eligibility.ErrSelfExecution)
	assert.ErrorIs(t, err, domain.ErrNotEligible)

	list, err := f.tasks.ListAvailable(context.Background(), domain.TaskFilter{ActorID: "alice"})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestExecute_CooldownRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fund(t, "alice", "10")
	o := f.placeOrder(t, "alice", domain.PlatformInstagram, "likes", 10)
	taskID := f.mem.Tasks(o.ID)[0].ID

	_, err := f.tasks.Execute(ctx, taskID, "bob")
	require.NoError(t, err)

	f.clock.Set(t0.Add(30 * time.Minute))
	list, err := f.tasks.ListAvailable(ctx, domain.TaskFilter{ActorID: "carol"})
	require.NoError(t, err)
	assert.Empty(t, list)
	_, err = f.tasks.Execute(ctx, taskID, "carol")
	assert.ErrorIs(t, err, eligibility.ErrCoolingDown)

	f.clock.Set(t0.Add(61 * time.Minute))
	list, err = f.tasks.ListAvailable(ctx, domain.TaskFilter{ActorID: "carol"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, taskID, list[0].ID)

	// Repeatable engagements can come back to the same actor.
	res, err := f.tasks.Execute(ctx, taskID, "bob")
	require.NoError(t, err)
	assert.Equal(t, 8, res.Task.RemainingQuantity)
}

func TestExecute_ZeroCooldownStaysAvailable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fund(t, "alice", "10")
	o := f.placeOrder(t, "alice", domain.PlatformInstagram, "views", 5)
	taskID := f.mem.Tasks(o.ID)[0].ID

	res, err := f.tasks.Execute(ctx, taskID, "bob")
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusAvailable, res.Task.Status)
	assert.Nil(t, res.Task.CooldownEndsAt)

	_, err = f.tasks.Execute(ctx, taskID, "carol")
	require.NoError(t, err)
}

func TestExecute_FollowIsTerminalPerActor(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fund(t, "alice", "10")
	o := f.placeOrder(t, "alice", domain.PlatformInstagram, "followers", 2)
	taskID := f.mem.Tasks(o.ID)[0].ID

	res, err := f.tasks.Execute(ctx, taskID, "bob")
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusAvailable, res.Task.Status)
	assert.Equal(t, "0.70", res.CreditedAmount.StringFixed(2))

	f.clock.Set(t0.Add(365 * 24 * time.Hour))
	_, err = f.tasks.Execute(ctx, taskID, "bob")
	require.ErrorIs(t, err, eligibility.ErrAlreadyExecuted)

	list, err := f.tasks.ListAvailable(ctx, domain.TaskFilter{ActorID: "bob"})
	require.NoError(t, err)
	assert.Empty(t, list)

	res, err = f.tasks.Execute(ctx, taskID, "carol")
	require.NoError(t, err)
	assert.Equal(t, 0, res.Task.RemainingQuantity)
	assert.Equal(t, domain.TaskStatusCompleted, res.Task.Status)
	assert.NotNil(t, res.Task.ArchivedAt)
	assert.True(t, res.OrderCompleted)

	stored, err := f.orders.Get(ctx, "alice", o.ID, false)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCompleted, stored.Status)

	_, err = f.tasks.Execute(ctx, taskID, "dave")
	assert.ErrorIs(t, err, eligibility.ErrExhausted)
}

func TestExecute_LastUnitRace(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fund(t, "alice", "10")
	o := f.placeOrder(t, "alice", domain.PlatformYouTube, "subscribers", 1)
	taskID := f.mem.Tasks(o.ID)[0].ID

	actors := []string{"bob", "carol", "dave", "erin"}
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for _, actor := range actors {
		wg.Add(1)
		go func(actor string) {
			defer wg.Done()
			_, err := f.tasks.Execute(ctx, taskID, actor)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				wins++
				return
			}
			assert.ErrorIs(t, err, domain.ErrNotEligible)
		}(actor)
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	task := f.mem.Tasks(o.ID)[0]
	assert.Equal(t, 0, task.RemainingQuantity)

	paid := 0
	for _, actor := range actors {
		if f.balance(t, actor) == "0.90" {
			paid++
		}
	}
	assert.Equal(t, 1, paid)
}

func TestExecute_UnknownTask(t *testing.T) {
	f := newFixture(t)
	f.fund(t, "alice", "10")
	o := f.placeOrder(t, "alice", domain.PlatformInstagram, "likes", 10)

	_, err := f.tasks.Execute(context.Background(), uuid.New(), "bob")
	assert.ErrorIs(t, err, domain.ErrTaskNotFound)

	_, err = f.tasks.Execute(context.Background(), f.mem.Tasks(o.ID)[0].ID, "")
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestListAvailable_Filters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fund(t, "alice", "100")
	f.placeOrder(t, "alice", domain.PlatformInstagram, "likes", 10)
	f.placeOrder(t, "alice", domain.PlatformInstagram, "followers", 10)
	f.placeOrder(t, "alice", domain.PlatformYouTube, "subscribers", 10)

	tests := []struct {
		name   string
		filter domain.TaskFilter
		want   []domain.TaskType
	}{
		{name: "all", filter: domain.TaskFilter{ActorID: "bob"}, want: []domain.TaskType{domain.TaskTypeLike, domain.TaskTypeFollow, domain.TaskTypeSubscribe}},
		{name: "platform", filter: domain.TaskFilter{ActorID: "bob", Platform: domain.PlatformYouTube}, want: []domain.TaskType{domain.TaskTypeSubscribe}},
		{name: "type", filter: domain.TaskFilter{ActorID: "bob", Type: domain.TaskTypeFollow}, want: []domain.TaskType{domain.TaskTypeFollow}},
		{name: "limit", filter: domain.TaskFilter{ActorID: "bob", Limit: 1}, want: []domain.TaskType{domain.TaskTypeLike}},
		{name: "owner", filter: domain.TaskFilter{ActorID: "alice"}, want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			list, err := f.tasks.ListAvailable(ctx, tt.filter)
			require.NoError(t, err)
			var got []domain.TaskType
			for _, task := range list {
				got = append(got, task.Type)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

// callRecordingStore logs the repository calls made inside transactions.
type callRecordingStore struct {
	*memory.Store
	mu    sync.Mutex
	calls []string
}

func (s *callRecordingStore) WithinTx(ctx context.Context, fn func(service.Repository) error) error {
	return s.Store.WithinTx(ctx, func(r service.Repository) error {
		return fn(callRecordingRepo{Repository: r, store: s})
	})
}

func (s *callRecordingStore) record(call string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, call)
}

type callRecordingRepo struct {
	service.Repository
	store *callRecordingStore
}

func (r callRecordingRepo) GetOrderForUpdate(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	r.store.record("lock order")
	return r.Repository.GetOrderForUpdate(ctx, id)
}

func (r callRecordingRepo) CountOpenTasks(ctx context.Context, orderID uuid.UUID) (int, error) {
	r.store.record("count open")
	return r.Repository.CountOpenTasks(ctx, orderID)
}

func TestExecute_LastUnitsOfSeveralTasksCompleteOrder(t *testing.T) {
	mem := memory.New()
	store := &callRecordingStore{Store: mem}
	f := newFixtureWithStore(t, mem, store)
	ctx := context.Background()
	f.fund(t, "alice", "10")

	o, err := f.orders.Submit(ctx, service.SubmitRequest{
		OwnerID:  "alice",
		Platform: domain.PlatformInstagram,
		Lines: []domain.LineRequest{
			{ServiceID: "likes", TargetURL: "https://instagram.com/p/1", Quantity: 1},
			{ServiceID: "views", TargetURL: "https://instagram.com/p/1", Quantity: 1},
		},
		PaymentMethod: domain.PaymentBalance,
	})
	require.NoError(t, err)
	tasks := mem.Tasks(o.ID)
	require.Len(t, tasks, 2)

	var wg sync.WaitGroup
	for i, task := range tasks {
		wg.Add(1)
		go func(taskID uuid.UUID, actor string) {
			defer wg.Done()
			_, err := f.tasks.Execute(ctx, taskID, actor)
			assert.NoError(t, err)
		}(task.ID, []string{"bob", "carol"}[i])
	}
	wg.Wait()

	stored, err := f.orders.Get(ctx, "alice", o.ID, false)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCompleted, stored.Status)

	store.mu.Lock()
	defer store.mu.Unlock()
	require.NotEmpty(t, store.calls)
	for i := 0; i < len(store.calls); i += 2 {
		assert.Equal(t, "lock order", store.calls[i])
		require.Less(t, i+1, len(store.calls))
		assert.Equal(t, "count open", store.calls[i+1])
	}
}
