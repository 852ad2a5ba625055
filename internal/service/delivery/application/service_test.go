package application

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"vivero/internal/errs"
	"vivero/internal/service/delivery/domain"
)

type passTxManager struct{}

func (passTxManager) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeSlotRepo struct {
	windows map[string]*domain.DeliveryWindow
	slots   map[string]*domain.DeliverySlot
	holds   map[string]*domain.SlotReservation
}

func newFakeSlotRepo() *fakeSlotRepo {
	return &fakeSlotRepo{
		windows: map[string]*domain.DeliveryWindow{},
		slots:   map[string]*domain.DeliverySlot{},
		holds:   map[string]*domain.SlotReservation{},
	}
}

func (f *fakeSlotRepo) WindowByID(ctx context.Context, id string) (*domain.DeliveryWindow, error) {
	w, ok := f.windows[id]
	if !ok {
		return nil, errs.NewNotFound("delivery_window", id)
	}
	return w, nil
}

func (f *fakeSlotRepo) SlotByID(ctx context.Context, id string) (*domain.DeliverySlot, error) {
	s, ok := f.slots[id]
	if !ok {
		return nil, errs.NewNotFound("delivery_slot", id)
	}
	cp := *s
	return &cp, nil
}

func (f *fakeSlotRepo) SlotExists(ctx context.Context, windowID string, date time.Time) (bool, error) {
	for _, s := range f.slots {
		if s.WindowID == windowID && s.Date.Equal(date) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeSlotRepo) CreateSlot(ctx context.Context, slot *domain.DeliverySlot) error {
	f.slots[slot.ID] = slot
	return nil
}

func (f *fakeSlotRepo) ReserveCapacity(ctx context.Context, slotID string) (bool, error) {
	s, ok := f.slots[slotID]
	if !ok || s.CapacityAvailable <= 0 {
		return false, nil
	}
	s.CapacityAvailable--
	return true, nil
}

func (f *fakeSlotRepo) RestoreCapacity(ctx context.Context, slotID string) error {
	if s, ok := f.slots[slotID]; ok && s.CapacityAvailable < s.CapacityMax {
		s.CapacityAvailable++
	}
	return nil
}

func (f *fakeSlotRepo) RefreshSlotState(ctx context.Context, slotID string) error {
	s, ok := f.slots[slotID]
	if !ok || s.State == domain.SlotBlocked {
		return nil
	}
	if s.CapacityAvailable <= 0 {
		s.State = domain.SlotFull
	} else {
		s.State = domain.SlotAvailable
	}
	return nil
}

func (f *fakeSlotRepo) CreateHold(ctx context.Context, hold *domain.SlotReservation) error {
	for _, h := range f.holds {
		if h.SlotID == hold.SlotID && h.OrderRef == hold.OrderRef {
			return errs.NewConflict("slot_reservation", "hold already exists")
		}
	}
	f.holds[hold.ID] = hold
	return nil
}

func (f *fakeSlotRepo) FindHold(ctx context.Context, slotID, orderRef string) (*domain.SlotReservation, error) {
	for _, h := range f.holds {
		if h.SlotID == slotID && h.OrderRef == orderRef {
			return h, nil
		}
	}
	return nil, errs.NewNotFound("slot_reservation", orderRef)
}

func (f *fakeSlotRepo) MarkHoldStatus(ctx context.Context, id string, from, to domain.HoldStatus) (bool, error) {
	h, ok := f.holds[id]
	if !ok || h.Status != from {
		return false, nil
	}
	h.Status = to
	return true, nil
}

func (f *fakeSlotRepo) FindExpiredHolds(ctx context.Context, now time.Time, limit int) ([]*domain.SlotReservation, error) {
	var out []*domain.SlotReservation
	for _, h := range f.holds {
		if h.Status == domain.HoldHeld && h.ExpiresAt != nil && now.After(*h.ExpiresAt) {
			out = append(out, h)
			if len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

func newTestDeliveryService(repo *fakeSlotRepo, holidays []string) *Service {
	return NewService(repo, passTxManager{}, holidays, otel.Tracer("test"))
}

func weekdayTemplate() *domain.DeliveryWindow {
	return &domain.DeliveryWindow{
		ID:          "w1",
		Weekdays:    []time.Weekday{time.Monday, time.Wednesday},
		StartTime:   "09:00",
		EndTime:     "13:00",
		CapacityMax: 5,
		Active:      true,
	}
}

func TestGenerateSlotsSkipsHolidaysAndOffDays(t *testing.T) {
	repo := newFakeSlotRepo()
	repo.windows["w1"] = weekdayTemplate()
	// 2026-09-07 is a Monday
	svc := newTestDeliveryService(repo, []string{"2026-09-09"})

	from := time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)
	created, err := svc.GenerateSlots(context.Background(), "w1", from, 7)
	require.NoError(t, err)
	// 周一 9/7 生成，周三 9/9 是节假日跳过
	assert.Equal(t, 1, created)
}

func TestGenerateSlotsIsIdempotent(t *testing.T) {
	repo := newFakeSlotRepo()
	repo.windows["w1"] = weekdayTemplate()
	svc := newTestDeliveryService(repo, nil)

	from := time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)
	first, err := svc.GenerateSlots(context.Background(), "w1", from, 7)
	require.NoError(t, err)
	assert.Equal(t, 2, first)

	second, err := svc.GenerateSlots(context.Background(), "w1", from, 7)
	require.NoError(t, err)
	assert.Equal(t, 0, second, "regeneration must not duplicate slots")
	assert.Len(t, repo.slots, 2)
}

func TestReserveSlotCapacityOne(t *testing.T) {
	repo := newFakeSlotRepo()
	repo.slots["s1"] = &domain.DeliverySlot{
		ID: "s1", CapacityMax: 1, CapacityAvailable: 1, State: domain.SlotAvailable,
	}
	svc := newTestDeliveryService(repo, nil)

	require.NoError(t, svc.ReserveSlot(context.Background(), "s1", "order-a", nil))

	err := svc.ReserveSlot(context.Background(), "s1", "order-b", nil)
	require.Error(t, err)
	assert.True(t, errs.IsConflict(err), "second contender must get a no-capacity conflict")

	assert.Equal(t, 0, repo.slots["s1"].CapacityAvailable)
	assert.Equal(t, domain.SlotFull, repo.slots["s1"].State)
}

func TestReserveSlotDuplicateDoesNotConsumeCapacity(t *testing.T) {
	repo := newFakeSlotRepo()
	repo.slots["s1"] = &domain.DeliverySlot{
		ID: "s1", CapacityMax: 3, CapacityAvailable: 3, State: domain.SlotAvailable,
	}
	svc := newTestDeliveryService(repo, nil)

	require.NoError(t, svc.ReserveSlot(context.Background(), "s1", "order-a", nil))
	require.Equal(t, 2, repo.slots["s1"].CapacityAvailable)

	// 同单重复占用必须在扣容量之前被拦下，容量不再减少
	err := svc.ReserveSlot(context.Background(), "s1", "order-a", nil)
	require.Error(t, err)
	assert.True(t, errs.IsConflict(err))
	assert.Equal(t, 2, repo.slots["s1"].CapacityAvailable)
	assert.Len(t, repo.holds, 1)
}

func TestReserveSlotBlocked(t *testing.T) {
	repo := newFakeSlotRepo()
	repo.slots["s1"] = &domain.DeliverySlot{ID: "s1", CapacityMax: 5, CapacityAvailable: 5, State: domain.SlotBlocked}
	svc := newTestDeliveryService(repo, nil)

	err := svc.ReserveSlot(context.Background(), "s1", "order-a", nil)
	require.Error(t, err)
	assert.True(t, errs.IsConflict(err))
	assert.Equal(t, 5, repo.slots["s1"].CapacityAvailable)
}

func TestConfirmHoldIsIdempotent(t *testing.T) {
	repo := newFakeSlotRepo()
	repo.slots["s1"] = &domain.DeliverySlot{ID: "s1", CapacityMax: 2, CapacityAvailable: 2, State: domain.SlotAvailable}
	svc := newTestDeliveryService(repo, nil)

	expires := time.Now().Add(time.Hour)
	require.NoError(t, svc.ReserveSlot(context.Background(), "s1", "order-a", &expires))
	require.NoError(t, svc.ConfirmHold(context.Background(), "s1", "order-a"))
	require.NoError(t, svc.ConfirmHold(context.Background(), "s1", "order-a"))
}

func TestReleaseSlotNoHoldIsNoop(t *testing.T) {
	repo := newFakeSlotRepo()
	repo.slots["s1"] = &domain.DeliverySlot{ID: "s1", CapacityMax: 1, CapacityAvailable: 1, State: domain.SlotAvailable}
	svc := newTestDeliveryService(repo, nil)

	require.NoError(t, svc.ReleaseSlot(context.Background(), "s1", "ghost-order"))
	assert.Equal(t, 1, repo.slots["s1"].CapacityAvailable, "release without hold must not inflate capacity")
}

func TestReleaseSlotRestoresCapacityOnce(t *testing.T) {
	repo := newFakeSlotRepo()
	repo.slots["s1"] = &domain.DeliverySlot{ID: "s1", CapacityMax: 1, CapacityAvailable: 1, State: domain.SlotAvailable}
	svc := newTestDeliveryService(repo, nil)

	require.NoError(t, svc.ReserveSlot(context.Background(), "s1", "order-a", nil))
	require.NoError(t, svc.ReleaseSlot(context.Background(), "s1", "order-a"))
	assert.Equal(t, 1, repo.slots["s1"].CapacityAvailable)
	assert.Equal(t, domain.SlotAvailable, repo.slots["s1"].State)

	// 重复释放不再回补
	require.NoError(t, svc.ReleaseSlot(context.Background(), "s1", "order-a"))
	assert.Equal(t, 1, repo.slots["s1"].CapacityAvailable)
}

func TestSweepExpiredReleasesHeldOnly(t *testing.T) {
	repo := newFakeSlotRepo()
	repo.slots["s1"] = &domain.DeliverySlot{ID: "s1", CapacityMax: 3, CapacityAvailable: 3, State: domain.SlotAvailable}
	svc := newTestDeliveryService(repo, nil)

	past := time.Now().Add(-time.Minute)
	future := time.Now().Add(time.Hour)
	require.NoError(t, svc.ReserveSlot(context.Background(), "s1", "stale", &past))
	require.NoError(t, svc.ReserveSlot(context.Background(), "s1", "fresh", &future))
	require.NoError(t, svc.ReserveSlot(context.Background(), "s1", "done", nil))
	require.Equal(t, 0, repo.slots["s1"].CapacityAvailable)

	released, err := svc.SweepExpired(context.Background(), time.Now(), 100)
	require.NoError(t, err)
	assert.Equal(t, 1, released)
	assert.Equal(t, 1, repo.slots["s1"].CapacityAvailable)
}
