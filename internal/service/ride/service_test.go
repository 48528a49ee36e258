package ride

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/caronahq/carona-system/internal/domain/models"
	"github.com/caronahq/carona-system/internal/domain/types"
	"github.com/caronahq/carona-system/pkg/logger"
	"github.com/caronahq/carona-system/pkg/uuid"
)

// fakeRideRepo mirrors the store's guarded updates in memory. Each mutator
// applies its whole precondition-and-change under one lock, the way the
// single-statement SQL does.
type fakeRideRepo struct {
	mu    sync.Mutex
	rides map[uuid.UUID]*models.Ride

	reconciled int
}

func newFakeRideRepo() *fakeRideRepo {
	return &fakeRideRepo{rides: make(map[uuid.UUID]*models.Ride)}
}

func (f *fakeRideRepo) put(r *models.Ride) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *r
	f.rides[r.ID] = &cp
}

func (f *fakeRideRepo) Create(_ context.Context, ride *models.Ride) (*models.Ride, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ride.ID = uuid.MustNew()
	ride.CreatedAt = time.Now()
	cp := *ride
	f.rides[ride.ID] = &cp
	return ride, nil
}

func (f *fakeRideRepo) Get(_ context.Context, rideID uuid.UUID) (*models.Ride, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rides[rideID]
	if !ok {
		return nil, types.ErrRideNotFound
	}
	cp := *r
	cp.Passengers = slices.Clone(r.Passengers)
	cp.UsersWhoRated = slices.Clone(r.UsersWhoRated)
	return &cp, nil
}

func (f *fakeRideRepo) ReserveSeat(_ context.Context, rideID uuid.UUID, userID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rides[rideID]
	if !ok {
		return false, nil
	}
	if r.Status != types.RideActive || r.Seats <= 0 || r.DriverID == userID || slices.Contains(r.Passengers, userID) {
		return false, nil
	}
	r.Seats--
	r.Passengers = append(r.Passengers, userID)
	return true, nil
}

func (f *fakeRideRepo) ReleaseSeat(_ context.Context, rideID uuid.UUID, userID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rides[rideID]
	if !ok {
		return false, nil
	}
	i := slices.Index(r.Passengers, userID)
	if r.Status != types.RideActive || i < 0 {
		return false, nil
	}
	r.Seats++
	r.Passengers = slices.Delete(r.Passengers, i, i+1)
	return true, nil
}

func (f *fakeRideRepo) Complete(_ context.Context, rideID uuid.UUID, driverID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rides[rideID]
	if !ok || r.DriverID != driverID || r.Status != types.RideActive {
		return false, nil
	}
	now := time.Now()
	r.Status = types.RideCompleted
	r.CompletedAt = &now
	return true, nil
}

func (f *fakeRideRepo) Delete(_ context.Context, rideID uuid.UUID, driverID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rides[rideID]
	if !ok || r.DriverID != driverID {
		return false, nil
	}
	delete(f.rides, rideID)
	return true, nil
}

func (f *fakeRideRepo) ReconcileSeats(_ context.Context, rideID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rides[rideID]
	if !ok {
		return types.ErrRideNotFound
	}
	r.Seats = r.ReconciledSeats()
	f.reconciled++
	return nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []models.RideEventMessage
}

func (f *fakePublisher) PublishRideEvent(_ context.Context, msg models.RideEventMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, msg)
	return nil
}

func (f *fakePublisher) last() (models.RideEventMessage, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.events) == 0 {
		return models.RideEventMessage{}, false
	}
	return f.events[len(f.events)-1], true
}

type fakeNotifier struct {
	mu sync.Mutex
	n  int
}

func (f *fakeNotifier) Notify() {
	f.mu.Lock()
	f.n++
	f.mu.Unlock()
}

func (f *fakeNotifier) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.n
}

func newTestService(t *testing.T) (*RideService, *fakeRideRepo, *fakePublisher, *fakeNotifier) {
	t.Helper()
	repo := newFakeRideRepo()
	pub := &fakePublisher{}
	not := &fakeNotifier{}
	svc := NewRideService(repo, pub, not, logger.NewDiscard())
	return svc, repo, pub, not
}

func ctxAs(email string, role types.UserRole) context.Context {
	u := &models.User{Email: email, Name: email, Role: role}
	return models.WithSession(context.Background(), models.NewSession(u))
}

func activeRide(driver string, capacity int) *models.Ride {
	return &models.Ride{
		ID:            uuid.MustNew(),
		From:          "Campus",
		To:            "Centro",
		Date:          time.Now().Add(24 * time.Hour),
		Capacity:      capacity,
		Seats:         capacity,
		Price:         7.50,
		DriverID:      driver,
		DriverName:    driver,
		Passengers:    []string{},
		Status:        types.RideActive,
		UsersWhoRated: []string{},
		CreatedAt:     time.Now(),
	}
}

func TestCreate(t *testing.T) {
	svc, _, pub, not := newTestService(t)

	ctx := ctxAs("driver@uni.br", types.RoleDriver)
	created, err := svc.Create(ctx, &models.Ride{From: "A", To: "B", Capacity: 3, Price: 5})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.Seats != 3 {
		t.Errorf("seats = %d, want full capacity 3", created.Seats)
	}
	if created.DriverID != "driver@uni.br" {
		t.Errorf("driver = %q, want session user", created.DriverID)
	}
	if created.Status != types.RideActive {
		t.Errorf("status = %q, want active", created.Status)
	}
	if msg, ok := pub.last(); !ok || msg.Event != types.EventRideCreated {
		t.Errorf("expected RIDE_CREATED event, got %+v", msg)
	}
	if not.count() != 1 {
		t.Errorf("notify count = %d, want 1", not.count())
	}
}

func TestCreateRequiresDriverCapability(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	ctx := ctxAs("rider@uni.br", types.RolePassenger)
	if _, err := svc.Create(ctx, &models.Ride{Capacity: 2}); !errors.Is(err, types.ErrCannotDrive) {
		t.Fatalf("err = %v, want ErrCannotDrive", err)
	}
}

func TestReserve(t *testing.T) {
	driver := "driver@uni.br"

	tests := []struct {
		name    string
		prepare func(r *models.Ride)
		actor   string
		wantErr error
	}{
		{
			name:  "success",
			actor: "rider@uni.br",
		},
		{
			name:    "driver cannot reserve own ride",
			actor:   driver,
			wantErr: types.ErrSelfReservation,
		},
		{
			name: "duplicate reservation",
			prepare: func(r *models.Ride) {
				r.Passengers = []string{"rider@uni.br"}
				r.Seats = 1
			},
			actor:   "rider@uni.br",
			wantErr: types.ErrAlreadyReserved,
		},
		{
			name: "full ride",
			prepare: func(r *models.Ride) {
				r.Passengers = []string{"a@uni.br", "b@uni.br"}
				r.Seats = 0
			},
			actor:   "rider@uni.br",
			wantErr: types.ErrRideFull,
		},
		{
			name: "completed ride",
			prepare: func(r *models.Ride) {
				r.Status = types.RideCompleted
			},
			actor:   "rider@uni.br",
			wantErr: types.ErrRideNotActive,
		},
		{
			name: "self check wins over full",
			prepare: func(r *models.Ride) {
				r.Passengers = []string{"a@uni.br", "b@uni.br"}
				r.Seats = 0
			},
			actor:   driver,
			wantErr: types.ErrSelfReservation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo, _, _ := newTestService(t)

			ride := activeRide(driver, 2)
			if tt.prepare != nil {
				tt.prepare(ride)
			}
			repo.put(ride)

			err := svc.Reserve(ctxAs(tt.actor, types.RolePassenger), ride.ID)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Reserve err = %v, want %v", err, tt.wantErr)
			}

			got, _ := repo.Get(context.Background(), ride.ID)
			if !got.SeatsConsistent() {
				t.Errorf("conservation broken: seats=%d passengers=%d capacity=%d",
					got.Seats, len(got.Passengers), got.Capacity)
			}
			if tt.wantErr == nil && !got.HasPassenger(tt.actor) {
				t.Errorf("actor missing from passenger roster after reserve")
			}
		})
	}
}

func TestReserveRequiresRideCapability(t *testing.T) {
	svc, repo, _, _ := newTestService(t)

	ride := activeRide("driver@uni.br", 2)
	repo.put(ride)

	// A driver-only profile cannot take seats.
	err := svc.Reserve(ctxAs("other@uni.br", types.RoleDriver), ride.ID)
	if !errors.Is(err, types.ErrCannotRide) {
		t.Fatalf("err = %v, want ErrCannotRide", err)
	}
}

func TestReserveLastSeatConcurrent(t *testing.T) {
	svc, repo, _, _ := newTestService(t)

	ride := activeRide("driver@uni.br", 3)
	ride.Passengers = []string{"a@uni.br", "b@uni.br"}
	ride.Seats = 1
	repo.put(ride)

	const contenders = 8
	errs := make([]error, contenders)

	var wg sync.WaitGroup
	for i := range contenders {
		wg.Add(1)
		go func() {
			defer wg.Done()
			email := string(rune('c'+i)) + "@uni.br"
			errs[i] = svc.Reserve(ctxAs(email, types.RolePassenger), ride.ID)
		}()
	}
	wg.Wait()

	won := 0
	for _, err := range errs {
		if err == nil {
			won++
		} else if !errors.Is(err, types.ErrRideFull) {
			t.Errorf("loser got %v, want ErrRideFull", err)
		}
	}
	if won != 1 {
		t.Fatalf("winners = %d, want exactly 1", won)
	}

	got, _ := repo.Get(context.Background(), ride.ID)
	if got.Seats != 0 || len(got.Passengers) != 3 {
		t.Errorf("final state seats=%d passengers=%d, want 0/3", got.Seats, len(got.Passengers))
	}
}

func TestReserveRepairsCounterDrift(t *testing.T) {
	svc, repo, _, _ := newTestService(t)

	// Counter says full but the roster has room: drifted state.
	ride := activeRide("driver@uni.br", 3)
	ride.Passengers = []string{"a@uni.br"}
	ride.Seats = 0
	repo.put(ride)

	if err := svc.Reserve(ctxAs("rider@uni.br", types.RolePassenger), ride.ID); err != nil {
		t.Fatalf("Reserve after drift: %v", err)
	}
	if repo.reconciled != 1 {
		t.Errorf("reconciled = %d, want 1", repo.reconciled)
	}

	got, _ := repo.Get(context.Background(), ride.ID)
	if !got.SeatsConsistent() {
		t.Errorf("still inconsistent after repair: seats=%d passengers=%d", got.Seats, len(got.Passengers))
	}
	if !got.HasPassenger("rider@uni.br") {
		t.Errorf("reservation lost after repair")
	}
}

func TestCancel(t *testing.T) {
	svc, repo, pub, _ := newTestService(t)

	ride := activeRide("driver@uni.br", 2)
	ride.Passengers = []string{"rider@uni.br"}
	ride.Seats = 1
	repo.put(ride)

	ctx := ctxAs("rider@uni.br", types.RolePassenger)
	if err := svc.Cancel(ctx, ride.ID); err != nil {
		t.Fatalf("Cancel: %v", err)
	}

	got, _ := repo.Get(context.Background(), ride.ID)
	if got.HasPassenger("rider@uni.br") || got.Seats != 2 {
		t.Errorf("seat not released: seats=%d passengers=%v", got.Seats, got.Passengers)
	}
	if msg, _ := pub.last(); msg.Event != types.EventSeatReleased {
		t.Errorf("event = %v, want SEAT_RELEASED", msg.Event)
	}

	// Second cancel is a no-op, not an error.
	if err := svc.Cancel(ctx, ride.ID); err != nil {
		t.Fatalf("repeated Cancel: %v", err)
	}
	got, _ = repo.Get(context.Background(), ride.ID)
	if got.Seats != 2 {
		t.Errorf("repeated cancel changed seats to %d", got.Seats)
	}
}

func TestCancelUnknownRide(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	err := svc.Cancel(ctxAs("rider@uni.br", types.RolePassenger), uuid.MustNew())
	if !errors.Is(err, types.ErrRideNotFound) {
		t.Fatalf("err = %v, want ErrRideNotFound", err)
	}
}

func TestComplete(t *testing.T) {
	svc, repo, pub, _ := newTestService(t)

	ride := activeRide("driver@uni.br", 2)
	repo.put(ride)

	ctx := ctxAs("driver@uni.br", types.RoleDriver)
	if err := svc.Complete(ctx, ride.ID); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	got, _ := repo.Get(context.Background(), ride.ID)
	if !got.IsCompleted() || got.CompletedAt == nil {
		t.Errorf("ride not completed: %+v", got)
	}
	if msg, _ := pub.last(); msg.Event != types.EventRideCompleted {
		t.Errorf("event = %v, want RIDE_COMPLETED", msg.Event)
	}

	// Completion is one-way and repeat calls are accepted quietly.
	if err := svc.Complete(ctx, ride.ID); err != nil {
		t.Fatalf("repeated Complete: %v", err)
	}
	again, _ := repo.Get(context.Background(), ride.ID)
	if again.Status != types.RideCompleted {
		t.Errorf("status moved out of completed: %q", again.Status)
	}
}

func TestCompleteOnlyDriver(t *testing.T) {
	svc, repo, _, _ := newTestService(t)

	ride := activeRide("driver@uni.br", 2)
	ride.Passengers = []string{"rider@uni.br"}
	ride.Seats = 1
	repo.put(ride)

	err := svc.Complete(ctxAs("rider@uni.br", types.RolePassenger), ride.ID)
	if !errors.Is(err, types.ErrNotRideDriver) {
		t.Fatalf("err = %v, want ErrNotRideDriver", err)
	}
}

func TestDelete(t *testing.T) {
	svc, repo, pub, _ := newTestService(t)

	ride := activeRide("driver@uni.br", 2)
	ride.Passengers = []string{"rider@uni.br"}
	ride.Seats = 1
	repo.put(ride)

	if err := svc.Delete(ctxAs("rider@uni.br", types.RolePassenger), ride.ID); !errors.Is(err, types.ErrNotRideDriver) {
		t.Fatalf("passenger delete err = %v, want ErrNotRideDriver", err)
	}

	if err := svc.Delete(ctxAs("driver@uni.br", types.RoleDriver), ride.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := repo.Get(context.Background(), ride.ID); !errors.Is(err, types.ErrRideNotFound) {
		t.Errorf("ride still present after delete")
	}

	// The audit event carries the last snapshot of the deleted ride.
	msg, _ := pub.last()
	if msg.Event != types.EventRideDeleted {
		t.Fatalf("event = %v, want RIDE_DELETED", msg.Event)
	}
	if msg.Ride == nil || !msg.Ride.HasPassenger("rider@uni.br") {
		t.Errorf("audit event lost the final snapshot: %+v", msg.Ride)
	}
}

func TestGetRepairsDriftedSnapshot(t *testing.T) {
	svc, repo, _, _ := newTestService(t)

	ride := activeRide("driver@uni.br", 3)
	ride.Passengers = []string{"a@uni.br", "b@uni.br"}
	ride.Seats = 3 // drifted: should be 1
	repo.put(ride)

	got, err := svc.Get(context.Background(), ride.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Seats != 1 {
		t.Errorf("returned seats = %d, want reconciled 1", got.Seats)
	}
	if repo.reconciled != 1 {
		t.Errorf("reconciled = %d, want 1", repo.reconciled)
	}
}

func TestSeatConservationOverSequence(t *testing.T) {
	svc, repo, _, _ := newTestService(t)

	ride := activeRide("driver@uni.br", 4)
	repo.put(ride)

	riders := []string{"p1@uni.br", "p2@uni.br", "p3@uni.br"}
	for _, r := range riders {
		if err := svc.Reserve(ctxAs(r, types.RolePassenger), ride.ID); err != nil {
			t.Fatalf("Reserve %s: %v", r, err)
		}
	}
	if err := svc.Cancel(ctxAs("p2@uni.br", types.RolePassenger), ride.ID); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if err := svc.Reserve(ctxAs("p4@uni.br", types.RolePassenger), ride.ID); err != nil {
		t.Fatalf("Reserve p4: %v", err)
	}

	got, _ := repo.Get(context.Background(), ride.ID)
	if !got.SeatsConsistent() {
		t.Fatalf("conservation broken: seats=%d passengers=%d capacity=%d",
			got.Seats, len(got.Passengers), got.Capacity)
	}
	if got.Seats != 1 || len(got.Passengers) != 3 {
		t.Errorf("final seats=%d passengers=%v", got.Seats, got.Passengers)
	}
}
