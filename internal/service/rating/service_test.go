package rating

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

type fakeRideRepo struct {
	mu    sync.Mutex
	rides map[uuid.UUID]*models.Ride
}

func (f *fakeRideRepo) put(r *models.Ride) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *r
	f.rides[r.ID] = &cp
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

func (f *fakeRideRepo) MarkRated(_ context.Context, rideID uuid.UUID, raterID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rides[rideID]
	if !ok || r.Status != types.RideCompleted || slices.Contains(r.UsersWhoRated, raterID) {
		return false, nil
	}
	if r.DriverID != raterID && !slices.Contains(r.Passengers, raterID) {
		return false, nil
	}
	r.UsersWhoRated = append(r.UsersWhoRated, raterID)
	return true, nil
}

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]*models.User

	failAddRating error
}

func (f *fakeUserRepo) GetUser(_ context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[email]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUserRepo) AddRating(_ context.Context, email string, stars int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAddRating != nil {
		return f.failAddRating
	}
	u, ok := f.users[email]
	if !ok {
		return types.ErrUserNotFound
	}
	u.TotalStars += stars
	u.RatingCount++
	return nil
}

// fakeTxManager copies the stores on entry and restores them when the body
// fails, mimicking a rollback.
type fakeTxManager struct {
	rides *fakeRideRepo
	users *fakeUserRepo
}

func (f *fakeTxManager) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	ridesBefore := map[uuid.UUID]*models.Ride{}
	f.rides.mu.Lock()
	for id, r := range f.rides.rides {
		cp := *r
		cp.Passengers = slices.Clone(r.Passengers)
		cp.UsersWhoRated = slices.Clone(r.UsersWhoRated)
		ridesBefore[id] = &cp
	}
	f.rides.mu.Unlock()

	usersBefore := map[string]*models.User{}
	f.users.mu.Lock()
	for email, u := range f.users.users {
		cp := *u
		usersBefore[email] = &cp
	}
	f.users.mu.Unlock()

	if err := fn(ctx); err != nil {
		f.rides.mu.Lock()
		f.rides.rides = ridesBefore
		f.rides.mu.Unlock()
		f.users.mu.Lock()
		f.users.users = usersBefore
		f.users.mu.Unlock()
		return err
	}
	return nil
}

func (f *fakeTxManager) DoReadOnly(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
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

type fakeNotifier struct{ n int }

func (f *fakeNotifier) Notify() { f.n++ }

func ctxAs(email string, role types.UserRole) context.Context {
	u := &models.User{Email: email, Name: email, Role: role}
	return models.WithSession(context.Background(), models.NewSession(u))
}

func completedRide(driver string, passengers ...string) *models.Ride {
	now := time.Now()
	return &models.Ride{
		ID:            uuid.MustNew(),
		From:          "Campus",
		To:            "Centro",
		Capacity:      len(passengers) + 1,
		Seats:         1,
		DriverID:      driver,
		DriverName:    driver,
		Passengers:    passengers,
		Status:        types.RideCompleted,
		UsersWhoRated: []string{},
		CreatedAt:     now.Add(-time.Hour),
		CompletedAt:   &now,
	}
}

func newTestService(t *testing.T) (*RatingService, *fakeRideRepo, *fakeUserRepo, *fakePublisher) {
	t.Helper()
	rides := &fakeRideRepo{rides: map[uuid.UUID]*models.Ride{}}
	users := &fakeUserRepo{users: map[string]*models.User{}}
	pub := &fakePublisher{}
	svc := NewRatingService(rides, users, pub, &fakeNotifier{}, logger.NewDiscard(), &fakeTxManager{rides: rides, users: users})
	return svc, rides, users, pub
}

func TestCanRate(t *testing.T) {
	driver := "driver@uni.br"
	rider := "rider@uni.br"

	tests := []struct {
		name    string
		prepare func(r *models.Ride)
		actor   string
		wantErr error
	}{
		{
			name:  "driver may rate on completed ride",
			actor: driver,
		},
		{
			name:  "passenger may rate on completed ride",
			actor: rider,
		},
		{
			name: "active ride blocks rating",
			prepare: func(r *models.Ride) {
				r.Status = types.RideActive
				r.CompletedAt = nil
			},
			actor:   rider,
			wantErr: types.ErrRideNotCompleted,
		},
		{
			name:    "outsider cannot rate",
			actor:   "stranger@uni.br",
			wantErr: types.ErrNotParticipant,
		},
		{
			name: "second rating blocked",
			prepare: func(r *models.Ride) {
				r.UsersWhoRated = []string{rider}
			},
			actor:   rider,
			wantErr: types.ErrAlreadyRated,
		},
		{
			name: "other side unaffected by first rating",
			prepare: func(r *models.Ride) {
				r.UsersWhoRated = []string{rider}
			},
			actor: driver,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, rides, _, _ := newTestService(t)

			ride := completedRide(driver, rider)
			if tt.prepare != nil {
				tt.prepare(ride)
			}
			rides.put(ride)

			err := svc.CanRate(ctxAs(tt.actor, types.RoleBoth), ride.ID)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("CanRate err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestSubmitRating(t *testing.T) {
	svc, rides, users, pub := newTestService(t)

	driver := "driver@uni.br"
	rider := "rider@uni.br"
	ride := completedRide(driver, rider)
	rides.put(ride)
	users.users[driver] = &models.User{Email: driver, Role: types.RoleDriver, TotalStars: 5, RatingCount: 1}
	users.users[rider] = &models.User{Email: rider, Role: types.RolePassenger}

	if err := svc.SubmitRating(ctxAs(rider, types.RolePassenger), ride.ID, driver, 4); err != nil {
		t.Fatalf("SubmitRating: %v", err)
	}

	u, _ := users.GetUser(context.Background(), driver)
	if u.TotalStars != 9 || u.RatingCount != 2 {
		t.Errorf("counters = %d/%d, want 9/2", u.TotalStars, u.RatingCount)
	}
	if got := u.AverageRating(); got != 4.5 {
		t.Errorf("average = %v, want 4.5", got)
	}

	got, _ := rides.Get(context.Background(), ride.ID)
	if !got.HasRated(rider) {
		t.Errorf("rater flag missing after submit")
	}
	if len(pub.events) != 1 || pub.events[0].Event != types.EventRideRated {
		t.Errorf("expected one RIDE_RATED event, got %+v", pub.events)
	}

	// One-shot: the same rater cannot submit twice.
	err := svc.SubmitRating(ctxAs(rider, types.RolePassenger), ride.ID, driver, 5)
	if !errors.Is(err, types.ErrAlreadyRated) {
		t.Fatalf("second submit err = %v, want ErrAlreadyRated", err)
	}
	u, _ = users.GetUser(context.Background(), driver)
	if u.TotalStars != 9 || u.RatingCount != 2 {
		t.Errorf("counters moved on rejected submit: %d/%d", u.TotalStars, u.RatingCount)
	}

	// The driver's own rating is independent of the passenger's.
	if err := svc.SubmitRating(ctxAs(driver, types.RoleDriver), ride.ID, rider, 5); err != nil {
		t.Fatalf("driver submit: %v", err)
	}
	r, _ := users.GetUser(context.Background(), rider)
	if r.TotalStars != 5 || r.RatingCount != 1 {
		t.Errorf("rider counters = %d/%d, want 5/1", r.TotalStars, r.RatingCount)
	}
}

func TestSubmitRatingValidation(t *testing.T) {
	driver := "driver@uni.br"
	riderA := "a@uni.br"
	riderB := "b@uni.br"

	tests := []struct {
		name    string
		actor   string
		rated   string
		stars   int
		wantErr error
	}{
		{"stars too low", riderA, driver, 0, types.ErrInvalidStars},
		{"stars too high", riderA, driver, 6, types.ErrInvalidStars},
		{"self rating", riderA, riderA, 3, types.ErrInvalidRatedUser},
		{"empty target", riderA, "", 3, types.ErrInvalidRatedUser},
		{"passenger rating passenger", riderA, riderB, 3, types.ErrInvalidRatedUser},
		{"driver rating outsider", driver, "stranger@uni.br", 3, types.ErrInvalidRatedUser},
		{"driver rating chosen passenger", driver, riderB, 3, nil},
		{"passenger rating driver", riderA, driver, 3, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, rides, users, _ := newTestService(t)

			ride := completedRide(driver, riderA, riderB)
			rides.put(ride)
			for _, email := range []string{driver, riderA, riderB} {
				users.users[email] = &models.User{Email: email, Role: types.RoleBoth}
			}

			err := svc.SubmitRating(ctxAs(tt.actor, types.RoleBoth), ride.ID, tt.rated, tt.stars)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestSubmitRatingRetryAfterFailure(t *testing.T) {
	svc, rides, users, _ := newTestService(t)

	driver := "driver@uni.br"
	rider := "rider@uni.br"
	ride := completedRide(driver, rider)
	rides.put(ride)
	users.users[driver] = &models.User{Email: driver, Role: types.RoleDriver}

	// First attempt flips the flag but the counter update fails; the
	// transaction rolls both back.
	users.failAddRating = types.ErrDatabaseFailed
	err := svc.SubmitRating(ctxAs(rider, types.RolePassenger), ride.ID, driver, 4)
	if !errors.Is(err, types.ErrDatabaseFailed) {
		t.Fatalf("failed submit err = %v, want ErrDatabaseFailed", err)
	}
	got, _ := rides.Get(context.Background(), ride.ID)
	if got.HasRated(rider) {
		t.Fatalf("flag survived the rollback")
	}

	// The retry goes through cleanly and counts once.
	users.failAddRating = nil
	if err := svc.SubmitRating(ctxAs(rider, types.RolePassenger), ride.ID, driver, 4); err != nil {
		t.Fatalf("retry: %v", err)
	}
	u, _ := users.GetUser(context.Background(), driver)
	if u.TotalStars != 4 || u.RatingCount != 1 {
		t.Errorf("counters = %d/%d, want 4/1", u.TotalStars, u.RatingCount)
	}
}
