package service

import (
	"context"
	"errors"
	"shareit/internal/bookings/events"
	"shareit/internal/bookings/query"
	"shareit/internal/testutil/memstore"
	"shareit/pkg/config"
	apperrors "shareit/pkg/errors"
	"shareit/pkg/logger"
	"shareit/pkg/model"
	"shareit/pkg/validator"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2030, 6, 1, 12, 0, 0, 0, time.UTC)

func at(hours int) *time.Time {
	t := testNow.Add(time.Duration(hours) * time.Hour)
	return &t
}

func id(v int64) *int64 { return &v }

type recordingPublisher struct {
	mu     sync.Mutex
	events []string
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, eventType string, event events.BookingEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, eventType)
	return p.err
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.events...)
}

type fixture struct {
	store *memstore.Store
	svc   *bookingService
	pub   *recordingPublisher
}

// newFixture seeds owner A (1), bookers B (2) and C (3), owner D (4),
// item I (10) owned by A and item 11 owned by D which is unavailable.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memstore.New()
	store.PutUser(model.User{ID: 1, Name: "A", Email: "a@example.com"})
	store.PutUser(model.User{ID: 2, Name: "B", Email: "b@example.com"})
	store.PutUser(model.User{ID: 3, Name: "C", Email: "c@example.com"})
	store.PutUser(model.User{ID: 4, Name: "D", Email: "d@example.com"})
	store.PutItem(model.Item{ID: 10, Name: "Drill", Description: "cordless", Available: true, OwnerID: 1})
	store.PutItem(model.Item{ID: 11, Name: "Saw", Description: "rusty", Available: false, OwnerID: 4})

	clock := func() time.Time { return testNow }
	cfg := &config.Config{Log: logger.Discard(), BookingLockTTL: time.Second}
	pub := &recordingPublisher{}

	svc := NewBookingService(
		store.Bookings(),
		store.Locks(),
		store.Items(),
		store.Users(),
		validator.NewWithClock(cfg.Log, clock),
		pub,
		cfg,
	).(*bookingService)
	svc.clock = clock

	return &fixture{store: store, svc: svc, pub: pub}
}

func (f *fixture) create(t *testing.T, bookerID, itemID int64, start, end int) *model.BookingView {
	t.Helper()
	view, err := f.svc.Create(context.Background(), bookerID, &model.BookingInput{ItemID: id(itemID), Start: at(start), End: at(end)})
	require.NoError(t, err)
	return view
}

func requireCode(t *testing.T, err error, code string) *apperrors.AppError {
	t.Helper()
	require.Error(t, err)
	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %v", err)
	assert.Equal(t, code, appErr.Code, appErr.Message)
	return appErr
}

func TestCreate_OrderedChecks(t *testing.T) {
	tests := []struct {
		name     string
		bookerID int64
		input    *model.BookingInput
		code     string
		message  string
	}{
		{
			name:     "nil body",
			bookerID: 2,
			input:    nil,
			code:     apperrors.CodeInvalidInput,
		},
		{
			name:     "missing item id",
			bookerID: 2,
			input:    &model.BookingInput{Start: at(1), End: at(2)},
			code:     apperrors.CodeValidation,
		},
		{
			name:     "start in the past",
			bookerID: 2,
			input:    &model.BookingInput{ItemID: id(10), Start: at(-1), End: at(2)},
			code:     apperrors.CodeValidation,
		},
		{
			name:     "unknown booker before unknown item",
			bookerID: 99,
			input:    &model.BookingInput{ItemID: id(404), Start: at(1), End: at(2)},
			code:     apperrors.CodeNotFound,
			message:  "User with id 99 not found",
		},
		{
			name:     "unknown item",
			bookerID: 2,
			input:    &model.BookingInput{ItemID: id(404), Start: at(1), End: at(2)},
			code:     apperrors.CodeNotFound,
			message:  "Item with id 404 not found",
		},
		{
			name:     "owner books own unavailable item gets forbidden first",
			bookerID: 4,
			input:    &model.BookingInput{ItemID: id(11), Start: at(2), End: at(1)},
			code:     apperrors.CodeForbidden,
			message:  "This is your thing",
		},
		{
			name:     "unavailable item before bad interval",
			bookerID: 2,
			input:    &model.BookingInput{ItemID: id(11), Start: at(2), End: at(1)},
			code:     apperrors.CodeNoAccess,
		},
		{
			name:     "end equals start",
			bookerID: 2,
			input:    &model.BookingInput{ItemID: id(10), Start: at(2), End: at(2)},
			code:     apperrors.CodeInvalidInterval,
		},
		{
			name:     "end before start",
			bookerID: 2,
			input:    &model.BookingInput{ItemID: id(10), Start: at(3), End: at(2)},
			code:     apperrors.CodeInvalidInterval,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := f.svc.Create(context.Background(), tt.bookerID, tt.input)
			appErr := requireCode(t, err, tt.code)
			if tt.message != "" {
				assert.Equal(t, tt.message, appErr.Message)
			}
			assert.Empty(t, f.store.AllBookings())
			assert.Empty(t, f.pub.types())
		})
	}
}

func TestCreate_StoresWaitingBookingAndPublishes(t *testing.T) {
	f := newFixture(t)

	view := f.create(t, 2, 10, 1, 3)

	assert.Equal(t, model.StatusWaiting, view.Status)
	assert.Equal(t, "Drill", view.Item.Name)
	assert.Equal(t, "B", view.Booker.Name)
	assert.Equal(t, []string{events.EventBookingCreated}, f.pub.types())
	assert.False(t, f.store.Locks().Held(10), "lock must be released")
}

func TestCreate_PublishFailureDoesNotFailRequest(t *testing.T) {
	f := newFixture(t)
	f.pub.err = errors.New("broker down")

	view := f.create(t, 2, 10, 1, 3)
	assert.Equal(t, model.StatusWaiting, view.Status)
	assert.Len(t, f.store.AllBookings(), 1)
}

func TestCreate_LockHeldIsConflict(t *testing.T) {
	f := newFixture(t)
	_, err := f.store.Locks().Acquire(context.Background(), 10)
	require.NoError(t, err)

	_, err = f.svc.Create(context.Background(), 2, &model.BookingInput{ItemID: id(10), Start: at(1), End: at(2)})
	requireCode(t, err, apperrors.CodeConflict)
}

func TestCreate_StoreFailureIsInternal(t *testing.T) {
	f := newFixture(t)
	f.store.Fail(errors.New("mongo gone"))

	_, err := f.svc.Create(context.Background(), 2, &model.BookingInput{ItemID: id(10), Start: at(1), End: at(2)})
	requireCode(t, err, apperrors.CodeInternal)
}

func TestCreate_OverlapRules(t *testing.T) {
	tests := []struct {
		name       string
		seedStatus model.BookingStatus
		start, end int
		wantErr    bool
	}{
		{name: "overlapping waiting", seedStatus: model.StatusWaiting, start: 12, end: 15, wantErr: true},
		{name: "overlapping approved", seedStatus: model.StatusApproved, start: 5, end: 11, wantErr: true},
		{name: "overlapping canceled still blocks", seedStatus: model.StatusCanceled, start: 11, end: 12, wantErr: true},
		{name: "overlapping rejected is ignored", seedStatus: model.StatusRejected, start: 11, end: 12, wantErr: false},
		{name: "touching before", seedStatus: model.StatusApproved, start: 5, end: 10, wantErr: false},
		{name: "touching after", seedStatus: model.StatusApproved, start: 20, end: 25, wantErr: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.store.PutBooking(model.Booking{ID: 1, Start: *at(10), End: *at(20), ItemID: 10, BookerID: 2, Status: tt.seedStatus})

			_, err := f.svc.Create(context.Background(), 3, &model.BookingInput{ItemID: id(10), Start: at(tt.start), End: at(tt.end)})
			if tt.wantErr {
				requireCode(t, err, apperrors.CodeInvalidInterval)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestCreate_ConcurrentRequestsNeverOverlap(t *testing.T) {
	f := newFixture(t)

	var wg sync.WaitGroup
	for i := 0; i < 24; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			bookerID := int64(2 + i%2)
			start := 1 + i%6
			_, err := f.svc.Create(context.Background(), bookerID, &model.BookingInput{ItemID: id(10), Start: at(start), End: at(start + 3)})
			if err != nil {
				code := apperrors.AsAppError(err).Code
				assert.Contains(t, []string{apperrors.CodeInvalidInterval, apperrors.CodeConflict}, code)
			}
		}(i)
	}
	wg.Wait()

	stored := f.store.AllBookings()
	require.NotEmpty(t, stored)
	for i := range stored {
		for j := i + 1; j < len(stored); j++ {
			assert.False(t, stored[i].Overlaps(stored[j].Start, stored[j].End),
				"bookings %d and %d overlap", stored[i].ID, stored[j].ID)
		}
	}
	assert.False(t, f.store.Locks().Held(10))
}

// grantingLocks never blocks, leaving the transaction guard as the only
// protection against overlapping creates.
type grantingLocks struct{}

func (grantingLocks) Acquire(ctx context.Context, itemID int64) (string, error) { return "token", nil }
func (grantingLocks) Release(ctx context.Context, itemID int64, token string) error { return nil }

func TestCreate_TransactionGuardAloneKeepsBookingsApart(t *testing.T) {
	f := newFixture(t)
	svc := NewBookingService(f.store.Bookings(), grantingLocks{}, f.store.Items(), f.store.Users(), f.svc.validator, f.pub, f.svc.cfg).(*bookingService)
	svc.clock = f.svc.clock

	var wg sync.WaitGroup
	for i := 0; i < 24; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			start := 1 + i%6
			_, err := svc.Create(context.Background(), int64(2+i%2), &model.BookingInput{ItemID: id(10), Start: at(start), End: at(start + 3)})
			if err != nil {
				assert.Equal(t, apperrors.CodeInvalidInterval, apperrors.AsAppError(err).Code, err.Error())
			}
		}(i)
	}
	wg.Wait()

	stored := f.store.AllBookings()
	require.NotEmpty(t, stored)
	for i := range stored {
		for j := i + 1; j < len(stored); j++ {
			assert.False(t, stored[i].Overlaps(stored[j].Start, stored[j].End),
				"bookings %d and %d overlap", stored[i].ID, stored[j].ID)
		}
	}
	assert.EqualValues(t, len(stored), f.store.GuardVersion(10))
}

// pausingBookings holds the first overlap read open until resume is closed.
type pausingBookings struct {
	*memstore.BookingRepo
	paused  atomic.Bool
	reached chan struct{}
	resume  chan struct{}
}

func (p *pausingBookings) FindOverlapping(ctx context.Context, itemID int64, start, end time.Time) ([]*model.Booking, error) {
	out, err := p.BookingRepo.FindOverlapping(ctx, itemID, start, end)
	if p.paused.CompareAndSwap(false, true) {
		close(p.reached)
		<-p.resume
	}
	return out, err
}

func TestCreate_StalledRequestOutlivingItsLock(t *testing.T) {
	f := newFixture(t)
	bookings := &pausingBookings{
		BookingRepo: f.store.Bookings(),
		reached:     make(chan struct{}),
		resume:      make(chan struct{}),
	}
	svc := NewBookingService(bookings, f.store.Locks(), f.store.Items(), f.store.Users(), f.svc.validator, f.pub, f.svc.cfg).(*bookingService)
	svc.clock = f.svc.clock
	ctx := context.Background()

	var errA error
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, errA = svc.Create(ctx, 2, &model.BookingInput{ItemID: id(10), Start: at(1), End: at(5)})
	}()
	<-bookings.reached

	// The lock TTL fires while the first request is still inside its transaction.
	f.store.Locks().Expire(10)
	_, errB := svc.Create(ctx, 3, &model.BookingInput{ItemID: id(10), Start: at(2), End: at(6)})
	require.NoError(t, errB)

	// A third request holds the lock when the stalled one finishes.
	token, err := f.store.Locks().Acquire(ctx, 10)
	require.NoError(t, err)

	close(bookings.resume)
	<-done

	requireCode(t, errA, apperrors.CodeInvalidInterval)
	stored := f.store.AllBookings()
	require.Len(t, stored, 1)
	assert.EqualValues(t, 3, stored[0].BookerID)
	assert.True(t, f.store.Locks().Held(10), "a stale release must not drop another request's lock")

	require.NoError(t, f.store.Locks().Release(ctx, 10, token))
	assert.False(t, f.store.Locks().Held(10))
}

func TestBookingScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first := f.create(t, 2, 10, 1, 3)

	_, err := f.svc.Create(ctx, 3, &model.BookingInput{ItemID: id(10), Start: at(2), End: at(4)})
	requireCode(t, err, apperrors.CodeInvalidInterval)

	waiting, err := f.svc.List(ctx, 1, query.RoleOwner, "WAITING", model.Page{Size: 10})
	require.NoError(t, err)
	require.Len(t, waiting, 1)

	approved, err := f.svc.Decide(ctx, 1, first.ID, true)
	require.NoError(t, err)
	assert.Equal(t, model.StatusApproved, approved.Status)

	_, err = f.svc.Decide(ctx, 1, first.ID, true)
	requireCode(t, err, apperrors.CodeInvalidState)

	waiting, err = f.svc.List(ctx, 1, query.RoleOwner, "WAITING", model.Page{Size: 10})
	require.NoError(t, err)
	assert.Empty(t, waiting)

	all, err := f.svc.List(ctx, 1, query.RoleOwner, "ALL", model.Page{Size: 10})
	require.NoError(t, err)
	assert.Len(t, all, 1)

	_, err = f.svc.List(ctx, 1, query.RoleOwner, "Frobnicate", model.Page{Size: 10})
	appErr := requireCode(t, err, apperrors.CodeBadRequest)
	assert.Equal(t, "Unknown state: Frobnicate", appErr.Message)

	_, err = f.svc.Create(ctx, 4, &model.BookingInput{ItemID: id(11), Start: at(1), End: at(2)})
	appErr = requireCode(t, err, apperrors.CodeForbidden)
	assert.Equal(t, "This is your thing", appErr.Message)

	assert.Equal(t, []string{events.EventBookingCreated, events.EventBookingDecided}, f.pub.types())
}

func TestDecide(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.store.PutBooking(model.Booking{ID: 1, Start: *at(1), End: *at(2), ItemID: 10, BookerID: 2, Status: model.StatusWaiting})

	t.Run("unknown booking is absent", func(t *testing.T) {
		_, err := f.svc.Decide(ctx, 1, 77, true)
		requireCode(t, err, apperrors.CodeNotFound)
		assert.Equal(t, apperrors.ReasonAbsent, apperrors.ReasonOf(err))
	})

	t.Run("booker cannot decide and sees not found", func(t *testing.T) {
		_, err := f.svc.Decide(ctx, 2, 1, true)
		requireCode(t, err, apperrors.CodeNotFound)
		assert.Equal(t, apperrors.ReasonUnauthorized, apperrors.ReasonOf(err))
	})

	t.Run("owner rejects", func(t *testing.T) {
		view, err := f.svc.Decide(ctx, 1, 1, false)
		require.NoError(t, err)
		assert.Equal(t, model.StatusRejected, view.Status)
		assert.Equal(t, "B", view.Booker.Name)
	})

	t.Run("second decision is invalid state", func(t *testing.T) {
		_, err := f.svc.Decide(ctx, 1, 1, true)
		requireCode(t, err, apperrors.CodeInvalidState)
	})
}

func TestCancel(t *testing.T) {
	tests := []struct {
		name     string
		booking  model.Booking
		callerID int64
		code     string
	}{
		{
			name:     "booker cancels waiting",
			booking:  model.Booking{ID: 1, Start: *at(5), End: *at(6), ItemID: 10, BookerID: 2, Status: model.StatusWaiting},
			callerID: 2,
		},
		{
			name:     "booker cancels approved",
			booking:  model.Booking{ID: 1, Start: *at(5), End: *at(6), ItemID: 10, BookerID: 2, Status: model.StatusApproved},
			callerID: 2,
		},
		{
			name:     "stranger sees not found",
			booking:  model.Booking{ID: 1, Start: *at(5), End: *at(6), ItemID: 10, BookerID: 2, Status: model.StatusWaiting},
			callerID: 3,
			code:     apperrors.CodeNotFound,
		},
		{
			name:     "rejected cannot be canceled",
			booking:  model.Booking{ID: 1, Start: *at(5), End: *at(6), ItemID: 10, BookerID: 2, Status: model.StatusRejected},
			callerID: 2,
			code:     apperrors.CodeInvalidState,
		},
		{
			name:     "started booking cannot be canceled",
			booking:  model.Booking{ID: 1, Start: *at(-1), End: *at(6), ItemID: 10, BookerID: 2, Status: model.StatusApproved},
			callerID: 2,
			code:     apperrors.CodeInvalidState,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.store.PutBooking(tt.booking)

			view, err := f.svc.Cancel(context.Background(), tt.callerID, tt.booking.ID)
			if tt.code != "" {
				requireCode(t, err, tt.code)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, model.StatusCanceled, view.Status)
			assert.Equal(t, []string{events.EventBookingCanceled}, f.pub.types())
		})
	}
}

func TestGetByID_Visibility(t *testing.T) {
	f := newFixture(t)
	f.store.PutBooking(model.Booking{ID: 1, Start: *at(1), End: *at(2), ItemID: 10, BookerID: 2, Status: model.StatusWaiting})

	for _, viewer := range []int64{1, 2} {
		view, err := f.svc.GetByID(context.Background(), viewer, 1)
		require.NoError(t, err)
		assert.Equal(t, "Drill", view.Item.Name)
	}

	_, err := f.svc.GetByID(context.Background(), 3, 1)
	requireCode(t, err, apperrors.CodeNotFound)
	assert.Equal(t, apperrors.ReasonUnauthorized, apperrors.ReasonOf(err))

	_, err = f.svc.GetByID(context.Background(), 99, 1)
	appErr := requireCode(t, err, apperrors.CodeNotFound)
	assert.Equal(t, "User with id 99 not found", appErr.Message)
}

func TestList_StatesAndRoles(t *testing.T) {
	f := newFixture(t)
	f.store.PutItem(model.Item{ID: 12, Name: "Tent", Description: "4p", Available: true, OwnerID: 1})
	f.store.PutBooking(model.Booking{ID: 1, Start: *at(-10), End: *at(-5), ItemID: 10, BookerID: 2, Status: model.StatusApproved})
	f.store.PutBooking(model.Booking{ID: 2, Start: *at(-1), End: *at(1), ItemID: 12, BookerID: 2, Status: model.StatusApproved})
	f.store.PutBooking(model.Booking{ID: 3, Start: *at(5), End: *at(6), ItemID: 10, BookerID: 2, Status: model.StatusWaiting})
	f.store.PutBooking(model.Booking{ID: 4, Start: *at(7), End: *at(8), ItemID: 10, BookerID: 3, Status: model.StatusRejected})

	tests := []struct {
		role  query.Role
		user  int64
		state string
		want  []int64
	}{
		{role: query.RoleBooker, user: 2, state: "", want: []int64{3, 2, 1}},
		{role: query.RoleBooker, user: 2, state: "PAST", want: []int64{1}},
		{role: query.RoleBooker, user: 2, state: "CURRENT", want: []int64{2}},
		{role: query.RoleBooker, user: 2, state: "FUTURE", want: []int64{3}},
		{role: query.RoleBooker, user: 2, state: "WAITING", want: []int64{3}},
		{role: query.RoleBooker, user: 3, state: "REJECTED", want: []int64{4}},
		{role: query.RoleOwner, user: 1, state: "ALL", want: []int64{4, 3, 2, 1}},
		{role: query.RoleOwner, user: 4, state: "ALL", want: []int64{}},
	}

	for _, tt := range tests {
		t.Run(string(tt.role)+"/"+tt.state, func(t *testing.T) {
			views, err := f.svc.List(context.Background(), tt.user, tt.role, tt.state, model.Page{Size: 20})
			require.NoError(t, err)
			got := make([]int64, 0, len(views))
			for _, v := range views {
				got = append(got, v.ID)
			}
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("unknown user", func(t *testing.T) {
		_, err := f.svc.List(context.Background(), 99, query.RoleBooker, "ALL", model.Page{Size: 20})
		requireCode(t, err, apperrors.CodeNotFound)
	})

	t.Run("state is checked before the user", func(t *testing.T) {
		_, err := f.svc.List(context.Background(), 99, query.RoleBooker, "waiting", model.Page{Size: 20})
		requireCode(t, err, apperrors.CodeBadRequest)
	})

	t.Run("paging", func(t *testing.T) {
		views, err := f.svc.List(context.Background(), 2, query.RoleBooker, "ALL", model.Page{From: 1, Size: 1})
		require.NoError(t, err)
		require.Len(t, views, 1)
		assert.EqualValues(t, 2, views[0].ID)
	})
}
