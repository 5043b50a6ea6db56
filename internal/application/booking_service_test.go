package application

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rentbridge/service-booking/internal/contracts"
	bookingDomain "github.com/rentbridge/service-booking/internal/domain/booking"
	propertyDomain "github.com/rentbridge/service-booking/internal/domain/property"
	userDomain "github.com/rentbridge/service-booking/internal/domain/user"
	"github.com/rentbridge/service-booking/pkg/auth"
	"github.com/rentbridge/service-booking/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fixture struct {
	store      *memStore
	publisher  *recordingPublisher
	bookings   *BookingService
	properties *PropertyService
	users      *UserService
	wishlist   *WishlistService
	admin      *AdminService

	ownerID  uuid.UUID
	property *propertyDomain.Property
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := newMemStore()
	pub := &recordingPublisher{}
	log := zap.NewNop()

	bookingRepo := memBookings{store}
	propertyRepo := memProperties{store}
	userRepo := memUsers{store}

	f := &fixture{
		store:     store,
		publisher: pub,
		ownerID:   uuid.New(),
	}
	f.bookings = NewBookingService(store, bookingRepo, propertyRepo, userRepo, pub, log)
	f.properties = NewPropertyService(store, propertyRepo, pub, log)
	f.wishlist = NewWishlistService(memFavorites{store}, propertyRepo, log)
	f.users = NewUserService(userRepo, f.bookings, f.properties, f.wishlist, log)
	f.admin = NewAdminService(bookingRepo, propertyRepo, userRepo)

	require.NoError(t, userRepo.Upsert(context.Background(), &userDomain.User{ID: f.ownerID, Name: "Olu Owner", Email: "olu@example.com", Role: userDomain.RoleOwner}))
	f.property = f.addProperty(t, f.ownerID)
	return f
}

func (f *fixture) addProperty(t *testing.T, ownerID uuid.UUID) *propertyDomain.Property {
	t.Helper()
	p, err := propertyDomain.NewProperty(ownerID, propertyDomain.Listing{
		Title:        "Harbour loft",
		PropertyType: "apartment",
		Address:      "12 Harbour Rd",
		City:         "Lagos",
		State:        "LA",
		RentCents:    120000,
	})
	require.NoError(t, err)
	f.store.addProperty(p)
	return p
}

func stay() (time.Time, time.Time) {
	start := time.Now().UTC().AddDate(0, 0, 7).Truncate(time.Hour)
	return start, start.AddDate(0, 0, 3)
}

func (f *fixture) request(renterID uuid.UUID, mode bookingDomain.CreationMode) (*BookingDTO, error) {
	start, end := stay()
	return f.bookings.CreateBooking(context.Background(), CreateBookingInput{
		PropertyID: f.property.ID(),
		RenterID:   renterID,
		RenterName: "Renter " + renterID.String()[:4],
		StartDate:  start,
		EndDate:    end,
		Mode:       mode,
	})
}

func (f *fixture) propertyStatus() propertyDomain.Status {
	return f.store.property(f.property.ID()).Status()
}

// assertConsistent checks that every property's status matches its active bookings.
func (f *fixture) assertConsistent(t *testing.T) {
	t.Helper()
	perProperty := map[uuid.UUID][]*bookingDomain.Booking{}
	for _, b := range f.store.allBookings() {
		if b.Status().IsActive() {
			perProperty[b.PropertyID()] = append(perProperty[b.PropertyID()], b)
		}
	}
	f.store.mu.Lock()
	ids := make([]uuid.UUID, 0, len(f.store.properties))
	for id := range f.store.properties {
		if !f.store.deleted[id] {
			ids = append(ids, id)
		}
	}
	f.store.mu.Unlock()

	for _, id := range ids {
		active := perProperty[id]
		require.LessOrEqual(t, len(active), 1, "property %s has more than one active booking", id)
		want := propertyDomain.StatusAvailable
		if len(active) == 1 {
			want = propertyDomain.StatusPending
			if active[0].Status() == bookingDomain.StatusApproved {
				want = propertyDomain.StatusBooked
			}
		}
		assert.Equal(t, want, f.store.property(id).Status(), "property %s", id)
	}
}

func TestCreateBooking_Request(t *testing.T) {
	f := newFixture(t)
	renter := uuid.New()

	bk, err := f.request(renter, bookingDomain.ModeRequest)
	require.NoError(t, err)

	assert.Equal(t, "pending", bk.Status)
	assert.Equal(t, "Olu Owner", bk.OwnerName)
	assert.Equal(t, "Harbour loft", bk.PropertyName)
	assert.Equal(t, f.ownerID, bk.OwnerID)
	assert.Equal(t, 3, bk.Nights)
	assert.Equal(t, propertyDomain.StatusPending, f.propertyStatus())
	assert.Equal(t, []string{contracts.BookingRequested}, f.publisher.types())
	f.assertConsistent(t)
}

func TestCreateBooking_Direct(t *testing.T) {
	f := newFixture(t)

	bk, err := f.request(uuid.New(), bookingDomain.ModeDirect)
	require.NoError(t, err)

	assert.Equal(t, "approved", bk.Status)
	assert.Equal(t, propertyDomain.StatusBooked, f.propertyStatus())
	assert.Equal(t, []string{contracts.BookingConfirmed}, f.publisher.types())
}

func TestCreateBooking_OwnerNameFallbacks(t *testing.T) {
	f := newFixture(t)
	stranger := uuid.New()
	f.property = f.addProperty(t, stranger)
	start, end := stay()

	bk, err := f.bookings.CreateBooking(context.Background(), CreateBookingInput{
		PropertyID: f.property.ID(), RenterID: uuid.New(), RenterName: "Rae",
		StartDate: start, EndDate: end, Mode: bookingDomain.ModeRequest,
		OwnerNameFallback: "Given Name",
	})
	require.NoError(t, err)
	assert.Equal(t, "Given Name", bk.OwnerName)

	f.property = f.addProperty(t, stranger)
	bk, err = f.bookings.CreateBooking(context.Background(), CreateBookingInput{
		PropertyID: f.property.ID(), RenterID: uuid.New(), RenterName: "Rae",
		StartDate: start, EndDate: end, Mode: bookingDomain.ModeRequest,
	})
	require.NoError(t, err)
	assert.Equal(t, "Owner of "+f.property.Code(), bk.OwnerName)
}

func TestCreateBooking_Errors(t *testing.T) {
	f := newFixture(t)
	start, end := stay()
	valid := CreateBookingInput{
		PropertyID: f.property.ID(), RenterID: uuid.New(), RenterName: "Rae",
		StartDate: start, EndDate: end, Mode: bookingDomain.ModeRequest,
	}

	tests := []struct {
		name   string
		mutate func(in *CreateBookingInput)
		check  func(error) bool
	}{
		{"missing property", func(in *CreateBookingInput) { in.PropertyID = uuid.Nil }, domain.IsValidation},
		{"missing renter", func(in *CreateBookingInput) { in.RenterID = uuid.Nil }, domain.IsValidation},
		{"missing name", func(in *CreateBookingInput) { in.RenterName = " " }, domain.IsValidation},
		{"inverted dates", func(in *CreateBookingInput) { in.StartDate, in.EndDate = in.EndDate, in.StartDate }, domain.IsValidation},
		{"unknown mode", func(in *CreateBookingInput) { in.Mode = "LATER" }, domain.IsValidation},
		{"validation before lookup", func(in *CreateBookingInput) { in.PropertyID = uuid.New(); in.Mode = "LATER" }, domain.IsValidation},
		{"unknown property", func(in *CreateBookingInput) { in.PropertyID = uuid.New() }, domain.IsNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := valid
			tt.mutate(&in)
			_, err := f.bookings.CreateBooking(context.Background(), in)
			assert.True(t, tt.check(err), "unexpected error: %v", err)
		})
	}

	assert.Empty(t, f.store.allBookings())
	assert.Equal(t, propertyDomain.StatusAvailable, f.propertyStatus())
	assert.Empty(t, f.publisher.types())
}

func TestCreateBooking_ConflictWhenNotAvailable(t *testing.T) {
	for _, mode := range []bookingDomain.CreationMode{bookingDomain.ModeRequest, bookingDomain.ModeDirect} {
		t.Run(string(mode), func(t *testing.T) {
			f := newFixture(t)
			renter := uuid.New()
			_, err := f.request(renter, mode)
			require.NoError(t, err)

			_, err = f.request(uuid.New(), bookingDomain.ModeRequest)
			assert.True(t, domain.IsConflict(err))

			_, err = f.request(renter, bookingDomain.ModeDirect)
			assert.True(t, domain.IsConflict(err))

			assert.Len(t, f.store.allBookings(), 1)
			f.assertConsistent(t)
		})
	}
}

func TestApproveBooking(t *testing.T) {
	f := newFixture(t)
	bk, err := f.request(uuid.New(), bookingDomain.ModeRequest)
	require.NoError(t, err)

	_, err = f.bookings.ApproveBooking(context.Background(), bk.ID, uuid.New())
	assert.True(t, domain.IsForbidden(err))

	_, err = f.bookings.ApproveBooking(context.Background(), uuid.New(), f.ownerID)
	assert.True(t, domain.IsNotFound(err))

	approved, err := f.bookings.ApproveBooking(context.Background(), bk.ID, f.ownerID)
	require.NoError(t, err)
	assert.Equal(t, "approved", approved.Status)
	assert.Equal(t, propertyDomain.StatusBooked, f.propertyStatus())

	again, err := f.bookings.ApproveBooking(context.Background(), bk.ID, f.ownerID)
	require.NoError(t, err)
	assert.Equal(t, approved.Version, again.Version)
	assert.Equal(t, 1, f.publisher.count(contracts.BookingApproved))

	_, err = f.bookings.RejectBooking(context.Background(), bk.ID, f.ownerID)
	assert.True(t, domain.IsInvalidTransition(err))
	f.assertConsistent(t)
}

func TestRejectBooking(t *testing.T) {
	f := newFixture(t)
	bk, err := f.request(uuid.New(), bookingDomain.ModeRequest)
	require.NoError(t, err)

	_, err = f.bookings.RejectBooking(context.Background(), bk.ID, bk.RenterID)
	assert.True(t, domain.IsForbidden(err))

	rejected, err := f.bookings.RejectBooking(context.Background(), bk.ID, f.ownerID)
	require.NoError(t, err)
	assert.Equal(t, "rejected", rejected.Status)
	assert.Equal(t, propertyDomain.StatusAvailable, f.propertyStatus())

	_, err = f.bookings.RejectBooking(context.Background(), bk.ID, f.ownerID)
	require.NoError(t, err)
	assert.Equal(t, 1, f.publisher.count(contracts.BookingRejected))

	_, err = f.bookings.ApproveBooking(context.Background(), bk.ID, f.ownerID)
	assert.True(t, domain.IsInvalidTransition(err))

	_, err = f.bookings.CancelBooking(context.Background(), bk.ID, bk.RenterID, "")
	assert.True(t, domain.IsInvalidTransition(err))
}

func TestCancelBooking_SameEndStateFromPendingAndApproved(t *testing.T) {
	for _, approveFirst := range []bool{false, true} {
		f := newFixture(t)
		bk, err := f.request(uuid.New(), bookingDomain.ModeRequest)
		require.NoError(t, err)
		if approveFirst {
			_, err = f.bookings.ApproveBooking(context.Background(), bk.ID, f.ownerID)
			require.NoError(t, err)
		}

		_, err = f.bookings.CancelBooking(context.Background(), bk.ID, f.ownerID, "")
		assert.True(t, domain.IsForbidden(err))

		cancelled, err := f.bookings.CancelBooking(context.Background(), bk.ID, bk.RenterID, "")
		require.NoError(t, err)
		assert.Equal(t, "cancelled", cancelled.Status)
		assert.Equal(t, bookingDomain.DefaultCancellationReason, cancelled.CancellationReason)
		assert.NotNil(t, cancelled.CancelledAt)
		assert.Equal(t, propertyDomain.StatusAvailable, f.propertyStatus())

		_, err = f.bookings.CancelBooking(context.Background(), bk.ID, bk.RenterID, "")
		assert.True(t, domain.IsInvalidTransition(err))
		f.assertConsistent(t)
	}
}

func TestScenario_ApproveCancelRebook(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r1, r2 := uuid.New(), uuid.New()

	b1, err := f.request(r1, bookingDomain.ModeRequest)
	require.NoError(t, err)
	assert.Equal(t, "pending", b1.Status)
	assert.Equal(t, propertyDomain.StatusPending, f.propertyStatus())

	b1, err = f.bookings.ApproveBooking(ctx, b1.ID, f.ownerID)
	require.NoError(t, err)
	assert.Equal(t, "approved", b1.Status)
	assert.Equal(t, propertyDomain.StatusBooked, f.propertyStatus())

	_, err = f.request(r2, bookingDomain.ModeRequest)
	assert.True(t, domain.IsConflict(err))

	b1, err = f.bookings.CancelBooking(ctx, b1.ID, r1, "")
	require.NoError(t, err)
	assert.Equal(t, "cancelled", b1.Status)
	assert.Equal(t, propertyDomain.StatusAvailable, f.propertyStatus())

	b2, err := f.request(r2, bookingDomain.ModeRequest)
	require.NoError(t, err)
	assert.Equal(t, "pending", b2.Status)
	assert.Equal(t, propertyDomain.StatusPending, f.propertyStatus())
	f.assertConsistent(t)
}

func TestCreateBooking_ConcurrentRequestsOneWins(t *testing.T) {
	f := newFixture(t)
	const renters = 20

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		ok        int
		conflicts int
	)
	for i := 0; i < renters; i++ {
		mode := bookingDomain.ModeRequest
		if i%2 == 0 {
			mode = bookingDomain.ModeDirect
		}
		wg.Add(1)
		go func(mode bookingDomain.CreationMode) {
			defer wg.Done()
			_, err := f.request(uuid.New(), mode)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case domain.IsConflict(err):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(mode)
	}
	wg.Wait()

	assert.Equal(t, 1, ok)
	assert.Equal(t, renters-1, conflicts)
	f.assertConsistent(t)
}

func TestTransaction_RollsBackBookingWhenPropertyWriteFails(t *testing.T) {
	f := newFixture(t)
	f.store.failUpdates = true

	_, err := f.request(uuid.New(), bookingDomain.ModeRequest)
	require.Error(t, err)

	assert.Empty(t, f.store.allBookings())
	assert.Equal(t, propertyDomain.StatusAvailable, f.propertyStatus())
	assert.Empty(t, f.publisher.types())
}

func TestListBookingsForUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	renter := uuid.New()

	first, err := f.request(renter, bookingDomain.ModeRequest)
	require.NoError(t, err)
	_, err = f.bookings.RejectBooking(ctx, first.ID, f.ownerID)
	require.NoError(t, err)
	_, err = f.request(renter, bookingDomain.ModeRequest)
	require.NoError(t, err)

	self := Caller{ID: renter, Role: auth.RoleRenter}
	all, err := f.bookings.ListBookingsForUser(ctx, self, renter, "", false, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(2), all.Total)
	require.Len(t, all.Items, 2)
	require.NotNil(t, all.Items[0].Property)
	assert.Equal(t, f.property.Code(), all.Items[0].Property.Code)
	assert.Equal(t, "olu@example.com", all.Items[0].Owner.Email)

	active, err := f.bookings.ListBookingsForUser(ctx, self, renter, "renter", true, 1, 20)
	require.NoError(t, err)
	require.Len(t, active.Items, 1)
	assert.Equal(t, "pending", active.Items[0].Status)

	asOwner, err := f.bookings.ListBookingsForUser(ctx, Caller{ID: f.ownerID, Role: auth.RoleOwner}, f.ownerID, "owner", false, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), asOwner.Total)
	assert.Len(t, asOwner.Items, 1)

	_, err = f.bookings.ListBookingsForUser(ctx, Caller{ID: uuid.New(), Role: auth.RoleRenter}, renter, "", false, 1, 20)
	assert.True(t, domain.IsForbidden(err))

	_, err = f.bookings.ListBookingsForUser(ctx, Caller{ID: uuid.New(), Role: auth.RoleAdmin}, renter, "", false, 1, 20)
	assert.NoError(t, err)

	_, err = f.bookings.ListBookingsForUser(ctx, self, renter, "landlord", false, 1, 20)
	assert.True(t, domain.IsValidation(err))
}

func TestListBookingsForOwnerAndAll(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.request(uuid.New(), bookingDomain.ModeRequest)
	require.NoError(t, err)

	owned, err := f.bookings.ListBookingsForOwner(ctx, f.ownerID, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(1), owned.Total)

	none, err := f.bookings.ListBookingsForOwner(ctx, uuid.New(), 1, 20)
	require.NoError(t, err)
	assert.NotNil(t, none.Items)
	assert.Empty(t, none.Items)

	all, err := f.bookings.ListAllBookings(ctx, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(1), all.Total)
}

func TestGetBooking(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bk, err := f.request(uuid.New(), bookingDomain.ModeRequest)
	require.NoError(t, err)

	view, err := f.bookings.GetBooking(ctx, Caller{ID: bk.RenterID, Role: auth.RoleRenter}, bk.ID)
	require.NoError(t, err)
	assert.Equal(t, bk.Code, view.Code)

	_, err = f.bookings.GetBooking(ctx, Caller{ID: f.ownerID, Role: auth.RoleOwner}, bk.ID)
	assert.NoError(t, err)

	_, err = f.bookings.GetBooking(ctx, Caller{ID: uuid.New(), Role: auth.RoleAdmin}, bk.ID)
	assert.NoError(t, err)

	_, err = f.bookings.GetBooking(ctx, Caller{ID: uuid.New(), Role: auth.RoleRenter}, bk.ID)
	assert.True(t, domain.IsForbidden(err))
}

func TestAppendMessage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bk, err := f.request(uuid.New(), bookingDomain.ModeRequest)
	require.NoError(t, err)
	f.publisher.reset()

	updated, err := f.bookings.AppendMessage(ctx, bk.ID, bk.RenterID, "", "  Is there parking?  ")
	require.NoError(t, err)
	require.Len(t, updated.Messages, 1)
	assert.Equal(t, "Is there parking?", updated.Messages[0].Content)
	assert.Equal(t, bk.RenterName, updated.Messages[0].SenderName)

	updated, err = f.bookings.AppendMessage(ctx, bk.ID, f.ownerID, "", "Yes")
	require.NoError(t, err)
	require.Len(t, updated.Messages, 2)
	assert.Equal(t, "Olu Owner", updated.Messages[1].SenderName)
	assert.Equal(t, "pending", updated.Status)

	_, err = f.bookings.AppendMessage(ctx, bk.ID, uuid.New(), "Eve", "hi")
	assert.True(t, domain.IsForbidden(err))
	_, err = f.bookings.AppendMessage(ctx, bk.ID, bk.RenterID, "Rae", "   ")
	assert.True(t, domain.IsValidation(err))
	_, err = f.bookings.AppendMessage(ctx, uuid.New(), bk.RenterID, "Rae", "hi")
	assert.True(t, domain.IsNotFound(err))

	assert.Equal(t, 2, f.publisher.count(contracts.BookingMessageAdded))
	assert.Len(t, f.store.booking(bk.ID).Messages(), 2)
}

func TestCompleteElapsedBookings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bk, err := f.request(uuid.New(), bookingDomain.ModeDirect)
	require.NoError(t, err)

	n, err := f.bookings.CompleteElapsedBookings(ctx, time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, propertyDomain.StatusBooked, f.propertyStatus())

	n, err = f.bookings.CompleteElapsedBookings(ctx, bk.EndDate.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, bookingDomain.StatusCompleted, f.store.booking(bk.ID).Status())
	assert.Equal(t, propertyDomain.StatusAvailable, f.propertyStatus())
	assert.Equal(t, 1, f.publisher.count(contracts.BookingCompleted))

	n, err = f.bookings.CompleteElapsedBookings(ctx, bk.EndDate.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	f.assertConsistent(t)
}

func TestAdminDeleteBooking(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bk, err := f.request(uuid.New(), bookingDomain.ModeDirect)
	require.NoError(t, err)

	require.NoError(t, f.bookings.AdminDeleteBooking(ctx, bk.ID))
	assert.Nil(t, f.store.booking(bk.ID))
	assert.Equal(t, propertyDomain.StatusAvailable, f.propertyStatus())
	assert.Equal(t, 1, f.publisher.count(contracts.BookingDeleted))

	assert.True(t, domain.IsNotFound(f.bookings.AdminDeleteBooking(ctx, bk.ID)))
}

func TestReconcileProperty(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.request(uuid.New(), bookingDomain.ModeDirect)
	require.NoError(t, err)

	// Drift the stored status behind the lifecycle's back.
	drifted := f.store.property(f.property.ID())
	drifted.SetStatus(propertyDomain.StatusAvailable)
	f.store.addProperty(drifted)

	dto, err := f.bookings.ReconcileProperty(ctx, f.property.ID())
	require.NoError(t, err)
	assert.Equal(t, "booked", dto.Status)
	f.assertConsistent(t)

	_, err = f.bookings.ReconcileProperty(ctx, uuid.New())
	assert.True(t, domain.IsNotFound(err))
}
