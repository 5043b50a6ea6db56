package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rentbridge/service-booking/internal/contracts"
	bookingDomain "github.com/rentbridge/service-booking/internal/domain/booking"
	propertyDomain "github.com/rentbridge/service-booking/internal/domain/property"
	userDomain "github.com/rentbridge/service-booking/internal/domain/user"
	"github.com/rentbridge/service-booking/pkg/domain"
	"go.uber.org/zap"
)

const (
	// completionBatchSize bounds one completion sweep.
	completionBatchSize = 200
	roleFilterRenter    = "renter"
	roleFilterOwner     = "owner"
)

// CreateBookingInput is what CreateBooking needs besides the caller.
type CreateBookingInput struct {
	PropertyID        uuid.UUID
	RenterID          uuid.UUID
	RenterName        string
	StartDate         time.Time
	EndDate           time.Time
	Mode              bookingDomain.CreationMode
	OwnerNameFallback string
}

// BookingService is the application service orchestrating the booking
// lifecycle. Every write locks the property row before the booking row and
// re-derives the property status before committing.
type BookingService struct {
	uow        UnitOfWork
	bookings   bookingDomain.BookingRepository
	properties propertyDomain.PropertyRepository
	users      userDomain.Repository
	events     emitter
	logger     *zap.Logger
}

// NewBookingService creates a new BookingService. publisher may be nil.
func NewBookingService(
	uow UnitOfWork,
	bookings bookingDomain.BookingRepository,
	properties propertyDomain.PropertyRepository,
	users userDomain.Repository,
	publisher EventPublisher,
	logger *zap.Logger,
) *BookingService {
	return &BookingService{
		uow:        uow,
		bookings:   bookings,
		properties: properties,
		users:      users,
		events:     emitter{publisher: publisher, logger: logger},
		logger:     logger,
	}
}

// CreateBooking places a booking on an available property. REQUEST mode
// leaves it pending for the owner, DIRECT mode approves it immediately.
func (s *BookingService) CreateBooking(ctx context.Context, in CreateBookingInput) (*BookingDTO, error) {
	if in.PropertyID == uuid.Nil {
		return nil, domain.NewValidationError("property ID is required")
	}
	if in.RenterID == uuid.Nil {
		return nil, domain.NewValidationError("user ID is required")
	}
	if strings.TrimSpace(in.RenterName) == "" {
		return nil, domain.NewValidationError("user name is required")
	}
	period, err := bookingDomain.NewDateRange(in.StartDate, in.EndDate)
	if err != nil {
		return nil, err
	}
	if _, ok := in.Mode.InitialStatus(); !ok {
		return nil, domain.NewValidationError("invalid booking mode: " + string(in.Mode))
	}

	var (
		bk     *bookingDomain.Booking
		prop   *propertyDomain.Property
		events outbox
	)
	err = s.uow.WithTransaction(ctx, func(tx TxRepositories) error {
		prop, err = tx.Properties.FindByIDForUpdate(ctx, in.PropertyID)
		if err != nil {
			return err
		}
		if !prop.IsAvailable() {
			return domain.NewConflictError(fmt.Sprintf("property %s is not available for booking", prop.Code()))
		}
		exists, err := tx.Bookings.HasActiveForRenter(ctx, prop.ID(), in.RenterID)
		if err != nil {
			return fmt.Errorf("failed to check existing bookings: %w", err)
		}
		if exists {
			return domain.NewConflictError("you already have an active booking for this property")
		}

		bk, err = bookingDomain.NewBooking(bookingDomain.NewBookingParams{
			PropertyID:   prop.ID(),
			RenterID:     in.RenterID,
			OwnerID:      prop.OwnerID(),
			RenterName:   in.RenterName,
			OwnerName:    s.resolveOwnerName(ctx, prop, in.OwnerNameFallback),
			PropertyName: prop.DisplayName(),
			Period:       period,
			Mode:         in.Mode,
		})
		if err != nil {
			return err
		}
		if err := tx.Bookings.Save(ctx, bk); err != nil {
			return err
		}
		if err := syncPropertyStatus(ctx, tx, prop); err != nil {
			return err
		}

		eventType := contracts.BookingRequested
		if in.Mode == bookingDomain.ModeDirect {
			eventType = contracts.BookingConfirmed
		}
		events.add(contracts.TopicBookingEvents, eventType, bk.ID().String(), bookingEvent(bk, prop))
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("booking created",
		zap.String("booking_id", bk.ID().String()),
		zap.String("code", bk.Code()),
		zap.String("property_id", prop.ID().String()),
		zap.String("status", bk.Status().String()),
	)
	s.events.flush(ctx, events)
	return toBookingDTO(bk), nil
}

// ApproveBooking lets the property owner accept a pending request. Approving
// an already approved booking returns it unchanged.
func (s *BookingService) ApproveBooking(ctx context.Context, bookingID, callerID uuid.UUID) (*BookingDTO, error) {
	return s.decide(ctx, bookingID, callerID, bookingDomain.StatusApproved, contracts.BookingApproved, (*bookingDomain.Booking).Approve)
}

// RejectBooking lets the property owner decline a pending request. Rejecting
// an already rejected booking returns it unchanged.
func (s *BookingService) RejectBooking(ctx context.Context, bookingID, callerID uuid.UUID) (*BookingDTO, error) {
	return s.decide(ctx, bookingID, callerID, bookingDomain.StatusRejected, contracts.BookingRejected, (*bookingDomain.Booking).Reject)
}

func (s *BookingService) decide(
	ctx context.Context,
	bookingID, callerID uuid.UUID,
	target bookingDomain.BookingStatus,
	eventType string,
	apply func(*bookingDomain.Booking) error,
) (*BookingDTO, error) {
	var (
		bk     *bookingDomain.Booking
		events outbox
	)
	err := s.uow.WithTransaction(ctx, func(tx TxRepositories) error {
		var prop *propertyDomain.Property
		var err error
		bk, prop, err = lockBooking(ctx, tx, bookingID)
		if err != nil {
			return err
		}
		if !bk.IsOwner(callerID) {
			return domain.NewForbiddenError("only the property owner can decide on this booking")
		}
		if bk.Status() == target {
			return nil
		}
		if err := apply(bk); err != nil {
			return err
		}
		bk.IncrementVersion()
		if err := tx.Bookings.Update(ctx, bk); err != nil {
			return err
		}
		if err := syncPropertyStatus(ctx, tx, prop); err != nil {
			return err
		}
		events.add(contracts.TopicBookingEvents, eventType, bk.ID().String(), bookingEvent(bk, prop))
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(events) > 0 {
		s.logger.Info("booking decided",
			zap.String("booking_id", bk.ID().String()),
			zap.String("status", bk.Status().String()),
		)
	}
	s.events.flush(ctx, events)
	return toBookingDTO(bk), nil
}

// CancelBooking lets the renter withdraw a pending or approved booking.
func (s *BookingService) CancelBooking(ctx context.Context, bookingID, callerID uuid.UUID, reason string) (*BookingDTO, error) {
	var (
		bk     *bookingDomain.Booking
		events outbox
	)
	err := s.uow.WithTransaction(ctx, func(tx TxRepositories) error {
		var prop *propertyDomain.Property
		var err error
		bk, prop, err = lockBooking(ctx, tx, bookingID)
		if err != nil {
			return err
		}
		if !bk.IsRenter(callerID) {
			return domain.NewForbiddenError("only the renter can cancel this booking")
		}
		return cancelLocked(ctx, tx, bk, prop, reason, &events)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("booking cancelled",
		zap.String("booking_id", bk.ID().String()),
		zap.String("reason", bk.CancellationReason()),
	)
	s.events.flush(ctx, events)
	return toBookingDTO(bk), nil
}

// GetBooking returns one booking to either party or an admin.
func (s *BookingService) GetBooking(ctx context.Context, caller Caller, bookingID uuid.UUID) (*BookingView, error) {
	bk, err := s.bookings.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !bk.IsParty(caller.ID) && !caller.IsAdmin() {
		return nil, domain.NewForbiddenError("you are not a party to this booking")
	}
	views, err := s.toViews(ctx, []*bookingDomain.Booking{bk})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// ListBookingsForUser lists the bookings of userID as renter (default) or as
// owner. Only the user themself or an admin may list them.
func (s *BookingService) ListBookingsForUser(
	ctx context.Context,
	caller Caller,
	userID uuid.UUID,
	roleFilter string,
	activeOnly bool,
	page, limit int,
) (domain.PaginatedResult[BookingView], error) {
	if caller.ID != userID && !caller.IsAdmin() {
		return domain.PaginatedResult[BookingView]{}, domain.NewForbiddenError("you can only list your own bookings")
	}

	filter := bookingDomain.ListFilter{ActiveOnly: activeOnly}
	var (
		items []*bookingDomain.Booking
		total int64
		err   error
	)
	switch roleFilter {
	case "", roleFilterRenter:
		items, total, err = s.bookings.FindByRenterID(ctx, userID, filter, page, limit)
	case roleFilterOwner:
		items, total, err = s.bookings.FindByOwnerID(ctx, userID, filter, page, limit)
	default:
		return domain.PaginatedResult[BookingView]{}, domain.NewValidationError("role must be renter or owner")
	}
	if err != nil {
		return domain.PaginatedResult[BookingView]{}, fmt.Errorf("failed to list bookings: %w", err)
	}
	return s.page(ctx, items, total, page, limit)
}

// ListBookingsForOwner lists every booking on the owner's properties.
func (s *BookingService) ListBookingsForOwner(ctx context.Context, ownerID uuid.UUID, page, limit int) (domain.PaginatedResult[BookingView], error) {
	items, total, err := s.bookings.FindByOwnerID(ctx, ownerID, bookingDomain.ListFilter{}, page, limit)
	if err != nil {
		return domain.PaginatedResult[BookingView]{}, fmt.Errorf("failed to list owner bookings: %w", err)
	}
	return s.page(ctx, items, total, page, limit)
}

// ListAllBookings lists all bookings (admin).
func (s *BookingService) ListAllBookings(ctx context.Context, page, limit int) (domain.PaginatedResult[BookingView], error) {
	items, total, err := s.bookings.ListAll(ctx, page, limit)
	if err != nil {
		return domain.PaginatedResult[BookingView]{}, fmt.Errorf("failed to list bookings: %w", err)
	}
	return s.page(ctx, items, total, page, limit)
}

// AppendMessage adds a message from the renter or owner to the booking thread.
func (s *BookingService) AppendMessage(ctx context.Context, bookingID, senderID uuid.UUID, senderName, content string) (*BookingDTO, error) {
	var (
		bk  *bookingDomain.Booking
		msg bookingDomain.Message
	)
	err := s.uow.WithTransaction(ctx, func(tx TxRepositories) error {
		var err error
		bk, err = tx.Bookings.FindByIDForUpdate(ctx, bookingID)
		if err != nil {
			return err
		}
		if strings.TrimSpace(senderName) == "" {
			senderName = s.partyName(ctx, bk, senderID)
		}
		msg, err = bk.AppendMessage(senderID, senderName, content)
		if err != nil {
			return err
		}
		bk.IncrementVersion()
		return tx.Bookings.Update(ctx, bk)
	})
	if err != nil {
		return nil, err
	}

	s.events.publishEvent(ctx, contracts.TopicBookingEvents, contracts.BookingMessageAdded, bk.ID().String(), contracts.BookingMessageEvent{
		BookingID:   bk.ID(),
		BookingCode: bk.Code(),
		SenderID:    msg.SenderID,
		SenderName:  msg.SenderName,
		RecipientID: bk.Counterparty(senderID),
		Content:     msg.Content,
		OccurredAt:  msg.SentAt,
	})
	return toBookingDTO(bk), nil
}

// CompleteElapsedBookings completes approved bookings whose stay ended before
// now and frees their properties. Each booking gets its own transaction, so
// one failure does not hold back the rest.
func (s *BookingService) CompleteElapsedBookings(ctx context.Context, now time.Time) (int, error) {
	candidates, err := s.bookings.FindElapsedApproved(ctx, now, completionBatchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to find elapsed bookings: %w", err)
	}

	completed := 0
	var errs []error
	for _, candidate := range candidates {
		var events outbox
		err := s.uow.WithTransaction(ctx, func(tx TxRepositories) error {
			bk, prop, err := lockBooking(ctx, tx, candidate.ID())
			if err != nil {
				return err
			}
			if bk.Status() != bookingDomain.StatusApproved || !bk.Period().EndedBefore(now) {
				return nil
			}
			if err := bk.Complete(now); err != nil {
				return err
			}
			bk.IncrementVersion()
			if err := tx.Bookings.Update(ctx, bk); err != nil {
				return err
			}
			if err := syncPropertyStatus(ctx, tx, prop); err != nil {
				return err
			}
			events.add(contracts.TopicBookingEvents, contracts.BookingCompleted, bk.ID().String(), bookingEvent(bk, prop))
			return nil
		})
		if err != nil {
			s.logger.Error("failed to complete booking",
				zap.String("booking_id", candidate.ID().String()),
				zap.Error(err),
			)
			errs = append(errs, err)
			continue
		}
		if len(events) > 0 {
			completed++
			s.events.flush(ctx, events)
		}
	}
	return completed, errors.Join(errs...)
}

// VoidBookingsForUser cancels every active booking in which the user is the
// renter or the owner.
func (s *BookingService) VoidBookingsForUser(ctx context.Context, userID uuid.UUID, reason string) (int, error) {
	active, err := s.bookings.FindActiveByUser(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to find active bookings: %w", err)
	}

	voided := 0
	var errs []error
	for _, candidate := range active {
		var events outbox
		err := s.uow.WithTransaction(ctx, func(tx TxRepositories) error {
			bk, prop, err := lockBooking(ctx, tx, candidate.ID())
			if err != nil {
				return err
			}
			if !bk.Status().IsActive() {
				return nil
			}
			return cancelLocked(ctx, tx, bk, prop, reason, &events)
		})
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if len(events) > 0 {
			voided++
			s.events.flush(ctx, events)
		}
	}
	return voided, errors.Join(errs...)
}

// AdminDeleteBooking hard-deletes a booking and re-derives its property's
// status in the same transaction.
func (s *BookingService) AdminDeleteBooking(ctx context.Context, bookingID uuid.UUID) error {
	var events outbox
	err := s.uow.WithTransaction(ctx, func(tx TxRepositories) error {
		bk, prop, err := lockBooking(ctx, tx, bookingID)
		if err != nil {
			return err
		}
		if err := tx.Bookings.Delete(ctx, bk.ID()); err != nil {
			return err
		}
		if err := syncPropertyStatus(ctx, tx, prop); err != nil {
			return err
		}
		events.add(contracts.TopicBookingEvents, contracts.BookingDeleted, bk.ID().String(), bookingEvent(bk, prop))
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Warn("booking deleted by admin", zap.String("booking_id", bookingID.String()))
	s.events.flush(ctx, events)
	return nil
}

// ReconcileProperty re-derives a property's status from its active bookings.
func (s *BookingService) ReconcileProperty(ctx context.Context, propertyID uuid.UUID) (*PropertyDTO, error) {
	var prop *propertyDomain.Property
	err := s.uow.WithTransaction(ctx, func(tx TxRepositories) error {
		var err error
		prop, err = tx.Properties.FindByIDForUpdate(ctx, propertyID)
		if err != nil {
			return err
		}
		return syncPropertyStatus(ctx, tx, prop)
	})
	if err != nil {
		return nil, err
	}
	return toPropertyDTO(prop), nil
}

// lockBooking locks the booking's property and then the booking itself. The
// property of a delisted listing is no longer found and comes back nil.
func lockBooking(ctx context.Context, tx TxRepositories, bookingID uuid.UUID) (*bookingDomain.Booking, *propertyDomain.Property, error) {
	unlocked, err := tx.Bookings.FindByID(ctx, bookingID)
	if err != nil {
		return nil, nil, err
	}
	prop, err := tx.Properties.FindByIDForUpdate(ctx, unlocked.PropertyID())
	if err != nil {
		if !domain.IsNotFound(err) {
			return nil, nil, err
		}
		prop = nil
	}
	bk, err := tx.Bookings.FindByIDForUpdate(ctx, bookingID)
	if err != nil {
		return nil, nil, err
	}
	return bk, prop, nil
}

// cancelLocked cancels a booking whose property and row locks are held.
func cancelLocked(ctx context.Context, tx TxRepositories, bk *bookingDomain.Booking, prop *propertyDomain.Property, reason string, events *outbox) error {
	if err := bk.Cancel(reason); err != nil {
		return err
	}
	bk.IncrementVersion()
	if err := tx.Bookings.Update(ctx, bk); err != nil {
		return err
	}
	if err := syncPropertyStatus(ctx, tx, prop); err != nil {
		return err
	}
	events.add(contracts.TopicBookingEvents, contracts.BookingCancelled, bk.ID().String(), bookingEvent(bk, prop))
	return nil
}

// syncPropertyStatus recomputes the status implied by the property's active
// bookings and persists it when it differs. The caller holds the property lock.
func syncPropertyStatus(ctx context.Context, tx TxRepositories, prop *propertyDomain.Property) error {
	if prop == nil {
		return nil
	}
	active, err := tx.Bookings.FindActiveByProperty(ctx, prop.ID())
	if err != nil {
		return fmt.Errorf("failed to load active bookings: %w", err)
	}
	var hasApproved, hasPending bool
	for _, b := range active {
		switch b.Status() {
		case bookingDomain.StatusApproved:
			hasApproved = true
		case bookingDomain.StatusPending:
			hasPending = true
		}
	}
	if !prop.SetStatus(propertyDomain.StatusFromBookings(hasApproved, hasPending)) {
		return nil
	}
	prop.IncrementVersion()
	return tx.Properties.Update(ctx, prop)
}

// resolveOwnerName prefers the directory, then the caller's value, then a
// name built from the property code.
func (s *BookingService) resolveOwnerName(ctx context.Context, prop *propertyDomain.Property, fallback string) string {
	if s.users != nil {
		owner, err := s.users.FindByID(ctx, prop.OwnerID())
		if err == nil && owner.Name != "" {
			return owner.Name
		}
		if err != nil && !domain.IsNotFound(err) {
			s.logger.Warn("owner lookup failed", zap.String("owner_id", prop.OwnerID().String()), zap.Error(err))
		}
	}
	if name := strings.TrimSpace(fallback); name != "" {
		return name
	}
	return "Owner of " + prop.Code()
}

func (s *BookingService) partyName(ctx context.Context, bk *bookingDomain.Booking, userID uuid.UUID) string {
	if s.users != nil {
		if u, err := s.users.FindByID(ctx, userID); err == nil && u.Name != "" {
			return u.Name
		}
	}
	if bk.IsOwner(userID) {
		return bk.OwnerName()
	}
	return bk.RenterName()
}

func (s *BookingService) page(ctx context.Context, items []*bookingDomain.Booking, total int64, page, limit int) (domain.PaginatedResult[BookingView], error) {
	views, err := s.toViews(ctx, items)
	if err != nil {
		return domain.PaginatedResult[BookingView]{}, err
	}
	return domain.NewPaginatedResult(views, total, page, limit), nil
}

// toViews joins bookings with their properties and parties using one batch
// lookup per table.
func (s *BookingService) toViews(ctx context.Context, items []*bookingDomain.Booking) ([]BookingView, error) {
	propertyIDs := make([]uuid.UUID, 0, len(items))
	userIDs := make([]uuid.UUID, 0, 2*len(items))
	for _, b := range items {
		propertyIDs = append(propertyIDs, b.PropertyID())
		userIDs = append(userIDs, b.RenterID(), b.OwnerID())
	}

	props, err := s.properties.FindByIDs(ctx, propertyIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load properties: %w", err)
	}
	users := map[uuid.UUID]*userDomain.User{}
	if s.users != nil {
		users, err = s.users.FindByIDs(ctx, userIDs)
		if err != nil {
			return nil, fmt.Errorf("failed to load users: %w", err)
		}
	}

	views := make([]BookingView, len(items))
	for i, b := range items {
		views[i] = BookingView{
			BookingDTO: *toBookingDTO(b),
			Renter:     toPartySummary(b.RenterID(), b.RenterName(), users[b.RenterID()]),
			Owner:      toPartySummary(b.OwnerID(), b.OwnerName(), users[b.OwnerID()]),
		}
		if p, ok := props[b.PropertyID()]; ok {
			views[i].Property = toPropertySummary(p)
		}
	}
	return views, nil
}

func bookingEvent(b *bookingDomain.Booking, prop *propertyDomain.Property) contracts.BookingEvent {
	evt := contracts.BookingEvent{
		BookingID:          b.ID(),
		BookingCode:        b.Code(),
		PropertyID:         b.PropertyID(),
		PropertyName:       b.PropertyName(),
		RenterID:           b.RenterID(),
		OwnerID:            b.OwnerID(),
		Status:             b.Status().String(),
		StartDate:          b.Period().Start,
		EndDate:            b.Period().End,
		CancellationReason: b.CancellationReason(),
		OccurredAt:         time.Now().UTC(),
	}
	if prop != nil {
		evt.PropertyStatus = prop.Status().String()
	}
	return evt
}
