package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rentbridge/service-booking/internal/contracts"
	propertyDomain "github.com/rentbridge/service-booking/internal/domain/property"
	"github.com/rentbridge/service-booking/pkg/domain"
	"go.uber.org/zap"
)

// DelistedReason is recorded on bookings voided by a property deletion.
const DelistedReason = "Property delisted"

// PropertyService implements use cases for listing management.
type PropertyService struct {
	uow        UnitOfWork
	properties propertyDomain.PropertyRepository
	events     emitter
	logger     *zap.Logger
}

// NewPropertyService creates a new PropertyService. publisher may be nil.
func NewPropertyService(
	uow UnitOfWork,
	properties propertyDomain.PropertyRepository,
	publisher EventPublisher,
	logger *zap.Logger,
) *PropertyService {
	return &PropertyService{
		uow:        uow,
		properties: properties,
		events:     emitter{publisher: publisher, logger: logger},
		logger:     logger,
	}
}

// CreateProperty lists a new available property for the owner.
func (s *PropertyService) CreateProperty(ctx context.Context, ownerID uuid.UUID, req PropertyRequest) (*PropertyDTO, error) {
	prop, err := propertyDomain.NewProperty(ownerID, req.ToListing())
	if err != nil {
		return nil, err
	}
	if err := s.properties.Save(ctx, prop); err != nil {
		return nil, fmt.Errorf("failed to save property: %w", err)
	}

	s.logger.Info("property listed",
		zap.String("property_id", prop.ID().String()),
		zap.String("code", prop.Code()),
	)
	s.events.publishEvent(ctx, contracts.TopicPropertyEvents, contracts.PropertyListed, prop.ID().String(), propertyEvent(prop))
	return toPropertyDTO(prop), nil
}

// GetProperty returns one listing.
func (s *PropertyService) GetProperty(ctx context.Context, id uuid.UUID) (*PropertyDTO, error) {
	prop, err := s.properties.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return toPropertyDTO(prop), nil
}

// ListAvailableProperties lists bookable listings, newest first.
func (s *PropertyService) ListAvailableProperties(ctx context.Context, page, limit int) (domain.PaginatedResult[PropertyDTO], error) {
	items, total, err := s.properties.ListByStatus(ctx, propertyDomain.StatusAvailable, page, limit)
	if err != nil {
		return domain.PaginatedResult[PropertyDTO]{}, fmt.Errorf("failed to list properties: %w", err)
	}
	return propertyPage(items, total, page, limit), nil
}

// ListOwnerProperties lists the owner's listings in every status.
func (s *PropertyService) ListOwnerProperties(ctx context.Context, ownerID uuid.UUID, page, limit int) (domain.PaginatedResult[PropertyDTO], error) {
	items, total, err := s.properties.ListByOwner(ctx, ownerID, page, limit)
	if err != nil {
		return domain.PaginatedResult[PropertyDTO]{}, fmt.Errorf("failed to list owner properties: %w", err)
	}
	return propertyPage(items, total, page, limit), nil
}

// ListAllProperties lists every listing (admin).
func (s *PropertyService) ListAllProperties(ctx context.Context, page, limit int) (domain.PaginatedResult[PropertyDTO], error) {
	items, total, err := s.properties.ListAll(ctx, page, limit)
	if err != nil {
		return domain.PaginatedResult[PropertyDTO]{}, fmt.Errorf("failed to list properties: %w", err)
	}
	return propertyPage(items, total, page, limit), nil
}

// UpdateProperty edits the listing attributes. Only the owner may edit and
// the status cannot be changed this way.
func (s *PropertyService) UpdateProperty(ctx context.Context, callerID, id uuid.UUID, req PropertyRequest) (*PropertyDTO, error) {
	var prop *propertyDomain.Property
	err := s.uow.WithTransaction(ctx, func(tx TxRepositories) error {
		var err error
		prop, err = tx.Properties.FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !prop.IsOwnedBy(callerID) {
			return domain.NewForbiddenError("only the owner can edit this property")
		}
		if err := prop.UpdateListing(req.ToListing()); err != nil {
			return err
		}
		prop.IncrementVersion()
		return tx.Properties.Update(ctx, prop)
	})
	if err != nil {
		return nil, err
	}

	s.events.publishEvent(ctx, contracts.TopicPropertyEvents, contracts.PropertyUpdated, prop.ID().String(), propertyEvent(prop))
	return toPropertyDTO(prop), nil
}

// DeleteProperty delists a property. Its active bookings are cancelled and
// the listing is soft-deleted in one transaction.
func (s *PropertyService) DeleteProperty(ctx context.Context, caller Caller, id uuid.UUID) error {
	voided, err := s.delist(ctx, id, func(prop *propertyDomain.Property) error {
		if !prop.IsOwnedBy(caller.ID) && !caller.IsAdmin() {
			return domain.NewForbiddenError("only the owner or an admin can delete this property")
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Info("property delisted",
		zap.String("property_id", id.String()),
		zap.Int("voided_bookings", voided),
	)
	return nil
}

// DelistOwnerProperties delists every property of ownerID.
func (s *PropertyService) DelistOwnerProperties(ctx context.Context, ownerID uuid.UUID) (int, error) {
	ids, err := s.properties.FindIDsByOwner(ctx, ownerID)
	if err != nil {
		return 0, fmt.Errorf("failed to find owner properties: %w", err)
	}

	delisted := 0
	var errs []error
	for _, id := range ids {
		if _, err := s.delist(ctx, id, nil); err != nil {
			if domain.IsNotFound(err) {
				continue
			}
			errs = append(errs, err)
			continue
		}
		delisted++
	}
	return delisted, errors.Join(errs...)
}

func (s *PropertyService) delist(ctx context.Context, id uuid.UUID, authorize func(*propertyDomain.Property) error) (int, error) {
	var (
		prop   *propertyDomain.Property
		events outbox
		voided int
	)
	err := s.uow.WithTransaction(ctx, func(tx TxRepositories) error {
		var err error
		prop, err = tx.Properties.FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if authorize != nil {
			if err := authorize(prop); err != nil {
				return err
			}
		}

		active, err := tx.Bookings.FindActiveByProperty(ctx, prop.ID())
		if err != nil {
			return fmt.Errorf("failed to load active bookings: %w", err)
		}
		for _, candidate := range active {
			bk, err := tx.Bookings.FindByIDForUpdate(ctx, candidate.ID())
			if err != nil {
				return err
			}
			if err := cancelLocked(ctx, tx, bk, prop, DelistedReason, &events); err != nil {
				return err
			}
			voided++
		}

		if err := tx.Properties.Delete(ctx, prop.ID()); err != nil {
			return err
		}
		events.add(contracts.TopicPropertyEvents, contracts.PropertyDelisted, prop.ID().String(), propertyEvent(prop))
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.events.flush(ctx, events)
	return voided, nil
}

func propertyPage(items []*propertyDomain.Property, total int64, page, limit int) domain.PaginatedResult[PropertyDTO] {
	dtos := make([]PropertyDTO, len(items))
	for i, p := range items {
		dtos[i] = *toPropertyDTO(p)
	}
	return domain.NewPaginatedResult(dtos, total, page, limit)
}

func propertyEvent(p *propertyDomain.Property) contracts.PropertyEvent {
	return contracts.PropertyEvent{
		PropertyID:   p.ID(),
		PropertyCode: p.Code(),
		OwnerID:      p.OwnerID(),
		Title:        p.Listing().Title,
		Status:       p.Status().String(),
		OccurredAt:   time.Now().UTC(),
	}
}
