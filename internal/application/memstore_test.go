package application

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	bookingDomain "github.com/rentbridge/service-booking/internal/domain/booking"
	propertyDomain "github.com/rentbridge/service-booking/internal/domain/property"
	userDomain "github.com/rentbridge/service-booking/internal/domain/user"
	"github.com/rentbridge/service-booking/pkg/domain"
	"github.com/rentbridge/service-booking/pkg/kafka"
)

// memStore is an in-memory database. WithTransaction serializes all
// transactions behind one mutex and restores a snapshot on error, which is a
// stricter version of the row locking the Postgres adapter does.
type memStore struct {
	txMu sync.Mutex
	mu   sync.Mutex

	bookings   map[uuid.UUID]bookingDomain.Snapshot
	properties map[uuid.UUID]*propertyDomain.Property
	deleted    map[uuid.UUID]bool
	users      map[uuid.UUID]userDomain.User
	favorites  map[uuid.UUID]map[uuid.UUID]int64
	favSeq     int64

	// failUpdates makes property updates fail, to exercise rollback.
	failUpdates bool
}

func newMemStore() *memStore {
	return &memStore{
		bookings:   map[uuid.UUID]bookingDomain.Snapshot{},
		properties: map[uuid.UUID]*propertyDomain.Property{},
		deleted:    map[uuid.UUID]bool{},
		users:      map[uuid.UUID]userDomain.User{},
		favorites:  map[uuid.UUID]map[uuid.UUID]int64{},
	}
}

func cloneProperty(p *propertyDomain.Property) *propertyDomain.Property {
	return propertyDomain.ReconstructProperty(p.ID(), p.Code(), p.OwnerID(), p.Listing(), p.Status(), p.Version(), p.CreatedAt(), p.UpdatedAt())
}

func (m *memStore) WithTransaction(ctx context.Context, fn func(repos TxRepositories) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	m.mu.Lock()
	bookings := make(map[uuid.UUID]bookingDomain.Snapshot, len(m.bookings))
	for k, v := range m.bookings {
		bookings[k] = v
	}
	properties := make(map[uuid.UUID]*propertyDomain.Property, len(m.properties))
	for k, v := range m.properties {
		properties[k] = cloneProperty(v)
	}
	deleted := make(map[uuid.UUID]bool, len(m.deleted))
	for k, v := range m.deleted {
		deleted[k] = v
	}
	m.mu.Unlock()

	if err := fn(TxRepositories{Bookings: memBookings{m}, Properties: memProperties{m}}); err != nil {
		m.mu.Lock()
		m.bookings, m.properties, m.deleted = bookings, properties, deleted
		m.mu.Unlock()
		return err
	}
	return nil
}

func (m *memStore) addProperty(p *propertyDomain.Property) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.properties[p.ID()] = cloneProperty(p)
}

func (m *memStore) property(id uuid.UUID) *propertyDomain.Property {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneProperty(m.properties[id])
}

func (m *memStore) booking(id uuid.UUID) *bookingDomain.Booking {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.bookings[id]
	if !ok {
		return nil
	}
	return bookingDomain.ReconstructBooking(s)
}

func (m *memStore) allBookings() []*bookingDomain.Booking {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*bookingDomain.Booking, 0, len(m.bookings))
	for _, s := range m.bookings {
		out = append(out, bookingDomain.ReconstructBooking(s))
	}
	return out
}

// --- bookings ---

type memBookings struct{ m *memStore }

var _ bookingDomain.BookingRepository = memBookings{}

func (r memBookings) FindByID(_ context.Context, id uuid.UUID) (*bookingDomain.Booking, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	s, ok := r.m.bookings[id]
	if !ok {
		return nil, domain.NewNotFoundError("Booking", id.String())
	}
	return bookingDomain.ReconstructBooking(s), nil
}

func (r memBookings) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*bookingDomain.Booking, error) {
	return r.FindByID(ctx, id)
}

func (r memBookings) filter(keep func(s bookingDomain.Snapshot) bool) []*bookingDomain.Booking {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []*bookingDomain.Booking
	for _, s := range r.m.bookings {
		if keep(s) {
			out = append(out, bookingDomain.ReconstructBooking(s))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt().After(out[j].CreatedAt()) })
	return out
}

func (r memBookings) FindActiveByProperty(_ context.Context, propertyID uuid.UUID) ([]*bookingDomain.Booking, error) {
	return r.filter(func(s bookingDomain.Snapshot) bool { return s.PropertyID == propertyID && s.Status.IsActive() }), nil
}

func (r memBookings) HasActiveForRenter(_ context.Context, propertyID, renterID uuid.UUID) (bool, error) {
	return len(r.filter(func(s bookingDomain.Snapshot) bool {
		return s.PropertyID == propertyID && s.RenterID == renterID && s.Status.IsActive()
	})) > 0, nil
}

func (r memBookings) FindActiveByUser(_ context.Context, userID uuid.UUID) ([]*bookingDomain.Booking, error) {
	return r.filter(func(s bookingDomain.Snapshot) bool {
		return (s.RenterID == userID || s.OwnerID == userID) && s.Status.IsActive()
	}), nil
}

func (r memBookings) FindElapsedApproved(_ context.Context, now time.Time, limit int) ([]*bookingDomain.Booking, error) {
	out := r.filter(func(s bookingDomain.Snapshot) bool {
		return s.Status == bookingDomain.StatusApproved && s.Period.End.Before(now)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func paginate(items []*bookingDomain.Booking, page, limit int) ([]*bookingDomain.Booking, int64) {
	total := int64(len(items))
	start := domain.Offset(page, limit)
	if start >= len(items) {
		return []*bookingDomain.Booking{}, total
	}
	end := start + limit
	if end > len(items) {
		end = len(items)
	}
	return items[start:end], total
}

func (r memBookings) FindByRenterID(_ context.Context, renterID uuid.UUID, f bookingDomain.ListFilter, page, limit int) ([]*bookingDomain.Booking, int64, error) {
	items, total := paginate(r.filter(func(s bookingDomain.Snapshot) bool {
		return s.RenterID == renterID && (!f.ActiveOnly || s.Status.IsActive())
	}), page, limit)
	return items, total, nil
}

func (r memBookings) FindByOwnerID(_ context.Context, ownerID uuid.UUID, f bookingDomain.ListFilter, page, limit int) ([]*bookingDomain.Booking, int64, error) {
	items, total := paginate(r.filter(func(s bookingDomain.Snapshot) bool {
		return s.OwnerID == ownerID && (!f.ActiveOnly || s.Status.IsActive())
	}), page, limit)
	return items, total, nil
}

func (r memBookings) ListAll(_ context.Context, page, limit int) ([]*bookingDomain.Booking, int64, error) {
	items, total := paginate(r.filter(func(bookingDomain.Snapshot) bool { return true }), page, limit)
	return items, total, nil
}

func (r memBookings) CountByStatus(_ context.Context) (map[string]int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	out := map[string]int64{}
	for _, s := range r.m.bookings {
		out[s.Status.String()]++
	}
	return out, nil
}

// checkUnique mirrors the partial unique indexes. Caller holds r.m.mu.
func (r memBookings) checkUnique(s bookingDomain.Snapshot) error {
	if !s.Status.IsActive() {
		return nil
	}
	for id, other := range r.m.bookings {
		if id != s.ID && other.PropertyID == s.PropertyID && other.Status.IsActive() {
			return domain.NewConflictError("an active booking already exists for this property")
		}
	}
	return nil
}

func (r memBookings) Save(_ context.Context, b *bookingDomain.Booking) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	s := b.Snapshot()
	if err := r.checkUnique(s); err != nil {
		return err
	}
	r.m.bookings[s.ID] = s
	return nil
}

func (r memBookings) Update(_ context.Context, b *bookingDomain.Booking) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	s := b.Snapshot()
	current, ok := r.m.bookings[s.ID]
	if !ok || current.Version != s.Version-1 {
		return domain.NewConflictError("booking was modified concurrently")
	}
	if err := r.checkUnique(s); err != nil {
		return err
	}
	r.m.bookings[s.ID] = s
	return nil
}

func (r memBookings) Delete(_ context.Context, id uuid.UUID) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.bookings[id]; !ok {
		return domain.NewNotFoundError("Booking", id.String())
	}
	delete(r.m.bookings, id)
	return nil
}

// --- properties ---

type memProperties struct{ m *memStore }

var _ propertyDomain.PropertyRepository = memProperties{}

func (r memProperties) FindByID(_ context.Context, id uuid.UUID) (*propertyDomain.Property, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	p, ok := r.m.properties[id]
	if !ok || r.m.deleted[id] {
		return nil, domain.NewNotFoundError("Property", id.String())
	}
	return cloneProperty(p), nil
}

func (r memProperties) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*propertyDomain.Property, error) {
	return r.FindByID(ctx, id)
}

func (r memProperties) FindByIDs(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]*propertyDomain.Property, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	out := map[uuid.UUID]*propertyDomain.Property{}
	for _, id := range ids {
		if p, ok := r.m.properties[id]; ok && !r.m.deleted[id] {
			out[id] = cloneProperty(p)
		}
	}
	return out, nil
}

func (r memProperties) list(keep func(p *propertyDomain.Property) bool, page, limit int) ([]*propertyDomain.Property, int64) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var all []*propertyDomain.Property
	for id, p := range r.m.properties {
		if !r.m.deleted[id] && keep(p) {
			all = append(all, cloneProperty(p))
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt().After(all[j].CreatedAt()) })
	total := int64(len(all))
	start := domain.Offset(page, limit)
	if start >= len(all) {
		return []*propertyDomain.Property{}, total
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], total
}

func (r memProperties) FindIDsByOwner(_ context.Context, ownerID uuid.UUID) ([]uuid.UUID, error) {
	items, _ := r.list(func(p *propertyDomain.Property) bool { return p.OwnerID() == ownerID }, 1, 1000)
	ids := make([]uuid.UUID, len(items))
	for i, p := range items {
		ids[i] = p.ID()
	}
	return ids, nil
}

func (r memProperties) ListByStatus(_ context.Context, status propertyDomain.Status, page, limit int) ([]*propertyDomain.Property, int64, error) {
	items, total := r.list(func(p *propertyDomain.Property) bool { return p.Status() == status }, page, limit)
	return items, total, nil
}

func (r memProperties) ListByOwner(_ context.Context, ownerID uuid.UUID, page, limit int) ([]*propertyDomain.Property, int64, error) {
	items, total := r.list(func(p *propertyDomain.Property) bool { return p.OwnerID() == ownerID }, page, limit)
	return items, total, nil
}

func (r memProperties) ListAll(_ context.Context, page, limit int) ([]*propertyDomain.Property, int64, error) {
	items, total := r.list(func(*propertyDomain.Property) bool { return true }, page, limit)
	return items, total, nil
}

func (r memProperties) Count(_ context.Context) (int64, error) {
	_, total := r.list(func(*propertyDomain.Property) bool { return true }, 1, 1)
	return total, nil
}

func (r memProperties) Save(_ context.Context, p *propertyDomain.Property) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.properties[p.ID()] = cloneProperty(p)
	return nil
}

func (r memProperties) Update(_ context.Context, p *propertyDomain.Property) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.failUpdates {
		return domain.NewConflictError("simulated write failure")
	}
	current, ok := r.m.properties[p.ID()]
	if !ok || r.m.deleted[p.ID()] || current.Version() != p.Version()-1 {
		return domain.NewConflictError("property was modified concurrently")
	}
	r.m.properties[p.ID()] = cloneProperty(p)
	return nil
}

func (r memProperties) Delete(_ context.Context, id uuid.UUID) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.properties[id]; !ok || r.m.deleted[id] {
		return domain.NewNotFoundError("Property", id.String())
	}
	r.m.deleted[id] = true
	return nil
}

// --- users ---

type memUsers struct{ m *memStore }

var _ userDomain.Repository = memUsers{}

func (r memUsers) Upsert(_ context.Context, u *userDomain.User) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.users[u.ID] = *u
	return nil
}

func (r memUsers) FindByID(_ context.Context, id uuid.UUID) (*userDomain.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	u, ok := r.m.users[id]
	if !ok {
		return nil, domain.NewNotFoundError("User", id.String())
	}
	return &u, nil
}

func (r memUsers) FindByIDs(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]*userDomain.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	out := map[uuid.UUID]*userDomain.User{}
	for _, id := range ids {
		if u, ok := r.m.users[id]; ok {
			u := u
			out[id] = &u
		}
	}
	return out, nil
}

func (r memUsers) CountByRole(_ context.Context) (map[userDomain.Role]int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	out := map[userDomain.Role]int64{}
	for _, u := range r.m.users {
		out[u.Role]++
	}
	return out, nil
}

func (r memUsers) Delete(_ context.Context, id uuid.UUID) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.users[id]; !ok {
		return domain.NewNotFoundError("User", id.String())
	}
	delete(r.m.users, id)
	return nil
}

// --- favorites ---

type memFavorites struct{ m *memStore }

var _ propertyDomain.FavoriteRepository = memFavorites{}

func (r memFavorites) Add(_ context.Context, userID, propertyID uuid.UUID) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	saved, ok := r.m.favorites[userID]
	if !ok {
		saved = map[uuid.UUID]int64{}
		r.m.favorites[userID] = saved
	}
	if _, exists := saved[propertyID]; !exists {
		r.m.favSeq++
		saved[propertyID] = r.m.favSeq
	}
	return nil
}

func (r memFavorites) Remove(_ context.Context, userID, propertyID uuid.UUID) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.favorites[userID][propertyID]; !ok {
		return false, nil
	}
	delete(r.m.favorites[userID], propertyID)
	return true, nil
}

func (r memFavorites) ListPropertyIDs(_ context.Context, userID uuid.UUID, page, limit int) ([]uuid.UUID, int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var ids []uuid.UUID
	for id := range r.m.favorites[userID] {
		if _, ok := r.m.properties[id]; ok && !r.m.deleted[id] {
			ids = append(ids, id)
		}
	}
	saved := r.m.favorites[userID]
	sort.Slice(ids, func(i, j int) bool { return saved[ids[i]] > saved[ids[j]] })

	total := int64(len(ids))
	start := domain.Offset(page, limit)
	if start >= len(ids) {
		return []uuid.UUID{}, total, nil
	}
	end := start + limit
	if end > len(ids) {
		end = len(ids)
	}
	return ids[start:end], total, nil
}

func (r memFavorites) DeleteByUser(_ context.Context, userID uuid.UUID) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	delete(r.m.favorites, userID)
	return nil
}

// --- events ---

type recordingPublisher struct {
	mu     sync.Mutex
	events []*kafka.CloudEvent
	topics []string
}

func (p *recordingPublisher) PublishEvent(_ context.Context, topic string, event *kafka.CloudEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	p.topics = append(p.topics, topic)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

func (p *recordingPublisher) count(eventType string) int {
	n := 0
	for _, t := range p.types() {
		if t == eventType {
			n++
		}
	}
	return n
}

func (p *recordingPublisher) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events, p.topics = nil, nil
}

var _ EventPublisher = (*recordingPublisher)(nil)
