package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/resourcehub/booking-engine/internal/interval"
	"github.com/resourcehub/booking-engine/internal/model"
	"github.com/resourcehub/booking-engine/internal/repository"
)

// In-memory двойники хранилищ. Повторяют контракт pgx-реализаций, включая
// атомарную проверку конфликтов и CAS по статусу.

type fakeBookingStore struct {
	mu     sync.Mutex
	nextID int64
	items  map[int64]*model.Booking
	clock  func() time.Time
}

func newFakeBookingStore(clock func() time.Time) *fakeBookingStore {
	if clock == nil {
		clock = time.Now
	}
	return &fakeBookingStore{items: make(map[int64]*model.Booking), clock: clock}
}

func (f *fakeBookingStore) CreatePending(_ context.Context, booking *model.Booking) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	span := interval.Span{Start: booking.StartTime, End: booking.EndTime}
	if interval.HasConflict(span, f.activeSpansLocked(booking.ResourceID), 0) {
		return repository.ErrConflict
	}

	f.nextID++
	booking.ID = f.nextID
	booking.Status = model.BookingStatusPending
	booking.CreatedAt = f.clock()
	booking.UpdatedAt = booking.CreatedAt
	f.items[booking.ID] = copyBooking(booking)
	return nil
}

func (f *fakeBookingStore) ApprovePending(_ context.Context, id int64) (*model.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	booking, ok := f.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}

	span := interval.Span{Start: booking.StartTime, End: booking.EndTime}
	if interval.HasConflict(span, f.activeSpansLocked(booking.ResourceID), id) {
		return nil, repository.ErrConflict
	}

	if booking.Status != model.BookingStatusPending {
		return nil, repository.ErrStale
	}

	booking.Status = model.BookingStatusApproved
	booking.UpdatedAt = f.clock()
	return copyBooking(booking), nil
}

func (f *fakeBookingStore) UpdateStatus(_ context.Context, id int64, from, to model.BookingStatus, reason *string) (*model.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	booking, ok := f.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if booking.Status != from {
		return nil, repository.ErrStale
	}

	booking.Status = to
	if reason != nil {
		booking.Reason = reason
	}
	booking.UpdatedAt = f.clock()
	return copyBooking(booking), nil
}

func (f *fakeBookingStore) GetByID(_ context.Context, id int64) (*model.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	booking, ok := f.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return copyBooking(booking), nil
}

func (f *fakeBookingStore) ListByRequester(_ context.Context, requesterID int64) ([]*model.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []*model.Booking
	for _, booking := range f.items {
		if booking.RequesterID == requesterID {
			out = append(out, copyBooking(booking))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeBookingStore) ListActiveInWindow(_ context.Context, resourceID int64, from, to time.Time) ([]*model.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	window := interval.Span{Start: from, End: to}
	var out []*model.Booking
	for _, booking := range f.items {
		if booking.ResourceID != resourceID || !booking.IsActive() {
			continue
		}
		if interval.Overlaps(window, interval.Span{Start: booking.StartTime, End: booking.EndTime}) {
			out = append(out, copyBooking(booking))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeBookingStore) ListSeriesChildren(_ context.Context, parentID int64) ([]*model.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []*model.Booking
	for _, booking := range f.items {
		if booking.ParentBookingID != nil && *booking.ParentBookingID == parentID {
			out = append(out, copyBooking(booking))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeBookingStore) SetExternalEventRef(_ context.Context, id int64, ref *string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	booking, ok := f.items[id]
	if !ok {
		return repository.ErrNotFound
	}
	booking.ExternalEventRef = ref
	return nil
}

func (f *fakeBookingStore) CompleteDueBefore(_ context.Context, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var count int64
	for _, booking := range f.items {
		if booking.Status == model.BookingStatusApproved && !booking.EndTime.After(now) {
			booking.Status = model.BookingStatusCompleted
			booking.UpdatedAt = f.clock()
			count++
		}
	}
	return count, nil
}

func (f *fakeBookingStore) activeSpansLocked(resourceID int64) []interval.Booked {
	var spans []interval.Booked
	for _, booking := range f.items {
		if booking.ResourceID != resourceID || !booking.IsActive() {
			continue
		}
		spans = append(spans, interval.Booked{
			ID:   booking.ID,
			Span: interval.Span{Start: booking.StartTime, End: booking.EndTime},
		})
	}
	return spans
}

func copyBooking(b *model.Booking) *model.Booking {
	c := *b
	return &c
}

type fakeWaitlistStore struct {
	mu     sync.Mutex
	nextID int64
	items  map[int64]*model.WaitlistEntry
	clock  func() time.Time
}

func newFakeWaitlistStore(clock func() time.Time) *fakeWaitlistStore {
	if clock == nil {
		clock = time.Now
	}
	return &fakeWaitlistStore{items: make(map[int64]*model.WaitlistEntry), clock: clock}
}

func (f *fakeWaitlistStore) Create(_ context.Context, entry *model.WaitlistEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, existing := range f.items {
		if existing.ResourceID == entry.ResourceID &&
			existing.UserID == entry.UserID &&
			existing.RequestedStart.Equal(entry.RequestedStart) &&
			existing.RequestedEnd.Equal(entry.RequestedEnd) &&
			!existing.IsTerminal() {
			return repository.ErrDuplicate
		}
	}

	f.nextID++
	entry.ID = f.nextID
	entry.Status = model.WaitlistStatusWaiting
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = f.clock()
	}
	f.items[entry.ID] = copyEntry(entry)
	return nil
}

func (f *fakeWaitlistStore) GetByID(_ context.Context, id int64) (*model.WaitlistEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	entry, ok := f.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return copyEntry(entry), nil
}

func (f *fakeWaitlistStore) ListWaitingOverlapping(_ context.Context, resourceID int64, from, to time.Time) ([]*model.WaitlistEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	window := interval.Span{Start: from, End: to}
	var out []*model.WaitlistEntry
	for _, entry := range f.items {
		if entry.ResourceID != resourceID || entry.Status != model.WaitlistStatusWaiting {
			continue
		}
		if interval.Overlaps(window, interval.Span{Start: entry.RequestedStart, End: entry.RequestedEnd}) {
			out = append(out, copyEntry(entry))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority > out[j].Priority
		}
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (f *fakeWaitlistStore) HasNotifiedOverlapping(_ context.Context, resourceID int64, from, to time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	window := interval.Span{Start: from, End: to}
	for _, entry := range f.items {
		if entry.ResourceID != resourceID || entry.Status != model.WaitlistStatusNotified {
			continue
		}
		if interval.Overlaps(window, interval.Span{Start: entry.RequestedStart, End: entry.RequestedEnd}) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeWaitlistStore) MarkNotified(_ context.Context, id int64, notifiedAt, expiresAt time.Time) (*model.WaitlistEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	entry, ok := f.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if entry.Status != model.WaitlistStatusWaiting {
		return nil, repository.ErrStale
	}

	entry.Status = model.WaitlistStatusNotified
	entry.NotifiedAt = &notifiedAt
	entry.NotifyExpiresAt = &expiresAt
	return copyEntry(entry), nil
}

func (f *fakeWaitlistStore) MarkConverted(_ context.Context, id int64) error {
	return f.transitionLocked(id, model.WaitlistStatusNotified, model.WaitlistStatusConverted)
}

func (f *fakeWaitlistStore) MarkExpired(_ context.Context, id int64, from model.WaitlistStatus) error {
	return f.transitionLocked(id, from, model.WaitlistStatusExpired)
}

func (f *fakeWaitlistStore) transitionLocked(id int64, from, to model.WaitlistStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	entry, ok := f.items[id]
	if !ok {
		return repository.ErrNotFound
	}
	if entry.Status != from {
		return repository.ErrStale
	}
	entry.Status = to
	return nil
}

func (f *fakeWaitlistStore) ListNotifiedDue(_ context.Context, now time.Time) ([]*model.WaitlistEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []*model.WaitlistEntry
	for _, entry := range f.items {
		if entry.Status != model.WaitlistStatusNotified || entry.NotifyExpiresAt == nil {
			continue
		}
		if !entry.NotifyExpiresAt.After(now) {
			out = append(out, copyEntry(entry))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeWaitlistStore) ExpireStaleWaiting(_ context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var count int64
	for _, entry := range f.items {
		if entry.Status == model.WaitlistStatusWaiting && entry.CreatedAt.Before(cutoff) {
			entry.Status = model.WaitlistStatusExpired
			count++
		}
	}
	return count, nil
}

func (f *fakeWaitlistStore) DeleteOwned(_ context.Context, id, userID int64) (*model.WaitlistEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	entry, ok := f.items[id]
	if !ok || entry.UserID != userID {
		return nil, repository.ErrNotFound
	}
	delete(f.items, id)
	return entry, nil
}

func (f *fakeWaitlistStore) CountAhead(_ context.Context, target *model.WaitlistEntry) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	window := interval.Span{Start: target.RequestedStart, End: target.RequestedEnd}
	count := 0
	for _, entry := range f.items {
		if entry.ResourceID != target.ResourceID || entry.Status != model.WaitlistStatusWaiting || entry.ID == target.ID {
			continue
		}
		if !interval.Overlaps(window, interval.Span{Start: entry.RequestedStart, End: entry.RequestedEnd}) {
			continue
		}
		if entry.Priority > target.Priority ||
			(entry.Priority == target.Priority && entry.CreatedAt.Before(target.CreatedAt)) {
			count++
		}
	}
	return count, nil
}

func copyEntry(e *model.WaitlistEntry) *model.WaitlistEntry {
	c := *e
	return &c
}

type fakeResourceStore struct {
	mu    sync.Mutex
	items map[int64]*model.Resource
}

func newFakeResourceStore(resources ...*model.Resource) *fakeResourceStore {
	store := &fakeResourceStore{items: make(map[int64]*model.Resource)}
	for _, r := range resources {
		store.items[r.ID] = r
	}
	return store
}

func (f *fakeResourceStore) GetByID(_ context.Context, id int64) (*model.Resource, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	resource, ok := f.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return resource, nil
}

type fakeUserStore struct {
	mu    sync.Mutex
	items map[int64]*model.User
}

func newFakeUserStore(users ...*model.User) *fakeUserStore {
	store := &fakeUserStore{items: make(map[int64]*model.User)}
	for _, u := range users {
		store.items[u.ID] = u
	}
	return store
}

func (f *fakeUserStore) GetByID(_ context.Context, id int64) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	user, ok := f.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return user, nil
}
