package booking

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/md-rashed-zaman/spacebook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/spacebook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/spacebook/services/booking-service/internal/outbox"
)

// fakeStore keeps committed rows in memory. Transactions stage writes and apply them on
// commit while still holding their space locks, like the Postgres store.
type fakeStore struct {
	mu     sync.Mutex
	rows   map[string]model.Booking
	events []outbox.Event

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex

	// readErr fails every read when set.
	readErr error
	// hideActive makes the next n ListActiveOverlapping calls return nothing, to let a
	// write reach the overlap guard.
	hideActive int
	// enforceOverlap makes Insert/Update reject overlapping active rows with ErrOverlap.
	enforceOverlap bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		rows:  map[string]model.Booking{},
		locks: map[string]*sync.Mutex{},
	}
}

func (s *fakeStore) seed(bookings ...model.Booking) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range bookings {
		s.rows[b.ID] = b
	}
}

func (s *fakeStore) snapshot() map[string]model.Booking {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]model.Booking, len(s.rows))
	for k, v := range s.rows {
		out[k] = v
	}
	return out
}

func (s *fakeStore) eventTypes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e.EventType)
	}
	return out
}

func (s *fakeStore) spaceLock(space string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	l, ok := s.locks[space]
	if !ok {
		l = &sync.Mutex{}
		s.locks[space] = l
	}
	return l
}

func (s *fakeStore) Get(ctx context.Context, id string, includeDeleted bool) (model.Booking, error) {
	return s.view(nil).get(id, includeDeleted, s.readErr)
}

func (s *fakeStore) ListActiveOverlapping(ctx context.Context, space string, start, end time.Time) ([]model.Booking, error) {
	return s.view(nil).activeOverlapping(s, space, start, end)
}

func (s *fakeStore) List(ctx context.Context, f model.Filter, p model.Page) ([]model.Booking, int, error) {
	if s.readErr != nil {
		return nil, 0, s.readErr
	}
	return s.view(nil).list(f, p)
}

func (s *fakeStore) ListInRange(ctx context.Context, from, to *time.Time) ([]model.Booking, error) {
	if s.readErr != nil {
		return nil, s.readErr
	}
	return s.view(nil).inRange(from, to), nil
}

func (s *fakeStore) SpaceNames(ctx context.Context) ([]string, error) {
	if s.readErr != nil {
		return nil, s.readErr
	}
	return s.view(nil).spaceNames(), nil
}

func (s *fakeStore) InTx(ctx context.Context, fn func(Tx) error) error {
	tx := &fakeTx{store: s, staged: map[string]*model.Booking{}}
	defer tx.unlock()

	if err := fn(tx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, b := range tx.staged {
		if b == nil {
			delete(s.rows, id)
			continue
		}
		s.rows[id] = *b
	}
	s.events = append(s.events, tx.events...)
	return nil
}

// rowsView is a point-in-time copy of the rows, optionally overlaid with staged writes.
type rowsView map[string]model.Booking

func (s *fakeStore) view(staged map[string]*model.Booking) rowsView {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := make(rowsView, len(s.rows))
	for k, b := range s.rows {
		v[k] = b
	}
	for k, b := range staged {
		if b == nil {
			delete(v, k)
			continue
		}
		v[k] = *b
	}
	return v
}

func (v rowsView) get(id string, includeDeleted bool, readErr error) (model.Booking, error) {
	if readErr != nil {
		return model.Booking{}, readErr
	}
	b, ok := v[id]
	if !ok || (b.Deleted() && !includeDeleted) {
		return model.Booking{}, ErrNotFound
	}
	return b, nil
}

func (v rowsView) activeOverlapping(s *fakeStore, space string, start, end time.Time) ([]model.Booking, error) {
	if s.readErr != nil {
		return nil, s.readErr
	}
	s.mu.Lock()
	hide := s.hideActive > 0
	if hide {
		s.hideActive--
	}
	s.mu.Unlock()
	if hide {
		return nil, nil
	}

	target := availability.Interval{Start: start, End: end}
	var out []model.Booking
	for _, b := range v {
		if b.SpaceName == space && b.Active() && availability.Overlaps(target, availability.Interval{Start: b.StartAt, End: b.EndAt}) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartAt.Before(out[j].StartAt) })
	return out, nil
}

func (v rowsView) list(f model.Filter, p model.Page) ([]model.Booking, int, error) {
	var matched []model.Booking
	for _, b := range v {
		if b.Deleted() && !f.IncludeDeleted {
			continue
		}
		if len(f.Types) > 0 && !slices.Contains(f.Types, b.Type) {
			continue
		}
		if len(f.Statuses) > 0 && !slices.Contains(f.Statuses, b.Status) {
			continue
		}
		if f.SpaceName != "" && b.SpaceName != f.SpaceName {
			continue
		}
		if f.From != nil && b.StartAt.Before(*f.From) {
			continue
		}
		if f.To != nil && !b.StartAt.Before(*f.To) {
			continue
		}
		if f.Search != "" && !strings.Contains(strings.ToLower(b.Title+" "+b.Description+" "+b.ContactName), strings.ToLower(f.Search)) {
			continue
		}
		matched = append(matched, b)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].StartAt.After(matched[j].StartAt) })

	total := len(matched)
	lo := min(p.Offset(), total)
	hi := min(lo+p.PageSize, total)
	return matched[lo:hi], total, nil
}

func (v rowsView) inRange(from, to *time.Time) []model.Booking {
	var out []model.Booking
	for _, b := range v {
		if b.Deleted() {
			continue
		}
		if from != nil && b.StartAt.Before(*from) {
			continue
		}
		if to != nil && !b.StartAt.Before(*to) {
			continue
		}
		out = append(out, b)
	}
	return out
}

func (v rowsView) spaceNames() []string {
	seen := map[string]bool{}
	var out []string
	for _, b := range v {
		if b.Deleted() || seen[b.SpaceName] {
			continue
		}
		seen[b.SpaceName] = true
		out = append(out, b.SpaceName)
	}
	sort.Strings(out)
	return out
}

type fakeTx struct {
	store  *fakeStore
	staged map[string]*model.Booking
	events []outbox.Event
	held   []*sync.Mutex
	locked map[string]bool
}

func (t *fakeTx) unlock() {
	for i := len(t.held) - 1; i >= 0; i-- {
		t.held[i].Unlock()
	}
}

func (t *fakeTx) LockSpaces(ctx context.Context, spaces ...string) error {
	sorted := append([]string(nil), spaces...)
	sort.Strings(sorted)
	if t.locked == nil {
		t.locked = map[string]bool{}
	}
	for _, sp := range sorted {
		if t.locked[sp] {
			continue
		}
		l := t.store.spaceLock(sp)
		l.Lock()
		t.held = append(t.held, l)
		t.locked[sp] = true
	}
	return nil
}

func (t *fakeTx) Get(ctx context.Context, id string, includeDeleted bool) (model.Booking, error) {
	return t.store.view(t.staged).get(id, includeDeleted, t.store.readErr)
}

func (t *fakeTx) GetForUpdate(ctx context.Context, id string) (model.Booking, error) {
	return t.store.view(t.staged).get(id, true, t.store.readErr)
}

func (t *fakeTx) ListActiveOverlapping(ctx context.Context, space string, start, end time.Time) ([]model.Booking, error) {
	return t.store.view(t.staged).activeOverlapping(t.store, space, start, end)
}

func (t *fakeTx) List(ctx context.Context, f model.Filter, p model.Page) ([]model.Booking, int, error) {
	return t.store.view(t.staged).list(f, p)
}

func (t *fakeTx) ListInRange(ctx context.Context, from, to *time.Time) ([]model.Booking, error) {
	return t.store.view(t.staged).inRange(from, to), nil
}

func (t *fakeTx) SpaceNames(ctx context.Context) ([]string, error) {
	return t.store.view(t.staged).spaceNames(), nil
}

func (t *fakeTx) checkOverlap(b model.Booking) error {
	if !t.store.enforceOverlap || !b.Active() {
		return nil
	}
	target := availability.Interval{Start: b.StartAt, End: b.EndAt}
	for _, other := range t.store.view(t.staged) {
		if other.ID == b.ID || other.SpaceName != b.SpaceName || !other.Active() {
			continue
		}
		if availability.Overlaps(target, availability.Interval{Start: other.StartAt, End: other.EndAt}) {
			return ErrOverlap
		}
	}
	return nil
}

func (t *fakeTx) Insert(ctx context.Context, b model.Booking) error {
	if err := t.checkOverlap(b); err != nil {
		return err
	}
	t.staged[b.ID] = &b
	return nil
}

func (t *fakeTx) Update(ctx context.Context, b model.Booking) error {
	if err := t.checkOverlap(b); err != nil {
		return err
	}
	t.staged[b.ID] = &b
	return nil
}

func (t *fakeTx) Delete(ctx context.Context, id string) (bool, error) {
	if _, ok := t.store.view(t.staged)[id]; !ok {
		return false, nil
	}
	t.staged[id] = nil
	return true, nil
}

func (t *fakeTx) Emit(ctx context.Context, evt outbox.Event) error {
	t.events = append(t.events, evt)
	return nil
}
