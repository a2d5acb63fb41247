package reservation

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"petcare/internal/modules/audit"
	"petcare/internal/modules/directory"
	"petcare/internal/modules/notification"
	"petcare/internal/modules/pricing"
	"petcare/internal/types"
)

var taipei = time.FixedZone("Asia/Taipei", 8*3600)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, taipei)
}

type memStore struct {
	mu   sync.Mutex
	rows map[types.ID]Reservation
}

func newMemStore() *memStore {
	return &memStore{rows: map[types.ID]Reservation{}}
}

func (m *memStore) Create(_ context.Context, r *Reservation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[r.ID] = *r
	return nil
}

func (m *memStore) Get(_ context.Context, id types.ID) (*Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &r, nil
}

func (m *memStore) UpdateStatus(_ context.Context, id types.ID, from, to Status, version int, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	if !ok || r.Status != from || r.StatusVersion != version {
		return false, nil
	}
	r.Status = to
	r.StatusVersion++
	r.UpdatedAt = at
	m.rows[id] = r
	return true, nil
}

func (m *memStore) List(_ context.Context, f ListFilter) ([]Reservation, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []Reservation
	for _, r := range m.rows {
		switch f.Role {
		case ListAsOwner:
			if r.OwnerID != f.UserID {
				continue
			}
		case ListAsCaregiver:
			if r.CaregiverID != f.UserID {
				continue
			}
		default:
			if r.Party(f.UserID) == "" {
				continue
			}
		}
		if f.Status != nil && r.Status != *f.Status {
			continue
		}
		all = append(all, r)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	start := (f.Page - 1) * f.Limit
	if start > len(all) {
		start = len(all)
	}
	end := start + f.Limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], len(all), nil
}

func (m *memStore) ListDue(_ context.Context, status Status, field DateField, from, to time.Time) ([]Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Reservation
	for _, r := range m.rows {
		d := r.StartDate
		if field == FieldEndDate {
			d = r.EndDate
		}
		if r.Status == status && !d.Before(from) && d.Before(to) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) put(r Reservation) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[r.ID] = r
}

func (m *memStore) status(id types.ID) Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rows[id].Status
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// After never fires; loop tests only exercise Start and Stop.
func (c *fakeClock) After(time.Duration) <-chan time.Time {
	return make(chan time.Time)
}

type fakeDirectory struct {
	users map[types.ID]*directory.User
}

func (d fakeDirectory) GetUser(_ context.Context, id types.ID) (*directory.User, error) {
	u, ok := d.users[id]
	if !ok {
		return nil, directory.ErrUserNotFound
	}
	return u, nil
}

func (d fakeDirectory) GetAddress(_ context.Context, userID, addressID types.ID) (directory.Address, error) {
	u, ok := d.users[userID]
	if !ok {
		return directory.Address{}, directory.ErrAddressNotFound
	}
	a, ok := u.Address(addressID)
	if !ok {
		return directory.Address{}, directory.ErrAddressNotFound
	}
	return a, nil
}

type fakePets map[types.ID]directory.Pet

func (p fakePets) GetPets(_ context.Context, ids []types.ID) ([]directory.Pet, error) {
	out := make([]directory.Pet, 0, len(ids))
	for _, id := range ids {
		pet, ok := p[id]
		if !ok {
			return nil, directory.ErrPetNotFound
		}
		out = append(out, pet)
	}
	return out, nil
}

type fixedRate float64

func (f fixedRate) CommissionRate(context.Context) (float64, error) { return float64(f), nil }

type recordingSender struct {
	mu   sync.Mutex
	msgs []notification.Message
	fail bool
}

func (s *recordingSender) Send(_ context.Context, msg notification.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = append(s.msgs, msg)
	if s.fail {
		return errors.New("push unavailable")
	}
	return nil
}

func (s *recordingSender) count(event string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, m := range s.msgs {
		if m.Event == event {
			n++
		}
	}
	return n
}

type recordingAudit struct {
	mu      sync.Mutex
	entries []audit.Entry
}

func (a *recordingAudit) Append(_ context.Context, e audit.Entry) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, e)
	return nil
}

type fixture struct {
	store  *memStore
	clock  *fakeClock
	sender *recordingSender
	audit  *recordingAudit
	svc    *Service
}

func ptr[T any](v T) *T { return &v }

func newFixture(now time.Time) *fixture {
	store := newMemStore()
	clock := &fakeClock{now: now}
	sender := &recordingSender{}
	au := &recordingAudit{}
	dir := fakeDirectory{users: map[types.ID]*directory.User{
		"owner": {
			ID:   "owner",
			Name: "Owner",
			Addresses: []directory.Address{
				{ID: "home", UserID: "owner", Label: "Home", FullAddress: "No. 1, Taipei", Position: types.Point{Lat: 25.0330, Lng: 121.5654}},
			},
		},
		"carer": {
			ID:   "carer",
			Name: "Carer",
			Addresses: []directory.Address{
				{ID: "studio", UserID: "carer", Label: "Studio", FullAddress: "No. 9, Taipei", Position: types.Point{Lat: 25.0478, Lng: 121.5170}},
			},
			Care: directory.CareConfig{
				HomeCareEnabled:    true,
				PricePerDay:        ptr(int64(2000)),
				PetHomeCareEnabled: true,
				PricePerVisit:      ptr(int64(1000)),
				AcceptedPetTypes:   []string{"dog", "cat"},
			},
		},
	}}
	pets := fakePets{
		"rex":   {ID: "rex", OwnerID: "owner", Name: "Rex", Type: "dog"},
		"tom":   {ID: "tom", OwnerID: "owner", Name: "Tom", Type: "cat"},
		"polly": {ID: "polly", OwnerID: "owner", Name: "Polly", Type: "bird"},
		"other": {ID: "other", OwnerID: "someone", Name: "Other", Type: "dog"},
	}
	svc := NewService(store, Deps{
		Directory: dir,
		Pets:      pets,
		Pricing:   pricing.NewService(fixedRate(0.06)),
		Audit:     au,
		Notifier:  sender,
		Clock:     clock,
		Location:  taipei,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	return &fixture{store: store, clock: clock, sender: sender, audit: au, svc: svc}
}

// seed stores a reservation directly in status.
func (f *fixture) seed(id types.ID, status Status, start, end time.Time) Reservation {
	r := Reservation{
		ID:           id,
		OwnerID:      "owner",
		CaregiverID:  "carer",
		PetIDs:       []types.ID{"rex"},
		StartDate:    start,
		EndDate:      end,
		CareLocation: types.CareCaregiverHome,
		TotalPrice:   types.NewMoney(2000),
		Commission:   types.NewMoney(120),
		TotalOwner:   types.NewMoney(2120),
		Status:       status,
		CreatedAt:    f.clock.Now(),
		UpdatedAt:    f.clock.Now(),
	}
	f.store.put(r)
	return r
}
