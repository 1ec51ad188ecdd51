package usecase

import (
	"context"
	"io"
	"sort"
	"sync"
	"time"

	"vetclinic-scheduler/internal/domain/entity"
	"vetclinic-scheduler/internal/service"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// memAppointmentRepo is an in-memory AppointmentRepository. Writes hold one
// mutex, which plays the role of the active-slot unique index.
type memAppointmentRepo struct {
	mu    sync.Mutex
	rows  map[uuid.UUID]entity.Appointment
	reads int

	// failCAS forces the next UpdateIfStatus to report zero rows
	failCAS bool

	// afterTimesRead runs once, after the next FindActiveTimesByDate has read its rows
	afterTimesRead func()
}

func newMemAppointmentRepo() *memAppointmentRepo {
	return &memAppointmentRepo{rows: make(map[uuid.UUID]entity.Appointment)}
}

func (r *memAppointmentRepo) slotTakenLocked(a *entity.Appointment) bool {
	if !a.IsActive() {
		return false
	}
	for id, row := range r.rows {
		if id != a.ID && row.IsActive() && row.Date.Equal(a.Date) && row.Time == a.Time {
			return true
		}
	}
	return false
}

func (r *memAppointmentRepo) Create(ctx context.Context, a *entity.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if r.slotTakenLocked(a) {
		return entity.ErrSlotTaken
	}
	now := time.Now()
	a.CreatedAt, a.UpdatedAt = now, now
	r.rows[a.ID] = *a
	return nil
}

func (r *memAppointmentRepo) FindByID(ctx context.Context, id uuid.UUID) (*entity.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	row, ok := r.rows[id]
	if !ok {
		return nil, nil
	}
	return &row, nil
}

func (r *memAppointmentRepo) FindAll(ctx context.Context, f *entity.AppointmentFilter) ([]entity.Appointment, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []entity.Appointment
	for _, row := range r.rows {
		if f.CustomerID != nil && row.CustomerID != *f.CustomerID {
			continue
		}
		if f.PetID != nil && row.PetID != *f.PetID {
			continue
		}
		if f.Date != nil && !row.Date.Equal(*f.Date) {
			continue
		}
		if f.Status != "" && row.Status != f.Status {
			continue
		}
		if f.Type != "" && row.Type != f.Type {
			continue
		}
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].Time > out[j].Time
	})

	total := int64(len(out))
	if f.Limit > 0 {
		start := f.Offset
		if start > len(out) {
			start = len(out)
		}
		end := start + f.Limit
		if end > len(out) {
			end = len(out)
		}
		out = out[start:end]
	}
	return out, total, nil
}

func (r *memAppointmentRepo) FindActiveTimesByDate(ctx context.Context, date time.Time) ([]string, error) {
	r.mu.Lock()
	r.reads++
	var times []string
	for _, row := range r.rows {
		if row.IsActive() && row.Date.Equal(date) {
			times = append(times, row.Time)
		}
	}
	hook := r.afterTimesRead
	r.afterTimesRead = nil
	r.mu.Unlock()

	sort.Strings(times)
	if hook != nil {
		hook()
	}
	return times, nil
}

func (r *memAppointmentRepo) ExistsActiveAt(ctx context.Context, date time.Time, timeOfDay string, excludeID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	probe := entity.Appointment{ID: excludeID, Date: date, Time: timeOfDay, Status: entity.AppointmentStatusPending}
	return r.slotTakenLocked(&probe), nil
}

func (r *memAppointmentRepo) UpdateIfStatus(ctx context.Context, a *entity.Appointment, expected entity.AppointmentStatus) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.failCAS {
		r.failCAS = false
		return 0, nil
	}
	row, ok := r.rows[a.ID]
	if !ok || row.Status != expected {
		return 0, nil
	}
	if r.slotTakenLocked(a) {
		return 0, entity.ErrSlotTaken
	}
	a.UpdatedAt = time.Now()
	r.rows[a.ID] = *a
	return 1, nil
}

// seed stores a row directly, bypassing the usecase
func (r *memAppointmentRepo) seed(a entity.Appointment) entity.Appointment {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	r.rows[a.ID] = a
	return a
}

func (r *memAppointmentRepo) get(id uuid.UUID) entity.Appointment {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rows[id]
}

func (r *memAppointmentRepo) activeAt(date time.Time, timeOfDay string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, row := range r.rows {
		if row.IsActive() && row.Date.Equal(date) && row.Time == timeOfDay {
			n++
		}
	}
	return n
}

type memPetRepo struct {
	pets map[uuid.UUID]*entity.Pet
}

func (r *memPetRepo) FindByID(ctx context.Context, id uuid.UUID) (*entity.Pet, error) {
	return r.pets[id], nil
}

type memUserRepo struct {
	users map[uuid.UUID]*entity.User
}

func (r *memUserRepo) FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	return r.users[id], nil
}

type memAuditService struct {
	mu      sync.Mutex
	actions []string
}

func (s *memAuditService) LogCreate(ctx context.Context, userID *uuid.UUID, action, entityType, entityID string, newValue interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.actions = append(s.actions, action)
	return nil
}

func (s *memAuditService) LogUpdate(ctx context.Context, userID *uuid.UUID, action, entityType, entityID string, oldValue, newValue interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.actions = append(s.actions, action)
	return nil
}

func (s *memAuditService) recorded() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.actions...)
}

type fakeNotifier struct {
	mu        sync.Mutex
	reminders int
	confirmed int
	err       error
}

func (n *fakeNotifier) SendReminder(ctx context.Context, appt *entity.Appointment) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.reminders++
	return nil
}

func (n *fakeNotifier) NotifyConfirmed(appt *entity.Appointment) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.confirmed++
}

// memSlotCache is a map-backed SlotCache
type memSlotCache struct {
	mu          sync.Mutex
	days        map[string][]string
	generations map[string]int64
	hits        int
	dropped     []string
}

var _ service.SlotCache = (*memSlotCache)(nil)

func newMemSlotCache() *memSlotCache {
	return &memSlotCache{days: make(map[string][]string), generations: make(map[string]int64)}
}

func (c *memSlotCache) OccupiedTimes(ctx context.Context, date time.Time) ([]string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	times, ok := c.days[date.Format(entity.DateLayout)]
	if ok {
		c.hits++
	}
	return times, ok, nil
}

func (c *memSlotCache) Generation(ctx context.Context, date time.Time) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generations[date.Format(entity.DateLayout)], nil
}

func (c *memSlotCache) StoreOccupiedTimes(ctx context.Context, date time.Time, times []string, generation int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := date.Format(entity.DateLayout)
	if c.generations[key] != generation {
		return nil
	}
	c.days[key] = append([]string(nil), times...)
	return nil
}

func (c *memSlotCache) Invalidate(ctx context.Context, dates ...time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, d := range dates {
		key := d.Format(entity.DateLayout)
		delete(c.days, key)
		c.generations[key]++
		c.dropped = append(c.dropped, key)
	}
	return nil
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
