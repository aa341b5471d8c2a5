package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/office-seat-booking/internal/model"
	"github.com/iliyamo/office-seat-booking/internal/queue"
	"github.com/iliyamo/office-seat-booking/internal/repository"
)

// memorySeats applies the same conditional transitions as the SQL store,
// guarded by a mutex instead of row locks.
type memorySeats struct {
	mu    sync.Mutex
	seats map[int]model.Seat
}

func newMemorySeats() *memorySeats { return &memorySeats{seats: map[int]model.Seat{}} }

func (m *memorySeats) Count(context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.seats), nil
}

func (m *memorySeats) CreateBulk(_ context.Context, seats []model.Seat) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range seats {
		if _, ok := m.seats[s.ID]; !ok {
			m.seats[s.ID] = s
		}
	}
	return nil
}

func (m *memorySeats) List(context.Context) ([]model.Seat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Seat, 0, len(m.seats))
	for _, s := range m.seats {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memorySeats) GetByID(_ context.Context, id int) (*model.Seat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.seats[id]
	if !ok {
		return nil, repository.ErrSeatNotFound
	}
	return &s, nil
}

func (m *memorySeats) Occupy(_ context.Context, id int, w3ID string, d *model.BookingDetails) (*model.Seat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.seats[id]
	if !ok {
		return nil, repository.ErrSeatNotFound
	}
	if s.Status != model.SeatAvailable {
		return nil, repository.ErrSeatUnavailable
	}
	holder := w3ID
	s.Status, s.BookedBy, s.BookingDetails = model.SeatOccupied, &holder, d
	m.seats[id] = s
	return &s, nil
}

func (m *memorySeats) Vacate(_ context.Context, id int, w3ID string, force bool) (*model.Seat, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.seats[id]
	if !ok {
		return nil, false, repository.ErrSeatNotFound
	}
	if s.Status == model.SeatAvailable {
		return &s, false, nil
	}
	if !force && *s.BookedBy != w3ID {
		return nil, false, repository.ErrForbidden
	}
	s.Status, s.BookedBy, s.BookingDetails = model.SeatAvailable, nil, nil
	m.seats[id] = s
	return &s, true, nil
}

func (m *memorySeats) ListHeldBy(_ context.Context, w3ID string) ([]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []int
	for id, s := range m.seats {
		if s.BookedBy != nil && *s.BookedBy == w3ID {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)
	return ids, nil
}

// memoryEmployees mirrors the upsert and history semantics of EmployeeRepo.
type memoryEmployees struct {
	mu        sync.Mutex
	employees map[string]model.Employee
	history   map[string]map[int]bool
	failAdd   error
}

func newMemoryEmployees() *memoryEmployees {
	return &memoryEmployees{employees: map[string]model.Employee{}, history: map[string]map[int]bool{}}
}

func (m *memoryEmployees) RecordLogin(_ context.Context, e model.Employee, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.employees[e.W3ID]; ok {
		cur.LastLoginAt = now
		m.employees[e.W3ID] = cur
		return nil
	}
	e.FirstLoginAt, e.LastLoginAt = now, now
	m.employees[e.W3ID] = e
	return nil
}

func (m *memoryEmployees) AddBookedSeat(_ context.Context, w3ID string, seatID int, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAdd != nil {
		return m.failAdd
	}
	if _, ok := m.employees[w3ID]; !ok {
		m.employees[w3ID] = model.Employee{W3ID: w3ID, FirstLoginAt: now, LastLoginAt: now}
	}
	if m.history[w3ID] == nil {
		m.history[w3ID] = map[int]bool{}
	}
	m.history[w3ID][seatID] = true
	return nil
}

func (m *memoryEmployees) GetByW3ID(_ context.Context, w3ID string) (*model.Employee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.employees[w3ID]
	if !ok {
		return nil, repository.ErrEmployeeNotFound
	}
	for id := range m.history[w3ID] {
		e.BookedSeats = append(e.BookedSeats, id)
	}
	sort.Ints(e.BookedSeats)
	return &e, nil
}

// recordingPublisher keeps every published event.
type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.SeatEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev queue.SeatEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

var errStore = errors.New("store down")

// failingSeats returns errStore from Count.
type failingSeats struct{ *memorySeats }

func (failingSeats) Count(context.Context) (int, error) { return 0, errStore }
