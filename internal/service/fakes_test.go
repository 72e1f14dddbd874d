package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/dormdesk/maintenance-service/internal/domain"
	"github.com/dormdesk/maintenance-service/internal/events"
	"github.com/dormdesk/maintenance-service/internal/repository"
)

// fakeTicketRepo is an in-memory TicketRepository. Mutate serializes through
// a mutex the way the SQL implementation serializes through a row lock, so
// racing transition attempts resolve one at a time here too.
type fakeTicketRepo struct {
	mu      sync.Mutex
	nextID  int64
	tickets map[int64]*domain.Ticket
}

func newFakeTicketRepo() *fakeTicketRepo {
	return &fakeTicketRepo{tickets: map[int64]*domain.Ticket{}}
}

func (f *fakeTicketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	ticket.ID = f.nextID
	ticket.Status = domain.TicketStatusPending
	ticket.CreatedAt = time.Now()
	clone := *ticket
	f.tickets[ticket.ID] = &clone
	return nil
}

func (f *fakeTicketRepo) GetByID(_ context.Context, id int64) (*domain.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ticket, ok := f.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *ticket
	return &clone, nil
}

func (f *fakeTicketRepo) List(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Ticket
	for _, ticket := range f.tickets {
		if filter.CreatedBy != nil && ticket.CreatedBy != *filter.CreatedBy {
			continue
		}
		if filter.AssignedOrUnassigned != nil &&
			ticket.TechnicianID != nil && *ticket.TechnicianID != *filter.AssignedOrUnassigned {
			continue
		}
		out = append(out, *ticket)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (f *fakeTicketRepo) Mutate(_ context.Context, id int64, fn func(*domain.Ticket) error) (*domain.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ticket, ok := f.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	working := *ticket
	if err := fn(&working); err != nil {
		return nil, err
	}
	f.tickets[id] = &working
	clone := working
	return &clone, nil
}

func (f *fakeTicketRepo) Delete(_ context.Context, id int64, guard func(*domain.Ticket) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	ticket, ok := f.tickets[id]
	if !ok {
		return pgx.ErrNoRows
	}
	working := *ticket
	if err := guard(&working); err != nil {
		return err
	}
	delete(f.tickets, id)
	return nil
}

// fakeUserRepo is an in-memory UserRepository.
type fakeUserRepo struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]*domain.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[int64]*domain.User{}}
}

func (f *fakeUserRepo) add(user domain.User) domain.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	if user.ID == 0 {
		f.nextID++
		user.ID = f.nextID
	} else if user.ID > f.nextID {
		f.nextID = user.ID
	}
	user.CreatedAt = time.Now()
	clone := user
	f.users[user.ID] = &clone
	return user
}

func (f *fakeUserRepo) Create(_ context.Context, user *domain.User) error {
	*user = f.add(*user)
	return nil
}

func (f *fakeUserRepo) Update(_ context.Context, user *domain.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[user.ID]; !ok {
		return pgx.ErrNoRows
	}
	clone := *user
	f.users[user.ID] = &clone
	return nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id int64) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *user
	return &clone, nil
}

func (f *fakeUserRepo) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, user := range f.users {
		if user.Username == username {
			clone := *user
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeUserRepo) List(_ context.Context) ([]domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.User
	for _, user := range f.users {
		out = append(out, *user)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeUserRepo) ListTechnicians(_ context.Context) ([]domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.User
	for _, user := range f.users {
		if user.Role == domain.RoleTechnician {
			out = append(out, *user)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// fakeMessageRepo is an in-memory MessageRepository; it denormalizes sender
// fields from the user repo the way the SQL join does.
type fakeMessageRepo struct {
	mu       sync.Mutex
	nextID   int64
	messages []domain.Message
	users    *fakeUserRepo
}

func newFakeMessageRepo(users *fakeUserRepo) *fakeMessageRepo {
	return &fakeMessageRepo{users: users}
}

func (f *fakeMessageRepo) Create(ctx context.Context, msg *domain.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	msg.ID = f.nextID
	msg.CreatedAt = time.Now()
	if f.users != nil {
		if sender, err := f.users.GetByID(ctx, msg.SenderID); err == nil {
			msg.SenderName = sender.Name
			msg.SenderRole = sender.Role
			msg.SenderAvatar = sender.Avatar
		}
	}
	f.messages = append(f.messages, *msg)
	return nil
}

func (f *fakeMessageRepo) ListByTicket(_ context.Context, ticketID int64) ([]domain.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Message
	for _, msg := range f.messages {
		if msg.TicketID == ticketID {
			out = append(out, msg)
		}
	}
	return out, nil
}

// fakeReportRepo is an in-memory ReportRepository.
type fakeReportRepo struct {
	assignments []domain.TechnicianAssignment
	reviews     map[int64][]domain.TechnicianReview
}

func (f *fakeReportRepo) TechnicianAssignments(_ context.Context) ([]domain.TechnicianAssignment, error) {
	return f.assignments, nil
}

func (f *fakeReportRepo) ReviewsByTechnician(_ context.Context, technicianID int64) ([]domain.TechnicianReview, error) {
	return f.reviews[technicianID], nil
}

// recordingDispatcher captures published events for assertions.
type recordingDispatcher struct {
	mu     sync.Mutex
	events []events.Event
}

func (d *recordingDispatcher) Publish(_ context.Context, event events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
	return nil
}

func (d *recordingDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func (d *recordingDispatcher) ofType(eventType events.EventType) []events.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []events.Event
	for _, e := range d.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}
