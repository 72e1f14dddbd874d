package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dormdesk/maintenance-service/internal/domain"
	"github.com/dormdesk/maintenance-service/internal/events"
	"github.com/dormdesk/maintenance-service/internal/repository"
	apperrors "github.com/dormdesk/maintenance-service/pkg/util"
)

// Caller identifies the authenticated actor performing an operation.
type Caller struct {
	ID   int64
	Role domain.Role
}

// TechnicianChange is the tri-state assignment field of a ticket patch.
// Set=false leaves the assignment untouched; Set=true with a nil ID is an
// explicit clear, distinct from an absent field.
type TechnicianChange struct {
	Set bool
	ID  *int64
}

// TicketPatch carries only the fields a caller intends to change. Accept,
// Assign, Cancel, Resolve and Rate are all expressed through this one
// structure rather than five separate operations.
type TicketPatch struct {
	Status       *domain.TicketStatus
	Technician   TechnicianChange
	Rating       *int
	Review       *string
	CancelReason *string
	ImageAfter   *string
}

// Empty reports whether the patch carries no fields at all.
func (p TicketPatch) Empty() bool {
	return p.Status == nil && !p.Technician.Set && p.Rating == nil &&
		p.Review == nil && p.CancelReason == nil && p.ImageAfter == nil
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Title       string
	Description *string
	RoomNumber  *string
	ImageBefore *string
}

// TicketService is the lifecycle engine: it validates and applies state
// transitions, enforcing the role-based preconditions of each one.
type TicketService struct {
	tickets    repository.TicketRepository
	users      repository.UserRepository
	dispatcher events.Dispatcher
}

// TicketDependencies bundles repositories for the ticket service.
type TicketDependencies struct {
	TicketRepo repository.TicketRepository
	UserRepo   repository.UserRepository
	Dispatcher events.Dispatcher
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		tickets:    deps.TicketRepo,
		users:      deps.UserRepo,
		dispatcher: deps.Dispatcher,
	}
}

// CreateTicket files a new request. Only residents create tickets; the
// creator reference is immutable afterwards.
func (s *TicketService) CreateTicket(ctx context.Context, caller Caller, input TicketCreateInput) (*domain.Ticket, error) {
	if caller.Role != domain.RoleResident {
		return nil, apperrors.NewForbidden("only residents can file tickets")
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperrors.NewValidationError("title required", nil)
	}

	ticket := &domain.Ticket{
		Title:       title,
		Description: input.Description,
		RoomNumber:  input.RoomNumber,
		CreatedBy:   caller.ID,
		ImageBefore: input.ImageBefore,
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}

	publishEvent(ctx, s.dispatcher, caller, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Payload: events.TicketCreatedPayload{
			Title:      ticket.Title,
			RoomNumber: ticket.RoomNumber,
		},
	})
	return s.GetTicket(ctx, ticket.ID)
}

// ListTickets returns tickets visible to the caller: residents see their own,
// technicians see unassigned tickets plus their own, admins see everything.
func (s *TicketService) ListTickets(ctx context.Context, caller Caller) ([]domain.Ticket, error) {
	filter := repository.TicketFilter{}
	switch caller.Role {
	case domain.RoleResident:
		filter.CreatedBy = &caller.ID
	case domain.RoleTechnician:
		filter.AssignedOrUnassigned = &caller.ID
	case domain.RoleAdmin:
	default:
		return nil, apperrors.NewForbidden("unknown role")
	}
	tickets, err := s.tickets.List(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// GetTicket fetches a single ticket by id. There is deliberately no role
// filter here; any authenticated caller may fetch by id (deep-link sharing).
func (s *TicketService) GetTicket(ctx context.Context, id int64) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		return nil, mapTicketLookup(err, id)
	}
	return ticket, nil
}

func mapTicketLookup(err error, id int64) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": id})
	}
	return apperrors.MapError(err)
}

// UpdateTicket applies a partial update under the transition rules. The
// precondition check and the write happen inside one locked transaction, so
// two technicians racing to accept the same Pending ticket cannot both win.
func (s *TicketService) UpdateTicket(ctx context.Context, caller Caller, id int64, patch TicketPatch) (*domain.Ticket, error) {
	if patch.Empty() {
		return nil, apperrors.NewValidationError("no fields to update", nil)
	}
	if err := s.checkAssignee(ctx, caller, patch); err != nil {
		return nil, err
	}

	var change *events.TicketStatusChangedPayload
	var rated *events.TicketRatedPayload
	updated, err := s.tickets.Mutate(ctx, id, func(t *domain.Ticket) error {
		oldStatus := t.Status
		if err := applyPatch(t, caller, patch); err != nil {
			return err
		}
		if t.Status != oldStatus {
			change = &events.TicketStatusChangedPayload{
				OldStatus:    oldStatus,
				NewStatus:    t.Status,
				TechnicianID: t.TechnicianID,
				CancelReason: t.CancelReason,
			}
		}
		if patch.Rating != nil && t.TechnicianID != nil {
			rated = &events.TicketRatedPayload{
				TechnicianID: *t.TechnicianID,
				Rating:       *t.Rating,
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": id})
		}
		return nil, apperrors.MapError(err)
	}

	if change != nil {
		publishEvent(ctx, s.dispatcher, caller, events.Event{
			Type:     events.EventTicketStatusChanged,
			TicketID: updated.ID,
			Payload:  *change,
		})
	}
	if rated != nil {
		publishEvent(ctx, s.dispatcher, caller, events.Event{
			Type:     events.EventTicketRated,
			TicketID: updated.ID,
			Payload:  *rated,
		})
	}
	return s.GetTicket(ctx, updated.ID)
}

// DeleteTicket removes a ticket. Admins may delete any ticket; a resident may
// delete their own ticket only while it is still Pending. The permission
// check runs inside the same row lock as the delete, so a creator's delete
// racing a technician's accept cannot remove an In-Progress ticket.
func (s *TicketService) DeleteTicket(ctx context.Context, caller Caller, id int64) error {
	err := s.tickets.Delete(ctx, id, func(t *domain.Ticket) error {
		switch {
		case caller.Role == domain.RoleAdmin:
		case caller.Role == domain.RoleResident && t.CreatedBy == caller.ID && t.Status == domain.TicketStatusPending:
		default:
			return apperrors.NewForbidden("not allowed to delete this ticket")
		}
		return nil
	})
	if err != nil {
		return mapTicketLookup(err, id)
	}
	publishEvent(ctx, s.dispatcher, caller, events.Event{
		Type:     events.EventTicketDeleted,
		TicketID: id,
	})
	return nil
}

// checkAssignee validates the assignment target of an admin Assign before the
// row lock is taken; existence of the assignee does not depend on ticket state.
func (s *TicketService) checkAssignee(ctx context.Context, caller Caller, patch TicketPatch) error {
	if caller.Role != domain.RoleAdmin || !patch.Technician.Set || patch.Technician.ID == nil {
		return nil
	}
	assignee, err := s.users.GetByID(ctx, *patch.Technician.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("technician", map[string]any{"technician_id": *patch.Technician.ID})
		}
		return apperrors.MapError(err)
	}
	if assignee.Role != domain.RoleTechnician {
		return apperrors.NewValidationError("assignee is not a technician", map[string]any{"user_id": assignee.ID})
	}
	return nil
}

// applyPatch is the transition table. It classifies the patch as one of the
// supported transitions, checks that transition's preconditions against the
// locked ticket state and mutates the ticket in place. Every violated
// precondition is a distinct rejection, never a silent no-op.
func applyPatch(t *domain.Ticket, caller Caller, patch TicketPatch) error {
	switch {
	case patch.Status != nil:
		if patch.Rating != nil {
			return apperrors.NewValidationError("rating cannot be combined with a status change", nil)
		}
		return applyStatusChange(t, caller, patch)
	case patch.Rating != nil:
		return applyRating(t, caller, patch)
	default:
		return apperrors.NewValidationError("update does not match a supported transition", nil)
	}
}

func applyStatusChange(t *domain.Ticket, caller Caller, patch TicketPatch) error {
	target := *patch.Status
	if !target.Valid() {
		return apperrors.NewValidationError("unknown status", map[string]any{"status": target})
	}

	switch {
	case t.Status == domain.TicketStatusPending && target == domain.TicketStatusInProgress:
		return applyAcceptOrAssign(t, caller, patch)
	case t.Status == domain.TicketStatusInProgress && target == domain.TicketStatusPending:
		return applyCancel(t, caller, patch)
	case t.Status == domain.TicketStatusInProgress && target == domain.TicketStatusResolved:
		return applyResolve(t, caller, patch)
	default:
		return apperrors.NewConflict("invalid status transition", map[string]any{
			"from": t.Status,
			"to":   target,
		})
	}
}

// applyAcceptOrAssign handles the two edges out of Pending: a technician
// accepting for themselves, or an admin assigning a chosen technician.
func applyAcceptOrAssign(t *domain.Ticket, caller Caller, patch TicketPatch) error {
	switch caller.Role {
	case domain.RoleTechnician:
		if patch.Technician.Set && (patch.Technician.ID == nil || *patch.Technician.ID != caller.ID) {
			return apperrors.NewForbidden("technicians may only accept tickets for themselves")
		}
		id := caller.ID
		t.Status = domain.TicketStatusInProgress
		t.TechnicianID = &id
		return nil
	case domain.RoleAdmin:
		if !patch.Technician.Set || patch.Technician.ID == nil {
			return apperrors.NewValidationError("technician_id required for assignment", nil)
		}
		t.Status = domain.TicketStatusInProgress
		t.TechnicianID = patch.Technician.ID
		return nil
	default:
		return apperrors.NewForbidden("residents cannot change ticket status")
	}
}

func applyCancel(t *domain.Ticket, caller Caller, patch TicketPatch) error {
	if caller.Role != domain.RoleTechnician {
		return apperrors.NewForbidden("only technicians can cancel a repair")
	}
	if t.TechnicianID == nil || *t.TechnicianID != caller.ID {
		return apperrors.NewForbidden("only the assigned technician can cancel this repair")
	}
	if patch.Technician.Set && patch.Technician.ID != nil {
		return apperrors.NewValidationError("cancellation must clear the assignment", nil)
	}
	if patch.CancelReason == nil || strings.TrimSpace(*patch.CancelReason) == "" {
		return apperrors.NewValidationError("cancel_reason required", nil)
	}
	reason := strings.TrimSpace(*patch.CancelReason)
	t.Status = domain.TicketStatusPending
	t.TechnicianID = nil
	t.CancelReason = &reason
	return nil
}

func applyResolve(t *domain.Ticket, caller Caller, patch TicketPatch) error {
	if patch.Review != nil || patch.CancelReason != nil {
		return apperrors.NewValidationError("resolution cannot carry review or cancellation fields", nil)
	}
	if caller.Role != domain.RoleTechnician {
		return apperrors.NewForbidden("only technicians can resolve tickets")
	}
	if t.TechnicianID == nil || *t.TechnicianID != caller.ID {
		return apperrors.NewForbidden("only the assigned technician can resolve this ticket")
	}
	if patch.ImageAfter == nil {
		return apperrors.NewValidationError("image_after required to resolve", nil)
	}
	t.Status = domain.TicketStatusResolved
	t.ImageAfter = patch.ImageAfter
	return nil
}

func applyRating(t *domain.Ticket, caller Caller, patch TicketPatch) error {
	if patch.Technician.Set || patch.ImageAfter != nil || patch.CancelReason != nil {
		return apperrors.NewValidationError("rating cannot be combined with other changes", nil)
	}
	if caller.Role != domain.RoleResident || t.CreatedBy != caller.ID {
		return apperrors.NewForbidden("only the ticket creator can rate it")
	}
	if t.Status != domain.TicketStatusResolved {
		return apperrors.NewConflict("only resolved tickets can be rated", map[string]any{"status": t.Status})
	}
	if t.Rating != nil {
		return apperrors.NewConflict("ticket already rated", nil)
	}
	rating := *patch.Rating
	if rating < 1 || rating > 5 {
		return apperrors.NewValidationError("rating must be between 1 and 5", map[string]any{"rating": rating})
	}
	value := int16(rating)
	t.Rating = &value
	if patch.Review != nil {
		review := strings.TrimSpace(*patch.Review)
		if review != "" {
			t.Review = &review
		}
	}
	return nil
}

// publishEvent stamps id, timestamp and actor onto an event before handing
// it to the dispatcher. Every service publishes through here so event
// envelopes stay uniform.
func publishEvent(ctx context.Context, dispatcher events.Dispatcher, caller Caller, event events.Event) {
	if dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	event.ActorID = caller.ID
	event.ActorRole = caller.Role
	_ = dispatcher.Publish(ctx, event)
}
