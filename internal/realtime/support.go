package realtime

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/artzymeri/miteinander/internal/auth"
	"github.com/artzymeri/miteinander/internal/metrics"
	"github.com/artzymeri/miteinander/internal/models"
	"github.com/artzymeri/miteinander/internal/store"
)

var userSenderRoles = []models.Role{models.RoleCareGiver, models.RoleCareRecipient}
var agentSenderRoles = []models.Role{models.RoleAdmin, models.RoleSupport}

// SupportService handles the helpdesk ticket threads: access control,
// auto-assignment on first agent reply, and sender-class dependent
// notification routing.
type SupportService struct {
	store  store.DataStore
	emit   Emitter
	policy AuthorizationPolicy
	log    zerolog.Logger
	now    func() time.Time
}

// NewSupportService wires the service.
func NewSupportService(st store.DataStore, emit Emitter, policy AuthorizationPolicy, log zerolog.Logger) *SupportService {
	return &SupportService{
		store:  st,
		emit:   emit,
		policy: policy,
		log:    log,
		now:    time.Now,
	}
}

// canView reports whether the identity may enter the ticket room: the
// creator, any admin, the assigned support agent, or any support agent
// previewing a still-open ticket.
func canView(t *models.SupportTicket, sub auth.Identity) bool {
	if t.OwnedBy(sub.Role, sub.UserID) {
		return true
	}
	switch sub.Role {
	case models.RoleAdmin:
		return true
	case models.RoleSupport:
		return t.AssignedTo(models.RoleSupport, sub.UserID) || t.Status == models.TicketStatusOpen
	}
	return false
}

// Join authorizes the caller for the ticket room and marks the opposing
// sender class's messages as read. Denials follow the join policy (silent by
// default).
func (s *SupportService) Join(ctx context.Context, sub auth.Identity, ticketID int64) (bool, error) {
	ticket, err := s.store.GetSupportTicket(ctx, ticketID)
	if err != nil {
		return false, err
	}
	if ticket == nil || !canView(ticket, sub) {
		if s.policy.OnJoinDenied == DenyExplicit {
			return false, errAccessDenied
		}
		return false, nil
	}

	// Agents clear the user-authored backlog; the owner clears the
	// agent-authored one.
	readFrom := userSenderRoles
	if ticket.OwnedBy(sub.Role, sub.UserID) {
		readFrom = agentSenderRoles
	}
	if _, err := s.store.MarkSupportMessagesRead(ctx, ticketID, readFrom); err != nil {
		s.log.Error().Err(err).Int64("ticket_id", ticketID).Msg("failed to mark support messages read on join")
	}
	return true, nil
}

// SendMessage validates access, auto-claims open tickets on first agent
// reply, persists the message and routes notifications by sender class.
func (s *SupportService) SendMessage(ctx context.Context, sub auth.Identity, ticketID int64, content string) (*models.SupportMessage, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, errContentRequired
	}

	ticket, err := s.store.GetSupportTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket == nil {
		return nil, errTicketNotFound
	}

	isOwner := ticket.OwnedBy(sub.Role, sub.UserID)
	if !isOwner && !sub.Role.IsAgent() {
		if s.policy.OnSendDenied == DenyExplicit {
			return nil, errAccessDenied
		}
		return nil, nil
	}

	// First agent reply on an open ticket claims it. The conditional
	// update makes the claim single-writer; a losing racer re-reads and
	// falls through to the exclusivity check below.
	claimed := false
	if !isOwner && ticket.Status == models.TicketStatusOpen {
		won, err := s.store.ClaimSupportTicket(ctx, ticketID, sub.Role, sub.UserID)
		if err != nil {
			return nil, err
		}
		if won {
			claimed = true
			ticket.Status = models.TicketStatusAssigned
			role := sub.Role
			ticket.AssignedToRole = &role
			id := sub.UserID
			ticket.AssignedToID = &id
			metrics.TicketsClaimed.Inc()
		} else {
			ticket, err = s.store.GetSupportTicket(ctx, ticketID)
			if err != nil {
				return nil, err
			}
			if ticket == nil {
				return nil, errTicketNotFound
			}
		}
	}

	// Support agents are exclusive per ticket; admins may reply on any
	// ticket without taking over the assignment.
	if sub.Role == models.RoleSupport && ticket.Status == models.TicketStatusAssigned &&
		!ticket.AssignedTo(models.RoleSupport, sub.UserID) {
		return nil, errTicketAssignedElsewhere
	}

	msg := &models.SupportMessage{
		TicketID:   ticket.ID,
		SenderRole: sub.Role,
		SenderID:   sub.UserID,
		Content:    content,
	}
	if err := s.store.CreateSupportMessage(ctx, msg); err != nil {
		return nil, err
	}
	if err := s.store.TouchSupportTicket(ctx, ticket.ID, s.now()); err != nil {
		s.log.Error().Err(err).Int64("ticket_id", ticket.ID).Msg("failed to bump ticket freshness")
	}

	metrics.SupportMessagesSent.Inc()

	s.emit.ToRoom(SupportTicketRoom(ticket.ID), EventSupportMessage, msg)

	if isOwner {
		update := SupportTicketUpdateEvent{TicketID: ticket.ID, Message: msg, Ticket: ticket}
		if ticket.Status == models.TicketStatusOpen {
			// Unclaimed: every agent pool sees the activity.
			s.emit.ToRoom(SupportAgentsRoom, EventSupportTicketUpdate, update)
			s.emit.ToRoom(AdminAgentsRoom, EventSupportTicketUpdate, update)
		} else {
			// Claimed: the assigned agent is notified directly; admins
			// retain visibility regardless of assignment.
			if ticket.AssignedToRole != nil && ticket.AssignedToID != nil {
				s.emit.ToUser(*ticket.AssignedToRole, *ticket.AssignedToID, EventSupportTicketUpdate, update)
			}
			s.emit.ToRoom(AdminAgentsRoom, EventSupportTicketUpdate, update)
		}
	} else {
		s.emit.ToUser(ticket.UserRole, ticket.UserID, EventSupportMessageNotif, SupportMessageNotification{
			TicketID: ticket.ID,
			Message:  msg,
		})
		if claimed {
			// Other agents drop the ticket from their unclaimed lists.
			s.emit.ToRoom(SupportAgentsRoom, EventSupportTicketClaim, SupportTicketClaimedEvent{
				TicketID:       ticket.ID,
				AssignedToID:   sub.UserID,
				AssignedToRole: sub.Role,
			})
		}
	}

	return msg, nil
}
