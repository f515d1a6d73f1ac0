package models

import "time"

// TicketStatus is the support ticket state machine: open -> assigned -> closed.
// This service performs only the open -> assigned transition (auto-claim on
// first agent reply); closing happens through the REST backend.
type TicketStatus string

const (
	TicketStatusOpen     TicketStatus = "open"
	TicketStatusAssigned TicketStatus = "assigned"
	TicketStatusClosed   TicketStatus = "closed"
)

// SupportTicket is a helpdesk ticket raised by a caregiver or care recipient.
type SupportTicket struct {
	ID             int64        `json:"id"`
	UserRole       Role         `json:"userRole"`
	UserID         int64        `json:"userId"`
	Subject        string       `json:"subject,omitempty"`
	Status         TicketStatus `json:"status"`
	AssignedToRole *Role        `json:"assignedToRole,omitempty"`
	AssignedToID   *int64       `json:"assignedToId,omitempty"`
	LastMessageAt  time.Time    `json:"lastMessageAt"`
	CreatedAt      time.Time    `json:"createdAt"`
}

// OwnedBy reports whether the given identity created the ticket.
func (t *SupportTicket) OwnedBy(role Role, id int64) bool {
	return t.UserRole == role && t.UserID == id
}

// AssignedTo reports whether the ticket is assigned to the given agent.
func (t *SupportTicket) AssignedTo(role Role, id int64) bool {
	return t.AssignedToRole != nil && *t.AssignedToRole == role &&
		t.AssignedToID != nil && *t.AssignedToID == id
}

// SupportMessage is a single message in a ticket thread.
type SupportMessage struct {
	ID         int64     `json:"id"`
	TicketID   int64     `json:"ticketId"`
	SenderRole Role      `json:"senderRole"`
	SenderID   int64     `json:"senderId"`
	Content    string    `json:"content"`
	IsRead     bool      `json:"isRead"`
	CreatedAt  time.Time `json:"createdAt"`
}
