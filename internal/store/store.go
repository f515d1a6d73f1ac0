package store

import (
	"context"
	"time"

	"github.com/artzymeri/miteinander/internal/models"
)

// DataStore defines the relational storage consumed by the messaging core.
// PostgresStore, SQLiteStore and MemoryStore implement this interface. Row
// creation for users, conversations and tickets belongs to the REST backend;
// this service only reads them and writes messages, read flags, activity
// timestamps, settlement state and ticket assignment.
//
// Lookup methods return (nil, nil) when no row exists.
type DataStore interface {
	// Connection management
	Close()
	Ping(ctx context.Context) error

	// Identities
	GetUser(ctx context.Context, role models.Role, id int64) (*models.User, error)
	GetCareRecipient(ctx context.Context, id int64) (*models.CareRecipient, error)
	// SettleCareRecipient marks the recipient as settled with the given
	// caregiver. The update is conditional on is_settled being false and
	// returns whether it applied, so racing accepts resolve to one winner.
	SettleCareRecipient(ctx context.Context, recipientID, caregiverID int64, at time.Time) (bool, error)

	// Conversations
	GetConversation(ctx context.Context, id int64) (*models.Conversation, error)
	TouchConversation(ctx context.Context, id int64, at time.Time) error
	CreateMessage(ctx context.Context, msg *models.Message) error
	GetMessage(ctx context.Context, id int64) (*models.Message, error)
	// MarkMessagesRead flips is_read on all unread messages in the
	// conversation authored by senderRole and returns the number of rows
	// changed.
	MarkMessagesRead(ctx context.Context, conversationID int64, senderRole models.Role) (int64, error)

	// Support tickets
	GetSupportTicket(ctx context.Context, id int64) (*models.SupportTicket, error)
	// ClaimSupportTicket performs the open -> assigned transition, binding
	// the ticket to the given agent. Conditional on status still being
	// open; returns whether the claim won.
	ClaimSupportTicket(ctx context.Context, ticketID int64, role models.Role, agentID int64) (bool, error)
	TouchSupportTicket(ctx context.Context, id int64, at time.Time) error
	CreateSupportMessage(ctx context.Context, msg *models.SupportMessage) error
	// MarkSupportMessagesRead flips is_read on unread ticket messages
	// authored by any of the given roles.
	MarkSupportMessagesRead(ctx context.Context, ticketID int64, senderRoles []models.Role) (int64, error)
}

// userTable maps a role to its table in the shared schema. The marketplace
// backend keeps one table per identity class.
func userTable(role models.Role) (string, bool) {
	switch role {
	case models.RoleCareGiver:
		return "care_givers", true
	case models.RoleCareRecipient:
		return "care_recipients", true
	case models.RoleAdmin:
		return "admins", true
	case models.RoleSupport:
		return "support_agents", true
	}
	return "", false
}
