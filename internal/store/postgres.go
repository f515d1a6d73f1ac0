package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/artzymeri/miteinander/internal/models"
)

// PostgresStore handles PostgreSQL database operations against the schema
// owned by the marketplace REST backend.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL store with a connection pool.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

// Close closes the database connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Ping checks the database connection.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// GetUser retrieves an identity from the table matching its role.
func (s *PostgresStore) GetUser(ctx context.Context, role models.Role, id int64) (*models.User, error) {
	table, ok := userTable(role)
	if !ok {
		return nil, fmt.Errorf("unknown role %q", role)
	}

	user := &models.User{Role: role}
	err := s.pool.QueryRow(ctx, fmt.Sprintf(`
		SELECT id, name, email, is_active, created_at
		FROM %s WHERE id = $1
	`, table), id).Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.IsActive,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}

// GetCareRecipient retrieves the settlement projection of a care recipient.
func (s *PostgresStore) GetCareRecipient(ctx context.Context, id int64) (*models.CareRecipient, error) {
	cr := &models.CareRecipient{}
	err := s.pool.QueryRow(ctx, `
		SELECT id, is_settled, settled_with_caregiver_id, settled_at
		FROM care_recipients WHERE id = $1
	`, id).Scan(
		&cr.ID,
		&cr.IsSettled,
		&cr.SettledWithCaregiverID,
		&cr.SettledAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return cr, nil
}

// SettleCareRecipient performs the settlement transition. The WHERE clause on
// is_settled makes the write a compare-and-set, so two racing accepts cannot
// both win.
func (s *PostgresStore) SettleCareRecipient(ctx context.Context, recipientID, caregiverID int64, at time.Time) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE care_recipients
		SET is_settled = TRUE, settled_with_caregiver_id = $2, settled_at = $3
		WHERE id = $1 AND is_settled = FALSE
	`, recipientID, caregiverID, at)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// GetConversation retrieves a conversation by ID.
func (s *PostgresStore) GetConversation(ctx context.Context, id int64) (*models.Conversation, error) {
	conv := &models.Conversation{}
	err := s.pool.QueryRow(ctx, `
		SELECT id, care_giver_id, care_recipient_id, last_message_at, created_at
		FROM conversations WHERE id = $1
	`, id).Scan(
		&conv.ID,
		&conv.CareGiverID,
		&conv.CareRecipientID,
		&conv.LastMessageAt,
		&conv.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return conv, nil
}

// TouchConversation bumps the conversation freshness timestamp.
func (s *PostgresStore) TouchConversation(ctx context.Context, id int64, at time.Time) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE conversations SET last_message_at = $2 WHERE id = $1
	`, id, at)
	return err
}

// CreateMessage persists a conversation message and fills the generated ID
// and timestamp.
func (s *PostgresStore) CreateMessage(ctx context.Context, msg *models.Message) error {
	return s.pool.QueryRow(ctx, `
		INSERT INTO messages (conversation_id, sender_role, sender_id, content, message_type, is_read)
		VALUES ($1, $2, $3, $4, $5, FALSE)
		RETURNING id, created_at
	`, msg.ConversationID, msg.SenderRole, msg.SenderID, msg.Content, msg.MessageType).Scan(
		&msg.ID,
		&msg.CreatedAt,
	)
}

// GetMessage retrieves a message by ID.
func (s *PostgresStore) GetMessage(ctx context.Context, id int64) (*models.Message, error) {
	msg := &models.Message{}
	err := s.pool.QueryRow(ctx, `
		SELECT id, conversation_id, sender_role, sender_id, content, message_type, is_read, created_at
		FROM messages WHERE id = $1
	`, id).Scan(
		&msg.ID,
		&msg.ConversationID,
		&msg.SenderRole,
		&msg.SenderID,
		&msg.Content,
		&msg.MessageType,
		&msg.IsRead,
		&msg.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return msg, nil
}

// MarkMessagesRead bulk-marks unread messages from the given sender role.
func (s *PostgresStore) MarkMessagesRead(ctx context.Context, conversationID int64, senderRole models.Role) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE messages SET is_read = TRUE
		WHERE conversation_id = $1 AND sender_role = $2 AND is_read = FALSE
	`, conversationID, senderRole)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// GetSupportTicket retrieves a support ticket by ID.
func (s *PostgresStore) GetSupportTicket(ctx context.Context, id int64) (*models.SupportTicket, error) {
	t := &models.SupportTicket{}
	err := s.pool.QueryRow(ctx, `
		SELECT id, user_role, user_id, subject, status, assigned_to_role, assigned_to_id, last_message_at, created_at
		FROM support_tickets WHERE id = $1
	`, id).Scan(
		&t.ID,
		&t.UserRole,
		&t.UserID,
		&t.Subject,
		&t.Status,
		&t.AssignedToRole,
		&t.AssignedToID,
		&t.LastMessageAt,
		&t.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return t, nil
}

// ClaimSupportTicket performs the open -> assigned transition. Conditional on
// status, so the first agent reply wins and later claims no-op.
func (s *PostgresStore) ClaimSupportTicket(ctx context.Context, ticketID int64, role models.Role, agentID int64) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE support_tickets
		SET status = 'assigned', assigned_to_role = $2, assigned_to_id = $3
		WHERE id = $1 AND status = 'open'
	`, ticketID, role, agentID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// TouchSupportTicket bumps the ticket freshness timestamp.
func (s *PostgresStore) TouchSupportTicket(ctx context.Context, id int64, at time.Time) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE support_tickets SET last_message_at = $2 WHERE id = $1
	`, id, at)
	return err
}

// CreateSupportMessage persists a ticket message and fills the generated ID
// and timestamp.
func (s *PostgresStore) CreateSupportMessage(ctx context.Context, msg *models.SupportMessage) error {
	return s.pool.QueryRow(ctx, `
		INSERT INTO support_messages (ticket_id, sender_role, sender_id, content, is_read)
		VALUES ($1, $2, $3, $4, FALSE)
		RETURNING id, created_at
	`, msg.TicketID, msg.SenderRole, msg.SenderID, msg.Content).Scan(
		&msg.ID,
		&msg.CreatedAt,
	)
}

// MarkSupportMessagesRead bulk-marks unread ticket messages from any of the
// given sender roles.
func (s *PostgresStore) MarkSupportMessagesRead(ctx context.Context, ticketID int64, senderRoles []models.Role) (int64, error) {
	if len(senderRoles) == 0 {
		return 0, nil
	}
	roles := make([]string, len(senderRoles))
	for i, r := range senderRoles {
		roles[i] = string(r)
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE support_messages SET is_read = TRUE
		WHERE ticket_id = $1 AND sender_role = ANY($2) AND is_read = FALSE
	`, ticketID, roles)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
