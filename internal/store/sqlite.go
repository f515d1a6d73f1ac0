package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/artzymeri/miteinander/internal/models"
)

// SQLiteStore handles SQLite database operations. Used for local development
// when no PostgreSQL is configured; unlike PostgresStore it owns its schema.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store.
// If dbPath is empty, defaults to "./data/miteinander.db".
func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		dbPath = "./data/miteinander.db"
	}

	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, err
	}

	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}

	// Initialize schema
	if err := store.initSchema(ctx); err != nil {
		return nil, err
	}

	return store, nil
}

// initSchema creates tables if they don't exist.
func (s *SQLiteStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS care_givers (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT DEFAULT '',
		email TEXT DEFAULT '',
		is_active INTEGER DEFAULT 1,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS care_recipients (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT DEFAULT '',
		email TEXT DEFAULT '',
		is_active INTEGER DEFAULT 1,
		is_settled INTEGER DEFAULT 0,
		settled_with_caregiver_id INTEGER,
		settled_at DATETIME,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS admins (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT DEFAULT '',
		email TEXT DEFAULT '',
		is_active INTEGER DEFAULT 1,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS support_agents (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT DEFAULT '',
		email TEXT DEFAULT '',
		is_active INTEGER DEFAULT 1,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS conversations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		care_giver_id INTEGER NOT NULL,
		care_recipient_id INTEGER NOT NULL,
		last_message_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(care_giver_id, care_recipient_id)
	);

	CREATE TABLE IF NOT EXISTS messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		conversation_id INTEGER NOT NULL,
		sender_role TEXT NOT NULL,
		sender_id INTEGER NOT NULL,
		content TEXT NOT NULL,
		message_type TEXT DEFAULT 'text',
		is_read INTEGER DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS support_tickets (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_role TEXT NOT NULL,
		user_id INTEGER NOT NULL,
		subject TEXT DEFAULT '',
		status TEXT DEFAULT 'open',
		assigned_to_role TEXT,
		assigned_to_id INTEGER,
		last_message_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS support_messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		ticket_id INTEGER NOT NULL,
		sender_role TEXT NOT NULL,
		sender_id INTEGER NOT NULL,
		content TEXT NOT NULL,
		is_read INTEGER DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id, is_read);
	CREATE INDEX IF NOT EXISTS idx_support_messages_ticket ON support_messages(ticket_id, is_read);
	CREATE INDEX IF NOT EXISTS idx_support_tickets_status ON support_tickets(status);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() {
	s.db.Close()
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// GetUser retrieves an identity from the table matching its role.
func (s *SQLiteStore) GetUser(ctx context.Context, role models.Role, id int64) (*models.User, error) {
	table, ok := userTable(role)
	if !ok {
		return nil, fmt.Errorf("unknown role %q", role)
	}

	user := &models.User{Role: role}
	err := s.db.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT id, name, email, is_active, created_at
		FROM %s WHERE id = ?
	`, table), id).Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.IsActive,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}

// GetCareRecipient retrieves the settlement projection of a care recipient.
func (s *SQLiteStore) GetCareRecipient(ctx context.Context, id int64) (*models.CareRecipient, error) {
	cr := &models.CareRecipient{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, is_settled, settled_with_caregiver_id, settled_at
		FROM care_recipients WHERE id = ?
	`, id).Scan(
		&cr.ID,
		&cr.IsSettled,
		&cr.SettledWithCaregiverID,
		&cr.SettledAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return cr, nil
}

// SettleCareRecipient performs the conditional settlement transition.
func (s *SQLiteStore) SettleCareRecipient(ctx context.Context, recipientID, caregiverID int64, at time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE care_recipients
		SET is_settled = 1, settled_with_caregiver_id = ?, settled_at = ?
		WHERE id = ? AND is_settled = 0
	`, caregiverID, at, recipientID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// GetConversation retrieves a conversation by ID.
func (s *SQLiteStore) GetConversation(ctx context.Context, id int64) (*models.Conversation, error) {
	conv := &models.Conversation{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, care_giver_id, care_recipient_id, last_message_at, created_at
		FROM conversations WHERE id = ?
	`, id).Scan(
		&conv.ID,
		&conv.CareGiverID,
		&conv.CareRecipientID,
		&conv.LastMessageAt,
		&conv.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return conv, nil
}

// TouchConversation bumps the conversation freshness timestamp.
func (s *SQLiteStore) TouchConversation(ctx context.Context, id int64, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE conversations SET last_message_at = ? WHERE id = ?
	`, at, id)
	return err
}

// CreateMessage persists a conversation message.
func (s *SQLiteStore) CreateMessage(ctx context.Context, msg *models.Message) error {
	now := time.Now()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (conversation_id, sender_role, sender_id, content, message_type, is_read, created_at)
		VALUES (?, ?, ?, ?, ?, 0, ?)
	`, msg.ConversationID, msg.SenderRole, msg.SenderID, msg.Content, msg.MessageType, now)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	msg.ID = id
	msg.CreatedAt = now
	return nil
}

// GetMessage retrieves a message by ID.
func (s *SQLiteStore) GetMessage(ctx context.Context, id int64) (*models.Message, error) {
	msg := &models.Message{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, conversation_id, sender_role, sender_id, content, message_type, is_read, created_at
		FROM messages WHERE id = ?
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
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return msg, nil
}

// MarkMessagesRead bulk-marks unread messages from the given sender role.
func (s *SQLiteStore) MarkMessagesRead(ctx context.Context, conversationID int64, senderRole models.Role) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE messages SET is_read = 1
		WHERE conversation_id = ? AND sender_role = ? AND is_read = 0
	`, conversationID, senderRole)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// GetSupportTicket retrieves a support ticket by ID.
func (s *SQLiteStore) GetSupportTicket(ctx context.Context, id int64) (*models.SupportTicket, error) {
	t := &models.SupportTicket{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_role, user_id, subject, status, assigned_to_role, assigned_to_id, last_message_at, created_at
		FROM support_tickets WHERE id = ?
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
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return t, nil
}

// ClaimSupportTicket performs the conditional open -> assigned transition.
func (s *SQLiteStore) ClaimSupportTicket(ctx context.Context, ticketID int64, role models.Role, agentID int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE support_tickets
		SET status = 'assigned', assigned_to_role = ?, assigned_to_id = ?
		WHERE id = ? AND status = 'open'
	`, role, agentID, ticketID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// TouchSupportTicket bumps the ticket freshness timestamp.
func (s *SQLiteStore) TouchSupportTicket(ctx context.Context, id int64, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE support_tickets SET last_message_at = ? WHERE id = ?
	`, at, id)
	return err
}

// CreateSupportMessage persists a ticket message.
func (s *SQLiteStore) CreateSupportMessage(ctx context.Context, msg *models.SupportMessage) error {
	now := time.Now()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO support_messages (ticket_id, sender_role, sender_id, content, is_read, created_at)
		VALUES (?, ?, ?, ?, 0, ?)
	`, msg.TicketID, msg.SenderRole, msg.SenderID, msg.Content, now)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	msg.ID = id
	msg.CreatedAt = now
	return nil
}

// MarkSupportMessagesRead bulk-marks unread ticket messages from any of the
// given sender roles.
func (s *SQLiteStore) MarkSupportMessagesRead(ctx context.Context, ticketID int64, senderRoles []models.Role) (int64, error) {
	if len(senderRoles) == 0 {
		return 0, nil
	}

	placeholders := make([]string, len(senderRoles))
	args := make([]interface{}, 0, len(senderRoles)+1)
	args = append(args, ticketID)
	for i, r := range senderRoles {
		placeholders[i] = "?"
		args = append(args, string(r))
	}

	res, err := s.db.ExecContext(ctx, fmt.Sprintf(`
		UPDATE support_messages SET is_read = 1
		WHERE ticket_id = ? AND sender_role IN (%s) AND is_read = 0
	`, strings.Join(placeholders, ",")), args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
