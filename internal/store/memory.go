package store

import (
	"context"
	"sync"
	"time"

	"github.com/artzymeri/miteinander/internal/models"
)

// MemoryStore is an in-process DataStore used by tests and by local
// development when neither DATABASE_URL nor SQLITE_PATH is set. It applies
// the same conditional-update semantics as the SQL stores.
type MemoryStore struct {
	mu sync.Mutex

	users           map[string]*models.User // keyed by models.UserKey
	careRecipients  map[int64]*models.CareRecipient
	conversations   map[int64]*models.Conversation
	messages        map[int64]*models.Message
	supportTickets  map[int64]*models.SupportTicket
	supportMessages map[int64]*models.SupportMessage

	nextMessageID        int64
	nextSupportMessageID int64
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:                make(map[string]*models.User),
		careRecipients:       make(map[int64]*models.CareRecipient),
		conversations:        make(map[int64]*models.Conversation),
		messages:             make(map[int64]*models.Message),
		supportTickets:       make(map[int64]*models.SupportTicket),
		supportMessages:      make(map[int64]*models.SupportMessage),
		nextMessageID:        1,
		nextSupportMessageID: 1,
	}
}

// Close is a no-op for the memory store.
func (s *MemoryStore) Close() {}

// Ping always succeeds.
func (s *MemoryStore) Ping(ctx context.Context) error { return nil }

// PutUser seeds an identity. Rows normally come from the REST backend.
func (s *MemoryStore) PutUser(u *models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *u
	s.users[models.UserKey(u.Role, u.ID)] = &cp
	if u.Role == models.RoleCareRecipient {
		if _, ok := s.careRecipients[u.ID]; !ok {
			s.careRecipients[u.ID] = &models.CareRecipient{ID: u.ID}
		}
	}
}

// PutCareRecipient seeds a settlement projection.
func (s *MemoryStore) PutCareRecipient(cr *models.CareRecipient) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *cr
	s.careRecipients[cr.ID] = &cp
}

// PutConversation seeds a conversation.
func (s *MemoryStore) PutConversation(c *models.Conversation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *c
	s.conversations[c.ID] = &cp
}

// PutSupportTicket seeds a support ticket.
func (s *MemoryStore) PutSupportTicket(t *models.SupportTicket) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *t
	s.supportTickets[t.ID] = &cp
}

// GetUser retrieves an identity.
func (s *MemoryStore) GetUser(ctx context.Context, role models.Role, id int64) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[models.UserKey(role, id)]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

// GetCareRecipient retrieves the settlement projection.
func (s *MemoryStore) GetCareRecipient(ctx context.Context, id int64) (*models.CareRecipient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cr, ok := s.careRecipients[id]
	if !ok {
		return nil, nil
	}
	cp := *cr
	return &cp, nil
}

// SettleCareRecipient applies the settlement transition iff not yet settled.
func (s *MemoryStore) SettleCareRecipient(ctx context.Context, recipientID, caregiverID int64, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cr, ok := s.careRecipients[recipientID]
	if !ok || cr.IsSettled {
		return false, nil
	}
	cr.IsSettled = true
	cid := caregiverID
	cr.SettledWithCaregiverID = &cid
	t := at
	cr.SettledAt = &t
	return true, nil
}

// GetConversation retrieves a conversation.
func (s *MemoryStore) GetConversation(ctx context.Context, id int64) (*models.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.conversations[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

// TouchConversation bumps the freshness timestamp.
func (s *MemoryStore) TouchConversation(ctx context.Context, id int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.conversations[id]; ok {
		c.LastMessageAt = at
	}
	return nil
}

// CreateMessage persists a conversation message.
func (s *MemoryStore) CreateMessage(ctx context.Context, msg *models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg.ID = s.nextMessageID
	s.nextMessageID++
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	cp := *msg
	s.messages[msg.ID] = &cp
	return nil
}

// GetMessage retrieves a message.
func (s *MemoryStore) GetMessage(ctx context.Context, id int64) (*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.messages[id]
	if !ok {
		return nil, nil
	}
	cp := *m
	return &cp, nil
}

// MarkMessagesRead flips is_read on unread messages from senderRole.
func (s *MemoryStore) MarkMessagesRead(ctx context.Context, conversationID int64, senderRole models.Role) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, m := range s.messages {
		if m.ConversationID == conversationID && m.SenderRole == senderRole && !m.IsRead {
			m.IsRead = true
			n++
		}
	}
	return n, nil
}

// GetSupportTicket retrieves a support ticket.
func (s *MemoryStore) GetSupportTicket(ctx context.Context, id int64) (*models.SupportTicket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.supportTickets[id]
	if !ok {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

// ClaimSupportTicket applies the open -> assigned transition iff still open.
func (s *MemoryStore) ClaimSupportTicket(ctx context.Context, ticketID int64, role models.Role, agentID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.supportTickets[ticketID]
	if !ok || t.Status != models.TicketStatusOpen {
		return false, nil
	}
	t.Status = models.TicketStatusAssigned
	r := role
	t.AssignedToRole = &r
	id := agentID
	t.AssignedToID = &id
	return true, nil
}

// TouchSupportTicket bumps the freshness timestamp.
func (s *MemoryStore) TouchSupportTicket(ctx context.Context, id int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.supportTickets[id]; ok {
		t.LastMessageAt = at
	}
	return nil
}

// CreateSupportMessage persists a ticket message.
func (s *MemoryStore) CreateSupportMessage(ctx context.Context, msg *models.SupportMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg.ID = s.nextSupportMessageID
	s.nextSupportMessageID++
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	cp := *msg
	s.supportMessages[msg.ID] = &cp
	return nil
}

// MarkSupportMessagesRead flips is_read on unread ticket messages from the
// given sender roles.
func (s *MemoryStore) MarkSupportMessagesRead(ctx context.Context, ticketID int64, senderRoles []models.Role) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	match := make(map[models.Role]bool, len(senderRoles))
	for _, r := range senderRoles {
		match[r] = true
	}
	var n int64
	for _, m := range s.supportMessages {
		if m.TicketID == ticketID && match[m.SenderRole] && !m.IsRead {
			m.IsRead = true
			n++
		}
	}
	return n, nil
}
