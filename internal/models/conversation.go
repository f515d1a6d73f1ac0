package models

import "time"

// MessageType distinguishes plain chat from the settlement protocol messages.
type MessageType string

const (
	MessageTypeText                MessageType = "text"
	MessageTypeSettlementRequest   MessageType = "settlement_request"
	MessageTypeSettlementConfirmed MessageType = "settlement_confirmed"
	MessageTypeSettlementDismissed MessageType = "settlement_dismissed"
)

// ParseMessageType validates a client-supplied message type. An empty string
// defaults to text.
func ParseMessageType(s string) (MessageType, bool) {
	switch MessageType(s) {
	case "":
		return MessageTypeText, true
	case MessageTypeText, MessageTypeSettlementRequest:
		return MessageType(s), true
	case MessageTypeSettlementConfirmed, MessageTypeSettlementDismissed:
		// Settlement responses are only ever authored server-side.
		return "", false
	}
	return "", false
}

// Conversation pairs exactly one caregiver with one care recipient.
// Uniqueness of the pair is enforced by the backend that creates rows.
type Conversation struct {
	ID              int64     `json:"id"`
	CareGiverID     int64     `json:"careGiverId"`
	CareRecipientID int64     `json:"careRecipientId"`
	LastMessageAt   time.Time `json:"lastMessageAt"`
	CreatedAt       time.Time `json:"createdAt"`
}

// Participant returns the role-tagged party of the conversation for the given
// role, and whether that role participates at all.
func (c *Conversation) Participant(role Role) (int64, bool) {
	switch role {
	case RoleCareGiver:
		return c.CareGiverID, true
	case RoleCareRecipient:
		return c.CareRecipientID, true
	}
	return 0, false
}

// Message is a single conversation message. Immutable after creation except
// for the IsRead flag, which only ever flips false to true.
type Message struct {
	ID             int64       `json:"id"`
	ConversationID int64       `json:"conversationId"`
	SenderRole     Role        `json:"senderRole"`
	SenderID       int64       `json:"senderId"`
	Content        string      `json:"content"`
	MessageType    MessageType `json:"messageType"`
	IsRead         bool        `json:"isRead"`
	CreatedAt      time.Time   `json:"createdAt"`
}
