package realtime

import (
	"encoding/json"

	"github.com/artzymeri/miteinander/internal/models"
)

// Inbound event names (client -> server).
const (
	EventJoinConversation   = "join_conversation"
	EventLeaveConversation  = "leave_conversation"
	EventSendMessage        = "send_message"
	EventTypingStart        = "typing_start"
	EventTypingStop         = "typing_stop"
	EventRespondSettlement  = "respond_settlement"
	EventMarkRead           = "mark_read"
	EventJoinSupportTicket  = "join_support_ticket"
	EventLeaveSupportTicket = "leave_support_ticket"
	EventSendSupportMessage = "send_support_message"
)

// Outbound event names (server -> client).
const (
	EventAck                 = "ack"
	EventNewMessage          = "new_message"
	EventNewMessageNotif     = "new_message_notification"
	EventMessagesRead        = "messages_read"
	EventUserTyping          = "user_typing"
	EventUserStoppedTyping   = "user_stopped_typing"
	EventSettlementCompleted = "settlement_completed"
	EventSupportMessage      = "support_message"
	EventSupportTicketUpdate = "support_ticket_update"
	EventSupportTicketClaim  = "support_ticket_claimed"
	EventSupportMessageNotif = "support_message_notification"
)

// ClientFrame is an inbound frame. The optional correlation id turns
// ack-carrying events into an explicit request/response pair: the server
// fulfils each id exactly once.
type ClientFrame struct {
	ID    string          `json:"id,omitempty"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// ServerFrame is an outbound frame. ID is set only on acks, echoing the
// client's correlation id.
type ServerFrame struct {
	Event string      `json:"event"`
	ID    string      `json:"id,omitempty"`
	Data  interface{} `json:"data,omitempty"`
}

func encodeFrame(event string, data interface{}) ([]byte, error) {
	return json.Marshal(ServerFrame{Event: event, Data: data})
}

// AckSuccess acknowledges a fulfilled request.
type AckSuccess struct {
	Success bool        `json:"success"`
	Message interface{} `json:"message,omitempty"`
}

// AckError acknowledges a failed request with a client-safe message.
type AckError struct {
	Error string `json:"error"`
}

// Inbound payloads.

type joinConversationPayload struct {
	ConversationID int64 `json:"conversationId"`
}

type sendMessagePayload struct {
	ConversationID int64  `json:"conversationId"`
	Content        string `json:"content"`
	MessageType    string `json:"messageType,omitempty"`
}

type respondSettlementPayload struct {
	ConversationID int64 `json:"conversationId"`
	MessageID      int64 `json:"messageId"`
	Accepted       bool  `json:"accepted"`
}

type ticketPayload struct {
	TicketID int64 `json:"ticketId"`
}

type sendSupportMessagePayload struct {
	TicketID int64  `json:"ticketId"`
	Content  string `json:"content"`
}

// Outbound payloads.

// MessagesReadEvent tells the other party's devices their messages in the
// conversation were read.
type MessagesReadEvent struct {
	ConversationID int64 `json:"conversationId"`
}

// NewMessageNotification is delivered to the counterpart's personal room so
// badges update even outside the conversation view. SenderName is the numeric
// sender id stringified; the frontend resolves display names itself.
type NewMessageNotification struct {
	ConversationID int64           `json:"conversationId"`
	Message        *models.Message `json:"message"`
	SenderName     string          `json:"senderName"`
}

// TypingEvent signals typing state changes inside a conversation room.
type TypingEvent struct {
	ConversationID int64  `json:"conversationId"`
	UserKey        string `json:"userKey"`
}

// SettlementCompletedEvent announces an accepted settlement to both parties.
type SettlementCompletedEvent struct {
	ConversationID  int64 `json:"conversationId"`
	CareRecipientID int64 `json:"careRecipientId"`
	CareGiverID     int64 `json:"careGiverId"`
}

// SupportTicketUpdateEvent notifies the agent pools about activity on a
// ticket from its owner.
type SupportTicketUpdateEvent struct {
	TicketID int64                  `json:"ticketId"`
	Message  *models.SupportMessage `json:"message"`
	Ticket   *models.SupportTicket  `json:"ticket"`
}

// SupportTicketClaimedEvent tells other agents a ticket left the unassigned
// pool.
type SupportTicketClaimedEvent struct {
	TicketID       int64       `json:"ticketId"`
	AssignedToID   int64       `json:"assignedToId"`
	AssignedToRole models.Role `json:"assignedToRole"`
}

// SupportMessageNotification is delivered to the ticket owner's personal room
// when an agent replies.
type SupportMessageNotification struct {
	TicketID int64                  `json:"ticketId"`
	Message  *models.SupportMessage `json:"message"`
}
