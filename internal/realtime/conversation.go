package realtime

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/artzymeri/miteinander/internal/auth"
	"github.com/artzymeri/miteinander/internal/metrics"
	"github.com/artzymeri/miteinander/internal/models"
	"github.com/artzymeri/miteinander/internal/store"
)

// ConversationService validates participation, enforces the settlement access
// rules, persists chat messages and fans out delivery. The store is the
// single source of truth: settlement state is re-read on every send rather
// than cached on the connection.
type ConversationService struct {
	store  store.DataStore
	emit   Emitter
	policy AuthorizationPolicy
	log    zerolog.Logger
	now    func() time.Time
}

// NewConversationService wires the service.
func NewConversationService(st store.DataStore, emit Emitter, policy AuthorizationPolicy, log zerolog.Logger) *ConversationService {
	return &ConversationService{
		store:  st,
		emit:   emit,
		policy: policy,
		log:    log,
		now:    time.Now,
	}
}

// counterpart returns the other party of the conversation relative to role.
func counterpart(conv *models.Conversation, role models.Role) (models.Role, int64) {
	if role == models.RoleCareGiver {
		return models.RoleCareRecipient, conv.CareRecipientID
	}
	return models.RoleCareGiver, conv.CareGiverID
}

// isParticipant reports whether the identity is a party of the conversation.
func isParticipant(conv *models.Conversation, sub auth.Identity) bool {
	id, ok := conv.Participant(sub.Role)
	return ok && id == sub.UserID
}

// Join authorizes the caller for the conversation room and marks the other
// party's messages as read. Returns whether the caller may join; missing
// conversations and non-participants are handled per the join policy
// (silently by default, so existence is not leaked).
func (s *ConversationService) Join(ctx context.Context, sub auth.Identity, conversationID int64) (bool, error) {
	conv, err := s.store.GetConversation(ctx, conversationID)
	if err != nil {
		return false, err
	}
	if conv == nil || !isParticipant(conv, sub) {
		if s.policy.OnJoinDenied == DenyExplicit {
			return false, errAccessDenied
		}
		return false, nil
	}

	if err := s.markRead(ctx, conv, sub); err != nil {
		// Read-marking is a side effect of joining; log and let the
		// join succeed.
		s.log.Error().Err(err).Int64("conversation_id", conversationID).Msg("failed to mark messages read on join")
	}
	return true, nil
}

// MarkRead bulk-marks the other party's unread messages as read, invokable
// independently of joining. Fire-and-forget: no ack on the wire.
func (s *ConversationService) MarkRead(ctx context.Context, sub auth.Identity, conversationID int64) error {
	conv, err := s.store.GetConversation(ctx, conversationID)
	if err != nil {
		return err
	}
	if conv == nil || !isParticipant(conv, sub) {
		return nil
	}
	return s.markRead(ctx, conv, sub)
}

func (s *ConversationService) markRead(ctx context.Context, conv *models.Conversation, sub auth.Identity) error {
	otherRole, otherID := counterpart(conv, sub.Role)
	n, err := s.store.MarkMessagesRead(ctx, conv.ID, otherRole)
	if err != nil {
		return err
	}
	if n > 0 {
		s.emit.ToUser(otherRole, otherID, EventMessagesRead, MessagesReadEvent{ConversationID: conv.ID})
	}
	return nil
}

// SendMessage runs the full validation chain, persists the message, bumps
// conversation freshness and fans out delivery. Persistence happens only
// after every check passes, so a rejected send leaves no partial state.
func (s *ConversationService) SendMessage(ctx context.Context, sub auth.Identity, conversationID int64, content, messageType string) (*models.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, errContentRequired
	}

	msgType, ok := models.ParseMessageType(messageType)
	if !ok {
		return nil, errInvalidMessageType
	}

	conv, err := s.store.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return nil, errConversationNotFound
	}

	if !isParticipant(conv, sub) {
		if s.policy.OnSendDenied == DenyExplicit {
			return nil, errAccessDenied
		}
		return nil, nil
	}

	if msgType == models.MessageTypeSettlementRequest {
		if sub.Role != models.RoleCareGiver {
			return nil, errSettlementCaregiverOnly
		}
	}

	// Settlement state is re-read at send time; the persisted row is the
	// source of truth for the exclusivity rule.
	if sub.Role == models.RoleCareGiver {
		recipient, err := s.store.GetCareRecipient(ctx, conv.CareRecipientID)
		if err != nil {
			return nil, err
		}
		if recipient != nil && recipient.IsSettled {
			if msgType == models.MessageTypeSettlementRequest {
				return nil, errAlreadySettled
			}
			if recipient.SettledWithCaregiverID == nil || *recipient.SettledWithCaregiverID != sub.UserID {
				return nil, errSettledElsewhere
			}
		}
	}

	msg := &models.Message{
		ConversationID: conv.ID,
		SenderRole:     sub.Role,
		SenderID:       sub.UserID,
		Content:        content,
		MessageType:    msgType,
	}
	if err := s.store.CreateMessage(ctx, msg); err != nil {
		return nil, err
	}
	if err := s.store.TouchConversation(ctx, conv.ID, s.now()); err != nil {
		s.log.Error().Err(err).Int64("conversation_id", conv.ID).Msg("failed to bump conversation freshness")
	}

	metrics.MessagesSent.WithLabelValues(string(msgType)).Inc()

	s.emit.ToRoom(ConversationRoom(conv.ID), EventNewMessage, msg)

	otherRole, otherID := counterpart(conv, sub.Role)
	s.emit.ToUser(otherRole, otherID, EventNewMessageNotif, NewMessageNotification{
		ConversationID: conv.ID,
		Message:        msg,
		SenderName:     strconv.FormatInt(sub.UserID, 10),
	})

	return msg, nil
}

// Typing broadcasts an ephemeral typing signal to everyone else in the
// conversation room. No persistence, no authorization check.
func (s *ConversationService) Typing(sub auth.Identity, connID string, conversationID int64, started bool) {
	event := EventUserTyping
	if !started {
		event = EventUserStoppedTyping
	}
	s.emit.ToRoomExcept(ConversationRoom(conversationID), connID, event, TypingEvent{
		ConversationID: conversationID,
		UserKey:        sub.Key(),
	})
}

// RespondSettlement processes a recipient's accept/decline of a settlement
// request. The settlement transition itself is a conditional update, so a
// duplicate accept creates a confirmation message but mutates nothing.
func (s *ConversationService) RespondSettlement(ctx context.Context, sub auth.Identity, conversationID, messageID int64, accepted bool) (*models.Message, error) {
	if sub.Role != models.RoleCareRecipient {
		return nil, errRecipientOnly
	}

	conv, err := s.store.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if conv == nil || conv.CareRecipientID != sub.UserID {
		return nil, errAccessDenied
	}

	request, err := s.store.GetMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if request == nil || request.MessageType != models.MessageTypeSettlementRequest || request.ConversationID != conv.ID {
		return nil, errInvalidSettlement
	}

	msgType := models.MessageTypeSettlementDismissed
	content := "Settlement request declined"
	if accepted {
		msgType = models.MessageTypeSettlementConfirmed
		content = "Settlement request accepted"
	}

	msg := &models.Message{
		ConversationID: conv.ID,
		SenderRole:     sub.Role,
		SenderID:       sub.UserID,
		Content:        content,
		MessageType:    msgType,
	}
	if err := s.store.CreateMessage(ctx, msg); err != nil {
		return nil, err
	}
	if err := s.store.TouchConversation(ctx, conv.ID, s.now()); err != nil {
		s.log.Error().Err(err).Int64("conversation_id", conv.ID).Msg("failed to bump conversation freshness")
	}

	if accepted {
		applied, err := s.store.SettleCareRecipient(ctx, sub.UserID, conv.CareGiverID, s.now())
		if err != nil {
			return nil, err
		}
		if applied {
			metrics.SettlementsCompleted.Inc()
		}
	}

	metrics.MessagesSent.WithLabelValues(string(msgType)).Inc()

	s.emit.ToRoom(ConversationRoom(conv.ID), EventNewMessage, msg)
	s.emit.ToUser(models.RoleCareGiver, conv.CareGiverID, EventNewMessageNotif, NewMessageNotification{
		ConversationID: conv.ID,
		Message:        msg,
		SenderName:     strconv.FormatInt(sub.UserID, 10),
	})

	if accepted {
		s.emit.ToRoom(ConversationRoom(conv.ID), EventSettlementCompleted, SettlementCompletedEvent{
			ConversationID:  conv.ID,
			CareRecipientID: conv.CareRecipientID,
			CareGiverID:     conv.CareGiverID,
		})
	}

	return msg, nil
}
