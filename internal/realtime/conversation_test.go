package realtime

import (
	"context"
	"testing"

	"github.com/artzymeri/miteinander/internal/models"
)

func TestSendMessageRequiresContent(t *testing.T) {
	svc, _, _ := newConversationService(t)
	ctx := context.Background()

	for _, content := range []string{"", "   ", "\n\t"} {
		_, err := svc.SendMessage(ctx, caregiver, convID, content, "")
		wantClientError(t, err, "Message content is required")
	}
}

func TestSendMessageUnknownConversation(t *testing.T) {
	svc, _, emit := newConversationService(t)

	_, err := svc.SendMessage(context.Background(), caregiver, 999, "hello", "")
	wantClientError(t, err, "Conversation not found")
	if len(emit.emissions) != 0 {
		t.Fatalf("rejected send must not emit, got %d emissions", len(emit.emissions))
	}
}

func TestSendMessageNonParticipant(t *testing.T) {
	svc, _, emit := newConversationService(t)

	_, err := svc.SendMessage(context.Background(), stranger, convID, "hello", "")
	wantClientError(t, err, "Access denied")
	if len(emit.emissions) != 0 {
		t.Fatalf("rejected send must not emit, got %d emissions", len(emit.emissions))
	}
}

func TestSendMessageRejectsServerOnlyTypes(t *testing.T) {
	svc, _, _ := newConversationService(t)
	ctx := context.Background()

	for _, mt := range []string{"settlement_confirmed", "settlement_dismissed", "bogus"} {
		_, err := svc.SendMessage(ctx, caregiver, convID, "hello", mt)
		wantClientError(t, err, "Invalid message type")
	}
}

func TestSendMessagePersistsAndFansOut(t *testing.T) {
	svc, st, emit := newConversationService(t)

	msg, err := svc.SendMessage(context.Background(), caregiver, convID, "  hello  ", "")
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if msg.ID == 0 {
		t.Fatal("message was not persisted")
	}
	if msg.Content != "hello" {
		t.Fatalf("content not trimmed: %q", msg.Content)
	}
	if msg.MessageType != models.MessageTypeText {
		t.Fatalf("empty type must default to text, got %q", msg.MessageType)
	}

	stored, err := st.GetMessage(context.Background(), msg.ID)
	if err != nil || stored == nil {
		t.Fatalf("stored message not found: %v", err)
	}

	rooms := emit.ofEvent(EventNewMessage)
	if len(rooms) != 1 || rooms[0].room != "conversation:10" {
		t.Fatalf("expected new_message to conversation:10, got %+v", rooms)
	}
	notifs := emit.ofEvent(EventNewMessageNotif)
	if len(notifs) != 1 || notifs[0].userKey != "care_recipient:2" {
		t.Fatalf("expected notification to care_recipient:2, got %+v", notifs)
	}
}

func TestSettlementRequestCaregiverOnly(t *testing.T) {
	svc, _, _ := newConversationService(t)

	_, err := svc.SendMessage(context.Background(), recipient, convID, "settle?", "settlement_request")
	wantClientError(t, err, "Only caregivers can send settlement requests")
}

func TestSettlementExclusivityBlocksSends(t *testing.T) {
	svc, st, _ := newConversationService(t)
	ctx := context.Background()

	other := int64(3)
	st.PutCareRecipient(&models.CareRecipient{ID: 2, IsSettled: true, SettledWithCaregiverID: &other})

	// Recipient settled with caregiver 3, so caregiver 1 is frozen out of
	// the whole conversation.
	_, err := svc.SendMessage(ctx, caregiver, convID, "hello", "")
	wantClientError(t, err, "This care recipient is settled with another caregiver")

	// Settlement requests to an already settled recipient are always
	// rejected, even from the settled caregiver.
	same := int64(1)
	st.PutCareRecipient(&models.CareRecipient{ID: 2, IsSettled: true, SettledWithCaregiverID: &same})
	_, err = svc.SendMessage(ctx, caregiver, convID, "settle?", "settlement_request")
	wantClientError(t, err, "Care recipient is already settled")

	// Plain chat from the settled caregiver keeps working.
	if _, err := svc.SendMessage(ctx, caregiver, convID, "hello again", ""); err != nil {
		t.Fatalf("settled caregiver must still chat: %v", err)
	}
}

func TestRecipientSendsUnaffectedBySettlement(t *testing.T) {
	svc, st, _ := newConversationService(t)

	other := int64(3)
	st.PutCareRecipient(&models.CareRecipient{ID: 2, IsSettled: true, SettledWithCaregiverID: &other})

	if _, err := svc.SendMessage(context.Background(), recipient, convID, "hi", ""); err != nil {
		t.Fatalf("recipient sends must not hit the exclusivity gate: %v", err)
	}
}

func seedSettlementRequest(t *testing.T, svc *ConversationService) *models.Message {
	t.Helper()
	req, err := svc.SendMessage(context.Background(), caregiver, convID, "Will you settle with me?", "settlement_request")
	if err != nil {
		t.Fatalf("seeding settlement request: %v", err)
	}
	return req
}

func TestRespondSettlementAccept(t *testing.T) {
	svc, st, emit := newConversationService(t)
	ctx := context.Background()
	req := seedSettlementRequest(t, svc)
	emit.reset()

	msg, err := svc.RespondSettlement(ctx, recipient, convID, req.ID, true)
	if err != nil {
		t.Fatalf("RespondSettlement: %v", err)
	}
	if msg.MessageType != models.MessageTypeSettlementConfirmed {
		t.Fatalf("expected settlement_confirmed, got %q", msg.MessageType)
	}
	if msg.Content != "Settlement request accepted" {
		t.Fatalf("unexpected content %q", msg.Content)
	}

	cr, err := st.GetCareRecipient(ctx, 2)
	if err != nil || cr == nil {
		t.Fatalf("recipient row missing: %v", err)
	}
	if !cr.IsSettled || cr.SettledWithCaregiverID == nil || *cr.SettledWithCaregiverID != 1 {
		t.Fatalf("recipient not settled with caregiver 1: %+v", cr)
	}

	if got := emit.ofEvent(EventSettlementCompleted); len(got) != 1 || got[0].room != "conversation:10" {
		t.Fatalf("expected settlement_completed to conversation room, got %+v", got)
	}
	if got := emit.ofEvent(EventNewMessage); len(got) != 1 {
		t.Fatalf("expected confirmation message broadcast, got %+v", got)
	}
	if got := emit.ofEvent(EventNewMessageNotif); len(got) != 1 || got[0].userKey != "care_giver:1" {
		t.Fatalf("expected caregiver notification, got %+v", got)
	}
}

func TestRespondSettlementDecline(t *testing.T) {
	svc, st, emit := newConversationService(t)
	ctx := context.Background()
	req := seedSettlementRequest(t, svc)
	emit.reset()

	msg, err := svc.RespondSettlement(ctx, recipient, convID, req.ID, false)
	if err != nil {
		t.Fatalf("RespondSettlement: %v", err)
	}
	if msg.MessageType != models.MessageTypeSettlementDismissed {
		t.Fatalf("expected settlement_dismissed, got %q", msg.MessageType)
	}
	if msg.Content != "Settlement request declined" {
		t.Fatalf("unexpected content %q", msg.Content)
	}

	cr, _ := st.GetCareRecipient(ctx, 2)
	if cr != nil && cr.IsSettled {
		t.Fatal("decline must not settle the recipient")
	}
	if got := emit.ofEvent(EventSettlementCompleted); len(got) != 0 {
		t.Fatalf("decline must not announce completion, got %+v", got)
	}
}

func TestRespondSettlementDuplicateAccept(t *testing.T) {
	svc, st, emit := newConversationService(t)
	ctx := context.Background()
	req := seedSettlementRequest(t, svc)

	if _, err := svc.RespondSettlement(ctx, recipient, convID, req.ID, true); err != nil {
		t.Fatalf("first accept: %v", err)
	}
	before, _ := st.GetCareRecipient(ctx, 2)
	emit.reset()

	// Settlement state only ever moves forward; a replayed accept keeps the
	// chat thread consistent but mutates nothing.
	msg, err := svc.RespondSettlement(ctx, recipient, convID, req.ID, true)
	if err != nil {
		t.Fatalf("duplicate accept: %v", err)
	}
	if msg.MessageType != models.MessageTypeSettlementConfirmed {
		t.Fatalf("duplicate accept still records a confirmation, got %q", msg.MessageType)
	}

	after, _ := st.GetCareRecipient(ctx, 2)
	if *after.SettledWithCaregiverID != *before.SettledWithCaregiverID || !after.SettledAt.Equal(*before.SettledAt) {
		t.Fatalf("duplicate accept mutated settlement state: %+v -> %+v", before, after)
	}
	if got := emit.ofEvent(EventSettlementCompleted); len(got) != 1 {
		t.Fatalf("accept path always announces completion, got %+v", got)
	}
}

func TestRespondSettlementGates(t *testing.T) {
	svc, st, _ := newConversationService(t)
	ctx := context.Background()
	req := seedSettlementRequest(t, svc)

	// Only the recipient side responds.
	_, err := svc.RespondSettlement(ctx, caregiver, convID, req.ID, true)
	wantClientError(t, err, "Only care recipients can respond to settlement requests")

	// Only the recipient of this conversation.
	otherRecipient := recipient
	otherRecipient.UserID = 4
	_, err = svc.RespondSettlement(ctx, otherRecipient, convID, req.ID, true)
	wantClientError(t, err, "Access denied")

	// Missing message.
	_, err = svc.RespondSettlement(ctx, recipient, convID, 999, true)
	wantClientError(t, err, "Invalid settlement request")

	// Wrong message type.
	text, err := svc.SendMessage(ctx, caregiver, convID, "just chat", "")
	if err != nil {
		t.Fatalf("seeding text message: %v", err)
	}
	_, err = svc.RespondSettlement(ctx, recipient, convID, text.ID, true)
	wantClientError(t, err, "Invalid settlement request")

	// Request belongs to a different conversation.
	st.PutConversation(&models.Conversation{ID: 11, CareGiverID: 3, CareRecipientID: 2})
	_, err = svc.RespondSettlement(ctx, recipient, 11, req.ID, true)
	wantClientError(t, err, "Invalid settlement request")
}

func TestJoinMarksCounterpartMessagesRead(t *testing.T) {
	svc, st, emit := newConversationService(t)
	ctx := context.Background()

	if _, err := svc.SendMessage(ctx, caregiver, convID, "one", ""); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.SendMessage(ctx, caregiver, convID, "two", ""); err != nil {
		t.Fatal(err)
	}
	emit.reset()

	ok, err := svc.Join(ctx, recipient, convID)
	if err != nil || !ok {
		t.Fatalf("Join = (%v, %v), want (true, nil)", ok, err)
	}
	if got := emit.ofEvent(EventMessagesRead); len(got) != 1 || got[0].userKey != "care_giver:1" {
		t.Fatalf("expected messages_read to care_giver:1, got %+v", got)
	}

	n, err := st.MarkMessagesRead(ctx, convID, models.RoleCareGiver)
	if err != nil || n != 0 {
		t.Fatalf("messages should already be read, re-mark affected %d", n)
	}

	// Re-join with nothing unread stays quiet.
	emit.reset()
	if _, err := svc.Join(ctx, recipient, convID); err != nil {
		t.Fatal(err)
	}
	if got := emit.ofEvent(EventMessagesRead); len(got) != 0 {
		t.Fatalf("idempotent join must not re-emit messages_read, got %+v", got)
	}
}

func TestJoinDeniedSilently(t *testing.T) {
	svc, _, emit := newConversationService(t)
	ctx := context.Background()

	// Neither a missing conversation nor a foreign one is distinguishable
	// to the caller.
	for _, id := range []int64{999, convID} {
		ok, err := svc.Join(ctx, stranger, id)
		if ok || err != nil {
			t.Fatalf("Join(%d) = (%v, %v), want silent denial", id, ok, err)
		}
	}
	if len(emit.emissions) != 0 {
		t.Fatalf("denied join must not emit, got %+v", emit.emissions)
	}
}

func TestTypingExcludesSender(t *testing.T) {
	svc, _, emit := newConversationService(t)

	svc.Typing(caregiver, "conn-1", convID, true)
	svc.Typing(caregiver, "conn-1", convID, false)

	start := emit.ofEvent(EventUserTyping)
	stop := emit.ofEvent(EventUserStoppedTyping)
	if len(start) != 1 || len(stop) != 1 {
		t.Fatalf("expected one start and one stop, got %+v", emit.emissions)
	}
	for _, e := range append(start, stop...) {
		if e.room != "conversation:10" || e.except != "conn-1" {
			t.Fatalf("typing must go to the room excluding the sender, got %+v", e)
		}
	}
	ev := start[0].payload.(TypingEvent)
	if ev.UserKey != "care_giver:1" {
		t.Fatalf("typing payload names the sender, got %+v", ev)
	}
}
