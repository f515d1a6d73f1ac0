package realtime

import (
	"context"
	"testing"

	"github.com/artzymeri/miteinander/internal/auth"
	"github.com/artzymeri/miteinander/internal/models"
)

func TestSupportSendRequiresContent(t *testing.T) {
	svc, _, _ := newSupportService(t)

	_, err := svc.SendMessage(context.Background(), recipient, ticketID, "   ")
	wantClientError(t, err, "Message content is required")
}

func TestSupportSendUnknownTicket(t *testing.T) {
	svc, _, _ := newSupportService(t)

	_, err := svc.SendMessage(context.Background(), recipient, 999, "help")
	wantClientError(t, err, "Ticket not found")
}

func TestSupportSendStrangerDenied(t *testing.T) {
	svc, _, emit := newSupportService(t)

	// Caregiver 3 neither owns the ticket nor is an agent.
	_, err := svc.SendMessage(context.Background(), stranger, ticketID, "hello")
	wantClientError(t, err, "Access denied")
	if len(emit.emissions) != 0 {
		t.Fatalf("rejected send must not emit, got %+v", emit.emissions)
	}
}

func TestSupportAutoClaimOnFirstAgentReply(t *testing.T) {
	svc, st, emit := newSupportService(t)
	ctx := context.Background()

	msg, err := svc.SendMessage(ctx, supportB, ticketID, "How can I help?")
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if msg.ID == 0 {
		t.Fatal("message was not persisted")
	}

	ticket, _ := st.GetSupportTicket(ctx, ticketID)
	if ticket.Status != models.TicketStatusAssigned || !ticket.AssignedTo(models.RoleSupport, supportB.UserID) {
		t.Fatalf("first agent reply must claim the ticket: %+v", ticket)
	}

	if got := emit.ofEvent(EventSupportMessage); len(got) != 1 || got[0].room != "support_ticket:50" {
		t.Fatalf("expected support_message to ticket room, got %+v", got)
	}
	if got := emit.ofEvent(EventSupportMessageNotif); len(got) != 1 || got[0].userKey != "care_recipient:2" {
		t.Fatalf("expected owner notification, got %+v", got)
	}
	claims := emit.ofEvent(EventSupportTicketClaim)
	if len(claims) != 1 || claims[0].room != "support_agents" {
		t.Fatalf("expected claim broadcast to support_agents, got %+v", claims)
	}
	ev := claims[0].payload.(SupportTicketClaimedEvent)
	if ev.AssignedToID != supportB.UserID || ev.AssignedToRole != models.RoleSupport {
		t.Fatalf("claim event names the wrong agent: %+v", ev)
	}
}

func TestSupportSecondReplyDoesNotReclaim(t *testing.T) {
	svc, _, emit := newSupportService(t)
	ctx := context.Background()

	if _, err := svc.SendMessage(ctx, supportB, ticketID, "first"); err != nil {
		t.Fatal(err)
	}
	emit.reset()

	if _, err := svc.SendMessage(ctx, supportB, ticketID, "second"); err != nil {
		t.Fatal(err)
	}
	if got := emit.ofEvent(EventSupportTicketClaim); len(got) != 0 {
		t.Fatalf("only the claiming reply broadcasts the claim, got %+v", got)
	}
}

func TestSupportAgentExclusivity(t *testing.T) {
	svc, st, _ := newSupportService(t)
	ctx := context.Background()

	if _, err := svc.SendMessage(ctx, supportB, ticketID, "claimed"); err != nil {
		t.Fatal(err)
	}

	_, err := svc.SendMessage(ctx, supportA, ticketID, "me too")
	wantClientError(t, err, "This ticket is assigned to another agent")

	// Admins bypass the exclusivity rule without taking over the ticket.
	if _, err := svc.SendMessage(ctx, admin, ticketID, "supervising"); err != nil {
		t.Fatalf("admin reply on assigned ticket: %v", err)
	}
	ticket, _ := st.GetSupportTicket(ctx, ticketID)
	if !ticket.AssignedTo(models.RoleSupport, supportB.UserID) {
		t.Fatalf("admin reply must not reassign, got %+v", ticket)
	}
}

func TestOwnerSendOnOpenTicketNotifiesAgentPools(t *testing.T) {
	svc, _, emit := newSupportService(t)

	if _, err := svc.SendMessage(context.Background(), recipient, ticketID, "still broken"); err != nil {
		t.Fatal(err)
	}

	updates := emit.ofEvent(EventSupportTicketUpdate)
	if len(updates) != 2 {
		t.Fatalf("open ticket activity goes to both agent pools, got %+v", updates)
	}
	rooms := map[string]bool{}
	for _, e := range updates {
		rooms[e.room] = true
	}
	if !rooms["support_agents"] || !rooms["admin_agents"] {
		t.Fatalf("expected support_agents and admin_agents, got %v", rooms)
	}
}

func TestOwnerSendOnAssignedTicketNotifiesAssignee(t *testing.T) {
	svc, _, emit := newSupportService(t)
	ctx := context.Background()

	if _, err := svc.SendMessage(ctx, supportB, ticketID, "claiming"); err != nil {
		t.Fatal(err)
	}
	emit.reset()

	if _, err := svc.SendMessage(ctx, recipient, ticketID, "thanks"); err != nil {
		t.Fatal(err)
	}

	updates := emit.ofEvent(EventSupportTicketUpdate)
	if len(updates) != 2 {
		t.Fatalf("expected assignee plus admin pool, got %+v", updates)
	}
	var toAssignee, toAdmins bool
	for _, e := range updates {
		if e.userKey == "support:9" {
			toAssignee = true
		}
		if e.room == "admin_agents" {
			toAdmins = true
		}
	}
	if !toAssignee || !toAdmins {
		t.Fatalf("expected direct assignee notification and admin pool update, got %+v", updates)
	}
}

func TestSupportJoinAccess(t *testing.T) {
	svc, _, _ := newSupportService(t)
	ctx := context.Background()

	join := func(t *testing.T, sub auth.Identity, want bool) {
		t.Helper()
		ok, err := svc.Join(ctx, sub, ticketID)
		if err != nil {
			t.Fatalf("Join: %v", err)
		}
		if ok != want {
			t.Fatalf("Join as %s = %v, want %v", sub.Key(), ok, want)
		}
	}

	// Open ticket: owner, admins and every support agent may look in.
	join(t, recipient, true)
	join(t, admin, true)
	join(t, supportA, true)
	join(t, supportB, true)
	join(t, stranger, false)

	// Assigned ticket: support access narrows to the assignee.
	if _, err := svc.SendMessage(ctx, supportB, ticketID, "claiming"); err != nil {
		t.Fatal(err)
	}
	join(t, supportB, true)
	join(t, supportA, false)
	join(t, admin, true)
	join(t, recipient, true)

	// Missing ticket is indistinguishable from a denied one.
	ok, err := svc.Join(ctx, recipient, 999)
	if ok || err != nil {
		t.Fatalf("Join(missing) = (%v, %v), want silent denial", ok, err)
	}
}

func TestSupportJoinReadMarkingIsAsymmetric(t *testing.T) {
	svc, st, _ := newSupportService(t)
	ctx := context.Background()

	if _, err := svc.SendMessage(ctx, recipient, ticketID, "from owner"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.SendMessage(ctx, supportB, ticketID, "from agent"); err != nil {
		t.Fatal(err)
	}

	// The joining agent clears the user-authored backlog only.
	if _, err := svc.Join(ctx, supportB, ticketID); err != nil {
		t.Fatal(err)
	}
	n, err := st.MarkSupportMessagesRead(ctx, ticketID, userSenderRoles)
	if err != nil || n != 0 {
		t.Fatalf("user-authored messages should be read after agent join, re-mark affected %d", n)
	}
	n, err = st.MarkSupportMessagesRead(ctx, ticketID, agentSenderRoles)
	if err != nil || n != 1 {
		t.Fatalf("agent-authored message must stay unread for the agent, re-mark affected %d", n)
	}

	// And the owner clears the agent-authored backlog. The re-mark above
	// already consumed it, so seed another agent message.
	if _, err := svc.SendMessage(ctx, supportB, ticketID, "another"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Join(ctx, recipient, ticketID); err != nil {
		t.Fatal(err)
	}
	n, err = st.MarkSupportMessagesRead(ctx, ticketID, agentSenderRoles)
	if err != nil || n != 0 {
		t.Fatalf("agent-authored messages should be read after owner join, re-mark affected %d", n)
	}
}
