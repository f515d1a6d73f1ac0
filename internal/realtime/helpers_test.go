package realtime

import (
	"testing"

	"github.com/rs/zerolog"

	"github.com/artzymeri/miteinander/internal/auth"
	"github.com/artzymeri/miteinander/internal/models"
	"github.com/artzymeri/miteinander/internal/store"
)

// Shared fixture: caregiver 1 and recipient 2 share conversation 10, and
// recipient 2 owns open support ticket 50.
var (
	caregiver = auth.Identity{UserID: 1, Role: models.RoleCareGiver}
	recipient = auth.Identity{UserID: 2, Role: models.RoleCareRecipient}
	stranger  = auth.Identity{UserID: 3, Role: models.RoleCareGiver}
	supportA  = auth.Identity{UserID: 8, Role: models.RoleSupport}
	supportB  = auth.Identity{UserID: 9, Role: models.RoleSupport}
	admin     = auth.Identity{UserID: 7, Role: models.RoleAdmin}
)

const (
	convID   = int64(10)
	ticketID = int64(50)
)

func seedStore() *store.MemoryStore {
	st := store.NewMemoryStore()
	st.PutUser(&models.User{ID: 1, Role: models.RoleCareGiver, Name: "Greta", IsActive: true})
	st.PutUser(&models.User{ID: 2, Role: models.RoleCareRecipient, Name: "Rolf", IsActive: true})
	st.PutUser(&models.User{ID: 3, Role: models.RoleCareGiver, Name: "Sina", IsActive: true})
	st.PutUser(&models.User{ID: 8, Role: models.RoleSupport, Name: "Agent A", IsActive: true})
	st.PutUser(&models.User{ID: 9, Role: models.RoleSupport, Name: "Agent B", IsActive: true})
	st.PutUser(&models.User{ID: 7, Role: models.RoleAdmin, Name: "Root", IsActive: true})
	st.PutConversation(&models.Conversation{ID: convID, CareGiverID: 1, CareRecipientID: 2})
	st.PutSupportTicket(&models.SupportTicket{
		ID:       ticketID,
		UserRole: models.RoleCareRecipient,
		UserID:   2,
		Status:   models.TicketStatusOpen,
	})
	return st
}

// emission records one fan-out call. Exactly one of room/userKey is set.
type emission struct {
	room    string
	userKey string
	except  string
	event   string
	payload interface{}
}

type recordingEmitter struct {
	emissions []emission
}

func (r *recordingEmitter) ToRoom(room Room, event string, payload interface{}) {
	r.emissions = append(r.emissions, emission{room: room.String(), event: event, payload: payload})
}

func (r *recordingEmitter) ToRoomExcept(room Room, exceptConnID string, event string, payload interface{}) {
	r.emissions = append(r.emissions, emission{room: room.String(), except: exceptConnID, event: event, payload: payload})
}

func (r *recordingEmitter) ToUser(role models.Role, id int64, event string, payload interface{}) {
	r.emissions = append(r.emissions, emission{userKey: models.UserKey(role, id), event: event, payload: payload})
}

func (r *recordingEmitter) ofEvent(event string) []emission {
	var out []emission
	for _, e := range r.emissions {
		if e.event == event {
			out = append(out, e)
		}
	}
	return out
}

func (r *recordingEmitter) reset() {
	r.emissions = nil
}

func newConversationService(t *testing.T) (*ConversationService, *store.MemoryStore, *recordingEmitter) {
	t.Helper()
	st := seedStore()
	emit := &recordingEmitter{}
	return NewConversationService(st, emit, DefaultPolicy(), zerolog.Nop()), st, emit
}

func newSupportService(t *testing.T) (*SupportService, *store.MemoryStore, *recordingEmitter) {
	t.Helper()
	st := seedStore()
	emit := &recordingEmitter{}
	return NewSupportService(st, emit, DefaultPolicy(), zerolog.Nop()), st, emit
}

func wantClientError(t *testing.T, err error, message string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error %q, got nil", message)
	}
	ce, ok := err.(ClientError)
	if !ok {
		t.Fatalf("expected ClientError, got %T: %v", err, err)
	}
	if ce.Error() != message {
		t.Fatalf("expected error %q, got %q", message, ce.Error())
	}
}
