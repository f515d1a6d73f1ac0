package realtime

import (
	"fmt"

	"github.com/artzymeri/miteinander/internal/models"
)

// RoomKind discriminates the five room namespaces. Keeping the kind in the
// type (instead of bare strings) guarantees a conversation id can never
// collide with a ticket id in the router's maps.
type RoomKind int

const (
	RoomKindUser RoomKind = iota
	RoomKindConversation
	RoomKindSupportTicket
	RoomKindSupportAgents
	RoomKindAdminAgents
)

// Room identifies a broadcast target. Comparable; used directly as a map key.
type Room struct {
	Kind RoomKind
	key  string
}

// UserRoom is an identity's personal room, addressed regardless of which
// conversation or ticket the client currently has open.
func UserRoom(role models.Role, id int64) Room {
	return Room{Kind: RoomKindUser, key: models.UserKey(role, id)}
}

// ConversationRoom is the room for one conversation.
func ConversationRoom(id int64) Room {
	return Room{Kind: RoomKindConversation, key: fmt.Sprintf("conversation:%d", id)}
}

// SupportTicketRoom is the room for one support ticket thread.
func SupportTicketRoom(id int64) Room {
	return Room{Kind: RoomKindSupportTicket, key: fmt.Sprintf("support_ticket:%d", id)}
}

// SupportAgentsRoom and AdminAgentsRoom are the static agent-pool rooms every
// support/admin connection joins at connect time.
var (
	SupportAgentsRoom = Room{Kind: RoomKindSupportAgents, key: "support_agents"}
	AdminAgentsRoom   = Room{Kind: RoomKindAdminAgents, key: "admin_agents"}
)

// String returns the wire name of the room.
func (r Room) String() string {
	return r.key
}
