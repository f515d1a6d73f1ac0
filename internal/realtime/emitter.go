package realtime

import "github.com/artzymeri/miteinander/internal/models"

// Emitter is how the message services fan events out. The gateway implements
// it on top of the room router; tests substitute a recording implementation.
type Emitter interface {
	// ToRoom delivers an event to every member of the room.
	ToRoom(room Room, event string, payload interface{})
	// ToRoomExcept delivers an event to every member except one connection.
	ToRoomExcept(room Room, exceptConnID string, event string, payload interface{})
	// ToUser delivers an event to an identity's personal room on every
	// device; implementations may queue it if the identity is offline.
	ToUser(role models.Role, id int64, event string, payload interface{})
}
