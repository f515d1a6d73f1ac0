package realtime

import "sync"

// RoomRouter tracks which connections are members of which rooms and fans
// frames out to them. Membership in conversation/ticket rooms is per-request;
// personal and agent-pool rooms are joined at connect time by the gateway.
type RoomRouter struct {
	mu          sync.RWMutex
	rooms       map[Room]map[string]*Conn    // room -> connID -> conn
	memberships map[string]map[Room]struct{} // connID -> set of rooms
}

// NewRoomRouter constructs an initialized router.
func NewRoomRouter() *RoomRouter {
	return &RoomRouter{
		rooms:       make(map[Room]map[string]*Conn),
		memberships: make(map[string]map[Room]struct{}),
	}
}

// Join adds the connection to the room.
func (r *RoomRouter) Join(room Room, c *Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	members := r.rooms[room]
	if members == nil {
		members = make(map[string]*Conn)
		r.rooms[room] = members
	}
	members[c.id] = c

	rooms := r.memberships[c.id]
	if rooms == nil {
		rooms = make(map[Room]struct{})
		r.memberships[c.id] = rooms
	}
	rooms[room] = struct{}{}
}

// Leave removes the connection from the room.
func (r *RoomRouter) Leave(room Room, c *Conn) {
	r.mu.Lock()
	r.leaveLocked(room, c.id)
	r.mu.Unlock()
}

// Drop removes the connection from every room it joined. Called on
// disconnect.
func (r *RoomRouter) Drop(c *Conn) {
	r.mu.Lock()
	for room := range r.memberships[c.id] {
		r.leaveLocked(room, c.id)
	}
	delete(r.memberships, c.id)
	r.mu.Unlock()
}

// Broadcast delivers a frame to every member of the room and returns the
// number of successful deliveries.
func (r *RoomRouter) Broadcast(room Room, frame []byte) int {
	return r.BroadcastExcept(room, "", frame)
}

// BroadcastExcept delivers a frame to every member except the given
// connection id ("broadcast to room excluding self").
func (r *RoomRouter) BroadcastExcept(room Room, exceptConnID string, frame []byte) int {
	r.mu.RLock()
	members := r.rooms[room]
	conns := make([]*Conn, 0, len(members))
	for id, c := range members {
		if id == exceptConnID {
			continue
		}
		conns = append(conns, c)
	}
	r.mu.RUnlock()

	delivered := 0
	for _, c := range conns {
		if err := c.Send(frame); err == nil {
			delivered++
		}
	}
	return delivered
}

// Conns returns every tracked connection. Used for shutdown.
func (r *RoomRouter) Conns() []*Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[string]*Conn)
	for _, members := range r.rooms {
		for id, c := range members {
			seen[id] = c
		}
	}
	conns := make([]*Conn, 0, len(seen))
	for _, c := range seen {
		conns = append(conns, c)
	}
	return conns
}

func (r *RoomRouter) leaveLocked(room Room, connID string) {
	members := r.rooms[room]
	if members == nil {
		return
	}
	delete(members, connID)
	if len(members) == 0 {
		delete(r.rooms, room)
	}
	if rooms, ok := r.memberships[connID]; ok {
		delete(rooms, room)
		if len(rooms) == 0 {
			delete(r.memberships, connID)
		}
	}
}
