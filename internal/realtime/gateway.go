package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/artzymeri/miteinander/internal/auth"
	"github.com/artzymeri/miteinander/internal/metrics"
	"github.com/artzymeri/miteinander/internal/models"
	"github.com/artzymeri/miteinander/internal/store"
)

// NotificationQueue buffers personal-room events for identities that are
// offline. Optional; a nil queue simply drops them.
type NotificationQueue interface {
	QueueNotification(ctx context.Context, userKey, event string, payload json.RawMessage) error
}

// Gateway is the composition root of the realtime layer: it authenticates
// connections, joins default rooms, dispatches inbound events to the message
// services and implements Emitter for their fan-out.
//
// Each connection has exactly one reader goroutine that runs handlers to
// completion, so events from a single connection are processed in order.
// Different connections interleave freely; cross-connection races are
// resolved by the store's conditional writes.
type Gateway struct {
	upgrader websocket.Upgrader
	auth     *auth.Authenticator
	rooms    *RoomRouter
	presence *Presence
	queue    NotificationQueue
	log      zerolog.Logger

	conversations *ConversationService
	support       *SupportService
}

// NewGateway wires the gateway and its services. queue may be nil.
func NewGateway(authenticator *auth.Authenticator, st store.DataStore, queue NotificationQueue, policy AuthorizationPolicy, allowedOrigins []string, log zerolog.Logger) *Gateway {
	g := &Gateway{
		auth:     authenticator,
		rooms:    NewRoomRouter(),
		presence: NewPresence(),
		queue:    queue,
		log:      log,
	}
	g.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	g.conversations = NewConversationService(st, g, policy, log)
	g.support = NewSupportService(st, g, policy, log)
	return g
}

func originChecker(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || set[origin]
	}
}

// IsOnline reports whether the identity currently has a live connection.
func (g *Gateway) IsOnline(role models.Role, id int64) bool {
	return g.presence.IsOnline(models.UserKey(role, id))
}

// Close terminates every open connection. Used at shutdown.
func (g *Gateway) Close() {
	for _, c := range g.rooms.Conns() {
		c.Close(websocket.CloseGoingAway, "server shutdown")
	}
}

// HandleWS authenticates and upgrades a websocket connection, then serves it
// until disconnect. Authentication happens before the upgrade so rejected
// attempts are plain HTTP 401 responses with the fixed rejection reason.
func (g *Gateway) HandleWS(w http.ResponseWriter, r *http.Request) {
	identity, err := g.auth.Authenticate(r.Context(), bearerToken(r))
	if err != nil {
		metrics.ConnectionsRejected.WithLabelValues(err.Error()).Inc()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
		return
	}

	ws, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response.
		g.log.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}

	c := newConn(identity, ws)

	g.presence.Register(identity.Key(), c.id)
	g.rooms.Join(UserRoom(identity.Role, identity.UserID), c)
	switch identity.Role {
	case models.RoleSupport:
		g.rooms.Join(SupportAgentsRoom, c)
	case models.RoleAdmin:
		g.rooms.Join(AdminAgentsRoom, c)
	}

	metrics.Connections.Inc()
	metrics.IdentitiesOnline.Set(float64(g.presence.OnlineCount()))
	g.log.Info().Str("user_key", identity.Key()).Str("conn_id", c.id).Msg("client connected")

	go c.writeLoop()
	g.readLoop(r.Context(), c)

	g.rooms.Drop(c)
	g.presence.Unregister(identity.Key(), c.id)
	c.Close(websocket.CloseNormalClosure, "")

	metrics.Connections.Dec()
	metrics.IdentitiesOnline.Set(float64(g.presence.OnlineCount()))
	g.log.Info().Str("user_key", identity.Key()).Str("conn_id", c.id).Msg("client disconnected")
}

// bearerToken extracts the credential from the upgrade request: a ?token=
// query parameter or an Authorization: Bearer header.
func bearerToken(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}

func (g *Gateway) readLoop(ctx context.Context, c *Conn) {
	c.ws.SetReadLimit(maxMessageSize)
	if err := c.ws.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		return
	}
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				g.log.Debug().Err(err).Str("conn_id", c.id).Msg("unexpected websocket close")
			}
			return
		}

		var frame ClientFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			g.log.Debug().Err(err).Str("conn_id", c.id).Msg("dropping malformed frame")
			continue
		}

		g.dispatch(ctx, c, frame)
	}
}

// dispatch runs one event handler to completion. A panic or error in one
// handler never tears down the connection or leaks across handlers.
func (g *Gateway) dispatch(ctx context.Context, c *Conn, frame ClientFrame) {
	metrics.EventsDispatched.WithLabelValues(frame.Event).Inc()

	defer func() {
		if rec := recover(); rec != nil {
			g.log.Error().Interface("panic", rec).Str("event", frame.Event).Str("conn_id", c.id).Msg("recovered panic in event handler")
			switch frame.Event {
			case EventSendMessage, EventSendSupportMessage:
				g.ack(c, frame.ID, nil, errors.New("handler panic"), genericSendFailure)
			case EventRespondSettlement:
				g.ack(c, frame.ID, nil, errors.New("handler panic"), genericSettlementFailure)
			}
		}
	}()

	sub := c.identity

	switch frame.Event {
	case EventJoinConversation:
		var p joinConversationPayload
		if err := json.Unmarshal(frame.Data, &p); err != nil {
			return
		}
		ok, err := g.conversations.Join(ctx, sub, p.ConversationID)
		if err != nil {
			g.log.Error().Err(err).Int64("conversation_id", p.ConversationID).Msg("join_conversation failed")
			return
		}
		if ok {
			g.rooms.Join(ConversationRoom(p.ConversationID), c)
		}

	case EventLeaveConversation:
		var p joinConversationPayload
		if err := json.Unmarshal(frame.Data, &p); err != nil {
			return
		}
		g.rooms.Leave(ConversationRoom(p.ConversationID), c)

	case EventSendMessage:
		var p sendMessagePayload
		if err := json.Unmarshal(frame.Data, &p); err != nil {
			g.ack(c, frame.ID, nil, errContentRequired, genericSendFailure)
			return
		}
		msg, err := g.conversations.SendMessage(ctx, sub, p.ConversationID, p.Content, p.MessageType)
		g.ack(c, frame.ID, msg, err, genericSendFailure)

	case EventTypingStart:
		var p joinConversationPayload
		if err := json.Unmarshal(frame.Data, &p); err != nil {
			return
		}
		g.conversations.Typing(sub, c.id, p.ConversationID, true)

	case EventTypingStop:
		var p joinConversationPayload
		if err := json.Unmarshal(frame.Data, &p); err != nil {
			return
		}
		g.conversations.Typing(sub, c.id, p.ConversationID, false)

	case EventRespondSettlement:
		var p respondSettlementPayload
		if err := json.Unmarshal(frame.Data, &p); err != nil {
			g.ack(c, frame.ID, nil, errInvalidSettlement, genericSettlementFailure)
			return
		}
		msg, err := g.conversations.RespondSettlement(ctx, sub, p.ConversationID, p.MessageID, p.Accepted)
		g.ack(c, frame.ID, msg, err, genericSettlementFailure)

	case EventMarkRead:
		var p joinConversationPayload
		if err := json.Unmarshal(frame.Data, &p); err != nil {
			return
		}
		if err := g.conversations.MarkRead(ctx, sub, p.ConversationID); err != nil {
			g.log.Error().Err(err).Int64("conversation_id", p.ConversationID).Msg("mark_read failed")
		}

	case EventJoinSupportTicket:
		var p ticketPayload
		if err := json.Unmarshal(frame.Data, &p); err != nil {
			return
		}
		ok, err := g.support.Join(ctx, sub, p.TicketID)
		if err != nil {
			g.log.Error().Err(err).Int64("ticket_id", p.TicketID).Msg("join_support_ticket failed")
			return
		}
		if ok {
			g.rooms.Join(SupportTicketRoom(p.TicketID), c)
		}

	case EventLeaveSupportTicket:
		var p ticketPayload
		if err := json.Unmarshal(frame.Data, &p); err != nil {
			return
		}
		g.rooms.Leave(SupportTicketRoom(p.TicketID), c)

	case EventSendSupportMessage:
		var p sendSupportMessagePayload
		if err := json.Unmarshal(frame.Data, &p); err != nil {
			g.ack(c, frame.ID, nil, errContentRequired, genericSupportSendFailure)
			return
		}
		msg, err := g.support.SendMessage(ctx, sub, p.TicketID, p.Content)
		g.ack(c, frame.ID, msg, err, genericSupportSendFailure)

	default:
		g.log.Debug().Str("event", frame.Event).Str("conn_id", c.id).Msg("unknown event")
	}
}

// ack fulfils an ack-carrying request exactly once. Expected failures carry
// their message to the client; anything else is logged and replaced with the
// handler's generic failure message.
func (g *Gateway) ack(c *Conn, correlationID string, result interface{}, err error, generic string) {
	var data interface{}
	switch {
	case err == nil:
		data = AckSuccess{Success: true, Message: result}
	default:
		var ce ClientError
		if errors.As(err, &ce) {
			data = AckError{Error: ce.Error()}
		} else {
			g.log.Error().Err(err).Str("conn_id", c.id).Msg("event handler failed")
			data = AckError{Error: generic}
		}
	}

	frame, err := json.Marshal(ServerFrame{Event: EventAck, ID: correlationID, Data: data})
	if err != nil {
		g.log.Error().Err(err).Msg("failed to encode ack frame")
		return
	}
	_ = c.Send(frame)
}

// ToRoom implements Emitter.
func (g *Gateway) ToRoom(room Room, event string, payload interface{}) {
	frame, err := encodeFrame(event, payload)
	if err != nil {
		g.log.Error().Err(err).Str("event", event).Msg("failed to encode frame")
		return
	}
	g.rooms.Broadcast(room, frame)
}

// ToRoomExcept implements Emitter.
func (g *Gateway) ToRoomExcept(room Room, exceptConnID string, event string, payload interface{}) {
	frame, err := encodeFrame(event, payload)
	if err != nil {
		g.log.Error().Err(err).Str("event", event).Msg("failed to encode frame")
		return
	}
	g.rooms.BroadcastExcept(room, exceptConnID, frame)
}

// ToUser implements Emitter: deliver to the identity's personal room, or
// queue the event if no device is connected.
func (g *Gateway) ToUser(role models.Role, id int64, event string, payload interface{}) {
	frame, err := encodeFrame(event, payload)
	if err != nil {
		g.log.Error().Err(err).Str("event", event).Msg("failed to encode frame")
		return
	}

	delivered := g.rooms.Broadcast(UserRoom(role, id), frame)
	if delivered > 0 || g.queue == nil {
		return
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	userKey := models.UserKey(role, id)
	if err := g.queue.QueueNotification(context.Background(), userKey, event, data); err != nil {
		g.log.Warn().Err(err).Str("user_key", userKey).Msg("failed to queue offline notification")
		return
	}
	metrics.NotificationsQueued.Inc()
}
