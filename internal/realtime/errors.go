package realtime

// ClientError carries a message that is safe to surface on the socket as an
// ack error. Anything else that goes wrong in a handler is logged server-side
// and acknowledged with the handler's generic failure message, so internal
// detail never reaches the client.
type ClientError struct {
	msg string
}

func (e ClientError) Error() string { return e.msg }

// Fixed error messages of the wire contract.
var (
	errContentRequired         = ClientError{"Message content is required"}
	errInvalidMessageType      = ClientError{"Invalid message type"}
	errConversationNotFound    = ClientError{"Conversation not found"}
	errAccessDenied            = ClientError{"Access denied"}
	errSettlementCaregiverOnly = ClientError{"Only caregivers can send settlement requests"}
	errAlreadySettled          = ClientError{"Care recipient is already settled"}
	errSettledElsewhere        = ClientError{"This care recipient is settled with another caregiver"}
	errRecipientOnly           = ClientError{"Only care recipients can respond to settlement requests"}
	errInvalidSettlement       = ClientError{"Invalid settlement request"}
	errTicketNotFound          = ClientError{"Ticket not found"}
	errTicketAssignedElsewhere = ClientError{"This ticket is assigned to another agent"}
)

// Generic fallback messages for unexpected handler failures.
const (
	genericSendFailure        = "Failed to send message"
	genericSettlementFailure  = "Failed to respond to settlement request"
	genericSupportSendFailure = "Failed to send message"
)
