// ABOUTME: Event envelope and kind constants for server-to-client push
// ABOUTME: Everything that travels down a live channel is one of these

package session

// Event kinds pushed from server to client
const (
	EventReceiveMessage  = "receive_message"
	EventTyping          = "typing"
	EventStopTyping      = "stop_typing"
	EventMessagesRead    = "messages_read"
	EventNewNotification = "new_notification"
	EventSystem          = "system"
)

// Event is the envelope for one push to a client channel. Payload is
// marshaled as-is by the transport layer.
type Event struct {
	Kind    string `json:"event"`
	Payload any    `json:"data,omitempty"`
}
