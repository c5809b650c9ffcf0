package types

// Notification event types pushed to the owner over the notify hub.
const (
	NotifySessionCancelled = "session_cancelled"
	NotifySessionExpired   = "session_expired"
	NotifyFileDownloaded   = "file_downloaded"
)

// Notification is one owner-facing session event.
type Notification struct {
	Type      string         `json:"type"`
	SessionId string         `json:"sessionId"`
	Data      map[string]any `json:"data,omitempty"`
}
