package models

// Message types exchanged over the websocket
const (
	MsgRun       = "run"
	MsgCancel    = "cancel"
	MsgStarted   = "started"
	MsgProgress  = "progress"
	MsgSnapshot  = "snapshot"
	MsgFinished  = "finished"
	MsgCancelled = "cancelled"
	MsgError     = "error"
)

// Msg is the envelope of every websocket message.
// Content is plain text or a JSON document depending on Type.
type Msg struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}
