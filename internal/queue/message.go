package queue

import "encoding/json"

// MessageVersion is bumped whenever Message changes shape.
const MessageVersion = 1

// Message announces that a pipeline run reached a terminal stage.
type Message struct {
	RunID      string `json:"runId"`
	OwnerID    string `json:"ownerId"`
	Stage      string `json:"stage"`
	ErrorKind  string `json:"errorKind,omitempty"`
	DocumentID string `json:"documentId,omitempty"`
	TokenCost  int    `json:"tokenCost"`
	RequestID  string `json:"requestId,omitempty"`
	EnqueuedAt string `json:"enqueuedAt"`
	Version    int    `json:"version"`
}

// EncodeMessage returns the JSON representation of a message.
func EncodeMessage(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}
