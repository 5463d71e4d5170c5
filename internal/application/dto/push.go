package dto

// PushMessage is the message part of a Pub/Sub push request. Data arrives
// base64 encoded and is decoded by encoding/json.
type PushMessage struct {
	Data        []byte            `json:"data"`
	MessageID   string            `json:"messageId"`
	PublishTime string            `json:"publishTime,omitempty"`
	Attributes  map[string]string `json:"attributes,omitempty"`
}

// PushRequest is the body Pub/Sub posts to a push endpoint.
type PushRequest struct {
	Message      *PushMessage `json:"message" binding:"required"`
	Subscription string       `json:"subscription"`
}

// ProcessResponse reports what happened to one pushed message.
type ProcessResponse struct {
	Status    string `json:"status"`
	MessageID string `json:"message_id,omitempty"`
	Company   string `json:"company,omitempty"`
	Error     string `json:"error,omitempty"`
}
