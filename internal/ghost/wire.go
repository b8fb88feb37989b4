package ghost

import "encoding/json"

// envelope is the plaintext carried inside a Ghost Message Envelope
// (spec.md §3): a self-describing record distinguishing a message from
// an acknowledgement. Grounded on original_source's P2PMessage enum.
type envelope struct {
	Kind    string `json:"kind"` // "msg" or "ack"
	ID      string `json:"id"`
	Content string `json:"content,omitempty"`
	Ts      int64  `json:"ts"`
}

func marshalEnvelope(e envelope) ([]byte, error) {
	return json.Marshal(e)
}

func unmarshalEnvelope(data []byte) (envelope, error) {
	var e envelope
	err := json.Unmarshal(data, &e)
	return e, err
}

// GhostMessage is the ghost_msg event payload, spec.md §6.
type GhostMessage struct {
	ID        string `json:"id"`
	From      string `json:"from"`
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp"`
}

// MessageDelivered is the msg_delivered event payload, spec.md §6.
type MessageDelivered struct {
	ID string `json:"id"`
}
