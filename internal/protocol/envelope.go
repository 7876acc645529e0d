package protocol

import "encoding/json"

// Envelope is the JSON shape used to forward decoded commands to viewers
// and MQTT subscribers.
type Envelope struct {
	Type    string  `json:"type"`
	Command Command `json:"command"`
}

// MarshalEnvelope wraps c in an Envelope and encodes it as JSON.
func MarshalEnvelope(c Command) ([]byte, error) {
	return json.Marshal(Envelope{Type: c.Name(), Command: c})
}
