package commsutil

import (
	"encoding/json"

	comms "github.com/nats-io/nats.go"
)

// EncodePayload serializes a value to JSON bytes.
func EncodePayload(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

// DecodePayload deserializes JSON bytes into the given target.
func DecodePayload(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

// NewMsg builds a message carrying raw bytes and the given headers. Empty header values are skipped.
func NewMsg(subject string, data []byte, headers map[string]string) *comms.Msg {
	msg := comms.NewMsg(subject)
	msg.Data = data
	for k, v := range headers {
		if v != "" {
			msg.Header.Set(k, v)
		}
	}
	return msg
}
