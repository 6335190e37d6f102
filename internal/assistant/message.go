package assistant

import (
	"encoding/json"
	"fmt"

	"igait-client/internal/domain"
)

// MessageType tags an assistant frame.
type MessageType string

const (
	TypeError   MessageType = "Error"
	TypeMessage MessageType = "Message"
	TypeWaiting MessageType = "Waiting"
	TypeYou     MessageType = "You"
	TypeTyping  MessageType = "Typing"
	TypeInfo    MessageType = "Info"
	TypeJobs    MessageType = "Jobs"
)

// Message is one assistant frame. Content carries the text for every type
// except Jobs, whose payload is the structured job list instead.
type Message struct {
	Type    MessageType
	Content string
	Jobs    []domain.JobWithID
}

// UnmarshalJSON splits the polymorphic content field: a Jobs frame carries
// an array, every other type a string.
func (m *Message) UnmarshalJSON(data []byte) error {
	var envelope struct {
		Type    MessageType     `json:"type"`
		Content json.RawMessage `json:"content"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return err
	}

	m.Type = envelope.Type
	m.Content = ""
	m.Jobs = nil

	if len(envelope.Content) == 0 || string(envelope.Content) == "null" {
		return nil
	}

	if envelope.Type == TypeJobs {
		if err := json.Unmarshal(envelope.Content, &m.Jobs); err != nil {
			return fmt.Errorf("malformed jobs payload: %w", err)
		}
		return nil
	}

	if err := json.Unmarshal(envelope.Content, &m.Content); err != nil {
		return fmt.Errorf("malformed content payload: %w", err)
	}
	return nil
}
