package router

import "fmt"

// Message is a message exchanged with a peer, carried with its payload
// still encoded
type Message struct {
	Command string
	Payload []byte
}

func (m *Message) String() string {
	return fmt.Sprintf("%s (%d bytes)", m.Command, len(m.Payload))
}
