// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"fmt"
	"io"

	"github.com/pkg/errors"
)

// MaxMessagePayload is the maximum bytes a message can be regardless of other
// individual limits imposed by messages themselves.
const MaxMessagePayload = 1024 * 1024 * 32 // 32MB

// Commands used in dash message headers which describe the type of message.
const (
	CmdGetMNListDiff = "getmnlistd"
	CmdMNListDiff    = "mnlistdiff"
	CmdGetQRInfo     = "getqrinfo"
	CmdQRInfo        = "qrinfo"
)

// Message is an interface that describes a dash message. A type that
// implements Message has complete control over the representation of its data
// and may therefore contain additional or fewer fields than those which
// are used directly in the protocol encoded message.
type Message interface {
	DashDecode(io.Reader, uint32) error
	DashEncode(io.Writer, uint32) error
	Command() string
	MaxPayloadLength(uint32) uint32
}

// makeEmptyMessage creates a message of the appropriate concrete type based
// on the command.
func makeEmptyMessage(command string) (Message, error) {
	var msg Message
	switch command {
	case CmdGetMNListDiff:
		msg = &MsgGetMNListDiff{}

	case CmdMNListDiff:
		msg = &MsgMNListDiff{}

	case CmdGetQRInfo:
		msg = &MsgGetQRInfo{}

	case CmdQRInfo:
		msg = &MsgQRInfo{}

	default:
		return nil, messageError("makeEmptyMessage",
			fmt.Sprintf("unhandled command [%s]", command))
	}
	return msg, nil
}

// ReadMessage decodes the payload of a message with the given command,
// requiring the payload to be consumed entirely.
func ReadMessage(command string, payload []byte, pver uint32) (Message, error) {
	msg, err := makeEmptyMessage(command)
	if err != nil {
		return nil, err
	}

	if uint64(len(payload)) > uint64(msg.MaxPayloadLength(pver)) {
		str := fmt.Sprintf("payload exceeds max length - payload size is "+
			"%d bytes, but maximum message payload size for messages "+
			"of type [%s] is %d", len(payload), command, msg.MaxPayloadLength(pver))
		return nil, messageError("ReadMessage", str)
	}

	r := bytes.NewReader(payload)
	err = msg.DashDecode(r, pver)
	if err != nil {
		return nil, err
	}
	if r.Len() != 0 {
		str := fmt.Sprintf("%d trailing bytes after %s payload", r.Len(), command)
		return nil, messageError("ReadMessage", str)
	}
	return msg, nil
}

// WriteMessage encodes msg with the given protocol version and returns the
// resulting payload.
func WriteMessage(msg Message, pver uint32) ([]byte, error) {
	var buf bytes.Buffer
	err := msg.DashEncode(&buf, pver)
	if err != nil {
		return nil, err
	}

	if uint64(buf.Len()) > uint64(msg.MaxPayloadLength(pver)) {
		return nil, errors.Errorf("message payload is too large - encoded "+
			"%d bytes, but maximum message payload size for messages "+
			"of type [%s] is %d", buf.Len(), msg.Command(), msg.MaxPayloadLength(pver))
	}
	return buf.Bytes(), nil
}
