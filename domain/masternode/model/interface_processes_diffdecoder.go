package model

// DiffDecoder turns raw mnlistdiff and qrinfo payloads into their domain
// form.
type DiffDecoder interface {
	Decode(payload []byte, protocolVersion uint32) (*DiffMessage, error)
	DecodeQRInfo(payload []byte, protocolVersion uint32) (*QRInfoMessage, error)
}
