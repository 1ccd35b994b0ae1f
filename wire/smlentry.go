package wire

import (
	"fmt"
	"io"
	"net"

	"github.com/dashevo/dashspv/util/binaryserializer"
	"github.com/dashevo/dashspv/util/chainhash"
)

// Masternode list entry versions.
const (
	// SMLEntryVersionLegacyBLS entries carry a legacy scheme operator key.
	SMLEntryVersionLegacyBLS uint16 = 1

	// SMLEntryVersionBasicBLS entries carry a basic scheme operator key and
	// a masternode type.
	SMLEntryVersionBasicBLS uint16 = 2
)

// Masternode types.
const (
	MasternodeTypeRegular uint16 = 0
	MasternodeTypeEvo     uint16 = 1
)

// SMLEntryPayloadSize is the size of the DIP3 fixed layout of a masternode
// list entry: proRegTxHash, confirmedHash, IPv6 address, port, operator
// key, voting key id and validity.
const SMLEntryPayloadSize = 2*chainhash.HashSize + 16 + 2 + BLSPublicKeySize + KeyIDSize + 1

// SMLEntry is a simplified masternode list entry as relayed in mnlistdiff.
type SMLEntry struct {
	Version           uint16
	ProRegTxHash      chainhash.Hash
	ConfirmedHash     chainhash.Hash
	IP                [16]byte
	Port              uint16
	OperatorPublicKey BLSPublicKey
	KeyIDVoting       KeyID
	IsValid           bool

	// The following are only present from SMLEntryVersionBasicBLS.
	Type             uint16
	PlatformHTTPPort uint16
	PlatformNodeID   KeyID
}

// IsLegacyBLS returns whether the operator key uses the legacy BLS scheme.
func (entry *SMLEntry) IsLegacyBLS() bool {
	return entry.Version < SMLEntryVersionBasicBLS
}

// IPAddress returns the masternode address as a net.IP.
func (entry *SMLEntry) IPAddress() net.IP {
	ip := make(net.IP, net.IPv6len)
	copy(ip, entry.IP[:])
	return ip
}

// Serialize writes the hashed form of the entry to w: the network form
// without its version prefix.
func (entry *SMLEntry) Serialize(w io.Writer) error {
	err := writeElements(w, &entry.ProRegTxHash, &entry.ConfirmedHash, entry.IP)
	if err != nil {
		return err
	}
	err = binaryserializer.PutUint16(w, bigEndian, entry.Port)
	if err != nil {
		return err
	}
	err = writeElements(w, &entry.OperatorPublicKey, &entry.KeyIDVoting, entry.IsValid)
	if err != nil {
		return err
	}
	if entry.Version >= SMLEntryVersionBasicBLS {
		err = WriteElement(w, entry.Type)
		if err != nil {
			return err
		}
		if entry.Type == MasternodeTypeEvo {
			return writeElements(w, entry.PlatformHTTPPort, &entry.PlatformNodeID)
		}
	}
	return nil
}

// Hash returns the double sha256 of the hashed form of the entry.
func (entry *SMLEntry) Hash() *chainhash.Hash {
	writer := chainhash.NewDoubleHashWriter()
	err := entry.Serialize(writer)
	if err != nil {
		// Writing to a hash writer never fails.
		panic(err)
	}
	hash := writer.Finalize()
	return &hash
}

// DashEncode encodes the entry to w as relayed with protocol version pver.
func (entry *SMLEntry) DashEncode(w io.Writer, pver uint32) error {
	if pver >= VersionedEntriesProtocolVersion {
		err := WriteElement(w, entry.Version)
		if err != nil {
			return err
		}
	}
	return entry.Serialize(w)
}

// DashDecode decodes an entry relayed with protocol version pver from r into
// the receiver.
func (entry *SMLEntry) DashDecode(r io.Reader, pver uint32) error {
	entry.Version = SMLEntryVersionLegacyBLS
	if pver >= VersionedEntriesProtocolVersion {
		err := ReadElement(r, &entry.Version)
		if err != nil {
			return err
		}
		if entry.Version != SMLEntryVersionLegacyBLS && entry.Version != SMLEntryVersionBasicBLS {
			str := fmt.Sprintf("unsupported masternode list entry version %d", entry.Version)
			return messageError("SMLEntry.DashDecode", str)
		}
	}

	err := readElements(r, &entry.ProRegTxHash, &entry.ConfirmedHash, &entry.IP)
	if err != nil {
		return err
	}
	entry.Port, err = binaryserializer.Uint16(r, bigEndian)
	if err != nil {
		return err
	}
	err = readElements(r, &entry.OperatorPublicKey, &entry.KeyIDVoting, &entry.IsValid)
	if err != nil {
		return err
	}

	entry.Type = MasternodeTypeRegular
	entry.PlatformHTTPPort = 0
	entry.PlatformNodeID = KeyID{}
	if entry.Version >= SMLEntryVersionBasicBLS {
		err = ReadElement(r, &entry.Type)
		if err != nil {
			return err
		}
		switch entry.Type {
		case MasternodeTypeRegular:
		case MasternodeTypeEvo:
			err = readElements(r, &entry.PlatformHTTPPort, &entry.PlatformNodeID)
			if err != nil {
				return err
			}
		default:
			str := fmt.Sprintf("unknown masternode type %d", entry.Type)
			return messageError("SMLEntry.DashDecode", str)
		}
	}
	return nil
}
