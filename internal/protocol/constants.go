// Package protocol collects the wire-level constants and small value
// types shared by every other package in the module, mirroring how
// quic-go's internal/protocol underlies the rest of that repo.
package protocol

// ByteCount is a length or offset measured in message bytes.
type ByteCount int64

// Priority is a link-layer transmit priority in the range 0..7,
// 7 being the highest priority a data packet can carry.
type Priority uint8

// PacketType identifies the payload carried after the common header.
type PacketType uint8

const (
	// DataPacketType carries a fragment of message payload.
	DataPacketType PacketType = iota + 1
	// GrantPacketType extends the sender's granted window.
	GrantPacketType
	// ResendPacketType asks the sender to retransmit a byte range.
	ResendPacketType
	// AckPacketType confirms receipt of a complete message.
	AckPacketType
)

func (t PacketType) String() string {
	switch t {
	case DataPacketType:
		return "DATA"
	case GrantPacketType:
		return "GRANT"
	case ResendPacketType:
		return "RESEND"
	case AckPacketType:
		return "ACK"
	default:
		return "UNKNOWN"
	}
}

const (
	// MaxDataPerPacket is the largest number of payload bytes one data
	// packet may carry (HOMA_MAX_DATA_PER_PACKET in the original).
	MaxDataPerPacket = ByteCount(1400)

	// MaxMessageLength is the largest message a sender will fragment
	// (HOMA_MAX_MESSAGE_LENGTH in the original).
	MaxMessageLength = ByteCount(1000000)

	// MaxHeader is the padded size of every control packet, and the
	// reserved header allowance in front of a data packet's payload.
	MaxHeader = 160

	// MaxPrio is the highest priority level a packet can carry.
	MaxPrio = Priority(7)

	// IPHeaderBytes, VLANHeaderBytes and EthOverheadBytes are added to
	// a packet's wire size before it is charged against the link-idle
	// clock (§4.A); they account for framing the payload size alone
	// doesn't include.
	IPHeaderBytes    = ByteCount(20)
	VLANHeaderBytes  = ByteCount(4)
	EthOverheadBytes = ByteCount(24)
)
