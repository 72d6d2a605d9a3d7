package avc

import (
	"encoding/binary"

	"github.com/avremote-network/avremote/internal/domain"
)

// PreambleLen is the fixed size of the vendor-dependent preamble:
// pdu_id(1) + packet_type(1, low two bits) + parameter_length(2, BE).
const PreambleLen = 4

// Preamble is the fixed header preceding every vendor-dependent PDU body.
type Preamble struct {
	PduID           PduID
	PacketType      PacketType
	ParameterLength uint16
}

// Encode renders the preamble followed by params into one body.
func (p Preamble) Encode(params []byte) []byte {
	out := make([]byte, PreambleLen+len(params))
	out[0] = byte(p.PduID)
	out[1] = byte(p.PacketType) & 0x03
	binary.BigEndian.PutUint16(out[2:4], p.ParameterLength)
	copy(out[PreambleLen:], params)
	return out
}

// EncodeVendorBody builds a complete single-packet vendor body for pdu with
// the given params.
func EncodeVendorBody(pdu PduID, params []byte) []byte {
	return Preamble{
		PduID:           pdu,
		PacketType:      PacketSingle,
		ParameterLength: uint16(len(params)),
	}.Encode(params)
}

// DecodePreamble splits body into its preamble and the trailing params.
// The parameter length field is not trusted beyond the bytes present;
// a body shorter than its declared length is an invalid header.
func DecodePreamble(body []byte) (Preamble, []byte, error) {
	if len(body) < PreambleLen {
		return Preamble{}, nil, domain.NewPacketError(domain.PacketInvalidHeader,
			"vendor body %d bytes, need %d", len(body), PreambleLen)
	}
	p := Preamble{
		PduID:           PduID(body[0]),
		PacketType:      PacketType(body[1] & 0x03),
		ParameterLength: binary.BigEndian.Uint16(body[2:4]),
	}
	params := body[PreambleLen:]
	if int(p.ParameterLength) > len(params) {
		return Preamble{}, nil, domain.NewPacketError(domain.PacketInvalidHeader,
			"declared %d parameter bytes, got %d", p.ParameterLength, len(params))
	}
	return p, params[:p.ParameterLength], nil
}

// StatusForPacketError maps a local decode failure onto the AVRCP status
// code a Rejected response carries. The mapping is total: every reason has
// exactly one code and unknown reasons fall through to INTERNAL_ERROR.
func StatusForPacketError(err *domain.PacketError) StatusCode {
	switch err.Reason {
	case domain.PacketOutOfRange:
		return StatusInvalidParameter
	case domain.PacketInvalidHeader, domain.PacketInvalidMessage:
		return StatusParameterContentError
	case domain.PacketUnsupportedMessage:
		return StatusInternalError
	default:
		return StatusInternalError
	}
}
