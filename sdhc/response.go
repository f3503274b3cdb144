package sdhc

// ResponseType identifies the shape of an SD command response and encodes
// directly into the Command register's response-type field.
type ResponseType int

const (
	RspNone ResponseType = iota
	RspR1
	RspR1b
	RspR2
	RspR3
	RspR6
	RspR7
)

func (rt ResponseType) bits() uint16 {
	switch rt {
	case RspNone:
		return rspBitsNone
	case RspR2:
		return rspBitsR2
	case RspR1b:
		return rspBitsR1b
	default: // R1, R3, R6, R7
		return rspBits48
	}
}

// indexCheck and crcCheck report whether the command engine should ask the
// controller to verify the command index and CRC of the response,
// respectively. R3 responses carry neither a command index nor a CRC the
// controller can check; R2 responses carry a CRC but no command index.
func (rt ResponseType) indexCheck() bool {
	return rt != RspR2 && rt != RspR3
}

func (rt ResponseType) crcCheck() bool {
	return rt != RspR3
}

// Response is a tagged union over the seven SD response shapes. Only the
// fields relevant to Type are meaningful.
type Response struct {
	Type ResponseType

	CardStatus uint32 // R1, R1b

	CID [4]uint32 // R2; CID[3] has its top byte masked to zero

	OCR uint32 // R3

	NewRCA          uint16 // R6
	ShortCardStatus uint16 // R6

	VoltageAccepted uint8 // R7
	CheckPattern    uint8 // R7
}

// decodeResponse builds a Response from the raw four response words read
// from the controller, per the response-type's decode rule.
func decodeResponse(rt ResponseType, words [4]uint32) Response {
	r := Response{Type: rt}

	switch rt {
	case RspR1, RspR1b:
		r.CardStatus = words[0]
	case RspR2:
		r.CID = words
		r.CID[3] &^= 0xFF000000
	case RspR3:
		r.OCR = words[0]
	case RspR6:
		r.NewRCA = uint16(words[0] >> 16)
		r.ShortCardStatus = uint16(words[0])
	case RspR7:
		r.VoltageAccepted = uint8(words[0] >> 8)
		r.CheckPattern = uint8(words[0])
	}

	return r
}
