package sdhc

import (
	"bytes"
	"encoding/binary"
)

// ADMA2 descriptor attribute and action bits, SD Host Controller
// Specification v3.x §1.13.
const (
	admaAttrValid = 0
	admaAttrEnd   = 1
	admaAttrInt   = 2
	admaAttrAct   = 4

	admaActTransfer = 0b10
	admaActLink     = 0b11

	admaMaxSegment = 65532
)

// ADMADescriptor is a single ADMA2 buffer descriptor: an 8-byte
// attribute/length/address record the controller's DMA engine walks as a
// linked list. The core never programs Host Control 2's DMASEL or issues a
// DMA-mode command itself — §4.5's data path is PIO-only — but a caller
// wiring its own DMA-capable controller variant can build the descriptor
// chain a physical buffer needs with BuildADMAChain and hand the resulting
// bytes to that controller's descriptor table register.
type ADMADescriptor struct {
	Attribute uint8
	Length    uint16
	Address   uint32

	next *ADMADescriptor
}

// BuildADMAChain splits a single physically-contiguous buffer of size
// bytes starting at addr into one or more linked ADMA2 descriptors, each no
// longer than the controller's maximum segment length, with the
// end-of-chain attribute set on the last one.
func BuildADMAChain(addr uint32, size int) *ADMADescriptor {
	if size <= 0 {
		return nil
	}

	head := &ADMADescriptor{}
	b := head

	for size > 0 {
		if size <= admaMaxSegment {
			b.Attribute = admaActTransfer<<admaAttrAct | 1<<admaAttrEnd | 1<<admaAttrValid
			b.Length = uint16(size)
			b.Address = addr
			break
		}

		b.Attribute = admaActTransfer<<admaAttrAct | 1<<admaAttrValid
		b.Length = admaMaxSegment
		b.Address = addr

		addr += admaMaxSegment
		size -= admaMaxSegment

		b.next = &ADMADescriptor{}
		b = b.next
	}

	return head
}

// Bytes serializes the descriptor chain into the little-endian wire format
// the controller's ADMA System Address register expects: repeated 8-byte
// records of attribute (1 byte, reserved byte follows), length (2 bytes),
// address (4 bytes).
func (d *ADMADescriptor) Bytes() []byte {
	buf := new(bytes.Buffer)

	for b := d; b != nil; b = b.next {
		binary.Write(buf, binary.LittleEndian, b.Attribute)
		binary.Write(buf, binary.LittleEndian, uint8(0))
		binary.Write(buf, binary.LittleEndian, b.Length)
		binary.Write(buf, binary.LittleEndian, b.Address)
	}

	return buf.Bytes()
}
