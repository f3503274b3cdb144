// Package regio provides the register I/O surface for the SD Host
// Controller core: a small interface over strictly-ordered, volatile
// memory-mapped reads and writes at fixed byte offsets.
//
// Gating the driver behind this interface, rather than reaching for
// unsafe.Pointer arithmetic directly in the protocol engine, is what lets the
// engine be driven by a software controller model in tests while a
// GOOS=tamago build (see mmio_tamago.go) talks to real hardware.
package regio

// Bus is a memory-mapped register block addressable by byte offset from a
// controller base address. Implementations must perform a single volatile
// access per call, at the declared width, with no reordering across calls.
type Bus interface {
	Read8(off uint32) uint8
	Read16(off uint32) uint16
	Read32(off uint32) uint32

	Write8(off uint32, val uint8)
	Write16(off uint32, val uint16)
	Write32(off uint32, val uint32)
}
