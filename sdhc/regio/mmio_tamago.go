//go:build tamago

package regio

import "unsafe"

// MMIO is the real, volatile, unsafe.Pointer-based Bus implementation for a
// controller mapped at Base in physical address space. It is only built for
// GOOS=tamago targets, matching the reference driver's own split between
// platform-specific register access and portable protocol logic.
type MMIO struct {
	Base uint32
}

func (m MMIO) Read8(off uint32) uint8 {
	return *(*uint8)(unsafe.Pointer(uintptr(m.Base + off)))
}

func (m MMIO) Read16(off uint32) uint16 {
	return *(*uint16)(unsafe.Pointer(uintptr(m.Base + off)))
}

func (m MMIO) Read32(off uint32) uint32 {
	return *(*uint32)(unsafe.Pointer(uintptr(m.Base + off)))
}

func (m MMIO) Write8(off uint32, val uint8) {
	*(*uint8)(unsafe.Pointer(uintptr(m.Base + off))) = val
}

func (m MMIO) Write16(off uint32, val uint16) {
	*(*uint16)(unsafe.Pointer(uintptr(m.Base + off))) = val
}

func (m MMIO) Write32(off uint32, val uint32) {
	*(*uint32)(unsafe.Pointer(uintptr(m.Base + off))) = val
}
