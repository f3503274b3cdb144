package sdhc

// clockControlEnable is the low byte of Clock Control that must accompany
// every divider write: internal-clock-enable (bit 0) and SD-clock-enable
// (bit 2).
const clockControlEnable = 0x05

// computeClockDivider implements §4.7: find the divider field that brings
// the base clock (in MHz) at or below targetKHz, rounding down to the next
// power of two. A target at or above the base clock needs no division.
func computeClockDivider(baseMHz uint8, targetKHz uint16) uint8 {
	base := uint32(baseMHz) * 1000
	if uint32(targetKHz) >= base {
		return 0
	}

	shift := 0
	for base > uint32(targetKHz) {
		base >>= 1
		shift++
	}

	if shift >= 8 {
		return 0x80
	}
	return 1 << (shift - 1)
}

// setClockFrequency programs Clock Control for targetKHz against the base
// clock discovered from Capabilities during InitCard.
func (h *Host) setClockFrequency(targetKHz uint16) {
	divider := computeClockDivider(h.baseClockMHz, targetKHz)
	h.bus.Write16(regClockControl, uint16(clockControlEnable)|uint16(divider)<<8)
}
