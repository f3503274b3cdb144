// Package sdhc implements the command/data engine and card bring-up
// sequence for an SD Host Controller Specification v3.x compliant
// controller talking PIO to a single SD memory card.
//
// The package never touches hardware directly: all register access goes
// through the regio.Bus interface, which is bound to a real controller by a
// GOOS=tamago build and stood in for by a software model in tests.
//
// This package does not implement SDIO or MMC (eMMC) cards, UHS-I speed
// modes beyond the 25 MHz default rate, partial-block writes, or a DMA data
// path; see the package-level ADMA descriptor builder for the latter's
// dormant extension point.
package sdhc

import (
	"sync"

	"github.com/usbarmory/tamago/bits"

	"github.com/Freakness109/sdhci/sdhc/regio"
)

// CardInfo is a snapshot of the properties the initialization sequencer
// discovers about an attached card.
type CardInfo struct {
	HCS    bool
	RCA    uint16
	CID    [4]uint32
	Blocks uint64
}

// Host is the SD Host Controller core. A value is created with NewHost and
// passed by reference into every call; there is no package-level driver
// state, so multiple controllers can be driven independently.
type Host struct {
	mu sync.Mutex

	bus regio.Bus

	// Simulation forces 4-bit bus width during InitCard regardless of
	// what the card's SCR register reports, for use against controller
	// models that only implement a 4-bit data path.
	Simulation bool

	// Print receives debug-only diagnostics (wrong-interrupt conditions,
	// transfer reconciliation outcomes). It defaults to a no-op and may
	// be nil.
	Print func(format string, args ...any)

	// Usleep is called with a microsecond delay during card power-up and
	// after clock frequency changes. It is mandatory: NewHost rejects a
	// nil value.
	Usleep func(us uint64)

	rca              uint16
	baseClockMHz     uint8
	timeoutClockFreq uint8
	timeoutIsMHz     bool
	hcs              bool
	cid              [4]uint32
	blocks           uint64
}

// NewHost creates a Host bound to bus and performs the reference driver's
// library bring-up: a software reset of the controller followed by starting
// the internal clock so it is stable by the time InitCard needs it.
func NewHost(bus regio.Bus, simulation bool, usleep func(us uint64)) (*Host, error) {
	if bus == nil {
		return nil, NotSupported
	}
	if usleep == nil {
		return nil, NotSupported
	}

	h := &Host{
		bus:        bus,
		Simulation: simulation,
		Usleep:     usleep,
		Print:      func(string, ...any) {},
	}

	// clear any state left over from a previous run
	h.bus.Write8(regSoftwareReset, 0x1)
	// start the internal clock so it is stable before InitCard needs it
	h.bus.Write16(regClockControl, 0x01)

	return h, nil
}

func (h *Host) debugf(format string, args ...any) {
	if h.Print != nil {
		h.Print(format, args...)
	}
}

// CardPresent reports whether the controller currently detects a card in
// the slot.
func (h *Host) CardPresent() bool {
	v := h.bus.Read32(regPresentState)
	return bits.Get(&v, presentStateCardInserted, 1) == 1
}

// Info returns a snapshot of the most recently detected card's properties.
// Before a successful InitCard, the zero value is returned.
func (h *Host) Info() CardInfo {
	return CardInfo{
		HCS:    h.hcs,
		RCA:    h.rca,
		CID:    h.cid,
		Blocks: h.blocks,
	}
}
