package sdhc

// Capabilities register field positions (low 16 bits): base clock
// frequency in MHz, timeout clock frequency, and its unit.
const (
	capBaseClockShift  = 8
	capBaseClockMask   = 0xFF
	capTimeoutClkMask  = 0x3F
	capTimeoutUnitMask = 0x8
)

// Power Control, Timeout Control and Host Control 1 values programmed
// verbatim during bring-up.
const (
	powerControl3v3   = 0xF
	timeoutControlMax = 0xE
	hostControl4Bit   = 0x2
)

const (
	setupClockKHz = 400
	dataClockKHz  = 25000

	ocrVoltageWindow = 0x10300000 // 3.2-3.4V supported, maximum performance
	ocrHCSBit        = 1 << 30
	ocrBusyBit       = 1 << 31

	ifCondArg          = 0x1AB
	ifCondCheckPattern = 0xAB

	scrBusWidthByte = 1
	scrBusWidth4Bit = 0x4
)

// InitCard runs the card identification and bring-up sequence of §4.8: it
// enables interrupts, discovers the base and timeout clocks from
// Capabilities, resets the card, negotiates its operating voltage window,
// assigns it a relative card address, reads its capacity, selects it, steps
// the bus clock from 400 kHz to 25 MHz, and switches to a 4-bit data bus
// when the card's SCR register advertises support for it.
//
// maxSpeed is accepted for call-site symmetry with the original signature
// but currently ignored: the sequencer has exactly one supported target
// frequency and always steps to it.
//
// It is safe to call again on an already-initialized Host; the sequence is
// idempotent and simply re-derives the same state.
func (h *Host) InitCard(maxSpeed uint) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.CardPresent() {
		return NoCard
	}

	h.bus.Write16(regNormalIntEn, normalIntEnableMask)
	h.bus.Write16(regNormalIntSts, h.bus.Read16(regNormalIntSts))
	h.bus.Write16(regErrorIntEn, errorIntEnableMask)
	h.bus.Write16(regErrorIntSts, h.bus.Read16(regErrorIntSts))

	h.bus.Write8(regTimeoutCtrl, timeoutControlMax)

	caps := h.bus.Read16(regCapabilities)
	h.baseClockMHz = uint8((caps >> capBaseClockShift) & capBaseClockMask)
	h.timeoutClockFreq = uint8(caps & capTimeoutClkMask)
	h.timeoutIsMHz = caps&capTimeoutUnitMask != 0

	h.bus.Write8(regPowerControl, powerControl3v3)
	// 250 ms for the card to power up
	h.Usleep(250000)
	h.setClockFrequency(setupClockKHz)
	h.Usleep(1000)

	if _, err := h.issueCmd(0, 0, RspNone); err != nil {
		return err
	}

	supportsV2 := true
	resp, err := h.issueCmd(8, ifCondArg, RspR7)
	if err != nil {
		if err != CmdTimeout {
			return err
		}
		// SD v1.x cards don't implement CMD8; proceed without HCS.
		supportsV2 = false
	} else if resp.CheckPattern != ifCondCheckPattern {
		return CmdError
	}

	var hcsBit uint32
	if supportsV2 {
		hcsBit = ocrHCSBit
	}

	var ocr Response
	for {
		ocr, err = h.issueACMD(41, ocrVoltageWindow|hcsBit, RspR3)
		if err != nil {
			return err
		}
		if ocr.OCR&ocrBusyBit != 0 {
			break
		}
	}
	h.hcs = ocr.OCR&ocrHCSBit != 0

	cidResp, err := h.issueCmd(2, 0, RspR2)
	if err != nil {
		return err
	}
	h.cid = cidResp.CID

	rcaResp, err := h.issueCmd(3, 1, RspR6)
	if err != nil {
		return err
	}
	h.rca = rcaResp.NewRCA

	csd, err := h.issueCmd(9, uint32(h.rca)<<16, RspR2)
	if err != nil {
		return err
	}
	h.blocks = blocksFromCSD(csd.CID)

	if _, err := h.issueCmd(7, uint32(h.rca)<<16, RspR1b); err != nil {
		return err
	}

	h.setClockFrequency(dataClockKHz)
	h.Usleep(1000)

	if _, err := h.issueCmd(16, defaultBlockSize, RspR1); err != nil {
		return err
	}
	h.bus.Write16(regBlockSize, defaultBlockSize)

	if h.Simulation {
		// simulation models are always wired for 4-bit transfers, but
		// the SCR read and ACMD6 negotiation still happen below.
		h.bus.Write8(regHostControl1, hostControl4Bit)
	}
	if err := h.negotiateBusWidth(); err != nil {
		return err
	}

	h.bus.Write16(regBlockSize, defaultBlockSize)

	return nil
}

// negotiateBusWidth reads the card's SCR register (ACMD51) and switches
// both card and controller to a 4-bit data bus when supported, per §4.8
// steps 17 and 18.
func (h *Host) negotiateBusWidth() error {
	h.bus.Write16(regBlockSize, scrPayloadSize)

	// ACMD51 is an application command: CMD55 must precede it
	if _, err := h.issueCmd(55, uint32(h.rca)<<16, RspR1); err != nil {
		return err
	}

	var scr [scrPayloadSize]byte
	if _, err := h.issueDataCmd(51, 0, RspR1, dirRead, scr[:]); err != nil {
		return err
	}

	if scr[scrBusWidthByte]&scrBusWidth4Bit == 0 {
		return nil
	}

	if _, err := h.issueACMD(6, 0x2, RspR1); err != nil {
		return err
	}
	h.bus.Write8(regHostControl1, hostControl4Bit)

	return nil
}
