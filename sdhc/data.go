package sdhc

import "github.com/Freakness109/sdhci/sdhc/regio"

// direction is the data transfer direction of a data-bearing SD command.
type direction int

const (
	dirRead direction = iota
	dirWrite
)

// issueDataCmd issues a data-bearing SD command and drains/fills buf via PIO
// through the Buffer Data Port, per §4.5.
//
// buf must be exactly 8 bytes (the ACMD51 SCR payload) or a non-zero
// multiple of 512 bytes, and no more than 0xFFFF blocks; any other size
// returns NotSupported without touching the controller.
func (h *Host) issueDataCmd(index uint8, arg uint32, rt ResponseType, dir direction, buf []byte) (Response, error) {
	size := len(buf)

	if size != scrPayloadSize && (size == 0 || size%defaultBlockSize != 0) {
		return Response{}, NotSupported
	}
	if size > maxBytesPerXfer {
		return Response{}, NotSupported
	}

	var xfr uint16
	if size > defaultBlockSize {
		h.bus.Write16(regBlockCount, uint16(size/defaultBlockSize))
		xfr |= 1 << xferMultiBlock
		xfr |= 1 << xferBlockCountEn
	}
	if dir == dirRead {
		xfr |= 1 << xferDataDirection
	}
	if size != scrPayloadSize {
		xfr |= 0b01 << xferAutoCMD12Shift
	}

	h.bus.Write16(regTransferMode, xfr)
	h.bus.Write32(regArgument, arg)
	h.bus.Write16(regCommand, cmdWord(index, rt, true))

	var err error
	if dir == dirRead {
		err = h.drainRead(buf)
	} else {
		err = h.fillWrite(buf)
	}

	if err != nil {
		return Response{}, err
	}

	return h.fillResponse(rt), nil
}

// drainRead implements §4.5's read path: wait for buffer-read-ready (polled
// via Present State, or via the matching interrupt), drain one 512-byte
// block (or the 8-byte SCR payload) at a time, then opportunistically
// reconcile any trailing interrupt bits.
func (h *Host) drainRead(buf []byte) error {
	size := len(buf)

	if size <= defaultBlockSize {
		if err := h.waitBufferReady(presentStateBufferReadReady, intBufferReadReady); err != nil {
			return err
		}
		drainWords(h.bus, buf)
	} else {
		for off := 0; off < size; off += defaultBlockSize {
			if err := h.waitBufferReady(presentStateBufferReadReady, intBufferReadReady); err != nil {
				return err
			}
			drainWords(h.bus, buf[off:off+defaultBlockSize])
		}
	}

	// drain any pending normal-interrupt bits we raced past; a zero
	// status here is expected, not an error.
	if status := h.bus.Read16(regNormalIntSts); status != 0 {
		if err := h.ackAndClassify(status); err != nil {
			h.debugf("sdhc: read: trailing interrupt %#x reconciled as error", status)
			return err
		}
	}

	return nil
}

// fillWrite implements §4.5's write path.
func (h *Host) fillWrite(buf []byte) error {
	for off := 0; off < len(buf); off += defaultBlockSize {
		if err := h.waitBufferReady(presentStateBufferWriteReady, intBufferWriteReady); err != nil {
			return err
		}
		fillWords(h.bus, buf[off:off+defaultBlockSize])
	}

	status, err := h.waitForInterrupt()
	if err != nil {
		return err
	}

	// tolerate up to two spurious intermediate interrupts (a stale
	// buffer-write-ready, or a command-complete arriving after the last
	// block) before giving up on ever seeing transfer-complete.
	retries := 2
	for status&(1<<intTransferComplete) == 0 {
		if retries == 0 {
			h.debugf("sdhc: write: wrong interrupt, expected transfer-complete, got %#x", status)
			return WrongInterrupt
		}
		status, err = h.waitForInterrupt()
		if err != nil {
			return err
		}
		retries--
	}

	if h.bus.Read32(regPresentState)&(1<<presentStateDATActive) != 0 {
		// Auto-CMD12 still executing: one more transfer-complete is due.
		status, err = h.waitForInterrupt()
		if err != nil {
			return err
		}
		if status&(1<<intTransferComplete) == 0 {
			h.debugf("sdhc: write: wrong interrupt, expected transfer-complete, got %#x", status)
			return WrongInterrupt
		}
		return nil
	}

	// clear any transfer-complete we might have missed
	if status = h.bus.Read16(regNormalIntSts); status != 0 {
		return h.ackAndClassify(status)
	}

	return nil
}

// waitBufferReady waits for the named Present State bit to be set, either
// immediately or after the matching normal-interrupt bit fires.
func (h *Host) waitBufferReady(presentStateBit uint, normalIntBit uint) error {
	for h.bus.Read32(regPresentState)&(1<<presentStateBit) == 0 {
		status, err := h.waitForInterrupt()
		if err != nil {
			return err
		}

		if status&((1<<normalIntBit)|1) == 0 {
			h.debugf("sdhc: wrong interrupt, expected %#x, got %#x", uint(1)<<normalIntBit, status)
			return WrongInterrupt
		}
	}

	return nil
}

func drainWords(bus regio.Bus, buf []byte) {
	for i := 0; i < len(buf); i += 4 {
		word := bus.Read32(regBufferData)
		buf[i] = byte(word)
		buf[i+1] = byte(word >> 8)
		buf[i+2] = byte(word >> 16)
		buf[i+3] = byte(word >> 24)
	}
}

func fillWords(bus regio.Bus, buf []byte) {
	for i := 0; i < len(buf); i += 4 {
		word := uint32(buf[i]) | uint32(buf[i+1])<<8 | uint32(buf[i+2])<<16 | uint32(buf[i+3])<<24
		bus.Write32(regBufferData, word)
	}
}
