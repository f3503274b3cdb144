package sdhc

import "github.com/usbarmory/tamago/bits"

// waitForInterrupt busy-polls Normal Interrupt Status until a non-zero value
// appears, then reconciles it like ackAndClassify. It returns the raw
// (pre-acknowledgement) status word alongside any error so callers can
// inspect which completion bits were actually observed.
func (h *Host) waitForInterrupt() (status uint16, err error) {
	for status == 0 {
		status = h.bus.Read16(regNormalIntSts)
		if status == 0 {
			h.yield()
		}
	}

	return status, h.ackAndClassify(status)
}

// ackAndClassify acknowledges an observed Normal Interrupt Status value by
// write-back and classifies the top-level outcome: a set error bit dispatches
// to the Error Interrupt Status register, a set card-removal bit reports
// NoCard, anything else is success.
func (h *Host) ackAndClassify(status uint16) error {
	h.bus.Write16(regNormalIntSts, status)

	v := uint32(status)
	if bits.Get(&v, intErrorInterrupt, 1) == 1 {
		errStatus := h.bus.Read16(regErrorIntSts)
		h.bus.Write16(regErrorIntSts, errStatus)
		return h.classifyError(errStatus)
	}

	if bits.Get(&v, intCardRemoval, 1) == 1 {
		return NoCard
	}

	return nil
}

// classifyError maps the Error Interrupt Status register to an ErrorKind,
// following the priority order in which a richer error supersedes a more
// generic one when both are set simultaneously.
func (h *Host) classifyError(errStatus uint16) ErrorKind {
	v := uint32(errStatus)

	if bits.Get(&v, intACmdError, 1) == 1 {
		ac12 := uint32(h.bus.Read16(regAutoCmdErrSts))
		if bits.Get(&ac12, autoCmdTimeout, 1) == 1 {
			return CmdTimeout
		}
		return CmdError
	}

	if v&errDataFieldMask != 0 {
		return DataError
	}

	if bits.Get(&v, errDataTimeout, 1) == 1 {
		return DataTimeout
	}

	if v&errCmdFieldMask != 0 {
		return CmdError
	}

	if bits.Get(&v, errCmdTimeout, 1) == 1 {
		return CmdTimeout
	}

	return CmdError
}

func (h *Host) yield() {
	if h.Usleep != nil {
		// a minimal delay avoids spinning the host CPU at full tilt
		// while waiting for hardware; real controllers respond well
		// within this window.
		h.Usleep(0)
	}
}
