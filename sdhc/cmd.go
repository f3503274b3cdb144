package sdhc

// cmdWord composes the Command register value for a non-data or data-bearing
// command, per §4.4/§4.5: command index, optional data-present bit, index
// and CRC verification enables, and the response-type bits.
func cmdWord(index uint8, rt ResponseType, dataPresent bool) uint16 {
	word := uint16(index) << cmdIndexShift
	if dataPresent {
		word |= 1 << cmdDataPresent
	}
	if rt.indexCheck() {
		word |= 1 << cmdIndexCheck
	}
	if rt.crcCheck() {
		word |= 1 << cmdCRCCheck
	}
	word |= rt.bits()
	return word
}

// issueCmd issues a non-data SD command and waits for its completion
// interrupt, per §4.4.
func (h *Host) issueCmd(index uint8, arg uint32, rt ResponseType) (Response, error) {
	// single block, no auto-CMD, no block count enable
	h.bus.Write16(regTransferMode, 0)
	h.bus.Write32(regArgument, arg)
	h.bus.Write16(regCommand, cmdWord(index, rt, false))

	status, err := h.waitForInterrupt()
	if err != nil {
		return Response{}, err
	}

	if rt != RspR1b {
		if status&(1<<intCommandComplete) == 0 {
			h.debugf("sdhc: CMD%d: wrong interrupt, expected command-complete, got %#x", index, status)
			return Response{}, WrongInterrupt
		}
		return h.fillResponse(rt), nil
	}

	seenCmdComplete := status&(1<<intCommandComplete) != 0
	seenXferComplete := status&(1<<intTransferComplete) != 0

	for !seenCmdComplete || !seenXferComplete {
		status, err = h.waitForInterrupt()
		if err != nil {
			return Response{}, err
		}
		seenCmdComplete = seenCmdComplete || status&(1<<intCommandComplete) != 0
		seenXferComplete = seenXferComplete || status&(1<<intTransferComplete) != 0
	}

	return h.fillResponse(rt), nil
}

// issueACMD issues CMD55 (APP_CMD) followed by the application-specific
// command cmd, per §4.6.
func (h *Host) issueACMD(cmd uint8, arg uint32, rt ResponseType) (Response, error) {
	if _, err := h.issueCmd(55, uint32(h.rca)<<16, RspR1); err != nil {
		return Response{}, err
	}
	return h.issueCmd(cmd, arg, rt)
}

// fillResponse reads the four response words and decodes them per rt. It is
// only called once an operation has already succeeded; errors zero the
// response at the call site instead.
func (h *Host) fillResponse(rt ResponseType) Response {
	if rt == RspNone {
		return Response{Type: RspNone}
	}

	var words [4]uint32
	words[0] = h.bus.Read32(regResponse)

	if rt == RspR2 {
		words[1] = h.bus.Read32(regResponse + 0x4)
		words[2] = h.bus.Read32(regResponse + 0x8)
		words[3] = h.bus.Read32(regResponse + 0xC)
	}

	return decodeResponse(rt, words)
}
