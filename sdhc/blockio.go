package sdhc

// blockAddress converts a byte offset into the argument CMD17/18/24/25
// expect: a block index on a high-capacity card, the byte offset itself
// otherwise.
func (h *Host) blockAddress(offset uint32) uint32 {
	if h.hcs {
		return offset / defaultBlockSize
	}
	return offset
}

// setBlockCountHint issues CMD23 ahead of a multi-block transfer. A timeout
// is tolerated: CMD23 is a performance hint, not a requirement, and some
// controllers under test never raise it.
func (h *Host) setBlockCountHint(blocks uint32) error {
	_, err := h.issueCmd(23, blocks, RspR1)
	if err != nil && err != CmdTimeout {
		return err
	}
	return nil
}

func (h *Host) withinCapacity(offset uint32, size int) bool {
	if h.blocks == 0 {
		return true
	}
	return uint64(offset)+uint64(size) <= h.blocks*defaultBlockSize
}

// Read fills data from the card starting at the byte offset, per §4.9's
// block range planner: an unaligned offset costs one single-block read to
// recover its prefix, full 0xFFFF-block transfers are chunked behind a
// CMD23 hint, and a final sub-block remainder is recovered the same way
// as the unaligned prefix.
func (h *Host) Read(offset uint32, data []byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.withinCapacity(offset, len(data)) {
		return NotSupported
	}

	if r := offset % defaultBlockSize; r != 0 {
		var block [defaultBlockSize]byte
		if _, err := h.issueDataCmd(17, h.blockAddress(offset-r), RspR1, dirRead, block[:]); err != nil {
			return err
		}

		n := copy(data, block[r:])
		data = data[n:]
		offset += defaultBlockSize - r
	}

	for len(data) >= maxBlocksPerXfer*defaultBlockSize {
		chunk := data[:maxBlocksPerXfer*defaultBlockSize]
		if err := h.setBlockCountHint(maxBlocksPerXfer); err != nil {
			return err
		}
		if _, err := h.issueDataCmd(18, h.blockAddress(offset), RspR1, dirRead, chunk); err != nil {
			return err
		}
		data = data[len(chunk):]
		offset += maxBlocksPerXfer * defaultBlockSize
	}

	// a remainder that isn't itself a whole number of blocks (the common
	// case for a short trailing read) is fetched one scratch block at a
	// time, the same technique used above for the unaligned head.
	if aligned := len(data) - len(data)%defaultBlockSize; aligned > 0 {
		chunk := data[:aligned]
		index := uint8(17)
		if aligned > defaultBlockSize {
			if err := h.setBlockCountHint(uint32(aligned / defaultBlockSize)); err != nil {
				return err
			}
			index = 18
		}
		if _, err := h.issueDataCmd(index, h.blockAddress(offset), RspR1, dirRead, chunk); err != nil {
			return err
		}
		data = data[aligned:]
		offset += uint32(aligned)
	}

	if len(data) == 0 {
		return nil
	}

	var block [defaultBlockSize]byte
	if _, err := h.issueDataCmd(17, h.blockAddress(offset), RspR1, dirRead, block[:]); err != nil {
		return err
	}
	copy(data, block[:])

	return nil
}

// Write sends data to the card starting at the byte offset, per §4.9. Unlike
// Read, an unaligned offset is rejected outright: a partial-block write
// would require a read-modify-write the controller does not support.
func (h *Host) Write(offset uint32, data []byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if offset%defaultBlockSize != 0 {
		return NotSupported
	}
	if !h.withinCapacity(offset, len(data)) {
		return NotSupported
	}

	for len(data) >= maxBlocksPerXfer*defaultBlockSize {
		chunk := data[:maxBlocksPerXfer*defaultBlockSize]
		if err := h.setBlockCountHint(maxBlocksPerXfer); err != nil {
			return err
		}
		if _, err := h.issueDataCmd(25, h.blockAddress(offset), RspR1, dirWrite, chunk); err != nil {
			return err
		}
		data = data[len(chunk):]
		offset += maxBlocksPerXfer * defaultBlockSize
	}

	if len(data) == 0 {
		return nil
	}

	if len(data) > defaultBlockSize {
		if err := h.setBlockCountHint(uint32(len(data) / defaultBlockSize)); err != nil {
			return err
		}
		_, err := h.issueDataCmd(25, h.blockAddress(offset), RspR1, dirWrite, data)
		return err
	}

	_, err := h.issueDataCmd(24, h.blockAddress(offset), RspR1, dirWrite, data)
	return err
}

// Blocks reports the card's addressable capacity in 512-byte blocks, or
// zero before a successful InitCard or when the CSD structure version could
// not be decoded.
func (h *Host) Blocks() uint64 {
	return h.blocks
}
