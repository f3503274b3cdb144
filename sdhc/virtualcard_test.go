package sdhc

// virtualCard is a software model of an SD Host Controller with a single
// attached SD memory card, standing in for real hardware in tests. Every
// command completes synchronously at the moment its Command register
// write lands: there is no real latency to simulate, so the relevant
// status bits are set before the register write returns and the driver's
// poll loops observe them on their very first check.
type virtualCard struct {
	mem []byte

	blockSize, blockCount uint16
	argument              uint32
	transferMode, command uint16
	response              [4]uint32
	presentState          uint32
	normalIntSts          uint16
	normalIntEn           uint16
	errorIntSts           uint16
	errorIntEn            uint16
	autoCmdErrSts         uint16
	capabilities          uint16
	powerControl          uint8
	hostControl1          uint8
	timeoutCtrl           uint8
	softwareReset         uint8
	clockControl          uint16

	rca             uint16
	hcsCapable      bool
	supportsCMD8    bool
	scrBusWidth4Bit bool
	cid             [4]uint32
	csd             [4]uint32

	xfer *cardXfer
}

type cardXfer struct {
	dir    direction
	data   []byte
	cursor int
}

// newVirtualCard builds a card backed by blocks*512 bytes of zeroed
// storage, reporting a capacity matching blocks via a synthetic CSD
// Version 2.0 response and supporting CMD8/HCS and 4-bit bus width.
// blocks must be a positive multiple of 1024, the granularity CSD Version
// 2.0's C_SIZE field encodes.
func newVirtualCard(blocks int) *virtualCard {
	c := &virtualCard{
		mem:             make([]byte, blocks*defaultBlockSize),
		presentState:    1 << presentStateCardInserted,
		capabilities:    0x3400 | 52, // 52 MHz base clock
		rca:             0x1234,
		hcsCapable:      true,
		supportsCMD8:    true,
		scrBusWidth4Bit: true,
		cid:             [4]uint32{0x00010203, 0x04050607, 0x08090a0b, 0x0c0d0e0f},
	}
	c.setCSDVersion2(uint64(blocks))
	return c
}

// setCSDVersion2 encodes a CSD Version 2.0 response whose C_SIZE field
// decodes, via blocksFromCSD, back to blocks.
func (c *virtualCard) setCSDVersion2(blocks uint64) {
	cSize := uint32(blocks/1024 - 1)
	var words [4]uint32
	words[1] = cSize << 8 // C_SIZE at spec bit 48 (word 1, bit 8 after the -8 offset)
	words[3] = 1 << 22    // CSD_STRUCTURE=1 at spec bit 126 (word 3, bit 22)
	c.csd = words
}

func (c *virtualCard) Read8(off uint32) uint8 {
	switch off {
	case regPowerControl:
		return c.powerControl
	case regHostControl1:
		return c.hostControl1
	case regTimeoutCtrl:
		return c.timeoutCtrl
	case regSoftwareReset:
		return c.softwareReset
	default:
		return 0
	}
}

func (c *virtualCard) Write8(off uint32, val uint8) {
	switch off {
	case regPowerControl:
		c.powerControl = val
	case regHostControl1:
		c.hostControl1 = val
	case regTimeoutCtrl:
		c.timeoutCtrl = val
	case regSoftwareReset:
		c.softwareReset = val
	}
}

func (c *virtualCard) Read16(off uint32) uint16 {
	switch off {
	case regBlockSize:
		return c.blockSize
	case regBlockCount:
		return c.blockCount
	case regTransferMode:
		return c.transferMode
	case regCommand:
		return c.command
	case regClockControl:
		return c.clockControl
	case regNormalIntSts:
		return c.normalIntSts
	case regErrorIntSts:
		return c.errorIntSts
	case regNormalIntEn:
		return c.normalIntEn
	case regErrorIntEn:
		return c.errorIntEn
	case regAutoCmdErrSts:
		return c.autoCmdErrSts
	case regCapabilities:
		return c.capabilities
	default:
		return 0
	}
}

func (c *virtualCard) Write16(off uint32, val uint16) {
	switch off {
	case regBlockSize:
		c.blockSize = val
	case regBlockCount:
		c.blockCount = val
	case regTransferMode:
		c.transferMode = val
	case regCommand:
		c.command = val
		c.onCommandWrite(val)
	case regClockControl:
		c.clockControl = val
	case regNormalIntSts:
		c.normalIntSts &^= val
	case regErrorIntSts:
		c.errorIntSts &^= val
	case regNormalIntEn:
		c.normalIntEn = val
	case regErrorIntEn:
		c.errorIntEn = val
	}
}

func (c *virtualCard) Read32(off uint32) uint32 {
	switch {
	case off == regArgument:
		return c.argument
	case off == regPresentState:
		return c.presentState
	case off == regBufferData:
		return c.drainBufferWord()
	case off >= regResponse && off < regResponse+0x10:
		return c.response[(off-regResponse)/4]
	default:
		return 0
	}
}

func (c *virtualCard) Write32(off uint32, val uint32) {
	switch off {
	case regArgument:
		c.argument = val
	case regBufferData:
		c.fillBufferWord(val)
	}
}

func (c *virtualCard) drainBufferWord() uint32 {
	if c.xfer == nil || c.xfer.dir != dirRead {
		return 0
	}

	word := uint32(c.xfer.data[c.xfer.cursor]) |
		uint32(c.xfer.data[c.xfer.cursor+1])<<8 |
		uint32(c.xfer.data[c.xfer.cursor+2])<<16 |
		uint32(c.xfer.data[c.xfer.cursor+3])<<24
	c.xfer.cursor += 4

	if c.xfer.cursor == len(c.xfer.data) {
		c.presentState &^= 1 << presentStateBufferReadReady
		c.normalIntSts |= 1 << intTransferComplete
		c.xfer = nil
	}

	return word
}

func (c *virtualCard) fillBufferWord(val uint32) {
	if c.xfer == nil || c.xfer.dir != dirWrite {
		return
	}

	c.xfer.data[c.xfer.cursor] = byte(val)
	c.xfer.data[c.xfer.cursor+1] = byte(val >> 8)
	c.xfer.data[c.xfer.cursor+2] = byte(val >> 16)
	c.xfer.data[c.xfer.cursor+3] = byte(val >> 24)
	c.xfer.cursor += 4

	if c.xfer.cursor == len(c.xfer.data) {
		copy(c.mem[c.xferAddress():], c.xfer.data)
		c.presentState &^= 1 << presentStateBufferWriteReady
		c.normalIntSts |= 1 << intTransferComplete
		c.xfer = nil
	}
}

// xferAddress resolves the current command's Argument into a backing
// store byte offset, using the same block-index-vs-byte-offset convention
// the driver applies based on HCS.
func (c *virtualCard) xferAddress() int {
	if c.hcsCapable {
		return int(c.argument) * defaultBlockSize
	}
	return int(c.argument)
}

func (c *virtualCard) xferSize() int {
	if c.transferMode&(1<<xferMultiBlock) != 0 {
		return int(c.blockCount) * defaultBlockSize
	}
	return int(c.blockSize)
}

func (c *virtualCard) onCommandWrite(word uint16) {
	index := uint8(word >> cmdIndexShift)

	switch index {
	case 0: // GO_IDLE_STATE
		c.response[0] = 0
		c.ack()
	case 8: // SEND_IF_COND
		if !c.supportsCMD8 {
			c.ackTimeout()
			return
		}
		c.response[0] = c.argument & 0xFFF
		c.ack()
	case 55: // APP_CMD
		c.response[0] = 0
		c.ack()
	case 41: // SD_SEND_OP_COND
		ocr := uint32(1) << 31
		if c.hcsCapable && c.argument&(1<<30) != 0 {
			ocr |= 1 << 30
		}
		ocr |= 0x00300000
		c.response[0] = ocr
		c.ack()
	case 2: // ALL_SEND_CID
		c.response = c.cid
		c.ack()
	case 3: // SEND_RELATIVE_ADDR
		c.response[0] = uint32(c.rca) << 16
		c.ack()
	case 7: // SELECT/DESELECT_CARD
		c.response[0] = 0
		c.ackBusy()
	case 9: // SEND_CSD
		c.response = c.csd
		c.ack()
	case 16: // SET_BLOCKLEN
		c.response[0] = 0
		c.ack()
	case 23: // SET_BLOCK_COUNT
		c.response[0] = 0
		c.ack()
	case 6: // (A)CMD6 - only ever issued as ACMD6 SET_BUS_WIDTH by this driver
		c.response[0] = 0
		c.ack()
	case 17, 18: // READ_(SINGLE|MULTIPLE)_BLOCK
		size := c.xferSize()
		data := make([]byte, size)
		copy(data, c.mem[c.xferAddress():c.xferAddress()+size])
		c.xfer = &cardXfer{dir: dirRead, data: data}
		c.presentState |= 1 << presentStateBufferReadReady
		c.response[0] = 0
		c.ack()
	case 24, 25: // WRITE_(BLOCK|MULTIPLE_BLOCK)
		size := c.xferSize()
		c.xfer = &cardXfer{dir: dirWrite, data: make([]byte, size)}
		c.presentState |= 1 << presentStateBufferWriteReady
		c.response[0] = 0
		c.ack()
	case 51: // SEND_SCR
		scr := [scrPayloadSize]byte{}
		if c.scrBusWidth4Bit {
			scr[1] = 0x4
		}
		c.xfer = &cardXfer{dir: dirRead, data: scr[:]}
		c.presentState |= 1 << presentStateBufferReadReady
		c.response[0] = 0
		c.ack()
	default:
		c.response[0] = 0
		c.ack()
	}
}

func (c *virtualCard) ack() {
	c.normalIntSts |= 1 << intCommandComplete
}

func (c *virtualCard) ackBusy() {
	c.normalIntSts |= 1<<intCommandComplete | 1<<intTransferComplete
}

func (c *virtualCard) ackTimeout() {
	c.errorIntSts |= 1 << errCmdTimeout
	c.normalIntSts |= 1 << intErrorInterrupt
}
