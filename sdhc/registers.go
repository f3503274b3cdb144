package sdhc

// Controller register offsets, SD Host Controller Specification v3.x.
const (
	regBlockSize     = 0x004 // 16 bit
	regBlockCount    = 0x006 // 16 bit
	regArgument      = 0x008 // 32 bit
	regTransferMode  = 0x00C // 16 bit
	regCommand       = 0x00E // 16 bit
	regResponse      = 0x010 // 128 bit, four 32 bit words at +0x0/0x4/0x8/0xC
	regBufferData    = 0x020 // 32 bit
	regPresentState  = 0x024 // 32 bit
	regHostControl1  = 0x028 // 8 bit
	regPowerControl  = 0x029 // 8 bit
	regClockControl  = 0x02C // 16 bit
	regTimeoutCtrl   = 0x02E // 8 bit
	regSoftwareReset = 0x02F // 8 bit
	regNormalIntSts  = 0x030 // 16 bit
	regErrorIntSts   = 0x032 // 16 bit
	regNormalIntEn   = 0x034 // 16 bit
	regErrorIntEn    = 0x036 // 16 bit
	regAutoCmdErrSts = 0x03C // 16 bit
	regCapabilities  = 0x040 // 16 bit (low half)
)

// Present State bits.
const (
	presentStateBufferWriteReady = 10
	presentStateBufferReadReady  = 11
	presentStateDATActive        = 2
	presentStateCardInserted     = 16
)

// Normal Interrupt Status bits.
const (
	intCommandComplete  = 0
	intTransferComplete = 1
	intBufferWriteReady = 4
	intBufferReadReady  = 5
	intCardRemoval      = 7
	intACmdError        = 8
	intErrorInterrupt   = 15

	// Enable masks programmed during InitCard.
	normalIntEnableMask = 0xB3 // removal, buf-write-rdy, buf-read-rdy, xfer-complete, cmd-complete
	errorIntEnableMask  = 0x17F
)

// Error Interrupt Status bits.
const (
	errCmdTimeout    = 0
	errCmdCRC        = 1
	errCmdEndBit     = 2
	errCmdIndex      = 3
	errDataTimeout   = 4
	errDataCRC       = 5
	errDataEndBit    = 6
	errCmdFieldMask  = (1 << errCmdCRC) | (1 << errCmdEndBit) | (1 << errCmdIndex)
	errDataFieldMask = (1 << errDataCRC) | (1 << errDataEndBit)
)

// Auto CMD Error Status bits.
const autoCmdTimeout = 1

// Response-type bits encoded into the Command register [1:0].
const (
	rspBitsNone = 0b00
	rspBitsR2   = 0b01
	rspBits48   = 0b10 // R1, R3, R6, R7
	rspBitsR1b  = 0b11
)

// Command register field positions.
const (
	cmdIndexShift = 8
	cmdIndexCheck = 4
	cmdCRCCheck   = 3
	cmdDataPresent = 5
)

// Transfer Mode bits.
const (
	xferMultiBlock     = 5
	xferBlockCountEn   = 1
	xferDataDirection  = 4 // set for read
	xferAutoCMD12Shift = 2 // bits [3:2], 0b01 enables auto-CMD12
)

const (
	defaultBlockSize = 512
	maxBlocksPerXfer = 0xFFFF
	maxBytesPerXfer  = maxBlocksPerXfer * defaultBlockSize
	scrPayloadSize   = 8
)
