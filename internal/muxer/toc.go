package muxer

// Mode is the Opus coding mode signaled by a TOC byte's config value.
type Mode int

const (
	ModeSILK Mode = iota
	ModeHybrid
	ModeCELT
)

// Bandwidth is the audio bandwidth signaled by a TOC byte's config value.
type Bandwidth int

const (
	BandwidthNarrowband Bandwidth = iota
	BandwidthMediumband
	BandwidthWideband
	BandwidthSuperWideband
	BandwidthFullband
)

// FrameCount is the frame-count-per-packet signaled by the TOC byte's low
// two bits.
type FrameCount int

const (
	FrameCountOne FrameCount = iota
	FrameCountTwoEqual
	FrameCountTwoDifferent
	FrameCountArbitrary
)

// oggReferenceRate is the fixed rate Ogg/Opus granule positions are always
// counted at, independent of the packet's own negotiated bandwidth.
const oggReferenceRate = 48000

type configEntry struct {
	mode       Mode
	bandwidth  Bandwidth
	frameSizes [4]float64 // ms; trailing zeros unused when a config has < 4 sizes
	numSizes   int
}

// configTable maps TOC config (0..31) to mode/bandwidth/frame-size-table,
// matching the RFC 6716 table directly rather than a nested branch.
var configTable = [32]configEntry{
	0: {ModeSILK, BandwidthNarrowband, [4]float64{10, 20, 40, 60}, 4},
	1: {ModeSILK, BandwidthNarrowband, [4]float64{10, 20, 40, 60}, 4},
	2: {ModeSILK, BandwidthNarrowband, [4]float64{10, 20, 40, 60}, 4},
	3: {ModeSILK, BandwidthNarrowband, [4]float64{10, 20, 40, 60}, 4},

	4: {ModeSILK, BandwidthMediumband, [4]float64{10, 20, 40, 60}, 4},
	5: {ModeSILK, BandwidthMediumband, [4]float64{10, 20, 40, 60}, 4},
	6: {ModeSILK, BandwidthMediumband, [4]float64{10, 20, 40, 60}, 4},
	7: {ModeSILK, BandwidthMediumband, [4]float64{10, 20, 40, 60}, 4},

	8:  {ModeSILK, BandwidthWideband, [4]float64{10, 20, 40, 60}, 4},
	9:  {ModeSILK, BandwidthWideband, [4]float64{10, 20, 40, 60}, 4},
	10: {ModeSILK, BandwidthWideband, [4]float64{10, 20, 40, 60}, 4},
	11: {ModeSILK, BandwidthWideband, [4]float64{10, 20, 40, 60}, 4},

	12: {ModeHybrid, BandwidthSuperWideband, [4]float64{10, 20}, 2},
	13: {ModeHybrid, BandwidthSuperWideband, [4]float64{10, 20}, 2},

	14: {ModeHybrid, BandwidthFullband, [4]float64{10, 20}, 2},
	15: {ModeHybrid, BandwidthFullband, [4]float64{10, 20}, 2},

	16: {ModeCELT, BandwidthNarrowband, [4]float64{2.5, 5, 10, 20}, 4},
	17: {ModeCELT, BandwidthNarrowband, [4]float64{2.5, 5, 10, 20}, 4},
	18: {ModeCELT, BandwidthNarrowband, [4]float64{2.5, 5, 10, 20}, 4},
	19: {ModeCELT, BandwidthNarrowband, [4]float64{2.5, 5, 10, 20}, 4},

	20: {ModeCELT, BandwidthWideband, [4]float64{2.5, 5, 10, 20}, 4},
	21: {ModeCELT, BandwidthWideband, [4]float64{2.5, 5, 10, 20}, 4},
	22: {ModeCELT, BandwidthWideband, [4]float64{2.5, 5, 10, 20}, 4},
	23: {ModeCELT, BandwidthWideband, [4]float64{2.5, 5, 10, 20}, 4},

	24: {ModeCELT, BandwidthSuperWideband, [4]float64{2.5, 5, 10, 20}, 4},
	25: {ModeCELT, BandwidthSuperWideband, [4]float64{2.5, 5, 10, 20}, 4},
	26: {ModeCELT, BandwidthSuperWideband, [4]float64{2.5, 5, 10, 20}, 4},
	27: {ModeCELT, BandwidthSuperWideband, [4]float64{2.5, 5, 10, 20}, 4},

	28: {ModeCELT, BandwidthFullband, [4]float64{2.5, 5, 10, 20}, 4},
	29: {ModeCELT, BandwidthFullband, [4]float64{2.5, 5, 10, 20}, 4},
	30: {ModeCELT, BandwidthFullband, [4]float64{2.5, 5, 10, 20}, 4},
	31: {ModeCELT, BandwidthFullband, [4]float64{2.5, 5, 10, 20}, 4},
}

// TOC is the decoded form of an Opus packet's first byte.
type TOC struct {
	Mode       Mode
	Bandwidth  Bandwidth
	FrameSize  float64 // ms
	Stereo     bool
	FrameCount FrameCount
}

// ParseTOC decodes an Opus TOC byte into its mode, bandwidth, frame size,
// channel count and frame-count-per-packet fields.
func ParseTOC(t byte) TOC {
	config := t >> 3
	stereo := t&0x04 != 0
	countCode := t & 0x03

	entry := configTable[config]
	// frame size within a config's group is selected by the two bits below
	// the config's own width; Opus groups configs in runs of 4 or 2 (SWB/FB
	// hybrid), each run sharing one frame-size table indexed the same way.
	idx := int(config) % entry.numSizes

	var fc FrameCount
	switch countCode {
	case 0:
		fc = FrameCountOne
	case 1:
		fc = FrameCountTwoEqual
	case 2:
		fc = FrameCountTwoDifferent
	case 3:
		fc = FrameCountArbitrary
	}

	return TOC{
		Mode:       entry.mode,
		Bandwidth:  entry.bandwidth,
		FrameSize:  entry.frameSizes[idx],
		Stereo:     stereo,
		FrameCount: fc,
	}
}

// SampleCount returns the number of samples, at the 48 kHz Ogg reference
// rate, one frame of this TOC's size represents. Granule positions always
// advance by this amount regardless of the packet's own bandwidth.
func (t TOC) SampleCount() uint64 {
	return uint64(oggReferenceRate * t.FrameSize / 1000)
}
