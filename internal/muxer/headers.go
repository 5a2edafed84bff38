package muxer

import "encoding/binary"

const (
	// PreskipDefault is the standard number of priming samples an Opus
	// decoder discards at stream start.
	PreskipDefault uint16 = 3840
	// InputSampleRate is the rate this recorder always declares in OpusHead;
	// Discord delivers 48 kHz Opus regardless of the negotiated bandwidth.
	InputSampleRate uint32 = 48000
)

// MappingFamily selects the OpusHead channel mapping family. This recorder
// only ever emits family 0 (mono/stereo, no channel mapping table).
type MappingFamily byte

const (
	MappingFamilyZero MappingFamily = 0
)

// IDHeader is the OpusHead identification header payload.
type IDHeader struct {
	ChannelCount  byte
	Preskip       uint16
	SampleRate    uint32
	OutputGain    int16
	MappingFamily MappingFamily
}

// Build serializes the OpusHead payload.
func (h IDHeader) Build() []byte {
	buf := make([]byte, 0, 19)
	buf = append(buf, []byte("OpusHead")...)
	buf = append(buf, 1) // version
	buf = append(buf, h.ChannelCount)

	preskip := make([]byte, 2)
	binary.LittleEndian.PutUint16(preskip, h.Preskip)
	buf = append(buf, preskip...)

	rate := make([]byte, 4)
	binary.LittleEndian.PutUint32(rate, h.SampleRate)
	buf = append(buf, rate...)

	gain := make([]byte, 2)
	binary.LittleEndian.PutUint16(gain, uint16(h.OutputGain))
	buf = append(buf, gain...)

	buf = append(buf, byte(h.MappingFamily))
	// Family 0 ends here; families 1/255 would append stream_count,
	// coupled_count and the channel mapping table, never used here.
	return buf
}

// CommentHeader is the OpusTags comment header payload.
type CommentHeader struct {
	Vendor   string
	Comments []string
}

// Build serializes the OpusTags payload.
func (h CommentHeader) Build() []byte {
	buf := make([]byte, 0, 16+len(h.Vendor))
	buf = append(buf, []byte("OpusTags")...)

	vlen := make([]byte, 4)
	binary.LittleEndian.PutUint32(vlen, uint32(len(h.Vendor)))
	buf = append(buf, vlen...)
	buf = append(buf, []byte(h.Vendor)...)

	clen := make([]byte, 4)
	binary.LittleEndian.PutUint32(clen, uint32(len(h.Comments)))
	buf = append(buf, clen...)

	for _, c := range h.Comments {
		l := make([]byte, 4)
		binary.LittleEndian.PutUint32(l, uint32(len(c)))
		buf = append(buf, l...)
		buf = append(buf, []byte(c)...)
	}
	return buf
}

// DefaultVendor is the vendor string this recorder stamps on every OpusTags
// header.
const DefaultVendor = "callrecorder"
