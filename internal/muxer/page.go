package muxer

import (
	"encoding/binary"

	"callrecorder/pkg/recorderrors"
)

const (
	// MaxSegmentsPerPage is the one-byte segment count ceiling an Ogg page allows.
	MaxSegmentsPerPage = 255
	// MaxPayloadPerPage is the largest payload 255 segments of 255 bytes can carry.
	MaxPayloadPerPage = MaxSegmentsPerPage * 255
)

// Segments is an Ogg lacing table: an ordered sequence of bytes in [0,255]
// describing how the page payload splits back into packets.
type Segments struct {
	lacing    []byte
	totalSize int
}

// NewSegments returns an empty lacing table.
func NewSegments() *Segments {
	return &Segments{}
}

// Len reports the number of lacing bytes currently held.
func (s *Segments) Len() int {
	return len(s.lacing)
}

// TotalSize reports the total payload size described by the table so far.
func (s *Segments) TotalSize() int {
	return s.totalSize
}

// Bytes returns the raw lacing bytes.
func (s *Segments) Bytes() []byte {
	return s.lacing
}

// Clear resets the table to empty.
func (s *Segments) Clear() {
	s.lacing = s.lacing[:0]
	s.totalSize = 0
}

// wouldSplitLen predicts, without mutating state, how many of the length
// bytes would be left unplaced once this table hits the 255-segment cap,
// and whether the packet would need to be split across pages.
func wouldSplitLen(currentLen, length int) (overflow int, split bool) {
	remaining := length
	used := currentLen
	for remaining >= 255 {
		if used >= MaxSegmentsPerPage {
			return remaining, true
		}
		used++
		remaining -= 255
	}
	if used >= MaxSegmentsPerPage {
		return remaining, true
	}
	return 0, false
}

// WouldSplit is the non-mutating prediction of PushPacket for split decisions.
func (s *Segments) WouldSplit(length int) (overflow int, split bool) {
	return wouldSplitLen(len(s.lacing), length)
}

// PushPacket appends the lacing bytes for a packet of the given length.
// If the table would exceed 255 entries while appending, it stops and
// returns the remaining byte count that was not placed along with ok=false.
// ok=true means the whole packet was placed.
func (s *Segments) PushPacket(length int) (overflow int, ok bool) {
	remaining := length
	for remaining >= 255 {
		if len(s.lacing) >= MaxSegmentsPerPage {
			return remaining, false
		}
		s.lacing = append(s.lacing, 255)
		s.totalSize += 255
		remaining -= 255
	}
	if len(s.lacing) >= MaxSegmentsPerPage {
		return remaining, false
	}
	s.lacing = append(s.lacing, byte(remaining))
	s.totalSize += remaining
	return 0, true
}

// Header carries the per-page fields that vary across an Ogg logical stream.
type Header struct {
	Continuation bool
	BeginStream  bool
	EndStream    bool
	Granule      uint64
	Serial       uint32
	Sequence     uint32
}

func (h Header) flags() byte {
	var f byte
	if h.Continuation {
		f |= 1 << 0
	}
	if h.BeginStream {
		f |= 1 << 1
	}
	if h.EndStream {
		f |= 1 << 2
	}
	return f
}

// BuildPage serializes one Ogg page: header, segment table, CRC, payload.
func BuildPage(h Header, segments *Segments, payload []byte) ([]byte, error) {
	if len(payload) > MaxPayloadPerPage {
		return nil, recorderrors.New(recorderrors.KindPagePayloadTooLarge,
			"page payload exceeds 65025 bytes", nil)
	}
	if segments.Len() > MaxSegmentsPerPage {
		return nil, recorderrors.New(recorderrors.KindPageSegmentsTooMany,
			"segment table exceeds 255 entries", nil)
	}

	buf := make([]byte, 0, 27+segments.Len()+len(payload))
	buf = append(buf, 'O', 'g', 'g', 'S')
	buf = append(buf, 0) // structure version
	buf = append(buf, h.flags())

	granule := make([]byte, 8)
	binary.LittleEndian.PutUint64(granule, h.Granule)
	buf = append(buf, granule...)

	serial := make([]byte, 4)
	binary.LittleEndian.PutUint32(serial, h.Serial)
	buf = append(buf, serial...)

	sequence := make([]byte, 4)
	binary.LittleEndian.PutUint32(sequence, h.Sequence)
	buf = append(buf, sequence...)

	crcOffset := len(buf)
	buf = append(buf, 0, 0, 0, 0) // CRC placeholder

	buf = append(buf, byte(segments.Len()))
	buf = append(buf, segments.Bytes()...)
	buf = append(buf, payload...)

	crc := ChecksumPage(buf)
	binary.LittleEndian.PutUint32(buf[crcOffset:crcOffset+4], crc)

	return buf, nil
}
