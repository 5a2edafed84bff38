package muxer

import (
	"bytes"
	"testing"
)

func TestSegments_PushPacket_Lacing(t *testing.T) {
	cases := []struct {
		name      string
		length    int
		wantLace  []byte
		wantTotal int
	}{
		{"600 byte packet", 600, []byte{255, 255, 90}, 600},
		{"exact multiple of 255", 510, []byte{255, 255, 0}, 510},
		{"small packet", 3, []byte{3}, 3},
		{"zero length packet", 0, []byte{0}, 0},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			s := NewSegments()
			overflow, ok := s.PushPacket(c.length)
			if !ok {
				t.Fatalf("PushPacket(%d) did not fully place, overflow=%d", c.length, overflow)
			}
			if !bytes.Equal(s.Bytes(), c.wantLace) {
				t.Errorf("lacing = %v, want %v", s.Bytes(), c.wantLace)
			}
			if s.TotalSize() != c.wantTotal {
				t.Errorf("total size = %d, want %d", s.TotalSize(), c.wantTotal)
			}
		})
	}
}

func TestSegments_PushPacket_OverflowsAtSegmentCap(t *testing.T) {
	s := NewSegments()
	// 254 singleton segments fill the table to one short of the cap.
	for i := 0; i < 254; i++ {
		if _, ok := s.PushPacket(1); !ok {
			t.Fatalf("unexpected overflow filling table at entry %d", i)
		}
	}
	// One more single-byte packet fits exactly at 255 segments.
	if _, ok := s.PushPacket(1); !ok {
		t.Fatalf("255th single-byte packet should fit")
	}
	if s.Len() != 255 {
		t.Fatalf("len = %d, want 255", s.Len())
	}
	// Now the table is full; anything else must overflow.
	overflow, ok := s.PushPacket(10)
	if ok {
		t.Fatalf("expected overflow once table is full")
	}
	if overflow != 10 {
		t.Errorf("overflow = %d, want 10", overflow)
	}
}

func TestSegments_WouldSplit_MatchesPushPacket(t *testing.T) {
	s := NewSegments()
	for i := 0; i < 250; i++ {
		s.PushPacket(255)
	}
	wantOverflow, wantSplit := s.WouldSplit(2000)
	clone := NewSegments()
	clone.lacing = append([]byte(nil), s.lacing...)
	clone.totalSize = s.totalSize
	gotOverflow, ok := clone.PushPacket(2000)
	if wantSplit == ok {
		t.Fatalf("WouldSplit disagreed with PushPacket: split=%v ok=%v", wantSplit, ok)
	}
	if wantSplit && gotOverflow != wantOverflow {
		t.Errorf("overflow mismatch: WouldSplit=%d PushPacket=%d", wantOverflow, gotOverflow)
	}
}

func TestBuildPage_SinglePacketSilencePage(t *testing.T) {
	s := NewSegments()
	s.PushPacket(3)

	h := Header{
		Continuation: false,
		BeginStream:  true,
		EndStream:    false,
		Granule:      0,
		Serial:       0xDEADBEEF,
		Sequence:     0,
	}
	payload := []byte{0xF8, 0xFF, 0xFE}

	page, err := BuildPage(h, s, payload)
	if err != nil {
		t.Fatalf("BuildPage: %v", err)
	}
	if len(page) != 31 {
		t.Fatalf("page length = %d, want 31", len(page))
	}

	want := []byte{
		0x4F, 0x67, 0x67, 0x53, // "OggS"
		0x00,       // version
		0x02,       // flags: begin_stream
		0, 0, 0, 0, 0, 0, 0, 0, // granule = 0
		0xEF, 0xBE, 0xAD, 0xDE, // serial LE
		0, 0, 0, 0, // sequence = 0
	}
	if !bytes.Equal(page[:len(want)], want) {
		t.Errorf("header mismatch: got %x, want %x", page[:len(want)], want)
	}
	if page[26] != 1 || page[27] != 3 {
		t.Errorf("segment count/table mismatch: count=%d lacing=%d", page[26], page[27])
	}
	if !bytes.Equal(page[28:31], payload) {
		t.Errorf("payload mismatch: got %x", page[28:31])
	}

	// CRC: zero bytes 22..26, recompute, compare against what was written.
	zeroed := append([]byte(nil), page...)
	for i := 22; i < 26; i++ {
		zeroed[i] = 0
	}
	wantCRC := ChecksumPage(zeroed)
	gotCRC := uint32(page[22]) | uint32(page[23])<<8 | uint32(page[24])<<16 | uint32(page[25])<<24
	if gotCRC != wantCRC {
		t.Errorf("crc = %x, want %x", gotCRC, wantCRC)
	}
}

func TestBuildPage_RejectsOversizedPayload(t *testing.T) {
	s := NewSegments()
	_, err := BuildPage(Header{}, s, make([]byte, MaxPayloadPerPage+1))
	if err == nil {
		t.Fatal("expected PagePayloadTooLarge error")
	}
}
