package muxer

import (
	"bytes"
	"testing"
)

func TestIDHeader_Build(t *testing.T) {
	h := IDHeader{
		ChannelCount:  2,
		Preskip:       PreskipDefault,
		SampleRate:    InputSampleRate,
		OutputGain:    0,
		MappingFamily: MappingFamilyZero,
	}
	buf := h.Build()
	if !bytes.HasPrefix(buf, []byte("OpusHead")) {
		t.Fatalf("missing OpusHead magic: %x", buf)
	}
	if len(buf) != 19 {
		t.Fatalf("id header length = %d, want 19", len(buf))
	}
	if buf[8] != 1 {
		t.Errorf("version = %d, want 1", buf[8])
	}
	if buf[9] != 2 {
		t.Errorf("channel count = %d, want 2", buf[9])
	}
	if buf[18] != 0 {
		t.Errorf("mapping family = %d, want 0", buf[18])
	}
}

func TestCommentHeader_Build(t *testing.T) {
	h := CommentHeader{
		Vendor:   DefaultVendor,
		Comments: []string{"a=b"},
	}
	buf := h.Build()
	if !bytes.HasPrefix(buf, []byte("OpusTags")) {
		t.Fatalf("missing OpusTags magic: %x", buf)
	}
	offset := 8
	vendorLen := int(buf[offset]) | int(buf[offset+1])<<8 | int(buf[offset+2])<<16 | int(buf[offset+3])<<24
	if vendorLen != len(DefaultVendor) {
		t.Errorf("vendor length = %d, want %d", vendorLen, len(DefaultVendor))
	}
}
