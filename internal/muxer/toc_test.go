package muxer

import "testing"

func TestParseTOC_SilencePacket(t *testing.T) {
	toc := ParseTOC(0xF8)

	if toc.Mode != ModeCELT {
		t.Errorf("mode = %v, want CELT", toc.Mode)
	}
	if toc.Bandwidth != BandwidthFullband {
		t.Errorf("bandwidth = %v, want Fullband", toc.Bandwidth)
	}
	if toc.FrameSize != 20 {
		t.Errorf("frame size = %v, want 20ms", toc.FrameSize)
	}
	if toc.Stereo {
		t.Errorf("stereo = true, want false")
	}
	if toc.FrameCount != FrameCountOne {
		t.Errorf("frame count = %v, want one", toc.FrameCount)
	}
	if got := toc.SampleCount(); got != 960 {
		t.Errorf("sample count = %d, want 960", got)
	}
}

func TestParseTOC_AllConfigsDecodeWithoutPanic(t *testing.T) {
	for cfg := 0; cfg < 32; cfg++ {
		toc := ParseTOC(byte(cfg << 3))
		if toc.SampleCount() == 0 {
			t.Errorf("config %d: sample count is zero", cfg)
		}
	}
}

func TestParseTOC_NarrowbandUsesFullbandGranuleReference(t *testing.T) {
	// Config 0: SILK NB, 10ms frame. Even though the bandwidth's own
	// nominal rate is 8000Hz, granule must advance at the 48kHz reference.
	toc := ParseTOC(0x00)
	if toc.Bandwidth != BandwidthNarrowband {
		t.Fatalf("bandwidth = %v, want Narrowband", toc.Bandwidth)
	}
	want := uint64(48000 * 10 / 1000)
	if got := toc.SampleCount(); got != want {
		t.Errorf("sample count = %d, want %d (48kHz reference, not 8kHz)", got, want)
	}
}
