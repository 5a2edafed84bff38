package recorder

import (
	"bufio"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"callrecorder/internal/muxer"
	"callrecorder/pkg/recorderrors"
)

// DefaultMaxSamplesPerPage bounds how many samples a StreamWriter buffers
// before flushing a page, keeping pages well under the 65KB payload ceiling
// and bounding seek latency. ~4s at the 48kHz reference rate. Used whenever
// a caller doesn't override it via RecordingMetadata.MaxSamplesPerPage.
const DefaultMaxSamplesPerPage = 200_000

// SilencePacket is a 20ms Fullband CELT silence frame. Its TOC (0xF8)
// decodes to sample_count 960 at the 48kHz reference rate.
var SilencePacket = []byte{0xF8, 0xFF, 0xFE}

type packetBuffer struct {
	opusBytes    []byte
	tocs         []muxer.TOC
	segments     *muxer.Segments
	totalSamples uint64
}

func newPacketBuffer() *packetBuffer {
	return &packetBuffer{segments: muxer.NewSegments()}
}

func (b *packetBuffer) clear() {
	b.opusBytes = b.opusBytes[:0]
	b.tocs = b.tocs[:0]
	b.segments.Clear()
	b.totalSamples = 0
}

type streamState int

const (
	streamFresh streamState = iota
	streamStarted
	streamRunning
	streamFinished
)

// StreamWriter owns one participant's Ogg/Opus file for the life of a call.
type StreamWriter struct {
	callID   CallID
	userID   UserID
	serial   uint32
	filePath string

	maxSamplesPerPage uint64

	log *zap.Logger

	fileMu sync.Mutex
	file   *os.File
	writer *bufio.Writer

	stateMu   sync.Mutex
	state     streamState
	status    StreamStatus
	sequence  uint32
	granule   uint64
	tickCount uint64
	buffer    *packetBuffer
}

// NewStreamWriter creates the output directory and file for one user, emits
// the ID and Tags pages, and returns a writer ready for Push/PushSilence.
// maxSamplesPerPage overrides DefaultMaxSamplesPerPage when positive.
func NewStreamWriter(callID CallID, userID UserID, username string, outputDir string, maxSamplesPerPage int, log *zap.Logger) (*StreamWriter, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, recorderrors.New(recorderrors.KindIoOpen, "create stream output dir", err)
	}

	name := username
	if name == "" {
		name = string(userID)
	}
	path := filepath.Join(outputDir, name+".opus")

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return nil, recorderrors.New(recorderrors.KindIoOpen, fmt.Sprintf("open stream file %s", path), err)
	}

	limit := uint64(DefaultMaxSamplesPerPage)
	if maxSamplesPerPage > 0 {
		limit = uint64(maxSamplesPerPage)
	}

	sw := &StreamWriter{
		callID:            callID,
		userID:            userID,
		serial:            rand.Uint32(),
		filePath:          path,
		maxSamplesPerPage: limit,
		log:               log,
		file:              f,
		writer:            bufio.NewWriter(f),
		buffer:            newPacketBuffer(),
	}

	idHeader := muxer.IDHeader{
		ChannelCount:  2,
		Preskip:       muxer.PreskipDefault,
		SampleRate:    muxer.InputSampleRate,
		MappingFamily: muxer.MappingFamilyZero,
	}
	idPayload := idHeader.Build()
	idSegments := muxer.NewSegments()
	idSegments.PushPacket(len(idPayload))
	idPage, err := muxer.BuildPage(muxer.Header{BeginStream: true, Serial: sw.serial, Sequence: 0}, idSegments, idPayload)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	if err := sw.writeRaw(idPage); err != nil {
		_ = f.Close()
		return nil, err
	}

	commentHeader := muxer.CommentHeader{Vendor: muxer.DefaultVendor}
	tagsSegments := muxer.NewSegments()
	tagsPayload := commentHeader.Build()
	tagsSegments.PushPacket(len(tagsPayload))
	tagsPage, err := muxer.BuildPage(muxer.Header{Serial: sw.serial, Sequence: 1}, tagsSegments, tagsPayload)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	if err := sw.writeRaw(tagsPage); err != nil {
		_ = f.Close()
		return nil, err
	}

	sw.sequence = 2
	sw.state = streamRunning
	sw.status = StreamRunning

	if log != nil {
		log.Debug("stream writer started",
			zap.String("call_id", string(callID)),
			zap.String("user_id", string(userID)),
			zap.Uint32("serial", sw.serial),
			zap.String("path", path),
		)
	}

	return sw, nil
}

func (sw *StreamWriter) writeRaw(page []byte) error {
	sw.fileMu.Lock()
	defer sw.fileMu.Unlock()
	if _, err := sw.writer.Write(page); err != nil {
		return recorderrors.New(recorderrors.KindIoWrite, "write ogg page", err)
	}
	if err := sw.writer.Flush(); err != nil {
		return recorderrors.New(recorderrors.KindIoWrite, "flush ogg page", err)
	}
	return nil
}

func (sw *StreamWriter) fail(err error) {
	sw.status = StreamFailed
	if sw.log != nil {
		sw.log.Error("stream writer failed, dropping further packets",
			zap.String("call_id", string(sw.callID)),
			zap.String("user_id", string(sw.userID)),
			zap.Error(err),
		)
	}
}

// Push appends one Opus packet for the given tick, flushing a page first if
// the buffer would overflow a page's segment table or sample budget.
func (sw *StreamWriter) Push(opusData []byte, tickCount uint64) error {
	sw.stateMu.Lock()
	defer sw.stateMu.Unlock()

	if sw.status == StreamFailed {
		return nil
	}
	if sw.state != streamRunning {
		return recorderrors.New(recorderrors.KindIoWrite, "push on non-running stream", nil)
	}

	if _, split := sw.buffer.segments.WouldSplit(len(opusData)); split || sw.buffer.totalSamples > sw.maxSamplesPerPage {
		if err := sw.dumpLocked(false); err != nil {
			sw.fail(err)
			return nil
		}
	}

	if tickCount != sw.tickCount+1 {
		if sw.log != nil {
			sw.log.Warn("discontinuous tick",
				zap.String("call_id", string(sw.callID)),
				zap.String("user_id", string(sw.userID)),
				zap.Uint64("expected", sw.tickCount+1),
				zap.Uint64("got", tickCount),
			)
		}
	}
	sw.tickCount = tickCount

	toc := muxer.ParseTOC(opusData[0])
	if _, ok := sw.buffer.segments.PushPacket(len(opusData)); !ok {
		// Should not happen: WouldSplit above should have dumped first.
		if err := sw.dumpLocked(false); err != nil {
			sw.fail(err)
			return nil
		}
		sw.buffer.segments.PushPacket(len(opusData))
	}
	sw.buffer.totalSamples += toc.SampleCount()
	sw.buffer.tocs = append(sw.buffer.tocs, toc)
	sw.buffer.opusBytes = append(sw.buffer.opusBytes, opusData...)

	return nil
}

// PushSilence substitutes a synthetic silence frame for a known but
// non-speaking user on this tick, so every known user's file advances in
// lockstep with the call-wide tick counter.
func (sw *StreamWriter) PushSilence(tickCount uint64) error {
	return sw.Push(SilencePacket, tickCount)
}

// FillSilence is called once, during construction for a late joiner, to pad
// the new file with whole pages of silence up to the call's current tick.
func (sw *StreamWriter) FillSilence(ticks uint64) error {
	sw.stateMu.Lock()
	defer sw.stateMu.Unlock()

	remaining := ticks
	for remaining > 0 {
		batch := remaining
		if batch > 255 {
			batch = 255
		}

		segs := muxer.NewSegments()
		payload := make([]byte, 0, int(batch)*len(SilencePacket))
		for i := uint64(0); i < batch; i++ {
			segs.PushPacket(len(SilencePacket))
			payload = append(payload, SilencePacket...)
		}

		toc := muxer.ParseTOC(SilencePacket[0])
		sw.granule += toc.SampleCount() * batch

		page, err := muxer.BuildPage(muxer.Header{Serial: sw.serial, Sequence: sw.sequence, Granule: sw.granule}, segs, payload)
		if err != nil {
			sw.fail(err)
			return nil
		}
		if err := sw.writeRaw(page); err != nil {
			sw.fail(err)
			return nil
		}
		sw.sequence++
		sw.tickCount += batch
		remaining -= batch
	}
	return nil
}

// Dump flushes the current packet buffer as one Ogg page.
func (sw *StreamWriter) Dump(finalize bool) error {
	sw.stateMu.Lock()
	defer sw.stateMu.Unlock()
	return sw.dumpLocked(finalize)
}

func (sw *StreamWriter) dumpLocked(finalize bool) error {
	granule := sw.granule + sw.buffer.totalSamples
	h := muxer.Header{
		EndStream: finalize,
		Granule:   granule,
		Serial:    sw.serial,
		Sequence:  sw.sequence,
	}
	page, err := muxer.BuildPage(h, sw.buffer.segments, sw.buffer.opusBytes)
	if err != nil {
		return err
	}
	if err := sw.writeRaw(page); err != nil {
		return err
	}
	sw.buffer.clear()
	sw.granule = granule
	sw.sequence++
	if finalize {
		sw.state = streamFinished
	}
	return nil
}

// Finish flushes any buffered audio with end_stream set, then closes the
// file. After this the writer is terminal.
func (sw *StreamWriter) Finish() error {
	if err := sw.Dump(true); err != nil {
		sw.fail(err)
	}
	sw.fileMu.Lock()
	defer sw.fileMu.Unlock()
	if err := sw.file.Close(); err != nil {
		return recorderrors.New(recorderrors.KindIoWrite, "close stream file", err)
	}
	return nil
}

// Status reports whether a write has failed (StreamFailed, further pushes
// are dropped). A stream that finished without a failure still reports
// StreamRunning even though Push then returns an error.
func (sw *StreamWriter) Status() StreamStatus {
	sw.stateMu.Lock()
	defer sw.stateMu.Unlock()
	return sw.status
}

// Granule reports the current flushed granule position, used by tests and
// by synchronization checks across a call's streams.
func (sw *StreamWriter) Granule() uint64 {
	sw.stateMu.Lock()
	defer sw.stateMu.Unlock()
	return sw.granule
}

// FilePath returns the path to this stream's output file.
func (sw *StreamWriter) FilePath() string {
	return sw.filePath
}
