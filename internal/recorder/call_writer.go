package recorder

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// CallWriter owns every per-user StreamWriter for one recording session and
// is the sole place the call-wide tick counter lives.
type CallWriter struct {
	metadata RecordingMetadata
	log      *zap.Logger

	mu         sync.Mutex
	streams    map[UserID]*StreamWriter
	knownUsers map[UserID]struct{}
	tickCount  uint64

	archiveFn func(dir, zipPath string) error
}

// NewCallWriter starts a fresh call recording at metadata.OutputDir.
func NewCallWriter(metadata RecordingMetadata, log *zap.Logger) *CallWriter {
	return &CallWriter{
		metadata:   metadata,
		log:        log,
		streams:    make(map[UserID]*StreamWriter),
		knownUsers: make(map[UserID]struct{}),
		archiveFn:  BuildArchive,
	}
}

// Push routes one VoiceUpdate belonging to this call.
func (cw *CallWriter) Push(update VoiceUpdate) {
	switch update.Kind {
	case UpdateUserAnnounced:
		cw.handleUserAnnounced(update.User, update.Username)
	case UpdateVoiceTick:
		cw.handleVoiceTick(update.Frames)
	}
}

func (cw *CallWriter) handleUserAnnounced(user UserID, username string) {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	if _, exists := cw.streams[user]; exists {
		// Reconnection: leave the existing stream and file in place.
		cw.knownUsers[user] = struct{}{}
		return
	}

	tick := cw.tickCount
	sw, err := NewStreamWriter(cw.metadata.CallID, user, username, cw.metadata.OutputDir, cw.metadata.MaxSamplesPerPage, cw.log)
	if err != nil {
		if cw.log != nil {
			cw.log.Error("failed to start stream writer",
				zap.String("call_id", string(cw.metadata.CallID)),
				zap.String("user_id", string(user)),
				zap.Error(err),
			)
		}
		return
	}
	if tick > 0 {
		if err := sw.FillSilence(tick); err != nil {
			if cw.log != nil {
				cw.log.Error("failed to back-fill silence for late joiner",
					zap.String("call_id", string(cw.metadata.CallID)),
					zap.String("user_id", string(user)),
					zap.Error(err),
				)
			}
		}
	}
	cw.streams[user] = sw
	cw.knownUsers[user] = struct{}{}
}

func (cw *CallWriter) handleVoiceTick(frames []OpusFrame) {
	cw.mu.Lock()
	cw.tickCount++
	tick := cw.tickCount
	silent := make(map[UserID]struct{}, len(cw.knownUsers))
	for u := range cw.knownUsers {
		silent[u] = struct{}{}
	}
	streams := make(map[UserID]*StreamWriter, len(cw.streams))
	for u, sw := range cw.streams {
		streams[u] = sw
	}
	cw.mu.Unlock()

	streamFor := func(u UserID) (*StreamWriter, bool) {
		sw, ok := streams[u]
		return sw, ok
	}

	for _, frame := range frames {
		sw, ok := streamFor(frame.UserID)
		if !ok {
			if cw.log != nil {
				cw.log.Warn("voice tick for unknown user, skipping",
					zap.String("call_id", string(cw.metadata.CallID)),
					zap.String("user_id", string(frame.UserID)),
				)
			}
			continue
		}
		delete(silent, frame.UserID)
		_ = sw.Push(frame.Opus, tick)
	}

	for u := range silent {
		sw, ok := streamFor(u)
		if !ok {
			continue
		}
		_ = sw.PushSilence(tick)
	}
}

// Finish flushes every stream, builds a recording summary, and spawns the
// archive step as a fire-and-forget task.
func (cw *CallWriter) Finish() RecordingSummary {
	cw.mu.Lock()
	streams := make([]*StreamWriter, 0, len(cw.streams))
	for _, sw := range cw.streams {
		streams = append(streams, sw)
	}
	known := make([]UserID, 0, len(cw.knownUsers))
	for u := range cw.knownUsers {
		known = append(known, u)
	}
	cw.mu.Unlock()

	var g errgroup.Group
	for _, sw := range streams {
		sw := sw
		g.Go(func() error {
			return sw.Finish()
		})
	}
	if err := g.Wait(); err != nil && cw.log != nil {
		cw.log.Warn("one or more streams failed to finish cleanly",
			zap.String("call_id", string(cw.metadata.CallID)),
			zap.Error(err),
		)
	}

	archiveDone := make(chan ArchiveResult, 1)
	zipPath := filepath.Join(filepath.Dir(cw.metadata.OutputDir), cw.metadata.OutputDirName+".zip")
	go func() {
		err := cw.archiveFn(cw.metadata.OutputDir, zipPath)
		if err != nil {
			if cw.log != nil {
				cw.log.Error("archive build failed",
					zap.String("call_id", string(cw.metadata.CallID)),
					zap.Error(err),
				)
			}
			archiveDone <- ArchiveResult{Err: fmt.Errorf("archive build: %w", err)}
			return
		}
		archiveDone <- ArchiveResult{Path: zipPath}
	}()

	return RecordingSummary{
		Started:     cw.metadata.StartedAt,
		Ended:       time.Now(),
		KnownUsers:  known,
		ArchiveDone: archiveDone,
	}
}
