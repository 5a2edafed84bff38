// Package recorder assembles per-user Opus Ogg streams into synchronized
// per-call recordings and triggers the post-call archive step.
package recorder

import (
	"time"

	"github.com/google/uuid"
)

// CallID opaquely identifies one recording session.
type CallID string

// NewCallID generates a fresh, unique call identifier.
func NewCallID() CallID {
	return CallID(uuid.NewString())
}

// UserID opaquely identifies one call participant.
type UserID string

// RecordingMetadata is immutable once a call starts recording.
type RecordingMetadata struct {
	CallID        CallID
	StartedAt     time.Time
	OutputDir     string
	OutputDirName string

	// MaxSamplesPerPage bounds how many samples a StreamWriter buffers
	// before flushing a page; zero falls back to DefaultMaxSamplesPerPage.
	MaxSamplesPerPage int
}

// OpusFrame is one participant's decrypted Opus payload for a single tick.
type OpusFrame struct {
	UserID UserID
	Opus   []byte
}

// UpdateKind distinguishes the two shapes a VoiceUpdate can take.
type UpdateKind int

const (
	UpdateUserAnnounced UpdateKind = iota
	UpdateVoiceTick
)

// VoiceUpdate is the unit of work the dispatcher routes to a CallWriter.
type VoiceUpdate struct {
	CallID   CallID
	Kind     UpdateKind
	User     UserID      // set for UpdateUserAnnounced
	Username string      // set for UpdateUserAnnounced, may be empty
	Frames   []OpusFrame // set for UpdateVoiceTick
}

// StreamStatus tracks whether a per-user stream has failed a write.
type StreamStatus int

const (
	StreamRunning StreamStatus = iota
	StreamFailed
)

// ArchiveResult is delivered once through an ArchiveFuture.
type ArchiveResult struct {
	Path string
	Err  error
}

// ArchiveFuture is a single-shot delivery channel for an archive job's
// outcome. The caller may receive from it or ignore it entirely.
type ArchiveFuture <-chan ArchiveResult

// RecordingSummary is produced by CallWriter.Finish.
type RecordingSummary struct {
	Started     time.Time
	Ended       time.Time
	KnownUsers  []UserID
	ArchiveDone ArchiveFuture
}
