// Package voicebridge adapts a Discord voice connection's speaking-state
// and Opus-receive events into recorder.VoiceUpdate values delivered to a
// Dispatcher.
package voicebridge

import (
	"context"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"callrecorder/internal/recorder"
)

// TickInterval is the cadence at which buffered per-user Opus frames are
// flushed to the dispatcher as one VoiceTick update. It must match the
// silence packet's own frame duration so granule accounting in the
// recorder stays correct.
const TickInterval = 20 * time.Millisecond

// voiceConnection is the subset of *discordgo.VoiceConnection the listener
// needs to register for speaking-state events. It exists so tests can
// supply a hand-rolled fake instead of a live Discord voice session; a real
// *discordgo.VoiceConnection satisfies it without any adapter code.
type voiceConnection interface {
	AddHandler(h discordgo.VoiceSpeakingUpdateHandler)
}

// Listener bridges one active discordgo voice connection into the
// recorder's update stream for a single call.
type Listener struct {
	callID   CallID
	vc       voiceConnection
	opusRecv <-chan *discordgo.Packet
	log      *zap.Logger

	dispatch func(recorder.VoiceUpdate)

	ssrcMu sync.RWMutex
	ssrc   map[uint32]recorder.UserID

	pendingMu sync.Mutex
	pending   map[recorder.UserID][]byte

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// CallID mirrors recorder.CallID to keep this package's public surface from
// importing recorder's internal naming choices directly into call sites.
type CallID = recorder.CallID

// NewListener builds a listener for one voice connection. opusRecv is
// normally vc.OpusRecv, taken explicitly rather than read off vc so the
// receive loop never depends on more of *discordgo.VoiceConnection than
// AddHandler. dispatch is called for every VoiceUpdate produced; callers
// typically wire this to Dispatcher.Enqueue.
func NewListener(callID CallID, vc voiceConnection, opusRecv <-chan *discordgo.Packet, dispatch func(recorder.VoiceUpdate), log *zap.Logger) *Listener {
	ctx, cancel := context.WithCancel(context.Background())
	return &Listener{
		callID:   callID,
		vc:       vc,
		opusRecv: opusRecv,
		log:      log,
		dispatch: dispatch,
		ssrc:     make(map[uint32]recorder.UserID),
		pending:  make(map[recorder.UserID][]byte),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start registers speaking-state and Opus-receive handlers and begins the
// tick-batching loop.
func (l *Listener) Start() {
	l.vc.AddHandler(l.onSpeakingUpdate)

	l.wg.Add(2)
	go l.receiveLoop()
	go l.tickLoop()
}

// Stop halts the listener's goroutines. It does not close the voice
// connection itself.
func (l *Listener) Stop() {
	l.cancel()
	l.wg.Wait()
}

func (l *Listener) onSpeakingUpdate(_ *discordgo.VoiceConnection, su *discordgo.VoiceSpeakingUpdate) {
	user := recorder.UserID(su.UserID)

	l.ssrcMu.Lock()
	_, known := l.userForSSRC(uint32(su.SSRC))
	l.ssrc[uint32(su.SSRC)] = user
	l.ssrcMu.Unlock()

	if known {
		return
	}

	l.dispatch(recorder.VoiceUpdate{
		CallID: l.callID,
		Kind:   recorder.UpdateUserAnnounced,
		User:   user,
	})

	if l.log != nil {
		l.log.Debug("user announced",
			zap.String("call_id", string(l.callID)),
			zap.String("user_id", su.UserID),
			zap.Uint32("ssrc", uint32(su.SSRC)),
		)
	}
}

func (l *Listener) userForSSRC(ssrc uint32) (recorder.UserID, bool) {
	u, ok := l.ssrc[ssrc]
	return u, ok
}

func (l *Listener) receiveLoop() {
	defer l.wg.Done()
	for {
		select {
		case <-l.ctx.Done():
			return
		case pkt, ok := <-l.opusRecv:
			if !ok {
				return
			}
			l.ssrcMu.RLock()
			user, known := l.userForSSRC(pkt.SSRC)
			l.ssrcMu.RUnlock()
			if !known {
				if l.log != nil {
					l.log.Debug("opus packet for unmapped ssrc, dropping", zap.Uint32("ssrc", pkt.SSRC))
				}
				continue
			}

			l.pendingMu.Lock()
			// Last-write-wins within a tick window: the recorder expects
			// at most one packet per user per tick.
			l.pending[user] = pkt.Opus
			l.pendingMu.Unlock()
		}
	}
}

func (l *Listener) tickLoop() {
	defer l.wg.Done()
	ticker := time.NewTicker(TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-l.ctx.Done():
			return
		case <-ticker.C:
			l.flushTick()
		}
	}
}

func (l *Listener) flushTick() {
	l.pendingMu.Lock()
	if len(l.pending) == 0 {
		l.pendingMu.Unlock()
		return
	}
	frames := make([]recorder.OpusFrame, 0, len(l.pending))
	for user, opus := range l.pending {
		frames = append(frames, recorder.OpusFrame{UserID: user, Opus: opus})
	}
	l.pending = make(map[recorder.UserID][]byte)
	l.pendingMu.Unlock()

	l.dispatch(recorder.VoiceUpdate{
		CallID: l.callID,
		Kind:   recorder.UpdateVoiceTick,
		Frames: frames,
	})
}
