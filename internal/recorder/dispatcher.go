package recorder

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// DefaultQueueCapacity is the bounded producer→dispatcher channel size; a
// full queue blocks the producer rather than dropping voice ticks.
const DefaultQueueCapacity = 1024

// Dispatcher owns the process-wide call registry and the single queue every
// voice update flows through before reaching its CallWriter.
type Dispatcher struct {
	log     *zap.Logger
	updates chan VoiceUpdate

	calls sync.Map // CallID -> *CallWriter

	wg sync.WaitGroup
}

// NewDispatcher builds a dispatcher with the given queue capacity.
func NewDispatcher(queueCapacity int, log *zap.Logger) *Dispatcher {
	if queueCapacity <= 0 {
		queueCapacity = DefaultQueueCapacity
	}
	return &Dispatcher{
		log:     log,
		updates: make(chan VoiceUpdate, queueCapacity),
	}
}

// Start registers a new call and returns its CallWriter.
func (d *Dispatcher) Start(metadata RecordingMetadata) *CallWriter {
	cw := NewCallWriter(metadata, d.log)
	d.calls.Store(metadata.CallID, cw)
	return cw
}

// Lookup returns the CallWriter for a call, if one is active.
func (d *Dispatcher) Lookup(id CallID) (*CallWriter, bool) {
	v, ok := d.calls.Load(id)
	if !ok {
		return nil, false
	}
	return v.(*CallWriter), true
}

// Finish finalizes and unregisters a call, returning its summary.
func (d *Dispatcher) Finish(id CallID) (RecordingSummary, bool) {
	v, ok := d.calls.LoadAndDelete(id)
	if !ok {
		return RecordingSummary{}, false
	}
	return v.(*CallWriter).Finish(), true
}

// Enqueue submits an update to the dispatcher's queue, blocking if it is
// full. It returns early if ctx is canceled first.
func (d *Dispatcher) Enqueue(ctx context.Context, update VoiceUpdate) error {
	select {
	case d.updates <- update:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run drains the update queue until ctx is canceled, routing each update to
// its CallWriter. Unknown calls are logged and discarded.
func (d *Dispatcher) Run(ctx context.Context) {
	d.wg.Add(1)
	defer d.wg.Done()
	for {
		select {
		case update, ok := <-d.updates:
			if !ok {
				return
			}
			d.route(update)
		case <-ctx.Done():
			d.drain()
			return
		}
	}
}

func (d *Dispatcher) drain() {
	for {
		select {
		case update := <-d.updates:
			d.route(update)
		default:
			return
		}
	}
}

func (d *Dispatcher) route(update VoiceUpdate) {
	cw, ok := d.Lookup(update.CallID)
	if !ok {
		if d.log != nil {
			d.log.Warn("voice update for unknown call", zap.String("call_id", string(update.CallID)))
		}
		return
	}
	cw.Push(update)
}

// Wait blocks until Run has returned after context cancellation.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
