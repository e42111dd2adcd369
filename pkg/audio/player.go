// Package audio provides streaming playback of base64-encoded PCM audio
// with immediate interrupt support for barge-in.
package audio

import (
	"encoding/base64"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/teslashibe/go-g1/internal/log"
)

var logger = log.Component("audio")

// Sink receives decoded PCM16 audio. The production sink writes to the
// speaker pipeline; tests and headless runs inject their own. Reset
// drops any audio the device has buffered but not yet played.
type Sink interface {
	io.Writer
	Reset() error
}

// DiscardSink swallows audio. Used when the daemon runs without a
// speaker attached.
type DiscardSink struct{}

func (DiscardSink) Write(p []byte) (int, error) { return len(p), nil }
func (DiscardSink) Reset() error                { return nil }

const (
	queueDepth = 256

	// subChunkMs is the write granularity. Smaller writes mean an
	// interrupt takes effect faster.
	subChunkMs = 40
)

// Player decodes base64 PCM chunks on one goroutine and writes them to
// the sink on another:
//
//	AddData -> b64 queue -> decoder -> raw queue -> player -> sink
//
// WaitUntilIdle answers "has local playback actually finished";
// Interrupt empties both queues and resets the sink so playback stops
// as close to immediately as the device allows.
type Player struct {
	sink          Sink
	chunkBytes    int
	subChunkBytes int

	b64In chan string
	rawIn chan []byte

	// pending counts every queued-but-unplayed unit; idle means both
	// are zero.
	cntMu      sync.Mutex
	pendingB64 int
	pendingRaw int

	idleMu  sync.Mutex
	idleCh  chan struct{}
	idleSet bool

	abort  atomic.Bool
	stop   chan struct{}
	wg     sync.WaitGroup
	sinkMu sync.Mutex
}

// NewPlayer creates a player and starts its decoder and writer
// goroutines. sampleRate is the PCM rate of the incoming audio;
// chunkMs is the slicing granularity for the raw queue.
func NewPlayer(sink Sink, sampleRate, chunkMs int) *Player {
	p := &Player{
		sink:          sink,
		chunkBytes:    chunkMs * sampleRate * 2 / 1000,
		subChunkBytes: subChunkMs * sampleRate * 2 / 1000,
		b64In:         make(chan string, queueDepth),
		rawIn:         make(chan []byte, queueDepth),
		idleCh:        make(chan struct{}),
		stop:          make(chan struct{}),
	}
	close(p.idleCh) // starts idle
	p.idleSet = true

	p.wg.Add(2)
	go p.decoderLoop()
	go p.playerLoop()
	return p
}

// AddData queues one base64 PCM chunk for playback. Data arriving
// during an interrupt is dropped.
func (p *Player) AddData(b64PCM string) {
	if b64PCM == "" {
		return
	}
	if p.abort.Load() {
		return
	}

	p.setNotIdle()
	p.cntMu.Lock()
	p.pendingB64++
	p.cntMu.Unlock()

	select {
	case p.b64In <- b64PCM:
	default:
		// Queue full: better to drop audio than to block the
		// websocket event goroutine feeding us.
		logger.Warn("audio queue full, dropping chunk")
		p.cntMu.Lock()
		p.pendingB64--
		p.cntMu.Unlock()
		p.trySetIdle()
	}
}

// Interrupt stops playback now: both queues are emptied, the pending
// counters reset, and (optionally) the sink's device buffer is dropped.
// The player is immediately ready for the next response.
func (p *Player) Interrupt(resetStream bool) {
	p.abort.Store(true)
	p.setNotIdle()

	drainStrings(p.b64In)
	drainBytes(p.rawIn)

	p.cntMu.Lock()
	p.pendingB64 = 0
	p.pendingRaw = 0
	p.cntMu.Unlock()

	if resetStream {
		p.sinkMu.Lock()
		if err := p.sink.Reset(); err != nil {
			logger.Warn("sink reset failed", "error", err)
		}
		p.sinkMu.Unlock()
	}

	p.forceIdle()
	p.abort.Store(false)
	logger.Info("playback interrupted")
}

// WaitUntilIdle blocks until all queued audio has been played, or the
// timeout elapses. Returns true if the player went idle.
func (p *Player) WaitUntilIdle(timeout time.Duration) bool {
	p.idleMu.Lock()
	ch := p.idleCh
	p.idleMu.Unlock()

	select {
	case <-ch:
		return true
	case <-time.After(timeout):
		return false
	}
}

// Idle reports whether nothing is queued or playing.
func (p *Player) Idle() bool {
	p.cntMu.Lock()
	defer p.cntMu.Unlock()
	return p.pendingB64 == 0 && p.pendingRaw == 0
}

// Shutdown stops both goroutines and waits for them to exit.
func (p *Player) Shutdown() {
	close(p.stop)
	p.wg.Wait()
}

// decoderLoop turns base64 chunks into sliced raw PCM.
func (p *Player) decoderLoop() {
	defer p.wg.Done()

	for {
		select {
		case <-p.stop:
			return
		case b64 := <-p.b64In:
			p.cntMu.Lock()
			if p.pendingB64 > 0 {
				p.pendingB64--
			}
			p.cntMu.Unlock()

			if p.abort.Load() {
				p.trySetIdle()
				continue
			}

			raw, err := base64.StdEncoding.DecodeString(b64)
			if err != nil {
				logger.Warn("bad base64 audio chunk", "error", err)
				p.trySetIdle()
				continue
			}
			if p.abort.Load() {
				p.trySetIdle()
				continue
			}

			for i := 0; i < len(raw); i += p.chunkBytes {
				end := i + p.chunkBytes
				if end > len(raw) {
					end = len(raw)
				}
				chunk := raw[i:end]
				p.cntMu.Lock()
				p.pendingRaw += len(chunk)
				p.cntMu.Unlock()
				select {
				case p.rawIn <- chunk:
				case <-p.stop:
					return
				}
			}
			p.trySetIdle()
		}
	}
}

// playerLoop writes raw PCM to the sink in short sub-chunks so an
// interrupt lands between writes, not after a full chunk.
func (p *Player) playerLoop() {
	defer p.wg.Done()

	for {
		select {
		case <-p.stop:
			return
		case chunk := <-p.rawIn:
			if !p.abort.Load() {
				p.writeChunk(chunk)
			}
			p.cntMu.Lock()
			p.pendingRaw -= len(chunk)
			if p.pendingRaw < 0 {
				p.pendingRaw = 0
			}
			p.cntMu.Unlock()
			p.trySetIdle()
		}
	}
}

func (p *Player) writeChunk(chunk []byte) {
	for i := 0; i < len(chunk); i += p.subChunkBytes {
		if p.abort.Load() {
			return
		}
		end := i + p.subChunkBytes
		if end > len(chunk) {
			end = len(chunk)
		}
		p.sinkMu.Lock()
		_, err := p.sink.Write(chunk[i:end])
		p.sinkMu.Unlock()
		if err != nil {
			logger.Error("audio write failed", "error", err)
			time.Sleep(10 * time.Millisecond)
			return
		}
	}
}

func (p *Player) setNotIdle() {
	p.idleMu.Lock()
	if p.idleSet {
		p.idleCh = make(chan struct{})
		p.idleSet = false
	}
	p.idleMu.Unlock()
}

func (p *Player) trySetIdle() {
	p.cntMu.Lock()
	idle := p.pendingB64 == 0 && p.pendingRaw == 0
	p.cntMu.Unlock()
	if idle {
		p.forceIdle()
	}
}

func (p *Player) forceIdle() {
	p.idleMu.Lock()
	if !p.idleSet {
		close(p.idleCh)
		p.idleSet = true
	}
	p.idleMu.Unlock()
}

func drainStrings(ch chan string) {
	for {
		select {
		case <-ch:
		default:
			return
		}
	}
}

func drainBytes(ch chan []byte) {
	for {
		select {
		case <-ch:
		default:
			return
		}
	}
}
