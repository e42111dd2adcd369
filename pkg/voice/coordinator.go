package voice

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/teslashibe/go-g1/internal/log"
	"github.com/teslashibe/go-g1/pkg/g1"
)

var logger = log.Component("voice")

// Motion is the slice of the ActionManager facade the coordinator and
// the keyword fast-path need. It is a non-owning handle; the manager
// outlives every callback.
type Motion interface {
	Running() bool
	SetIdle()
	EmergencyStop()
	UpdateTargetVelocity(vx, vy, vyaw float64, duration time.Duration)
}

// Playback is the slice of the audio player the coordinator drives.
type Playback interface {
	AddData(b64PCM string)
	Interrupt(resetStream bool)
	WaitUntilIdle(timeout time.Duration) bool
}

// ResponseCanceler cancels the in-flight LLM response upstream.
type ResponseCanceler interface {
	CancelResponse() error
}

const (
	// asrCooldown suppresses ASR input briefly after the robot stops
	// speaking, so the tail of its own voice cannot re-trigger it.
	asrCooldown = 1500 * time.Millisecond

	// playbackDrainTimeout bounds the wait for local playback to finish
	// after the server reports the response done.
	playbackDrainTimeout = 10 * time.Second

	// waveDelay lines the automatic wave up with the spoken introduction.
	waveDelay = 500 * time.Millisecond
)

// Coordinator tracks "responding" mode and turns a user barge-in into
// one atomic preemption: abort playback, cancel the upstream response,
// invalidate stale completion callbacks, and (when the transcript says
// so) stop the robot.
//
// The response-sequence counter is the linchpin: entering responding
// mode bumps it, completion callbacks carry the value they observed,
// and only a matching value may exit responding mode. An interrupt
// bumps the counter again so the old response's "done" can never undo
// the new state.
type Coordinator struct {
	motion Motion
	arm    g1.ArmController
	player Playback         // may be nil in headless runs
	llm    ResponseCanceler // may be nil when the transport lacks cancel

	respondMu  sync.Mutex
	responding bool

	seq atomic.Int64

	dropMu     sync.Mutex
	dropOutput bool

	coolMu       sync.Mutex
	lastSpeakEnd time.Time

	// OnToolCommand forwards a transcript to LLM tool inference. Set by
	// the frontend; nil means complex commands are dropped with a logger.
	OnToolCommand func(transcript string)
}

// NewCoordinator wires the coordinator to its collaborators. Any of
// arm, player and llm may be nil.
func NewCoordinator(motion Motion, arm g1.ArmController, player Playback, llm ResponseCanceler) *Coordinator {
	return &Coordinator{
		motion: motion,
		arm:    arm,
		player: player,
		llm:    llm,
	}
}

// Seq returns the current response sequence number.
func (c *Coordinator) Seq() int64 {
	return c.seq.Load()
}

// IsResponding reports whether a response is being produced or played.
func (c *Coordinator) IsResponding() bool {
	c.respondMu.Lock()
	defer c.respondMu.Unlock()
	return c.responding
}

// EnterResponding marks the start of a response and returns the
// sequence number completion callbacks must present to exit it.
// Re-entering while already responding keeps the current sequence.
func (c *Coordinator) EnterResponding() int64 {
	c.respondMu.Lock()
	if c.responding {
		c.respondMu.Unlock()
		return c.seq.Load()
	}
	c.responding = true
	c.respondMu.Unlock()

	seq := c.seq.Add(1)
	logger.Debug("entered responding mode", "seq", seq)
	return seq
}

// ExitRespondingIfSeq leaves responding mode only if seq is still
// current. Stale callbacks from a superseded response are ignored.
func (c *Coordinator) ExitRespondingIfSeq(seq int64, reason string) {
	if seq != c.seq.Load() {
		logger.Debug("stale completion callback ignored", "seq", seq, "current", c.seq.Load())
		return
	}
	c.respondMu.Lock()
	c.responding = false
	c.respondMu.Unlock()
	logger.Debug("exited responding mode", "reason", reason)
}

// ForceExitResponding leaves responding mode unconditionally and bumps
// the sequence so pending completion callbacks become stale. Also opens
// the echo cool-down window: the abort leaves residual sound in the room.
func (c *Coordinator) ForceExitResponding(reason string) {
	c.respondMu.Lock()
	c.responding = false
	c.respondMu.Unlock()
	c.seq.Add(1)
	c.markSpeechEnd()
	logger.Info("responding mode force-exited", "reason", reason)
}

// InCooldown reports whether ASR input is inside the echo suppression
// window after the robot stopped speaking.
func (c *Coordinator) InCooldown() bool {
	c.coolMu.Lock()
	defer c.coolMu.Unlock()
	return time.Since(c.lastSpeakEnd) < asrCooldown
}

func (c *Coordinator) markSpeechEnd() {
	c.coolMu.Lock()
	c.lastSpeakEnd = time.Now()
	c.coolMu.Unlock()
}

func (c *Coordinator) shouldDrop() bool {
	c.dropMu.Lock()
	defer c.dropMu.Unlock()
	return c.dropOutput
}

func (c *Coordinator) setDrop(v bool) {
	c.dropMu.Lock()
	c.dropOutput = v
	c.dropMu.Unlock()
}

// Interrupt aborts the current response: local playback stops and its
// queues empty, the upstream response is cancelled, and responding mode
// is force-exited so the user can speak again immediately.
func (c *Coordinator) Interrupt(transcript string) {
	logger.Info("user interrupt", "transcript", transcript)
	c.setDrop(true)

	if c.player != nil {
		c.player.Interrupt(true)
	}
	if c.llm != nil {
		if err := c.llm.CancelResponse(); err != nil {
			logger.Warn("upstream response cancel failed", "error", err)
		}
	}

	c.ForceExitResponding("interrupted by user")
}

// OnAudioDelta feeds one base64 PCM chunk from the upstream response
// into local playback. Chunks of an aborted response are dropped.
func (c *Coordinator) OnAudioDelta(b64PCM string) {
	if b64PCM == "" || c.shouldDrop() {
		return
	}
	c.EnterResponding()
	if c.player != nil {
		c.player.AddData(b64PCM)
	}
}

// OnTranscriptDelta handles a fragment of the robot's own speech. A
// self-introduction triggers a wave timed to land with the audio.
func (c *Coordinator) OnTranscriptDelta(text string) {
	if text == "" {
		return
	}
	if DetectSelfIntroduction(text) {
		logger.Info("self-introduction detected, scheduling wave")
		go c.delayedWave()
	}
	if !c.shouldDrop() {
		c.EnterResponding()
	}
}

// OnResponseDone handles the upstream end-of-response event. After an
// interrupt it just clears the drop state; otherwise it waits for local
// playback to drain before leaving responding mode, carrying the
// sequence it observed so an interrupt in the meantime wins.
func (c *Coordinator) OnResponseDone() {
	if c.shouldDrop() {
		c.setDrop(false)
		c.ForceExitResponding("server done after interrupt")
		return
	}

	seq := c.seq.Load()
	go func() {
		if c.player != nil {
			c.player.WaitUntilIdle(playbackDrainTimeout)
		}
		c.ExitRespondingIfSeq(seq, "local playback finished")
		c.markSpeechEnd()
	}()
}

// HandleTranscript routes a final user transcript.
//
// While responding, only interrupts and complex commands act; anything
// else is the robot hearing itself or the user mumbling, and is
// ignored. When idle, the echo cool-down gates input, then simple
// commands take the keyword fast path and everything else goes to tool
// inference.
func (c *Coordinator) HandleTranscript(transcript string) {
	t := transcript
	if t == "" {
		return
	}

	if c.IsResponding() {
		complex := IsComplexCommand(t)
		if !IsInterruptCommand(t) && !complex {
			logger.Debug("transcript ignored during response", "transcript", t)
			return
		}

		c.Interrupt(t)

		if HasStopIntent(t) {
			if HasEmergencyIntent(t) {
				logger.Warn("interrupt carries emergency intent", "transcript", t)
				c.motion.EmergencyStop()
			} else {
				logger.Warn("interrupt carries stop intent", "transcript", t)
				c.motion.SetIdle()
			}
			return
		}

		if complex {
			c.dispatchToolCommand(t)
		}
		return
	}

	if c.InCooldown() {
		logger.Info("transcript ignored during echo cooldown", "transcript", t)
		return
	}

	if IsComplexCommand(t) {
		c.dispatchToolCommand(t)
		return
	}
	if ExecuteLocalKeywords(t, c.motion, c.arm) {
		logger.Info("keyword command executed", "transcript", t)
		return
	}
	c.dispatchToolCommand(t)
}

func (c *Coordinator) dispatchToolCommand(transcript string) {
	if c.OnToolCommand == nil {
		logger.Warn("no tool command handler registered", "transcript", transcript)
		return
	}
	c.OnToolCommand(transcript)
}

func (c *Coordinator) delayedWave() {
	time.Sleep(waveDelay)
	if c.arm == nil {
		logger.Warn("arm client not available, introduction wave skipped")
		return
	}
	if err := c.arm.ExecuteAction(g1.ActionFaceWave); err != nil {
		logger.Error("introduction wave failed", "error", err)
	}
}
