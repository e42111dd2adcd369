// Package voice coordinates the conversational frontend with the motion
// core: it classifies ASR transcripts, routes interrupts, and binds
// playback abort, response cancellation and motion stop into a single
// atomic preemption.
package voice

import (
	"strings"
	"time"
	"unicode"

	"github.com/teslashibe/go-g1/pkg/g1"
)

// Strong interrupt triggers: any of these while the robot is speaking
// aborts the response outright.
var strongInterrupts = []string{
	"interrupt",
	"stop talking",
	"stop speaking",
	"stop answering",
	"stop playing",
	"pause playback",
	"be quiet",
	"shut up",
	"quiet",
	"never mind",
}

// Weak interrupt: a stop word plus a speech word, e.g. "stop the voice".
var (
	weakStopWords   = []string{"stop", "pause", "hold on"}
	weakSpeechWords = []string{"talk", "speak", "answer", "play", "voice", "sound", "say"}
)

// Stop-intent keywords: an interrupt containing one of these also halts
// robot motion, not just speech.
var stopIntents = []string{
	"stop",
	"emergency stop",
	"don't move",
	"stand still",
}

var emergencyIntents = []string{
	"emergency stop",
	"e-stop",
	"kill the motors",
}

// Complex-command markers: quantity or modifier words that mean the
// request needs LLM tool inference rather than keyword matching.
var complexMarkers = []string{
	"one meter", "one step", "one second", "one turn", "half",
	"two", "three", "four", "five", "six", "seven", "eight", "nine", "ten",
	"slowly", "quickly", "carefully", "slightly", "a bit", "a little",
	"and then", "then", "while", "at the same time",
}

var introKeywords = []string{
	"my name is",
	"i am called",
	"i'm called",
	"you can call me",
	"let me introduce",
	"introduce myself",
	"nice to meet you",
}

// IsInterruptCommand reports whether a transcript is a barge-in request.
// Only meaningful while a response is playing.
func IsInterruptCommand(transcript string) bool {
	t := strings.ToLower(strings.TrimSpace(transcript))
	if t == "" {
		return false
	}

	for _, k := range strongInterrupts {
		if strings.Contains(t, k) {
			return true
		}
	}

	for _, stop := range weakStopWords {
		if !strings.Contains(t, stop) {
			continue
		}
		for _, speech := range weakSpeechWords {
			if strings.Contains(t, speech) {
				return true
			}
		}
	}
	return false
}

// HasStopIntent reports whether the text asks the robot to stop moving.
func HasStopIntent(text string) bool {
	t := strings.ToLower(text)
	for _, k := range stopIntents {
		if strings.Contains(t, k) {
			return true
		}
	}
	return false
}

// HasEmergencyIntent reports whether the text demands a hard emergency
// stop rather than a soft one.
func HasEmergencyIntent(text string) bool {
	t := strings.ToLower(text)
	for _, k := range emergencyIntents {
		if strings.Contains(t, k) {
			return true
		}
	}
	return false
}

// IsComplexCommand reports whether a transcript needs tool inference:
// it carries digits, quantities or modifiers that keyword matching
// cannot express ("go forward two meters slowly").
func IsComplexCommand(text string) bool {
	t := strings.ToLower(strings.TrimSpace(text))
	if t == "" {
		return false
	}

	for _, r := range t {
		if unicode.IsDigit(r) {
			return true
		}
	}
	for _, marker := range complexMarkers {
		if strings.Contains(t, marker) {
			return true
		}
	}
	return false
}

// DetectSelfIntroduction reports whether generated speech is the robot
// introducing itself, which triggers an automatic wave.
func DetectSelfIntroduction(text string) bool {
	t := strings.ToLower(strings.TrimSpace(text))
	if t == "" {
		return false
	}
	for _, k := range introKeywords {
		if strings.Contains(t, k) {
			return true
		}
	}
	return false
}

// ExecuteLocalKeywords is the fast path for simple commands: it matches
// the transcript against fixed phrases and drives the motion facade
// directly, skipping LLM inference. Returns true if a command matched.
func ExecuteLocalKeywords(text string, motion Motion, arm g1.ArmController) bool {
	if motion == nil {
		return false
	}
	if !motion.Running() {
		logger.Warn("motion core not running, keyword command ignored")
		return false
	}

	t := strings.ToLower(strings.TrimSpace(text))

	if HasEmergencyIntent(t) || strings.Contains(t, "don't move") {
		motion.EmergencyStop()
		return true
	}

	if containsAny(t, "wave", "say hello", "say hi", "greet") {
		logger.Info("wave keyword matched", "transcript", text)
		if arm != nil {
			if err := arm.ExecuteAction(g1.ActionFaceWave); err != nil {
				logger.Error("wave action failed", "error", err)
			}
		} else {
			logger.Warn("arm client not available, wave skipped")
		}
		return true
	}

	switch {
	case containsAny(t, "go forward", "move forward", "walk forward", "forward"):
		motion.UpdateTargetVelocity(0.5, 0, 0, 2*time.Second)
		return true
	case containsAny(t, "go back", "move back", "backward", "reverse"):
		motion.UpdateTargetVelocity(-0.5, 0, 0, 2*time.Second)
		return true
	case containsAny(t, "turn left"):
		motion.UpdateTargetVelocity(0, 0, 0.8, 2*time.Second)
		return true
	case containsAny(t, "turn right"):
		motion.UpdateTargetVelocity(0, 0, -0.8, 2*time.Second)
		return true
	case containsAny(t, "stop", "halt", "stand still"):
		motion.SetIdle()
		return true
	}

	return false
}

func containsAny(t string, keys ...string) bool {
	for _, k := range keys {
		if strings.Contains(t, k) {
			return true
		}
	}
	return false
}
