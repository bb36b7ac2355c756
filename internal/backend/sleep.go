package backend

// sleep.go implements the Sleep backend (§4.G), which behaves like Null but
// additionally delays every call by SLEEP_USECS jittered +/- 10%
// (SPEC_FULL.md supplemented feature 4, grounded on the original driver's
// tmem_sleep.c, which computes the same jitter window).
//
// © 2025 arena-cache authors. MIT License.

import (
	"math/rand/v2"
	"time"
)

// DefaultSleepMicros matches §6's SLEEP_USECS ~= 10_000.
const DefaultSleepMicros = 10_000

// Sleep behaves like Null with a jittered per-call delay added.
type Sleep struct {
	micros int64
}

// NewSleep constructs a Sleep backend with the given base delay in
// microseconds.
func NewSleep(micros int64) *Sleep {
	if micros <= 0 {
		micros = DefaultSleepMicros
	}
	return &Sleep{micros: micros}
}

func (s *Sleep) Name() string { return "sleep" }

func (s *Sleep) delay() {
	time.Sleep(jitter(s.micros))
}

func (s *Sleep) Put(key, value []byte) error {
	s.delay()
	return nil
}

func (s *Sleep) Get(key []byte, out []byte) (int, error) {
	s.delay()
	return 0, nil
}

func (s *Sleep) Invalidate(key []byte) {
	s.delay()
}

func (s *Sleep) InvalidateAll() {
	s.delay()
}

// jitter returns a duration uniformly distributed in
// [micros - micros/10, micros + micros/10], matching §4.H's "SLEEP_USECS +/-
// SLACK (~jittered around 10ms)".
func jitter(micros int64) time.Duration {
	slack := micros / 10
	if slack <= 0 {
		return time.Duration(micros) * time.Microsecond
	}
	offset := rand.Int64N(2*slack+1) - slack
	return time.Duration(micros+offset) * time.Microsecond
}

var _ Backend = (*Sleep)(nil)
