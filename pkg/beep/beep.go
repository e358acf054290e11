// Package beep plays short buzzer patterns.
package beep

import (
	"context"
	"time"
)

// Slots is the number of slots in a pattern.
const Slots = 4

// DefaultSlot is the duration of one pattern slot.
const DefaultSlot = 100 * time.Millisecond

// Tone switches the buzzer.
type Tone interface {
	SetTone(on bool)
}

// ToneFunc adapts a function to Tone.
type ToneFunc func(on bool)

// SetTone calls f.
func (f ToneFunc) SetTone(on bool) { f(on) }

// Player plays patterns of Slots bits, most significant first, one slot per
// bit. 0xA is beep-pause-beep-pause, 0xF one long beep.
type Player struct {
	tone Tone
	slot time.Duration
	next chan uint8
	on   bool
}

// New creates a player. A zero slot uses DefaultSlot.
func New(tone Tone, slot time.Duration) *Player {
	if slot <= 0 {
		slot = DefaultSlot
	}
	return &Player{
		tone: tone,
		slot: slot,
		next: make(chan uint8, 1),
	}
}

// Beep queues a pattern without blocking. A pattern that has not started yet
// is replaced; one that is playing is cut short.
func (p *Player) Beep(pattern uint8) {
	for {
		select {
		case p.next <- pattern:
			return
		default:
		}
		select {
		case <-p.next:
		default:
		}
	}
}

// Run plays queued patterns until ctx is cancelled. The tone is off when Run
// returns.
func (p *Player) Run(ctx context.Context) {
	defer p.set(false)

	for {
		select {
		case <-ctx.Done():
			return
		case pattern := <-p.next:
			if !p.play(ctx, pattern) {
				return
			}
		}
	}
}

// play returns false when ctx was cancelled.
func (p *Player) play(ctx context.Context, pattern uint8) bool {
	timer := time.NewTimer(p.slot)
	defer timer.Stop()

	bit := Slots - 1
	for bit >= 0 {
		p.set(pattern&(1<<bit) != 0)
		timer.Reset(p.slot)

		select {
		case <-ctx.Done():
			return false
		case pattern = <-p.next:
			bit = Slots - 1
			continue
		case <-timer.C:
		}
		bit--
	}
	p.set(false)
	return true
}

func (p *Player) set(on bool) {
	if p.on == on {
		return
	}
	p.on = on
	p.tone.SetTone(on)
}
