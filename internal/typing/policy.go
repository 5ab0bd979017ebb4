package typing

import (
	"math/rand"
	"time"
)

// Rand supplies the probability draw for hesitation pauses. Injected so
// tests can pin the outcome.
type Rand interface {
	Float64() float64
}

// SystemRand returns a Rand backed by a freshly seeded math/rand source.
func SystemRand() Rand {
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}

// DelayPolicy decides how long to wait after a character has been
// revealed before revealing the next one. The key is the trailing
// character already shown, not the upcoming one.
type DelayPolicy interface {
	Delay(last rune) time.Duration
}

// ConstantPolicy reveals every character at a fixed cadence. Used by the
// low-fidelity render mode.
type ConstantPolicy struct {
	Base time.Duration
}

func (p ConstantPolicy) Delay(rune) time.Duration { return p.Base }

// hesitationChance is the per-character probability of a simulated pause
// on an ordinary character.
const hesitationChance = 0.1

// NaturalPolicy paces the reveal like human typing: long pauses at
// sentence boundaries, shorter ones at clauses and word breaks, and an
// occasional random hesitation elsewhere.
type NaturalPolicy struct {
	Base time.Duration
	Rand Rand
}

func (p NaturalPolicy) Delay(last rune) time.Duration {
	switch last {
	case '.', '!', '?':
		return 8 * p.Base
	case ',', ';':
		return 4 * p.Base
	case ' ':
		return p.Base + p.Base/2
	}
	if p.Rand != nil && p.Rand.Float64() < hesitationChance {
		return 2 * p.Base
	}
	return p.Base
}
