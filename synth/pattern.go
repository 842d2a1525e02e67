package synth

import (
	"fmt"
	"strings"
)

// Kit selects the metronome sound set
type Kit string

const (
	KitBeep    Kit = "beep"
	KitHiHat   Kit = "hihat"
	KitKick    Kit = "kick"
	KitCowbell Kit = "cowbell"
	KitLoop    Kit = "loop" // Sampled kick, snare and hi-hat groove
)

// Kits lists every supported kit
func Kits() []Kit {
	return []Kit{KitBeep, KitHiHat, KitKick, KitCowbell, KitLoop}
}

// ParseKit parses a kit name, case-insensitively
func ParseKit(name string) (Kit, error) {
	kit := Kit(strings.ToLower(strings.TrimSpace(name)))
	for _, k := range Kits() {
		if k == kit {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown metronome kit %q", name)
}

// Sound is a single percussion voice
type Sound int

const (
	SoundBeep Sound = iota
	SoundHiHat
	SoundKick
	SoundCowbell
	SoundSnare
)

// String returns the sound name, which is also its drum sample name
func (s Sound) String() string {
	switch s {
	case SoundBeep:
		return "beep"
	case SoundHiHat:
		return "hihat"
	case SoundKick:
		return "kick"
	case SoundCowbell:
		return "cowbell"
	case SoundSnare:
		return "snare"
	default:
		return "unknown"
	}
}

// Hit is one sound triggered on a metronome tick
type Hit struct {
	Sound    Sound
	Velocity float64 // 0-1
	Pitch    float64 // Hz, beep only
	Sampled  bool    // Prefer a loaded drum sample over synthesis
}

// TicksPerBar is the number of eighth-note subdivisions in a 4/4 bar
const TicksPerBar = 8

// Pattern returns the hits for one eighth-note tick (0-7) of a 4/4 bar.
//
// Simple kits sound on quarter notes only, louder when accented. The loop
// kit plays hi-hat on every eighth, kick on beats 1 and 3 and snare on 2
// and 4, with an accented downbeat hi-hat; in a fill bar the second half
// becomes four snare hits of rising velocity with the hi-hat silenced.
func Pattern(kit Kit, accent bool, tick int, fill bool) []Hit {
	if tick < 0 || tick >= TicksPerBar {
		return nil
	}

	if kit == KitLoop {
		return loopPattern(accent, tick, fill)
	}

	if tick%2 != 0 {
		return nil
	}

	switch kit {
	case KitBeep:
		if accent {
			return []Hit{{Sound: SoundBeep, Velocity: 1.0, Pitch: 1000}}
		}
		return []Hit{{Sound: SoundBeep, Velocity: 0.6, Pitch: 800}}
	case KitHiHat:
		return []Hit{{Sound: SoundHiHat, Velocity: accentVelocity(accent, 0.9, 0.5)}}
	case KitKick:
		return []Hit{{Sound: SoundKick, Velocity: accentVelocity(accent, 1.0, 0.7)}}
	case KitCowbell:
		return []Hit{{Sound: SoundCowbell, Velocity: accentVelocity(accent, 0.9, 0.6)}}
	default:
		return nil
	}
}

func loopPattern(accent bool, tick int, fill bool) []Hit {
	if fill && tick >= 4 {
		return []Hit{{Sound: SoundSnare, Velocity: 0.4 + 0.15*float64(tick-4), Sampled: true}}
	}

	hihat := 0.3
	switch {
	case tick == 0 && accent:
		hihat = 0.8
	case tick%2 == 0:
		hihat = 0.6
	}
	hits := []Hit{{Sound: SoundHiHat, Velocity: hihat, Sampled: true}}

	switch tick {
	case 0, 4:
		hits = append(hits, Hit{Sound: SoundKick, Velocity: 0.9, Sampled: true})
	case 2, 6:
		hits = append(hits, Hit{Sound: SoundSnare, Velocity: 0.8, Sampled: true})
	}
	return hits
}

func accentVelocity(accent bool, loud, soft float64) float64 {
	if accent {
		return loud
	}
	return soft
}
