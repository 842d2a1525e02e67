package fretboard

import (
	"sort"
)

// Finger is a fretting-hand finger: 1 index, 2 middle, 3 ring, 4 little.
type Finger int

// NoFinger marks an open string
const NoFinger Finger = 0

// AssignFingers assigns a finger to every fretted position in the set.
//
// Positions are ordered by fret ascending, then string index descending (bass
// first). When two or more positions share the lowest fret they form a barre
// and all take finger 1; the remaining positions draw from {2,3,4}. Without a
// barre the pool is {1,2,3,4}. Once the pool is exhausted every further
// position gets finger 4. Open strings map to NoFinger.
//
// This is a deterministic ergonomic heuristic, not an optimiser.
func AssignFingers(positions []Position) map[Position]Finger {
	fingers := make(map[Position]Finger, len(positions))

	fretted := make([]Position, 0, len(positions))
	for _, p := range positions {
		if p.Fret > 0 {
			fretted = append(fretted, p)
		} else {
			fingers[p] = NoFinger
		}
	}
	if len(fretted) == 0 {
		return fingers
	}

	sort.SliceStable(fretted, func(i, j int) bool {
		if fretted[i].Fret != fretted[j].Fret {
			return fretted[i].Fret < fretted[j].Fret
		}
		return fretted[i].String > fretted[j].String
	})

	pool := []Finger{1, 2, 3, 4}
	if barreFret, ok := barre(fretted); ok {
		for _, p := range fretted {
			if p.Fret == barreFret {
				fingers[p] = 1
			}
		}
		pool = pool[1:]
	}

	for _, p := range fretted {
		if _, assigned := fingers[p]; assigned {
			continue
		}
		if len(pool) == 0 {
			fingers[p] = 4
			continue
		}
		fingers[p] = pool[0]
		pool = pool[1:]
	}

	return fingers
}

// FingerFor returns the finger for pos within the set. It reports false for
// open strings and for positions that are not selected.
func FingerFor(positions []Position, pos Position) (Finger, bool) {
	finger, ok := AssignFingers(positions)[pos]
	if !ok || finger == NoFinger {
		return NoFinger, false
	}
	return finger, true
}

// IsBarre reports whether the set is fingered with a barre, and at which fret.
func IsBarre(positions []Position) (int, bool) {
	fretted := make([]Position, 0, len(positions))
	for _, p := range positions {
		if p.Fret > 0 {
			fretted = append(fretted, p)
		}
	}
	return barre(fretted)
}

// barre finds the lowest fret and reports whether two or more positions share it
func barre(fretted []Position) (int, bool) {
	if len(fretted) == 0 {
		return 0, false
	}
	minFret := fretted[0].Fret
	for _, p := range fretted[1:] {
		if p.Fret < minFret {
			minFret = p.Fret
		}
	}
	count := 0
	for _, p := range fretted {
		if p.Fret == minFret {
			count++
		}
	}
	return minFret, count >= 2
}
