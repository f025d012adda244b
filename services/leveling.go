package services

import "math"

// LevelInfo is the display form of a total experience value.
type LevelInfo struct {
	Level       int   `json:"level"`
	XPIntoLevel int64 `json:"xp_in_current_level"`
	XPForNext   int64 `json:"xp_needed_for_next"`
}

// Curve maps total experience to a level. Level L (L >= 1) is reached at
// Base*L*(L-1)/2 cumulative XP, so each level costs Base more than the previous one.
type Curve struct {
	Base int64
}

// NewCurve returns a curve with the given per-level step, defaulting to 100.
func NewCurve(base int64) Curve {
	if base <= 0 {
		base = 100
	}
	return Curve{Base: base}
}

// Threshold returns the cumulative XP at which level starts.
func (c Curve) Threshold(level int) int64 {
	if level <= 1 {
		return 0
	}
	l := int64(level)
	return c.Base * (l * (l - 1) / 2)
}

// LevelOf is monotonic: more experience never yields a lower level.
func (c Curve) LevelOf(xp int64) LevelInfo {
	if xp < 0 {
		xp = 0
	}
	// Closed-form estimate, then settle exactly against the integer thresholds.
	level := int((1 + math.Sqrt(1+8*float64(xp)/float64(c.Base))) / 2)
	if level < 1 {
		level = 1
	}
	for level > 1 && c.Threshold(level) > xp {
		level--
	}
	for c.Threshold(level+1) <= xp {
		level++
	}
	return LevelInfo{
		Level:       level,
		XPIntoLevel: xp - c.Threshold(level),
		XPForNext:   c.Base * int64(level),
	}
}

// LeveledUp reports whether going from before to after crosses at least one level.
func (c Curve) LeveledUp(before, after int64) bool {
	return c.LevelOf(after).Level > c.LevelOf(before).Level
}
