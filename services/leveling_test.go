package services

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
)

func TestCurve_Thresholds(t *testing.T) {
	c := NewCurve(100)
	cases := []struct {
		xp    int64
		level int
		into  int64
		next  int64
	}{
		{0, 1, 0, 100},
		{-5, 1, 0, 100},
		{99, 1, 99, 100},
		{100, 2, 0, 200},
		{299, 2, 199, 200},
		{300, 3, 0, 300},
		{600, 4, 0, 400},
		{1000, 5, 0, 500},
	}
	for _, tc := range cases {
		info := c.LevelOf(tc.xp)
		assert.Equal(t, tc.level, info.Level, "xp %d", tc.xp)
		assert.Equal(t, tc.into, info.XPIntoLevel, "xp %d", tc.xp)
		assert.Equal(t, tc.next, info.XPForNext, "xp %d", tc.xp)
	}
	assert.True(t, c.LeveledUp(99, 100))
	assert.False(t, c.LeveledUp(100, 299))
	assert.Equal(t, int64(100), NewCurve(0).Base)
}

func TestCurve_Properties(t *testing.T) {
	c := NewCurve(100)
	properties := gopter.NewProperties(nil)

	properties.Property("more experience never lowers the level", prop.ForAll(
		func(a, b int64) bool {
			if a > b {
				a, b = b, a
			}
			return c.LevelOf(a).Level <= c.LevelOf(b).Level
		},
		gen.Int64Range(0, 1_000_000_000_000),
		gen.Int64Range(0, 1_000_000_000_000),
	))

	properties.Property("progress stays inside the level", prop.ForAll(
		func(xp int64) bool {
			info := c.LevelOf(xp)
			return info.XPIntoLevel >= 0 &&
				info.XPIntoLevel < info.XPForNext &&
				c.Threshold(info.Level)+info.XPIntoLevel == xp
		},
		gen.Int64Range(0, 1_000_000_000_000),
	))

	properties.TestingRun(t)
}
