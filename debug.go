package stain

import (
	"sync/atomic"
	"time"
)

// debugStats holds per-frame timing and primitive metrics.
// Only populated when debug mode is on.
type debugStats struct {
	compileTime    time.Duration
	waitTime       time.Duration
	primitiveCount int
	clipCount      int
	glyphCount     int
	resourceCount  int
}

// globalDebug mirrors the most recent SetDebugMode call so that tree
// operations, which have no renderer pointer, can check it cheaply.
var globalDebug atomic.Bool

func debugEnabled() bool {
	return globalDebug.Load()
}

// debugLog reports frame statistics at debug level.
func debugLog(stats debugStats) {
	Logger().Debug("frame",
		"compile", stats.compileTime,
		"wait", stats.waitTime,
		"total", stats.compileTime+stats.waitTime,
		"primitives", stats.primitiveCount,
		"clips", stats.clipCount,
		"glyphs", stats.glyphCount,
		"resources", stats.resourceCount,
	)
}

// debugCheckTreeDepth warns if tree depth exceeds the threshold.
const debugMaxTreeDepth = 32

func debugCheckTreeDepth(s *Surface) {
	depth := 0
	for p := s; p != nil; p = p.parent {
		depth++
	}
	if depth > debugMaxTreeDepth {
		Logger().Warn("surface tree is deep",
			"depth", depth, "threshold", debugMaxTreeDepth, "surface", s.Name, "id", s.ID)
	}
}

// debugCheckChildCount warns if a surface has more than 1000 children.
const debugMaxChildCount = 1000

func debugCheckChildCount(s *Surface) {
	if len(s.children) > debugMaxChildCount {
		Logger().Warn("surface has many children",
			"surface", s.Name, "id", s.ID, "children", len(s.children), "threshold", debugMaxChildCount)
	}
}
