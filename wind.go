package gpudriven

import (
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl32"
)

// WindParams is one frame's wind simulation sample for a single
// instance: the global wind vector plus the branch, leaf and frond
// oscillation coefficient blocks.
type WindParams struct {
	Global           mgl32.Vec4
	Branch           mgl32.Vec4
	BranchTwitch     mgl32.Vec4
	BranchWhip       mgl32.Vec4
	BranchAnchor     mgl32.Vec4
	BranchAdherences mgl32.Vec4
	Turbulences      mgl32.Vec4
	Leaf1Ripple      mgl32.Vec4
	Leaf1Tumble      mgl32.Vec4
	Leaf1Twitch      mgl32.Vec4
	Leaf2Ripple      mgl32.Vec4
	Leaf2Tumble      mgl32.Vec4
	Leaf2Twitch      mgl32.Vec4
	FrondRipple      mgl32.Vec4
	Animation        mgl32.Vec4
}

// windHistory keeps the two most recent wind samples of one instance so
// a dispatch can deliver either the current or the previous frame.
type windHistory struct {
	latest   atomic.Pointer[WindParams]
	previous atomic.Pointer[WindParams]
}

// Update rotates the current sample into the previous slot and installs
// p as the new current sample.
func (h *windHistory) Update(p *WindParams) {
	old := h.latest.Swap(p)
	if old != nil {
		h.previous.Store(old)
	}
}

// Sample returns the current sample, or the previous frame's when
// history is set. Nil when no sample for the requested frame exists.
func (h *windHistory) Sample(history bool) *WindParams {
	if history {
		return h.previous.Load()
	}
	return h.latest.Load()
}
