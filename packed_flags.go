package gpudriven

// ShadowCastingMode selects how a renderer participates in shadow passes.
type ShadowCastingMode uint32

const (
	ShadowCastingOff ShadowCastingMode = iota
	ShadowCastingOn
	ShadowCastingTwoSided
	ShadowCastingShadowsOnly
)

// LightProbeUsage selects how a renderer samples ambient probe lighting.
type LightProbeUsage uint32

const (
	LightProbeOff LightProbeUsage = iota
	LightProbeBlendProbes
	LightProbeUseProxyVolume
	LightProbeCustomProvided
)

// MotionVectorMode selects how motion vectors are generated for a renderer.
type MotionVectorMode uint32

const (
	MotionVectorCamera MotionVectorMode = iota
	MotionVectorObject
	MotionVectorForceNoMotion
)

const (
	packedReceiveShadows     = 1 << 0
	packedStaticShadowCaster = 1 << 1

	packedLODMaskShift = 2
	packedLODMaskBits  = 0xFF

	packedShadowModeShift = 10
	packedShadowModeBits  = 0x3

	packedProbeUsageShift = 12
	packedProbeUsageBits  = 0x7

	packedMotionModeShift = 15
	packedMotionModeBits  = 0x3

	packedPartOfStaticBatch = 1 << 17
	packedMovedCurrentFrame = 1 << 18
	packedHasTree           = 1 << 19
	packedSmallMeshCulling  = 1 << 20
	packedSupportsIndirect  = 1 << 21
)

// RendererFlags is the unpacked form of PackedFlags.
type RendererFlags struct {
	ReceiveShadows     bool
	StaticShadowCaster bool
	LODMask            uint8
	ShadowCastingMode  ShadowCastingMode
	LightProbeUsage    LightProbeUsage
	MotionVectorMode   MotionVectorMode
	PartOfStaticBatch  bool
	MovedCurrentFrame  bool
	HasTree            bool
	SmallMeshCulling   bool
	SupportsIndirect   bool
}

// PackedFlags encodes the eleven per-renderer state fields into a single
// 32-bit value via disjoint bit ranges. The zero value decodes to
// all-false booleans, LOD mask 0 and the zero variant of every enum.
type PackedFlags uint32

// MakePackedFlags packs all eleven fields. Enum and mask values wider
// than their allotted bit range are truncated to that range.
func MakePackedFlags(f RendererFlags) PackedFlags {
	var p PackedFlags
	if f.ReceiveShadows {
		p |= packedReceiveShadows
	}
	if f.StaticShadowCaster {
		p |= packedStaticShadowCaster
	}
	p |= PackedFlags(uint32(f.LODMask)&packedLODMaskBits) << packedLODMaskShift
	p |= PackedFlags(uint32(f.ShadowCastingMode)&packedShadowModeBits) << packedShadowModeShift
	p |= PackedFlags(uint32(f.LightProbeUsage)&packedProbeUsageBits) << packedProbeUsageShift
	p |= PackedFlags(uint32(f.MotionVectorMode)&packedMotionModeBits) << packedMotionModeShift
	if f.PartOfStaticBatch {
		p |= packedPartOfStaticBatch
	}
	if f.MovedCurrentFrame {
		p |= packedMovedCurrentFrame
	}
	if f.HasTree {
		p |= packedHasTree
	}
	if f.SmallMeshCulling {
		p |= packedSmallMeshCulling
	}
	if f.SupportsIndirect {
		p |= packedSupportsIndirect
	}
	return p
}

func (p PackedFlags) Unpack() RendererFlags {
	return RendererFlags{
		ReceiveShadows:     p.ReceiveShadows(),
		StaticShadowCaster: p.StaticShadowCaster(),
		LODMask:            p.LODMask(),
		ShadowCastingMode:  p.ShadowCastingMode(),
		LightProbeUsage:    p.LightProbeUsage(),
		MotionVectorMode:   p.MotionVectorMode(),
		PartOfStaticBatch:  p.PartOfStaticBatch(),
		MovedCurrentFrame:  p.MovedCurrentFrame(),
		HasTree:            p.HasTree(),
		SmallMeshCulling:   p.SmallMeshCulling(),
		SupportsIndirect:   p.SupportsIndirect(),
	}
}

func (p PackedFlags) ReceiveShadows() bool     { return p&packedReceiveShadows != 0 }
func (p PackedFlags) StaticShadowCaster() bool { return p&packedStaticShadowCaster != 0 }

func (p PackedFlags) LODMask() uint8 {
	return uint8((p >> packedLODMaskShift) & packedLODMaskBits)
}

func (p PackedFlags) ShadowCastingMode() ShadowCastingMode {
	return ShadowCastingMode((p >> packedShadowModeShift) & packedShadowModeBits)
}

func (p PackedFlags) LightProbeUsage() LightProbeUsage {
	return LightProbeUsage((p >> packedProbeUsageShift) & packedProbeUsageBits)
}

func (p PackedFlags) MotionVectorMode() MotionVectorMode {
	return MotionVectorMode((p >> packedMotionModeShift) & packedMotionModeBits)
}

func (p PackedFlags) PartOfStaticBatch() bool { return p&packedPartOfStaticBatch != 0 }
func (p PackedFlags) MovedCurrentFrame() bool { return p&packedMovedCurrentFrame != 0 }
func (p PackedFlags) HasTree() bool           { return p&packedHasTree != 0 }
func (p PackedFlags) SmallMeshCulling() bool  { return p&packedSmallMeshCulling != 0 }
func (p PackedFlags) SupportsIndirect() bool  { return p&packedSupportsIndirect != 0 }
