package gpudriven

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Bounds is a world-space axis-aligned box, center/extents form.
type Bounds struct {
	Center  mgl32.Vec3
	Extents mgl32.Vec3
}

// RendererGroupData is the structure-of-arrays snapshot delivered to a
// renderer dispatch callback. Row i of every per-group column describes
// the same renderer group; the same holds within the mesh, sub-mesh,
// material and instance tables. All columns share one SafetyScope and
// become invalid when the callback returns.
type RendererGroupData struct {
	// Per renderer group, one row per requested id that resolved.
	GroupID             Column[RendererGroupId]
	Bounds              Column[Bounds]
	LightmapScaleOffset Column[mgl32.Vec4]
	Layer               Column[int32]
	RenderingLayerMask  Column[uint32]
	LODGroupID          Column[LODGroupId]
	LightmapIndex       Column[int32]
	PackedFlags         Column[PackedFlags]
	Priority            Column[int32]
	MeshIndex           Column[int32]
	SubMeshStartIndex   Column[int32]
	MaterialsOffset     Column[int32]
	MaterialsCount      Column[int32]
	InstancesOffset     Column[int32]
	InstancesCount      Column[int32]

	// Mesh table, one row per distinct mesh touched by this dispatch.
	// MeshIndex above addresses into it.
	MeshID            Column[int32]
	SubMeshCount      Column[int32]
	SubMeshDescOffset Column[int32]

	// Flattened sub-mesh descriptor table, addressed through
	// SubMeshDescOffset/SubMeshCount.
	SubMeshDesc Column[SubMeshDesc]

	// Material table, one row per distinct material touched.
	MaterialID            Column[int32]
	MaterialFilterFlags   Column[uint32]
	IsTransparent         Column[bool]
	MotionVecsPassEnabled Column[bool]

	// Flattened material-index table; MaterialsOffset/MaterialsCount
	// address a run of indices into the material table.
	MaterialIndex Column[int32]

	// Per instance. When every resolved group has exactly one instance
	// the range columns above are empty and row index doubles as
	// instance index; otherwise RendererGroupIndex is the back
	// reference to the owning group row.
	LocalToWorld       Column[mgl32.Mat4]
	PrevLocalToWorld   Column[mgl32.Mat4]
	RendererGroupIndex Column[int32]

	// Requested ids that did not resolve, in request order.
	InvalidRendererGroupID Column[RendererGroupId]
}

// OneToOneInstances reports whether this dispatch is in 1:1 mode, where
// group row i owns exactly instance row i.
func (d *RendererGroupData) OneToOneInstances() bool {
	return d.InstancesOffset.Len() == 0
}

// LODFadeMode is the cross-fade behavior of a LOD group.
type LODFadeMode uint32

const (
	LODFadeNone LODFadeMode = iota
	LODFadeCrossFade
	LODFadeSpeedTree
)

// LODGroupData is the structure-of-arrays snapshot delivered to a LOD
// group dispatch callback. Level rows for all requested groups are
// flattened into one table addressed via LodOffset/LodCount.
type LODGroupData struct {
	LodGroupID               Column[LODGroupId]
	LodOffset                Column[int32]
	LodCount                 Column[int32]
	FadeMode                 Column[LODFadeMode]
	WorldSpaceReferencePoint Column[mgl32.Vec3]
	WorldSpaceSize           Column[float32]
	RenderersCount           Column[int32]
	LastLODIsBillboard       Column[bool]

	// Flattened per-level table.
	LodRenderersCount              Column[int32]
	ScreenRelativeTransitionHeight Column[float32]
	FadeTransitionWidth            Column[float32]

	InvalidLODGroupID Column[LODGroupId]
}

// WindData is the per-instance wind animation snapshot. History echoes
// the request flag: false for the current frame's sample, true for the
// previous frame's, so a consumer can blend the two temporally.
type WindData struct {
	History bool

	InstanceID Column[InstanceId]

	Global           Column[mgl32.Vec4]
	Branch           Column[mgl32.Vec4]
	BranchTwitch     Column[mgl32.Vec4]
	BranchWhip       Column[mgl32.Vec4]
	BranchAnchor     Column[mgl32.Vec4]
	BranchAdherences Column[mgl32.Vec4]
	Turbulences      Column[mgl32.Vec4]
	Leaf1Ripple      Column[mgl32.Vec4]
	Leaf1Tumble      Column[mgl32.Vec4]
	Leaf1Twitch      Column[mgl32.Vec4]
	Leaf2Ripple      Column[mgl32.Vec4]
	Leaf2Tumble      Column[mgl32.Vec4]
	Leaf2Twitch      Column[mgl32.Vec4]
	FrondRipple      Column[mgl32.Vec4]
	Animation        Column[mgl32.Vec4]
}

// RendererDataCallback consumes one renderer group dispatch. The
// snapshot columns and both handle lists are only valid until the
// callback returns; retain nothing past that point.
type RendererDataCallback func(data *RendererGroupData, meshes []Mesh, materials []Material)

type LODGroupDataCallback func(data *LODGroupData)

type WindDataCallback func(data *WindData)
