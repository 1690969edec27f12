package gpudriven

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore() (*Store, Mesh, Material, Material) {
	assets := NewAssetServer()
	mesh := assets.LoadMesh([]SubMeshDesc{
		{Topology: MeshTopologyTriangles, IndexCount: 36, VertexCount: 24},
		{Topology: MeshTopologyTriangles, IndexStart: 36, IndexCount: 12, BaseVertex: 24, VertexCount: 8},
	})
	matA := assets.LoadMaterial(MaterialDesc{RenderQueue: 2000})
	matB := assets.LoadMaterial(MaterialDesc{RenderQueue: 3000, Transparent: true, MotionVectorsPass: true})
	return NewStore(nil, assets), mesh, matA, matB
}

func testGroupDesc(mesh Mesh, mats []Material, layer int32, transforms ...mgl32.Mat4) RendererGroupDesc {
	return RendererGroupDesc{
		Bounds:             Bounds{Center: mgl32.Vec3{0, 1, 0}, Extents: mgl32.Vec3{1, 1, 1}},
		Layer:              layer,
		RenderingLayerMask: 0xFFFFFFFF,
		Flags:              RendererFlags{ReceiveShadows: true, LODMask: 1},
		Mesh:               mesh,
		Materials:          mats,
		Transforms:         transforms,
	}
}

func TestEnableAndDispatch_EndToEnd(t *testing.T) {
	store, mesh, matA, matB := newTestStore()
	id1 := store.AddRendererGroup(testGroupDesc(mesh, []Material{matA}, 1))
	id2 := store.AddRendererGroup(testGroupDesc(mesh, []Material{matA, matB}, 2))
	p := NewProcessorBuilder().UseStore(store).Build()
	defer p.Close()

	missing := RendererGroupId(999)
	calls := 0
	p.EnableAndDispatch([]RendererGroupId{id1, id2, missing}, func(data *RendererGroupData, meshes []Mesh, materials []Material) {
		calls++

		require.Equal(t, 2, data.GroupID.Len())
		assert.Equal(t, id1, data.GroupID.Get(0))
		assert.Equal(t, id2, data.GroupID.Get(1))
		assert.Equal(t, []RendererGroupId{missing}, data.InvalidRendererGroupID.Slice())

		// Shared mesh dedups into one table row; both handle lists
		// carry only touched assets.
		require.Len(t, meshes, 1)
		assert.Equal(t, mesh.ID(), meshes[0].ID())
		require.Len(t, materials, 2)

		require.Equal(t, 1, data.MeshID.Len())
		assert.Equal(t, mesh.ID(), data.MeshID.Get(0))
		assert.Equal(t, int32(2), data.SubMeshCount.Get(0))
		assert.Equal(t, int32(0), data.SubMeshDescOffset.Get(0))
		require.Equal(t, 2, data.SubMeshDesc.Len())
		assert.Equal(t, uint32(36), data.SubMeshDesc.Get(0).IndexCount)

		assert.Equal(t, int32(0), data.MeshIndex.Get(0))
		assert.Equal(t, int32(0), data.MeshIndex.Get(1))

		// Material runs: group 0 references matA, group 1 matA+matB.
		assert.Equal(t, int32(0), data.MaterialsOffset.Get(0))
		assert.Equal(t, int32(1), data.MaterialsCount.Get(0))
		assert.Equal(t, int32(1), data.MaterialsOffset.Get(1))
		assert.Equal(t, int32(2), data.MaterialsCount.Get(1))
		assert.Equal(t, []int32{0, 0, 1}, data.MaterialIndex.Slice())
		assert.True(t, data.IsTransparent.Get(1))
		assert.True(t, data.MotionVecsPassEnabled.Get(1))

		// Single-instance groups dispatch in 1:1 mode.
		assert.True(t, data.OneToOneInstances())
		assert.Equal(t, 2, data.LocalToWorld.Len())
		assert.Equal(t, 2, data.PrevLocalToWorld.Len())
	})

	require.Equal(t, 1, calls, "callback must run synchronously, exactly once")
}

func TestDispatch_RowConsistency(t *testing.T) {
	store, mesh, matA, _ := newTestStore()
	layers := map[RendererGroupId]int32{}
	var ids []RendererGroupId
	for i := int32(0); i < 5; i++ {
		id := store.AddRendererGroup(testGroupDesc(mesh, []Material{matA}, 10+i))
		layers[id] = 10 + i
		ids = append(ids, id)
	}
	p := NewProcessorBuilder().UseStore(store).Build()
	defer p.Close()

	p.EnableAndDispatch(ids, func(data *RendererGroupData, meshes []Mesh, materials []Material) {
		n := len(ids)
		require.Equal(t, n, data.GroupID.Len())
		for _, col := range []int{
			data.Bounds.Len(), data.LightmapScaleOffset.Len(), data.Layer.Len(),
			data.RenderingLayerMask.Len(), data.LODGroupID.Len(), data.LightmapIndex.Len(),
			data.PackedFlags.Len(), data.Priority.Len(), data.MeshIndex.Len(),
			data.SubMeshStartIndex.Len(), data.MaterialsOffset.Len(), data.MaterialsCount.Len(),
		} {
			assert.Equal(t, n, col, "every per-row column must have one entry per resolved group")
		}
		for i := 0; i < n; i++ {
			assert.Equal(t, layers[data.GroupID.Get(i)], data.Layer.Get(i),
				"row %d must describe the same group across columns", i)
		}
		assert.Equal(t, 0, data.InvalidRendererGroupID.Len())
	})
}

func TestDispatch_InvalidIDCompleteness(t *testing.T) {
	store, mesh, matA, _ := newTestStore()
	id1 := store.AddRendererGroup(testGroupDesc(mesh, []Material{matA}, 0))
	id2 := store.AddRendererGroup(testGroupDesc(mesh, []Material{matA}, 0))
	p := NewProcessorBuilder().UseStore(store).Build()
	defer p.Close()

	missing := []RendererGroupId{501, 503}
	request := []RendererGroupId{id1, missing[0], id2, missing[1]}
	p.EnableAndDispatch(request, func(data *RendererGroupData, meshes []Mesh, materials []Material) {
		assert.ElementsMatch(t, missing, data.InvalidRendererGroupID.Slice())
		assert.ElementsMatch(t, []RendererGroupId{id1, id2}, data.GroupID.Slice())
	})
}

func TestDispatch_ScopeReleasedAfterCallback(t *testing.T) {
	store, mesh, matA, _ := newTestStore()
	id := store.AddRendererGroup(testGroupDesc(mesh, []Material{matA}, 0))
	p := NewProcessorBuilder().UseStore(store).Build()
	defer p.Close()

	var leaked *RendererGroupData
	p.EnableAndDispatch([]RendererGroupId{id}, func(data *RendererGroupData, meshes []Mesh, materials []Material) {
		assert.Equal(t, id, data.GroupID.Get(0), "columns are readable inside the callback")
		leaked = data
	})

	require.NotNil(t, leaked)
	assert.Panics(t, func() { leaked.GroupID.Get(0) },
		"column access after the callback returned must fail loudly")
	assert.Panics(t, func() { leaked.LocalToWorld.Slice() })
}

func TestDispatch_CallbackPanicStillReleasesScope(t *testing.T) {
	store, mesh, matA, _ := newTestStore()
	id := store.AddRendererGroup(testGroupDesc(mesh, []Material{matA}, 0))
	p := NewProcessorBuilder().UseStore(store).Build()
	defer p.Close()

	var leaked *RendererGroupData
	require.Panics(t, func() {
		p.EnableAndDispatch([]RendererGroupId{id}, func(data *RendererGroupData, meshes []Mesh, materials []Material) {
			leaked = data
			panic("consumer failure")
		})
	})
	assert.Panics(t, func() { leaked.GroupID.Get(0) })
}

func TestDispatch_ManyToOneInstances(t *testing.T) {
	store, mesh, matA, _ := newTestStore()
	xforms := []mgl32.Mat4{
		mgl32.Translate3D(1, 0, 0),
		mgl32.Translate3D(2, 0, 0),
		mgl32.Translate3D(3, 0, 0),
	}
	id1 := store.AddRendererGroup(testGroupDesc(mesh, []Material{matA}, 0, xforms...))
	id2 := store.AddRendererGroup(testGroupDesc(mesh, []Material{matA}, 0))
	p := NewProcessorBuilder().UseStore(store).Build()
	defer p.Close()

	p.EnableAndDispatch([]RendererGroupId{id1, id2}, func(data *RendererGroupData, meshes []Mesh, materials []Material) {
		require.False(t, data.OneToOneInstances())
		assert.Equal(t, int32(0), data.InstancesOffset.Get(0))
		assert.Equal(t, int32(3), data.InstancesCount.Get(0))
		assert.Equal(t, int32(3), data.InstancesOffset.Get(1))
		assert.Equal(t, int32(1), data.InstancesCount.Get(1))

		require.Equal(t, 4, data.LocalToWorld.Len())
		assert.Equal(t, []int32{0, 0, 0, 1}, data.RendererGroupIndex.Slice())
		assert.Equal(t, xforms[1], data.LocalToWorld.Get(1))
	})
}

func TestDispatch_DuplicateIDsProduceDuplicateRows(t *testing.T) {
	store, mesh, matA, _ := newTestStore()
	id := store.AddRendererGroup(testGroupDesc(mesh, []Material{matA}, 0))
	p := NewProcessorBuilder().UseStore(store).Build()
	defer p.Close()

	p.EnableAndDispatch([]RendererGroupId{id, id}, func(data *RendererGroupData, meshes []Mesh, materials []Material) {
		require.Equal(t, 2, data.GroupID.Len())
		assert.Equal(t, data.GroupID.Get(0), data.GroupID.Get(1))
		// The mesh table still dedups.
		assert.Len(t, meshes, 1)
	})
}

func TestDispatch_ScratchListsClearedBetweenCalls(t *testing.T) {
	store, mesh1, matA, _ := newTestStore()
	mesh2 := store.Assets().LoadMesh([]SubMeshDesc{{Topology: MeshTopologyTriangles, IndexCount: 6, VertexCount: 4}})
	id1 := store.AddRendererGroup(testGroupDesc(mesh1, []Material{matA}, 0))
	id2 := store.AddRendererGroup(testGroupDesc(mesh2, []Material{matA}, 0))
	p := NewProcessorBuilder().UseStore(store).Build()
	defer p.Close()

	p.EnableAndDispatch([]RendererGroupId{id1}, func(data *RendererGroupData, meshes []Mesh, materials []Material) {
		require.Len(t, meshes, 1)
		assert.Equal(t, mesh1.ID(), meshes[0].ID())
	})
	p.EnableAndDispatch([]RendererGroupId{id2}, func(data *RendererGroupData, meshes []Mesh, materials []Material) {
		require.Len(t, meshes, 1, "scratch mesh list must be cleared at call start")
		assert.Equal(t, mesh2.ID(), meshes[0].ID())
	})
}

func TestDispatch_RemovedGroupReportedInvalid(t *testing.T) {
	store, mesh, matA, _ := newTestStore()
	id := store.AddRendererGroup(testGroupDesc(mesh, []Material{matA}, 0))
	p := NewProcessorBuilder().UseStore(store).Build()
	defer p.Close()

	p.EnableAndDispatch([]RendererGroupId{id}, func(data *RendererGroupData, meshes []Mesh, materials []Material) {
		require.Equal(t, 1, data.GroupID.Len())
	})

	require.True(t, store.RemoveRendererGroup(id))
	p.DispatchRendererData([]RendererGroupId{id}, func(data *RendererGroupData, meshes []Mesh, materials []Material) {
		assert.Equal(t, 0, data.GroupID.Len())
		assert.Equal(t, []RendererGroupId{id}, data.InvalidRendererGroupID.Slice())
	})
}

func TestLODGroupDispatch_FlattensLevels(t *testing.T) {
	store, _, _, _ := newTestStore()
	lodA := store.AddLODGroup(LODGroupDesc{
		FadeMode:                 LODFadeCrossFade,
		WorldSpaceReferencePoint: mgl32.Vec3{0, 5, 0},
		WorldSpaceSize:           10,
		RendererCount:            2,
		Levels: []LODLevelDesc{
			{RendererCount: 1, ScreenRelativeTransitionHeight: 0.5, FadeTransitionWidth: 0.1},
			{RendererCount: 1, ScreenRelativeTransitionHeight: 0.1, FadeTransitionWidth: 0.05},
		},
	})
	lodB := store.AddLODGroup(LODGroupDesc{
		FadeMode:           LODFadeSpeedTree,
		WorldSpaceSize:     4,
		RendererCount:      3,
		LastLODIsBillboard: true,
		Levels: []LODLevelDesc{
			{RendererCount: 1, ScreenRelativeTransitionHeight: 0.6},
			{RendererCount: 1, ScreenRelativeTransitionHeight: 0.3},
			{RendererCount: 1, ScreenRelativeTransitionHeight: 0.05},
		},
	})
	p := NewProcessorBuilder().UseStore(store).Build()
	defer p.Close()

	missing := LODGroupId(77)
	calls := 0
	p.DispatchLODGroupData([]LODGroupId{lodA, lodB, missing}, func(data *LODGroupData) {
		calls++
		require.Equal(t, 2, data.LodGroupID.Len())
		assert.Equal(t, []LODGroupId{missing}, data.InvalidLODGroupID.Slice())

		assert.Equal(t, int32(0), data.LodOffset.Get(0))
		assert.Equal(t, int32(2), data.LodCount.Get(0))
		assert.Equal(t, int32(2), data.LodOffset.Get(1))
		assert.Equal(t, int32(3), data.LodCount.Get(1))

		require.Equal(t, 5, data.LodRenderersCount.Len())
		require.Equal(t, 5, data.ScreenRelativeTransitionHeight.Len())

		// Group 1's first level sits right after group 0's levels.
		off := int(data.LodOffset.Get(1))
		assert.InDelta(t, 0.6, data.ScreenRelativeTransitionHeight.Get(off), 1e-6)

		assert.Equal(t, LODFadeSpeedTree, data.FadeMode.Get(1))
		assert.True(t, data.LastLODIsBillboard.Get(1))
		assert.False(t, data.LastLODIsBillboard.Get(0))
	})
	require.Equal(t, 1, calls)

	var leaked *LODGroupData
	p.DispatchLODGroupData([]LODGroupId{lodA}, func(data *LODGroupData) { leaked = data })
	assert.Panics(t, func() { leaked.LodGroupID.Get(0) })
}
