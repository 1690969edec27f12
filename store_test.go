package gpudriven

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_IdSpacePartition(t *testing.T) {
	store, mesh, matA, _ := newTestStore()

	for i := 0; i < 4; i++ {
		id := store.AddRendererGroup(testGroupDesc(mesh, []Material{matA}, 0))
		assert.Zero(t, id%2, "engine-native groups allocate even ids, got %d", id)
	}
	for i := 0; i < 4; i++ {
		id := store.RegisterExternalGroup(testGroupDesc(mesh, []Material{matA}, 0))
		assert.NotZero(t, id%2, "external groups allocate odd ids, got %d", id)
	}
}

func TestStore_DefaultInstance(t *testing.T) {
	store, mesh, matA, _ := newTestStore()
	id := store.AddRendererGroup(testGroupDesc(mesh, []Material{matA}, 0))

	instances, ok := store.InstanceIds(id)
	require.True(t, ok)
	assert.Len(t, instances, 1, "no transforms means a single identity instance")
}

func TestStore_RemoveGroupDropsInstances(t *testing.T) {
	store, mesh, matA, _ := newTestStore()
	id := store.AddRendererGroup(testGroupDesc(mesh, []Material{matA}, 0, mgl32.Translate3D(1, 2, 3)))
	instances, _ := store.InstanceIds(id)
	require.Len(t, instances, 1)

	require.True(t, store.RemoveRendererGroup(id))
	assert.False(t, store.Contains(id))
	assert.False(t, store.RemoveRendererGroup(id), "second removal is a miss")

	_, ok := store.InstanceIds(id)
	assert.False(t, ok)
	assert.False(t, store.SetInstanceTransform(instances[0], mgl32.Ident4()))
	assert.False(t, store.SetWindParams(instances[0], WindParams{}))
}

func TestStore_TransformHistory(t *testing.T) {
	store, mesh, matA, _ := newTestStore()
	first := mgl32.Translate3D(1, 0, 0)
	second := mgl32.Translate3D(2, 0, 0)
	id := store.AddRendererGroup(testGroupDesc(mesh, []Material{matA}, 0, first))
	instances, _ := store.InstanceIds(id)

	require.True(t, store.SetInstanceTransform(instances[0], second))

	p := NewProcessorBuilder().UseStore(store).Build()
	defer p.Close()
	p.EnableAndDispatch([]RendererGroupId{id}, func(data *RendererGroupData, meshes []Mesh, materials []Material) {
		assert.Equal(t, second, data.LocalToWorld.Get(0))
		assert.Equal(t, first, data.PrevLocalToWorld.Get(0))
	})
}

func TestStore_GroupRequiresRegisteredMesh(t *testing.T) {
	store := NewStore(nil, nil)
	assert.Panics(t, func() {
		store.AddRendererGroup(RendererGroupDesc{})
	})
}

func TestAssetServer_Registration(t *testing.T) {
	assets := NewAssetServer()

	mesh := assets.LoadMesh([]SubMeshDesc{{Topology: MeshTopologyTriangles, IndexCount: 3, VertexCount: 3}})
	require.NotEmpty(t, mesh.AssetId())
	require.NotZero(t, mesh.ID())
	asset, ok := assets.MeshAsset(mesh)
	require.True(t, ok)
	assert.Equal(t, 1, asset.SubMeshCount())

	mat := assets.LoadMaterial(MaterialDesc{
		RenderQueue: 2000,
		ShaderTags:  map[string]string{"RenderType": "Opaque"},
		Keywords:    []string{"_NORMALMAP"},
	})
	matAsset, ok := assets.MaterialAsset(mat)
	require.True(t, ok)
	assert.Equal(t, int32(2000), matAsset.RenderQueue())
	v, ok := matAsset.ShaderTag("RenderType")
	require.True(t, ok)
	assert.Equal(t, "Opaque", v)
	assert.True(t, matAsset.HasKeyword("_NORMALMAP"))
	assert.False(t, matAsset.HasKeyword("_EMISSION"))

	mesh2 := assets.LoadMesh(nil)
	assert.NotEqual(t, mesh.ID(), mesh2.ID())
	assert.NotEqual(t, mesh.AssetId(), mesh2.AssetId())

	byId, ok := assets.MeshByID(mesh.ID())
	require.True(t, ok)
	assert.Equal(t, mesh, byId)
	matById, ok := assets.MaterialByID(mat.ID())
	require.True(t, ok)
	assert.Equal(t, mat, matById)
	_, ok = assets.MeshByID(404)
	assert.False(t, ok)
}
