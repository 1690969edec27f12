package gpudriven

import (
	"sync"

	"github.com/google/uuid"
)

type AssetId string

func makeAssetId() AssetId {
	return AssetId(uuid.New().String())
}

// MeshTopology is the primitive topology of one sub-mesh range.
type MeshTopology uint32

const (
	MeshTopologyTriangles MeshTopology = iota
	MeshTopologyTriangleStrip
	MeshTopologyLines
	MeshTopologyLineStrip
	MeshTopologyPoints
)

// SubMeshDesc describes the geometry range of one sub-mesh. The index
// and vertex data itself is owned by the mesh abstraction; only the
// range bookkeeping travels through a dispatch.
type SubMeshDesc struct {
	Topology    MeshTopology
	IndexStart  uint32
	IndexCount  uint32
	BaseVertex  uint32
	VertexStart uint32
	VertexCount uint32
}

// Mesh is an opaque handle to a registered mesh.
type Mesh struct {
	assetId AssetId
	id      int32
}

func (m Mesh) AssetId() AssetId { return m.assetId }

// ID is the stable integer identity exported in mesh snapshot rows.
func (m Mesh) ID() int32 { return m.id }

// Material is an opaque handle to a registered material.
type Material struct {
	assetId AssetId
	id      int32
}

func (m Material) AssetId() AssetId { return m.assetId }
func (m Material) ID() int32        { return m.id }

type MeshAsset struct {
	version   uint
	subMeshes []SubMeshDesc
}

func (a *MeshAsset) SubMeshCount() int { return len(a.subMeshes) }

// MaterialDesc carries the render state the filter registry and the
// material snapshot rows are derived from.
type MaterialDesc struct {
	RenderQueue       int32
	ShaderTags        map[string]string
	Keywords          []string
	Transparent       bool
	MotionVectorsPass bool
}

type MaterialAsset struct {
	version           uint
	renderQueue       int32
	shaderTags        map[string]string
	keywords          map[string]struct{}
	transparent       bool
	motionVectorsPass bool
}

func (a *MaterialAsset) RenderQueue() int32      { return a.renderQueue }
func (a *MaterialAsset) Transparent() bool       { return a.transparent }
func (a *MaterialAsset) MotionVectorsPass() bool { return a.motionVectorsPass }

func (a *MaterialAsset) ShaderTag(key string) (string, bool) {
	v, ok := a.shaderTags[key]
	return v, ok
}

func (a *MaterialAsset) HasKeyword(kw string) bool {
	_, ok := a.keywords[kw]
	return ok
}

// AssetServer registers the meshes and materials renderer groups refer
// to. Handles carry a uuid-backed asset id plus a small stable integer
// id used in exported snapshot rows.
type AssetServer struct {
	mu            sync.Mutex
	meshIdCounter int32
	matIdCounter  int32
	meshes        map[AssetId]*MeshAsset
	meshHandles   map[int32]Mesh
	materials     map[AssetId]*MaterialAsset
	matHandles    map[int32]Material
}

func NewAssetServer() *AssetServer {
	return &AssetServer{
		meshes:      make(map[AssetId]*MeshAsset),
		meshHandles: make(map[int32]Mesh),
		materials:   make(map[AssetId]*MaterialAsset),
		matHandles:  make(map[int32]Material),
	}
}

func (s *AssetServer) LoadMesh(subMeshes []SubMeshDesc) Mesh {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.meshIdCounter++
	handle := Mesh{assetId: makeAssetId(), id: s.meshIdCounter}
	s.meshes[handle.assetId] = &MeshAsset{
		version:   0,
		subMeshes: append([]SubMeshDesc(nil), subMeshes...),
	}
	s.meshHandles[handle.id] = handle
	return handle
}

func (s *AssetServer) LoadMaterial(desc MaterialDesc) Material {
	s.mu.Lock()
	defer s.mu.Unlock()

	keywords := make(map[string]struct{}, len(desc.Keywords))
	for _, kw := range desc.Keywords {
		keywords[kw] = struct{}{}
	}
	tags := make(map[string]string, len(desc.ShaderTags))
	for k, v := range desc.ShaderTags {
		tags[k] = v
	}

	s.matIdCounter++
	handle := Material{assetId: makeAssetId(), id: s.matIdCounter}
	s.materials[handle.assetId] = &MaterialAsset{
		version:           0,
		renderQueue:       desc.RenderQueue,
		shaderTags:        tags,
		keywords:          keywords,
		transparent:       desc.Transparent,
		motionVectorsPass: desc.MotionVectorsPass,
	}
	s.matHandles[handle.id] = handle
	return handle
}

// MeshByID resolves the stable integer id found in a MeshID snapshot
// column back to its handle.
func (s *AssetServer) MeshByID(id int32) (Mesh, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.meshHandles[id]
	return m, ok
}

// MaterialByID resolves a MaterialID snapshot value back to its handle.
func (s *AssetServer) MaterialByID(id int32) (Material, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.matHandles[id]
	return m, ok
}

func (s *AssetServer) MeshAsset(m Mesh) (*MeshAsset, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.meshes[m.assetId]
	return a, ok
}

func (s *AssetServer) MaterialAsset(m Material) (*MaterialAsset, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.materials[m.assetId]
	return a, ok
}
