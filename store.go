package gpudriven

import (
	"sync"

	"github.com/go-gl/mathgl/mgl32"
)

// RendererGroupId identifies one renderer group. The id space is
// partitioned: even ids are reserved for engine-native groups, odd ids
// for externally registered ones. The allocators below honor that
// contract.
type RendererGroupId int32

type LODGroupId int32

type InstanceId int32

// RendererGroupDesc is the authoritative state a renderer group is
// created from. Transforms holds one matrix per instance; leaving it
// empty creates a single identity-placed instance.
type RendererGroupDesc struct {
	Bounds              Bounds
	LightmapScaleOffset mgl32.Vec4
	Layer               int32
	RenderingLayerMask  uint32
	LODGroup            LODGroupId
	LightmapIndex       int32
	Flags               RendererFlags
	Priority            int32
	Mesh                Mesh
	SubMeshStartIndex   int32
	Materials           []Material
	Transforms          []mgl32.Mat4
}

// LODLevelDesc is one detail level of a LOD group.
type LODLevelDesc struct {
	RendererCount                  int32
	ScreenRelativeTransitionHeight float32
	FadeTransitionWidth            float32
}

type LODGroupDesc struct {
	FadeMode                 LODFadeMode
	WorldSpaceReferencePoint mgl32.Vec3
	WorldSpaceSize           float32
	RendererCount            int32
	LastLODIsBillboard       bool
	Levels                   []LODLevelDesc
}

type rendererGroupRecord struct {
	id                  RendererGroupId
	bounds              Bounds
	lightmapScaleOffset mgl32.Vec4
	layer               int32
	renderingLayerMask  uint32
	lodGroup            LODGroupId
	lightmapIndex       int32
	packed              PackedFlags
	priority            int32
	mesh                Mesh
	subMeshStartIndex   int32
	materials           []Material
	instances           []InstanceId
}

type instanceRecord struct {
	id               InstanceId
	group            RendererGroupId
	localToWorld     mgl32.Mat4
	prevLocalToWorld mgl32.Mat4
	wind             *windHistory
}

type lodGroupRecord struct {
	id              LODGroupId
	fadeMode        LODFadeMode
	refPoint        mgl32.Vec3
	size            float32
	rendererCount   int32
	lastIsBillboard bool
	levels          []LODLevelDesc
}

// Store is the provider-side authority the export protocol packs from.
// All mutating and resolving operations are guarded by one mutex; a
// dispatch holds it for the duration of packing only, never across the
// consumer callback.
type Store struct {
	log    Logger
	assets *AssetServer

	mu                sync.Mutex
	engineIdCounter   RendererGroupId
	externalIdCounter RendererGroupId
	lodIdCounter      LODGroupId
	instanceIdCounter InstanceId
	groups            map[RendererGroupId]*rendererGroupRecord
	lodGroups         map[LODGroupId]*lodGroupRecord
	instances         map[InstanceId]*instanceRecord
}

func NewStore(log Logger, assets *AssetServer) *Store {
	if assets == nil {
		assets = NewAssetServer()
	}
	return &Store{
		log:       orNopLogger(log),
		assets:    assets,
		groups:    make(map[RendererGroupId]*rendererGroupRecord),
		lodGroups: make(map[LODGroupId]*lodGroupRecord),
		instances: make(map[InstanceId]*instanceRecord),
	}
}

func (s *Store) Assets() *AssetServer { return s.assets }

// AddRendererGroup creates an engine-native group on an even id.
func (s *Store) AddRendererGroup(desc RendererGroupDesc) RendererGroupId {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.engineIdCounter += 2
	return s.insertGroup(s.engineIdCounter, desc)
}

// RegisterExternalGroup creates an externally owned group on an odd id.
func (s *Store) RegisterExternalGroup(desc RendererGroupDesc) RendererGroupId {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.externalIdCounter += 2
	return s.insertGroup(s.externalIdCounter-1, desc)
}

func (s *Store) insertGroup(id RendererGroupId, desc RendererGroupDesc) RendererGroupId {
	if desc.Mesh.id == 0 {
		panic("gpudriven: renderer group requires a registered mesh")
	}

	transforms := desc.Transforms
	if len(transforms) == 0 {
		transforms = []mgl32.Mat4{mgl32.Ident4()}
	}
	instances := make([]InstanceId, 0, len(transforms))
	for _, m := range transforms {
		s.instanceIdCounter++
		inst := &instanceRecord{
			id:               s.instanceIdCounter,
			group:            id,
			localToWorld:     m,
			prevLocalToWorld: m,
		}
		s.instances[inst.id] = inst
		instances = append(instances, inst.id)
	}

	s.groups[id] = &rendererGroupRecord{
		id:                  id,
		bounds:              desc.Bounds,
		lightmapScaleOffset: desc.LightmapScaleOffset,
		layer:               desc.Layer,
		renderingLayerMask:  desc.RenderingLayerMask,
		lodGroup:            desc.LODGroup,
		lightmapIndex:       desc.LightmapIndex,
		packed:              MakePackedFlags(desc.Flags),
		priority:            desc.Priority,
		mesh:                desc.Mesh,
		subMeshStartIndex:   desc.SubMeshStartIndex,
		materials:           append([]Material(nil), desc.Materials...),
		instances:           instances,
	}
	s.log.Debugf("renderer group %d added with %d instance(s)", id, len(instances))
	return id
}

// RemoveRendererGroup drops a group and its instances. Later dispatches
// naming the id report it as invalid.
func (s *Store) RemoveRendererGroup(id RendererGroupId) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.groups[id]
	if !ok {
		return false
	}
	for _, inst := range rec.instances {
		delete(s.instances, inst)
	}
	delete(s.groups, id)
	return true
}

func (s *Store) Contains(id RendererGroupId) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.groups[id]
	return ok
}

// InstanceIds returns the instance ids owned by a group, in row order.
func (s *Store) InstanceIds(id RendererGroupId) ([]InstanceId, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.groups[id]
	if !ok {
		return nil, false
	}
	return append([]InstanceId(nil), rec.instances...), true
}

// SetInstanceTransform installs a new current transform, keeping the
// old one as the previous-frame matrix for motion vector consumers.
func (s *Store) SetInstanceTransform(id InstanceId, localToWorld mgl32.Mat4) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	inst, ok := s.instances[id]
	if !ok {
		return false
	}
	inst.prevLocalToWorld = inst.localToWorld
	inst.localToWorld = localToWorld
	return true
}

// SetWindParams installs this frame's wind sample for an instance,
// rotating the prior sample into the history slot.
func (s *Store) SetWindParams(id InstanceId, params WindParams) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	inst, ok := s.instances[id]
	if !ok {
		return false
	}
	if inst.wind == nil {
		inst.wind = &windHistory{}
	}
	p := params
	inst.wind.Update(&p)
	return true
}

func (s *Store) AddLODGroup(desc LODGroupDesc) LODGroupId {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lodIdCounter++
	id := s.lodIdCounter
	s.lodGroups[id] = &lodGroupRecord{
		id:              id,
		fadeMode:        desc.FadeMode,
		refPoint:        desc.WorldSpaceReferencePoint,
		size:            desc.WorldSpaceSize,
		rendererCount:   desc.RendererCount,
		lastIsBillboard: desc.LastLODIsBillboard,
		levels:          append([]LODLevelDesc(nil), desc.Levels...),
	}
	return id
}

func (s *Store) RemoveLODGroup(id LODGroupId) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.lodGroups[id]; !ok {
		return false
	}
	delete(s.lodGroups, id)
	return true
}

func (s *Store) ContainsLODGroup(id LODGroupId) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.lodGroups[id]
	return ok
}
