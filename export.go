package gpudriven

import (
	"github.com/go-gl/mathgl/mgl32"
)

// The export path packs provider records into flat, per-column arrays
// and delivers them through a synchronous callback. The store mutex is
// held while packing but never across the callback; the SafetyScope
// attached to every column is released the moment the callback returns,
// even if it panics.

func (p *Processor) dispatchRendererData(ids []RendererGroupId, cb RendererDataCallback) {
	if cb == nil {
		panic("gpudriven: renderer data dispatch requires a callback")
	}

	// Shared scratch lists: cleared at the start of every call,
	// repopulated during packing. Only valid inside the callback.
	p.scratchMeshes = p.scratchMeshes[:0]
	p.scratchMaterials = p.scratchMaterials[:0]

	s := p.store
	s.mu.Lock()

	// Request order is kept; duplicates in the request produce
	// duplicate rows rather than being deduplicated.
	var (
		valid   []*rendererGroupRecord
		invalid []RendererGroupId
	)
	for _, id := range ids {
		rec, ok := s.groups[id]
		if !ok || !p.managed(id) {
			invalid = append(invalid, id)
			continue
		}
		valid = append(valid, rec)
	}

	rows := len(valid)
	oneToOne := true
	totalInstances := 0
	for _, rec := range valid {
		if len(rec.instances) != 1 {
			oneToOne = false
		}
		totalInstances += len(rec.instances)
	}

	groupIDs := make([]RendererGroupId, rows)
	bounds := make([]Bounds, rows)
	lightmapSO := make([]mgl32.Vec4, rows)
	layers := make([]int32, rows)
	renderingMasks := make([]uint32, rows)
	lodGroupIDs := make([]LODGroupId, rows)
	lightmapIndices := make([]int32, rows)
	packed := make([]PackedFlags, rows)
	priorities := make([]int32, rows)
	meshIndices := make([]int32, rows)
	subMeshStarts := make([]int32, rows)
	materialsOffsets := make([]int32, rows)
	materialsCounts := make([]int32, rows)

	// Instance range columns stay empty in 1:1 mode, where the group
	// row index doubles as the instance index.
	var instancesOffsets, instancesCounts []int32
	if !oneToOne {
		instancesOffsets = make([]int32, rows)
		instancesCounts = make([]int32, rows)
	}

	var (
		meshIDs        []int32
		subMeshCounts  []int32
		subMeshOffsets []int32
		subMeshDescs   []SubMeshDesc

		materialIDs   []int32
		materialFlags []uint32
		transparent   []bool
		motionVecs    []bool
		materialIndex []int32
	)
	localToWorld := make([]mgl32.Mat4, 0, totalInstances)
	prevLocalToWorld := make([]mgl32.Mat4, 0, totalInstances)
	groupIndex := make([]int32, 0, totalInstances)

	meshSlot := make(map[int32]int32)
	matSlot := make(map[int32]int32)

	for i, rec := range valid {
		groupIDs[i] = rec.id
		bounds[i] = rec.bounds
		lightmapSO[i] = rec.lightmapScaleOffset
		layers[i] = rec.layer
		renderingMasks[i] = rec.renderingLayerMask
		lodGroupIDs[i] = rec.lodGroup
		lightmapIndices[i] = rec.lightmapIndex
		packed[i] = rec.packed
		priorities[i] = rec.priority
		subMeshStarts[i] = rec.subMeshStartIndex

		mi, seen := meshSlot[rec.mesh.id]
		if !seen {
			mi = int32(len(meshIDs))
			meshSlot[rec.mesh.id] = mi
			meshIDs = append(meshIDs, rec.mesh.id)
			subMeshOffsets = append(subMeshOffsets, int32(len(subMeshDescs)))
			if asset, found := s.assets.MeshAsset(rec.mesh); found {
				subMeshCounts = append(subMeshCounts, int32(len(asset.subMeshes)))
				subMeshDescs = append(subMeshDescs, asset.subMeshes...)
			} else {
				subMeshCounts = append(subMeshCounts, 0)
			}
			p.scratchMeshes = append(p.scratchMeshes, rec.mesh)
		}
		meshIndices[i] = mi

		materialsOffsets[i] = int32(len(materialIndex))
		materialsCounts[i] = int32(len(rec.materials))
		for _, mat := range rec.materials {
			slot, seen := matSlot[mat.id]
			if !seen {
				slot = int32(len(materialIDs))
				matSlot[mat.id] = slot
				materialIDs = append(materialIDs, mat.id)
				var flags uint32
				var isTransparent, motion bool
				if asset, found := s.assets.MaterialAsset(mat); found {
					if p.materialFiltersEnabled {
						flags = p.filters.FilterFlags(asset)
					}
					isTransparent = asset.transparent
					motion = asset.motionVectorsPass
				}
				materialFlags = append(materialFlags, flags)
				transparent = append(transparent, isTransparent)
				motionVecs = append(motionVecs, motion)
				p.scratchMaterials = append(p.scratchMaterials, mat)
			}
			materialIndex = append(materialIndex, slot)
		}

		if !oneToOne {
			instancesOffsets[i] = int32(len(localToWorld))
			instancesCounts[i] = int32(len(rec.instances))
		}
		for _, instId := range rec.instances {
			inst := s.instances[instId]
			localToWorld = append(localToWorld, inst.localToWorld)
			prevLocalToWorld = append(prevLocalToWorld, inst.prevLocalToWorld)
			groupIndex = append(groupIndex, int32(i))
		}
	}
	s.mu.Unlock()

	scope := newSafetyScope("renderer group data")
	defer scope.Release()

	data := &RendererGroupData{
		GroupID:             columnOf(groupIDs, scope),
		Bounds:              columnOf(bounds, scope),
		LightmapScaleOffset: columnOf(lightmapSO, scope),
		Layer:               columnOf(layers, scope),
		RenderingLayerMask:  columnOf(renderingMasks, scope),
		LODGroupID:          columnOf(lodGroupIDs, scope),
		LightmapIndex:       columnOf(lightmapIndices, scope),
		PackedFlags:         columnOf(packed, scope),
		Priority:            columnOf(priorities, scope),
		MeshIndex:           columnOf(meshIndices, scope),
		SubMeshStartIndex:   columnOf(subMeshStarts, scope),
		MaterialsOffset:     columnOf(materialsOffsets, scope),
		MaterialsCount:      columnOf(materialsCounts, scope),
		InstancesOffset:     columnOf(instancesOffsets, scope),
		InstancesCount:      columnOf(instancesCounts, scope),

		MeshID:            columnOf(meshIDs, scope),
		SubMeshCount:      columnOf(subMeshCounts, scope),
		SubMeshDescOffset: columnOf(subMeshOffsets, scope),
		SubMeshDesc:       columnOf(subMeshDescs, scope),

		MaterialID:            columnOf(materialIDs, scope),
		MaterialFilterFlags:   columnOf(materialFlags, scope),
		IsTransparent:         columnOf(transparent, scope),
		MotionVecsPassEnabled: columnOf(motionVecs, scope),
		MaterialIndex:         columnOf(materialIndex, scope),

		LocalToWorld:       columnOf(localToWorld, scope),
		PrevLocalToWorld:   columnOf(prevLocalToWorld, scope),
		RendererGroupIndex: columnOf(groupIndex, scope),

		InvalidRendererGroupID: columnOf(invalid, scope),
	}

	cb(data, p.scratchMeshes, p.scratchMaterials)
}

func (p *Processor) dispatchLODGroupData(ids []LODGroupId, cb LODGroupDataCallback) {
	if cb == nil {
		panic("gpudriven: LOD group data dispatch requires a callback")
	}

	s := p.store
	s.mu.Lock()

	var (
		valid   []*lodGroupRecord
		invalid []LODGroupId
	)
	for _, id := range ids {
		rec, ok := s.lodGroups[id]
		if !ok {
			invalid = append(invalid, id)
			continue
		}
		valid = append(valid, rec)
	}

	rows := len(valid)
	lodGroupIDs := make([]LODGroupId, rows)
	lodOffsets := make([]int32, rows)
	lodCounts := make([]int32, rows)
	fadeModes := make([]LODFadeMode, rows)
	refPoints := make([]mgl32.Vec3, rows)
	sizes := make([]float32, rows)
	rendererCounts := make([]int32, rows)
	lastBillboard := make([]bool, rows)

	var (
		levelRendererCounts []int32
		transitionHeights   []float32
		fadeWidths          []float32
	)

	for i, rec := range valid {
		lodGroupIDs[i] = rec.id
		lodOffsets[i] = int32(len(levelRendererCounts))
		lodCounts[i] = int32(len(rec.levels))
		fadeModes[i] = rec.fadeMode
		refPoints[i] = rec.refPoint
		sizes[i] = rec.size
		rendererCounts[i] = rec.rendererCount
		lastBillboard[i] = rec.lastIsBillboard
		for _, lv := range rec.levels {
			levelRendererCounts = append(levelRendererCounts, lv.RendererCount)
			transitionHeights = append(transitionHeights, lv.ScreenRelativeTransitionHeight)
			fadeWidths = append(fadeWidths, lv.FadeTransitionWidth)
		}
	}
	s.mu.Unlock()

	scope := newSafetyScope("LOD group data")
	defer scope.Release()

	data := &LODGroupData{
		LodGroupID:               columnOf(lodGroupIDs, scope),
		LodOffset:                columnOf(lodOffsets, scope),
		LodCount:                 columnOf(lodCounts, scope),
		FadeMode:                 columnOf(fadeModes, scope),
		WorldSpaceReferencePoint: columnOf(refPoints, scope),
		WorldSpaceSize:           columnOf(sizes, scope),
		RenderersCount:           columnOf(rendererCounts, scope),
		LastLODIsBillboard:       columnOf(lastBillboard, scope),

		LodRenderersCount:              columnOf(levelRendererCounts, scope),
		ScreenRelativeTransitionHeight: columnOf(transitionHeights, scope),
		FadeTransitionWidth:            columnOf(fadeWidths, scope),

		InvalidLODGroupID: columnOf(invalid, scope),
	}

	cb(data)
}

func (p *Processor) dispatchWindData(rendererIDs []RendererGroupId, instanceIDs []InstanceId, history bool, cb WindDataCallback) {
	if cb == nil {
		panic("gpudriven: wind data dispatch requires a callback")
	}

	s := p.store
	s.mu.Lock()

	// Unlike the renderer and LOD dispatches there is no invalid-id
	// list here: unresolvable renderer groups and instances, and
	// instances without a wind sample for the requested frame, are
	// silently omitted.
	candidates := make([]InstanceId, 0, len(instanceIDs))
	for _, rid := range rendererIDs {
		if rec, ok := s.groups[rid]; ok {
			candidates = append(candidates, rec.instances...)
		}
	}
	candidates = append(candidates, instanceIDs...)

	var (
		instIds []InstanceId
		params  []WindParams
	)
	for _, id := range candidates {
		inst, ok := s.instances[id]
		if !ok || inst.wind == nil {
			continue
		}
		sample := inst.wind.Sample(history)
		if sample == nil {
			continue
		}
		instIds = append(instIds, id)
		params = append(params, *sample)
	}
	s.mu.Unlock()

	n := len(params)
	global := make([]mgl32.Vec4, n)
	branch := make([]mgl32.Vec4, n)
	branchTwitch := make([]mgl32.Vec4, n)
	branchWhip := make([]mgl32.Vec4, n)
	branchAnchor := make([]mgl32.Vec4, n)
	branchAdherences := make([]mgl32.Vec4, n)
	turbulences := make([]mgl32.Vec4, n)
	leaf1Ripple := make([]mgl32.Vec4, n)
	leaf1Tumble := make([]mgl32.Vec4, n)
	leaf1Twitch := make([]mgl32.Vec4, n)
	leaf2Ripple := make([]mgl32.Vec4, n)
	leaf2Tumble := make([]mgl32.Vec4, n)
	leaf2Twitch := make([]mgl32.Vec4, n)
	frondRipple := make([]mgl32.Vec4, n)
	animation := make([]mgl32.Vec4, n)
	for i, w := range params {
		global[i] = w.Global
		branch[i] = w.Branch
		branchTwitch[i] = w.BranchTwitch
		branchWhip[i] = w.BranchWhip
		branchAnchor[i] = w.BranchAnchor
		branchAdherences[i] = w.BranchAdherences
		turbulences[i] = w.Turbulences
		leaf1Ripple[i] = w.Leaf1Ripple
		leaf1Tumble[i] = w.Leaf1Tumble
		leaf1Twitch[i] = w.Leaf1Twitch
		leaf2Ripple[i] = w.Leaf2Ripple
		leaf2Tumble[i] = w.Leaf2Tumble
		leaf2Twitch[i] = w.Leaf2Twitch
		frondRipple[i] = w.FrondRipple
		animation[i] = w.Animation
	}

	scope := newSafetyScope("wind animation data")
	defer scope.Release()

	data := &WindData{
		History:    history,
		InstanceID: columnOf(instIds, scope),

		Global:           columnOf(global, scope),
		Branch:           columnOf(branch, scope),
		BranchTwitch:     columnOf(branchTwitch, scope),
		BranchWhip:       columnOf(branchWhip, scope),
		BranchAnchor:     columnOf(branchAnchor, scope),
		BranchAdherences: columnOf(branchAdherences, scope),
		Turbulences:      columnOf(turbulences, scope),
		Leaf1Ripple:      columnOf(leaf1Ripple, scope),
		Leaf1Tumble:      columnOf(leaf1Tumble, scope),
		Leaf1Twitch:      columnOf(leaf1Twitch, scope),
		Leaf2Ripple:      columnOf(leaf2Ripple, scope),
		Leaf2Tumble:      columnOf(leaf2Tumble, scope),
		Leaf2Twitch:      columnOf(leaf2Twitch, scope),
		FrondRipple:      columnOf(frondRipple, scope),
		Animation:        columnOf(animation, scope),
	}

	cb(data)
}
