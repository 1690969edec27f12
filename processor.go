package gpudriven

import "sync/atomic"

// Processor is the owning handle of the GPU-driven dispatch protocol.
// It tracks which renderer groups are GPU-driven-managed, owns the
// per-call scratch lists and the material filter registry, and exposes
// the three dispatch kinds.
//
// Every dispatch is a single blocking call: the callback runs
// synchronously on the calling thread and all delivered columns are
// invalidated when it returns. The Processor itself is not safe for
// concurrent use; in particular a dispatch must not race with filter
// mutation on another goroutine.
type Processor struct {
	log     Logger
	store   *Store
	filters *FilterRegistry

	partialRendering       bool
	materialFiltersEnabled bool

	enabled map[RendererGroupId]struct{}

	scratchMeshes    []Mesh
	scratchMaterials []Material

	closed atomic.Bool
}

func (p *Processor) guard(op string) {
	if p.closed.Load() {
		panic("gpudriven: " + op + " called on a closed Processor")
	}
}

func (p *Processor) managed(id RendererGroupId) bool {
	_, ok := p.enabled[id]
	return ok
}

// Store returns the provider store this Processor dispatches from.
func (p *Processor) Store() *Store { return p.store }

// EnableAndDispatch marks the given renderer groups as
// GPU-driven-managed and immediately performs one renderer data
// dispatch for them, so the consumer never observes an enabled group
// without an initial snapshot. Ids that do not resolve are reported via
// the snapshot's invalid-id column.
func (p *Processor) EnableAndDispatch(ids []RendererGroupId, cb RendererDataCallback) {
	p.guard("EnableAndDispatch")
	for _, id := range ids {
		if p.store.Contains(id) {
			p.enabled[id] = struct{}{}
		}
	}
	p.dispatchRendererData(ids, cb)
}

// Disable unmarks renderer groups. No data is produced and no
// invalid-id callback fires; the consumer evicts explicitly disabled
// groups by its own bookkeeping.
func (p *Processor) Disable(ids []RendererGroupId) {
	p.guard("Disable")
	for _, id := range ids {
		delete(p.enabled, id)
	}
}

// DispatchRendererData re-dispatches renderer group data for already
// managed ids. Ids that are unknown to the store, or present but not
// currently managed, are reported as invalid.
func (p *Processor) DispatchRendererData(ids []RendererGroupId, cb RendererDataCallback) {
	p.guard("DispatchRendererData")
	p.dispatchRendererData(ids, cb)
}

func (p *Processor) DispatchLODGroupData(ids []LODGroupId, cb LODGroupDataCallback) {
	p.guard("DispatchLODGroupData")
	p.dispatchLODGroupData(ids, cb)
}

// DispatchWindData delivers the wind sample of the requested frame
// (history false = current, true = previous) for the instances of the
// given renderer groups plus any explicitly named instances.
func (p *Processor) DispatchWindData(rendererIDs []RendererGroupId, instanceIDs []InstanceId, history bool, cb WindDataCallback) {
	p.guard("DispatchWindData")
	p.dispatchWindData(rendererIDs, instanceIDs, history, cb)
}

func (p *Processor) AddMaterialFilters(entries []FilterEntry) {
	p.guard("AddMaterialFilters")
	p.filters.AddFilters(entries)
}

func (p *Processor) ClearMaterialFilters() {
	p.guard("ClearMaterialFilters")
	p.filters.ClearFilters()
}

// MaterialFilterFlags evaluates the filter list against one material,
// regardless of the materialFiltersEnabled toggle. It is the same
// computation that populates the MaterialFilterFlags column during a
// renderer dispatch when the toggle is on.
func (p *Processor) MaterialFilterFlags(mat Material) uint32 {
	p.guard("MaterialFilterFlags")
	asset, ok := p.store.assets.MaterialAsset(mat)
	if !ok {
		return 0
	}
	return p.filters.FilterFlags(asset)
}

func (p *Processor) SetPartialRenderingEnabled(enabled bool) {
	p.guard("SetPartialRenderingEnabled")
	p.partialRendering = enabled
}

func (p *Processor) PartialRenderingEnabled() bool { return p.partialRendering }

func (p *Processor) SetMaterialFiltersEnabled(enabled bool) {
	p.guard("SetMaterialFiltersEnabled")
	p.materialFiltersEnabled = enabled
}

func (p *Processor) MaterialFiltersEnabled() bool { return p.materialFiltersEnabled }

// Close tears the handle down. Idempotent: only the first call has an
// effect. Any dispatch after Close panics rather than operating on a
// dead handle; there is no finalizer fallback, closing is the caller's
// job.
func (p *Processor) Close() {
	if !p.closed.CompareAndSwap(false, true) {
		return
	}
	p.enabled = nil
	p.scratchMeshes = nil
	p.scratchMaterials = nil
	p.log.Debugf("processor closed")
}
