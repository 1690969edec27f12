package gpudriven

// ProcessorBuilder assembles a Processor and its collaborators. A zero
// builder yields a working Processor over a fresh in-memory store, a
// no-op logger and an empty filter list.
type ProcessorBuilder struct {
	log              Logger
	store            *Store
	partialRendering bool
	materialFilters  bool
	filterEntries    []FilterEntry
}

func NewProcessorBuilder() *ProcessorBuilder {
	return &ProcessorBuilder{}
}

func (b *ProcessorBuilder) UseLogger(log Logger) *ProcessorBuilder {
	b.log = log
	return b
}

func (b *ProcessorBuilder) UseStore(store *Store) *ProcessorBuilder {
	b.store = store
	return b
}

func (b *ProcessorBuilder) UsePartialRendering(enabled bool) *ProcessorBuilder {
	b.partialRendering = enabled
	return b
}

// UseMaterialFilters enables filter evaluation and seeds the registry.
func (b *ProcessorBuilder) UseMaterialFilters(entries ...FilterEntry) *ProcessorBuilder {
	b.materialFilters = true
	b.filterEntries = append(b.filterEntries, entries...)
	return b
}

func (b *ProcessorBuilder) Build() *Processor {
	log := orNopLogger(b.log)
	store := b.store
	if store == nil {
		store = NewStore(log, nil)
	}
	filters := NewFilterRegistry(log)
	if len(b.filterEntries) > 0 {
		filters.AddFilters(b.filterEntries)
	}
	return &Processor{
		log:                    log,
		store:                  store,
		filters:                filters,
		partialRendering:       b.partialRendering,
		materialFiltersEnabled: b.materialFilters,
		enabled:                make(map[RendererGroupId]struct{}),
	}
}
