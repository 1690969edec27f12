package gpudriven

import (
	"fmt"
	"sync/atomic"
)

// SafetyScope bounds the validity window of the column views handed to a
// dispatch callback. The provider creates one scope per dispatch and
// releases it exactly once after the callback returns; column accesses
// after release panic instead of reading freed provider memory.
type SafetyScope struct {
	label    string
	released atomic.Bool
}

func newSafetyScope(label string) *SafetyScope {
	return &SafetyScope{label: label}
}

// Release invalidates the scope. Only the first call has an effect;
// it reports whether this call was the one that released.
func (s *SafetyScope) Release() bool {
	return s.released.CompareAndSwap(false, true)
}

func (s *SafetyScope) Valid() bool {
	return !s.released.Load()
}

func (s *SafetyScope) check() {
	if s.released.Load() {
		panic(fmt.Sprintf("gpudriven: column of %s accessed outside its dispatch scope", s.label))
	}
}
