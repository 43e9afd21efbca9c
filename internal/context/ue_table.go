package context

import (
	"sync"

	"distributed-unit/internal/context/uecontext"
	"distributed-unit/pkg/f1ap"
)

type UeBuilder func(index f1ap.DuUeIndex, duUeId f1ap.GnbDuUeF1apId) *uecontext.UeContext

// UeTable indexes the live UE contexts by UE index, DU id and CU id. The DU
// and CU indexes never hold more than one live context per id.
type UeTable struct {
	mu        sync.RWMutex
	maxUes    int
	ues       map[f1ap.DuUeIndex]*uecontext.UeContext
	byDuId    map[f1ap.GnbDuUeF1apId]*uecontext.UeContext
	byCuId    map[f1ap.GnbCuUeF1apId]*uecontext.UeContext
	nextDuId  f1ap.GnbDuUeF1apId
	nextIndex f1ap.DuUeIndex
}

func NewUeTable(maxUes int) *UeTable {
	if maxUes <= 0 || maxUes > int(f1ap.InvalidDuUeIndex) {
		maxUes = int(f1ap.InvalidDuUeIndex)
	}
	return &UeTable{
		maxUes: maxUes,
		ues:    make(map[f1ap.DuUeIndex]*uecontext.UeContext),
		byDuId: make(map[f1ap.GnbDuUeF1apId]*uecontext.UeContext),
		byCuId: make(map[f1ap.GnbCuUeF1apId]*uecontext.UeContext),
	}
}

// AllocateDuId returns a DU id not held by any live context. The id is not
// reserved; Add allocates and inserts atomically.
func (t *UeTable) AllocateDuId() (f1ap.GnbDuUeF1apId, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	id, err := t.allocateDuIdLocked()
	if err == nil {
		t.nextDuId = id + 1
	}
	return id, err
}

func (t *UeTable) allocateDuIdLocked() (f1ap.GnbDuUeF1apId, error) {
	if len(t.ues) >= t.maxUes {
		return 0, ErrResourceExhausted
	}
	// at most len(t.byDuId) ids are skipped
	id := t.nextDuId
	for {
		if _, used := t.byDuId[id]; !used {
			return id, nil
		}
		id++ // wraps at MaxGnbDuUeF1apId
	}
}

func (t *UeTable) allocateIndexLocked() f1ap.DuUeIndex {
	idx := t.nextIndex
	for {
		if int(idx) >= t.maxUes {
			idx = 0
		}
		if _, used := t.ues[idx]; !used {
			return idx
		}
		idx++
	}
}

// Add allocates a UE index and DU id and inserts the context built from them.
func (t *UeTable) Add(build UeBuilder) (*uecontext.UeContext, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.addLocked(build)
}

func (t *UeTable) addLocked(build UeBuilder) (*uecontext.UeContext, error) {
	duId, err := t.allocateDuIdLocked()
	if err != nil {
		return nil, err
	}
	idx := t.allocateIndexLocked()
	ue := build(idx, duId)
	t.ues[idx] = ue
	t.byDuId[duId] = ue
	t.nextDuId = duId + 1
	t.nextIndex = idx + 1
	return ue, nil
}

type resolveResult struct {
	ue      *uecontext.UeContext
	created bool
	learned bool
}

// resolve maps the ids of an inbound UE-associated message onto a context,
// creating one when duId is absent. oldDuId names the context whose CU id the
// message may legitimately reuse.
func (t *UeTable) resolve(duId *f1ap.GnbDuUeF1apId, cuId f1ap.GnbCuUeF1apId, oldDuId *f1ap.GnbDuUeF1apId,
	build UeBuilder) (resolveResult, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if duId == nil {
		if other := t.byCuId[cuId]; other != nil {
			return resolveResult{}, &RoutingError{
				Kind:   IdMismatch,
				CuUeId: &cuId,
				Cause:  f1ap.RadioNetworkCause(f1ap.CauseRadioNetworkUnknownOrAlreadyAllocatedGnbCuUeF1apId),
			}
		}
		ue, err := t.addLocked(build)
		if err != nil {
			return resolveResult{}, err
		}
		ue.SetCuUeId(cuId)
		t.byCuId[cuId] = ue
		return resolveResult{ue: ue, created: true}, nil
	}

	ue := t.byDuId[*duId]
	if ue == nil {
		return resolveResult{}, &RoutingError{
			Kind:   UnknownDuId,
			DuUeId: duId,
			CuUeId: &cuId,
			Cause:  f1ap.RadioNetworkCause(f1ap.CauseRadioNetworkUnknownOrAlreadyAllocatedGnbDuUeF1apId),
		}
	}
	if recorded, known := ue.CuUeId(); known {
		if recorded != cuId {
			return resolveResult{}, &RoutingError{
				Kind:   IdMismatch,
				DuUeId: duId,
				CuUeId: &cuId,
				Cause:  f1ap.RadioNetworkCause(f1ap.CauseRadioNetworkUnknownOrInconsistentPairOfUeF1apId),
			}
		}
		return resolveResult{ue: ue}, nil
	}

	if other := t.byCuId[cuId]; other != nil && other != ue {
		reused := oldDuId != nil && t.byDuId[*oldDuId] == other
		if !reused {
			return resolveResult{}, &RoutingError{
				Kind:   IdMismatch,
				DuUeId: duId,
				CuUeId: &cuId,
				Cause:  f1ap.RadioNetworkCause(f1ap.CauseRadioNetworkUnknownOrAlreadyAllocatedGnbCuUeF1apId),
			}
		}
	}
	ue.SetCuUeId(cuId)
	t.byCuId[cuId] = ue
	return resolveResult{ue: ue, learned: true}, nil
}

// Remove drops every index entry still pointing at ue.
func (t *UeTable) Remove(ue *uecontext.UeContext) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.ues[ue.Index] == ue {
		delete(t.ues, ue.Index)
	}
	if t.byDuId[ue.DuUeId] == ue {
		delete(t.byDuId, ue.DuUeId)
	}
	if cu, known := ue.CuUeId(); known && t.byCuId[cu] == ue {
		delete(t.byCuId, cu)
	}
}

func (t *UeTable) FindByIndex(idx f1ap.DuUeIndex) *uecontext.UeContext {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.ues[idx]
}

func (t *UeTable) FindByDuId(id f1ap.GnbDuUeF1apId) *uecontext.UeContext {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.byDuId[id]
}

func (t *UeTable) FindByCuId(id f1ap.GnbCuUeF1apId) *uecontext.UeContext {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.byCuId[id]
}

func (t *UeTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.ues)
}

func (t *UeTable) All() []*uecontext.UeContext {
	t.mu.RLock()
	defer t.mu.RUnlock()
	all := make([]*uecontext.UeContext, 0, len(t.ues))
	for _, ue := range t.ues {
		all = append(all, ue)
	}
	return all
}
