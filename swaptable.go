// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package pagemm

// swapTable tracks, for one pool, which logical block occupies each level
// of each slot, and orchestrates movement between levels. levels[0] is
// always the RAM level; levels[1:] are disk levels, grown on demand up to
// MaxSwapLevel+1.
type swapTable struct {
	levels    []swapLevel
	numBlocks int
	blockSize int
	swapDir   string

	scratch *scratchPool
}

// scratchPoolCapacity bounds how many scratch buffers a pool keeps for
// lending; a swap borrows two and a tail promotion one, so a handful
// comfortably covers typical victim-eviction concurrency without wasting
// much memory on idle pools.
const scratchPoolCapacity = 8

func newSwapTable(buf []byte, numBlocks, blockSize int, swapDir string) (*swapTable, error) {
	ram := newRAMLevel(buf, numBlocks, blockSize)
	disk1, err := newDiskLevel(swapDir, numBlocks, blockSize, 1)
	if err != nil {
		return nil, err
	}
	return &swapTable{
		levels:    []swapLevel{ram, disk1},
		numBlocks: numBlocks,
		blockSize: blockSize,
		swapDir:   swapDir,
		scratch:   newScratchPool(scratchPoolCapacity, blockSize),
	}, nil
}

// withScratch lends a blockSize-sized buffer from the scratch pool to fn,
// falling back to a direct allocation if every scratch slot is checked out
// (bursty eviction concurrency beyond scratchPoolCapacity).
func (t *swapTable) withScratch(fn func(buf []byte) error) error {
	t.scratch.SetNonblock(true)
	idx, err := t.scratch.Get()
	if err != nil {
		return fn(make([]byte, t.blockSize))
	}
	defer func() { _ = t.scratch.Put(idx) }()
	return fn(t.scratch.Value(idx))
}

func (t *swapTable) numLevels() int { return len(t.levels) }

// markAllocated records that slot's RAM level now holds id. Precondition:
// the RAM level at slot was empty.
func (t *swapTable) markAllocated(slot int, id occupantID) {
	t.levels[0].setID(slot, id)
}

// markFreed finds the level holding id at slot and clears it. Unlike
// findLevel, this never confuses "found at level 0" with "not found": id
// is guaranteed present at exactly one level by the caller's invariants,
// and violation of that is a bug worth aborting on.
func (t *swapTable) markFreed(slot int, id occupantID) {
	for k := range t.levels {
		if t.levels[k].id(slot) == id {
			t.levels[k].setID(slot, emptyID)
			return
		}
	}
	panic("pagemm: markFreed: id not present at slot")
}

// findLevel returns the level holding id at slot, or 0 if no level holds
// it. Callers that need to distinguish "found at RAM" from "not found"
// must use inRam/hasSwapped instead; this mirrors the ambiguity of the
// reference implementation's linear scan.
func (t *swapTable) findLevel(slot int, id occupantID) int {
	for k := range t.levels {
		if t.levels[k].id(slot) == id {
			return k
		}
	}
	return 0
}

// findEmptyLevel returns the first disk level (k >= 1) with a vacant slot,
// or -1 if none exists.
func (t *swapTable) findEmptyLevel(slot int) int {
	for k := 1; k < len(t.levels); k++ {
		if t.levels[k].id(slot) == emptyID {
			return k
		}
	}
	return -1
}

// findTailLevel returns the largest level with a non-zero id at slot, or
// 0 if no disk level holds a tenant there.
func (t *swapTable) findTailLevel(slot int) int {
	tail := 0
	for k := 1; k < len(t.levels); k++ {
		if t.levels[k].id(slot) != emptyID {
			tail = k
		}
	}
	return tail
}

func (t *swapTable) inRam(slot int, id occupantID) bool {
	return t.levels[0].id(slot) == id
}

func (t *swapTable) hasSwapped(slot int) bool {
	for k := 1; k < len(t.levels); k++ {
		if t.levels[k].id(slot) != emptyID {
			return true
		}
	}
	return false
}

// swap performs the three-way byte exchange between RAM and level k at
// slot, then exchanges their occupant ids. Requires k > 0. Level k may be
// empty: evict swaps into an empty level it just picked via findEmptyLevel
// or freshly appended, after which RAM's old (now-evicted) bytes sit at
// level k under their own id and RAM's id is emptyID until the caller
// assigns the new tenant an id from newUnusedID. loadIntoRam instead swaps
// in a level k that is known non-empty.
func (t *swapTable) swap(slot, k int) error {
	if k <= 0 {
		panic("pagemm: swap: invalid destination level")
	}
	err := t.withScratch(func(tmp []byte) error {
		if err := t.levels[k].readBlock(tmp, slot); err != nil {
			return err
		}
		return t.withScratch(func(ramBytes []byte) error {
			if err := t.levels[0].readBlock(ramBytes, slot); err != nil {
				return err
			}
			if err := t.levels[k].writeBlock(ramBytes, slot); err != nil {
				return err
			}
			return t.levels[0].writeBlock(tmp, slot)
		})
	})
	if err != nil {
		return err
	}
	ramID, kID := t.levels[0].id(slot), t.levels[k].id(slot)
	t.levels[0].setID(slot, kID)
	t.levels[k].setID(slot, ramID)
	return nil
}

// loadIntoRam ensures id's bytes are resident in RAM at slot, swapping
// them in from whichever disk level currently holds them if necessary.
func (t *swapTable) loadIntoRam(slot int, id occupantID) error {
	if t.inRam(slot, id) {
		return nil
	}
	k := t.findLevel(slot, id)
	if k == 0 {
		panic("pagemm: loadIntoRam: id not found at any level")
	}
	return t.swap(slot, k)
}

// evict moves slot's current RAM occupant to a disk level (growing the
// table if every existing disk level is occupied at slot) and returns a
// fresh occupant id the caller should assign to the new RAM tenant.
func (t *swapTable) evict(slot int) (occupantID, error) {
	if t.levels[0].id(slot) == emptyID {
		panic("pagemm: evict: ram slot already empty")
	}

	k := t.findEmptyLevel(slot)
	if k < 0 {
		if len(t.levels) > int(MaxSwapLevel) {
			return 0, ErrSlotExhausted
		}
		lvl, err := newDiskLevel(t.swapDir, t.numBlocks, t.blockSize, len(t.levels))
		if err != nil {
			return 0, err
		}
		t.levels = append(t.levels, lvl)
		k = len(t.levels) - 1
	}

	if err := t.swap(slot, k); err != nil {
		return 0, err
	}

	newID, ok := t.newUnusedID(slot)
	if !ok {
		return 0, ErrSlotExhausted
	}
	return newID, nil
}

// newUnusedID scans descending from MaxSwapLevel to 2 and returns the
// first id not currently present at any level of slot. The descending,
// index-ordered scan is what makes id assignment deterministic.
func (t *swapTable) newUnusedID(slot int) (occupantID, bool) {
	var used [256]bool
	for k := range t.levels {
		used[t.levels[k].id(slot)] = true
	}
	for id := int(MaxSwapLevel); id >= int(minSwapID); id-- {
		if !used[id] {
			return occupantID(id), true
		}
	}
	return 0, false
}

// returnTailToRam promotes the highest-indexed swapped tenant of slot
// back into RAM, vacating that disk level.
func (t *swapTable) returnTailToRam(slot int) error {
	tail := t.findTailLevel(slot)
	if tail == 0 {
		panic("pagemm: returnTailToRam: no swapped tenant at slot")
	}
	err := t.withScratch(func(buf []byte) error {
		if err := t.levels[tail].readBlock(buf, slot); err != nil {
			return err
		}
		return t.levels[0].writeBlock(buf, slot)
	})
	if err != nil {
		return err
	}
	t.levels[0].setID(slot, t.levels[tail].id(slot))
	t.levels[tail].setID(slot, emptyID)
	return nil
}

func (t *swapTable) close() error {
	var firstErr error
	for _, lvl := range t.levels {
		if err := lvl.close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
