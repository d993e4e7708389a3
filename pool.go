// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package pagemm

import (
	"sync"
	"sync/atomic"

	"code.hybscloud.com/iox"
	"code.hybscloud.com/spin"
	"go.uber.org/zap"
)

// slotSpinAttempts bounds how many times lockSlot spins before parking on
// the condition variable. Slot hold times are a handful of memcpys, so a
// short spin usually wins over the cost of a park/wake round trip.
const slotSpinAttempts = 64

// PoolStat is a snapshot of one pool's bookkeeping counters. Each counter
// is read atomically on its own; the four are not read together as one
// consistent unit.
type PoolStat struct {
	BlockSize  int
	NumBlocks  int
	Used       int64
	Locked     int64
	Swapped    int64
	SwapLevels int64
}

type poolCounters struct {
	used       atomic.Int64
	locked     atomic.Int64
	swapped    atomic.Int64
	swapLevels atomic.Int64
}

// pool is the size-class allocator: one contiguous buffer, a free list
// threaded through a side index array, a per-slot lock vector guarded by a
// mutex+condvar, a swap table, and an eviction queue.
//
// Lock order, outermost first: poolMutex -> slotMu (for the slot under
// acquire/free) -> swapMu -> a swaplevel's own internal mutex.
type pool struct {
	_ noCopy

	blockSize int
	numBlocks int
	buf       []byte

	poolMutex sync.Mutex
	next      []int32 // free list side array; -1 is the sentinel
	freeHead  int32

	slotMu   sync.Mutex
	slotCond *sync.Cond
	locked   []bool

	swapMu sync.Mutex
	table  *swapTable

	// swapQueue: FIFO of every slot ever made non-free, re-enqueued on
	// every acquire. Guarded by poolMutex (acquire/release already hold
	// it for the whole call).
	queue     []int
	queueHead int

	stat poolCounters

	logger *zap.Logger
}

func newPool(numBlocks, blockSize int, swapDir string, logger *zap.Logger) (*pool, error) {
	// Page-align the RAM level's backing buffer so the kernel can reclaim
	// or swap it out a whole page at a time instead of splitting a
	// pool's arena across partial pages it shares with unrelated data.
	buf := AlignedMem(numBlocks*blockSize, PageSize)
	next := make([]int32, numBlocks)
	for i := 0; i < numBlocks-1; i++ {
		next[i] = int32(i + 1)
	}
	next[numBlocks-1] = -1

	table, err := newSwapTable(buf, numBlocks, blockSize, swapDir)
	if err != nil {
		return nil, err
	}

	p := &pool{
		blockSize: blockSize,
		numBlocks: numBlocks,
		buf:       buf,
		next:      next,
		freeHead:  0,
		locked:    make([]bool, numBlocks),
		table:     table,
		logger:    logger,
	}
	p.slotCond = sync.NewCond(&p.slotMu)
	return p, nil
}

func (p *pool) enqueue(slot int) {
	p.queue = append(p.queue, slot)
	if p.queueHead > 1024 && p.queueHead*2 > len(p.queue) {
		p.queue = append(p.queue[:0], p.queue[p.queueHead:]...)
		p.queueHead = 0
	}
}

func (p *pool) dequeue() (int, bool) {
	if p.queueHead >= len(p.queue) {
		return 0, false
	}
	slot := p.queue[p.queueHead]
	p.queueHead++
	return slot, true
}

// lockSlot and unlockSlot implement block-level mutual exclusion: a single
// mutex+condvar guarding locked[], shared by Handle.Lock/Unlock and by
// acquire's eviction path (which locks the victim slot to keep a
// concurrent Handle.Lock off it). A short spin phase precedes the park,
// trying cheaply before paying for a condvar wait. They are purely
// mechanical: the user-facing Locked stat is bumped by Handle.Lock/Unlock
// instead, so an internal eviction lock doesn't pollute it.
func (p *pool) lockSlot(slot int) {
	if p.tryLockSlot(slot) {
		return
	}
	var sw spin.Wait
	for i := 0; i < slotSpinAttempts; i++ {
		if p.tryLockSlot(slot) {
			return
		}
		sw.Once()
	}

	p.slotMu.Lock()
	for p.locked[slot] {
		p.slotCond.Wait()
	}
	p.locked[slot] = true
	p.slotMu.Unlock()
}

// tryLockSlot acquires the slot without blocking, reporting whether it
// succeeded.
func (p *pool) tryLockSlot(slot int) bool {
	p.slotMu.Lock()
	defer p.slotMu.Unlock()
	if p.locked[slot] {
		return false
	}
	p.locked[slot] = true
	return true
}

func (p *pool) unlockSlot(slot int) {
	p.slotMu.Lock()
	p.locked[slot] = false
	p.slotCond.Broadcast()
	p.slotMu.Unlock()
}

// acquire returns a fresh handle for size bytes, drawn from this pool's
// size class. poolMutex is held for the whole call, so concurrent
// acquire/release calls on this pool are totally ordered; Handle.Lock
// never takes poolMutex and so proceeds independently on other slots.
func (p *pool) acquire(size int) (Handle, error) {
	p.poolMutex.Lock()
	defer p.poolMutex.Unlock()

	if p.freeHead >= 0 {
		slot := int(p.freeHead)
		p.freeHead = p.next[slot]
		p.table.markAllocated(slot, directID)
		p.stat.used.Add(1)
		p.enqueue(slot)
		return p.newHandle(slot, directID, size), nil
	}

	victim, ok := p.dequeue()
	if !ok {
		victim = 0
	}

	p.lockSlot(victim)
	newID, err := p.evictVictim(victim)
	p.unlockSlot(victim)
	if err != nil {
		return Handle{}, err
	}

	p.enqueue(victim)
	return p.newHandle(victim, newID, size), nil
}

// tryAcquire is the non-blocking counterpart to acquire: it never parks on
// a locked victim slot, returning iox.ErrWouldBlock instead so a caller can
// retry elsewhere.
func (p *pool) tryAcquire(size int) (Handle, error) {
	p.poolMutex.Lock()
	defer p.poolMutex.Unlock()

	if p.freeHead >= 0 {
		slot := int(p.freeHead)
		p.freeHead = p.next[slot]
		p.table.markAllocated(slot, directID)
		p.stat.used.Add(1)
		p.enqueue(slot)
		return p.newHandle(slot, directID, size), nil
	}

	victim, ok := p.dequeue()
	if !ok {
		victim = 0
	}
	if !p.tryLockSlot(victim) {
		return Handle{}, iox.ErrWouldBlock
	}
	newID, err := p.evictVictim(victim)
	p.unlockSlot(victim)
	if err != nil {
		return Handle{}, err
	}

	p.enqueue(victim)
	return p.newHandle(victim, newID, size), nil
}

func (p *pool) evictVictim(slot int) (occupantID, error) {
	p.swapMu.Lock()
	defer p.swapMu.Unlock()

	id, err := p.table.evict(slot)
	if err != nil {
		return 0, err
	}
	p.table.markAllocated(slot, id)
	p.stat.swapped.Add(1)
	p.stat.swapLevels.Store(int64(p.table.numLevels() - 1))
	return id, nil
}

func (p *pool) newHandle(slot int, id occupantID, size int) Handle {
	sentinel := &leakSentinel{pool: p, slot: slot, id: id}
	installLeakFinalizer(sentinel, p.logger)
	return Handle{
		pool:     p,
		slot:     slot,
		id:       id,
		capacity: p.blockSize,
		size:     size,
		alive:    true,
		sentinel: sentinel,
	}
}

// release is called by Handle.Free. It implements a three-way branch: a
// disk-resident block just loses its swap-table entry; the RAM
// occupant with a swapped tail hands the slot to the promoted tail; the
// RAM occupant with no tail returns the slot to the free list.
func (p *pool) release(slot int, id occupantID) error {
	p.poolMutex.Lock()
	defer p.poolMutex.Unlock()

	p.lockSlot(slot)
	defer p.unlockSlot(slot)

	p.swapMu.Lock()
	defer p.swapMu.Unlock()

	if !p.table.inRam(slot, id) {
		p.table.markFreed(slot, id)
		p.stat.swapped.Add(-1)
		return nil
	}

	if p.table.hasSwapped(slot) {
		if err := p.table.returnTailToRam(slot); err != nil {
			return err
		}
		p.stat.swapped.Add(-1)
		return nil
	}

	p.next[slot] = p.freeHead
	p.freeHead = int32(slot)
	p.table.markFreed(slot, id)
	p.stat.used.Add(-1)
	return nil
}

func (p *pool) stats() PoolStat {
	return PoolStat{
		BlockSize:  p.blockSize,
		NumBlocks:  p.numBlocks,
		Used:       p.stat.used.Load(),
		Locked:     p.stat.locked.Load(),
		Swapped:    p.stat.swapped.Load(),
		SwapLevels: p.stat.swapLevels.Load(),
	}
}

func (p *pool) close() error {
	return p.table.close()
}
