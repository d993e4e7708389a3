// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package pagemm

import (
	"io"
	"sort"
	"sync"

	"code.hybscloud.com/pagemm/internal/statfmt"
)

// Allocator is a paged in-memory allocator backed by one pool per size
// class, each able to spill blocks to disk under memory pressure, taking
// victim slots in the order they were handed out. The zero value is not
// usable; construct with New or use the package-level singleton via
// Init/Default.
type Allocator struct {
	pools      []*pool   // ascending by blockSize
	blockSizes []int     // same order, for sort.SearchInts
	metrics    *allocatorMetrics
}

// New constructs a private Allocator from cfg. Most programs should use
// Init/Default instead; New exists for tests that need isolated instances
// running concurrently.
func New(cfg Config) (*Allocator, error) {
	cfg = cfg.withDefaults()
	if len(cfg.BlockSizes) == 0 {
		return nil, ErrBudgetTooSmall
	}

	sizes := append([]int(nil), cfg.BlockSizes...)
	sort.Ints(sizes)

	var packSize int64
	for _, bs := range sizes {
		packSize += int64(bs)
	}
	numBlocks := int(cfg.MemoryBudget / packSize)
	if numBlocks < 1 {
		return nil, ErrBudgetTooSmall
	}

	a := &Allocator{blockSizes: sizes}
	for _, bs := range sizes {
		p, err := newPool(numBlocks, bs, cfg.SwapDir, cfg.Logger)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.pools = append(a.pools, p)
	}

	if cfg.MetricsRegisterer != nil {
		a.metrics = newAllocatorMetrics(cfg.MetricsRegisterer)
		a.metrics.observe(a.Stats())
	}

	return a, nil
}

// poolFor returns the narrowest pool whose blockSize is >= size, or nil if
// size exceeds every class.
func (a *Allocator) poolFor(size int) *pool {
	i := sort.SearchInts(a.blockSizes, size)
	if i == len(a.blockSizes) {
		return nil
	}
	return a.pools[i]
}

// Get returns a Handle to a block of at least size bytes, evicting an
// existing block from the same size class to disk if the class is full.
// Blocks until a victim slot becomes available for eviction.
func (a *Allocator) Get(size int) (Handle, error) {
	p := a.poolFor(size)
	if p == nil {
		return Handle{}, ErrTooLarge
	}
	return p.acquire(size)
}

// TryGet is the non-blocking counterpart to Get: instead of waiting for a
// locked victim slot to free up, it returns iox.ErrWouldBlock immediately.
func (a *Allocator) TryGet(size int) (Handle, error) {
	p := a.poolFor(size)
	if p == nil {
		return Handle{}, ErrTooLarge
	}
	return p.tryAcquire(size)
}

// MaxBlockSize returns the largest size class this allocator was
// configured with.
func (a *Allocator) MaxBlockSize() int {
	if len(a.blockSizes) == 0 {
		return 0
	}
	return a.blockSizes[len(a.blockSizes)-1]
}

// Stats returns a snapshot of every size class's counters, ascending by
// block size.
func (a *Allocator) Stats() []PoolStat {
	stats := make([]PoolStat, len(a.pools))
	for i, p := range a.pools {
		stats[i] = p.stats()
	}
	return stats
}

// PrintStatistics writes a human-readable table of every size class's
// counters to w.
func (a *Allocator) PrintStatistics(w io.Writer) error {
	if a.metrics != nil {
		a.metrics.observe(a.Stats())
	}
	rows := make([]statfmt.Row, len(a.pools))
	for i, s := range a.Stats() {
		rows[i] = statfmt.Row{
			BlockSize:  s.BlockSize,
			NumBlocks:  s.NumBlocks,
			Used:       s.Used,
			Locked:     s.Locked,
			Swapped:    s.Swapped,
			SwapLevels: s.SwapLevels,
		}
	}
	return statfmt.Write(w, rows)
}

// Close releases every size class's swap files. It does not wait for
// outstanding Handles; callers must ensure all Handles are freed first.
func (a *Allocator) Close() error {
	var firstErr error
	for _, p := range a.pools {
		if p == nil {
			continue
		}
		if err := p.close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

var (
	defaultMu    sync.Mutex
	defaultAlloc *Allocator
)

// Init constructs the process-wide default Allocator. It returns
// ErrAlreadyInitialized if called more than once; callers that need a
// fresh instance (tests, multiple allocators in one process) should use
// New instead.
func Init(cfg Config) error {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultAlloc != nil {
		return ErrAlreadyInitialized
	}
	a, err := New(cfg)
	if err != nil {
		return err
	}
	defaultAlloc = a
	return nil
}

// Default returns the process-wide Allocator configured by Init, or
// ErrNotInitialized if Init has not been called.
func Default() (*Allocator, error) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultAlloc == nil {
		return nil, ErrNotInitialized
	}
	return defaultAlloc, nil
}

// resetDefaultForTest drops the process-wide Allocator so tests can call
// Init again. Not exported.
func resetDefaultForTest() {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultAlloc = nil
}

// Get allocates from the process-wide default Allocator. See Init.
func Get(size int) (Handle, error) {
	a, err := Default()
	if err != nil {
		return Handle{}, err
	}
	return a.Get(size)
}

// MaxBlockSize reports the process-wide default Allocator's largest size
// class. See Init.
func MaxBlockSize() (int, error) {
	a, err := Default()
	if err != nil {
		return 0, err
	}
	return a.MaxBlockSize(), nil
}

// PrintStatistics writes the process-wide default Allocator's statistics
// table to w. See Init.
func PrintStatistics(w io.Writer) error {
	a, err := Default()
	if err != nil {
		return err
	}
	return a.PrintStatistics(w)
}
