// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package pagemm provides a paged in-memory allocator with multi-level disk
// swap for workloads that need fixed-size memory blocks backed by a bounded
// RAM budget, transparently spilling cold blocks to disk when that budget is
// exhausted.
//
// # Size Classes
//
// Blocks are drawn from a fixed ladder of size classes (by default 16, 32,
// 64, 128, 256, 512, 1024, 2048 and 4096 bytes). Get(size) routes to the
// smallest class that fits.
//
// # Pools and Swap Levels
//
// Each size class owns a Pool: a contiguous buffer of numBlocks*blockSize
// bytes, a free list threaded through a side index array, and a SwapTable.
// The SwapTable is an ordered stack of swap levels — level 0 aliases the
// pool's RAM buffer, levels 1..N are fixed-size disk files. When a pool runs
// out of free slots, Get evicts the oldest touched slot's RAM occupant to a
// disk level and hands the freed RAM slot to the new caller.
//
// # Handles
//
// Get returns a Handle: a capability for one logical block identified by
// (slot, occupant id). A Handle starts unlocked; Lock brings its bytes into
// RAM (swapping if necessary) and grants exclusive read/write access until
// Unlock. Free releases the logical block back to its pool.
//
// Usage pattern:
//
//	cfg := pagemm.Config{MemoryBudget: 64 << 20}
//	a, err := pagemm.New(cfg)
//	h, err := a.Get(100)
//	err = h.Lock()
//	b, _ := h.Data()
//	copy(b, payload)
//	h.Unlock()
//	h.Free()
//
// # Concurrency
//
// All Allocator, Pool and Handle operations are safe for concurrent use.
// Acquiring a block may block on pool-level bookkeeping, on a contended
// slot lock during eviction, or on disk I/O while the victim's bytes are
// moved to a swap level. Locking a handle never takes the pool-level
// bookkeeping mutex, but it waits on its own slot's lock and on the pool's
// swap mutex, which another slot's swap I/O may be holding.
//
// # Dependencies
//
// pagemm depends on:
//   - iox: semantic error types used for non-blocking control flow
//   - spin: spin-wait primitives used while parking on a contended slot
//   - zap: structured logging for diagnostics (lock/unlock no-ops, leaked
//     handles)
package pagemm
