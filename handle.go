// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package pagemm

import (
	"runtime"

	"go.uber.org/zap"
)

// Handle is a move-only reference to one logical block inside a pool. Go
// has no linear types, so move-only is emulated: Move() copies the fields
// into a new Handle and tombstones the receiver; any further use of a
// tombstoned Handle panics via panicUseAfterMove. Callers that only ever
// pass Handles by value and never keep the old binding around after a
// Move never observe the tombstone.
type Handle struct {
	pool     *pool
	slot     int
	id       occupantID
	capacity int
	size     int
	locked   bool
	alive    bool
	freed    bool
	sentinel *leakSentinel
}

// leakSentinel is the one heap object shared by reference across every
// Move() of a given logical block. Its finalizer fires only once every
// copy has become unreachable without a matching Free, which is exactly
// when the logical block has leaked.
type leakSentinel struct {
	pool *pool
	slot int
	id   occupantID
}

func installLeakFinalizer(s *leakSentinel, logger *zap.Logger) {
	runtime.SetFinalizer(s, func(s *leakSentinel) {
		if logger != nil {
			logger.Warn("pagemm: block leaked: never freed before becoming unreachable",
				zap.Int("slot", s.slot),
				zap.Int("blockSize", s.pool.blockSize),
				zap.Uint8("id", s.id),
			)
		}
	})
}

func (h *Handle) checkAlive() {
	if !h.alive {
		panicUseAfterMove()
	}
}

// Move transfers ownership of the underlying block to the returned Handle
// and tombstones the receiver. Any subsequent method call on h panics.
func (h *Handle) Move() Handle {
	h.checkAlive()
	moved := *h
	h.alive = false
	h.pool = nil
	h.sentinel = nil
	return moved
}

// Lock marks the block's slot as exclusively held, blocking a concurrent
// eviction or another Lock on the same slot until Unlock, then loads the
// block into RAM if a concurrent eviction had swapped it out. Lock never
// takes the owning pool's poolMutex, so it can proceed while another
// goroutine is inside that pool's Get. Once Lock returns, the bytes
// returned by Data are guaranteed to be this block's, without Data having
// to load them itself.
func (h *Handle) Lock() error {
	h.checkAlive()
	if h.locked {
		h.pool.logger.Info("pagemm: Lock on an already locked handle is a no-op", zap.Int("slot", h.slot))
		return nil
	}
	p := h.pool
	p.lockSlot(h.slot)
	p.swapMu.Lock()
	err := p.table.loadIntoRam(h.slot, h.id)
	p.swapMu.Unlock()
	if err != nil {
		p.unlockSlot(h.slot)
		return err
	}
	p.stat.locked.Add(1)
	h.locked = true
	return nil
}

// Unlock releases a lock taken by Lock. Unlock on a handle that is not
// locked is a no-op.
func (h *Handle) Unlock() error {
	h.checkAlive()
	if !h.locked {
		h.pool.logger.Info("pagemm: Unlock on a handle that is not locked is a no-op", zap.Int("slot", h.slot))
		return nil
	}
	h.pool.unlockSlot(h.slot)
	h.pool.stat.locked.Add(-1)
	h.locked = false
	return nil
}

// IsLocked reports whether this handle currently holds its slot's lock.
func (h *Handle) IsLocked() bool {
	h.checkAlive()
	return h.locked
}

// Data returns the block's bytes, loading them into RAM from a disk swap
// level first if necessary. The returned slice aliases pool-owned memory
// and is only valid until the next Lock/Unlock/Free on this handle or a
// concurrent eviction of the same slot; callers that need a stable view
// across such operations should hold the handle locked for the duration.
func (h *Handle) Data() ([]byte, error) {
	h.checkAlive()
	p := h.pool
	p.swapMu.Lock()
	defer p.swapMu.Unlock()
	if err := p.table.loadIntoRam(h.slot, h.id); err != nil {
		return nil, err
	}
	off := h.slot * p.blockSize
	return p.buf[off : off+h.size], nil
}

// Access runs fn with the block's bytes while the slot is locked for the
// duration, guaranteeing no concurrent eviction moves the bytes mid-call.
func (h *Handle) Access(fn func(b []byte)) error {
	if err := h.Lock(); err != nil {
		return err
	}
	defer h.Unlock()
	b, err := h.Data()
	if err != nil {
		return err
	}
	fn(b)
	return nil
}

// Size returns the number of bytes requested at Get time.
func (h *Handle) Size() int {
	h.checkAlive()
	return h.size
}

// Capacity returns the size class's block size, which may exceed Size.
func (h *Handle) Capacity() int {
	h.checkAlive()
	return h.capacity
}

// Free returns the block to its pool. Calling Free twice on descendants of
// the same Move chain panics via panicDoubleFree; calling any other method
// afterward panics via panicUseAfterMove.
func (h *Handle) Free() error {
	if h.freed {
		panicDoubleFree()
	}
	h.checkAlive()
	if h.locked {
		h.pool.unlockSlot(h.slot)
		h.pool.stat.locked.Add(-1)
	}
	runtime.SetFinalizer(h.sentinel, nil)
	err := h.pool.release(h.slot, h.id)
	h.freed = true
	h.alive = false
	return err
}
