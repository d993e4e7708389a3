// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package pagemm_test

import (
	"bytes"
	"testing"

	pagemm "code.hybscloud.com/pagemm"
)

// singleBlockAllocator builds an Allocator with exactly one block per size
// class, matching the reference scenarios' N=1 setup.
func singleBlockAllocator(t *testing.T, blockSize int) *pagemm.Allocator {
	t.Helper()
	cfg := pagemm.DefaultConfig()
	cfg.BlockSizes = []int{blockSize}
	cfg.MemoryBudget = int64(blockSize)
	cfg.SwapDir = t.TempDir()
	a, err := pagemm.New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })
	return a
}

// S1: direct alloc/free leaves no residue in the pool's counters.
func TestScenario_DirectAllocFree(t *testing.T) {
	a := singleBlockAllocator(t, 16)

	h, err := a.Get(10)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if h.Capacity() != 16 || h.Size() != 10 {
		t.Fatalf("capacity/size = %d/%d, want 16/10", h.Capacity(), h.Size())
	}

	want := make([]byte, 10)
	for i := range want {
		want[i] = byte(i)
	}
	if err := h.Lock(); err != nil {
		t.Fatalf("Lock: %v", err)
	}
	b, err := h.Data()
	if err != nil {
		t.Fatalf("Data: %v", err)
	}
	copy(b, want)
	got := append([]byte(nil), b...)
	if err := h.Unlock(); err != nil {
		t.Fatalf("Unlock: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Errorf("read back %v, want %v", got, want)
	}
	if err := h.Free(); err != nil {
		t.Fatalf("Free: %v", err)
	}

	for _, s := range a.Stats() {
		if s.BlockSize == 16 {
			if s.Used != 0 || s.Swapped != 0 {
				t.Errorf("after free: used=%d swapped=%d, want 0/0", s.Used, s.Swapped)
			}
		}
	}
}

// S2: a second Get on a full class evicts the first handle to disk; both
// handles' bytes survive independently.
func TestScenario_ForcedEviction(t *testing.T) {
	a := singleBlockAllocator(t, 16)

	ha, err := a.Get(16)
	if err != nil {
		t.Fatalf("Get a: %v", err)
	}
	fillAndUnlock(t, &ha, 0xAA)

	hb, err := a.Get(16)
	if err != nil {
		t.Fatalf("Get b: %v", err)
	}
	fillAndUnlock(t, &hb, 0xBB)

	for _, s := range a.Stats() {
		if s.BlockSize == 16 && s.Swapped != 1 {
			t.Errorf("swapped = %d, want 1 after forcing a to disk", s.Swapped)
		}
	}

	assertAllBytes(t, &ha, 0xAA)
	assertAllBytes(t, &hb, 0xBB)

	if err := ha.Free(); err != nil {
		t.Fatalf("Free a: %v", err)
	}
	if err := hb.Free(); err != nil {
		t.Fatalf("Free b: %v", err)
	}
}

// S3: three live handles in a single-slot class round-robin through RAM;
// each keeps its own bytes across repeated swap-ins.
func TestScenario_TwoLevelEviction(t *testing.T) {
	a := singleBlockAllocator(t, 16)

	ha, err := a.Get(16)
	if err != nil {
		t.Fatalf("Get a: %v", err)
	}
	fillAndUnlock(t, &ha, 0xA)

	hb, err := a.Get(16)
	if err != nil {
		t.Fatalf("Get b: %v", err)
	}
	fillAndUnlock(t, &hb, 0xB)

	hc, err := a.Get(16)
	if err != nil {
		t.Fatalf("Get c: %v", err)
	}
	fillAndUnlock(t, &hc, 0xC)

	order := []struct {
		h    *pagemm.Handle
		want byte
	}{
		{&ha, 0xA}, {&hb, 0xB}, {&hc, 0xC},
		{&ha, 0xA}, {&hb, 0xB}, {&hc, 0xC},
	}
	for i, step := range order {
		assertAllBytes(t, step.h, step.want)
		_ = i
	}

	ha.Free()
	hb.Free()
	hc.Free()
}

// S4: freeing a swapped (non-RAM-resident) handle only drops its swap-table
// entry; it must not disturb the bytes of blocks still alive.
func TestScenario_ReleaseSwappedBlock(t *testing.T) {
	a := singleBlockAllocator(t, 16)

	ha, err := a.Get(16)
	if err != nil {
		t.Fatalf("Get a: %v", err)
	}
	fillAndUnlock(t, &ha, 0xA)

	hb, err := a.Get(16)
	if err != nil {
		t.Fatalf("Get b: %v", err)
	}
	fillAndUnlock(t, &hb, 0xB)

	hc, err := a.Get(16)
	if err != nil {
		t.Fatalf("Get c: %v", err)
	}
	fillAndUnlock(t, &hc, 0xC)
	// RAM currently holds c; a and b are swapped out.

	var before int64
	for _, s := range a.Stats() {
		if s.BlockSize == 16 {
			before = s.Swapped
		}
	}

	if err := ha.Free(); err != nil {
		t.Fatalf("Free a: %v", err)
	}

	var after int64
	for _, s := range a.Stats() {
		if s.BlockSize == 16 {
			after = s.Swapped
		}
	}
	if after != before-1 {
		t.Errorf("swapped after freeing a = %d, want %d", after, before-1)
	}

	assertAllBytes(t, &hb, 0xB)

	hb.Free()
	hc.Free()
}

// S5: freeing the RAM-resident handle promotes the swapped tail into RAM
// with no observable disk round trip from the caller's perspective.
func TestScenario_ReleaseRAMBlockPromotesTail(t *testing.T) {
	a := singleBlockAllocator(t, 16)

	ha, err := a.Get(16)
	if err != nil {
		t.Fatalf("Get a: %v", err)
	}
	fillAndUnlock(t, &ha, 0xA)

	hb, err := a.Get(16)
	if err != nil {
		t.Fatalf("Get b: %v", err)
	}
	fillAndUnlock(t, &hb, 0xB)

	hc, err := a.Get(16)
	if err != nil {
		t.Fatalf("Get c: %v", err)
	}
	fillAndUnlock(t, &hc, 0xC)
	// RAM holds c; a, b swapped.

	var usedBefore, swappedBefore int64
	for _, s := range a.Stats() {
		if s.BlockSize == 16 {
			usedBefore, swappedBefore = s.Used, s.Swapped
		}
	}

	if err := hc.Free(); err != nil {
		t.Fatalf("Free c: %v", err)
	}

	var usedAfter, swappedAfter int64
	for _, s := range a.Stats() {
		if s.BlockSize == 16 {
			usedAfter, swappedAfter = s.Used, s.Swapped
		}
	}
	if usedAfter != usedBefore {
		t.Errorf("used changed from %d to %d, want unchanged", usedBefore, usedAfter)
	}
	if swappedAfter != swappedBefore-1 {
		t.Errorf("swapped after promoting tail = %d, want %d", swappedAfter, swappedBefore-1)
	}

	assertAllBytes(t, &hb, 0xB)

	ha.Free()
	hb.Free()
}

func fillAndUnlock(t *testing.T, h *pagemm.Handle, value byte) {
	t.Helper()
	if err := h.Access(func(b []byte) {
		for i := range b {
			b[i] = value
		}
	}); err != nil {
		t.Fatalf("Access fill: %v", err)
	}
}

func assertAllBytes(t *testing.T, h *pagemm.Handle, want byte) {
	t.Helper()
	var mismatch bool
	if err := h.Access(func(b []byte) {
		for _, v := range b {
			if v != want {
				mismatch = true
				break
			}
		}
	}); err != nil {
		t.Fatalf("Access read: %v", err)
	}
	if mismatch {
		t.Errorf("expected all bytes == 0x%X", want)
	}
}
