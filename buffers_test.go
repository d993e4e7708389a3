// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package pagemm_test

import (
	"testing"
	"unsafe"

	"code.hybscloud.com/pagemm"
)

func TestAlignedMem_PageAlignment(t *testing.T) {
	const size = 8192
	mem := pagemm.AlignedMem(size, pagemm.PageSize)

	if len(mem) != size {
		t.Errorf("AlignedMem length = %d, want %d", len(mem), size)
	}

	ptr := uintptr(unsafe.Pointer(unsafe.SliceData(mem)))
	if ptr%pagemm.PageSize != 0 {
		t.Errorf("AlignedMem not page-aligned: address %#x %% %d = %d", ptr, pagemm.PageSize, ptr%pagemm.PageSize)
	}
}

func TestAlignedMem_SmallAllocation(t *testing.T) {
	const size = 64
	mem := pagemm.AlignedMem(size, pagemm.PageSize)

	if len(mem) != size {
		t.Errorf("AlignedMem length = %d, want %d", len(mem), size)
	}

	ptr := uintptr(unsafe.Pointer(unsafe.SliceData(mem)))
	if ptr%pagemm.PageSize != 0 {
		t.Errorf("AlignedMem not page-aligned: address %#x %% %d = %d", ptr, pagemm.PageSize, ptr%pagemm.PageSize)
	}
}

func TestAlignedMemBlock(t *testing.T) {
	block := pagemm.AlignedMemBlock()

	if uintptr(len(block)) != pagemm.PageSize {
		t.Errorf("AlignedMemBlock length = %d, want %d", len(block), pagemm.PageSize)
	}

	ptr := uintptr(unsafe.Pointer(unsafe.SliceData(block)))
	if ptr%pagemm.PageSize != 0 {
		t.Errorf("AlignedMemBlock not page-aligned: address %#x %% %d = %d", ptr, pagemm.PageSize, ptr%pagemm.PageSize)
	}
}

func TestAlignedMem_NonStandardPageSize(t *testing.T) {
	const size, pageSize = 100, 256
	mem := pagemm.AlignedMem(size, pageSize)
	ptr := uintptr(unsafe.Pointer(unsafe.SliceData(mem)))
	if ptr%pageSize != 0 {
		t.Errorf("AlignedMem not aligned to %d: address %#x", pageSize, ptr)
	}
}

func TestSetPageSize(t *testing.T) {
	orig := pagemm.PageSize
	defer pagemm.SetPageSize(orig)

	pagemm.SetPageSize(8192)
	if pagemm.PageSize != 8192 {
		t.Errorf("PageSize = %d, want 8192", pagemm.PageSize)
	}
}

func TestCacheLineAlignedMem(t *testing.T) {
	const size = 128
	mem := pagemm.CacheLineAlignedMem(size)
	if len(mem) != size {
		t.Errorf("CacheLineAlignedMem length = %d, want %d", len(mem), size)
	}
	ptr := uintptr(unsafe.Pointer(unsafe.SliceData(mem)))
	if ptr%uintptr(pagemm.CacheLineSize) != 0 {
		t.Errorf("CacheLineAlignedMem not cache-line-aligned: address %#x", ptr)
	}
}
