// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package pagemm

import (
	"unsafe"

	"code.hybscloud.com/pagemm/internal/cacheline"
)

// PageSize is the alignment used by AlignedMem for a pool's backing
// buffer. It defaults to 4 KiB, the common OS page size; callers on
// platforms with a different page size may override it with SetPageSize
// before calling New/Init.
var PageSize uintptr = 4096

// SetPageSize overrides PageSize. Must be called, if at all, before any
// pool is constructed.
func SetPageSize(size uintptr) {
	PageSize = size
}

// AlignedMem returns a byte slice of the given size whose starting address
// is aligned to pageSize. A paged allocator's backing buffer benefits from
// page alignment: it lets the OS map/unmap whole pages under memory
// pressure without a sub-page remainder at either end.
//
// The returned slice shares underlying memory with a larger allocation;
// do not assume len(result) == cap(result).
func AlignedMem(size int, pageSize uintptr) []byte {
	p := make([]byte, uintptr(size)+pageSize-1)
	base := unsafe.Pointer(unsafe.SliceData(p))
	offset := ((uintptr(base)+pageSize-1)/pageSize)*pageSize - uintptr(base)
	return unsafe.Slice((*byte)(unsafe.Add(base, offset)), size)
}

// AlignedMemBlock returns a single page-aligned block of PageSize bytes.
func AlignedMemBlock() []byte {
	return AlignedMem(int(PageSize), PageSize)
}

// CacheLineSize is the CPU L1 cache line size for the current architecture.
// BoundedPool uses it to spread consecutive ring entries across cache lines,
// and CacheLineAlignedMem aligns to it. Per-slot lock state is not padded.
const CacheLineSize = cacheline.Size

// CacheLineAlignedMem returns a byte slice of the given size whose
// starting address is aligned to the CPU cache line size, preventing false
// sharing between adjacent allocations.
func CacheLineAlignedMem(size int) []byte {
	align := uintptr(cacheline.Size)
	p := make([]byte, uintptr(size)+align-1)
	base := unsafe.Pointer(unsafe.SliceData(p))
	offset := ((uintptr(base)+align-1)/align)*align - uintptr(base)
	return unsafe.Slice((*byte)(unsafe.Add(base, offset)), size)
}
