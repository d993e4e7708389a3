// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build !amd64 && !arm64 && !riscv64 && !loong64

package cacheline

// Size is the default L1 cache line size assumed for architectures without
// a dedicated constant below (mips64, ppc64, s390x, wasm, 32-bit, ...).
const Size = 64
