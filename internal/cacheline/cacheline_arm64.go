// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build arm64

package cacheline

// Size is the L1 cache line size for ARM64 architectures. Apple Silicon's
// L2 line is 128 bytes; use that as the conservative padding width.
const Size = 128
