// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package pagemm

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// DefaultBlockSizes is the reference size-class ladder: one pool per entry,
// each holding blocks of exactly that many bytes.
var DefaultBlockSizes = []int{16, 32, 64, 128, 256, 512, 1024, 2048, 4096}

// DefaultSwapDir is where disk swap levels are created when Config.SwapDir
// is empty.
const DefaultSwapDir = "./swap"

// Config configures an Allocator. The zero value is not valid; use
// DefaultConfig as a starting point.
type Config struct {
	// MemoryBudget is the total number of bytes to reserve for RAM-level
	// buffers across every size class. Every class gets the same number of
	// blocks, MemoryBudget divided by the sum of BlockSizes; New (and so
	// Init) returns ErrBudgetTooSmall if that number is zero.
	MemoryBudget int64

	// BlockSizes is the size-class ladder, ascending. Defaults to
	// DefaultBlockSizes.
	BlockSizes []int

	// SwapDir is the directory disk swap levels are created under.
	// Defaults to DefaultSwapDir. The directory must already exist.
	SwapDir string

	// Logger receives diagnostic events: Info for no-op Lock/Unlock calls
	// and Warn for leaked-handle reports. Slot contention is not logged,
	// and swap I/O errors are returned to the caller without being logged.
	// Defaults to a no-op logger.
	Logger *zap.Logger

	// MetricsRegisterer, if non-nil, receives the allocator's Prometheus
	// gauges at Init time.
	MetricsRegisterer prometheus.Registerer
}

// DefaultConfig returns a Config with the reference size classes, a 64 MiB
// memory budget, and the default swap directory.
func DefaultConfig() Config {
	return Config{
		MemoryBudget: 64 << 20,
		BlockSizes:   DefaultBlockSizes,
		SwapDir:      DefaultSwapDir,
	}
}

func (c Config) withDefaults() Config {
	if c.BlockSizes == nil {
		c.BlockSizes = DefaultBlockSizes
	}
	if c.SwapDir == "" {
		c.SwapDir = DefaultSwapDir
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	return c
}
