// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Command pagemmdemo copies a file through the pagemm allocator in
// randomly sized blocks across a worker pool, exercising eviction and
// swap under a constrained memory budget.
package main

import (
	"fmt"
	"math/rand/v2"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"code.hybscloud.com/pagemm"
	"code.hybscloud.com/pagemm/internal/verify"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := viper.New()
	cmd := &cobra.Command{
		Use:   "pagemmdemo SRC DST",
		Short: "Copy a file through the pagemm allocator under a constrained memory budget",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(v, args[0], args[1])
		},
	}
	flags := cmd.Flags()
	flags.Int64("budget", 4<<20, "memory budget in bytes")
	flags.Int("workers", 8, "number of copy worker goroutines")
	flags.String("swap-dir", pagemm.DefaultSwapDir, "directory for disk swap files")
	flags.Bool("verify", false, "verify dst matches src by SHA-256 after copying")
	_ = v.BindPFlags(flags)
	v.SetEnvPrefix("PAGEMMDEMO")
	v.AutomaticEnv()
	return cmd
}

func run(v *viper.Viper, src, dst string) error {
	logger, err := zap.NewDevelopment()
	if err != nil {
		return err
	}
	defer logger.Sync()

	cfg := pagemm.DefaultConfig()
	cfg.MemoryBudget = v.GetInt64("budget")
	cfg.SwapDir = v.GetString("swap-dir")
	cfg.Logger = logger

	if err := os.MkdirAll(cfg.SwapDir, 0o755); err != nil {
		return err
	}

	alloc, err := pagemm.New(cfg)
	if err != nil {
		return fmt.Errorf("pagemmdemo: init allocator: %w", err)
	}
	defer alloc.Close()

	if err := copyFile(alloc, src, dst, v.GetInt("workers")); err != nil {
		return err
	}

	if v.GetBool("verify") {
		ok, err := verify.Files(src, dst)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("pagemmdemo: verify: %s and %s differ", src, dst)
		}
		logger.Info("verify ok", zap.String("src", src), zap.String("dst", dst))
	}

	return alloc.PrintStatistics(os.Stdout)
}

// copyFile reads src in randomly sized chunks (up to the allocator's
// largest size class) and writes them to dst, fanning the chunk copies out
// across workers goroutines. Each chunk is staged through a Handle so the
// demo exercises Get/Access/Free under concurrent pressure on the pool's
// size classes.
func copyFile(alloc *pagemm.Allocator, src, dst string, workers int) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	maxChunk := alloc.MaxBlockSize()
	type chunk struct {
		offset int64
		size   int
	}
	var chunks []chunk
	remaining := info.Size()
	var offset int64
	for remaining > 0 {
		size := 1 + rand.IntN(maxChunk)
		if int64(size) > remaining {
			size = int(remaining)
		}
		chunks = append(chunks, chunk{offset: offset, size: size})
		offset += int64(size)
		remaining -= int64(size)
	}

	g := new(errgroup.Group)
	sem := make(chan struct{}, workers)
	for _, c := range chunks {
		c := c
		sem <- struct{}{}
		g.Go(func() error {
			defer func() { <-sem }()
			h, err := alloc.Get(c.size)
			if err != nil {
				return err
			}
			defer h.Free()

			var ioErr error
			accessErr := h.Access(func(b []byte) {
				if _, err := in.ReadAt(b[:c.size], c.offset); err != nil {
					ioErr = err
					return
				}
				_, ioErr = out.WriteAt(b[:c.size], c.offset)
			})
			if accessErr != nil {
				return accessErr
			}
			return ioErr
		})
	}
	return g.Wait()
}
