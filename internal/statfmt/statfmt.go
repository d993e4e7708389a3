// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package statfmt renders per-size-class allocator counters as a
// human-readable aligned table.
package statfmt

import (
	"fmt"
	"io"
	"text/tabwriter"
)

// Row is one size class's worth of counters to render.
type Row struct {
	BlockSize  int
	NumBlocks  int
	Used       int64
	Locked     int64
	Swapped    int64
	SwapLevels int64
}

// Write renders rows as an aligned table to w.
func Write(w io.Writer, rows []Row) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	if _, err := fmt.Fprintln(tw, "BLOCK\tBLOCKS\tUSED\tLOCKED\tSWAPPED\tLEVELS"); err != nil {
		return err
	}
	for _, r := range rows {
		_, err := fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\n",
			HumanReadable(r.BlockSize), r.NumBlocks, r.Used, r.Locked, r.Swapped, r.SwapLevels)
		if err != nil {
			return err
		}
	}
	return tw.Flush()
}

// HumanReadable renders a byte count with a binary unit suffix, e.g. 4096
// as "4KiB".
func HumanReadable(n int) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%dB", n)
	}
	div, exp := int64(unit), 0
	for v := int64(n) / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	units := "KMGTPE"
	return fmt.Sprintf("%.0f%ciB", float64(n)/float64(div), units[exp])
}
