// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package pagemm

import (
	"errors"
	"fmt"
)

// Sentinel errors surfaced to callers. Compare with errors.Is.
var (
	// ErrNotInitialized is returned when Get/MaxBlockSize/PrintStatistics
	// are called on the default Allocator before Init.
	ErrNotInitialized = errors.New("pagemm: allocator not initialized")

	// ErrAlreadyInitialized is returned by a second call to Init.
	ErrAlreadyInitialized = errors.New("pagemm: allocator already initialized")

	// ErrTooLarge is returned by Get when size exceeds MaxBlockSize().
	ErrTooLarge = errors.New("pagemm: requested size exceeds max block size")

	// ErrBudgetTooSmall is returned by Init when the memory budget cannot
	// fit one block of every size class.
	ErrBudgetTooSmall = errors.New("pagemm: memory budget too small for one block of each class")

	// ErrSlotExhausted is returned by Get when a victim slot has no free
	// occupant id left in {2..MaxSwapLevel}.
	ErrSlotExhausted = errors.New("pagemm: slot has no free occupant id left")

	// ErrSwapIO wraps a disk swap level's file create/resize/read/write
	// failure. Use errors.Unwrap or errors.Is to inspect the underlying
	// *os.PathError.
	ErrSwapIO = errors.New("pagemm: swap level I/O error")
)

// swapIOError attaches pool block size, level and operation context to
// ErrSwapIO.
type swapIOError struct {
	blockSize int
	level     int
	op        string
	err       error
}

func (e *swapIOError) Error() string {
	return fmt.Sprintf("pagemm: swap level I/O error: pool(blockSize=%d) level=%d op=%s: %v",
		e.blockSize, e.level, e.op, e.err)
}

func (e *swapIOError) Unwrap() error { return e.err }

func (e *swapIOError) Is(target error) bool { return target == ErrSwapIO }

func newSwapIOError(blockSize, level int, op string, err error) error {
	return &swapIOError{blockSize: blockSize, level: level, op: op, err: err}
}

// panicUseAfterMove aborts with a diagnostic when a tombstoned Handle is
// used. Per the design, this is a programmer error, not a recoverable one.
func panicUseAfterMove() {
	panic("pagemm: Handle used after Move(); moved-from handles are tombstoned")
}

// panicDoubleFree aborts with a diagnostic when Free is called twice on
// the same handle.
func panicDoubleFree() {
	panic("pagemm: Handle.Free() called twice (double free)")
}
