// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package pagemm

// noCopy is a sentinel used to prevent copying of synchronization primitives.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

// occupantID identifies a logical block within one slot of one pool.
// 0 means the slot's level is vacant; 1 is reserved for "allocated directly
// in RAM, never swapped"; 2..MaxSwapLevel are assigned on eviction.
type occupantID = uint8

const (
	emptyID   occupantID = 0
	directID  occupantID = 1
	minSwapID occupantID = 2

	// MaxSwapLevel bounds the number of simultaneously live logical blocks
	// per slot, and thus the maximum number of swap levels a pool can grow.
	MaxSwapLevel occupantID = 255
)
