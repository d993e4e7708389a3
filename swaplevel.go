// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package pagemm

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// swapLevel is one tier of storage for a pool: either the pool's own RAM
// buffer (level 0) or a fixed-size disk file (levels 1..N). Implementations
// must be safe for concurrent use; modeled as a sum type rather than a
// virtual base, since the two backends differ only in where bytes live.
type swapLevel interface {
	readBlock(dst []byte, slot int) error
	writeBlock(src []byte, slot int) error
	id(slot int) occupantID
	setID(slot int, id occupantID)
	close() error
}

// ramLevel aliases a pool's backing buffer. Its mutex guards each
// read/write against concurrent three-way swaps touching the same slot;
// this mutex nests inside the pool's swapMutex per the documented lock
// order.
type ramLevel struct {
	mu        sync.Mutex
	buf       []byte
	blockSize int
	ids       []occupantID
}

func newRAMLevel(buf []byte, numBlocks, blockSize int) *ramLevel {
	return &ramLevel{buf: buf, blockSize: blockSize, ids: make([]occupantID, numBlocks)}
}

func (l *ramLevel) readBlock(dst []byte, slot int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	off := slot * l.blockSize
	copy(dst, l.buf[off:off+l.blockSize])
	return nil
}

func (l *ramLevel) writeBlock(src []byte, slot int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	off := slot * l.blockSize
	copy(l.buf[off:off+l.blockSize], src)
	return nil
}

func (l *ramLevel) id(slot int) occupantID        { return l.ids[slot] }
func (l *ramLevel) setID(slot int, id occupantID) { l.ids[slot] = id }
func (l *ramLevel) close() error                  { return nil }

// diskLevel is backed by a file of exactly numBlocks*blockSize bytes,
// created on construction and unlinked on close. Its mutex serializes
// positional I/O the same way the RAM level serializes its memcpys,
// matching the documented "level mutex" nested inside swapMutex.
type diskLevel struct {
	mu        sync.Mutex
	file      *os.File
	path      string
	level     int
	blockSize int
	ids       []occupantID
}

func diskLevelPath(dir string, numBlocks, blockSize, level int) string {
	return filepath.Join(dir, fmt.Sprintf("swap_%dx%d_L%d.bin", numBlocks, blockSize, level))
}

func newDiskLevel(dir string, numBlocks, blockSize, level int) (*diskLevel, error) {
	path := diskLevelPath(dir, numBlocks, blockSize, level)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, newSwapIOError(blockSize, level, "create", err)
	}
	total := int64(numBlocks) * int64(blockSize)
	if err := f.Truncate(total); err != nil {
		f.Close()
		os.Remove(path)
		return nil, newSwapIOError(blockSize, level, "truncate", err)
	}
	return &diskLevel{
		file:      f,
		path:      path,
		level:     level,
		blockSize: blockSize,
		ids:       make([]occupantID, numBlocks),
	}, nil
}

func (l *diskLevel) readBlock(dst []byte, slot int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	pos := int64(slot) * int64(l.blockSize)
	if _, err := l.file.ReadAt(dst, pos); err != nil {
		return newSwapIOError(l.blockSize, l.level, "read", err)
	}
	return nil
}

func (l *diskLevel) writeBlock(src []byte, slot int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	pos := int64(slot) * int64(l.blockSize)
	if _, err := l.file.WriteAt(src, pos); err != nil {
		return newSwapIOError(l.blockSize, l.level, "write", err)
	}
	return nil
}

func (l *diskLevel) id(slot int) occupantID       { return l.ids[slot] }
func (l *diskLevel) setID(slot int, id occupantID) { l.ids[slot] = id }

func (l *diskLevel) close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	err := l.file.Close()
	if rmErr := os.Remove(l.path); rmErr != nil && err == nil {
		err = rmErr
	}
	return err
}
