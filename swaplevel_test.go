// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package pagemm

import (
	"bytes"
	"errors"
	"os"
	"testing"
)

func TestRAMLevel_ReadWriteBlock(t *testing.T) {
	const numBlocks, blockSize = 4, 16
	buf := make([]byte, numBlocks*blockSize)
	lvl := newRAMLevel(buf, numBlocks, blockSize)

	src := bytes.Repeat([]byte{0xAB}, blockSize)
	if err := lvl.writeBlock(src, 2); err != nil {
		t.Fatalf("writeBlock: %v", err)
	}

	dst := make([]byte, blockSize)
	if err := lvl.readBlock(dst, 2); err != nil {
		t.Fatalf("readBlock: %v", err)
	}
	if !bytes.Equal(src, dst) {
		t.Errorf("readBlock returned %v, want %v", dst, src)
	}

	// untouched slot stays zero
	other := make([]byte, blockSize)
	if err := lvl.readBlock(other, 0); err != nil {
		t.Fatalf("readBlock: %v", err)
	}
	if !bytes.Equal(other, make([]byte, blockSize)) {
		t.Errorf("slot 0 should be untouched, got %v", other)
	}
}

func TestRAMLevel_IDRoundTrip(t *testing.T) {
	lvl := newRAMLevel(make([]byte, 4*16), 4, 16)
	if lvl.id(1) != emptyID {
		t.Fatalf("fresh slot id = %d, want emptyID", lvl.id(1))
	}
	lvl.setID(1, 7)
	if lvl.id(1) != 7 {
		t.Errorf("id(1) = %d, want 7", lvl.id(1))
	}
}

func TestDiskLevel_ReadWriteBlock(t *testing.T) {
	dir := t.TempDir()
	const numBlocks, blockSize = 3, 32
	lvl, err := newDiskLevel(dir, numBlocks, blockSize, 1)
	if err != nil {
		t.Fatalf("newDiskLevel: %v", err)
	}
	defer lvl.close()

	src := bytes.Repeat([]byte{0xCD}, blockSize)
	if err := lvl.writeBlock(src, 0); err != nil {
		t.Fatalf("writeBlock: %v", err)
	}
	dst := make([]byte, blockSize)
	if err := lvl.readBlock(dst, 0); err != nil {
		t.Fatalf("readBlock: %v", err)
	}
	if !bytes.Equal(src, dst) {
		t.Errorf("readBlock returned %v, want %v", dst, src)
	}
}

func TestDiskLevel_CloseRemovesFile(t *testing.T) {
	dir := t.TempDir()
	lvl, err := newDiskLevel(dir, 2, 16, 1)
	if err != nil {
		t.Fatalf("newDiskLevel: %v", err)
	}
	path := lvl.path
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("swap file should exist before close: %v", err)
	}
	if err := lvl.close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("swap file should be removed after close, stat err = %v", err)
	}
}

func TestDiskLevel_CreateFailure(t *testing.T) {
	_, err := newDiskLevel("/nonexistent/does/not/exist", 2, 16, 1)
	if err == nil {
		t.Fatal("expected error creating swap file under nonexistent directory")
	}
	if !errors.Is(err, ErrSwapIO) {
		t.Errorf("expected errors.Is(err, ErrSwapIO), got %v", err)
	}
}
