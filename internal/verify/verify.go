// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package verify byte-compares two files by digest, for checking that a
// demo workload copied data through the allocator without corruption.
package verify

import (
	"crypto/sha256"
	"fmt"
	"io"
	"os"
)

// Files reports whether src and dst have identical SHA-256 digests.
func Files(src, dst string) (bool, error) {
	a, err := digest(src)
	if err != nil {
		return false, fmt.Errorf("verify: %s: %w", src, err)
	}
	b, err := digest(dst)
	if err != nil {
		return false, fmt.Errorf("verify: %s: %w", dst, err)
	}
	return a == b, nil
}

func digest(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", h.Sum(nil)), nil
}
