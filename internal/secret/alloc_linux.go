//go:build linux

package secret

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// allocate maps anonymous memory, locks it against swap and excludes it
// from core dumps.
func allocate(size int) ([]byte, error) {
	data, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
	if err != nil {
		return nil, fmt.Errorf("secret: mmap: %w", err)
	}
	if err := unix.Mlock(data); err != nil {
		_ = unix.Munmap(data)
		return nil, fmt.Errorf("secret: mlock: %w", err)
	}
	if err := unix.Madvise(data, unix.MADV_DONTDUMP); err != nil {
		_ = unix.Munlock(data)
		_ = unix.Munmap(data)
		return nil, fmt.Errorf("secret: madvise: %w", err)
	}
	return data, nil
}

func release(data []byte) error {
	var first error
	if err := unix.Munlock(data); err != nil {
		first = fmt.Errorf("secret: munlock: %w", err)
	}
	if err := unix.Munmap(data); err != nil && first == nil {
		first = fmt.Errorf("secret: munmap: %w", err)
	}
	return first
}
