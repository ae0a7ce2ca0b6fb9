//go:build !linux

package secret

// allocate falls back to the Go heap. Close still zeroes the bytes.
func allocate(size int) ([]byte, error) {
	return make([]byte, size), nil
}

func release([]byte) error { return nil }
