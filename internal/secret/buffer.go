package secret

import (
	"crypto/subtle"
	"errors"
	"sync"

	"keyward/internal/util/memzero"
)

var errEmpty = errors.New("secret: buffer size must be positive")

// Buffer is a fixed-size region of sensitive bytes. It must not be
// copied after creation. Any access after Close panics.
type Buffer struct {
	mu     sync.Mutex
	data   []byte
	closed bool
}

// New allocates a zero-filled buffer of size bytes.
func New(size int) (*Buffer, error) {
	if size <= 0 {
		return nil, errEmpty
	}
	data, err := allocate(size)
	if err != nil {
		return nil, err
	}
	return &Buffer{data: data}, nil
}

// NewFromBytes moves source into a new buffer. source is zeroed before
// return, whether or not allocation succeeded.
func NewFromBytes(source []byte) (*Buffer, error) {
	defer memzero.Zero(source)

	b, err := New(len(source))
	if err != nil {
		return nil, err
	}
	copy(b.data, source)
	return b, nil
}

// Bytes returns the secret. The slice aliases the buffer and must not
// be retained past Close.
func (b *Buffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		panic("secret: read from closed buffer")
	}
	return b.data
}

// Len returns the size of the secret in bytes.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return len(b.data)
}

// Equal reports whether both buffers hold the same bytes, in constant time.
func (b *Buffer) Equal(other *Buffer) bool {
	return subtle.ConstantTimeCompare(b.Bytes(), other.Bytes()) == 1
}

// Close zeroes and releases the buffer. It is idempotent.
func (b *Buffer) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	memzero.Zero(b.data)
	err := release(b.data)
	b.data = nil
	return err
}
