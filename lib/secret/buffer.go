// Copyright 2026 The Chained Social Authors
// SPDX-License-Identifier: Apache-2.0

// Package secret keeps credentials out of the Go heap.
//
// A Buffer is an anonymous mmap region locked into RAM and excluded
// from core dumps. The client uses it for the storage passphrase, the
// identity provider token and the raw session key while a seed is
// derived from it. Close zeroes and unmaps the region.
package secret

import (
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sys/unix"
)

// ErrClosed is the panic value for reads after Close.
var ErrClosed = errors.New("secret: buffer used after Close")

// Buffer is locked, non-dumpable memory holding one secret. It must
// not be copied.
type Buffer struct {
	mu     sync.Mutex
	region []byte
	size   int
	closed bool
}

// New maps a zeroed buffer of size bytes.
func New(size int) (*Buffer, error) {
	if size <= 0 {
		return nil, fmt.Errorf("secret: size must be positive, got %d", size)
	}
	region, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
	if err != nil {
		return nil, fmt.Errorf("secret: mmap: %w", err)
	}
	if err := unix.Mlock(region); err != nil {
		unix.Munmap(region)
		return nil, fmt.Errorf("secret: mlock: %w", err)
	}
	if err := unix.Madvise(region, unix.MADV_DONTDUMP); err != nil {
		unix.Munlock(region)
		unix.Munmap(region)
		return nil, fmt.Errorf("secret: madvise: %w", err)
	}
	return &Buffer{region: region, size: size}, nil
}

// FromBytes moves source into a new Buffer and zeroes source.
func FromBytes(source []byte) (*Buffer, error) {
	if len(source) == 0 {
		return nil, fmt.Errorf("secret: empty source")
	}
	buffer, err := New(len(source))
	if err != nil {
		Zero(source)
		return nil, err
	}
	copy(buffer.region, source)
	Zero(source)
	return buffer, nil
}

// Bytes exposes the secret. The slice aliases the locked region and is
// invalid after Close.
func (b *Buffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		panic(ErrClosed)
	}
	return b.region[:b.size]
}

// String copies the secret onto the heap. Use only where an API
// insists on a string.
func (b *Buffer) String() string {
	return string(b.Bytes())
}

// Len returns the secret's size in bytes.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.size
}

// Close zeroes, unlocks and unmaps the region. It is idempotent.
func (b *Buffer) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	Zero(b.region)

	var errs []error
	if err := unix.Munlock(b.region); err != nil {
		errs = append(errs, fmt.Errorf("secret: munlock: %w", err))
	}
	if err := unix.Munmap(b.region); err != nil {
		errs = append(errs, fmt.Errorf("secret: munmap: %w", err))
	}
	b.region = nil
	return errors.Join(errs...)
}

// Zero overwrites data with zeroes.
func Zero(data []byte) {
	clear(data)
}
