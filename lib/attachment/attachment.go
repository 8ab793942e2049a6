// Copyright 2026 The Chained Social Authors
// SPDX-License-Identifier: Apache-2.0

// Package attachment packs files into message attachments. Payloads
// are compressed with zstd when they look like text and with LZ4
// block compression otherwise; anything that does not shrink is
// stored as-is.
package attachment

import (
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/chainedsocial/chainedsocial/lib/actor"
)

// MaxSize bounds the uncompressed size of one attachment. Messages
// travel inline in a single request.
const MaxSize = 2 << 20

// Compression names the encoding of Attachment.Data. The names are
// part of the message format.
type Compression string

const (
	None Compression = "none"
	LZ4  Compression = "lz4"
	Zstd Compression = "zstd"
)

// ParseCompression accepts a stored compression name. The empty
// string is None.
func ParseCompression(name string) (Compression, error) {
	switch compression := Compression(name); compression {
	case "", None:
		return None, nil
	case LZ4, Zstd:
		return compression, nil
	}
	return "", fmt.Errorf("unknown attachment compression %q", name)
}

var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("attachment: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("attachment: zstd decoder initialization failed: " + err.Error())
	}
}

// New builds an attachment from raw bytes, choosing the compression
// from mimeType. An empty mimeType is sniffed from data.
func New(name, mimeType string, data []byte) (actor.Attachment, error) {
	if len(data) > MaxSize {
		return actor.Attachment{}, fmt.Errorf("attachment %s is %d bytes, over the %d byte limit", name, len(data), MaxSize)
	}
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}

	compression := choose(mimeType)
	encoded, err := compress(data, compression)
	if err == errIncompressible {
		encoded, compression = data, None
	} else if err != nil {
		return actor.Attachment{}, fmt.Errorf("compressing %s: %w", name, err)
	}

	return actor.Attachment{
		Name:        name,
		MimeType:    mimeType,
		Size:        uint64(len(data)),
		Compression: string(compression),
		Data:        encoded,
	}, nil
}

// ReadFile builds an attachment from a file on disk, typed by its
// extension.
func ReadFile(path string) (actor.Attachment, error) {
	info, err := os.Stat(path)
	if err != nil {
		return actor.Attachment{}, err
	}
	if info.Size() > MaxSize {
		return actor.Attachment{}, fmt.Errorf("attachment %s is %d bytes, over the %d byte limit", path, info.Size(), MaxSize)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return actor.Attachment{}, err
	}
	mimeType := mime.TypeByExtension(filepath.Ext(path))
	return New(filepath.Base(path), mimeType, data)
}

// Open returns the original bytes of a.
func Open(a actor.Attachment) ([]byte, error) {
	compression, err := ParseCompression(a.Compression)
	if err != nil {
		return nil, err
	}
	if a.Size > MaxSize {
		return nil, fmt.Errorf("attachment %s claims %d bytes, over the %d byte limit", a.Name, a.Size, MaxSize)
	}
	size := int(a.Size)

	switch compression {
	case None:
		if len(a.Data) != size {
			return nil, fmt.Errorf("attachment %s: size %d does not match data length %d", a.Name, size, len(a.Data))
		}
		return a.Data, nil
	case LZ4:
		destination := make([]byte, size)
		read, err := lz4.UncompressBlock(a.Data, destination)
		if err != nil {
			return nil, fmt.Errorf("attachment %s: lz4: %w", a.Name, err)
		}
		if read != size {
			return nil, fmt.Errorf("attachment %s: lz4 produced %d bytes, expected %d", a.Name, read, size)
		}
		return destination, nil
	default:
		result, err := zstdDecoder.DecodeAll(a.Data, make([]byte, 0, size))
		if err != nil {
			return nil, fmt.Errorf("attachment %s: zstd: %w", a.Name, err)
		}
		if len(result) != size {
			return nil, fmt.Errorf("attachment %s: zstd produced %d bytes, expected %d", a.Name, len(result), size)
		}
		return result, nil
	}
}

// MessageType is the message kind an attachment of mimeType is sent
// as.
func MessageType(mimeType string) actor.MessageType {
	if strings.HasPrefix(mimeType, "image/") {
		return actor.MessageImage
	}
	return actor.MessageFile
}

func choose(mimeType string) Compression {
	base, _, _ := strings.Cut(mimeType, ";")
	base = strings.TrimSpace(base)
	switch {
	case strings.HasPrefix(base, "text/"):
		return Zstd
	case base == "application/json", base == "application/xml", base == "application/x-ndjson":
		return Zstd
	case strings.HasPrefix(base, "image/png"), strings.HasPrefix(base, "image/jpeg"),
		strings.HasPrefix(base, "image/gif"), strings.HasPrefix(base, "image/webp"),
		base == "application/zip", base == "application/gzip", base == "application/zstd":
		return None
	}
	return LZ4
}

var errIncompressible = fmt.Errorf("data is incompressible")

func compress(data []byte, compression Compression) ([]byte, error) {
	switch compression {
	case LZ4:
		destination := make([]byte, lz4.CompressBlockBound(len(data)))
		written, err := lz4.CompressBlock(data, destination, nil)
		if err != nil {
			return nil, err
		}
		// CompressBlock returns 0 for incompressible input.
		if written == 0 || written >= len(data) {
			return nil, errIncompressible
		}
		return destination[:written], nil
	case Zstd:
		compressed := zstdEncoder.EncodeAll(data, nil)
		if len(compressed) >= len(data) {
			return nil, errIncompressible
		}
		return compressed, nil
	}
	return nil, errIncompressible
}
