// MIT License
//
// Copyright (c) 2022-2026 GoAkt Team
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package persistence

import (
	"bytes"
	"fmt"
	"io"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/zstd"
)

// Compression selects how state blobs are compressed at rest
type Compression byte

const (
	// NoCompression stores state as is
	NoCompression Compression = iota
	// ZstdCompression compresses state with zstd
	ZstdCompression
	// BrotliCompression compresses state with brotli
	BrotliCompression
)

// String returns the name of the compression
func (c Compression) String() string {
	switch c {
	case NoCompression:
		return "none"
	case ZstdCompression:
		return "zstd"
	case BrotliCompression:
		return "brotli"
	default:
		return "unknown"
	}
}

// codec prefixes every encoded blob with the compression byte so that blobs
// written with another setting remain readable.
type codec struct {
	compression Compression
	encoder     *zstd.Encoder
	decoder     *zstd.Decoder
}

func newCodec(compression Compression) (*codec, error) {
	encoder, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("persistence: creating zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		_ = encoder.Close()
		return nil, fmt.Errorf("persistence: creating zstd decoder: %w", err)
	}
	return &codec{compression: compression, encoder: encoder, decoder: decoder}, nil
}

func (c *codec) encode(state []byte) ([]byte, error) {
	switch c.compression {
	case NoCompression:
		return append([]byte{byte(NoCompression)}, state...), nil
	case ZstdCompression:
		return c.encoder.EncodeAll(state, []byte{byte(ZstdCompression)}), nil
	case BrotliCompression:
		buffer := bytes.NewBuffer([]byte{byte(BrotliCompression)})
		writer := brotli.NewWriterLevel(buffer, brotli.DefaultCompression)
		if _, err := writer.Write(state); err != nil {
			return nil, err
		}
		if err := writer.Close(); err != nil {
			return nil, err
		}
		return buffer.Bytes(), nil
	default:
		return nil, fmt.Errorf("persistence: unsupported compression %d", c.compression)
	}
}

func (c *codec) decode(blob []byte) ([]byte, error) {
	if len(blob) == 0 {
		return nil, fmt.Errorf("persistence: empty blob")
	}
	payload := blob[1:]
	switch Compression(blob[0]) {
	case NoCompression:
		return bytes.Clone(payload), nil
	case ZstdCompression:
		return c.decoder.DecodeAll(payload, nil)
	case BrotliCompression:
		return io.ReadAll(brotli.NewReader(bytes.NewReader(payload)))
	default:
		return nil, fmt.Errorf("persistence: unsupported compression %d", blob[0])
	}
}

func (c *codec) close() error {
	c.decoder.Close()
	return c.encoder.Close()
}
