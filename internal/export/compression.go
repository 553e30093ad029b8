// internal/export/compression.go
package export

import (
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// codec hands out pooled zstd encoders and decoders for bundle streams.
type codec struct {
	level    int
	encoders sync.Pool
	decoders sync.Pool
}

func newCodec(level int) (*codec, error) {
	// Create encoder/decoder for validation
	enc, err := zstd.NewWriter(nil,
		zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)),
		zstd.WithEncoderConcurrency(1),
	)
	if err != nil {
		return nil, fmt.Errorf("creating test encoder: %w", err)
	}
	enc.Close()

	dec, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
	if err != nil {
		return nil, fmt.Errorf("creating test decoder: %w", err)
	}
	dec.Close()

	return &codec{
		level: level,
		encoders: sync.Pool{
			New: func() interface{} {
				enc, _ := zstd.NewWriter(nil,
					zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)),
					zstd.WithEncoderConcurrency(1),
				)
				return enc
			},
		},
		decoders: sync.Pool{
			New: func() interface{} {
				dec, _ := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
				return dec
			},
		},
	}, nil
}

// compress streams everything fn writes into w as one zstd frame.
func (c *codec) compress(w io.Writer, fn func(io.Writer) error) error {
	enc := c.encoders.Get().(*zstd.Encoder)
	defer c.encoders.Put(enc)
	enc.Reset(w)

	if err := fn(enc); err != nil {
		enc.Close()
		return err
	}

	if err := enc.Close(); err != nil {
		return fmt.Errorf("finalizing compression: %w", err)
	}
	return nil
}

// decompress hands fn a reader over the decompressed content of r.
func (c *codec) decompress(r io.Reader, fn func(io.Reader) error) error {
	dec := c.decoders.Get().(*zstd.Decoder)
	defer c.decoders.Put(dec)

	if err := dec.Reset(r); err != nil {
		return fmt.Errorf("reading compressed stream: %w", err)
	}
	defer dec.Reset(nil)

	return fn(dec)
}
