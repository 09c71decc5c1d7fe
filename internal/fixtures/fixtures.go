// Package fixtures encodes and loads compressed access-trace fixtures:
// request sequences for exercising ZoneCache end to end without a live
// trace source. It is test tooling, not part of the simulator's data path.
package fixtures

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/klauspost/compress/s2"
	"github.com/klauspost/compress/zstd"
)

// Compressor compresses and decompresses fixture payloads.
type Compressor interface {
	Encode(data []byte) ([]byte, error)
	Decode(data []byte) ([]byte, error)
	Extension() string
}

type none struct{}

// None returns a pass-through compressor (no compression).
func None() Compressor { return none{} }

func (none) Encode(data []byte) ([]byte, error) { return data, nil }
func (none) Decode(data []byte) ([]byte, error) { return data, nil }
func (none) Extension() string                  { return "" }

type s2c struct{}

// S2 returns a fast compressor using S2 (improved Snappy).
func S2() Compressor { return s2c{} }

func (s2c) Encode(data []byte) ([]byte, error) { return s2.Encode(nil, data), nil }
func (s2c) Decode(data []byte) ([]byte, error) { return s2.Decode(nil, data) }
func (s2c) Extension() string                  { return ".s2" }

type zstdc struct {
	enc *zstd.Encoder
	dec *zstd.Decoder
}

// Zstd returns a compressor using Zstandard.
// Level: 1 (fastest) to 4 (best compression).
func Zstd(level int) Compressor {
	lvl := zstd.SpeedDefault
	switch {
	case level <= 1:
		lvl = zstd.SpeedFastest
	case level >= 4:
		lvl = zstd.SpeedBestCompression
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(lvl)) //nolint:errcheck // static options always valid
	dec, _ := zstd.NewReader(nil)                             //nolint:errcheck // static options always valid
	return &zstdc{enc: enc, dec: dec}
}

func (z *zstdc) Encode(data []byte) ([]byte, error) { return z.enc.EncodeAll(data, nil), nil }
func (z *zstdc) Decode(data []byte) ([]byte, error) { return z.dec.DecodeAll(data, nil) }
func (*zstdc) Extension() string                    { return ".z" }

// Request is a single trace entry: an object id and its size in bytes.
type Request struct {
	ID      uint64
	ObjSize uint32
}

// Trace is an in-memory sequence of requests, satisfying flashcache.TraceSource.
type Trace struct {
	requests []Request
	pos      int
}

// Next returns the next request and advances the cursor. ok is false once
// the trace is exhausted.
func (t *Trace) Next() (id uint64, objSize uint32, ok bool) {
	if t.pos >= len(t.requests) {
		return 0, 0, false
	}
	r := t.requests[t.pos]
	t.pos++
	return r.ID, r.ObjSize, true
}

// Len reports the total number of requests in the trace.
func (t *Trace) Len() int { return len(t.requests) }

// Reset rewinds the trace to its first request, so a fixture can be replayed.
func (t *Trace) Reset() { t.pos = 0 }

// Load decodes a compressed CSV-style fixture ("id,size" per line, blank
// lines and "#"-prefixed comments ignored) into a replayable Trace.
func Load(data []byte, c Compressor) (*Trace, error) {
	raw, err := c.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("decode fixture: %w", err)
	}

	var reqs []Request
	scanner := bufio.NewScanner(bytes.NewReader(raw))
	for lineNum := 1; scanner.Scan(); lineNum++ {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.SplitN(line, ",", 2)
		if len(fields) != 2 {
			return nil, fmt.Errorf("fixture line %d: want \"id,size\", got %q", lineNum, line)
		}
		id, err := strconv.ParseUint(strings.TrimSpace(fields[0]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("fixture line %d: bad id: %w", lineNum, err)
		}
		size, err := strconv.ParseUint(strings.TrimSpace(fields[1]), 10, 32)
		if err != nil {
			return nil, fmt.Errorf("fixture line %d: bad size: %w", lineNum, err)
		}
		reqs = append(reqs, Request{ID: id, ObjSize: uint32(size)})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan fixture: %w", err)
	}

	return &Trace{requests: reqs}, nil
}

// Encode compresses a fixture built from requests, for tests that generate
// fixtures on the fly rather than loading one from disk.
func Encode(reqs []Request, c Compressor) ([]byte, error) {
	var buf bytes.Buffer
	for _, r := range reqs {
		fmt.Fprintf(&buf, "%d,%d\n", r.ID, r.ObjSize)
	}
	out, err := c.Encode(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("encode fixture: %w", err)
	}
	return out, nil
}
