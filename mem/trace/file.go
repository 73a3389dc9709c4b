// Package trace reads and writes memory address traces and records the
// accesses a cache performs on them.
package trace

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/natefinch/atomic"
	"github.com/zeebo/xxh3"
)

// WordSize is the number of bytes of one address in a trace file.
const WordSize = 4

// CompressedExt marks trace files that are zstd compressed.
const CompressedExt = ".zst"

// AlignmentError reports a trace whose length is not a whole number of
// words.
type AlignmentError struct {
	Path   string
	Length int
}

func (e *AlignmentError) Error() string {
	return fmt.Sprintf(
		"trace %s has %d bytes, which is not a multiple of %d",
		e.Path, e.Length, WordSize)
}

// Load reads a trace file. Files ending in .zst are decompressed first.
func Load(path string) ([]uint32, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read trace: %w", err)
	}

	if strings.HasSuffix(path, CompressedExt) {
		raw, err = decompress(raw)
		if err != nil {
			return nil, fmt.Errorf("decompress trace %s: %w", path, err)
		}
	}

	addrs, err := Decode(raw)
	if err != nil {
		if alignErr, ok := err.(*AlignmentError); ok {
			alignErr.Path = path
		}

		return nil, err
	}

	return addrs, nil
}

// Decode converts big-endian 32-bit words into addresses.
func Decode(raw []byte) ([]uint32, error) {
	if len(raw)%WordSize != 0 {
		return nil, &AlignmentError{Path: "<memory>", Length: len(raw)}
	}

	addrs := make([]uint32, len(raw)/WordSize)
	for i := range addrs {
		addrs[i] = binary.BigEndian.Uint32(raw[i*WordSize:])
	}

	return addrs, nil
}

// Encode converts addresses into big-endian 32-bit words.
func Encode(addrs []uint32) []byte {
	raw := make([]byte, 0, len(addrs)*WordSize)
	for _, addr := range addrs {
		raw = binary.BigEndian.AppendUint32(raw, addr)
	}

	return raw
}

// Write stores a trace atomically, so readers never see a partial file.
// Files ending in .zst are compressed.
func Write(path string, addrs []uint32) error {
	raw := Encode(addrs)

	if strings.HasSuffix(path, CompressedExt) {
		var err error

		raw, err = compress(raw)
		if err != nil {
			return fmt.Errorf("compress trace %s: %w", path, err)
		}
	}

	err := atomic.WriteFile(path, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("write trace: %w", err)
	}

	return nil
}

// Digest fingerprints a trace so that a reported run can be matched with
// the trace it replays.
func Digest(addrs []uint32) uint64 {
	return xxh3.Hash(Encode(addrs))
}

func decompress(raw []byte) ([]byte, error) {
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer decoder.Close()

	return decoder.DecodeAll(raw, nil)
}

func compress(raw []byte) ([]byte, error) {
	buf := new(bytes.Buffer)

	encoder, err := zstd.NewWriter(buf)
	if err != nil {
		return nil, err
	}

	_, err = io.Copy(encoder, bytes.NewReader(raw))
	if err != nil {
		encoder.Close()
		return nil, err
	}

	err = encoder.Close()
	if err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
