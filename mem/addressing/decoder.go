// Package addressing splits 32-bit memory addresses into the tag, set index
// and block offset fields used to look up a set-associative cache.
package addressing

import (
	"fmt"
	"math/bits"
	"strconv"
	"strings"
)

// AddressBits is the width of every address handled by the decoder.
const AddressBits = 32

// Decoded holds the three fields of an address.
type Decoded struct {
	Tag    uint32
	Index  uint32
	Offset uint32
}

// A Decoder maps addresses to their (tag, index, offset) fields for a given
// cache geometry.
type Decoder struct {
	OffsetBits int
	IndexBits  int
	TagBits    int
}

// NewDecoder creates a decoder for a cache with numSets sets of blockSize
// bytes each. Both values must be powers of two and their product must fit
// in the address space.
func NewDecoder(numSets, blockSize uint64) Decoder {
	if !IsPowerOfTwo(numSets) {
		panic(fmt.Sprintf("number of sets %d is not a power of 2", numSets))
	}

	if !IsPowerOfTwo(blockSize) {
		panic(fmt.Sprintf("block size %d is not a power of 2", blockSize))
	}

	d := Decoder{
		OffsetBits: Log2(blockSize),
		IndexBits:  Log2(numSets),
	}

	d.TagBits = AddressBits - d.OffsetBits - d.IndexBits
	if d.TagBits < 0 {
		panic(fmt.Sprintf(
			"%d sets of %d bytes do not fit in a %d-bit address space",
			numSets, blockSize, AddressBits))
	}

	return d
}

// Decode splits an address into its fields.
func (d Decoder) Decode(addr uint32) Decoded {
	tagShift := d.OffsetBits + d.IndexBits

	return Decoded{
		Offset: addr & Mask(d.OffsetBits, 0),
		Index:  (addr & Mask(d.IndexBits, d.OffsetBits)) >> d.OffsetBits,
		Tag:    (addr & Mask(d.TagBits, tagShift)) >> tagShift,
	}
}

// Encode rebuilds the address that decodes into the given fields. Field bits
// beyond their widths are dropped.
func (d Decoder) Encode(fields Decoded) uint32 {
	tagShift := d.OffsetBits + d.IndexBits

	addr := fields.Offset & Mask(d.OffsetBits, 0)
	addr |= (fields.Index << d.OffsetBits) & Mask(d.IndexBits, d.OffsetBits)
	addr |= (fields.Tag << tagShift) & Mask(d.TagBits, tagShift)

	return addr
}

// Mask returns width ones placed at bit position shift. A zero width gives
// an empty mask and a width of 32 or more gives all ones.
func Mask(width, shift int) uint32 {
	if width <= 0 {
		return 0
	}

	if width >= AddressBits {
		return ^uint32(0)
	}

	return uint32(((uint64(1) << width) - 1) << shift)
}

// Log2 returns the base-2 logarithm of a power of two.
func Log2(x uint64) int {
	if x == 0 {
		panic("log2 of zero")
	}

	return bits.Len64(x) - 1
}

// IsPowerOfTwo tells if x is a non-zero power of two.
func IsPowerOfTwo(x uint64) bool {
	return x != 0 && x&(x-1) == 0
}

// FormatBinary prints v as exactly width binary digits. A zero width prints
// a dash so that trace columns never disappear.
func FormatBinary(v uint32, width int) string {
	if width <= 0 {
		return "-"
	}

	s := strconv.FormatUint(uint64(v), 2)
	if len(s) >= width {
		return s[len(s)-width:]
	}

	return strings.Repeat("0", width-len(s)) + s
}
