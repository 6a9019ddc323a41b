// Package fingerprint provides a fixed-width content hash used as a map key
// throughout the caching core, plus a sharded map routed by fingerprint.
//
// Two equal fingerprints are treated as interchangeable content. Collision
// probabilities for a 128-bit hash over workspace-sized inputs are small
// enough that conflicts are not handled.
package fingerprint

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// Fingerprint is a 128-bit content or identity hash. The zero value marks
// "no fingerprint". Fingerprints are never mutated; they are purely derived.
type Fingerprint struct {
	lo uint64
	hi uint64
}

// Domain-separation prefixes for the two xxhash passes.
var (
	loPrefix = []byte{0x00}
	hiPrefix = []byte{0x01}
)

// FromBytes computes the fingerprint of raw content.
func FromBytes(data []byte) Fingerprint {
	var lo, hi xxhash.Digest
	lo.Reset()
	_, _ = lo.Write(loPrefix)
	_, _ = lo.Write(data)
	hi.Reset()
	_, _ = hi.Write(hiPrefix)
	_, _ = hi.Write(data)
	return Fingerprint{lo: lo.Sum64(), hi: hi.Sum64()}
}

// FromString computes the fingerprint of a string.
func FromString(s string) Fingerprint {
	return FromBytes([]byte(s))
}

// FromPair builds a fingerprint from two 64-bit halves.
func FromPair(lo, hi uint64) Fingerprint {
	return Fingerprint{lo: lo, hi: hi}
}

// Combine folds another fingerprint into this one, producing the identity of
// the ordered pair. Used to derive ids for composite inputs.
func (f Fingerprint) Combine(other Fingerprint) Fingerprint {
	var buf [32]byte
	binary.LittleEndian.PutUint64(buf[0:], f.lo)
	binary.LittleEndian.PutUint64(buf[8:], f.hi)
	binary.LittleEndian.PutUint64(buf[16:], other.lo)
	binary.LittleEndian.PutUint64(buf[24:], other.hi)
	return FromBytes(buf[:])
}

// IsZero reports whether the fingerprint is unset.
func (f Fingerprint) IsZero() bool {
	return f.lo == 0 && f.hi == 0
}

// Lower32 cuts the fingerprint to 32 bits for shard routing.
func (f Fingerprint) Lower32() uint32 {
	return uint32(f.lo)
}

// ID renders a compact external id with the given prefix. The high half is
// truncated at its last non-zero byte to keep ids short.
func (f Fingerprint) ID(prefix string) string {
	enc := base64.RawStdEncoding
	var lo [8]byte
	binary.LittleEndian.PutUint64(lo[:], f.lo)
	if f.hi == 0 {
		return prefix + enc.EncodeToString(lo[:])
	}
	var hi [8]byte
	binary.LittleEndian.PutUint64(hi[:], f.hi)
	n := 8
	for n > 0 && hi[n-1] == 0 {
		n--
	}
	return prefix + enc.EncodeToString(lo[:]) + enc.EncodeToString(hi[:n])
}

// Parse decodes an id produced by ID with an empty prefix.
func Parse(s string) (Fingerprint, error) {
	enc := base64.RawStdEncoding
	if len(s) < 11 {
		return Fingerprint{}, fmt.Errorf("fingerprint id too short: %q", s)
	}
	lo, err := enc.DecodeString(s[:11])
	if err != nil {
		return Fingerprint{}, fmt.Errorf("bad fingerprint id %q: %w", s, err)
	}
	var f Fingerprint
	f.lo = binary.LittleEndian.Uint64(lo)
	if len(s) > 11 {
		hi, err := enc.DecodeString(s[11:])
		if err != nil {
			return Fingerprint{}, fmt.Errorf("bad fingerprint id %q: %w", s, err)
		}
		var buf [8]byte
		copy(buf[:], hi)
		f.hi = binary.LittleEndian.Uint64(buf[:])
	}
	return f, nil
}

// String implements fmt.Stringer.
func (f Fingerprint) String() string {
	return f.ID("fg")
}
