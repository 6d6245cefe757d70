package store

import (
	"encoding/binary"
	"fmt"
	"math"
)

// EncodeVector packs a float32 vector into the blob layout stored in the
// embedding columns: 4 bytes per element, little-endian. This is the same
// layout sqlite-vec expects, so blobs written here are readable by the real
// extension and by the pure-Go compat shim alike.
func EncodeVector(vec []float32) []byte {
	buf := make([]byte, len(vec)*4)
	for i, f := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// DecodeVector unpacks an embedding blob back into a float32 slice.
func DecodeVector(blob []byte) ([]float32, error) {
	if len(blob)%4 != 0 {
		return nil, fmt.Errorf("embedding blob length %d is not a multiple of 4", len(blob))
	}
	out := make([]float32, len(blob)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return out, nil
}

// cosineSimilarity computes the cosine of the angle between two vectors.
// Returns 0 when either vector is zero-length or all-zero.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		af := float64(a[i])
		bf := float64(b[i])
		dot += af * bf
		na += af * af
		nb += bf * bf
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// cosineToL2 converts a cosine similarity into the L2 distance between the
// corresponding unit vectors, so linear-scan results rank on the same scale
// the vec_distance_l2 path reports.
func cosineToL2(cos float64) float64 {
	d := 2 - 2*cos
	if d < 0 {
		d = 0
	}
	return math.Sqrt(d)
}
