//go:build !sqlite_vec

package store

import (
	"database/sql/driver"
	"fmt"
	"math"

	sqlite "modernc.org/sqlite"
)

func init() {
	// Register the sqlite-vec distance functions so ANN queries work on the
	// pure-Go driver without the native extension.
	registerVecCompat()
}

func registerVecCompat() {
	// Deterministic: same input blobs produce the same distance.
	_ = sqlite.RegisterDeterministicScalarFunction("vec_distance_l2", 2, vecDistanceL2)
	_ = sqlite.RegisterDeterministicScalarFunction("vector_distance_cos", 2, vecDistanceCos)
}

// vec_distance_l2 over two packed float32 blobs.
func vecDistanceL2(ctx *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	a, b, err := decodePair("vec_distance_l2", args)
	if err != nil {
		return nil, err
	}
	if len(a) == 0 {
		return float64(0), nil
	}
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum), nil
}

// vector_distance_cos over two packed float32 blobs (1 - cosine).
func vecDistanceCos(ctx *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	a, b, err := decodePair("vector_distance_cos", args)
	if err != nil {
		return nil, err
	}
	if len(a) == 0 {
		return float64(1), nil
	}
	cos := cosineSimilarity(a, b)
	return 1 - cos, nil
}

func decodePair(fn string, args []driver.Value) ([]float32, []float32, error) {
	if len(args) != 2 {
		return nil, nil, fmt.Errorf("%s expects 2 arguments", fn)
	}
	a, err := decodeArg(fn, args[0])
	if err != nil {
		return nil, nil, err
	}
	b, err := decodeArg(fn, args[1])
	if err != nil {
		return nil, nil, err
	}
	if len(a) != len(b) {
		return nil, nil, fmt.Errorf("%s: dimension mismatch %d vs %d", fn, len(a), len(b))
	}
	return a, b, nil
}

// decodeArg converts supported driver.Value types into a float32 slice.
func decodeArg(fn string, v driver.Value) ([]float32, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case []byte:
		vec, err := DecodeVector(x)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", fn, err)
		}
		return vec, nil
	case string:
		return decodeArg(fn, []byte(x))
	default:
		return nil, fmt.Errorf("%s: unsupported argument type %T", fn, v)
	}
}
