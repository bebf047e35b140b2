package storage

import (
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	"github.com/zeebo/xxh3"
)

// Cell values are joined with the ASCII unit separator before hashing so
// ("ab","c") and ("a","bc") never collide.
const hashSeparator = "\x1f"

// nullMarker distinguishes a null cell from an empty string.
const nullMarker = "\x00"

// RowHash computes a stable 128-bit hash of a row, hex-encoded. Used as the
// dedupe key when TableSpec.DedupeOnHash is set: identical rows produce
// identical hashes across runs and across backends.
func RowHash(cells []any) string {
	var b strings.Builder
	for i, c := range cells {
		if i > 0 {
			b.WriteString(hashSeparator)
		}
		b.WriteString(hashCellString(c))
	}

	sum := xxh3.Hash128([]byte(b.String())).Bytes()
	return hex.EncodeToString(sum[:])
}

func hashCellString(v any) string {
	switch t := v.(type) {
	case nil:
		return nullMarker
	case string:
		return t
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	case bool:
		if t {
			return "true"
		}
		return "false"
	case time.Time:
		return t.UTC().Format(time.RFC3339Nano)
	default:
		return "?"
	}
}
