package checkpoint

import (
	"fmt"
	"math"
	"strconv"

	"github.com/goccy/go-json"
)

// Named literals used for non-finite weights. A diverged model is still
// written out, and files from the original trainer that contain these
// strings decode.
const (
	literalNaN    = "NaN"
	literalPosInf = "Infinity"
	literalNegInf = "-Infinity"
)

// Values is a tensor's flat data. Finite values encode as JSON numbers and
// non-finite ones as the named literals above.
type Values []float64

func (v Values) MarshalJSON() ([]byte, error) {
	if v == nil {
		return []byte("null"), nil
	}
	buf := make([]byte, 0, 2+len(v)*20)
	buf = append(buf, '[')
	for i, x := range v {
		if i > 0 {
			buf = append(buf, ',')
		}
		switch {
		case math.IsNaN(x):
			buf = strconv.AppendQuote(buf, literalNaN)
		case math.IsInf(x, 1):
			buf = strconv.AppendQuote(buf, literalPosInf)
		case math.IsInf(x, -1):
			buf = strconv.AppendQuote(buf, literalNegInf)
		default:
			buf = strconv.AppendFloat(buf, x, 'g', -1, 64)
		}
	}
	return append(buf, ']'), nil
}

func (v *Values) UnmarshalJSON(data []byte) error {
	var plain []float64
	if err := json.Unmarshal(data, &plain); err == nil {
		*v = plain
		return nil
	}

	var mixed []any
	if err := json.Unmarshal(data, &mixed); err != nil {
		return err
	}
	if mixed == nil {
		*v = nil
		return nil
	}
	out := make(Values, len(mixed))
	for i, e := range mixed {
		switch x := e.(type) {
		case float64:
			out[i] = x
		case string:
			f, err := parseLiteral(x)
			if err != nil {
				return fmt.Errorf("value %d: %w", i, err)
			}
			out[i] = f
		default:
			return fmt.Errorf("value %d: unexpected %T", i, e)
		}
	}
	*v = out
	return nil
}

func parseLiteral(s string) (float64, error) {
	switch s {
	case literalNaN:
		return math.NaN(), nil
	case literalPosInf:
		return math.Inf(1), nil
	case literalNegInf:
		return math.Inf(-1), nil
	default:
		return 0, fmt.Errorf("unknown literal %q", s)
	}
}
