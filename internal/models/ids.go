package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ExerciseID is the canonical string form of an exercise identifier.
// Historical client data stored exercise ids sometimes as JSON numbers and
// sometimes as strings; normalizing once at the storage boundary means every
// later comparison is a plain equality check.
type ExerciseID string

// NormalizeExerciseID converts any historical representation (string, int,
// float from JSON decoding) into the canonical form. Floats with no
// fractional part are rendered as integers, so 12.0 and "12" both
// normalize to "12".
func NormalizeExerciseID(v any) ExerciseID {
	switch x := v.(type) {
	case string:
		return normalizeIDString(x)
	case int:
		return ExerciseID(strconv.Itoa(x))
	case int64:
		return ExerciseID(strconv.FormatInt(x, 10))
	case float64:
		if x == float64(int64(x)) {
			return ExerciseID(strconv.FormatInt(int64(x), 10))
		}
		return ExerciseID(strconv.FormatFloat(x, 'f', -1, 64))
	case ExerciseID:
		return normalizeIDString(string(x))
	case nil:
		return ""
	default:
		return normalizeIDString(fmt.Sprint(x))
	}
}

func normalizeIDString(s string) ExerciseID {
	s = strings.TrimSpace(s)
	// "12.0" and "12" refer to the same catalog entry
	if f, err := strconv.ParseFloat(s, 64); err == nil && f == float64(int64(f)) {
		return ExerciseID(strconv.FormatInt(int64(f), 10))
	}
	return ExerciseID(s)
}

// Numeric reports the id as an integer when it has one.
func (id ExerciseID) Numeric() (int64, bool) {
	n, err := strconv.ParseInt(string(id), 10, 64)
	return n, err == nil
}

// UnmarshalJSON accepts both string and number encodings.
func (id *ExerciseID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*id = normalizeIDString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*id = normalizeIDString(n.String())
		return nil
	}
	return fmt.Errorf("cannot parse exercise id %s", data)
}

func (id ExerciseID) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(id))
}

// FlexInt tolerates the number/string/null drift seen in stored split data.
// Unparseable values decode to zero so that split repair can substitute
// defaults instead of failing the whole load.
type FlexInt int

func (f *FlexInt) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		*f = FlexInt(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if v, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			*f = FlexInt(v)
			return nil
		}
		if v, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			*f = FlexInt(int(v))
			return nil
		}
		*f = 0
		return nil
	}
	var fl float64
	if err := json.Unmarshal(data, &fl); err == nil {
		*f = FlexInt(int(fl))
		return nil
	}
	// null or anything else unrecognized
	*f = 0
	return nil
}

func (f FlexInt) MarshalJSON() ([]byte, error) {
	return json.Marshal(int(f))
}
