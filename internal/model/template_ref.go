package model

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// TemplateRef identifies an NPC template either by numeric ID or by symbolic key.
type TemplateRef struct {
	id  int32
	key string
}

// TemplateByID references a template by numeric ID.
func TemplateByID(id int32) TemplateRef {
	return TemplateRef{id: id}
}

// TemplateByKey references a template by symbolic key.
func TemplateByKey(key string) TemplateRef {
	return TemplateRef{key: strings.TrimSpace(key)}
}

// ID returns the numeric ID (0 for key refs).
func (t TemplateRef) ID() int32 { return t.id }

// Key returns the symbolic key ("" for ID refs).
func (t TemplateRef) Key() string { return t.key }

// HasID reports whether the ref is numeric.
func (t TemplateRef) HasID() bool { return t.key == "" && t.id > 0 }

// IsZero reports whether the ref was never set.
func (t TemplateRef) IsZero() bool { return t.key == "" && t.id == 0 }

// String returns "id:<n>" or "key:<s>".
func (t TemplateRef) String() string {
	if t.key != "" {
		return "key:" + t.key
	}
	if t.id == 0 {
		return ""
	}
	return "id:" + strconv.FormatInt(int64(t.id), 10)
}

// ParseTemplateRef normalizes a template reference.
// Numeric strings and integers both become ID refs, so "20001" and 20001 compare equal.
func ParseTemplateRef(v any) (TemplateRef, error) {
	switch x := v.(type) {
	case TemplateRef:
		if x.IsZero() {
			return TemplateRef{}, fmt.Errorf("%w: empty", ErrInvalidTemplateRef)
		}
		return x, nil
	case string:
		return parseTemplateString(x)
	case nil:
		return TemplateRef{}, fmt.Errorf("%w: missing", ErrInvalidTemplateRef)
	}

	id, ok := integerValue(v)
	if !ok {
		return TemplateRef{}, fmt.Errorf("%w: unsupported type %T", ErrInvalidTemplateRef, v)
	}
	return templateID(id)
}

func parseTemplateString(s string) (TemplateRef, error) {
	s = strings.TrimSpace(s)
	switch {
	case s == "":
		return TemplateRef{}, fmt.Errorf("%w: empty string", ErrInvalidTemplateRef)
	case strings.HasPrefix(s, "id:"):
		s = strings.TrimSpace(strings.TrimPrefix(s, "id:"))
	case strings.HasPrefix(s, "key:"):
		key := strings.TrimSpace(strings.TrimPrefix(s, "key:"))
		if key == "" {
			return TemplateRef{}, fmt.Errorf("%w: empty key", ErrInvalidTemplateRef)
		}
		return TemplateByKey(key), nil
	case !isDigits(s):
		return TemplateByKey(s), nil
	}

	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return TemplateRef{}, fmt.Errorf("%w: bad id %q", ErrInvalidTemplateRef, s)
	}
	return templateID(id)
}

func templateID(id int64) (TemplateRef, error) {
	if id <= 0 || id > math.MaxInt32 {
		return TemplateRef{}, fmt.Errorf("%w: id %d out of range", ErrInvalidTemplateRef, id)
	}
	return TemplateByID(int32(id)), nil
}
