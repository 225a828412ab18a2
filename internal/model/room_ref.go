package model

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Room is a resolved room handle owned by the host world.
type Room interface {
	RoomID() int64
	RoomKey() string
}

// RoomRefKind tells which shape a RoomRef was declared with.
type RoomRefKind uint8

const (
	RoomRefNone RoomRefKind = iota
	RoomRefHandle
	RoomRefID
	RoomRefKey
)

// RoomRef — ссылка на комнату: готовый handle, числовой ID или строковый ключ.
// Нормализуется один раз при создании entry, дальше только match по kind.
type RoomRef struct {
	kind   RoomRefKind
	handle Room
	id     int64
	key    string
}

// RoomByHandle wraps an already resolved room.
func RoomByHandle(h Room) RoomRef {
	if h == nil {
		return RoomRef{}
	}
	return RoomRef{kind: RoomRefHandle, handle: h, id: h.RoomID()}
}

// RoomByID references a room by its numeric ID.
func RoomByID(id int64) RoomRef {
	return RoomRef{kind: RoomRefID, id: id}
}

// RoomByKey references a room by its symbolic key.
func RoomByKey(key string) RoomRef {
	return RoomRef{kind: RoomRefKey, key: strings.TrimSpace(key)}
}

// Kind returns the declared shape.
func (r RoomRef) Kind() RoomRefKind { return r.kind }

// Handle returns the wrapped handle for RoomRefHandle refs.
func (r RoomRef) Handle() Room { return r.handle }

// ID returns the numeric ID (RoomRefID and RoomRefHandle).
func (r RoomRef) ID() int64 { return r.id }

// Key returns the symbolic key (RoomRefKey).
func (r RoomRef) Key() string { return r.key }

// IsZero reports whether the ref was never set.
func (r RoomRef) IsZero() bool { return r.kind == RoomRefNone }

// Persistable returns the ref in a form that survives a restart.
// Handles are stored by their numeric ID.
func (r RoomRef) Persistable() RoomRef {
	if r.kind == RoomRefHandle {
		return RoomByID(r.id)
	}
	return r
}

// String returns the canonical encoding: "id:<n>" or "key:<s>".
func (r RoomRef) String() string {
	switch r.kind {
	case RoomRefHandle, RoomRefID:
		return "id:" + strconv.FormatInt(r.id, 10)
	case RoomRefKey:
		return "key:" + r.key
	default:
		return ""
	}
}

// Same reports whether both refs carry the same declared identity.
// A handle and an ID ref to the same room number are the same.
func (r RoomRef) Same(other RoomRef) bool {
	return !r.IsZero() && r.String() == other.String()
}

// ParseRoomRef normalizes any accepted room reference shape:
// Room handles, integers, and strings ("12", "#12", "id:12", "key:village", "village").
func ParseRoomRef(v any) (RoomRef, error) {
	switch x := v.(type) {
	case RoomRef:
		if x.IsZero() {
			return RoomRef{}, fmt.Errorf("%w: empty", ErrInvalidRoomRef)
		}
		return x, nil
	case Room:
		return RoomByHandle(x), nil
	case string:
		return parseRoomString(x)
	case nil:
		return RoomRef{}, fmt.Errorf("%w: missing", ErrInvalidRoomRef)
	}

	id, ok := integerValue(v)
	if !ok {
		return RoomRef{}, fmt.Errorf("%w: unsupported type %T", ErrInvalidRoomRef, v)
	}
	if id < 0 {
		return RoomRef{}, fmt.Errorf("%w: negative id %d", ErrInvalidRoomRef, id)
	}
	return RoomByID(id), nil
}

func parseRoomString(s string) (RoomRef, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return RoomRef{}, fmt.Errorf("%w: empty string", ErrInvalidRoomRef)
	}

	switch {
	case strings.HasPrefix(s, "id:"):
		return parseRoomID(strings.TrimPrefix(s, "id:"))
	case strings.HasPrefix(s, "#"):
		return parseRoomID(strings.TrimPrefix(s, "#"))
	case strings.HasPrefix(s, "key:"):
		key := strings.TrimSpace(strings.TrimPrefix(s, "key:"))
		if key == "" {
			return RoomRef{}, fmt.Errorf("%w: empty key", ErrInvalidRoomRef)
		}
		return RoomByKey(key), nil
	}

	if isDigits(s) {
		return parseRoomID(s)
	}
	return RoomByKey(s), nil
}

func parseRoomID(s string) (RoomRef, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id < 0 {
		return RoomRef{}, fmt.Errorf("%w: bad id %q", ErrInvalidRoomRef, s)
	}
	return RoomByID(id), nil
}

// integerValue accepts every integer kind a YAML/TOML/JSON decoder may produce.
func integerValue(v any) (int64, bool) {
	switch x := v.(type) {
	case int:
		return int64(x), true
	case int32:
		return int64(x), true
	case int64:
		return x, true
	case uint32:
		return int64(x), true
	case uint64:
		if x > math.MaxInt64 {
			return 0, false
		}
		return int64(x), true
	case float64:
		if x != math.Trunc(x) || x > math.MaxInt64 || x < math.MinInt64 {
			return 0, false
		}
		return int64(x), true
	default:
		return 0, false
	}
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
