package cpe

import "fmt"

// CpeType is the part tag of a CPE 2.3 identifier.
type CpeType int

const (
	TypeAny CpeType = iota
	TypeHardware
	TypeOperatingSystem
	TypeApplication
)

// ParseType accepts the sentinel `ANY` or a value whose first character
// is one of `h`, `o`, `a`.
func ParseType(val string) (CpeType, error) {
	if val == "ANY" {
		return TypeAny, nil
	}
	if val == "" {
		return TypeAny, &ParseError{Reason: "No chars for type"}
	}
	switch val[0] {
	case 'h':
		return TypeHardware, nil
	case 'o':
		return TypeOperatingSystem, nil
	case 'a':
		return TypeApplication, nil
	default:
		return TypeAny, &ParseError{Reason: fmt.Sprintf("could not convert '%c' to cpe type", val[0])}
	}
}

func (t CpeType) String() string {
	switch t {
	case TypeHardware:
		return "h"
	case TypeOperatingSystem:
		return "o"
	case TypeApplication:
		return "a"
	default:
		return "ANY"
	}
}

// uriString is the rendering used inside a CPE 2.3 URI, where the
// wildcard form `*` stands in for `ANY`.
func (t CpeType) uriString() string {
	if t == TypeAny {
		return "*"
	}
	return t.String()
}
