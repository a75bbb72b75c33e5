// Package versioncmp compares version strings the way NVD feed data
// needs: dot-separated numeric components with zero extension, plus
// textual update qualifiers that sort below the bare release.
package versioncmp

import (
	"fmt"
	"strings"

	version "github.com/hashicorp/go-version"
	"github.com/sirupsen/logrus"
)

// Op is a comparison operator.
type Op int

const (
	Lt Op = iota
	Le
	Eq
	Ne
	Ge
	Gt
)

func (op Op) String() string {
	switch op {
	case Lt:
		return "<"
	case Le:
		return "<="
	case Eq:
		return "=="
	case Ne:
		return "!="
	case Ge:
		return ">="
	default:
		return ">"
	}
}

// Comparator decides version ordering. The interface exists so the
// semantics can be swapped without touching predicate evaluation.
type Comparator interface {
	Compare(a, b string, op Op) (bool, error)
}

// Default is the comparator used throughout the service.
var Default Comparator = hashicorpComparator{}

// hashicorpComparator delegates to hashicorp/go-version after
// normalization. `1.0` equals `1.0.0`, and a pre-release suffix sorts
// below the bare version, so `1.0.1` > `1.0.1 rc0`.
type hashicorpComparator struct{}

func (hashicorpComparator) Compare(a, b string, op Op) (bool, error) {
	va, err := version.NewVersion(normalize(a))
	if err != nil {
		return false, fmt.Errorf("could not parse version %q: %w", a, err)
	}
	vb, err := version.NewVersion(normalize(b))
	if err != nil {
		return false, fmt.Errorf("could not parse version %q: %w", b, err)
	}

	c := va.Compare(vb)
	switch op {
	case Lt:
		return c < 0, nil
	case Le:
		return c <= 0, nil
	case Eq:
		return c == 0, nil
	case Ne:
		return c != 0, nil
	case Ge:
		return c >= 0, nil
	default:
		return c > 0, nil
	}
}

// normalize maps NVD-style version spellings onto something the
// underlying library parses: update qualifiers are space-separated in
// feed data (`1.0.1 RC0`) and become pre-release suffixes (`1.0.1-rc0`).
func normalize(v string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	v = strings.ReplaceAll(v, " ", "-")
	return v
}

// Compare is the error-returning form, used where an unparseable
// version must surface to the caller.
func Compare(a, b string, op Op) (bool, error) {
	return Default.Compare(a, b, op)
}

// Eval is the fail-closed form used during predicate evaluation: feed
// data is out of the operator's control, so an unparseable version
// logs and evaluates to a non-match instead of failing the query.
func Eval(a, b string, op Op) bool {
	res, err := Default.Compare(a, b, op)
	if err != nil {
		logrus.Warnf("could not compare versions %s and %s with %s: %v", a, b, op, err)
		return false
	}
	return res
}
