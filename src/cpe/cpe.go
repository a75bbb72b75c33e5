// Package cpe implements the CPE 2.3 structured product identifier:
// parsing and rendering of `cpe:2.3:` URIs plus the product and version
// matching rules used when evaluating NVD applicability trees.
package cpe

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/CodeClarityCE/service-cvesearch/src/versioncmp"
)

// Product is the (vendor, product) pair a CPE identifies. It is the key
// under which vulnerability records are indexed.
type Product struct {
	Vendor  string `json:"vendor"`
	Product string `json:"product"`
}

// CPE23 is a parsed CPE 2.3 identifier: the part tag plus the ten
// ordered components of the naming algebra.
type CPE23 struct {
	Part      CpeType
	Vendor    Component
	Product   Component
	Version   Component
	Update    Component
	Edition   Component
	Language  Component
	SwEdition Component
	TargetSw  Component
	TargetHw  Component
	Other     Component
}

// ParseError reports a malformed CPE URI or part tag.
type ParseError struct {
	Input  string
	Reason string
}

func (e *ParseError) Error() string {
	return e.Reason
}

// Parse parses a `cpe:2.3:` URI. The `cpe` token is accepted in either
// case, the `2.3` version literal is mandatory, and exactly 11 fields
// must follow the prefix.
func Parse(uri string) (CPE23, error) {
	fields := strings.Split(uri, ":")

	if tok := fields[0]; strings.ToLower(tok) != "cpe" {
		return CPE23{}, &ParseError{Input: uri, Reason: fmt.Sprintf("expected 'cpe' found '%s'", tok)}
	}
	if len(fields) < 2 || fields[1] != "2.3" {
		found := ""
		if len(fields) > 1 {
			found = fields[1]
		}
		return CPE23{}, &ParseError{Input: uri, Reason: fmt.Sprintf("expected cpe v2.3, found v%s", found)}
	}
	if len(fields) != 13 {
		return CPE23{}, &ParseError{Input: uri, Reason: "invalid version string"}
	}

	part, err := ParseType(fields[2])
	if err != nil {
		return CPE23{}, err
	}

	return CPE23{
		Part:      part,
		Vendor:    ParseComponent(fields[3]),
		Product:   ParseComponent(fields[4]),
		Version:   ParseComponent(fields[5]),
		Update:    ParseComponent(fields[6]),
		Edition:   ParseComponent(fields[7]),
		Language:  ParseComponent(fields[8]),
		SwEdition: ParseComponent(fields[9]),
		TargetSw:  ParseComponent(fields[10]),
		TargetHw:  ParseComponent(fields[11]),
		Other:     ParseComponent(fields[12]),
	}, nil
}

// String renders the URI form; the prefix is always emitted lower-case.
// Rendering a parsed URI gives the input back (up to prefix case) when
// the part is `h`, `o` or `a`; a part parsed from `ANY` renders as `*`,
// which Parse does not accept.
func (c CPE23) String() string {
	return fmt.Sprintf("cpe:2.3:%s:%s:%s:%s:%s:%s:%s:%s:%s:%s:%s",
		c.Part.uriString(), c.Vendor, c.Product, c.Version, c.Update, c.Edition,
		c.Language, c.SwEdition, c.TargetSw, c.TargetHw, c.Other)
}

// ToProduct derives the stored (vendor, product) key. The raw vendor
// and product fields are used, without target_sw composition, so that
// lookups by the naive product name hit the row and the matcher
// disambiguates afterwards.
func (c CPE23) ToProduct() Product {
	return Product{
		Vendor:  c.Vendor.String(),
		Product: c.Product.String(),
	}
}

// IsProductMatch reports whether this CPE covers the given product
// name. When target_sw carries a value, the effective product name is
// `<target_sw>-<product>`, where only the leading alphanumeric run of
// target_sw is kept (`node.js` gives `node`): the NVD encodes ecosystem packages by
// pairing a generic product name with a target_sw tag, and the
// composed name keeps an advisory about node-tar from matching gnu tar.
func (c CPE23) IsProductMatch(product string) bool {
	if c.Product.IsAny() {
		return true
	}
	if c.Product.IsNotApplicable() {
		return false
	}

	myProduct := c.Product.String()
	if c.TargetSw.IsValue() {
		myProduct = normalizeTargetSoftware(c.TargetSw.Value()) + "-" + myProduct
	}

	return product == myProduct
}

// IsVersionMatch reports whether this CPE's version field covers the
// given version string. An update qualifier is folded into the
// comparison as a space-separated suffix.
func (c CPE23) IsVersionMatch(version string) bool {
	if c.Version.IsAny() {
		return true
	}
	if c.Version.IsNotApplicable() {
		return false
	}

	myVersion := c.Version.String()
	if c.Update.IsValue() {
		myVersion = myVersion + " " + c.Update.Value()
	}

	return versioncmp.Eval(version, myVersion, versioncmp.Eq)
}

// normalizeTargetSoftware keeps the leading alphanumeric run of a
// target_sw value, so `node.js` becomes `node`.
func normalizeTargetSoftware(targetSw string) string {
	for i, r := range targetSw {
		if !isAlphanumeric(r) {
			return targetSw[:i]
		}
	}
	return targetSw
}

func isAlphanumeric(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

// MarshalJSON renders the URI string form used on the wire.
func (c CPE23) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

// UnmarshalJSON parses the URI string form.
func (c *CPE23) UnmarshalJSON(data []byte) error {
	var uri string
	if err := json.Unmarshal(data, &uri); err != nil {
		return err
	}
	parsed, err := Parse(uri)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
