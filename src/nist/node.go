package nist

import (
	"encoding/json"
	"fmt"

	"github.com/CodeClarityCE/service-cvesearch/src/cpe"
	"github.com/CodeClarityCE/service-cvesearch/src/versioncmp"
)

// Match is a single CPE predicate inside a configuration node: one
// CPE 2.3 identifier plus an optional version range. A bound is
// present iff its string is non-empty; the feed never carries empty
// bound values.
type Match struct {
	Vulnerable            bool      `json:"vulnerable"`
	Cpe23                 cpe.CPE23 `json:"cpe23Uri"`
	VersionStartIncluding string    `json:"versionStartIncluding,omitempty"`
	VersionStartExcluding string    `json:"versionStartExcluding,omitempty"`
	VersionEndIncluding   string    `json:"versionEndIncluding,omitempty"`
	VersionEndExcluding   string    `json:"versionEndExcluding,omitempty"`
}

func (m *Match) HasVersionRange() bool {
	return m.VersionStartIncluding != "" ||
		m.VersionStartExcluding != "" ||
		m.VersionEndIncluding != "" ||
		m.VersionEndExcluding != ""
}

// VersionRangeMatches checks every present bound and fails closed on
// the first one that does not hold.
func (m *Match) VersionRangeMatches(ver string) bool {
	if m.VersionStartIncluding != "" && !versioncmp.Eval(ver, m.VersionStartIncluding, versioncmp.Ge) {
		return false
	}
	if m.VersionStartExcluding != "" && !versioncmp.Eval(ver, m.VersionStartExcluding, versioncmp.Gt) {
		return false
	}
	if m.VersionEndIncluding != "" && !versioncmp.Eval(ver, m.VersionEndIncluding, versioncmp.Le) {
		return false
	}
	if m.VersionEndExcluding != "" && !versioncmp.Eval(ver, m.VersionEndExcluding, versioncmp.Lt) {
		return false
	}
	return true
}

func (m *Match) Product() cpe.Product {
	return m.Cpe23.ToProduct()
}

// IsMatch decides whether this predicate covers the (product, version)
// pair. The vulnerable flag is not consulted: the source data marks
// some matching configurations as non-vulnerable context, and those
// matches are still reported to the caller.
func (m *Match) IsMatch(product, version string) bool {
	if !m.Cpe23.IsProductMatch(product) {
		return false
	}
	if m.HasVersionRange() {
		return m.VersionRangeMatches(version)
	}
	return m.Cpe23.IsVersionMatch(version)
}

// Operator joins the predicates or children of a configuration node.
type Operator string

const (
	OperatorAnd Operator = "AND"
	OperatorOr  Operator = "OR"
)

// UnmarshalJSON accepts the feed spellings and maps an empty string to
// OR. An absent field leaves the zero Operator, which Node.IsMatch
// evaluates like OR.
func (o *Operator) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	switch s {
	case "AND":
		*o = OperatorAnd
	case "OR", "":
		*o = OperatorOr
	default:
		return fmt.Errorf("unknown configuration operator %q", s)
	}
	return nil
}

// Node is one node of the boolean applicability tree of a CVE record.
// A node with predicates is a leaf; otherwise its children carry the
// subtree.
type Node struct {
	Operator Operator `json:"operator"`
	Children []Node   `json:"children"`
	CpeMatch []Match  `json:"cpe_match"`
}

// CollectUniqueProducts returns the (vendor, product) pairs reachable
// from this node, deduplicated, in first-seen order.
func (n *Node) CollectUniqueProducts() []cpe.Product {
	var products []cpe.Product

	contains := func(p cpe.Product) bool {
		for _, existing := range products {
			if existing == p {
				return true
			}
		}
		return false
	}

	for i := range n.CpeMatch {
		if prod := n.CpeMatch[i].Product(); !contains(prod) {
			products = append(products, prod)
		}
	}

	for i := range n.Children {
		for _, prod := range n.Children[i].CollectUniqueProducts() {
			if !contains(prod) {
				products = append(products, prod)
			}
		}
	}

	return products
}

// IsMatch evaluates the subtree rooted at this node. A leaf applies
// its operator over the predicates, an internal node over its
// children. An empty node matches nothing.
func (n *Node) IsMatch(product, version string) bool {
	if len(n.CpeMatch) > 0 {
		switch n.Operator {
		case OperatorAnd:
			for i := range n.CpeMatch {
				if !n.CpeMatch[i].IsMatch(product, version) {
					return false
				}
			}
			return true
		default:
			for i := range n.CpeMatch {
				if n.CpeMatch[i].IsMatch(product, version) {
					return true
				}
			}
		}
		return false
	}

	switch n.Operator {
	case OperatorAnd:
		if len(n.Children) == 0 {
			return false
		}
		for i := range n.Children {
			if !n.Children[i].IsMatch(product, version) {
				return false
			}
		}
		return true
	default:
		for i := range n.Children {
			if n.Children[i].IsMatch(product, version) {
				return true
			}
		}
	}
	return false
}
