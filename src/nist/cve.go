// Package nist models the NVD 1.1 JSON feed: the CVE record shape, its
// CVSS impact metrics and the configuration tree that decides which
// (product, version) pairs a record applies to.
package nist

import "github.com/CodeClarityCE/service-cvesearch/src/cpe"

// SourceName tags records ingested from the NIST feeds.
const SourceName = "NIST"

// FeedVersion is the NVD JSON feed schema consumed.
const FeedVersion = "1.1"

// Container is the top level of a yearly feed file.
type Container struct {
	CVEDataType         string `json:"CVE_data_type"`
	CVEDataFormat       string `json:"CVE_data_format"`
	CVEDataVersion      string `json:"CVE_data_version"`
	CVEDataNumberOfCVEs string `json:"CVE_data_numberOfCVEs"`
	CVEDataTimestamp    string `json:"CVE_data_timestamp"`
	CVEItems            []CVE  `json:"CVE_Items"`
}

// Meta carries the record identity.
type Meta struct {
	ID       string `json:"ID"`
	Assigner string `json:"ASSIGNER,omitempty"`
}

type Reference struct {
	URL  string   `json:"url"`
	Name string   `json:"name"`
	Tags []string `json:"tags"`
}

type References struct {
	ReferenceData []Reference `json:"reference_data"`
}

type DescriptionData struct {
	Lang  string `json:"lang"`
	Value string `json:"value"`
}

type Description struct {
	DescriptionData []DescriptionData `json:"description_data"`
}

type ProblemTypeDescription struct {
	Lang  string `json:"lang"`
	Value string `json:"value"`
}

type ProblemTypeDataItem struct {
	Description []ProblemTypeDescription `json:"description"`
}

type ProblemType struct {
	ProblemTypeData []ProblemTypeDataItem `json:"problemtype_data"`
}

// Info is the `cve` object of a feed record.
type Info struct {
	Meta        Meta        `json:"CVE_data_meta"`
	References  References  `json:"references"`
	Description Description `json:"description"`
	ProblemType ProblemType `json:"problemtype"`
}

// CVSSV2 is the CVSS v2 payload. The NVD stopped populating v2 for new
// CVEs in 2022, but the older records keep it.
type CVSSV2 struct {
	Version               string  `json:"version"`
	VectorString          string  `json:"vectorString"`
	AccessVector          string  `json:"accessVector"`
	AccessComplexity      string  `json:"accessComplexity"`
	Authentication        string  `json:"authentication"`
	ConfidentialityImpact string  `json:"confidentialityImpact"`
	IntegrityImpact       string  `json:"integrityImpact"`
	AvailabilityImpact    string  `json:"availabilityImpact"`
	BaseScore             float64 `json:"baseScore"`
}

// CVSSV3 is the CVSS v3 payload. Records published before 2016 only
// carry it when they were later reanalyzed.
type CVSSV3 struct {
	Version               string  `json:"version"`
	VectorString          string  `json:"vectorString"`
	AttackVector          string  `json:"attackVector"`
	AttackComplexity      string  `json:"attackComplexity"`
	PrivilegesRequired    string  `json:"privilegesRequired"`
	UserInteraction       string  `json:"userInteraction"`
	Scope                 string  `json:"scope"`
	ConfidentialityImpact string  `json:"confidentialityImpact"`
	IntegrityImpact       string  `json:"integrityImpact"`
	AvailabilityImpact    string  `json:"availabilityImpact"`
	BaseScore             float64 `json:"baseScore"`
	BaseSeverity          string  `json:"baseSeverity"`
}

type ImpactMetricV2 struct {
	Cvss                    CVSSV2  `json:"cvssV2"`
	ExploitabilityScore     float64 `json:"exploitabilityScore"`
	ImpactScore             float64 `json:"impactScore"`
	Severity                string  `json:"severity"`
	AcInsufInfo             bool    `json:"acInsufInfo,omitempty"`
	ObtainAllPrivilege      bool    `json:"obtainAllPrivilege"`
	ObtainUserPrivilege     bool    `json:"obtainUserPrivilege"`
	ObtainOtherPrivilege    bool    `json:"obtainOtherPrivilege"`
	UserInteractionRequired bool    `json:"userInteractionRequired,omitempty"`
}

type ImpactMetricV3 struct {
	Cvss                CVSSV3  `json:"cvssV3"`
	ExploitabilityScore float64 `json:"exploitabilityScore"`
	ImpactScore         float64 `json:"impactScore"`
}

// Impact holds whichever CVSS tiers the record carries.
type Impact struct {
	MetricV2 *ImpactMetricV2 `json:"baseMetricV2,omitempty"`
	MetricV3 *ImpactMetricV3 `json:"baseMetricV3,omitempty"`
}

// Configurations holds the applicability tree roots. Roots are joined
// implicitly by OR.
type Configurations struct {
	DataVersion string `json:"CVE_data_version"`
	Nodes       []Node `json:"nodes"`
}

// CVE is one record of the NVD feed.
type CVE struct {
	Info             Info           `json:"cve"`
	Impact           Impact         `json:"impact"`
	Configurations   Configurations `json:"configurations"`
	PublishedDate    string         `json:"publishedDate"`
	LastModifiedDate string         `json:"lastModifiedDate"`
}

// IsComplete reports whether the record carries an applicability tree.
// The NVD publishes records before analysis finishes; those have no
// configuration nodes yet and are discarded at ingest.
func (c *CVE) IsComplete() bool {
	return len(c.Configurations.Nodes) > 0
}

// ID returns the CVE identifier, e.g. CVE-2021-12345.
func (c *CVE) ID() string {
	return c.Info.Meta.ID
}

// Summary returns the first english description, or "" when the record
// has none.
func (c *CVE) Summary() string {
	for _, desc := range c.Info.Description.DescriptionData {
		if desc.Lang == "en" {
			return desc.Value
		}
	}
	return ""
}

// Problems flattens the weakness identifiers of the record.
func (c *CVE) Problems() []string {
	var problems []string
	for _, item := range c.Info.ProblemType.ProblemTypeData {
		for _, desc := range item.Description {
			problems = append(problems, desc.Value)
		}
	}
	return problems
}

// ScoreSeverityVector extracts the headline metrics, preferring v3
// over v2. Records with neither tier yield 0.0, "" and "".
func (c *CVE) ScoreSeverityVector() (float64, string, string) {
	if v3 := c.Impact.MetricV3; v3 != nil {
		return v3.Cvss.BaseScore, v3.Cvss.BaseSeverity, v3.Cvss.AttackVector
	}
	if v2 := c.Impact.MetricV2; v2 != nil {
		return v2.Cvss.BaseScore, v2.Severity, v2.Cvss.AccessVector
	}
	return 0.0, "", ""
}

// CollectUniqueProducts gathers the (vendor, product) pairs of every
// predicate reachable from the configuration roots.
func (c *CVE) CollectUniqueProducts() []cpe.Product {
	var products []cpe.Product
	seen := make(map[cpe.Product]bool)

	for i := range c.Configurations.Nodes {
		for _, prod := range c.Configurations.Nodes[i].CollectUniqueProducts() {
			if !seen[prod] {
				seen[prod] = true
				products = append(products, prod)
			}
		}
	}

	return products
}

// IsMatch reports whether any configuration root covers the
// (product, version) pair.
func (c *CVE) IsMatch(product, version string) bool {
	for i := range c.Configurations.Nodes {
		if c.Configurations.Nodes[i].IsMatch(product, version) {
			return true
		}
	}
	return false
}
