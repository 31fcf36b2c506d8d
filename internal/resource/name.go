// Package resource implements the resource object contract (spec §4.3):
// one variant per resource kind, dispatched via an exhaustive Kind switch
// rather than per-kind classes, following the tagged-variant redesign
// called for in spec §9 ("Dynamic resource dispatch").
package resource

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/CyberismoCom/cyberismo-engine/internal/engineerr"
	"github.com/CyberismoCom/cyberismo-engine/internal/paths"
)

// Kind enumerates the nine resource kinds of spec §3.
type Kind string

const (
	KindCardType    Kind = "cardTypes"
	KindFieldType   Kind = "fieldTypes"
	KindWorkflow    Kind = "workflows"
	KindLinkType    Kind = "linkTypes"
	KindTemplate    Kind = "templates"
	KindReport      Kind = "reports"
	KindGraphModel  Kind = "graphModels"
	KindGraphView   Kind = "graphViews"
	KindCalculation Kind = "calculations"
)

// AllKinds lists every resource kind, in the same order as paths.AllResourceKinds.
var AllKinds = []Kind{
	KindCardType, KindFieldType, KindWorkflow, KindLinkType,
	KindTemplate, KindReport, KindGraphModel, KindGraphView, KindCalculation,
}

// IsFolderKind reports whether kind owns a content subfolder in addition
// to its metadata JSON file (spec §3 "folder resources").
func (k Kind) IsFolderKind() bool {
	return paths.FolderResourceKinds[paths.ResourceKind(k)]
}

// identifierPattern matches a resource identifier: [A-Za-z0-9._-]+ (spec §3).
var identifierPattern = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// Name is a fully-qualified resource name "<prefix>/<kind>/<identifier>".
type Name struct {
	Prefix     string
	Kind       Kind
	Identifier string
}

// String renders the fully-qualified name.
func (n Name) String() string {
	return fmt.Sprintf("%s/%s/%s", n.Prefix, n.Kind, n.Identifier)
}

// ParseName parses a fully-qualified resource name, validating the
// identifier's regex and that kind is one of the nine known kinds.
func ParseName(s string) (Name, error) {
	parts := strings.Split(s, "/")
	if len(parts) != 3 {
		return Name{}, engineerr.Validation("resource.ParseName", s, fmt.Errorf("expected <prefix>/<kind>/<identifier>"))
	}
	prefix, kindStr, identifier := parts[0], parts[1], parts[2]
	if prefix == "" {
		return Name{}, engineerr.Validation("resource.ParseName", s, fmt.Errorf("empty prefix"))
	}
	kind := Kind(kindStr)
	if !validKind(kind) {
		return Name{}, engineerr.Validation("resource.ParseName", s, fmt.Errorf("unknown resource kind %q", kindStr))
	}
	if !identifierPattern.MatchString(identifier) {
		return Name{}, engineerr.Validation("resource.ParseName", s, fmt.Errorf("identifier %q fails pattern %s", identifier, identifierPattern))
	}
	return Name{Prefix: prefix, Kind: kind, Identifier: identifier}, nil
}

func validKind(k Kind) bool {
	for _, candidate := range AllKinds {
		if candidate == k {
			return true
		}
	}
	return false
}
