// Package calc is the Clingo-backed calculation engine (spec §4.5): it
// assembles a logic program from the card tree and resources, executes
// Handlebars-templated queries against an external clingo binary, and
// renders Graphviz graph queries to SVG.
package calc

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/CyberismoCom/cyberismo-engine/internal/cardmodel"
	"github.com/CyberismoCom/cyberismo-engine/internal/resource"
)

// ProgramBuilder accumulates Clingo fact lines for one section of the base
// program (spec §4.5 "a ClingoProgramBuilder that emits predicate(arg,
// "string", (nested, args)). lines and #include directives").
type ProgramBuilder struct {
	lines []string
}

// NewProgramBuilder returns an empty builder.
func NewProgramBuilder() *ProgramBuilder {
	return &ProgramBuilder{}
}

// Fact appends a single Clingo fact built from name and args, quoting string
// arguments and passing through integer/bool/raw-term arguments unquoted.
func (b *ProgramBuilder) Fact(name string, args ...any) {
	rendered := make([]string, len(args))
	for i, a := range args {
		rendered[i] = renderTerm(a)
	}
	b.lines = append(b.lines, fmt.Sprintf("%s(%s).", name, strings.Join(rendered, ", ")))
}

// Include appends a Clingo #include directive for a canned program file.
func (b *ProgramBuilder) Include(path string) {
	b.lines = append(b.lines, fmt.Sprintf("#include \"%s\".", path))
}

// Raw appends a line verbatim, used for comments or pre-formatted facts a
// caller built itself.
func (b *ProgramBuilder) Raw(line string) {
	b.lines = append(b.lines, line)
}

// String joins every accumulated line with newlines.
func (b *ProgramBuilder) String() string {
	return strings.Join(b.lines, "\n")
}

// Term is a raw, unquoted Clingo term (an identifier, nested tuple, or
// numeric literal already formatted by the caller), distinct from a string
// argument which Fact quotes automatically.
type Term string

func renderTerm(a any) string {
	switch v := a.(type) {
	case Term:
		return string(v)
	case string:
		return quote(v)
	case bool:
		if v {
			return "true"
		}
		return "false"
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return quote(fmt.Sprintf("%v", v))
	}
}

func quote(s string) string {
	escaped := strings.ReplaceAll(s, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, `"`, `\"`)
	return `"` + escaped + `"`
}

// cardIdent derives a Clingo-safe identifier for a card key, which is
// already a valid unquoted atom (spec card key regex [a-z]+_[0-9a-z]+), so
// it is emitted as a raw term rather than a quoted string for ergonomic
// pattern matching in user-written query programs.
func cardIdent(key string) Term { return Term(key) }

// BuildCardFacts emits `card/1`, `parent/2`, `cardType/2`, `workflowState/2`,
// `title/2`, `rank/2`, `label/2`, and `link/4` facts for every card, plus
// `field/3` facts for custom field values (spec §4.5 "emitting facts for
// ... card tree").
func BuildCardFacts(b *ProgramBuilder, cards []*cardmodel.Card) {
	sort.Slice(cards, func(i, j int) bool { return cards[i].Key < cards[j].Key })
	for _, c := range cards {
		b.Fact("card", cardIdent(c.Key))
		b.Fact("parent", cardIdent(c.Key), cardIdent(c.Parent))
		b.Fact("cardType", cardIdent(c.Key), c.Metadata.CardType)
		b.Fact("workflowState", cardIdent(c.Key), c.Metadata.WorkflowState)
		b.Fact("title", cardIdent(c.Key), c.Metadata.Title)
		b.Fact("rank", cardIdent(c.Key), string(c.Metadata.Rank))
		for _, label := range c.Metadata.Labels {
			b.Fact("label", cardIdent(c.Key), label)
		}
		for _, l := range c.Metadata.Links {
			desc := l.LinkDescription
			b.Fact("link", cardIdent(c.Key), l.LinkType, cardIdent(l.CardKey), desc)
		}
		keys := make([]string, 0, len(c.Metadata.CustomFields))
		for k := range c.Metadata.CustomFields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			b.Fact("field", cardIdent(c.Key), k, fmt.Sprintf("%v", c.Metadata.CustomFields[k]))
		}
	}
}

// BuildResourceFacts emits facts describing card types, field types,
// workflows, and link types, which queries use to resolve field data types
// and transition legality (spec §4.5).
func BuildResourceFacts(b *ProgramBuilder, resources []*resource.Resource) {
	sort.Slice(resources, func(i, j int) bool { return resources[i].Name.String() < resources[j].Name.String() })
	for _, r := range resources {
		name := r.Name.String()
		switch c := r.Content.(type) {
		case *resource.CardType:
			b.Fact("cardTypeDef", name, c.Workflow)
			for _, f := range c.CustomFields {
				b.Fact("cardTypeField", name, f.Name, f.DataType)
			}
		case *resource.FieldType:
			b.Fact("fieldTypeDef", name, string(c.DataType))
			for _, v := range c.EnumValues {
				b.Fact("fieldTypeEnumValue", name, v)
			}
		case *resource.Workflow:
			for _, s := range c.States {
				b.Fact("workflowState", name, s.Name, string(s.Category))
			}
			for _, t := range c.Transitions {
				for _, from := range t.FromState {
					b.Fact("workflowTransition", name, t.Name, from, t.ToState)
				}
			}
		case *resource.LinkType:
			b.Fact("linkTypeDef", name, c.OutboundDisplayName, c.InboundDisplayName, c.EnableLinkDescription)
		}
	}
}

// BuildModuleFacts emits one `module/1` fact per imported module prefix.
func BuildModuleFacts(b *ProgramBuilder, modulePrefixes []string) {
	for _, prefix := range modulePrefixes {
		b.Fact("module", prefix)
	}
}
