package resource

import "fmt"

// Content is implemented by each resource kind's payload type. Validate
// checks structural invariants that don't require cross-resource lookups;
// it does not check cross-resource references (e.g. "referenced workflow
// exists").
type Content interface {
	Kind() Kind
	Validate() error
}

// --- CardType (spec §3 "CardType") -----------------------------------------

// FieldRef names a field type used by a card type, with its display name.
// Calculated marks a field whose value is produced by the calculation
// engine (an `onTransition`/`onInsert` calculation's field write) rather
// than by direct user edit; editCardMetadata refuses to write it directly
// (spec §4.4 "Attempting to edit a calculated field fails", §7
// PermissionDenied).
type FieldRef struct {
	Name        string `json:"name"`
	DataType    string `json:"dataType"`
	DisplayName string `json:"displayName"`
	Calculated  bool   `json:"calculated,omitempty"`
}

type CardType struct {
	Workflow               string     `json:"workflow"`
	AlwaysVisibleFields    []string   `json:"alwaysVisibleFields"`
	OptionallyVisibleFields []string  `json:"optionallyVisibleFields"`
	CustomFields           []FieldRef `json:"customFields"`
}

func (c *CardType) Kind() Kind { return KindCardType }

func (c *CardType) Validate() error {
	if c.Workflow == "" {
		return fmt.Errorf("cardType: workflow reference is required")
	}
	seen := make(map[string]bool, len(c.CustomFields))
	for _, f := range c.CustomFields {
		if f.Name == "" {
			return fmt.Errorf("cardType: custom field with empty name")
		}
		if seen[f.Name] {
			return fmt.Errorf("cardType: duplicate custom field %q", f.Name)
		}
		seen[f.Name] = true
	}
	return nil
}

// --- FieldType (spec §3 "FieldType") ----------------------------------------

// DataType enumerates the field type's scalar kind (spec §3, §8 coercion table).
type DataType string

const (
	DataTypeShortText DataType = "shortText"
	DataTypeLongText  DataType = "longText"
	DataTypeNumber    DataType = "number"
	DataTypeInteger   DataType = "integer"
	DataTypeBoolean   DataType = "boolean"
	DataTypeEnum      DataType = "enum"
	DataTypeList      DataType = "list"
	DataTypeDate      DataType = "date"
	DataTypeDateTime  DataType = "dateTime"
	DataTypePerson    DataType = "person"
)

type FieldType struct {
	DataType   DataType `json:"dataType"`
	EnumValues []string `json:"enumValues,omitempty"`
}

func (f *FieldType) Kind() Kind { return KindFieldType }

func (f *FieldType) Validate() error {
	switch f.DataType {
	case DataTypeShortText, DataTypeLongText, DataTypeNumber, DataTypeInteger,
		DataTypeBoolean, DataTypeDate, DataTypeDateTime, DataTypePerson:
		return nil
	case DataTypeEnum, DataTypeList:
		if len(f.EnumValues) == 0 {
			return fmt.Errorf("fieldType: dataType %q requires non-empty enumValues", f.DataType)
		}
		return nil
	default:
		return fmt.Errorf("fieldType: unknown dataType %q", f.DataType)
	}
}

// --- Workflow (spec §3 "Workflow") ------------------------------------------

// StateCategory classifies a workflow state.
type StateCategory string

const (
	CategoryInitial StateCategory = "initial"
	CategoryActive  StateCategory = "active"
	CategoryClosed  StateCategory = "closed"
)

// WildcardFromState is the "any state" wildcard for a transition's
// fromState list.
const WildcardFromState = "*"

type WorkflowState struct {
	Name     string        `json:"name"`
	Category StateCategory `json:"category"`
}

type WorkflowTransition struct {
	Name      string   `json:"name"`
	FromState []string `json:"fromState"`
	ToState   string   `json:"toState"`
}

type Workflow struct {
	States      []WorkflowState       `json:"states"`
	Transitions []WorkflowTransition  `json:"transitions"`
}

func (w *Workflow) Kind() Kind { return KindWorkflow }

func (w *Workflow) Validate() error {
	stateNames := make(map[string]bool, len(w.States))
	initials := 0
	for _, s := range w.States {
		if s.Name == "" {
			return fmt.Errorf("workflow: state with empty name")
		}
		if stateNames[s.Name] {
			return fmt.Errorf("workflow: duplicate state %q", s.Name)
		}
		stateNames[s.Name] = true
		if s.Category == CategoryInitial {
			initials++
		}
	}
	if initials != 1 {
		return fmt.Errorf("workflow: expected exactly one initial state, found %d", initials)
	}
	for _, t := range w.Transitions {
		if !stateNames[t.ToState] {
			return fmt.Errorf("workflow: transition %q references unknown toState %q", t.Name, t.ToState)
		}
		for _, from := range t.FromState {
			if from == WildcardFromState {
				continue
			}
			if !stateNames[from] {
				return fmt.Errorf("workflow: transition %q references unknown fromState %q", t.Name, from)
			}
		}
	}
	return nil
}

// InitialState returns the name of the workflow's single initial-category state.
func (w *Workflow) InitialState() (string, bool) {
	for _, s := range w.States {
		if s.Category == CategoryInitial {
			return s.Name, true
		}
	}
	return "", false
}

// FindTransition returns the transition with the given name, if any.
func (w *Workflow) FindTransition(name string) (WorkflowTransition, bool) {
	for _, t := range w.Transitions {
		if t.Name == name {
			return t, true
		}
	}
	return WorkflowTransition{}, false
}

// AllowsFrom reports whether t can be applied from currentState.
func (t WorkflowTransition) AllowsFrom(currentState string) bool {
	for _, from := range t.FromState {
		if from == WildcardFromState || from == currentState {
			return true
		}
	}
	return false
}

// --- LinkType (spec §3 "LinkType") ------------------------------------------

type LinkType struct {
	SourceCardTypes       []string `json:"sourceCardTypes"`
	DestinationCardTypes  []string `json:"destinationCardTypes"`
	EnableLinkDescription bool     `json:"enableLinkDescription"`
	OutboundDisplayName   string   `json:"outboundDisplayName"`
	InboundDisplayName    string   `json:"inboundDisplayName"`
}

func (l *LinkType) Kind() Kind { return KindLinkType }

func (l *LinkType) Validate() error {
	if l.OutboundDisplayName == "" || l.InboundDisplayName == "" {
		return fmt.Errorf("linkType: outbound and inbound display names are required")
	}
	return nil
}

// AllowsSource reports whether cardType may be the source of a link of this
// type; an empty SourceCardTypes list means unrestricted.
func (l *LinkType) AllowsSource(cardType string) bool {
	return len(l.SourceCardTypes) == 0 || contains(l.SourceCardTypes, cardType)
}

// AllowsDestination reports whether cardType may be the destination.
func (l *LinkType) AllowsDestination(cardType string) bool {
	return len(l.DestinationCardTypes) == 0 || contains(l.DestinationCardTypes, cardType)
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

// --- Template / Report / GraphModel / GraphView / Calculation (folder resources) --

// Template's payload is its prototype card tree, loaded separately via
// cardcache with cardmodel.TemplateLocation(name); the JSON metadata file
// only carries display info.
type Template struct {
	DisplayName string `json:"displayName"`
	Category    string `json:"category,omitempty"`
}

func (t *Template) Kind() Kind { return KindTemplate }
func (t *Template) Validate() error {
	return nil
}

// Report's folder owns report.json (this struct), query.lp.hbs, and
// content.adoc.hbs (spec §6).
type Report struct {
	DisplayName string `json:"displayName"`
	Category    string `json:"category,omitempty"`
	// ContentFiles maps file name -> content, populated by the resource
	// cache for folder resources (spec §4.2).
	ContentFiles map[string]string `json:"-"`
}

func (r *Report) Kind() Kind { return KindReport }
func (r *Report) Validate() error {
	if _, ok := r.ContentFiles["query.lp.hbs"]; !ok {
		return fmt.Errorf("report: missing query.lp.hbs")
	}
	return nil
}

// GraphModel owns model.lp and query.lp.hbs.
type GraphModel struct {
	DisplayName  string            `json:"displayName"`
	ContentFiles map[string]string `json:"-"`
}

func (g *GraphModel) Kind() Kind { return KindGraphModel }
func (g *GraphModel) Validate() error {
	if _, ok := g.ContentFiles["model.lp"]; !ok {
		return fmt.Errorf("graphModel: missing model.lp")
	}
	return nil
}

// GraphView owns view.lp and query.lp.hbs.
type GraphView struct {
	DisplayName  string            `json:"displayName"`
	Model        string            `json:"model"`
	ContentFiles map[string]string `json:"-"`
}

func (g *GraphView) Kind() Kind { return KindGraphView }
func (g *GraphView) Validate() error {
	if g.Model == "" {
		return fmt.Errorf("graphView: model reference is required")
	}
	if _, ok := g.ContentFiles["view.lp"]; !ok {
		return fmt.Errorf("graphView: missing view.lp")
	}
	return nil
}

// Calculation owns calculation.lp.
type Calculation struct {
	DisplayName  string            `json:"displayName"`
	ContentFiles map[string]string `json:"-"`
}

func (c *Calculation) Kind() Kind { return KindCalculation }
func (c *Calculation) Validate() error {
	if _, ok := c.ContentFiles["calculation.lp"]; !ok {
		return fmt.Errorf("calculation: missing calculation.lp")
	}
	return nil
}

// New returns a zero-valued Content for kind, used before unmarshalling a
// resource's JSON metadata file.
func New(kind Kind) (Content, error) {
	switch kind {
	case KindCardType:
		return &CardType{}, nil
	case KindFieldType:
		return &FieldType{}, nil
	case KindWorkflow:
		return &Workflow{}, nil
	case KindLinkType:
		return &LinkType{}, nil
	case KindTemplate:
		return &Template{}, nil
	case KindReport:
		return &Report{}, nil
	case KindGraphModel:
		return &GraphModel{}, nil
	case KindGraphView:
		return &GraphView{}, nil
	case KindCalculation:
		return &Calculation{}, nil
	default:
		return nil, fmt.Errorf("resource: unknown kind %q", kind)
	}
}

// DefaultContentFiles returns the canonical set of content file names a
// folder resource of kind scaffolds on create (spec §6).
func DefaultContentFiles(kind Kind) map[string]string {
	switch kind {
	case KindReport:
		return map[string]string{
			"query.lp.hbs":    "% query for {{cardKey}}\n",
			"content.adoc.hbs": "== {{title}}\n",
		}
	case KindGraphModel:
		return map[string]string{"model.lp": "% graph model\n"}
	case KindGraphView:
		return map[string]string{
			"view.lp":      "% graph view\n",
			"query.lp.hbs": "% query for {{cardKey}}\n",
		}
	case KindCalculation:
		return map[string]string{"calculation.lp": "% calculation\n"}
	default:
		return nil
	}
}
