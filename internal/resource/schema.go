package resource

import (
	"encoding/json"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/CyberismoCom/cyberismo-engine/internal/engineerr"
)

// schemas holds the structural JSON Schema for each resource kind's
// metadata file, checked ahead of a kind's own Content.Validate (spec §4.3
// "create(content?)" — structural shape before semantic checks).
var schemas = map[Kind]*jsonschema.Schema{
	KindWorkflow: {
		Type:     "object",
		Required: []string{"states", "transitions"},
		Properties: map[string]*jsonschema.Schema{
			"states":      {Type: "array"},
			"transitions": {Type: "array"},
		},
	},
	KindCardType: {
		Type:     "object",
		Required: []string{"workflow"},
		Properties: map[string]*jsonschema.Schema{
			"workflow":     {Type: "string"},
			"customFields": {Type: "array"},
		},
	},
	KindLinkType: {
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"outboundDisplayName": {Type: "string"},
			"inboundDisplayName":  {Type: "string"},
		},
	},
	KindFieldType: {
		Type:     "object",
		Required: []string{"dataType"},
		Properties: map[string]*jsonschema.Schema{
			"dataType": {Type: "string"},
		},
	},
}

// ValidateSchema checks content's marshaled JSON against n.Kind's
// structural schema, when one is registered. Folder kinds (Template,
// Report, GraphModel, GraphView, Calculation) validate purely through
// their own Content.Validate and have no entry here.
func ValidateSchema(n Name, content Content) error {
	schema, ok := schemas[n.Kind]
	if !ok {
		return nil
	}
	raw, err := json.Marshal(content)
	if err != nil {
		return engineerr.Schema("resource.ValidateSchema", n.String(), err)
	}
	var instance any
	if err := json.Unmarshal(raw, &instance); err != nil {
		return engineerr.Schema("resource.ValidateSchema", n.String(), err)
	}

	resolved, err := schema.Resolve(nil)
	if err != nil {
		return engineerr.Schema("resource.ValidateSchema", n.String(), err)
	}
	if err := resolved.Validate(instance); err != nil {
		return engineerr.Validation("resource.ValidateSchema", n.String(), err)
	}
	return nil
}
