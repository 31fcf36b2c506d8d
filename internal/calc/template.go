package calc

import (
	"bytes"
	"regexp"
	"strings"
	"text/template"

	"github.com/CyberismoCom/cyberismo-engine/internal/engineerr"
)

// Query templates shipped with resources are written in the Handlebars
// dialect ("{{#each x}}...{{/each}}", "{{#if x}}...{{/if}}", "{{this}}").
// No Handlebars engine exists in the dependency surface available to this
// project, so templates are transpiled to Go's text/template syntax before
// parsing; this is the one rendering path in the engine not backed by a
// third-party library (documented as a deliberate exception).
var (
	eachOpenPattern  = regexp.MustCompile(`\{\{#each\s+([\w.]+)\}\}`)
	eachClosePattern = regexp.MustCompile(`\{\{/each\}\}`)
	ifOpenPattern    = regexp.MustCompile(`\{\{#if\s+([\w.]+)\}\}`)
	ifClosePattern   = regexp.MustCompile(`\{\{/if\}\}`)
	unlessOpenPattern = regexp.MustCompile(`\{\{#unless\s+([\w.]+)\}\}`)
	unlessClosePattern = regexp.MustCompile(`\{\{/unless\}\}`)
	thisPattern      = regexp.MustCompile(`\{\{this\}\}`)
	plainVarPattern  = regexp.MustCompile(`\{\{([\w.]+)\}\}`)
)

// transpile rewrites a Handlebars-dialect template source into Go template
// syntax.
func transpile(src string) string {
	// Plain variables are rewritten first, on the Handlebars source, so the
	// Go-syntax {{end}} and {{.}} produced below are never re-processed.
	out := plainVarPattern.ReplaceAllStringFunc(src, func(m string) string {
		name := plainVarPattern.FindStringSubmatch(m)[1]
		if name == "this" {
			return m
		}
		return "{{." + name + "}}"
	})
	out = eachOpenPattern.ReplaceAllString(out, `{{range .$1}}`)
	out = eachClosePattern.ReplaceAllString(out, `{{end}}`)
	out = ifOpenPattern.ReplaceAllString(out, `{{if .$1}}`)
	out = ifClosePattern.ReplaceAllString(out, `{{end}}`)
	out = unlessOpenPattern.ReplaceAllString(out, `{{if not .$1}}`)
	out = unlessClosePattern.ReplaceAllString(out, `{{end}}`)
	out = thisPattern.ReplaceAllString(out, `{{.}}`)
	return out
}

// RenderTemplate renders a Handlebars-dialect template source against data,
// used for a resource's query.lp.hbs and content.adoc.hbs files (spec §4.5
// "renders it with options").
func RenderTemplate(name, src string, data any) (string, error) {
	goSrc := transpile(src)
	tpl, err := template.New(name).Option("missingkey=zero").Parse(goSrc)
	if err != nil {
		return "", engineerr.Solver("calc.RenderTemplate", err)
	}
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		return "", engineerr.Solver("calc.RenderTemplate", err)
	}
	return buf.String(), nil
}

// optionsToMap flattens a query's options into a map[string]any so
// templates can reference arbitrary keys without a fixed Go struct; cardKey
// is the most common option (spec S-series examples use "{{cardKey}}").
func optionsToMap(options map[string]any) map[string]any {
	if options == nil {
		return map[string]any{}
	}
	out := make(map[string]any, len(options))
	for k, v := range options {
		out[k] = v
	}
	return out
}

// sanitizeSVG strips any embedded <script> element from a Graphviz SVG
// output before it is returned to a caller (spec §4.5 "runGraph ... returns
// a sanitised base-64-encoded SVG").
func sanitizeSVG(svg string) string {
	re := regexp.MustCompile(`(?is)<script.*?</script>`)
	return strings.TrimSpace(re.ReplaceAllString(svg, ""))
}
