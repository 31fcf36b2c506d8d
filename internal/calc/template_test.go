package calc

import (
	"strings"
	"testing"
)

func TestTranspileEachAndIf(t *testing.T) {
	src := "{{#each items}}{{this}},{{/each}}{{#if flag}}yes{{/if}}"
	got := transpile(src)
	if !strings.Contains(got, "{{range .items}}") || !strings.Contains(got, "{{.}}") || !strings.Contains(got, "{{if .flag}}") {
		t.Fatalf("unexpected transpile output: %q", got)
	}
}

func TestRenderTemplatePlainVariable(t *testing.T) {
	out, err := RenderTemplate("t", "card {{cardKey}} is {{state}}", map[string]any{"cardKey": "dec_1", "state": "Draft"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "card dec_1 is Draft" {
		t.Fatalf("unexpected render: %q", out)
	}
}

func TestRenderTemplateEachBlock(t *testing.T) {
	out, err := RenderTemplate("t", "{{#each labels}}[{{this}}]{{/each}}", map[string]any{"labels": []string{"a", "b"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "[a][b]" {
		t.Fatalf("unexpected render: %q", out)
	}
}

func TestSanitizeSVGStripsScript(t *testing.T) {
	svg := "<svg><script>alert(1)</script><rect/></svg>"
	got := sanitizeSVG(svg)
	if strings.Contains(got, "script") {
		t.Fatalf("expected script tag stripped, got %q", got)
	}
	if !strings.Contains(got, "<rect/>") {
		t.Fatalf("expected rect preserved, got %q", got)
	}
}
