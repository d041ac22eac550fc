package template

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aozora-apps/sms-cli/internal/model"
)

func TestSubstitute(t *testing.T) {
	tests := []struct {
		name string
		tpl  string
		want string
	}{
		{"double brace", "こんにちは{{name}}様", "こんにちは山田様"},
		{"double brace spaced", "こんにちは{{ name }}様", "こんにちは山田様"},
		{"single brace", "{name}様、お知らせです", "山田様、お知らせです"},
		{"dollar", "$name様", "山田様"},
		{"percent upper", "%NAME%様", "山田様"},
		{"case insensitive", "{{NAME}}様", "山田様"},
		{"multiple occurrences", "{{name}}様、{{name}}様", "山田様、山田様"},
		{"no placeholder left verbatim", "本日のご案内です", "本日のご案内です"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Substitute(tt.tpl, "山田"))
		})
	}
}

func TestSubstituteDollarWordBoundary(t *testing.T) {
	// $names is not the $name placeholder.
	assert.Equal(t, "$names", Substitute("$names", "山田"))
}

func TestRender(t *testing.T) {
	cfgBoth := model.SmsConfig{TextA: "A: {{name}}", TextB: "B: {{name}}"}
	cfgBOnly := model.SmsConfig{TextB: "B: {{name}}"}

	assert.Equal(t, "A: 山田", Render(cfgBoth, "山田"))
	assert.Equal(t, "B: 山田", Render(cfgBOnly, "山田"))

	// No template: generic greeting when a name exists, nothing otherwise.
	assert.Equal(t, "こんにちは、山田様。ご応募ありがとうございます。", Render(model.SmsConfig{}, "山田"))
	assert.Equal(t, "", Render(model.SmsConfig{}, ""))
	assert.Equal(t, "", Render(model.SmsConfig{TextA: "   "}, "  "))
}

func TestRenderChoice(t *testing.T) {
	cfg := model.SmsConfig{TextA: "A: {{name}}", TextB: "B: {{name}}"}
	both := model.TemplateChoice{Template1: true, Template2: true}

	// Both selected: prior send parity alternates.
	assert.Equal(t, "A: 山田", RenderChoice(cfg, both, 0, "山田"))
	assert.Equal(t, "B: 山田", RenderChoice(cfg, both, 1, "山田"))
	assert.Equal(t, "A: 山田", RenderChoice(cfg, both, 2, "山田"))

	// Single selection sticks to that template.
	assert.Equal(t, "A: 山田", RenderChoice(cfg, model.TemplateChoice{Template1: true}, 5, "山田"))
	assert.Equal(t, "B: 山田", RenderChoice(cfg, model.TemplateChoice{Template2: true}, 4, "山田"))

	// Selecting an empty template yields no message rather than a fallback.
	assert.Equal(t, "", RenderChoice(model.SmsConfig{TextB: "B"}, model.TemplateChoice{Template1: true}, 0, "山田"))
	assert.Equal(t, "", RenderChoice(cfg, model.TemplateChoice{}, 0, "山田"))
}
