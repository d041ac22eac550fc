package eligibility

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aozora-apps/sms-cli/internal/model"
)

func boolp(b bool) *bool { return &b }
func intp(n int) *int    { return &n }

func TestNameMatches(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		checks model.NameChecks
		want   Opinion
	}{
		{"no checks enabled", "山田太郎", model.NameChecks{}, NoOpinion},
		{"kanji match", "山田太郎", model.NameChecks{Kanji: true}, Allow},
		{"kanji miss", "やまだ", model.NameChecks{Kanji: true}, Deny},
		{"katakana match", "ヤマダ", model.NameChecks{Katakana: true}, Allow},
		{"hiragana match", "やまだ", model.NameChecks{Hiragana: true}, Allow},
		{"alphabet match", "John Smith", model.NameChecks{Alphabet: true}, Allow},
		{"or-combined, second class hits", "やまだ", model.NameChecks{Kanji: true, Hiragana: true}, Allow},
		{"or-combined, no class hits", "12345", model.NameChecks{Kanji: true, Alphabet: true}, Deny},
		{"mixed script counts once", "山田タロウ", model.NameChecks{Katakana: true}, Allow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NameMatches(tt.input, tt.checks))
		})
	}
}

func TestRuleDecisionGenderAge(t *testing.T) {
	rules := model.TargetRules{
		Age: map[model.Gender]model.GenderAgeRule{
			model.GenderMale:   {Min: intp(20), Max: intp(40)},
			model.GenderFemale: {Skip: boolp(true)},
		},
	}

	tests := []struct {
		name    string
		contact model.Contact
		want    Opinion
	}{
		{"male in range", model.Contact{Gender: model.GenderMale, Age: intp(30)}, Allow},
		{"male below min", model.Contact{Gender: model.GenderMale, Age: intp(19)}, Deny},
		{"male above max", model.Contact{Gender: model.GenderMale, Age: intp(41)}, Deny},
		{"male unknown age fails bounds", model.Contact{Gender: model.GenderMale}, Deny},
		{"female skipped", model.Contact{Gender: model.GenderFemale, Age: intp(30)}, Deny},
		{"unknown gender has no rule", model.Contact{Age: intp(30)}, NoOpinion},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RuleDecision(tt.contact, rules))
		})
	}
}

func TestRuleDecisionIncludeOverridesSkip(t *testing.T) {
	rules := model.TargetRules{
		Age: map[model.Gender]model.GenderAgeRule{
			model.GenderMale: {Include: boolp(true), Skip: boolp(true)},
		},
	}
	c := model.Contact{Gender: model.GenderMale, Age: intp(30)}
	assert.Equal(t, Allow, RuleDecision(c, rules))
}

func TestRuleDecisionBothGroups(t *testing.T) {
	rules := model.TargetRules{
		NameChecks: model.NameChecks{Kanji: true},
		Age: map[model.Gender]model.GenderAgeRule{
			model.GenderMale: {Min: intp(20)},
		},
	}

	// Both configured groups must pass.
	assert.Equal(t, Allow, RuleDecision(model.Contact{Name: "山田", Gender: model.GenderMale, Age: intp(25)}, rules))
	assert.Equal(t, Deny, RuleDecision(model.Contact{Name: "yamada", Gender: model.GenderMale, Age: intp(25)}, rules))
	assert.Equal(t, Deny, RuleDecision(model.Contact{Name: "山田", Gender: model.GenderMale, Age: intp(19)}, rules))
}

func TestHeuristic(t *testing.T) {
	assert.True(t, Heuristic(model.Contact{PhoneDigits: "09012345678"}))
	assert.True(t, Heuristic(model.Contact{PhoneDigits: "09012345678", Age: intp(18)}))
	assert.False(t, Heuristic(model.Contact{PhoneDigits: "09012345678", Age: intp(17)}))
	assert.False(t, Heuristic(model.Contact{PhoneDigits: "123456"}))
	assert.False(t, Heuristic(model.Contact{}))
}

func TestResolvePrecedence(t *testing.T) {
	ruleAllow := model.TargetRules{NameChecks: model.NameChecks{Kanji: true}}

	tests := []struct {
		name    string
		contact model.Contact
		rules   model.TargetRules
		want    bool
	}{
		{
			"script true wins over heuristic false",
			model.Contact{ScriptDeclared: boolp(true)},
			model.TargetRules{},
			true,
		},
		{
			"script false wins over heuristic true",
			model.Contact{PhoneDigits: "09012345678", ScriptDeclared: boolp(false)},
			model.TargetRules{},
			false,
		},
		{
			"rule deny vetoes script true",
			model.Contact{Name: "yamada", ScriptDeclared: boolp(true)},
			ruleAllow,
			false,
		},
		{
			"rule allow does not override script false",
			model.Contact{Name: "山田", ScriptDeclared: boolp(false)},
			ruleAllow,
			false,
		},
		{
			"rules decide without script",
			model.Contact{Name: "山田"},
			ruleAllow,
			true,
		},
		{
			"heuristic decides without script or rules",
			model.Contact{PhoneDigits: "09012345678"},
			model.TargetRules{},
			true,
		},
		{
			"heuristic rejects a minor",
			model.Contact{PhoneDigits: "09012345678", Age: intp(17)},
			model.TargetRules{},
			false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, trace := Resolve(tt.contact, tt.rules)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want, trace.Final)
		})
	}
}

func TestResolveTrace(t *testing.T) {
	rules := model.TargetRules{NameChecks: model.NameChecks{Kanji: true}}
	c := model.Contact{Name: "山田", PhoneDigits: "09012345678", Age: intp(30), Gender: model.GenderMale}

	got, trace := Resolve(c, rules)
	assert.True(t, got)
	assert.True(t, trace.BackendTarget)
	require.NotNil(t, trace.RuleDecision)
	assert.True(t, *trace.RuleDecision)
	assert.Nil(t, trace.ScriptDeclared)
	assert.Equal(t, "山田", trace.Observed.Name)
	require.NotNil(t, trace.Observed.Age)
	assert.Equal(t, 30, *trace.Observed.Age)
}

func TestResolveDeterministic(t *testing.T) {
	rules := model.TargetRules{
		NameChecks: model.NameChecks{Kanji: true, Hiragana: true},
		Age: map[model.Gender]model.GenderAgeRule{
			model.GenderFemale: {Min: intp(18), Max: intp(65)},
		},
	}
	c := model.Contact{Name: "佐藤", Gender: model.GenderFemale, Age: intp(40), PhoneDigits: "08011112222"}

	first, _ := Resolve(c, rules)
	for i := 0; i < 10; i++ {
		got, _ := Resolve(c, rules)
		assert.Equal(t, first, got)
	}
}
