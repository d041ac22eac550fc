package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNameChecksAny(t *testing.T) {
	assert.False(t, NameChecks{}.Any())
	assert.True(t, NameChecks{Hiragana: true}.Any())
}

func TestGenderAgeRuleConfigured(t *testing.T) {
	assert.False(t, GenderAgeRule{}.Configured())

	min := 20
	assert.True(t, GenderAgeRule{Min: &min}.Configured())

	skip := false
	assert.True(t, GenderAgeRule{Skip: &skip}.Configured())
}

func TestRuleFor(t *testing.T) {
	min := 20
	rules := TargetRules{
		Age: map[Gender]GenderAgeRule{
			GenderMale: {Min: &min},
		},
	}

	r, ok := rules.RuleFor(GenderMale)
	require.True(t, ok)
	assert.Equal(t, &min, r.Min)

	_, ok = rules.RuleFor(GenderFemale)
	assert.False(t, ok)

	_, ok = rules.RuleFor(GenderUnknown)
	assert.False(t, ok)

	_, ok = TargetRules{}.RuleFor(GenderMale)
	assert.False(t, ok)
}

func TestSmsConfigComplete(t *testing.T) {
	assert.False(t, SmsConfig{}.Complete())
	assert.False(t, SmsConfig{APIURL: "u", APIID: "i"}.Complete())
	assert.True(t, SmsConfig{APIURL: "u", APIID: "i", APIPassword: "p"}.Complete())
}

func TestSmsConfigRetryCodes(t *testing.T) {
	assert.Equal(t, []int{560}, SmsConfig{}.RetryCodes())
	assert.Equal(t, []int{560, 561}, SmsConfig{RetryStatusCodes: []int{560, 561}}.RetryCodes())
}

func TestContactAgeString(t *testing.T) {
	assert.Equal(t, "", Contact{}.AgeString())
	age := 30
	assert.Equal(t, "30", Contact{Age: &age}.AgeString())
}

func TestUserConfigJSONFieldNames(t *testing.T) {
	raw := []byte(`{
		"target_rules": {
			"nameChecks": {"kanji": true},
			"age": {"male": {"min": 20, "max": 40}},
			"templates": {"template1": true, "template2": false}
		},
		"sms_config": {
			"api_url": "https://gw.example.com",
			"api_id": "id",
			"api_password": "pw",
			"sms_text_a": "A",
			"sms_text_b": "B",
			"use_delivery_report": true,
			"retry_status_codes": [560, 561]
		}
	}`)

	var cfg UserConfig
	require.NoError(t, json.Unmarshal(raw, &cfg))

	assert.True(t, cfg.TargetRules.NameChecks.Kanji)
	rule := cfg.TargetRules.Age[GenderMale]
	require.NotNil(t, rule.Min)
	assert.Equal(t, 20, *rule.Min)
	require.NotNil(t, cfg.TargetRules.Templates)
	assert.True(t, cfg.TargetRules.Templates.Template1)

	assert.True(t, cfg.SmsConfig.Complete())
	assert.True(t, cfg.SmsConfig.UseDeliveryReport)
	assert.Equal(t, []int{560, 561}, cfg.SmsConfig.RetryCodes())
}
