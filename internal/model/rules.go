package model

// NameChecks selects which character classes make a name eligible.
// The enabled checks are OR-combined: a name matches when any enabled
// class is present.
type NameChecks struct {
	Kanji    bool `json:"kanji" yaml:"kanji" mapstructure:"kanji"`
	Katakana bool `json:"katakana" yaml:"katakana" mapstructure:"katakana"`
	Hiragana bool `json:"hiragana" yaml:"hiragana" mapstructure:"hiragana"`
	Alphabet bool `json:"alphabet" yaml:"alphabet" mapstructure:"alphabet"`
}

// Any reports whether at least one check is enabled.
func (n NameChecks) Any() bool {
	return n.Kanji || n.Katakana || n.Hiragana || n.Alphabet
}

// GenderAgeRule restricts eligibility for one gender. All fields are
// optional; a rule with no field set carries no opinion.
type GenderAgeRule struct {
	Min     *int  `json:"min,omitempty" yaml:"min" mapstructure:"min"`
	Max     *int  `json:"max,omitempty" yaml:"max" mapstructure:"max"`
	Include *bool `json:"include,omitempty" yaml:"include" mapstructure:"include"`
	Skip    *bool `json:"skip,omitempty" yaml:"skip" mapstructure:"skip"`
}

// Configured reports whether any field of the rule is set.
func (r GenderAgeRule) Configured() bool {
	return r.Min != nil || r.Max != nil || r.Include != nil || r.Skip != nil
}

// TemplateChoice records which message templates the user selected.
type TemplateChoice struct {
	Template1 bool `json:"template1" yaml:"template1" mapstructure:"template1"`
	Template2 bool `json:"template2" yaml:"template2" mapstructure:"template2"`
}

// TargetRules is the user-owned targeting configuration.
type TargetRules struct {
	NameChecks NameChecks                `json:"nameChecks" yaml:"name_checks" mapstructure:"name_checks"`
	Age        map[Gender]GenderAgeRule  `json:"age" yaml:"age" mapstructure:"age"`
	Templates  *TemplateChoice           `json:"templates,omitempty" yaml:"templates" mapstructure:"templates"`
}

// RuleFor returns the gender/age rule for the given gender, if present.
func (t TargetRules) RuleFor(g Gender) (GenderAgeRule, bool) {
	if g == GenderUnknown || t.Age == nil {
		return GenderAgeRule{}, false
	}
	r, ok := t.Age[g]
	return r, ok
}

// SmsConfig holds per-user gateway credentials and message templates.
// Created by the configuration UI; read-only to the engine.
type SmsConfig struct {
	APIURL            string `json:"api_url" yaml:"api_url" mapstructure:"api_url"`
	APIID             string `json:"api_id" yaml:"api_id" mapstructure:"api_id"`
	APIPassword       string `json:"api_password" yaml:"api_password" mapstructure:"api_password"`
	TextA             string `json:"sms_text_a" yaml:"sms_text_a" mapstructure:"sms_text_a"`
	TextB             string `json:"sms_text_b" yaml:"sms_text_b" mapstructure:"sms_text_b"`
	UseDeliveryReport bool   `json:"use_delivery_report" yaml:"use_delivery_report" mapstructure:"use_delivery_report"`
	RetryStatusCodes  []int  `json:"retry_status_codes,omitempty" yaml:"retry_status_codes" mapstructure:"retry_status_codes"`
	Provider          string `json:"provider,omitempty" yaml:"provider" mapstructure:"provider"`
}

// Complete reports whether the gateway credentials are all present.
func (c SmsConfig) Complete() bool {
	return c.APIURL != "" && c.APIID != "" && c.APIPassword != ""
}

// RetryCodes returns the configured retry status codes, defaulting to
// {560} (invalid mobile number format) when unset.
func (c SmsConfig) RetryCodes() []int {
	if len(c.RetryStatusCodes) == 0 {
		return []int{560}
	}
	return c.RetryStatusCodes
}

// UserConfig is the per-user configuration document read at batch start.
type UserConfig struct {
	TargetRules TargetRules `json:"target_rules" yaml:"target_rules" mapstructure:"target_rules"`
	SmsConfig   SmsConfig   `json:"sms_config" yaml:"sms_config" mapstructure:"sms_config"`
}
