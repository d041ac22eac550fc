// Package eligibility decides, per contact, whether a promotional SMS
// should be sent. Three independent sources each hold an opinion — the
// harvesting script, the user's targeting rules, and a backend heuristic —
// and a fixed precedence composes them into one boolean.
package eligibility

import (
	"regexp"

	"github.com/aozora-apps/sms-cli/internal/model"
)

// Opinion is a three-valued eligibility signal from one source.
type Opinion int

const (
	// NoOpinion means the source is not configured for this contact.
	NoOpinion Opinion = iota
	Allow
	Deny
)

// Bool converts an Opinion to a nullable boolean for trace records.
func (o Opinion) Bool() *bool {
	switch o {
	case Allow:
		b := true
		return &b
	case Deny:
		b := false
		return &b
	default:
		return nil
	}
}

func opinionOf(b bool) Opinion {
	if b {
		return Allow
	}
	return Deny
}

var (
	kanjiRe    = regexp.MustCompile(`[\x{4e00}-\x{9fff}]`)
	katakanaRe = regexp.MustCompile(`[\x{30a0}-\x{30ff}]`)
	hiraganaRe = regexp.MustCompile(`[\x{3040}-\x{309f}]`)
	alphaRe    = regexp.MustCompile(`[A-Za-z]`)
)

// NameMatches tests the cleaned display name against the enabled
// character-class checks. Enabled checks are OR-combined; with no check
// enabled the result is NoOpinion.
func NameMatches(name string, checks model.NameChecks) Opinion {
	if !checks.Any() {
		return NoOpinion
	}
	if checks.Kanji && kanjiRe.MatchString(name) {
		return Allow
	}
	if checks.Katakana && katakanaRe.MatchString(name) {
		return Allow
	}
	if checks.Hiragana && hiraganaRe.MatchString(name) {
		return Allow
	}
	if checks.Alphabet && alphaRe.MatchString(name) {
		return Allow
	}
	return Deny
}

// genderAgePass evaluates the gender/age group for the contact. The
// second return value reports whether the group is configured at all.
func genderAgePass(c model.Contact, rules model.TargetRules) (pass, configured bool) {
	rule, ok := rules.RuleFor(c.Gender)
	if !ok || !rule.Configured() {
		return true, false
	}

	pass = true

	// Prefer an explicit include flag; otherwise a skip flag, inverted.
	var include *bool
	if rule.Include != nil {
		include = rule.Include
	} else if rule.Skip != nil {
		v := !*rule.Skip
		include = &v
	}
	if include != nil && !*include {
		pass = false
	}

	// Age bounds with an unknown age fail: unknown never defaults to pass.
	if rule.Min != nil || rule.Max != nil {
		switch {
		case c.Age == nil:
			pass = false
		case rule.Min != nil && *c.Age < *rule.Min:
			pass = false
		case rule.Max != nil && *c.Age > *rule.Max:
			pass = false
		}
	}
	return pass, true
}

// RuleDecision combines the name group and the gender/age group into the
// rule engine's opinion. With neither group configured the engine has no
// opinion; otherwise every configured group must pass.
func RuleDecision(c model.Contact, rules model.TargetRules) Opinion {
	nameOp := NameMatches(c.Name, rules.NameChecks)
	gaPass, gaConfigured := genderAgePass(c, rules)

	if nameOp == NoOpinion && !gaConfigured {
		return NoOpinion
	}
	if nameOp == Deny {
		return Deny
	}
	if !gaPass {
		return Deny
	}
	return Allow
}

// Heuristic is the engine's default eligibility test, used only when no
// other signal exists: a dialable number and no evidence the contact is
// a minor.
func Heuristic(c model.Contact) bool {
	if len(c.PhoneDigits) < 7 {
		return false
	}
	return c.Age == nil || *c.Age >= 18
}

// Resolve produces the final eligibility decision and its audit trace.
//
// Precedence: a script-declared opinion wins unless the rule engine
// explicitly denies. A rule-engine Allow does not override an explicit
// script refusal — the asymmetry is deliberate and mirrors the upstream
// policy.
func Resolve(c model.Contact, rules model.TargetRules) (bool, model.DecisionTrace) {
	ruleOp := RuleDecision(c, rules)
	backend := Heuristic(c)

	var final bool
	switch {
	case c.ScriptDeclared != nil:
		if ruleOp == Deny {
			final = false
		} else {
			final = *c.ScriptDeclared
		}
	case ruleOp != NoOpinion:
		final = ruleOp == Allow
	default:
		final = backend
	}

	trace := model.DecisionTrace{
		ScriptDeclared: c.ScriptDeclared,
		BackendTarget:  backend,
		RuleDecision:   ruleOp.Bool(),
		Final:          final,
		AppliedRules:   rules,
		Observed: model.Observed{
			Age:    c.Age,
			Gender: c.Gender,
			Name:   c.Name,
		},
	}
	return final, trace
}
