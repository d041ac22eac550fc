// Package template renders the outbound SMS text from the user's
// configured message templates.
package template

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/aozora-apps/sms-cli/internal/model"
)

// FallbackGreeting is used when no template is configured but a
// recipient name is known.
const FallbackGreeting = "こんにちは、%s様。ご応募ありがとうございます。"

// placeholderRe matches the accepted name placeholder spellings:
// {{name}}, {name}, $name and %NAME%, case-insensitively.
var placeholderRe = regexp.MustCompile(`(?i)\{\{\s*name\s*\}\}|\{\s*name\s*\}|\$name\b|%name%`)

// HasPlaceholder reports whether the template carries a name placeholder.
func HasPlaceholder(tpl string) bool {
	return placeholderRe.MatchString(tpl)
}

// Substitute replaces every name placeholder with the recipient's name.
// A template without a placeholder is returned byte-for-byte unchanged;
// the name is never prepended or appended implicitly.
func Substitute(tpl, name string) string {
	if !HasPlaceholder(tpl) {
		return tpl
	}
	return placeholderRe.ReplaceAllString(tpl, name)
}

// Render selects a template and substitutes the recipient name.
// Template A is preferred, then template B; with neither configured a
// generic greeting is produced when a name is available. An empty result
// means delivery must not be attempted.
func Render(cfg model.SmsConfig, name string) string {
	tpl := strings.TrimSpace(cfg.TextA)
	if tpl == "" {
		tpl = strings.TrimSpace(cfg.TextB)
	}
	if tpl == "" {
		if strings.TrimSpace(name) == "" {
			return ""
		}
		return fmt.Sprintf(FallbackGreeting, name)
	}
	return Substitute(tpl, name)
}

// RenderChoice honours an explicit template selection. With both
// templates selected, prior send parity alternates A and B; with one
// selected only that template is used, and the selection of a template
// that is empty in the config yields no message.
func RenderChoice(cfg model.SmsConfig, choice model.TemplateChoice, priorSends int, name string) string {
	var tpl string
	switch {
	case choice.Template1 && choice.Template2:
		if priorSends%2 == 0 {
			tpl = strings.TrimSpace(cfg.TextA)
		} else {
			tpl = strings.TrimSpace(cfg.TextB)
		}
	case choice.Template1:
		tpl = strings.TrimSpace(cfg.TextA)
	case choice.Template2:
		tpl = strings.TrimSpace(cfg.TextB)
	}
	if tpl == "" {
		return ""
	}
	return Substitute(tpl, name)
}
