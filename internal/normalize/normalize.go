// Package normalize extracts canonical contact fields from the raw,
// bilingually-keyed records produced by the harvesting process.
package normalize

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/width"

	"github.com/aozora-apps/sms-cli/internal/model"
)

// Accepted field names per canonical attribute, in lookup order. The
// harvester emits Japanese labels, pre-standardized __標準_*__ keys, or
// plain English keys depending on the source page.
var (
	nameKeys   = []string{"name", "姓名（ふりがな）", "氏名"}
	phoneKeys  = []string{"__標準_電話番号__", "phone", "電話番号"}
	genderKeys = []string{"gender", "性別"}
	birthKeys  = []string{"birth", "生年月日"}
	ageKeys    = []string{"age", "__標準_年齢__", "年齢"}
	scriptKeys = []string{"should_send_sms"}
)

var (
	furiganaRe = regexp.MustCompile(`[（(]\s*([^）)]*?)\s*[）)]\s*$`)
	parensRe   = regexp.MustCompile(`[（(][^）)]*[）)]`)
	nonDigitRe = regexp.MustCompile(`[^0-9]`)
)

// Contact builds a normalized contact from one raw record. Malformed or
// missing fields degrade to zero values; this function never fails.
func Contact(r model.RawRecord) model.Contact {
	rawName := lookupString(r, nameKeys)
	name, furigana := SplitFurigana(rawName)

	phoneRaw := lookupString(r, phoneKeys)

	c := model.Contact{
		Name:        name,
		Furigana:    furigana,
		PhoneRaw:    phoneRaw,
		PhoneDigits: Digits(phoneRaw),
		Gender:      Gender(lookupString(r, genderKeys)),
		Birth:       lookupString(r, birthKeys),
		Age:         Age(lookup(r, ageKeys)),
	}

	if v, ok := lookupPresent(r, scriptKeys); ok {
		b := coerceBool(v)
		c.ScriptDeclared = &b
	}
	return c
}

// SplitFurigana strips a trailing parenthesized reading (half- or
// full-width parentheses) from a display name and returns both parts.
func SplitFurigana(raw string) (name, furigana string) {
	name = strings.TrimSpace(raw)
	if m := furiganaRe.FindStringSubmatch(name); m != nil {
		furigana = strings.TrimSpace(m[1])
	}
	name = strings.TrimSpace(parensRe.ReplaceAllString(name, ""))
	return name, furigana
}

// Digits folds full-width characters to their ASCII forms and strips
// everything that is not a decimal digit.
func Digits(s string) string {
	return nonDigitRe.ReplaceAllString(width.Narrow.String(s), "")
}

// Gender maps a free-form gender token onto the normalized enum. It
// accepts Japanese and English tokens, case-insensitively; anything else
// is unknown.
func Gender(s string) model.Gender {
	t := strings.ToLower(s)
	// "female" contains "male", so the female tokens are tested first.
	switch {
	case strings.Contains(t, "女") || strings.Contains(t, "female"):
		return model.GenderFemale
	case strings.Contains(t, "男") || strings.Contains(t, "male"):
		return model.GenderMale
	default:
		return model.GenderUnknown
	}
}

// Age parses an age from a numeric or string field. Non-digit characters
// (including full-width digits' decorations such as 「歳」) are stripped
// before parsing; an empty or unparsable value yields nil.
func Age(v any) *int {
	switch n := v.(type) {
	case nil:
		return nil
	case int:
		return &n
	case int64:
		i := int(n)
		return &i
	case float64:
		i := int(n)
		return &i
	}
	digits := Digits(fmt.Sprint(v))
	if digits == "" {
		return nil
	}
	i, err := strconv.Atoi(digits)
	if err != nil {
		return nil
	}
	return &i
}

func lookup(r model.RawRecord, keys []string) any {
	v, _ := lookupPresent(r, keys)
	return v
}

// lookupPresent returns the first non-empty value among the accepted
// field names, in order.
func lookupPresent(r model.RawRecord, keys []string) (any, bool) {
	for _, k := range keys {
		v, ok := r[k]
		if !ok || v == nil {
			continue
		}
		if s, isStr := v.(string); isStr && strings.TrimSpace(s) == "" {
			continue
		}
		return v, true
	}
	return nil, false
}

func lookupString(r model.RawRecord, keys []string) string {
	v, ok := lookupPresent(r, keys)
	if !ok {
		return ""
	}
	if s, isStr := v.(string); isStr {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(fmt.Sprint(v))
}

// coerceBool interprets boolean-like values the way the upstream script
// emits them: real booleans, numbers (non-zero is true), and the usual
// string spellings.
func coerceBool(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case int:
		return b != 0
	case int64:
		return b != 0
	case float64:
		return b != 0
	case string:
		switch strings.ToLower(strings.TrimSpace(b)) {
		case "", "0", "false", "no", "off":
			return false
		default:
			return true
		}
	default:
		return v != nil
	}
}
