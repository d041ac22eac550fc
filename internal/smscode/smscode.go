// Package smscode classifies raw SMS gateway responses into normalized
// outcome levels using static per-provider code tables.
package smscode

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/aozora-apps/sms-cli/internal/model"
)

// DefaultProvider is the code table used for unknown provider ids. It
// recognizes only the generic success/failure tokens.
const DefaultProvider = "default"

// CodeDef declares the outcome for one gateway response code.
type CodeDef struct {
	Level model.ResultLevel `yaml:"level"`
	Text  string            `yaml:"text"`
}

// Book maps gateway response codes to outcome definitions.
type Book map[string]CodeDef

//go:embed tables.yaml
var tablesYAML []byte

var books map[string]Book

func init() {
	if err := yaml.Unmarshal(tablesYAML, &books); err != nil {
		panic(fmt.Sprintf("smscode: parse embedded tables: %v", err))
	}
}

// BookFor returns the code table for the provider, falling back to the
// minimal default book for unknown providers.
func BookFor(provider string) Book {
	if b, ok := books[provider]; ok {
		return b
	}
	return books[DefaultProvider]
}

var (
	xmlRe    = regexp.MustCompile(`(?i)<\s*(?:Code|Status|Result)\s*>\s*([^<\s]+)\s*</\s*(?:Code|Status|Result)\s*>`)
	kvRe     = regexp.MustCompile(`(?i)\b(?:code|status|result)\s*[:=]\s*["']?([A-Za-z0-9_-]{2,})`)
	tokenRe  = regexp.MustCompile(`(?i)\b(OK|SUCCESS|NG|ERROR|[1-9][0-9]{2}|E\d{3,})\b`)
	unsafeRe = regexp.MustCompile(`[^A-Za-z0-9_-]`)
)

// jsonCodeFields are the structured body fields tried, in order.
var jsonCodeFields = []string{"code", "status", "result", "result_code", "error_code", "ErrorCode"}

// ExtractCode pulls a result code out of an arbitrary gateway response
// body. It tries structured JSON fields, an XML-ish <Code> element, a
// key:value text pattern and a bare token before falling back to the
// HTTP status. Empty when nothing matched.
func ExtractCode(body string, httpStatus int) string {
	if code := extractFromBody(body); code != "" {
		return code
	}
	if httpStatus > 0 {
		return strconv.Itoa(httpStatus)
	}
	return ""
}

func extractFromBody(body string) string {
	body = strings.TrimSpace(body)
	if body == "" {
		return ""
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(body), &obj); err == nil {
		for _, k := range jsonCodeFields {
			if v, ok := obj[k]; ok && v != nil {
				return normalizeCode(fmt.Sprint(v))
			}
		}
		if nested, ok := obj["error"].(map[string]any); ok {
			if v, ok := nested["code"]; ok && v != nil {
				return normalizeCode(fmt.Sprint(v))
			}
		}
	}

	if m := xmlRe.FindStringSubmatch(body); m != nil {
		return normalizeCode(m[1])
	}
	if m := kvRe.FindStringSubmatch(body); m != nil {
		return normalizeCode(m[1])
	}
	if m := tokenRe.FindStringSubmatch(body); m != nil {
		return normalizeCode(m[1])
	}
	return ""
}

// normalizeCode trims whitespace and surrounding quotes, drops anything
// outside [A-Za-z0-9_-], and uppercases the remainder.
func normalizeCode(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.Trim(s, `"'`)
	s = unsafeRe.ReplaceAllString(s, "")
	return strings.ToUpper(s)
}

// Result is the classified outcome of one gateway response.
type Result struct {
	Level   model.ResultLevel
	Code    string
	Message string
}

// Resolve classifies a gateway response for the given provider. A code
// missing from the table is failed, never assumed success; a response
// with no extractable code at all is an error.
func Resolve(provider, body string, httpStatus int) Result {
	book := BookFor(provider)

	code := ExtractCode(body, httpStatus)
	if code == "" && httpStatus == 200 {
		code = "200"
	}

	if code == "" {
		return Result{Level: model.LevelError, Message: "コードを取得できませんでした"}
	}
	if def, ok := book[code]; ok {
		return Result{
			Level:   def.Level,
			Code:    code,
			Message: fmt.Sprintf("コード %s: %s", code, def.Text),
		}
	}
	return Result{
		Level:   model.LevelFailed,
		Code:    code,
		Message: fmt.Sprintf("コード %s: 未定義のコード", code),
	}
}
