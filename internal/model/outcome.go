package model

import "time"

// ResultLevel is the normalized outcome of a delivery attempt.
type ResultLevel string

const (
	LevelSuccess ResultLevel = "success"
	LevelFailed  ResultLevel = "failed"
	LevelError   ResultLevel = "error"
)

// DecisionTrace captures every intermediate value of the eligibility
// resolution, attached to the contact's final record for audit.
// Write-once.
type DecisionTrace struct {
	ScriptDeclared *bool       `json:"script_declared"`
	BackendTarget  bool        `json:"backend_is_sms_target"`
	RuleDecision   *bool       `json:"ruleDecision"`
	Final          bool        `json:"final_is_sms_target"`
	AppliedRules   TargetRules `json:"appliedTargetRules"`
	Observed       Observed    `json:"observed"`
}

// Observed records the normalized inputs the resolver saw.
type Observed struct {
	Age    *int   `json:"age"`
	Gender Gender `json:"gender"`
	Name   string `json:"name"`
}

// DeliveryOutcome is the classified result of at most two gateway
// submission attempts for one contact.
type DeliveryOutcome struct {
	Attempted  bool        `json:"attempted"`
	Sent       bool        `json:"sent"`
	HTTPStatus int         `json:"status,omitempty"`
	Code       string      `json:"code,omitempty"`
	Level      ResultLevel `json:"level"`
	Message    string      `json:"message"`
	Output     string      `json:"output,omitempty"`
	Retried    bool        `json:"retry_attempted"`
	Error      string      `json:"error,omitempty"`
}

// HistoryEntry is the enriched per-contact record handed to storage and
// returned to the caller.
type HistoryEntry struct {
	ID          string           `json:"id,omitempty"`
	CreatedAt   int64            `json:"createdAt"`
	Name        string           `json:"name"`
	Furigana    string           `json:"furigana,omitempty"`
	Phone       string           `json:"phone"`
	Gender      string           `json:"gender"`
	Birth       string           `json:"birth"`
	Age         string           `json:"age"`
	IsSmsTarget bool             `json:"is_sms_target"`
	Level       ResultLevel      `json:"level"`
	Raw         RawRecord        `json:"raw"`
	Decision    *DecisionTrace   `json:"decision_debug"`
	SmsSent     *bool            `json:"sms_sent,omitempty"`
	SmsResponse *DeliveryOutcome `json:"sms_response,omitempty"`
	SmsMessage  string           `json:"sms_message,omitempty"`
}

// Touch stamps the entry with the current time in epoch milliseconds.
func (e *HistoryEntry) Touch(now time.Time) {
	e.CreatedAt = now.UnixMilli()
}
