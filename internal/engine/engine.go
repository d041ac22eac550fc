// Package engine runs the per-contact pipeline: normalize, resolve
// eligibility, render, deliver, classify, persist. Contacts within a
// batch are processed sequentially; a failure on one record never
// aborts the rest.
package engine

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/aozora-apps/sms-cli/internal/eligibility"
	"github.com/aozora-apps/sms-cli/internal/gateway"
	"github.com/aozora-apps/sms-cli/internal/model"
	"github.com/aozora-apps/sms-cli/internal/normalize"
	"github.com/aozora-apps/sms-cli/internal/smscode"
	"github.com/aozora-apps/sms-cli/internal/store"
	"github.com/aozora-apps/sms-cli/internal/template"
)

// DefaultProvider is assumed when the user config names none.
const DefaultProvider = "sms-console"

// duplicateWindow is how far back the persist-time duplicate check looks.
const duplicateWindow = 2 * time.Minute

// notSentMessage marks entries that were skipped by the targeting
// decision.
const notSentMessage = "未送信"

// Engine orchestrates the targeting/templating/delivery pipeline.
type Engine struct {
	store store.Store
	gw    *gateway.Client
	now   func() time.Time
}

// New creates an Engine over the given store and gateway client.
func New(st store.Store, gw *gateway.Client) *Engine {
	return &Engine{store: st, gw: gw, now: time.Now}
}

// BatchResult is the caller-facing summary of one processed batch.
// Success is about the batch operation itself; individual delivery
// failures are data, not API errors.
type BatchResult struct {
	Success    bool                 `json:"success"`
	SavedCount int                  `json:"savedCount"`
	Saved      []model.HistoryEntry `json:"saved"`
}

// ProcessBatch runs every raw record through the pipeline and persists
// the enriched entries under the given user.
func (e *Engine) ProcessBatch(ctx context.Context, userUID string, records []model.RawRecord, cfg model.UserConfig) BatchResult {
	saved := make([]model.HistoryEntry, 0, len(records))

	for i, raw := range records {
		entry := e.processRecord(ctx, userUID, raw, cfg)

		dup, err := e.store.HasRecentEntry(ctx, userUID, entry.Name, entry.Phone, e.now().Add(-duplicateWindow))
		if err != nil {
			zap.L().Warn("engine: duplicate lookup failed",
				zap.String("user", userUID),
				zap.Error(err),
			)
		}
		if dup {
			zap.L().Info("engine: skipping duplicate entry",
				zap.String("user", userUID),
				zap.String("name", entry.Name),
			)
			continue
		}

		if err := e.store.SaveEntry(ctx, userUID, &entry); err != nil {
			// Persistence failures are isolated per record.
			zap.L().Warn("engine: entry save failed",
				zap.String("user", userUID),
				zap.Int("record", i),
				zap.Error(err),
			)
			continue
		}
		saved = append(saved, entry)
	}

	return BatchResult{Success: true, SavedCount: len(saved), Saved: saved}
}

// processRecord runs one record through normalize → resolve → render →
// deliver → classify and returns the enriched history entry. It never
// fails: every fault becomes part of the entry's outcome.
func (e *Engine) processRecord(ctx context.Context, userUID string, raw model.RawRecord, cfg model.UserConfig) model.HistoryEntry {
	contact := normalize.Contact(raw)
	isTarget, trace := eligibility.Resolve(contact, cfg.TargetRules)

	entry := model.HistoryEntry{
		CreatedAt:   e.now().UnixMilli(),
		Name:        contact.Name,
		Furigana:    contact.Furigana,
		Phone:       contact.PhoneRaw,
		Gender:      string(contact.Gender),
		Birth:       contact.Birth,
		Age:         contact.AgeString(),
		IsSmsTarget: isTarget,
		Level:       model.LevelSuccess,
		Raw:         raw,
		Decision:    &trace,
	}

	if !isTarget {
		sent := false
		entry.SmsSent = &sent
		entry.SmsResponse = &model.DeliveryOutcome{
			Level:   model.LevelFailed,
			Message: notSentMessage,
		}
		entry.Level = model.LevelFailed
		return entry
	}

	outcome, message := e.deliver(ctx, userUID, cfg, contact)
	entry.SmsSent = &outcome.Sent
	entry.SmsResponse = &outcome
	entry.SmsMessage = message
	entry.Level = outcome.Level
	return entry
}

// deliver renders the message and submits it, returning the classified
// outcome and the rendered text. It handles missing config, an empty
// template and an unusable number without attempting the gateway.
func (e *Engine) deliver(ctx context.Context, userUID string, cfg model.UserConfig, contact model.Contact) (model.DeliveryOutcome, string) {
	if !cfg.SmsConfig.Complete() {
		return model.DeliveryOutcome{
			Level:   model.LevelFailed,
			Message: notSentMessage,
			Error:   "sms_config_missing",
		}, ""
	}

	message := e.renderMessage(ctx, userUID, cfg, contact.Name)
	if strings.TrimSpace(message) == "" {
		return model.DeliveryOutcome{
			Level:   model.LevelFailed,
			Message: notSentMessage,
			Error:   "no_template_selected",
		}, ""
	}

	digits := gateway.CanonicalDigits(contact.PhoneRaw)
	if !gateway.ValidMobile(digits) {
		return model.DeliveryOutcome{
			Level:   model.LevelFailed,
			Message: notSentMessage,
			Error:   "invalid_phone_format",
		}, message
	}

	return e.submit(ctx, cfg.SmsConfig, contact.PhoneRaw, message), message
}

// renderMessage honours an explicit template selection when the user
// made one, alternating A/B by prior send count; otherwise template A
// falls back to B, then to the generic greeting.
func (e *Engine) renderMessage(ctx context.Context, userUID string, cfg model.UserConfig, name string) string {
	if choice := cfg.TargetRules.Templates; choice != nil && (choice.Template1 || choice.Template2) {
		prior, err := e.store.CountEntries(ctx, userUID)
		if err != nil {
			zap.L().Warn("engine: entry count failed, alternation falls back to template A",
				zap.String("user", userUID),
				zap.Error(err),
			)
			prior = 0
		}
		return template.RenderChoice(cfg.SmsConfig, *choice, prior, name)
	}
	return template.Render(cfg.SmsConfig, name)
}

// Send delivers one ad-hoc message (test panel parity) and classifies
// the result.
func (e *Engine) Send(ctx context.Context, cfg model.SmsConfig, phone, message string) model.DeliveryOutcome {
	if !cfg.Complete() {
		return model.DeliveryOutcome{
			Level:   model.LevelFailed,
			Message: notSentMessage,
			Error:   "sms_config_missing",
		}
	}
	digits := gateway.CanonicalDigits(phone)
	if !gateway.ValidMobile(digits) {
		return model.DeliveryOutcome{
			Level:   model.LevelFailed,
			Message: notSentMessage,
			Error:   "invalid_phone_format",
		}
	}
	return e.submit(ctx, cfg, phone, message)
}

// submit performs the gateway round trips and classifies the final
// attempt's response.
func (e *Engine) submit(ctx context.Context, cfg model.SmsConfig, phone, message string) model.DeliveryOutcome {
	res := e.gw.Send(ctx, cfg, phone, message)

	provider := cfg.Provider
	if provider == "" {
		provider = DefaultProvider
	}
	classified := smscode.Resolve(provider, res.Final.Body, res.Final.Status)

	outcome := model.DeliveryOutcome{
		Attempted:  true,
		Sent:       res.Final.Status == 200,
		HTTPStatus: res.Final.Status,
		Code:       classified.Code,
		Level:      classified.Level,
		Message:    classified.Message,
		Output:     truncate(res.Final.Body, 4000),
		Retried:    res.Retried,
	}
	// HTTP 200 is authoritative for the success level even when the body
	// yields an unmapped code.
	if outcome.HTTPStatus == 200 && outcome.Level != model.LevelSuccess {
		outcome.Level = model.LevelSuccess
		if outcome.Message == "" {
			outcome.Message = "HTTP 200: treated as success"
		}
	}
	return outcome
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
