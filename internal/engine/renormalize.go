package engine

import (
	"context"
	"strconv"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/aozora-apps/sms-cli/internal/model"
)

// RenormalizeResult summarizes a history re-normalization pass.
type RenormalizeResult struct {
	Scanned int                  `json:"scanned"`
	Changed []model.HistoryEntry `json:"changed"`
	Applied int                  `json:"applied"`
}

// RenormalizeHistory re-applies the outcome normalization rules over
// stored entries: non-targets get an explicit not-sent marker, code/
// status 200 becomes a success outcome, and a bare code without a
// message gets the undefined-code text. With apply false the changes
// are only reported.
func (e *Engine) RenormalizeHistory(ctx context.Context, userUID string, limit int, apply bool) (*RenormalizeResult, error) {
	entries, err := e.store.ListEntries(ctx, userUID, limit)
	if err != nil {
		return nil, eris.Wrap(err, "renormalize: list entries")
	}

	res := &RenormalizeResult{Scanned: len(entries)}
	for i := range entries {
		entry := entries[i]
		if !renormalizeOne(&entry) {
			continue
		}
		res.Changed = append(res.Changed, entry)
		if !apply {
			continue
		}
		if err := e.store.UpdateEntry(ctx, userUID, &entry); err != nil {
			zap.L().Warn("renormalize: update failed",
				zap.String("entry", entry.ID),
				zap.Error(err),
			)
			continue
		}
		res.Applied++
	}
	return res, nil
}

// renormalizeOne rewrites one entry in place, reporting whether it
// changed.
func renormalizeOne(entry *model.HistoryEntry) bool {
	outcome := entry.SmsResponse
	if outcome == nil {
		outcome = &model.DeliveryOutcome{}
	}

	if !entry.IsSmsTarget {
		changed := false
		if entry.SmsSent == nil || *entry.SmsSent {
			sent := false
			entry.SmsSent = &sent
			changed = true
		}
		if outcome.Message != notSentMessage {
			outcome.Message = notSentMessage
			changed = true
		}
		if outcome.Level == "" {
			outcome.Level = model.LevelFailed
			changed = true
		}
		if entry.Level != outcome.Level {
			entry.Level = outcome.Level
			changed = true
		}
		entry.SmsResponse = outcome
		return changed
	}

	code := outcome.Code
	if code == "" && outcome.HTTPStatus != 0 {
		code = strconv.Itoa(outcome.HTTPStatus)
	}

	if code == "200" || outcome.HTTPStatus == 200 {
		changed := outcome.Code != "200" || outcome.Level != model.LevelSuccess ||
			entry.Level != model.LevelSuccess || entry.SmsSent == nil || !*entry.SmsSent
		outcome.Code = "200"
		if outcome.Message == "" {
			outcome.Message = "コード 200: 送信成功"
		}
		outcome.Level = model.LevelSuccess
		entry.Level = model.LevelSuccess
		sent := true
		entry.SmsSent = &sent
		entry.SmsResponse = outcome
		return changed
	}

	if code != "" {
		changed := false
		if outcome.Message == "" {
			outcome.Message = "コード " + code + ": 未定義のコード"
			changed = true
		}
		if outcome.Level == "" {
			outcome.Level = model.LevelFailed
			changed = true
		}
		if entry.Level != outcome.Level {
			entry.Level = outcome.Level
			changed = true
		}
		sent := outcome.Level == model.LevelSuccess
		if entry.SmsSent == nil || *entry.SmsSent != sent {
			entry.SmsSent = &sent
			changed = true
		}
		entry.SmsResponse = outcome
		return changed
	}

	return false
}
