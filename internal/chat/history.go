package chat

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// historyLog is the append-only message record, owned by the registry
// goroutine. Records are never reordered or removed; reads filter and take
// a most-recent suffix.
type historyLog struct {
	records []HistoryRecord
}

func (h *historyLog) append(sender string, scope Scope, target, text string) {
	h.records = append(h.records, HistoryRecord{
		ID:     uuid.New(),
		At:     time.Now(),
		Sender: sender,
		Scope:  scope,
		Target: target,
		Text:   text,
	})
}

// query returns the last limit records matching keep, oldest first.
func (h *historyLog) query(keep func(HistoryRecord) bool, limit int) []HistoryRecord {
	if limit <= 0 {
		return nil
	}
	matched := lo.Filter(h.records, func(r HistoryRecord, _ int) bool {
		return keep(r)
	})
	if len(matched) > limit {
		matched = matched[len(matched)-limit:]
	}
	return matched
}

// formatHistory renders records as one multi-line payload, one
// "(history) [HH:MM:SS] sender->target: text" line per record.
func formatHistory(records []HistoryRecord) string {
	if len(records) == 0 {
		return "(history) <no records>"
	}
	lines := lo.Map(records, func(r HistoryRecord, _ int) string {
		return "(history) [" + r.At.Format("15:04:05") + "] " + r.Sender + "->" + r.Target + ": " + r.Text
	})
	return strings.Join(lines, "\n")
}
