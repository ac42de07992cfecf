package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"chitieu/internal/core"

	"github.com/shopspring/decimal"
)

// isoMillis is the timestamp layout of the persisted blob: UTC with exactly
// three fractional digits, e.g. 2025-01-02T03:04:05.000Z.
const isoMillis = "2006-01-02T15:04:05.000Z"

type wireRecord struct {
	ID       string      `json:"id"`
	Amount   json.Number `json:"amount"`
	Category string      `json:"category"`
	Date     string      `json:"date"`
	Note     *string     `json:"note,omitempty"`
}

// encodeRecord renders one record as a JSON object.
func encodeRecord(r core.Record) ([]byte, error) {
	w := wireRecord{
		ID:       r.ID,
		Amount:   json.Number(r.Amount.String()),
		Category: string(r.Category),
		Date:     r.Timestamp.UTC().Format(isoMillis),
	}
	if r.HasNote() {
		note := r.Note
		w.Note = &note
	}
	b, err := json.Marshal(w)
	if err != nil {
		return nil, fmt.Errorf("encode record %s: %w", r.ID, err)
	}
	return b, nil
}

// joinFragments assembles a JSON array from already-encoded elements.
func joinFragments(frags [][]byte) []byte {
	size := 2
	for _, f := range frags {
		size += len(f) + 1
	}
	var buf bytes.Buffer
	buf.Grow(size)
	buf.WriteByte('[')
	for i, f := range frags {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.Write(f)
	}
	buf.WriteByte(']')
	return buf.Bytes()
}

var errMalformed = errors.New("malformed record")

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errMalformed, fmt.Sprintf(format, args...))
}

// splitBlob parses the top level of a persisted blob. A blob that is not a
// JSON array is corrupt.
func splitBlob(blob []byte) ([]json.RawMessage, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(blob, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// decodeRecord applies the load-time shape checks to one persisted element.
// The element must be an object with a non-empty string id, a positive JSON
// number amount, a known category, a parseable date (or legacy "timestamp")
// and, when present, a string note.
func decodeRecord(raw json.RawMessage) (core.Record, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return core.Record{}, malformed("not an object")
	}

	id, ok := jsonString(fields["id"])
	if !ok || strings.TrimSpace(id) == "" {
		return core.Record{}, malformed("missing or non-string id")
	}

	amountRaw := bytes.TrimSpace(fields["amount"])
	if !isJSONNumber(amountRaw) {
		return core.Record{}, malformed("record %s: amount is not a number", id)
	}
	amount, err := decimal.NewFromString(string(amountRaw))
	if err != nil || !amount.IsPositive() {
		return core.Record{}, malformed("record %s: amount must be positive", id)
	}

	catRaw, ok := jsonString(fields["category"])
	if !ok {
		return core.Record{}, malformed("record %s: missing or non-string category", id)
	}
	cat, ok := core.ParseCategory(catRaw)
	if !ok {
		return core.Record{}, malformed("record %s: unknown category %q", id, catRaw)
	}

	dateRaw, present := fields["date"]
	if !present {
		dateRaw = fields["timestamp"]
	}
	ts, err := decodeTimestamp(dateRaw)
	if err != nil {
		return core.Record{}, malformed("record %s: %v", id, err)
	}

	var note string
	if noteRaw, present := fields["note"]; present {
		n, ok := jsonString(noteRaw)
		if !ok {
			return core.Record{}, malformed("record %s: note is not a string", id)
		}
		note = n
	}

	return core.Record{ID: id, Amount: amount, Category: cat, Timestamp: ts, Note: note}, nil
}

// decodeTimestamp accepts an ISO-8601 string or epoch milliseconds.
func decodeTimestamp(raw json.RawMessage) (time.Time, error) {
	raw = bytes.TrimSpace(raw)
	if s, ok := jsonString(raw); ok {
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return time.Time{}, fmt.Errorf("unparseable date %q", s)
		}
		return t.UTC(), nil
	}
	if isJSONNumber(raw) {
		ms, err := decimal.NewFromString(string(raw))
		if err != nil || !ms.IsInteger() || ms.IsNegative() {
			return time.Time{}, fmt.Errorf("unparseable epoch date %s", raw)
		}
		return time.UnixMilli(ms.IntPart()).UTC(), nil
	}
	return time.Time{}, errors.New("missing date")
}

func jsonString(raw json.RawMessage) (string, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '"' {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

func isJSONNumber(raw json.RawMessage) bool {
	if len(raw) == 0 {
		return false
	}
	c := raw[0]
	if c != '-' && (c < '0' || c > '9') {
		return false
	}
	var n json.Number
	return json.Unmarshal(raw, &n) == nil
}
