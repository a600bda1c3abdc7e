package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"unicode"
)

// Payloads reach the console in two spellings: snake_case from the API and
// camelCase from locally mutated copies. Everything is rewritten to
// snake_case here, once, before it is decoded into domain types.

// numericKeys are decoded as integers even when the backend quotes them.
var numericKeys = map[string]struct{}{
	"ticket_number": {},
}

// CanonicalKey converts a camelCase key to snake_case. Keys that are
// already snake_case are returned unchanged.
func CanonicalKey(key string) string {
	var b strings.Builder
	b.Grow(len(key) + 4)
	runes := []rune(key)
	for i, r := range runes {
		if unicode.IsUpper(r) {
			prevLower := i > 0 && (unicode.IsLower(runes[i-1]) || unicode.IsDigit(runes[i-1]))
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			prevUpper := i > 0 && unicode.IsUpper(runes[i-1])
			if i > 0 && runes[i-1] != '_' && (prevLower || (prevUpper && nextLower)) {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Canonicalize rewrites every object key in the JSON document to
// snake_case. When both spellings of a key are present the snake_case
// value wins.
func Canonicalize(raw []byte) ([]byte, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	return json.Marshal(canonicalizeValue(doc))
}

func canonicalizeValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for key, item := range val {
			canon := CanonicalKey(key)
			if canon != key {
				continue
			}
			out[key] = canonicalizeValue(item)
		}
		for key, item := range val {
			canon := CanonicalKey(key)
			if canon == key {
				continue
			}
			if _, exists := out[canon]; !exists {
				out[canon] = canonicalizeValue(item)
			}
		}
		for key := range numericKeys {
			if s, ok := out[key].(string); ok {
				if n := json.Number(strings.TrimSpace(s)); isInteger(n) {
					out[key] = n
				}
			}
		}
		return out
	case []any:
		for i := range val {
			val[i] = canonicalizeValue(val[i])
		}
		return val
	default:
		return v
	}
}

func isInteger(n json.Number) bool {
	_, err := n.Int64()
	return err == nil
}

// DecodeTicket normalizes and decodes a full ticket payload.
func DecodeTicket(raw []byte) (Ticket, error) {
	var t Ticket
	if err := decodeCanonical(raw, &t); err != nil {
		return Ticket{}, err
	}
	if t.ID.IsZero() {
		return Ticket{}, fmt.Errorf("decode ticket: missing id")
	}
	return t, nil
}

// DecodeTickets normalizes and decodes a list of tickets.
func DecodeTickets(raw []byte) ([]Ticket, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("decode ticket list: %w", err)
	}
	out := make([]Ticket, 0, len(items))
	for i, item := range items {
		t, err := DecodeTicket(item)
		if err != nil {
			return nil, fmt.Errorf("ticket %d: %w", i, err)
		}
		out = append(out, t)
	}
	return out, nil
}

// DecodePatch normalizes and decodes a partial ticket. Absent fields stay
// nil; an explicit null due date sets ClearDueDate.
func DecodePatch(raw []byte) (TicketPatch, error) {
	canon, err := Canonicalize(raw)
	if err != nil {
		return TicketPatch{}, err
	}
	var p TicketPatch
	if err := json.Unmarshal(canon, &p); err != nil {
		return TicketPatch{}, fmt.Errorf("decode %T: %w", &p, err)
	}
	if p.ID.IsZero() {
		return TicketPatch{}, fmt.Errorf("decode ticket patch: missing id")
	}
	var present map[string]json.RawMessage
	if err := json.Unmarshal(canon, &present); err == nil {
		if v, ok := present["due_date"]; ok && bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
			p.ClearDueDate = true
		}
	}
	return p, nil
}

// DecodeComment normalizes and decodes a comment payload.
func DecodeComment(raw []byte) (Comment, error) {
	var c Comment
	if err := decodeCanonical(raw, &c); err != nil {
		return Comment{}, err
	}
	return c, nil
}

// DecodeCriteria normalizes and decodes filter criteria.
func DecodeCriteria(raw []byte) (FilterCriteria, error) {
	var c FilterCriteria
	if len(bytes.TrimSpace(raw)) == 0 {
		return c, nil
	}
	if err := decodeCanonical(raw, &c); err != nil {
		return FilterCriteria{}, err
	}
	return c.Compact(), nil
}

func decodeCanonical(raw []byte, dst any) error {
	canon, err := Canonicalize(raw)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(canon, dst); err != nil {
		return fmt.Errorf("decode %T: %w", dst, err)
	}
	return nil
}
