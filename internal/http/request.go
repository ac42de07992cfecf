package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"chitieu/internal/aggregate"
	"chitieu/internal/intake"
)

const maxBodyBytes = 64 << 10

var errBadBody = errors.New("malformed request body")

// isJSON reports whether the request body is declared as JSON.
func isJSON(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "application/json"
}

// wantsJSON reports whether the response should be JSON rather than HTML.
func wantsJSON(r *http.Request) bool {
	if isJSON(r) {
		return true
	}
	accept := r.Header.Get("Accept")
	return strings.Contains(accept, "application/json") && !strings.Contains(accept, "text/html")
}

// decodeInput reads an entry from a JSON object or a form body. JSON amounts
// may be numbers or strings.
func decodeInput(w http.ResponseWriter, r *http.Request) (intake.Input, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	if !isJSON(r) {
		if err := r.ParseForm(); err != nil {
			return intake.Input{}, fmt.Errorf("%w: %v", errBadBody, err)
		}
		return intake.Input{
			Amount:   sanitizeInput(r.PostForm.Get("amount")),
			Category: sanitizeInput(r.PostForm.Get("category")),
			Note:     sanitizeInput(r.PostForm.Get("note")),
		}, nil
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return intake.Input{}, fmt.Errorf("%w: %v", errBadBody, err)
	}
	var raw map[string]any
	dec := json.NewDecoder(strings.NewReader(string(body)))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return intake.Input{}, fmt.Errorf("%w: %v", errBadBody, err)
	}
	return intake.Input{
		Amount:   sanitizeInput(stringValue(raw["amount"])),
		Category: sanitizeInput(stringValue(raw["category"])),
		Note:     sanitizeInput(stringValue(raw["note"])),
	}, nil
}

func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case json.Number:
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// sanitizeInput drops control characters except tab, newline and carriage return.
func sanitizeInput(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s)
}

// windowParam resolves ?window= against the server clock; empty means today.
func (s *Server) windowParam(r *http.Request) (aggregate.Window, error) {
	return aggregate.ParseWindow(strings.TrimSpace(r.URL.Query().Get("window")), s.now())
}

// topParam parses ?top=, defaulting to def. Zero means no limit.
func topParam(r *http.Request, def int) (int, error) {
	v := strings.TrimSpace(r.URL.Query().Get("top"))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid top %q", v)
	}
	return n, nil
}
