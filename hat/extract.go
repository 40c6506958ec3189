package hat

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var fencedJSON = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")

// ErrNoJSON is returned when model output carries no JSON payload.
var ErrNoJSON = errors.New("no JSON found in text")

// ExtractJSON pulls a JSON payload out of free-form model output. A fenced
// block wins; otherwise the outermost [...] or {...} span is used.
func ExtractJSON(text string) (string, error) {
	if m := fencedJSON.FindStringSubmatch(text); m != nil {
		if body := strings.TrimSpace(m[1]); body != "" {
			return body, nil
		}
	}

	start := strings.IndexAny(text, "[{")
	if start < 0 {
		return "", ErrNoJSON
	}
	closer := "}"
	if text[start] == '[' {
		closer = "]"
	}
	end := strings.LastIndex(text, closer)
	if end <= start {
		return "", ErrNoJSON
	}
	return text[start : end+1], nil
}

// ParseHats decodes one hat or an array of hats from model output.
// Every decoded hat is normalized; hats without an id get a fresh one.
func ParseHats(text string) ([]*Hat, error) {
	payload, err := ExtractJSON(text)
	if err != nil {
		return nil, err
	}

	var hats []*Hat
	if strings.HasPrefix(payload, "[") {
		if err := json.Unmarshal([]byte(payload), &hats); err != nil {
			return nil, fmt.Errorf("decode hat list: %w", err)
		}
	} else {
		var h Hat
		if err := json.Unmarshal([]byte(payload), &h); err != nil {
			return nil, fmt.Errorf("decode hat: %w", err)
		}
		hats = []*Hat{&h}
	}

	out := hats[:0]
	for _, h := range hats {
		if h == nil {
			continue
		}
		if h.ID == "" {
			h.ID = NewID()
		}
		out = append(out, h)
	}
	return out, nil
}
