package bank

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"strings"

	"lingua-quiz-service/internal/domain"
)

//go:embed banks/*.json
var bankFS embed.FS

// Embedded parses the built-in question banks, keyed by learning language.
// One JSON file per language is the single source of truth: language is a
// lookup key, never a structural fork.
func Embedded() (map[string]domain.Bank, error) {
	banks := make(map[string]domain.Bank)
	entries, err := fs.ReadDir(bankFS, "banks")
	if err != nil {
		return nil, fmt.Errorf("read banks: %w", err)
	}
	for _, entry := range entries {
		data, err := bankFS.ReadFile("banks/" + entry.Name())
		if err != nil {
			return nil, fmt.Errorf("read bank %s: %w", entry.Name(), err)
		}
		var b domain.Bank
		if err := json.Unmarshal(data, &b); err != nil {
			return nil, fmt.Errorf("parse bank %s: %w", entry.Name(), err)
		}
		if b.Language == "" {
			b.Language = strings.TrimSuffix(entry.Name(), ".json")
		}
		if err := Validate(b); err != nil {
			return nil, fmt.Errorf("bank %s: %w", b.Language, err)
		}
		banks[b.Language] = b
	}
	return banks, nil
}

// Validate checks that every question carries the answer fields its type
// requires. Banks are authored data; a malformed bank is a startup error,
// not a runtime condition.
func Validate(b domain.Bank) error {
	seen := make(map[string]struct{}, len(b.Questions))
	for _, q := range b.Questions {
		if q.ID == "" {
			return fmt.Errorf("question with empty id")
		}
		if _, dup := seen[q.ID]; dup {
			return fmt.Errorf("duplicate question id %q", q.ID)
		}
		seen[q.ID] = struct{}{}

		switch q.Type {
		case domain.MultipleChoice:
			if len(q.Options) < 2 {
				return fmt.Errorf("question %q: multiple_choice needs at least 2 options", q.ID)
			}
			if q.CorrectIndex < 0 || q.CorrectIndex >= len(q.Options) {
				return fmt.Errorf("question %q: correct index %d out of range", q.ID, q.CorrectIndex)
			}
		case domain.TrueFalse:
			// CorrectBool carries the answer; no options required.
		case domain.FillBlank, domain.ShortAnswer:
			if q.CorrectText == "" {
				return fmt.Errorf("question %q: missing correct text", q.ID)
			}
		default:
			return fmt.Errorf("question %q: unknown type %q", q.ID, q.Type)
		}
	}
	return nil
}
