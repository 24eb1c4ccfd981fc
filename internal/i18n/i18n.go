package i18n

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"strings"
)

//go:embed locales/*.json
var localeFS embed.FS

const fallbackLanguage = "en"

// Table maps message keys to translated labels per interface language.
type Table struct {
	messages map[string]map[string]string
}

// Load parses every embedded locale file into one lookup table.
func Load() (*Table, error) {
	table := &Table{messages: make(map[string]map[string]string)}
	entries, err := fs.ReadDir(localeFS, "locales")
	if err != nil {
		return nil, fmt.Errorf("read locales: %w", err)
	}
	for _, entry := range entries {
		lang := strings.TrimSuffix(entry.Name(), ".json")
		data, err := localeFS.ReadFile("locales/" + entry.Name())
		if err != nil {
			return nil, fmt.Errorf("read locale %s: %w", lang, err)
		}
		var msgs map[string]string
		if err := json.Unmarshal(data, &msgs); err != nil {
			return nil, fmt.Errorf("parse locale %s: %w", lang, err)
		}
		table.messages[lang] = msgs
	}
	if _, ok := table.messages[fallbackLanguage]; !ok {
		return nil, fmt.Errorf("fallback locale %q missing", fallbackLanguage)
	}
	return table, nil
}

// T looks up a label, falling back to English and finally to the key itself.
func (t *Table) T(lang, key string) string {
	if msgs, ok := t.messages[lang]; ok {
		if msg, ok := msgs[key]; ok {
			return msg
		}
	}
	if msg, ok := t.messages[fallbackLanguage][key]; ok {
		return msg
	}
	return key
}

// Languages lists the interface languages with a locale table.
func (t *Table) Languages() []string {
	langs := make([]string, 0, len(t.messages))
	for lang := range t.messages {
		langs = append(langs, lang)
	}
	return langs
}
