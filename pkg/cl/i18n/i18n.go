// Package i18n translates interface strings and names languages.
//
// Messages are keyed by their English source text, which doubles as the
// fmt format string; translations are loaded from one YAML file per
// language (fr.yaml, de.yaml, ...) mapping source text to translation.
package i18n

import (
	"fmt"
	"io/fs"
	"path"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
	"gopkg.in/yaml.v3"
)

// Translator renders a message in a locale.
type Translator interface {
	T(locale, key string, args ...any) string
}

// Catalog is a Translator backed by golang.org/x/text message catalogs.
type Catalog struct {
	builder   *catalog.Builder
	languages map[string]bool
}

// NewCatalog returns an empty catalog; every message renders as its key.
func NewCatalog() *Catalog {
	return &Catalog{
		builder:   catalog.NewBuilder(catalog.Fallback(language.English)),
		languages: map[string]bool{"en": true},
	}
}

// Load reads every *.yaml file in dir of fsys into a new catalog.
func Load(fsys fs.FS, dir string) (*Catalog, error) {
	c := NewCatalog()

	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("cannot read translations: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		data, err := fs.ReadFile(fsys, path.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("cannot read %s: %w", entry.Name(), err)
		}

		var messages map[string]string
		if err := yaml.Unmarshal(data, &messages); err != nil {
			return nil, fmt.Errorf("cannot parse %s: %w", entry.Name(), err)
		}

		code := strings.TrimSuffix(entry.Name(), ".yaml")
		if err := c.Add(code, messages); err != nil {
			return nil, err
		}
	}

	return c, nil
}

// Add registers translations for a language code.
func (c *Catalog) Add(code string, messages map[string]string) error {
	tag, err := language.Parse(code)
	if err != nil {
		return fmt.Errorf("invalid language %q: %w", code, err)
	}
	for key, msg := range messages {
		if err := c.builder.SetString(tag, key, msg); err != nil {
			return fmt.Errorf("cannot set %q for %s: %w", key, code, err)
		}
	}
	c.languages[code] = true
	return nil
}

// T formats key in locale. Unknown keys and locales render the key itself.
func (c *Catalog) T(locale, key string, args ...any) string {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.English
	}
	return message.NewPrinter(tag, message.Catalog(c.builder)).Sprintf(key, args...)
}

// LanguageName returns the English display name of a language code, or the
// code itself when it cannot be parsed.
func LanguageName(code string) string {
	tag, err := language.Parse(code)
	if err != nil {
		return code
	}
	if name := display.Languages(language.English).Name(tag); name != "" {
		return name
	}
	return code
}
