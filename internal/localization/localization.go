// Package localization provides functionality for internationalization (i18n).
// It loads translation strings from JSON files and provides a simple way to get
// localized strings for different languages. The denial texts shown to clients
// ship embedded in the binary.
package localization

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"
	"sync"
)

// DefaultLanguage is used when a key is missing in the requested language.
const DefaultLanguage = "en"

//go:embed locales/*.json
var embedded embed.FS

// Localizer manages the translations for the application.
// It holds a map of languages, each with its own map of translation keys and values.
type Localizer struct {
	translations map[string]map[string]string
	mu           sync.RWMutex
}

// NewLocalizer loads all translations from the directory at path.
// The directory should contain JSON files named with the language code (e.g., "en.json").
func NewLocalizer(path string) (*Localizer, error) {
	return NewLocalizerFS(os.DirFS(path), ".")
}

// NewEmbeddedLocalizer returns a Localizer over the built-in locales.
func NewEmbeddedLocalizer() (*Localizer, error) {
	return NewLocalizerFS(embedded, "locales")
}

// NewLocalizerFS loads every "<lang>.json" file found in dir of fsys.
func NewLocalizerFS(fsys fs.FS, dir string) (*Localizer, error) {
	l := &Localizer{
		translations: make(map[string]map[string]string),
	}

	files, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read localization directory: %w", err)
	}

	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(file.Name(), ".json") {
			continue
		}

		lang := strings.TrimSuffix(file.Name(), ".json")
		data, err := fs.ReadFile(fsys, path.Join(dir, file.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read localization file %s: %w", file.Name(), err)
		}

		var translations map[string]string
		if err := json.Unmarshal(data, &translations); err != nil {
			return nil, fmt.Errorf("failed to parse localization file %s: %w", file.Name(), err)
		}

		l.translations[lang] = translations
	}

	return l, nil
}

// GetString returns the localized string for a given key and language.
// If the language or the key is not found, it returns the key itself as a fallback.
func (l *Localizer) GetString(lang, key string) string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if langTranslations, ok := l.translations[lang]; ok {
		if value, ok := langTranslations[key]; ok {
			return value
		}
	}

	// Fallback to the default language if the key is not found in the specified language
	if lang != DefaultLanguage {
		if enTranslations, ok := l.translations[DefaultLanguage]; ok {
			if value, ok := enTranslations[key]; ok {
				return value
			}
		}
	}

	return key
}

// DenialMessage renders the client-facing text for a denial reason.
// retryAfter is substituted when the text has a placeholder for it.
func (l *Localizer) DenialMessage(lang, reason string, retryAfter *int64) string {
	text := l.GetString(lang, "denial."+reason)
	if retryAfter != nil && strings.Contains(text, "%d") {
		return fmt.Sprintf(text, *retryAfter)
	}
	return text
}

// Languages lists the loaded language codes.
func (l *Localizer) Languages() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	langs := make([]string, 0, len(l.translations))
	for lang := range l.translations {
		langs = append(langs, lang)
	}
	return langs
}

// PickLanguage selects the first language of an Accept-Language header that has
// translations, falling back to DefaultLanguage.
func (l *Localizer) PickLanguage(acceptLanguage string) string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, part := range strings.Split(acceptLanguage, ",") {
		tag := strings.TrimSpace(strings.SplitN(part, ";", 2)[0])
		tag = strings.ToLower(strings.SplitN(tag, "-", 2)[0])
		if _, ok := l.translations[tag]; ok {
			return tag
		}
	}
	return DefaultLanguage
}
