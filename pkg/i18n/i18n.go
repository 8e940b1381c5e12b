// Package i18n holds the user-facing notices of the report pipeline in
// Korean, English and Japanese.
package i18n

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Locale represents a supported language
type Locale string

const (
	LocaleKo Locale = "ko"
	LocaleEn Locale = "en"
	LocaleJa Locale = "ja"
)

var defaultLocale = LocaleKo

// Translator resolves message keys
type Translator interface {
	T(locale Locale, key string, args ...interface{}) string
}

// Bundle holds translations for every locale
type Bundle struct {
	mu           sync.RWMutex
	translations map[Locale]map[string]string
	fallback     Locale
}

// NewBundle creates an empty bundle with the given fallback locale
func NewBundle(fallback Locale) *Bundle {
	return &Bundle{
		translations: make(map[Locale]map[string]string),
		fallback:     fallback,
	}
}

// Default returns a bundle preloaded with the built-in notices
func Default() *Bundle {
	b := NewBundle(defaultLocale)
	for locale, msgs := range DefaultMessages() {
		b.LoadMessages(locale, msgs)
	}
	return b
}

// LoadDir overlays JSON files named <locale>.json from dir, so operators can
// reword notices without a rebuild.
func (b *Bundle) LoadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read i18n dir: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		var msgs map[string]string
		if err := json.Unmarshal(data, &msgs); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
		b.LoadMessages(Locale(strings.TrimSuffix(entry.Name(), ".json")), msgs)
	}
	return nil
}

// LoadMessages merges messages into locale
func (b *Bundle) LoadMessages(locale Locale, messages map[string]string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	existing, ok := b.translations[locale]
	if !ok {
		existing = make(map[string]string, len(messages))
		b.translations[locale] = existing
	}
	for k, v := range messages {
		existing[k] = v
	}
}

// T translates key for locale, then the fallback locale, and finally
// returns the key itself.
func (b *Bundle) T(locale Locale, key string, args ...interface{}) string {
	b.mu.RLock()
	msg, ok := b.lookup(locale, key)
	if !ok && locale != b.fallback {
		msg, ok = b.lookup(b.fallback, key)
	}
	b.mu.RUnlock()

	if !ok {
		return key
	}
	if len(args) > 0 {
		return fmt.Sprintf(msg, args...)
	}
	return msg
}

func (b *Bundle) lookup(locale Locale, key string) (string, bool) {
	msgs, ok := b.translations[locale]
	if !ok {
		return "", false
	}
	msg, ok := msgs[key]
	return msg, ok
}

// ParseLocale maps a language tag ("en-US", "ja", "ko_KR") to a supported
// locale, defaulting to Korean.
func ParseLocale(tag string) Locale {
	lang := strings.ToLower(strings.TrimSpace(tag))
	switch {
	case strings.HasPrefix(lang, "ko"):
		return LocaleKo
	case strings.HasPrefix(lang, "en"):
		return LocaleEn
	case strings.HasPrefix(lang, "ja"):
		return LocaleJa
	}
	return defaultLocale
}

// ParseAcceptLanguage picks the first supported language of an
// Accept-Language style list.
func ParseAcceptLanguage(header string) Locale {
	for _, part := range strings.Split(header, ",") {
		lang := strings.TrimSpace(strings.SplitN(part, ";", 2)[0])
		if lang == "" {
			continue
		}
		if l := ParseLocale(lang); l != defaultLocale || strings.HasPrefix(strings.ToLower(lang), "ko") {
			return l
		}
	}
	return defaultLocale
}
