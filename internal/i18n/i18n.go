package i18n

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strconv"
	"strings"
)

//go:embed locales/*.json
var embeddedLocales embed.FS

const (
	LangRU = "ru"
	LangEN = "en"
)

// Manager serves insight and label texts. Each catalog is resolved at load
// time: the language's own messages over the default language over English.
type Manager struct {
	defaultLanguage string
	catalogs        map[string]map[string]string
	languages       []string
}

// NewManager loads the locales shipped with the binary.
func NewManager(defaultLanguage string) (*Manager, error) {
	locales, err := fs.Sub(embeddedLocales, "locales")
	if err != nil {
		return nil, fmt.Errorf("open embedded locales: %w", err)
	}
	return NewManagerFromFS(defaultLanguage, locales)
}

// NewManagerFromFS reads every <lang>.json at the root of locales. English is mandatory.
func NewManagerFromFS(defaultLanguage string, locales fs.FS) (*Manager, error) {
	raw, err := readCatalogs(locales)
	if err != nil {
		return nil, err
	}
	if _, ok := raw[LangEN]; !ok {
		return nil, fmt.Errorf("required locale %q missing", LangEN)
	}

	manager := &Manager{
		defaultLanguage: LangEN,
		catalogs:        make(map[string]map[string]string, len(raw)),
		languages:       make([]string, 0, len(raw)),
	}
	for language := range raw {
		manager.languages = append(manager.languages, language)
	}
	sort.Strings(manager.languages)

	if preferred := languageTag(defaultLanguage); preferred != "" {
		if _, ok := raw[preferred]; ok {
			manager.defaultLanguage = preferred
		}
	}
	for _, language := range manager.languages {
		manager.catalogs[language] = layered(raw[LangEN], raw[manager.defaultLanguage], raw[language])
	}
	return manager, nil
}

func readCatalogs(locales fs.FS) (map[string]map[string]string, error) {
	entries, err := fs.ReadDir(locales, ".")
	if err != nil {
		return nil, fmt.Errorf("read locales dir: %w", err)
	}

	catalogs := map[string]map[string]string{}
	for _, entry := range entries {
		extension := path.Ext(entry.Name())
		if entry.IsDir() || extension != ".json" {
			continue
		}
		language := strings.ToLower(strings.TrimSuffix(entry.Name(), extension))

		content, err := fs.ReadFile(locales, entry.Name())
		if err != nil {
			return nil, fmt.Errorf("read locale %s: %w", language, err)
		}
		messages := map[string]string{}
		if err := json.Unmarshal(content, &messages); err != nil {
			return nil, fmt.Errorf("parse locale %s: %w", language, err)
		}
		if len(messages) == 0 {
			return nil, fmt.Errorf("locale %s is empty", language)
		}
		catalogs[language] = messages
	}
	return catalogs, nil
}

// layered merges catalogs left to right; blank messages never override.
func layered(catalogs ...map[string]string) map[string]string {
	merged := map[string]string{}
	for _, catalog := range catalogs {
		for key, message := range catalog {
			if strings.TrimSpace(message) != "" {
				merged[key] = message
			}
		}
	}
	return merged
}

func (manager *Manager) DefaultLanguage() string {
	return manager.defaultLanguage
}

func (manager *Manager) SupportedLanguages() []string {
	return append([]string(nil), manager.languages...)
}

// NormalizeLanguage reduces a tag such as "en_US" to a supported base
// language, or the default one.
func (manager *Manager) NormalizeLanguage(raw string) string {
	if language := languageTag(raw); manager.supports(language) {
		return language
	}
	return manager.defaultLanguage
}

// DetectFromAcceptLanguage picks the supported language with the highest
// q-value. Equal weights keep header order.
func (manager *Manager) DetectFromAcceptLanguage(header string) string {
	type candidate struct {
		language string
		weight   float64
	}
	candidates := make([]candidate, 0)
	for _, part := range strings.Split(header, ",") {
		fields := strings.Split(part, ";")
		language := languageTag(fields[0])
		if !manager.supports(language) {
			continue
		}
		weight := 1.0
		for _, parameter := range fields[1:] {
			name, value, found := strings.Cut(strings.TrimSpace(parameter), "=")
			if !found || strings.TrimSpace(name) != "q" {
				continue
			}
			if parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
				weight = parsed
			}
		}
		if weight > 0 {
			candidates = append(candidates, candidate{language: language, weight: weight})
		}
	}
	if len(candidates) == 0 {
		return manager.defaultLanguage
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].weight > candidates[j].weight
	})
	return candidates[0].language
}

// Resolve prefers an explicit language over the Accept-Language header.
func (manager *Manager) Resolve(acceptLanguage string, override string) string {
	if strings.TrimSpace(override) != "" {
		return manager.NormalizeLanguage(override)
	}
	return manager.DetectFromAcceptLanguage(acceptLanguage)
}

// Translate returns key itself when no catalog has a message for it.
func (manager *Manager) Translate(language string, key string) string {
	if message, ok := manager.catalogs[manager.NormalizeLanguage(language)][key]; ok {
		return message
	}
	return key
}

func (manager *Manager) Translatef(language string, key string, args ...any) string {
	message, ok := manager.catalogs[manager.NormalizeLanguage(language)][key]
	if !ok {
		return key
	}
	if len(args) == 0 {
		return message
	}
	return fmt.Sprintf(message, args...)
}

func (manager *Manager) supports(language string) bool {
	_, ok := manager.catalogs[language]
	return ok
}

func languageTag(raw string) string {
	tag := strings.ToLower(strings.TrimSpace(raw))
	if separator := strings.IndexAny(tag, "-_"); separator >= 0 {
		tag = tag[:separator]
	}
	return tag
}
