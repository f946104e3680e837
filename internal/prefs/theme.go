package prefs

import "strings"

const (
	themeKey     = "theme"
	defaultTheme = "Nightfox"
)

// LoadTheme returns the saved UI theme name, falling back to the default when
// nothing usable is stored.
func LoadTheme(m Medium) string {
	if m == nil {
		return defaultTheme
	}
	value, ok, err := m.Get(themeKey)
	if err != nil || !ok {
		return defaultTheme // Graceful degradation
	}
	if strings.TrimSpace(value) == "" {
		return defaultTheme
	}
	return strings.TrimSpace(value)
}

// SaveTheme persists the UI theme name.
func SaveTheme(m Medium, name string) error {
	return m.Set(themeKey, strings.TrimSpace(name))
}
