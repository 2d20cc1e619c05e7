package models

type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// Opposite returns the other theme
func (t Theme) Opposite() Theme {
	if t == ThemeDark {
		return ThemeLight
	}
	return ThemeDark
}

type AccentColor string

const (
	AccentBlue   AccentColor = "blue"
	AccentGreen  AccentColor = "green"
	AccentOrange AccentColor = "orange"
	AccentSlate  AccentColor = "slate"
	AccentRose   AccentColor = "rose"
)

var AccentColors = []AccentColor{AccentBlue, AccentGreen, AccentOrange, AccentSlate, AccentRose}

// accentRGB holds the "r, g, b" triple used for --accent-color per theme
var accentRGB = map[AccentColor]map[Theme]string{
	AccentBlue:   {ThemeLight: "59, 130, 246", ThemeDark: "96, 165, 250"},
	AccentGreen:  {ThemeLight: "34, 197, 94", ThemeDark: "74, 222, 128"},
	AccentOrange: {ThemeLight: "249, 115, 22", ThemeDark: "251, 146, 60"},
	AccentSlate:  {ThemeLight: "100, 116, 139", ThemeDark: "148, 163, 184"},
	AccentRose:   {ThemeLight: "244, 63, 94", ThemeDark: "251, 113, 133"},
}

// RGB returns the accent triple for the given theme, falling back to blue
func (a AccentColor) RGB(theme Theme) string {
	if theme != ThemeDark {
		theme = ThemeLight
	}
	if byTheme, ok := accentRGB[a]; ok {
		return byTheme[theme]
	}
	return accentRGB[AccentBlue][theme]
}

type BackgroundStyle string

const (
	BackgroundSolid    BackgroundStyle = "solid"
	BackgroundGradient BackgroundStyle = "gradient"
)

const (
	DefaultSuggestionCount = 3
	MinSuggestionCount     = 1
	MaxSuggestionCount     = 5
)

// AppSettings holds the display preferences for one panel session.
// Settings live in memory only.
type AppSettings struct {
	Theme             Theme           `json:"theme"`
	AccentColor       AccentColor     `json:"accentColor"`
	BackgroundStyle   BackgroundStyle `json:"backgroundStyle"`
	SyncWithSystem    bool            `json:"syncWithSystem"`
	ShowEmail         bool            `json:"showEmail"`
	ShowInstructions  bool            `json:"showInstructions"`
	ShowSecurity      bool            `json:"showSecurity"`
	ShowAnalysis      bool            `json:"showAnalysis"`
	ShowFollowUp      bool            `json:"showFollowUp"`
	SuggestionCount   int             `json:"suggestionCount"`
	SystemInstruction string          `json:"systemInstruction"`
}

func DefaultSettings() AppSettings {
	return AppSettings{
		Theme:             ThemeLight,
		AccentColor:       AccentBlue,
		BackgroundStyle:   BackgroundSolid,
		SyncWithSystem:    false,
		ShowEmail:         true,
		ShowInstructions:  true,
		ShowSecurity:      true,
		ShowAnalysis:      true,
		ShowFollowUp:      true,
		SuggestionCount:   DefaultSuggestionCount,
		SystemInstruction: "",
	}
}

// Normalize replaces out-of-range values with their defaults
func (s AppSettings) Normalize() AppSettings {
	if s.Theme != ThemeLight && s.Theme != ThemeDark {
		s.Theme = ThemeLight
	}
	if _, ok := accentRGB[s.AccentColor]; !ok {
		s.AccentColor = AccentBlue
	}
	if s.BackgroundStyle != BackgroundSolid && s.BackgroundStyle != BackgroundGradient {
		s.BackgroundStyle = BackgroundSolid
	}
	if s.SuggestionCount < MinSuggestionCount || s.SuggestionCount > MaxSuggestionCount {
		s.SuggestionCount = DefaultSuggestionCount
	}
	return s
}

// EffectiveTheme resolves the theme to render. When sync is on, the
// platform preference wins; an unknown preference ("") keeps the stored theme.
func (s AppSettings) EffectiveTheme(platform Theme) Theme {
	if s.SyncWithSystem && (platform == ThemeLight || platform == ThemeDark) {
		return platform
	}
	return s.Theme
}
