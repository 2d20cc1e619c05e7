// Package views turns a controller snapshot into the data the panel
// templates render. Every builder is a pure function of its input.
package views

import (
	"html/template"
	"strings"
	"time"

	"mailassist/controller"
	"mailassist/models"
	"mailassist/utils"
)

const (
	gradientLightClass = "bg-gradient-to-br from-white to-slate-100"
	gradientDarkClass  = "bg-gradient-to-br from-slate-900 to-slate-800"
	solidClass         = "bg-white dark:bg-slate-900"
)

// ThemeView holds the derived theme for one render
type ThemeView struct {
	Theme           models.Theme
	Dark            bool
	AccentRGB       string
	BackgroundClass string
}

// RootClass is the class list for the <html> element
func (t ThemeView) RootClass() string {
	if t.Dark {
		return "dark"
	}
	return ""
}

// BuildTheme derives the theme classes for settings rendered against the
// given effective theme
func BuildTheme(s models.AppSettings, effective models.Theme) ThemeView {
	v := ThemeView{
		Theme:     effective,
		Dark:      effective == models.ThemeDark,
		AccentRGB: s.AccentColor.RGB(effective),
	}
	switch {
	case s.BackgroundStyle == models.BackgroundGradient && v.Dark:
		v.BackgroundClass = gradientDarkClass
	case s.BackgroundStyle == models.BackgroundGradient:
		v.BackgroundClass = gradientLightClass
	default:
		v.BackgroundClass = solidClass
	}
	return v
}

type HeaderView struct {
	Dark    bool
	Loading bool
}

type SecurityView struct {
	Visible bool
	Loading bool
	Status  models.SecurityStatus
	Details string
	Threat  bool
	Level   string // safe, warning or danger
}

type ThreadEntry struct {
	From string
	Date string
	Body template.HTML
}

type EmailView struct {
	Visible bool
	From    string
	To      string
	Subject string
	Date    string
	Body    template.HTML
	Thread  []ThreadEntry
}

type AnalysisView struct {
	Visible     bool
	Loading     bool
	Sentiment   string
	Urgency     string
	Intent      string
	KeyPoints   []string
	NextActions []string
}

type FollowUpView struct {
	Visible          bool
	Loading          bool
	RequiresFollowUp bool
	IsClosed         bool
	Reason           string
	Reminder         string
}

type ToneOption struct {
	Value    string
	Selected bool
}

type InstructionView struct {
	Visible     bool
	Disabled    bool
	Tones       []ToneOption
	Instruction string
}

type SuggestionItem struct {
	Index int
	Text  string
	HTML  template.HTML
}

type SuggestionsView struct {
	Loading   bool
	Items     []SuggestionItem
	Skeletons []int
	CanGoBack bool
}

// Panel is everything the panel page renders
type Panel struct {
	Theme        ThemeView
	Header       HeaderView
	Error        string
	Security     SecurityView
	Email        EmailView
	Analysis     AnalysisView
	FollowUp     FollowUpView
	Instructions InstructionView
	Suggestions  SuggestionsView
	Settings     models.AppSettings
	Accents      []models.AccentColor
	SettingsOpen bool
}

// BuildPanel builds the panel for snap. platform is the color scheme the
// browser reported, used when the settings sync with the system.
func BuildPanel(snap controller.Snapshot, platform models.Theme) Panel {
	theme := BuildTheme(snap.Settings, snap.Settings.EffectiveTheme(platform))
	return Panel{
		Theme:        theme,
		Header:       HeaderView{Dark: theme.Dark, Loading: snap.Loading},
		Error:        snap.Error,
		Security:     BuildSecurity(snap),
		Email:        BuildEmail(snap),
		Analysis:     BuildAnalysis(snap),
		FollowUp:     BuildFollowUp(snap),
		Instructions: BuildInstructions(snap),
		Suggestions:  BuildSuggestions(snap),
		Settings:     snap.Settings,
		Accents:      models.AccentColors,
	}
}

func BuildSecurity(snap controller.Snapshot) SecurityView {
	v := SecurityView{
		Visible: snap.Settings.ShowSecurity,
		Loading: snap.Loading && snap.Security == nil,
	}
	if snap.Security == nil {
		return v
	}
	v.Status = snap.Security.Status
	v.Details = snap.Security.Details
	v.Threat = snap.Security.Status.IsThreat()
	switch snap.Security.Status {
	case models.SecuritySafe:
		v.Level = "safe"
	case models.SecuritySpam:
		v.Level = "warning"
	default:
		v.Level = "danger"
	}
	return v
}

// BuildEmail renders the original email. It is hidden until an email
// was fetched.
func BuildEmail(snap controller.Snapshot) EmailView {
	e := snap.Email
	if e == nil || !snap.Settings.ShowEmail {
		return EmailView{}
	}
	v := EmailView{
		Visible: true,
		From:    e.Sender.String(),
		To:      e.Recipient.String(),
		Subject: e.Subject,
		Date:    formatDate(e.Date),
		Body:    utils.RenderBody(e.Body),
	}
	for _, msg := range e.Thread {
		v.Thread = append(v.Thread, ThreadEntry{
			From: msg.Sender.String(),
			Date: formatDate(msg.Date),
			Body: utils.RenderBody(msg.Body),
		})
	}
	return v
}

func BuildAnalysis(snap controller.Snapshot) AnalysisView {
	v := AnalysisView{
		Visible: snap.Settings.ShowAnalysis,
		Loading: snap.Loading && snap.Analysis == nil,
	}
	if a := snap.Analysis; a != nil {
		v.Sentiment = a.Sentiment
		v.Urgency = a.Urgency
		v.Intent = a.Intent
		v.KeyPoints = a.KeyPoints
		v.NextActions = a.NextActions
	}
	return v
}

func BuildFollowUp(snap controller.Snapshot) FollowUpView {
	v := FollowUpView{
		Visible: snap.Settings.ShowFollowUp,
		Loading: snap.Loading && snap.FollowUp == nil,
	}
	if f := snap.FollowUp; f != nil {
		v.RequiresFollowUp = f.RequiresFollowUp
		v.IsClosed = f.IsClosed
		v.Reason = f.Reason
		if f.SuggestedReminder != nil {
			v.Reminder = *f.SuggestedReminder
		}
	}
	return v
}

func BuildInstructions(snap controller.Snapshot) InstructionView {
	v := InstructionView{
		Visible:     snap.Settings.ShowInstructions,
		Disabled:    snap.Loading,
		Instruction: snap.Instruction,
		Tones:       make([]ToneOption, 0, len(models.Tones)),
	}
	for _, t := range models.Tones {
		v.Tones = append(v.Tones, ToneOption{Value: string(t), Selected: t == snap.Tone})
	}
	return v
}

// BuildSuggestions shows skeleton rows for the configured count while the
// first suggestions are loading
func BuildSuggestions(snap controller.Snapshot) SuggestionsView {
	v := SuggestionsView{
		Loading:   snap.Loading && len(snap.Suggestions) == 0,
		CanGoBack: snap.HistoryDepth > 0,
	}
	if v.Loading {
		v.Skeletons = make([]int, snap.Settings.SuggestionCount)
		for i := range v.Skeletons {
			v.Skeletons[i] = i
		}
		return v
	}
	for i, s := range snap.Suggestions {
		v.Items = append(v.Items, SuggestionItem{
			Index: i,
			Text:  s,
			HTML:  utils.RenderMarkdown(s),
		})
	}
	return v
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("Jan 02, 2006 15:04")
}

// ParseTheme reads a color scheme preference such as the
// Sec-CH-Prefers-Color-Scheme header. Anything unrecognised yields "".
func ParseTheme(s string) models.Theme {
	switch strings.ToLower(strings.Trim(strings.TrimSpace(s), `"`)) {
	case "dark":
		return models.ThemeDark
	case "light":
		return models.ThemeLight
	default:
		return ""
	}
}
