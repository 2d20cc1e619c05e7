package api

import (
	"mailassist/controller"
	"mailassist/middleware"
	"mailassist/models"
	"mailassist/views"

	"github.com/gofiber/fiber/v2"
)

// StateResponse is the JSON form of a panel snapshot
type StateResponse struct {
	Settings       models.AppSettings          `json:"settings"`
	EffectiveTheme models.Theme                `json:"effectiveTheme"`
	Email          *models.Email               `json:"email"`
	Security       *models.SecurityAnalysis    `json:"security"`
	Analysis       *models.EmailAnalysisResult `json:"analysis"`
	FollowUp       *models.FollowUpAnalysis    `json:"followUp"`
	Suggestions    []string                    `json:"suggestions"`
	HistoryDepth   int                         `json:"historyDepth"`
	Tone           models.Tone                 `json:"tone"`
	Instruction    string                      `json:"instruction"`
	Loading        bool                        `json:"loading"`
	Error          string                      `json:"error,omitempty"`
	Started        bool                        `json:"started"`
}

// NewStateResponse converts snap, resolving the theme against platform
func NewStateResponse(snap controller.Snapshot, platform models.Theme) StateResponse {
	suggestions := snap.Suggestions
	if suggestions == nil {
		suggestions = []string{}
	}
	return StateResponse{
		Settings:       snap.Settings,
		EffectiveTheme: snap.Settings.EffectiveTheme(platform),
		Email:          snap.Email,
		Security:       snap.Security,
		Analysis:       snap.Analysis,
		FollowUp:       snap.FollowUp,
		Suggestions:    suggestions,
		HistoryDepth:   snap.HistoryDepth,
		Tone:           snap.Tone,
		Instruction:    snap.Instruction,
		Loading:        snap.Loading,
		Error:          snap.Error,
		Started:        snap.Started,
	}
}

// StateHandler exposes the panel state to scripts
type StateHandler struct {
	registry *controller.Registry
}

func NewStateHandler(registry *controller.Registry) *StateHandler {
	return &StateHandler{registry: registry}
}

// GetState returns the session's snapshot
func (h *StateHandler) GetState(c *fiber.Ctx) error {
	ctrl, _ := h.registry.Get(middleware.SessionID(c))
	return c.JSON(NewStateResponse(ctrl.Snapshot(), PlatformTheme(c)))
}

// GetTones lists the tones the instruction editor offers
func (h *StateHandler) GetTones(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"tones":   models.Tones,
		"default": models.DefaultTone,
	})
}

// PlatformTheme reads the browser's color scheme from the client hint,
// falling back to the cookie set by the panel script
func PlatformTheme(c *fiber.Ctx) models.Theme {
	if t := views.ParseTheme(c.Get("Sec-CH-Prefers-Color-Scheme")); t != "" {
		return t
	}
	return views.ParseTheme(c.Cookies("prefers_color_scheme"))
}
