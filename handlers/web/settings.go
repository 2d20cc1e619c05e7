package web

import (
	"mailassist/models"
	"mailassist/utils"

	"github.com/gofiber/fiber/v2"
)

// settingsForm mirrors AppSettings for form and JSON posts. Checkboxes
// that are not ticked are simply absent.
type settingsForm struct {
	Theme             string `json:"theme" form:"theme"`
	AccentColor       string `json:"accentColor" form:"accentColor"`
	BackgroundStyle   string `json:"backgroundStyle" form:"backgroundStyle"`
	SyncWithSystem    bool   `json:"syncWithSystem" form:"syncWithSystem"`
	ShowEmail         bool   `json:"showEmail" form:"showEmail"`
	ShowInstructions  bool   `json:"showInstructions" form:"showInstructions"`
	ShowSecurity      bool   `json:"showSecurity" form:"showSecurity"`
	ShowAnalysis      bool   `json:"showAnalysis" form:"showAnalysis"`
	ShowFollowUp      bool   `json:"showFollowUp" form:"showFollowUp"`
	SuggestionCount   int    `json:"suggestionCount" form:"suggestionCount"`
	SystemInstruction string `json:"systemInstruction" form:"systemInstruction"`
	Language          string `json:"language" form:"language"`
}

func (f settingsForm) settings() models.AppSettings {
	return models.AppSettings{
		Theme:             models.Theme(f.Theme),
		AccentColor:       models.AccentColor(f.AccentColor),
		BackgroundStyle:   models.BackgroundStyle(f.BackgroundStyle),
		SyncWithSystem:    f.SyncWithSystem,
		ShowEmail:         f.ShowEmail,
		ShowInstructions:  f.ShowInstructions,
		ShowSecurity:      f.ShowSecurity,
		ShowAnalysis:      f.ShowAnalysis,
		ShowFollowUp:      f.ShowFollowUp,
		SuggestionCount:   f.SuggestionCount,
		SystemInstruction: f.SystemInstruction,
	}
}

type SettingsHandler struct {
	panel *PanelHandler
}

func NewSettingsHandler(panel *PanelHandler) *SettingsHandler {
	return &SettingsHandler{panel: panel}
}

// ShowSettings renders the panel with the settings drawer open
func (h *SettingsHandler) ShowSettings(c *fiber.Ctx) error {
	ctrl := h.panel.controller(c)
	return h.panel.render(c, ctrl, true)
}

// UpdateSettings replaces all settings at once. Changes apply to the live
// panel immediately.
func (h *SettingsHandler) UpdateSettings(c *fiber.Ctx) error {
	var form settingsForm
	if err := c.BodyParser(&form); err != nil {
		return utils.BadRequestError("Invalid settings", err)
	}

	ctrl := h.panel.controller(c)
	applied := ctrl.ReplaceSettings(form.settings())
	utils.Log.Debug("Settings updated: theme=%s accent=%s count=%d", applied.Theme, applied.AccentColor, applied.SuggestionCount)

	if form.Language != "" && utils.IsSupportedLanguage(form.Language) {
		c.Cookie(&fiber.Cookie{
			Name:  "lang",
			Value: form.Language,
			Path:  "/",
		})
	}

	return h.panel.respond(c, ctrl, "/settings")
}
