package api

import (
	"mailassist/utils"

	"github.com/gofiber/fiber/v2"
)

// clientMessages are the strings panel.js needs
var clientMessages = []string{
	"status_loading",
	"status_reconnecting",
	"status_copied",
	"action_copy",
	"action_use",
	"message_error",
	"error_network",
	"error_404",
	"error_500",
}

// I18nHandler handles i18n-related requests
type I18nHandler struct{}

// GetTranslations returns translations for the client-side JavaScript
func (h *I18nHandler) GetTranslations(c *fiber.Ctx) error {
	lang := c.Params("lang")
	if !utils.IsSupportedLanguage(lang) {
		lang = "en"
	}

	localizer := utils.GetLocalizer(lang)

	translations := make(map[string]string, len(clientMessages))
	for _, id := range clientMessages {
		translations[id] = utils.T(localizer, id)
	}

	return c.JSON(translations)
}
