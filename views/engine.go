package views

import (
	"strings"
	"time"

	"mailassist/utils"

	"github.com/gofiber/template/html/v2"
	"github.com/nicksnyder/go-i18n/v2/i18n"
)

// NewEngine creates the template engine with the panel's helper functions
func NewEngine(dir string, reload bool) *html.Engine {
	engine := html.New(dir, ".html")

	engine.AddFunc("lower", strings.ToLower)
	engine.AddFunc("upper", strings.ToUpper)
	engine.AddFunc("trim", strings.TrimSpace)

	// i18n helpers take the request localizer explicitly
	engine.AddFunc("t", func(l *i18n.Localizer, messageID string) string {
		return utils.T(l, messageID)
	})
	engine.AddFunc("tWithData", func(l *i18n.Localizer, messageID string, data map[string]interface{}) string {
		return utils.TWithData(l, messageID, data)
	})
	engine.AddFunc("tPlural", func(l *i18n.Localizer, messageID string, count int) string {
		return utils.TPlural(l, messageID, count)
	})

	engine.AddFunc("formatDate", func(t time.Time) string {
		return t.Format("Jan 02, 2006 15:04")
	})
	engine.AddFunc("add", func(a, b int) int { return a + b })

	engine.Reload(reload)
	return engine
}
