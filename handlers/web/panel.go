package web

import (
	"context"
	"errors"
	"time"

	"mailassist/controller"
	"mailassist/handlers/api"
	"mailassist/middleware"
	"mailassist/models"
	"mailassist/utils"
	"mailassist/views"

	"github.com/gofiber/fiber/v2"
)

// Dispatcher runs background work started by a request
type Dispatcher func(task func())

// Background runs each task on its own goroutine
func Background(task func()) {
	go task()
}

// PanelHandler serves the assistant panel and its actions. Calls to the
// AI services run through the dispatcher so requests return immediately;
// pages refresh when the controller reports a change.
type PanelHandler struct {
	registry *controller.Registry
	dispatch Dispatcher
	timeout  time.Duration
}

// NewPanelHandler creates a panel handler. timeout bounds each background
// task; zero means no limit.
func NewPanelHandler(registry *controller.Registry, dispatch Dispatcher, timeout time.Duration) *PanelHandler {
	if dispatch == nil {
		dispatch = Background
	}
	return &PanelHandler{
		registry: registry,
		dispatch: dispatch,
		timeout:  timeout,
	}
}

func (h *PanelHandler) controller(c *fiber.Ctx) *controller.Controller {
	ctrl, _ := h.registry.Get(middleware.SessionID(c))
	return ctrl
}

func (h *PanelHandler) run(task func(ctx context.Context)) {
	h.dispatch(func() {
		ctx := context.Background()
		if h.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, h.timeout)
			defer cancel()
		}
		task(ctx)
	})
}

// ShowPanel renders the panel, starting the initial load on the session's
// first visit
func (h *PanelHandler) ShowPanel(c *fiber.Ctx) error {
	ctrl := h.controller(c)
	if ctrl.BeginInitialLoad() {
		h.run(ctrl.InitialLoad)
	}

	c.Set("Accept-CH", "Sec-CH-Prefers-Color-Scheme")
	c.Vary("Sec-CH-Prefers-Color-Scheme")
	return h.render(c, ctrl, false)
}

func (h *PanelHandler) render(c *fiber.Ctx, ctrl *controller.Controller, settingsOpen bool) error {
	panel := views.BuildPanel(ctrl.Snapshot(), api.PlatformTheme(c))
	panel.SettingsOpen = settingsOpen

	return c.Render("panel", fiber.Map{
		"Panel":     panel,
		"Localizer": middleware.Localizer(c),
		"Lang":      middleware.Lang(c),
		"Languages": utils.SupportedLanguages,
		"CSRFToken": middleware.CSRFToken(c),
	})
}

// respond answers an action: JSON state for scripts, a redirect back to
// the panel for plain form posts
func (h *PanelHandler) respond(c *fiber.Ctx, ctrl *controller.Controller, target string) error {
	if middleware.IsAPIRequest(c) || c.Get(fiber.HeaderAccept) == fiber.MIMEApplicationJSON {
		return c.JSON(api.NewStateResponse(ctrl.Snapshot(), api.PlatformTheme(c)))
	}
	return c.Redirect(target, fiber.StatusSeeOther)
}

// HandleInstructions stores the editor's tone and instruction and requests
// new suggestions
func (h *PanelHandler) HandleInstructions(c *fiber.Ctx) error {
	ctrl := h.controller(c)

	if tone := c.FormValue("tone"); tone != "" {
		if err := ctrl.SetTone(models.Tone(tone)); err != nil {
			return utils.BadRequestError("Unknown tone", err)
		}
	}
	ctrl.SetInstruction(c.FormValue("instruction"))

	if ctrl.Snapshot().Email == nil {
		return h.respond(c, ctrl, "/")
	}

	ctrl.BeginRegenerate()
	h.run(func(ctx context.Context) {
		if err := ctrl.ApplyInstructions(ctx); err != nil && !errors.Is(err, controller.ErrNoEmail) {
			utils.Log.Debug("Apply instructions failed: %v", err)
		}
	})

	return h.respond(c, ctrl, "/")
}

// HandleBack restores the previous suggestions
func (h *PanelHandler) HandleBack(c *fiber.Ctx) error {
	ctrl := h.controller(c)
	ctrl.GoBack()
	return h.respond(c, ctrl, "/")
}

// HandleThemeToggle flips the effective theme
func (h *PanelHandler) HandleThemeToggle(c *fiber.Ctx) error {
	ctrl := h.controller(c)
	ctrl.ToggleTheme(api.PlatformTheme(c))
	return h.respond(c, ctrl, "/")
}

// HandleReload runs the initial load again
func (h *PanelHandler) HandleReload(c *fiber.Ctx) error {
	ctrl := h.controller(c)
	ctrl.BeginReload()
	h.run(ctrl.InitialLoad)
	return h.respond(c, ctrl, "/")
}
