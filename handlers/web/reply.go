package web

import (
	"fmt"
	"strings"
	"time"

	"mailassist/models"
	"mailassist/utils"

	"github.com/gofiber/fiber/v2"
)

// ReplyHandler prepares reply drafts from suggestions
type ReplyHandler struct {
	panel *PanelHandler
}

func NewReplyHandler(panel *PanelHandler) *ReplyHandler {
	return &ReplyHandler{panel: panel}
}

// HandleSuggestionReply returns a reply draft that uses the suggestion at
// :index as its body
func (h *ReplyHandler) HandleSuggestionReply(c *fiber.Ctx) error {
	index, err := c.ParamsInt("index")
	if err != nil {
		return utils.BadRequestError("Invalid suggestion index", err)
	}

	snap := h.panel.controller(c).Snapshot()
	if snap.Email == nil {
		return utils.NotFoundError("No email loaded", nil)
	}
	if index < 0 || index >= len(snap.Suggestions) {
		return utils.NotFoundError("Suggestion not found", nil).WithContext("index", index)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    prepareReplyData(snap.Email, snap.Suggestions[index]),
	})
}

// prepareReplyData builds a reply to email with text above the quote
func prepareReplyData(email *models.Email, text string) map[string]interface{} {
	subject := "Re: " + utils.NormalizeSubject(email.Subject)

	return map[string]interface{}{
		"to":      email.Sender.String(),
		"cc":      "",
		"subject": subject,
		"body":    strings.TrimSpace(text) + formatQuotedBody(email),
		"mode":    "reply",
	}
}

// formatQuotedBody formats the email body with quote marks
func formatQuotedBody(email *models.Email) string {
	var sb strings.Builder

	if email.Date.IsZero() {
		sb.WriteString(fmt.Sprintf("\n\n%s wrote:\n", email.Sender.String()))
	} else {
		sb.WriteString(fmt.Sprintf("\n\nOn %s, %s wrote:\n",
			email.Date.Format(time.RFC1123), email.Sender.String()))
	}

	for _, line := range strings.Split(utils.PlainText(email.Body), "\n") {
		sb.WriteString("> " + line + "\n")
	}

	return sb.String()
}
