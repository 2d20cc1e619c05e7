package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"text/template"

	"mailassist/llm"
	"mailassist/models"
	"mailassist/utils"
)

var (
	ErrInvalidInput      = errors.New("invalid input provided")
	ErrMalformedResponse = errors.New("malformed model response")
)

// AnalysisService produces the security, sentiment and follow-up bundle
type AnalysisService interface {
	Analyze(ctx context.Context, email *models.Email) (*models.FullEmailAnalysis, error)
}

// SuggestionService drafts reply suggestions
type SuggestionService interface {
	GenerateSuggestions(ctx context.Context, email *models.Email, tone models.Tone, instruction string, count int, systemInstruction string) ([]string, error)
}

const baseSystemPrompt = `You are an email assistant embedded in a mail client. You read the message the user
is looking at and help them triage and answer it. Be accurate and never invent facts that
are not in the email.`

var promptTemplates = template.Must(template.New("prompts").Parse(`
{{- define "email" -}}
From: {{.Email.Sender}}
To: {{.Email.Recipient}}
Subject: {{.Email.Subject}}
{{- if not .Email.Date.IsZero}}
Date: {{.Email.Date.Format "Mon, 02 Jan 2006 15:04 MST"}}{{end}}

{{.Body}}
{{- if .Thread}}

Earlier messages in this thread, oldest first:
{{- range .Thread}}
---
From: {{.From}}
Subject: {{.Subject}}

{{.Body}}
{{- end}}
{{- end}}
{{- end -}}

{{- define "analysis" -}}
Analyze the email below. Classify its security (spam, phishing, malware), describe the
sender's sentiment, the urgency and the intent, list the key points and the concrete next
actions for the recipient, and decide whether the conversation needs a follow-up or is
already closed.

Return a JSON object with exactly this shape:
{
  "security": {"status": {{range $i, $s := .Statuses}}{{if $i}} | {{end}}"{{$s}}"{{end}}, "details": string},
  "sentiment": string,
  "urgency": string,
  "intent": string,
  "keyPoints": [string],
  "nextActions": [string],
  "followUp": {"requiresFollowUp": boolean, "isClosed": boolean, "reason": string, "suggestedReminder": string or null}
}

EMAIL:
{{template "email" .}}
{{- end -}}

{{- define "suggestions" -}}
Write {{.Count}} distinct reply suggestions to the email below. Write them as {{.Email.Recipient.Name}},
ready to send, without a subject line.
{{- if .Tone}}
Apply this style to every reply: {{.Tone}}.
{{- end}}
{{- if .Instruction}}
Follow this instruction from the user: {{.Instruction}}
{{- end}}

Return a JSON object of the form {"suggestions": [string, ...]} with exactly {{.Count}} entries.

EMAIL:
{{template "email" .}}
{{- end -}}
`))

type threadEntry struct {
	From    string
	Subject string
	Body    string
}

type promptData struct {
	Email       *models.Email
	Body        string
	Thread      []threadEntry
	Tone        string
	Instruction string
	Count       int
	Statuses    []models.SecurityStatus
}

// Assistant implements AnalysisService and SuggestionService on top of an LLM
type Assistant struct {
	provider     llm.Provider
	maxBodyChars int
	log          *utils.Logger
}

// NewAssistant creates the LLM-backed assistant. Bodies longer than
// maxBodyChars runes are truncated before prompting.
func NewAssistant(provider llm.Provider, maxBodyChars int) *Assistant {
	if maxBodyChars <= 0 {
		maxBodyChars = 8000
	}
	return &Assistant{
		provider:     provider,
		maxBodyChars: maxBodyChars,
		log:          utils.Log.WithField("component", "assistant"),
	}
}

type rawAnalysis struct {
	Security struct {
		Status  string `json:"status"`
		Details string `json:"details"`
	} `json:"security"`
	Sentiment   string                  `json:"sentiment"`
	Urgency     string                  `json:"urgency"`
	Intent      string                  `json:"intent"`
	KeyPoints   []string                `json:"keyPoints"`
	NextActions []string                `json:"nextActions"`
	FollowUp    models.FollowUpAnalysis `json:"followUp"`
}

// Analyze asks the model for the full analysis bundle
func (a *Assistant) Analyze(ctx context.Context, email *models.Email) (*models.FullEmailAnalysis, error) {
	if a.provider == nil {
		return nil, llm.ErrProviderUnavailable
	}
	if email == nil {
		return nil, fmt.Errorf("%w: email is nil", ErrInvalidInput)
	}

	prompt, err := a.render("analysis", a.promptData(email))
	if err != nil {
		return nil, err
	}

	out, err := a.provider.Generate(ctx, llm.Request{System: baseSystemPrompt, Prompt: prompt, JSON: true})
	if err != nil {
		return nil, fmt.Errorf("failed to analyze email: %w", err)
	}

	var raw rawAnalysis
	if err := decodeJSON(out, &raw); err != nil {
		return nil, err
	}

	status, ok := models.ParseSecurityStatus(raw.Security.Status)
	if !ok {
		return nil, fmt.Errorf("%w: unknown security status %q", ErrMalformedResponse, raw.Security.Status)
	}
	if reminder := raw.FollowUp.SuggestedReminder; reminder != nil && strings.TrimSpace(*reminder) == "" {
		raw.FollowUp.SuggestedReminder = nil
	}

	a.log.WithFields(map[string]interface{}{"email_id": email.ID, "status": status}).Debug("analysis complete")

	return &models.FullEmailAnalysis{
		Security:    models.SecurityAnalysis{Status: status, Details: raw.Security.Details},
		Sentiment:   raw.Sentiment,
		Urgency:     raw.Urgency,
		Intent:      raw.Intent,
		KeyPoints:   nonNil(raw.KeyPoints),
		NextActions: nonNil(raw.NextActions),
		FollowUp:    raw.FollowUp,
	}, nil
}

// GenerateSuggestions asks the model for count reply drafts. The user's
// system instruction is appended to the built-in system prompt.
func (a *Assistant) GenerateSuggestions(ctx context.Context, email *models.Email, tone models.Tone, instruction string, count int, systemInstruction string) ([]string, error) {
	if a.provider == nil {
		return nil, llm.ErrProviderUnavailable
	}
	if email == nil {
		return nil, fmt.Errorf("%w: email is nil", ErrInvalidInput)
	}
	if count < 1 {
		return nil, fmt.Errorf("%w: count must be positive, got %d", ErrInvalidInput, count)
	}
	if _, ok := models.ParseTone(string(tone)); !ok {
		return nil, fmt.Errorf("%w: unknown tone %q", ErrInvalidInput, tone)
	}

	data := a.promptData(email)
	data.Count = count
	data.Instruction = strings.TrimSpace(instruction)
	if tone != models.DefaultTone {
		data.Tone = string(tone)
	}

	prompt, err := a.render("suggestions", data)
	if err != nil {
		return nil, err
	}

	system := baseSystemPrompt
	if s := strings.TrimSpace(systemInstruction); s != "" {
		system += "\n\nThe user has configured these standing instructions:\n" + s
	}

	out, err := a.provider.Generate(ctx, llm.Request{System: system, Prompt: prompt, JSON: true})
	if err != nil {
		return nil, fmt.Errorf("failed to generate suggestions: %w", err)
	}

	var resp struct {
		Suggestions []string `json:"suggestions"`
	}
	if err := decodeJSON(out, &resp); err != nil {
		return nil, err
	}

	suggestions := make([]string, 0, count)
	for _, s := range resp.Suggestions {
		if s = strings.TrimSpace(s); s != "" {
			suggestions = append(suggestions, s)
		}
		if len(suggestions) == count {
			break
		}
	}
	if len(suggestions) == 0 {
		return nil, fmt.Errorf("%w: no suggestions returned", ErrMalformedResponse)
	}
	return suggestions, nil
}

func (a *Assistant) promptData(email *models.Email) promptData {
	data := promptData{
		Email:    email,
		Body:     a.truncate(utils.PlainText(email.Body)),
		Statuses: models.SecurityStatuses,
	}
	for _, t := range email.Thread {
		data.Thread = append(data.Thread, threadEntry{
			From:    t.Sender.String(),
			Subject: t.Subject,
			Body:    a.truncate(utils.PlainText(t.Body)),
		})
	}
	return data
}

func (a *Assistant) truncate(s string) string {
	r := []rune(s)
	if len(r) <= a.maxBodyChars {
		return s
	}
	return string(r[:a.maxBodyChars])
}

func (a *Assistant) render(name string, data promptData) (string, error) {
	var sb strings.Builder
	if err := promptTemplates.ExecuteTemplate(&sb, name, data); err != nil {
		return "", fmt.Errorf("failed to build %s prompt: %w", name, err)
	}
	return sb.String(), nil
}

// decodeJSON tolerates markdown code fences and chatter around the object
func decodeJSON(out string, v interface{}) error {
	start := strings.Index(out, "{")
	end := strings.LastIndex(out, "}")
	if start < 0 || end < start {
		return fmt.Errorf("%w: no JSON object in output", ErrMalformedResponse)
	}
	if err := json.Unmarshal([]byte(out[start:end+1]), v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
