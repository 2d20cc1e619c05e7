package services

import (
	"context"
	"fmt"
	"time"

	"mailassist/models"

	"github.com/BurntSushi/toml"
	"github.com/google/uuid"
)

// EmailSource supplies the email shown in the panel
type EmailSource interface {
	CurrentEmail(ctx context.Context) (*models.Email, error)
}

// MockEmailSource always returns the same email
type MockEmailSource struct {
	email models.Email
}

// NewMockEmailSource serves the built-in sample email
func NewMockEmailSource() *MockEmailSource {
	return &MockEmailSource{email: sampleEmail()}
}

// LoadMockEmailSource reads the email from a TOML file. Messages without
// an id are given a random one.
func LoadMockEmailSource(path string) (*MockEmailSource, error) {
	var email models.Email
	if _, err := toml.DecodeFile(path, &email); err != nil {
		return nil, fmt.Errorf("failed to load mock email %s: %w", path, err)
	}
	if email.Subject == "" && email.Body == "" {
		return nil, fmt.Errorf("mock email %s has neither subject nor body", path)
	}
	assignIDs(&email)
	return &MockEmailSource{email: email}, nil
}

// CurrentEmail returns a copy of the configured email
func (s *MockEmailSource) CurrentEmail(ctx context.Context) (*models.Email, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	email := copyEmail(s.email)
	return &email, nil
}

func assignIDs(e *models.Email) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	for i := range e.Thread {
		assignIDs(&e.Thread[i])
	}
}

func copyEmail(e models.Email) models.Email {
	out := e
	if e.Thread != nil {
		out.Thread = make([]models.Email, len(e.Thread))
		for i, t := range e.Thread {
			out.Thread[i] = copyEmail(t)
		}
	}
	return out
}

func sampleEmail() models.Email {
	me := models.Contact{Name: "Alex Chen", Email: "alex.chen@contoso.com"}
	priya := models.Contact{Name: "Priya Raman", Email: "priya.raman@fabrikam.com"}

	return models.Email{
		ID:        "AAMkAGI2TG93AAA=",
		Sender:    priya,
		Recipient: me,
		Subject:   "Re: Q3 rollout timeline",
		Date:      time.Date(2024, time.September, 12, 9, 41, 0, 0, time.UTC),
		Body: `Hi Alex,

Thanks for the update on Tuesday. Our leadership team reviewed the revised plan and we are
concerned that moving the pilot to October leaves us no buffer before the holiday freeze.

Could you confirm by Friday whether the integration team can keep the original
September 30 date? If not, we need a written risk assessment we can share internally.

Also, please send over the updated pricing sheet. The one attached to the contract still
lists the old per-seat rate.

Best,
Priya`,
		Thread: []models.Email{
			{
				ID:        "AAMkAGI2TG92AAA=",
				Sender:    me,
				Recipient: priya,
				Subject:   "Q3 rollout timeline",
				Date:      time.Date(2024, time.September, 10, 16, 5, 0, 0, time.UTC),
				Body: `Hi Priya,

Quick heads-up: the data migration is taking longer than estimated, so we are proposing
to shift the pilot start from September 30 to October 14. I'll share a detailed plan soon.

Alex`,
			},
		},
	}
}
