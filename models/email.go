package models

import "time"

// Contact is a display name and address pair
type Contact struct {
	Name  string `json:"name" toml:"name"`
	Email string `json:"email" toml:"email"`
}

// String formats the contact as `Name <address>`
func (c Contact) String() string {
	if c.Name == "" {
		return c.Email
	}
	return c.Name + " <" + c.Email + ">"
}

// Email represents the message shown in the assistant panel
type Email struct {
	ID        string    `json:"id" toml:"id"`
	Sender    Contact   `json:"sender" toml:"sender"`
	Recipient Contact   `json:"recipient" toml:"recipient"`
	Subject   string    `json:"subject" toml:"subject"`
	Body      string    `json:"body" toml:"body"`
	Date      time.Time `json:"date" toml:"date"`

	// Thread holds the earlier messages of the conversation, oldest first
	Thread []Email `json:"thread" toml:"thread"`
}
