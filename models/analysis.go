package models

import "strings"

// SecurityStatus is the coarse trust classification of an email
type SecurityStatus string

const (
	SecuritySafe     SecurityStatus = "Safe"
	SecuritySpam     SecurityStatus = "Spam"
	SecurityPhishing SecurityStatus = "Phishing"
	SecurityVirus    SecurityStatus = "Virus Detected"
)

// SecurityStatuses lists every known status in display order
var SecurityStatuses = []SecurityStatus{SecuritySafe, SecuritySpam, SecurityPhishing, SecurityVirus}

// ParseSecurityStatus matches s case-insensitively against the known statuses.
// "virus" and "virusdetected" are accepted for SecurityVirus.
func ParseSecurityStatus(s string) (SecurityStatus, bool) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer("_", "", " ", "", "-", "").Replace(norm)
	switch norm {
	case "safe":
		return SecuritySafe, true
	case "spam":
		return SecuritySpam, true
	case "phishing":
		return SecurityPhishing, true
	case "virus", "virusdetected":
		return SecurityVirus, true
	}
	return "", false
}

// IsThreat reports whether the status should be shown as a warning
func (s SecurityStatus) IsThreat() bool {
	return s != SecuritySafe
}

type SecurityAnalysis struct {
	Status  SecurityStatus `json:"status"`
	Details string         `json:"details"`
}

// UnknownSecurity is shown when the email could not be analysed
func UnknownSecurity() *SecurityAnalysis {
	return &SecurityAnalysis{Status: SecuritySafe, Details: "Could not perform analysis."}
}

type EmailAnalysisResult struct {
	Sentiment   string   `json:"sentiment"`
	Urgency     string   `json:"urgency"`
	Intent      string   `json:"intent"`
	KeyPoints   []string `json:"keyPoints"`
	NextActions []string `json:"nextActions"`
}

type FollowUpAnalysis struct {
	RequiresFollowUp  bool    `json:"requiresFollowUp"`
	IsClosed          bool    `json:"isClosed"`
	Reason            string  `json:"reason"`
	SuggestedReminder *string `json:"suggestedReminder"`
}

// FullEmailAnalysis is the combined bundle returned by the analysis service
type FullEmailAnalysis struct {
	Security    SecurityAnalysis `json:"security"`
	Sentiment   string           `json:"sentiment"`
	Urgency     string           `json:"urgency"`
	Intent      string           `json:"intent"`
	KeyPoints   []string         `json:"keyPoints"`
	NextActions []string         `json:"nextActions"`
	FollowUp    FollowUpAnalysis `json:"followUp"`
}

// Result extracts the sentiment/urgency/intent part of the bundle
func (a *FullEmailAnalysis) Result() EmailAnalysisResult {
	return EmailAnalysisResult{
		Sentiment:   a.Sentiment,
		Urgency:     a.Urgency,
		Intent:      a.Intent,
		KeyPoints:   a.KeyPoints,
		NextActions: a.NextActions,
	}
}
