package models

// Tone is a named rewriting style for reply suggestions
type Tone string

const DefaultTone Tone = "Default"

// Tones is the fixed set offered by the instruction editor, in display order
var Tones = []Tone{
	DefaultTone,
	"More professional",
	"More technical",
	"More accessible",
	"More polite",
	"More formal",
	"More informal",
	"Grammatically correct",
	"Easier to read",
	"More passionate",
	"Less emotional",
	"More sarcastic",
	"As bullet points",
	"Shorter",
	"Longer",
	"More persuasive",
	"More direct",
}

// ParseTone returns the tone with the exact label s
func ParseTone(s string) (Tone, bool) {
	for _, t := range Tones {
		if string(t) == s {
			return t, true
		}
	}
	return "", false
}
