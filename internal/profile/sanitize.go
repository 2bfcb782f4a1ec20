package profile

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// Sanitizer normalizes free text the way it is stored: markup stripped,
// entities decoded, surrounding space trimmed.
type Sanitizer struct {
	policy *bluemonday.Policy
}

func NewSanitizer() *Sanitizer {
	return &Sanitizer{policy: bluemonday.StrictPolicy()}
}

func (s *Sanitizer) Clean(text string) string {
	return strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(text)))
}

// Patch returns a copy of p with its free-text fields cleaned.
func (s *Sanitizer) Patch(p Patch) Patch {
	if p.About != nil {
		v := s.Clean(*p.About)
		p.About = &v
	}
	if p.Organization != nil {
		v := s.Clean(*p.Organization)
		p.Organization = &v
	}
	if p.Documents != nil {
		docs := CloneDocuments(*p.Documents)
		for i := range docs {
			docs[i].Title = s.Clean(docs[i].Title)
			docs[i].Description = s.Clean(docs[i].Description)
		}
		p.Documents = &docs
	}
	return p
}
