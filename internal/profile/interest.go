package profile

import "strings"

// Interest values double as research and document topic tags.
const (
	Technology   = "Technology"
	Healthcare   = "Healthcare"
	Finance      = "Finance"
	Construction = "Construction"
	Education    = "Education"
	Hospitality  = "Hospitality"
	Law          = "Law"
	Arts         = "Arts"
)

const (
	MaxInterests       = 3
	MaxTopics          = 3
	MaxAboutLen        = 300
	MaxOrganizationLen = 40
	MaxDocumentDescLen = 150
	MinHandleLen       = 3
	MaxHandleLen       = 32
	MaxFullNameLen     = 80
	interestsSeparator = ", "
)

var Interests = []string{Technology, Healthcare, Finance, Construction, Education, Hospitality, Law, Arts}

// ParseInterest matches s against the enumeration ignoring case and
// surrounding space, returning the canonical spelling.
func ParseInterest(s string) (string, bool) {
	s = strings.TrimSpace(s)
	for _, i := range Interests {
		if strings.EqualFold(i, s) {
			return i, true
		}
	}
	return "", false
}

func IsInterest(s string) bool {
	for _, i := range Interests {
		if i == s {
			return true
		}
	}
	return false
}

// JoinInterests produces the stored form, e.g. "Law, Arts".
func JoinInterests(list []string) string {
	return strings.Join(list, interestsSeparator)
}

// SplitInterests parses the stored form. Empty input gives nil.
func SplitInterests(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
