package profile

import "strings"

// Mode selects what a search query is matched against.
type Mode int

const (
	ModeUsers Mode = iota
	ModeProjects
)

func (m Mode) String() string {
	if m == ModeProjects {
		return "projects"
	}
	return "users"
}

// ParseMode accepts "users" or "projects" in any case.
func ParseMode(s string) (Mode, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "users":
		return ModeUsers, true
	case "projects":
		return ModeProjects, true
	}
	return ModeUsers, false
}

// ProjectMatch pairs a research entry with the profile that owns it.
type ProjectMatch struct {
	Owner UserProfile
	Entry ResearchEntry
}

// Results holds the output of one filter run. Only the slice matching the
// mode is populated.
type Results struct {
	Mode     Mode
	Query    string
	Users    []UserProfile
	Projects []ProjectMatch
}

func (r Results) Len() int {
	if r.Mode == ModeProjects {
		return len(r.Projects)
	}
	return len(r.Users)
}

// Filter matches query against snapshot as a case-insensitive substring.
// A blank query yields empty results. Surrounding space is part of the query.
func Filter(mode Mode, snapshot []UserProfile, query string) Results {
	res := Results{Mode: mode, Query: query}
	if strings.TrimSpace(query) == "" {
		return res
	}
	q := strings.ToLower(query)
	if mode == ModeProjects {
		res.Projects = matchProjects(snapshot, q)
	} else {
		res.Users = matchUsers(snapshot, q)
	}
	return res
}

func contains(s, q string) bool {
	return strings.Contains(strings.ToLower(s), q)
}

func matchUsers(snapshot []UserProfile, q string) []UserProfile {
	var out []UserProfile
	for _, u := range snapshot {
		if contains(u.Username, q) || contains(u.FullName, q) {
			out = append(out, u)
		}
	}
	return out
}

func matchProjects(snapshot []UserProfile, q string) []ProjectMatch {
	var out []ProjectMatch
	for _, u := range snapshot {
		for _, r := range u.Research {
			if entryMatches(r, q) {
				out = append(out, ProjectMatch{Owner: u, Entry: r})
			}
		}
	}
	return out
}

func entryMatches(r ResearchEntry, q string) bool {
	if contains(r.Title, q) || contains(r.Description, q) {
		return true
	}
	for _, t := range r.Topics {
		if contains(t, q) {
			return true
		}
	}
	return false
}
