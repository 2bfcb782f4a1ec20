package profile

import "time"

type Collaborator struct {
	Name           string `json:"name"`
	ProfilePicture string `json:"profilePicture,omitempty"`
}

// ResearchEntry is read-only for this service.
type ResearchEntry struct {
	Title         string         `json:"title"`
	Description   string         `json:"description"`
	Topics        []string       `json:"topics,omitempty"`
	Collaborators []Collaborator `json:"collaborators,omitempty"`
	CreatedAt     time.Time      `json:"createdAt"`
}

// DocumentEntry is an uploaded document. URL identifies the entry.
type DocumentEntry struct {
	URL         string   `json:"url" validate:"required,url"`
	Title       string   `json:"title"`
	Description string   `json:"description" validate:"max=150"`
	Topics      []string `json:"topics,omitempty" validate:"max=3,unique,dive,interest"`
}

type UserProfile struct {
	ID             string          `json:"uid"`
	Username       string          `json:"username"`
	FullName       string          `json:"fullName"`
	About          string          `json:"about"`
	Organization   string          `json:"organization"`
	Interests      []string        `json:"interests,omitempty"`
	ProfilePicture string          `json:"profilePicture,omitempty"`
	Contributions  int             `json:"contributions"`
	Research       []ResearchEntry `json:"research,omitempty"`
	Documents      []DocumentEntry `json:"pdfs,omitempty"`
}

// Clone returns a deep copy, so callers can mutate the result freely.
func (p *UserProfile) Clone() *UserProfile {
	if p == nil {
		return nil
	}
	c := *p
	c.Interests = append([]string(nil), p.Interests...)
	c.Research = make([]ResearchEntry, len(p.Research))
	for i, r := range p.Research {
		r.Topics = append([]string(nil), r.Topics...)
		r.Collaborators = append([]Collaborator(nil), r.Collaborators...)
		c.Research[i] = r
	}
	c.Documents = CloneDocuments(p.Documents)
	if p.Research == nil {
		c.Research = nil
	}
	return &c
}

func CloneDocuments(docs []DocumentEntry) []DocumentEntry {
	if docs == nil {
		return nil
	}
	out := make([]DocumentEntry, len(docs))
	for i, d := range docs {
		d.Topics = append([]string(nil), d.Topics...)
		out[i] = d
	}
	return out
}

// Patch is a point update of selected profile fields. Nil fields are left
// untouched.
type Patch struct {
	About          *string          `json:"about,omitempty" validate:"omitempty,max=300"`
	Organization   *string          `json:"organization,omitempty" validate:"omitempty,max=40"`
	Interests      *[]string        `json:"interests,omitempty" validate:"omitempty,max=3,unique,dive,interest"`
	ProfilePicture *string          `json:"profilePicture,omitempty" validate:"omitempty,url"`
	Documents      *[]DocumentEntry `json:"pdfs,omitempty" validate:"omitempty,dive"`
}

func (p Patch) Empty() bool {
	return p.About == nil && p.Organization == nil && p.Interests == nil &&
		p.ProfilePicture == nil && p.Documents == nil
}

// Apply copies the set fields of patch into p.
func (p *UserProfile) Apply(patch Patch) {
	if patch.About != nil {
		p.About = *patch.About
	}
	if patch.Organization != nil {
		p.Organization = *patch.Organization
	}
	if patch.Interests != nil {
		p.Interests = append([]string(nil), (*patch.Interests)...)
	}
	if patch.ProfilePicture != nil {
		p.ProfilePicture = *patch.ProfilePicture
	}
	if patch.Documents != nil {
		p.Documents = CloneDocuments(*patch.Documents)
	}
}
