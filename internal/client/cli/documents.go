package cli

import (
	"context"
	"fmt"

	"github.com/resdex/resdex/internal/client/services"
	"github.com/resdex/resdex/internal/common"
	"github.com/resdex/resdex/internal/profile"
)

// AddDocument records the metadata of an uploaded document.
func (a *App) AddDocument(ctx context.Context) error {
	return a.edit(ctx, "add document", func(ps *services.ProfileSession) error {
		url, err := GetSimpleText(a.reader, "Document URL", a.out)
		if err != nil {
			return err
		}
		title, err := GetSimpleText(a.reader, "Title", a.out)
		if err != nil {
			return err
		}
		desc, err := GetSimpleText(a.reader, fmt.Sprintf("Description (max %d chars)", profile.MaxDocumentDescLen), a.out)
		if err != nil {
			return err
		}
		topics, err := GetInterests(a.reader, "Topics", a.out)
		if err != nil {
			return err
		}

		if err := waitHydrated(ctx, ps); err != nil {
			return err
		}
		return ps.AddDocument(ctx, profile.DocumentEntry{URL: url, Title: title, Description: desc, Topics: canonicalTopics(topics)})
	})
}

// activeDocument waits for hydration and returns the entry under the carousel.
func activeDocument(ctx context.Context, ps *services.ProfileSession) (*profile.DocumentEntry, error) {
	if err := waitHydrated(ctx, ps); err != nil {
		return nil, err
	}
	_, d := ps.Active()
	if d == nil {
		return nil, fmt.Errorf("document: %w", common.ErrorNotFound)
	}
	return d, nil
}

// EditDocument edits the active document. Empty answers keep the current values.
func (a *App) EditDocument(ctx context.Context) error {
	return a.edit(ctx, "edit document", func(ps *services.ProfileSession) error {
		d, err := activeDocument(ctx, ps)
		if err != nil {
			return err
		}

		title, err := GetTextOr(a.reader, "Title", d.Title, a.out)
		if err != nil {
			return err
		}
		desc, err := GetTextOr(a.reader, "Description", d.Description, a.out)
		if err != nil {
			return err
		}
		topics, err := GetInterests(a.reader, "Topics (empty keeps current)", a.out)
		if err != nil {
			return err
		}
		if len(topics) == 0 {
			topics = d.Topics
		}

		return ps.EditDocument(ctx, d.URL, title, desc, canonicalTopics(topics))
	})
}

// RemoveDocument deletes the active document after confirmation.
func (a *App) RemoveDocument(ctx context.Context) error {
	return a.edit(ctx, "remove document", func(ps *services.ProfileSession) error {
		d, err := activeDocument(ctx, ps)
		if err != nil {
			return err
		}
		if !confirm(a.reader, fmt.Sprintf("Remove %q?", d.Title), a.out) {
			return errCancelled
		}
		return ps.RemoveDocument(ctx, d.URL)
	})
}

// canonicalTopics fixes the spelling of known topics. Unknown ones are kept
// so validation can name them.
func canonicalTopics(list []string) []string {
	out := make([]string, 0, len(list))
	for _, s := range list {
		if t, ok := profile.ParseInterest(s); ok {
			s = t
		}
		out = append(out, s)
	}
	return out
}
