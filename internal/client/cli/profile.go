package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/resdex/resdex/internal/client/services"
	"github.com/resdex/resdex/internal/common"
	"github.com/resdex/resdex/internal/profile"
)

func (a *App) requireSession() (*services.ProfileSession, error) {
	ps := a.currentSession()
	if ps == nil {
		printlnFn(describeError(errNoProfile))
		return nil, errNoProfile
	}
	return ps, nil
}

// Profile opens handle, replacing the previously open profile. Documents
// keep loading in the background; see Docs.
func (a *App) Profile(ctx context.Context, handle string) error {
	ps, err := a.profiles.Open(ctx, handle)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			printlnFn("User not found.")
		} else {
			printlnFn(describeError(err))
		}
		return err
	}
	a.replaceSession(ps)

	printProfile(ps.Profile(), ps.IsOwner())
	return nil
}

func printProfile(p *profile.UserProfile, owner bool) {
	printlnFn(fmt.Sprintf("@%s  %s", p.Username, p.FullName))
	if p.Organization != "" {
		printlnFn("Organization:", p.Organization)
	}
	if p.About != "" {
		printlnFn("About:", p.About)
	}
	if len(p.Interests) > 0 {
		printlnFn("Interests:", profile.JoinInterests(p.Interests))
	}
	if p.ProfilePicture != "" {
		printlnFn("Picture:", p.ProfilePicture)
	}
	printlnFn("Contributions:", p.Contributions)
	for _, r := range p.Research {
		printlnFn(fmt.Sprintf("  * %s [%s]", r.Title, strings.Join(r.Topics, ", ")))
	}
	if owner {
		printlnFn("(this is your profile)")
	}
}

// edit runs fn against the open profile and reports the outcome.
func (a *App) edit(ctx context.Context, op string, fn func(ps *services.ProfileSession) error) error {
	ps, err := a.requireSession()
	if err != nil {
		return err
	}
	if !ps.IsOwner() {
		printlnFn(describeError(common.ErrorPermissionDenied))
		return common.ErrorPermissionDenied
	}

	if err := fn(ps); err != nil {
		a.logger.Warn(ctx, "edit failed", "op", op, "handle", ps.Handle(), "error", err)
		printlnFn(describeError(err))
		return err
	}
	printlnFn("Saved.")
	return nil
}

func (a *App) About(ctx context.Context) error {
	return a.edit(ctx, "about", func(ps *services.ProfileSession) error {
		text, err := GetTextOr(a.reader, fmt.Sprintf("About (max %d chars)", profile.MaxAboutLen), ps.Profile().About, a.out)
		if err != nil {
			return err
		}
		return ps.UpdateAbout(ctx, text)
	})
}

func (a *App) Organization(ctx context.Context) error {
	return a.edit(ctx, "organization", func(ps *services.ProfileSession) error {
		text, err := GetTextOr(a.reader, fmt.Sprintf("Organization (max %d chars)", profile.MaxOrganizationLen),
			ps.Profile().Organization, a.out)
		if err != nil {
			return err
		}
		return ps.UpdateOrganization(ctx, text)
	})
}

func (a *App) Interests(ctx context.Context) error {
	return a.edit(ctx, "interests", func(ps *services.ProfileSession) error {
		list, err := GetInterests(a.reader, "Interests", a.out)
		if err != nil {
			return err
		}
		return ps.UpdateInterests(ctx, list)
	})
}

// Picture records the URL of an already uploaded profile picture.
func (a *App) Picture(ctx context.Context) error {
	return a.edit(ctx, "picture", func(ps *services.ProfileSession) error {
		url, err := GetSimpleText(a.reader, "Picture URL", a.out)
		if err != nil {
			return err
		}
		return ps.UpdateProfilePicture(ctx, url)
	})
}

// waitHydrated blocks until the open profile's documents are probed.
func waitHydrated(ctx context.Context, ps *services.ProfileSession) error {
	select {
	case <-ps.Hydrated():
		return nil
	default:
	}

	printlnFn("Checking documents...")
	select {
	case <-ps.Hydrated():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Docs lists the reachable documents, marking the active one.
func (a *App) Docs(ctx context.Context) error {
	ps, err := a.requireSession()
	if err != nil {
		return err
	}
	if err := waitHydrated(ctx, ps); err != nil {
		return err
	}

	docs := ps.Documents()
	if len(docs) == 0 {
		printlnFn("No documents.")
		return nil
	}
	idx, _ := ps.Active()
	for i, d := range docs {
		marker := " "
		if i == idx {
			marker = ">"
		}
		printlnFn(fmt.Sprintf("%s %d. %s  %s", marker, i+1, d.Title, d.URL))
	}
	return nil
}

func (a *App) move(ctx context.Context, step func(ps *services.ProfileSession) int) error {
	ps, err := a.requireSession()
	if err != nil {
		return err
	}
	if err := waitHydrated(ctx, ps); err != nil {
		return err
	}

	step(ps)
	printActive(ps)
	return nil
}

func (a *App) Next(ctx context.Context) error {
	return a.move(ctx, (*services.ProfileSession).Next)
}

func (a *App) Prev(ctx context.Context) error {
	return a.move(ctx, (*services.ProfileSession).Prev)
}

func printActive(ps *services.ProfileSession) {
	idx, d := ps.Active()
	if d == nil {
		printlnFn("No documents.")
		return
	}
	printlnFn(fmt.Sprintf("[%d/%d] %s", idx+1, len(ps.Documents()), d.Title))
	if d.Description != "" {
		printlnFn(d.Description)
	}
	if len(d.Topics) > 0 {
		printlnFn("Topics:", strings.Join(d.Topics, ", "))
	}
	printlnFn(d.URL)
}
