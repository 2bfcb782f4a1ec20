package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/resdex/resdex/internal/profile"
)

const maxPrintedResults = 20

// SearchMode switches between user and project search.
func (a *App) SearchMode(_ context.Context, mode string) error {
	m, ok := profile.ParseMode(mode)
	if !ok {
		printlnFn("Usage: search <users|projects>")
		return fmt.Errorf("unknown search mode %q", mode)
	}
	a.search.SetMode(m)
	return nil
}

// Find sets the search query. Results are printed once typing settles.
func (a *App) Find(_ context.Context, query string) error {
	if q := a.search.SetQuery(query); strings.TrimSpace(q) == "" {
		printlnFn("Search cleared.")
	}
	return nil
}

func (a *App) ShowMode(_ context.Context) error {
	printlnFn(fmt.Sprintf("Searching %s for %q", a.search.Mode(), a.search.Query()))
	return nil
}

// printResults is the search callback.
func (a *App) printResults(res profile.Results) {
	blank := strings.TrimSpace(res.Query) == ""
	if blank || res.Len() == 0 {
		if !blank {
			printlnFn(fmt.Sprintf("No %s match %q", res.Mode, res.Query))
		}
		return
	}

	printlnFn(fmt.Sprintf("%d %s match %q:", res.Len(), res.Mode, res.Query))
	switch res.Mode {
	case profile.ModeProjects:
		for i, p := range res.Projects {
			if i == maxPrintedResults {
				printlnFn("  ...")
				break
			}
			printlnFn(fmt.Sprintf("  %s  by @%s", p.Entry.Title, p.Owner.Username))
		}
	default:
		for i, u := range res.Users {
			if i == maxPrintedResults {
				printlnFn("  ...")
				break
			}
			printlnFn(fmt.Sprintf("  @%s  %s", u.Username, u.FullName))
		}
	}
}
