package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/resdex/resdex/internal/client/cache"
	"github.com/resdex/resdex/internal/client/kv"
	"github.com/resdex/resdex/internal/common"
	"github.com/resdex/resdex/internal/logging"
	"github.com/resdex/resdex/internal/profile"
)

var errBoom = errors.New("boom")

type fakeRecords struct {
	mu        sync.Mutex
	handles   map[string]string
	profiles  map[string]*profile.UserProfile
	resolveN  int
	resolveEr error
	updateErr error
	patches   []profile.Patch
	watch     chan []profile.UserProfile
	watchErr  error
	watchN    int
}

func newFakeRecords(profiles ...*profile.UserProfile) *fakeRecords {
	f := &fakeRecords{handles: map[string]string{}, profiles: map[string]*profile.UserProfile{}}
	for _, p := range profiles {
		f.handles[p.Username] = p.ID
		f.profiles[p.ID] = p.Clone()
	}
	return f
}

func (f *fakeRecords) ResolveHandle(_ context.Context, handle string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resolveN++
	if f.resolveEr != nil {
		return "", f.resolveEr
	}
	id, ok := f.handles[handle]
	if !ok {
		return "", common.ErrorNotFound
	}
	return id, nil
}

func (f *fakeRecords) GetProfile(_ context.Context, id string) (*profile.UserProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	c := p.Clone()
	c.ID = ""
	return c, nil
}

func (f *fakeRecords) UpdateProfile(_ context.Context, id string, patch profile.Patch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	f.patches = append(f.patches, patch)
	if p, ok := f.profiles[id]; ok {
		p.Apply(patch)
	}
	return nil
}

func (f *fakeRecords) WatchUsers(ctx context.Context, _ int) (<-chan []profile.UserProfile, error) {
	f.mu.Lock()
	f.watchN++
	watch, err := f.watch, f.watchErr
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	out := make(chan []profile.UserProfile)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case users, ok := <-watch:
				if !ok {
					return
				}
				select {
				case out <- users:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// rewatch points later subscriptions at next and returns the previous feed.
func (f *fakeRecords) rewatch(next chan []profile.UserProfile) chan []profile.UserProfile {
	f.mu.Lock()
	defer f.mu.Unlock()
	prev := f.watch
	f.watch = next
	return prev
}

func (f *fakeRecords) subscriptions() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.watchN
}

func (f *fakeRecords) stored(id string) *profile.UserProfile {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.profiles[id].Clone()
}

type fakeObjects struct {
	mu      sync.Mutex
	err     error
	deleted []string
}

func (f *fakeObjects) DeleteObject(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.deleted = append(f.deleted, key)
	return nil
}

type fakeIdentity string

func (f fakeIdentity) CurrentUserID() string { return string(f) }

// fakeProber reports the urls listed in dead as missing and records probe
// order. block, when set, holds every probe until it is closed.
type fakeProber struct {
	mu     sync.Mutex
	dead   map[string]bool
	probed []string
	block  chan struct{}
}

func (f *fakeProber) Exists(ctx context.Context, url string) bool {
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return false
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.probed = append(f.probed, url)
	return !f.dead[url]
}

func docURL(name string) string {
	return profile.DocumentURL("docs/" + name)
}

func adaProfile() *profile.UserProfile {
	return &profile.UserProfile{
		ID:            "u1",
		Username:      "ada",
		FullName:      "Ada Lovelace",
		About:         "notes",
		Interests:     []string{profile.Technology},
		Contributions: 7,
		Documents: []profile.DocumentEntry{
			{URL: docURL("a.pdf"), Title: "A"},
			{URL: docURL("b.pdf"), Title: "B"},
			{URL: docURL("c.pdf"), Title: "C"},
		},
	}
}

type fixture struct {
	records  *fakeRecords
	objects  *fakeObjects
	prober   *fakeProber
	cache    *cache.ProfileCache
	svc      *ProfileService
	identity fakeIdentity
}

func newFixture(t *testing.T, identity string, profiles ...*profile.UserProfile) *fixture {
	t.Helper()

	store, err := kv.OpenSQLite(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	f := &fixture{
		records:  newFakeRecords(profiles...),
		objects:  &fakeObjects{},
		prober:   &fakeProber{dead: map[string]bool{}},
		cache:    cache.NewProfileCache(store, cache.DefaultTTL),
		identity: fakeIdentity(identity),
	}
	f.svc = NewProfileService(f.records, f.objects, f.identity, f.cache, f.prober, logging.Nop{})
	return f
}

func (f *fixture) open(t *testing.T, handle string) *ProfileSession {
	t.Helper()
	ps, err := f.svc.Open(context.Background(), handle)
	require.NoError(t, err)
	t.Cleanup(ps.Close)

	select {
	case <-ps.Hydrated():
	case <-time.After(2 * time.Second):
		t.Fatal("hydration did not finish")
	}
	return ps
}
