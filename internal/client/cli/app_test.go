package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resdex/resdex/internal/client/cache"
	"github.com/resdex/resdex/internal/client/client"
	"github.com/resdex/resdex/internal/client/config"
	"github.com/resdex/resdex/internal/client/kv"
	"github.com/resdex/resdex/internal/client/services"
	"github.com/resdex/resdex/internal/common"
	"github.com/resdex/resdex/internal/logging"
	"github.com/resdex/resdex/internal/profile"
)

type fakeAuth struct {
	mu       sync.Mutex
	username string
	id       string
	err      error
	pingErr  error
	password string
	fullName string
}

func (f *fakeAuth) Register(_ context.Context, username, fullName string, password []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fullName = fullName
	f.password = string(password)
	return f.err
}

func (f *fakeAuth) Login(_ context.Context, username string, password []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.password = string(password)
	if f.err != nil {
		return f.err
	}
	f.username = username
	return nil
}

func (f *fakeAuth) Logout(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.username = ""
	return f.err
}

func (f *fakeAuth) Username() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.username
}

func (f *fakeAuth) CurrentUserID() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.id
}

func (f *fakeAuth) Ping(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pingErr
}

func (f *fakeAuth) setPingErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pingErr = err
}

type fakeRecords struct {
	mu       sync.Mutex
	profiles map[string]*profile.UserProfile
}

func (f *fakeRecords) ResolveHandle(_ context.Context, handle string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, p := range f.profiles {
		if p.Username == handle {
			return id, nil
		}
	}
	return "", common.ErrorNotFound
}

func (f *fakeRecords) GetProfile(_ context.Context, id string) (*profile.UserProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return p.Clone(), nil
}

func (f *fakeRecords) UpdateProfile(_ context.Context, id string, patch profile.Patch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.profiles[id].Apply(patch)
	return nil
}

func (f *fakeRecords) WatchUsers(context.Context, int) (<-chan []profile.UserProfile, error) {
	ch := make(chan []profile.UserProfile)
	close(ch)
	return ch, nil
}

func (f *fakeRecords) get(id string) *profile.UserProfile {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.profiles[id].Clone()
}

type fakeObjects struct {
	mu      sync.Mutex
	deleted []string
}

func (f *fakeObjects) DeleteObject(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, key)
	return nil
}

type liveProber struct{}

func (liveProber) Exists(context.Context, string) bool { return true }

type fakeSearch struct {
	mode     profile.Mode
	query    string
	startErr error
	started  bool
	closed   bool
}

func (f *fakeSearch) Start(context.Context) error { f.started = true; return f.startErr }
func (f *fakeSearch) SetQuery(q string) string    { f.query = q; return f.query }
func (f *fakeSearch) SetMode(m profile.Mode)      { f.mode = m }
func (f *fakeSearch) Mode() profile.Mode          { return f.mode }
func (f *fakeSearch) Query() string               { return f.query }
func (f *fakeSearch) Close()                      { f.closed = true }

type testApp struct {
	*App
	auth    *fakeAuth
	records *fakeRecords
	objects *fakeObjects
	search  *fakeSearch
}

func docURL(name string) string {
	return profile.DocumentURL("docs/" + name)
}

func newTestApp(t *testing.T, actorID string) *testApp {
	t.Helper()

	store, err := kv.OpenSQLite(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	ta := &testApp{
		auth: &fakeAuth{id: actorID},
		records: &fakeRecords{profiles: map[string]*profile.UserProfile{
			"u1": {
				Username:  "ada",
				FullName:  "Ada Lovelace",
				Interests: []string{profile.Technology},
				Documents: []profile.DocumentEntry{
					{URL: docURL("a.pdf"), Title: "A", Topics: []string{profile.Law}},
					{URL: docURL("b.pdf"), Title: "B"},
					{URL: docURL("c.pdf"), Title: "C"},
				},
			},
		}},
		objects: &fakeObjects{},
		search:  &fakeSearch{},
	}

	svc := services.NewProfileService(ta.records, ta.objects, ta.auth,
		cache.NewProfileCache(store, cache.DefaultTTL), liveProber{}, logging.Nop{})

	ta.App = &App{
		config:   &config.Config{OnlineCheckInterval: 5 * time.Millisecond},
		auth:     ta.auth,
		profiles: svc,
		search:   ta.search,
		logger:   logging.Nop{},
		reader:   rdr(""),
		out:      io.Discard,
	}
	t.Cleanup(func() { ta.replaceSession(nil) })
	return ta
}

func (ta *testApp) input(lines ...string) {
	ta.reader = rdr(strings.Join(lines, "\n") + "\n")
}

func joined(lines *[]string) string {
	return strings.Join(*lines, "\n")
}

func TestSetMode_ReportsOnlyChanges(t *testing.T) {
	lines := silence(t)
	ta := newTestApp(t, "")

	ta.setMode(ModeOnline)
	ta.setMode(ModeOnline)
	ta.setMode(ModeOffline)

	assert.Equal(t, ModeOffline, ta.Mode())
	assert.Equal(t, []string{"Switched to online mode", "Switched to offline mode"}, *lines)
}

func TestGetStatus(t *testing.T) {
	silence(t)
	ta := newTestApp(t, "u1")
	assert.Equal(t, "", ta.getStatus())
	assert.False(t, ta.isLoggedIn())

	ta.auth.username = "ada"
	ta.mode = ModeOnline
	require.NoError(t, ta.Profile(context.Background(), "ada"))

	assert.Equal(t, "(ada online @ada)", ta.getStatus())
	assert.True(t, ta.isLoggedIn())
}

func TestRegisterAndLogin(t *testing.T) {
	lines := silence(t)
	old := readPassword
	t.Cleanup(func() { readPassword = old })
	readPassword = func(int) ([]byte, error) { return []byte("pw"), nil }

	ta := newTestApp(t, "u1")
	ctx := context.Background()

	ta.input("ada", "Ada Lovelace")
	require.NoError(t, ta.Register(ctx))
	assert.Equal(t, "Ada Lovelace", ta.auth.fullName)
	assert.Equal(t, "pw", ta.auth.password)

	ta.input("ada")
	require.NoError(t, ta.Login(ctx))
	assert.Equal(t, "ada", ta.auth.Username())
	assert.Equal(t, ModeOnline, ta.Mode())

	require.NoError(t, ta.Logout(ctx))
	assert.False(t, ta.isLoggedIn())

	ta.auth.err = common.ErrorUnauthorized
	ta.input("ada")
	assert.ErrorIs(t, ta.Login(ctx), common.ErrorUnauthorized)
	assert.Contains(t, joined(lines), "Wrong credentials")
}

func TestProfile_NotFound(t *testing.T) {
	lines := silence(t)
	ta := newTestApp(t, "u1")

	err := ta.Profile(context.Background(), "nobody")
	assert.ErrorIs(t, err, common.ErrorNotFound)
	assert.Contains(t, *lines, "User not found.")
	assert.Nil(t, ta.currentSession())
}

func TestProfile_RendersFields(t *testing.T) {
	lines := silence(t)
	ta := newTestApp(t, "u1")

	require.NoError(t, ta.Profile(context.Background(), "ada"))
	out := joined(lines)
	assert.Contains(t, out, "@ada  Ada Lovelace")
	assert.Contains(t, out, "Interests: Technology")
	assert.Contains(t, out, "(this is your profile)")
}

func TestEdits_RequireProfile(t *testing.T) {
	lines := silence(t)
	ta := newTestApp(t, "u1")
	ctx := context.Background()

	for _, fn := range []func(context.Context) error{ta.About, ta.Organization, ta.Docs, ta.Next, ta.RemoveDocument} {
		assert.ErrorIs(t, fn(ctx), errNoProfile)
	}
	assert.Contains(t, *lines, "Open a profile first: profile <handle>")
}

func TestAbout_Owner(t *testing.T) {
	lines := silence(t)
	ta := newTestApp(t, "u1")
	ctx := context.Background()
	require.NoError(t, ta.Profile(ctx, "ada"))

	ta.input("Mathematician")
	require.NoError(t, ta.About(ctx))
	assert.Equal(t, "Mathematician", ta.records.get("u1").About)
	assert.Contains(t, *lines, "Saved.")

	ta.input("ACME")
	require.NoError(t, ta.Organization(ctx))
	assert.Equal(t, "ACME", ta.records.get("u1").Organization)
}

func TestInterests_NonOwner(t *testing.T) {
	lines := silence(t)
	ta := newTestApp(t, "u2")
	ctx := context.Background()
	require.NoError(t, ta.Profile(ctx, "ada"))

	ta.input("Law")
	assert.ErrorIs(t, ta.Interests(ctx), common.ErrorPermissionDenied)
	assert.Contains(t, *lines, "Only the profile owner can do that.")
	assert.Equal(t, []string{profile.Technology}, ta.records.get("u1").Interests)
}

func TestInterests_Owner(t *testing.T) {
	lines := silence(t)
	ta := newTestApp(t, "u1")
	ctx := context.Background()
	require.NoError(t, ta.Profile(ctx, "ada"))

	ta.input("law, ARTS")
	require.NoError(t, ta.Interests(ctx))
	assert.Equal(t, []string{profile.Law, profile.Arts}, ta.records.get("u1").Interests)

	ta.input("Law, Arts, Finance, Education")
	assert.ErrorIs(t, ta.Interests(ctx), common.ErrorValidation)
	assert.True(t, strings.Contains(joined(lines), "Invalid input"))
}

func TestDocsCarousel(t *testing.T) {
	lines := silence(t)
	ta := newTestApp(t, "u1")
	ctx := context.Background()
	require.NoError(t, ta.Profile(ctx, "ada"))

	require.NoError(t, ta.Docs(ctx))
	assert.Contains(t, *lines, fmt.Sprintf("> 1. A  %s", docURL("a.pdf")))

	require.NoError(t, ta.Next(ctx))
	assert.Contains(t, *lines, "[2/3] B")
	require.NoError(t, ta.Prev(ctx))
	require.NoError(t, ta.Prev(ctx))
	assert.Contains(t, *lines, "Topics: Law")
}

func TestEditDocument_KeepsBlankAnswers(t *testing.T) {
	silence(t)
	ta := newTestApp(t, "u1")
	ctx := context.Background()
	require.NoError(t, ta.Profile(ctx, "ada"))

	ta.input("", "Engine notes", "")
	require.NoError(t, ta.EditDocument(ctx))

	docs := ta.records.get("u1").Documents
	require.Len(t, docs, 3)
	assert.Equal(t, "A", docs[0].Title)
	assert.Equal(t, "Engine notes", docs[0].Description)
	assert.Equal(t, []string{profile.Law}, docs[0].Topics)
}

func TestRemoveDocument_Confirmation(t *testing.T) {
	lines := silence(t)
	ta := newTestApp(t, "u1")
	ctx := context.Background()
	require.NoError(t, ta.Profile(ctx, "ada"))
	require.NoError(t, ta.Next(ctx))

	ta.input("n")
	assert.ErrorIs(t, ta.RemoveDocument(ctx), errCancelled)
	assert.Contains(t, *lines, "Cancelled.")
	assert.Empty(t, ta.objects.deleted)

	ta.input("y")
	require.NoError(t, ta.RemoveDocument(ctx))
	assert.Equal(t, []string{"docs/b.pdf"}, ta.objects.deleted)
	assert.Len(t, ta.records.get("u1").Documents, 2)
}

func TestAddDocument(t *testing.T) {
	silence(t)
	ta := newTestApp(t, "u1")
	ctx := context.Background()
	require.NoError(t, ta.Profile(ctx, "ada"))

	ta.input(docURL("d.pdf"), "D", "new paper", "Arts")
	require.NoError(t, ta.AddDocument(ctx))

	docs := ta.records.get("u1").Documents
	require.Len(t, docs, 4)
	assert.Equal(t, profile.DocumentEntry{URL: docURL("d.pdf"), Title: "D", Description: "new paper",
		Topics: []string{"Arts"}}, docs[3])
}

func TestSearchCommands(t *testing.T) {
	lines := silence(t)
	ta := newTestApp(t, "")
	ctx := context.Background()

	require.NoError(t, ta.SearchMode(ctx, "Projects"))
	assert.Equal(t, profile.ModeProjects, ta.search.mode)
	assert.Error(t, ta.SearchMode(ctx, "orgs"))

	require.NoError(t, ta.Find(ctx, "graph "))
	assert.Equal(t, "graph ", ta.search.query)
	require.NoError(t, ta.ShowMode(ctx))
	assert.Contains(t, *lines, `Searching projects for "graph "`)
	assert.NotContains(t, *lines, "Search cleared.")

	require.NoError(t, ta.Find(ctx, ""))
	assert.Contains(t, *lines, "Search cleared.")
}

func TestFind_WhitespaceClears(t *testing.T) {
	lines := silence(t)
	ta := newTestApp(t, "")

	require.NoError(t, ta.Find(context.Background(), "   "))
	assert.Equal(t, []string{"Search cleared."}, *lines)

	ta.printResults(profile.Results{Mode: profile.ModeUsers, Query: "  "})
	assert.Equal(t, []string{"Search cleared."}, *lines)
}

func TestPrintResults(t *testing.T) {
	lines := silence(t)
	ta := newTestApp(t, "")

	owner := profile.UserProfile{Username: "ada", FullName: "Ada Lovelace"}
	ta.printResults(profile.Results{Mode: profile.ModeUsers, Query: "ad", Users: []profile.UserProfile{owner}})
	ta.printResults(profile.Results{Mode: profile.ModeProjects, Query: "eng", Projects: []profile.ProjectMatch{
		{Owner: owner, Entry: profile.ResearchEntry{Title: "Engine"}},
	}})
	ta.printResults(profile.Results{Mode: profile.ModeUsers, Query: "zz"})
	ta.printResults(profile.Results{Mode: profile.ModeUsers})

	assert.Equal(t, []string{
		`1 users match "ad":`,
		"  @ada  Ada Lovelace",
		`1 projects match "eng":`,
		"  Engine  by @ada",
		`No users match "zz"`,
	}, *lines)
}

func TestStartOnlineStatusWatcher(t *testing.T) {
	silence(t)
	ta := newTestApp(t, "")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		ta.StartOnlineStatusWatcher(ctx, 5*time.Millisecond)
	}()

	require.Eventually(t, func() bool { return ta.Mode() == ModeOnline }, time.Second, time.Millisecond)
	ta.auth.setPingErr(common.ErrorRemoteUnavailable)
	require.Eventually(t, func() bool { return ta.Mode() == ModeOffline }, time.Second, time.Millisecond)

	cancel()
	<-done
}

func TestRun_ExitsOnEOF(t *testing.T) {
	silence(t)
	ta := newTestApp(t, "")
	ta.input("exit")

	ta.Run(context.Background())
	assert.True(t, ta.search.started)
	assert.True(t, ta.search.closed)
}

func TestDescribeError(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{errNoProfile, "Open a profile first: profile <handle>"},
		{services.ErrSessionClosed, "The profile was closed. Open it again."},
		{client.ErrNotLoggedIn, "Not logged in."},
		{fmt.Errorf("x: %w", common.ErrorPermissionDenied), "Only the profile owner can do that."},
		{common.ErrorAlreadyExists, "Already exists."},
		{common.ErrorNotFound, "Not found."},
		{common.ErrorUnauthorized, "Wrong credentials or session expired. Please log in."},
		{client.ErrRateLimited, "Too many requests, slow down."},
		{common.ErrorRemoteUnavailable, "Server unavailable, try again later."},
		{errors.New("boom"), "Error: boom"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, describeError(tc.err))
	}
	assert.True(t, strings.HasPrefix(describeError(common.ErrorValidation), "Invalid input: "))
}
