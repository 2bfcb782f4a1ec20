package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/resdex/resdex/internal/client/cache"
	"github.com/resdex/resdex/internal/client/probe"
	"github.com/resdex/resdex/internal/common"
	"github.com/resdex/resdex/internal/logging"
	"github.com/resdex/resdex/internal/profile"
)

var ErrSessionClosed = errors.New("profile session closed")

// RecordStore is the remote user record store.
type RecordStore interface {
	ResolveHandle(ctx context.Context, handle string) (string, error)
	GetProfile(ctx context.Context, userID string) (*profile.UserProfile, error)
	UpdateProfile(ctx context.Context, userID string, patch profile.Patch) error
	WatchUsers(ctx context.Context, limit int) (<-chan []profile.UserProfile, error)
}

// ObjectStore removes uploaded documents.
type ObjectStore interface {
	DeleteObject(ctx context.Context, key string) error
}

// ProfileService loads profiles through the local cache and hands out
// sessions that mutate them.
type ProfileService struct {
	records   RecordStore
	objects   ObjectStore
	identity  Identity
	cache     *cache.ProfileCache
	prober    probe.Prober
	validator *profile.Validator
	sanitizer *profile.Sanitizer
	logger    logging.Logger
}

func NewProfileService(records RecordStore, objects ObjectStore, identity Identity,
	c *cache.ProfileCache, prober probe.Prober, logger logging.Logger) *ProfileService {
	return &ProfileService{
		records:   records,
		objects:   objects,
		identity:  identity,
		cache:     c,
		prober:    prober,
		validator: profile.NewValidator(),
		sanitizer: profile.NewSanitizer(),
		logger:    logger.With("module", "profile"),
	}
}

// notFound keeps the NotFound contract of the read path. Failures other than a
// missing record are also marked RemoteUnavailable.
func notFound(handle string, err error) error {
	if errors.Is(err, common.ErrorNotFound) {
		return fmt.Errorf("profile %q: %w", handle, common.ErrorNotFound)
	}
	return fmt.Errorf("profile %q: %w", handle, errors.Join(common.ErrorNotFound, common.ErrorRemoteUnavailable, err))
}

// load returns the profile for handle from the cache when fresh, otherwise
// from the record store, refreshing the cache.
func (s *ProfileService) load(ctx context.Context, handle string) (*profile.UserProfile, error) {
	if handle == "" {
		return nil, common.ErrorNotFound
	}

	p, ok, err := s.cache.Get(ctx, handle)
	if err != nil {
		s.logger.Warn(ctx, "cache read failed", "handle", handle, "error", err)
	}
	if ok {
		return p, nil
	}

	id, err := s.records.ResolveHandle(ctx, handle)
	if err != nil {
		s.logger.Warn(ctx, "handle lookup failed", "handle", handle, "error", err)
		return nil, notFound(handle, err)
	}
	if id == "" {
		return nil, notFound(handle, common.ErrorNotFound)
	}

	p, err = s.records.GetProfile(ctx, id)
	if err != nil {
		s.logger.Warn(ctx, "profile fetch failed", "handle", handle, "error", err)
		return nil, notFound(handle, err)
	}
	p.ID = id

	if err := s.cache.Put(ctx, handle, p); err != nil {
		s.logger.Warn(ctx, "cache write failed", "handle", handle, "error", err)
	}
	return p, nil
}

// Hydrate returns the owner's persisted documents that still resolve. URLs
// are probed one at a time. Dead entries are skipped, never deleted.
func (s *ProfileService) Hydrate(ctx context.Context, ownerID string) []profile.DocumentEntry {
	p, err := s.records.GetProfile(ctx, ownerID)
	if err != nil || p == nil {
		if err != nil && !errors.Is(err, common.ErrorNotFound) {
			s.logger.Warn(ctx, "document list fetch failed", "user_id", ownerID, "error", err)
		}
		return nil
	}

	var live []profile.DocumentEntry
	for _, d := range p.Documents {
		if ctx.Err() != nil {
			return nil
		}
		if s.prober.Exists(ctx, d.URL) {
			live = append(live, d)
		} else {
			s.logger.Debug(ctx, "document unreachable", "url", d.URL)
		}
	}
	return live
}

// Open loads handle and starts hydrating its documents in the background.
// Close the session when done with it.
func (s *ProfileService) Open(ctx context.Context, handle string) (*ProfileSession, error) {
	handle = strings.TrimSpace(handle)

	p, err := s.load(ctx, handle)
	if err != nil {
		return nil, err
	}

	sctx, cancel := context.WithCancel(context.Background())
	ps := &ProfileSession{
		svc:       s,
		handle:    handle,
		cancel:    cancel,
		state:     p.Clone(),
		confirmed: p.Clone(),
		hydrated:  make(chan struct{}),
	}

	go ps.hydrate(sctx)

	return ps, nil
}

// ProfileSession is one open profile: its in-memory state, the displayed
// document list and the carousel position.
type ProfileSession struct {
	svc    *ProfileService
	handle string
	cancel context.CancelFunc

	// serializes mutators
	writeMu sync.Mutex

	mu        sync.Mutex
	state     *profile.UserProfile
	confirmed *profile.UserProfile
	docs      []profile.DocumentEntry
	active    int
	closed    bool
	hydrated  chan struct{}
}

func (ps *ProfileSession) hydrate(ctx context.Context) {
	docs := ps.svc.Hydrate(ctx, ps.ownerID())

	ps.mu.Lock()
	defer ps.mu.Unlock()
	defer close(ps.hydrated)
	if ps.closed {
		return
	}
	ps.docs = docs
	ps.clampLocked()
}

func (ps *ProfileSession) ownerID() string {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	return ps.state.ID
}

// Close cancels hydration. Nothing is applied to the session afterwards.
func (ps *ProfileSession) Close() {
	ps.mu.Lock()
	ps.closed = true
	ps.mu.Unlock()
	ps.cancel()
}

// Hydrated is closed once the document list has been probed.
func (ps *ProfileSession) Hydrated() <-chan struct{} {
	return ps.hydrated
}

func (ps *ProfileSession) Handle() string { return ps.handle }

// Profile returns a copy of the current state.
func (ps *ProfileSession) Profile() *profile.UserProfile {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	return ps.state.Clone()
}

// Documents returns the displayed document list: the hydrated list, or nil
// before hydration finishes.
func (ps *ProfileSession) Documents() []profile.DocumentEntry {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	return profile.CloneDocuments(ps.docs)
}

func (ps *ProfileSession) Contributions() int {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	return ps.state.Contributions
}

// IsOwner reports whether the logged-in user owns this profile.
func (ps *ProfileSession) IsOwner() bool {
	id := ps.svc.identity.CurrentUserID()
	return id != "" && id == ps.ownerID()
}

func (ps *ProfileSession) authorize() error {
	ps.mu.Lock()
	closed := ps.closed
	ps.mu.Unlock()
	if closed {
		return ErrSessionClosed
	}
	if !ps.IsOwner() {
		return common.ErrorPermissionDenied
	}
	return nil
}

// commit applies patch to state and confirmed state and rewrites the cache
// with the combined value.
func (ps *ProfileSession) commit(ctx context.Context, patch profile.Patch) {
	ps.mu.Lock()
	ps.state.Apply(patch)
	ps.confirmed.Apply(patch)
	if patch.Documents != nil {
		ps.docs = profile.CloneDocuments(*patch.Documents)
		ps.clampLocked()
	}
	snapshot := ps.state.Clone()
	ps.mu.Unlock()

	ps.writeCache(ctx, snapshot)
}

func (ps *ProfileSession) writeCache(ctx context.Context, p *profile.UserProfile) {
	if err := ps.svc.cache.Put(ctx, ps.handle, p); err != nil {
		ps.svc.logger.Warn(ctx, "cache write failed", "handle", ps.handle, "error", err)
	}
}

// write cleans and validates patch, persists it remotely and then commits
// it. The committed value is the one the server stores.
func (ps *ProfileSession) write(ctx context.Context, op string, patch profile.Patch) error {
	patch = ps.svc.sanitizer.Patch(patch)
	if err := ps.svc.validator.Struct(patch); err != nil {
		return err
	}
	if err := ps.svc.records.UpdateProfile(ctx, ps.ownerID(), patch); err != nil {
		ps.svc.logger.Error(ctx, "profile update failed", "op", op, "handle", ps.handle, "error", err)
		return fmt.Errorf("%s: %w", op, err)
	}
	ps.commit(ctx, patch)
	return nil
}

func (ps *ProfileSession) UpdateAbout(ctx context.Context, text string) error {
	ps.writeMu.Lock()
	defer ps.writeMu.Unlock()

	if err := ps.authorize(); err != nil {
		return err
	}
	text = ps.svc.sanitizer.Clean(text)
	if err := ps.svc.validator.About(text); err != nil {
		return err
	}
	return ps.write(ctx, "update about", profile.Patch{About: &text})
}

func (ps *ProfileSession) UpdateOrganization(ctx context.Context, text string) error {
	ps.writeMu.Lock()
	defer ps.writeMu.Unlock()

	if err := ps.authorize(); err != nil {
		return err
	}
	text = ps.svc.sanitizer.Clean(text)
	if err := ps.svc.validator.Organization(text); err != nil {
		return err
	}
	return ps.write(ctx, "update organization", profile.Patch{Organization: &text})
}

// UpdateProfilePicture records the URL of a finished picture upload.
func (ps *ProfileSession) UpdateProfilePicture(ctx context.Context, url string) error {
	ps.writeMu.Lock()
	defer ps.writeMu.Unlock()

	if err := ps.authorize(); err != nil {
		return err
	}
	url = strings.TrimSpace(url)
	return ps.write(ctx, "update profile picture", profile.Patch{ProfilePicture: &url})
}

// UpdateInterests replaces the interest selection. The new selection is shown
// and cached before the remote write, and both are restored to the last
// confirmed value if the write fails.
func (ps *ProfileSession) UpdateInterests(ctx context.Context, selection []string) error {
	ps.writeMu.Lock()
	defer ps.writeMu.Unlock()

	if err := ps.authorize(); err != nil {
		return err
	}
	return ps.updateInterests(ctx, selection)
}

func (ps *ProfileSession) updateInterests(ctx context.Context, selection []string) error {
	canonical := make([]string, 0, len(selection))
	for _, s := range selection {
		i, ok := profile.ParseInterest(s)
		if !ok {
			return fmt.Errorf("%w: unknown interest %q", common.ErrorValidation, s)
		}
		canonical = append(canonical, i)
	}
	if err := ps.svc.validator.Interests(canonical); err != nil {
		return err
	}

	ps.mu.Lock()
	ps.state.Interests = canonical
	pending := ps.state.Clone()
	ps.mu.Unlock()
	ps.writeCache(ctx, pending)

	patch := profile.Patch{Interests: &canonical}
	if err := ps.svc.records.UpdateProfile(ctx, pending.ID, patch); err != nil {
		ps.mu.Lock()
		ps.state.Interests = append([]string(nil), ps.confirmed.Interests...)
		restored := ps.state.Clone()
		ps.mu.Unlock()
		ps.writeCache(ctx, restored)

		ps.svc.logger.Error(ctx, "interests update failed", "handle", ps.handle, "error", err)
		return fmt.Errorf("update interests: %w", err)
	}

	ps.mu.Lock()
	ps.confirmed.Interests = append([]string(nil), canonical...)
	ps.mu.Unlock()
	return nil
}

// AddInterest appends one interest. A fourth one is rejected and the current
// selection is kept.
func (ps *ProfileSession) AddInterest(ctx context.Context, interest string) error {
	ps.writeMu.Lock()
	defer ps.writeMu.Unlock()

	if err := ps.authorize(); err != nil {
		return err
	}

	current := ps.Profile().Interests
	if len(current) >= profile.MaxInterests {
		return fmt.Errorf("%w: at most %d interests", common.ErrorValidation, profile.MaxInterests)
	}
	return ps.updateInterests(ctx, append(current, interest))
}

func (ps *ProfileSession) RemoveInterest(ctx context.Context, interest string) error {
	ps.writeMu.Lock()
	defer ps.writeMu.Unlock()

	if err := ps.authorize(); err != nil {
		return err
	}

	var next []string
	for _, i := range ps.Profile().Interests {
		if !strings.EqualFold(i, strings.TrimSpace(interest)) {
			next = append(next, i)
		}
	}
	return ps.updateInterests(ctx, next)
}

// displayed waits for hydration and returns a copy of the displayed list.
func (ps *ProfileSession) displayed(ctx context.Context) ([]profile.DocumentEntry, error) {
	select {
	case <-ps.hydrated:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return ps.Documents(), nil
}

func indexOfDocument(docs []profile.DocumentEntry, url string) int {
	for i, d := range docs {
		if d.URL == url {
			return i
		}
	}
	return -1
}

// AddDocument records the metadata of a finished document upload.
func (ps *ProfileSession) AddDocument(ctx context.Context, entry profile.DocumentEntry) error {
	ps.writeMu.Lock()
	defer ps.writeMu.Unlock()

	if err := ps.authorize(); err != nil {
		return err
	}
	if err := ps.svc.validator.Document(entry); err != nil {
		return err
	}

	docs, err := ps.displayed(ctx)
	if err != nil {
		return err
	}
	if indexOfDocument(docs, entry.URL) >= 0 {
		return fmt.Errorf("%w: document already listed", common.ErrorAlreadyExists)
	}

	docs = append(docs, entry)
	return ps.write(ctx, "add document", profile.Patch{Documents: &docs})
}

// EditDocument replaces the editable fields of the entry with the given URL.
// Order and length of the list are preserved.
func (ps *ProfileSession) EditDocument(ctx context.Context, url, title, description string, topics []string) error {
	ps.writeMu.Lock()
	defer ps.writeMu.Unlock()

	if err := ps.authorize(); err != nil {
		return err
	}

	docs, err := ps.displayed(ctx)
	if err != nil {
		return err
	}
	i := indexOfDocument(docs, url)
	if i < 0 {
		return fmt.Errorf("document %q: %w", url, common.ErrorNotFound)
	}

	edited := profile.DocumentEntry{URL: url, Title: title, Description: description, Topics: topics}
	if err := ps.svc.validator.Document(edited); err != nil {
		return err
	}
	docs[i] = edited

	return ps.write(ctx, "edit document", profile.Patch{Documents: &docs})
}

// RemoveDocument deletes the stored object, then drops the entry from the
// list. If the object cannot be deleted the list is left alone.
func (ps *ProfileSession) RemoveDocument(ctx context.Context, url string) error {
	ps.writeMu.Lock()
	defer ps.writeMu.Unlock()

	if err := ps.authorize(); err != nil {
		return err
	}

	docs, err := ps.displayed(ctx)
	if err != nil {
		return err
	}
	i := indexOfDocument(docs, url)
	if i < 0 {
		return fmt.Errorf("document %q: %w", url, common.ErrorNotFound)
	}

	key, err := profile.ObjectKey(url)
	if err != nil {
		return err
	}
	if err := ps.svc.objects.DeleteObject(ctx, key); err != nil {
		ps.svc.logger.Error(ctx, "object delete failed", "key", key, "error", err)
		return fmt.Errorf("delete object: %w", err)
	}

	remaining := append(docs[:i:i], docs[i+1:]...)
	return ps.write(ctx, "remove document", profile.Patch{Documents: &remaining})
}

func (ps *ProfileSession) clampLocked() {
	switch {
	case len(ps.docs) == 0:
		ps.active = 0
	case ps.active >= len(ps.docs):
		ps.active = len(ps.docs) - 1
	case ps.active < 0:
		ps.active = 0
	}
}

// Active returns the carousel index and the entry under it, if any.
func (ps *ProfileSession) Active() (int, *profile.DocumentEntry) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	if len(ps.docs) == 0 {
		return 0, nil
	}
	d := profile.CloneDocuments(ps.docs[ps.active : ps.active+1])[0]
	return ps.active, &d
}

func (ps *ProfileSession) SetActive(i int) int {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.active = i
	ps.clampLocked()
	return ps.active
}

func (ps *ProfileSession) Next() int {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.active++
	ps.clampLocked()
	return ps.active
}

func (ps *ProfileSession) Prev() int {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.active--
	ps.clampLocked()
	return ps.active
}
