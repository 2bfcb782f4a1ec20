package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/resdex/resdex/internal/common"
	"github.com/resdex/resdex/internal/logging"
	"github.com/resdex/resdex/internal/profile"
	"github.com/resdex/resdex/internal/server/repositories/repomanager"
)

// ObjectStore is the document bucket.
type ObjectStore interface {
	DeleteObject(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// Notifier is told whenever a profile visible in the snapshot changes.
type Notifier interface {
	Notify()
}

type ProfileService struct {
	db            *sql.DB
	repomanager   repomanager.RepositoryManager
	objects       ObjectStore
	notifier      Notifier
	validator     *profile.Validator
	sanitizer     *profile.Sanitizer
	snapshotLimit int
	logger        logging.Logger
}

func NewProfileService(db *sql.DB, m repomanager.RepositoryManager, objects ObjectStore, notifier Notifier,
	snapshotLimit int, logger logging.Logger) *ProfileService {
	if snapshotLimit <= 0 || snapshotLimit > common.SnapshotLimit {
		snapshotLimit = common.SnapshotLimit
	}
	return &ProfileService{
		db:            db,
		repomanager:   m,
		objects:       objects,
		notifier:      notifier,
		validator:     profile.NewValidator(),
		sanitizer:     profile.NewSanitizer(),
		snapshotLimit: snapshotLimit,
		logger:        logger.With("module", "profiles"),
	}
}

// ResolveHandle maps a handle to its owner id, ignoring case.
func (s *ProfileService) ResolveHandle(ctx context.Context, handle string) (string, error) {
	handle = strings.TrimSpace(handle)
	if handle == "" {
		return "", common.ErrorNotFound
	}
	return s.repomanager.Users(s.db).FindIDByHandle(ctx, handle)
}

func (s *ProfileService) GetProfile(ctx context.Context, userID string) (*profile.UserProfile, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return nil, common.ErrorNotFound
	}
	return s.repomanager.Users(s.db).GetProfile(ctx, userID)
}

// UpdateProfile applies patch to userID on behalf of actorID. Only the owner
// may write. Free text is stripped of markup before the limits are checked,
// and documents that are new to the profile must exist in the bucket.
func (s *ProfileService) UpdateProfile(ctx context.Context, actorID, userID string, patch profile.Patch) error {
	if actorID == "" || actorID != userID {
		return common.ErrorPermissionDenied
	}
	if patch.Empty() {
		return nil
	}

	patch = s.sanitizer.Patch(patch)
	if err := s.validator.Struct(patch); err != nil {
		return err
	}

	repo := s.repomanager.Users(s.db)
	if patch.Documents != nil {
		current, err := repo.GetProfile(ctx, userID)
		if err != nil {
			return err
		}
		if err := s.checkNewDocuments(ctx, current.Documents, *patch.Documents); err != nil {
			return err
		}
	}

	if err := repo.UpdateProfile(ctx, userID, patch); err != nil {
		s.logger.Error(ctx, "profile update failed", "user_id", userID, "error", err)
		return err
	}

	s.notifier.Notify()
	return nil
}

func (s *ProfileService) checkNewDocuments(ctx context.Context, current, next []profile.DocumentEntry) error {
	known := make(map[string]struct{}, len(current))
	for _, d := range current {
		known[d.URL] = struct{}{}
	}
	for _, d := range next {
		if _, ok := known[d.URL]; ok {
			continue
		}
		key, err := profile.ObjectKey(d.URL)
		if err != nil {
			return err
		}
		ok, err := s.objects.Exists(ctx, key)
		if err != nil {
			return fmt.Errorf("%w: %v", common.ErrorRemoteUnavailable, err)
		}
		if !ok {
			return fmt.Errorf("%w: document %q was not uploaded", common.ErrorValidation, key)
		}
	}
	return nil
}

// DeleteObject removes key from the bucket. The key must belong to one of the
// actor's documents.
func (s *ProfileService) DeleteObject(ctx context.Context, actorID, key string) error {
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("%w: empty object key", common.ErrorValidation)
	}
	p, err := s.GetProfile(ctx, actorID)
	if err != nil {
		return err
	}

	owned := false
	for _, d := range p.Documents {
		if k, err := profile.ObjectKey(d.URL); err == nil && k == key {
			owned = true
			break
		}
	}
	if !owned {
		return common.ErrorPermissionDenied
	}

	if err := s.objects.DeleteObject(ctx, key); err != nil {
		s.logger.Error(ctx, "object delete failed", "key", key, "error", err)
		return fmt.Errorf("%w: %v", common.ErrorRemoteUnavailable, err)
	}
	s.logger.Info(ctx, "object deleted", "user_id", actorID, "key", key)
	return nil
}

// Snapshot returns at most limit profiles, capped at the configured size.
func (s *ProfileService) Snapshot(ctx context.Context, limit int) ([]profile.UserProfile, error) {
	if limit <= 0 || limit > s.snapshotLimit {
		limit = s.snapshotLimit
	}
	return s.repomanager.Users(s.db).ListProfiles(ctx, limit)
}
