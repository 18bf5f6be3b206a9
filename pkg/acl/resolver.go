package acl

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/juanma-plia/PLIA-SHARED/pkg/logger"
	"github.com/juanma-plia/PLIA-SHARED/pkg/storage"
)

// ProfileNotFoundError is returned when the profile a caller asks about does
// not exist. It is the only bad-input failure an ACL resolution can produce.
type ProfileNotFoundError struct {
	ProfileID string
}

func (e *ProfileNotFoundError) Error() string {
	return fmt.Sprintf("profile '%s' not found", e.ProfileID)
}

// Resolver computes profile access sets from the store's current contents.
// It holds no state of its own; every call is a pure function of the store
// plus its input identifiers.
type Resolver struct {
	store  storage.DocumentStore
	batch  *storage.BatchQuerier
	logger logger.Logger
}

func NewResolver(store storage.DocumentStore, batch *storage.BatchQuerier, log logger.Logger) *Resolver {
	return &Resolver{
		store:  store,
		batch:  batch,
		logger: log,
	}
}

// ResolveProfileAccess loads the profile, derives its owning organization
// from the org_ref field, and unions the organization's grants with the
// profile's direct grants. A missing organization is not an error: it
// degrades to "no org-level grants". A missing profile is.
func (r *Resolver) ResolveProfileAccess(ctx context.Context, profileID string) (storage.Document, AccessSet, error) {
	doc, err := r.store.GetDocument(ctx, CollectionProfiles, profileID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return storage.Document{}, nil, &ProfileNotFoundError{ProfileID: profileID}
		}
		return storage.Document{}, nil, err
	}
	profile := ProfileFromDocument(doc)

	var orgGrants []string
	if orgID, ok := profile.OrgRef.OrgID(); ok {
		orgDoc, err := r.store.GetDocument(ctx, CollectionOrganizations, orgID)
		switch {
		case err == nil:
			orgGrants = orgDoc.Strings(FieldOrgGrants)
		case errors.Is(err, storage.ErrNotFound):
			r.logger.DebugWithContext(ctx, "organization not found, profile keeps direct grants only",
				zap.String("profile_id", profileID), zap.String("org_id", orgID))
		default:
			return storage.Document{}, nil, err
		}
	}

	return doc, NewAccessSet(orgGrants, profile.DirectGrants), nil
}

// HasAccess reports whether the profile's access set contains the series. An
// unknown series simply yields false.
func (r *Resolver) HasAccess(ctx context.Context, profileID, seriesID string) (bool, error) {
	_, access, err := r.ResolveProfileAccess(ctx, profileID)
	if err != nil {
		return false, err
	}
	return access.Contains(seriesID), nil
}

// ListAccessibleSeries materializes the series documents the profile may see,
// ordered by their display_order field. An empty access set short-circuits
// without touching the series collection.
func (r *Resolver) ListAccessibleSeries(ctx context.Context, profileID string) ([]storage.Document, error) {
	_, access, err := r.ResolveProfileAccess(ctx, profileID)
	if err != nil {
		return nil, err
	}
	if len(access) == 0 {
		return nil, nil
	}

	return r.batch.Query(ctx, CollectionSeries, FieldSeriesID, access.IDs(), storage.QueryOptions{
		OrderBy: FieldDisplayOrder,
	})
}
