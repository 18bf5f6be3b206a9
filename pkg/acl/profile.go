// Package acl resolves which series a profile is authorized to see. A
// profile's access set is the deduplicated union of the grants of its owning
// organization and the grants assigned to the profile directly; it is
// recomputed from the store on every resolution call and never persisted.
package acl

import (
	"sort"

	"github.com/juanma-plia/PLIA-SHARED/pkg/storage"
)

// Collection and field names of the shared document schema.
const (
	CollectionProfiles      = "profiles"
	CollectionOrganizations = "organizations"
	CollectionSeries        = "series"

	FieldOrgRef       = "org_ref"
	FieldDirectGrants = "direct_grants"
	FieldOrgGrants    = "org_grants"
	FieldSeriesID     = "series_id"
	FieldDisplayOrder = "display_order"
)

// Profile is the domain view over a raw profile document: the organization
// reference classified into its variant, and the profile's own grants.
type Profile struct {
	Doc          storage.Document
	OrgRef       OrgRef
	DirectGrants []string
}

func ProfileFromDocument(doc storage.Document) Profile {
	return Profile{
		Doc:          doc,
		OrgRef:       NewOrgRef(doc.Value(FieldOrgRef)),
		DirectGrants: doc.Strings(FieldDirectGrants),
	}
}

// AccessSet is the set of series identifiers a profile may act on. Membership
// is necessary and sufficient for access.
type AccessSet map[string]struct{}

// NewAccessSet unions the given grant lists, dropping duplicates and empty
// entries.
func NewAccessSet(grantLists ...[]string) AccessSet {
	set := AccessSet{}
	for _, grants := range grantLists {
		for _, id := range grants {
			if id != "" {
				set[id] = struct{}{}
			}
		}
	}
	return set
}

func (s AccessSet) Contains(id string) bool {
	_, ok := s[id]
	return ok
}

// IDs returns the members in sorted order so downstream chunking is
// deterministic.
func (s AccessSet) IDs() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
