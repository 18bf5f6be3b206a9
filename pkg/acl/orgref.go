package acl

import (
	"fmt"
	"strings"
)

type orgRefKind int

const (
	orgRefAbsent orgRefKind = iota
	orgRefSingle
	orgRefMany
)

// OrgRef is the organization reference of a profile. The stored field is
// loosely typed for legacy reasons: it may be absent, a single string, or a
// list of values. The variant is built once when the profile is read;
// normalization then works over the tag instead of re-inspecting raw values.
type OrgRef struct {
	kind   orgRefKind
	single string
	many   []any
}

// NewOrgRef classifies a raw stored value. Scalar non-string values are kept
// as their string rendering, matching how old provisioning runs wrote
// numeric organization ids.
func NewOrgRef(raw any) OrgRef {
	switch v := raw.(type) {
	case nil:
		return OrgRef{kind: orgRefAbsent}
	case string:
		return OrgRef{kind: orgRefSingle, single: v}
	case []any:
		return OrgRef{kind: orgRefMany, many: v}
	case []string:
		many := make([]any, len(v))
		for i, s := range v {
			many[i] = s
		}
		return OrgRef{kind: orgRefMany, many: many}
	default:
		return OrgRef{kind: orgRefSingle, single: fmt.Sprint(v)}
	}
}

// OrgID returns the usable organization identifier, if any.
//
// A single value is used trimmed if non-empty. A list is scanned in iteration
// order and the first element that stringifies to a non-empty trimmed value
// wins; later elements are ignored even when non-empty. That tie-break is
// load-bearing: provisioning appends to the list, and the head entry is the
// organization the profile was originally enrolled in.
func (r OrgRef) OrgID() (string, bool) {
	switch r.kind {
	case orgRefSingle:
		s := strings.TrimSpace(r.single)
		return s, s != ""
	case orgRefMany:
		for _, item := range r.many {
			if item == nil {
				continue
			}
			var s string
			if str, ok := item.(string); ok {
				s = strings.TrimSpace(str)
			} else {
				s = strings.TrimSpace(fmt.Sprint(item))
			}
			if s != "" {
				return s, true
			}
		}
		return "", false
	default:
		return "", false
	}
}
