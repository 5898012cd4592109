package schema

import "strings"

// QueryFilter narrows a batch to selected dimensions. Empty lists match everything.
// Matching is case-insensitive.
type QueryFilter struct {
	Warehouses []string `json:"warehouses,omitempty"`
	Users      []string `json:"users,omitempty"`
	Roles      []string `json:"roles,omitempty"`
	Databases  []string `json:"databases,omitempty"`
}

// IsEmpty reports whether the filter matches every record.
func (f QueryFilter) IsEmpty() bool {
	return len(f.Warehouses) == 0 && len(f.Users) == 0 && len(f.Roles) == 0 && len(f.Databases) == 0
}

// Match reports whether rec passes every non-empty dimension.
func (f QueryFilter) Match(rec QueryRecord) bool {
	return anyFold(f.Warehouses, rec.Warehouse) &&
		anyFold(f.Users, rec.User) &&
		anyFold(f.Roles, rec.Role) &&
		anyFold(f.Databases, rec.Database)
}

// MatchWarehouse is Match restricted to the warehouse dimension, used for credit buckets.
func (f QueryFilter) MatchWarehouse(name string) bool {
	return anyFold(f.Warehouses, name)
}

func anyFold(allowed []string, value string) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, a := range allowed {
		if strings.EqualFold(a, value) {
			return true
		}
	}
	return false
}

// SplitList turns a comma separated flag value into a trimmed list without blanks.
func SplitList(s string) []string {
	var out []string
	for part := range strings.SplitSeq(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
