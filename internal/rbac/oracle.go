// Package rbac computes the effective module set a user may access. The
// oracle is pure: it sees only rows already loaded from the bound tenant
// schema and never fails.
package rbac

import (
	"sort"

	"github.com/edukit/edukit/internal/model"
)

// AllModules is the wildcard permission code. It is treated uniformly in
// role bundles and per-user overrides.
const AllModules = "ALL_MODULES"

// EffectiveModules resolves roles, per-user overrides and the active module
// catalog into the set of module names the user may access.
//
// Roles give a base capability; overrides are applied in assignment order
// (ties broken by code) so a later grant can re-open a set emptied by a
// wildcard deny. The result is always intersected with the active modules,
// so stale codes never grant access to disabled features. Admins get every
// active module regardless of roles.
func EffectiveModules(user model.User, roleCodes []string, overrides []model.PermissionOverride, modules []model.Module) []string {
	active := make(map[string]struct{}, len(modules))
	for _, m := range modules {
		if m.Active {
			active[m.Name] = struct{}{}
		}
	}

	if user.Kind == model.KindAdmin {
		return sortedKeys(active)
	}

	effective := make(map[string]struct{}, len(roleCodes))
	wildcard := false
	for _, code := range roleCodes {
		if code == AllModules {
			wildcard = true
			continue
		}
		effective[code] = struct{}{}
	}
	if wildcard {
		effective = cloneSet(active)
	}

	ordered := make([]model.PermissionOverride, len(overrides))
	copy(ordered, overrides)
	sort.SliceStable(ordered, func(i, j int) bool {
		if !ordered[i].AssignedAt.Equal(ordered[j].AssignedAt) {
			return ordered[i].AssignedAt.Before(ordered[j].AssignedAt)
		}
		return ordered[i].Code < ordered[j].Code
	})

	for _, o := range ordered {
		switch {
		case o.Code == AllModules && o.Granted:
			effective = cloneSet(active)
		case o.Code == AllModules && !o.Granted:
			effective = make(map[string]struct{})
		case o.Granted:
			effective[o.Code] = struct{}{}
		default:
			delete(effective, o.Code)
		}
	}

	for name := range effective {
		if _, ok := active[name]; !ok {
			delete(effective, name)
		}
	}
	return sortedKeys(effective)
}

// HasModule reports whether m is in the user's effective module set.
func HasModule(user model.User, roleCodes []string, overrides []model.PermissionOverride, modules []model.Module, m string) bool {
	for _, name := range EffectiveModules(user, roleCodes, overrides, modules) {
		if name == m {
			return true
		}
	}
	return false
}

func cloneSet(src map[string]struct{}) map[string]struct{} {
	dst := make(map[string]struct{}, len(src))
	for k := range src {
		dst[k] = struct{}{}
	}
	return dst
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
