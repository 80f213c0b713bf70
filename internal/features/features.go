package features

import "slices"

// Key identifies a gated capability in the permission matrix.
// Keys are free-form: a key without a permission row denies.
type Key string

// Feature keys recognized by the case service.
const (
	// ModifyCaseStatus move a case to another status.
	ModifyCaseStatus Key = "modify_case_status"

	// EditUpdates edit any update on a case of the organization.
	EditUpdates Key = "edit_updates"
	// EditOwnUpdates edit updates the principal authored.
	EditOwnUpdates Key = "edit_own_updates"

	// DeleteUpdates delete any update on a case of the organization.
	DeleteUpdates Key = "delete_updates"
	// DeleteOwnUpdates delete updates the principal authored.
	DeleteOwnUpdates Key = "delete_own_updates"

	// ManageMembers change member roles of the organization.
	ManageMembers Key = "manage_members"

	// ManageStatuses create statuses in the organization catalog.
	ManageStatuses Key = "manage_statuses"
)

// Family tells callers how a key must be composed.
type Family string

const (
	// FamilyGlobal keys allow the action on any resource of the organization.
	FamilyGlobal Family = "global"

	// FamilyOwn keys allow the action only on resources the principal authored.
	// Callers must combine them with an ownership check.
	FamilyOwn Family = "own"
)

type Feature struct {
	Key         Key
	Description string
	Family      Family
}

// catalog lists the built-in feature keys.
var catalog = []Feature{
	{Key: ModifyCaseStatus, Description: "Change the status of a case", Family: FamilyGlobal},
	{Key: EditUpdates, Description: "Edit any case update", Family: FamilyGlobal},
	{Key: EditOwnUpdates, Description: "Edit own case updates", Family: FamilyOwn},
	{Key: DeleteUpdates, Description: "Delete any case update", Family: FamilyGlobal},
	{Key: DeleteOwnUpdates, Description: "Delete own case updates", Family: FamilyOwn},
	{Key: ManageMembers, Description: "Change member roles", Family: FamilyGlobal},
	{Key: ManageStatuses, Description: "Manage the status catalog", Family: FamilyGlobal},
}

// All returns the built-in features, optionally filtered by family.
func All(family *Family) []Feature {
	if family == nil {
		return slices.Clone(catalog)
	}

	filtered := make([]Feature, 0)

	for _, f := range catalog {
		if f.Family == *family {
			filtered = append(filtered, f)
		}
	}

	return filtered
}

// IsBuiltin reports whether key is part of the built-in catalog.
// The permission matrix does not require keys to be built in.
func IsBuiltin(key string) bool {
	return slices.ContainsFunc(catalog, func(f Feature) bool {
		return string(f.Key) == key
	})
}

// OwnVariant returns the ownership-qualified key paired with a global key.
func OwnVariant(key Key) (Key, bool) {
	switch key {
	case EditUpdates:
		return EditOwnUpdates, true
	case DeleteUpdates:
		return DeleteOwnUpdates, true
	default:
		return "", false
	}
}
