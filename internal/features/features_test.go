package features

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAll(t *testing.T) {
	require.Len(t, All(nil), 7)

	own := FamilyOwn
	ownFeatures := All(&own)
	require.Len(t, ownFeatures, 2)

	for _, f := range ownFeatures {
		require.Equal(t, FamilyOwn, f.Family)
	}
}

func TestIsBuiltin(t *testing.T) {
	require.True(t, IsBuiltin("modify_case_status"))
	require.False(t, IsBuiltin("launch_rockets"))
}

func TestOwnVariant(t *testing.T) {
	key, ok := OwnVariant(EditUpdates)
	require.True(t, ok)
	require.Equal(t, EditOwnUpdates, key)

	key, ok = OwnVariant(DeleteUpdates)
	require.True(t, ok)
	require.Equal(t, DeleteOwnUpdates, key)

	_, ok = OwnVariant(ModifyCaseStatus)
	require.False(t, ok)
}
