package keyvault

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListAllFollowsNextLinks(t *testing.T) {
	client, fake := newFakeVaultClient(t)
	fake.SetPageSize(2)

	ctx := context.Background()
	const total = 7
	for i := 0; i < total; i++ {
		_, err := client.Secrets().Set(ctx, fmt.Sprintf("secret-%02d", i), "v", nil)
		require.NoError(t, err)
	}

	names, err := client.Secrets().List(ctx)
	require.NoError(t, err)
	require.Len(t, names, total)

	seen := make(map[string]bool, total)
	for i, name := range names {
		assert.Equal(t, fmt.Sprintf("secret-%02d", i), name, "encounter order must be preserved")
		assert.False(t, seen[name], "no duplicates across pages")
		seen[name] = true
	}
}

func TestListAllEmptyFirstPage(t *testing.T) {
	client, _ := newFakeVaultClient(t)

	names, err := client.Secrets().List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, names)
	assert.Empty(t, names)
}

func TestListAllSinglePage(t *testing.T) {
	client, fake := newFakeVaultClient(t)
	fake.SetPageSize(50)

	ctx := context.Background()
	_, err := client.Secrets().Set(ctx, "only", "v", nil)
	require.NoError(t, err)

	names, err := client.Secrets().List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"only"}, names)
}
