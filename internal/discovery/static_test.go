package discovery

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idlens/internal/identity/models"
)

func TestStaticClient(t *testing.T) {
	ctx := context.Background()
	c := NewStaticClient(DemoRecords(testKey), 0)

	t.Run("key lookup matches subject", func(t *testing.T) {
		got, err := c.ResolveByKey(ctx, testKey, "Discover Identity Key")
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "Alice", got[0].Field("firstName"))

		none, err := c.ResolveByKey(ctx, "02"+testKey[2:len(testKey)-1]+"0", "Discover Identity Key")
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("attribute lookup is case-insensitive substring", func(t *testing.T) {
		got, err := c.ResolveByAttributes(ctx, Attributes{Any: "ALI"}, "Search for identities")
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "identi", got[0].Type)
		assert.Equal(t, "x", got[1].Type)

		byCertifier, err := c.ResolveByAttributes(ctx, Attributes{Any: "socialcert"}, "Search for identities")
		require.NoError(t, err)
		assert.Len(t, byCertifier, 3)
	})

	t.Run("empty needle matches nothing", func(t *testing.T) {
		got, err := c.ResolveByAttributes(ctx, Attributes{}, "Search for identities")
		require.NoError(t, err)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})

	t.Run("added records are searchable", func(t *testing.T) {
		c := NewStaticClient(nil, 0)
		c.Add(models.RawRecord{Type: "phone", Subject: testKey, DecryptedFields: map[string]string{"phoneNumber": "+15550100"}})
		got, err := c.ResolveByAttributes(ctx, Attributes{Any: "555"}, "Search for identities")
		require.NoError(t, err)
		assert.Len(t, got, 1)
	})

	t.Run("latency honours cancellation", func(t *testing.T) {
		slow := NewStaticClient(DemoRecords(testKey), time.Hour)
		cctx, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
		defer cancel()
		_, err := slow.ResolveByKey(cctx, testKey, "Discover Identity Key")
		assert.Equal(t, CategoryTimeout, CategoryOf(err))
	})
}

func TestDemoRecords_SubjectsAreIdentityKeys(t *testing.T) {
	for _, rec := range DemoRecords(testKey) {
		assert.Len(t, rec.Subject, 66, rec.Type)
	}
}
