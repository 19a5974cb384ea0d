package testutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/mealsync/internal/model"
)

func TestFixtures(t *testing.T) {
	v := Vendor("Aunty's Kitchen", Offering(model.Lunch, "80"))
	require.NoError(t, model.ValidateVendor(v))
	o, ok := v.Offering(model.Lunch)
	require.True(t, ok)
	assert.Equal(t, "80", o.Price.String())

	e := Entry(model.Lunch, "2024-03-01", 2)
	assert.False(t, e.Price.Valid)
	require.NoError(t, model.ValidateEntry(e, false))

	p := PricedEntry(model.Dinner, "2024-03-01", 1, "99.50")
	assert.True(t, p.Price.Valid)
	assert.Equal(t, "99.5", p.Price.Decimal.String())
}

func TestMemoryLocal_StartsEmpty(t *testing.T) {
	_, found, err := MemoryLocal().Load(context.Background())
	require.NoError(t, err)
	assert.False(t, found)
}
