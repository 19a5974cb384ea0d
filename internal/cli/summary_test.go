package cli

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/mealsync/internal/engine"
)

func seedSpend(t *testing.T) *testEnv {
	t.Helper()
	env := newAuntyEnv(t)
	env.mustRun("vendor", "add", "Dabba Express", "--meal", "dinner=100")
	env.mustRun("meal", "log", "Aunty's Kitchen", "--type", "lunch", "--date", "2024-03-01", "--qty", "2")
	env.mustRun("meal", "log", "Dabba Express", "--type", "dinner", "--date", "2024-03-02")
	env.mustRun("meal", "log", "Aunty's Kitchen", "--type", "lunch", "--date", "2024-04-01")
	return env
}

func TestSummary_JSON(t *testing.T) {
	env := seedSpend(t)

	var sum engine.SpendSummary
	env.runJSON(&sum, "summary", "--month", "2024-03")

	assert.Equal(t, "2024-03-01", sum.Month.String())
	assert.Equal(t, 3, sum.TotalMeals)
	assert.True(t, decimal.NewFromInt(260).Equal(sum.TotalCost), sum.TotalCost.String())

	require.Len(t, sum.ByVendor, 2)
	assert.Equal(t, "Aunty's Kitchen", sum.ByVendor[0].Name)
	assert.Equal(t, 2, sum.ByVendor[0].Meals)
	assert.Equal(t, "Dabba Express", sum.ByVendor[1].Name)

	require.Len(t, sum.ByMealType, 2)
	assert.Equal(t, "lunch", sum.ByMealType[0].Name)
	assert.Equal(t, "dinner", sum.ByMealType[1].Name)
}

func TestSummary_TextUsesCurrentMonth(t *testing.T) {
	env := seedSpend(t)
	env.mustRun("month", "2024-04")

	out := env.mustRun("summary")
	assert.Contains(t, out, "April 2024")
	assert.Contains(t, out, "Meals: 1")
	assert.Contains(t, out, "80.00")
	assert.NotContains(t, out, "Dabba Express")
}

func TestSummary_EmptyMonth(t *testing.T) {
	env := newTestEnv(t)

	out := env.mustRun("summary", "--month", "2023-01")
	assert.Contains(t, out, "January 2023")
	assert.Contains(t, out, "Meals: 0")
	assert.NotContains(t, out, "By vendor")
}

func TestFormatMoney(t *testing.T) {
	assert.Equal(t, "$1,234.50", formatMoney(decimal.RequireFromString("1234.5"), "USD"))
	assert.Contains(t, formatMoney(decimal.NewFromInt(80), "INR"), "80.00")
	assert.Equal(t, "12.30 XXX-NOPE", formatMoney(decimal.RequireFromString("12.3"), "XXX-NOPE"))
}
