package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/mealsync/internal/client"
)

func TestMonthCommand(t *testing.T) {
	env := newTestEnv(t)

	out := env.mustRun("month", "2024-02-29")
	assert.Equal(t, "February 2024\n", out)
	assert.Equal(t, "2024-02-01", env.store.CurrentMonth().String())

	var got map[string]string
	env.runJSON(&got, "month")
	assert.Equal(t, "2024-02-01", got["month"])

	_, _, err := env.run("month", "soon")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestActivityCommand(t *testing.T) {
	env := newAuntyEnv(t)
	env.mustRun("meal", "log", "Aunty's Kitchen", "--type", "lunch", "--date", "2024-03-01")

	out := env.mustRun("activity")
	assert.Contains(t, out, "Lunch received from Aunty's Kitchen")
	assert.Contains(t, out, `Added new vendor: "Aunty's Kitchen"`)

	out = env.mustRun("activity", "-n", "1")
	assert.Contains(t, out, "Lunch received from Aunty's Kitchen")
	assert.NotContains(t, out, "Added new vendor")
}

func TestActivityCommand_Empty(t *testing.T) {
	env := newTestEnv(t)
	assert.Equal(t, "No activity yet.\n", env.mustRun("activity"))
}

func TestOnboardCommand(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun("vendor", "add", "Aunty's Kitchen", "--meal", "lunch=70")

	var res OnboardResult
	env.runJSON(&res, "onboard", "../catalog/testdata/office.yaml")
	require.Len(t, res.Added, 1)
	assert.Equal(t, "Dabba Express", res.Added[0].Name)
	assert.Equal(t, []string{"Aunty's Kitchen"}, res.Skipped)
	assert.True(t, env.store.OnboardingCompleted())
	assert.Len(t, env.store.Vendors(), 2)

	out := env.mustRun("onboard", "../catalog/testdata/office.cue")
	assert.Contains(t, out, "already completed")
	assert.Len(t, env.store.Vendors(), 2)
}

func TestOnboardCommand_InvalidCatalog(t *testing.T) {
	env := newTestEnv(t)

	_, _, err := env.run("onboard", "../catalog/testdata/missing.yaml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.False(t, env.store.OnboardingCompleted())
}

func TestResetCommand(t *testing.T) {
	env := newAuntyEnv(t)
	env.mustRun("meal", "log", "Aunty's Kitchen", "--type", "lunch", "--date", "2024-03-01")

	_, _, err := env.run("reset")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Len(t, env.store.Vendors(), 1)

	env.mustRun("reset", "--yes")
	assert.Empty(t, env.store.Vendors())
	assert.Empty(t, env.store.MealLogs())
	assert.Empty(t, env.store.Activities())
}

func TestTokenCommand(t *testing.T) {
	env := newTestEnv(t)

	out := env.mustRun("token", "alice", "--jwt-secret", "s3cret", "--ttl", "1h")
	identity, err := client.IdentityFromToken(out[:len(out)-1])
	require.NoError(t, err)
	assert.Equal(t, "alice", identity)
}

func TestTokenCommand_NoSecret(t *testing.T) {
	env := newTestEnv(t)
	t.Setenv("MEALSYNC_JWT_SECRET", "")

	_, _, err := env.run("token", "alice")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
