package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/mealsync/internal/engine"
	"github.com/roach88/mealsync/internal/testutil"
)

// testEnv runs CLI commands against one in-memory store shared across
// invocations.
type testEnv struct {
	t     *testing.T
	store *engine.Store
}

func newTestEnv(t *testing.T, opts ...engine.Option) *testEnv {
	t.Helper()
	t.Setenv("MEALSYNC_TOKEN", "")
	t.Setenv("MEALSYNC_CURRENCY", "INR")

	base := []engine.Option{
		engine.WithIDGenerator(engine.NewSequenceGenerator("id")),
		engine.WithClock(testutil.NewClock(testutil.Epoch, time.Minute)),
		engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}
	st := engine.New(testutil.MemoryLocal(), append(base, opts...)...)
	require.NoError(t, st.Hydrate(context.Background()))
	return &testEnv{t: t, store: st}
}

// run executes the root command with args and returns stdout and stderr.
func (e *testEnv) run(args ...string) (string, string, error) {
	e.t.Helper()
	opts := &RootOptions{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		OpenStore: func(context.Context, *RootOptions) (*engine.Store, error) {
			return e.store, nil
		},
	}
	cmd := newRootCommand(opts)
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

// mustRun is run that fails the test on error.
func (e *testEnv) mustRun(args ...string) string {
	e.t.Helper()
	stdout, stderr, err := e.run(args...)
	require.NoError(e.t, err, "stderr: %s", stderr)
	return stdout
}

// runJSON executes args with --format json and decodes the data payload
// into v.
func (e *testEnv) runJSON(v interface{}, args ...string) {
	e.t.Helper()
	stdout := e.mustRun(append([]string{"--format", "json"}, args...)...)
	var resp struct {
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
	}
	require.NoError(e.t, json.Unmarshal([]byte(stdout), &resp), stdout)
	require.Equal(e.t, "ok", resp.Status)
	require.NoError(e.t, json.Unmarshal(resp.Data, v))
}

func (e *testEnv) activities() []string {
	var out []string
	for _, a := range e.store.Activities() {
		out = append(out, a.Description)
	}
	return out
}
