package cli

import (
	"bufio"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExec struct {
	calls []string
	args  [][]string
}

func (f *fakeExec) record(name string, args []string) error {
	f.calls = append(f.calls, name)
	f.args = append(f.args, args)
	return nil
}

func (f *fakeExec) Status(_ context.Context, args []string) error { return f.record("status", args) }
func (f *fakeExec) Migrate(context.Context) error                  { return f.record("migrate", nil) }
func (f *fakeExec) Login(context.Context) error                    { return f.record("login", nil) }
func (f *fakeExec) WhoAmI(context.Context) error                   { return f.record("whoami", nil) }
func (f *fakeExec) Logout(context.Context) error                   { return f.record("logout", nil) }
func (f *fakeExec) Flags(context.Context) error                    { return f.record("flags", nil) }
func (f *fakeExec) Metrics(_ context.Context, args []string) error { return f.record("metrics", args) }
func (f *fakeExec) Timeseries(_ context.Context, args []string) error {
	return f.record("timeseries", args)
}
func (f *fakeExec) Stats(context.Context) error  { return f.record("stats", nil) }
func (f *fakeExec) Health(context.Context) error { return f.record("health", nil) }

func silence(t *testing.T) *[]string {
	t.Helper()
	var printed []string
	orig := printlnFn
	printlnFn = func(a ...any) (int, error) {
		parts := make([]string, len(a))
		for i, v := range a {
			parts[i] = strings.TrimSpace(strings.ReplaceAll(strings.TrimSpace(toString(v)), "\n", " "))
		}
		printed = append(printed, strings.Join(parts, " "))
		return 0, nil
	}
	t.Cleanup(func() { printlnFn = orig })
	return &printed
}

func toString(v any) string {
	if err, ok := v.(error); ok {
		return err.Error()
	}
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

func TestRunREPL_Dispatch(t *testing.T) {
	printed := silence(t)

	input := strings.Join([]string{
		"help",
		"status a@x.org",
		"",
		"migrate",
		"metrics detailed",
		"timeseries 12",
		"frobnicate",
		"health",
		"exit",
		"login",
	}, "\n")

	exec := &fakeExec{}
	runREPL(context.Background(), exec, func() string { return "online" }, bufio.NewReader(strings.NewReader(input)))

	assert.Equal(t, []string{"status", "migrate", "metrics", "timeseries", "health"}, exec.calls)
	assert.Equal(t, []string{"a@x.org"}, exec.args[0])
	assert.Equal(t, []string{"detailed"}, exec.args[2])
	assert.Equal(t, []string{"12"}, exec.args[3])

	out := strings.Join(*printed, "\n")
	assert.Contains(t, out, "authctl (online) >")
	assert.Contains(t, out, helpText)
	assert.Contains(t, out, "error: unknown command: frobnicate")
	assert.Contains(t, out, "Bye!")
}

func TestRunREPL_LastLineWithoutNewline(t *testing.T) {
	silence(t)

	exec := &fakeExec{}
	runREPL(context.Background(), exec, func() string { return "" }, bufio.NewReader(strings.NewReader("flags\nstats")))
	assert.Equal(t, []string{"flags", "stats"}, exec.calls)
}

func TestDispatch(t *testing.T) {
	silence(t)
	exec := &fakeExec{}
	ctx := context.Background()

	quit, err := dispatch(ctx, exec, "whoami", nil)
	require.NoError(t, err)
	assert.False(t, quit)

	quit, err = dispatch(ctx, exec, "quit", nil)
	require.NoError(t, err)
	assert.True(t, quit)

	_, err = dispatch(ctx, exec, "nope", nil)
	assert.ErrorIs(t, err, errUnknownCommand)

	assert.Equal(t, []string{"whoami"}, exec.calls)
}
