package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/dmitrijs2005/chapterhub/internal/client/client"
	"github.com/dmitrijs2005/chapterhub/internal/common"
)

// getSimpleText and getPassword are swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

func (a *App) credentials() (string, []byte, error) {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return "", nil, err
	}
	password, err := getPassword(a.out)
	if err != nil {
		return "", nil, err
	}
	return email, password, nil
}

// Status prints the migration state of args[0], prompting when absent.
func (a *App) Status(ctx context.Context, args []string) error {
	var email string
	if len(args) > 0 {
		email = args[0]
	} else {
		var err error
		if email, err = getSimpleText(a.reader, "Enter email", a.out); err != nil {
			return err
		}
	}

	st, err := a.api.MigrationStatus(ctx, email)
	if err != nil {
		return err
	}

	state := "unknown to the legacy store"
	switch {
	case st.IsLegacyUser && st.Migrated:
		state = "migrated"
	case st.IsLegacyUser:
		state = "pending migration"
	}
	fmt.Fprintf(a.out, "%s: %s\n", st.Email, state)
	return nil
}

// Migrate runs migrate-login. An already migrated account is told to use
// login instead.
func (a *App) Migrate(ctx context.Context) error {
	email, password, err := a.credentials()
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	res, err := a.api.MigrateLogin(ctx, email, password)
	if err != nil {
		return err
	}

	switch {
	case res.AlreadyMigrated:
		fmt.Fprintf(a.out, "%s (use 'login')\n", res.Message)
	case res.RequiresLogin:
		fmt.Fprintf(a.out, "Migrated %s; no session was opened, use 'login'\n", res.User.Email)
	default:
		a.setEmail(res.User.Email)
		fmt.Fprintf(a.out, "Migrated %s, session %s expires %s\n",
			res.User.Email, res.Session.ID, res.Session.ExpiresAt.Format("2006-01-02 15:04"))
	}
	return nil
}

func (a *App) Login(ctx context.Context) error {
	email, password, err := a.credentials()
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	info, err := a.api.SignIn(ctx, email, password)
	if err != nil {
		return err
	}
	a.setEmail(info.User.Email)
	fmt.Fprintf(a.out, "Signed in as %s\n", info.User.Email)
	return nil
}

func (a *App) WhoAmI(ctx context.Context) error {
	info, err := a.api.Session(ctx)
	if errors.Is(err, client.ErrUnauthorized) {
		fmt.Fprintln(a.out, "Not signed in")
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s (%s), session %s expires %s\n",
		info.User.Email, info.User.Role, info.Session.ID, info.Session.ExpiresAt.Format("2006-01-02 15:04"))
	return nil
}

func (a *App) Logout(ctx context.Context) error {
	if err := a.api.SignOut(ctx); err != nil {
		return err
	}
	a.setEmail("")
	fmt.Fprintln(a.out, "Signed out")
	return nil
}

func (a *App) Flags(ctx context.Context) error {
	fs, err := a.api.FeatureFlags(ctx)
	if err != nil {
		return err
	}
	for _, name := range []string{"legacyMigration", "modernAuth"} {
		fmt.Fprintf(a.out, "%-16s %t\n", name, fs.Flags[name])
	}
	for _, w := range fs.Validation.Warnings {
		fmt.Fprintf(a.out, "warning: %s\n", w)
	}
	return nil
}

// Metrics prints the snapshot, or the computed rates with "detailed".
func (a *App) Metrics(ctx context.Context, args []string) error {
	detailed := len(args) > 0 && args[0] == "detailed"
	raw, err := a.api.Metrics(ctx, detailed)
	if err != nil {
		return err
	}
	return a.printJSON(raw)
}

func (a *App) Timeseries(ctx context.Context, args []string) error {
	var hours int
	if len(args) > 0 {
		h, err := strconv.Atoi(args[0])
		if err != nil || h <= 0 {
			return fmt.Errorf("hours must be a positive number, got %q", args[0])
		}
		hours = h
	}

	ts, err := a.api.Timeseries(ctx, hours)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%d snapshot(s), last %d hour(s)\n", len(ts.TimeSeries), ts.HoursBack)
	for _, p := range ts.TimeSeries {
		if err := a.printJSON(p); err != nil {
			return err
		}
	}
	return nil
}

func (a *App) Stats(ctx context.Context) error {
	raw, err := a.api.SecurityStats(ctx)
	if err != nil {
		return err
	}
	return a.printJSON(raw)
}

// Health reports the HTTP probe and the gRPC serving status side by side.
func (a *App) Health(ctx context.Context) error {
	h, err := a.api.Health(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "http: %s\n", h.Status)
	for _, w := range h.Validation.Warnings {
		fmt.Fprintf(a.out, "warning: %s\n", w)
	}

	serving, err := a.health.Check(ctx, authService)
	switch {
	case err != nil:
		fmt.Fprintf(a.out, "grpc: %v\n", err)
	case serving:
		fmt.Fprintln(a.out, "grpc: SERVING")
	default:
		fmt.Fprintln(a.out, "grpc: NOT_SERVING")
	}
	return nil
}

func (a *App) printJSON(raw json.RawMessage) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return err
	}
	buf.WriteByte('\n')
	_, err := a.out.Write(buf.Bytes())
	return err
}
