package cmd

import (
	"bytes"
	"context"
	"flag"
	"strings"
	"testing"

	"github.com/etnz/backtest"
	"github.com/etnz/backtest/api"
	"github.com/etnz/backtest/apitest"
	"github.com/google/go-cmp/cmp"
	"github.com/google/subcommands"
)

// setup points the global flags to a fake API and captures the output.
func setup(t *testing.T) (*apitest.Server, *bytes.Buffer) {
	t.Helper()
	srv := apitest.NewServer()
	t.Cleanup(srv.Close)

	for name, value := range map[string]string{"api-url": srv.URL, "raw": "true", "config": ""} {
		old := flag.CommandLine.Lookup(name).Value.String()
		if err := flag.CommandLine.Set(name, value); err != nil {
			t.Fatal(err)
		}
		t.Cleanup(func() { flag.CommandLine.Set(name, old) })
	}
	t.Setenv(EnvConfig, "")

	var buf bytes.Buffer
	old := stdout
	stdout = &buf
	t.Cleanup(func() { stdout = old })
	return srv, &buf
}

func run(t *testing.T, c subcommands.Command, args ...string) subcommands.ExitStatus {
	t.Helper()
	fs := flag.NewFlagSet(c.Name(), flag.ContinueOnError)
	c.SetFlags(fs)
	if err := fs.Parse(args); err != nil {
		t.Fatalf("Parse(%v) unexpected error = %v", args, err)
	}
	return c.Execute(context.Background(), fs)
}

func TestStatusCmd(t *testing.T) {
	srv, out := setup(t)
	srv.SetStatuses("7", backtest.Snapshot{"42": backtest.Running, "43": backtest.Completed})
	srv.Fail("8", 500)

	if got := run(t, &statusCmd{}, "7", "8"); got != subcommands.ExitFailure {
		t.Errorf("status = %v, want ExitFailure for the failing portfolio", got)
	}
	for _, want := range []string{"portfolio 7", "running", "completed", "portfolio 8", "Last refresh failed"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output misses %q:\n%s", want, out)
		}
	}
}

func TestExecuteCmd_NoWatch(t *testing.T) {
	srv, out := setup(t)
	srv.SetStatuses("7", backtest.Snapshot{"42": backtest.Created})

	if got := run(t, &executeCmd{}, "-no-watch", "7", "42"); got != subcommands.ExitSuccess {
		t.Fatalf("execute = %v, want ExitSuccess", got)
	}
	if diff := cmp.Diff([]string{"42"}, srv.Executed()); diff != "" {
		t.Errorf("Executed() mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(out.String(), "Backtest 42 queued") {
		t.Errorf("output = %q", out)
	}
}

func TestExecuteCmd_Usage(t *testing.T) {
	setup(t)
	if got := run(t, &executeCmd{}, "7"); got != subcommands.ExitUsageError {
		t.Errorf("execute without backtest = %v, want ExitUsageError", got)
	}
}

func TestDetailCmd_Field(t *testing.T) {
	srv, out := setup(t)
	srv.SetDetail("42", api.Detail{HistoryID: "42", Name: "Momentum"})

	if got := run(t, &detailCmd{}, "-field", "$.name", "42"); got != subcommands.ExitSuccess {
		t.Fatalf("detail = %v, want ExitSuccess", got)
	}
	if got := strings.TrimSpace(out.String()); got != `"Momentum"` {
		t.Errorf("detail -field = %s, want \"Momentum\"", got)
	}
}

func TestDetailCmd_BadField(t *testing.T) {
	srv, _ := setup(t)
	srv.SetDetail("42", api.Detail{Name: "Momentum"})

	if got := run(t, &detailCmd{}, "-field", "$.nope", "42"); got != subcommands.ExitFailure {
		t.Errorf("detail with an unknown field = %v, want ExitFailure", got)
	}
}

func TestCreateCmd_Execute(t *testing.T) {
	srv, out := setup(t)

	if got := run(t, &createCmd{}, "-title", "Q1", "-range", "2025-01-01..2025-03-31", "7"); got != subcommands.ExitSuccess {
		t.Fatalf("create = %v, want ExitSuccess", got)
	}
	created := srv.Created()
	if len(created) != 1 || created[0].Title != "Q1" || created[0].StartAt != "2025-01-01T00:00:00" {
		t.Errorf("Created() = %+v", created)
	}
	if !strings.Contains(out.String(), "created") {
		t.Errorf("output = %q", out)
	}
}

func TestCompletion(t *testing.T) {
	c := Completion()
	for _, name := range []string{"portfolios", "portfolio", "add-portfolio", "status", "list", "detail", "create", "execute", "watch", "prices", "search", "assist", "chat", "topic", "help"} {
		if _, ok := c.Sub[name]; !ok {
			t.Errorf("completion misses subcommand %q", name)
		}
	}
	if _, ok := c.Sub["detail"].Flags["field"]; !ok {
		t.Errorf("completion misses detail -field")
	}
	if _, ok := c.Sub["chat"].Flags["category"]; !ok {
		t.Errorf("completion misses chat -category")
	}
	if _, ok := c.Flags["api-url"]; !ok {
		t.Errorf("completion misses the global -api-url")
	}
}
