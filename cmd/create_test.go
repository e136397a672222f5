package cmd

import (
	"flag"
	"testing"

	"github.com/etnz/backtest/api"
	"github.com/etnz/backtest/date"
	"github.com/google/go-cmp/cmp"
)

func TestCreateCmd_Request(t *testing.T) {
	today := date.New(2025, 5, 14)
	tests := []struct {
		name      string
		args      []string
		wantTitle string
		wantStart string
		wantEnd   string
		wantErr   bool
	}{
		{
			name:      "previous quarter by default",
			wantTitle: "Backtest 2025-Q1",
			wantStart: "2025-01-01T00:00:00",
			wantEnd:   "2025-03-31T23:59:59",
		},
		{
			name:      "month of a date",
			args:      []string{"-p", "month", "-d", "2024-02-10", "-title", "Feb"},
			wantTitle: "Feb",
			wantStart: "2024-02-01T00:00:00",
			wantEnd:   "2024-02-29T23:59:59",
		},
		{
			name:      "explicit range",
			args:      []string{"-range", "2024-01-15..2024-06-30"},
			wantTitle: "Backtest 2024-01-15_2024-06-30",
			wantStart: "2024-01-15T00:00:00",
			wantEnd:   "2024-06-30T23:59:59",
		},
		{name: "bad period", args: []string{"-p", "decade"}, wantErr: true},
		{name: "bad range", args: []string{"-range", "2024-06-30..2024-01-01"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &createCmd{}
			fs := flag.NewFlagSet("create", flag.ContinueOnError)
			c.SetFlags(fs)
			if err := fs.Parse(tt.args); err != nil {
				t.Fatalf("Parse() unexpected error = %v", err)
			}
			req, err := c.request(today)
			if (err != nil) != tt.wantErr {
				t.Fatalf("request() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if req.Title != tt.wantTitle || req.StartAt != tt.wantStart || req.EndAt != tt.wantEnd {
				t.Errorf("request() = %q %q %q, want %q %q %q", req.Title, req.StartAt, req.EndAt, tt.wantTitle, tt.wantStart, tt.wantEnd)
			}
		})
	}
}

func TestCreateCmd_Rules(t *testing.T) {
	c := &createCmd{}
	fs := flag.NewFlagSet("create", flag.ContinueOnError)
	c.SetFlags(fs)
	args := []string{"-stop-loss", "LOSS_RATE=-10:cut losses", "-stop-loss", "VOLATILITY=30", "-take-profit", "PROFIT_RATE=20", "-memo", "m"}
	if err := fs.Parse(args); err != nil {
		t.Fatalf("Parse() unexpected error = %v", err)
	}
	req, err := c.request(date.New(2025, 5, 14))
	if err != nil {
		t.Fatalf("request() unexpected error = %v", err)
	}
	want := api.Rules{
		Memo: "m",
		StopLoss: []api.Rule{
			{Category: "LOSS_RATE", Threshold: "-10", Description: "cut losses"},
			{Category: "VOLATILITY", Threshold: "30"},
		},
		TakeProfit: []api.Rule{{Category: "PROFIT_RATE", Threshold: "20"}},
	}
	if diff := cmp.Diff(want, req.Rules); diff != "" {
		t.Errorf("rules mismatch (-want +got):\n%s", diff)
	}

	if err := fs.Parse([]string{"-stop-loss", "nothreshold"}); err == nil {
		t.Errorf("Parse() accepted a rule without threshold")
	}
}
