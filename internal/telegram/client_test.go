package telegram

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/speedy-finance/bulkdeals/internal/scheduler"
)

func TestFormatReport(t *testing.T) {
	r := scheduler.Report{
		RunID:   "3b1f4c2a-0000-0000-0000-000000000000",
		Trigger: "daily",
		Date:    "2025-12-16",
		Sources: []scheduler.SourceResult{
			{Source: "nse-api", Fetched: 42},
			{Source: "bse-download", Err: errors.New("file missing")},
		},
		Added:    40,
		Duration: 1500 * time.Millisecond,
	}

	msg := formatReport(r)

	if !strings.Contains(msg, "with errors") {
		t.Error("a failed source should mark the report as errored")
	}
	if !strings.Contains(msg, "3b1f4c2a") {
		t.Error("message should carry the short run ID")
	}
	if !strings.Contains(msg, "42 fetched") {
		t.Error("message should carry per-source fetch counts")
	}
	if !strings.Contains(msg, "*40*") {
		t.Error("message should carry the added count")
	}
	if strings.Contains(msg, "2025-12-16") {
		t.Error("dots and dashes must be escaped for MarkdownV2")
	}
	if !strings.Contains(msg, `2025\-12\-16`) {
		t.Errorf("expected escaped date in %q", msg)
	}
}

func TestFormatReportCleanRun(t *testing.T) {
	r := scheduler.Report{
		RunID:   "abcd1234",
		Trigger: "manual",
		Date:    "2025-12-16",
		Sources: []scheduler.SourceResult{{Source: "nse-api", Fetched: 10}},
		Added:   10,
	}

	msg := formatReport(r)
	if strings.Contains(msg, "with errors") {
		t.Error("a clean run should not be marked as errored")
	}
}

func TestEscapeMarkdownV2(t *testing.T) {
	got := escapeMarkdownV2("a.b-c(d)")
	want := `a\.b\-c\(d\)`
	if got != want {
		t.Errorf("escapeMarkdownV2 = %q, want %q", got, want)
	}
}
