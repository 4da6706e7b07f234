// Package notifier composes and sends the job-start/success/failure
// summary email and renders the step-status table, both for the
// notification body and for console output.
package notifier

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jobdag/jobdag/internal/mailer"
	"github.com/jobdag/jobdag/internal/scheduler"
)

// Config carries the mail addressing the notifier needs; MailTo receives
// success notifications, MailToFail is added for failure notifications,
// matching spec.md §4.5's union rule.
type Config struct {
	From            string
	MailTo          []string
	MailToFail      []string
	SuppressSuccess bool
	Relay           mailer.Config
}

// Notifier sends job-level notification email.
type Notifier struct {
	cfg Config
}

func New(cfg Config) *Notifier {
	return &Notifier{cfg: cfg}
}

// NotifyStart sends the job-start notification, if MailTo is configured.
func (n *Notifier) NotifyStart(runID string, startedAt time.Time) error {
	if len(n.cfg.MailTo) == 0 {
		return nil
	}
	subject := fmt.Sprintf("[jobdag %s] started", runID)
	body := fmt.Sprintf("Job %s started at %s\n", runID, startedAt.Format(time.RFC1123))
	return n.send(n.cfg.MailTo, subject, body)
}

// NotifyFinish sends the job-completion notification, per spec.md §4.5:
// failure always notifies (mail_to ∪ mail_to_fail); success notifies
// unless SuppressSuccess (--no_success_email) is set.
func (n *Notifier) NotifyFinish(runID string, outcome scheduler.JobOutcome, results []scheduler.Result, startedAt time.Time) error {
	success := outcome == scheduler.JobSuccess
	if success && n.cfg.SuppressSuccess {
		return nil
	}

	recipients := n.cfg.MailTo
	if !success {
		recipients = union(n.cfg.MailTo, n.cfg.MailToFail)
	}
	if len(recipients) == 0 {
		return nil
	}

	subject := fmt.Sprintf("[jobdag %s] %s", runID, outcome)
	body := RenderConsole(runID, outcome, results, startedAt)
	return n.send(recipients, subject, body)
}

func (n *Notifier) send(to []string, subject, body string) error {
	client := mailer.New(n.cfg.Relay)
	return mailer.Send(client, n.cfg.From, to, subject, body, "")
}

func union(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	var out []string
	for _, list := range [][]string{a, b} {
		for _, v := range list {
			if v != "" && !seen[v] {
				seen[v] = true
				out = append(out, v)
			}
		}
	}
	return out
}

// RenderConsole renders the job summary and per-step table as plain text,
// shared by the notification email body and terminal output, matching the
// original job runner's two-tier print_results report.
func RenderConsole(runID string, outcome scheduler.JobOutcome, results []scheduler.Result, startedAt time.Time) string {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Run:      %s\n", runID)
	fmt.Fprintf(&buf, "Outcome:  %s\n", outcome)
	fmt.Fprintf(&buf, "Started:  %s\n", startedAt.Format(time.RFC1123))
	fmt.Fprintf(&buf, "Duration: %s\n\n", time.Since(startedAt).Round(time.Millisecond))

	t := table.NewWriter()
	t.SetOutputMirror(&buf)
	t.AppendHeader(table.Row{"Step", "Status", "Exit", "Started", "Finished", "Error"})
	for _, r := range results {
		errText := ""
		if r.Err != nil {
			errText = r.Err.Error()
		}
		t.AppendRow(table.Row{r.Key, r.Status.String(), r.ExitCode, formatTime(r.StartedAt), formatTime(r.FinishedAt), errText})
	}
	t.Render()

	return buf.String()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("15:04:05")
}
