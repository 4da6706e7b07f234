package executor

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jobdag/jobdag/internal/jobspec"
	"github.com/jobdag/jobdag/internal/mailer"
	"github.com/jobdag/jobdag/internal/variables"
	"github.com/mitchellh/mapstructure"
)

func init() {
	Register(jobspec.StepSendMail, newMailExecutor)
}

// mailDetail is the typed shape of a send_mail step's Detail map, matching
// original_source/src/job_control/jobs.py's send_mail(mail_to, mail_from,
// mail_subject, mail_body) parameters.
type mailDetail struct {
	To      string `mapstructure:"mail_to"`
	From    string `mapstructure:"mail_from"`
	Subject string `mapstructure:"mail_subject"`
	Body    string `mapstructure:"mail_body"`
}

// mailExecutor sends a single email as a step, distinct from the
// job-level notifier: this is the in-job "send_mail" task type.
type mailExecutor struct {
	detail mailDetail
	relay  string
	stdout io.Writer
}

func newMailExecutor(step *jobspec.Step, env variables.Environment) (Executor, error) {
	var detail mailDetail
	if err := mapstructure.Decode(step.Detail, &detail); err != nil {
		return nil, fmt.Errorf("send_mail step %q: decoding detail: %w", step.Key, err)
	}
	if strings.TrimSpace(detail.To) == "" {
		return nil, fmt.Errorf("send_mail step %q: detail.mail_to is required", step.Key)
	}
	relay := env["smtp_relay"]
	if relay == "" {
		relay = "localhost"
	}
	return &mailExecutor{detail: detail, relay: relay}, nil
}

func splitMailTo(s string) []string {
	var out []string
	for _, addr := range strings.Split(s, ",") {
		addr = strings.TrimSpace(addr)
		if addr != "" {
			out = append(out, addr)
		}
	}
	return out
}

func (m *mailExecutor) SetStdout(w io.Writer) { m.stdout = w }
func (m *mailExecutor) SetStderr(io.Writer)   {}

func (m *mailExecutor) Run(ctx context.Context) (int, error) {
	to := splitMailTo(m.detail.To)
	client := mailer.New(mailer.Config{Host: m.relay, Port: "25"})
	if err := mailer.Send(client, m.detail.From, to, m.detail.Subject, m.detail.Body, ""); err != nil {
		if m.stdout != nil {
			fmt.Fprintf(m.stdout, "send_mail failed: %v\n", err)
		}
		return 1, nil
	}
	if m.stdout != nil {
		fmt.Fprintf(m.stdout, "mail sent to %v\n", to)
	}
	return 0, nil
}

func (m *mailExecutor) Kill(os.Signal) error { return nil }
