// console-mailer sends a single console email and exits. It renders the
// same templates the console uses, so operators can resend a notification
// or check SMTP settings from the command line.
//
//	console-mailer --to ops@example.com --template userApproved --data firstName=Ada
//	echo '{"to":"ops@example.com","template":"adminNotification","data":{...}}' | console-mailer --json
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/pflag"

	"github.com/memcrypt/console/pkg/config"
	"github.com/memcrypt/console/pkg/email"
	"github.com/memcrypt/console/pkg/observability"
)

type options struct {
	to        string
	subject   string
	template  string
	data      []string
	fromStdin bool
	dryRun    bool
}

func main() {
	if err := run(os.Args[1:], os.Stdin); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "Failed to send email: %v\n", err)
		os.Exit(1)
	}
	fmt.Fprintln(os.Stdout, "Email sent successfully")
}

func run(args []string, stdin io.Reader) error {
	var opts options

	flagSet := pflag.NewFlagSet("console-mailer", pflag.ContinueOnError)
	flagSet.StringVar(&opts.to, "to", "", "recipient address")
	flagSet.StringVar(&opts.subject, "subject", "", "subject line (default: the template's subject)")
	flagSet.StringVarP(&opts.template, "template", "t", "", "template name")
	flagSet.StringArrayVarP(&opts.data, "data", "d", nil, "template value as key=value (repeatable)")
	flagSet.BoolVar(&opts.fromStdin, "json", false, "read the message as JSON from stdin")
	flagSet.BoolVar(&opts.dryRun, "dry-run", false, "render and log the message instead of sending it")

	if err := flagSet.Parse(args); err != nil {
		return err
	}

	msg, err := buildMessage(opts, stdin)
	if err != nil {
		return err
	}

	cfg, err := config.LoadMailerConfig(opts.dryRun)
	if err != nil {
		return err
	}
	logger := observability.NewLogger(cfg.LogLevel, os.Stderr).WithField("service", "console-mailer")

	store, err := email.NewTemplateStore(cfg.Email.TemplatesDir, logger)
	if err != nil {
		return err
	}

	var transport email.Transport = email.LogTransport{Logger: logger}
	if !opts.dryRun {
		transport, err = email.NewSMTPTransport(email.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			SSL:      cfg.SMTP.SSL,
			Username: cfg.SMTP.User,
			Password: cfg.SMTP.Password,
			Timeout:  cfg.SMTP.SendTimeout,
		})
		if err != nil {
			return err
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.SMTP.SendTimeout)
	defer cancel()

	return email.NewSender(store, transport, cfg.SMTP.From, logger, nil).Send(ctx, msg)
}

// buildMessage assembles the message from flags, or from stdin with --json.
// Flags given alongside --json override the decoded fields.
func buildMessage(opts options, stdin io.Reader) (email.Message, error) {
	var msg email.Message

	if opts.fromStdin {
		if err := json.NewDecoder(stdin).Decode(&msg); err != nil {
			return msg, fmt.Errorf("decode message: %w", err)
		}
	}

	if opts.to != "" {
		msg.To = opts.to
	}
	if opts.subject != "" {
		msg.Subject = opts.subject
	}
	if opts.template != "" {
		msg.Template = opts.template
	}
	if len(opts.data) > 0 && msg.Data == nil {
		msg.Data = make(map[string]string, len(opts.data))
	}
	for _, kv := range opts.data {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			return msg, fmt.Errorf("invalid --data %q, want key=value", kv)
		}
		msg.Data[key] = value
	}

	if msg.To == "" {
		return msg, errors.New("a recipient is required (--to)")
	}
	if msg.Template == "" {
		return msg, errors.New("a template is required (--template)")
	}
	return msg, nil
}
