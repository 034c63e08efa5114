// Package email renders and delivers console notification mail.
//
// Templates are HTML files named "<name>.html" with {{key}} placeholders.
// Defaults are embedded in the binary; EMAIL_TEMPLATES_DIR overlays them and
// is watched for changes. subjects.yaml maps template names to default
// subjects.
//
// Sender renders and sends synchronously through a Transport (SMTP via
// go-mail, or LogTransport for dry runs). Queue wraps a Sender with a bounded
// worker pool for best-effort background delivery:
//
//	store, _ := email.NewTemplateStore(cfg.Email.TemplatesDir, logger)
//	transport, _ := email.NewSMTPTransport(email.SMTPConfig{Host: "smtp.example.com", Port: 587})
//	sender := email.NewSender(store, transport, "noreply@example.com", logger, metrics)
//	queue := email.NewQueue(ctx, sender, email.QueueConfig{Workers: 2, Size: 100}, logger, metrics)
//	defer queue.Shutdown(10 * time.Second)
//
//	queue.Enqueue(ctx, email.Message{To: "a@example.com", Template: email.TemplateUserApproved})
package email
