package mail

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	gomail "github.com/wneessen/go-mail"

	"github.com/joseph-ayodele/fineprint/internal/common"
)

// SMTPSender sends through one SMTP relay, one connection per batch.
type SMTPSender struct {
	client *gomail.Client
	from   string
	logger *slog.Logger
}

func NewSMTPSender(cfg common.MailConfig, logger *slog.Logger) (*SMTPSender, error) {
	if logger == nil {
		logger = slog.Default()
	}
	opts := []gomail.Option{
		gomail.WithPort(cfg.Port),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
	}
	if cfg.SendTimeout > 0 {
		opts = append(opts, gomail.WithTimeout(cfg.SendTimeout))
	}
	if cfg.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(cfg.Username),
			gomail.WithPassword(cfg.Password),
		)
	}
	client, err := gomail.NewClient(cfg.Server, opts...)
	if err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}
	return &SMTPSender{client: client, from: cfg.From, logger: logger}, nil
}

// Send skips messages that cannot be built and reports them in err alongside delivery failures.
func (s *SMTPSender) Send(ctx context.Context, msgs []Message) (int, error) {
	var (
		built []*gomail.Msg
		errs  []error
	)
	for _, m := range msgs {
		msg, err := s.build(m)
		if err != nil {
			errs = append(errs, fmt.Errorf("build mail to %s: %w", m.To, err))
			continue
		}
		built = append(built, msg)
	}
	if len(built) == 0 {
		return 0, errors.Join(errs...)
	}

	if err := s.client.DialAndSendWithContext(ctx, built...); err != nil {
		errs = append(errs, err)
	}
	sent := 0
	for _, msg := range built {
		if !msg.HasSendError() {
			sent++
		}
	}
	return sent, errors.Join(errs...)
}

func (s *SMTPSender) build(m Message) (*gomail.Msg, error) {
	msg := gomail.NewMsg()
	if err := msg.From(s.from); err != nil {
		return nil, err
	}
	if err := msg.To(m.To); err != nil {
		return nil, err
	}
	msg.Subject(m.Subject)
	msg.SetBodyString(gomail.TypeTextPlain, m.Body)
	return msg, nil
}
