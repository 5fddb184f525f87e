package mail

import (
	"context"
	"log/slog"
)

// LogDispatcher writes mails to the log instead of sending them. Used in dev
// so codes can be read off stdout.
type LogDispatcher struct {
	log *slog.Logger
}

func NewLogDispatcher(log *slog.Logger) *LogDispatcher {
	if log == nil {
		log = slog.Default()
	}
	return &LogDispatcher{log: log}
}

func (d *LogDispatcher) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	rendered, err := Render(msg)
	if err != nil {
		return err
	}

	d.log.InfoContext(ctx, "mail_logged",
		"kind", string(msg.Kind),
		"to", msg.To,
		"subject", rendered.Subject,
		"code", msg.Code,
	)
	return nil
}
