package publisher

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/ryosukesatoh/arxiv-digest/internal/config"
)

// ErrNotConfigured is returned when a destination lacks the settings it needs
// to deliver. Callers treat it as a skipped delivery.
var ErrNotConfigured = errors.New("publisher not configured")

// Publisher delivers one formatted message to some output destination.
type Publisher interface {
	Publish(ctx context.Context, content string) error
}

// New builds the publisher selected by the configuration. out is used by the
// stdout publisher.
func New(cfg *config.Config, out io.Writer) (Publisher, error) {
	switch cfg.Publisher.Type {
	case "stdout":
		return NewStdoutPublisher(out), nil
	case "wechat":
		key := cfg.Publisher.WeChat.Key
		if key == "" {
			return NewWeChatPublisher(""), nil
		}
		return NewWeChatPublisher(cfg.WeChatWebhookURL()), nil
	case "discord":
		return NewDiscordPublisher(cfg.Publisher.Discord.WebhookURL), nil
	case "email":
		e := cfg.Publisher.Email
		return NewEmailPublisher(e.SMTPHost, e.SMTPPort, e.Username, e.Password, e.From, e.To), nil
	default:
		return nil, fmt.Errorf("publisher: unsupported type %q", cfg.Publisher.Type)
	}
}
