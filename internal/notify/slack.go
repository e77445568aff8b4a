package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"codeberg.org/ravlen/aquamon/internal/config"
	"codeberg.org/ravlen/aquamon/internal/reading"
	"github.com/slack-go/slack"
)

// SlackNotifier posts alerts to a channel via chat.postMessage with a bot
// token. Leak alerts get a danger-colored attachment; recovery and sensor
// failure notices are plain text.
type SlackNotifier struct {
	client   *slack.Client
	channel  string
	mentions []string
}

func NewSlack(cfg config.SlackConfig) *SlackNotifier {
	return &SlackNotifier{
		client:   slack.New(cfg.BotToken),
		channel:  cfg.Channel,
		mentions: cfg.MentionUsers,
	}
}

func (n *SlackNotifier) Name() string {
	return "slack"
}

func (n *SlackNotifier) Notify(ctx context.Context, alert reading.AlertRecord) error {
	text := n.format(alert)
	opts := []slack.MsgOption{
		slack.MsgOptionText(text, false),
	}

	if alert.Type == reading.AlertLeakDetected {
		opts = append(opts, slack.MsgOptionAttachments(slack.Attachment{
			Color:  "danger",
			Text:   text,
			Footer: "aquamon",
			Ts:     json.Number(strconv.FormatInt(alert.CreatedAt.Unix(), 10)),
		}))
	}

	_, _, err := n.client.PostMessageContext(ctx, n.channel, opts...)

	return err
}

func (n *SlackNotifier) format(alert reading.AlertRecord) string {
	var b strings.Builder

	switch alert.Type {
	case reading.AlertLeakDetected:
		b.WriteString(":rotating_light: *Leak Alert*\n")
	case reading.AlertSensorFailure:
		b.WriteString(":warning: *Sensor Failure*\n")
	case reading.AlertRecovery:
		b.WriteString(":white_check_mark: *Recovery*\n")
	}
	b.WriteString(alert.Message)

	if alert.Type == reading.AlertLeakDetected && len(n.mentions) > 0 {
		b.WriteString("\n")
		for i, user := range n.mentions {
			if i > 0 {
				b.WriteString(" ")
			}
			fmt.Fprintf(&b, "<@%s>", user)
		}
	}

	return b.String()
}
