package services

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/whomimohshukla/freelancehub/internal/models"
	"github.com/whomimohshukla/freelancehub/pkg/logger"
)

// AlertMessage is a platform-neutral ops message
type AlertMessage struct {
	Title  string       `json:"title"`
	Level  string       `json:"level"` // info, warning, error
	Body   string       `json:"body"`
	Fields []AlertField `json:"fields,omitempty"`
	Link   string       `json:"link,omitempty"`
}

type AlertField struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// AlertAdapter delivers an AlertMessage to one IM platform.
// Each adapter handles the specific payload format and signing requirements of its platform.
type AlertAdapter interface {
	Send(bot *models.IMBot, msg *AlertMessage) error
}

func getAlertAdapter(botType string) AlertAdapter {
	switch botType {
	case "wechat_work":
		return &wecomAdapter{}
	case "dingtalk":
		return &dingtalkAdapter{}
	case "feishu":
		return &feishuAdapter{}
	case "slack":
		return &slackAdapter{}
	case "discord":
		return &discordAdapter{}
	case "teams":
		return &teamsAdapter{}
	case "telegram":
		return &telegramAdapter{}
	default:
		return &genericAdapter{}
	}
}

// --- Helper functions shared by adapters ---

var alertHTTPClient = &http.Client{Timeout: 10 * time.Second}

func postJSONWithClient(client *http.Client, webhookURL string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPost, webhookURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	logger.Debug().Int("status", resp.StatusCode).Int("payload_bytes", len(body)).Msg("[Alert] webhook response")

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned status %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

func splitMessage(msg string, maxLen int) []string {
	if len(msg) <= maxLen {
		return []string{msg}
	}

	var parts []string
	remaining := msg

	for len(remaining) > 0 {
		if len(remaining) <= maxLen {
			parts = append(parts, remaining)
			break
		}

		chunk := remaining[:maxLen]
		breakPoint := maxLen

		// prefer a line break in the second half of the chunk
		for i := len(chunk) - 1; i > maxLen/2; i-- {
			if chunk[i] == '\n' {
				breakPoint = i + 1
				break
			}
		}

		parts = append(parts, remaining[:breakPoint])
		remaining = remaining[breakPoint:]
	}

	return parts
}

func levelIcon(level string) string {
	switch level {
	case "error":
		return "🔴"
	case "warning":
		return "🟡"
	default:
		return "🟢"
	}
}

// renderMarkdown is shared by the markdown-speaking platforms
func renderMarkdown(msg *AlertMessage) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s **%s**\n\n", levelIcon(msg.Level), msg.Title)
	for _, f := range msg.Fields {
		fmt.Fprintf(&sb, "**%s**: %s\n", f.Label, f.Value)
	}
	if msg.Body != "" {
		if len(msg.Fields) > 0 {
			sb.WriteString("\n---\n")
		}
		sb.WriteString(msg.Body)
	}
	if msg.Link != "" {
		fmt.Fprintf(&sb, "\n\n🔗 [Open](%s)", msg.Link)
	}
	return sb.String()
}

func renderPlain(msg *AlertMessage) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %s\n", levelIcon(msg.Level), msg.Title)
	for _, f := range msg.Fields {
		fmt.Fprintf(&sb, "%s: %s\n", f.Label, f.Value)
	}
	if msg.Body != "" {
		sb.WriteString("\n" + msg.Body)
	}
	if msg.Link != "" {
		sb.WriteString("\n" + msg.Link)
	}
	return sb.String()
}

func dingTalkSign(timestamp int64, secret string) string {
	stringToSign := fmt.Sprintf("%d\n%s", timestamp, secret)
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(stringToSign))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

func feishuSign(timestamp int64, secret string) string {
	stringToSign := fmt.Sprintf("%d\n%s", timestamp, secret)
	h := hmac.New(sha256.New, []byte(stringToSign))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

func dingTalkWebhookURL(webhook, secret string) string {
	if secret == "" {
		return webhook
	}
	timestamp := time.Now().UnixMilli()
	sign := dingTalkSign(timestamp, secret)
	return fmt.Sprintf("%s&timestamp=%d&sign=%s", webhook, timestamp, url.QueryEscape(sign))
}

// --- Adapter implementations ---

type wecomAdapter struct{}

func (a *wecomAdapter) Send(bot *models.IMBot, msg *AlertMessage) error {
	parts := splitMessage(renderMarkdown(msg), 4000)
	for i, part := range parts {
		content := part
		if len(parts) > 1 {
			content = fmt.Sprintf("**[%d/%d]**\n\n%s", i+1, len(parts), part)
		}
		payload := map[string]interface{}{
			"msgtype": "markdown_v2",
			"markdown_v2": map[string]string{
				"content": content,
			},
		}
		if err := postJSONWithClient(alertHTTPClient, bot.Webhook, payload); err != nil {
			return err
		}
	}
	return nil
}

type dingtalkAdapter struct{}

func (a *dingtalkAdapter) Send(bot *models.IMBot, msg *AlertMessage) error {
	webhookURL := dingTalkWebhookURL(bot.Webhook, bot.Secret)
	parts := splitMessage(renderMarkdown(msg), 19000)
	for i, part := range parts {
		title := msg.Title
		if len(parts) > 1 {
			title = fmt.Sprintf("%s [%d/%d]", msg.Title, i+1, len(parts))
		}
		payload := map[string]interface{}{
			"msgtype": "markdown",
			"markdown": map[string]string{
				"title": title,
				"text":  part,
			},
		}
		if err := postJSONWithClient(alertHTTPClient, webhookURL, payload); err != nil {
			return err
		}
	}
	return nil
}

type feishuAdapter struct{}

func (a *feishuAdapter) Send(bot *models.IMBot, msg *AlertMessage) error {
	for _, part := range splitMessage(renderPlain(msg), 4000) {
		payload := map[string]interface{}{
			"msg_type": "text",
			"content": map[string]string{
				"text": part,
			},
		}
		if bot.Secret != "" {
			timestamp := time.Now().Unix()
			payload["timestamp"] = fmt.Sprintf("%d", timestamp)
			payload["sign"] = feishuSign(timestamp, bot.Secret)
		}
		if err := postJSONWithClient(alertHTTPClient, bot.Webhook, payload); err != nil {
			return err
		}
	}
	return nil
}

type slackAdapter struct{}

func (a *slackAdapter) Send(bot *models.IMBot, msg *AlertMessage) error {
	header := fmt.Sprintf("*%s*", msg.Title)
	var fields []map[string]string
	for _, f := range msg.Fields {
		fields = append(fields, map[string]string{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*%s*\n%s", f.Label, f.Value),
		})
	}

	blocks := []map[string]interface{}{
		{
			"type": "section",
			"text": map[string]string{"type": "mrkdwn", "text": header},
		},
	}
	if len(fields) > 0 {
		// Slack caps section fields at 10
		if len(fields) > 10 {
			fields = fields[:10]
		}
		blocks = append(blocks, map[string]interface{}{"type": "section", "fields": fields})
	}
	for _, part := range splitMessage(msg.Body, 3000) {
		if part == "" {
			continue
		}
		blocks = append(blocks, map[string]interface{}{
			"type": "section",
			"text": map[string]string{"type": "mrkdwn", "text": part},
		})
	}
	if msg.Link != "" {
		blocks = append(blocks, map[string]interface{}{
			"type": "context",
			"elements": []map[string]string{
				{"type": "mrkdwn", "text": fmt.Sprintf("<%s|Open>", msg.Link)},
			},
		})
	}

	return postJSONWithClient(alertHTTPClient, bot.Webhook, map[string]interface{}{
		"text":   msg.Title,
		"blocks": blocks,
	})
}

type discordAdapter struct{}

func (a *discordAdapter) Send(bot *models.IMBot, msg *AlertMessage) error {
	// Discord rejects content above 2000 characters
	for _, part := range splitMessage(renderMarkdown(msg), 1900) {
		if err := postJSONWithClient(alertHTTPClient, bot.Webhook, map[string]interface{}{"content": part}); err != nil {
			return err
		}
	}
	return nil
}

type teamsAdapter struct{}

func buildAdaptiveCard(text string) map[string]interface{} {
	return map[string]interface{}{
		"type": "message",
		"attachments": []map[string]interface{}{
			{
				"contentType": "application/vnd.microsoft.card.adaptive",
				"content": map[string]interface{}{
					"type":    "AdaptiveCard",
					"$schema": "http://adaptivecards.io/schemas/adaptive-card.json",
					"version": "1.5",
					"body": []map[string]interface{}{
						{
							"type": "TextBlock",
							"text": text,
							"wrap": true,
						},
					},
				},
			},
		},
	}
}

func (a *teamsAdapter) Send(bot *models.IMBot, msg *AlertMessage) error {
	return postJSONWithClient(alertHTTPClient, bot.Webhook, buildAdaptiveCard(renderMarkdown(msg)))
}

type telegramAdapter struct{}

func (a *telegramAdapter) Send(bot *models.IMBot, msg *AlertMessage) error {
	if bot.Extra == "" {
		return fmt.Errorf("telegram chat_id is required in extra field")
	}
	for _, part := range splitMessage(renderPlain(msg), 4000) {
		payload := map[string]interface{}{
			"chat_id": bot.Extra,
			"text":    part,
		}
		if err := postJSONWithClient(alertHTTPClient, bot.Webhook, payload); err != nil {
			return err
		}
	}
	return nil
}

// genericAdapter posts the structured message as-is
type genericAdapter struct{}

func (a *genericAdapter) Send(bot *models.IMBot, msg *AlertMessage) error {
	return postJSONWithClient(alertHTTPClient, bot.Webhook, map[string]interface{}{
		"type":    "alert",
		"level":   msg.Level,
		"title":   msg.Title,
		"message": msg.Body,
		"fields":  msg.Fields,
		"link":    msg.Link,
	})
}
