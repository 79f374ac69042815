package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// wechatContentLimit is the byte limit of a group robot markdown message.
const wechatContentLimit = 4096

type wechatMarkdown struct {
	Content string `json:"content"`
}

type wechatPayload struct {
	MsgType  string         `json:"msgtype"`
	Markdown wechatMarkdown `json:"markdown"`
}

type wechatResponse struct {
	ErrCode int    `json:"errcode"`
	ErrMsg  string `json:"errmsg"`
}

// WeChatPublisher posts markdown messages to a WeCom group robot webhook.
type WeChatPublisher struct {
	webhookURL string
	client     *http.Client
}

// NewWeChatPublisher creates a publisher for the full webhook URL, key
// included. An empty URL makes every Publish return ErrNotConfigured.
func NewWeChatPublisher(webhookURL string) *WeChatPublisher {
	return &WeChatPublisher{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

func (p *WeChatPublisher) Publish(ctx context.Context, content string) error {
	if p.webhookURL == "" {
		return fmt.Errorf("wechat: webhook key not set: %w", ErrNotConfigured)
	}

	body, err := json.Marshal(wechatPayload{
		MsgType:  "markdown",
		Markdown: wechatMarkdown{Content: fitWeChat(content)},
	})
	if err != nil {
		return fmt.Errorf("wechat: marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("wechat: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("wechat: send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("wechat: unexpected status %d: %s", resp.StatusCode, bytes.TrimSpace(respBody))
	}

	// The robot answers 200 with a non-zero errcode for rejected messages.
	var wr wechatResponse
	if len(bytes.TrimSpace(respBody)) > 0 && json.Unmarshal(respBody, &wr) == nil && wr.ErrCode != 0 {
		return fmt.Errorf("wechat: errcode %d: %s", wr.ErrCode, wr.ErrMsg)
	}
	return nil
}

// fitWeChat truncates content to the robot's byte limit. The last line, which
// carries the paper link, is kept when it is short enough.
func fitWeChat(content string) string {
	if len(content) <= wechatContentLimit {
		return content
	}
	i := strings.LastIndexByte(content, '\n')
	if i < 0 || len(content)-i > wechatContentLimit/2 {
		return truncateBytes(content, wechatContentLimit)
	}
	body, tail := content[:i], content[i:]
	return truncateBytes(body, wechatContentLimit-len(tail)) + tail
}
