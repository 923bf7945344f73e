package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/citizenwallet/governance/pkg/queue"
)

// discord rejects longer message contents
const maxContent = 2000

var (
	ErrSendingMessage = errors.New("error sending message")
	ErrRateLimited    = errors.New("rate limited")
)

type Message struct {
	Content string `json:"content"`
}

// Messager posts Discord-style messages to a webhook, prefixed with the
// name of the governed community.
type Messager struct {
	url    string
	name   string
	client *http.Client
	notify bool
}

func NewMessager(url, name string, notify bool) queue.WebhookMessager {
	return &Messager{
		url:    url,
		name:   name,
		client: &http.Client{Timeout: 10 * time.Second},
		notify: notify,
	}
}

func (b *Messager) Notify(ctx context.Context, message string) error {
	return b.send(ctx, message)
}

func (b *Messager) NotifyWarning(ctx context.Context, errorMessage error) error {
	return b.send(ctx, "warning: "+errorMessage.Error())
}

func (b *Messager) NotifyError(ctx context.Context, errorMessage error) error {
	return b.send(ctx, "error: "+errorMessage.Error())
}

// send posts content in as many messages as the size limit requires
func (b *Messager) send(ctx context.Context, content string) error {
	if !b.notify {
		return nil
	}

	for _, part := range split(fmt.Sprintf("[%s] %s", b.name, content), maxContent) {
		if err := b.post(ctx, part); err != nil {
			return err
		}
	}

	return nil
}

func (b *Messager) post(ctx context.Context, content string) error {
	data, err := json.Marshal(Message{Content: content})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.url, bytes.NewReader(data))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSendingMessage, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %w", ErrSendingMessage, ErrRateLimited)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return fmt.Errorf("%w: status %d", ErrSendingMessage, resp.StatusCode)
	}

	return nil
}

// split cuts s into parts of at most max runes, preferring line breaks
func split(s string, max int) []string {
	var parts []string
	for utf8.RuneCountInString(s) > max {
		cut := len(string([]rune(s)[:max]))
		if nl := strings.LastIndexByte(s[:cut], '\n'); nl > 0 {
			parts = append(parts, s[:nl])
			s = s[nl+1:]
			continue
		}

		parts = append(parts, s[:cut])
		s = s[cut:]
	}

	return append(parts, s)
}
