package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"catat/internal/metrics"
)

// WhatsAppClient sends text messages through the WhatsApp Cloud API.
type WhatsAppClient struct {
	httpClient    *http.Client
	baseURL       string
	phoneNumberID string
	accessToken   string
}

func NewWhatsAppClient(baseURL, phoneNumberID, accessToken string, timeout time.Duration) *WhatsAppClient {
	return &WhatsAppClient{
		httpClient:    &http.Client{Timeout: timeout},
		baseURL:       strings.TrimRight(baseURL, "/"),
		phoneNumberID: phoneNumberID,
		accessToken:   accessToken,
	}
}

type textMessage struct {
	MessagingProduct string   `json:"messaging_product"`
	To               string   `json:"to"`
	Text             textBody `json:"text"`
}

type textBody struct {
	Body string `json:"body"`
}

// SendText delivers body to the recipient's WhatsApp number.
func (c *WhatsAppClient) SendText(ctx context.Context, to, body string) error {
	payload, err := json.Marshal(textMessage{
		MessagingProduct: "whatsapp",
		To:               to,
		Text:             textBody{Body: body},
	})
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	url := fmt.Sprintf("%s/%s/messages", c.baseURL, c.phoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.NotifierRequests.WithLabelValues("send_text", metrics.OutcomeError).Inc()
		return fmt.Errorf("%w: send text: %v", ErrDelivery, err)
	}
	defer resp.Body.Close()

	if err := checkResponse("send text", resp); err != nil {
		metrics.NotifierRequests.WithLabelValues("send_text", metrics.OutcomeError).Inc()
		return err
	}

	metrics.NotifierRequests.WithLabelValues("send_text", metrics.OutcomeOK).Inc()
	slog.DebugContext(ctx, "WhatsApp message sent", "to", to)
	return nil
}
