package notifier

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"catat/internal/metrics"
)

// TwilioCaller places outbound voice calls that play a TwiML script.
type TwilioCaller struct {
	httpClient *http.Client
	baseURL    string
	accountSID string
	authToken  string
	from       string
	scriptURL  string
}

func NewTwilioCaller(baseURL, accountSID, authToken, from, scriptURL string, timeout time.Duration) *TwilioCaller {
	return &TwilioCaller{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		accountSID: accountSID,
		authToken:  authToken,
		from:       from,
		scriptURL:  scriptURL,
	}
}

// PlaceCall dials to, which must be in E.164 form.
func (c *TwilioCaller) PlaceCall(ctx context.Context, to string) error {
	form := url.Values{}
	form.Set("Url", c.scriptURL)
	form.Set("To", to)
	form.Set("From", c.from)

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Calls.json", c.baseURL, url.PathEscape(c.accountSID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.SetBasicAuth(c.accountSID, c.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.NotifierRequests.WithLabelValues("place_call", metrics.OutcomeError).Inc()
		return fmt.Errorf("%w: place call: %v", ErrDelivery, err)
	}
	defer resp.Body.Close()

	if err := checkResponse("place call", resp); err != nil {
		metrics.NotifierRequests.WithLabelValues("place_call", metrics.OutcomeError).Inc()
		return err
	}

	metrics.NotifierRequests.WithLabelValues("place_call", metrics.OutcomeOK).Inc()
	slog.InfoContext(ctx, "Voice call placed", "to", to)
	return nil
}
