// Package notifier delivers outbound messages: WhatsApp text replies through
// the Graph API and reminder voice calls through Twilio.
package notifier

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// ErrDelivery wraps every failed outbound request, including non-2xx replies.
var ErrDelivery = errors.New("delivery failed")

// maxErrorBody bounds how much of a failed response is kept in the error.
const maxErrorBody = 512

func checkResponse(op string, resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return fmt.Errorf("%w: %s: status %d: %s", ErrDelivery, op, resp.StatusCode, strings.TrimSpace(string(body)))
}
