package notify

import (
	"fmt"

	"github.com/containrrr/shoutrrr"

	"github.com/dperrym/ipsentry/internal/logger"
	"github.com/dperrym/ipsentry/internal/models"
)

// Notifier fans new detection findings out to operator channels via shoutrrr
// URLs. Delivery is best-effort: failures are logged, never propagated.
type Notifier struct {
	urls []string
}

// NewNotifier returns a Notifier for the given shoutrrr service URLs. An
// empty list yields a no-op notifier.
func NewNotifier(urls []string) *Notifier {
	return &Notifier{urls: urls}
}

// FindingsCreated announces newly created findings on every configured channel.
func (n *Notifier) FindingsCreated(findings []models.SuspiciousIP) {
	if len(n.urls) == 0 || len(findings) == 0 {
		return
	}

	msg := fmt.Sprintf("ipsentry flagged %d suspicious address(es):", len(findings))
	for _, f := range findings {
		msg += fmt.Sprintf("\n- %s: %s", f.IPAddress, f.Reason)
	}

	for _, url := range n.urls {
		if err := shoutrrr.Send(url, msg); err != nil {
			logger.WithFields(map[string]interface{}{"error": err.Error()}).
				Error("failed to send finding notification")
		}
	}
}
