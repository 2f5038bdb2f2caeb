package notify

import (
	"context"
	"fmt"
	"log/slog"

	"hirebook/backend/internal/domain"
)

// LinkProvisioner derives a meeting link for interview bookings. This
// stands in for the video-conferencing collaborator; the scheduler only
// stores whatever link comes back.
type LinkProvisioner struct {
	BaseURL string
	Log     *slog.Logger
}

func (p *LinkProvisioner) Provision(ctx context.Context, b domain.Booking) (string, error) {
	if p.BaseURL == "" {
		return "", fmt.Errorf("meeting base URL not configured")
	}
	link := fmt.Sprintf("%s/%s", p.BaseURL, b.ConfirmationCode)
	if p.Log != nil {
		p.Log.Debug("meeting link provisioned",
			slog.String("booking_id", b.ID.String()),
			slog.String("link", link),
		)
	}
	return link, nil
}
