package records

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"convorag/internal/models"
)

// SaveBooking persists a validated booking and returns it with its assigned ID.
func (s *Service) SaveBooking(ctx context.Context, booking *models.Booking) (*models.Booking, error) {
	if booking == nil {
		return nil, errors.New("booking is required")
	}
	saved := *booking
	saved.ID = uuid.NewString()
	saved.CreatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO bookings (id, name, email, date, time, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		saved.ID, saved.Name, saved.Email, saved.Date, saved.Time, saved.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("save booking: %w", err)
	}
	return &saved, nil
}
