package models

import (
	"fmt"
	"strings"
	"time"
)

// Booking is a persisted interview-booking request. All four caller-facing
// fields are mandatory; rows are only created through NewBooking.
type Booking struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Date      string    `json:"date"`
	Time      string    `json:"time"`
	CreatedAt time.Time `json:"created_at"`
}

// NewBooking validates the extracted fields and builds a Booking without an ID;
// the store assigns ID and CreatedAt on insert.
func NewBooking(name, email, date, timeOfDay string) (*Booking, error) {
	fields := map[string]string{
		"name":  name,
		"email": email,
		"date":  date,
		"time":  timeOfDay,
	}
	for _, key := range []string{"name", "email", "date", "time"} {
		if strings.TrimSpace(fields[key]) == "" {
			return nil, fmt.Errorf("missing required field: %s", key)
		}
	}
	return &Booking{
		Name:  strings.TrimSpace(name),
		Email: strings.TrimSpace(email),
		Date:  strings.TrimSpace(date),
		Time:  strings.TrimSpace(timeOfDay),
	}, nil
}
