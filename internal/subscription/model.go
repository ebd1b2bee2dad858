package subscription

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("subscription not found")

type Subscription struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Price     float64   `json:"price"`
	Count     float64   `json:"count"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Fields is the writable part of a Subscription, already parsed from user input.
type Fields struct {
	Name  string
	Price float64
	Count float64
}
