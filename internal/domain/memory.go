package domain

import (
	"context"
	"time"
)

// GroupMember is a chat participant registered with /add.
type GroupMember struct {
	ChatID   int64
	UserID   int64
	Username string
	Echo     bool
}

// ExchangeRates holds TRY based rates. EUR, USD and GBP are units per lira;
// Lira is lira per dollar.
type ExchangeRates struct {
	EUR       float64
	USD       float64
	GBP       float64
	Lira      float64
	UpdatedAt time.Time
}

// MemberStore persists group membership for /all mentions.
type MemberStore interface {
	AddGroupMember(ctx context.Context, m GroupMember) error
	RemoveGroupMember(ctx context.Context, chatID, userID int64) error
	GroupMembers(ctx context.Context, chatID int64) ([]GroupMember, error)
}

// RateStore persists the last fetched exchange rates.
type RateStore interface {
	ExchangeRates(ctx context.Context) (*ExchangeRates, error)
	SaveExchangeRates(ctx context.Context, rates ExchangeRates) error
}

// UpdateLog remembers the last handled chat update.
type UpdateLog interface {
	LastUpdateID(ctx context.Context) (int, error)
	SaveLastUpdateID(ctx context.Context, id int) error
}
