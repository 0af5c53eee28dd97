package xendit

import (
	"github.com/cmlabs-hris/hris-payroll-go/internal/config"
	xenditSDK "github.com/xendit/xendit-go/v7"
	"github.com/xendit/xendit-go/v7/payout"
)

// Client wraps the payout API of the official Xendit SDK
type Client struct {
	payoutAPI   payout.PayoutApi
	environment string
}

// NewClient creates a payout client from the Xendit configuration
func NewClient(cfg config.XenditConfig) *Client {
	sdk := xenditSDK.NewClient(cfg.APIKey)

	return &Client{
		payoutAPI:   sdk.PayoutApi,
		environment: cfg.Environment,
	}
}

// IsSandbox returns true if running in sandbox mode
func (c *Client) IsSandbox() bool {
	return c.environment == "sandbox"
}
