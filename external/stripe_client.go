package external

import (
	"github.com/stripe/stripe-go/v72"
	"github.com/stripe/stripe-go/v72/client"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewStripeClient returns a Stripe API client that logs warnings and errors through zap
func NewStripeClient(key string, logger *zap.Logger) *client.API {
	config := &stripe.BackendConfig{
		LeveledLogger: logger.Named("stripe").
			WithOptions(zap.IncreaseLevel(zapcore.WarnLevel)).
			Sugar(),
	}
	sc := &client.API{}
	sc.Init(key, &stripe.Backends{
		API:     stripe.GetBackendWithConfig(stripe.APIBackend, config),
		Connect: stripe.GetBackendWithConfig(stripe.ConnectBackend, config),
		Uploads: stripe.GetBackendWithConfig(stripe.UploadsBackend, config),
	})
	return sc
}
