package spec

import "time"

// Define defaults shared by the reporter binary and its components
const (
	DefaultReportInterval time.Duration = time.Hour
	DefaultCacheTTL       time.Duration = time.Minute * 15
	DefaultListenAddr     string        = ":42069"
	DefaultTokenTTL       time.Duration = time.Hour * 24 * 90

	MetricsExchange string = "subscription_metrics"
)
