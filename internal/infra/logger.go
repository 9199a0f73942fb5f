// README: Structured logger construction; services receive *zap.Logger via injection.
package infra

import "go.uber.org/zap"

// NewLogger builds the process-wide zap logger. Development mode gives
// human-readable output; anything else uses the production JSON encoder.
func NewLogger(env string) (*zap.Logger, error) {
	if env == "development" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
