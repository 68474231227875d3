package utils

import "go.uber.org/zap"

// NewProductionLogger returns a JSON zap logger at info level.
func NewProductionLogger() (*zap.Logger, error) {
	return zap.NewProduction()
}

// NewLogger returns the logger used by the kotae commands. With debug on it is
// a development logger (human-readable, debug level, shows index maintenance
// and retrieval scoring); otherwise a production logger (JSON, info level).
func NewLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
