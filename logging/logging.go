package logging

import "go.uber.org/zap"

// New creates a new zap logger for callers that need one before the global
// logger has been installed (main, scripts).
func New() *zap.SugaredLogger {
	logger, err := zap.NewProduction()
	if err != nil {
		logger = zap.NewExample()
	}
	return logger.Sugar()
}
