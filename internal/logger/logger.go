package logger

import (
	"go-indexer/internal/config"
	"go-indexer/internal/database"

	"go.uber.org/zap"
)

// NewLogger builds the zap logger used across the service. Besides the
// console output, warn-and-above entries are copied asynchronously into the
// `logs` collection so indexing failures stay visible after the fact.
func NewLogger(cfg *config.Config, mongodb *database.MongodbDB) (*zap.Logger, error) {
	var zapConfig zap.Config
	if cfg.Environment == "production" {
		zapConfig = zap.NewProductionConfig()
	} else {
		zapConfig = zap.NewDevelopmentConfig()
	}

	zapConfig.EncoderConfig.FunctionKey = "func"

	baseLogger, err := zapConfig.Build()
	if err != nil {
		return nil, err
	}

	dbWriter := NewDBLogWriter(mongodb, cfg)

	finalCore := NewDBCore(baseLogger.Core(), dbWriter)

	return zap.New(finalCore, zap.AddCaller()), nil
}
