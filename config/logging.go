package config

import (
	"go.uber.org/zap"

	"github.com/gramasevaka/gs-portal-api/logging"
)

func setLogger(env string) (*zap.Logger, error) {
	return logging.New(env)
}
