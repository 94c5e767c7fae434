package main

import (
	"go-model-inference/internal/factory"
	"go-model-inference/internal/logger"
	"go-model-inference/internal/server"
)

func main() {
	if err := server.Run(factory.Alzheimers); err != nil {
		logger.WithError(err).Fatal("alzheimers api stopped")
	}
}
