package main

import (
	"os"

	"github.com/RodolfoDevApp/eventshop-storesync-go/internal/logger"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		logger.Get().Error().Err(err).Msg("storesync failed")
		os.Exit(1)
	}
}
