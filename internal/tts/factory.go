package tts

import (
	"readaloud/internal/config"

	"github.com/sirupsen/logrus"
)

// NewRegistryFromConfig instantiates every engine that has credentials.
func NewRegistryFromConfig(cfg config.Config) *Registry {
	var engines []Engine

	if azure, err := NewAzure(cfg.AzureSpeechKey, cfg.AzureSpeechRegion, cfg.AzureSpeechEndpoint); err != nil {
		logrus.WithField("engine", EngineAzure).WithError(err).Warn("tts engine disabled")
	} else {
		engines = append(engines, azure)
	}

	if maker, err := NewTTSMaker(cfg.TTSMakerToken, cfg.TTSMakerEndpoint); err != nil {
		logrus.WithField("engine", EngineTTSMaker).WithError(err).Warn("tts engine disabled")
	} else {
		engines = append(engines, maker)
	}

	return NewRegistry(engines...)
}
