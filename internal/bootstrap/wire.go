package bootstrap

import (
	"errors"

	"github.com/spf13/afero"

	"foryou/internal/audio"
	"foryou/internal/config"
	"foryou/internal/feed"
	"foryou/internal/locale"
	"foryou/internal/logger"
	"foryou/internal/ports"
	"foryou/internal/providers/deepgram"
	"foryou/internal/usecase"
)

// Services is the assembled runtime graph.
type Services struct {
	Controller *usecase.SessionController
	Feed       *feed.Service
	Config     config.Config
}

// Build wires all backend dependencies for the current runtime.
func Build(cfg config.Config, eventSink ports.EventSink, log *logger.Logger) (Services, error) {
	if eventSink == nil {
		return Services{}, errors.New("event sink is required")
	}
	if log == nil {
		log = logger.Nop()
	}

	audioCfg := ports.AudioConfig{
		SampleRate:  cfg.Audio.SampleRate,
		Channels:    cfg.Audio.Channels,
		InputFormat: cfg.Audio.InputFormat,
		InputDevice: cfg.Audio.InputDevice,
	}

	engine := deepgram.NewRecognizer(deepgram.Config{
		APIKey:        cfg.Deepgram.APIKey,
		APIBaseURL:    cfg.Deepgram.APIBaseURL,
		Model:         cfg.Deepgram.Model,
		SmartFormat:   cfg.Deepgram.SmartFormat,
		EndpointingMS: cfg.Deepgram.EndpointingMS,
		ChunkSize:     cfg.Deepgram.ChunkSize,
		DrainTimeout:  cfg.Deepgram.DrainTimeout,
		Audio:         audioCfg,
	}, audio.NewMicrophone(cfg.Audio.RecorderCommand, log), log)

	if cfg.Deepgram.APIKey == "" {
		log.Warn("DEEPGRAM_API_KEY is not set; voice notes will fail to start")
	}

	controller := newController(cfg, engine, eventSink, log)

	content := feed.NewService(feed.Config{
		UpdatesURL:  cfg.Feed.UpdatesURL,
		UpdatesFile: cfg.Feed.UpdatesFile,
		NavFile:     cfg.Nav.File,
		Timeout:     cfg.Feed.Timeout,
	}, afero.NewOsFs(), log)

	return Services{Controller: controller, Feed: content, Config: cfg}, nil
}

func newController(cfg config.Config, engine ports.RecognitionEngine, eventSink ports.EventSink, log *logger.Logger) *usecase.SessionController {
	return usecase.NewSessionController(
		engine,
		locale.NewPolicy(cfg.Speech.Locale, cfg.Speech.FallbackLocale),
		eventSink,
		log,
		usecase.Config{
			Locale:         cfg.Speech.Locale,
			InterimResults: cfg.Speech.InterimResults,
		},
	)
}
