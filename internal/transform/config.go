package transform

import (
	"fmt"
	"net/http"
	"time"
)

// Provider values accepted by Config.
const (
	ProviderLocal  = "local"
	ProviderRemote = "remote"
)

// Config selects and tunes the transform variants.
type Config struct {
	Provider       string
	UpscaleEnabled bool
	UpscaleFactor  int
	UpscaleMaxEdge int

	// Local variant.
	Tolerance uint8

	// Remote variant.
	APIKey                   string
	RemoveBackgroundEndpoint string
	UpscaleEndpoint          string
	Timeout                  time.Duration
}

// FromConfig builds the background remover and, when enabled, the upscaler.
// A nil upscaler means the step is absent.
func FromConfig(cfg Config) (remover Transform, upscaler Transform, err error) {
	switch cfg.Provider {
	case ProviderLocal, "":
		remover = &LocalBackgroundRemover{Tolerance: cfg.Tolerance}
		if cfg.UpscaleEnabled {
			upscaler = &LocalUpscaler{Factor: cfg.UpscaleFactor, MaxEdge: cfg.UpscaleMaxEdge}
		}
	case ProviderRemote:
		if cfg.APIKey == "" {
			return nil, nil, fmt.Errorf("remote transforms require an API key")
		}
		if cfg.RemoveBackgroundEndpoint == "" {
			return nil, nil, fmt.Errorf("remote transforms require a background removal endpoint")
		}
		client := &http.Client{Timeout: cfg.Timeout}
		remover = NewRemoteBackgroundRemover(cfg.RemoveBackgroundEndpoint, cfg.APIKey, client)
		if cfg.UpscaleEnabled {
			if cfg.UpscaleEndpoint == "" {
				return nil, nil, fmt.Errorf("remote upscaling requires an upscale endpoint")
			}
			upscaler = NewRemoteUpscaler(cfg.UpscaleEndpoint, cfg.APIKey, cfg.UpscaleFactor, cfg.UpscaleMaxEdge, client)
		}
	default:
		return nil, nil, fmt.Errorf("unknown transform provider %q", cfg.Provider)
	}
	return remover, upscaler, nil
}
