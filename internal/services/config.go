package services

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/Lllllllleong/showcaseworker/internal/transform"
)

// Config holds all configuration for the showcase worker.
type Config struct {
	ProjectID       string
	StorageBucket   string
	CredentialsJSON string
	CollectionName  string
	Transform       transform.Config
	Showcase        ShowcaseConfig
}

// envConfig mirrors the environment one variable per field.
type envConfig struct {
	ProjectID       string `env:"PROJECT_ID" env-required:"true"`
	StorageBucket   string `env:"STORAGE_BUCKET" env-required:"true"`
	CredentialsJSON string `env:"FIREBASE_SERVICE_ACCOUNT_KEY"`
	CollectionName  string `env:"FIRESTORE_COLLECTION" env-default:"characters"`

	TransformProvider        string        `env:"TRANSFORM_PROVIDER" env-default:"local"`
	UpscaleEnabled           bool          `env:"UPSCALE_ENABLED" env-default:"false"`
	UpscaleFactor            int           `env:"UPSCALE_FACTOR" env-default:"2"`
	UpscaleMaxEdge           int           `env:"UPSCALE_MAX_EDGE" env-default:"4096"`
	Tolerance                int           `env:"BG_TOLERANCE" env-default:"32"`
	APIKey                   string        `env:"TRANSFORM_API_KEY"`
	RemoveBackgroundEndpoint string        `env:"REMOVE_BG_ENDPOINT" env-default:"https://clipdrop-api.co/remove-background/v1"`
	UpscaleEndpoint          string        `env:"UPSCALE_ENDPOINT" env-default:"https://clipdrop-api.co/image-upscaling/v1/upscale"`
	TransformTimeout         time.Duration `env:"TRANSFORM_TIMEOUT" env-default:"60s"`

	RunTimeout time.Duration `env:"RUN_TIMEOUT" env-default:"0s"`
}

// loadConfig loads and validates all necessary environment variables for this service.
func loadConfig() (*Config, error) {
	var env envConfig
	if err := cleanenv.ReadEnv(&env); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	if env.ProjectID == "" {
		return nil, fmt.Errorf("PROJECT_ID environment variable must be set")
	}
	if env.StorageBucket == "" {
		return nil, fmt.Errorf("STORAGE_BUCKET environment variable must be set")
	}
	if env.UpscaleFactor < 1 {
		return nil, fmt.Errorf("UPSCALE_FACTOR must be at least 1, got %d", env.UpscaleFactor)
	}
	if env.Tolerance < 0 || env.Tolerance > 255 {
		return nil, fmt.Errorf("BG_TOLERANCE must be between 0 and 255, got %d", env.Tolerance)
	}

	return &Config{
		ProjectID:       env.ProjectID,
		StorageBucket:   env.StorageBucket,
		CredentialsJSON: env.CredentialsJSON,
		CollectionName:  env.CollectionName,
		Transform: transform.Config{
			Provider:                 env.TransformProvider,
			UpscaleEnabled:           env.UpscaleEnabled,
			UpscaleFactor:            env.UpscaleFactor,
			UpscaleMaxEdge:           env.UpscaleMaxEdge,
			Tolerance:                uint8(env.Tolerance),
			APIKey:                   env.APIKey,
			RemoveBackgroundEndpoint: env.RemoveBackgroundEndpoint,
			UpscaleEndpoint:          env.UpscaleEndpoint,
			Timeout:                  env.TransformTimeout,
		},
		Showcase: ShowcaseConfig{RunTimeout: env.RunTimeout},
	}, nil
}
