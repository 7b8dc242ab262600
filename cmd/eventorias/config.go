package main

import (
	"fmt"
	"strings"

	"github.com/eventorias/eventorias/internal/logger"
	internalhttp "github.com/eventorias/eventorias/internal/server/http"
	"github.com/eventorias/eventorias/internal/storagebuilder"
	"github.com/spf13/viper"
)

const envConfigPrefix = "$env:"

type Config struct {
	Server  internalhttp.Config
	Logger  logger.Config
	Storage storagebuilder.Config
	Auth    AuthConfig
	Media   MediaConfig
	Geocode GeocodeConfig
	Prefs   PrefsConfig
}

type AuthConfig struct {
	Secret string
}

type MediaConfig struct {
	Root    string
	BaseURL string
}

type GeocodeConfig struct {
	Endpoint   string
	MapsAPIKey string
}

type PrefsConfig struct {
	File string
}

func NewConfig(configFile string) (Config, error) {
	config := Config{}
	viper.SetConfigFile(configFile)

	viper.SetDefault("server.host", "127.0.0.1")
	viper.SetDefault("server.port", "8005")
	viper.SetDefault("server.mediaRoot", "./media")
	viper.SetDefault("logger.level", "WARN")
	viper.SetDefault("storage.storageType", "memory")
	viper.SetDefault("media.root", "./media")
	viper.SetDefault("media.baseUrl", "http://127.0.0.1:8005/media")

	err := viper.ReadInConfig()
	if err != nil {
		return config, fmt.Errorf("failed to read config %q: %w", configFile, err)
	}
	keys := viper.AllKeys()
	for _, key := range keys {
		env := viper.GetString(key)
		if strings.HasPrefix(env, envConfigPrefix) {
			err := viper.BindEnv(key, env[len(envConfigPrefix):])
			if err != nil {
				return Config{}, fmt.Errorf("failed to prepare config: %w", err)
			}
		}
	}

	err = viper.Unmarshal(&config)
	if err != nil {
		return config, fmt.Errorf("unable to decode into config struct: %w", err)
	}
	return config, nil
}
