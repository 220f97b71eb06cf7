package config

import (
	"fmt"
	"log"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds everything the bot reads from the environment.
type Config struct {
	DiscordToken string `env:"DISCORD_TOKEN,required"`
	StoragePath  string `env:"STORAGE_PATH" envDefault:"setup_channels.json"`

	LavalinkHost     string `env:"LAVALINK_HOST" envDefault:"localhost"`
	LavalinkPort     string `env:"LAVALINK_PORT" envDefault:"2333"`
	LavalinkPassword string `env:"LAVALINK_PASSWORD" envDefault:"youshallnotpass"`
	LavalinkSecure   bool   `env:"SSL_ENABLED" envDefault:"false"`

	BotVolume int `env:"BOT_VOLUME" envDefault:"30"`

	NowPlayingGifURL string `env:"NOW_PLAYING_SPIN_GIF_URL"`
	IdleImageURL     string `env:"NO_SONG_PLAYING_IMAGE_URL"`
}

// New loads .env (if present) and parses the environment.
func New() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("[INFO] No .env file found, falling back to system environment variables")
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	return cfg, nil
}

// LavalinkAddr returns the host:port of the audio engine node.
func (c *Config) LavalinkAddr() string {
	return c.LavalinkHost + ":" + c.LavalinkPort
}
