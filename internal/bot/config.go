package bot

import (
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	Token string `env:"DISCORD_TOKEN,required"`

	// GuildID scopes slash-command registration to one guild so commands
	// show up instantly during development. Empty registers globally.
	GuildID string `env:"GUILD_ID"`

	DatabasePath string `env:"DATABASE_PATH" envDefault:"data/nova.db"`
	LogLevel     string `env:"LOG_LEVEL" envDefault:"info"`

	// OpenAIKey is optional; AI chat answers with a notice when unset.
	OpenAIKey string `env:"OPENAI_API_KEY"`

	GiveawaySweepInterval time.Duration `env:"GIVEAWAY_SWEEP_INTERVAL" envDefault:"60s"`
}

func LoadConfig() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
