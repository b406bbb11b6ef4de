// Package buildCFG turns the loaded configuration tree into the typed configs
// the wiring in main needs. Missing optional keys fall back to defaults;
// missing required keys are errors.
package buildCFG

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/wb-go/wbf/config"
	"github.com/wb-go/wbf/dbpg"
)

type ServerConfig struct {
	Port string
}

type RabbitConfig struct {
	Url      string
	Exchange string
	Queue    string
}

type AppConfig struct {
	BaseURL         string
	CommandCooldown time.Duration
}

func BuildServerConfig(cfg *config.Config, log *zerolog.Logger) ServerConfig {
	port := cfg.GetString("server.port")
	if port == "" {
		port = "8080"
		log.Warn().Msg("server.port not set, defaulting to 8080")
	}
	return ServerConfig{Port: port}
}

func BuildDBConfig(cfg *config.Config, log *zerolog.Logger) (string, []string, *dbpg.Options, error) {
	host := cfg.GetString("database.host")
	user := cfg.GetString("database.user")
	name := cfg.GetString("database.name")
	if host == "" || user == "" || name == "" {
		return "", nil, nil, fmt.Errorf("database.host, database.user and database.name are required")
	}

	port := cfg.GetInt("database.port")
	if port == 0 {
		port = 5432
	}
	sslmode := cfg.GetString("database.sslmode")
	if sslmode == "" {
		sslmode = "disable"
	}

	masterDSN := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		user, cfg.GetString("database.password"), host, port, name, sslmode)

	opts := &dbpg.Options{
		MaxOpenConns:    cfg.GetInt("database.max_open_conns"),
		MaxIdleConns:    cfg.GetInt("database.max_idle_conns"),
		ConnMaxLifetime: cfg.GetDuration("database.conn_max_lifetime"),
	}
	if opts.MaxOpenConns == 0 {
		opts.MaxOpenConns = 10
	}
	if opts.MaxIdleConns == 0 {
		opts.MaxIdleConns = 5
	}

	slaveDSNs := cfg.GetStringSlice("database.slave_dsns")
	log.Info().Str("host", host).Int("port", port).Msg("database config built")

	return masterDSN, slaveDSNs, opts, nil
}

func BuildRabbitConfig(cfg *config.Config, log *zerolog.Logger) (RabbitConfig, error) {
	url := cfg.GetString("rabbit.url")
	if url == "" {
		return RabbitConfig{}, fmt.Errorf("rabbit.url is required")
	}

	exchange := cfg.GetString("rabbit.exchange")
	if exchange == "" {
		exchange = "reminders.delayed"
	}
	queue := cfg.GetString("rabbit.queue")
	if queue == "" {
		queue = "reminders"
	}

	log.Info().Str("exchange", exchange).Str("queue", queue).Msg("rabbit config built")
	return RabbitConfig{Url: url, Exchange: exchange, Queue: queue}, nil
}

func BuildAppConfig(cfg *config.Config, log *zerolog.Logger) AppConfig {
	baseURL := cfg.GetString("app.base_url")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
		log.Warn().Msg("app.base_url not set, defaulting to http://localhost:8080")
	}

	cooldown := cfg.GetDuration("app.command_cooldown")
	if cooldown == 0 {
		cooldown = 2 * time.Second
	}

	return AppConfig{BaseURL: baseURL, CommandCooldown: cooldown}
}
