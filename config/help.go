package config

import (
	"flag"
	"fmt"
)

const HelpMessage = `
Carona - ride sharing marketplace

Usage:
  carona [flags]

Flags:
  -config-path string   Path to the config yaml file (default "config.yaml")
  -help                 Show this message

Configuration is read from the yaml file and may be overridden with
environment variables (SERVER_PORT, DATABASE_HOST, RABBITMQ_HOST, ...).
`

func PrintHelp() {
	if HelpMessage != "" {
		fmt.Printf("%s", HelpMessage)
	} else {
		flag.Usage()
	}
}

// PrintConfig dumps the effective configuration with secrets masked.
func PrintConfig(cfg *Config) {
	if cfg == nil {
		return
	}

	fmt.Printf("server:    %s listening on %s:%s (log level %s)\n",
		cfg.Server.Name, cfg.Server.Host, cfg.Server.Port, cfg.Server.LogLevel)
	fmt.Printf("database:  postgres://%s:***@%s:%s/%s\n",
		cfg.Database.User, cfg.Database.Host, cfg.Database.Port, cfg.Database.Database)
	fmt.Printf("rabbitmq:  amqp://%s:***@%s:%s/\n",
		cfg.RabbitMQ.User, cfg.RabbitMQ.Host, cfg.RabbitMQ.Port)
	fmt.Printf("auth:      access ttl %s, refresh ttl %s\n",
		cfg.Auth.AccessTokenTTL, cfg.Auth.RefreshTokenTTL)
}
