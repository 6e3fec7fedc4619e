// Package config loads the bot's configuration with Viper.
//
//	var cfg AppConfig
//	err := config.LoadConfig("mojiokoshi", &cfg,
//	    config.WithEnvAliases(map[string]string{"CHANNEL_SECRET": "line.channel_secret"}))
//
// Every key of the target struct is bound to an environment variable, so
// LINE_CHANNEL_SECRET overrides line.channel_secret from config.yml.
package config
