package bootstrap

import "github.com/hyodoblog/mojiokoshi-line-bot/config"

// Config is what NewApp needs from a service configuration. Embedding
// config.ServiceConfig by value provides GetServiceConfig.
type Config interface {
	GetServiceConfig() *config.ServiceConfig
	ApplyDefaults()
	Validate() error
}
