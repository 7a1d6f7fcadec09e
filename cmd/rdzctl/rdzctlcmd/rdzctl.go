// Package rdzctlcmd implements the rdzctl sub-commands.
package rdzctlcmd

import (
	"context"

	"go.rendezvous.dev/core/client"
	mbp "go.rendezvous.dev/core/mainboilerplate"
)

// ServerConfig addresses the rendezvous server.
type ServerConfig struct {
	Host string `long:"host" env:"HOST" default:"localhost" description:"Hostname or IP of the rendezvous server"`
	Port int    `long:"port" env:"PORT" default:"13331" description:"Port of the rendezvous server"`
}

// BaseCfg is the top-level configuration object of rdzctl.
var BaseCfg = new(struct {
	Server ServerConfig  `group:"Rendezvous" namespace:"server" env-namespace:"SERVER"`
	Log    mbp.LogConfig `group:"Logging" namespace:"log" env-namespace:"LOG"`
})

// startup initializes logging from the parsed configuration.
func startup() {
	mbp.InitLog(BaseCfg.Log)
}

// connect returns a Client connected to the configured server. |cfg| carries
// callbacks of the invoking command; its addressing is overwritten from BaseCfg.
func connect(cfg client.Config) *client.Client {
	cfg.Host, cfg.Port = BaseCfg.Server.Host, BaseCfg.Server.Port

	var c = client.NewClient(cfg)
	mbp.Must(c.Connect(context.Background()), "failed to connect to rendezvous server",
		"host", cfg.Host, "port", cfg.Port)
	return c
}
