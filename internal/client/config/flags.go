package config

import (
	"flag"

	"github.com/resdex/resdex/internal/flagx"
)

var clientFlags = []string{"-a", "-i", "-k", "-f", "-w", "-x"}

func parseFlags(c *Config, args []string) {
	err := flagx.ParseFiltered("client", args, clientFlags, func(fs *flag.FlagSet) {
		fs.StringVar(&c.ServerEndpointAddr, "a", c.ServerEndpointAddr, "address and port to access server")
		fs.DurationVar(&c.OnlineCheckInterval, "i", c.OnlineCheckInterval, "online check interval")
		fs.StringVar(&c.CacheBackend, "k", c.CacheBackend, "cache backend (sqlite, badger)")
		fs.StringVar(&c.CachePath, "f", c.CachePath, "cache path")
		fs.DurationVar(&c.SearchDebounce, "w", c.SearchDebounce, "search debounce")
		fs.BoolVar(&c.ProbeSafeMode, "x", c.ProbeSafeMode, "probe public addresses only")
	})
	if err != nil {
		panic(err)
	}
}
