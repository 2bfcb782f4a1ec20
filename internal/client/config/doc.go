// Package config loads runtime configuration for the ResDex CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. .env files, then an optional config file selected with -c or -config,
//     then RESDEX_* environment variables.
//  3. Command-line flags, which override earlier values.
//
// Supported flags
//
//	-a string    address:port of the backend gRPC endpoint
//	-i duration  online status check interval
//	-k string    cache backend: sqlite or badger
//	-f string    cache path (sqlite file or badger directory)
//	-w duration  search debounce
//	-x           restrict document probes to public addresses
//
// Durations accept Go syntax in every source, for example "3s" or "300ms":
//
//	{
//	  "server_endpoint_addr": "127.0.0.1:50051",
//	  "online_check_interval": "3s",
//	  "cache_backend": "badger",
//	  "cache_path": "/var/lib/resdex/cache"
//	}
package config
