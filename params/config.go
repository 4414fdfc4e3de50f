package params

import (
	"os"

	"github.com/joho/godotenv"
)

type Server struct {
	// ListenAddr is the TCP endpoint speaking the newline-delimited
	// JSON order protocol.
	ListenAddr string
	// APIAddr serves the HTTP surface: /healthz, book inspection and
	// the websocket order endpoint.
	APIAddr string
}

type Engine struct {
	// DefaultSymbol is the book used for messages that carry no symbol.
	DefaultSymbol string
}

type Log struct {
	// File, when set, tees structured logs into a file next to stdout.
	File string
}

type Config struct {
	Server Server
	Engine Engine
	Log    Log
}

func Default() Config {
	return Config{
		Server: Server{
			ListenAddr: ":7001",
			APIAddr:    ":8080",
		},
		Engine: Engine{
			DefaultSymbol: "BTC-USDT",
		},
	}
}

// LoadFromEnv loads configuration from .env file (if exists) and environment variables
// Priority: ENV > .env file > defaults
func LoadFromEnv(envPath string) Config {
	cfg := Default()

	// Try to load .env file (optional - won't fail if not exists)
	if envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load() // loads .env from current directory
	}

	if addr := os.Getenv("LISTEN_ADDR"); addr != "" {
		cfg.Server.ListenAddr = addr
	}
	if addr := os.Getenv("API_ADDR"); addr != "" {
		cfg.Server.APIAddr = addr
	}
	if symbol := os.Getenv("DEFAULT_SYMBOL"); symbol != "" {
		cfg.Engine.DefaultSymbol = symbol
	}
	if file := os.Getenv("LOG_FILE"); file != "" {
		cfg.Log.File = file
	}

	return cfg
}
