package cli

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/strmtools/netmond/pkg/version"
)

// Config holds the application configuration from CLI flags
type Config struct {
	IPFile       string
	PIDFile      string
	PollInterval time.Duration
	Host         string
	Port         int
	EnableAPI    bool
	EnableMDNS   bool
	LogLevel     string
}

// ParseFlags parses command line arguments and returns a Config
func ParseFlags() *Config {
	cfg := &Config{}

	flag.StringVar(&cfg.IPFile, "ip-file", "/tmp/srtla_relay_temp/ip_bank.txt", "File to write the usable IPv4 addresses to, one per line")
	flag.StringVar(&cfg.PIDFile, "pid-file", "", "Pidfile of the relay process to HUP when the address set changes")
	flag.DurationVar(&cfg.PollInterval, "poll-interval", 5*time.Second, "Interface poll interval")
	flag.StringVar(&cfg.Host, "host", "127.0.0.1", "Host to bind the API to")
	flag.IntVar(&cfg.Port, "port", 60150, "Port for the API")
	flag.BoolVar(&cfg.EnableAPI, "api", false, "Serve the observation API")
	flag.BoolVar(&cfg.EnableMDNS, "mdns", false, "Advertise the API over mDNS")
	flag.StringVar(&cfg.LogLevel, "log-level", "info", "Log level (trace, debug, info, warn, error)")
	showVersion := flag.Bool("version", false, "Show version information")

	flag.Parse()

	if *showVersion {
		fmt.Printf("netmond version %s (commit: %s, built at: %s)\n",
			version.Version,
			version.CommitHash,
			version.BuildTime)
		os.Exit(0)
	}

	return cfg
}

// String returns a string representation of the Config
func (c *Config) String() string {
	return fmt.Sprintf("IPFile: %s, PIDFile: %s, PollInterval: %s, Host: %s, Port: %d, API: %t, MDNS: %t, LogLevel: %s",
		c.IPFile, c.PIDFile, c.PollInterval, c.Host, c.Port, c.EnableAPI, c.EnableMDNS, c.LogLevel)
}
