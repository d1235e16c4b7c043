package config

import (
	"fmt"
	"net"
	"net/url"
	"time"

	"github.com/caarlos0/env/v11"

	appenv "github.com/garrettladley/minimon/internal/env"
)

type Config struct {
	Port      string             `env:"PORT" envDefault:"5001"`
	Env       appenv.Environment `env:"ENV" envDefault:"development"`
	TokenFile string             `env:"TOKEN_FILE" envDefault:"data/logindata.json"`
	Proxy     Proxy              `envPrefix:"PROXY_"`
	Poll      Poll               `envPrefix:"POLL_"`
	CareLink  CareLink           `envPrefix:"CARELINK_"`
	Redis     Redis              `envPrefix:"REDIS_"`
	RateLimit RateLimit          `envPrefix:"RATE_"`
	History   History            `envPrefix:"HISTORY_"`
}

// Proxy describes the sibling carelink proxy process the dashboard reads from.
type Proxy struct {
	URL          string        `env:"URL" envDefault:"http://localhost:8081"`
	Managed      bool          `env:"MANAGED" envDefault:"true"`
	Command      []string      `env:"COMMAND" envDefault:"python3,carelink_client2_proxy.py"`
	Dir          string        `env:"DIR"`
	Match        string        `env:"MATCH" envDefault:"carelink_client2_proxy.py"`
	StartTimeout time.Duration `env:"START_TIMEOUT" envDefault:"10s"`
	StopTimeout  time.Duration `env:"STOP_TIMEOUT" envDefault:"10s"`
	KillTimeout  time.Duration `env:"KILL_TIMEOUT" envDefault:"5s"`
	RestartDelay time.Duration `env:"RESTART_DELAY" envDefault:"2s"`
}

// Addr returns the host:port the proxy listens on, used for liveness probes.
func (p Proxy) Addr() (string, error) {
	u, err := url.Parse(p.URL)
	if err != nil {
		return "", fmt.Errorf("failed to parse proxy url: %w", err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("proxy url %q has no host", p.URL)
	}
	if u.Port() != "" {
		return u.Host, nil
	}
	port := "80"
	if u.Scheme == "https" {
		port = "443"
	}
	return net.JoinHostPort(u.Hostname(), port), nil
}

type Poll struct {
	Interval time.Duration `env:"INTERVAL" envDefault:"60s"`
	Timeout  time.Duration `env:"TIMEOUT" envDefault:"15s"`
}

type CareLink struct {
	BaseURL         string        `env:"BASE_URL" envDefault:"https://clcloud.minimed.eu"`
	TokenURL        string        `env:"TOKEN_URL" envDefault:"https://mdtsts-ocl.medtronic.com/mmcl/auth/oauth/v2/token"`
	Timeout         time.Duration `env:"TIMEOUT" envDefault:"30s"`
	UpdateInterval  time.Duration `env:"UPDATE_INTERVAL" envDefault:"300s"`
	RetryInterval   time.Duration `env:"RETRY_INTERVAL" envDefault:"120s"`
	ErrorInterval   time.Duration `env:"ERROR_INTERVAL" envDefault:"60s"`
	Slack           time.Duration `env:"SLACK" envDefault:"10s"`
	LoginBackoff    time.Duration `env:"LOGIN_BACKOFF" envDefault:"30s"`
	LoginMaxBackoff time.Duration `env:"LOGIN_MAX_BACKOFF" envDefault:"10m"`
}

type Redis struct {
	URL string `env:"URL"`
}

type RateLimit struct {
	Limit float64 `env:"LIMIT" envDefault:"0.2"`
	Burst int     `env:"BURST" envDefault:"5"`
}

type History struct {
	Path      string        `env:"PATH"`
	Retention time.Duration `env:"RETENTION" envDefault:"720h"`
}

func Read() (Config, error) {
	return env.ParseAs[Config]()
}
