package config

type Config struct {
	Environment Environment
	Log         Log
	HTTP        HTTPServer
	BaseURL     string `env:"BASE_URL"`
	DatabaseURL string `env:"DATABASE_URL"`

	JWT       JWT       `envPrefix:"JWT_"`
	Gateway   Gateway   `envPrefix:"GATEWAY_"`
	Mail      Mail      `envPrefix:"MAIL_"`
	RateLimit RateLimit `envPrefix:"RATE_LIMIT_"`
}

type Gateway struct {
	BaseApiURL       string `env:"BASE_API_URL"`
	AccessToken      string `env:"ACCESS_TOKEN"`
	WebhookSecret    string `env:"WEBHOOK_SECRET"`
	PixExpiryMinutes int    `env:"PIX_EXPIRY_MINUTES" envDefault:"30"`
}

type Mail struct {
	BaseApiURL string `env:"BASE_API_URL"`
	APIKey     string `env:"API_KEY"`
	FromEmail  string `env:"FROM_EMAIL" envDefault:"no-reply@store.local"`
}

type JWT struct {
	Secret     string `env:"SECRET"`
	TTLMinutes int    `env:"TTL_MINUTES" envDefault:"60"`
}

// RateLimit is enforced by an in-memory store, so it is only meaningful
// for a single-instance deployment.
type RateLimit struct {
	RPS   float64 `env:"RPS" envDefault:"5"`
	Burst int     `env:"BURST" envDefault:"10"`
}

type Environment struct {
	Name string `env:"ENVIRONMENT" envDefault:"development"`
}

type Log struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

type HTTPServer struct {
	Host string `env:"HTTP_HOST" envDefault:"0.0.0.0"`
	Port string `env:"HTTP_PORT" envDefault:"8080"`
}
