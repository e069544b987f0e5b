package types

type Config struct {
	Environment     string `envconfig:"ENVIRONMENT" default:"development"`
	ServerPort      uint   `envconfig:"SERVER_PORT" default:"8080"`
	DatabaseURL     string `envconfig:"DATABASE_URL"`
	ReadTimeoutSec  uint   `envconfig:"READ_TIMEOUT_SEC" default:"10"`
	WriteTimeoutSec uint   `envconfig:"WRITE_TIMEOUT_SEC" default:"15"`
	LogLevel        string `envconfig:"LOG_LEVEL" default:"info"`

	// Matching
	DefaultRadiusM         float64 `envconfig:"DEFAULT_RADIUS_M" default:"2000"`
	DefaultFacilityLimit   int     `envconfig:"DEFAULT_FACILITY_LIMIT" default:"5"`
	MaxFacilityLimit       int     `envconfig:"MAX_FACILITY_LIMIT" default:"50"`
	SpatialQueryTimeoutSec uint    `envconfig:"SPATIAL_QUERY_TIMEOUT_SEC" default:"5"`
	FacilityMapPath        string  `envconfig:"FACILITY_MAP_PATH"`

	// Notifications: log, smtp, ses or sns
	NotifyDriver     string `envconfig:"NOTIFY_DRIVER" default:"log"`
	NotifyTimeoutSec uint   `envconfig:"NOTIFY_TIMEOUT_SEC" default:"10"`
	NotifyWorkers    int    `envconfig:"NOTIFY_WORKERS" default:"2"`
	NotifyQueueSize  int    `envconfig:"NOTIFY_QUEUE_SIZE" default:"100"`
	NotifyFromEmail  string `envconfig:"NOTIFY_FROM_EMAIL"`

	SMTPHost     string `envconfig:"SMTP_HOST"`
	SMTPPort     int    `envconfig:"SMTP_PORT" default:"465"`
	SMTPUsername string `envconfig:"SMTP_USERNAME"`
	SMTPPassword string `envconfig:"SMTP_PASSWORD"`

	// Exports
	ExportBucket string `envconfig:"EXPORT_BUCKET"`

	// Cognito issues the access tokens we verify
	CognitoIssuerURL string `envconfig:"COGNITO_ISSUER_URL"`

	// Cookie encryption keys (base64 encoded)
	// openssl rand -base64 32
	// to generate values
	CookieName     string `envconfig:"SESSION_COOKIE_NAME" default:"access_token"`
	CookieHashKey  string `envconfig:"COOKIE_HASH_KEY"`  // 32 or 64 bytes
	CookieBlockKey string `envconfig:"COOKIE_BLOCK_KEY"` // 16, 24, or 32 bytes
}
