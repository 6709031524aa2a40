package domain

// Config defines the config for the gatekeeper service.
type Config struct {
	// Path to the SQLite identity/group store.
	StoragePath string `mapstructure:"db-path"`

	// Defines the web server configuration.
	ServerAddress string `mapstructure:"server-address"`

	// Defines the logger configuration.
	LoggerFilename     string `mapstructure:"logger-filename"`
	LoggerIsProduction bool   `mapstructure:"logger-is-production"`
	LoggerLevel        string `mapstructure:"logger-level"`

	// Websocket endpoint of the ledger node. Must support both read
	// calls and log subscriptions.
	ChainNodeEndpoint string `mapstructure:"chain-node-endpoint"`
	ChainID           string `mapstructure:"chain-id"`

	// Telegram encapsulates the group admin configuration.
	Telegram *TelegramConfig `mapstructure:"telegram"`

	// Reconciler encapsulates the reconciliation engine config.
	Reconciler *ReconcilerConfig `mapstructure:"reconciler"`

	// Watcher encapsulates the event watcher and sweep config.
	Watcher *WatcherConfig `mapstructure:"watcher"`

	// Linker encapsulates the identity-link endpoint config.
	Linker *LinkerConfig `mapstructure:"linker"`

	CORS *CORSConfig `mapstructure:"cors"`

	OTEL *OTELConfig `mapstructure:"otel"`
}

// TelegramConfig defines the Telegram group admin configuration.
type TelegramConfig struct {
	BotToken string `mapstructure:"bot-token"`

	// Invite link expiry in seconds. Invite links are single-use.
	InviteExpirySeconds int `mapstructure:"invite-expiry-seconds"`
}

// ReconcilerConfig defines the reconciliation engine configuration.
type ReconcilerConfig struct {
	// Bound on every ledger oracle read within one reconciliation.
	OracleTimeoutSeconds int `mapstructure:"oracle-timeout-seconds"`
}

// WatcherConfig defines the event watcher and periodic sweep
// configuration.
type WatcherConfig struct {
	// Default sweep interval in minutes, overridable per group.
	SweepIntervalMinutes int `mapstructure:"sweep-interval-minutes"`

	// Number of concurrent reconciliations during a sweep.
	MaxSweepWorkers int `mapstructure:"max-sweep-workers"`

	// Cap on the resubscription backoff in seconds.
	MaxReconnectBackoffSeconds int `mapstructure:"max-reconnect-backoff-seconds"`
}

// LinkerConfig defines the identity-link endpoint configuration.
type LinkerConfig struct {
	// Challenge message the user signs to prove address ownership.
	ChallengeMessage string `mapstructure:"challenge-message"`
}

// CORSConfig defines the CORS configuration for the http server.
type CORSConfig struct {
	AllowedOrigin  string `mapstructure:"allowed-origin"`
	AllowedHeaders string `mapstructure:"allowed-headers"`
	AllowedMethods string `mapstructure:"allowed-methods"`
}

// OTELConfig defines the error reporting configuration.
type OTELConfig struct {
	DSN         string  `mapstructure:"dsn"`
	SampleRate  float64 `mapstructure:"sample-rate"`
	Environment string  `mapstructure:"environment"`
}

// DefaultConfig holds the fallbacks applied by the app wiring when a
// section is omitted from the config file.
var DefaultConfig = Config{
	ServerAddress: ":9092",
	Telegram: &TelegramConfig{
		InviteExpirySeconds: 600,
	},
	Reconciler: &ReconcilerConfig{
		OracleTimeoutSeconds: 15,
	},
	Watcher: &WatcherConfig{
		SweepIntervalMinutes:       30,
		MaxSweepWorkers:            8,
		MaxReconnectBackoffSeconds: 120,
	},
	Linker: &LinkerConfig{
		ChallengeMessage: "hello friend",
	},
}
