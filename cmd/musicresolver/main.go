// Package main provides the musicresolver CLI application entry point.
package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"musicresolver/internal/core"
	httpserver "musicresolver/internal/http"
)

const (
	envPrefix         = "MUSICRESOLVER"
	defaultServerHost = "0.0.0.0"
	logFormatConsole  = "console"

	logFileMaxSizeMB  = 100
	logFileMaxBackups = 5
	logFileMaxAgeDays = 28
)

var (
	cfgFile string
	config  *core.Config
	logger  *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "musicresolver",
	Short: "musicresolver - YouTube, Spotify and Apple Music link resolver",
	Long: `musicresolver turns search text and YouTube, Spotify or Apple Music links into
playable YouTube tracks and playlists. Use it one-off from the command line or run
it as an HTTP API with "serve".`,
	SilenceUsage: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		if err := validateConfig(config); err != nil {
			return fmt.Errorf("configuration validation failed: %w", err)
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, _ []string) error {
		if viper.GetBool("generate-env-example") {
			return generateEnvExample(cmd)
		}
		return cmd.Help()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	defaults := core.DefaultConfig()
	flags := rootCmd.PersistentFlags()

	flags.StringVar(&cfgFile, "config", "", "config file (default is .env)")
	flags.String("log-level", defaults.Log.Level, "log level (debug, info, warn, error)")
	flags.String("log-format", defaults.Log.Format, "log format (json, console)")
	flags.String("log-file", "", "also write logs to this file, rotated")
	flags.Duration("http-timeout", defaults.HTTP.Timeout, "timeout of every outbound provider request")
	flags.Int("search-default-limit", defaults.Search.DefaultLimit, "search candidates considered when resolving text")
	flags.Int("search-max-concurrency", defaults.Search.MaxConcurrency, "parallel lookups while resolving a playlist (0 = unbounded)")
	flags.String("youtube-api-key", "", "YouTube Data API key (empty uses the innertube client)")
	flags.String("spotify-client-id", "", "Spotify client ID (empty scrapes embed pages)")
	flags.String("spotify-client-secret", "", "Spotify client secret")
	flags.String("cache-backend", defaults.Cache.Backend, "search cache backend (memory, redis, none)")
	flags.Int("cache-size", defaults.Cache.Size, "search results kept by the memory cache")
	flags.Duration("cache-ttl", defaults.Cache.TTL, "lifetime of a cached search result")
	flags.String("redis-addr", defaults.Cache.RedisAddr, "Redis address for the redis cache backend")
	flags.String("redis-password", "", "Redis password")
	flags.Int("redis-db", 0, "Redis database")
	flags.String("server-host", defaultServerHost, "HTTP server host")
	flags.Int("server-port", defaults.Server.Port, "HTTP server port")
	flags.StringSlice("trusted-proxies", nil, "proxy addresses or CIDR ranges whose X-Forwarded-For is trusted")
	flags.Int("flood-limit-per-minute", defaults.App.FloodLimitPerMinute, "Maximum API requests per client per minute (0 disables)")
	flags.Bool("generate-env-example", false, "Generate .env.example file from current configuration and exit")

	if err := viper.BindPFlags(flags); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bind flags: %v\n", err)
		os.Exit(1)
	}

	rootCmd.AddCommand(newResolveCmd(), newLinkCmd(), newPlaylistCmd(), newSearchCmd(), newServeCmd())
}

func initConfig() {
	envFile := ".env"
	if cfgFile != "" {
		envFile = cfgFile
	}

	if err := gotenv.Load(envFile); err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Error loading .env file: %v\n", err)
		}
	}

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	config = buildConfig()
	logger = buildLogger(config.Log.Level, config.Log.Format, config.Log.File)
}

func buildConfig() *core.Config {
	cfg := core.DefaultConfig()

	configureHTTP(cfg)
	configureSearch(cfg)
	configureProviders(cfg)
	configureCache(cfg)
	configureServer(cfg)
	configureApp(cfg)

	return cfg
}

func configureHTTP(cfg *core.Config) {
	if timeout := viper.GetDuration("http-timeout"); timeout > 0 {
		cfg.HTTP.Timeout = timeout
	}
}

func configureSearch(cfg *core.Config) {
	if limit := viper.GetInt("search-default-limit"); limit > 0 {
		cfg.Search.DefaultLimit = limit
	}
	cfg.Search.MaxConcurrency = viper.GetInt("search-max-concurrency")
}

func configureProviders(cfg *core.Config) {
	cfg.YouTube.APIKey = viper.GetString("youtube-api-key")
	cfg.Spotify.ClientID = viper.GetString("spotify-client-id")
	cfg.Spotify.ClientSecret = viper.GetString("spotify-client-secret")
}

func configureCache(cfg *core.Config) {
	cfg.Cache.Backend = strings.ToLower(viper.GetString("cache-backend"))
	if cfg.Cache.Backend == "" {
		cfg.Cache.Backend = core.CacheBackendMemory
	}
	if size := viper.GetInt("cache-size"); size > 0 {
		cfg.Cache.Size = size
	}
	if ttl := viper.GetDuration("cache-ttl"); ttl > 0 {
		cfg.Cache.TTL = ttl
	}
	if addr := viper.GetString("redis-addr"); addr != "" {
		cfg.Cache.RedisAddr = addr
	}
	cfg.Cache.RedisPassword = viper.GetString("redis-password")
	cfg.Cache.RedisDB = viper.GetInt("redis-db")
}

func configureServer(cfg *core.Config) {
	cfg.Server.Host = viper.GetString("server-host")
	if cfg.Server.Host == "" {
		cfg.Server.Host = defaultServerHost
	}
	if port := viper.GetInt("server-port"); port > 0 {
		cfg.Server.Port = port
	}
	cfg.Server.TrustedProxies = viper.GetStringSlice("trusted-proxies")
	if level := viper.GetString("log-level"); level != "" {
		cfg.Log.Level = level
	}
	if format := viper.GetString("log-format"); format != "" {
		cfg.Log.Format = format
	}
	cfg.Log.File = viper.GetString("log-file")
}

func configureApp(cfg *core.Config) {
	cfg.App.FloodLimitPerMinute = viper.GetInt("flood-limit-per-minute")
	if cfg.App.FloodLimitPerMinute < 0 {
		cfg.App.FloodLimitPerMinute = 0
	}
}

func validateConfig(cfg *core.Config) error {
	switch cfg.Cache.Backend {
	case core.CacheBackendMemory, core.CacheBackendRedis, core.CacheBackendNone:
	default:
		return fmt.Errorf("unknown cache backend %q (memory, redis, none)", cfg.Cache.Backend)
	}

	if (cfg.Spotify.ClientID == "") != (cfg.Spotify.ClientSecret == "") {
		return errors.New("spotify client ID and client secret must be set together")
	}

	if cfg.Cache.Backend == core.CacheBackendRedis && cfg.Cache.RedisAddr == "" {
		return errors.New("redis address is required for the redis cache backend")
	}

	if _, err := httpserver.ParseTrustedProxies(cfg.Server.TrustedProxies); err != nil {
		return err
	}

	return nil
}

func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// buildLogger logs to stderr, keeping stdout for command output. A non-empty file adds a
// rotated JSON log.
func buildLogger(level, format, file string) *zap.Logger {
	zapLevel := parseLevel(level)

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	if strings.EqualFold(format, logFormatConsole) {
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	} else {
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	}

	cores := []zapcore.Core{zapcore.NewCore(encoder, zapcore.Lock(os.Stderr), zapLevel)}
	if file != "" {
		writer := zapcore.AddSync(&lumberjack.Logger{
			Filename:   file,
			MaxSize:    logFileMaxSizeMB,
			MaxBackups: logFileMaxBackups,
			MaxAge:     logFileMaxAgeDays,
			Compress:   true,
		})
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), writer, zapLevel))
	}

	return zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
}

func generateEnvExample(cmd *cobra.Command) error {
	fmt.Println("Generating .env.example file from current configuration...")

	if err := os.WriteFile(".env.example", []byte(generateEnvExampleContent(cmd)), 0600); err != nil {
		return fmt.Errorf("failed to write .env.example: %w", err)
	}

	fmt.Println("Successfully generated .env.example file")
	return nil
}

var envExampleSections = []struct {
	title string
	flags []string
}{
	{"Providers (all optional; empty values use credential-free scraping)",
		[]string{"youtube-api-key", "spotify-client-id", "spotify-client-secret", "http-timeout"}},
	{"Search", []string{"search-default-limit", "search-max-concurrency"}},
	{"Search cache", []string{"cache-backend", "cache-size", "cache-ttl", "redis-addr", "redis-password", "redis-db"}},
	{"HTTP API", []string{"server-host", "server-port", "trusted-proxies", "flood-limit-per-minute"}},
	{"Logging", []string{"log-level", "log-format", "log-file"}},
}

func generateEnvExampleContent(cmd *cobra.Command) string {
	var content strings.Builder

	content.WriteString("# =============================================================================\n")
	content.WriteString("# musicresolver Configuration\n")
	content.WriteString("# =============================================================================\n")
	content.WriteString("#\n")
	content.WriteString("# Copy this file to .env and update with your values\n")
	content.WriteString("# All environment variables have CLI flag equivalents (use --help to see them)\n")
	fmt.Fprintf(&content, "# Format: %s_<SETTING>=value, CLI equivalent: --<setting>\n", envPrefix)

	for _, section := range envExampleSections {
		content.WriteString("\n# -----------------------------------------------------------------------------\n")
		fmt.Fprintf(&content, "# %s\n", section.title)
		content.WriteString("# -----------------------------------------------------------------------------\n")
		for _, name := range section.flags {
			f := cmd.Root().PersistentFlags().Lookup(name)
			if f == nil {
				continue
			}
			fmt.Fprintf(&content, "# %s\n%s=%s\n", f.Usage, flagToEnvVar(name), f.DefValue)
		}
	}

	return content.String()
}

func flagToEnvVar(flagName string) string {
	return envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(flagName, "-", "_"))
}
