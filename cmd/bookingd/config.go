package main

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/MarkoPoloResearchLab/motocare/internal/expiry"
	"github.com/MarkoPoloResearchLab/motocare/internal/httpapi"
	"github.com/MarkoPoloResearchLab/motocare/pkg/booking"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	flagDatabaseURL    = "database-url"
	flagEnvironment    = "environment"
	flagListenAddr     = "listen-addr"
	flagAllowedOrigins = "allowed-origins"
	flagJWTSigningKey  = "jwt-signing-key"
	flagJWTIssuer      = "jwt-issuer"
	flagRequestTimeout = "request-timeout"
	flagMaxPerSlot     = "max-per-slot"
	flagRequestExpiry  = "request-expiry"
	flagTimezone       = "timezone"
	flagSweepInterval  = "sweep-interval"
	flagEnvFile        = "env-file"

	configKeyExpiryHours = "request-expiry-hours"

	envPrefix            = "MOTOCARE"
	envLegacyMaxPerSlot  = "APPOINTMENT_MAX_PER_SLOT"
	envLegacyExpiryHours = "APPOINTMENT_REQUEST_EXPIRY_HOURS"

	defaultDatabaseURL = "sqlite:///tmp/motocare.db"
	defaultEnvironment = "development"
	defaultEnvFile     = ".env"
)

var boundFlags = []string{
	flagDatabaseURL,
	flagEnvironment,
	flagListenAddr,
	flagAllowedOrigins,
	flagJWTSigningKey,
	flagJWTIssuer,
	flagRequestTimeout,
	flagMaxPerSlot,
	flagRequestExpiry,
	flagTimezone,
	flagSweepInterval,
}

type runtimeConfig struct {
	DatabaseURL string
	Environment string
	HTTP        httpapi.Config
	Booking     booking.Config
	Sweep       expiry.Config
}

func registerFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.String(flagDatabaseURL, defaultDatabaseURL, "postgres:// or sqlite:// database URL")
	flags.String(flagEnvironment, defaultEnvironment, "runtime environment (production enables JSON logs)")
	flags.String(flagListenAddr, "", "HTTP listen address")
	flags.String(flagAllowedOrigins, "", "comma-separated list of allowed CORS origins")
	flags.String(flagJWTSigningKey, "", "HS256 key for bearer tokens")
	flags.String(flagJWTIssuer, "", "expected JWT issuer")
	flags.Duration(flagRequestTimeout, 0, "per-request timeout (e.g. 5s)")
	flags.Int(flagMaxPerSlot, booking.DefaultMaxPerSlot, "active appointments allowed per garage slot")
	flags.Duration(flagRequestExpiry, 0, "age at which REQUESTED appointments expire (default 6h)")
	flags.String(flagTimezone, "", "IANA time zone for booking dates (default local)")
	flags.Duration(flagSweepInterval, expiry.DefaultInterval, "expiry sweep interval")
	flags.String(flagEnvFile, defaultEnvFile, "optional dotenv file loaded before reading the environment")
}

func loadConfig(cmd *cobra.Command, cfg *runtimeConfig) error {
	envFile, err := cmd.Flags().GetString(flagEnvFile)
	if err != nil {
		return err
	}
	if err := loadEnvFile(envFile); err != nil {
		return err
	}

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.BindEnv(flagDatabaseURL, envPrefix+"_DATABASE_URL", "DATABASE_URL"); err != nil {
		return err
	}
	if err := v.BindEnv(flagMaxPerSlot, envPrefix+"_MAX_PER_SLOT", envLegacyMaxPerSlot); err != nil {
		return err
	}
	if err := v.BindEnv(configKeyExpiryHours, envLegacyExpiryHours); err != nil {
		return err
	}
	for _, flagName := range boundFlags {
		if err := v.BindPFlag(flagName, cmd.Flags().Lookup(flagName)); err != nil {
			return err
		}
	}

	location, err := loadLocation(v.GetString(flagTimezone))
	if err != nil {
		return err
	}
	requestExpiry := v.GetDuration(flagRequestExpiry)
	if requestExpiry == 0 && v.IsSet(configKeyExpiryHours) {
		requestExpiry = time.Duration(v.GetInt(configKeyExpiryHours)) * time.Hour
	}

	cfg.DatabaseURL = strings.TrimSpace(v.GetString(flagDatabaseURL))
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = defaultDatabaseURL
	}
	cfg.Environment = strings.TrimSpace(v.GetString(flagEnvironment))
	cfg.HTTP = httpapi.Config{
		ListenAddr:     strings.TrimSpace(v.GetString(flagListenAddr)),
		AllowedOrigins: httpapi.ParseAllowedOrigins(v.GetString(flagAllowedOrigins)),
		JWTSigningKey:  v.GetString(flagJWTSigningKey),
		JWTIssuer:      strings.TrimSpace(v.GetString(flagJWTIssuer)),
		RequestTimeout: v.GetDuration(flagRequestTimeout),
	}
	cfg.Booking = booking.Config{
		MaxPerSlot:    v.GetInt(flagMaxPerSlot),
		RequestExpiry: requestExpiry,
		Location:      location,
	}
	cfg.Sweep = expiry.Config{
		Interval:  v.GetDuration(flagSweepInterval),
		Threshold: requestExpiry,
	}
	return cfg.Booking.Validate()
}

// loadEnvFile loads path into the process environment. A missing file is not an error.
func loadEnvFile(path string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func loadLocation(name string) (*time.Location, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return time.Local, nil
	}
	location, err := time.LoadLocation(trimmed)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", trimmed, err)
	}
	return location, nil
}
