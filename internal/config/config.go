package config

import (
	"errors"
	"fmt"
	"net/netip"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"hostmon/internal/telemetry"
)

// DefaultListenAddr is used when no override is given or the override
// cannot be parsed.
const DefaultListenAddr = "127.0.0.1:5000"

// ErrInvalidListenAddr is returned alongside a usable default Config when the
// address override is malformed.
var ErrInvalidListenAddr = errors.New("invalid listen address")

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	err := v.RegisterValidation("ip_port", func(fl validator.FieldLevel) bool {
		_, err := netip.ParseAddrPort(fl.Field().String())
		return err == nil
	})
	if err != nil {
		panic(fmt.Sprintf("config: register ip_port validation: %v", err))
	}
	return v
}

type Config struct {
	ListenAddr      string        `validate:"required,ip_port"`
	RefreshTimeout  time.Duration `validate:"gt=0"`
	ReadTimeout     time.Duration `validate:"gt=0"`
	WriteTimeout    time.Duration `validate:"gtfield=RefreshTimeout"`
	ShutdownTimeout time.Duration `validate:"gt=0"`
}

// Default returns the configuration used when no argument is supplied.
func Default() Config {
	return Config{
		ListenAddr:      DefaultListenAddr,
		RefreshTimeout:  telemetry.DefaultRefreshTimeout,
		ReadTimeout:     10 * time.Second,
		WriteTimeout:    10 * time.Second,
		ShutdownTimeout: 5 * time.Second,
	}
}

// Load builds a Config from the process arguments (without the program
// name). The first argument, if present, overrides the listen address and
// must be an IP:port literal. A malformed override is not fatal: Load returns
// the default Config together with an error wrapping ErrInvalidListenAddr.
func Load(args []string) (Config, error) {
	cfg := Default()
	var warning error
	if len(args) > 0 {
		addr, err := ParseListenAddr(args[0])
		if err != nil {
			warning = err
		} else {
			cfg.ListenAddr = addr
		}
	}
	if err := cfg.Validate(); err != nil {
		return Default(), err
	}
	return cfg, warning
}

// ParseListenAddr normalizes an IP:port literal such as "0.0.0.0:8080" or
// "[::1]:5000".
func ParseListenAddr(raw string) (string, error) {
	ap, err := netip.ParseAddrPort(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("%w %q: %v", ErrInvalidListenAddr, raw, err)
	}
	return ap.String(), nil
}

// Validate checks field constraints.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}
