package config

import (
	"context"

	"pwmgroup-go/bus"
	pwmcfg "pwmgroup-go/config"
	"pwmgroup-go/errcode"
	"pwmgroup-go/internal/logx"
)

// -----------------------------------------------------------------------------
// String constants (live in flash, not RAM)
// -----------------------------------------------------------------------------

const (
	serviceName  = "config"
	configPrefix = "config"
	keyPWM       = "pwm"
	keyLog       = "log"
	keyHeartbeat = "heartbeat"
)

type ctxKey string

// CtxDeviceKey is the context key holding the device ID.
const CtxDeviceKey ctxKey = "device"

// EmbeddedConfigLookup allows overriding how configs are resolved.
var EmbeddedConfigLookup = func(device string) ([]byte, bool) {
	b, ok := embeddedConfigs[device]
	return b, ok
}

// -----------------------------------------------------------------------------
// Config Service
// -----------------------------------------------------------------------------

type ConfigService struct {
	Name string
	log  logx.Logger
}

func NewConfigService() *ConfigService {
	return &ConfigService{Name: serviceName, log: logx.For(serviceName)}
}

// publishConfig resolves the device's embedded YAML, validates it and
// publishes each section as a retained message under "config/".
func (s *ConfigService) publishConfig(ctx context.Context, conn *bus.Connection) error {
	device, _ := ctx.Value(CtxDeviceKey).(string)
	if device == "" {
		return errcode.New(errcode.InvalidParams, "config_publish", "missing device ID in context")
	}

	raw, ok := EmbeddedConfigLookup(device)
	if !ok || len(raw) == 0 {
		return errcode.New(errcode.NotFound, "config_publish", "no embedded config for device: "+device)
	}

	cfg, err := pwmcfg.Parse(raw)
	if err != nil {
		return err
	}
	if err := pwmcfg.Validate(cfg); err != nil {
		return err
	}
	pwmcfg.Normalize(cfg)

	conn.Publish(conn.NewMessage(bus.T(configPrefix, keyLog), cfg.LogLevel, true))
	conn.Publish(conn.NewMessage(bus.T(configPrefix, keyPWM), cfg.PWM(), true))
	if cfg.Heartbeat != nil {
		conn.Publish(conn.NewMessage(bus.T(configPrefix, keyHeartbeat), *cfg.Heartbeat, true))
	}
	return nil
}

// Start launches the config publisher in a goroutine.
func (s *ConfigService) Start(ctx context.Context, conn *bus.Connection) {
	go func() {
		if err := s.publishConfig(ctx, conn); err != nil {
			s.log.Errorf("publish failed: %v", err)
		}
	}()
}
