//go:build !(rp2040 || rp2350)

// pwm-demo runs the PWM service on the simulated peripheral and reads
// console commands from stdin.
//
//	pwm-demo <config.yaml>
package main

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"syscall"

	"pwmgroup-go/bus"
	"pwmgroup-go/config"
	"pwmgroup-go/internal/console"
	"pwmgroup-go/internal/logx"
	"pwmgroup-go/internal/provider"
	"pwmgroup-go/pwm"
	"pwmgroup-go/services/heartbeat"
	svc "pwmgroup-go/services/pwm"
	"pwmgroup-go/types"
)

func main() {
	log := logx.For("main")
	if len(os.Args) < 2 {
		log.Errorf("usage: pwm-demo <config.yaml>")
		os.Exit(2)
	}

	// --------------------
	// Load + validate config
	// --------------------

	cfg, err := config.Load(os.Args[1])
	if err != nil {
		log.Errorf("config load failed: %v", err)
		os.Exit(1)
	}
	if err := config.Validate(cfg); err != nil {
		log.Errorf("config validation failed: %v", err)
		os.Exit(1)
	}
	config.Normalize(cfg)
	if err := logx.SetLevel(cfg.LogLevel); err != nil {
		log.Warnf("log level %q: %v", cfg.LogLevel, err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --------------------
	// Bus, registry, service
	// --------------------

	b := bus.NewBus(32)
	drv := provider.NewSimDriver()
	reg := pwm.NewRegistry(drv, pwm.WithLogger(logx.For("registry")))
	s := svc.New(b.NewConnection("pwm"), reg, svc.WithDriverName("sim"))

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Run(ctx)
	}()

	ui := b.NewConnection("ui")
	go monitor(ctx, ui, logx.For("monitor"))

	ui.Publish(ui.NewMessage(bus.T(svc.TokConfig, svc.TokPWM), cfg.PWM(), true))
	if cfg.Heartbeat != nil {
		_ = heartbeat.New().Start(ctx, b.NewConnection("heartbeat"))
		ui.Publish(ui.NewMessage(bus.T(svc.TokConfig, "heartbeat"), *cfg.Heartbeat, true))
	}

	// --------------------
	// Console on stdin
	// --------------------

	c := console.New(ui, os.Stdout)
	err = c.Serve(ctx, console.ReaderSource{R: os.Stdin})
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, context.Canceled) {
		log.Errorf("console: %v", err)
	}
	stop()
	<-done
}

// monitor logs every state and value change at debug level.
func monitor(ctx context.Context, conn *bus.Connection, log logx.Logger) {
	sub := conn.Subscribe(bus.T(svc.TokPWM, "#"))
	defer conn.Unsubscribe(sub)
	for {
		select {
		case <-ctx.Done():
			return
		case m := <-sub.Channel():
			switch p := m.Payload.(type) {
			case types.ServiceState:
				log.Infof("state %s (%s) %s", p.Level, p.Status, p.Error)
			case types.PWMChannelValue:
				log.Debugf("%v ch=%d %.2f%% running=%t", m.Topic[1], p.Channel, p.Percent, p.Running)
			}
		}
	}
}
