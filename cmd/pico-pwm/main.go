//go:build rp2040 || rp2350

package main

import (
	"context"
	"machine"
	"runtime"
	"time"

	uartx "github.com/jangala-dev/tinygo-uartx/uartx"

	"pwmgroup-go/bus"
	"pwmgroup-go/internal/console"
	"pwmgroup-go/internal/logx"
	"pwmgroup-go/pwm"
	svccfg "pwmgroup-go/services/config"
	"pwmgroup-go/services/heartbeat"
	svc "pwmgroup-go/services/pwm"
	"pwmgroup-go/types"
)

const consoleBaud = 115200

func main() {
	// Allow USB CDC to enumerate before we print.
	time.Sleep(2 * time.Second)
	log := logx.For("main")
	log.Infof("boot")

	ctx := context.Background()
	b := bus.NewBus(8)

	drv, device := newDriver()
	reg := pwm.NewRegistry(drv, pwm.WithLogger(logx.For("registry")))
	s := svc.New(b.NewConnection("pwm"), reg, svc.WithDriverName(device))
	go s.Run(ctx)

	// Log level follows the embedded config.
	ui := b.NewConnection("ui")
	go func() {
		sub := ui.Subscribe(bus.T("config", "log"))
		for m := range sub.Channel() {
			if lvl, ok := m.Payload.(string); ok {
				if err := logx.SetLevel(lvl); err != nil {
					log.Warnf("log level %s: %v", lvl, err)
				}
			}
		}
	}()

	_ = heartbeat.New().Start(ctx, b.NewConnection("heartbeat"))

	cfgCtx := context.WithValue(ctx, svccfg.CtxDeviceKey, device)
	svccfg.NewConfigService().Start(cfgCtx, b.NewConnection("config"))

	go watchState(ui, log)

	u := uartx.UART0
	_ = u.Configure(uartx.UARTConfig{
		BaudRate: consoleBaud,
		TX:       machine.UART0_TX_PIN,
		RX:       machine.UART0_RX_PIN,
	})
	c := console.New(ui, u)
	c.Echo = true
	for {
		if err := c.Serve(ctx, u); err != nil {
			log.Errorf("console: %v", err)
			printMem()
			time.Sleep(time.Second)
		}
	}
}

func watchState(conn *bus.Connection, log logx.Logger) {
	sub := conn.Subscribe(bus.T(svc.TokPWM, svc.TokState))
	for m := range sub.Channel() {
		if st, ok := m.Payload.(types.ServiceState); ok {
			log.Infof("pwm %s %s %s", st.Level, st.Status, st.Error)
		}
	}
}

// printMem prints a compact snapshot of TinyGo runtime memory stats.
// Uses builtin println to avoid fmt overhead/allocations.
func printMem() {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	println(
		"[mem]",
		"alloc:", uint32(ms.Alloc),
		"heapInuse:", uint32(ms.HeapInuse),
		"mallocs:", uint32(ms.Mallocs),
		"frees:", uint32(ms.Frees),
	)
}
