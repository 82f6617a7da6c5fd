// Package console drives the PWM service from a line-oriented text
// interface: a UART on the board, stdin on a host.
package console

import (
	"context"
	"io"
	"time"

	"github.com/google/shlex"

	"pwmgroup-go/bus"
	"pwmgroup-go/errcode"
	svc "pwmgroup-go/services/pwm"
	"pwmgroup-go/types"
	"pwmgroup-go/x/fmtx"
	"pwmgroup-go/x/strconvx"
	"pwmgroup-go/x/strx"
)

const (
	defaultFadeSteps = "50"
	maxLine          = 128
)

const usage = `commands:
  duty <group> <ch> <percent>
  freq <group> <timer> <hz>
  start <group> <ch>
  stop <group> <ch> [high]
  fade <group> <ch> <percent> <ms> [steps]
  unfade <group> <ch>
  state
  help
`

// Source is satisfied by uartx.UART.
type Source interface {
	RecvSomeContext(ctx context.Context, buf []byte) (int, error)
}

// ReaderSource adapts a plain reader. Cancellation is only observed
// between reads.
type ReaderSource struct{ R io.Reader }

func (s ReaderSource) RecvSomeContext(ctx context.Context, buf []byte) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return s.R.Read(buf)
}

type Console struct {
	conn    *bus.Connection
	out     io.Writer
	Timeout time.Duration
	Echo    bool
}

func New(conn *bus.Connection, out io.Writer) *Console {
	return &Console{conn: conn, out: out, Timeout: time.Second}
}

// Serve executes one command per line until ctx ends or src fails.
// Over-long lines are discarded.
func (c *Console) Serve(ctx context.Context, src Source) error {
	var (
		buf  [64]byte
		line []byte
		skip bool
	)
	for {
		n, err := src.RecvSomeContext(ctx, buf[:])
		if c.Echo && n > 0 {
			_, _ = c.out.Write(buf[:n])
		}
		for _, b := range buf[:n] {
			if b == '\r' || b == '\n' {
				if !skip && len(line) > 0 {
					c.Exec(ctx, string(line))
				}
				line, skip = line[:0], false
				continue
			}
			if len(line) >= maxLine {
				skip = true
				continue
			}
			line = append(line, b)
		}
		if err != nil {
			if err == io.EOF && len(line) > 0 && !skip {
				c.Exec(ctx, string(line))
			}
			return err
		}
	}
}

// Exec runs a single command line and prints one result line.
func (c *Console) Exec(ctx context.Context, line string) {
	args, err := shlex.Split(line)
	if err != nil {
		c.printf("error: %s\n", err.Error())
		return
	}
	if len(args) == 0 {
		return
	}
	if err := c.run(ctx, args); err != nil {
		c.printf("error: %s\n", err.Error())
	}
}

func (c *Console) run(ctx context.Context, args []string) error {
	cmd := args[0]
	switch cmd {
	case "help":
		_, err := io.WriteString(c.out, usage)
		return err
	case "state":
		return c.state()
	}

	if len(args) < 3 {
		return errcode.New(errcode.InvalidArgument, cmd, "missing arguments")
	}
	group := args[1]
	id, err := strconvx.ParseUint(args[2], 10, 8)
	if err != nil {
		return errcode.Wrap(errcode.InvalidArgument, cmd, err)
	}

	switch cmd {
	case "duty":
		pct, err := floatArg(args, 3)
		if err != nil {
			return err
		}
		return c.request(ctx, group, svc.CtrlSetDuty, types.PWMSetDuty{Channel: uint8(id), Percent: pct})

	case "freq":
		if len(args) < 4 {
			return errcode.New(errcode.InvalidArgument, cmd, "missing hz")
		}
		hz, err := strconvx.ParseUint(args[3], 10, 32)
		if err != nil {
			return errcode.Wrap(errcode.InvalidArgument, cmd, err)
		}
		return c.request(ctx, group, svc.CtrlSetFreq, types.PWMSetFreq{Timer: uint8(id), FreqHz: uint32(hz)})

	case "start":
		return c.request(ctx, group, svc.CtrlStart, types.PWMStart{Channel: uint8(id)})

	case "stop":
		high := len(args) > 3 && args[3] == "high"
		return c.request(ctx, group, svc.CtrlStop, types.PWMStop{Channel: uint8(id), IdleHigh: high})

	case "fade":
		pct, err := floatArg(args, 3)
		if err != nil {
			return err
		}
		if len(args) < 5 {
			return errcode.New(errcode.InvalidArgument, cmd, "missing duration")
		}
		ms, err := strconvx.ParseUint(args[4], 10, 32)
		if err != nil {
			return errcode.Wrap(errcode.InvalidArgument, cmd, err)
		}
		stepsArg := ""
		if len(args) > 5 {
			stepsArg = args[5]
		}
		steps, err := strconvx.ParseUint(strx.Coalesce(stepsArg, defaultFadeSteps), 10, 16)
		if err != nil {
			return errcode.Wrap(errcode.InvalidArgument, cmd, err)
		}
		return c.request(ctx, group, svc.CtrlFade, types.PWMFade{
			Channel: uint8(id), To: pct, DurationMs: uint32(ms), Steps: uint16(steps),
		})

	case "unfade":
		return c.request(ctx, group, svc.CtrlStopFade, types.PWMStopFade{Channel: uint8(id)})
	}
	return errcode.New(errcode.Unsupported, cmd, "unknown command, try help")
}

func floatArg(args []string, i int) (float32, error) {
	if len(args) <= i {
		return 0, errcode.New(errcode.InvalidArgument, args[0], "missing percent")
	}
	f, err := strconvx.ParseFloat(args[i], 32)
	if err != nil {
		return 0, errcode.Wrap(errcode.InvalidArgument, args[0], err)
	}
	return float32(f), nil
}

func (c *Console) request(ctx context.Context, group, verb string, payload any) error {
	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	req := c.conn.NewMessage(bus.T(svc.TokPWM, group, svc.TokControl, verb), payload, false)
	rep, err := c.conn.RequestWait(ctx, req)
	if err != nil {
		return err
	}
	switch r := rep.Payload.(type) {
	case types.OKReply:
		c.printf("ok\n")
	case types.FreqReply:
		c.printf("ok %d Hz\n", int(r.FreqHz))
	case types.ErrorReply:
		return errcode.Code(r.Error)
	default:
		return errcode.InvalidPayload
	}
	return nil
}

// state prints the retained service state, if any.
func (c *Console) state() error {
	sub := c.conn.Subscribe(bus.T(svc.TokPWM, svc.TokState))
	defer c.conn.Unsubscribe(sub)
	select {
	case m := <-sub.Channel():
		if st, ok := m.Payload.(types.ServiceState); ok {
			if st.Error != "" {
				c.printf("%s %s %s\n", st.Level, st.Status, st.Error)
			} else {
				c.printf("%s %s\n", st.Level, st.Status)
			}
			return nil
		}
		return errcode.InvalidPayload
	default:
		return errcode.ServiceNotReady
	}
}

func (c *Console) printf(format string, a ...any) {
	_, _ = fmtx.Fprintf(c.out, format, a...)
}
