package heartbeat

import (
	"context"
	"time"

	"pwmgroup-go/bus"
	"pwmgroup-go/errcode"
	"pwmgroup-go/internal/logx"
	svc "pwmgroup-go/services/pwm"
	"pwmgroup-go/types"
)

var (
	topicConfigHeartbeat = bus.Topic{"config", "heartbeat"}
	topicPWMState        = bus.Topic{svc.TokPWM, svc.TokState}
)

const (
	defaultInterval = time.Second
	defaultPeak     = 60
	fadeSteps       = 32
	requestTimeout  = 500 * time.Millisecond
)

// Service breathes one PWM channel up and down through the pwm service's
// fade control, so a stalled bus or service shows on the board.
type Service struct {
	log logx.Logger
}

func New() *Service { return &Service{log: logx.For("heartbeat")} }

func (s *Service) serviceLoop(ctx context.Context, conn *bus.Connection, cfgSub, stateSub *bus.Subscription) {
	defer conn.Unsubscribe(cfgSub)
	defer conn.Unsubscribe(stateSub)

	tick := time.NewTicker(defaultInterval)
	defer tick.Stop()

	var (
		cfg     types.HeartbeatConfig
		active  bool
		started bool // cleared whenever the pwm service reopens its groups
		up      = true
	)

	// loop until context is cancelled, respond to tick and config changes
	for {
		select {
		case <-ctx.Done():
			s.log.Infof("heartbeat service stopping")
			return

		case <-tick.C:
			if !active {
				continue
			}
			if !started {
				started = s.start(ctx, conn, cfg) == nil
			}
			to := float32(0)
			if up {
				to = cfg.Peak
			}
			up = !up
			if err := s.fade(ctx, conn, cfg, to); err != nil {
				s.log.Debugf("fade %s/%d: %v", cfg.Group, cfg.Channel, err)
			}

		case msg, ok := <-stateSub.Channel():
			if !ok {
				return
			}
			// Every ready means the groups were (re)opened with all
			// channels stopped.
			st, isState := msg.Payload.(types.ServiceState)
			if !isState || st.Level != svc.LevelReady {
				continue
			}
			started = false
			if active {
				started = s.start(ctx, conn, cfg) == nil
			}

		case msg, ok := <-cfgSub.Channel():
			if !ok {
				return
			}
			c, ok := msg.Payload.(types.HeartbeatConfig)
			if !ok || c.Group == "" {
				s.log.Warnf("ignoring heartbeat config %v", msg.Payload)
				continue
			}
			if c.IntervalMs == 0 {
				c.IntervalMs = uint32(defaultInterval / time.Millisecond)
			}
			if c.Peak <= 0 || c.Peak > 100 {
				c.Peak = defaultPeak
			}
			cfg, active, up = c, true, true
			tick.Reset(time.Duration(c.IntervalMs) * time.Millisecond)
			err := s.start(ctx, conn, cfg)
			started = err == nil
			if err != nil {
				s.log.Warnf("start %s/%d: %v", cfg.Group, cfg.Channel, err)
			}
			s.log.Infof("heartbeat on %s/%d every %d ms", cfg.Group, cfg.Channel, cfg.IntervalMs)
		}
	}
}

func (s *Service) start(ctx context.Context, conn *bus.Connection, cfg types.HeartbeatConfig) error {
	return request(ctx, conn, cfg.Group, svc.CtrlStart, types.PWMStart{Channel: cfg.Channel})
}

func (s *Service) fade(ctx context.Context, conn *bus.Connection, cfg types.HeartbeatConfig, to float32) error {
	return request(ctx, conn, cfg.Group, svc.CtrlFade, types.PWMFade{
		Channel:    cfg.Channel,
		To:         to,
		DurationMs: cfg.IntervalMs,
		Steps:      fadeSteps,
	})
}

func request(ctx context.Context, conn *bus.Connection, group, verb string, payload any) error {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	rep, err := conn.RequestWait(ctx, conn.NewMessage(bus.T(svc.TokPWM, group, svc.TokControl, verb), payload, false))
	if err != nil {
		return err
	}
	if e, ok := rep.Payload.(types.ErrorReply); ok {
		return errcode.Code(e.Error)
	}
	return nil
}

// Start subscribes before returning, then runs the heartbeat loop in a
// goroutine.
func (s *Service) Start(ctx context.Context, conn *bus.Connection) error {
	cfgSub := conn.Subscribe(topicConfigHeartbeat)
	stateSub := conn.Subscribe(topicPWMState)
	go s.serviceLoop(ctx, conn, cfgSub, stateSub)
	return nil
}
