// services/pwm/service.go
package pwm

import (
	"context"
	"math"

	"pwmgroup-go/bus"
	"pwmgroup-go/config"
	"pwmgroup-go/errcode"
	"pwmgroup-go/internal/logx"
	pwmcore "pwmgroup-go/pwm"
	"pwmgroup-go/types"
	"pwmgroup-go/x/ramp"
	"pwmgroup-go/x/timex"
)

// group is one open handle and the last values published for it.
type group struct {
	name    string
	h       *pwmcore.Handle
	percent map[pwmcore.ChannelID]float32
	idle    map[pwmcore.ChannelID]pwmcore.IdleLevel
}

// Service exposes a Registry on the bus. Run owns the registry and every
// handle; nothing else may call into them while it runs.
type Service struct {
	conn    *bus.Connection
	cfgSub  *bus.Subscription
	ctrlSub *bus.Subscription
	reg     *pwmcore.Registry
	driver  string
	log     logx.Logger

	groups map[string]*group
	order  []string

	fades   map[fadeKey]fade
	fadeSeq uint32
	steps   chan fadeStep
	tick    func(context.Context) ramp.Tick
}

type Option func(*Service)

// WithDriverName sets the driver label published in group info.
func WithDriverName(name string) Option { return func(s *Service) { s.driver = name } }

func WithLogger(l logx.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

var (
	topicConfigPWM = bus.Topic{TokConfig, TokPWM}
	topicCtrl      = bus.Topic{TokPWM, "+", TokControl, "+"}
	topicState     = bus.Topic{TokPWM, TokState}
)

// New subscribes to the config and control topics straight away, so
// messages published between New and Run are queued rather than lost.
func New(conn *bus.Connection, reg *pwmcore.Registry, opts ...Option) *Service {
	s := &Service{
		conn:   conn,
		reg:    reg,
		driver: "pwm",
		log:    logx.For("pwm"),
		groups: map[string]*group{},
		fades:  map[fadeKey]fade{},
		steps:  make(chan fadeStep, 16),
		tick:   ramp.TimerTick,
	}
	for _, o := range opts {
		o(s)
	}
	s.cfgSub = conn.Subscribe(topicConfigPWM)
	s.ctrlSub = conn.Subscribe(topicCtrl)
	return s
}

// Run serves until ctx ends. It may be called once.
func (s *Service) Run(ctx context.Context) {
	cfgSub, ctrlSub := s.cfgSub, s.ctrlSub
	defer s.conn.Unsubscribe(cfgSub)
	defer s.conn.Unsubscribe(ctrlSub)

	s.publishState(LevelIdle, "awaiting_config", nil)

	for {
		select {
		case <-ctx.Done():
			s.closeAll()
			s.publishState(LevelStopped, "context_cancelled", nil)
			return

		case msg, ok := <-cfgSub.Channel():
			if !ok {
				s.closeAll()
				return
			}
			cfg, ok := msg.Payload.(types.PWMConfig)
			if !ok {
				s.publishState(LevelError, "config_wrong_type", nil)
				continue
			}
			if err := s.applyConfig(cfg); err != nil {
				s.log.Errorf("apply config: %v", err)
				s.publishState(LevelError, "apply_config_failed", err)
				continue
			}
			s.publishState(LevelReady, "configured", nil)

		case msg, ok := <-ctrlSub.Channel():
			if !ok {
				s.closeAll()
				return
			}
			s.handleControl(ctx, msg)

		case st := <-s.steps:
			s.applyFadeStep(st)
		}
	}
}

// -----------------------------------------------------------------------------
// Configuration
// -----------------------------------------------------------------------------

// applyConfig replaces every open group. The new config is validated
// before anything is closed; a group that fails to open closes the groups
// opened before it.
func (s *Service) applyConfig(cfg types.PWMConfig) error {
	groups := make([]types.PWMGroup, len(cfg.Groups))
	for i, g := range cfg.Groups {
		groups[i] = types.PWMGroup{Name: g.Name, Channels: append([]types.PWMChannel(nil), g.Channels...)}
	}
	if err := config.ValidateGroups(groups); err != nil {
		return err
	}
	config.NormalizeGroups(groups)

	s.closeAll()

	for _, decl := range groups {
		chs, err := config.Channels(decl)
		if err != nil {
			s.closeAll()
			return err
		}
		h, err := s.reg.Open(chs)
		if err != nil {
			s.closeAll()
			return errcode.Wrap(errcode.Of(err), "open "+decl.Name, err)
		}
		g := &group{
			name:    decl.Name,
			h:       h,
			percent: make(map[pwmcore.ChannelID]float32, len(chs)),
			idle:    make(map[pwmcore.ChannelID]pwmcore.IdleLevel, len(chs)),
		}
		s.groups[g.name] = g
		s.order = append(s.order, g.name)

		s.pubRet(bus.T(TokPWM, g.name, TokInfo), types.PWMInfo{
			SchemaVersion: 1,
			Driver:        s.driver,
			Channels:      decl.Channels,
		})
		for _, c := range chs {
			s.publishValue(g, c.Channel)
		}
		s.log.Infof("group %s open with %d channels", g.name, len(chs))
	}
	return nil
}

// closeAll closes groups in the order they were opened and clears their
// retained topics.
func (s *Service) closeAll() {
	for _, name := range s.order {
		g := s.groups[name]
		s.cancelGroupFades(name)
		chs := g.h.Channels()
		if err := g.h.Close(); err != nil {
			s.log.Warnf("close %s: %v", name, err)
		}
		for _, c := range chs {
			s.pubRet(valueTopic(name, c.Channel), nil)
		}
		s.pubRet(bus.T(TokPWM, name, TokInfo), nil)
	}
	s.groups = map[string]*group{}
	s.order = nil
}

// -----------------------------------------------------------------------------
// Control
// -----------------------------------------------------------------------------

func (s *Service) handleControl(ctx context.Context, msg *bus.Message) {
	// pwm/<group>/control/<verb>
	if len(msg.Topic) != 4 {
		s.replyErr(msg, errcode.InvalidTopic)
		return
	}
	name, _ := msg.Topic[1].(string)
	verb, _ := msg.Topic[3].(string)
	g := s.groups[name]
	if g == nil {
		s.replyErr(msg, errcode.UnknownGroup)
		return
	}

	switch verb {
	case CtrlSetDuty:
		p, ok := msg.Payload.(types.PWMSetDuty)
		if !ok {
			s.replyErr(msg, errcode.InvalidPayload)
			return
		}
		ch := pwmcore.ChannelID(p.Channel)
		if err := g.h.SetDutyPercent(ch, p.Percent); err != nil {
			s.replyErr(msg, errcode.Of(err))
			return
		}
		s.cancelFade(fadeKey{name, ch})
		g.percent[ch] = p.Percent
		s.publishValue(g, ch)
		s.replyOK(msg)

	case CtrlSetFreq:
		p, ok := msg.Payload.(types.PWMSetFreq)
		if !ok {
			s.replyErr(msg, errcode.InvalidPayload)
			return
		}
		hz, err := g.h.SetFrequency(pwmcore.TimerID(p.Timer), p.FreqHz)
		if err != nil {
			s.replyErr(msg, errcode.Of(err))
			return
		}
		s.conn.Reply(msg, types.FreqReply{OK: true, FreqHz: hz}, false)

	case CtrlStart:
		p, ok := msg.Payload.(types.PWMStart)
		if !ok {
			s.replyErr(msg, errcode.InvalidPayload)
			return
		}
		ch := pwmcore.ChannelID(p.Channel)
		if err := g.h.Start(ch); err != nil {
			s.replyErr(msg, errcode.Of(err))
			return
		}
		s.publishValue(g, ch)
		s.replyOK(msg)

	case CtrlStop:
		p, ok := msg.Payload.(types.PWMStop)
		if !ok {
			s.replyErr(msg, errcode.InvalidPayload)
			return
		}
		ch := pwmcore.ChannelID(p.Channel)
		idle := pwmcore.IdleLow
		if p.IdleHigh {
			idle = pwmcore.IdleHigh
		}
		if err := g.h.Stop(ch, idle); err != nil {
			s.replyErr(msg, errcode.Of(err))
			return
		}
		s.cancelFade(fadeKey{name, ch})
		g.idle[ch] = idle
		s.publishValue(g, ch)
		s.replyOK(msg)

	case CtrlFade:
		p, ok := msg.Payload.(types.PWMFade)
		if !ok {
			s.replyErr(msg, errcode.InvalidPayload)
			return
		}
		ch := pwmcore.ChannelID(p.Channel)
		if _, err := g.h.Lookup(ch); err != nil {
			s.replyErr(msg, errcode.Of(err))
			return
		}
		if math.IsNaN(float64(p.To)) || p.To < 0 || p.To > 100 {
			s.replyErr(msg, errcode.InvalidArgument)
			return
		}
		s.startFade(ctx, fadeKey{name, ch}, g.percent[ch], p)
		s.replyOK(msg)

	case CtrlStopFade:
		p, ok := msg.Payload.(types.PWMStopFade)
		if !ok {
			s.replyErr(msg, errcode.InvalidPayload)
			return
		}
		s.cancelFade(fadeKey{name, pwmcore.ChannelID(p.Channel)})
		s.replyOK(msg)

	default:
		s.replyErr(msg, errcode.Unsupported)
	}
}

// -----------------------------------------------------------------------------
// Publishing helpers
// -----------------------------------------------------------------------------

func valueTopic(group string, ch pwmcore.ChannelID) bus.Topic {
	return bus.T(TokPWM, group, int(ch), TokValue)
}

func (s *Service) publishValue(g *group, ch pwmcore.ChannelID) {
	running, _ := g.h.Started(ch)
	s.pubRet(valueTopic(g.name, ch), types.PWMChannelValue{
		Channel: uint8(ch),
		Percent: g.percent[ch],
		Running: running,
		Idle:    uint8(g.idle[ch]),
		TS:      timex.NowMs(),
	})
}

func (s *Service) publishState(level, status string, err error) {
	pl := types.ServiceState{Level: level, Status: status, TS: timex.NowMs()}
	if err != nil {
		pl.Error = string(errcode.Of(err))
	}
	s.conn.Publish(s.conn.NewMessage(topicState, pl, true))
}

func (s *Service) pubRet(t bus.Topic, p any) {
	s.conn.Publish(s.conn.NewMessage(t, p, true))
}

func (s *Service) replyOK(req *bus.Message) {
	s.conn.Reply(req, types.OKReply{OK: true}, false)
}

func (s *Service) replyErr(req *bus.Message, code errcode.Code) {
	if !req.CanReply() {
		return
	}
	if code == "" || code == errcode.OK {
		code = errcode.Error
	}
	s.conn.Reply(req, types.ErrorReply{OK: false, Error: string(code)}, false)
}
