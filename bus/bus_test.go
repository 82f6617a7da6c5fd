package bus

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"
)

// Retained state as the pwm service and config loader leave it.
func seedRetained(b *Bus) *Connection {
	c := b.NewConnection("seed")
	c.Publish(b.NewMessage(T("config", "pwm"), "groups", true))
	c.Publish(b.NewMessage(T("pwm", "state"), "ready", true))
	c.Publish(b.NewMessage(T("pwm", "led", "info"), "led-info", true))
	c.Publish(b.NewMessage(T("pwm", "buzzer", "info"), "buzzer-info", true))
	c.Publish(b.NewMessage(T("pwm", "led", 0, "value"), "led-0", true))
	return c
}

func TestSubscribe_DeliversMatchingRetained(t *testing.T) {
	cases := []struct {
		name string
		pat  Topic
		want []string
	}{
		{"exact", T("pwm", "state"), []string{"ready"}},
		{"single wild", T("pwm", "+", "info"), []string{"buzzer-info", "led-info"}},
		{"single wild depth", T("pwm", "+"), []string{"ready"}},
		{"multi wild", T("pwm", "#"), []string{"buzzer-info", "led-0", "led-info", "ready"}},
		{"multi wild under group", T("pwm", "led", "#"), []string{"led-0", "led-info"}},
		{"mixed", T("pwm", "+", "+", "value"), []string{"led-0"}},
		{"everything", T("#"), []string{"buzzer-info", "groups", "led-0", "led-info", "ready"}},
		{"no match", T("pwm", "+", "control"), nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b := NewBus(16)
			seedRetained(b)
			s := b.NewConnection("test").Subscribe(tc.pat)
			// Retained delivery happens inside Subscribe.
			got := queued(s)
			assertUnorderedEqual(t, got, tc.want)
		})
	}
}

func TestPublish_WildcardRouting(t *testing.T) {
	b := NewBus(8)
	c := b.NewConnection("test")

	ctl := c.Subscribe(T("pwm", "+", "control", "+"))
	grp := c.Subscribe(T("pwm", "led", "#"))
	all := c.Subscribe(T("#"))
	state := c.Subscribe(T("pwm", "state"))

	c.Publish(b.NewMessage(T("pwm", "led", "control", "fade"), "fade", false))
	expectOneOf(t, ctl, "fade")
	expectOneOf(t, grp, "fade")
	expectOneOf(t, all, "fade")
	expectNoMessage(t, state)

	// Single wildcard matches exactly one level.
	c.Publish(b.NewMessage(T("pwm", "led", "control"), "short", false))
	expectNoMessage(t, ctl)
	expectOneOf(t, grp, "short")
	expectOneOf(t, all, "short")

	// Multi wildcard also matches its parent level.
	c.Publish(b.NewMessage(T("pwm", "led"), "parent", false))
	expectOneOf(t, grp, "parent")
	expectOneOf(t, all, "parent")
	expectNoMessage(t, ctl)
}

func TestPublish_NilRetainedClears(t *testing.T) {
	b := NewBus(8)
	c := seedRetained(b)
	live := c.Subscribe(T("pwm", "led", "info"))
	expectOneOf(t, live, "led-info")

	c.Publish(b.NewMessage(T("pwm", "led", "info"), nil, true))

	// Existing subscribers still see the clearing message.
	select {
	case m := <-live.Channel():
		if m.Payload != nil {
			t.Fatalf("clear payload: %#v", m.Payload)
		}
	case <-time.After(200 * time.Millisecond):
		t.Fatal("timeout waiting for clear")
	}

	late := b.NewConnection("late").Subscribe(T("pwm", "+", "info"))
	assertUnorderedEqual(t, queued(late), []string{"buzzer-info"})

	// Clearing a topic that never held anything is harmless.
	c.Publish(b.NewMessage(T("pwm", "fan", "info"), nil, true))
	assertUnorderedEqual(t, queued(b.NewConnection("x").Subscribe(T("pwm", "fan", "#"))), nil)
}

func TestPublish_NonRetainedLeavesRetained(t *testing.T) {
	b := NewBus(8)
	c := seedRetained(b)
	c.Publish(b.NewMessage(T("pwm", "state"), "transient", false))

	s := c.Subscribe(T("pwm", "state"))
	assertUnorderedEqual(t, queued(s), []string{"ready"})
}

func TestDeliver_DropsOldestWhenFull(t *testing.T) {
	b := NewBus(2)
	c := b.NewConnection("test")
	s := c.Subscribe(T("pwm", "led", 0, "value"))

	for _, p := range []string{"m1", "m2", "m3"} {
		c.Publish(b.NewMessage(T("pwm", "led", 0, "value"), p, false))
	}

	got := queued(s)
	if len(got) != 2 || got[0] != "m2" || got[1] != "m3" {
		t.Fatalf("queue after overflow: %v", got)
	}
}

func TestRequestWait_Reply(t *testing.T) {
	b := NewBus(8)
	reqConn := b.NewConnection("console")
	respConn := b.NewConnection("pwm")

	reqSub := respConn.Subscribe(T("pwm", "+", "control", "+"))
	defer respConn.Unsubscribe(reqSub)
	go func() {
		if msg, ok := <-reqSub.Channel(); ok {
			respConn.Reply(msg, "ok", false)
		}
	}()

	req := b.NewMessage(T("pwm", "led", "control", "start"), 1, false)
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	reply, err := reqConn.RequestWait(ctx, req)
	if err != nil {
		t.Fatalf("RequestWait: %v", err)
	}
	if reply.Payload != "ok" {
		t.Fatalf("reply payload: %#v", reply.Payload)
	}
	if !topicsEqual(req.ReplyTo, Topic{"_reply", "console", req.ReplyTo[2]}) {
		t.Fatalf("reply topic: %v", req.ReplyTo)
	}
	if !topicsEqual(reply.Topic, req.ReplyTo) {
		t.Fatalf("reply on %v, want %v", reply.Topic, req.ReplyTo)
	}
}

func TestRequest_ReplyTopicsAreDistinct(t *testing.T) {
	b := NewBus(4)
	c := b.NewConnection("console")
	a := b.NewMessage(T("pwm", "led", "control", "stop"), nil, false)
	z := b.NewMessage(T("pwm", "led", "control", "stop"), nil, false)
	sa, sz := c.Request(a), c.Request(z)
	defer c.Unsubscribe(sa)
	defer c.Unsubscribe(sz)

	if topicsEqual(a.ReplyTo, z.ReplyTo) {
		t.Fatalf("shared reply topic %v", a.ReplyTo)
	}
	c.Publish(b.NewMessage(a.ReplyTo, "for-a", false))
	expectOneOf(t, sa, "for-a")
	expectNoMessage(t, sz)
}

func TestRequestWait_TimesOutWithoutResponder(t *testing.T) {
	b := NewBus(8)
	c := b.NewConnection("console")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.RequestWait(ctx, b.NewMessage(T("pwm", "led", "control", "start"), 0, false))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
}

func TestRequestWait_ErrNoReplyWhenSubscriptionCloses(t *testing.T) {
	b := NewBus(8)
	reqConn := b.NewConnection("console")
	respConn := b.NewConnection("pwm")

	// The responder tears down the requester instead of answering.
	reqSub := respConn.Subscribe(T("pwm", "+", "control", "+"))
	defer respConn.Unsubscribe(reqSub)
	go func() {
		if _, ok := <-reqSub.Channel(); ok {
			reqConn.Disconnect()
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := reqConn.RequestWait(ctx, b.NewMessage(T("pwm", "led", "control", "stop"), 0, false))
	if !errors.Is(err, ErrNoReply) {
		t.Fatalf("err = %v, want ErrNoReply", err)
	}
}

func TestReply_NoReplyToIsNoop(t *testing.T) {
	b := NewBus(4)
	c := b.NewConnection("svc")
	all := c.Subscribe(Topic{"#"})

	req := b.NewMessage(T("pwm", "led", "control", "stop"), nil, false)
	if req.CanReply() {
		t.Fatal("fresh message should not expect a reply")
	}
	c.Reply(req, "ignored", false)
	expectNoMessage(t, all)
}

func TestTopic_InvalidTokenPanics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Fatal("T accepted a slice token")
		}
	}()
	_ = T("pwm", []string{"led"})
}

func TestTopic_AppendCopies(t *testing.T) {
	base := T("pwm", "led")
	a := base.Append(0, "value")
	b := base.Append("info")
	if !topicsEqual(a, Topic{"pwm", "led", 0, "value"}) || !topicsEqual(b, Topic{"pwm", "led", "info"}) {
		t.Fatalf("append: %v %v", a, b)
	}
	if len(base) != 2 {
		t.Fatalf("base modified: %v", base)
	}
}

func TestUnsubscribe_Twice(t *testing.T) {
	b := NewBus(4)
	c := b.NewConnection("test")
	s := c.Subscribe(T("pwm", "state"))
	c.Unsubscribe(s)
	c.Unsubscribe(s)
	if _, ok := <-s.Channel(); ok {
		t.Fatal("channel should be closed")
	}
}

func TestDisconnect_StopsDelivery(t *testing.T) {
	b := NewBus(4)
	pub := b.NewConnection("pub")
	c := b.NewConnection("sub")
	s1 := c.Subscribe(T("pwm", "state"))
	s2 := c.Subscribe(T("pwm", "#"))
	c.Disconnect()

	pub.Publish(b.NewMessage(T("pwm", "state"), "ready", false))
	for _, s := range []*Subscription{s1, s2} {
		if _, ok := <-s.Channel(); ok {
			t.Fatalf("%v still delivering", s.Topic())
		}
	}
}

// -----------------------------------------------------------------------------
// helpers
// -----------------------------------------------------------------------------

func topicsEqual(a, b Topic) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// queued empties whatever is already buffered on sub, without waiting.
func queued(sub *Subscription) []string {
	var out []string
	for {
		select {
		case m, ok := <-sub.Channel():
			if !ok {
				return out
			}
			s, _ := m.Payload.(string)
			out = append(out, s)
		default:
			return out
		}
	}
}

func expectOneOf(t *testing.T, sub *Subscription, want string) {
	t.Helper()
	select {
	case got := <-sub.Channel():
		s, ok := got.Payload.(string)
		if !ok || s != want {
			t.Fatalf("unexpected payload: %v (want %q)", got.Payload, want)
		}
	case <-time.After(200 * time.Millisecond):
		t.Fatalf("timeout waiting for %q", want)
	}
}

func expectNoMessage(t *testing.T, sub *Subscription) {
	t.Helper()
	select {
	case got := <-sub.Channel():
		t.Fatalf("unexpected message: %#v", got)
	case <-time.After(60 * time.Millisecond):
	}
}

func assertUnorderedEqual(t *testing.T, got, want []string) {
	t.Helper()
	sort.Strings(got)
	sort.Strings(want)
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range got {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}
