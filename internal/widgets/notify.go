package widgets

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"pagefx/internal/eventbus"
	"pagefx/internal/eventloop"
	logx "pagefx/pkg/logx"
)

const (
	NoticeSuccess = "success"
	NoticeError   = "error"

	// SlideOutDuration is how long a dismissed notice animates before removal.
	SlideOutDuration = 300 * time.Millisecond
)

type Notice struct {
	Seq     uint64
	Message string
	Kind    string
	Shown   time.Time
}

// NoticeView renders the single notification slot.
type NoticeView interface {
	ShowNotice(n Notice)
	SlideOutNotice(n Notice)
	RemoveNotice(n Notice)
}

type NotificationOptions struct {
	Lifetime time.Duration
	// RatePerSec limits Show; 0 means unlimited.
	RatePerSec float64
	Burst      int
	Logger     logx.Logger
	Bus        eventbus.Bus
}

// Notifications shows at most one notice at a time. A new notice replaces
// the current one; each notice slides out after its lifetime and is then
// removed.
type Notifications struct {
	mu sync.Mutex

	host     eventloop.Host
	view     NoticeView
	lifetime time.Duration
	limiter  *rate.Limiter
	log      logx.Logger
	bus      eventbus.Bus

	current *Notice
	seq     uint64
	dropped uint64

	dropLog rate.Sometimes
}

func NewNotifications(host eventloop.Host, view NoticeView, opts NotificationOptions) *Notifications {
	n := &Notifications{
		host:     host,
		view:     view,
		lifetime: opts.Lifetime,
		log:      opts.Logger,
		bus:      opts.Bus,
		dropLog:  rate.Sometimes{First: 1, Interval: 10 * time.Second},
	}
	if n.lifetime <= 0 {
		n.lifetime = 5 * time.Second
	}
	if opts.RatePerSec > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		n.limiter = rate.NewLimiter(rate.Limit(opts.RatePerSec), burst)
	}
	if n.log.IsZero() {
		n.log = logx.Nop()
	}
	return n
}

// Show displays msg. It returns false when the notice was rate limited.
func (n *Notifications) Show(msg, kind string) (Notice, bool) {
	now := n.host.Now()
	if n.limiter != nil && !n.limiter.AllowN(now, 1) {
		n.mu.Lock()
		n.dropped++
		dropped := n.dropped
		n.mu.Unlock()
		n.dropLog.Do(func() {
			n.log.Debug("notification rate limited", logx.String("message", msg), logx.Uint64("dropped", dropped))
		})
		return Notice{}, false
	}
	if kind == "" {
		kind = NoticeSuccess
	}

	n.mu.Lock()
	prev := n.current
	n.seq++
	notice := Notice{Seq: n.seq, Message: msg, Kind: kind, Shown: now}
	n.current = &notice
	n.mu.Unlock()

	if prev != nil {
		n.view.RemoveNotice(*prev)
	}
	n.view.ShowNotice(notice)
	publish(n.bus, eventbus.Event{Type: eventbus.TopicNotify, Time: now, Data: notice})
	n.log.Debug("notification shown", logx.String("kind", kind), logx.Uint64("seq", notice.Seq))

	n.host.SetTimeout(n.lifetime, func() {
		if !n.isCurrent(notice.Seq) {
			return
		}
		n.view.SlideOutNotice(notice)
		n.host.SetTimeout(SlideOutDuration, func() {
			if n.clear(notice.Seq) {
				n.view.RemoveNotice(notice)
			}
		})
	})
	return notice, true
}

// Dismiss removes the current notice immediately (the close button).
func (n *Notifications) Dismiss() bool {
	n.mu.Lock()
	cur := n.current
	n.current = nil
	n.mu.Unlock()
	if cur == nil {
		return false
	}
	n.view.RemoveNotice(*cur)
	return true
}

func (n *Notifications) Current() (Notice, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.current == nil {
		return Notice{}, false
	}
	return *n.current, true
}

func (n *Notifications) Dropped() uint64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.dropped
}

func (n *Notifications) isCurrent(seq uint64) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	// If the notice was replaced or dismissed, ignore this callback.
	return n.current != nil && n.current.Seq == seq
}

func (n *Notifications) clear(seq uint64) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.current == nil || n.current.Seq != seq {
		return false
	}
	n.current = nil
	return true
}
