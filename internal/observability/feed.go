package observability

import (
	"sync"
	"time"

	"go.uber.org/zap/zapcore"
)

// Event is one severity-tagged line of the live management feed.
type Event struct {
	Time    time.Time      `json:"time"`
	Level   string         `json:"level"`
	Logger  string         `json:"logger,omitempty"`
	Message string         `json:"message"`
	Fields  map[string]any `json:"fields,omitempty"`
}

// Feed is an append-only, bounded event log with non-blocking fan-out to
// subscribers. Slow subscribers lose events; publishers never wait.
type Feed struct {
	mu      sync.Mutex
	backlog []Event
	limit   int
	subs    map[int]chan Event
	nextSub int
}

// NewFeed creates a Feed that keeps at most backlog events for replay.
//
// Precondition: backlog >= 0.
func NewFeed(backlog int) *Feed {
	return &Feed{
		limit: backlog,
		subs:  make(map[int]chan Event),
	}
}

// Publish appends e to the backlog and offers it to every subscriber.
func (f *Feed) Publish(e Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.limit > 0 {
		if len(f.backlog) >= f.limit {
			copy(f.backlog, f.backlog[1:])
			f.backlog = f.backlog[:len(f.backlog)-1]
		}
		f.backlog = append(f.backlog, e)
	}
	for _, ch := range f.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

// Backlog returns a copy of the retained events, oldest first.
func (f *Feed) Backlog() []Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Event, len(f.backlog))
	copy(out, f.backlog)
	return out
}

// Clear drops the retained backlog. Subscribers stay attached.
func (f *Feed) Clear() {
	f.mu.Lock()
	f.backlog = nil
	f.mu.Unlock()
}

// Subscribe registers a subscriber with a channel buffer of size buf.
// It returns the backlog at the moment of subscription, the live channel and a
// cancel func that detaches and closes the channel.
//
// Postcondition: no event is both in the returned backlog and delivered on the channel.
func (f *Feed) Subscribe(buf int) ([]Event, <-chan Event, func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.nextSub
	f.nextSub++
	ch := make(chan Event, buf)
	f.subs[id] = ch
	replay := make([]Event, len(f.backlog))
	copy(replay, f.backlog)

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.subs, id)
			f.mu.Unlock()
			close(ch)
		})
	}
	return replay, ch, cancel
}

// Subscribers reports the number of attached subscribers.
func (f *Feed) Subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

// Core returns a zapcore.Core that publishes entries at or above level to f.
func (f *Feed) Core(level zapcore.Level) zapcore.Core {
	return &feedCore{LevelEnabler: level, feed: f}
}

type feedCore struct {
	zapcore.LevelEnabler
	feed   *Feed
	fields []zapcore.Field
}

func (c *feedCore) With(fields []zapcore.Field) zapcore.Core {
	clone := &feedCore{LevelEnabler: c.LevelEnabler, feed: c.feed}
	clone.fields = append(clone.fields, c.fields...)
	clone.fields = append(clone.fields, fields...)
	return clone
}

func (c *feedCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *feedCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	enc := zapcore.NewMapObjectEncoder()
	for _, fld := range c.fields {
		fld.AddTo(enc)
	}
	for _, fld := range fields {
		fld.AddTo(enc)
	}
	e := Event{
		Time:    ent.Time,
		Level:   ent.Level.String(),
		Logger:  ent.LoggerName,
		Message: ent.Message,
	}
	if len(enc.Fields) > 0 {
		e.Fields = enc.Fields
	}
	c.feed.Publish(e)
	return nil
}

func (c *feedCore) Sync() error { return nil }
