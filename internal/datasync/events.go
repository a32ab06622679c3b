package datasync

import "time"

// EventType 状态变化类型
type EventType string

const (
	EventLoaded  EventType = "loaded"
	EventAdded   EventType = "added"
	EventUpdated EventType = "updated"
	EventDeleted EventType = "deleted"
)

// Event 状态变化通知
// Remote=false 表示远端调用失败，变化只在本地生效
type Event struct {
	Type        EventType `json:"type"`
	RecordID    string    `json:"record_id,omitempty"`
	Remote      bool      `json:"remote"`
	Error       string    `json:"error,omitempty"`
	RecordCount int       `json:"record_count"`
	At          time.Time `json:"at"`
}

func mutationEvent(t EventType, id string, err error) Event {
	ev := Event{Type: t, RecordID: id, Remote: err == nil}
	if err != nil {
		switch t {
		case EventAdded:
			ev.Error = MsgAddFailed
		case EventUpdated:
			ev.Error = MsgUpdateFailed
		case EventDeleted:
			ev.Error = MsgDeleteFailed
		}
	}
	return ev
}

// Subscribe 注册状态变化回调，返回取消函数
// 回调在触发变化的 goroutine 中同步执行，不持有控制器锁
func (c *Controller) Subscribe(fn func(Event)) func() {
	c.subMu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subscribers[id] = fn
	c.subMu.Unlock()

	return func() {
		c.subMu.Lock()
		delete(c.subscribers, id)
		c.subMu.Unlock()
	}
}

func (c *Controller) emit(ev Event) {
	if ev.At.IsZero() {
		ev.At = c.opts.Now()
	}
	if ev.RecordCount == 0 && ev.Type != EventLoaded {
		c.mu.Lock()
		ev.RecordCount = len(c.records)
		c.mu.Unlock()
	}

	c.subMu.Lock()
	fns := make([]func(Event), 0, len(c.subscribers))
	for _, fn := range c.subscribers {
		fns = append(fns, fn)
	}
	c.subMu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}
