package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Chandana25-sudo/coal-mine-breakdown-management-app/internal/datasync"

	"go.uber.org/zap"
)

// Publisher 发布接口（*Client 实现）
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload []byte) error
}

// EventSource 控制器事件源（*datasync.Controller 实现）
type EventSource interface {
	Subscribe(fn func(datasync.Event)) func()
}

// Refresher 触发重新加载（*datasync.Controller 实现）
type Refresher interface {
	Refresh(ctx context.Context) datasync.State
}

// Notifier 把控制器的状态变化发布到 MQTT 主题
// 发布失败只记日志，不影响记录操作
type Notifier struct {
	pub         Publisher
	topic       string
	qos         byte
	logger      *zap.Logger
	unsubscribe func()
}

func NewNotifier(pub Publisher, topic string, qos byte, logger *zap.Logger) *Notifier {
	return &Notifier{
		pub:    pub,
		topic:  topic,
		qos:    qos,
		logger: logger,
	}
}

// Attach 订阅控制器事件
func (n *Notifier) Attach(src EventSource) {
	n.Detach()
	n.unsubscribe = src.Subscribe(n.Publish)
}

// Detach 取消订阅
func (n *Notifier) Detach() {
	if n.unsubscribe != nil {
		n.unsubscribe()
		n.unsubscribe = nil
	}
}

// Publish 发布单个事件
func (n *Notifier) Publish(ev datasync.Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		n.logger.Error("Failed to marshal record event", zap.Error(err))
		return
	}
	if err := n.pub.Publish(n.topic, n.qos, false, payload); err != nil {
		n.logger.Warn("Failed to publish record event",
			zap.String("topic", n.topic),
			zap.String("type", string(ev.Type)),
			zap.Error(err),
		)
		return
	}
	n.logger.Debug("Published record event",
		zap.String("topic", n.topic),
		zap.String("type", string(ev.Type)),
		zap.String("record_id", ev.RecordID),
	)
}

// command 指令消息：{"action":"refresh"}
type command struct {
	Action string `json:"action"`
}

// refreshTimeout 指令触发的加载上限（LoadTimeout 之外留出缓存读取时间）
const refreshTimeout = 30 * time.Second

// NewCommandHandler 处理指令主题上的消息，目前只支持 refresh
func NewCommandHandler(r Refresher, logger *zap.Logger) MessageHandler {
	return func(topic string, payload []byte) error {
		var cmd command
		if err := json.Unmarshal(payload, &cmd); err != nil {
			return fmt.Errorf("invalid command payload: %w", err)
		}
		switch cmd.Action {
		case "refresh":
			ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
			defer cancel()
			state := r.Refresh(ctx)
			logger.Info("Refreshed records on MQTT command",
				zap.String("topic", topic),
				zap.Int("record_count", len(state.Records)),
				zap.Bool("degraded", state.Degraded),
			)
			return nil
		default:
			return fmt.Errorf("unknown command action %q", cmd.Action)
		}
	}
}
