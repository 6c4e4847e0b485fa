package nats

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/nats-io/nats.go"

	"sudooom.im.social/pkg/proto"
)

// SubjectPrefix 活动事件主题前缀，完整主题为 social.activity.<type>
const SubjectPrefix = "social.activity."

// ActivityPublisher 活动事件发布器
// 尽力而为：发布失败只记录日志，不影响引擎状态
type ActivityPublisher struct {
	nc     *nats.Conn
	logger *slog.Logger
}

// NewActivityPublisher 创建活动事件发布器
func NewActivityPublisher(nc *nats.Conn) *ActivityPublisher {
	return &ActivityPublisher{
		nc:     nc,
		logger: slog.Default(),
	}
}

// PublishActivity 发布活动事件
func (p *ActivityPublisher) PublishActivity(ctx context.Context, event proto.ActivityEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		p.logger.Error("Failed to marshal activity event", "error", err)
		return err
	}

	subject := SubjectPrefix + event.Type
	if err := p.nc.Publish(subject, data); err != nil {
		p.logger.Error("Failed to publish activity event", "subject", subject, "error", err)
		return err
	}

	p.logger.Debug("Published activity event", "subject", subject, "entityId", event.EntityID)
	return nil
}
