package message

import (
	"context"
	"encoding/json"
	"fmt"

	"shmahjong/common/config"
	"shmahjong/common/log"
	"shmahjong/core/domain/entity"
	"shmahjong/core/domain/repository"

	"github.com/nats-io/nats.go"
)

// NatsRoundPublisher 把局结算结果发布到 <subject>.<roomId>
// nats 客户端自带重连，断线期间的发布会被缓冲或返回错误，不影响对局
type NatsRoundPublisher struct {
	subject string
	conn    *nats.Conn
}

func NewNatsRoundPublisher(conf config.NatsConf, name string) (repository.RoundResultPublisher, error) {
	log.Info("nats 正在连接, url:%s", conf.URL)
	conn, err := nats.Connect(conf.URL,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn("nats 连接断开: %v", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info("nats 重新连接成功, url:%s", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("nats 连接错误: %w", err)
	}
	log.Info("nats 连接成功, url:%s", conf.URL)
	return &NatsRoundPublisher{subject: conf.Subject, conn: conn}, nil
}

func (p *NatsRoundPublisher) PublishRoundResult(_ context.Context, summary *entity.RoundSummary) error {
	if p.conn == nil || !p.conn.IsConnected() {
		return fmt.Errorf("%w: nats 未连接", repository.ErrPublishFailed)
	}
	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("%w: %v", repository.ErrPublishFailed, err)
	}
	if err := p.conn.Publish(p.subject+"."+summary.RoomID, data); err != nil {
		return fmt.Errorf("%w: %v", repository.ErrPublishFailed, err)
	}
	return nil
}

func (p *NatsRoundPublisher) Close() {
	if p.conn == nil {
		return
	}
	if err := p.conn.Drain(); err != nil {
		p.conn.Close()
	}
	log.Info("NATS 连接已关闭")
}
