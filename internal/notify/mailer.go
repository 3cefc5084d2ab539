package notify

import (
	"context"
	"fmt"
	"log"

	"github.com/wneessen/go-mail"

	"github.com/lvdashuaibi/campusvote/config"
)

// Mailer 真正的投递者，由Kafka消费者调用
type Mailer interface {
	Send(ctx context.Context, n Notification) error
}

// SMTPMailer 通过SMTP发送邮件
type SMTPMailer struct {
	cfg config.SMTPConfig
}

func NewSMTPMailer(cfg config.SMTPConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg}
}

// BuildMessage 根据通知构造邮件
func (m *SMTPMailer) BuildMessage(n Notification) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(m.cfg.From); err != nil {
		return nil, fmt.Errorf("设置发件人失败: %w", err)
	}
	if err := msg.To(n.Recipient); err != nil {
		return nil, fmt.Errorf("设置收件人失败: %w", err)
	}
	msg.Subject(n.Subject)
	msg.SetBodyString(mail.TypeTextPlain, n.Body)
	msg.SetCharset(mail.CharsetUTF8)
	return msg, nil
}

func (m *SMTPMailer) Send(ctx context.Context, n Notification) error {
	msg, err := m.BuildMessage(n)
	if err != nil {
		return err
	}

	opts := []mail.Option{
		mail.WithPort(m.cfg.Port),
		mail.WithUsername(m.cfg.Username),
		mail.WithPassword(m.cfg.Password),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
	}
	if m.cfg.NoTLS {
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	}

	c, err := mail.NewClient(m.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("创建SMTP客户端失败: %w", err)
	}
	if err := c.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("发送邮件失败: %w", err)
	}

	log.Printf("邮件已发送: 类型=%s, 收件人=%s", n.Kind, n.Recipient)
	return nil
}
