package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/ANTONINEUTRON/tita-flow-sub001/internal/config"
	"github.com/ANTONINEUTRON/tita-flow-sub001/internal/model"
	"gopkg.in/gomail.v2"
)

// SMTPMailer 通过 SMTP 发送通知邮件
type SMTPMailer struct {
	dialer *gomail.Dialer
	from   string
	appURL string
}

func NewSMTPMailer(cfg config.EmailConfig) *SMTPMailer {
	return &SMTPMailer{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password),
		from:   cfg.From,
		appURL: strings.TrimRight(cfg.AppURL, "/"),
	}
}

// Send gomail 不支持 ctx，超时由 SMTP 连接自身控制
func (m *SMTPMailer) Send(_ context.Context, to string, n model.NotificationModel) error {
	return m.dialer.DialAndSend(m.Message(to, n))
}

// Message 构造邮件
func (m *SMTPMailer) Message(to string, n model.NotificationModel) *gomail.Message {
	content := Render(n)

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", content.Title)

	body := content.Message
	if n.ActionURL != "" {
		body += fmt.Sprintf("\n\nView it on TitaFlow: %s%s", m.appURL, n.ActionURL)
	}
	msg.SetBody("text/plain", body)
	return msg
}
