package notify

import (
	"fmt"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

type SMTPConfig struct {
	Host string
	Port int
	User string
	Pass string
	From string
}

// EmailNotifier SMTP 欢迎/注销邮件。配置不全时降级为空操作只记日志，
// 邮件永远不阻塞也不搞垮主流程。
type EmailNotifier struct {
	cfg SMTPConfig
	log *zap.Logger
}

func NewEmailNotifier(cfg SMTPConfig, log *zap.Logger) *EmailNotifier {
	return &EmailNotifier{cfg: cfg, log: log}
}

func (n *EmailNotifier) SendWelcome(email, name string) error {
	return n.send(email,
		"Thanks for joining in!",
		fmt.Sprintf("Welcome to the app, %s. Let me know how you get along with the app.", name))
}

func (n *EmailNotifier) SendCancellation(email, name string) error {
	return n.send(email,
		"Sorry to see you go!",
		fmt.Sprintf("Goodbye, %s. I hope to see you back sometime soon.", name))
}

func (n *EmailNotifier) send(to, subject, body string) error {
	if n.cfg.Host == "" || n.cfg.From == "" {
		n.log.Warn("smtp config missing, skip notification", zap.String("subject", subject))
		return nil
	}

	m := gomail.NewMessage()
	m.SetHeader("From", n.cfg.From)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	d := gomail.NewDialer(n.cfg.Host, n.cfg.Port, n.cfg.User, n.cfg.Pass)
	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	n.log.Info("email sent", zap.String("to", to), zap.String("subject", subject))
	return nil
}
