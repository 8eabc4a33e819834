// Package notify delivers operator alerts. Delivery is best effort:
// a broken mailer or missing desktop session must never stall the
// control loop.
package notify

import (
	"os/exec"
	"strings"
	"time"

	"github.com/gen2brain/beeep"
	"go.uber.org/zap"

	"github.com/TIANLI0/QFan-Agent/internal/types"
)

const mailTimeout = 10 * time.Second

type Notifier struct {
	cfg types.NotifyConfig
	lg  *zap.Logger
}

func New(cfg types.NotifyConfig, lg *zap.Logger) *Notifier {
	return &Notifier{cfg: cfg, lg: lg}
}

// Notify sends the message to every configured channel. It returns
// immediately; delivery happens in the background.
func (n *Notifier) Notify(subject, message string) {
	if n.cfg.MailTo != "" {
		go n.mail(subject, message)
	}
	if n.cfg.Desktop {
		go n.desktop(subject, message)
	}
}

func (n *Notifier) mail(subject, message string) {
	cmd := exec.Command("mail", "-s", subject, n.cfg.MailTo)
	cmd.Stdin = strings.NewReader(message + "\n")

	done := make(chan error, 1)
	if err := cmd.Start(); err != nil {
		n.lg.Warn("mail notification failed to start", zap.Error(err))
		return
	}
	go func() { done <- cmd.Wait() }()

	select {
	case err := <-done:
		if err != nil {
			n.lg.Warn("mail notification failed",
				zap.String("to", n.cfg.MailTo), zap.Error(err))
		}
	case <-time.After(mailTimeout):
		cmd.Process.Kill()
		n.lg.Warn("mail notification timed out", zap.String("to", n.cfg.MailTo))
	}
}

func (n *Notifier) desktop(subject, message string) {
	if err := beeep.Notify(subject, message, ""); err != nil {
		n.lg.Debug("desktop notification failed", zap.Error(err))
	}
}
