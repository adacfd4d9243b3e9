package main

import (
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/andres10976/slotwatch/internal/config"
	"github.com/andres10976/slotwatch/internal/service/notify"
)

func newNotifier(cfg *config.Config, clock clockwork.Clock, logger zerolog.Logger) (*notify.Notifier, func(), error) {
	n := cfg.Notify
	var (
		sender  notify.Sender
		closeFn = func() {}
	)
	switch n.Sender {
	case config.SenderTelegram:
		sender = notify.NewTelegramSender(n.TelegramURL, n.TelegramToken)
	case config.SenderNATS:
		natsCfg := notify.DefaultNATSConfig()
		natsCfg.URL = n.NATSURL
		natsCfg.Token = n.NATSToken
		natsCfg.SubjectPrefix = n.NATSSubject
		s, conn, err := notify.ConnectNATS(natsCfg, logger)
		if err != nil {
			return nil, nil, err
		}
		sender = s
		closeFn = func() {
			if err := conn.Drain(); err != nil {
				logger.Warn().Err(err).Msg("nats drain")
			}
		}
	default:
		sender = notify.NewLogSender(logger)
	}
	logger.Info().Str("sender", n.Sender).Int("operators", len(n.Operators)).Msg("notifier configured")
	return notify.New(sender, n.Operators, clock, logger), closeFn, nil
}
