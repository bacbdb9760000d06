package server

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/lemonauth/internal/logging"
	"github.com/dmitrijs2005/lemonauth/internal/server/config"
	"github.com/dmitrijs2005/lemonauth/internal/server/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSender(t *testing.T) {
	cfg := &config.Config{}
	cfg.LoadDefaults()

	s, err := newSender(cfg, logging.Nop{})
	require.NoError(t, err)
	assert.IsType(t, &notify.LogSender{}, s)

	cfg.NotifierKind = config.NotifierSMTP
	cfg.SMTPHost = "mail.example"
	s, err = newSender(cfg, logging.Nop{})
	require.NoError(t, err)
	assert.IsType(t, &notify.SMTPSender{}, s)
}

func TestNewSender_KafkaUnreachable(t *testing.T) {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.NotifierKind = config.NotifierKafka
	cfg.KafkaBrokers = []string{"127.0.0.1:1"}

	_, err := newSender(cfg, logging.Nop{})
	require.Error(t, err)
}

type closingSender struct {
	mu     sync.Mutex
	sent   int
	closed bool
	// sentAtClose records how many messages were delivered when Close ran.
	sentAtClose int
}

func (s *closingSender) Send(context.Context, notify.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent++
	return nil
}

func (s *closingSender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.sentAtClose = s.sent
	return nil
}

func TestCloseNotifier_DrainsThenClosesSender(t *testing.T) {
	sender := &closingSender{}
	app := &App{
		logger:     logging.Nop{},
		sender:     sender,
		dispatcher: notify.NewDispatcher(sender, logging.Nop{}, 8, time.Second),
	}

	for i := 0; i < 3; i++ {
		app.dispatcher.Notify(context.Background(), notify.Message{To: "a@x.com"})
	}
	app.closeNotifier(context.Background())

	assert.True(t, sender.closed)
	assert.Equal(t, 3, sender.sentAtClose)
}

func TestCloseNotifier_SenderWithoutClose(t *testing.T) {
	sender := notify.NewLogSender(logging.Nop{})
	app := &App{
		logger:     logging.Nop{},
		sender:     sender,
		dispatcher: notify.NewDispatcher(sender, logging.Nop{}, 1, time.Second),
	}

	assert.NotPanics(t, func() { app.closeNotifier(context.Background()) })
}
