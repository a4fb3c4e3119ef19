package app

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"dealer-workers/internal/common/config"
	"dealer-workers/internal/common/logger"
	"dealer-workers/internal/fipe"
	"dealer-workers/internal/notify"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryWithBackoff(t *testing.T) {
	log := logger.NewTestLogger(t)

	attempts := 0
	err := RetryWithBackoff(func() error {
		attempts++
		if attempts < 3 {
			return stderrors.New("connection refused")
		}
		return nil
	}, 5, time.Millisecond, log, "test op")
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)

	attempts = 0
	err = RetryWithBackoff(func() error {
		attempts++
		return stderrors.New("connection refused")
	}, 2, time.Millisecond, log, "test op")
	require.Error(t, err)
	assert.Equal(t, 2, attempts)
	assert.Contains(t, err.Error(), "test op failed after 2 attempts")
}

func TestChannels_DisabledNeedsNoAWS(t *testing.T) {
	cfg := &config.Config{}

	pusher, mailer, err := Channels(context.Background(), cfg, nil, logger.NewTestLogger(t))
	require.NoError(t, err)
	assert.IsType(t, notify.DisabledPusher{}, pusher)
	assert.IsType(t, notify.DisabledMailer{}, mailer)
}

func TestChannels_SMTPProvider(t *testing.T) {
	cfg := &config.Config{}
	cfg.Notifications.Email.Enabled = true
	cfg.Notifications.Email.Provider = "smtp"
	cfg.Notifications.Email.FromEmail = "no-reply@loja.com"
	cfg.Notifications.SMTP.Host = "smtp.loja.com"
	cfg.Notifications.SMTP.Port = 587

	pusher, mailer, err := Channels(context.Background(), cfg, nil, logger.NewTestLogger(t))
	require.NoError(t, err)
	assert.IsType(t, notify.DisabledPusher{}, pusher)
	assert.IsType(t, &notify.SMTPMailer{}, mailer)
}

func TestFipeTTLs(t *testing.T) {
	assert.Equal(t, fipe.DefaultTTLs, FipeTTLs(config.FipeConfig{}))

	ttls := FipeTTLs(config.FipeConfig{CatalogTTL: 48, PriceTTL: 6})
	assert.Equal(t, 48*time.Hour, ttls.Catalog)
	assert.Equal(t, 6*time.Hour, ttls.Price)
}
