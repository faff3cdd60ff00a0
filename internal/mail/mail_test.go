package mail

import (
	"context"
	"errors"
	"net/smtp"
	"testing"

	"github.com/SreeragSreekanth/Blogplatform/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSender_FallsBackToLog(t *testing.T) {
	_, ok := NewSender(&config.Config{}).(LogSender)
	assert.True(t, ok)
	assert.NoError(t, LogSender{}.SendPasswordReset(context.Background(), "a@example.com", "a", "http://x"))
}

func TestSMTPSender_SendPasswordReset(t *testing.T) {
	cfg := &config.Config{SMTPHost: "smtp.example.com", SMTPPort: "587", SMTPUser: "u", SMTPPass: "p", SMTPFrom: "blog@example.com"}
	sender, ok := NewSender(cfg).(*SMTPSender)
	require.True(t, ok)

	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg []byte
	sender.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, msg
		assert.NotNil(t, a)
		return nil
	}

	link := "http://localhost:5173/reset-password/7/abc.def"
	require.NoError(t, sender.SendPasswordReset(context.Background(), "alice@example.com", "alice", link))

	assert.Equal(t, "smtp.example.com:587", gotAddr)
	assert.Equal(t, "blog@example.com", gotFrom)
	assert.Equal(t, []string{"alice@example.com"}, gotTo)
	assert.Contains(t, string(gotMsg), "Subject: Password reset request\r\n")
	assert.Contains(t, string(gotMsg), "Hello alice,")
	assert.Contains(t, string(gotMsg), link)
}

func TestSMTPSender_PropagatesFailure(t *testing.T) {
	sender := &SMTPSender{host: "h", port: "25", from: "f@example.com", send: func(string, smtp.Auth, string, []string, []byte) error {
		return errors.New("relay down")
	}}
	err := sender.SendPasswordReset(context.Background(), "a@example.com", "a", "l")
	assert.ErrorContains(t, err, "relay down")
}
