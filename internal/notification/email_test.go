package notification

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSMTPSenderBuildsHTMLMessage(t *testing.T) {
	s := NewSMTPSender("smtp.example.com", "587", "user", "pass", "tickets@example.com")

	var addr string
	var msg string
	s.send = func(a string, auth smtp.Auth, from string, to []string, body []byte) error {
		addr = a
		msg = string(body)
		assert.NotNil(t, auth)
		assert.Equal(t, "tickets@example.com", from)
		assert.Equal(t, []string{"budi@example.com"}, to)
		return nil
	}

	require.NoError(t, s.Send(context.Background(), "budi@example.com", "Tiket", "<p>hi</p>"))
	assert.Equal(t, "smtp.example.com:587", addr)
	assert.True(t, strings.HasPrefix(msg, "From: tickets@example.com\r\n"))
	assert.Contains(t, msg, "Subject: Tiket\r\n")
	assert.Contains(t, msg, "Content-Type: text/html")
	assert.True(t, strings.HasSuffix(msg, "\r\n\r\n<p>hi</p>"))
}

func TestSMTPSenderWrapsErrors(t *testing.T) {
	s := NewSMTPSender("smtp.example.com", "25", "", "", "x@example.com")
	s.send = func(string, smtp.Auth, string, []string, []byte) error { return errors.New("connection refused") }

	err := s.Send(context.Background(), "a@example.com", "s", "b")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "a@example.com")
}
