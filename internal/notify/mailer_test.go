package notify

import (
	"context"
	"net/smtp"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSMTPMailerFormatsMessage(t *testing.T) {
	m := NewSMTPMailer(SMTPConfig{Host: "smtp.example.com", Port: "587", User: "u", Pass: "p", From: "no-reply@paygate.local"})
	var gotAddr string
	var gotTo []string
	var gotBody string
	m.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		require.NotNil(t, a)
		require.Equal(t, "no-reply@paygate.local", from)
		gotAddr, gotTo, gotBody = addr, to, string(msg)
		return nil
	}

	err := m.Send(context.Background(), Message{To: "a@example.com", Subject: "Your OTP", Body: "123456"})
	require.NoError(t, err)
	require.Equal(t, "smtp.example.com:587", gotAddr)
	require.Equal(t, []string{"a@example.com"}, gotTo)
	require.True(t, strings.HasPrefix(gotBody, "From: no-reply@paygate.local\r\n"))
	require.Contains(t, gotBody, "Subject: Your OTP\r\n")
	require.True(t, strings.HasSuffix(gotBody, "\r\n\r\n123456"))
}

func TestRecorderLast(t *testing.T) {
	r := &Recorder{}
	_ = r.Send(context.Background(), Message{To: "a@example.com", Body: "one"})
	_ = r.Send(context.Background(), Message{To: "b@example.com", Body: "two"})
	_ = r.Send(context.Background(), Message{To: "a@example.com", Body: "three"})

	msg, ok := r.Last("a@example.com")
	require.True(t, ok)
	require.Equal(t, "three", msg.Body)
	_, ok = r.Last("c@example.com")
	require.False(t, ok)
}
