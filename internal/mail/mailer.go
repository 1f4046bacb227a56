// Package mail is the out-of-band delivery seam for password reset tokens.
// Real SMTP delivery lives outside this repo; the default implementation
// only logs that a token was issued.
package mail

import "go.uber.org/zap"

type Mailer interface {
	SendPasswordReset(email, token string) error
}

type LogMailer struct {
	Lg *zap.SugaredLogger
}

func (m LogMailer) SendPasswordReset(email, token string) error {
	m.Lg.Infow("password reset token issued", "email", email)
	m.Lg.Debugw("password reset token value", "token", token)
	return nil
}
