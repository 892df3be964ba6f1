package services

import (
	"fmt"

	"gopkg.in/gomail.v2"
)

type EmailService interface {
	SendWelcomeEmail(email, name string) error
	SendLeadAssignedEmail(email, userName, leadTitle, reason string) error
}

type emailService struct {
	dialer *gomail.Dialer
	from   string
}

func NewEmailService(smtpHost string, smtpPort int, smtpUser, smtpPassword, fromEmail string) EmailService {
	return &emailService{
		dialer: gomail.NewDialer(smtpHost, smtpPort, smtpUser, smtpPassword),
		from:   fromEmail,
	}
}

func (s *emailService) SendWelcomeEmail(email, name string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", email)
	m.SetHeader("Subject", "Welcome to Leadflow")

	body := fmt.Sprintf(`
		<h2>Welcome, %s!</h2>
		<p>Your account has been created. You can now log in and start working your pipeline.</p>
		<p>— The Leadflow Team</p>
	`, name)
	m.SetBody("text/html", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send welcome email: %w", err)
	}
	return nil
}

func (s *emailService) SendLeadAssignedEmail(email, userName, leadTitle, reason string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", email)
	m.SetHeader("Subject", "New lead assigned to you")

	body := fmt.Sprintf(`
		<h3>Hi %s,</h3>
		<p>The lead <strong>%s</strong> was just assigned to you (%s).</p>
		<p>— Leadflow</p>
	`, userName, leadTitle, reason)
	m.SetBody("text/html", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send assignment email: %w", err)
	}
	return nil
}
