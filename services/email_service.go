package services

import (
	"bytes"
	"crypto/tls"
	"errors"
	"fmt"
	"html/template"
	"log"
	"net/smtp"
	"os"
	"strings"
)

// ErrSMTPNotConfigured is returned when no SMTP credentials are set
var ErrSMTPNotConfigured = errors.New("SMTP not configured")

// EmailService handles sending emails via SMTP
type EmailService struct {
	host     string
	port     int
	username string
	password string
	from     string
	appURL   string
	siteName string

	// send delivers one message; replaced in tests
	send func(to, subject, htmlBody string) error
}

// NewEmailService creates a new email service instance
func NewEmailService() *EmailService {
	port := 587
	if p := os.Getenv("SMTP_PORT"); p != "" {
		fmt.Sscanf(p, "%d", &port)
	}

	e := &EmailService{
		host:     getEnvOrDefault("SMTP_HOST", "smtp.gmail.com"),
		port:     port,
		username: os.Getenv("SMTP_USERNAME"),
		password: os.Getenv("SMTP_PASSWORD"),
		from:     getEnvOrDefault("SMTP_FROM", "noreply@coursemarket.id"),
		appURL:   strings.TrimRight(getEnvOrDefault("APP_URL", "http://localhost:3000"), "/"),
		siteName: getEnvOrDefault("SITE_NAME", "Course Market"),
	}
	e.send = e.sendSMTP
	return e
}

// getEnvOrDefault returns the environment variable value or a default
func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// IsConfigured checks if SMTP is properly configured
func (e *EmailService) IsConfigured() bool {
	return e.username != "" && e.password != ""
}

var emailLayout = template.Must(template.New("layout").Parse(`<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>{{.Heading}} - {{.SiteName}}</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; background-color: #f5f5f5; }
        .container { background-color: #ffffff; border-radius: 8px; padding: 40px; box-shadow: 0 2px 4px rgba(0, 0, 0, 0.1); }
        .logo { text-align: center; margin-bottom: 30px; padding-bottom: 20px; border-bottom: 2px solid #1d4ed8; }
        .logo h1 { color: #1d4ed8; font-size: 28px; margin: 0; }
        h2 { color: #1d4ed8; margin-top: 0; }
        .button { display: inline-block; background-color: #1d4ed8; color: #ffffff !important; padding: 14px 28px; text-decoration: none; border-radius: 6px; font-weight: 600; margin: 20px 0; }
        .link-text { word-break: break-all; color: #666; font-size: 12px; background-color: #f5f5f5; padding: 10px; border-radius: 4px; margin-top: 15px; }
        .note { background-color: #fff3cd; border: 1px solid #ffc107; border-radius: 4px; padding: 12px; margin-top: 20px; font-size: 13px; }
        .footer { margin-top: 30px; padding-top: 20px; border-top: 1px solid #eee; font-size: 12px; color: #666; text-align: center; }
    </style>
</head>
<body>
    <div class="container">
        <div class="logo"><h1>{{.SiteName}}</h1></div>
        <h2>{{.Heading}}</h2>
        <p>Hello {{.Name}},</p>
        {{range .Paragraphs}}<p>{{.}}</p>
        {{end}}
        {{if .ActionURL}}<p style="text-align: center;"><a href="{{.ActionURL}}" class="button">{{.ActionLabel}}</a></p>
        <p>If the button doesn't work, copy and paste this link into your browser:</p>
        <div class="link-text">{{.ActionURL}}</div>{{end}}
        {{if .Note}}<div class="note">{{.Note}}</div>{{end}}
        <div class="footer">
            <p><strong>{{.SiteName}}</strong></p>
            <p><a href="{{.AppURL}}">{{.AppURL}}</a></p>
        </div>
    </div>
</body>
</html>`))

type emailContent struct {
	SiteName    string
	AppURL      string
	Heading     string
	Name        string
	Paragraphs  []string
	ActionURL   string
	ActionLabel string
	Note        string
}

func (e *EmailService) render(c emailContent) (string, error) {
	c.SiteName = e.siteName
	c.AppURL = e.appURL
	if c.Name == "" {
		c.Name = "there"
	}
	var buf bytes.Buffer
	if err := emailLayout.Execute(&buf, c); err != nil {
		return "", fmt.Errorf("render email: %w", err)
	}
	return buf.String(), nil
}

func (e *EmailService) deliver(to, subject string, c emailContent) error {
	if e.send == nil {
		return ErrSMTPNotConfigured
	}
	body, err := e.render(c)
	if err != nil {
		return err
	}
	return e.send(to, subject, body)
}

// SendPasswordResetEmail sends a password reset email to the user
func (e *EmailService) SendPasswordResetEmail(toEmail, resetToken, userName string) error {
	resetLink := fmt.Sprintf("%s/reset-password?token=%s", e.appURL, resetToken)
	return e.deliver(toEmail, "Reset Your Password - "+e.siteName, emailContent{
		Heading: "Reset Your Password",
		Name:    userName,
		Paragraphs: []string{
			"We received a request to reset the password for your account. Click the button below to create a new password:",
		},
		ActionURL:   resetLink,
		ActionLabel: "Reset Password",
		Note:        "This link will expire in 1 hour. If you didn't request a password reset, you can ignore this email.",
	})
}

// SendPaymentVerifiedEmail tells a student their course is unlocked
func (e *EmailService) SendPaymentVerifiedEmail(toEmail, userName, courseTitle, invoiceNumber string, amount float64) error {
	return e.deliver(toEmail, "Payment Verified - "+courseTitle, emailContent{
		Heading: "Your payment is verified",
		Name:    userName,
		Paragraphs: []string{
			fmt.Sprintf("We have verified your payment of %s for %s (invoice %s).", formatAmount(amount), courseTitle, invoiceNumber),
			"Your enrollment is active and you can start learning right away.",
		},
		ActionURL:   e.appURL + "/my-courses",
		ActionLabel: "Start Learning",
	})
}

// SendPaymentRejectedEmail tells a student their payment was declined
func (e *EmailService) SendPaymentRejectedEmail(toEmail, userName, courseTitle, invoiceNumber, reason string) error {
	paragraphs := []string{
		fmt.Sprintf("We could not verify your payment for %s (invoice %s).", courseTitle, invoiceNumber),
	}
	if reason != "" {
		paragraphs = append(paragraphs, "Reason: "+reason)
	}
	paragraphs = append(paragraphs, "You can submit a new payment with a clear transfer proof from your payment history.")
	return e.deliver(toEmail, "Payment Rejected - "+courseTitle, emailContent{
		Heading:     "We could not verify your payment",
		Name:        userName,
		Paragraphs:  paragraphs,
		ActionURL:   e.appURL + "/payments",
		ActionLabel: "View Payments",
	})
}

// SendCertificateEmail congratulates a student and links the certificate
func (e *EmailService) SendCertificateEmail(toEmail, userName, courseTitle, certificateNumber, pdfURL string) error {
	link := pdfURL
	if link == "" {
		link = e.appURL + "/certificates/" + certificateNumber
	}
	return e.deliver(toEmail, "Your Certificate - "+courseTitle, emailContent{
		Heading: "Congratulations on completing " + courseTitle,
		Name:    userName,
		Paragraphs: []string{
			"You have completed every lesson of " + courseTitle + ".",
			"Your certificate number is " + certificateNumber + ".",
		},
		ActionURL:   link,
		ActionLabel: "View Certificate",
	})
}

// formatAmount renders an IDR amount with dot thousand separators
func formatAmount(amount float64) string {
	digits := fmt.Sprintf("%.0f", amount)
	var out []byte
	for i := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 && digits[i-1] != '-' {
			out = append(out, '.')
		}
		out = append(out, digits[i])
	}
	return "Rp " + string(out)
}

// sendSMTP sends an email using SMTP with TLS
func (e *EmailService) sendSMTP(to, subject, htmlBody string) error {
	if !e.IsConfigured() {
		log.Printf("SMTP not configured. Skipping email %q to %s", subject, to)
		return ErrSMTPNotConfigured
	}

	headers := []string{
		fmt.Sprintf("From: %s <%s>", e.siteName, e.from),
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/html; charset=UTF-8",
	}

	var message strings.Builder
	for _, h := range headers {
		message.WriteString(h + "\r\n")
	}
	message.WriteString("\r\n")
	message.WriteString(htmlBody)

	addr := fmt.Sprintf("%s:%d", e.host, e.port)
	auth := smtp.PlainAuth("", e.username, e.password, e.host)

	conn, err := smtp.Dial(addr)
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	defer conn.Close()

	if err := conn.StartTLS(&tls.Config{ServerName: e.host}); err != nil {
		return fmt.Errorf("failed to start TLS: %w", err)
	}
	if err := conn.Auth(auth); err != nil {
		return fmt.Errorf("SMTP authentication failed: %w", err)
	}
	if err := conn.Mail(e.from); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}
	if err := conn.Rcpt(to); err != nil {
		return fmt.Errorf("failed to set recipient: %w", err)
	}

	w, err := conn.Data()
	if err != nil {
		return fmt.Errorf("failed to get data writer: %w", err)
	}
	if _, err := w.Write([]byte(message.String())); err != nil {
		return fmt.Errorf("failed to write email body: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}

	conn.Quit()

	log.Printf("Email %q sent to: %s", subject, to)
	return nil
}
