// Package email provides email sending capabilities via SMTP.
package email

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"html/template"
	"net/smtp"
	"strings"
)

// Config holds SMTP configuration
type Config struct {
	Host      string
	Port      string
	Username  string
	Password  string
	From      string
	FromName  string
	EnableTLS bool
}

// Service provides email sending
type Service struct {
	config Config
	server string
	auth   smtp.Auth
	send   func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// Attachment is a file carried in a multipart/mixed message.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// NewService creates a new email service
func NewService(config Config) *Service {
	auth := smtp.PlainAuth("", config.Username, config.Password, config.Host)

	return &Service{
		config: config,
		server: config.Host + ":" + config.Port,
		auth:   auth,
		send:   smtp.SendMail,
	}
}

// IsConfigured returns true if email is configured
func (s *Service) IsConfigured() bool {
	return s.config.Host != "" && s.config.Port != "" && s.config.From != ""
}

func (s *Service) fromHeader() string {
	if s.config.FromName != "" {
		return fmt.Sprintf("%s <%s>", s.config.FromName, s.config.From)
	}
	return s.config.From
}

// SendEmail sends a plain text email
func (s *Service) SendEmail(to []string, subject, body string) error {
	if !s.IsConfigured() {
		return fmt.Errorf("email not configured")
	}

	msg := []byte(fmt.Sprintf(
		"To: %s\r\n"+
			"From: %s\r\n"+
			"Subject: %s\r\n"+
			"Content-Type: text/plain; charset=UTF-8\r\n"+
			"\r\n"+
			"%s",
		strings.Join(to, ", "),
		s.fromHeader(),
		subject,
		body,
	))

	return s.send(s.server, s.auth, s.config.From, to, msg)
}

// SendAttachment sends an HTML email with one file attached.
func (s *Service) SendAttachment(to []string, subject, htmlBody string, att Attachment) error {
	if !s.IsConfigured() {
		return fmt.Errorf("email not configured")
	}
	if att.Filename == "" || len(att.Data) == 0 {
		return fmt.Errorf("attachment is empty")
	}

	msg := buildMixedMessage(s.fromHeader(), to, subject, htmlBody, att, "boundary-booklogger")
	return s.send(s.server, s.auth, s.config.From, to, msg)
}

func buildMixedMessage(from string, to []string, subject, htmlBody string, att Attachment, boundary string) []byte {
	contentType := att.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	var msg bytes.Buffer
	fmt.Fprintf(&msg, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&msg, "From: %s\r\n", from)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	fmt.Fprintf(&msg, "MIME-Version: 1.0\r\n")
	fmt.Fprintf(&msg, "Content-Type: multipart/mixed; boundary=\"%s\"\r\n", boundary)
	fmt.Fprintf(&msg, "\r\n")

	fmt.Fprintf(&msg, "--%s\r\n", boundary)
	fmt.Fprintf(&msg, "Content-Type: text/html; charset=UTF-8\r\n")
	fmt.Fprintf(&msg, "\r\n")
	fmt.Fprintf(&msg, "%s\r\n", htmlBody)
	fmt.Fprintf(&msg, "\r\n")

	fmt.Fprintf(&msg, "--%s\r\n", boundary)
	fmt.Fprintf(&msg, "Content-Type: %s; name=\"%s\"\r\n", contentType, att.Filename)
	fmt.Fprintf(&msg, "Content-Transfer-Encoding: base64\r\n")
	fmt.Fprintf(&msg, "Content-Disposition: attachment; filename=\"%s\"\r\n", att.Filename)
	fmt.Fprintf(&msg, "\r\n")

	// RFC 2045 limits encoded lines to 76 characters.
	encoded := base64.StdEncoding.EncodeToString(att.Data)
	for len(encoded) > 76 {
		fmt.Fprintf(&msg, "%s\r\n", encoded[:76])
		encoded = encoded[76:]
	}
	fmt.Fprintf(&msg, "%s\r\n", encoded)
	fmt.Fprintf(&msg, "--%s--\r\n", boundary)

	return msg.Bytes()
}

// EntryExportData feeds the entry export template.
type EntryExportData struct {
	AppName     string
	UserName    string
	LogbookName string
	Date        string
}

// SendEntryExport mails a rendered entry PDF to its owner.
func (s *Service) SendEntryExport(to, userName, logbookName, date, filename string, pdf []byte) error {
	data := EntryExportData{
		AppName:     "LogBook",
		UserName:    userName,
		LogbookName: logbookName,
		Date:        date,
	}

	subject := fmt.Sprintf("%s entry for %s", logbookName, date)
	html, err := renderTemplate(entryExportTemplate, data)
	if err != nil {
		return fmt.Errorf("render entry export template: %w", err)
	}

	return s.SendAttachment([]string{to}, subject, html, Attachment{
		Filename:    filename,
		ContentType: "application/pdf",
		Data:        pdf,
	})
}

func renderTemplate(tmpl string, data interface{}) (string, error) {
	t := template.Must(template.New("email").Parse(tmpl))
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

const entryExportTemplate = `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>{{.LogbookName}} · {{.Date}}</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #1a1a2e; max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { border-bottom: 2px solid #c8a96e; padding-bottom: 10px; margin-bottom: 20px; }
        .footer { margin-top: 30px; padding-top: 20px; border-top: 1px solid #eee; font-size: 12px; color: #666; }
    </style>
</head>
<body>
    <div class="header">
        <h1>{{.AppName}}</h1>
    </div>

    <p>Hi {{if .UserName}}{{.UserName}}{{else}}there{{end}},</p>

    <p>Your <strong>{{.LogbookName}}</strong> entry for {{.Date}} is attached as a PDF.</p>

    <div class="footer">
        <p>You received this email because you exported an entry from {{.AppName}}.</p>
    </div>
</body>
</html>`
