package services

import (
	"bytes"
	"dispatch_app_go/config"
	"embed"
	"fmt"
	htmltemplate "html/template"
	"log"
	"strings"
	texttemplate "text/template"

	"github.com/resend/resend-go/v2"
)

//go:embed emails/*.html emails/*.txt
var emailTemplates embed.FS

// Email represents an email message
type Email struct {
	To       []string
	Subject  string
	HTMLBody string
	TextBody string
}

// loadTemplate renders emails/<name>.html and emails/<name>.txt
func loadTemplate(templateName string, data interface{}) (html string, text string, err error) {
	htmlSrc, err := emailTemplates.ReadFile("emails/" + templateName + ".html")
	if err != nil {
		return "", "", fmt.Errorf("failed to read template %s.html: %w", templateName, err)
	}
	textSrc, err := emailTemplates.ReadFile("emails/" + templateName + ".txt")
	if err != nil {
		return "", "", fmt.Errorf("failed to read template %s.txt: %w", templateName, err)
	}

	htmlTmpl, err := htmltemplate.New(templateName).Parse(string(htmlSrc))
	if err != nil {
		return "", "", fmt.Errorf("failed to parse template %s.html: %w", templateName, err)
	}
	textTmpl, err := texttemplate.New(templateName).Parse(string(textSrc))
	if err != nil {
		return "", "", fmt.Errorf("failed to parse template %s.txt: %w", templateName, err)
	}

	var htmlBuf, textBuf bytes.Buffer
	if err := htmlTmpl.Execute(&htmlBuf, data); err != nil {
		return "", "", fmt.Errorf("failed to execute template %s.html: %w", templateName, err)
	}
	if err := textTmpl.Execute(&textBuf, data); err != nil {
		return "", "", fmt.Errorf("failed to execute template %s.txt: %w", templateName, err)
	}
	return htmlBuf.String(), textBuf.String(), nil
}

// SendEmail sends an email using Resend API
func SendEmail(cfg *config.Config, email *Email) error {
	// In development mode, log the email instead of sending
	if cfg.EmailTestMode {
		logEmailToConsole(email)
		return nil
	}

	if cfg.ResendAPIKey == "" {
		return fmt.Errorf("RESEND_API_KEY not configured")
	}
	if len(email.To) == 0 {
		return fmt.Errorf("email has no recipients")
	}

	client := resend.NewClient(cfg.ResendAPIKey)
	params := &resend.SendEmailRequest{
		From:    fmt.Sprintf("%s <%s>", cfg.EmailFromName, cfg.EmailFrom),
		To:      email.To,
		Subject: email.Subject,
		Html:    email.HTMLBody,
		Text:    email.TextBody,
	}
	if params.Html == "" && params.Text == "" {
		return fmt.Errorf("email must have either HTMLBody or TextBody")
	}

	sent, err := client.Emails.Send(params)
	if err != nil {
		return fmt.Errorf("failed to send email via Resend: %w", err)
	}

	log.Printf("[EMAIL] Sent via Resend (ID: %s) to: %v", sent.Id, email.To)
	return nil
}

// logEmailToConsole logs email details to console in development mode
func logEmailToConsole(email *Email) {
	separator := strings.Repeat("=", 80)
	log.Printf("\n%s\nEMAIL (test mode, not sent)\n%s", separator, separator)
	log.Printf("To: %v", email.To)
	log.Printf("Subject: %s", email.Subject)
	log.Printf("\n--- TEXT BODY ---\n%s", email.TextBody)
	log.Printf("%s\n", separator)
}

// BookingReminderEmailData contains data for the booking reminder template
type BookingReminderEmailData struct {
	CustomerName    string
	BusinessName    string
	ServiceName     string
	Date            string
	Time            string
	DurationMinutes int
	Address         string
	ProviderName    string
}

// BuildBookingReminderEmail creates the day-before reminder for a customer
func BuildBookingReminderEmail(to string, data BookingReminderEmailData) (*Email, error) {
	if data.ServiceName == "" {
		data.ServiceName = "service"
	}
	html, text, err := loadTemplate("booking_reminder", data)
	if err != nil {
		return nil, err
	}
	return &Email{
		To:       []string{to},
		Subject:  fmt.Sprintf("Reminder: your booking with %s on %s", data.BusinessName, data.Date),
		HTMLBody: html,
		TextBody: text,
	}, nil
}

// SchedulingAlertEmailData contains data for scheduling event emails
type SchedulingAlertEmailData struct {
	Title        string
	BusinessName string
	Summary      string
	OccurredAt   string
	Link         string
}

// BuildSchedulingAlertEmail creates an email for a scheduling event
func BuildSchedulingAlertEmail(to string, data SchedulingAlertEmailData) (*Email, error) {
	html, text, err := loadTemplate("scheduling_alert", data)
	if err != nil {
		return nil, err
	}
	return &Email{
		To:       []string{to},
		Subject:  fmt.Sprintf("[%s] %s", data.BusinessName, data.Title),
		HTMLBody: html,
		TextBody: text,
	}, nil
}
