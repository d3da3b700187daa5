package services

import (
	"crypto/tls"
	"fmt"
	"net/smtp"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"github.com/clinreach/clinreach/internal/models"
	"github.com/clinreach/clinreach/pkg/logger"
)

type EmailService struct {
	db *gorm.DB
}

type EmailConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Username string
	Password string
	From     string
	UseTLS   bool
}

func NewEmailService(db *gorm.DB) *EmailService {
	return &EmailService{db: db}
}

// GetConfig assembles SMTP settings from the email config group. Email is
// disabled unless explicitly enabled and a host is set.
func (s *EmailService) GetConfig() *EmailConfig {
	config := &EmailConfig{}

	var configs []models.SystemConfig
	s.db.Where("`group` = ?", "email").Find(&configs)

	for _, c := range configs {
		switch c.Key {
		case "email_enabled":
			config.Enabled = c.Value == "true"
		case "email_host":
			config.Host = c.Value
		case "email_port":
			if port, err := strconv.Atoi(c.Value); err == nil {
				config.Port = port
			}
		case "email_username":
			config.Username = c.Value
		case "email_password":
			config.Password = c.Value
		case "email_from":
			config.From = c.Value
		case "email_use_tls":
			config.UseTLS = c.Value == "true"
		}
	}

	if config.Port == 0 {
		config.Port = 587
	}

	return config
}

// SendSubmissionReceipt confirms to the member that their application was
// received and a participant slot reserved.
func (s *EmailService) SendSubmissionReceipt(app *models.Application) error {
	config := s.GetConfig()
	if !config.Enabled || config.Host == "" {
		return nil
	}
	if app.Member.Email == "" {
		return nil
	}

	subject := fmt.Sprintf("[ClinReach] Application received: %s", app.Study.Title)

	var sb strings.Builder
	sb.WriteString("<html><body style=\"font-family: Arial, sans-serif;\">")
	sb.WriteString(fmt.Sprintf("<h2>Thank you, %s</h2>", app.Member.FirstName))
	sb.WriteString(fmt.Sprintf("<p>We received your application to <strong>%s</strong>.</p>", app.Study.Title))
	sb.WriteString("<p>Our recruitment team will review it and contact you about next steps. ")
	sb.WriteString("You can withdraw consent at any time by contacting the study coordinator.</p>")
	sb.WriteString(fmt.Sprintf("<p>Application reference: <code>%s</code></p>", app.ID))
	sb.WriteString("<hr><p style=\"color: #888; font-size: 12px;\">Powered by ClinReach</p>")
	sb.WriteString("</body></html>")

	return s.sendEmail(config, []string{app.Member.Email}, subject, sb.String())
}

// SendStatusUpdate informs the member that their application moved to a new
// stage.
func (s *EmailService) SendStatusUpdate(app *models.Application) error {
	config := s.GetConfig()
	if !config.Enabled || config.Host == "" {
		return nil
	}
	if app.Member.Email == "" {
		return nil
	}

	subject := fmt.Sprintf("[ClinReach] Application update: %s", app.Study.Title)

	var sb strings.Builder
	sb.WriteString("<html><body style=\"font-family: Arial, sans-serif;\">")
	sb.WriteString(fmt.Sprintf("<h2>Hello, %s</h2>", app.Member.FirstName))
	sb.WriteString(fmt.Sprintf("<p>Your application to <strong>%s</strong> is now: <strong>%s</strong>.</p>",
		app.Study.Title, statusLabel(app.Status)))

	if app.Status == models.AppStatusInterviewScheduled && app.InterviewDate != nil {
		sb.WriteString(fmt.Sprintf("<p>Your interview is scheduled for <strong>%s</strong>",
			app.InterviewDate.Format("Monday, 2 January 2006 at 15:04")))
		if app.InterviewLocation != "" {
			sb.WriteString(fmt.Sprintf(" at %s", app.InterviewLocation))
		}
		sb.WriteString(".</p>")
	}

	sb.WriteString(fmt.Sprintf("<p>Application reference: <code>%s</code></p>", app.ID))
	sb.WriteString("<hr><p style=\"color: #888; font-size: 12px;\">Powered by ClinReach</p>")
	sb.WriteString("</body></html>")

	return s.sendEmail(config, []string{app.Member.Email}, subject, sb.String())
}

func statusLabel(status string) string {
	switch status {
	case models.AppStatusSubmitted:
		return "Submitted"
	case models.AppStatusUnderReview:
		return "Under review"
	case models.AppStatusScreening:
		return "In screening"
	case models.AppStatusInterviewScheduled:
		return "Interview scheduled"
	case models.AppStatusApproved:
		return "Approved"
	case models.AppStatusRejected:
		return "Not selected"
	case models.AppStatusCompleted:
		return "Completed"
	}
	return status
}

func (s *EmailService) sendEmail(config *EmailConfig, to []string, subject, body string) error {
	from := config.From
	if from == "" {
		from = config.Username
	}

	headers := make(map[string]string)
	headers["From"] = from
	headers["To"] = strings.Join(to, ",")
	headers["Subject"] = subject
	headers["MIME-Version"] = "1.0"
	headers["Content-Type"] = "text/html; charset=UTF-8"

	var message strings.Builder
	for k, v := range headers {
		message.WriteString(fmt.Sprintf("%s: %s\r\n", k, v))
	}
	message.WriteString("\r\n")
	message.WriteString(body)

	addr := fmt.Sprintf("%s:%d", config.Host, config.Port)

	var auth smtp.Auth
	if config.Username != "" && config.Password != "" {
		auth = smtp.PlainAuth("", config.Username, config.Password, config.Host)
	}

	var err error
	if config.UseTLS {
		err = s.sendEmailTLS(config, addr, auth, from, to, message.String())
	} else {
		err = smtp.SendMail(addr, auth, from, to, []byte(message.String()))
	}

	if err != nil {
		logger.Infof("[Email] Failed to send email: %v", err)
		return err
	}

	logger.Infof("[Email] Sent notification to %v", to)
	return nil
}

func (s *EmailService) sendEmailTLS(config *EmailConfig, addr string, auth smtp.Auth, from string, to []string, message string) error {
	tlsConfig := &tls.Config{
		ServerName: config.Host,
	}

	conn, err := tls.Dial("tcp", addr, tlsConfig)
	if err != nil {
		return err
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, config.Host)
	if err != nil {
		return err
	}
	defer client.Close()

	if auth != nil {
		if err := client.Auth(auth); err != nil {
			return err
		}
	}

	if err := client.Mail(from); err != nil {
		return err
	}

	for _, addr := range to {
		if err := client.Rcpt(addr); err != nil {
			return err
		}
	}

	w, err := client.Data()
	if err != nil {
		return err
	}

	_, err = w.Write([]byte(message))
	if err != nil {
		return err
	}

	return w.Close()
}
