package notify

import (
	"context"
	"strings"

	apperrors "hiring-entitlements/internal/common/errors"
	"hiring-entitlements/internal/common/logger"
	"hiring-entitlements/internal/models"
)

type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, body string) (string, error)
}

type SMSSender interface {
	SendSMS(ctx context.Context, phone, message string) (string, error)
}

type EmployeeLookup interface {
	GetEmployee(ctx context.Context, id string) (*models.Employee, error)
}

// statusTemplates are keyed by the status the application moved to.
var statusTemplates = map[models.ApplicationStatus]models.NotificationTemplate{
	models.StatusShortlisted: {
		Subject: "You have been shortlisted",
		Body:    "Hello {{name}}, your application {{applicationId}} has been shortlisted.",
		SMS:     "Your application {{applicationId}} has been shortlisted.",
	},
	models.StatusInterviewScheduled: {
		Subject: "Interview scheduled",
		Body:    "Hello {{name}}, an interview for application {{applicationId}} is scheduled on {{interviewDate}} at {{interviewTime}}, {{interviewLocation}}.",
		SMS:     "Interview on {{interviewDate}} {{interviewTime}} at {{interviewLocation}}.",
	},
	models.StatusSelected: {
		Subject: "Congratulations, you have been selected",
		Body:    "Hello {{name}}, you have been selected for application {{applicationId}}.",
		SMS:     "You have been selected for application {{applicationId}}.",
	},
	models.StatusRejected: {
		Subject: "Application update",
		Body:    "Hello {{name}}, application {{applicationId}} will not move forward.",
	},
}

// EmployeeNotifier emails (and for some statuses texts) the employee when an
// employer moves their application.
type EmployeeNotifier struct {
	employees EmployeeLookup
	email     EmailSender
	sms       SMSSender
	logger    logger.Logger
}

// NewEmployeeNotifier builds the notifier. email or sms may be nil to disable
// that channel.
func NewEmployeeNotifier(employees EmployeeLookup, email EmailSender, sms SMSSender, log logger.Logger) *EmployeeNotifier {
	return &EmployeeNotifier{
		employees: employees,
		email:     email,
		sms:       sms,
		logger:    log.WithFields(map[string]interface{}{"hook": "employee-notifier"}),
	}
}

func (n *EmployeeNotifier) Name() string { return "employee-notifier" }

func (n *EmployeeNotifier) Handle(ctx context.Context, e Event) error {
	if e.Type != EventStatusChanged || e.Change == nil {
		return nil
	}
	tmpl, ok := statusTemplates[e.Change.To]
	if !ok {
		return nil
	}

	employee, err := n.employees.GetEmployee(ctx, e.Change.EmployeeID)
	if err != nil {
		return err
	}

	data := map[string]string{
		"name":              employee.Name,
		"applicationId":     e.Change.ApplicationID,
		"interviewDate":     e.Change.InterviewDate,
		"interviewTime":     e.Change.InterviewTime,
		"interviewLocation": e.Change.InterviewLocation,
	}

	var sent []models.Notification
	if n.email != nil && employee.Contact.Email != "" {
		id, err := n.email.SendEmail(ctx, employee.Contact.Email, renderTemplate(tmpl.Subject, data), renderTemplate(tmpl.Body, data))
		if err != nil {
			return apperrors.NewExternalServiceError("ses", err)
		}
		sent = append(sent, models.Notification{ID: e.ID, RecipientID: employee.ID, Type: string(e.Type), Channel: models.ChannelEmail, Status: "sent", MessageID: id})
	}
	if n.sms != nil && tmpl.SMS != "" && employee.Contact.Mobile != "" {
		// SMS failures are not retried; a retry would resend the email.
		id, err := n.sms.SendSMS(ctx, employee.Contact.Mobile, renderTemplate(tmpl.SMS, data))
		if err != nil {
			n.logger.Warn("sms send failed", map[string]interface{}{
				"recipientId": employee.ID,
				"error":       err.Error(),
			})
		} else {
			sent = append(sent, models.Notification{ID: e.ID, RecipientID: employee.ID, Type: string(e.Type), Channel: models.ChannelSMS, Status: "sent", MessageID: id})
		}
	}

	for _, s := range sent {
		n.logger.Info("notification sent", map[string]interface{}{
			"recipientId": s.RecipientID,
			"channel":     s.Channel,
			"messageId":   s.MessageID,
			"status":      e.Change.To,
		})
	}
	return nil
}

// renderTemplate replaces {{key}} placeholders. Unknown placeholders render empty.
func renderTemplate(tmpl string, data map[string]string) string {
	result := tmpl
	for k, v := range data {
		result = strings.ReplaceAll(result, "{{"+k+"}}", v)
	}
	for {
		start := strings.Index(result, "{{")
		if start == -1 {
			break
		}
		end := strings.Index(result[start:], "}}")
		if end == -1 {
			break
		}
		result = result[:start] + result[start+end+2:]
	}
	return result
}
