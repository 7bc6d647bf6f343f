package services

import (
	"fmt"
	"net/smtp"
	"os"

	model "github.com/vakaflow-ai/vakaflow/models"
)

// sendActionItemEmail sends an HTML notification for a newly assigned action
// item over SMTP. Callers treat failures as best-effort and only log them.
func sendActionItemEmail(item model.ActionItem, email string) error {
	from := os.Getenv("SMTP_FROM")
	password := os.Getenv("SMTP_PASSWORD")
	smtpHost := os.Getenv("SMTP_HOST")
	smtpPort := os.Getenv("SMTP_PORT")
	if from == "" || password == "" || smtpHost == "" {
		return fmt.Errorf("SMTP configuration is not set")
	}
	if smtpPort == "" {
		smtpPort = "587"
	}

	dueDate := "not set"
	if item.DueDate != nil {
		dueDate = item.DueDate.Format("January 2, 2006")
	}

	subject := fmt.Sprintf("Action Item Assigned: %s", item.Title)
	body := fmt.Sprintf(`
	<html>
	<body>
		<h2>Action Item Assigned</h2>
		<p>Dear User,</p>
		<p>You have been assigned a new action item:</p>
		<ul>
			<li><strong>Title:</strong> %s</li>
			<li><strong>Description:</strong> %s</li>
			<li><strong>Due Date:</strong> %s</li>
			<li><strong>Priority:</strong> %s</li>
		</ul>
		<p>Please take the necessary actions to complete it.</p>
		<p>Best regards,<br>Your Team</p>
	</body>
	</html>
`, item.Title, item.Description, dueDate, item.Priority)

	message := []byte("Subject: " + subject + "\r\n" +
		"From: " + from + "\r\n" +
		"To: " + email + "\r\n" +
		"Content-Type: text/html; charset=UTF-8\r\n\r\n" +
		body)

	auth := smtp.PlainAuth("", from, password, smtpHost)
	return smtp.SendMail(smtpHost+":"+smtpPort, auth, from, []string{email}, message)
}
