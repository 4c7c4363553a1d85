package templates

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/linesmerrill/legal-case-api/models"
)

// RenderGenericEmail generates branded HTML for a generic email.
// The subject is displayed in the header banner, and bodyContent is plain text
// that gets HTML-escaped and has newlines converted to <br> tags.
func RenderGenericEmail(subject, bodyContent string) string {
	// HTML-escape the body to prevent injection, then convert newlines to <br>
	escaped := html.EscapeString(bodyContent)
	htmlBody := strings.ReplaceAll(escaped, "\n", "<br>")

	safeSubject := html.EscapeString(subject)

	return fmt.Sprintf(`<!DOCTYPE html PUBLIC "-//W3C//DTD XHTML 1.0 Strict//EN" "http://www.w3.org/TR/xhtml1/DTD/xhtml1-strict.dtd">
<html xmlns="http://www.w3.org/1999/xhtml">
<head>
  <meta http-equiv="Content-Type" content="text/html; charset=utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1, minimum-scale=1, maximum-scale=1">
  <title>%s</title>
  <style type="text/css">
    body { font-family: Georgia, 'Times New Roman', serif; margin: 0; padding: 0; background-color: #f4f1ea; }
    .container { max-width: 600px; margin: 0 auto; background-color: #ffffff; }
    .header { background-color: #1f2a44; padding: 32px 30px; text-align: center; }
    .header h1 { color: #f4f1ea; margin: 0; font-size: 22px; font-weight: 700; }
    .content { padding: 36px 30px; color: #1f2937; line-height: 1.6; font-size: 15px; }
    .footer { padding: 24px; text-align: center; color: #6b7280; font-size: 12px; border-top: 1px solid #e5e7eb; }
  </style>
</head>
<body>
  <div class="container">
    <div class="header">
      <h1>%s</h1>
    </div>
    <div class="content">
      %s
    </div>
    <div class="footer">
      <p>You receive this because hearing reminders are switched on in your settings.</p>
    </div>
  </div>
</body>
</html>`, safeSubject, safeSubject, htmlBody)
}

// HearingReminder returns the subject, HTML and plain text bodies of the email
// sent ahead of a hearing. Dates are rendered in loc.
func HearingReminder(recipient string, alert models.HearingAlert, loc *time.Location) (subject, htmlContent, plainText string) {
	if loc == nil {
		loc = time.UTC
	}
	when := alert.HearingDate.In(loc).Format("Monday, 02 Jan 2006")
	subject = fmt.Sprintf("Hearing reminder: case #%s on %s", alert.CaseNumber, alert.HearingDate.In(loc).Format("02 Jan 2006"))

	var b strings.Builder
	fmt.Fprintf(&b, "Hello %s,\n\n", recipient)
	fmt.Fprintf(&b, "Case #%s (%s) has a hearing on %s.\n\n", alert.CaseNumber, alert.Subject, when)
	fmt.Fprintf(&b, "Court: %s\n", alert.Court)
	if alert.ClientName != "" {
		fmt.Fprintf(&b, "Client: %s\n", alert.ClientName)
	}
	if alert.DaysLeft == 0 {
		b.WriteString("\nThe hearing is today.")
	} else {
		fmt.Fprintf(&b, "\n%d day(s) to go.", alert.DaysLeft)
	}
	plainText = b.String()
	return subject, RenderGenericEmail(subject, plainText), plainText
}
