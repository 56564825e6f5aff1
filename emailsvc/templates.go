package emailsvc

import (
	"bytes"
	"fmt"
	"html/template"
)

type emailData struct {
	EventName  string
	TicketCode string
	Message    string
}

var approvedTemplate = template.Must(template.New("approved").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: Arial, sans-serif; background-color: #f9f9f9; padding: 20px;">
	<div style="max-width: 600px; margin: auto; background-color: white; padding: 20px; border-radius: 10px;">
		<h2 style="color: #2e7d32;">&#10003; Refund Approved</h2>
		<p>Your refund request for <strong>{{.EventName}}</strong> has been approved.</p>
		<p>Ticket code: <strong>{{.TicketCode}}</strong></p>
		<p>The ticket has been cancelled and its seat returned to the event.</p>
	</div>
</body>
</html>`))

var rejectedTemplate = template.Must(template.New("rejected").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: Arial, sans-serif; background-color: #f9f9f9; padding: 20px;">
	<div style="max-width: 600px; margin: auto; background-color: white; padding: 20px; border-radius: 10px;">
		<h2 style="color: #c62828;">&#10007; Refund Request Declined</h2>
		<p>Your refund request for <strong>{{.EventName}}</strong> has been declined.</p>
		<p>Ticket code: <strong>{{.TicketCode}}</strong></p>
		{{if .Message}}
		<div style="background-color: #fdecea; border-left: 4px solid #c62828; padding: 10px; margin: 15px 0;">
			{{.Message}}
		</div>
		{{end}}
	</div>
</body>
</html>`))

func renderApproved(data emailData) (string, error) {
	var buf bytes.Buffer
	if err := approvedTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("could not render approval email: %w", err)
	}
	return buf.String(), nil
}

func renderRejected(data emailData) (string, error) {
	var buf bytes.Buffer
	if err := rejectedTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("could not render rejection email: %w", err)
	}
	return buf.String(), nil
}
