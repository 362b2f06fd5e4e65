package templates

import (
	"fmt"
	"strings"
)

// StatusEmailData holds the values shown in a status change email
type StatusEmailData struct {
	FullName string
	Kind     string // human label, e.g. "service request"
	Number   string
	Status   string
	Note     string
}

// StatusEmailSubject builds the subject line for a status change email.
func StatusEmailSubject(d StatusEmailData) string {
	return fmt.Sprintf("Your %s %s is now %s", d.Kind, d.Number, humanize(d.Status))
}

// RenderStatusEmail renders the status change email body.
func RenderStatusEmail(d StatusEmailData) (subject, htmlBody, plainText string) {
	subject = StatusEmailSubject(d)

	var b strings.Builder
	fmt.Fprintf(&b, "Dear %s,\n\n", d.FullName)
	fmt.Fprintf(&b, "The status of your %s %s has changed to: %s.\n", d.Kind, d.Number, humanize(d.Status))
	if d.Note != "" {
		fmt.Fprintf(&b, "\nMessage from the officer:\n%s\n", d.Note)
	}
	b.WriteString("\nYou can follow the progress of your submission from the portal.")

	plainText = b.String()
	return subject, RenderGenericEmail(subject, plainText), plainText
}

// RenderAccountApprovedEmail renders the email sent when an officer account is approved.
func RenderAccountApprovedEmail(fullName, username string) (subject, htmlBody, plainText string) {
	subject = "Your officer account has been approved"
	plainText = fmt.Sprintf("Dear %s,\n\nYour Grama Sevaka officer account (%s) has been approved. You can now sign in to the portal.", fullName, username)
	return subject, RenderGenericEmail(subject, plainText), plainText
}

func humanize(status string) string {
	return strings.ReplaceAll(status, "-", " ")
}
