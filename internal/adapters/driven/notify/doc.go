// Package notify provides notification delivery adapters.
//
// SMTPNotifier sends MIME email with attachments over STARTTLS.
// LogNotifier writes notifications to the process log and is used when
// email is not configured.
package notify
