package domain

// NotificationKind distinguishes the notifications the monitor sends.
type NotificationKind string

// Notification kinds.
const (
	NotifyDocumentAdded   NotificationKind = "document_added"
	NotifyDocumentRemoved NotificationKind = "document_removed"
	NotifyInconsistency   NotificationKind = "inconsistency"
)

// Attachment is an in-memory file attached to a notification.
type Attachment struct {
	// Name is the file name shown to recipients.
	Name string

	// ContentType is the MIME type of Data.
	ContentType string

	// Data is the attachment body.
	Data []byte
}

// Notification is a best-effort message to the configured recipients.
type Notification struct {
	Kind        NotificationKind
	Subject     string
	Body        string
	Recipients  []string
	Attachments []Attachment
}
