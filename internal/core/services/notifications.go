package services

import (
	"fmt"

	"github.com/custodia-labs/policywatch/internal/core/domain"
)

func addedNotification(col domain.Collection, summary domain.Summary) domain.Notification {
	return domain.Notification{
		Kind:    domain.NotifyDocumentAdded,
		Subject: fmt.Sprintf("IMPORTANT: New %s policy file added", col.Description()),
		Body:    "Please find summary of file attached with email",
		Attachments: []domain.Attachment{{
			Name:        summary.Key + "_summary.md",
			ContentType: "text/markdown; charset=utf-8",
			Data:        []byte(summary.Text),
		}},
	}
}

func removedNotification(col domain.Collection, key domain.DocumentKey) domain.Notification {
	return domain.Notification{
		Kind:    domain.NotifyDocumentRemoved,
		Subject: fmt.Sprintf("IMPORTANT: Policy removed from %s policies", col.Description()),
		Body:    "Please check " + key,
	}
}

// inconsistencyNotification names the hospital document first, then the
// government one, whichever side was added.
func inconsistencyNotification(col domain.Collection, added, other domain.DocumentKey, v domain.Verdict) domain.Notification {
	hospital, government := added, other
	if col == domain.CollectionGovernment {
		hospital, government = other, added
	}
	return domain.Notification{
		Kind:    domain.NotifyInconsistency,
		Subject: fmt.Sprintf("IMPORTANT: Found inconsistency in hospital policies %s VS %s", hospital, government),
		Body:    v.Explanation,
	}
}
