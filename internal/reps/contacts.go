package reps

import (
	"strings"

	"github.com/outrage-civic/outrage-api/internal/model"
	"github.com/outrage-civic/outrage-api/pkg/cicero"
)

// ExtractContacts builds the prioritized contact list for one official:
// emails first, then the web form. No deduplication beyond the provider's.
// An official with neither channel yields an empty slice; the caller keeps
// such representatives visible as unreachable.
func ExtractContacts(o cicero.Official) []model.Contact {
	contacts := make([]model.Contact, 0, len(o.EmailAddresses)+1)

	for _, email := range o.EmailAddresses {
		email = strings.TrimSpace(email)
		if email == "" {
			continue
		}
		contacts = append(contacts, model.Contact{
			Type:  model.ContactEmail,
			Value: email,
		})
	}

	if form := strings.TrimSpace(o.WebFormURL); form != "" {
		contacts = append(contacts, model.Contact{
			Type:        model.ContactWebform,
			Value:       form,
			Description: "Web Form",
		})
	}

	return contacts
}
