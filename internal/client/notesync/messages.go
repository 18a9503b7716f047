package notesync

import "github.com/iudanet/gophnotes/internal/client/notify"

// Тексты уведомлений
const (
	msgCreated = "Your note has been created successfully."
	msgUpdated = "Your note has been updated successfully."
	msgDeleted = "Your note has been deleted successfully."

	msgFetchFailed    = "Could not fetch notes from the server."
	msgIdentityFailed = "Could not fetch username from the server."
	msgNotesSkipped   = "Notes were not fetched because the user could not be identified."
	msgNotFound       = "The note no longer exists. Refresh the list and try again."
	msgLoginRequired  = "Please log in to continue."
	msgSessionExpired = "Your session has expired. Please log in again."
	msgSessionChanged = "The session changed while the request was in flight. Please try again."
)

var failureTitles = map[notify.Subject]string{
	notify.SubjectCreate:   "Failed to Create Note",
	notify.SubjectUpdate:   "Failed to Update Note",
	notify.SubjectDelete:   "Failed to Delete Note",
	notify.SubjectFetch:    "Failed to Fetch Notes",
	notify.SubjectIdentity: "Failed to Fetch Username",
}
