package models

type UpdateStatus string

const (
	StatusUpdated   UpdateStatus = "updated"
	StatusNoChanges UpdateStatus = "no_changes"
)

// UpdateResult is the outcome of a single-document write that matched its target.
type UpdateResult struct {
	Matched  int64        `json:"matched"`
	Modified int64        `json:"modified"`
	Status   UpdateStatus `json:"status"`
	Message  string       `json:"message"`
}

// NewUpdateResult classifies a matched write. Matching without modifying is not an error.
func NewUpdateResult(matched, modified int64) UpdateResult {
	if modified == 0 {
		return UpdateResult{Matched: matched, Modified: 0, Status: StatusNoChanges, Message: "No changes were made."}
	}
	return UpdateResult{Matched: matched, Modified: modified, Status: StatusUpdated, Message: "Successfully updated document."}
}
