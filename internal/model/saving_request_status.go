package model

type SavingRequestStatus string

const (
	SavingRequestStatusProcessing        SavingRequestStatus = "PROCESSING"
	SavingRequestStatusSucceeded         SavingRequestStatus = "SUCCEEDED"
	SavingRequestStatusFailed            SavingRequestStatus = "FAILED"
	SavingRequestStatusDeleted           SavingRequestStatus = "DELETED"
	SavingRequestStatusArchived          SavingRequestStatus = "ARCHIVED"
	SavingRequestStatusContentNotFetched SavingRequestStatus = "CONTENT_NOT_FETCHED"
)

var knownSavingRequestStatus = map[SavingRequestStatus]struct{}{
	SavingRequestStatusProcessing:        {},
	SavingRequestStatusSucceeded:         {},
	SavingRequestStatusFailed:            {},
	SavingRequestStatusDeleted:           {},
	SavingRequestStatusArchived:          {},
	SavingRequestStatusContentNotFetched: {},
}

// ParseSavingRequestStatus matches value against the known statuses.
// The match is case sensitive; "archived" is not ARCHIVED.
func ParseSavingRequestStatus(value string) (SavingRequestStatus, bool) {
	status := SavingRequestStatus(value)
	if _, ok := knownSavingRequestStatus[status]; !ok {
		return "", false
	}
	return status, true
}
