package domain

// RawTicket is one row of the upstream ticket dataset, as returned by the
// RecordSource. Timestamps are text in the upstream format and optional
// values may be nil or carry a "not available" marker.
type RawTicket struct {
	RequestID         int64
	ParentRequestID   *int64
	RFCNumber         *string
	CreationDate      *string
	SubmitDate        *string
	EndDate           *string
	MaxResolutionDate *string
	RequestorID       *int64
	RequestorLastName *string
	RecipientID       *int64
	RecipientLastName *string
	RecipientLocation *string
	CatalogID         *int64
	CatalogName       *string
	StatusID          *int64
	StatusFR          *string
	Comment           *string
	Description       *string
	UrgencyID         *int64
	UrgencyFR         *string
	CIID              *int64
	CIName            *string
}

// RawAction is one row of the upstream action dataset.
type RawAction struct {
	ActionID     int64
	RequestID    int64
	RFCNumber    *string
	ActionTypeID *int64
	ActionLabel  *string
	StartDate    *string
	EndDate      *string
	DoneByName   *string
	GroupName    *string
	Description  *string
}

// RawQuestionResult is one answer of a catalog form, used by the employee
// movement calendar.
type RawQuestionResult struct {
	RequestID      int64
	RFCNumber      string
	CatalogID      int64
	QuestionID     int64
	Result         *string
	ResultStringFR *string
}
