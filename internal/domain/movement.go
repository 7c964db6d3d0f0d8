package domain

// Question ids of the arrival/departure catalog forms.
const (
	QuestionLastName    int64 = 45
	QuestionFirstName   int64 = 46
	QuestionLocation    int64 = 48
	QuestionContract    int64 = 49
	QuestionArrivalDate int64 = 50
	QuestionPCPresent   int64 = 55
	QuestionTelephone   int64 = 58
)

// CatalogNewArrival is the catalog entry of new-arrival requests.
const CatalogNewArrival int64 = 5535

// EmployeeMovement is one arrival or departure request with its form
// answers pivoted into fields.
type EmployeeMovement struct {
	RequestID   int64
	RFCNumber   string
	CatalogID   int64
	LastName    string
	FirstName   string
	Location    string
	Contract    string
	ArrivalDate string
	PCPresent   string
	Telephone   string
}
