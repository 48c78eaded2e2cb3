// internal/workers/dispatch/dispatch-urgent-gig/models.go
package dispatchurgentgig

type Input struct {
	PaymentRef string `json:"paymentRef"`
}

type Output struct {
	GigID             string `json:"gigId"`
	ShortlistedCount  int    `json:"shortlistedCount"`
	NotifiedCount     int    `json:"notifiedCount"`
	AlreadyDispatched bool   `json:"alreadyDispatched"`
}

// triggerSchema guards the trigger payload before any side effect runs.
const triggerSchema = `{
	"type": "object",
	"properties": {
		"paymentRef": {"type": "string", "minLength": 1}
	},
	"required": ["paymentRef"]
}`
