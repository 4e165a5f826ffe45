package payment

import "context"

type Status string

const (
	StatusSucceeded      Status = "succeeded"
	StatusProcessing     Status = "processing"
	StatusRequiresAction Status = "requires_action"
	StatusFailed         Status = "failed"
	StatusCanceled       Status = "canceled"
	StatusTimeout        Status = "timeout"
)

type CaptureRequest struct {
	AmountCents    int64
	Currency       string
	Instruction    Instruction
	Metadata       map[string]string
	IdempotencyKey string
}

// Capture is the provider's answer to a capture attempt. Anything other than
// StatusSucceeded means no money moved as far as the caller is concerned.
type Capture struct {
	ID          string
	Status      Status
	AmountCents int64
	Currency    string
}

func (c *Capture) Succeeded() bool {
	return c != nil && c.Status == StatusSucceeded
}

// Receipt is the normalized view of a successful capture returned to clients.
type Receipt struct {
	CaptureID   string
	Status      Status
	AmountCents int64
	Currency    string
}

func (c *Capture) Receipt() Receipt {
	return Receipt{
		CaptureID:   c.ID,
		Status:      c.Status,
		AmountCents: c.AmountCents,
		Currency:    c.Currency,
	}
}

// Gateway authorizes and captures a charge in a single call.
type Gateway interface {
	Provider() string
	Capture(ctx context.Context, req CaptureRequest) (*Capture, error)
}
