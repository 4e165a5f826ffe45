package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v82"
)

const ProviderStripe = "stripe"

// StripeGateway captures payments with confirmed PaymentIntents.
type StripeGateway struct {
	client *stripe.Client
}

func NewStripeGateway(secretKey string, opts ...stripe.ClientOption) *StripeGateway {
	return &StripeGateway{client: stripe.NewClient(secretKey, opts...)}
}

func (g *StripeGateway) Provider() string {
	return ProviderStripe
}

// Capture creates and confirms a PaymentIntent for the requested amount.
// Raw cards are first exchanged for a PaymentMethod so the card number only
// ever travels to Stripe. Redirect-based methods are disabled, so the intent
// either settles immediately or is reported with its non-succeeded status.
//
// Card refusals are returned as *DeclineError.
func (g *StripeGateway) Capture(ctx context.Context, req CaptureRequest) (*Capture, error) {
	const op = "payment.StripeGateway.Capture"

	pmID, err := g.paymentMethod(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	params := &stripe.PaymentIntentCreateParams{
		Amount:        stripe.Int64(req.AmountCents),
		Currency:      stripe.String(req.Currency),
		PaymentMethod: stripe.String(pmID),
		Confirm:       stripe.Bool(true),
		AutomaticPaymentMethods: &stripe.PaymentIntentCreateAutomaticPaymentMethodsParams{
			Enabled:        stripe.Bool(true),
			AllowRedirects: stripe.String(stripe.PaymentIntentAutomaticPaymentMethodsAllowRedirectsNever),
		},
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}

	pi, err := g.client.V1PaymentIntents.Create(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, classifyStripeErr(err))
	}

	return &Capture{
		ID:          pi.ID,
		Status:      Status(pi.Status),
		AmountCents: pi.Amount,
		Currency:    string(pi.Currency),
	}, nil
}

func (g *StripeGateway) paymentMethod(ctx context.Context, req CaptureRequest) (string, error) {
	switch in := req.Instruction.(type) {
	case ByReference:
		return in.Token, nil

	case ByRawCard:
		params := &stripe.PaymentMethodCreateParams{
			Type: stripe.String(string(stripe.PaymentMethodTypeCard)),
			Card: &stripe.PaymentMethodCreateCardParams{
				Number:   stripe.String(in.Number),
				ExpMonth: stripe.Int64(int64(in.ExpMonth)),
				ExpYear:  stripe.Int64(int64(in.ExpYear)),
				CVC:      stripe.String(in.CVC),
			},
		}
		if in.HolderName != "" {
			params.BillingDetails = &stripe.PaymentMethodCreateBillingDetailsParams{
				Name: stripe.String(in.HolderName),
			}
		}
		if req.IdempotencyKey != "" {
			params.SetIdempotencyKey(req.IdempotencyKey + ":pm")
		}

		pm, err := g.client.V1PaymentMethods.Create(ctx, params)
		if err != nil {
			return "", classifyStripeErr(err)
		}
		return pm.ID, nil

	default:
		return "", fmt.Errorf("%w: unsupported instruction %T", ErrInvalidInstruction, req.Instruction)
	}
}

func classifyStripeErr(err error) error {
	var se *stripe.Error
	if !errors.As(err, &se) {
		return err
	}

	if se.Type == stripe.ErrorTypeCard {
		return &DeclineError{
			Code:        string(se.Code),
			DeclineCode: string(se.DeclineCode),
			Message:     se.Msg,
		}
	}

	return fmt.Errorf("stripe %s (%d): %s", se.Type, se.HTTPStatusCode, se.Msg)
}
