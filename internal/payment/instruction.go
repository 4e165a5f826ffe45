package payment

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"github.com/go-playground/validator/v10"
)

type Method string

const (
	MethodReference Method = "reference"
	MethodCard      Method = "card"
)

// Instruction tells the gateway how to charge the caller. It is either a
// ByReference or a ByRawCard.
type Instruction interface {
	Method() Method
	isInstruction()
}

// ByReference charges a payment method the client already tokenized with the
// provider.
type ByReference struct {
	Token string `validate:"required"`
}

func (ByReference) Method() Method { return MethodReference }
func (ByReference) isInstruction() {}

// ByRawCard carries card details straight to the gateway. It is never
// persisted and logs only its last four digits.
type ByRawCard struct {
	Number     string `validate:"required,number,min=13,max=19"`
	ExpMonth   int    `validate:"min=1,max=12"`
	ExpYear    int    `validate:"required"`
	CVC        string `validate:"required,number,min=3,max=4"`
	HolderName string `validate:"max=200"`
}

func (ByRawCard) Method() Method { return MethodCard }
func (ByRawCard) isInstruction() {}

func (c ByRawCard) Last4() string {
	if len(c.Number) < 4 {
		return ""
	}
	return c.Number[len(c.Number)-4:]
}

func (c ByRawCard) String() string {
	return "card ****" + c.Last4()
}

func (c ByRawCard) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("method", string(MethodCard)),
		slog.String("last4", c.Last4()),
	)
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the instruction's format and returns it normalized: card
// numbers lose their whitespace. now decides which expiry years are accepted.
func Validate(in Instruction, now time.Time) (Instruction, error) {
	switch v := in.(type) {
	case ByReference:
		v.Token = strings.TrimSpace(v.Token)
		if err := validate.Struct(v); err != nil {
			return nil, fieldErr(err)
		}
		return v, nil

	case ByRawCard:
		v.Number = stripSpaces(v.Number)
		v.CVC = strings.TrimSpace(v.CVC)
		v.HolderName = strings.TrimSpace(v.HolderName)
		if err := validate.Struct(v); err != nil {
			return nil, fieldErr(err)
		}
		if v.ExpYear < now.Year() {
			return nil, &InvalidFieldError{Field: "ExpYear", Reason: "card expired"}
		}
		return v, nil

	case nil:
		return nil, &InvalidFieldError{Field: "Method", Reason: "missing payment instruction"}

	default:
		return nil, &InvalidFieldError{Field: "Method", Reason: fmt.Sprintf("unsupported instruction %T", in)}
	}
}

func stripSpaces(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

func fieldErr(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return &InvalidFieldError{Field: fe.Field(), Reason: "failed on " + fe.Tag()}
	}

	return fmt.Errorf("%w: %v", ErrInvalidInstruction, err)
}
