package ledger

import (
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/rental-payments/internal/apperr"
)

// CreateBookingInput is the checkout request.  UserID is honoured for
// admins only; guests always book for themselves.
type CreateBookingInput struct {
	UserID       uint64          `json:"user_id"`
	Price        decimal.Decimal `json:"price" validate:"gt=0"`
	BookingPrice decimal.Decimal `json:"booking_price" validate:"gte=0"`
	PriceType    string          `json:"price_type" validate:"required,oneof=Day Week Month"`
	StartDate    time.Time       `json:"start_date" validate:"required"`
	EndDate      time.Time       `json:"end_date" validate:"required,gtefield=StartDate"`
}

type RecordPaymentInput struct {
	BookingID   uint64          `json:"booking_id" validate:"required"`
	Amount      decimal.Decimal `json:"amount" validate:"gte=0"`
	Method      string          `json:"method" validate:"required,oneof=manual bank_transfer card"`
	MilestoneID *uint64         `json:"milestone_id" validate:"omitempty,gt=0"`
	Reference   string          `json:"reference" validate:"max=128"`
}

type PayMilestoneInput struct {
	MilestoneID uint64 `json:"milestone_id" validate:"required"`
	Method      string `json:"method" validate:"required,oneof=manual bank_transfer card"`
	Reference   string `json:"reference" validate:"max=128"`
}

// IssueLinkInput requests a link for a milestone.  A zero Amount means the
// milestone amount.
type IssueLinkInput struct {
	MilestoneID uint64          `json:"milestone_id" validate:"required"`
	Amount      decimal.Decimal `json:"amount" validate:"gte=0"`
}

type SubmitLinkInput struct {
	UniqueID  string `json:"unique_id" validate:"required,uuid"`
	Method    string `json:"method" validate:"required,oneof=manual bank_transfer card"`
	Reference string `json:"reference" validate:"max=128"`
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func newValidator() *validator.Validate {
	v := validator.New()
	// decimal.Decimal is validated as its float value so gt/gte apply.
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
	return v
}

// check validates in and converts failures into a VALIDATION_ERROR.
func (e *Engine) check(in any) error {
	err := e.validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperr.Internal("validation failed", err)
	}
	fields := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, FieldError{Field: fe.Field(), Message: fieldMessage(fe)})
	}
	return apperr.Validation("invalid input", map[string]any{"fields": fields})
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", fe.Field(), fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", fe.Field(), fe.Param())
	case "gtefield":
		return fmt.Sprintf("%s must not be before %s", fe.Field(), fe.Param())
	case "uuid":
		return fmt.Sprintf("%s must be a valid link id", fe.Field())
	}
	return fe.Error()
}
