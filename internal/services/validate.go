package services

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	localPhonePattern = regexp.MustCompile(`^07\d{8}$`)
	intlPhonePattern  = regexp.MustCompile(`^2547\d{8}$`)

	validate = validator.New()
)

// NormalizePhone canonicalizes a Kenyan mobile number to its international
// form (2547XXXXXXXX). Accepts local 07XXXXXXXX and international
// 2547XXXXXXXX input, with or without a leading plus.
func NormalizePhone(phone string) (string, error) {
	p := strings.TrimSpace(phone)
	p = strings.TrimPrefix(p, "+")
	p = strings.ReplaceAll(p, " ", "")

	switch {
	case localPhonePattern.MatchString(p):
		return "254" + p[1:], nil
	case intlPhonePattern.MatchString(p):
		return p, nil
	default:
		return "", fmt.Errorf("%w: unsupported phone number format", ErrValidation)
	}
}

// InitiateRequest is the validated input to PaymentService.Initiate.
type InitiateRequest struct {
	Phone       string
	Amount      int64
	Email       string
	Description string
}

// validateInitiate normalizes the phone in place and checks amount and email.
func validateInitiate(req *InitiateRequest) error {
	phone, err := NormalizePhone(req.Phone)
	if err != nil {
		return err
	}
	req.Phone = phone

	if req.Amount <= 0 {
		return fmt.Errorf("%w: amount must be positive", ErrValidation)
	}
	if err := validate.Var(req.Email, "required,email"); err != nil {
		return fmt.Errorf("%w: malformed email address", ErrValidation)
	}
	return nil
}
