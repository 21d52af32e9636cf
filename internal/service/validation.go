package service

import (
	"errors"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"delegues-backend/internal/domain"
)

// dateLayout reads day and month with or without a leading zero.
const dateLayout = "2/1/2006"

// frenchMobile accepts 06/07 numbers in national, 33, +33 or 0033 form,
// once spaces, dots and dashes are removed.
var frenchMobile = regexp.MustCompile(`^(?:\+?33|0033|0)[67][0-9]{8}$`)

// registrantForm is the submitted form as the validator sees it. The field
// tag names the error key reported back to the client.
type registrantForm struct {
	FirstName string `field:"first_name" validate:"required,max=300"`
	LastName  string `field:"last_name" validate:"required,max=300"`
	Email     string `field:"email" validate:"required,max=254,email"`
	Date      string `field:"date" validate:"required,frdate"`
	Address1  string `field:"address" validate:"required,min=5,max=500"`
	Address2  string `field:"address" validate:"max=500"`
	Phone     string `field:"phone" validate:"required,frmobile"`
}

var fieldMessages = map[string]string{
	"first_name": "Prénom invalide.",
	"last_name":  "Nom invalide.",
	"email":      "Email invalide.",
	"date":       "Date invalide.",
	"address":    "Adresse invalide.",
	"phone":      "Numéro invalide.",
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return f.Tag.Get("field")
	})
	if err := v.RegisterValidation("frmobile", func(fl validator.FieldLevel) bool {
		return frenchMobile.MatchString(normalizePhone(fl.Field().String()))
	}); err != nil {
		panic(err)
	}
	if err := v.RegisterValidation("frdate", func(fl validator.FieldLevel) bool {
		_, err := time.Parse(dateLayout, fl.Field().String())
		return err == nil
	}); err != nil {
		panic(err)
	}
	return v
}

// ValidateRegistrant checks the syntax of every submitted field and returns
// nil when all of them are acceptable.
func ValidateRegistrant(r *domain.Registrant) *domain.ValidationError {
	form := registrantForm{
		FirstName: strings.TrimSpace(r.FirstName),
		LastName:  strings.TrimSpace(r.LastName),
		Email:     r.Email,
		Date:      strings.TrimSpace(r.Date),
		Address1:  strings.TrimSpace(r.Address1),
		Address2:  r.Address2,
		Phone:     r.Phone,
	}
	err := validate.Struct(form)
	if err == nil {
		return nil
	}

	verr := domain.NewValidationError()
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		verr.Add("form", err.Error())
		return verr
	}
	for _, fe := range fieldErrs {
		verr.Add(fe.Field(), fieldMessages[fe.Field()])
	}
	return verr
}

func normalizePhone(s string) string {
	return strings.NewReplacer(" ", "", ".", "", "-", "").Replace(strings.TrimSpace(s))
}
