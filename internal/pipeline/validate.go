package pipeline

import (
	"errors"
	"reflect"
	"strings"

	"github.com/couchcryptid/dpe-enrichment-service/internal/domain"
	"github.com/go-playground/validator/v10"
)

// fullAddress mirrors domain.Address with every field required. A request
// for a single address must be complete; batch users may omit the street
// type and commune.
type fullAddress struct {
	StreetNumber string `json:"numero" validate:"required"`
	StreetType   string `json:"type_voie" validate:"required"`
	StreetName   string `json:"adresse" validate:"required"`
	PostalCode   string `json:"code_postal" validate:"required"`
	Commune      string `json:"commune" validate:"required"`
}

// addressValidator checks the required address fields, reporting them by
// their JSON names.
type addressValidator struct {
	v *validator.Validate
}

func newAddressValidator() *addressValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &addressValidator{v: v}
}

// check validates a trimmed batch address. Whitespace-only fields count as missing.
func (a *addressValidator) check(addr domain.Address) error {
	return a.report(a.v.Struct(addr.Trimmed()))
}

// checkFull validates a single-address request, where all five fields are required.
func (a *addressValidator) checkFull(addr domain.Address) error {
	return a.report(a.v.Struct(fullAddress(addr.Trimmed())))
}

func (a *addressValidator) report(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return domain.Validation(err.Error())
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Field())
	}
	return domain.Validation("missing required address fields: " + strings.Join(fields, ", "))
}
