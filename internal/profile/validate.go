package profile

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	validatorengine "github.com/go-playground/validator/v10"

	"github.com/resdex/resdex/internal/common"
)

var handlePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]*$`)

// Validator checks profile values against the field limits. Errors wrap
// common.ErrorValidation.
type Validator struct {
	engine *validatorengine.Validate
}

func NewValidator() *Validator {
	v := validatorengine.New()

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	// registration only fails on an empty tag name
	_ = v.RegisterValidation("interest", func(fl validatorengine.FieldLevel) bool {
		return IsInterest(fl.Field().String())
	})

	_ = v.RegisterValidation("handle", func(fl validatorengine.FieldLevel) bool {
		return handlePattern.MatchString(fl.Field().String())
	})

	return &Validator{engine: v}
}

// Struct validates a tagged struct such as Patch or DocumentEntry.
func (v *Validator) Struct(s any) error {
	return describe("", v.engine.Struct(s))
}

// Handle accepts 3 to 32 letters, digits, '_', '.' or '-', starting with a
// letter or digit.
func (v *Validator) Handle(handle string) error {
	return v.field("username", handle, fmt.Sprintf("min=%d,max=%d,handle", MinHandleLen, MaxHandleLen))
}

// FullName requires a non-blank display name.
func (v *Validator) FullName(name string) error {
	return v.field("fullName", strings.TrimSpace(name), fmt.Sprintf("required,max=%d", MaxFullNameLen))
}

func (v *Validator) About(text string) error {
	return v.field("about", text, fmt.Sprintf("max=%d", MaxAboutLen))
}

func (v *Validator) Organization(text string) error {
	return v.field("organization", text, fmt.Sprintf("max=%d", MaxOrganizationLen))
}

// Interests requires at most three distinct canonical interests.
func (v *Validator) Interests(list []string) error {
	return v.field("interests", list, fmt.Sprintf("max=%d,unique,dive,interest", MaxInterests))
}

func (v *Validator) Document(d DocumentEntry) error {
	return v.Struct(d)
}

func (v *Validator) field(name string, value any, tag string) error {
	return describe(name, v.engine.Var(value, tag))
}

func describe(name string, err error) error {
	if err == nil {
		return nil
	}

	var verrs validatorengine.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", common.ErrorValidation, err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		field := name
		if ns := e.Namespace(); ns != "" {
			// drop the struct name, keep json names and indexes
			if i := strings.Index(ns, "."); i >= 0 {
				field = ns[i+1:]
			}
		}
		if field == "" {
			field = "value"
		}
		msg := fmt.Sprintf("%s: failed %s", field, e.Tag())
		if p := e.Param(); p != "" {
			msg += "=" + p
		}
		msgs = append(msgs, msg)
	}
	return fmt.Errorf("%w: %s", common.ErrorValidation, strings.Join(msgs, "; "))
}
