// Package service is the business layer between the HTTP handlers and the
// repositories:
//
//	Handler (HTTP)  → parses requests, writes responses
//	Service         → validates input, enforces ownership, orchestrates
//	Repository      → reads/writes storage
//
// Services take repository interfaces, never a concrete store, so tests run
// against in-memory fakes and the server can swap SQLite for PostgreSQL.
// They return apperror values; the handler layer maps those to HTTP.
package service

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/sakif/treebio/internal/apperror"
	"github.com/sakif/treebio/internal/model"
)

const (
	MinUsernameLength = 3
	MaxUsernameLength = 30
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// usernameRule is the full validator tag for a username.
const usernameRule = "required,min=3,max=30,username,unreserved"

// reservedUsernames collide with top-level routes.
var reservedUsernames = map[string]bool{
	"admin":   true,
	"api":     true,
	"auth":    true,
	"go":      true,
	"healthz": true,
	"static":  true,
}

// validate is safe for concurrent use and caches struct metadata, so one
// instance serves the whole package.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report fields by their JSON name ("firstName", not "FirstName").
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	mustRegister(v, "username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	})
	mustRegister(v, "unreserved", func(fl validator.FieldLevel) bool {
		return !reservedUsernames[strings.ToLower(fl.Field().String())]
	})
	mustRegister(v, "weburl", func(fl validator.FieldLevel) bool {
		return hasScheme(fl.Field().String(), "http", "https")
	})
	mustRegister(v, "sociallink", func(fl validator.FieldLevel) bool {
		return hasScheme(fl.Field().String(), "http", "https", "mailto")
	})
	mustRegister(v, "platform", func(fl validator.FieldLevel) bool {
		_, ok := model.ParsePlatform(fl.Field().String())
		return ok
	})
	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("service: registering %q validation: %v", tag, err))
	}
}

// hasScheme reports whether raw is an absolute URL with one of the schemes.
// http(s) URLs must also name a host.
func hasScheme(raw string, schemes ...string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	for _, s := range schemes {
		if scheme != s {
			continue
		}
		if s == "mailto" {
			return u.Opaque != ""
		}
		return u.Host != ""
	}
	return false
}

var fieldLabels = map[string]string{
	"firstName":   "First name",
	"lastName":    "Last name",
	"username":    "Username",
	"bio":         "Bio",
	"imageUrl":    "Image URL",
	"title":       "Title",
	"url":         "URL",
	"description": "Description",
	"platform":    "Platform",
}

// validateStruct runs the struct's validate tags and converts the first
// failure into apperror.ValidationFailed.
func validateStruct(s any) error {
	return toValidationError(validate.Struct(s))
}

func validateUsername(username string) error {
	return toValidationError(validate.Var(username, usernameRule))
}

func toValidationError(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("service: validating input: %w", err)
	}
	fe := verrs[0]
	field := fe.Field()
	if field == "" {
		field = "username" // validate.Var has no field name
	}
	return apperror.ValidationFailed(field, validationMessage(field, fe))
}

func validationMessage(field string, fe validator.FieldError) string {
	label, ok := fieldLabels[field]
	if !ok {
		label = field
	}

	switch fe.Tag() {
	case "required":
		return label + " is required"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", label, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be less than %s characters", label, fe.Param())
	case "username":
		return "Username can only contain letters, numbers, and underscores"
	case "unreserved":
		return "This username is reserved"
	case "platform":
		return "Platform must be one of instagram, youtube, email, github, linkedin, twitter"
	case "url", "weburl", "sociallink":
		if field == "imageUrl" {
			return "Please enter a valid image URL"
		}
		return "Please enter a valid URL"
	}
	return label + " is invalid"
}
