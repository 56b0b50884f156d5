// Copyright (c) 2026 The FASTODIGAMA Authors
// All rights reserved. See LICENSE for details.

package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"fastodigama/internal/models"
)

// validate is shared by all handlers; validator.Validate caches struct
// metadata and is safe for concurrent use.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		if label := fld.Tag.Get("label"); label != "" {
			return label
		}
		return fld.Name
	})
	return v
}

type loginForm struct {
	Username string `validate:"required" label:"Username"`
	Password string `validate:"required" label:"Password"`
}

type registerForm struct {
	Username string `validate:"required,max=100" label:"Username"`
	Password string `validate:"required,min=4,max=72" label:"Password"` // bcrypt ignores bytes past 72
}

type resetPasswordForm struct {
	Username string `validate:"required" label:"Username"`
	Password string `validate:"required,min=4,max=72" label:"Password"`
	Confirm  string `validate:"eqfield=Password" label:"Confirmation"`
}

type renameForm struct {
	Username    string `validate:"required" label:"Username"`
	NewUsername string `validate:"required,max=100" label:"New username"`
}

type codeForm struct {
	Code string `validate:"required,len=6,numeric" label:"Code"`
}

type categoryForm struct {
	Name string `validate:"required,max=100" label:"Name"`
}

type articleForm struct {
	Title      string `validate:"required,max=200" label:"Title"`
	Text       string `validate:"required,max=100000" label:"Text"`
	CategoryID string `validate:"required,uuid" label:"Category"`
}

type menuLinkForm struct {
	Weight string `validate:"required" label:"Weight"`
	Name   string `validate:"required,max=100" label:"Name"`
	Path   string `validate:"required,max=500" label:"Path"`
}

// formValue returns the trimmed form value for key.
func formValue(r *http.Request, key string) string {
	return strings.TrimSpace(r.FormValue(key))
}

// checkForm validates a form struct and returns the first problem as a
// sentence suitable for the inline form error, or "" when valid.
func checkForm(form any) string {
	err := validate.Struct(form)
	if err == nil {
		return ""
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return fieldMessage(verrs[0])
	}
	return "Invalid form submission."
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required."
	case "max":
		return fmt.Sprintf("%s is too long (max %s characters).", field, fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "eqfield":
		return "Passwords do not match"
	case "len", "numeric":
		return field + " must be 6 digits."
	default:
		return field + " is invalid."
	}
}

// validateArticle checks the article form and parses its category id.
func validateArticle(f articleForm) (uuid.UUID, string) {
	if msg := checkForm(f); msg != "" {
		return uuid.Nil, msg
	}
	id, err := uuid.Parse(f.CategoryID)
	if err != nil {
		return uuid.Nil, "Category is invalid."
	}
	return id, ""
}

// validateMenuLink checks the menu link form and builds the link.
func validateMenuLink(f menuLinkForm) (*models.MenuLink, string) {
	if msg := checkForm(f); msg != "" {
		return nil, msg
	}
	weight, err := strconv.Atoi(f.Weight)
	if err != nil {
		return nil, "Weight must be a whole number."
	}
	return &models.MenuLink{Weight: weight, Name: f.Name, Path: f.Path}, ""
}
