package handler

import (
	"errors"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"

	"github.com/iliyamo/account-service/internal/apperr"
	"github.com/iliyamo/account-service/internal/repository"
)

// Password length bounds at the transport layer.  bcrypt ignores input
// past 72 bytes.
const (
	minPasswordLen = 8
	maxPasswordLen = 72
)

var passwordRules = []validation.Rule{validation.Required, validation.Length(minPasswordLen, maxPasswordLen)}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r loginReq) Validate() error {
	return validationErr(validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
	))
}

type registerReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Role     string `json:"role"`
}

func (r registerReq) Validate() error {
	return validationErr(validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email, validation.Length(0, 255)),
		validation.Field(&r.Password, passwordRules...),
		validation.Field(&r.Name, validation.Required, validation.Length(2, 100)),
		validation.Field(&r.Role, validation.In("admin", "developer")),
	))
}

type changePasswordReq struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
	ConfirmPassword string `json:"confirm_password"`
}

func (r changePasswordReq) Validate() error {
	return validationErr(validation.ValidateStruct(&r,
		validation.Field(&r.CurrentPassword, validation.Required),
		validation.Field(&r.NewPassword, passwordRules...),
		validation.Field(&r.ConfirmPassword, validation.Required, validation.By(func(v interface{}) error {
			if v.(string) != r.NewPassword {
				return errors.New("passwords do not match")
			}
			return nil
		})),
	))
}

type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

func (r refreshReq) Validate() error {
	return validationErr(validation.ValidateStruct(&r,
		validation.Field(&r.RefreshToken, validation.Required),
	))
}

type createUserReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Role     string `json:"role"`
	Status   string `json:"status"`
}

func (r createUserReq) Validate() error {
	return validationErr(validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email, validation.Length(0, 255)),
		validation.Field(&r.Password, passwordRules...),
		validation.Field(&r.Name, validation.Required, validation.Length(2, 100)),
		validation.Field(&r.Role, validation.In("admin", "developer", "user")),
		validation.Field(&r.Status, validation.In("active", "inactive", "pending", "suspended")),
	))
}

// updateUserReq uses pointers so absent fields are left untouched.
type updateUserReq struct {
	Email  *string `json:"email"`
	Name   *string `json:"name"`
	Role   *string `json:"role"`
	Status *string `json:"status"`
}

func (r updateUserReq) Validate() error {
	if r.Email == nil && r.Name == nil && r.Role == nil && r.Status == nil {
		return apperr.Validation("no fields to update", nil)
	}
	return validationErr(validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.NilOrNotEmpty, is.Email, validation.Length(0, 255)),
		validation.Field(&r.Name, validation.NilOrNotEmpty, validation.Length(2, 100)),
		validation.Field(&r.Role, validation.NilOrNotEmpty, validation.In("admin", "developer", "user")),
		validation.Field(&r.Status, validation.NilOrNotEmpty, validation.In("active", "inactive", "pending", "suspended")),
	))
}

func (r updateUserReq) toUpdate() repository.UserUpdate {
	var upd repository.UserUpdate
	upd.Email = r.Email
	upd.Name = r.Name
	if r.Role != nil {
		role := roleOf(*r.Role)
		upd.Role = &role
	}
	if r.Status != nil {
		st := statusOf(*r.Status)
		upd.Status = &st
	}
	return upd
}

type resetPasswordReq struct {
	NewPassword string `json:"new_password"`
}

func (r resetPasswordReq) Validate() error {
	return validationErr(validation.ValidateStruct(&r,
		validation.Field(&r.NewPassword, passwordRules...),
	))
}

// validationErr converts ozzo errors into a ValidationError whose details
// map field names to messages.
func validationErr(err error) error {
	if err == nil {
		return nil
	}
	var errs validation.Errors
	if !errors.As(err, &errs) {
		return apperr.Internal("validate request", err)
	}
	details := make(map[string]any, len(errs))
	for field, fe := range errs {
		details[field] = strings.TrimSpace(fe.Error())
	}
	return apperr.Validation("validation failed", details)
}
