package services

import (
	"time"

	"github.com/fraudlab/cardsim-backend/internal/api/validate"
	"github.com/fraudlab/cardsim-backend/internal/apperr"
	"github.com/fraudlab/cardsim-backend/internal/models"
)

// ProfileInput is the wire form of an applicant profile. DOB arrives as
// an ISO date string and is rejected when unparsable.
type ProfileInput struct {
	FullName    string `json:"full_name"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	NationalID  string `json:"national_id"`
	DateOfBirth string `json:"date_of_birth"` // YYYY-MM-DD
}

func (in ProfileInput) Parse() (models.Profile, error) {
	var errs validate.Errs
	for _, check := range []*validate.ErrField{
		validate.Required("full_name", in.FullName),
		validate.Required("email", in.Email),
		validate.Required("phone", in.Phone),
		validate.Required("national_id", in.NationalID),
		validate.Required("date_of_birth", in.DateOfBirth),
	} {
		if check != nil {
			errs = append(errs, *check)
		}
	}
	if len(errs) > 0 {
		return models.Profile{}, apperr.Validation("invalid_profile", errs.Error())
	}
	dob, err := time.Parse("2006-01-02", in.DateOfBirth)
	if err != nil {
		return models.Profile{}, apperr.Validation("invalid_profile", "date_of_birth: must be YYYY-MM-DD")
	}
	return models.Profile{
		FullName:    in.FullName,
		Email:       in.Email,
		Phone:       in.Phone,
		NationalID:  in.NationalID,
		DateOfBirth: dob,
	}, nil
}
