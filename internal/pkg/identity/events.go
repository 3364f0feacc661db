// Package identity understands the identity provider's webhook events and REST API.
package identity

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/ManuelReschke/CourseFox/internal/pkg/apperror"
)

const (
	EventUserCreated = "user.created"
	EventUserUpdated = "user.updated"
	EventUserDeleted = "user.deleted"
)

var validate = validator.New()

// Event is one of SubjectCreated, SubjectUpdated, SubjectDeleted or Unhandled.
type Event interface {
	EventType() string
	identityEvent()
}

// Profile is the provider-owned part of a user.
type Profile struct {
	ExternalID string  `validate:"required"`
	Email      string  `validate:"required,email"`
	Name       string  `validate:"required"`
	ImageURL   *string `validate:"omitempty,url"`
}

type SubjectCreated struct {
	Profile Profile
}

// SubjectUpdated carries the role from public metadata. Role is empty when the
// provider did not set one.
type SubjectUpdated struct {
	Profile Profile
	Role    string
}

type SubjectDeleted struct {
	ExternalID string
}

type Unhandled struct {
	Type   string
	Reason string
}

func (SubjectCreated) EventType() string { return EventUserCreated }
func (SubjectUpdated) EventType() string { return EventUserUpdated }
func (SubjectDeleted) EventType() string { return EventUserDeleted }
func (u Unhandled) EventType() string    { return u.Type }

func (SubjectCreated) identityEvent() {}
func (SubjectUpdated) identityEvent() {}
func (SubjectDeleted) identityEvent() {}
func (Unhandled) identityEvent()      {}

type envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type EmailAddress struct {
	ID           string `json:"id"`
	EmailAddress string `json:"email_address"`
}

// UserData is the user object shared by webhooks and the REST API.
type UserData struct {
	ID                    string         `json:"id"`
	EmailAddresses        []EmailAddress `json:"email_addresses"`
	PrimaryEmailAddressID string         `json:"primary_email_address_id"`
	FirstName             string         `json:"first_name"`
	LastName              string         `json:"last_name"`
	Username              string         `json:"username"`
	ImageURL              *string        `json:"image_url"`
	PublicMetadata        PublicMetadata `json:"public_metadata"`
}

// PublicMetadata is what this application stores on the provider's user record.
type PublicMetadata struct {
	DBID string `json:"dbId,omitempty"`
	Role string `json:"role,omitempty"`
}

type deletedData struct {
	ID      *string `json:"id"`
	Deleted bool    `json:"deleted"`
}

// PrimaryEmail returns the address whose id matches primary_email_address_id.
func (u UserData) PrimaryEmail() string {
	for _, e := range u.EmailAddresses {
		if e.ID == u.PrimaryEmailAddressID {
			return strings.TrimSpace(e.EmailAddress)
		}
	}
	return ""
}

// DisplayName is "first last" when both are present, otherwise the username.
func (u UserData) DisplayName() string {
	first := strings.TrimSpace(u.FirstName)
	last := strings.TrimSpace(u.LastName)
	if first != "" && last != "" {
		return first + " " + last
	}
	return strings.TrimSpace(u.Username)
}

// Profile derives and validates the local profile.
func (u UserData) Profile() (Profile, error) {
	p := Profile{
		ExternalID: strings.TrimSpace(u.ID),
		Email:      u.PrimaryEmail(),
		Name:       u.DisplayName(),
		ImageURL:   u.ImageURL,
	}
	if p.ImageURL != nil && strings.TrimSpace(*p.ImageURL) == "" {
		p.ImageURL = nil
	}
	if err := validate.Struct(p); err != nil {
		return Profile{}, profileError(err)
	}
	return p, nil
}

func profileError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return apperror.ValidationFailed("data", err.Error())
	}
	fe := verrs[0]
	switch fe.Field() {
	case "ExternalID":
		return apperror.ValidationFailed("data.id", "missing user id")
	case "Email":
		if fe.Tag() == "required" {
			return apperror.ValidationFailed("data.email_addresses", "no email")
		}
		return apperror.ValidationFailed("data.email_addresses", "invalid email")
	case "Name":
		return apperror.ValidationFailed("data.first_name", "no name")
	default:
		return apperror.ValidationFailed("data."+strings.ToLower(fe.Field()), "invalid "+fe.Field())
	}
}

// ParseEvent decodes a verified body into an Event. Missing profile fields on created
// and updated events are validation failures.
func ParseEvent(body []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, apperror.ValidationFailed("body", "malformed JSON")
	}
	if env.Type == "" {
		return nil, apperror.ValidationFailed("type", "missing event type")
	}

	switch env.Type {
	case EventUserCreated, EventUserUpdated:
		var data UserData
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return nil, apperror.ValidationFailed("data", "malformed user data")
		}
		profile, err := data.Profile()
		if err != nil {
			return nil, err
		}
		if env.Type == EventUserCreated {
			return SubjectCreated{Profile: profile}, nil
		}
		return SubjectUpdated{Profile: profile, Role: strings.TrimSpace(data.PublicMetadata.Role)}, nil

	case EventUserDeleted:
		var data deletedData
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return nil, apperror.ValidationFailed("data", "malformed deletion data")
		}
		if data.ID == nil || strings.TrimSpace(*data.ID) == "" {
			return Unhandled{Type: env.Type, Reason: "deleted event without user id"}, nil
		}
		return SubjectDeleted{ExternalID: strings.TrimSpace(*data.ID)}, nil

	default:
		return Unhandled{Type: env.Type, Reason: "event type not handled"}, nil
	}
}
