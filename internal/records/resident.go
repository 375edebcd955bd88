package records

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/siwarga/rwrt-backend/internal/apperr"
	"github.com/siwarga/rwrt-backend/internal/store"
)

// Occupancy values as the resident app stores them.
const (
	OccupancyOwner  = "tetap"
	OccupancyTenant = "kontrak"
)

var nikPattern = regexp.MustCompile(`^[0-9]{16}$`)

type Resident struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	NIK          string    `json:"nik,omitempty"`
	Unit         string    `json:"unit"`
	Phone        string    `json:"phone,omitempty"`
	Email        string    `json:"email,omitempty"`
	Occupancy    string    `json:"occupancy,omitempty"`
	HeadOfFamily bool      `json:"headOfFamily"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (r Resident) AreaTag() string {
	return r.Unit
}

func DecodeResident(doc store.Document) (Resident, error) {
	data := doc.Data
	name := text(data, "name", "fullName")
	if name == "" {
		return Resident{}, fmt.Errorf("%w: resident %s has no name", ErrMalformed, doc.ID)
	}
	r := Resident{
		ID:           doc.ID,
		Name:         name,
		NIK:          text(data, "nik"),
		Unit:         text(data, "unit", "userUnit", "address"),
		Phone:        text(data, "phone", "phoneNumber"),
		Email:        text(data, "email"),
		Occupancy:    strings.ToLower(text(data, "occupancy", "status")),
		HeadOfFamily: boolean(data, "headOfFamily"),
		CreatedAt:    timestamp(data, "createdAt"),
		UpdatedAt:    doc.UpdatedAt,
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = doc.CreatedAt
	}
	return r, nil
}

// ResidentInput is a create or partial update of a resident. Nil fields are
// left untouched on update.
type ResidentInput struct {
	Name         *string `json:"name"`
	NIK          *string `json:"nik"`
	Unit         *string `json:"unit"`
	Phone        *string `json:"phone"`
	Email        *string `json:"email"`
	Occupancy    *string `json:"occupancy"`
	HeadOfFamily *bool   `json:"headOfFamily"`
}

// Fields validates the input and returns the document fields to write. When
// creating, name and unit are required.
func (in ResidentInput) Fields(creating bool) (map[string]any, error) {
	fields := map[string]any{}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, apperr.Invalid("name", "name must not be empty")
		}
		fields["name"] = name
	} else if creating {
		return nil, apperr.Invalid("name", "name is required")
	}

	if in.Unit != nil {
		unit := strings.TrimSpace(*in.Unit)
		if unit == "" {
			return nil, apperr.Invalid("unit", "unit must not be empty")
		}
		fields["unit"] = unit
	} else if creating {
		return nil, apperr.Invalid("unit", "unit is required")
	}

	if in.NIK != nil {
		nik := strings.TrimSpace(*in.NIK)
		if nik != "" && !nikPattern.MatchString(nik) {
			return nil, apperr.Invalid("nik", "NIK must be 16 digits")
		}
		fields["nik"] = nik
	}
	if in.Phone != nil {
		fields["phone"] = strings.TrimSpace(*in.Phone)
	}
	if in.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*in.Email))
		if email != "" && !strings.Contains(email, "@") {
			return nil, apperr.Invalid("email", "email is not valid")
		}
		fields["email"] = email
	}
	if in.Occupancy != nil {
		occ := strings.ToLower(strings.TrimSpace(*in.Occupancy))
		if occ != "" && occ != OccupancyOwner && occ != OccupancyTenant {
			return nil, apperr.Invalid("occupancy", "occupancy must be %s or %s", OccupancyOwner, OccupancyTenant)
		}
		fields["occupancy"] = occ
	}
	if in.HeadOfFamily != nil {
		fields["headOfFamily"] = *in.HeadOfFamily
	}

	if len(fields) == 0 {
		return nil, apperr.Invalid("", "nothing to update")
	}
	return fields, nil
}
