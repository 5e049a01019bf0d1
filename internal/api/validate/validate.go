package validate

import (
	"fmt"

	"github.com/charstore/charstore/internal/model"
)

// Field limits in bytes.
const (
	MaxName  = 100
	MaxAlias = 100
	MaxTags  = 500
	MaxBio   = 10000
)

// Errors returned here wrap model.ErrValidation.

func NonEmpty(field, v string) error {
	if v == "" {
		return fmt.Errorf("%w: %s is required", model.ErrValidation, field)
	}
	return nil
}

func MaxLen(field string, v *string, limit int) error {
	if v == nil {
		return nil
	}
	if len(*v) > limit {
		return fmt.Errorf("%w: %s exceeds %d characters", model.ErrValidation, field, limit)
	}
	return nil
}

// -------- Request specific helpers ----------

// CreateCharacter validates input for a new character. Name is mandatory.
func CreateCharacter(in model.NewCharacter) error {
	if err := NonEmpty("name", in.Name); err != nil {
		return err
	}
	return lengths(&in.Name, &in.Alias, &in.Tags, &in.Bio)
}

// UpdateCharacter validates a partial update; a supplied name may not be blank.
func UpdateCharacter(upd model.CharacterUpdate) error {
	if upd.Name != nil {
		if err := NonEmpty("name", *upd.Name); err != nil {
			return err
		}
	}
	return lengths(upd.Name, upd.Alias, upd.Tags, upd.Bio)
}

func lengths(name, alias, tags, bio *string) error {
	if err := MaxLen("name", name, MaxName); err != nil {
		return err
	}
	if err := MaxLen("alias", alias, MaxAlias); err != nil {
		return err
	}
	if err := MaxLen("tags", tags, MaxTags); err != nil {
		return err
	}
	return MaxLen("bio", bio, MaxBio)
}
