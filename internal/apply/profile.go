package apply

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ternarybob/pursuit/internal/interfaces"
	"github.com/ternarybob/pursuit/internal/models"
)

// profileKey is the kv entry the dashboard writes the applicant profile to.
const profileKey = "applicant_profile"

// LoadProfile reads the applicant profile from the kv store. A missing entry
// yields an empty profile so the form filler simply skips unmatched fields.
func LoadProfile(ctx context.Context, kv interfaces.KeyValueStorage) (*models.Profile, error) {
	raw, err := kv.Get(ctx, profileKey)
	if err != nil {
		if errors.Is(err, interfaces.ErrKeyNotFound) {
			return &models.Profile{}, nil
		}
		return nil, fmt.Errorf("failed to load applicant profile: %w", err)
	}

	var profile models.Profile
	if err := json.Unmarshal([]byte(raw), &profile); err != nil {
		return nil, fmt.Errorf("failed to parse applicant profile: %w", err)
	}
	return &profile, nil
}

// SaveProfile persists the applicant profile to the kv store.
func SaveProfile(ctx context.Context, kv interfaces.KeyValueStorage, profile *models.Profile) error {
	data, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("failed to encode applicant profile: %w", err)
	}
	return kv.Set(ctx, profileKey, string(data), "Applicant profile used by the form filler")
}
