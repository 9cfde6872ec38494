package bundle

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/macroforge/macroforge/operr"
)

// Manifest is the structured descriptor embedded in every bundle. It
// is the only externally observable artifact format and must stay
// key/value-structured and round-trippable.
type Manifest struct {
	BundleIdentifier string      `json:"bundle_identifier"`
	DisplayName      string      `json:"display_name"`
	Dialect          string      `json:"dialect"`
	ContentHash      string      `json:"content_hash,omitempty"`
	Parameters       []Parameter `json:"parameters,omitempty"`
	CreatedAt        time.Time   `json:"created_at"`
	Description      string      `json:"description,omitempty"`
}

// requiredManifestKeys is the minimal key set a manifest must carry.
var requiredManifestKeys = []string{
	"bundle_identifier",
	"display_name",
	"dialect",
	"created_at",
}

// GenerateManifest builds the manifest bytes for validated metadata.
// Inputs were validated upstream, so a failure here is a system error,
// not a validation error.
func GenerateManifest(meta Metadata) ([]byte, error) {
	m := Manifest{
		BundleIdentifier: meta.Identity.ID.BundleIdentifier(),
		DisplayName:      meta.Identity.Name.String(),
		Dialect:          meta.Dialect.String(),
		ContentHash:      meta.ContentHash.String(),
		Parameters:       meta.Parameters,
		CreatedAt:        meta.CreatedAt,
		Description:      meta.Description,
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, operr.System("encoding bundle manifest", err)
	}
	return data, nil
}

// ParseManifest round-trips manifest bytes back into a Manifest.
func ParseManifest(data []byte) (Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("parsing manifest: %w", err)
	}
	return m, nil
}

// checkManifestKeys verifies the minimal required key set is present
// and non-empty, returning every missing key rather than the first.
func checkManifestKeys(data []byte) []string {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return []string{"manifest is not a key/value document"}
	}

	var missing []string
	for _, key := range requiredManifestKeys {
		v, ok := raw[key]
		if !ok || string(v) == `""` || string(v) == "null" {
			missing = append(missing, fmt.Sprintf("required manifest key %q is missing or empty", key))
		}
	}
	return missing
}
