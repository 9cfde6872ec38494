package bundle

import (
	"path"
	"strings"

	"github.com/macroforge/macroforge/identity"
	"github.com/macroforge/macroforge/operr"
	"github.com/macroforge/macroforge/security"
)

// BundleSuffix is the mandatory extension of a packaged bundle.
const BundleSuffix = ".kmsync"

// ScriptFile is one packaged script inside a bundle.
type ScriptFile struct {
	Name string `json:"name"`
	Data []byte `json:"data"`
}

// Bundle is the immutable packaged unit handed to the installation
// boundary: manifest plus script files plus derived metadata and
// security context. Any transformation produces a new value; the
// identity invariant bundle.Identity == bundle.Metadata.Identity holds
// for every bundle this package constructs.
type Bundle struct {
	Identity   identity.Identity   `json:"identity"`
	BundlePath identity.PluginPath `json:"bundle_path"`
	Manifest   []byte              `json:"manifest"`
	Scripts    []ScriptFile        `json:"scripts"`
	Metadata   Metadata            `json:"metadata"`
	Security   security.Context    `json:"security_context"`
}

// Assemble runs the packaging stage: it generates the manifest and
// packages the script under its dialect filename into a bundle
// addressed by <sanitized-name>.kmsync inside directory. The directory
// must be a relative staging location; it is validated, not trusted.
func Assemble(meta Metadata, data CreationData, directory string) (Bundle, error) {
	manifest, err := GenerateManifest(meta)
	if err != nil {
		return Bundle{}, err
	}

	name := meta.Identity.Name.Clean() + BundleSuffix
	raw := name
	if directory != "" {
		raw = path.Join(directory, name)
	}
	bundlePath, err := identity.NewPluginPath(raw)
	if err != nil {
		return Bundle{}, operr.Wrap(operr.KindValidation,
			"invalid bundle directory", "use a relative staging directory without traversal segments", err)
	}

	return Bundle{
		Identity:   meta.Identity,
		BundlePath: bundlePath,
		Manifest:   manifest,
		Scripts: []ScriptFile{
			{Name: meta.Dialect.ScriptFileName(), Data: data.Content.Bytes()},
		},
		Metadata: meta,
		Security: SecurityContext(meta),
	}, nil
}

// SecurityContext derives the packaged security context from the
// plugin's metadata. The limits are the recorded per-plugin limits,
// which never exceed the level's ceiling.
func SecurityContext(meta Metadata) security.Context {
	ctx := security.NewContext(meta.Identity, meta.Level, meta.RiskScore, meta.ContentHash)
	ctx.Limits = meta.Limits
	return ctx
}

// Transform is a pure bundle-to-bundle function.
type Transform func(Bundle) Bundle

// Apply runs a transformation and enforces the identity invariant: a
// transform that changes the bundle's id or name is rejected, never
// silently accepted.
func Apply(b Bundle, t Transform) (Bundle, error) {
	out := t(b)
	if out.Identity != b.Identity || out.Metadata.Identity != b.Identity {
		return Bundle{}, operr.New(operr.KindPostcondition,
			"bundle transformation changed the plugin identity",
			"transformations must preserve id and name; rebuild the transform")
	}
	return out, nil
}

// HasSuffix reports whether the bundle path carries the mandatory
// .kmsync extension.
func (b Bundle) HasSuffix() bool {
	return strings.HasSuffix(b.BundlePath.String(), BundleSuffix)
}

// TotalScriptBytes sums the packaged script sizes.
func (b Bundle) TotalScriptBytes() int64 {
	var total int64
	for _, f := range b.Scripts {
		total += int64(len(f.Data))
	}
	return total
}
