// Package catalog loads onboarding vendor catalogs. A catalog is a YAML or
// CUE document with a top-level `vendors` list; it is checked against an
// embedded CUE schema before any vendor reaches the store.
package catalog

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	cueyaml "cuelang.org/go/encoding/yaml"

	"github.com/roach88/mealsync/internal/model"
)

//go:embed schema.cue
var schemaSource string

// Catalog is a validated list of vendors ready to be added.
type Catalog struct {
	Vendors []model.Vendor
}

// Error describes why a catalog was rejected.
type Error struct {
	File    string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.File, e.Message)
}

// Load reads and validates the catalog at path. The extension selects the
// format: .yaml, .yml or .cue.
func Load(path string) (Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(path, data)
}

// Parse validates a catalog document. filename is used for the format and
// for error positions.
func Parse(filename string, data []byte) (Catalog, error) {
	ctx := cuecontext.New()

	var doc cue.Value
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".cue":
		doc = ctx.CompileBytes(data, cue.Filename(filename))
	case ".yaml", ".yml":
		f, err := cueyaml.Extract(filename, data)
		if err != nil {
			return Catalog{}, &Error{File: filename, Message: cueMessage(err)}
		}
		doc = ctx.BuildFile(f)
	default:
		return Catalog{}, &Error{File: filename, Message: "unsupported catalog format (want .yaml, .yml or .cue)"}
	}
	if err := doc.Err(); err != nil {
		return Catalog{}, &Error{File: filename, Message: cueMessage(err)}
	}

	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return Catalog{}, fmt.Errorf("catalog schema: %w", err)
	}

	unified := schema.Unify(doc)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return Catalog{}, &Error{File: filename, Message: cueMessage(err)}
	}

	raw, err := unified.LookupPath(cue.ParsePath("vendors")).MarshalJSON()
	if err != nil {
		return Catalog{}, &Error{File: filename, Message: cueMessage(err)}
	}
	var vendors []model.Vendor
	if err := json.Unmarshal(raw, &vendors); err != nil {
		return Catalog{}, fmt.Errorf("decode catalog: %w", err)
	}
	if len(vendors) == 0 {
		return Catalog{}, &Error{File: filename, Message: "catalog has no vendors"}
	}

	seen := make(map[string]bool, len(vendors))
	for i := range vendors {
		vendors[i].Name = model.NormalizeName(vendors[i].Name)
		key := strings.ToLower(vendors[i].Name)
		if seen[key] {
			return Catalog{}, &Error{File: filename, Message: fmt.Sprintf("duplicate vendor %q", vendors[i].Name)}
		}
		seen[key] = true
		if err := model.ValidateVendor(vendors[i]); err != nil {
			return Catalog{}, &Error{File: filename, Message: err.Error()}
		}
	}
	return Catalog{Vendors: vendors}, nil
}

func cueMessage(err error) string {
	return strings.TrimSpace(cueerrors.Details(err, nil))
}
