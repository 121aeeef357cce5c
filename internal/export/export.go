// Package export writes generated tile level chains to disk in one of the
// supported interchange formats and drops a manifest.yaml next to the
// files summarising the run.
package export

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gojushin/EnvironmentLodTools/internal/lod"
	"github.com/gojushin/EnvironmentLodTools/pkg/formats"
)

const generatorName = "EnvironmentLodTools"

// Format selects the on-disk mesh format.
type Format string

// Supported export formats.
const (
	FormatOBJ Format = "obj"
	FormatPLY Format = "ply"
	FormatGLB Format = "glb"
)

// ErrUnknownFormat reports an export format this package cannot write.
var ErrUnknownFormat = errors.New("unknown export format")

// ParseFormat maps a config string to a Format.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatOBJ, FormatPLY, FormatGLB:
		return Format(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// Ext returns the format's file extension, dot included.
func (f Format) Ext() string {
	return "." + string(f)
}

// WriteLevel writes one generated level into dir as <name><ext> and
// returns the written path.
func WriteLevel(dir string, f Format, lv lod.Level) (string, error) {
	path := filepath.Join(dir, lv.Name+f.Ext())
	var err error
	switch f {
	case FormatOBJ:
		err = formats.WriteOBJFile(path, lv.Mesh, lv.Name)
	case FormatPLY:
		err = formats.WritePLYFile(path, lv.Mesh)
	case FormatGLB:
		err = WriteGLB(path, lv.Name, lv.Mesh)
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownFormat, f)
	}
	if err != nil {
		return "", err
	}
	return path, nil
}

// WriteSets writes every level of every tile chain into dir, then the run
// manifest. The directory is created when missing.
func WriteSets(dir string, f Format, sets []*lod.Set) (*Manifest, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	man := NewManifest(f)
	for _, set := range sets {
		for _, lv := range set.Levels {
			if _, err := WriteLevel(dir, f, lv); err != nil {
				return nil, fmt.Errorf("%s: %w", lv.Name, err)
			}
		}
		man.AddSet(set)
	}

	if err := man.SaveTo(filepath.Join(dir, ManifestName)); err != nil {
		return nil, err
	}
	return man, nil
}
