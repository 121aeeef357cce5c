// Package formats reads and writes the mesh interchange formats used by the
// pipeline: Wavefront OBJ (with the common vertex color extension) and
// Stanford PLY in ascii or binary little endian flavor.
package formats

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	vec2 "github.com/flywave/go3d/float64/vec2"
	vec3 "github.com/flywave/go3d/float64/vec3"

	"github.com/gojushin/EnvironmentLodTools/pkg/mesh"
)

// OBJ format errors.
var (
	ErrMalformedOBJ = errors.New("malformed OBJ data")
	ErrEmptyOBJ     = errors.New("OBJ contains no geometry")
)

// objCorner identifies one face corner by its position, texture and normal
// indices in the three separate OBJ index spaces. Missing references are -1.
type objCorner struct {
	v, vt, vn int
}

// ParseOBJ reads a Wavefront OBJ document into a single mesh. Supported
// statements are v (with the optional trailing r g b color extension), vt,
// vn and f; everything else, including object and material statements, is
// skipped. Faces with more than three corners are fan triangulated. Corner
// references may be negative, counting back from the most recent vertex.
func ParseOBJ(data []byte) (*mesh.Mesh, error) {
	var (
		positions []vec3.T
		colors    []vec3.T
		normals   []vec3.T
		uvs       []vec2.T
	)

	out := &mesh.Mesh{}
	// OBJ indexes positions, uvs and normals independently. Each distinct
	// corner triple becomes one output vertex.
	corners := make(map[objCorner]int)

	resolve := func(c objCorner) int {
		if idx, ok := corners[c]; ok {
			return idx
		}
		idx := len(out.Positions)
		out.Positions = append(out.Positions, positions[c.v])
		if len(colors) > 0 {
			out.Colors = append(out.Colors, colors[c.v])
		}
		if c.vn >= 0 {
			out.Normals = append(out.Normals, normals[c.vn])
		}
		if c.vt >= 0 {
			out.UVs = append(out.UVs, uvs[c.vt])
		}
		corners[c] = idx
		return idx
	}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		switch fields[0] {
		case "v":
			if len(fields) < 4 {
				return nil, fmt.Errorf("%w: line %d: vertex needs 3 coordinates", ErrMalformedOBJ, lineNo)
			}
			p, err := parseFloats(fields[1:4])
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: %v", ErrMalformedOBJ, lineNo, err)
			}
			positions = append(positions, vec3.T{p[0], p[1], p[2]})
			// Some exporters append a linear r g b color to each vertex.
			if len(fields) >= 7 {
				if len(colors) != len(positions)-1 {
					return nil, fmt.Errorf("%w: line %d: colored vertex after uncolored vertices", ErrMalformedOBJ, lineNo)
				}
				c, err := parseFloats(fields[4:7])
				if err != nil {
					return nil, fmt.Errorf("%w: line %d: %v", ErrMalformedOBJ, lineNo, err)
				}
				colors = append(colors, vec3.T{c[0], c[1], c[2]})
			} else if len(colors) > 0 {
				return nil, fmt.Errorf("%w: line %d: vertex without color after colored vertices", ErrMalformedOBJ, lineNo)
			}
		case "vn":
			if len(fields) < 4 {
				return nil, fmt.Errorf("%w: line %d: normal needs 3 components", ErrMalformedOBJ, lineNo)
			}
			n, err := parseFloats(fields[1:4])
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: %v", ErrMalformedOBJ, lineNo, err)
			}
			normals = append(normals, vec3.T{n[0], n[1], n[2]})
		case "vt":
			if len(fields) < 3 {
				return nil, fmt.Errorf("%w: line %d: uv needs 2 components", ErrMalformedOBJ, lineNo)
			}
			uv, err := parseFloats(fields[1:3])
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: %v", ErrMalformedOBJ, lineNo, err)
			}
			uvs = append(uvs, vec2.T{uv[0], uv[1]})
		case "f":
			if len(fields) < 4 {
				return nil, fmt.Errorf("%w: line %d: face needs at least 3 corners", ErrMalformedOBJ, lineNo)
			}
			face := make([]int, 0, len(fields)-1)
			for _, ref := range fields[1:] {
				c, err := parseOBJCorner(ref, len(positions), len(uvs), len(normals))
				if err != nil {
					return nil, fmt.Errorf("%w: line %d: %v", ErrMalformedOBJ, lineNo, err)
				}
				face = append(face, resolve(c))
			}
			for i := 1; i < len(face)-1; i++ {
				out.Triangles = append(out.Triangles, [3]int{face[0], face[i], face[i+1]})
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedOBJ, err)
	}
	if len(out.Positions) == 0 {
		return nil, ErrEmptyOBJ
	}
	if err := out.Validate(); err != nil {
		return nil, err
	}
	return out, nil
}

// ParseOBJFile reads and parses an OBJ file from disk.
func ParseOBJFile(path string) (*mesh.Mesh, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseOBJ(data)
}

// parseOBJCorner resolves one face corner reference of the form v, v/vt,
// v//vn or v/vt/vn into zero-based indices. Negative references count back
// from the end of the respective list.
func parseOBJCorner(ref string, nv, nvt, nvn int) (objCorner, error) {
	c := objCorner{v: -1, vt: -1, vn: -1}
	parts := strings.Split(ref, "/")
	if len(parts) > 3 {
		return c, fmt.Errorf("corner %q has too many slashes", ref)
	}

	idx := func(s string, n int) (int, error) {
		i, err := strconv.Atoi(s)
		if err != nil {
			return 0, fmt.Errorf("corner %q: %v", ref, err)
		}
		if i < 0 {
			i += n
		} else {
			i--
		}
		if i < 0 || i >= n {
			return 0, fmt.Errorf("corner %q references element %s of %d", ref, s, n)
		}
		return i, nil
	}

	var err error
	if c.v, err = idx(parts[0], nv); err != nil {
		return c, err
	}
	if len(parts) >= 2 && parts[1] != "" {
		if c.vt, err = idx(parts[1], nvt); err != nil {
			return c, err
		}
	}
	if len(parts) == 3 && parts[2] != "" {
		if c.vn, err = idx(parts[2], nvn); err != nil {
			return c, err
		}
	}
	return c, nil
}

func parseFloats(fields []string) ([]float64, error) {
	out := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("bad number %q", f)
		}
		out[i] = v
	}
	return out, nil
}

// WriteOBJ writes the mesh as a Wavefront OBJ document under the given
// object name. Vertex colors, when present, are appended to the v
// statements. All attributes share the mesh index space, so face corners
// reference the same index for position, uv and normal.
func WriteOBJ(w io.Writer, m *mesh.Mesh, name string) error {
	bw := bufio.NewWriter(w)
	if name != "" {
		fmt.Fprintf(bw, "o %s\n", name)
	}
	for i, p := range m.Positions {
		if m.HasColors() {
			c := m.Colors[i]
			fmt.Fprintf(bw, "v %g %g %g %g %g %g\n", p[0], p[1], p[2], c[0], c[1], c[2])
		} else {
			fmt.Fprintf(bw, "v %g %g %g\n", p[0], p[1], p[2])
		}
	}
	for _, uv := range m.UVs {
		fmt.Fprintf(bw, "vt %g %g\n", uv[0], uv[1])
	}
	for _, n := range m.Normals {
		fmt.Fprintf(bw, "vn %g %g %g\n", n[0], n[1], n[2])
	}

	var corner func(i int) string
	switch {
	case m.HasUVs() && m.HasNormals():
		corner = func(i int) string { return fmt.Sprintf("%d/%d/%d", i, i, i) }
	case m.HasUVs():
		corner = func(i int) string { return fmt.Sprintf("%d/%d", i, i) }
	case m.HasNormals():
		corner = func(i int) string { return fmt.Sprintf("%d//%d", i, i) }
	default:
		corner = func(i int) string { return strconv.Itoa(i) }
	}
	for _, tri := range m.Triangles {
		fmt.Fprintf(bw, "f %s %s %s\n", corner(tri[0]+1), corner(tri[1]+1), corner(tri[2]+1))
	}
	return bw.Flush()
}

// WriteOBJFile writes the mesh to an OBJ file on disk.
func WriteOBJFile(path string, m *mesh.Mesh, name string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteOBJ(f, m, name); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
