package formats

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	vec3 "github.com/flywave/go3d/float64/vec3"

	"github.com/gojushin/EnvironmentLodTools/pkg/mesh"
)

// PLY format errors.
var (
	ErrMalformedPLY   = errors.New("malformed PLY data")
	ErrUnsupportedPLY = errors.New("unsupported PLY feature")
)

type plyType int

const (
	plyInt8 plyType = iota
	plyUint8
	plyInt16
	plyUint16
	plyInt32
	plyUint32
	plyFloat32
	plyFloat64
)

var plyTypeNames = map[string]plyType{
	"char": plyInt8, "int8": plyInt8,
	"uchar": plyUint8, "uint8": plyUint8,
	"short": plyInt16, "int16": plyInt16,
	"ushort": plyUint16, "uint16": plyUint16,
	"int": plyInt32, "int32": plyInt32,
	"uint": plyUint32, "uint32": plyUint32,
	"float": plyFloat32, "float32": plyFloat32,
	"double": plyFloat64, "float64": plyFloat64,
}

func (t plyType) size() int {
	switch t {
	case plyInt8, plyUint8:
		return 1
	case plyInt16, plyUint16:
		return 2
	case plyFloat64:
		return 8
	default:
		return 4
	}
}

// plyProperty describes one declared property. List properties carry the
// count type in countType and the element type in typ.
type plyProperty struct {
	name      string
	typ       plyType
	list      bool
	countType plyType
}

type plyElement struct {
	name  string
	count int
	props []plyProperty
}

// ParsePLY reads a Stanford PLY document in ascii or binary little endian
// form. Vertex positions are required; normals (nx ny nz) and colors
// (red green blue, uchar or float) are taken when declared. Unknown
// elements and properties are skipped. Faces with more than three corners
// are fan triangulated.
func ParsePLY(data []byte) (*mesh.Mesh, error) {
	r := bufio.NewReader(bytes.NewReader(data))

	line, err := plyLine(r)
	if err != nil || line != "ply" {
		return nil, fmt.Errorf("%w: missing ply magic", ErrMalformedPLY)
	}

	var (
		ascii    bool
		sawFmt   bool
		elements []plyElement
	)
	for {
		line, err = plyLine(r)
		if err != nil {
			return nil, fmt.Errorf("%w: header ended early", ErrMalformedPLY)
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "comment", "obj_info":
			continue
		case "format":
			if len(fields) < 3 {
				return nil, fmt.Errorf("%w: bad format line %q", ErrMalformedPLY, line)
			}
			switch fields[1] {
			case "ascii":
				ascii = true
			case "binary_little_endian":
				ascii = false
			default:
				return nil, fmt.Errorf("%w: format %q", ErrUnsupportedPLY, fields[1])
			}
			sawFmt = true
		case "element":
			if len(fields) < 3 {
				return nil, fmt.Errorf("%w: bad element line %q", ErrMalformedPLY, line)
			}
			n, convErr := strconv.Atoi(fields[2])
			if convErr != nil || n < 0 {
				return nil, fmt.Errorf("%w: bad element count %q", ErrMalformedPLY, fields[2])
			}
			elements = append(elements, plyElement{name: fields[1], count: n})
		case "property":
			if len(elements) == 0 {
				return nil, fmt.Errorf("%w: property before element", ErrMalformedPLY)
			}
			prop, propErr := parsePLYProperty(fields)
			if propErr != nil {
				return nil, propErr
			}
			el := &elements[len(elements)-1]
			el.props = append(el.props, prop)
		case "end_header":
			if !sawFmt {
				return nil, fmt.Errorf("%w: missing format line", ErrMalformedPLY)
			}
			return parsePLYBody(r, ascii, elements)
		default:
			return nil, fmt.Errorf("%w: unknown header keyword %q", ErrMalformedPLY, fields[0])
		}
	}
}

// ParsePLYFile reads and parses a PLY file from disk.
func ParsePLYFile(path string) (*mesh.Mesh, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParsePLY(data)
}

func parsePLYProperty(fields []string) (plyProperty, error) {
	if fields[1] == "list" {
		if len(fields) < 5 {
			return plyProperty{}, fmt.Errorf("%w: bad list property", ErrMalformedPLY)
		}
		ct, ok := plyTypeNames[fields[2]]
		if !ok {
			return plyProperty{}, fmt.Errorf("%w: list count type %q", ErrUnsupportedPLY, fields[2])
		}
		et, ok := plyTypeNames[fields[3]]
		if !ok {
			return plyProperty{}, fmt.Errorf("%w: list element type %q", ErrUnsupportedPLY, fields[3])
		}
		return plyProperty{name: fields[4], typ: et, list: true, countType: ct}, nil
	}
	if len(fields) < 3 {
		return plyProperty{}, fmt.Errorf("%w: bad property line", ErrMalformedPLY)
	}
	t, ok := plyTypeNames[fields[1]]
	if !ok {
		return plyProperty{}, fmt.Errorf("%w: property type %q", ErrUnsupportedPLY, fields[1])
	}
	return plyProperty{name: fields[2], typ: t}, nil
}

// plyValues is one decoded element row: scalar properties contribute one
// value, list properties contribute their elements.
type plyValues struct {
	scalars map[string]float64
	lists   map[string][]float64
}

func parsePLYBody(r *bufio.Reader, ascii bool, elements []plyElement) (*mesh.Mesh, error) {
	out := &mesh.Mesh{}
	colorScale := 1.0

	for _, el := range elements {
		switch el.name {
		case "vertex":
			hasNormal := plyHasProps(el, "nx", "ny", "nz")
			hasColor := plyHasProps(el, "red", "green", "blue")
			for _, p := range el.props {
				if p.name == "red" && (p.typ == plyUint8 || p.typ == plyInt8) {
					colorScale = 1.0 / 255.0
				}
			}
			for i := 0; i < el.count; i++ {
				row, err := plyReadRow(r, ascii, el)
				if err != nil {
					return nil, fmt.Errorf("%w: vertex %d: %v", ErrMalformedPLY, i, err)
				}
				x, okx := row.scalars["x"]
				y, oky := row.scalars["y"]
				z, okz := row.scalars["z"]
				if !okx || !oky || !okz {
					return nil, fmt.Errorf("%w: vertex element lacks x y z", ErrMalformedPLY)
				}
				out.Positions = append(out.Positions, vec3.T{x, y, z})
				if hasNormal {
					out.Normals = append(out.Normals, vec3.T{row.scalars["nx"], row.scalars["ny"], row.scalars["nz"]})
				}
				if hasColor {
					out.Colors = append(out.Colors, vec3.T{
						row.scalars["red"] * colorScale,
						row.scalars["green"] * colorScale,
						row.scalars["blue"] * colorScale,
					})
				}
			}
		case "face":
			for i := 0; i < el.count; i++ {
				row, err := plyReadRow(r, ascii, el)
				if err != nil {
					return nil, fmt.Errorf("%w: face %d: %v", ErrMalformedPLY, i, err)
				}
				idx := row.lists["vertex_indices"]
				if idx == nil {
					idx = row.lists["vertex_index"]
				}
				if len(idx) < 3 {
					return nil, fmt.Errorf("%w: face %d has %d corners", ErrMalformedPLY, i, len(idx))
				}
				for k := 1; k < len(idx)-1; k++ {
					out.Triangles = append(out.Triangles, [3]int{int(idx[0]), int(idx[k]), int(idx[k+1])})
				}
			}
		default:
			// Unknown element, decode and discard row by row.
			for i := 0; i < el.count; i++ {
				if _, err := plyReadRow(r, ascii, el); err != nil {
					return nil, fmt.Errorf("%w: element %s row %d: %v", ErrMalformedPLY, el.name, i, err)
				}
			}
		}
	}

	if len(out.Positions) == 0 {
		return nil, fmt.Errorf("%w: no vertices", ErrMalformedPLY)
	}
	if err := out.Validate(); err != nil {
		return nil, err
	}
	return out, nil
}

func plyHasProps(el plyElement, names ...string) bool {
	for _, want := range names {
		found := false
		for _, p := range el.props {
			if p.name == want && !p.list {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func plyReadRow(r *bufio.Reader, ascii bool, el plyElement) (plyValues, error) {
	row := plyValues{scalars: make(map[string]float64)}

	if ascii {
		line, err := plyLine(r)
		if err != nil {
			return row, err
		}
		fields := strings.Fields(line)
		pos := 0
		take := func() (float64, error) {
			if pos >= len(fields) {
				return 0, errors.New("row too short")
			}
			v, err := strconv.ParseFloat(fields[pos], 64)
			pos++
			return v, err
		}
		for _, p := range el.props {
			if p.list {
				n, err := take()
				if err != nil {
					return row, err
				}
				if n < 0 {
					return row, errors.New("negative list count")
				}
				vals := make([]float64, int(n))
				for i := range vals {
					if vals[i], err = take(); err != nil {
						return row, err
					}
				}
				if row.lists == nil {
					row.lists = make(map[string][]float64)
				}
				row.lists[p.name] = vals
			} else {
				v, err := take()
				if err != nil {
					return row, err
				}
				row.scalars[p.name] = v
			}
		}
		return row, nil
	}

	for _, p := range el.props {
		if p.list {
			n, err := plyReadScalar(r, p.countType)
			if err != nil {
				return row, err
			}
			if n < 0 {
				return row, errors.New("negative list count")
			}
			vals := make([]float64, int(n))
			for i := range vals {
				if vals[i], err = plyReadScalar(r, p.typ); err != nil {
					return row, err
				}
			}
			if row.lists == nil {
				row.lists = make(map[string][]float64)
			}
			row.lists[p.name] = vals
		} else {
			v, err := plyReadScalar(r, p.typ)
			if err != nil {
				return row, err
			}
			row.scalars[p.name] = v
		}
	}
	return row, nil
}

func plyReadScalar(r *bufio.Reader, t plyType) (float64, error) {
	var buf [8]byte
	b := buf[:t.size()]
	if _, err := io.ReadFull(r, b); err != nil {
		return 0, err
	}
	switch t {
	case plyInt8:
		return float64(int8(b[0])), nil
	case plyUint8:
		return float64(b[0]), nil
	case plyInt16:
		return float64(int16(binary.LittleEndian.Uint16(b))), nil
	case plyUint16:
		return float64(binary.LittleEndian.Uint16(b)), nil
	case plyInt32:
		return float64(int32(binary.LittleEndian.Uint32(b))), nil
	case plyUint32:
		return float64(binary.LittleEndian.Uint32(b)), nil
	case plyFloat32:
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(b))), nil
	default:
		return math.Float64frombits(binary.LittleEndian.Uint64(b)), nil
	}
}

// plyLine reads one header or ascii body line, tolerating \r\n endings.
func plyLine(r *bufio.Reader) (string, error) {
	s, err := r.ReadString('\n')
	if err != nil && s == "" {
		return "", err
	}
	return strings.TrimRight(s, "\r\n"), nil
}

// WritePLY writes the mesh as binary little endian PLY. Positions are
// float32 x y z, normals float32 nx ny nz when present, colors uchar
// red green blue when present. Faces are written as int32 index lists.
func WritePLY(w io.Writer, m *mesh.Mesh) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "ply\nformat binary_little_endian 1.0\n")
	fmt.Fprintf(bw, "element vertex %d\n", m.VertexCount())
	fmt.Fprintf(bw, "property float x\nproperty float y\nproperty float z\n")
	if m.HasNormals() {
		fmt.Fprintf(bw, "property float nx\nproperty float ny\nproperty float nz\n")
	}
	if m.HasColors() {
		fmt.Fprintf(bw, "property uchar red\nproperty uchar green\nproperty uchar blue\n")
	}
	fmt.Fprintf(bw, "element face %d\n", m.TriangleCount())
	fmt.Fprintf(bw, "property list uchar int vertex_indices\n")
	fmt.Fprintf(bw, "end_header\n")

	putF32 := func(v float64) {
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], math.Float32bits(float32(v)))
		bw.Write(b[:])
	}
	for i, p := range m.Positions {
		putF32(p[0])
		putF32(p[1])
		putF32(p[2])
		if m.HasNormals() {
			n := m.Normals[i]
			putF32(n[0])
			putF32(n[1])
			putF32(n[2])
		}
		if m.HasColors() {
			c := m.Colors[i]
			bw.WriteByte(colorByte(c[0]))
			bw.WriteByte(colorByte(c[1]))
			bw.WriteByte(colorByte(c[2]))
		}
	}
	var ib [4]byte
	for _, tri := range m.Triangles {
		bw.WriteByte(3)
		for _, v := range tri {
			binary.LittleEndian.PutUint32(ib[:], uint32(int32(v)))
			bw.Write(ib[:])
		}
	}
	return bw.Flush()
}

// WritePLYFile writes the mesh to a PLY file on disk.
func WritePLYFile(path string, m *mesh.Mesh) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WritePLY(f, m); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func colorByte(v float64) byte {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return byte(v*255 + 0.5)
}
