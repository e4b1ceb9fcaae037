package nimbus

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// EngHeader is the header line of a RASP .eng motor file.
type EngHeader struct {
	Name           string
	Diameter       float64 // m
	Length         float64 // m
	Delays         string
	PropellantMass float64 // kg
	TotalMass      float64 // kg
	Manufacturer   string
}

func (h EngHeader) String() string {
	return fmt.Sprintf("%s by %s (Ø%.0f mm, %.0f mm, propellant %.2f kg, total %.2f kg)", h.Name, h.Manufacturer, h.Diameter*1e3, h.Length*1e3, h.PropellantMass, h.TotalMass)
}

// LoadEngFile reads a RASP .eng thrust curve file.
func LoadEngFile(path string) (*Function, EngHeader, error) {
	fd, err := os.Open(path)
	if err != nil {
		return nil, EngHeader{}, fmt.Errorf("thrust curve: %w", err)
	}
	defer fd.Close()
	return ReadEng(fd)
}

// ReadEng parses a RASP .eng thrust curve. Lines starting with `;` are comments.
// The curve always starts at (0, 0).
func ReadEng(r io.Reader) (*Function, EngHeader, error) {
	var hdr EngHeader
	headerRead := false
	xs := []float64{0}
	ys := []float64{0}
	scanner := bufio.NewScanner(r)
	for lineNo := 1; scanner.Scan(); lineNo++ {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, ";") {
			continue
		}
		fields := strings.Fields(line)
		if !headerRead {
			if len(fields) < 7 {
				return nil, hdr, fmt.Errorf("eng line %d: header needs 7 fields, got %d", lineNo, len(fields))
			}
			var nums [4]float64
			for i, idx := range []int{1, 2, 4, 5} {
				v, err := strconv.ParseFloat(fields[idx], 64)
				if err != nil {
					return nil, hdr, fmt.Errorf("eng line %d: %s", lineNo, err)
				}
				nums[i] = v
			}
			hdr = EngHeader{Name: fields[0], Diameter: nums[0] / 1e3, Length: nums[1] / 1e3, Delays: fields[3], PropellantMass: nums[2], TotalMass: nums[3], Manufacturer: strings.Join(fields[6:], " ")}
			headerRead = true
			continue
		}
		if len(fields) != 2 {
			return nil, hdr, fmt.Errorf("eng line %d: expected `time thrust`, got %q", lineNo, line)
		}
		t, terr := strconv.ParseFloat(fields[0], 64)
		thrust, ferr := strconv.ParseFloat(fields[1], 64)
		if terr != nil || ferr != nil {
			return nil, hdr, fmt.Errorf("eng line %d: could not parse %q", lineNo, line)
		}
		if t == 0 {
			ys[0] = thrust
			continue
		}
		xs = append(xs, t)
		ys = append(ys, thrust)
	}
	if err := scanner.Err(); err != nil {
		return nil, hdr, err
	}
	if !headerRead {
		return nil, hdr, errors.New("eng: no header found")
	}
	f, err := NewFunction(hdr.Name, xs, ys)
	return f, hdr, err
}
