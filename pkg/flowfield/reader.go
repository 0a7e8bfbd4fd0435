package flowfield

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/golang/geo/r3"
)

// ReadSamples parses whitespace-delimited flow records.
//
// Each row holds the grid coordinates followed by velocities:
//
//	x0 x1 x2 u0 u1 u2              (6 columns, fluid velocity)
//	x0 x1 x2 v0 v1 v2 u0 u1 u2     (9 or more columns, particle then fluid velocity)
//
// The fluid velocity u is used in both layouts. Blank lines, lines starting
// with '#', and a leading header row that is not numeric are skipped.
func ReadSamples(r io.Reader) ([]Sample, error) {
	var samples []Sample
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		fields := strings.Fields(text)
		values := make([]float64, len(fields))
		numeric := true
		for i, f := range fields {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				numeric = false
				break
			}
			values[i] = v
		}
		if !numeric {
			if len(samples) == 0 {
				// header row
				continue
			}
			return nil, fmt.Errorf("line %d: non-numeric flow record %q", line, text)
		}

		var u []float64
		switch {
		case len(values) >= 9:
			u = values[6:9]
		case len(values) >= 6:
			u = values[3:6]
		default:
			return nil, fmt.Errorf("line %d: expected at least 6 columns, got %d", line, len(values))
		}
		samples = append(samples, Sample{
			Position: r3.Vector{X: values[0], Y: values[1], Z: values[2]},
			Velocity: r3.Vector{X: u[0], Y: u[1], Z: u[2]},
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(samples) == 0 {
		return nil, fmt.Errorf("no flow records found")
	}
	return samples, nil
}

// LoadSamples reads flow records from a file
func LoadSamples(path string) ([]Sample, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	samples, err := ReadSamples(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read flow file %s: %w", path, err)
	}
	return samples, nil
}
