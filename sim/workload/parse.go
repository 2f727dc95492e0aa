// Package workload reads flow descriptions into sim.Flow values and
// generates random descriptions for experiments.
//
// A description is a count line followed by that many records:
//
//	3
//	1:3,3,2
//	2:0,3,1
//	3:0,4,1
//
// Each record is id, arrival, transmission and priority separated by ':' or
// ','. Arrival and transmission are in time units (see ParseConfig).
package workload

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/inference-sim/flowsim/sim"
)

// recordFields is the number of fields in one flow record.
const recordFields = 4

// ParseConfig controls unit conversion and the capacity limit.
type ParseConfig struct {
	TimeUnit time.Duration // duration of one input unit
	MaxFlows int           // largest accepted flow count
}

// DefaultParseConfig matches sim.DefaultRunConfig.
func DefaultParseConfig() ParseConfig {
	return ParseConfig{TimeUnit: sim.DefaultTimeUnit, MaxFlows: sim.DefaultMaxFlows}
}

// ParseFlows reads a description from r. source names r in error messages.
// Blank lines are skipped; records beyond the declared count are ignored.
func ParseFlows(r io.Reader, source string, cfg ParseConfig) ([]sim.Flow, error) {
	if cfg.TimeUnit <= 0 {
		return nil, fmt.Errorf("time unit must be positive, got %v", cfg.TimeUnit)
	}
	p := &parser{source: source, cfg: cfg, scanner: bufio.NewScanner(r)}
	return p.parse()
}

type parser struct {
	source  string
	cfg     ParseConfig
	scanner *bufio.Scanner
	line    int
}

// next returns the next non-blank line, trimmed.
func (p *parser) next() (string, bool) {
	for p.scanner.Scan() {
		p.line++
		text := strings.TrimSpace(p.scanner.Text())
		if text != "" {
			return text, true
		}
	}
	return "", false
}

func (p *parser) fail(field string, err error) *ParseError {
	return &ParseError{Source: p.source, Line: p.line, Field: field, Err: err}
}

func (p *parser) parse() ([]sim.Flow, error) {
	countLine, ok := p.next()
	if err := p.scanner.Err(); err != nil {
		return nil, &ParseError{Source: p.source, Field: "source", Err: err}
	}
	if !ok {
		return nil, p.fail("count", errors.New("missing flow count"))
	}
	declared, err := strconv.Atoi(countLine)
	if err != nil {
		return nil, p.fail("count", err)
	}
	if declared < 0 {
		return nil, p.fail("count", fmt.Errorf("negative flow count %d", declared))
	}
	if declared > p.cfg.MaxFlows {
		return nil, &CapacityError{Declared: declared, Max: p.cfg.MaxFlows}
	}

	flows := make([]sim.Flow, 0, declared)
	seen := make(map[int]int, declared)
	for len(flows) < declared {
		text, ok := p.next()
		if !ok {
			if err := p.scanner.Err(); err != nil {
				return nil, &ParseError{Source: p.source, Field: "source", Err: err}
			}
			return nil, p.fail("record", fmt.Errorf("declared %d flows, found %d", declared, len(flows)))
		}
		f, err := p.record(text)
		if err != nil {
			return nil, err
		}
		if first, dup := seen[f.ID]; dup {
			return nil, p.fail("id", fmt.Errorf("duplicate flow id %d (first on line %d)", f.ID, first))
		}
		seen[f.ID] = p.line
		flows = append(flows, f)
	}

	extra := 0
	for {
		if _, ok := p.next(); !ok {
			break
		}
		extra++
	}
	if extra > 0 {
		logrus.Warnf("%s: ignoring %d records beyond the declared %d flows", p.source, extra, declared)
	}
	return flows, nil
}

// record parses "id:arrival,transmission,priority". Either separator may be
// used in any position.
func (p *parser) record(text string) (sim.Flow, error) {
	parts := strings.FieldsFunc(text, func(r rune) bool { return r == ',' || r == ':' })
	if len(parts) != recordFields {
		return sim.Flow{}, p.fail("record", fmt.Errorf("expected %d fields, got %d in %q", recordFields, len(parts), text))
	}
	names := [recordFields]string{"id", "arrival", "transmission", "priority"}
	var vals [recordFields]int
	for i, part := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return sim.Flow{}, p.fail(names[i], err)
		}
		vals[i] = v
	}
	if vals[1] < 0 {
		return sim.Flow{}, p.fail("arrival", fmt.Errorf("negative arrival %d", vals[1]))
	}
	if vals[2] < 0 {
		return sim.Flow{}, p.fail("transmission", fmt.Errorf("negative transmission %d", vals[2]))
	}
	return sim.Flow{
		ID:       vals[0],
		Arrival:  time.Duration(vals[1]) * p.cfg.TimeUnit,
		Hold:     time.Duration(vals[2]) * p.cfg.TimeUnit,
		Priority: vals[3],
	}, nil
}
