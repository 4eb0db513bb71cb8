package loader

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/kilianp07/drtmdp/core/model"
)

// Table selects the meaning of the fourth link column.
type Table int

const (
	// ServiceTable rows are id,o,d,cost.
	ServiceTable Table = iota
	// DemandTable rows are id,o,d,fare.
	DemandTable
)

func (t Table) String() string {
	if t == ServiceTable {
		return "service link"
	}
	return "demand link"
}

// ReadLinks parses a link table. The first row is a header.
func ReadLinks(r io.Reader, t Table) ([]model.Link, error) {
	var out []model.Link
	err := rows(r, t.String(), func(line int, f fields) error {
		if len(f.cols) != 4 {
			return f.bad(line, "want 4 columns, got %d", len(f.cols))
		}
		l := model.Link{ID: f.int(0), Origin: f.int(1), Destination: f.int(2)}
		if t == ServiceTable {
			l.Cost = f.float(3)
		} else {
			l.Fare = f.float(3)
		}
		if f.err != nil {
			return f.bad(line, "%v", f.err)
		}
		out = append(out, l)
		return nil
	})
	return out, err
}

// ReadDemands parses the OD table. Rows carry ten columns, or twelve when
// the service-side pick-up and drop-off links are given explicitly. Without
// them the legacy id mapping of the demand-side links applies.
func ReadDemands(r io.Reader) ([]model.Demand, error) {
	var out []model.Demand
	err := rows(r, "demand", func(line int, f fields) error {
		if len(f.cols) != 10 && len(f.cols) != 12 {
			return f.bad(line, "want 10 or 12 columns, got %d", len(f.cols))
		}
		d := model.Demand{
			ID: f.int(0), Origin: f.int(1), Destination: f.int(2),
			BookingTime: f.int(3), Deadline: f.int(4),
			RouteExponent:  f.float(5),
			BetaTime:       f.float(6),
			BetaFare:       f.float(7),
			BetaTimeOfDay:  f.float(8),
			BetaExperience: f.float(9),
		}
		if len(f.cols) == 12 {
			d.ServiceOrigin, d.ServiceDestination = f.int(10), f.int(11)
		} else {
			d.ServiceOrigin = model.LegacyServiceLink(d.Origin)
			d.ServiceDestination = model.LegacyServiceLink(d.Destination)
		}
		if f.err != nil {
			return f.bad(line, "%v", f.err)
		}
		out = append(out, d)
		return nil
	})
	return out, err
}

type fields struct {
	kind string
	cols []string
	err  error
}

func (f *fields) int(i int) int {
	v, err := strconv.Atoi(strings.TrimSpace(f.cols[i]))
	if err != nil && f.err == nil {
		f.err = fmt.Errorf("column %d: %w", i+1, err)
	}
	return v
}

func (f *fields) float(i int) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(f.cols[i]), 64)
	if err != nil && f.err == nil {
		f.err = fmt.Errorf("column %d: %w", i+1, err)
	}
	return v
}

func (f fields) bad(line int, format string, args ...any) error {
	return &model.MalformedInputError{Kind: f.kind + " line", ID: line, Reason: fmt.Sprintf(format, args...)}
}

func rows(r io.Reader, kind string, fn func(line int, f fields) error) error {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.Comment = '#'
	header := true
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return &model.MalformedInputError{Kind: kind + " table", Reason: err.Error()}
		}
		if header {
			header = false
			continue
		}
		line, _ := cr.FieldPos(0)
		f := fields{kind: kind, cols: rec}
		if err := fn(line, f); err != nil {
			return err
		}
	}
}
