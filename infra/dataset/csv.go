package dataset

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/kilianp07/induction/core/factory"
	"github.com/kilianp07/induction/core/model"
)

// Column names shared by the tabular sources.
const (
	colTrainset        = "trainset_id"
	colMileage         = "cumulative_mileage_km"
	colCertType        = "certificate_type"
	colExpiry          = "expiry_date"
	colJobID           = "job_card_id"
	colStatus          = "status"
	colCritical        = "is_critical"
	colManHours        = "required_man_hours"
	colCurrentExposure = "current_exposure_hours"
	colTargetExposure  = "target_exposure_hours"
	colPenalty         = "penalty_per_hour"
	colResource        = "resource_id"
	colCapacity        = "available_capacity"
	colFrom            = "from_location"
	colTo              = "to_location"
	colShuntingCost    = "shunting_cost"
)

// CSVConfig locates the six files of a scenario directory.
type CSVConfig struct {
	Dir          string `json:"dir"`
	Trainsets    string `json:"trainsets"`
	Certificates string `json:"certificates"`
	JobCards     string `json:"job_cards"`
	SLAs         string `json:"branding_slas"`
	Resources    string `json:"resources"`
	LayoutCosts  string `json:"layout_costs"`
}

// SetDefaults fills in the standard file names.
func (c *CSVConfig) SetDefaults() {
	if c.Trainsets == "" {
		c.Trainsets = "trainsets_master.csv"
	}
	if c.Certificates == "" {
		c.Certificates = "fitness_certificates.csv"
	}
	if c.JobCards == "" {
		c.JobCards = "job_cards_maximo.csv"
	}
	if c.SLAs == "" {
		c.SLAs = "branding_slas.csv"
	}
	if c.Resources == "" {
		c.Resources = "depot_resources.csv"
	}
	if c.LayoutCosts == "" {
		c.LayoutCosts = "depot_layout_costs.csv"
	}
}

// Validate checks the configuration.
func (c CSVConfig) Validate() error {
	if strings.TrimSpace(c.Dir) == "" {
		return fmt.Errorf("csv dataset: dir is required")
	}
	return nil
}

// CSVProvider reads a scenario directory of CSV files.
type CSVProvider struct {
	cfg CSVConfig
}

// NewCSVProvider returns a provider for cfg.
func NewCSVProvider(cfg CSVConfig) (*CSVProvider, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &CSVProvider{cfg: cfg}, nil
}

func newCSVFromConf(conf map[string]any) (*CSVProvider, error) {
	var c CSVConfig
	if err := factory.Decode(conf, &c); err != nil {
		return nil, err
	}
	return NewCSVProvider(c)
}

// Name implements dataset.Provider.
func (p *CSVProvider) Name() string { return "csv:" + p.cfg.Dir }

// Load implements dataset.Provider.
func (p *CSVProvider) Load(ctx context.Context) (*model.Dataset, error) {
	var vehicles []model.Vehicle
	var certs []model.Certificate
	var jobs []model.JobCard
	var slas []model.SLA
	var res []model.ResourceCapacity
	var layout []model.ShuntingCostEntry

	steps := []struct {
		file string
		cols []string
		row  func(r *rowParser, get func(string) string)
	}{
		{p.cfg.Trainsets, []string{colTrainset, colMileage}, func(r *rowParser, get func(string) string) {
			vehicles = append(vehicles, model.Vehicle{ID: r.str(colTrainset, get(colTrainset)), CumulativeMileageKM: r.float(colMileage, get(colMileage))})
		}},
		{p.cfg.Certificates, []string{colTrainset, colCertType, colExpiry}, func(r *rowParser, get func(string) string) {
			certs = append(certs, model.Certificate{
				VehicleID: r.str(colTrainset, get(colTrainset)),
				Type:      r.str(colCertType, get(colCertType)),
				Expiry:    r.date(colExpiry, get(colExpiry)),
			})
		}},
		{p.cfg.JobCards, []string{colTrainset, colStatus, colCritical, colManHours}, func(r *rowParser, get func(string) string) {
			jobs = append(jobs, model.JobCard{
				ID:               strings.TrimSpace(get(colJobID)),
				VehicleID:        r.str(colTrainset, get(colTrainset)),
				Status:           r.status(colStatus, get(colStatus)),
				Critical:         r.boolean(colCritical, get(colCritical)),
				RequiredManHours: r.float(colManHours, get(colManHours)),
			})
		}},
		{p.cfg.SLAs, []string{colTrainset, colCurrentExposure, colTargetExposure, colPenalty}, func(r *rowParser, get func(string) string) {
			slas = append(slas, model.SLA{
				VehicleID:            r.str(colTrainset, get(colTrainset)),
				CurrentExposureHours: r.float(colCurrentExposure, get(colCurrentExposure)),
				TargetExposureHours:  r.float(colTargetExposure, get(colTargetExposure)),
				PenaltyPerHour:       r.float(colPenalty, get(colPenalty)),
			})
		}},
		{p.cfg.Resources, []string{colResource, colCapacity}, func(r *rowParser, get func(string) string) {
			res = append(res, model.ResourceCapacity{ResourceID: r.str(colResource, get(colResource)), AvailableCapacity: r.float(colCapacity, get(colCapacity))})
		}},
		{p.cfg.LayoutCosts, []string{colFrom, colTo, colShuntingCost}, func(r *rowParser, get func(string) string) {
			layout = append(layout, model.ShuntingCostEntry{
				From: r.str(colFrom, get(colFrom)),
				To:   r.str(colTo, get(colTo)),
				Cost: r.float(colShuntingCost, get(colShuntingCost)),
			})
		}},
	}
	for _, s := range steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := readTable(filepath.Join(p.cfg.Dir, s.file), s.cols, s.row); err != nil {
			return nil, err
		}
	}
	return model.NewDataset(vehicles, certs, jobs, slas, res, layout), nil
}

// readTable streams a CSV file with a header row, calling fn for every
// record. Columns are matched by header name.
func readTable(path string, required []string, fn func(r *rowParser, get func(string) string)) error {
	f, err := os.Open(path)
	if err != nil {
		return model.NewError(model.KindValidation, "dataset", err)
	}
	defer func() { _ = f.Close() }()

	rd := csv.NewReader(f)
	rd.TrimLeadingSpace = true
	header, err := rd.Read()
	if err != nil {
		return model.Validationf("dataset", "%s: reading header: %v", filepath.Base(path), err)
	}
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	for _, c := range required {
		if _, ok := idx[c]; !ok {
			return model.Validationf("dataset", "%s: missing column %s", filepath.Base(path), c)
		}
	}

	line := 1
	for {
		rec, err := rd.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		line++
		if err != nil {
			return model.Validationf("dataset", "%s line %d: %v", filepath.Base(path), line, err)
		}
		get := func(col string) string {
			if i, ok := idx[col]; ok && i < len(rec) {
				return rec[i]
			}
			return ""
		}
		r := &rowParser{source: filepath.Base(path), line: line}
		fn(r, get)
		if r.err != nil {
			return r.err
		}
	}
}

// rowParser reads typed fields out of one record and keeps the first
// failure.
type rowParser struct {
	source string
	line   int
	err    error
}

func (p *rowParser) fail(col, format string, args ...any) {
	if p.err == nil {
		p.err = model.Validationf("dataset", "%s line %d, %s: %s", p.source, p.line, col, fmt.Sprintf(format, args...))
	}
}

func (p *rowParser) str(col, v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		p.fail(col, "value is required")
	}
	return v
}

func (p *rowParser) float(col, v string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		p.fail(col, "not a number %q", v)
	}
	return f
}

func (p *rowParser) boolean(col, v string) bool {
	b, err := parseBool(v)
	if err != nil {
		p.fail(col, "%v", err)
	}
	return b
}

func (p *rowParser) status(col, v string) model.JobStatus {
	s, err := model.ParseJobStatus(v)
	if err != nil {
		p.fail(col, "%v", err)
	}
	return s
}

func (p *rowParser) date(col, v string) time.Time {
	d, err := model.ParseDate(v)
	if err != nil {
		p.fail(col, "%v", err)
	}
	return d
}

func parseBool(v string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "yes", "y":
		return true, nil
	case "no", "n", "":
		return false, nil
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return false, fmt.Errorf("not a boolean %q", v)
	}
	return b, nil
}
