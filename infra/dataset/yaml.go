package dataset

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/induction/core/factory"
	"github.com/kilianp07/induction/core/model"
)

// Document is a whole scenario in one YAML file. Dates are kept as text
// and parsed by ToDataset so every source accepts the same layouts.
type Document struct {
	Name          string                    `yaml:"name"`
	ReferenceDate string                    `yaml:"reference_date"`
	Trainsets     []model.Vehicle           `yaml:"trainsets"`
	Certificates  []CertificateRow          `yaml:"certificates"`
	JobCards      []JobCardRow              `yaml:"job_cards"`
	SLAs          []model.SLA               `yaml:"slas"`
	Resources     []model.ResourceCapacity  `yaml:"resources"`
	LayoutCosts   []model.ShuntingCostEntry `yaml:"layout_costs"`
}

// CertificateRow is a certificate with a textual expiry date.
type CertificateRow struct {
	VehicleID string `yaml:"trainset_id"`
	Type      string `yaml:"certificate_type"`
	Expiry    string `yaml:"expiry_date"`
}

// JobCardRow is a job card with textual status and criticality.
type JobCardRow struct {
	ID               string  `yaml:"job_card_id"`
	VehicleID        string  `yaml:"trainset_id"`
	Status           string  `yaml:"status"`
	Critical         string  `yaml:"is_critical"`
	RequiredManHours float64 `yaml:"required_man_hours"`
}

// DecodeDocument reads one scenario document. Unknown keys are rejected.
func DecodeDocument(r io.Reader) (*Document, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return nil, model.Validationf("dataset", "yaml: %v", err)
	}
	return &doc, nil
}

// ToDataset converts the document into a snapshot.
func (d *Document) ToDataset() (*model.Dataset, error) {
	certs := make([]model.Certificate, 0, len(d.Certificates))
	for i, c := range d.Certificates {
		exp, err := model.ParseDate(c.Expiry)
		if err != nil {
			return nil, model.Validationf("dataset", "certificate %d (%s): %v", i+1, c.VehicleID, err)
		}
		certs = append(certs, model.Certificate{VehicleID: c.VehicleID, Type: c.Type, Expiry: exp})
	}
	jobs := make([]model.JobCard, 0, len(d.JobCards))
	for i, j := range d.JobCards {
		st, err := model.ParseJobStatus(j.Status)
		if err != nil {
			return nil, model.Validationf("dataset", "job card %d (%s): %v", i+1, j.VehicleID, err)
		}
		crit, err := parseBool(j.Critical)
		if err != nil {
			return nil, model.Validationf("dataset", "job card %d (%s): %v", i+1, j.VehicleID, err)
		}
		jobs = append(jobs, model.JobCard{
			ID:               j.ID,
			VehicleID:        j.VehicleID,
			Status:           st,
			Critical:         crit,
			RequiredManHours: j.RequiredManHours,
		})
	}
	return model.NewDataset(d.Trainsets, certs, jobs, d.SLAs, d.Resources, d.LayoutCosts), nil
}

// Reference parses the optional reference date of the scenario. The zero
// time is returned when none is set.
func (d *Document) Reference() (time.Time, error) {
	if strings.TrimSpace(d.ReferenceDate) == "" {
		return time.Time{}, nil
	}
	t, err := model.ParseDate(d.ReferenceDate)
	if err != nil {
		return time.Time{}, model.Validationf("dataset", "reference_date: %v", err)
	}
	return t, nil
}

// YAMLConfig points at a scenario document.
type YAMLConfig struct {
	Path string `json:"path"`
}

// YAMLProvider loads a dataset from a scenario document on disk.
type YAMLProvider struct {
	path string
}

// NewYAMLProvider returns a provider reading path.
func NewYAMLProvider(cfg YAMLConfig) (*YAMLProvider, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, fmt.Errorf("yaml dataset: path is required")
	}
	return &YAMLProvider{path: cfg.Path}, nil
}

func newYAMLFromConf(conf map[string]any) (*YAMLProvider, error) {
	var c YAMLConfig
	if err := factory.Decode(conf, &c); err != nil {
		return nil, err
	}
	return NewYAMLProvider(c)
}

// Name implements dataset.Provider.
func (p *YAMLProvider) Name() string { return "yaml:" + p.path }

// Load implements dataset.Provider.
func (p *YAMLProvider) Load(ctx context.Context) (*model.Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b, err := os.ReadFile(p.path)
	if err != nil {
		return nil, model.NewError(model.KindValidation, "dataset", err)
	}
	doc, err := DecodeDocument(bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	return doc.ToDataset()
}
