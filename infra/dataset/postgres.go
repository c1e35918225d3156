package dataset

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/kilianp07/induction/core/factory"
	"github.com/kilianp07/induction/core/model"
)

// PostgresConfig selects the database and the six source tables.
type PostgresConfig struct {
	DSN          string        `json:"dsn"`
	Schema       string        `json:"schema"`
	Trainsets    string        `json:"trainsets"`
	Certificates string        `json:"certificates"`
	JobCards     string        `json:"job_cards"`
	SLAs         string        `json:"branding_slas"`
	Resources    string        `json:"resources"`
	LayoutCosts  string        `json:"layout_costs"`
	Timeout      time.Duration `json:"timeout"`
}

// SetDefaults fills in the conventional table names.
func (c *PostgresConfig) SetDefaults() {
	if c.Schema == "" {
		c.Schema = "public"
	}
	if c.Trainsets == "" {
		c.Trainsets = "trainsets_master"
	}
	if c.Certificates == "" {
		c.Certificates = "fitness_certificates"
	}
	if c.JobCards == "" {
		c.JobCards = "job_cards_maximo"
	}
	if c.SLAs == "" {
		c.SLAs = "branding_slas"
	}
	if c.Resources == "" {
		c.Resources = "depot_resources"
	}
	if c.LayoutCosts == "" {
		c.LayoutCosts = "depot_layout_costs"
	}
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
}

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Validate checks the DSN and that every table name is a plain identifier.
func (c PostgresConfig) Validate() error {
	if strings.TrimSpace(c.DSN) == "" {
		return fmt.Errorf("postgres dataset: dsn is required")
	}
	for _, n := range []string{c.Schema, c.Trainsets, c.Certificates, c.JobCards, c.SLAs, c.Resources, c.LayoutCosts} {
		if !identRe.MatchString(n) {
			return fmt.Errorf("postgres dataset: invalid identifier %q", n)
		}
	}
	if c.Timeout < 0 {
		return fmt.Errorf("postgres dataset: timeout must not be negative")
	}
	return nil
}

// PostgresProvider reads the snapshot from six tables using the pgx driver.
type PostgresProvider struct {
	cfg PostgresConfig
}

// NewPostgresProvider returns a provider for cfg. The connection is opened
// on every Load.
func NewPostgresProvider(cfg PostgresConfig) (*PostgresProvider, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &PostgresProvider{cfg: cfg}, nil
}

func newPostgresFromConf(conf map[string]any) (*PostgresProvider, error) {
	var c PostgresConfig
	if err := factory.Decode(conf, &c); err != nil {
		return nil, err
	}
	return NewPostgresProvider(c)
}

// Name implements dataset.Provider.
func (p *PostgresProvider) Name() string { return "postgres:" + p.cfg.Schema }

func (p *PostgresProvider) table(name string) string { return p.cfg.Schema + "." + name }

// Load implements dataset.Provider.
func (p *PostgresProvider) Load(ctx context.Context) (*model.Dataset, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	db, err := sql.Open("pgx", p.cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer func() { _ = db.Close() }()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping: %w", err)
	}

	var vehicles []model.Vehicle
	err = query(ctx, db, fmt.Sprintf(`SELECT %s, %s FROM %s ORDER BY %s`,
		colTrainset, colMileage, p.table(p.cfg.Trainsets), colTrainset),
		func(rows *sql.Rows) error {
			var v model.Vehicle
			if err := rows.Scan(&v.ID, &v.CumulativeMileageKM); err != nil {
				return err
			}
			vehicles = append(vehicles, v)
			return nil
		})
	if err != nil {
		return nil, err
	}

	var certs []model.Certificate
	err = query(ctx, db, fmt.Sprintf(`SELECT %s, %s, %s FROM %s`,
		colTrainset, colCertType, colExpiry, p.table(p.cfg.Certificates)),
		func(rows *sql.Rows) error {
			var c model.Certificate
			if err := rows.Scan(&c.VehicleID, &c.Type, &c.Expiry); err != nil {
				return err
			}
			c.Expiry = model.Day(c.Expiry)
			certs = append(certs, c)
			return nil
		})
	if err != nil {
		return nil, err
	}

	var jobs []model.JobCard
	err = query(ctx, db, fmt.Sprintf(`SELECT COALESCE(%s, ''), %s, %s, %s, %s FROM %s`,
		colJobID, colTrainset, colStatus, colCritical, colManHours, p.table(p.cfg.JobCards)),
		func(rows *sql.Rows) error {
			var j model.JobCard
			var status string
			if err := rows.Scan(&j.ID, &j.VehicleID, &status, &j.Critical, &j.RequiredManHours); err != nil {
				return err
			}
			st, err := model.ParseJobStatus(status)
			if err != nil {
				return model.Validationf("dataset", "job card %s: %v", j.ID, err)
			}
			j.Status = st
			jobs = append(jobs, j)
			return nil
		})
	if err != nil {
		return nil, err
	}

	var slas []model.SLA
	err = query(ctx, db, fmt.Sprintf(`SELECT %s, %s, %s, %s FROM %s`,
		colTrainset, colCurrentExposure, colTargetExposure, colPenalty, p.table(p.cfg.SLAs)),
		func(rows *sql.Rows) error {
			var s model.SLA
			if err := rows.Scan(&s.VehicleID, &s.CurrentExposureHours, &s.TargetExposureHours, &s.PenaltyPerHour); err != nil {
				return err
			}
			slas = append(slas, s)
			return nil
		})
	if err != nil {
		return nil, err
	}

	var res []model.ResourceCapacity
	err = query(ctx, db, fmt.Sprintf(`SELECT %s, %s FROM %s`,
		colResource, colCapacity, p.table(p.cfg.Resources)),
		func(rows *sql.Rows) error {
			var r model.ResourceCapacity
			if err := rows.Scan(&r.ResourceID, &r.AvailableCapacity); err != nil {
				return err
			}
			res = append(res, r)
			return nil
		})
	if err != nil {
		return nil, err
	}

	var layout []model.ShuntingCostEntry
	err = query(ctx, db, fmt.Sprintf(`SELECT %s, %s, %s FROM %s`,
		colFrom, colTo, colShuntingCost, p.table(p.cfg.LayoutCosts)),
		func(rows *sql.Rows) error {
			var e model.ShuntingCostEntry
			if err := rows.Scan(&e.From, &e.To, &e.Cost); err != nil {
				return err
			}
			layout = append(layout, e)
			return nil
		})
	if err != nil {
		return nil, err
	}

	return model.NewDataset(vehicles, certs, jobs, slas, res, layout), nil
}

func query(ctx context.Context, db *sql.DB, q string, scan func(*sql.Rows) error) error {
	rows, err := db.QueryContext(ctx, q)
	if err != nil {
		return fmt.Errorf("query %q: %w", q, err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		if err := scan(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}
