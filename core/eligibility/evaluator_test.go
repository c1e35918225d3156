package eligibility

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/kilianp07/induction/core/model"
)

var ref = time.Date(2025, 9, 10, 0, 0, 0, 0, time.UTC)

func certs(id string, expiry time.Time, types ...string) []model.Certificate {
	out := make([]model.Certificate, 0, len(types))
	for _, t := range types {
		out = append(out, model.Certificate{VehicleID: id, Type: t, Expiry: expiry})
	}
	return out
}

func TestEvaluate_PriorityOrder(t *testing.T) {
	valid := ref.AddDate(0, 1, 0)
	expired := ref.AddDate(0, 0, -1)
	critical := []model.JobCard{{VehicleID: "T", Status: model.JobOpen, Critical: true, RequiredManHours: 4}}
	closedCritical := []model.JobCard{{VehicleID: "T", Status: model.JobClosed, Critical: true}}
	openMinor := []model.JobCard{{VehicleID: "T", Status: model.JobOpen, Critical: false, RequiredManHours: 2}}

	cases := []struct {
		name   string
		certs  []model.Certificate
		jobs   []model.JobCard
		reason model.EligibilityReason
	}{
		{"eligible", certs("T", valid, "RS", "SIG", "TEL"), nil, model.ReasonEligible},
		{"two certificates", certs("T", valid, "RS", "SIG"), nil, model.ReasonMissingCertificates},
		{"missing wins over expired and critical", certs("T", expired, "RS", "SIG"), critical, model.ReasonMissingCertificates},
		{"duplicate types count once", certs("T", valid, "RS", "RS", "SIG"), nil, model.ReasonMissingCertificates},
		{"expired wins over critical", certs("T", expired, "RS", "SIG", "TEL"), critical, model.ReasonCertificateExpired},
		{"expiring today", certs("T", ref, "RS", "SIG", "TEL"), nil, model.ReasonCertificateExpired},
		{"critical open", certs("T", valid, "RS", "SIG", "TEL"), critical, model.ReasonCriticalMaintenanceOpen},
		{"critical closed", certs("T", valid, "RS", "SIG", "TEL"), closedCritical, model.ReasonEligible},
		{"minor open", certs("T", valid, "RS", "SIG", "TEL"), openMinor, model.ReasonEligible},
	}
	e := NewEvaluator(Config{})
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v := e.Evaluate(model.Vehicle{ID: "T"}, tc.certs, tc.jobs, ref)
			assert.Equal(t, tc.reason, v.Reason)
			assert.Equal(t, tc.reason == model.ReasonEligible, v.Eligible)
			assert.Equal(t, "T", v.VehicleID)
		})
	}
}

func TestEvaluate_IsPure(t *testing.T) {
	e := NewEvaluator(Config{})
	c := certs("T", ref.AddDate(1, 0, 0), "RS", "SIG", "TEL")
	j := []model.JobCard{{VehicleID: "T", Status: model.JobOpen, Critical: true}}
	first := e.Evaluate(model.Vehicle{ID: "T"}, c, j, ref)
	for i := 0; i < 10; i++ {
		if got := e.Evaluate(model.Vehicle{ID: "T"}, c, j, ref); got != first {
			t.Fatalf("verdict changed: %+v vs %+v", got, first)
		}
	}
	assert.Len(t, c, 3)
	assert.Len(t, j, 1)
}

func TestEvaluate_RequiredTypes(t *testing.T) {
	e := NewEvaluator(Config{MinCertificates: 2, RequiredTypes: []string{"RS", "SIG"}})
	v := e.Evaluate(model.Vehicle{ID: "T"}, certs("T", ref.AddDate(0, 2, 0), "RS", "TEL", "CAB"), nil, ref)
	assert.Equal(t, model.ReasonMissingCertificates, v.Reason)
	v = e.Evaluate(model.Vehicle{ID: "T"}, certs("T", ref.AddDate(0, 2, 0), "RS", "SIG"), nil, ref)
	assert.True(t, v.Eligible)
}

func TestConfigValidate(t *testing.T) {
	var c Config
	c.SetDefaults()
	assert.Equal(t, DefaultMinCertificates, c.MinCertificates)
	assert.NoError(t, c.Validate())
	assert.Error(t, Config{MinCertificates: -1}.Validate())
	assert.Error(t, Config{MinCertificates: 3, RequiredTypes: []string{"RS"}}.Validate())
}

func TestEvaluateFleet_MissingCertificatesScenario(t *testing.T) {
	valid := ref.AddDate(0, 3, 0)
	var all []model.Certificate
	vehicles := []model.Vehicle{{ID: "T1"}, {ID: "T2"}, {ID: "T3"}, {ID: "T4"}, {ID: "T5"}}
	for _, v := range vehicles {
		types := []string{"RS", "SIG", "TEL"}
		if v.ID == "T3" {
			types = types[:2]
		}
		all = append(all, certs(v.ID, valid, types...)...)
	}
	ds := model.NewDataset(vehicles, all, nil, nil, nil, nil)
	verdicts := NewEvaluator(Config{}).EvaluateFleet(ds, ref)
	assert.Len(t, verdicts, 5)
	assert.Equal(t, model.ReasonMissingCertificates, verdicts["T3"].Reason)
	assert.False(t, verdicts["T3"].Eligible)
	counts := Counts(verdicts)
	assert.Equal(t, 4, counts[model.ReasonEligible])
	assert.Equal(t, 1, counts[model.ReasonMissingCertificates])
}
