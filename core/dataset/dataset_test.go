package dataset

import (
	"context"
	"errors"
	"testing"

	"github.com/kilianp07/induction/core/factory"
	"github.com/kilianp07/induction/core/model"
)

type failing struct{ err error }

func (failing) Name() string { return "failing" }
func (f failing) Load(context.Context) (*model.Dataset, error) { return nil, f.err }

func TestLoad_WrapsProviderErrors(t *testing.T) {
	_, err := Load(context.Background(), failing{err: errors.New("file not found")})
	if model.KindOf(err) != model.KindValidation {
		t.Fatalf("expected validation kind, got %v", err)
	}
	typed := model.Validationf("csv", "bad date")
	_, err = Load(context.Background(), failing{err: typed})
	if !errors.Is(err, typed) {
		t.Fatalf("typed errors must pass through, got %v", err)
	}
	if _, err := Load(context.Background(), nil); model.KindOf(err) != model.KindValidation {
		t.Fatalf("expected validation error for nil provider")
	}
	if _, err := Load(context.Background(), Static{}); model.KindOf(err) != model.KindValidation {
		t.Fatalf("expected validation error for empty provider")
	}
}

func TestRegistry(t *testing.T) {
	ds := model.NewDataset([]model.Vehicle{{ID: "A"}}, nil, nil, nil, nil, nil)
	if err := RegisterProvider("test-static", func(map[string]any) (Provider, error) {
		return Static{Dataset: ds}, nil
	}); err != nil {
		t.Fatalf("register: %v", err)
	}
	p, err := New(factory.ModuleConfig{Type: "test-static"})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	got, err := Load(context.Background(), p)
	if err != nil || got != ds {
		t.Fatalf("unexpected load %v %v", got, err)
	}
	if _, err := New(factory.ModuleConfig{Type: "missing"}); model.KindOf(err) != model.KindValidation {
		t.Fatalf("expected validation error for unknown provider")
	}
}
