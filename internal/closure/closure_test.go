package closure

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/classanalyser/classanalyser/internal/classinfo"
	"github.com/classanalyser/classanalyser/internal/errs"
)

type fakeGetter struct {
	infos map[string]*classinfo.ClassInfo
}

func (f *fakeGetter) GetClassInfo(ctx context.Context, className string, forceScan bool) (*classinfo.ClassInfo, error) {
	info, ok := f.infos[className]
	if !ok {
		return nil, fmt.Errorf("%w: %s", errs.ErrNoClassFile, className)
	}
	return info, nil
}

func TestRunWalksTransitiveDeps(t *testing.T) {
	t.Parallel()
	getter := &fakeGetter{infos: map[string]*classinfo.ClassInfo{
		"F": {DependsOn: map[string]classinfo.DepFlags{"G": {Load: true}}},
		"G": {DependsOn: map[string]classinfo.DepFlags{"H": {Construct: true}}},
		"H": {},
	}}

	res, err := Run(context.Background(), getter, []string{"F"}, false, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Order) != 3 {
		t.Fatalf("expected 3 classes visited, got %v", res.Order)
	}

	// S5: indirect-load lift.
	if !res.Infos["F"].DependsOn["H"].Load {
		t.Errorf("expected F.dependsOn.H.load == true, got %+v", res.Infos["F"].DependsOn)
	}
}

func TestRunDowngradesNoClassFile(t *testing.T) {
	t.Parallel()
	getter := &fakeGetter{infos: map[string]*classinfo.ClassInfo{
		"A": {DependsOn: map[string]classinfo.DepFlags{"Missing": {Runtime: true}}},
	}}

	var stderr bytes.Buffer
	res, err := Run(context.Background(), getter, []string{"A"}, false, &stderr)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Order) != 1 {
		t.Fatalf("expected only A visited, got %v", res.Order)
	}
	if stderr.Len() == 0 {
		t.Error("expected a warning to be logged")
	}
}

func TestRunDedupesSeed(t *testing.T) {
	t.Parallel()
	getter := &fakeGetter{infos: map[string]*classinfo.ClassInfo{
		"A": {}, "B": {DependsOn: map[string]classinfo.DepFlags{"A": {Runtime: true}}},
	}}
	res, err := Run(context.Background(), getter, []string{"A", "B", "A"}, false, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Order) != 2 {
		t.Fatalf("expected dedup to 2 classes, got %v", res.Order)
	}
}

func TestRunAbortsOnOtherErrors(t *testing.T) {
	t.Parallel()
	getter := &errGetter{err: errors.New("boom")}
	_, err := Run(context.Background(), getter, []string{"A"}, false, nil)
	if err == nil {
		t.Fatal("expected abort")
	}
}

type errGetter struct{ err error }

func (e *errGetter) GetClassInfo(ctx context.Context, className string, forceScan bool) (*classinfo.ClassInfo, error) {
	return nil, e.err
}
