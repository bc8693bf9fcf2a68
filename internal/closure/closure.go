// Package closure implements the Dependency Closure (spec.md §4.E): driving
// the per-class compile dispatch over the transitive set of classes
// reachable from a seed, then lifting indirect load-time dependencies.
//
// The worklist/dedup/sorted-output shape follows
// phobologic-repoguide/internal/graph.BuildGraph's map-then-sort idiom,
// generalized from "edge set" to "class worklist".
package closure

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/classanalyser/classanalyser/internal/classinfo"
	"github.com/classanalyser/classanalyser/internal/errs"
)

// InfoGetter is the subset of compile.Dispatcher the closure walk needs.
type InfoGetter interface {
	GetClassInfo(ctx context.Context, className string, forceScan bool) (*classinfo.ClassInfo, error)
}

// Result is the outcome of Run: every class visited and its resolved
// ClassInfo, in first-visited order.
type Result struct {
	Order []string
	Infos map[string]*classinfo.ClassInfo
}

// Run drains a worklist seeded from seed, processing entries in insertion
// order with de-duplication (spec.md §4.E). ErrNoClassFile is logged to
// stderr and downgraded to non-fatal; any other error aborts the run.
func Run(ctx context.Context, getter InfoGetter, seed []string, forceScan bool, stderr io.Writer) (*Result, error) {
	res := &Result{Infos: make(map[string]*classinfo.ClassInfo)}
	seen := make(map[string]bool)
	var worklist []string

	addClass := func(name string) {
		if seen[name] {
			return
		}
		seen[name] = true
		worklist = append(worklist, name)
	}
	for _, name := range seed {
		addClass(name)
	}

	for i := 0; i < len(worklist); i++ {
		name := worklist[i]
		info, err := getter.GetClassInfo(ctx, name, forceScan)
		if err != nil {
			if errors.Is(err, errs.ErrNoClassFile) {
				if stderr != nil {
					fmt.Fprintf(stderr, "warning: %v\n", err)
				}
				continue
			}
			return nil, err
		}
		res.Order = append(res.Order, name)
		res.Infos[name] = info

		deps := sortedDepNames(info)
		for _, d := range deps {
			addClass(d)
		}
	}

	liftIndirectLoadDeps(res)
	return res, nil
}

// sortedDepNames returns info's dependsOn keys in sorted order, for
// deterministic enqueue order across runs.
func sortedDepNames(info *classinfo.ClassInfo) []string {
	if info == nil || len(info.DependsOn) == 0 {
		return nil
	}
	names := make([]string, 0, len(info.DependsOn))
	for n := range info.DependsOn {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// liftIndirectLoadDeps implements spec.md §4.E's indirect-load lift: for
// every class C in the closure, for every D such that C.dependsOn[D].load,
// copy D's construct-flagged deps into C.dependsOn[*].load = true.
func liftIndirectLoadDeps(res *Result) {
	for _, name := range res.Order {
		info := res.Infos[name]
		if info == nil || len(info.DependsOn) == 0 {
			continue
		}
		var loadTargets []string
		for dep, flags := range info.DependsOn {
			if flags.Load {
				loadTargets = append(loadTargets, dep)
			}
		}
		sort.Strings(loadTargets)
		for _, target := range loadTargets {
			targetInfo := res.Infos[target]
			if targetInfo == nil {
				continue
			}
			for constructDep, flags := range targetInfo.DependsOn {
				if !flags.Construct {
					continue
				}
				cur := info.DependsOn[constructDep]
				cur.Load = true
				info.DependsOn[constructDep] = cur
			}
		}
	}
}
