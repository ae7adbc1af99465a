// Package sim runs the zero-step sampling pipeline: it takes a loaded
// snapshot through configuration and a single evaluation that records which
// atoms sit in the interface slabs.
package sim

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/san-kum/nemd/internal/metrics"
	"github.com/san-kum/nemd/internal/nemd"
)

// Stage is the pipeline's position in its lifecycle.
type Stage int

const (
	Loaded Stage = iota
	Configured
	Sampled
	Evaluated
)

func (s Stage) String() string {
	switch s {
	case Loaded:
		return "loaded"
	case Configured:
		return "configured"
	case Sampled:
		return "sampled"
	case Evaluated:
		return "evaluated"
	}
	return fmt.Sprintf("stage(%d)", int(s))
}

// Observer is notified after every stage transition.
type Observer interface {
	OnTransition(from, to Stage)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(from, to Stage)

func (f ObserverFunc) OnTransition(from, to Stage) { f(from, to) }

// Sink receives the membership dumps.
type Sink interface {
	Create(name string) (io.WriteCloser, error)
}

// DirSink writes dumps as files under a directory.
type DirSink string

func (d DirSink) Create(name string) (io.WriteCloser, error) {
	if err := os.MkdirAll(string(d), 0755); err != nil {
		return nil, err
	}
	return os.Create(filepath.Join(string(d), name))
}

// Report is the outcome of a sampling run.
type Report struct {
	NL, NR int
	// N is the total atom count.
	N      int
	Layout *nemd.Layout
	Groups []*nemd.Group
	// Thermo holds the kinetic state of the main groups at evaluation.
	Thermo []metrics.GroupThermo
	Files  []string
}

// Lines returns the two console lines the run prints.
func (r *Report) Lines() []string {
	return []string{
		fmt.Sprintf("NL = %d", r.NL),
		fmt.Sprintf("NR = %d", r.NR),
	}
}

// Group returns the named group, or nil.
func (r *Report) Group(name string) *nemd.Group {
	for _, g := range r.Groups {
		if g.Name == name {
			return g
		}
	}
	return nil
}
