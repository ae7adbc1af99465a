package checkpoint

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/san-kum/nemd/internal/nemd"
)

type Registry struct {
	loaders    map[string]func(nemd.Logger) Loader
	extensions map[string]string
}

func NewRegistry() *Registry {
	r := &Registry{
		loaders:    make(map[string]func(nemd.Logger) Loader),
		extensions: make(map[string]string),
	}

	r.loaders["data"] = func(log nemd.Logger) Loader { return NewDataLoader(log) }
	r.loaders["lammpstrj"] = func(log nemd.Logger) Loader { return NewTrajectoryLoader(log) }
	r.loaders["restart"] = func(nemd.Logger) Loader { return LoaderFunc(loadRestart) }

	r.extensions[".data"] = "data"
	r.extensions[".lmp"] = "data"
	r.extensions[".lammpstrj"] = "lammpstrj"
	r.extensions[".dump"] = "lammpstrj"
	r.extensions[".restart"] = "restart"
	r.extensions[".rst"] = "restart"

	return r
}

func (r *Registry) Get(format string, log nemd.Logger) (Loader, error) {
	fn, ok := r.loaders[format]
	if !ok {
		return nil, fmt.Errorf("unknown checkpoint format: %s (available: %v)", format, r.Formats())
	}
	if log == nil {
		log = nemd.NewNoOpLogger()
	}
	return fn(log), nil
}

// Detect picks the format from the file extension. Files named data.* or
// *.data are treated as write_data output.
func (r *Registry) Detect(path string) (string, error) {
	base := filepath.Base(path)
	if format, ok := r.extensions[strings.ToLower(filepath.Ext(base))]; ok {
		return format, nil
	}
	if strings.HasPrefix(base, "data.") {
		return "data", nil
	}
	if strings.HasPrefix(base, "dump.") {
		return "lammpstrj", nil
	}
	return "", fmt.Errorf("cannot detect checkpoint format of %s; pass it explicitly", path)
}

// Load detects the format unless one is given and loads path.
func (r *Registry) Load(ctx context.Context, path, format string, log nemd.Logger) (*Snapshot, error) {
	if format == "" {
		var err error
		if format, err = r.Detect(path); err != nil {
			return nil, err
		}
	}
	loader, err := r.Get(format, log)
	if err != nil {
		return nil, err
	}
	snap, err := loader.Load(ctx, path)
	if err != nil {
		return nil, err
	}
	snap.Path = path
	snap.Format = format
	return snap, nil
}

func (r *Registry) Formats() []string {
	names := make([]string, 0, len(r.loaders))
	for name := range r.loaders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func loadRestart(_ context.Context, path string) (*Snapshot, error) {
	return nil, fmt.Errorf("%w: %s is a binary restart; convert it with the engine's write_data and load the data file", nemd.ErrUnsupportedCheckpoint, path)
}
