// Package script renders the engine input that sets up interface sampling:
// restart, masses, potential, the region partition, groups, the membership
// dumps and a zero-step run.
package script

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/san-kum/nemd/internal/config"
	"github.com/san-kum/nemd/internal/nemd"
)

type printer struct {
	w   *bufio.Writer
	err error
}

func (p *printer) cmd(name string, args ...string) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, "%-16s%s\n", name, strings.Join(args, " "))
}

func (p *printer) line(s string) {
	if p.err != nil {
		return
	}
	_, p.err = p.w.WriteString(s + "\n")
}

func num(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }

// bound renders one side of a block region: INF for unbounded sides,
// otherwise an immediate substitution of the bounding variable.
func bound(v float64, name string) string {
	if math.IsInf(v, 0) || name == "" {
		return "INF"
	}
	return "${" + name + "}"
}

func block(r *nemd.Region) []string {
	args := []string{r.ID, "block", "INF", "INF", "INF", "INF", "INF", "INF"}
	args[2+2*int(r.Axis)] = bound(r.Interval.Lo, r.LoVar)
	args[3+2*int(r.Axis)] = bound(r.Interval.Hi, r.HiVar)
	return append(args, "units", "box")
}

// LeftSlabGroup is the scratch group holding every atom of the closed left
// block before the midpoint plane is removed.
const LeftSlabGroup = "lslab"

// Dump IDs used by the engine for the three membership streams.
const (
	DumpLeft      = "dleft"
	DumpRight     = "dright"
	DumpInterface = "dinterface"
)

// Render writes the input script. The output depends only on cfg and the
// layout parameters, so repeated renders are byte-identical.
func Render(w io.Writer, cfg *config.Config, layout *nemd.Layout) error {
	p := &printer{w: bufio.NewWriter(w)}

	p.line(fmt.Sprintf("# NEMD interface sampling: %s %s, partition along %s",
		strings.Join(cfg.Potential.Elements, "-"), cfg.Potential.Style, layout.Params.Axis))
	p.line("# The restart must be written with an atom map (atom_modify map array).")
	p.line("")
	p.cmd("units", cfg.Units)
	p.cmd("read_restart", cfg.Restart)
	p.line("")

	for _, t := range cfg.Species() {
		p.cmd("mass", strconv.Itoa(t), num(cfg.Masses[t]))
	}
	p.cmd("pair_style", cfg.Potential.Style)
	p.cmd("pair_coeff", append([]string{"*", "*", cfg.Potential.File}, cfg.Potential.Elements...)...)
	p.line("")

	p.cmd("timestep", num(cfg.Timestep))
	p.cmd("variable", "T", "equal", num(cfg.Temperature))
	for _, d := range layout.Vars.Decls() {
		p.cmd("variable", d.Name, "equal", d.Expr.Script())
	}
	p.line("")

	for _, r := range layout.Regions() {
		if r == layout.Zone {
			continue
		}
		p.cmd("region", block(r)...)
	}
	for _, u := range layout.Unions() {
		args := []string{u.ID, "union", strconv.Itoa(len(u.Parts))}
		for _, part := range u.Parts {
			args = append(args, part.ID)
		}
		p.cmd("region", append(args, "units", "box")...)
	}
	p.line("")

	p.cmd("group", "lfixed", "region", "lfixed")
	p.cmd("group", "rfixed", "region", "rfixed")
	p.cmd("group", "freeze", "union", "lfixed", "rfixed")
	p.cmd("group", "hot", "region", "hot")
	p.cmd("group", "cold", "region", "cold")
	p.cmd("group", "main", "subtract", "all", "freeze")
	// Engine blocks are closed, so the shared midpoint plane is taken out of
	// left to keep it half-open.
	p.cmd("group", "right", "region", "right")
	p.cmd("group", LeftSlabGroup, "region", "left")
	p.cmd("group", "left", "subtract", LeftSlabGroup, "right")
	p.cmd("group", LeftSlabGroup, "delete")
	p.cmd("group", "interface", "union", "left", "right")
	p.line("")

	p.cmd("velocity", "freeze", "set", "0", "0", "0")
	p.cmd("fix", "freeze", "freeze", "setforce", "0.0", "0.0", "0.0")
	p.cmd("fix", "nve", "main", "nve")
	p.line("")

	p.cmd("variable", "NL", "equal", "count(left)")
	p.cmd("variable", "NR", "equal", "count(right)")
	p.cmd("print", `"NL = ${NL}"`)
	p.cmd("print", `"NR = ${NR}"`)
	p.line("")

	every := strconv.Itoa(cfg.Dumps.Every)
	dumps := []struct{ id, group, file string }{
		{DumpLeft, "left", cfg.Dumps.Left},
		{DumpRight, "right", cfg.Dumps.Right},
		{DumpInterface, "interface", cfg.Dumps.Interface},
	}
	for _, d := range dumps {
		p.cmd("dump", d.id, d.group, "custom", every, d.file, "id")
		p.cmd("dump_modify", d.id, "sort", "id")
	}
	p.cmd("run", "0")
	for _, d := range dumps {
		p.cmd("undump", d.id)
	}

	if p.err != nil {
		return p.err
	}
	return p.w.Flush()
}
