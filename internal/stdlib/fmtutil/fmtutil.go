// Package fmtutil wires github.com/dustin/go-humanize into a pair of
// global script functions that render numbers with thousands separators:
// humanize_number truncates to an integer first (Comma), humanize_commas
// keeps the fraction (Commaf). The value print path does not use them.
// Grounded on the teacher's formatter
// package's job of turning raw values into display strings, narrowed to
// the two humanize calls the domain stack wiring plan names.
package fmtutil

import (
	"fmt"

	"github.com/dustin/go-humanize"

	"hulascript/internal/foreign"
	"hulascript/internal/instance"
	"hulascript/internal/value"
)

// Register binds humanize_number(n) and humanize_commas(n) as globals.
func Register(in *instance.Instance) bool {
	approx := in.MakeForeignFunction(func(args []value.Value, host foreign.Host) (value.Value, error) {
		if len(args) != 1 || args[0].Tag != value.Number {
			return value.Value{}, fmt.Errorf("humanize_number(n) requires a number argument")
		}
		return host.MakeString(humanize.Comma(int64(args[0].Num))), nil
	})
	commas := in.MakeForeignFunction(func(args []value.Value, host foreign.Host) (value.Value, error) {
		if len(args) != 1 || args[0].Tag != value.Number {
			return value.Value{}, fmt.Errorf("humanize_commas(n) requires a number argument")
		}
		return host.MakeString(humanize.Commaf(args[0].Num)), nil
	})
	ok := in.DeclareGlobal("humanize_number", approx)
	ok = in.DeclareGlobal("humanize_commas", commas) && ok
	return ok
}
