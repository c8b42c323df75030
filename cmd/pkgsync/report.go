package main

import (
	"fmt"
	"io"

	"github.com/example/pkgsync/internal/reconcile"
	"github.com/fatih/color"
)

var (
	green  = color.New(color.FgGreen)
	red    = color.New(color.FgRed)
	yellow = color.New(color.FgYellow)
	faint  = color.New(color.Faint)
)

// renderReport prints the human-readable outcome of a pass. Logging
// goes to stderr; this is the stdout summary the user acts on.
func renderReport(w io.Writer, r *reconcile.Report, dryRun bool) {
	if dryRun {
		fmt.Fprintln(w, faint.Sprint("dry run, no changes applied"))
	}

	for _, a := range r.Actions {
		glyph, c := opStyle(a.Op)
		fmt.Fprintf(w, "%s %-14s %s\n", c.Sprint(glyph), a.Op, a.Name)
	}

	for _, warning := range r.Warnings {
		fmt.Fprintf(w, "%s %s\n", yellow.Sprint("!"), warning)
	}
	for _, e := range r.Errors {
		fmt.Fprintf(w, "%s %s\n", red.Sprint("x"), e)
	}

	if r.Empty() && len(r.Warnings) == 0 && len(r.Errors) == 0 {
		fmt.Fprintln(w, faint.Sprint("everything in sync, nothing to do"))
	}
}

func opStyle(op reconcile.Op) (string, *color.Color) {
	switch op {
	case reconcile.OpTrack, reconcile.OpManifestAdd:
		return "+", green
	case reconcile.OpUpload:
		return "^", green
	case reconcile.OpForget:
		return "~", yellow
	case reconcile.OpRemove, reconcile.OpManifestPrune, reconcile.OpLocalDelete:
		return "-", red
	default:
		return "*", faint
	}
}
