package declarative

import (
	"encoding/json"
	"fmt"
	"io"
)

const (
	ansiReset  = "\033[0m"
	ansiGreen  = "\033[32m"
	ansiYellow = "\033[33m"
	ansiRed    = "\033[31m"
	ansiBold   = "\033[1m"
)

// planWriter renders a plan, optionally with ANSI colors.
type planWriter struct {
	w     io.Writer
	color bool
}

func (p planWriter) paint(code, s string) string {
	if !p.color {
		return s
	}
	return code + s + ansiReset
}

func (p planWriter) line(format string, args ...any) {
	fmt.Fprintf(p.w, format+"\n", args...)
}

// FormatText writes a human-readable plan to w. noColor suppresses ANSI codes.
func FormatText(w io.Writer, plan *Plan, noColor bool) {
	pw := planWriter{w: w, color: !noColor}

	if !plan.HasChanges() {
		pw.line("No changes. Tables are up-to-date.")
		return
	}

	for _, a := range plan.Actions {
		pw.action(a)
	}
	for _, e := range plan.Errors {
		where := ""
		if e.Source != "" {
			where = " (" + e.Source + ")"
		}
		pw.line("%s table %q%s: %s", pw.paint(ansiRed, "error:"), e.Table, where, e.Message)
	}

	t := plan.Totals()
	summary := fmt.Sprintf("Plan: %d to create, %d to update, %d to delete.", t.Creates, t.Updates, t.Deletes)
	if t.Errors > 0 {
		summary += " " + pw.paint(ansiRed, fmt.Sprintf("%d error(s).", t.Errors))
	}
	pw.line("")
	pw.line("%s", summary)
}

func (p planWriter) action(a Action) {
	origin := a.Source
	if origin == "" {
		origin = "not declared"
	}

	switch a.Operation {
	case OpCreate:
		p.line("%s table %q will be created (%s)", p.paint(ansiGreen, "+"), a.Table, origin)
		for _, c := range a.Columns {
			p.line("    %s %s %s", p.paint(ansiGreen, "+"), c.Name, c.Type)
		}
	case OpUpdate:
		p.line("%s table %q will be updated (%s)", p.paint(ansiYellow, "~"), a.Table, origin)
		for _, c := range a.Changes.Removed {
			p.line("    %s %s %s %s", p.paint(ansiRed, "-"), c.Name, c.Type, p.paint(ansiBold, "(data is lost)"))
		}
		for _, c := range a.Changes.Added {
			p.line("    %s %s %s", p.paint(ansiGreen, "+"), c.Name, c.Type)
		}
		for _, r := range a.Changes.Retyped {
			p.line("    %s %s %s -> %s %s", p.paint(ansiYellow, "~"), r.Name, r.OldType, r.NewType,
				p.paint(ansiBold, "(column is recreated empty)"))
		}
	case OpDelete:
		p.line("%s table %q will be deleted (%s)", p.paint(ansiRed, "-"), a.Table, origin)
	}
}

type jsonColumn struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type jsonRetype struct {
	Name string `json:"name"`
	From string `json:"from"`
	To   string `json:"to"`
}

type jsonAction struct {
	Operation Operation    `json:"operation"`
	Table     string       `json:"table"`
	Source    string       `json:"source,omitempty"`
	Lossy     bool         `json:"lossy"`
	Columns   []jsonColumn `json:"columns,omitempty"`
	Added     []jsonColumn `json:"added,omitempty"`
	Removed   []jsonColumn `json:"removed,omitempty"`
	Retyped   []jsonRetype `json:"retyped,omitempty"`
}

type jsonPlan struct {
	Actions []jsonAction `json:"actions"`
	Errors  []PlanError  `json:"errors,omitempty"`
	Summary Totals       `json:"summary"`
}

// FormatJSON writes the plan as indented JSON to w.
func FormatJSON(w io.Writer, plan *Plan) error {
	out := jsonPlan{
		Actions: make([]jsonAction, 0, len(plan.Actions)),
		Errors:  plan.Errors,
		Summary: plan.Totals(),
	}
	for _, a := range plan.Actions {
		ja := jsonAction{Operation: a.Operation, Table: a.Table, Source: a.Source, Lossy: a.Lossy()}
		if a.Operation == OpCreate {
			for _, c := range a.Columns {
				ja.Columns = append(ja.Columns, jsonColumn{Name: c.Name, Type: c.Type})
			}
		}
		for _, c := range a.Changes.Added {
			ja.Added = append(ja.Added, jsonColumn{Name: c.Name, Type: string(c.Type)})
		}
		for _, c := range a.Changes.Removed {
			ja.Removed = append(ja.Removed, jsonColumn{Name: c.Name, Type: string(c.Type)})
		}
		for _, r := range a.Changes.Retyped {
			ja.Retyped = append(ja.Retyped, jsonRetype{Name: r.Name, From: string(r.OldType), To: string(r.NewType)})
		}
		out.Actions = append(out.Actions, ja)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("write plan: %w", err)
	}
	return nil
}
