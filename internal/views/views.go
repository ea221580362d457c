// Package views embeds the HTML templates of the web front end.
package views

import (
	"embed"
	"html/template"
	"time"

	"github.com/shopspring/decimal"
)

//go:embed *.tmpl
var files embed.FS

// Funcs are the helpers available to every template.
var Funcs = template.FuncMap{
	"money": func(d decimal.Decimal) string { return "$" + d.StringFixed(2) },
	"date": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Format("2006-01-02 15:04")
	},
	"add": func(a, b int) int { return a + b },
	"sub": func(a, b int) int { return a - b },
	// pct is a/b as a whole percentage in [0, 100], for bar widths.
	"pct": func(a, b decimal.Decimal) int64 {
		if b.Sign() <= 0 || a.Sign() <= 0 {
			return 0
		}
		p := a.Div(b).Mul(decimal.NewFromInt(100)).IntPart()
		return min(p, 100)
	},
}

// Parse loads every template.
func Parse() (*template.Template, error) {
	return template.New("").Funcs(Funcs).ParseFS(files, "*.tmpl")
}
