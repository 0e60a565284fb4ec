package teng

import (
	"html/template"
	"io"
	"testing"
)

var (
	benchProg    *Program
	benchRoot    *Fragment
	benchHTMLTpl *template.Template
)

func init() {
	src := `<html><body><ul>` +
		`<?teng frag rows?><li>${name} - ${price}</li><?teng endfrag?>` +
		`<?teng if user.admin?><div class="admin">Hi, ${user.name}</div><?teng else?><div>Welcome!</div><?teng endif?>` +
		`</ul></body></html>`
	p := NewParser(".", LexerConfig{UTF8: true}, nil, NewErrorLog())
	benchProg = p.Parse(src, "<bench>")

	root := NewFragment()
	rows := root.AddFragmentList("rows")
	rows.AddFragment().SetString("name", "Alpha")
	rows.AddFragment().SetString("price", "100")
	user := root.AddFragment("user")
	user.SetInt("admin", 1)
	user.SetString("name", "Orgware")
	benchRoot = root

	var err error
	benchHTMLTpl, err = template.New("bench").Parse(
		`<html><body><ul>{{range .Rows}}<li>{{.Name}} - {{.Price}}</li>{{end}}` +
			`{{if .User.Admin}}<div class="admin">Hi, {{.User.Name}}</div>{{else}}<div>Welcome!</div>{{end}}</ul></body></html>`)
	if err != nil {
		panic(err)
	}
}

func BenchmarkTengRender(b *testing.B) {
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		proc := NewProcessor(benchProg, benchRoot, io.Discard, "text/html", NewDictionary(), NewErrorLog())
		_ = proc.Run()
	}
}

func BenchmarkHTMLTemplateRender(b *testing.B) {
	data := struct {
		Rows []struct{ Name, Price string }
		User struct {
			Admin bool
			Name  string
		}
	}{
		Rows: []struct{ Name, Price string }{{"Alpha", "100"}},
	}
	data.User.Admin = true
	data.User.Name = "Orgware"

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = benchHTMLTpl.Execute(io.Discard, data)
	}
}

func BenchmarkTengParse(b *testing.B) {
	src := `<html><?teng if x?>${x}<?teng endif?></html>`
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		p := NewParser(".", LexerConfig{UTF8: true}, nil, NewErrorLog())
		p.Parse(src, "<bench>")
	}
}
