package http

import (
	"bytes"
	"embed"
	"html/template"
	"io/fs"
	"net/http"

	"fraudguard/db"
	"fraudguard/ml"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

//go:embed templates/*.html static/*
var assets embed.FS

var pageTemplate = template.Must(template.ParseFS(assets, "templates/index.html"))

var amountPrinter = message.NewPrinter(language.English)

func staticFS() http.FileSystem {
	sub, err := fs.Sub(assets, "static")
	if err != nil {
		panic(err)
	}
	return http.FS(sub)
}

type fieldView struct {
	Name  string
	Value string
}

type resultView struct {
	ID          string
	Kind        string
	Label       string
	Probability string
	Amount      string
	Fraud       bool
}

type pageData struct {
	Fields []fieldView
	Result *resultView
}

func newPageData(raw map[string]string) pageData {
	names := ml.FormFields()
	fields := make([]fieldView, len(names))
	for i, name := range names {
		fields[i] = fieldView{Name: name, Value: raw[name]}
	}
	return pageData{Fields: fields}
}

func newResultView(outcome ml.Outcome, record db.Prediction, amount float64) *resultView {
	return &resultView{
		ID:          record.ID,
		Kind:        string(outcome.Kind),
		Label:       outcome.Label(),
		Probability: outcome.DisplayProbability(),
		Amount:      amountPrinter.Sprintf("%.2f", amount),
		Fraud:       outcome.Succeeded() && outcome.Verdict == ml.VerdictFraud,
	}
}

// renderPage 先渲染到缓冲区，模板出错时不会写出半个页面
func renderPage(w http.ResponseWriter, data pageData) error {
	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, err := buf.WriteTo(w)
	return err
}
