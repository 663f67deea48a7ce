// Package pdf renders a referral form as a printable document.
package pdf

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dmehra2102/prod-golang-projects/neuroref/config"
	"github.com/dmehra2102/prod-golang-projects/neuroref/internal/domain/form"
	"github.com/go-pdf/fpdf"
)

const dateLayout = "02/01/2006"

type Renderer struct {
	author string
	title  string
	now    func() time.Time
}

func NewRenderer(cfg config.PDFConfig) *Renderer {
	return &Renderer{author: cfg.Author, title: cfg.Title, now: time.Now}
}

// FileName is stable for a given form so regeneration overwrites in place.
func (r *Renderer) FileName(f *form.MedicalForm) string {
	cin := "inconnu"
	if f.Patient != nil && f.Patient.CIN != "" {
		cin = sanitize(f.Patient.CIN)
	}
	return fmt.Sprintf("formulaire_%d_%s_%s.pdf", f.ID, cin, f.CreatedAt.UTC().Format("20060102_150405"))
}

func (r *Renderer) Render(f *form.MedicalForm) ([]byte, error) {
	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetTitle(r.title, true)
	doc.SetAuthor(r.author, true)
	doc.SetCreationDate(r.now())
	tr := doc.UnicodeTranslatorFromDescriptor("")

	doc.AddPage()
	doc.SetFont("Helvetica", "B", 16)
	doc.CellFormat(0, 10, tr(r.title), "", 1, "C", false, 0, "")
	doc.SetFont("Helvetica", "", 9)
	doc.CellFormat(0, 6, tr(fmt.Sprintf("Formulaire n° %d - soumis le %s", f.ID, f.CreatedAt.Format(dateLayout))), "", 1, "C", false, 0, "")
	doc.Ln(4)

	section := func(title string) {
		doc.Ln(2)
		doc.SetFont("Helvetica", "B", 12)
		doc.SetFillColor(230, 236, 245)
		doc.CellFormat(0, 8, tr(title), "", 1, "L", true, 0, "")
		doc.SetFont("Helvetica", "", 10)
	}
	row := func(label, value string) {
		if strings.TrimSpace(value) == "" {
			value = "-"
		}
		doc.SetFont("Helvetica", "B", 10)
		doc.CellFormat(60, 6, tr(label), "", 0, "L", false, 0, "")
		doc.SetFont("Helvetica", "", 10)
		doc.MultiCell(0, 6, tr(value), "", "L", false)
	}

	section("Patient")
	if p := f.Patient; p != nil {
		row("Nom", p.Name)
		row("CIN", p.CIN)
		row("Sexe", string(p.Gender))
		row("Date de naissance", formatDate(p.Birthdate))
		row("Téléphone", p.Phone)
		row("Adresse", p.Address)
	}

	section("Médecin référent")
	if d := f.Doctor; d != nil {
		row("Nom", d.Name)
		row("Email", d.Email)
		row("Établissement", d.HospitalAffiliation)
	}
	if a := f.AssignedTo; a != nil {
		row("Neurologue assigné", a.Name)
	}

	section("Historique des crises")
	row("Première crise", formatDate(f.DateFirstSeizure))
	row("Dernière crise", formatDate(f.DateLastSeizure))
	row("Nombre total de crises", formatInt(f.TotalSeizures))
	row("Durée moyenne (min)", formatInt(f.AverageSeizureDuration))
	row("Fréquence", string(f.SeizureFrequency))

	section("Symptômes")
	doc.MultiCell(0, 6, tr(f.Symptoms), "", "L", false)

	if len(f.Attachments) > 0 {
		section("Pièces jointes")
		for _, a := range f.Attachments {
			row(string(a.Kind), a.FileName)
		}
	}

	doc.SetY(-20)
	doc.SetFont("Helvetica", "I", 8)
	doc.CellFormat(0, 6, tr("Document généré le "+r.now().Format("02/01/2006 15:04")+" - "+r.author), "", 0, "C", false, 0, "")

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("rendering form %d: %w", f.ID, err)
	}
	return buf.Bytes(), nil
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(dateLayout)
}

func formatInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		}
		return '_'
	}, s)
}
