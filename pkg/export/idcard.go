package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// IDCard holds the fields printed on a student identity card.
type IDCard struct {
	InstituteName      string
	RegistrationNumber string
	FullName           string
	FatherName         string
	CourseName         string
	BatchNumber        string
	RollNumber         string
	Campus             string
}

// IDCardExporter renders enrolled-student ID cards as PDF.
type IDCardExporter struct{}

// NewIDCardExporter constructs an ID card exporter.
func NewIDCardExporter() *IDCardExporter {
	return &IDCardExporter{}
}

// Render produces a single-card PDF in landscape credit-card proportions.
func (e *IDCardExporter) Render(card IDCard) ([]byte, error) {
	if card.RegistrationNumber == "" {
		return nil, fmt.Errorf("id card requires a registration number")
	}

	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "mm",
		Size:    gofpdf.SizeType{Wd: 86, Ht: 54},
	})
	pdf.SetMargins(4, 4, 4)
	pdf.AddPage()

	pdf.SetFillColor(13, 71, 161)
	pdf.Rect(0, 0, 86, 12, "F")
	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont("Arial", "B", 9)
	pdf.CellFormat(0, 8, strings.ToUpper(card.InstituteName), "", 1, "C", false, 0, "")

	pdf.SetTextColor(0, 0, 0)
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(0, 5, card.FullName, "", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 7)
	if card.FatherName != "" {
		pdf.CellFormat(0, 4, "S/D of "+card.FatherName, "", 1, "L", false, 0, "")
	}
	pdf.Ln(1)

	rows := [][2]string{
		{"Reg No", card.RegistrationNumber},
		{"Course", card.CourseName},
		{"Batch", card.BatchNumber},
		{"Roll No", card.RollNumber},
		{"Campus", card.Campus},
	}
	for _, row := range rows {
		if row[1] == "" {
			continue
		}
		pdf.SetFont("Arial", "B", 7)
		pdf.CellFormat(16, 4, row[0], "", 0, "L", false, 0, "")
		pdf.SetFont("Arial", "", 7)
		pdf.CellFormat(0, 4, row[1], "", 1, "L", false, 0, "")
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render id card: %w", err)
	}
	return buf.Bytes(), nil
}
