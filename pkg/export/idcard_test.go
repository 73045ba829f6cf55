package export

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIDCardRender(t *testing.T) {
	exporter := NewIDCardExporter()

	pdf, err := exporter.Render(IDCard{
		InstituteName:      "Saylani Mass IT Training",
		RegistrationNumber: "SMIT20260001",
		FullName:           "Ahmed Raza",
		FatherName:         "Raza Khan",
		CourseName:         "Web Development",
		BatchNumber:        "B-14",
		RollNumber:         "R-0099",
		Campus:             "Main Campus",
	})
	require.NoError(t, err)
	assert.True(t, len(pdf) > 0)
	assert.Equal(t, "%PDF", string(pdf[:4]))
}

func TestIDCardRenderRequiresRegistrationNumber(t *testing.T) {
	exporter := NewIDCardExporter()

	_, err := exporter.Render(IDCard{FullName: "Ahmed Raza"})
	assert.Error(t, err)
}
