package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fleetlens/fleetlens/internal/extract"
	"github.com/fleetlens/fleetlens/internal/recognize"
)

func item(text string, conf float64, fields extract.Vehicle) Item[extract.Vehicle] {
	return Item[extract.Vehicle]{
		Recognition: recognize.Recognized(text, conf),
		Fields:      fields,
	}
}

func TestCombine_Empty(t *testing.T) {
	merged := Combine([]Item[extract.Vehicle]{})
	assert.Equal(t, extract.Vehicle{}, merged.Fields)
	assert.Empty(t, merged.FullText)
	assert.Zero(t, merged.Confidence)
}

func TestCombine_FirstWins(t *testing.T) {
	items := []Item[extract.Vehicle]{
		item("front", 0.9, extract.Vehicle{RegistrationNumber: "ABC-123-GP"}),
		item("back", 0.8, extract.Vehicle{RegistrationNumber: "XYZ-999-GP", VehicleMake: "TOYOTA"}),
	}

	merged := Combine(items)
	assert.Equal(t, "ABC-123-GP", merged.Fields.RegistrationNumber)
	assert.Equal(t, "TOYOTA", merged.Fields.VehicleMake, "later items fill gaps")
}

func TestCombine_MeanConfidence(t *testing.T) {
	items := []Item[extract.Vehicle]{
		item("a", 0.5, extract.Vehicle{}),
		item("b", 1.0, extract.Vehicle{}),
	}

	merged := Combine(items)
	assert.InDelta(t, 0.75, merged.Confidence, 1e-9)
}

func TestCombine_ErroredItemsExcludedFromVoting(t *testing.T) {
	items := []Item[extract.Vehicle]{
		{Recognition: recognize.Errored("decode image: bad data")},
		item("b", 0.6, extract.Vehicle{VehicleMake: "FORD"}),
	}

	merged := Combine(items)
	assert.Equal(t, "FORD", merged.Fields.VehicleMake)
	assert.InDelta(t, 0.6, merged.Confidence, 1e-9, "errored items must not drag the mean")
	assert.Equal(t, "\nb", merged.FullText, "errored items still occupy a text slot")
}

func TestCombine_AllErrored(t *testing.T) {
	items := []Item[extract.Vehicle]{
		{Recognition: recognize.Errored("one")},
		{Recognition: recognize.Errored("two")},
		{Recognition: recognize.Errored("three")},
	}

	merged := Combine(items)
	assert.Zero(t, merged.Confidence)
	assert.Equal(t, extract.Vehicle{}, merged.Fields)
	assert.Equal(t, "\n\n", merged.FullText)
}

func TestCombine_FullTextPreservesOrder(t *testing.T) {
	items := []Item[extract.Vehicle]{
		item("one", 1, extract.Vehicle{}),
		item("two", 1, extract.Vehicle{}),
		item("three", 1, extract.Vehicle{}),
	}

	merged := Combine(items)
	assert.Equal(t, "one\ntwo\nthree", merged.FullText)
}

func TestCombine_DocumentSchema(t *testing.T) {
	items := []Item[extract.Document]{
		{
			Recognition: recognize.Recognized("page1", 0.9),
			Fields:      extract.Document{InvoiceNumber: "45213"},
		},
		{
			Recognition: recognize.Recognized("page2", 0.7),
			Fields:      extract.Document{InvoiceNumber: "99999", TotalAmount: "1,200.00"},
		},
	}

	merged := Combine(items)
	assert.Equal(t, "45213", merged.Fields.InvoiceNumber)
	assert.Equal(t, "1,200.00", merged.Fields.TotalAmount)
	assert.InDelta(t, 0.8, merged.Confidence, 1e-9)
}
