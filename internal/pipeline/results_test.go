package pipeline

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/MeKo-Tech/platefinder/internal/lookup"
	"github.com/MeKo-Tech/platefinder/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func foundResult() *PlateResult {
	rec := lookup.Record{Make: "Audi", Model: "A4", Year: 2020, Owner: "John Brown"}
	res := &PlateResult{
		Source:         "car.jpg",
		Width:          600,
		Height:         400,
		Found:          true,
		Candidates:     3,
		CandidateIndex: 1,
		Box:            &utils.Box{X: 98, Y: 149, W: 154, H: 37},
		AspectRatio:    154.0 / 37.0,
		Plate:          "1234XY",
		LookupStatus:   LookupFound,
		Vehicle:        &rec,
	}
	return res
}

func missingResult() *PlateResult {
	return &PlateResult{Source: "empty.jpg", Width: 10, Height: 10, CandidateIndex: -1}
}

func TestToJSONResult(t *testing.T) {
	s, err := ToJSONResult(foundResult())
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(s), &decoded))
	assert.Equal(t, true, decoded["found"])
	assert.Equal(t, "1234XY", decoded["plate"])
	assert.Equal(t, "found", decoded["lookup_status"])
	assert.Equal(t, "Audi", decoded["vehicle"].(map[string]any)["make"])
	assert.InDelta(t, 154, decoded["box"].(map[string]any)["w"], 0)

	_, err = ToJSONResult(nil)
	require.Error(t, err)
}

func TestToPlainText(t *testing.T) {
	s, err := ToPlainText(foundResult())
	require.NoError(t, err)
	assert.Equal(t, "car.jpg: plate region (98,149 154x37) aspect 4.16\n"+
		"  text: 1234XY\n  vehicle: 2020 Audi A4\n  owner: John Brown", s)

	s, err = ToPlainText(missingResult())
	require.NoError(t, err)
	assert.Equal(t, "empty.jpg: no plate detected", s)

	all, err := ToPlainTextResults([]*PlateResult{foundResult(), nil, missingResult()})
	require.NoError(t, err)
	assert.Equal(t, 4, strings.Count(all, "\n"))
}

func TestToCSV(t *testing.T) {
	s, err := ToCSV([]*PlateResult{foundResult(), missingResult(), nil})
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(s), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "source,found,x,y,w,h,aspect_ratio,plate,lookup,make,model,year,owner", lines[0])
	assert.Equal(t, "car.jpg,true,98,149,154,37,4.162,1234XY,found,Audi,A4,2020,John Brown", lines[1])
	assert.Equal(t, "empty.jpg,false,,,,,,,,,,,", lines[2])
}

func TestFormat(t *testing.T) {
	for _, f := range []string{"json", "JSON", "csv", "text", ""} {
		out, err := Format([]*PlateResult{foundResult()}, f)
		require.NoError(t, err, f)
		assert.NotEmpty(t, out)
	}
	out, err := Format([]*PlateResult{foundResult(), missingResult()}, "json")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "["))

	_, err = Format(nil, "xml")
	require.Error(t, err)
}

func TestValidatePlateResult(t *testing.T) {
	require.NoError(t, ValidatePlateResult(foundResult()))
	require.NoError(t, ValidatePlateResult(missingResult()))
	require.Error(t, ValidatePlateResult(nil))

	tests := map[string]func(*PlateResult){
		"size":            func(r *PlateResult) { r.Width = 0 },
		"found sans box":  func(r *PlateResult) { r.Box = nil },
		"box overflow":    func(r *PlateResult) { r.Box.X = 500 },
		"vehicle missing": func(r *PlateResult) { r.Vehicle = nil },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			r := foundResult()
			mutate(r)
			assert.Error(t, ValidatePlateResult(r))
		})
	}

	r := missingResult()
	r.Plate = "ABC"
	assert.Error(t, ValidatePlateResult(r))
}
