package sources

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cbpResponse = `[
 ["GEO_ID","NAICS2017","ESTAB","PAYANN","state"],
 ["0400000US06","445","600","6000","06"],
 ["0400000US48","445","300","3000","48"],
 ["0400000US72","445","100","1000","72"]
]`

const martsResponse = `[
 ["data_type_code","seasonally_adj","category_code","cell_value","error_data","time"],
 ["SM","no","445","1000","no","2024-01"],
 ["SM","yes","445","999","no","2024-01"],
 ["IM","no","445","5","no","2024-01"],
 ["SM","no","445","x","no","2024-02"]
]`

func TestStateWeights(t *testing.T) {
	table, err := ReadCensusTable(strings.NewReader(cbpResponse))
	require.NoError(t, err)
	rows, err := ParseCBP(table)
	require.NoError(t, err)

	weights := StateWeights(rows)
	require.Len(t, weights, 2, "territory 72 is skipped")
	assert.Equal(t, 0.6, weights["06"].Weight)
	assert.Equal(t, 0.3, weights["48"].Weight)
	assert.Equal(t, 600, weights["06"].Establishments)
	assert.Equal(t, 0.9, ShareSum(weights))

	sales := StateSales(1000, weights)
	assert.Equal(t, 600.0, sales["06"])
	assert.Equal(t, 300.0, sales["48"])
}

func TestCensusRecords(t *testing.T) {
	cbp, err := ReadCensusTable(strings.NewReader(cbpResponse))
	require.NoError(t, err)
	rows, err := ParseCBP(cbp)
	require.NoError(t, err)
	marts, err := ReadCensusTable(strings.NewReader(martsResponse))
	require.NoError(t, err)

	batch := CensusRecords("census", "445", StateWeights(rows), ParseMARTS(marts))
	require.Len(t, batch.Records, 2)
	require.Len(t, batch.Errors, 1)
	assert.Equal(t, 3, batch.Errors[0].Index)

	ca := batch.Records[0]
	assert.Equal(t, "06-445", ca.SourceID)
	assert.Equal(t, "CA Food and Beverage Stores", ca.Label)
	assert.Equal(t, "2024-01", ca.Period)
	assert.Equal(t, 600.0, ca.Quantity)
	assert.Equal(t, "CA", ca.Attributes["state"])
	assert.Equal(t, "TX Food and Beverage Stores", batch.Records[1].Label)
}

func TestParseCBPRejectsBadNumbers(t *testing.T) {
	_, err := ParseCBP([]map[string]string{{"state": "06", "ESTAB": "many", "PAYANN": "1"}})
	require.Error(t, err)
}

func TestCensusSource(t *testing.T) {
	src := NewCensusSource("census", CensusFiles{
		Category: "445",
		CBP:      writeFile(t, "cbp.json", cbpResponse),
		MARTS:    writeFile(t, "marts.json", martsResponse),
	})
	batch, err := src.Records(context.Background())
	require.NoError(t, err)
	assert.Len(t, batch.Records, 2)

	_, err = NewCensusSource("census", CensusFiles{Category: "999"}).Records(context.Background())
	require.Error(t, err)
}
