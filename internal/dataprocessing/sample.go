package dataprocessing

import (
	"fmt"
	"strconv"

	"smechannel/pkg/contracts/domain"
)

// SampleRows is the size of the built-in offline dataset
const SampleRows = 60

// SampleHeaders are the column labels of the sample dataset
var SampleHeaders = []string{
	"USGI NET PREMIUM",
	"BUSINESS TYPE FRESH RENEWAL",
	"INTERMEDIARY CATEGORY",
	"BA NAME",
	"LINE OF BUSINESS",
	"PRODUCT NAME",
	"POLICY NO",
	"MONTH",
}

// SampleGrid builds a deterministic demo dataset spanning four channel
// categories, four lines of business and twelve advisors.
func SampleGrid() domain.RawGrid {
	categories := []string{"POSP", "BROKER", "CORPORATE AGENT", "DIRECT"}
	lines := []string{"MOTOR", "HEALTH", "FIRE", "MARINE"}
	types := []string{"NEW BUSINESS", "RENEWAL"}

	grid := make(domain.RawGrid, 0, SampleRows+1)
	grid = append(grid, append([]string(nil), SampleHeaders...))

	for i := 0; i < SampleRows; i++ {
		lob := lines[i%4]
		premium := 5000 + (i%10)*2500
		if lob == "FIRE" {
			premium += 7000
		}

		grid = append(grid, []string{
			strconv.Itoa(premium),
			types[i%2],
			categories[i%4],
			fmt.Sprintf("Advisor %d", 1+i%12),
			lob,
			lob + " SME",
			fmt.Sprintf("P%d", 10000+i),
			fmt.Sprintf("2025-%02d", 1+i%12),
		})
	}

	return grid
}
