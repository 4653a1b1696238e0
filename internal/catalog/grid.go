package catalog

// DefaultGrid returns the school's worksheet as it was at the start of the
// 2025/26 year, laid out as described by DefaultLayout.
func DefaultGrid() [][]string {
	header := []string{
		"Durata", "Corso", "Prezzo", "",
		"Durata", "Prezzo", "",
		"Durata", "Corso", "Iscritti", "",
		"Corso", "Studenti", "Durata", "Prezzo",
	}

	prices := [][3]string{
		{"30", "solo_fiato", "90"},
		{"30", "fiato_solf", "120"},
		{"30", "solo_arco", "110"},
		{"30", "arco_solf", "160"},
		{"45", "solo_fiato", "135"},
		{"45", "fiato_solf", "160"},
		{"45", "solo_arco", "165"},
		{"45", "arco_solf", "220"},
		{"60", "solo_fiato", "180"},
		{"60", "fiato_solf", "190"},
		{"60", "solo_arco", "220"},
		{"60", "arco_solf", "240"},
	}
	durationPrices := [][2]string{
		{"30", "120"},
		{"45", "180"},
		{"60", "240"},
	}
	enrollments := [][3]string{
		{"30", "solo_fiato", "1"},
		{"30", "fiato_solf", "12"},
		{"30", "solo_arco", "0"},
		{"30", "arco_solf", "13"},
		{"45", "solo_fiato", "9"},
		{"45", "fiato_solf", "16"},
		{"45", "solo_arco", "11"},
		{"45", "arco_solf", "11"},
		{"60", "solo_fiato", "8"},
		{"60", "fiato_solf", "4"},
		{"60", "solo_arco", "10"},
		{"60", "arco_solf", "2"},
	}
	specials := [][4]string{
		{"prop", "0", "60", "100"},
		{"svil", "5", "45", "80"},
		{"fasce", "0", "30", "80"},
		{"solo_solfeggio", "12", "60", "100"},
	}

	grid := make([][]string, 13)
	grid[0] = header
	for i := 1; i < len(grid); i++ {
		row := make([]string, len(header))
		copy(row[0:3], prices[i-1][:])
		if i-1 < len(durationPrices) {
			copy(row[4:6], durationPrices[i-1][:])
		}
		copy(row[7:10], enrollments[i-1][:])
		if i-1 < len(specials) {
			copy(row[11:15], specials[i-1][:])
		}
		grid[i] = row
	}
	return grid
}
