package seeders

var propertiesData = []struct {
	Name    string
	Address string
}{
	{Name: "Maple Court", Address: "12 Maple Street, Springfield"},
	{Name: "Riverside Lofts", Address: "48 River Road, Springfield"},
	{Name: "Oak Plaza", Address: "301 Oak Avenue, Shelbyville"},
	{Name: "", Address: "7 Elm Lane, Capital City"},
}

// ticketsData ссылается на объекты по адресу, чтобы не зависеть от id.
var ticketsData = []struct {
	Title           string
	Description     string
	Priority        string
	Status          string
	PropertyAddress string
	Metadata        string
}{
	{
		Title:           "Leaking kitchen faucet",
		Description:     "The kitchen faucet drips constantly and water pools under the sink.",
		Priority:        "MEDIUM",
		Status:          "open",
		PropertyAddress: "12 Maple Street, Springfield",
		Metadata:        `{"category":"Plumbing","source":"seed"}`,
	},
	{
		Title:           "No heat in apartment 4B",
		Description:     "Heating stopped working overnight, the temperature is below 15°C.",
		Priority:        "URGENT",
		Status:          "needs_manual_review",
		PropertyAddress: "48 River Road, Springfield",
		Metadata:        `{"category":"HVAC","useAI":true,"aiProcessed":true,"manualReviewReason":"Issue requires human inspection","source":"seed"}`,
	},
	{
		Title:           "Broken lobby door lock",
		Description:     "The lock on the main lobby door does not engage.",
		Priority:        "HIGH",
		Status:          "resolved",
		PropertyAddress: "301 Oak Avenue, Shelbyville",
		Metadata:        `{"category":"Security","source":"seed"}`,
	},
}
