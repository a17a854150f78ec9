package contacts

import (
	"encoding/csv"
	"io"
)

var csvHeader = []string{
	"Name", "Phone", "Email", "Instagram", "LinkedIn", "Website",
	"Location From", "Location Met", "Context", "Date Met", "Birthday",
	"Created At", "Is Hidden",
}

// WriteCSV streams the given contacts as a spreadsheet-friendly CSV.
func WriteCSV(w io.Writer, items []Contact) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(csvHeader); err != nil {
		return err
	}
	for _, c := range items {
		hidden := "No"
		if c.IsHidden {
			hidden = "Yes"
		}
		record := []string{
			c.Name, c.Phone, c.Email, c.Instagram, c.LinkedIn, c.Website,
			c.LocationFrom, c.LocationMet, c.Context, c.DateMet, c.Birthday,
			c.CreatedAt.Format("2006-01-02"), hidden,
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
