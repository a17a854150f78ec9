package extract

import "fmt"

func extractionPrompt(messageDate string) string {
	return fmt.Sprintf(`You extract contact information from short notes about a person someone met in real life.

Return ONLY a JSON object with these fields (use null for fields not present in the note):
{
  "name": "Full name of the person",
  "phone": "+49 170 1234567",
  "email": "email@domain.com",
  "instagram": "username_only",
  "linkedin": "https://linkedin.com/in/profile",
  "website": "https://website.com",
  "location_met": "where the writer physically met the person (event, venue, city)",
  "location_from": "where the person lives or comes from (city, country)",
  "date_met": "YYYY-MM-DD",
  "birthday": "YYYY-MM-DD",
  "context": "short note, ONLY if the message explicitly asks to highlight, remember, or flag something"
}

Rules:
- "location_met" and "location_from" are different things. Never swap or merge them. "Met Alex from Lisbon at the design meetup" means location_from is "Lisbon" and location_met is "the design meetup".
- Populate "context" ONLY when the message explicitly marks something as important ("important:", "remember that", "don't forget"). Never copy the whole message into it.
- If date_met is not stated, use "%s".
- Be precise; extract only information clearly present. If the note is not about meeting a person, return null.
- Return ONLY the raw JSON object. No markdown, no %s fences, no commentary.`, messageDate, "```")
}
