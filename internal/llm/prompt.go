package llm

import (
	"encoding/json"
	"strings"
)

// BuildSystemPrompt describes the extraction task and pins the output to the
// contact JSON schema.
func BuildSystemPrompt() string {
	parts := []string{
		"You are a contact extractor for regulatory oil and gas filings.",
		"Return ONLY JSON that matches the JSON Schema provided: an object with a 'contacts' array.",
		"Each contact must carry a name or a company, or both.",
		"Extract every interest owner, operator, and notified party you find, including those in certificate-of-mailing lists and exhibit tables.",
		"Keep mineral interest percentages exactly as written (fractions like '3/8' or percentages like '25.5%').",
		"Ownership type should be one of WI (working interest), ORRI (overriding royalty), UMI (unleased mineral interest) when the filing says so; omit it otherwise.",
		"Record the document section a contact came from when identifiable (e.g. 'certificate of mailing', 'exhibit A').",
		"Never output null. If a field is not present, omit it.",
		"Do not invent addresses, phones, or emails that are not in the text.",
	}
	return strings.Join(parts, " ")
}

// BuildTextUserPrompt wraps extracted filing text for the model. Very long
// text is sent whole; the chunker has already bounded document size upstream.
func BuildTextUserPrompt(text, filename string) string {
	var b strings.Builder
	b.WriteString("Filename: ")
	b.WriteString(filename)
	b.WriteString("\n\nJSON Schema for the response:\n")
	b.WriteString(mustJSON(BuildContactJSONSchema()))
	b.WriteString("\n\nFiling text:\n")
	b.WriteString(text)
	return b.String()
}

// BuildDocumentUserPrompt is the instruction that accompanies raw PDF pages
// on the vision fallback path.
func BuildDocumentUserPrompt(filename string) string {
	var b strings.Builder
	b.WriteString("Filename: ")
	b.WriteString(filename)
	b.WriteString("\n\nJSON Schema for the response:\n")
	b.WriteString(mustJSON(BuildContactJSONSchema()))
	b.WriteString("\n\nRead the attached filing pages and extract the contacts.")
	return b.String()
}

func mustJSON(v any) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}
