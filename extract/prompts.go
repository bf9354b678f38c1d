// Package extract composes the extraction prompts and reconciles the model
// responses into a single address record.
package extract

import (
	"strings"

	"github.com/asqrzk/address-parser-api/rag"
)

// The two instruction templates are fixed. The structural prompt grounds the
// model in the retrieved corpus chunks and asks for region/emirate fields;
// the descriptive prompt asks for the recipient and delivery fields. Key
// strings are part of the response contract and must not be reworded.
const (
	structuralInstruction = "Find me the region name and emirate name in the address with the help of the documents provided: "

	structuralRules = "\n\nPlease provide an answer based only on the provided documents. " +
		"Give me either both, region name and the emirate or if one is found, give me that and return Null for the other. " +
		"The name need not match exactly. If it looks similar go for it. " +
		"If the address has part of the name in the document, go for it. Like 'Musaffah' instead of 'Al Musafah'. " +
		"Give me a dictionary in json format response. " +
		"Also add corresponding region code and emirate code if available. If not available, return Null. If you are not sure, return Null. " +
		"The keys should be 'region_name', 'region_code', 'emirate_name', 'emirate_code'. " +
		"Only return the valid JSON. NO PREAMBLE"

	descriptiveInstruction = "Find me the addressee name, phone number or/and email, any instruction for the delivery, " +
		"villa number or flat number, PO Box number or code, building name or apartment name, street or/and landmark from the address: "

	descriptiveRules = "\n\nReturn a dictionary in json with keys: addressee name (if available), phone number (if available), " +
		"email (if available), delivery instructions (if available), villa number or flat number (if available), " +
		"PO Box number or code (if available), floor number, building name or apartment name (if available) and street (if available), " +
		"landmark (if available). " +
		"If any of the information is not available, please return Null. " +
		"Just give me the information without any preface. And return Null if you don't know. " +
		"Only return the valid JSON. NO PREAMBLE"
)

// ComposePrompts builds the structural and descriptive extraction prompts for
// a query. Retrieved documents are included in the structural prompt in
// retrieval order; an empty retrieval simply yields an empty context block.
func ComposePrompts(query string, docs []rag.SearchResult) (structural, descriptive string) {
	contents := make([]string, len(docs))
	for i, d := range docs {
		contents[i] = d.Document.Content
	}

	var b strings.Builder
	b.WriteString(structuralInstruction)
	b.WriteString(query)
	b.WriteString("\n\nRelevant Documents:\n")
	b.WriteString(strings.Join(contents, "\n\n"))
	b.WriteString(structuralRules)
	structural = b.String()

	descriptive = descriptiveInstruction + query + descriptiveRules
	return structural, descriptive
}
