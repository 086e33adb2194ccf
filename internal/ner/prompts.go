package ner

import (
	"encoding/json"
	"fmt"
)

// The four prompt builders below reproduce `has_client.py`'s exact
// message text byte-for-byte (the model was tuned against this phrasing;
// paraphrasing it changes recall).

func nerPrompt(text string, types []string) string {
	typesJSON, _ := json.Marshal(types)
	return fmt.Sprintf("Recognize the following entity types in the text.\nSpecified types:%s\n<text>%s</text>", typesJSON, text)
}

func hideFollowupPrompt() string {
	return "Replace the above-mentioned entity types in the text."
}

func hideFollowupWithHistoryPrompt(history map[string][]string) string {
	historyJSON, _ := json.Marshal(history)
	return fmt.Sprintf("Replace the above-mentioned entity types in the text according to the existing mapping pairs:%s", historyJSON)
}

func pairPrompt(original, anonymized string) string {
	return fmt.Sprintf("<original>%s</original>\n<anonymized>%s</anonymized>\nExtract the mapping from anonymized entities to original entities.", original, anonymized)
}

func seekPrompt(maskedText string, mapping map[string][]string) string {
	mappingJSON, _ := json.Marshal(mapping)
	return fmt.Sprintf("The mapping from anonymized entities to original entities:\n%s\nRestore the original text based on the above mapping:\n%s", mappingJSON, maskedText)
}
