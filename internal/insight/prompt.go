package insight

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/JonMunkholm/csvinsight/internal/core"
)

// MaxSampleRows is how many preview rows of each table reach the model.
const MaxSampleRows = 3

// Summary is what the model sees of one table.
type Summary struct {
	SourceName string              `json:"sourceName"`
	FieldNames []string            `json:"fieldNames"`
	SampleRows []map[string]string `json:"sampleRows"`
}

// Summarize builds one summary per table from at most MaxSampleRows preview rows.
func Summarize(tables []core.ParsedTable) []Summary {
	out := make([]Summary, len(tables))
	for i, t := range tables {
		sample := t.PreviewRows
		if len(sample) > MaxSampleRows {
			sample = sample[:MaxSampleRows]
		}
		if sample == nil {
			sample = []map[string]string{}
		}
		out[i] = Summary{
			SourceName: t.SourceName,
			FieldNames: t.FieldNames,
			SampleRows: sample,
		}
	}
	return out
}

const promptTemplate = `You are a data analysis expert. I have uploaded several CSV files exported from my business systems.
For each file summary below, generate actionable insights.

For each file:
1. Provide 3 to 5 specific, insightful analysis suggestions or business questions that can be answered with this data. Phrase them as advice to a business manager.
2. Suggest data cleaning steps that may be needed before the analysis.

Write all suggestions and cleaning steps in %s.

Here are the file summaries:
%s

Return your answer as a JSON array with one object per file, following the provided schema. Use each file's sourceName exactly as given.`

// BuildPrompt embeds the summaries as pretty-printed JSON in the instruction.
func BuildPrompt(summaries []Summary, language string) (string, error) {
	data, err := json.MarshalIndent(summaries, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode summaries: %w", err)
	}
	if strings.TrimSpace(language) == "" {
		language = "English"
	}
	return fmt.Sprintf(promptTemplate, language, data), nil
}
