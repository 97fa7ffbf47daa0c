package insight

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/JonMunkholm/csvinsight/internal/core"
)

// ErrInvalidResponse is returned when the model output does not match
// ResponseSchema.
var ErrInvalidResponse = errors.New("invalid model response")

// wireInsight uses pointers so a missing field is distinguishable from an
// empty one.
type wireInsight struct {
	SourceName    *string   `json:"sourceName"`
	Suggestions   *[]string `json:"suggestions"`
	CleaningSteps *[]string `json:"cleaningSteps"`
}

// Decode parses a model response strictly: every record must carry all
// three fields, or the whole response is rejected. A surrounding Markdown
// code fence is tolerated.
func Decode(text string) ([]core.Insight, error) {
	text = stripCodeFence(text)
	if text == "" {
		return nil, fmt.Errorf("%w: empty response", ErrInvalidResponse)
	}

	var wire []*wireInsight
	if err := json.Unmarshal([]byte(text), &wire); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if len(wire) == 0 {
		return nil, fmt.Errorf("%w: no insights", ErrInvalidResponse)
	}

	out := make([]core.Insight, len(wire))
	for i, w := range wire {
		if w == nil {
			return nil, fmt.Errorf("%w: record %d is null", ErrInvalidResponse, i)
		}
		switch {
		case w.SourceName == nil:
			return nil, fmt.Errorf("%w: record %d missing sourceName", ErrInvalidResponse, i)
		case w.Suggestions == nil:
			return nil, fmt.Errorf("%w: record %d missing suggestions", ErrInvalidResponse, i)
		case w.CleaningSteps == nil:
			return nil, fmt.Errorf("%w: record %d missing cleaningSteps", ErrInvalidResponse, i)
		}
		out[i] = core.Insight{
			SourceName:    *w.SourceName,
			Suggestions:   *w.Suggestions,
			CleaningSteps: *w.CleaningSteps,
		}
	}
	return out, nil
}

func stripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = text[i+1:]
	} else {
		text = strings.TrimPrefix(text, "```")
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}
