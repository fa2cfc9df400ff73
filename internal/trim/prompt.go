package trim

import "fmt"

// trimPromptTemplate instructs the small model to consolidate a memory file.
// Placeholders: cap, file path, current content.
const trimPromptTemplate = `You maintain an agent's long-term memory file. The file below has grown past its limit of %d entries and must be consolidated.

File: %s

Current content:
%s

Rewrite the file so that:
- It contains at most %d bullet entries, each a single line starting with "- ".
- Overlapping or duplicate entries are merged into one.
- Outdated or superseded entries are dropped in favor of newer ones.
- The most broadly useful lessons are kept; one-off trivia goes first.
- No information is invented; only consolidate what is already there.

Reply with the complete new file content and nothing else. Do not wrap it in a code fence.`

func renderTrimPrompt(maxMemories int, fileKey, currentContent string) string {
	return fmt.Sprintf(trimPromptTemplate, maxMemories, fileKey, currentContent, maxMemories)
}
