package watcher

import (
	"os"
)

// ChangeAnalysis describes which inbox files need analysis after a change
type ChangeAnalysis struct {
	Analyze []string
	Removed []string
	Skipped []string // still empty, most likely mid-copy
}

// AnalyzeChanges sorts the paths of a change event. Written files that no
// longer exist are dropped; a later remove event reports them.
func AnalyzeChanges(event ChangeEvent) *ChangeAnalysis {
	analysis := &ChangeAnalysis{}

	if event.Type == ChangeTypeRemove {
		analysis.Removed = append(analysis.Removed, event.Paths...)
		return analysis
	}

	for _, p := range event.Paths {
		info, err := os.Stat(p)
		if err != nil || info.IsDir() {
			continue
		}
		if info.Size() == 0 {
			analysis.Skipped = append(analysis.Skipped, p)
			continue
		}
		analysis.Analyze = append(analysis.Analyze, p)
	}
	return analysis
}
