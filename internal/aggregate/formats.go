package aggregate

// formatLabels maps machine format codes to display labels.
var formatLabels = map[string]string{
	"novel":           "Novel",
	"novella":         "Novella",
	"short_story":     "Short Story",
	"audio_drama":     "Audio Drama",
	"anthology":       "Anthology",
	"omnibus":         "Omnibus",
	"graphic_novel":   "Graphic Novel",
	"audio_anthology": "Audio Anthology",
	"other":           "Other",
}

// FormatLabel resolves a format code to its display label. A missing
// code maps to "Book"; an unrecognized code passes through unchanged.
func FormatLabel(code string) string {
	if code == "" {
		return "Book"
	}
	if label, ok := formatLabels[code]; ok {
		return label
	}
	return code
}
