package domain

// Quality presets map friendly names to yt-dlp format selectors
var qualityPresets = map[string]string{
	"best":  "bestvideo+bestaudio/best",
	"1080p": "bestvideo[height<=1080]+bestaudio/best[height<=1080]",
	"720p":  "bestvideo[height<=720]+bestaudio/best[height<=720]",
	"480p":  "bestvideo[height<=480]+bestaudio/best[height<=480]",
	"audio": "bestaudio/best",
}

// ResolveQuality maps a preset name to a yt-dlp format selector.
// Unknown values are passed through unchanged so raw selectors keep
// working; an empty value means the tool's own default.
func ResolveQuality(preset string) string {
	if format, ok := qualityPresets[preset]; ok {
		return format
	}
	return preset
}

// QualityPresets returns the known preset names
func QualityPresets() []string {
	names := make([]string, 0, len(qualityPresets))
	for name := range qualityPresets {
		names = append(names, name)
	}
	return names
}
