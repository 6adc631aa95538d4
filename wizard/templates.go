package wizard

// TemplateConfig seeds the initial config for a brand-new session from a
// named preset (the "template" deep-link parameter). Unknown or empty
// names fall back to the video slots preset.
func TemplateConfig(name string) Config {
	switch name {
	case "classic":
		return Config{
			KeyCategory:    "classic_slots",
			KeyGameName:    "Untitled Classic Slots",
			KeyDescription: "A 3x3 classic fruit machine",
			"layout":       map[string]interface{}{"reels": 3, "rows": 3},
		}
	case "instant":
		return Config{
			KeyCategory:    "instant_win",
			KeyGameName:    "Untitled Instant Win",
			KeyDescription: "A scratch-and-reveal instant game",
		}
	case "crash":
		return Config{
			KeyCategory:    "crash",
			KeyGameName:    "Untitled Crash Game",
			KeyDescription: "A multiplier crash game",
		}
	case "video", "":
		fallthrough
	default:
		return Config{
			KeyCategory:    "video_slots",
			KeyGameName:    "Untitled Video Slots",
			KeyDescription: "A 5x3 video slot",
			"layout":       map[string]interface{}{"reels": 5, "rows": 3},
		}
	}
}
