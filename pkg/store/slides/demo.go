package slides

import "github.com/livedeck/livedeck/pkg/core/session"

// DemoDeck is the built-in deck used when no database is configured.
func DemoDeck() session.StaticSlides {
	return session.StaticSlides{
		{
			ID:     "demo-1",
			Title:  "Welcome",
			Prompt: "a calm ocean at dawn, soft light, gentle waves",
			CTA:    "Wave hello to the audience",
		},
		{
			ID:     "demo-2",
			Title:  "The Idea",
			Prompt: "a city skyline morphing out of blueprints, drafting lines becoming buildings",
			CTA:    "Give a thumbs up when ready",
		},
		{
			ID:     "demo-3",
			Title:  "Finale",
			Prompt: "fireworks over the skyline at night, long exposure trails",
			CTA:    "Flash a victory sign to celebrate",
		},
	}
}
