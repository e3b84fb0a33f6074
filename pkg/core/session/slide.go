package session

import "context"

// Slide is one immutable content record of the deck. Slides are external
// data, read-only to the session.
type Slide struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Prompt   string `json:"prompt"`
	CTA      string `json:"cta"`
	ImageRef string `json:"image_ref"`
}

// SlideSource supplies the deck. Implementations live outside the core
// (Postgres catalog, static fixtures).
type SlideSource interface {
	Slides(ctx context.Context) ([]Slide, error)
}

// AssetLoader resolves a slide's image reference into raw bytes for the
// stream-start call.
type AssetLoader interface {
	LoadImage(ctx context.Context, ref string) ([]byte, error)
}

// StaticSlides is a SlideSource over an in-memory deck.
type StaticSlides []Slide

func (s StaticSlides) Slides(ctx context.Context) ([]Slide, error) {
	out := make([]Slide, len(s))
	copy(out, s)
	return out, nil
}
