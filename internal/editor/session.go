package editor

import "github.com/Conceptual-Machines/thumbforge-api/internal/imagedata"

// Session edits one image. Settings changes are previews until Commit.
type Session struct {
	source   imagedata.Image
	settings Settings
}

// OpenSession starts editing src with default settings
func OpenSession(src imagedata.Image) *Session {
	return &Session{source: src, settings: DefaultSettings()}
}

// Source returns the image as of the last successful commit
func (s *Session) Source() imagedata.Image {
	return s.source
}

// Settings returns the pending settings
func (s *Session) Settings() Settings {
	return s.settings
}

// Apply replaces the pending settings
func (s *Session) Apply(settings Settings) {
	s.settings = settings
}

// Update derives new pending settings from the current ones
func (s *Session) Update(fn func(Settings) Settings) Settings {
	s.settings = fn(s.settings)
	return s.settings
}

// Preview describes the pending settings
func (s *Session) Preview() Preview {
	return PreviewTransform(s.settings)
}

// Commit bakes the pending settings. On success the result becomes the new
// source and settings reset; on failure the session is unchanged.
func (s *Session) Commit() (imagedata.Image, error) {
	out, err := Commit(s.source, s.settings)
	if err != nil {
		return imagedata.Image{}, err
	}
	s.source = out
	s.settings = DefaultSettings()
	return out, nil
}
