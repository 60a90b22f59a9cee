package voice

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dgnsrekt/voicebox/internal/audio"
)

// Message is one entry of a playlist manifest.
type Message struct {
	Name     string        `yaml:"name"`
	URL      string        `yaml:"url"`
	Mime     string        `yaml:"mime,omitempty"`
	From     string        `yaml:"from,omitempty"`
	Duration time.Duration `yaml:"duration,omitempty"`
	Size     int64         `yaml:"size,omitempty"`
}

// UnmarshalYAML accepts durations in Go notation ("12s", "1m30s").
func (m *Message) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		Name     string `yaml:"name"`
		URL      string `yaml:"url"`
		Mime     string `yaml:"mime"`
		From     string `yaml:"from"`
		Duration string `yaml:"duration"`
		Size     int64  `yaml:"size"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}

	m.Name = raw.Name
	m.URL = raw.URL
	m.Mime = raw.Mime
	m.From = raw.From
	m.Size = raw.Size
	if raw.Duration != "" {
		d, err := time.ParseDuration(raw.Duration)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", raw.Duration, err)
		}
		m.Duration = d
	}
	return nil
}

// Ref returns the message's media reference.
func (m Message) Ref() MediaRef {
	name := m.Name
	if name == "" {
		name = m.URL
	}
	return MediaRef{
		Locator:     m.URL,
		MimeType:    m.Mime,
		DisplayName: name,
	}
}

// Manifest is a playlist of voice messages, typically loaded from a YAML
// file.
type Manifest struct {
	Messages []Message `yaml:"messages"`
}

// LoadManifest reads and parses a manifest file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}

	for i, msg := range m.Messages {
		if msg.URL == "" {
			return nil, fmt.Errorf("manifest %s: message %d has no url", path, i+1)
		}
	}
	return &m, nil
}

// FillDurations backfills missing durations from clips already present in
// the cache. Messages not yet cached are left at zero; their duration
// arrives with playback instead.
func (m *Manifest) FillDurations(cache Cache) {
	for i := range m.Messages {
		msg := &m.Messages[i]
		if msg.Duration > 0 {
			continue
		}
		key := msg.Ref().Key()
		if !cache.Exists(key) {
			continue
		}
		if d, err := audio.ClipDuration(cache.PathFor(key)); err == nil {
			msg.Duration = d
		}
	}
}
