// Package presenter turns stored entries into text for the chat surfaces
package presenter

import "github.com/chucky-1/moods/internal/model"

// Descriptor is how a mood is shown to the user
type Descriptor struct {
	Emoji string
	Label string
	Color string
}

// Option pairs a mood with its descriptor
type Option struct {
	Mood model.Mood
	Descriptor
}

var options = []Option{
	{Mood: model.Amazing, Descriptor: Descriptor{Emoji: "😄", Label: "Amazing", Color: "#48bb78"}},
	{Mood: model.Happy, Descriptor: Descriptor{Emoji: "😊", Label: "Happy", Color: "#38b2ac"}},
	{Mood: model.Okay, Descriptor: Descriptor{Emoji: "😐", Label: "Okay", Color: "#ecc94b"}},
	{Mood: model.Sad, Descriptor: Descriptor{Emoji: "😢", Label: "Sad", Color: "#ed8936"}},
	{Mood: model.Terrible, Descriptor: Descriptor{Emoji: "😭", Label: "Terrible", Color: "#f56565"}},
}

const fallback = 2 // okay

// Options returns every mood with its descriptor in display order
func Options() []Option {
	out := make([]Option, len(options))
	copy(out, options)
	return out
}

// Describe returns the descriptor of the mood.
// Unknown moods, including corrupted stored values, are shown as okay
func Describe(mood model.Mood) Descriptor {
	for _, o := range options {
		if o.Mood == mood {
			return o.Descriptor
		}
	}
	return options[fallback].Descriptor
}
