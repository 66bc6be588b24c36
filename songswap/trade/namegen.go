package trade

import (
	"context"
	"fmt"
	"math/rand/v2"
)

// Trade names are adjective-adjective-noun, memorable enough to type into an
// autocomplete box. Uniqueness is the builder's job; GenerateName alone only
// guarantees the two adjectives differ.

var adjectives = []string{
	"amber", "ancient", "bold", "brassy", "breezy", "bright", "brisk",
	"calm", "clever", "cosmic", "crimson", "curious", "dapper", "dreamy",
	"dusty", "eager", "electric", "emerald", "fearless", "fuzzy", "gentle",
	"gilded", "glossy", "golden", "groovy", "hazy", "humming", "indigo",
	"jazzy", "jolly", "lively", "lunar", "mellow", "midnight", "misty",
	"neon", "nimble", "opal", "peppy", "plucky", "quiet", "radiant",
	"rustic", "sapphire", "scarlet", "silent", "silver", "smoky", "snappy",
	"solar", "sonic", "stellar", "sunny", "swift", "tangled", "tidal",
	"velvet", "vivid", "wandering", "wistful",
}

var nouns = []string{
	"accordion", "anthem", "aria", "ballad", "banjo", "bassline", "cadence",
	"cello", "chorus", "chord", "clef", "crescendo", "cymbal", "drum",
	"echo", "encore", "fiddle", "flute", "fugue", "groove", "harmony",
	"horn", "hymn", "interlude", "jukebox", "kazoo", "lullaby", "lyric",
	"mandolin", "medley", "melody", "metronome", "nocturne", "oboe",
	"octave", "overture", "piano", "prelude", "refrain", "rhapsody",
	"rhythm", "riff", "serenade", "sonata", "symphony", "tambourine",
	"tempo", "theremin", "trumpet", "tuba", "ukulele", "verse", "viola",
	"waltz",
}

// GenerateName returns a random adjective-adjective-noun trade name with two
// distinct adjectives. Not guaranteed unique across trades.
func GenerateName() string {
	i := rand.IntN(len(adjectives))
	j := rand.IntN(len(adjectives) - 1)
	if j >= i {
		j++
	}
	return adjectives[i] + "-" + adjectives[j] + "-" + nouns[rand.IntN(len(nouns))]
}

// maxNameAttempts bounds the collision retry loop. With ~190k combinations a
// handful of retries is already vanishingly unlikely; hitting the cap means
// something is wrong with the store, not the generator.
const maxNameAttempts = 50

// uniqueName generates names until one is unused in the store.
func uniqueName(ctx context.Context, store TradeStore) (string, error) {
	for attempt := 0; attempt < maxNameAttempts; attempt++ {
		name := GenerateName()
		exists, err := store.NameExists(ctx, name)
		if err != nil {
			return "", fmt.Errorf("failed to check trade name: %w", err)
		}
		if !exists {
			return name, nil
		}
	}
	return "", fmt.Errorf("failed to find an unused trade name after %d attempts", maxNameAttempts)
}
