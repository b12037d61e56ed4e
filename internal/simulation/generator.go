package simulation

import (
	"fmt"
	"math/rand"
)

// Pools the generator draws from. The exact values carry no meaning; they
// only need to look like real logged sets.
var (
	artists = []string{
		"The Midnight Carousel", "Gloria Vance", "Static Prairie",
		"Okonkwo Trio", "Vesper Lane", "The Hollow Choir",
		"Mira and the Tides", "Cedar & Smoke",
	}
	venues = []string{
		"Red Rocks Amphitheatre", "The Troubadour", "Paradiso",
		"First Avenue", "The Gorge", "Brixton Academy",
		"Union Transfer", "The Crocodile",
	}
	buckets = []string{"liked", "neutral", "disliked"}
)

// candidate is one generated set before submission.
type candidate struct {
	request setRequest
}

// generateCandidates produces the sets one user will log, spread across
// buckets so every bucket gets its own ranking ladder.
func generateCandidates(rng *rand.Rand, user string, count int) []candidate {
	out := make([]candidate, count)
	for i := 0; i < count; i++ {
		artist := artists[rng.Intn(len(artists))]
		venue := venues[rng.Intn(len(venues))]
		out[i] = candidate{
			request: setRequest{
				Provider: "manual",
				Payload: manualPayload{
					Title:  fmt.Sprintf("%s live at %s #%d", artist, venue, i+1),
					Artist: artist,
					Venue:  venue,
				},
				Bucket: buckets[rng.Intn(len(buckets))],
			},
		}
	}
	return out
}

// userIDs returns the stable identities for one run.
func userIDs(count int) []string {
	ids := make([]string, count)
	for i := range ids {
		ids[i] = fmt.Sprintf("sim-user-%03d", i+1)
	}
	return ids
}
