package audio

import (
	"github.com/Mercetti/ALL-IN-CHAT-POKER-sub013/models"
)

// DefaultLibrary is served when no catalog file is configured.
func DefaultLibrary() *Library {
	lib := &Library{Categories: map[string]Category{
		"background_music": {
			Tier: models.TierAffiliate,
			Assets: map[string]Asset{
				"lobby_loop":  {URL: "/audio/music/lobby_loop.mp3", Duration: 120, Mood: "calm"},
				"high_stakes": {URL: "/audio/music/high_stakes.mp3", Duration: 90, Mood: "tense", Tier: models.TierPartner},
				"final_table": {URL: "/audio/music/final_table.mp3", Duration: 150, Mood: "epic", Tier: models.TierPremier},
			},
		},
		"sound_effects": {
			Tier: models.TierAffiliate,
			Assets: map[string]Asset{
				"chip_stack":  {URL: "/audio/sfx/chip_stack.wav", Duration: 0.8},
				"card_flip":   {URL: "/audio/sfx/card_flip.wav", Duration: 0.4},
				"all_in_horn": {URL: "/audio/sfx/all_in_horn.wav", Duration: 2.5, Tier: models.TierPartner},
			},
		},
		"voice_lines": {
			Tier: models.TierPartner,
			Assets: map[string]Asset{
				"nice_hand": {URL: "/audio/voice/nice_hand.mp3", Duration: 1.6, Mood: "upbeat"},
				"bad_beat":  {URL: "/audio/voice/bad_beat.mp3", Duration: 2.1, Mood: "dramatic"},
			},
		},
		"premium_stingers": {
			Tier: models.TierPremier,
			Assets: map[string]Asset{
				"royal_flush": {URL: "/audio/stingers/royal_flush.mp3", Duration: 4, Mood: "epic"},
				"champion":    {URL: "/audio/stingers/champion.mp3", Duration: 6, Mood: "epic"},
			},
		},
	}}
	lib.normalize()
	return lib
}
