package plant

import (
	"hash/fnv"
	"strings"
)

// careRecommendations returns the fixed care list for a plant name, matched
// by substring on the lowercased name. Unmatched names get the generic
// list.
func careRecommendations(plantName string) []string {
	lower := strings.ToLower(plantName)

	switch {
	case strings.Contains(lower, "tomato"):
		return []string{
			"Provide full sun (6-8 hours daily)",
			"Water deeply but infrequently at soil level",
			"Support with stakes or cages as plants grow",
			"Watch for common pests like hornworms and aphids",
			"Fertilize regularly during growing season",
		}
	case strings.Contains(lower, "rose"):
		return []string{
			"Plant in well-draining soil with morning sun",
			"Water at soil level to prevent leaf diseases",
			"Prune regularly to promote air circulation",
			"Apply mulch to retain moisture and suppress weeds",
			"Feed with rose-specific fertilizer during growing season",
		}
	case strings.Contains(lower, "basil"), strings.Contains(lower, "herb"):
		return []string{
			"Provide warm, sunny location (6+ hours of sun)",
			"Pinch flowers to encourage continued leaf growth",
			"Water when soil feels dry to touch",
			"Harvest regularly to promote bushy growth",
			"Protect from cold temperatures",
		}
	case strings.Contains(lower, "lettuce"), strings.Contains(lower, "leafy"):
		return []string{
			"Prefers cool weather and partial shade in hot climates",
			"Keep soil consistently moist but not waterlogged",
			"Harvest outer leaves first for continuous production",
			"Protect from hot afternoon sun",
			"Plant successively for continuous harvest",
		}
	case strings.Contains(lower, "pepper"):
		return []string{
			"Needs warm soil and full sun exposure",
			"Water consistently but avoid overwatering",
			"Support heavy-fruiting plants with stakes",
			"Harvest regularly to encourage more production",
			"Protect from strong winds",
		}
	case strings.Contains(lower, "sunflower"):
		return []string{
			"Plant in full sun with well-draining soil",
			"Water deeply but infrequently once established",
			"Provide support for tall varieties",
			"Deadhead spent flowers unless saving seeds",
			"Watch for birds if growing for seeds",
		}
	default:
		return []string{
			"Ensure appropriate sunlight for plant type",
			"Water when top inch of soil feels dry",
			"Monitor for pests and diseases regularly",
			"Fertilize during growing season as needed",
			"Provide good drainage to prevent root rot",
			"Mulch around plants to retain moisture",
		}
	}
}

// normalizeConfidence maps a provider score to the canonical [0,1] scale.
// Providers disagree on scale: some report a probability, some a 0-100
// score. Anything above 1 is treated as a percentage, then the result is
// clamped.
func normalizeConfidence(score float64) float64 {
	if score > 1 {
		score = score / 100
	}
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// commonPlants is the local guesser's candidate list
var commonPlants = []string{
	"Tomato Plant", "Rose Bush", "Sunflower", "Basil", "Mint",
	"Lettuce", "Pepper Plant", "Marigold", "Lavender", "Sage",
}

// guessFromImage is the deterministic local stand-in used when no network
// provider is reachable: the image bytes hash to a stable pick from the
// candidate list.
func guessFromImage(image []byte) Identification {
	h := fnv.New32a()
	h.Write(image)
	name := commonPlants[int(h.Sum32())%len(commonPlants)]

	return Identification{
		Name:            "Possible " + name,
		Confidence:      0.6,
		Health:          "Monitor for signs of stress",
		Recommendations: careRecommendations(name),
	}
}
